package endpoint

import (
	"time"

	"github.com/floegence/mediactl/internal/defaults"
	"github.com/floegence/mediactl/observability"
	"github.com/floegence/mediactl/realtime/ws"
	"github.com/pion/logging"
)

// Options configures the host side of the channel.
type Options struct {
	// PSK is the raw pre-shared key (already base64-decoded).
	PSK []byte

	HandshakeTimeout      time.Duration // Key exchange plus first heartbeat (0 uses default; <0 disables).
	IdleHeartbeat         time.Duration // Client silence before the host probes (0 uses default).
	HeartbeatReplyTimeout time.Duration // Time allowed to answer the probe (0 uses default).

	MaxMessageBytes int64 // Per inbound websocket message (0 uses default).

	AllowedOrigins []string
	AllowNoOrigin  bool
	Upgrader       ws.UpgraderOptions

	LoggerFactory logging.LoggerFactory
	Observer      observability.HostObserver
}

func (o Options) withDefaults() Options {
	if o.HandshakeTimeout == 0 {
		o.HandshakeTimeout = defaults.HostHandshakeTimeout
	}
	if o.IdleHeartbeat <= 0 {
		o.IdleHeartbeat = defaults.HostIdleHeartbeat
	}
	if o.HeartbeatReplyTimeout <= 0 {
		o.HeartbeatReplyTimeout = defaults.HostHeartbeatReply
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = defaults.MaxMessageBytes
	}
	if o.LoggerFactory == nil {
		f := logging.NewDefaultLoggerFactory()
		f.DefaultLogLevel = logging.LogLevelDisabled
		o.LoggerFactory = f
	}
	if o.Observer == nil {
		o.Observer = observability.NoopHostObserver
	}
	return o
}
