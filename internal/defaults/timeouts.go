package defaults

import "time"

const (
	// ConnectTimeout is the default timeout for establishing a WebSocket connection.
	ConnectTimeout = 10 * time.Second
	// HandshakeTimeout is the default timeout for receiving the host's public key.
	HandshakeTimeout = 10 * time.Second

	// HeartbeatIdle is how long the client waits after the last inbound message before sending a Heartbeat.
	HeartbeatIdle = 30 * time.Second
	// LivenessTimeout is how long the client tolerates no inbound message before failing the channel.
	LivenessTimeout = 35 * time.Second
	// ForegroundThrottle bounds foreground-triggered heartbeats.
	ForegroundThrottle = time.Second
	// RetryDelay is the delay before every retry except the first after an established channel.
	RetryDelay = 3 * time.Second
	// OutboundQueue is the command multiplexer queue depth.
	OutboundQueue = 64

	// PSKDebounce is the quiet period before a changed PSK is reported.
	PSKDebounce = time.Second

	// HostHandshakeTimeout bounds the host side of the key exchange.
	HostHandshakeTimeout = 5 * time.Second
	// HostIdleHeartbeat is how long the host waits for client traffic before probing with a Heartbeat.
	HostIdleHeartbeat = 35 * time.Second
	// HostHeartbeatReply is how long the host waits for any reply to its probe.
	HostHeartbeatReply = 5 * time.Second
)

// EndpointPath is the channel's WebSocket path on the host.
const EndpointPath = "/main_ws"

// MaxMessageBytes caps one inbound WebSocket message (album art may be inlined as base64).
const MaxMessageBytes = 16 << 20
