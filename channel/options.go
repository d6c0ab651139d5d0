package channel

import (
	"fmt"
	"time"

	"github.com/floegence/mediactl/internal/defaults"
	"github.com/floegence/mediactl/observability"
	"github.com/pion/logging"
)

// Option configures a Manager.
//
// Omit an option to use the library default. For connect and handshake timeouts, 0 disables the timeout.
type Option func(*options) error

type options struct {
	connectTimeout   time.Duration
	handshakeTimeout time.Duration

	heartbeatIdle      time.Duration
	heartbeatIdleSet   bool
	livenessTimeout    time.Duration
	foregroundThrottle time.Duration

	retryDelay    time.Duration
	outboundQueue int

	loggerFactory logging.LoggerFactory
	observer      observability.ChannelObserver
}

func defaultOptions() options {
	return options{
		connectTimeout:     defaults.ConnectTimeout,
		handshakeTimeout:   defaults.HandshakeTimeout,
		heartbeatIdle:      defaults.HeartbeatIdle,
		livenessTimeout:    defaults.LivenessTimeout,
		foregroundThrottle: defaults.ForegroundThrottle,
		retryDelay:         defaults.RetryDelay,
		outboundQueue:      defaults.OutboundQueue,
	}
}

func applyOptions(opts []Option) (options, error) {
	cfg := defaultOptions()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return options{}, err
		}
	}
	if !cfg.heartbeatIdleSet {
		cfg.heartbeatIdle = defaults.HeartbeatIdleFor(cfg.livenessTimeout)
	}
	if cfg.heartbeatIdle >= cfg.livenessTimeout {
		return options{}, fmt.Errorf("heartbeat idle (%v) must be shorter than the liveness timeout (%v)", cfg.heartbeatIdle, cfg.livenessTimeout)
	}
	if cfg.loggerFactory == nil {
		f := logging.NewDefaultLoggerFactory()
		f.DefaultLogLevel = logging.LogLevelDisabled
		cfg.loggerFactory = f
	}
	if cfg.observer == nil {
		cfg.observer = observability.NoopChannelObserver
	}
	return cfg, nil
}

// WithConnectTimeout sets the transport dial timeout; 0 disables the timeout.
func WithConnectTimeout(d time.Duration) Option {
	return func(cfg *options) error {
		if d < 0 {
			return fmt.Errorf("connect timeout must be >= 0")
		}
		cfg.connectTimeout = d
		return nil
	}
}

// WithHandshakeTimeout bounds sending the public key and receiving the host's; 0 disables the timeout.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(cfg *options) error {
		if d < 0 {
			return fmt.Errorf("handshake timeout must be >= 0")
		}
		cfg.handshakeTimeout = d
		return nil
	}
}

// WithHeartbeatIdle sets how long after the last inbound message a Heartbeat is sent.
func WithHeartbeatIdle(d time.Duration) Option {
	return func(cfg *options) error {
		if d <= 0 {
			return fmt.Errorf("heartbeat idle must be > 0")
		}
		cfg.heartbeatIdle = d
		cfg.heartbeatIdleSet = true
		return nil
	}
}

// WithLivenessTimeout sets how long the channel tolerates silence from the host.
//
// Without WithHeartbeatIdle, the idle heartbeat is scaled to stay below this timeout.
func WithLivenessTimeout(d time.Duration) Option {
	return func(cfg *options) error {
		if d <= 0 {
			return fmt.Errorf("liveness timeout must be > 0")
		}
		cfg.livenessTimeout = d
		return nil
	}
}

// WithForegroundThrottle sets the minimum spacing of foreground heartbeats.
func WithForegroundThrottle(d time.Duration) Option {
	return func(cfg *options) error {
		if d < 0 {
			return fmt.Errorf("foreground throttle must be >= 0")
		}
		cfg.foregroundThrottle = d
		return nil
	}
}

// WithRetryDelay sets the delay applied to every retry after the first one following an established channel.
func WithRetryDelay(d time.Duration) Option {
	return func(cfg *options) error {
		if d < 0 {
			return fmt.Errorf("retry delay must be >= 0")
		}
		cfg.retryDelay = d
		return nil
	}
}

// WithOutboundQueue sets the command queue depth.
func WithOutboundQueue(n int) Option {
	return func(cfg *options) error {
		if n <= 0 {
			return fmt.Errorf("outbound queue must be > 0")
		}
		cfg.outboundQueue = n
		return nil
	}
}

// WithLoggerFactory sets the logger factory. The default logs nothing.
func WithLoggerFactory(f logging.LoggerFactory) Option {
	return func(cfg *options) error {
		cfg.loggerFactory = f
		return nil
	}
}

// WithObserver sets the metrics observer.
func WithObserver(obs observability.ChannelObserver) Option {
	return func(cfg *options) error {
		cfg.observer = obs
		return nil
	}
}
