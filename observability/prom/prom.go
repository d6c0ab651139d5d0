package prom

import (
	"net/http"
	"time"

	"github.com/floegence/mediactl/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry returns a fresh Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// Handler returns a Prometheus HTTP handler bound to the registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

var channelStates = []observability.ChannelState{
	observability.ChannelStateIdle,
	observability.ChannelStateConnecting,
	observability.ChannelStateAwaitingServerMaterial,
	observability.ChannelStateEstablished,
	observability.ChannelStateFailed,
}

// ChannelObserver exports client channel metrics to Prometheus.
type ChannelObserver struct {
	state            *prometheus.GaugeVec
	attemptTotal     *prometheus.CounterVec
	retryDelay       prometheus.Histogram
	handshakeLatency prometheus.Histogram
	commandsTotal    *prometheus.CounterVec
	heartbeatsTotal  *prometheus.CounterVec
	eventsTotal      prometheus.Counter
	peerErrorsTotal  prometheus.Counter
}

// NewChannelObserver registers channel metrics on the registry.
func NewChannelObserver(reg *prometheus.Registry) *ChannelObserver {
	o := &ChannelObserver{
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mediactl_channel_state",
			Help: "1 for the current channel state, 0 otherwise.",
		}, []string{"state"}),
		attemptTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mediactl_channel_attempts_total",
			Help: "Channel attempts by result and reason.",
		}, []string{"result", "reason"}),
		retryDelay: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mediactl_channel_retry_delay_seconds",
			Help:    "Delay scheduled before the next channel attempt.",
			Buckets: []float64{0, 0.5, 1, 3, 5, 10},
		}),
		handshakeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mediactl_channel_handshake_latency_seconds",
			Help:    "Latency from dial start to an established channel.",
			Buckets: prometheus.DefBuckets,
		}),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mediactl_channel_commands_sent_total",
			Help: "Encrypted commands written to the host.",
		}, []string{"command"}),
		heartbeatsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mediactl_channel_heartbeats_total",
			Help: "Heartbeats queued by reason.",
		}, []string{"reason"}),
		eventsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mediactl_channel_events_total",
			Help: "Inbound events dispatched.",
		}),
		peerErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mediactl_channel_peer_errors_total",
			Help: "Error events reported by the host.",
		}),
	}
	reg.MustRegister(
		o.state,
		o.attemptTotal,
		o.retryDelay,
		o.handshakeLatency,
		o.commandsTotal,
		o.heartbeatsTotal,
		o.eventsTotal,
		o.peerErrorsTotal,
	)
	return o
}

func (o *ChannelObserver) State(state observability.ChannelState) {
	for _, s := range channelStates {
		v := 0.0
		if s == state {
			v = 1
		}
		o.state.WithLabelValues(string(s)).Set(v)
	}
}

func (o *ChannelObserver) Attempt(result observability.AttemptResult, reason observability.AttemptReason) {
	o.attemptTotal.WithLabelValues(string(result), string(reason)).Inc()
}

func (o *ChannelObserver) Retry(delay time.Duration) {
	o.retryDelay.Observe(delay.Seconds())
}

func (o *ChannelObserver) HandshakeLatency(d time.Duration) {
	o.handshakeLatency.Observe(d.Seconds())
}

func (o *ChannelObserver) CommandSent(kind string) {
	o.commandsTotal.WithLabelValues(kind).Inc()
}

func (o *ChannelObserver) Heartbeat(reason observability.HeartbeatReason) {
	o.heartbeatsTotal.WithLabelValues(string(reason)).Inc()
}

func (o *ChannelObserver) EventReceived() {
	o.eventsTotal.Inc()
}

func (o *ChannelObserver) PeerError() {
	o.peerErrorsTotal.Inc()
}

// HostObserver exports host endpoint metrics to Prometheus.
type HostObserver struct {
	connGauge     prometheus.Gauge
	sessionTotal  *prometheus.CounterVec
	commandsTotal *prometheus.CounterVec
}

// NewHostObserver registers host endpoint metrics on the registry.
func NewHostObserver(reg *prometheus.Registry) *HostObserver {
	o := &HostObserver{
		connGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mediactl_host_connections",
			Help: "Current client connection count.",
		}),
		sessionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mediactl_host_sessions_total",
			Help: "Client sessions by result and reason.",
		}, []string{"result", "reason"}),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mediactl_host_commands_total",
			Help: "Commands received from clients.",
		}, []string{"command"}),
	}
	reg.MustRegister(o.connGauge, o.sessionTotal, o.commandsTotal)
	return o
}

func (o *HostObserver) ConnCount(n int64) {
	o.connGauge.Set(float64(n))
}

func (o *HostObserver) Session(result observability.AttemptResult, reason observability.AttemptReason) {
	o.sessionTotal.WithLabelValues(string(result), string(reason)).Inc()
}

func (o *HostObserver) CommandReceived(kind string) {
	o.commandsTotal.WithLabelValues(kind).Inc()
}
