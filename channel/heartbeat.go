package channel

import (
	"time"

	"github.com/floegence/mediactl/protocol"
)

// HeartbeatConfig holds the heartbeat and liveness timings.
type HeartbeatConfig struct {
	// Idle is the quiet period after an inbound message before a Heartbeat is sent.
	Idle time.Duration
	// Liveness is the silence after which the channel is considered dead.
	Liveness time.Duration
	// ForegroundThrottle is the minimum spacing between foreground heartbeats.
	ForegroundThrottle time.Duration
}

// HeartbeatMonitor tracks inbound timing for one established channel.
//
// It does no I/O and reads no clock: every method takes the current time, so the
// owning loop decides when to call Tick (see Deadline).
type HeartbeatMonitor struct {
	cfg HeartbeatConfig

	lastInbound time.Time
	idleArmed   bool

	lastForeground time.Time
	foregroundSent bool
}

// NewHeartbeatMonitor starts monitoring at now; the liveness window starts here too.
func NewHeartbeatMonitor(cfg HeartbeatConfig, now time.Time) *HeartbeatMonitor {
	return &HeartbeatMonitor{cfg: cfg, lastInbound: now}
}

// Inbound records any inbound message. It reports whether a HeartbeatAck must be queued.
func (m *HeartbeatMonitor) Inbound(now time.Time, ev protocol.Event) (ack bool) {
	m.lastInbound = now
	m.idleArmed = m.cfg.Idle > 0
	return ev.Heartbeat
}

// Foreground reports whether a foreground heartbeat may be sent now.
func (m *HeartbeatMonitor) Foreground(now time.Time) bool {
	if m.foregroundSent && now.Sub(m.lastForeground) < m.cfg.ForegroundThrottle {
		return false
	}
	m.lastForeground = now
	m.foregroundSent = true
	return true
}

// Tick returns ErrLivenessTimeout once the liveness window has passed, and otherwise
// reports whether the idle heartbeat is due. The idle heartbeat fires once per inbound message.
func (m *HeartbeatMonitor) Tick(now time.Time) (heartbeat bool, err error) {
	silent := now.Sub(m.lastInbound)
	if m.cfg.Liveness > 0 && silent >= m.cfg.Liveness {
		return false, ErrLivenessTimeout
	}
	if m.idleArmed && silent >= m.cfg.Idle {
		m.idleArmed = false
		return true, nil
	}
	return false, nil
}

// Deadline returns the next instant Tick has something to do, or the zero time if never.
func (m *HeartbeatMonitor) Deadline() time.Time {
	var d time.Time
	if m.cfg.Liveness > 0 {
		d = m.lastInbound.Add(m.cfg.Liveness)
	}
	if m.idleArmed {
		idle := m.lastInbound.Add(m.cfg.Idle)
		if d.IsZero() || idle.Before(d) {
			d = idle
		}
	}
	return d
}

// LastInbound returns the time of the last inbound message (or the start time).
func (m *HeartbeatMonitor) LastInbound() time.Time {
	return m.lastInbound
}
