package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

type ChannelState string

const (
	ChannelStateIdle                   ChannelState = "idle"
	ChannelStateConnecting             ChannelState = "connecting"
	ChannelStateAwaitingServerMaterial ChannelState = "awaiting_server_material"
	ChannelStateEstablished            ChannelState = "established"
	ChannelStateFailed                 ChannelState = "failed"
)

type AttemptResult string

const (
	AttemptResultOK   AttemptResult = "ok"
	AttemptResultFail AttemptResult = "fail"
)

// AttemptReason is a stable failure code (see fserrors.Code), or "ok".
type AttemptReason string

const AttemptReasonOK AttemptReason = "ok"

type HeartbeatReason string

const (
	HeartbeatReasonInitial    HeartbeatReason = "initial"
	HeartbeatReasonIdle       HeartbeatReason = "idle"
	HeartbeatReasonForeground HeartbeatReason = "foreground"
	HeartbeatReasonAck        HeartbeatReason = "ack"
)

// ChannelObserver receives client channel metric events.
type ChannelObserver interface {
	State(state ChannelState)
	Attempt(result AttemptResult, reason AttemptReason)
	Retry(delay time.Duration)
	HandshakeLatency(d time.Duration)
	CommandSent(kind string)
	Heartbeat(reason HeartbeatReason)
	EventReceived()
	PeerError()
}

// HostObserver receives host endpoint metric events.
type HostObserver interface {
	ConnCount(n int64)
	Session(result AttemptResult, reason AttemptReason)
	CommandReceived(kind string)
}

type noopChannelObserver struct{}

func (noopChannelObserver) State(ChannelState)                   {}
func (noopChannelObserver) Attempt(AttemptResult, AttemptReason) {}
func (noopChannelObserver) Retry(time.Duration)                  {}
func (noopChannelObserver) HandshakeLatency(time.Duration)       {}
func (noopChannelObserver) CommandSent(string)                   {}
func (noopChannelObserver) Heartbeat(HeartbeatReason)            {}
func (noopChannelObserver) EventReceived()                       {}
func (noopChannelObserver) PeerError()                           {}

type noopHostObserver struct{}

func (noopHostObserver) ConnCount(int64)                      {}
func (noopHostObserver) Session(AttemptResult, AttemptReason) {}
func (noopHostObserver) CommandReceived(string)               {}

// NoopChannelObserver is a zero-cost observer used when metrics are disabled.
var NoopChannelObserver ChannelObserver = noopChannelObserver{}

// NoopHostObserver is a zero-cost observer used when metrics are disabled.
var NoopHostObserver HostObserver = noopHostObserver{}

// AtomicChannelObserver swaps its delegate at runtime.
type AtomicChannelObserver struct {
	once sync.Once
	v    atomic.Value
}

type channelObserverHolder struct {
	obs ChannelObserver
}

// NewAtomicChannelObserver returns an initialized atomic observer.
func NewAtomicChannelObserver() *AtomicChannelObserver {
	a := &AtomicChannelObserver{}
	a.once.Do(func() { a.v.Store(&channelObserverHolder{obs: NoopChannelObserver}) })
	return a
}

// Set replaces the delegate, falling back to the no-op observer on nil.
func (a *AtomicChannelObserver) Set(obs ChannelObserver) {
	if obs == nil {
		obs = NoopChannelObserver
	}
	a.once.Do(func() { a.v.Store(&channelObserverHolder{obs: NoopChannelObserver}) })
	a.v.Store(&channelObserverHolder{obs: obs})
}

func (a *AtomicChannelObserver) load() ChannelObserver {
	a.once.Do(func() { a.v.Store(&channelObserverHolder{obs: NoopChannelObserver}) })
	return a.v.Load().(*channelObserverHolder).obs
}

func (a *AtomicChannelObserver) State(state ChannelState) { a.load().State(state) }
func (a *AtomicChannelObserver) Attempt(result AttemptResult, reason AttemptReason) {
	a.load().Attempt(result, reason)
}
func (a *AtomicChannelObserver) Retry(delay time.Duration)        { a.load().Retry(delay) }
func (a *AtomicChannelObserver) HandshakeLatency(d time.Duration) { a.load().HandshakeLatency(d) }
func (a *AtomicChannelObserver) CommandSent(kind string)          { a.load().CommandSent(kind) }
func (a *AtomicChannelObserver) Heartbeat(reason HeartbeatReason) { a.load().Heartbeat(reason) }
func (a *AtomicChannelObserver) EventReceived()                   { a.load().EventReceived() }
func (a *AtomicChannelObserver) PeerError()                       { a.load().PeerError() }

// AtomicHostObserver swaps its delegate at runtime.
type AtomicHostObserver struct {
	once sync.Once
	v    atomic.Value
}

type hostObserverHolder struct {
	obs HostObserver
}

// NewAtomicHostObserver returns an initialized atomic observer.
func NewAtomicHostObserver() *AtomicHostObserver {
	a := &AtomicHostObserver{}
	a.once.Do(func() { a.v.Store(&hostObserverHolder{obs: NoopHostObserver}) })
	return a
}

// Set replaces the delegate, falling back to the no-op observer on nil.
func (a *AtomicHostObserver) Set(obs HostObserver) {
	if obs == nil {
		obs = NoopHostObserver
	}
	a.once.Do(func() { a.v.Store(&hostObserverHolder{obs: NoopHostObserver}) })
	a.v.Store(&hostObserverHolder{obs: obs})
}

func (a *AtomicHostObserver) load() HostObserver {
	a.once.Do(func() { a.v.Store(&hostObserverHolder{obs: NoopHostObserver}) })
	return a.v.Load().(*hostObserverHolder).obs
}

func (a *AtomicHostObserver) ConnCount(n int64) { a.load().ConnCount(n) }
func (a *AtomicHostObserver) Session(result AttemptResult, reason AttemptReason) {
	a.load().Session(result, reason)
}
func (a *AtomicHostObserver) CommandReceived(kind string) { a.load().CommandReceived(kind) }
