package channel

import "github.com/floegence/mediactl/observability"

// State is the lifecycle state of the channel.
type State int32

const (
	// StateIdle means no channel is maintained (no usable PSK, or not running).
	StateIdle State = iota
	StateConnecting
	StateAwaitingServerMaterial
	StateEstablished
	StateFailed
)

func (s State) String() string {
	return string(s.observed())
}

func (s State) observed() observability.ChannelState {
	switch s {
	case StateConnecting:
		return observability.ChannelStateConnecting
	case StateAwaitingServerMaterial:
		return observability.ChannelStateAwaitingServerMaterial
	case StateEstablished:
		return observability.ChannelStateEstablished
	case StateFailed:
		return observability.ChannelStateFailed
	default:
		return observability.ChannelStateIdle
	}
}
