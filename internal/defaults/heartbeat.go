package defaults

import "time"

const minHeartbeatIdle = 500 * time.Millisecond

// HeartbeatIdleFor returns the idle heartbeat interval to use with a liveness timeout.
//
// The default liveness timeout maps to HeartbeatIdle. Other values keep the same
// ratio, clamp to a small minimum, and always stay strictly below the liveness timeout
// so that a heartbeat goes out before the channel is declared dead.
func HeartbeatIdleFor(liveness time.Duration) time.Duration {
	if liveness <= 0 {
		return 0
	}
	if liveness == LivenessTimeout {
		return HeartbeatIdle
	}
	idle := liveness * time.Duration(HeartbeatIdle/time.Second) / time.Duration(LivenessTimeout/time.Second)
	if idle < minHeartbeatIdle {
		idle = minHeartbeatIdle
	}
	if idle >= liveness {
		idle = liveness / 2
	}
	return idle
}
