package channel

import "errors"

var (
	ErrNotConnected      = errors.New("channel is not established")
	ErrLivenessTimeout   = errors.New("no inbound message within the liveness timeout")
	ErrAlreadyRunning    = errors.New("manager is already running")
	ErrMissingDialer     = errors.New("missing dialer")
	ErrMissingPSKSource  = errors.New("missing psk source")
	ErrMissingDispatcher = errors.New("missing dispatcher")
	ErrMissingEndpoint   = errors.New("missing endpoint url")
)
