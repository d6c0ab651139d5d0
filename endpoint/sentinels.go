package endpoint

import "errors"

var (
	ErrMissingHost        = errors.New("missing host")
	ErrInvalidPSK         = errors.New("invalid psk")
	ErrExpectedHeartbeat  = errors.New("expected heartbeat as the first encrypted message")
	ErrHeartbeatNoReply   = errors.New("client did not answer heartbeat")
	ErrSubscriptionClosed = errors.New("host update subscription closed")
)
