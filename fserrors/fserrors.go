package fserrors

import "fmt"

// Stage identifies which step of the channel failed.
type Stage string

const (
	StageValidate  Stage = "validate"
	StageConnect   Stage = "connect"
	StageHandshake Stage = "handshake"
	StageSecure    Stage = "secure"
	StageLiveness  Stage = "liveness"
	StageTransport Stage = "transport"
	StageSend      Stage = "send"
)

// Code is a stable, programmatic error identifier for user-facing operations.
type Code string

const (
	CodeTimeout         Code = "timeout"
	CodeCanceled        Code = "canceled"
	CodeInvalidInput    Code = "invalid_input"
	CodeInvalidPSK      Code = "invalid_psk"
	CodeInvalidOption   Code = "invalid_option"
	CodeDialFailed      Code = "dial_failed"
	CodeHandshakeFailed Code = "handshake_failed"
	CodeInvalidPeerKey  Code = "invalid_peer_key"
	CodeTransportFailed Code = "transport_failed"
	CodePeerClosed      Code = "peer_closed"
	CodeDecryptFailed   Code = "decrypt_failed"
	CodeNonceExhausted  Code = "nonce_exhausted"
	CodeLivenessTimeout Code = "liveness_timeout"
	CodeNotConnected    Code = "not_connected"
	CodeSendFailed      Code = "send_failed"
	CodeProtocolError   Code = "protocol_error"
)

// Error is a structured, programmatically identifiable error for user-facing operations.
type Error struct {
	Stage Stage
	Code  Code
	Err   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.Stage, e.Code, e.Err)
	}
	return fmt.Sprintf("%s (%s)", e.Stage, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

func Wrap(stage Stage, code Code, err error) error {
	return &Error{Stage: stage, Code: code, Err: err}
}
