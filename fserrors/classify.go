package fserrors

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/floegence/mediactl/crypto/e2ee"
	"github.com/gorilla/websocket"
)

// ClassifyConnectCode maps a connect-layer error to a stable Code.
func ClassifyConnectCode(err error) Code {
	return classifyContextCode(err, CodeDialFailed)
}

// ClassifySendCode maps a command submission error to a stable Code.
func ClassifySendCode(err error) Code {
	return classifyContextCode(err, CodeSendFailed)
}

// ClassifyHandshakeCode maps a key exchange error to a stable Code.
func ClassifyHandshakeCode(err error) Code {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, context.Canceled):
		return CodeCanceled
	case errors.Is(err, e2ee.ErrInvalidPeerKey):
		return CodeInvalidPeerKey
	case isPeerClosed(err):
		return CodePeerClosed
	default:
		return CodeHandshakeFailed
	}
}

// ClassifySecureCode maps an AEAD session error to a stable Code.
func ClassifySecureCode(err error) Code {
	switch {
	case errors.Is(err, e2ee.ErrNonceExhausted):
		return CodeNonceExhausted
	default:
		return CodeDecryptFailed
	}
}

// ClassifyTransportCode maps an established-stream read/write error to a stable Code.
func ClassifyTransportCode(err error) Code {
	if isPeerClosed(err) {
		return CodePeerClosed
	}
	return classifyContextCode(err, CodeTransportFailed)
}

func classifyContextCode(err error, fallback Code) Code {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, context.Canceled):
		return CodeCanceled
	default:
		return fallback
	}
}

func isPeerClosed(err error) bool {
	var ce *websocket.CloseError
	return errors.As(err, &ce) || errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}
