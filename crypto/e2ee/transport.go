package e2ee

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ErrUnexpectedTextMessage is returned when the peer sends a websocket text frame.
var ErrUnexpectedTextMessage = errors.New("unexpected ws text message")

// BinaryTransport is one ordered, reliable, bidirectional binary message stream.
type BinaryTransport interface {
	// ReadBinary reads the next binary message, honoring the context deadline and cancellation.
	ReadBinary(ctx context.Context) ([]byte, error)
	// WriteBinary writes one binary message, honoring the context deadline and cancellation.
	WriteBinary(ctx context.Context, b []byte) error
	// Close closes the underlying transport.
	Close() error
}

// WebSocketMessageConn is a message-oriented websocket connection that supports context-aware reads/writes.
//
// It matches realtime/ws.Conn and keeps gorilla/websocket out of higher-level code.
type WebSocketMessageConn interface {
	ReadMessage(ctx context.Context) (messageType int, b []byte, err error)
	WriteMessage(ctx context.Context, messageType int, b []byte) error
	Close() error
}

// WebSocketMessageTransport adapts a context-aware websocket connection to BinaryTransport.
//
// It accepts only binary messages. Text messages are treated as protocol errors.
type WebSocketMessageTransport struct {
	c WebSocketMessageConn
}

// NewWebSocketMessageTransport wraps a websocket message connection for binary frames only.
func NewWebSocketMessageTransport(c WebSocketMessageConn) *WebSocketMessageTransport {
	return &WebSocketMessageTransport{c: c}
}

// ReadBinary blocks until a binary message is received or the context is done.
func (t *WebSocketMessageTransport) ReadBinary(ctx context.Context) ([]byte, error) {
	for {
		mt, b, err := t.c.ReadMessage(ctx)
		if err != nil {
			return nil, err
		}
		switch mt {
		case websocket.BinaryMessage:
			return b, nil
		case websocket.TextMessage:
			return nil, ErrUnexpectedTextMessage
		default:
			continue
		}
	}
}

// WriteBinary writes a binary message and respects context deadlines.
func (t *WebSocketMessageTransport) WriteBinary(ctx context.Context, b []byte) error {
	return t.c.WriteMessage(ctx, websocket.BinaryMessage, b)
}

// Close closes the underlying websocket connection.
func (t *WebSocketMessageTransport) Close() error {
	return t.c.Close()
}

// PacketTransport adapts a message-preserving net.Conn (one Write is one Read on the
// other side, such as in-memory packet bridges) to BinaryTransport.
type PacketTransport struct {
	c      net.Conn
	maxLen int
}

// NewPacketTransport wraps c. Messages longer than maxLen are truncated by the conn,
// so maxLen must cover the largest expected message.
func NewPacketTransport(c net.Conn, maxLen int) *PacketTransport {
	if maxLen <= 0 {
		maxLen = 1 << 20
	}
	return &PacketTransport{c: c, maxLen: maxLen}
}

// ReadBinary reads one message.
func (t *PacketTransport) ReadBinary(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stop := t.bindDeadline(ctx, t.c.SetReadDeadline)
	defer stop()
	buf := make([]byte, t.maxLen)
	n, err := t.c.Read(buf)
	if err != nil {
		return nil, mapDeadlineErr(ctx, err)
	}
	return buf[:n], nil
}

// WriteBinary writes one message.
func (t *PacketTransport) WriteBinary(ctx context.Context, b []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stop := t.bindDeadline(ctx, t.c.SetWriteDeadline)
	defer stop()
	if _, err := t.c.Write(b); err != nil {
		return mapDeadlineErr(ctx, err)
	}
	return nil
}

// Close closes the underlying conn.
func (t *PacketTransport) Close() error {
	return t.c.Close()
}

// bindDeadline mirrors ctx onto the conn deadline and wakes blocked I/O on cancellation.
func (t *PacketTransport) bindDeadline(ctx context.Context, set func(time.Time) error) func() {
	if deadline, ok := ctx.Deadline(); ok {
		_ = set(deadline)
	} else {
		_ = set(time.Time{})
	}
	if ctx.Done() == nil {
		return func() {}
	}
	var active atomic.Bool
	active.Store(true)
	stop := context.AfterFunc(ctx, func() {
		if !active.Load() {
			return
		}
		_ = set(time.Now())
	})
	return func() {
		active.Store(false)
		stop()
	}
}

func mapDeadlineErr(ctx context.Context, err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
	}
	return err
}
