package ws

import (
	"context"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is a gorilla/websocket connection with context-aware reads and writes.
type Conn struct {
	c *websocket.Conn
}

// UpgraderOptions exposes a small set of websocket upgrader controls.
type UpgraderOptions struct {
	ReadBufferSize  int                        // Read buffer size for upgrader.
	WriteBufferSize int                        // Write buffer size for upgrader.
	CheckOrigin     func(r *http.Request) bool // Optional origin check.
}

// Upgrade upgrades an HTTP request to a websocket connection.
func Upgrade(w http.ResponseWriter, r *http.Request, opts UpgraderOptions) (*Conn, error) {
	up := websocket.Upgrader{
		ReadBufferSize:  opts.ReadBufferSize,
		WriteBufferSize: opts.WriteBufferSize,
		CheckOrigin:     opts.CheckOrigin,
	}
	c, err := up.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return &Conn{c: c}, nil
}

// DialOptions provides optional headers and dialer for websocket dialing.
type DialOptions struct {
	Header http.Header
	Dialer *websocket.Dialer
}

// Dial opens a websocket connection with a deadline-aware handshake.
func Dial(ctx context.Context, urlStr string, opts DialOptions) (*Conn, *http.Response, error) {
	var d websocket.Dialer
	if opts.Dialer != nil {
		d = *opts.Dialer
	} else {
		d = *websocket.DefaultDialer
	}
	if deadline, ok := ctx.Deadline(); ok {
		// Prefer the tighter of dialer.HandshakeTimeout and the context deadline.
		dl := time.Until(deadline)
		if d.HandshakeTimeout == 0 || d.HandshakeTimeout > dl {
			d.HandshakeTimeout = dl
		}
	}
	c, resp, err := d.DialContext(ctx, urlStr, opts.Header)
	if err != nil {
		return nil, resp, err
	}
	return &Conn{c: c}, resp, nil
}

// SetReadLimit caps the size of a single inbound message.
func (c *Conn) SetReadLimit(n int64) {
	c.c.SetReadLimit(n)
}

// ReadMessage reads a websocket message and respects the context deadline and cancellation.
func (c *Conn) ReadMessage(ctx context.Context) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	deadline, hasDeadline := ctx.Deadline()
	stop := bindDeadline(ctx, c.c.SetReadDeadline)
	defer stop()
	mt, b, err := c.c.ReadMessage()
	if err != nil {
		return 0, nil, mapTimeout(ctx, err, deadline, hasDeadline)
	}
	return mt, b, nil
}

// WriteMessage writes a websocket message and respects the context deadline and cancellation.
func (c *Conn) WriteMessage(ctx context.Context, messageType int, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline, hasDeadline := ctx.Deadline()
	stop := bindDeadline(ctx, c.c.SetWriteDeadline)
	defer stop()
	if err := c.c.WriteMessage(messageType, data); err != nil {
		return mapTimeout(ctx, err, deadline, hasDeadline)
	}
	return nil
}

// Close closes the websocket connection without a close frame.
func (c *Conn) Close() error {
	return c.c.Close()
}

// CloseWithStatus sends a close control frame before closing.
func (c *Conn) CloseWithStatus(code int, text string) error {
	_ = c.c.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(2*time.Second))
	return c.c.Close()
}

// bindDeadline copies the ctx deadline to the socket. gorilla/websocket does not unblock
// on context cancellation by itself, so a cancel forces the deadline to now.
func bindDeadline(ctx context.Context, set func(time.Time) error) func() {
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

func mapTimeout(ctx context.Context, err error, deadline time.Time, hasDeadline bool) error {
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		// Prefer ctx.Err() when it is already set.
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		// The socket deadline can fire slightly ahead of the context timer.
		if hasDeadline && !time.Now().Before(deadline) {
			return context.DeadlineExceeded
		}
	}
	return err
}
