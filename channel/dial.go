package channel

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/floegence/mediactl/crypto/e2ee"
	"github.com/floegence/mediactl/internal/defaults"
	"github.com/floegence/mediactl/realtime/ws"
	"github.com/gorilla/websocket"
)

// Dialer opens the ordered, reliable binary message stream to the host.
type Dialer interface {
	Dial(ctx context.Context) (e2ee.BinaryTransport, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context) (e2ee.BinaryTransport, error)

func (f DialerFunc) Dial(ctx context.Context) (e2ee.BinaryTransport, error) { return f(ctx) }

// WebSocketDialer dials the host's channel endpoint over WebSocket.
type WebSocketDialer struct {
	// URL is the endpoint; see ResolveEndpoint.
	URL string
	// Origin, if set, is sent as the Origin header.
	Origin string
	Header http.Header
	// Dialer is an optional gorilla/websocket dialer (proxy/TLS/etc).
	Dialer *websocket.Dialer
	// ReadLimit caps one inbound message; 0 uses the default.
	ReadLimit int64
}

func (d *WebSocketDialer) Dial(ctx context.Context) (e2ee.BinaryTransport, error) {
	if d == nil || strings.TrimSpace(d.URL) == "" {
		return nil, ErrMissingEndpoint
	}
	u, err := ResolveEndpoint(d.URL)
	if err != nil {
		return nil, err
	}
	h := d.Header.Clone()
	if d.Origin != "" {
		if h == nil {
			h = http.Header{}
		}
		h.Set("Origin", d.Origin)
	}
	c, _, err := ws.Dial(ctx, u, ws.DialOptions{Header: h, Dialer: d.Dialer})
	if err != nil {
		return nil, err
	}
	limit := d.ReadLimit
	if limit <= 0 {
		limit = defaults.MaxMessageBytes
	}
	c.SetReadLimit(limit)
	return e2ee.NewWebSocketMessageTransport(c), nil
}

// ResolveEndpoint normalizes a host address into the channel WebSocket URL.
//
// http and https map to ws and wss, a bare host:port gets ws://, and an empty
// path becomes the default endpoint path.
func ResolveEndpoint(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrMissingEndpoint
	}
	if !strings.Contains(raw, "://") {
		raw = "ws://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid endpoint url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid endpoint url: missing host")
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = defaults.EndpointPath
	}
	return u.String(), nil
}
