package e2ee

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/floegence/mediactl/realtime/ws"
	"github.com/gorilla/websocket"
	"github.com/pion/transport/v3/test"
)

func newWSServer(t *testing.T, handle func(c *websocket.Conn)) *httptest.Server {
	t.Helper()
	up := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn)
	}))
}

func dialTransport(t *testing.T, srv *httptest.Server) *WebSocketMessageTransport {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), ws.DialOptions{})
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	bt := NewWebSocketMessageTransport(c)
	t.Cleanup(func() { _ = bt.Close() })
	return bt
}

func TestWebSocketMessageTransportReadHonorsContextCancel(t *testing.T) {
	srv := newWSServer(t, func(c *websocket.Conn) {
		// Keep the connection open until the client closes.
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer srv.Close()
	bt := dialTransport(t, srv)

	readCtx, readCancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := bt.ReadBinary(readCtx)
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	readCancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("ReadBinary did not return after context cancellation")
	}
}

func TestWebSocketMessageTransportRejectsTextMessages(t *testing.T) {
	srv := newWSServer(t, func(c *websocket.Conn) {
		_ = c.WriteMessage(websocket.TextMessage, []byte("hello"))
		_, _, _ = c.ReadMessage()
	})
	defer srv.Close()
	bt := dialTransport(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := bt.ReadBinary(ctx); !errors.Is(err, ErrUnexpectedTextMessage) {
		t.Fatalf("expected ErrUnexpectedTextMessage, got %v", err)
	}
}

// autoTick delivers bridge packets in the background, like a live network.
func autoTick(t *testing.T, br *test.Bridge) {
	t.Helper()
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		tk := time.NewTicker(time.Millisecond)
		defer tk.Stop()
		for {
			select {
			case <-stop:
				return
			case <-tk.C:
				br.Tick()
			}
		}
	}()
	t.Cleanup(func() {
		close(stop)
		<-done
		_ = br.GetConn0().Close()
		_ = br.GetConn1().Close()
	})
}

func sealAll(t *testing.T, ctx context.Context, s *Session, tr *PacketTransport, msgs ...string) {
	t.Helper()
	for _, m := range msgs {
		ct, err := s.Encrypt([]byte(m))
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}
		if err := tr.WriteBinary(ctx, ct); err != nil {
			t.Fatalf("WriteBinary: %v", err)
		}
	}
}

func TestPacketTransportDroppedFrameDesyncsNonce(t *testing.T) {
	client, host := handshakePair(t, []byte("psk"))
	br := test.NewBridge()
	sender := NewPacketTransport(br.GetConn0(), 4096)
	receiver := NewPacketTransport(br.GetConn1(), 4096)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sealAll(t, ctx, client.Upload, sender, `"Heartbeat"`, `"NextTrack"`, `"PrevTrack"`)
	br.Drop(0, 1, 1)
	autoTick(t, br)

	frame, err := receiver.ReadBinary(ctx)
	if err != nil {
		t.Fatalf("ReadBinary: %v", err)
	}
	if pt, err := host.Upload.Decrypt(frame); err != nil || string(pt) != `"Heartbeat"` {
		t.Fatalf("first frame: pt=%q err=%v", pt, err)
	}
	frame, err = receiver.ReadBinary(ctx)
	if err != nil {
		t.Fatalf("ReadBinary: %v", err)
	}
	if _, err := host.Upload.Decrypt(frame); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("expected ErrDecrypt after a dropped frame, got %v", err)
	}
}

func TestPacketTransportReorderedFramesFail(t *testing.T) {
	client, host := handshakePair(t, []byte("psk"))
	br := test.NewBridge()
	sender := NewPacketTransport(br.GetConn0(), 4096)
	receiver := NewPacketTransport(br.GetConn1(), 4096)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sealAll(t, ctx, client.Upload, sender, `"VolumeUp"`, `"VolumeDown"`)
	if err := br.Reorder(0); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	autoTick(t, br)

	frame, err := receiver.ReadBinary(ctx)
	if err != nil {
		t.Fatalf("ReadBinary: %v", err)
	}
	if _, err := host.Upload.Decrypt(frame); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("expected ErrDecrypt for a reordered frame, got %v", err)
	}
}
