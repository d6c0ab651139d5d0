package channel

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/floegence/mediactl/crypto/e2ee"
	"github.com/floegence/mediactl/observability"
	"github.com/floegence/mediactl/protocol"
	"github.com/floegence/mediactl/realtime/ws"
)

// scriptedHost is a minimal host: it answers the key exchange and hands each
// established connection to the test.
type scriptedHost struct {
	srv    *httptest.Server
	conns  chan *hostConn
	reject atomic.Int32

	mu   sync.Mutex
	psk  []byte
	open []e2ee.BinaryTransport
}

type hostConn struct {
	t         *testing.T
	tr        e2ee.BinaryTransport
	s         e2ee.Sessions
	clientPub []byte
}

// firstRead remembers the first message read, which is the client's public key.
type firstRead struct {
	e2ee.BinaryTransport
	first []byte
}

func (r *firstRead) ReadBinary(ctx context.Context) ([]byte, error) {
	b, err := r.BinaryTransport.ReadBinary(ctx)
	if err == nil && r.first == nil {
		r.first = append([]byte(nil), b...)
	}
	return b, err
}

func newScriptedHost(t *testing.T, key []byte) *scriptedHost {
	t.Helper()
	h := &scriptedHost{conns: make(chan *hostConn, 8), psk: key}
	h.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := ws.Upgrade(w, r, ws.UpgraderOptions{})
		if err != nil {
			return
		}
		tr := e2ee.NewWebSocketMessageTransport(c)
		if h.reject.Load() > 0 {
			h.reject.Add(-1)
			_ = tr.Close()
			return
		}
		rec := &firstRead{BinaryTransport: tr}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s, err := e2ee.Respond(ctx, rec, h.currentPSK())
		if err != nil {
			_ = tr.Close()
			return
		}
		hc := &hostConn{t: t, tr: tr, s: s, clientPub: rec.first}
		h.mu.Lock()
		h.open = append(h.open, tr)
		h.mu.Unlock()
		select {
		case h.conns <- hc:
		default:
			_ = tr.Close()
		}
	}))
	t.Cleanup(func() {
		h.srv.Close()
		h.mu.Lock()
		defer h.mu.Unlock()
		for _, tr := range h.open {
			_ = tr.Close()
		}
	})
	return h
}

func (h *scriptedHost) currentPSK() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.psk
}

func (h *scriptedHost) setPSK(b []byte) {
	h.mu.Lock()
	h.psk = b
	h.mu.Unlock()
}

func (h *scriptedHost) accept(t *testing.T) *hostConn {
	t.Helper()
	select {
	case hc := <-h.conns:
		return hc
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for a client connection")
		return nil
	}
}

func (hc *hostConn) recv() protocol.Command {
	hc.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ct, err := hc.tr.ReadBinary(ctx)
	if err != nil {
		hc.t.Fatalf("host read: %v", err)
	}
	pt, err := hc.s.Upload.Decrypt(ct)
	if err != nil {
		hc.t.Fatalf("host decrypt: %v", err)
	}
	c, err := protocol.DecodeCommand(pt)
	if err != nil {
		hc.t.Fatalf("host decode %q: %v", pt, err)
	}
	return c
}

func (hc *hostConn) send(ev protocol.Event) {
	hc.t.Helper()
	b, err := json.Marshal(ev)
	if err != nil {
		hc.t.Fatalf("marshal: %v", err)
	}
	hc.sendPlain(b)
}

func (hc *hostConn) sendPlain(b []byte) {
	hc.t.Helper()
	ct, err := hc.s.Download.Encrypt(b)
	if err != nil {
		hc.t.Fatalf("host encrypt: %v", err)
	}
	hc.sendRaw(ct)
}

func (hc *hostConn) sendRaw(b []byte) {
	hc.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := hc.tr.WriteBinary(ctx, b); err != nil {
		hc.t.Fatalf("host write: %v", err)
	}
}

// waitClosed reports whether the client closed the connection within d.
func (hc *hostConn) waitClosed(d time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	for {
		if _, err := hc.tr.ReadBinary(ctx); err != nil {
			return ctx.Err() == nil
		}
	}
}

type eventSink chan protocol.Event

func (s eventSink) Dispatch(ev protocol.Event) { s <- ev }

func (s eventSink) next(t *testing.T) protocol.Event {
	t.Helper()
	select {
	case ev := <-s:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for an event")
		return protocol.Event{}
	}
}

type attemptRecord struct {
	result observability.AttemptResult
	reason observability.AttemptReason
}

type recordingObserver struct {
	observability.ChannelObserver

	mu       sync.Mutex
	retries  []time.Duration
	attempts []attemptRecord
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{ChannelObserver: observability.NoopChannelObserver}
}

func (o *recordingObserver) Retry(d time.Duration) {
	o.mu.Lock()
	o.retries = append(o.retries, d)
	o.mu.Unlock()
}

func (o *recordingObserver) Attempt(result observability.AttemptResult, reason observability.AttemptReason) {
	o.mu.Lock()
	o.attempts = append(o.attempts, attemptRecord{result, reason})
	o.mu.Unlock()
}

func (o *recordingObserver) snapshot() ([]time.Duration, []attemptRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]time.Duration(nil), o.retries...), append([]attemptRecord(nil), o.attempts...)
}

func b64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

func waitState(t *testing.T, m *Manager, want State) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if m.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state = %v, want %v", m.State(), want)
}

func startManager(t *testing.T, m *Manager) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(3 * time.Second):
			t.Errorf("Run did not return after cancel")
		}
	})
}
