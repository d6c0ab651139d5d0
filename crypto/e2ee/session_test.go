package e2ee

import (
	"bytes"
	"errors"
	"testing"
)

func newSessionPair(t *testing.T) (*Session, *Session) {
	t.Helper()
	var key [KeyLen]byte
	for i := range key {
		key[i] = byte(i + 1)
	}
	enc, err := NewSession(key)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	dec, err := NewSession(key)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return enc, dec
}

func TestSessionRoundTripUTF8(t *testing.T) {
	enc, dec := newSessionPair(t)
	msgs := []string{"", "plain", "héllo wörld", "音楽 🎵", `{"title":"x"}`}
	for _, m := range msgs {
		ct, err := enc.Encrypt([]byte(m))
		if err != nil {
			t.Fatalf("Encrypt(%q): %v", m, err)
		}
		if len(ct) != len(m)+TagLen {
			t.Fatalf("unexpected ciphertext length %d for %q", len(ct), m)
		}
		pt, err := dec.Decrypt(ct)
		if err != nil {
			t.Fatalf("Decrypt(%q): %v", m, err)
		}
		if string(pt) != m {
			t.Fatalf("round trip mismatch: got %q want %q", pt, m)
		}
	}
}

func TestSessionCounterAdvancesLittleEndian(t *testing.T) {
	enc, _ := newSessionPair(t)
	const n = 300
	seen := make(map[[NonceLen]byte]bool, n)
	for i := 0; i < n; i++ {
		c := enc.Counter()
		if seen[c] {
			t.Fatalf("nonce reused at call %d", i)
		}
		seen[c] = true
		if _, err := enc.Encrypt([]byte("x")); err != nil {
			t.Fatalf("Encrypt: %v", err)
		}
	}
	if enc.Messages() != n {
		t.Fatalf("expected %d messages, got %d", n, enc.Messages())
	}
	var want [NonceLen]byte
	want[0] = n & 0xff
	want[1] = n >> 8
	if got := enc.Counter(); got != want {
		t.Fatalf("counter mismatch: got %x want %x", got, want)
	}
}

func TestSessionSameIndexProducesSameCiphertext(t *testing.T) {
	a, b := newSessionPair(t)
	ca, err := a.Encrypt([]byte("same"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	cb, err := b.Encrypt([]byte("same"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if !bytes.Equal(ca, cb) {
		t.Fatalf("expected deterministic ciphertext for equal key and nonce index")
	}
	cc, err := a.Encrypt([]byte("same"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if bytes.Equal(ca, cc) {
		t.Fatalf("expected a different ciphertext at the next nonce")
	}
}

func TestSessionFlippedTagFailsAndPoisons(t *testing.T) {
	enc, dec := newSessionPair(t)
	ct, err := enc.Encrypt([]byte(`{"volume":{"level":0.5,"muted":false}}`))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	ct[len(ct)-1] ^= 0x01
	if _, err := dec.Decrypt(ct); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("expected ErrDecrypt, got %v", err)
	}
	if dec.Messages() != 1 {
		t.Fatalf("expected failed decrypt to consume a nonce, got %d", dec.Messages())
	}

	next, err := enc.Encrypt([]byte("next"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := dec.Decrypt(next); !errors.Is(err, ErrSessionFailed) {
		t.Fatalf("expected ErrSessionFailed after a decrypt failure, got %v", err)
	}
}

func TestSessionShortCiphertext(t *testing.T) {
	_, dec := newSessionPair(t)
	if _, err := dec.Decrypt([]byte{1, 2, 3}); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("expected ErrDecrypt, got %v", err)
	}
}

func TestSessionOutOfOrderFails(t *testing.T) {
	enc, dec := newSessionPair(t)
	if _, err := enc.Encrypt([]byte("first")); err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	second, err := enc.Encrypt([]byte("second"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := dec.Decrypt(second); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("expected ErrDecrypt for a skipped frame, got %v", err)
	}
}

func TestSessionRefusesToWrapCounter(t *testing.T) {
	enc, _ := newSessionPair(t)
	for i := range enc.nonce {
		enc.nonce[i] = 0xff
	}
	if _, err := enc.Encrypt([]byte("last")); err != nil {
		t.Fatalf("the final counter value must still be usable: %v", err)
	}
	if got := enc.Counter(); got != ([NonceLen]byte{}) {
		t.Fatalf("expected counter to read zero after wrap, got %x", got)
	}
	if _, err := enc.Encrypt([]byte("again")); !errors.Is(err, ErrNonceExhausted) {
		t.Fatalf("expected ErrNonceExhausted, got %v", err)
	}
}
