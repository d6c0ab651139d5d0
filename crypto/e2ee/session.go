package e2ee

import (
	"crypto/cipher"
	"errors"
	"sync"
)

var (
	// ErrDecrypt indicates AEAD authentication failed: corrupted data, nonce desync or wrong key.
	ErrDecrypt = errors.New("decrypt failed")
	// ErrNonceExhausted indicates the 96-bit counter would wrap and reuse a nonce.
	ErrNonceExhausted = errors.New("nonce counter exhausted")
	// ErrSessionFailed is returned by every call after a decrypt failure.
	ErrSessionFailed = errors.New("session failed")
)

// Session is a one-directional AES-128-GCM engine with an implicit, monotonic nonce.
//
// Nonces are not transmitted. Both ends derive them from message order, so a session
// only works when messages are processed in strict arrival order with no gaps or replays.
type Session struct {
	mu        sync.Mutex
	aead      cipher.AEAD
	nonce     [NonceLen]byte // Little-endian counter; byte 0 is least significant.
	n         uint64         // Messages processed, for diagnostics.
	exhausted bool           // The last counter value has been consumed.
	failed    bool           // Sticky after a decrypt failure.
}

// NewSession builds a session for key with the counter at zero.
func NewSession(key [KeyLen]byte) (*Session, error) {
	a, err := NewAESGCM(key)
	if err != nil {
		return nil, err
	}
	return &Session{aead: a}, nil
}

// Encrypt seals plaintext under the current nonce, then advances the counter.
func (s *Session) Encrypt(plaintext []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usableLocked(); err != nil {
		return nil, err
	}
	out := s.aead.Seal(nil, s.nonce[:], plaintext, nil)
	s.advanceLocked()
	return out, nil
}

// Decrypt opens ciphertext under the current nonce, then advances the counter.
//
// The counter advances even when authentication fails; the session is unusable afterwards
// because the nonce sequence can no longer be trusted.
func (s *Session) Decrypt(ciphertext []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usableLocked(); err != nil {
		return nil, err
	}
	var (
		plain []byte
		err   error
	)
	if len(ciphertext) < TagLen {
		err = ErrDecrypt
	} else {
		plain, err = s.aead.Open(nil, s.nonce[:], ciphertext, nil)
	}
	s.advanceLocked()
	if err != nil {
		s.failed = true
		return nil, ErrDecrypt
	}
	return plain, nil
}

// Counter returns a copy of the nonce that the next operation will use.
func (s *Session) Counter() [NonceLen]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nonce
}

// Messages returns how many encrypt or decrypt operations consumed a nonce.
func (s *Session) Messages() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

func (s *Session) usableLocked() error {
	if s.failed {
		return ErrSessionFailed
	}
	if s.exhausted {
		return ErrNonceExhausted
	}
	return nil
}

func (s *Session) advanceLocked() {
	s.n++
	carry := uint16(1)
	for i := range s.nonce {
		carry += uint16(s.nonce[i])
		s.nonce[i] = byte(carry)
		carry >>= 8
	}
	if carry != 0 {
		s.exhausted = true
	}
}
