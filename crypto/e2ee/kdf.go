package e2ee

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

var (
	// ErrInvalidPeerKey indicates the peer public key is malformed or fails curve validation.
	ErrInvalidPeerKey = errors.New("invalid peer public key")
	// ErrKeyExchangeUsed indicates Handshake was called twice on one KeyExchange.
	ErrKeyExchangeUsed = errors.New("key exchange already used")
)

// SessionKeys holds the two direction keys derived from one shared secret.
type SessionKeys struct {
	Upload   [KeyLen]byte // Client-to-host AEAD key.
	Download [KeyLen]byte // Host-to-client AEAD key.
}

// Sessions is the pair of AEAD sessions produced by a handshake.
//
// The client encrypts with Upload and decrypts with Download; the host does the opposite.
type Sessions struct {
	Upload   *Session
	Download *Session
}

// KeyExchange holds one ephemeral P-256 private key and the PSK it is bound to.
//
// It is single-use: every connection attempt generates a new one.
type KeyExchange struct {
	priv *ecdh.PrivateKey
	psk  []byte
	used bool
}

// GenerateKeyExchange creates a fresh ephemeral key pair and returns the raw
// uncompressed public key that is sent unencrypted as the first message.
func GenerateKeyExchange(psk []byte) ([]byte, *KeyExchange, error) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	kx := &KeyExchange{priv: priv, psk: append([]byte(nil), psk...)}
	return priv.PublicKey().Bytes(), kx, nil
}

// PublicKey returns the raw public key of this exchange.
func (kx *KeyExchange) PublicKey() []byte {
	return kx.priv.PublicKey().Bytes()
}

// Handshake imports the peer public key, computes the ECDH shared secret and
// returns fresh Upload/Download sessions with zeroed nonce counters.
func (kx *KeyExchange) Handshake(peerPub []byte) (Sessions, error) {
	if kx.used {
		return Sessions{}, ErrKeyExchangeUsed
	}
	kx.used = true
	if len(peerPub) != PublicKeyLen {
		return Sessions{}, fmt.Errorf("%w: length %d", ErrInvalidPeerKey, len(peerPub))
	}
	peer, err := ecdh.P256().NewPublicKey(peerPub)
	if err != nil {
		return Sessions{}, fmt.Errorf("%w: %v", ErrInvalidPeerKey, err)
	}
	shared, err := kx.priv.ECDH(peer)
	if err != nil {
		return Sessions{}, fmt.Errorf("%w: %v", ErrInvalidPeerKey, err)
	}
	defer clear(shared)

	keys, err := DeriveSessionKeys(shared, kx.psk)
	if err != nil {
		return Sessions{}, err
	}
	defer clear(keys.Upload[:])
	defer clear(keys.Download[:])

	up, err := NewSession(keys.Upload)
	if err != nil {
		return Sessions{}, err
	}
	down, err := NewSession(keys.Download)
	if err != nil {
		return Sessions{}, err
	}
	clear(kx.psk)
	return Sessions{Upload: up, Download: down}, nil
}

// DeriveSessionKeys expands the ECDH shared secret into the upload/download keys,
// salted with the PSK.
func DeriveSessionKeys(sharedSecret []byte, psk []byte) (SessionKeys, error) {
	var out SessionKeys
	if len(sharedSecret) == 0 {
		return out, errors.New("empty shared secret")
	}
	prk := hkdf.Extract(sha256.New, sharedSecret, psk)
	defer clear(prk)
	if _, err := io.ReadFull(hkdf.Expand(sha256.New, prk, []byte(InfoUpload)), out.Upload[:]); err != nil {
		return SessionKeys{}, err
	}
	if _, err := io.ReadFull(hkdf.Expand(sha256.New, prk, []byte(InfoDownload)), out.Download[:]); err != nil {
		return SessionKeys{}, err
	}
	return out, nil
}

// NewAESGCM creates an AES-128-GCM AEAD with a fixed 12-byte nonce size.
func NewAESGCM(key [KeyLen]byte) (cipher.AEAD, error) {
	b, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	a, err := cipher.NewGCM(b)
	if err != nil {
		return nil, err
	}
	if a.NonceSize() != NonceLen {
		return nil, fmt.Errorf("unexpected gcm nonce size: %d", a.NonceSize())
	}
	return a, nil
}
