package e2ee

import (
	"context"
	"fmt"
)

// Respond performs the host side of the handshake on t.
//
// It reads the client's raw public key, answers with a fresh host key and derives the
// same Sessions the client derives. The host decrypts with Upload and encrypts with Download.
func Respond(ctx context.Context, t BinaryTransport, psk []byte) (Sessions, error) {
	clientPub, err := t.ReadBinary(ctx)
	if err != nil {
		return Sessions{}, err
	}
	if len(clientPub) != PublicKeyLen {
		return Sessions{}, fmt.Errorf("%w: length %d", ErrInvalidPeerKey, len(clientPub))
	}
	pub, kx, err := GenerateKeyExchange(psk)
	if err != nil {
		return Sessions{}, err
	}
	// Validate before answering so a bad client key never gets a host key back.
	sessions, err := kx.Handshake(clientPub)
	if err != nil {
		return Sessions{}, err
	}
	if err := t.WriteBinary(ctx, pub); err != nil {
		return Sessions{}, err
	}
	return sessions, nil
}
