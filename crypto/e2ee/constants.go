package e2ee

const (
	// PublicKeyLen is the size of an uncompressed P-256 point on the wire.
	PublicKeyLen = 65
	// KeyLen is the AES-128-GCM key size.
	KeyLen = 16
	// NonceLen is the implicit GCM nonce size; nonces are never transmitted.
	NonceLen = 12
	// TagLen is the GCM authentication tag appended to every ciphertext.
	TagLen = 16
)

// HKDF info labels. They bind each key to one direction, seen from the client.
const (
	InfoUpload   = "upload"
	InfoDownload = "download"
)
