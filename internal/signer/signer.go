package signer

// Signer produces the detached signatures stored in a package's
// signature section
type Signer interface {
	// SignDetached creates a binary detached signature over data
	SignDetached(data []byte) ([]byte, error)

	// IsRSA reports whether signatures are made with an RSA key, which
	// decides the signature tags they are stored under
	IsRSA() bool

	// GetPublicKey returns the armored public key
	GetPublicKey() ([]byte, error)
}
