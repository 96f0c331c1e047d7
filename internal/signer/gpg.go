package signer

import (
	"bytes"
	"crypto"
	"fmt"
	"os"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

// GPGSigner implements Signer using an OpenPGP private key
type GPGSigner struct {
	entity *openpgp.Entity
}

// NewGPGSigner creates a new GPG signer from a private key file
func NewGPGSigner(keyPath, passphrase string) (*GPGSigner, error) {
	if keyPath == "" {
		return nil, fmt.Errorf("key path is empty")
	}

	keyFile, err := os.Open(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open key file: %w", err)
	}
	defer keyFile.Close()

	// Try to parse as armored key first
	entityList, err := openpgp.ReadArmoredKeyRing(keyFile)
	if err != nil {
		// Try as binary key
		if _, err := keyFile.Seek(0, 0); err != nil {
			return nil, err
		}
		entityList, err = openpgp.ReadKeyRing(keyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read key: %w", err)
		}
	}

	if len(entityList) == 0 {
		return nil, fmt.Errorf("no keys found in key file")
	}

	entity := entityList[0]
	if entity.PrivateKey == nil {
		return nil, fmt.Errorf("key file holds no private key")
	}

	if passphrase != "" {
		if entity.PrivateKey.Encrypted {
			if err := entity.PrivateKey.Decrypt([]byte(passphrase)); err != nil {
				return nil, fmt.Errorf("failed to decrypt private key: %w", err)
			}
		}

		for _, subkey := range entity.Subkeys {
			if subkey.PrivateKey != nil && subkey.PrivateKey.Encrypted {
				if err := subkey.PrivateKey.Decrypt([]byte(passphrase)); err != nil {
					return nil, fmt.Errorf("failed to decrypt subkey: %w", err)
				}
			}
		}
	} else if entity.PrivateKey.Encrypted {
		return nil, fmt.Errorf("private key is encrypted and no passphrase was given")
	}

	return &GPGSigner{entity: entity}, nil
}

// NewGPGSignerFromEntity wraps an already decrypted entity
func NewGPGSignerFromEntity(entity *openpgp.Entity) *GPGSigner {
	return &GPGSigner{entity: entity}
}

// SignDetached creates a binary detached signature, the form rpm stores
func (s *GPGSigner) SignDetached(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	err := openpgp.DetachSign(&buf, s.entity, bytes.NewReader(data), &packet.Config{
		DefaultHash: crypto.SHA256,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create detached signature: %w", err)
	}

	return buf.Bytes(), nil
}

// IsRSA reports whether the signing key is an RSA key
func (s *GPGSigner) IsRSA() bool {
	algo := s.entity.PrimaryKey.PubKeyAlgo
	if key, ok := s.entity.SigningKey(time.Now()); ok {
		algo = key.PublicKey.PubKeyAlgo
	}
	return algo == packet.PubKeyAlgoRSA || algo == packet.PubKeyAlgoRSASignOnly
}

// GetPublicKey returns the public key in armored format
func (s *GPGSigner) GetPublicKey() ([]byte, error) {
	var buf bytes.Buffer

	w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	if err != nil {
		return nil, err
	}

	err = s.entity.Serialize(w)
	if err != nil {
		w.Close()
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
