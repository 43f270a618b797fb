package todoapi

import (
	"crypto/rsa"
	"os"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// KeyPair holds the RSA signing keys. Immutable after construction:
// the private key signs, the public key verifies.
type KeyPair struct {
	private *rsa.PrivateKey
	public  *rsa.PublicKey
}

// NewKeyPair builds a KeyPair from already parsed keys, rejecting
// pairs where the public key does not belong to the private key.
func NewKeyPair(private *rsa.PrivateKey, public *rsa.PublicKey) (*KeyPair, error) {
	if private == nil || public == nil {
		return nil, errors.New("both private and public keys are required", errors.CategoryInternal).
			WithTextCode(TextCodeKeyLoad)
	}

	if !private.PublicKey.Equal(public) {
		return nil, errors.New("public key does not match private key", errors.CategoryInternal).
			WithTextCode(TextCodeKeyLoad)
	}

	return &KeyPair{private: private, public: public}, nil
}

// LoadKeyPair reads and parses a PEM encoded RSA key pair from disk.
// Errors carry the file path but never key material.
func LoadKeyPair(privatePath, publicPath string) (*KeyPair, error) {
	privatePEM, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to read private key file").
			WithTextCode(TextCodeKeyLoad).
			WithMetadata(map[string]any{"path": privatePath})
	}

	private, err := jwt.ParseRSAPrivateKeyFromPEM(privatePEM)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to parse private key PEM").
			WithTextCode(TextCodeKeyLoad).
			WithMetadata(map[string]any{"path": privatePath})
	}

	publicPEM, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to read public key file").
			WithTextCode(TextCodeKeyLoad).
			WithMetadata(map[string]any{"path": publicPath})
	}

	public, err := jwt.ParseRSAPublicKeyFromPEM(publicPEM)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to parse public key PEM").
			WithTextCode(TextCodeKeyLoad).
			WithMetadata(map[string]any{"path": publicPath})
	}

	return NewKeyPair(private, public)
}

// Private returns the signing key
func (k *KeyPair) Private() *rsa.PrivateKey {
	return k.private
}

// Public returns the verification key
func (k *KeyPair) Public() *rsa.PublicKey {
	return k.public
}
