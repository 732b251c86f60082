package memory

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"fmt"

	"github.com/jeremyhahn/go-certificate-authority/pkg/keystore"
	"github.com/jeremyhahn/go-certificate-authority/pkg/validation"
)

const (
	MinKeySize = 1024
)

// KeyMaterial is a key pair held in process memory, either generated
// locally or imported from PEM.
type KeyMaterial struct {
	public  crypto.PublicKey
	private crypto.Signer
}

func NewKeyMaterial() *KeyMaterial {
	return &KeyMaterial{}
}

// Generate returns new RSA key material. A zero size uses
// keystore.DefaultKeySize.
func Generate(bits int) (*KeyMaterial, error) {
	km := NewKeyMaterial()
	if err := km.GenerateKey(bits); err != nil {
		return nil, err
	}
	return km, nil
}

// FromSigner wraps an existing private key.
func FromSigner(signer crypto.Signer) *KeyMaterial {
	return &KeyMaterial{
		public:  signer.Public(),
		private: signer,
	}
}

// FromPEM imports a PEM private key, optionally protected by a password.
// A wrong password returns keystore.ErrDecryption.
func FromPEM(data, password []byte) (*KeyMaterial, error) {
	signer, err := keystore.DecodePrivateKeyPEM(data, password)
	if err != nil {
		return nil, err
	}
	return FromSigner(signer), nil
}

// GenerateKey replaces the key pair with a new RSA key of the given
// modulus size.
func (km *KeyMaterial) GenerateKey(bits int) error {
	if bits == 0 {
		bits = keystore.DefaultKeySize
	}
	if bits < MinKeySize {
		return fmt.Errorf("%w: %d bits", keystore.ErrInvalidKeySize, bits)
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return err
	}
	km.private = key
	km.public = key.Public()
	return nil
}

func (km *KeyMaterial) PublicKey() (crypto.PublicKey, error) {
	if km.public == nil {
		return nil, fmt.Errorf("%w: public key not set", keystore.ErrKeyAccess)
	}
	return km.public, nil
}

func (km *KeyMaterial) PrivateKey() (crypto.Signer, error) {
	if km.private == nil {
		return nil, fmt.Errorf("%w: private key not set", keystore.ErrKeyAccess)
	}
	return km.private, nil
}

func (km *KeyMaterial) IsInHardware() bool {
	return false
}

func (km *KeyMaterial) IsInMemory() bool {
	return true
}

func (km *KeyMaterial) Validate(errs *validation.Errors) {
	if km.public == nil {
		errs.Add("public_key", "is required")
	}
	if km.private == nil {
		errs.Add("private_key", "is required")
	}
}

// PrivateKeyPEM exports the private key as PKCS #8, encrypted when a
// password is given.
func (km *KeyMaterial) PrivateKeyPEM(password []byte) ([]byte, error) {
	if km.private == nil {
		return nil, fmt.Errorf("%w: private key not set", keystore.ErrKeyAccess)
	}
	return keystore.EncodePrivateKeyPEM(km.private, password)
}

func (km *KeyMaterial) PublicKeyPEM() ([]byte, error) {
	if km.public == nil {
		return nil, fmt.Errorf("%w: public key not set", keystore.ErrKeyAccess)
	}
	return keystore.EncodePublicKeyPEM(km.public)
}
