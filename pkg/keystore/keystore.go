package keystore

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"
	"strings"

	"github.com/jeremyhahn/go-certificate-authority/pkg/validation"
)

const (
	DefaultKeySize = 2048
	DefaultDigest  = "SHA256"
)

var (
	ErrPrecondition        = errors.New("keystore: precondition failed")
	ErrIntegrity           = errors.New("keystore: signature verification failed")
	ErrKeyAccess           = errors.New("keystore: key material unavailable")
	ErrUnsupported         = errors.New("keystore: operation not supported")
	ErrDecryption          = errors.New("keystore: unable to decrypt private key")
	ErrInvalidPEM          = errors.New("keystore: invalid PEM encoding")
	ErrInvalidKeyAlgorithm = errors.New("keystore: invalid key algorithm")
	ErrInvalidHashFunction = errors.New("keystore: invalid hash function")
	ErrInvalidKeySize      = errors.New("keystore: invalid key size")
)

// KeyMaterial is the key pair behind a certificate or signing request. Not
// every implementation can produce a private key: hardware keys sign on the
// token and request keys only carry the requester's public key.
type KeyMaterial interface {
	validation.Validator
	PublicKey() (crypto.PublicKey, error)
	PrivateKey() (crypto.Signer, error)
	IsInHardware() bool
	IsInMemory() bool
}

// ParseHash parses a digest name such as SHA256, sha-384 or SHA_512.
// Digests weaker than SHA-256 are refused.
func ParseHash(digest string) (crypto.Hash, error) {
	if digest == "" {
		digest = DefaultDigest
	}
	name := strings.ToUpper(strings.NewReplacer("-", "", "_", "").Replace(digest))
	switch name {
	case "SHA256":
		return crypto.SHA256, nil
	case "SHA384":
		return crypto.SHA384, nil
	case "SHA512":
		return crypto.SHA512, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrInvalidHashFunction, digest)
}

// SignatureAlgorithm returns the x509 signature algorithm for a signer's
// public key and a digest name. Ed25519 keys ignore the digest.
func SignatureAlgorithm(pub crypto.PublicKey, digest string) (x509.SignatureAlgorithm, error) {
	hash, err := ParseHash(digest)
	if err != nil {
		return x509.UnknownSignatureAlgorithm, err
	}
	switch pub.(type) {
	case *rsa.PublicKey:
		switch hash {
		case crypto.SHA384:
			return x509.SHA384WithRSA, nil
		case crypto.SHA512:
			return x509.SHA512WithRSA, nil
		}
		return x509.SHA256WithRSA, nil
	case *ecdsa.PublicKey:
		switch hash {
		case crypto.SHA384:
			return x509.ECDSAWithSHA384, nil
		case crypto.SHA512:
			return x509.ECDSAWithSHA512, nil
		}
		return x509.ECDSAWithSHA256, nil
	case ed25519.PublicKey:
		return x509.PureEd25519, nil
	}
	return x509.UnknownSignatureAlgorithm, fmt.Errorf("%w: %T", ErrInvalidKeyAlgorithm, pub)
}

// Signer returns the private key of key material, wrapping the failure
// with ErrKeyAccess.
func Signer(km KeyMaterial) (crypto.Signer, error) {
	if km == nil {
		return nil, fmt.Errorf("%w: no key material", ErrKeyAccess)
	}
	signer, err := km.PrivateKey()
	if err != nil {
		if errors.Is(err, ErrKeyAccess) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", ErrKeyAccess, err)
	}
	if signer == nil {
		return nil, fmt.Errorf("%w: private key not set", ErrKeyAccess)
	}
	return signer, nil
}

// HasPrivateKey reports whether the key material can sign.
func HasPrivateKey(km KeyMaterial) bool {
	_, err := Signer(km)
	return err == nil
}
