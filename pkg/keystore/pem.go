package keystore

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"github.com/youmark/pkcs8"
)

const (
	PEMTypePublicKey           = "PUBLIC KEY"
	PEMTypeRSAPublicKey        = "RSA PUBLIC KEY"
	PEMTypePrivateKey          = "PRIVATE KEY"
	PEMTypeEncryptedPrivateKey = "ENCRYPTED PRIVATE KEY"
	PEMTypeRSAPrivateKey       = "RSA PRIVATE KEY"
	PEMTypeECPrivateKey        = "EC PRIVATE KEY"
)

// EncodePublicKeyPEM encodes a public key as a PKIX "PUBLIC KEY" block.
func EncodePublicKeyPEM(pub crypto.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, err
	}
	return encodePEM(PEMTypePublicKey, der)
}

// DecodePublicKeyPEM decodes a PKIX or PKCS #1 public key.
func DecodePublicKeyPEM(data []byte) (crypto.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrInvalidPEM
	}
	switch block.Type {
	case PEMTypePublicKey:
		return x509.ParsePKIXPublicKey(block.Bytes)
	case PEMTypeRSAPublicKey:
		return x509.ParsePKCS1PublicKey(block.Bytes)
	}
	return nil, fmt.Errorf("%w: unexpected block type %q", ErrInvalidPEM, block.Type)
}

// EncodePrivateKeyPEM encodes a private key as PKCS #8. When a password is
// given the key is encrypted with PBES2.
func EncodePrivateKeyPEM(key crypto.PrivateKey, password []byte) ([]byte, error) {
	if len(password) > 0 {
		der, err := pkcs8.MarshalPrivateKey(key, password, nil)
		if err != nil {
			return nil, err
		}
		return encodePEM(PEMTypeEncryptedPrivateKey, der)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, err
	}
	return encodePEM(PEMTypePrivateKey, der)
}

// DecodePrivateKeyPEM decodes PKCS #1, SEC 1, PKCS #8, encrypted PKCS #8 and
// legacy encrypted PEM private keys. A wrong or missing password returns
// ErrDecryption.
func DecodePrivateKeyPEM(data, password []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrInvalidPEM
	}

	der := block.Bytes
	legacyEncrypted := false

	//nolint:staticcheck
	if x509.IsEncryptedPEMBlock(block) {
		if len(password) == 0 {
			return nil, fmt.Errorf("%w: password required", ErrDecryption)
		}
		//nolint:staticcheck
		decrypted, err := x509.DecryptPEMBlock(block, password)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrDecryption, err)
		}
		der = decrypted
		legacyEncrypted = true
	}

	var (
		key any
		err error
	)
	switch block.Type {
	case PEMTypeEncryptedPrivateKey:
		if len(password) == 0 {
			return nil, fmt.Errorf("%w: password required", ErrDecryption)
		}
		key, err = pkcs8.ParsePKCS8PrivateKey(der, password)
		if err != nil {
			if strings.Contains(err.Error(), "incorrect password") ||
				strings.Contains(err.Error(), "structure error") {
				return nil, fmt.Errorf("%w: %s", ErrDecryption, err)
			}
			return nil, err
		}
	case PEMTypeRSAPrivateKey:
		key, err = x509.ParsePKCS1PrivateKey(der)
	case PEMTypeECPrivateKey:
		key, err = x509.ParseECPrivateKey(der)
	case PEMTypePrivateKey:
		key, err = x509.ParsePKCS8PrivateKey(der)
	default:
		return nil, fmt.Errorf("%w: unexpected block type %q", ErrInvalidPEM, block.Type)
	}
	if err != nil {
		if legacyEncrypted {
			return nil, fmt.Errorf("%w: %s", ErrDecryption, err)
		}
		return nil, err
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, errors.Join(ErrInvalidKeyAlgorithm, fmt.Errorf("%T is not a signer", key))
	}
	return signer, nil
}

func encodePEM(blockType string, der []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := pem.Encode(&buf, &pem.Block{Type: blockType, Bytes: der}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
