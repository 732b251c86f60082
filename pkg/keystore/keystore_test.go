package keystore

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"errors"
	"testing"

	"github.com/jeremyhahn/go-certificate-authority/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publicOnly struct {
	pub crypto.PublicKey
}

func (p publicOnly) PublicKey() (crypto.PublicKey, error) { return p.pub, nil }
func (p publicOnly) PrivateKey() (crypto.Signer, error)   { return nil, nil }
func (p publicOnly) IsInHardware() bool                   { return false }
func (p publicOnly) IsInMemory() bool                     { return false }
func (p publicOnly) Validate(errs *validation.Errors)     {}

func TestParseHash(t *testing.T) {

	tests := map[string]crypto.Hash{
		"":        crypto.SHA256,
		"SHA256":  crypto.SHA256,
		"sha-384": crypto.SHA384,
		"SHA_512": crypto.SHA512,
		"sha512":  crypto.SHA512,
	}
	for name, expected := range tests {
		hash, err := ParseHash(name)
		assert.NoError(t, err, name)
		assert.Equal(t, expected, hash, name)
	}

	for _, weak := range []string{"SHA1", "md5", "whirlpool"} {
		_, err := ParseHash(weak)
		assert.True(t, errors.Is(err, ErrInvalidHashFunction), weak)
	}
}

func TestSignatureAlgorithm(t *testing.T) {

	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	edPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	algo, err := SignatureAlgorithm(ecKey.Public(), "SHA384")
	assert.NoError(t, err)
	assert.Equal(t, x509.ECDSAWithSHA384, algo)

	algo, err = SignatureAlgorithm(edPub, "SHA512")
	assert.NoError(t, err)
	assert.Equal(t, x509.PureEd25519, algo)

	_, err = SignatureAlgorithm("not a key", "SHA256")
	assert.True(t, errors.Is(err, ErrInvalidKeyAlgorithm))

	_, err = SignatureAlgorithm(ecKey.Public(), "SHA1")
	assert.True(t, errors.Is(err, ErrInvalidHashFunction))
}

func TestSigner(t *testing.T) {

	_, err := Signer(nil)
	assert.True(t, errors.Is(err, ErrKeyAccess))

	_, err = Signer(publicOnly{})
	assert.True(t, errors.Is(err, ErrKeyAccess))
	assert.False(t, HasPrivateKey(publicOnly{}))
}

func TestDecodePublicKeyPEM(t *testing.T) {

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	data, err := EncodePublicKeyPEM(key.Public())
	require.NoError(t, err)
	pub, err := DecodePublicKeyPEM(data)
	require.NoError(t, err)
	assert.True(t, key.PublicKey.Equal(pub))

	_, err = DecodePublicKeyPEM([]byte("garbage"))
	assert.True(t, errors.Is(err, ErrInvalidPEM))
}
