package ca

import (
	"crypto/ecdsa"
	"testing"

	"github.com/jeremyhahn/go-certificate-authority/pkg/keystore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPKCS12RoundTrip(t *testing.T) {

	root := createRoot(t)
	leaf := createLeaf(t, root, "leaf.example.com", nil)

	data, err := leaf.ToPKCS12("secret", root)
	require.NoError(t, err)

	decoded, chain, err := CertificateFromPKCS12(data, "secret")
	require.NoError(t, err)

	leafDER, err := leaf.ToDER()
	require.NoError(t, err)
	decodedDER, err := decoded.ToDER()
	require.NoError(t, err)
	assert.Equal(t, leafDER, decodedDER)

	original, err := leaf.KeyMaterial.PrivateKey()
	require.NoError(t, err)
	restored, err := keystore.Signer(decoded.KeyMaterial)
	require.NoError(t, err)
	assert.True(t, original.(*ecdsa.PrivateKey).Equal(restored))

	require.Len(t, chain, 1)
	assert.True(t, chain[0].IsRootEntity())
	assert.True(t, root.DistinguishedName.Equal(chain[0].DistinguishedName))

	_, _, err = CertificateFromPKCS12(data, "wrong")
	assert.Error(t, err)
}

func TestPKCS12RequiresSignedCertificate(t *testing.T) {

	cert, err := NewCertificate()
	require.NoError(t, err)
	_, err = cert.ToPKCS12("secret")
	assert.ErrorIs(t, err, ErrNotSigned)
}
