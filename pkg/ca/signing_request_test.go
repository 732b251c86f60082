package ca

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/jeremyhahn/go-certificate-authority/pkg/extensions"
	"github.com/jeremyhahn/go-certificate-authority/pkg/keystore"
	"github.com/jeremyhahn/go-certificate-authority/pkg/keystore/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigningRequestRoundTrip(t *testing.T) {

	root := createRoot(t)

	req := &SigningRequest{
		DistinguishedName: &DistinguishedName{CommonName: "csr.example.com", Organization: "Example Org"},
		KeyMaterial:       createKey(t),
	}
	san := extensions.NewSubjectAlternativeName()
	san.DNSNames = []string{"csr.example.com", "www.csr.example.com"}
	req.SetSubjectAlternativeNames(san)

	data, err := req.ToPEM("SHA256")
	require.NoError(t, err)

	imported, err := SigningRequestFromPEM(data)
	require.NoError(t, err)
	assert.True(t, req.DistinguishedName.Equal(imported.DistinguishedName))
	assert.False(t, keystore.HasPrivateKey(imported.KeyMaterial))
	require.NotNil(t, imported.Attributes.SubjectAlternativeName())
	assert.Equal(t, san.DNSNames, imported.Attributes.SubjectAlternativeName().DNSNames)

	// Imported requests cannot be re-signed
	_, err = imported.ToX509CSR("")
	assert.True(t, errors.Is(err, keystore.ErrKeyAccess))

	cert, err := imported.ToCert()
	require.NoError(t, err)
	assert.Nil(t, cert.SerialNumber)

	cert.SerialNumber, err = NewSerialNumber()
	require.NoError(t, err)
	cert.Parent = root
	require.NoError(t, cert.Sign(nil))

	body, err := cert.ToX509()
	require.NoError(t, err)
	assert.Equal(t, "csr.example.com", body.Subject.CommonName)
	assert.Equal(t, san.DNSNames, body.DNSNames)

	rootBody, err := root.ToX509()
	require.NoError(t, err)
	assert.NoError(t, body.CheckSignatureFrom(rootBody))
}

func TestSigningRequestValidation(t *testing.T) {

	req := &SigningRequest{DistinguishedName: &DistinguishedName{}}
	_, err := req.ToX509CSR("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "common_name")
	assert.Contains(t, err.Error(), "key_material")

	req.SetSubjectAlternativeNames(nil)
	assert.Nil(t, req.Attributes.SubjectAlternativeName())
}

func TestSigningRequestFromSPKAC(t *testing.T) {

	root := createRoot(t)
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	spkac, err := request.NewSPKAC(key, "challenge", "")
	require.NoError(t, err)

	_, err = SigningRequestFromSPKAC(spkac, nil)
	assert.True(t, errors.Is(err, ErrNoSubject))

	req, err := SigningRequestFromSPKAC(spkac, &DistinguishedName{CommonName: "spkac.example.com"})
	require.NoError(t, err)

	cert, err := req.ToCert()
	require.NoError(t, err)
	cert.SerialNumber, err = NewSerialNumber()
	require.NoError(t, err)
	cert.Parent = root
	require.NoError(t, cert.Sign(nil))

	body, err := cert.ToX509()
	require.NoError(t, err)
	assert.True(t, key.PublicKey.Equal(body.PublicKey))
	assert.Equal(t, "spkac.example.com", body.Subject.CommonName)
}
