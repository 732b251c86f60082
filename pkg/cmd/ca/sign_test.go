package ca

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"testing"

	"github.com/jeremyhahn/go-certificate-authority/pkg/ca"
	"github.com/jeremyhahn/go-certificate-authority/pkg/keystore/request"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_SignCSR(t *testing.T) {

	setupCA(t)

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.CreateCertificateRequest(rand.Reader,
		&x509.CertificateRequest{Subject: pkix.Name{CommonName: "csr.example.com"}}, key)
	require.NoError(t, err)
	csrPEM, err := ca.EncodeCSR(der)
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(Fs, "/request.csr", csrPEM, 0644))

	SansDNS = "csr.example.com"
	response := executeCommand(SignCmd, []string{"/request.csr"})
	require.Contains(t, response, "-----BEGIN CERTIFICATE")

	cert, err := ca.CertificateFromPEM([]byte(response))
	require.NoError(t, err)
	body, err := cert.ToX509()
	require.NoError(t, err)
	assert.Equal(t, "csr.example.com", body.Subject.CommonName)
	assert.Equal(t, []string{"csr.example.com"}, body.DNSNames)
	assert.True(t, key.PublicKey.Equal(body.PublicKey))

	response = executeCommand(SignCmd, []string{"/missing.csr"})
	assert.NotContains(t, response, "-----BEGIN CERTIFICATE")
}

func Test_SignSPKAC(t *testing.T) {

	setupCA(t)

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	spkac, err := request.NewSPKAC(key, "challenge", "SHA256")
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(Fs, "/request.spkac", []byte("SPKAC="+spkac.Base64()), 0644))

	response := executeCommand(SignCmd, []string{"/request.spkac", "--spkac"})
	assert.Contains(t, response, ca.ErrNoSubject.Error())

	Subject = "/O=Example/CN=spkac"
	response = executeCommand(SignCmd, []string{"/request.spkac", "--spkac"})
	require.Contains(t, response, "-----BEGIN CERTIFICATE")

	cert, err := ca.CertificateFromPEM([]byte(response))
	require.NoError(t, err)
	assert.Equal(t, "spkac", cert.DistinguishedName.CommonName)
	assert.Equal(t, "Example", cert.DistinguishedName.Organization)
}
