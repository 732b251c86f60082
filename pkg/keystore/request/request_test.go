package request

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/jeremyhahn/go-certificate-authority/pkg/keystore"
	"github.com/jeremyhahn/go-certificate-authority/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSubject struct {
	name pkix.Name
}

func (s testSubject) ToDER() ([]byte, error) {
	return asn1.Marshal(s.name.ToRDNSequence())
}

func createRoot(t *testing.T) (*x509.Certificate, *ecdsa.PrivateKey) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Root"},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, key.Public(), key)
	require.NoError(t, err)
	root, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return root, key
}

func createCSR(t *testing.T, cn string) *x509.CertificateRequest {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.CreateCertificateRequest(rand.Reader,
		&x509.CertificateRequest{Subject: pkix.Name{CommonName: cn}}, key)
	require.NoError(t, err)
	csr, err := x509.ParseCertificateRequest(der)
	require.NoError(t, err)
	return csr
}

func TestFromCSR(t *testing.T) {

	csr := createCSR(t, "leaf.example.com")

	km, err := FromCSR(csr)
	require.NoError(t, err)
	assert.True(t, validation.Valid(km))
	assert.True(t, km.IsInMemory())
	assert.False(t, km.IsInHardware())
	assert.Equal(t, csr, km.CSR())

	pub, err := km.PublicKey()
	require.NoError(t, err)
	assert.Equal(t, csr.PublicKey, pub)

	_, err = km.PrivateKey()
	assert.True(t, errors.Is(err, keystore.ErrKeyAccess))

	csr.Signature[len(csr.Signature)-1] ^= 0xff
	_, err = FromCSR(csr)
	assert.True(t, errors.Is(err, keystore.ErrIntegrity))

	_, err = FromCSR(nil)
	assert.True(t, errors.Is(err, keystore.ErrPrecondition))
}

func TestSPKAC(t *testing.T) {

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	spkac, err := NewSPKAC(key, "challenge", "SHA256")
	require.NoError(t, err)
	assert.Equal(t, "challenge", spkac.Challenge)
	assert.Equal(t, x509.ECDSAWithSHA256, spkac.SignatureAlgorithm)
	assert.NoError(t, spkac.CheckSignature())

	parsed, err := ParseSPKACBase64("SPKAC=" + spkac.Base64())
	require.NoError(t, err)
	assert.True(t, key.PublicKey.Equal(parsed.PublicKey))

	km, err := FromSPKAC(parsed)
	require.NoError(t, err)
	assert.Equal(t, parsed, km.SPKAC())

	parsed.signature[len(parsed.signature)-1] ^= 0xff
	_, err = FromSPKAC(parsed)
	assert.True(t, errors.Is(err, keystore.ErrIntegrity))

	_, err = ParseSPKACBase64("not base64!")
	assert.True(t, errors.Is(err, ErrInvalidSPKAC))
}

func TestSignAndCertifyCSR(t *testing.T) {

	root, rootKey := createRoot(t)
	csr := createCSR(t, "leaf.example.com")

	km, err := FromCSR(csr)
	require.NoError(t, err)

	cert, err := km.SignAndCertify(root, rootKey, big.NewInt(42), SignOptions{})
	require.NoError(t, err)
	assert.Equal(t, "leaf.example.com", cert.Subject.CommonName)
	assert.Equal(t, root.Subject.String(), cert.Issuer.String())
	assert.Equal(t, int64(42), cert.SerialNumber.Int64())
	assert.True(t, DefaultNotAfter.Equal(cert.NotAfter))
	assert.Equal(t, x509.ECDSAWithSHA256, cert.SignatureAlgorithm)
	assert.NoError(t, cert.CheckSignatureFrom(root))

	notAfter := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	cert, err = km.SignAndCertify(root, rootKey, big.NewInt(43), SignOptions{
		Subject:  testSubject{pkix.Name{CommonName: "override"}},
		Digest:   "SHA384",
		NotAfter: notAfter,
	})
	require.NoError(t, err)
	assert.Equal(t, "override", cert.Subject.CommonName)
	assert.Equal(t, x509.ECDSAWithSHA384, cert.SignatureAlgorithm)
	assert.True(t, notAfter.Equal(cert.NotAfter))

	_, err = km.SignAndCertify(nil, rootKey, big.NewInt(44), SignOptions{})
	assert.True(t, errors.Is(err, keystore.ErrPrecondition))
}

func TestSignAndCertifySPKAC(t *testing.T) {

	root, rootKey := createRoot(t)
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	spkac, err := NewSPKAC(key, "", "")
	require.NoError(t, err)

	km, err := FromSPKAC(spkac)
	require.NoError(t, err)

	_, err = km.SignAndCertify(root, rootKey, big.NewInt(1), SignOptions{})
	assert.True(t, errors.Is(err, keystore.ErrPrecondition))

	cert, err := km.SignAndCertify(root, rootKey, big.NewInt(1), SignOptions{
		Subject: testSubject{pkix.Name{CommonName: "spkac"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "spkac", cert.Subject.CommonName)
	assert.True(t, key.PublicKey.Equal(cert.PublicKey))
}

func TestFromPublicKeyPEM(t *testing.T) {

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	data, err := keystore.EncodePublicKeyPEM(key.Public())
	require.NoError(t, err)

	km, err := FromPublicKeyPEM(data)
	require.NoError(t, err)
	pub, err := km.PublicKey()
	require.NoError(t, err)
	assert.True(t, key.PublicKey.Equal(pub))
	assert.False(t, keystore.HasPrivateKey(km))
}
