package app

import (
	"errors"
	"testing"

	"github.com/jeremyhahn/go-certificate-authority/pkg/ca"
	"github.com/jeremyhahn/go-certificate-authority/pkg/extensions"
	"github.com/jeremyhahn/go-certificate-authority/pkg/store/certstore"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ocsp"
)

var testConfig = []byte(`
home: /ca
key_size: 1024
log_file: /ca.log
profiles:
  server:
    extensions:
      extendedKeyUsage:
        usage: [serverAuth]
`)

func testApp(t *testing.T, fs afero.Fs, password string) *App {
	app, err := NewApp(fs).Init(&AppInitParams{
		ConfigFile:  "/config.yaml",
		KeyPassword: password,
	})
	require.NoError(t, err)
	return app
}

func initApp(t *testing.T) (*App, afero.Fs) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/config.yaml", testConfig, 0644))
	app := testApp(t, fs, "secret")
	_, err := app.InitCA(&ca.DistinguishedName{CommonName: "Test Root CA"}, "")
	require.NoError(t, err)
	return app, fs
}

func TestInitCA(t *testing.T) {

	app, fs := initApp(t)

	_, err := app.InitCA(&ca.DistinguishedName{CommonName: "again"}, "")
	assert.Equal(t, certstore.ErrCAExists, err)

	// A new process loads the CA from disk
	loaded := testApp(t, fs, "secret")
	root, err := loaded.LoadCA()
	require.NoError(t, err)
	assert.True(t, root.IsRootEntity())
	assert.Equal(t, "Test Root CA", root.DistinguishedName.CommonName)

	// The key is encrypted at rest
	_, err = testApp(t, fs, "wrong").LoadCA()
	assert.Error(t, err)

	logFile, err := afero.ReadFile(fs, "/ca.log")
	require.NoError(t, err)
	assert.Contains(t, string(logFile), "certificate authority initialized")
}

func TestIssueRevokeCRL(t *testing.T) {

	app, _ := initApp(t)

	san := extensions.NewSubjectAlternativeName()
	san.DNSNames = []string{"www.example.com"}

	cert, keyPEM, err := app.Issue(&ca.DistinguishedName{CommonName: "www.example.com"}, san, "server")
	require.NoError(t, err)
	assert.Contains(t, string(keyPEM), "PRIVATE KEY")

	body, err := cert.ToX509()
	require.NoError(t, err)
	assert.Equal(t, []string{"www.example.com"}, body.DNSNames)

	root, err := app.LoadCA()
	require.NoError(t, err)
	rootBody, err := root.ToX509()
	require.NoError(t, err)
	assert.NoError(t, body.CheckSignatureFrom(rootBody))

	serial := cert.SerialNumber.String()
	require.NoError(t, app.Revoke(serial))
	assert.True(t, errors.Is(app.Revoke(serial), certstore.ErrCertRevoked))

	crlPEM, err := app.GenerateCRL()
	require.NoError(t, err)
	crl, err := ca.DecodeCRL(crlPEM)
	require.NoError(t, err)
	require.Len(t, crl.RevokedCertificateEntries, 1)
	assert.NoError(t, crl.CheckSignatureFrom(rootBody))

	request, err := ca.NewOCSPRequest(root, cert)
	require.NoError(t, err)
	der, err := app.OCSPResponse(request)
	require.NoError(t, err)
	response, err := ocsp.ParseResponseForCert(der, body, rootBody)
	require.NoError(t, err)
	assert.Equal(t, ocsp.Revoked, response.Status)
}

func TestSignRequest(t *testing.T) {

	app, _ := initApp(t)

	issued, _, err := app.Issue(&ca.DistinguishedName{CommonName: "client"}, nil, "")
	require.NoError(t, err)

	req := issued.ToCSR()
	csr, err := req.ToX509CSR("SHA256")
	require.NoError(t, err)

	parsed, err := ca.SigningRequestFromCSR(csr)
	require.NoError(t, err)
	cert, err := app.SignRequest(parsed, "")
	require.NoError(t, err)
	assert.Equal(t, "client", cert.DistinguishedName.CommonName)
	assert.NotEqual(t, issued.SerialNumber.String(), cert.SerialNumber.String())
	assert.Len(t, app.CertStore.Entries(), 2)

	_, err = app.SignRequest(parsed, "missing")
	assert.Error(t, err)
}
