package app

import (
	"crypto"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jeremyhahn/go-certificate-authority/pkg/ca"
	"github.com/jeremyhahn/go-certificate-authority/pkg/config"
	"github.com/jeremyhahn/go-certificate-authority/pkg/extensions"
	"github.com/jeremyhahn/go-certificate-authority/pkg/keystore"
	"github.com/jeremyhahn/go-certificate-authority/pkg/keystore/memory"
	"github.com/jeremyhahn/go-certificate-authority/pkg/keystore/pkcs11"
	"github.com/jeremyhahn/go-certificate-authority/pkg/logging"
	"github.com/jeremyhahn/go-certificate-authority/pkg/serializer"
	"github.com/jeremyhahn/go-certificate-authority/pkg/store/certstore"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

const (
	Name = "certificate-authority"
)

// Set at build time with -ldflags "-X ..."
var (
	Version    = "0.1.0"
	Repository = "github.com/jeremyhahn/go-certificate-authority"
	GitTag     = ""
	GitHash    = ""
	BuildDate  = ""

	ErrKeyMismatch = errors.New("certificate-authority: private key does not match the CA certificate")
)

type App struct {
	Config    *config.Config
	CertStore *certstore.CertStore
	Fs        afero.Fs
	Logger    *logging.Logger
	Viper     *viper.Viper

	keyPassword []byte
	pin         string
	ca          *ca.Certificate
}

type AppInitParams struct {
	ConfigFile  string
	Debug       bool
	Home        string
	KeyPassword string
	Pin         string
}

func NewApp(fs afero.Fs) *App {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &App{Fs: fs, Viper: viper.New()}
}

// Init loads the configuration file, initializes the logger and opens the
// certificate store. Command line parameters override the config file.
func (app *App) Init(params *AppInitParams) (*App, error) {
	if params == nil {
		params = &AppInitParams{}
	}
	app.Viper.SetFs(app.Fs)
	cfg, err := config.LoadViper(app.Viper, params.ConfigFile)
	if err != nil {
		return nil, err
	}
	if params.Home != "" {
		cfg.Home = params.Home
	}
	if params.Debug {
		cfg.LogLevel = "debug"
	}
	app.Config = cfg
	app.keyPassword = []byte(params.KeyPassword)
	app.pin = params.Pin

	if err := app.initLogger(); err != nil {
		return nil, err
	}

	store, err := certstore.NewCertStore(app.Logger, app.Fs, cfg.Home, serializer.SERIALIZER_YAML)
	if err != nil {
		return nil, err
	}
	app.CertStore = store
	return app, nil
}

func (app *App) initLogger() error {
	level := logging.ParseLevel(app.Config.LogLevel)
	if app.Config.LogFile == "" {
		if level <= slog.LevelDebug {
			app.Logger = logging.NewLogger(level, nil)
		} else {
			app.Logger = logging.DiscardLogger()
		}
		return nil
	}
	f, err := app.Fs.OpenFile(app.Config.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	app.Logger = logging.NewLogger(level, f)
	return nil
}

// keyMaterial returns the CA key pair: the configured PKCS #11 token or a
// new in-memory RSA key.
func (app *App) keyMaterial() (keystore.KeyMaterial, []byte, error) {
	if app.Config.HasPKCS11() {
		tokenConfig := *app.Config.PKCS11
		if app.pin != "" {
			tokenConfig.Pin = app.pin
		}
		return pkcs11.NewKeyMaterial(app.Logger, tokenConfig), nil, nil
	}
	km, err := memory.Generate(app.Config.KeySize)
	if err != nil {
		return nil, nil, err
	}
	keyPEM, err := km.PrivateKeyPEM(app.keyPassword)
	if err != nil {
		return nil, nil, err
	}
	return km, keyPEM, nil
}

// InitCA creates and stores a self-signed certificate authority.
func (app *App) InitCA(subject *ca.DistinguishedName, profileName string) (*ca.Certificate, error) {
	if app.CertStore.HasCA() {
		return nil, certstore.ErrCAExists
	}
	profile, err := app.Config.Profile(profileName, app.Logger)
	if err != nil {
		return nil, err
	}
	km, keyPEM, err := app.keyMaterial()
	if err != nil {
		return nil, err
	}

	root, err := ca.NewCertificate()
	if err != nil {
		return nil, err
	}
	root.DistinguishedName = subject
	root.KeyMaterial = km
	root.Logger = app.Logger
	root.NotAfter = root.NotBefore.Add(app.Config.ValidityPeriod())
	root.Extensions.BasicConstraints().Critical = true
	root.Extensions.BasicConstraints().CA = true
	root.Extensions.KeyUsage().Critical = true
	root.Extensions.KeyUsage().Usage = []string{"keyCertSign", "cRLSign"}

	if err := root.Sign(profile); err != nil {
		return nil, err
	}
	if err := app.CertStore.SaveCA(root, keyPEM); err != nil {
		return nil, err
	}
	app.ca = root
	app.Logger.Info("certificate authority initialized", "subject", subject.String())
	return root, nil
}

// LoadCA reads the certificate authority and its key from the store.
func (app *App) LoadCA() (*ca.Certificate, error) {
	if app.ca != nil {
		return app.ca, nil
	}
	certPEM, err := app.CertStore.CA()
	if err != nil {
		return nil, err
	}
	root, err := ca.CertificateFromPEM(certPEM)
	if err != nil {
		return nil, err
	}

	var km keystore.KeyMaterial
	if app.Config.HasPKCS11() {
		km, _, err = app.keyMaterial()
	} else {
		var keyPEM []byte
		keyPEM, err = app.CertStore.CAKey()
		if err == nil {
			km, err = memory.FromPEM(keyPEM, app.keyPassword)
		}
	}
	if err != nil {
		return nil, err
	}
	if err := matchPublicKey(root, km); err != nil {
		return nil, err
	}
	root.KeyMaterial = km
	root.Logger = app.Logger
	app.ca = root
	return root, nil
}

func matchPublicKey(cert *ca.Certificate, km keystore.KeyMaterial) error {
	body, err := cert.ToX509()
	if err != nil {
		return err
	}
	pub, err := km.PublicKey()
	if err != nil {
		return err
	}
	certPub, ok := body.PublicKey.(interface{ Equal(crypto.PublicKey) bool })
	if !ok || !certPub.Equal(pub) {
		return ErrKeyMismatch
	}
	return nil
}

// Issue generates a key pair and issues a certificate for it. The PEM
// private key is returned alongside the certificate.
func (app *App) Issue(
	subject *ca.DistinguishedName,
	sans *extensions.SubjectAlternativeName,
	profileName string) (*ca.Certificate, []byte, error) {

	km, err := memory.Generate(app.Config.KeySize)
	if err != nil {
		return nil, nil, err
	}
	cert, err := ca.NewCertificate()
	if err != nil {
		return nil, nil, err
	}
	cert.DistinguishedName = subject
	cert.KeyMaterial = km
	if sans != nil && !sans.Empty() {
		cert.Extensions.Put(sans)
	}
	if err := app.sign(cert, profileName); err != nil {
		return nil, nil, err
	}
	keyPEM, err := km.PrivateKeyPEM(nil)
	if err != nil {
		return nil, nil, err
	}
	return cert, keyPEM, nil
}

// SignRequest issues a certificate for a PKCS #10 or SPKAC request.
func (app *App) SignRequest(req *ca.SigningRequest, profileName string) (*ca.Certificate, error) {
	cert, err := req.ToCert()
	if err != nil {
		return nil, err
	}
	serial, err := ca.NewSerialNumber()
	if err != nil {
		return nil, err
	}
	cert.SerialNumber = serial
	if err := app.sign(cert, profileName); err != nil {
		return nil, err
	}
	return cert, nil
}

func (app *App) sign(cert *ca.Certificate, profileName string) error {
	root, err := app.LoadCA()
	if err != nil {
		return err
	}
	profile, err := app.Config.Profile(profileName, app.Logger)
	if err != nil {
		return err
	}
	now := time.Now()
	cert.Parent = root
	cert.Logger = app.Logger
	cert.NotBefore = now
	cert.NotAfter = now.Add(app.Config.ValidityPeriod())
	if err := cert.Sign(profile); err != nil {
		return err
	}
	return app.CertStore.Import(cert)
}

// Revoke marks an issued certificate revoked as of now.
func (app *App) Revoke(serial string) error {
	if _, err := app.CertStore.Revoke(serial, time.Now()); err != nil {
		return err
	}
	app.Logger.Infof("revoked certificate %s", serial)
	return nil
}

// GenerateCRL signs a new revocation list of every revoked certificate,
// saves it and returns it PEM encoded.
func (app *App) GenerateCRL() ([]byte, error) {
	root, err := app.LoadCA()
	if err != nil {
		return nil, err
	}
	crl, err := app.CertStore.NewCRL(root)
	if err != nil {
		return nil, err
	}
	crl.Logger = app.Logger
	crl.NextUpdate = app.Config.CRLNextUpdate
	if err := crl.Sign(&ca.SigningProfile{Digest: app.Config.Digest}); err != nil {
		return nil, err
	}
	if err := app.CertStore.SaveCRL(crl); err != nil {
		return nil, err
	}
	return crl.ToPEM()
}

// OCSPResponse answers a DER encoded OCSP request from the index.
func (app *App) OCSPResponse(request []byte) ([]byte, error) {
	root, err := app.LoadCA()
	if err != nil {
		return nil, err
	}
	verifier, err := app.CertStore.Verifier()
	if err != nil {
		return nil, err
	}
	handler := ca.NewOCSPHandler(request, root, verifier.Verify)
	handler.Logger = app.Logger
	handler.NextUpdate = app.Config.OCSPNextUpdate
	handler.Digest = app.Config.Digest
	return handler.Response()
}

// Close releases the hardware token session, if one is open.
func (app *App) Close() error {
	if app.ca == nil {
		return nil
	}
	if closer, ok := app.ca.KeyMaterial.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

func (app *App) String() string {
	return fmt.Sprintf("%s v%s (%s)", Name, Version, app.Config.Home)
}
