package request

import (
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"fmt"
	"math/big"
	"time"

	"github.com/jeremyhahn/go-certificate-authority/pkg/keystore"
	"github.com/jeremyhahn/go-certificate-authority/pkg/validation"
)

var (
	// Far future "not after" used when SignOptions leaves it unset
	DefaultNotAfter = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)
)

// Subject is a distinguished name that can encode itself as a DER name.
type Subject interface {
	ToDER() ([]byte, error)
}

type SignOptions struct {
	// Overrides the subject of the request. Required for SPKAC requests.
	Subject  Subject
	Digest   string
	NotAfter time.Time
}

// KeyMaterial holds only the public key of an incoming certificate signing
// request or SPKAC, verified against the request's own signature. It has
// no private key.
type KeyMaterial struct {
	public crypto.PublicKey
	csr    *x509.CertificateRequest
	spkac  *SPKAC
}

// FromCSR verifies the request signature and extracts its public key.
func FromCSR(csr *x509.CertificateRequest) (*KeyMaterial, error) {
	if csr == nil {
		return nil, fmt.Errorf("%w: certificate request required", keystore.ErrPrecondition)
	}
	if err := csr.CheckSignature(); err != nil {
		return nil, fmt.Errorf("%w: %s", keystore.ErrIntegrity, err)
	}
	return &KeyMaterial{public: csr.PublicKey, csr: csr}, nil
}

// FromSPKAC verifies the SPKAC signature and extracts its public key.
func FromSPKAC(spkac *SPKAC) (*KeyMaterial, error) {
	if spkac == nil {
		return nil, fmt.Errorf("%w: SPKAC required", keystore.ErrPrecondition)
	}
	if err := spkac.CheckSignature(); err != nil {
		return nil, err
	}
	return &KeyMaterial{public: spkac.PublicKey, spkac: spkac}, nil
}

// FromPublicKey wraps a bare public key, such as one read from an
// already issued certificate.
func FromPublicKey(pub crypto.PublicKey) (*KeyMaterial, error) {
	if pub == nil {
		return nil, fmt.Errorf("%w: public key required", keystore.ErrPrecondition)
	}
	return &KeyMaterial{public: pub}, nil
}

// FromPublicKeyPEM imports a PEM public key that has no request around it.
func FromPublicKeyPEM(data []byte) (*KeyMaterial, error) {
	pub, err := keystore.DecodePublicKeyPEM(data)
	if err != nil {
		return nil, err
	}
	return FromPublicKey(pub)
}

func (km *KeyMaterial) PublicKey() (crypto.PublicKey, error) {
	if km.public == nil {
		return nil, fmt.Errorf("%w: public key not set", keystore.ErrKeyAccess)
	}
	return km.public, nil
}

func (km *KeyMaterial) PrivateKey() (crypto.Signer, error) {
	return nil, fmt.Errorf("%w: signing request keys have no private key", keystore.ErrKeyAccess)
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
}

func (km *KeyMaterial) CSR() *x509.CertificateRequest {
	return km.csr
}

func (km *KeyMaterial) SPKAC() *SPKAC {
	return km.spkac
}

// SignAndCertify issues a certificate for the request's public key, signed
// by root with the given private key.
func (km *KeyMaterial) SignAndCertify(
	root *x509.Certificate,
	signer crypto.Signer,
	serialNumber *big.Int,
	opts SignOptions) (*x509.Certificate, error) {

	if root == nil || signer == nil {
		return nil, fmt.Errorf("%w: root certificate and private key required", keystore.ErrPrecondition)
	}
	if serialNumber == nil || serialNumber.Sign() <= 0 {
		return nil, fmt.Errorf("%w: positive serial number required", keystore.ErrPrecondition)
	}

	var subject []byte
	switch {
	case opts.Subject != nil:
		der, err := opts.Subject.ToDER()
		if err != nil {
			return nil, err
		}
		subject = der
	case km.csr != nil:
		subject = km.csr.RawSubject
	default:
		return nil, fmt.Errorf("%w: SPKAC requests require a subject", keystore.ErrPrecondition)
	}

	algo, err := keystore.SignatureAlgorithm(signer.Public(), opts.Digest)
	if err != nil {
		return nil, err
	}

	notAfter := opts.NotAfter
	if notAfter.IsZero() {
		notAfter = DefaultNotAfter
	}

	template := &x509.Certificate{
		SerialNumber:       serialNumber,
		RawSubject:         subject,
		NotBefore:          time.Now(),
		NotAfter:           notAfter,
		SignatureAlgorithm: algo,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, root, km.public, signer)
	if err != nil {
		return nil, err
	}
	return x509.ParseCertificate(der)
}
