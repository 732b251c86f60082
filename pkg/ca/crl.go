package ca

import (
	"crypto/rand"
	"crypto/x509"
	"fmt"
	"math/big"
	"time"

	"github.com/jeremyhahn/go-certificate-authority/pkg/keystore"
	"github.com/jeremyhahn/go-certificate-authority/pkg/logging"
	"github.com/jeremyhahn/go-certificate-authority/pkg/validation"
)

const (
	DefaultCRLNextUpdate = 4 * time.Hour
)

// CertificateRevocationList collects revoked certificates and serial
// numbers and signs them with the parent's key.
type CertificateRevocationList struct {
	Entries    []Revocable
	Parent     *Certificate
	NextUpdate time.Duration
	Logger     *logging.Logger

	number *big.Int
	body   *x509.RevocationList
}

func NewCRL(parent *Certificate) *CertificateRevocationList {
	return &CertificateRevocationList{
		Parent:     parent,
		NextUpdate: DefaultCRLNextUpdate,
		number:     big.NewInt(0),
	}
}

// Append adds a revoked certificate or serial number.
func (crl *CertificateRevocationList) Append(entry Revocable) error {
	if entry == nil || !entry.IsRevoked() {
		return ErrNotRevoked
	}
	crl.Entries = append(crl.Entries, entry)
	return nil
}

func (crl *CertificateRevocationList) Validate(errs *validation.Errors) {
	if crl.NextUpdate < 0 {
		errs.Add("next_update", "must be greater than or equal to zero")
	}
}

// Number returns the CRL number used by the most recent Sign.
func (crl *CertificateRevocationList) Number() *big.Int {
	if crl.number == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(crl.number)
}

// SetNumber restores the CRL number of a previously issued list so the
// next Sign continues the sequence.
func (crl *CertificateRevocationList) SetNumber(number *big.Int) {
	if number == nil {
		crl.number = big.NewInt(0)
		return
	}
	crl.number = new(big.Int).Set(number)
}

// Sign issues a new revocation list with thisUpdate set to now. Every call
// increments the CRL number.
func (crl *CertificateRevocationList) Sign(profile *SigningProfile) error {
	if crl.Parent == nil {
		return ErrNoParent
	}
	if err := validation.Check(crl); err != nil {
		return err
	}
	issuer, err := crl.Parent.ToX509()
	if err != nil {
		return err
	}
	signer, err := keystore.Signer(crl.Parent.KeyMaterial)
	if err != nil {
		return err
	}
	algorithm, err := keystore.SignatureAlgorithm(signer.Public(), profile.digest())
	if err != nil {
		return err
	}

	entries := make([]x509.RevocationListEntry, 0, len(crl.Entries))
	for _, revocable := range crl.Entries {
		entry, err := revocable.RevocationEntry()
		if err != nil {
			return err
		}
		entries = append(entries, entry)
	}

	number := new(big.Int).Add(crl.Number(), big.NewInt(1))
	now := time.Now()
	der, err := x509.CreateRevocationList(rand.Reader, &x509.RevocationList{
		SignatureAlgorithm:        algorithm,
		RevokedCertificateEntries: entries,
		Number:                    number,
		ThisUpdate:                now,
		NextUpdate:                now.Add(crl.NextUpdate),
	}, issuer, signer)
	if err != nil {
		crl.logger().Error(err)
		return err
	}
	body, err := x509.ParseRevocationList(der)
	if err != nil {
		return err
	}
	crl.body = body
	crl.number = number

	crl.logger().Audit(logging.AuditEntry{
		Operation: logging.OperationSignCRL,
		Serial:    number,
		Issuer:    crl.Parent.DistinguishedName.String(),
		Details:   fmt.Sprintf("%d revoked entries", len(entries)),
	})
	return nil
}

func (crl *CertificateRevocationList) logger() *logging.Logger {
	if crl.Logger == nil {
		return logging.DiscardLogger()
	}
	return crl.Logger
}

// ToX509 returns the most recently signed list.
func (crl *CertificateRevocationList) ToX509() (*x509.RevocationList, error) {
	if crl.body == nil {
		return nil, ErrNotSigned
	}
	return crl.body, nil
}

func (crl *CertificateRevocationList) ToDER() ([]byte, error) {
	if crl.body == nil {
		return nil, ErrNotSigned
	}
	return append([]byte(nil), crl.body.Raw...), nil
}

func (crl *CertificateRevocationList) ToPEM() ([]byte, error) {
	der, err := crl.ToDER()
	if err != nil {
		return nil, err
	}
	return encodeBlock("X509 CRL", der)
}
