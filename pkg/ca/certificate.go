package ca

import (
	"bytes"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"time"

	"github.com/jeremyhahn/go-certificate-authority/pkg/extensions"
	"github.com/jeremyhahn/go-certificate-authority/pkg/keystore"
	"github.com/jeremyhahn/go-certificate-authority/pkg/keystore/memory"
	"github.com/jeremyhahn/go-certificate-authority/pkg/keystore/request"
	"github.com/jeremyhahn/go-certificate-authority/pkg/logging"
	"github.com/jeremyhahn/go-certificate-authority/pkg/validation"
)

const (
	DefaultValidity = 365 * 24 * time.Hour
)

// Certificate is an X.509 certificate under construction or already
// signed. Parent is the issuing certificate; nil or the certificate itself
// means self-signed.
type Certificate struct {
	DistinguishedName *DistinguishedName
	SerialNumber      *SerialNumber
	KeyMaterial       keystore.KeyMaterial
	NotBefore         time.Time
	NotAfter          time.Time
	Extensions        extensions.Set
	Parent            *Certificate
	RevokedAt         time.Time
	Logger            *logging.Logger

	body *x509.Certificate
}

// NewCertificate returns an unsigned certificate with a random serial
// number, an empty in-memory key, a one year validity period starting now
// and the default extensions.
func NewCertificate() (*Certificate, error) {
	serialNumber, err := NewSerialNumber()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Certificate{
		DistinguishedName: &DistinguishedName{},
		SerialNumber:      serialNumber,
		KeyMaterial:       memory.NewKeyMaterial(),
		NotBefore:         now,
		NotAfter:          now.Add(DefaultValidity),
		Extensions:        extensions.Defaults(),
	}, nil
}

func (c *Certificate) logger() *logging.Logger {
	if c.Logger == nil {
		return logging.DiscardLogger()
	}
	return c.Logger
}

func (c *Certificate) Validate(errs *validation.Errors) {
	if c.DistinguishedName == nil {
		errs.Add("distinguished_name", "is required")
	} else {
		validation.Nested(errs, "distinguished_name", c.DistinguishedName)
	}
	if c.SerialNumber == nil {
		errs.Add("serial_number", "is required")
	} else {
		validation.Nested(errs, "serial_number", c.SerialNumber)
	}
	if c.KeyMaterial == nil {
		errs.Add("key_material", "is required")
	} else {
		validation.Nested(errs, "key_material", c.KeyMaterial)
	}
	if c.NotBefore.IsZero() {
		errs.Add("not_before", "is required")
	}
	if c.NotAfter.IsZero() {
		errs.Add("not_after", "is required")
	} else if !c.NotAfter.After(c.NotBefore) {
		errs.Add("not_after", "must be after not_before")
	}
	validation.Nested(errs, "extensions", c.Extensions)
}

// Sign validates the certificate, merges the profile overrides into a copy
// of its extensions and signs it with the parent's private key. On error
// the previously signed body, if any, is kept.
func (c *Certificate) Sign(profile *SigningProfile) error {

	if err := validation.Check(c); err != nil {
		return err
	}

	exts := c.Extensions.Clone()
	if err := profile.overrides().Apply(exts); err != nil {
		return err
	}
	if err := validation.Check(exts); err != nil {
		return err
	}
	if san := exts.SubjectAlternativeName(); san != nil {
		for i, email := range san.Emails {
			if !extensions.IsCopyEmail(email) {
				continue
			}
			if c.DistinguishedName.EmailAddress == "" {
				return ErrNoSubjectEmail
			}
			san.Emails[i] = c.DistinguishedName.EmailAddress
		}
	}

	parent := c.parent()
	signer, err := keystore.Signer(parent.KeyMaterial)
	if err != nil {
		return err
	}
	publicKey, err := c.KeyMaterial.PublicKey()
	if err != nil {
		return err
	}
	subject, err := c.DistinguishedName.ToDER()
	if err != nil {
		return err
	}

	ctx := &extensions.Context{
		SubjectPublicKey: publicKey,
		SubjectEmail:     c.DistinguishedName.EmailAddress,
		SubjectName:      subject,
		SerialNumber:     c.SerialNumber.Number,
	}

	// An unsigned parent falls back to a self-issued name
	issuer := &x509.Certificate{RawSubject: subject, PublicKey: signer.Public()}
	if parent != c && parent.body != nil {
		ctx.Issuer = parent.body
		issuerCopy := *parent.body
		// Keeps x509 from adding its own authority key identifier
		issuerCopy.SubjectKeyId = nil
		issuer = &issuerCopy
	}

	extraExtensions := make([]pkix.Extension, 0, len(exts))
	for _, ext := range exts.Sorted() {
		if ext.String() == "" {
			continue
		}
		created, err := extensions.CreateFrom(ext, ctx)
		if err != nil {
			return err
		}
		extraExtensions = append(extraExtensions, created)
	}

	signatureAlgorithm, err := keystore.SignatureAlgorithm(signer.Public(), profile.digest())
	if err != nil {
		return err
	}

	template := &x509.Certificate{
		SerialNumber:       c.SerialNumber.Number,
		RawSubject:         subject,
		NotBefore:          c.NotBefore,
		NotAfter:           c.NotAfter,
		SignatureAlgorithm: signatureAlgorithm,
		ExtraExtensions:    extraExtensions,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, issuer, publicKey, signer)
	if err != nil {
		c.logger().Error(err)
		return err
	}
	body, err := x509.ParseCertificate(der)
	if err != nil {
		c.logger().Error(err)
		return err
	}
	c.body = body

	operation := logging.OperationSign
	if parent == c {
		operation = logging.OperationSelfSign
	}
	c.logger().Audit(logging.AuditEntry{
		Operation: operation,
		Serial:    body.SerialNumber,
		Subject:   c.DistinguishedName.String(),
		Issuer:    parent.DistinguishedName.String(),
	})
	return nil
}

func (c *Certificate) parent() *Certificate {
	if c.Parent == nil {
		return c
	}
	return c.Parent
}

func (c *Certificate) isSelfSigned() bool {
	if c.Parent != nil {
		return c.Parent == c
	}
	if c.body != nil {
		return bytes.Equal(c.body.RawIssuer, c.body.RawSubject)
	}
	return true
}

func (c *Certificate) IsSigned() bool {
	return c.body != nil
}

// IsSigningEntity reports whether the certificate may sign other
// certificates.
func (c *Certificate) IsSigningEntity() bool {
	bc := c.Extensions.BasicConstraints()
	return bc != nil && bc.IsCA()
}

func (c *Certificate) IsRootEntity() bool {
	return c.isSelfSigned() && c.IsSigningEntity()
}

func (c *Certificate) IsIntermediateEntity() bool {
	return !c.isSelfSigned() && c.IsSigningEntity()
}

func (c *Certificate) IsTerminalEntity() bool {
	return !c.IsRootEntity() && !c.IsIntermediateEntity()
}

func (c *Certificate) IsRevoked() bool {
	return !c.RevokedAt.IsZero()
}

// Revoke marks the certificate and its serial number revoked.
func (c *Certificate) Revoke(at time.Time) {
	c.RevokedAt = at
	if c.SerialNumber != nil {
		c.SerialNumber.Revoke(at)
	}
	subject := ""
	if c.DistinguishedName != nil {
		subject = c.DistinguishedName.String()
	}
	c.logger().Audit(logging.AuditEntry{
		Operation: logging.OperationRevoke,
		Serial:    c.serial(),
		Subject:   subject,
		Details:   "revoked at " + at.UTC().Format(time.RFC3339),
	})
}

func (c *Certificate) serial() *big.Int {
	if c.body != nil {
		return c.body.SerialNumber
	}
	if c.SerialNumber != nil {
		return c.SerialNumber.Number
	}
	return nil
}

// RevocationEntry returns the revocation list entry for a signed, revoked
// certificate.
func (c *Certificate) RevocationEntry() (x509.RevocationListEntry, error) {
	if !c.IsRevoked() {
		return x509.RevocationListEntry{}, ErrNotRevoked
	}
	if c.body == nil {
		return x509.RevocationListEntry{}, ErrNotSigned
	}
	return x509.RevocationListEntry{
		SerialNumber:   new(big.Int).Set(c.body.SerialNumber),
		RevocationTime: c.RevokedAt,
	}, nil
}

// ToX509 returns the signed certificate.
func (c *Certificate) ToX509() (*x509.Certificate, error) {
	if c.body == nil {
		return nil, ErrNotSigned
	}
	return c.body, nil
}

func (c *Certificate) ToDER() ([]byte, error) {
	if c.body == nil {
		return nil, ErrNotSigned
	}
	return append([]byte(nil), c.body.Raw...), nil
}

func (c *Certificate) ToPEM() ([]byte, error) {
	der, err := c.ToDER()
	if err != nil {
		return nil, err
	}
	return EncodePEM(der)
}

// ToCSR returns a signing request for the same subject, key and
// extensions. The key identifier extensions are left out; the issuer
// assigns them.
func (c *Certificate) ToCSR() *SigningRequest {
	attributes := c.Extensions.Clone()
	delete(attributes, extensions.IDSubjectKeyIdentifier)
	delete(attributes, extensions.IDAuthorityKeyIdentifier)
	var dn *DistinguishedName
	if c.DistinguishedName != nil {
		dn = c.DistinguishedName.Clone()
	}
	return &SigningRequest{
		DistinguishedName: dn,
		KeyMaterial:       c.KeyMaterial,
		Attributes:        attributes,
		Logger:            c.Logger,
	}
}

// CertificateFromWire rebuilds a certificate from a signed
// *x509.Certificate or its DER encoding. The key material holds only the
// public key. Any other value fails with ErrType.
func CertificateFromWire(cert any) (*Certificate, error) {
	var body *x509.Certificate
	switch v := cert.(type) {
	case *x509.Certificate:
		if v == nil {
			return nil, fmt.Errorf("%w: nil certificate", ErrType)
		}
		body = v
	case x509.Certificate:
		body = &v
	case []byte:
		parsed, err := x509.ParseCertificate(v)
		if err != nil {
			return nil, err
		}
		body = parsed
	default:
		return nil, fmt.Errorf("%w: %T is not a wire certificate", ErrType, cert)
	}

	dn, err := NameFromRawDER(body.RawSubject)
	if err != nil {
		return nil, err
	}
	km, err := request.FromPublicKey(body.PublicKey)
	if err != nil {
		return nil, err
	}

	set := extensions.Defaults()
	for _, ext := range body.Extensions {
		if _, known := extensions.IDForOID(ext.Id); !known {
			continue
		}
		parsed, err := extensions.FromPKIX(ext)
		if err != nil {
			return nil, err
		}
		set.Put(parsed)
	}

	return &Certificate{
		DistinguishedName: dn,
		SerialNumber:      SerialNumberOf(body.SerialNumber),
		KeyMaterial:       km,
		NotBefore:         body.NotBefore,
		NotAfter:          body.NotAfter,
		Extensions:        set,
		body:              body,
	}, nil
}

func CertificateFromDER(der []byte) (*Certificate, error) {
	return CertificateFromWire(der)
}

func CertificateFromPEM(data []byte) (*Certificate, error) {
	body, err := DecodePEM(data)
	if err != nil {
		return nil, err
	}
	return CertificateFromWire(body)
}
