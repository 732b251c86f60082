package ca

import (
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"

	"github.com/jeremyhahn/go-certificate-authority/pkg/extensions"
	"github.com/jeremyhahn/go-certificate-authority/pkg/keystore"
	"github.com/jeremyhahn/go-certificate-authority/pkg/keystore/request"
	"github.com/jeremyhahn/go-certificate-authority/pkg/logging"
	"github.com/jeremyhahn/go-certificate-authority/pkg/validation"
)

// SigningRequest is a PKCS#10 certificate signing request, or an SPKAC
// request once a subject has been assigned to it. Attributes holds the
// requested extensions.
type SigningRequest struct {
	DistinguishedName *DistinguishedName
	KeyMaterial       keystore.KeyMaterial
	Attributes        extensions.Set
	Logger            *logging.Logger

	// The parsed request, set when it was read from the wire
	Raw *x509.CertificateRequest
}

// SigningRequestFromCSR verifies a parsed request and imports its subject,
// public key and requested extensions. Extensions this package does not
// model are skipped.
func SigningRequestFromCSR(csr *x509.CertificateRequest) (*SigningRequest, error) {
	km, err := request.FromCSR(csr)
	if err != nil {
		return nil, err
	}
	dn, err := NameFromRawDER(csr.RawSubject)
	if err != nil {
		return nil, err
	}
	attributes := extensions.Set{}
	for _, ext := range csr.Extensions {
		if _, known := extensions.IDForOID(ext.Id); !known {
			continue
		}
		parsed, err := extensions.FromPKIX(ext)
		if err != nil {
			return nil, err
		}
		attributes.Put(parsed)
	}
	return &SigningRequest{
		DistinguishedName: dn,
		KeyMaterial:       km,
		Attributes:        attributes,
		Raw:               csr,
	}, nil
}

func SigningRequestFromPEM(data []byte) (*SigningRequest, error) {
	csr, err := DecodeCSR(data)
	if err != nil {
		return nil, err
	}
	return SigningRequestFromCSR(csr)
}

// SigningRequestFromSPKAC imports an SPKAC. SPKACs carry no subject, so
// the caller supplies one.
func SigningRequestFromSPKAC(spkac *request.SPKAC, subject *DistinguishedName) (*SigningRequest, error) {
	if subject == nil {
		return nil, ErrNoSubject
	}
	km, err := request.FromSPKAC(spkac)
	if err != nil {
		return nil, err
	}
	return &SigningRequest{
		DistinguishedName: subject,
		KeyMaterial:       km,
		Attributes:        extensions.Set{},
	}, nil
}

func (r *SigningRequest) Validate(errs *validation.Errors) {
	if r.DistinguishedName == nil {
		errs.Add("distinguished_name", "is required")
	} else {
		validation.Nested(errs, "distinguished_name", r.DistinguishedName)
	}
	if r.KeyMaterial == nil {
		errs.Add("key_material", "is required")
	} else {
		validation.Nested(errs, "key_material", r.KeyMaterial)
	}
	validation.Nested(errs, "attributes", r.Attributes)
}

// SetSubjectAlternativeNames replaces the requested subjectAltName.
func (r *SigningRequest) SetSubjectAlternativeNames(san *extensions.SubjectAlternativeName) {
	if r.Attributes == nil {
		r.Attributes = extensions.Set{}
	}
	if san == nil {
		delete(r.Attributes, extensions.IDSubjectAltName)
		return
	}
	r.Attributes.Put(san)
}

// ToX509CSR signs a PKCS#10 request with the request's own private key.
// Requests imported from the wire have no private key and fail with
// keystore.ErrKeyAccess.
func (r *SigningRequest) ToX509CSR(digest string) (*x509.CertificateRequest, error) {
	if err := validation.Check(r); err != nil {
		return nil, err
	}
	signer, err := keystore.Signer(r.KeyMaterial)
	if err != nil {
		return nil, err
	}
	subject, err := r.DistinguishedName.ToDER()
	if err != nil {
		return nil, err
	}
	algorithm, err := keystore.SignatureAlgorithm(signer.Public(), digest)
	if err != nil {
		return nil, err
	}

	ctx := &extensions.Context{
		SubjectPublicKey: signer.Public(),
		SubjectEmail:     r.DistinguishedName.EmailAddress,
		SubjectName:      subject,
	}
	requested := make([]pkix.Extension, 0, len(r.Attributes))
	for _, ext := range r.Attributes.Sorted() {
		// There is no issuer yet
		if ext.ID() == extensions.IDAuthorityKeyIdentifier || ext.String() == "" {
			continue
		}
		created, err := extensions.CreateFrom(ext, ctx)
		if err != nil {
			return nil, err
		}
		requested = append(requested, created)
	}

	der, err := x509.CreateCertificateRequest(rand.Reader, &x509.CertificateRequest{
		RawSubject:         subject,
		SignatureAlgorithm: algorithm,
		ExtraExtensions:    requested,
	}, signer)
	if err != nil {
		return nil, err
	}
	csr, err := x509.ParseCertificateRequest(der)
	if err != nil {
		return nil, err
	}
	r.Raw = csr
	return csr, nil
}

func (r *SigningRequest) ToPEM(digest string) ([]byte, error) {
	csr, err := r.ToX509CSR(digest)
	if err != nil {
		return nil, err
	}
	return EncodeCSR(csr.Raw)
}

// ToCert returns an unsigned certificate for the request. The requested
// extensions are laid over the defaults. The serial number is left unset:
// the issuer assigns it before signing.
func (r *SigningRequest) ToCert() (*Certificate, error) {
	if r.DistinguishedName == nil {
		return nil, ErrNoSubject
	}
	if r.KeyMaterial == nil {
		return nil, fmt.Errorf("%w: no key material", keystore.ErrKeyAccess)
	}
	cert, err := NewCertificate()
	if err != nil {
		return nil, err
	}
	for _, ext := range r.Attributes {
		cert.Extensions.Put(ext.Clone())
	}
	cert.DistinguishedName = r.DistinguishedName.Clone()
	cert.KeyMaterial = r.KeyMaterial
	cert.SerialNumber = nil
	cert.Logger = r.Logger
	return cert, nil
}
