package extensions

import (
	"bytes"
	"crypto"
	"crypto/sha1"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Context supplies what the factory needs to resolve values that depend on
// the certificate being built, such as "hash", "keyid", "issuer" and
// "email:copy".
type Context struct {
	SubjectPublicKey crypto.PublicKey
	SubjectEmail     string

	// The issuing certificate. Nil when the certificate is self-signed.
	Issuer *x509.Certificate

	// The DER subject and serial number of the certificate being created.
	// A self-signed certificate is its own authority.
	SubjectName  []byte
	SerialNumber *big.Int

	built []pkix.Extension
}

// Built returns the DER value of an extension already created with this
// context.
func (ctx *Context) Built(id string) ([]byte, bool) {
	oid, err := OID(id)
	if err != nil {
		return nil, false
	}
	for _, ext := range ctx.built {
		if ext.Id.Equal(oid) {
			return ext.Value, true
		}
	}
	return nil, false
}

func (ctx *Context) selfSigned() bool {
	return ctx.Issuer == nil
}

// Create builds a DER extension from an identifier, a value in the extension
// grammar, the critical flag and any configuration sections the value
// references.
func Create(id, value string, critical bool, sections Sections, ctx *Context) (pkix.Extension, error) {
	oid, err := OID(id)
	if err != nil {
		return pkix.Extension{}, err
	}
	ext, err := Parse(id, value, critical, sections)
	if err != nil {
		return pkix.Extension{}, err
	}
	if ctx == nil {
		ctx = &Context{}
	}
	der, err := ext.marshal(ctx)
	if err != nil {
		return pkix.Extension{}, fmt.Errorf("%s: %w", id, err)
	}
	created := pkix.Extension{Id: oid, Critical: critical, Value: der}
	ctx.built = append(ctx.built, created)
	return created, nil
}

// CreateFrom serializes a typed extension and passes it through Create.
func CreateFrom(ext Extension, ctx *Context) (pkix.Extension, error) {
	var sections Sections
	if sectioned, ok := ext.(Sectioned); ok {
		sections = sectioned.ConfigSections()
	}
	return Create(ext.ID(), ext.String(), ext.IsCritical(), sections, ctx)
}

// Describe reports the value of a DER extension in the extension grammar,
// along with any configuration sections it references. Content the typed
// form can not represent exactly is reported as "DER:<hex>".
func Describe(ext pkix.Extension) (string, string, Sections, error) {
	id, ok := IDForOID(ext.Id)
	if !ok {
		return "", "", nil, fmt.Errorf("%w: %s", ErrUnknownExtension, ext.Id)
	}
	var (
		value    string
		sections Sections
		err      error
	)
	switch id {
	case IDBasicConstraints:
		value, err = describeBasicConstraints(ext.Value)
	case IDCRLDistributionPoints:
		value, err = describeCRLDistributionPoints(ext.Value)
	case IDSubjectKeyIdentifier:
		value, err = describeSubjectKeyIdentifier(ext.Value)
	case IDAuthorityKeyIdentifier:
		value, err = describeAuthorityKeyIdentifier(ext.Value)
	case IDAuthorityInfoAccess:
		value, err = describeAuthorityInfoAccess(ext.Value)
	case IDKeyUsage:
		value, err = describeKeyUsage(ext.Value)
	case IDExtendedKeyUsage:
		value, err = describeExtendedKeyUsage(ext.Value)
	case IDSubjectAltName:
		value, err = describeSubjectAlternativeName(ext.Value)
	case IDCertificatePolicies:
		value, sections, err = describeCertificatePolicies(ext.Value)
	}
	if errors.Is(err, ErrUnsupported) {
		return id, "DER:" + colonHex(ext.Value), nil, nil
	}
	if err != nil {
		return "", "", nil, fmt.Errorf("%s: %w", id, err)
	}
	return id, value, sections, nil
}

// FromPKIX converts a DER extension into its typed form.
func FromPKIX(ext pkix.Extension) (Extension, error) {
	id, value, sections, err := Describe(ext)
	if err != nil {
		return nil, err
	}
	return Parse(id, value, ext.Critical, sections)
}

// Computes the key identifier of a public key: the SHA-1 hash of the
// subjectPublicKey bit string, method (1) of RFC 5280 4.2.1.2.
func KeyIdentifier(pub crypto.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, err
	}
	var spki struct {
		Algorithm pkix.AlgorithmIdentifier
		PublicKey asn1.BitString
	}
	if _, err := asn1.Unmarshal(der, &spki); err != nil {
		return nil, err
	}
	sum := sha1.Sum(spki.PublicKey.Bytes)
	return sum[:], nil
}

func colonHex(b []byte) string {
	encoded := strings.ToUpper(hex.EncodeToString(b))
	pairs := make([]string, 0, len(b))
	for i := 0; i < len(encoded); i += 2 {
		pairs = append(pairs, encoded[i:i+2])
	}
	return strings.Join(pairs, ":")
}

func parseHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(strings.ReplaceAll(s, ":", ""))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidValue, err)
	}
	return b, nil
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	_, err := parseHex(s)
	return err == nil
}

func marshalOctetString(b []byte) ([]byte, error) {
	return asn1.Marshal(b)
}

func unmarshalStrict(der []byte, v any, params string) error {
	rest, err := asn1.UnmarshalWithParams(der, v, params)
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		return fmt.Errorf("%w: trailing data", ErrInvalidValue)
	}
	return nil
}

// Returns ErrUnsupported unless ext encodes back to der exactly.
func checkReencode(ext Extension, der []byte) error {
	encoded, err := ext.marshal(&Context{})
	if err != nil || !bytes.Equal(encoded, der) {
		return fmt.Errorf("%w: %s does not re-encode unchanged", ErrUnsupported, ext.ID())
	}
	return nil
}
