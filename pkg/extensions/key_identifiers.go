package extensions

import (
	"encoding/asn1"
	"fmt"
	"math/big"
	"strings"

	"github.com/jeremyhahn/go-certificate-authority/pkg/validation"
)

// SubjectKeyIdentifier identifies the certified public key. The identifier
// "hash" derives it from the subject public key, anything else is taken as
// a colon separated hex key identifier. RFC 5280 4.2.1.2.
type SubjectKeyIdentifier struct {
	Critical   bool
	Identifier string
}

func NewSubjectKeyIdentifier() *SubjectKeyIdentifier {
	return &SubjectKeyIdentifier{Identifier: "hash"}
}

func (ski *SubjectKeyIdentifier) ID() string {
	return IDSubjectKeyIdentifier
}

func (ski *SubjectKeyIdentifier) IsCritical() bool {
	return ski.Critical
}

func (ski *SubjectKeyIdentifier) Validate(errs *validation.Errors) {
	if ski.Identifier == "" {
		errs.Add("identifier", "can't be blank")
		return
	}
	if ski.Identifier != "hash" && !isHex(ski.Identifier) {
		errs.Add("identifier", `must be "hash" or a hex key identifier`)
	}
}

func (ski *SubjectKeyIdentifier) String() string {
	return ski.Identifier
}

func (ski *SubjectKeyIdentifier) Equal(other Extension) bool {
	o, ok := other.(*SubjectKeyIdentifier)
	return ok && ski.Critical == o.Critical && ski.Identifier == o.Identifier
}

func (ski *SubjectKeyIdentifier) Clone() Extension {
	clone := *ski
	return &clone
}

func (ski *SubjectKeyIdentifier) marshal(ctx *Context) ([]byte, error) {
	if ski.Identifier != "hash" {
		keyID, err := parseHex(ski.Identifier)
		if err != nil {
			return nil, err
		}
		return marshalOctetString(keyID)
	}
	if ctx.SubjectPublicKey == nil {
		return nil, fmt.Errorf("%w: subject public key", ErrMissingContext)
	}
	keyID, err := KeyIdentifier(ctx.SubjectPublicKey)
	if err != nil {
		return nil, err
	}
	return marshalOctetString(keyID)
}

func ParseSubjectKeyIdentifier(value string, critical bool) (*SubjectKeyIdentifier, error) {
	value = strings.TrimSpace(value)
	if value != "hash" && !isHex(value) {
		return nil, fmt.Errorf("%w: subjectKeyIdentifier %q", ErrInvalidValue, value)
	}
	return &SubjectKeyIdentifier{Critical: critical, Identifier: value}, nil
}

func describeSubjectKeyIdentifier(der []byte) (string, error) {
	var keyID []byte
	if err := unmarshalStrict(der, &keyID, ""); err != nil {
		return "", err
	}
	return colonHex(keyID), nil
}

// AuthorityKeyIdentifier identifies the key that signed the certificate.
// Identifier holds the tokens "keyid", "issuer" (either optionally suffixed
// with ":always") or the explicit forms "keyid:<hex>", "DirName:<hex DER
// name>" and "serial:<hex>" reported for existing certificates.
// RFC 5280 4.2.1.1.
type AuthorityKeyIdentifier struct {
	Critical   bool
	Identifier []string
}

type authorityKeyIdentifier struct {
	KeyIdentifier             []byte          `asn1:"optional,tag:0"`
	AuthorityCertIssuer       []asn1.RawValue `asn1:"optional,tag:1"`
	AuthorityCertSerialNumber *big.Int        `asn1:"optional,tag:2"`
}

func NewAuthorityKeyIdentifier() *AuthorityKeyIdentifier {
	return &AuthorityKeyIdentifier{Identifier: []string{"keyid", "issuer"}}
}

func (aki *AuthorityKeyIdentifier) ID() string {
	return IDAuthorityKeyIdentifier
}

func (aki *AuthorityKeyIdentifier) IsCritical() bool {
	return aki.Critical
}

func (aki *AuthorityKeyIdentifier) Validate(errs *validation.Errors) {
	for _, token := range aki.Identifier {
		if !validAuthorityToken(token) {
			errs.Addf("identifier", "contains an unknown token %q", token)
		}
	}
}

func (aki *AuthorityKeyIdentifier) String() string {
	return strings.Join(aki.Identifier, ",")
}

func (aki *AuthorityKeyIdentifier) Equal(other Extension) bool {
	o, ok := other.(*AuthorityKeyIdentifier)
	return ok && aki.Critical == o.Critical && equalStrings(aki.Identifier, o.Identifier)
}

func (aki *AuthorityKeyIdentifier) Clone() Extension {
	return &AuthorityKeyIdentifier{Critical: aki.Critical, Identifier: cloneStrings(aki.Identifier)}
}

func (aki *AuthorityKeyIdentifier) marshal(ctx *Context) ([]byte, error) {
	var (
		value        authorityKeyIdentifier
		issuerName   []byte
		wantKeyID    bool
		keyIDAlways  bool
		wantIssuer   bool
		issuerAlways bool
		err          error
	)
	for _, token := range aki.Identifier {
		key, val, _ := strings.Cut(strings.TrimSpace(token), ":")
		switch strings.ToLower(key) {
		case "keyid":
			if val == "" || val == "always" {
				wantKeyID = true
				keyIDAlways = keyIDAlways || val == "always"
				continue
			}
			if value.KeyIdentifier, err = parseHex(val); err != nil {
				return nil, err
			}
		case "issuer":
			wantIssuer = true
			issuerAlways = issuerAlways || val == "always"
		case "dirname":
			if issuerName, err = parseHex(val); err != nil {
				return nil, err
			}
		case "serial":
			serial, err := parseHex(val)
			if err != nil {
				return nil, err
			}
			value.AuthorityCertSerialNumber = new(big.Int).SetBytes(serial)
		default:
			return nil, fmt.Errorf("%w: authorityKeyIdentifier %q", ErrInvalidValue, token)
		}
	}
	if wantKeyID && value.KeyIdentifier == nil {
		value.KeyIdentifier = ctx.authorityKeyID()
		if value.KeyIdentifier == nil && keyIDAlways {
			return nil, fmt.Errorf("%w: issuer key identifier", ErrMissingContext)
		}
	}
	if wantIssuer && issuerName == nil && (issuerAlways || value.KeyIdentifier == nil) {
		issuerName, value.AuthorityCertSerialNumber = ctx.authorityIssuer()
		if issuerName == nil && issuerAlways {
			return nil, fmt.Errorf("%w: issuer name and serial", ErrMissingContext)
		}
	}
	if issuerName != nil {
		value.AuthorityCertIssuer = []asn1.RawValue{{
			Class:      asn1.ClassContextSpecific,
			Tag:        tagDirectoryName,
			IsCompound: true,
			Bytes:      issuerName,
		}}
	}
	if value.KeyIdentifier == nil && value.AuthorityCertIssuer == nil {
		return nil, fmt.Errorf("%w: authority key identifier", ErrMissingContext)
	}
	return asn1.Marshal(value)
}

func (ctx *Context) authorityKeyID() []byte {
	if !ctx.selfSigned() {
		if len(ctx.Issuer.SubjectKeyId) == 0 {
			return nil
		}
		return ctx.Issuer.SubjectKeyId
	}
	der, ok := ctx.Built(IDSubjectKeyIdentifier)
	if !ok {
		return nil
	}
	var keyID []byte
	if err := unmarshalStrict(der, &keyID, ""); err != nil {
		return nil
	}
	return keyID
}

func (ctx *Context) authorityIssuer() ([]byte, *big.Int) {
	if !ctx.selfSigned() {
		return ctx.Issuer.RawIssuer, ctx.Issuer.SerialNumber
	}
	if len(ctx.SubjectName) == 0 || ctx.SerialNumber == nil {
		return nil, nil
	}
	return ctx.SubjectName, ctx.SerialNumber
}

func ParseAuthorityKeyIdentifier(value string, critical bool) (*AuthorityKeyIdentifier, error) {
	aki := &AuthorityKeyIdentifier{Critical: critical, Identifier: []string{}}
	for _, token := range splitList(value) {
		if !validAuthorityToken(token) {
			return nil, fmt.Errorf("%w: authorityKeyIdentifier %q", ErrInvalidValue, token)
		}
		aki.Identifier = append(aki.Identifier, token)
	}
	return aki, nil
}

func describeAuthorityKeyIdentifier(der []byte) (string, error) {
	var value authorityKeyIdentifier
	if err := unmarshalStrict(der, &value, ""); err != nil {
		return "", err
	}
	parts := []string{}
	if len(value.KeyIdentifier) > 0 {
		parts = append(parts, "keyid:"+colonHex(value.KeyIdentifier))
	}
	for _, name := range value.AuthorityCertIssuer {
		if name.Tag != tagDirectoryName {
			return "", ErrUnsupported
		}
		parts = append(parts, "DirName:"+colonHex(name.Bytes))
	}
	if value.AuthorityCertSerialNumber != nil {
		parts = append(parts, "serial:"+colonHex(value.AuthorityCertSerialNumber.Bytes()))
	}
	return strings.Join(parts, ", "), nil
}

func validAuthorityToken(token string) bool {
	key, val, _ := strings.Cut(strings.TrimSpace(token), ":")
	switch strings.ToLower(key) {
	case "keyid":
		return val == "" || val == "always" || isHex(val)
	case "issuer":
		return val == "" || val == "always"
	case "dirname", "serial":
		return isHex(val)
	}
	return false
}
