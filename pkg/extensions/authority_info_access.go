package extensions

import (
	"encoding/asn1"
	"fmt"
	"strings"

	"github.com/jeremyhahn/go-certificate-authority/pkg/validation"
)

var (
	oidAccessMethodOCSP      = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 1}
	oidAccessMethodCAIssuers = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 2}
)

// AuthorityInfoAccess points to OCSP responders and issuer certificates.
// RFC 5280 4.2.2.1.
type AuthorityInfoAccess struct {
	Critical  bool
	OCSP      []string
	CAIssuers []string
}

type accessDescription struct {
	Method   asn1.ObjectIdentifier
	Location asn1.RawValue
}

func NewAuthorityInfoAccess() *AuthorityInfoAccess {
	return &AuthorityInfoAccess{OCSP: []string{}, CAIssuers: []string{}}
}

func (aia *AuthorityInfoAccess) ID() string {
	return IDAuthorityInfoAccess
}

func (aia *AuthorityInfoAccess) IsCritical() bool {
	return aia.Critical
}

func (aia *AuthorityInfoAccess) Validate(errs *validation.Errors) {
	for _, uri := range aia.OCSP {
		if !validURI(uri) {
			errs.Addf("ocsp", "contains an invalid URI %q", uri)
		}
	}
	for _, uri := range aia.CAIssuers {
		if !validURI(uri) {
			errs.Addf("ca_issuers", "contains an invalid URI %q", uri)
		}
	}
}

func (aia *AuthorityInfoAccess) String() string {
	parts := make([]string, 0, len(aia.OCSP)+len(aia.CAIssuers))
	for _, uri := range aia.OCSP {
		parts = append(parts, "OCSP;URI:"+uri)
	}
	for _, uri := range aia.CAIssuers {
		parts = append(parts, "caIssuers;URI:"+uri)
	}
	return strings.Join(parts, ",")
}

func (aia *AuthorityInfoAccess) Equal(other Extension) bool {
	o, ok := other.(*AuthorityInfoAccess)
	return ok && aia.Critical == o.Critical &&
		equalStrings(aia.OCSP, o.OCSP) &&
		equalStrings(aia.CAIssuers, o.CAIssuers)
}

func (aia *AuthorityInfoAccess) Clone() Extension {
	return &AuthorityInfoAccess{
		Critical:  aia.Critical,
		OCSP:      cloneStrings(aia.OCSP),
		CAIssuers: cloneStrings(aia.CAIssuers),
	}
}

func (aia *AuthorityInfoAccess) marshal(ctx *Context) ([]byte, error) {
	descriptions := make([]accessDescription, 0, len(aia.OCSP)+len(aia.CAIssuers))
	for _, uri := range aia.OCSP {
		descriptions = append(descriptions, accessDescription{
			Method:   oidAccessMethodOCSP,
			Location: generalName(tagURI, []byte(uri)),
		})
	}
	for _, uri := range aia.CAIssuers {
		descriptions = append(descriptions, accessDescription{
			Method:   oidAccessMethodCAIssuers,
			Location: generalName(tagURI, []byte(uri)),
		})
	}
	if len(descriptions) == 0 {
		return nil, fmt.Errorf("%w: no access descriptions", ErrInvalidValue)
	}
	return asn1.Marshal(descriptions)
}

// ParseAuthorityInfoAccess parses "OCSP;URI:<u>,caIssuers;URI:<u>".
func ParseAuthorityInfoAccess(value string, critical bool) (*AuthorityInfoAccess, error) {
	aia := &AuthorityInfoAccess{Critical: critical, OCSP: []string{}, CAIssuers: []string{}}
	for _, part := range splitList(value) {
		method, location, ok := strings.Cut(part, ";")
		if !ok {
			return nil, fmt.Errorf("%w: authorityInfoAccess %q", ErrInvalidValue, part)
		}
		uri, ok := cutPrefixFold(location, "URI:")
		if !ok {
			return nil, fmt.Errorf("%w: authorityInfoAccess %q", ErrInvalidValue, part)
		}
		switch strings.ToLower(strings.TrimSpace(method)) {
		case "ocsp":
			aia.OCSP = append(aia.OCSP, uri)
		case "caissuers":
			aia.CAIssuers = append(aia.CAIssuers, uri)
		default:
			return nil, fmt.Errorf("%w: authorityInfoAccess method %q", ErrInvalidValue, method)
		}
	}
	return aia, nil
}

// OCSP entries are encoded before caIssuers entries. Any other order is
// reported as unsupported so the extension is kept as it was.
func describeAuthorityInfoAccess(der []byte) (string, error) {
	var descriptions []accessDescription
	if err := unmarshalStrict(der, &descriptions, ""); err != nil {
		return "", err
	}
	aia := NewAuthorityInfoAccess()
	parts := make([]string, 0, len(descriptions))
	for _, description := range descriptions {
		if description.Location.Tag != tagURI {
			return "", ErrUnsupported
		}
		uri := string(description.Location.Bytes)
		switch {
		case description.Method.Equal(oidAccessMethodOCSP):
			aia.OCSP = append(aia.OCSP, uri)
			parts = append(parts, "OCSP;URI:"+uri)
		case description.Method.Equal(oidAccessMethodCAIssuers):
			aia.CAIssuers = append(aia.CAIssuers, uri)
			parts = append(parts, "caIssuers;URI:"+uri)
		default:
			return "", ErrUnsupported
		}
	}
	if err := checkReencode(aia, der); err != nil {
		return "", err
	}
	return strings.Join(parts, ", "), nil
}
