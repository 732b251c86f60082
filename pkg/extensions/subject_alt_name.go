package extensions

import (
	"encoding/asn1"
	"fmt"
	"net"
	"strings"

	"github.com/jeremyhahn/go-certificate-authority/pkg/validation"
)

const (
	tagEmail         = 1
	tagDNS           = 2
	tagDirectoryName = 4
	tagURI           = 6
	tagIP            = 7
)

// SubjectAlternativeName lists additional identities the certificate is
// valid for. The serialized value always carries URIs, then DNS names, then
// IP addresses, then email addresses. RFC 5280 4.2.1.6.
type SubjectAlternativeName struct {
	Critical bool
	URIs     []string
	DNSNames []string
	IPs      []string
	Emails   []string
}

func NewSubjectAlternativeName() *SubjectAlternativeName {
	return &SubjectAlternativeName{
		URIs:     []string{},
		DNSNames: []string{},
		IPs:      []string{},
		Emails:   []string{},
	}
}

func (san *SubjectAlternativeName) ID() string {
	return IDSubjectAltName
}

func (san *SubjectAlternativeName) IsCritical() bool {
	return san.Critical
}

func (san *SubjectAlternativeName) Empty() bool {
	return len(san.URIs)+len(san.DNSNames)+len(san.IPs)+len(san.Emails) == 0
}

// IsCopyEmail reports whether an email entry asks for the subject's email
// address to be copied in.
func IsCopyEmail(email string) bool {
	email = strings.TrimSpace(email)
	return email == "copy" || strings.EqualFold(email, "email:copy")
}

func (san *SubjectAlternativeName) Validate(errs *validation.Errors) {
	for _, uri := range san.URIs {
		if !validURI(uri) {
			errs.Addf("uris", "contains an invalid URI %q", uri)
		}
	}
	for _, name := range san.DNSNames {
		if strings.TrimSpace(name) == "" || strings.ContainsAny(name, ", ") {
			errs.Addf("dns_names", "contains an invalid DNS name %q", name)
		}
	}
	for _, ip := range san.IPs {
		if net.ParseIP(ip) == nil {
			errs.Addf("ips", "contains an invalid IP address %q", ip)
		}
	}
	for _, email := range san.Emails {
		if !IsCopyEmail(email) && !strings.Contains(email, "@") {
			errs.Addf("emails", "contains an invalid email address %q", email)
		}
	}
}

func (san *SubjectAlternativeName) String() string {
	parts := make([]string, 0, len(san.URIs)+len(san.DNSNames)+len(san.IPs)+len(san.Emails))
	for _, uri := range san.URIs {
		parts = append(parts, "URI:"+uri)
	}
	for _, name := range san.DNSNames {
		parts = append(parts, "DNS:"+name)
	}
	for _, ip := range san.IPs {
		parts = append(parts, "IP:"+ip)
	}
	for _, email := range san.Emails {
		parts = append(parts, "email:"+email)
	}
	return strings.Join(parts, ",")
}

func (san *SubjectAlternativeName) Equal(other Extension) bool {
	o, ok := other.(*SubjectAlternativeName)
	return ok && san.Critical == o.Critical &&
		equalStrings(san.URIs, o.URIs) &&
		equalStrings(san.DNSNames, o.DNSNames) &&
		equalStrings(san.IPs, o.IPs) &&
		equalStrings(san.Emails, o.Emails)
}

func (san *SubjectAlternativeName) Clone() Extension {
	return &SubjectAlternativeName{
		Critical: san.Critical,
		URIs:     cloneStrings(san.URIs),
		DNSNames: cloneStrings(san.DNSNames),
		IPs:      cloneStrings(san.IPs),
		Emails:   cloneStrings(san.Emails),
	}
}

func (san *SubjectAlternativeName) marshal(ctx *Context) ([]byte, error) {
	names := make([]asn1.RawValue, 0)
	for _, uri := range san.URIs {
		names = append(names, generalName(tagURI, []byte(uri)))
	}
	for _, name := range san.DNSNames {
		names = append(names, generalName(tagDNS, []byte(name)))
	}
	for _, ip := range san.IPs {
		parsed := net.ParseIP(ip)
		if parsed == nil {
			return nil, fmt.Errorf("%w: IP address %q", ErrInvalidValue, ip)
		}
		if v4 := parsed.To4(); v4 != nil {
			parsed = v4
		}
		names = append(names, generalName(tagIP, parsed))
	}
	for _, email := range san.Emails {
		if IsCopyEmail(email) {
			if ctx.SubjectEmail == "" {
				return nil, fmt.Errorf("%w: subject email address", ErrMissingContext)
			}
			email = ctx.SubjectEmail
		}
		names = append(names, generalName(tagEmail, []byte(email)))
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no subject alternative names", ErrInvalidValue)
	}
	return asn1.Marshal(names)
}

// ParseSubjectAlternativeName parses "URI:..,DNS:..,IP:..,email:..".
func ParseSubjectAlternativeName(value string, critical bool) (*SubjectAlternativeName, error) {
	san := NewSubjectAlternativeName()
	san.Critical = critical
	for _, part := range splitList(value) {
		kind, name, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("%w: subjectAltName %q", ErrInvalidValue, part)
		}
		switch strings.ToLower(strings.TrimSpace(kind)) {
		case "uri":
			san.URIs = append(san.URIs, name)
		case "dns":
			san.DNSNames = append(san.DNSNames, name)
		case "ip", "ip address":
			san.IPs = append(san.IPs, name)
		case "email":
			san.Emails = append(san.Emails, name)
		default:
			return nil, fmt.Errorf("%w: subjectAltName %q", ErrInvalidValue, part)
		}
	}
	return san, nil
}

func describeSubjectAlternativeName(der []byte) (string, error) {
	var names []asn1.RawValue
	if err := unmarshalStrict(der, &names, ""); err != nil {
		return "", err
	}
	parts := make([]string, 0, len(names))
	for _, name := range names {
		if name.Class != asn1.ClassContextSpecific {
			return "", ErrUnsupported
		}
		switch name.Tag {
		case tagURI:
			parts = append(parts, "URI:"+string(name.Bytes))
		case tagDNS:
			parts = append(parts, "DNS:"+string(name.Bytes))
		case tagIP:
			if len(name.Bytes) != net.IPv4len && len(name.Bytes) != net.IPv6len {
				return "", fmt.Errorf("%w: IP address length %d", ErrInvalidValue, len(name.Bytes))
			}
			parts = append(parts, "IP:"+net.IP(name.Bytes).String())
		case tagEmail:
			parts = append(parts, "email:"+string(name.Bytes))
		default:
			return "", ErrUnsupported
		}
	}
	return strings.Join(parts, ", "), nil
}

func generalName(tag int, value []byte) asn1.RawValue {
	return asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: tag, Bytes: value}
}
