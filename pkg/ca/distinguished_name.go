package ca

import (
	"bytes"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"strings"

	"github.com/jeremyhahn/go-certificate-authority/pkg/validation"
)

var (
	oidSerialNumber       = asn1.ObjectIdentifier{2, 5, 4, 5}
	oidCountry            = asn1.ObjectIdentifier{2, 5, 4, 6}
	oidState              = asn1.ObjectIdentifier{2, 5, 4, 8}
	oidLocality           = asn1.ObjectIdentifier{2, 5, 4, 7}
	oidOrganization       = asn1.ObjectIdentifier{2, 5, 4, 10}
	oidOrganizationalUnit = asn1.ObjectIdentifier{2, 5, 4, 11}
	oidCommonName         = asn1.ObjectIdentifier{2, 5, 4, 3}
	oidEmailAddress       = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 1}

	// Short names used by the slash-delimited subject form
	nameKeys = []struct {
		key string
		oid asn1.ObjectIdentifier
	}{
		{"serialNumber", oidSerialNumber},
		{"C", oidCountry},
		{"ST", oidState},
		{"L", oidLocality},
		{"O", oidOrganization},
		{"OU", oidOrganizationalUnit},
		{"CN", oidCommonName},
		{"emailAddress", oidEmailAddress},
	}
)

// DistinguishedName is an X.500 subject or issuer name. Two names are equal
// when their DER encodings are equal.
type DistinguishedName struct {
	CommonName         string `yaml:"common_name" json:"common_name" mapstructure:"common_name"`
	Locality           string `yaml:"locality" json:"locality" mapstructure:"locality"`
	State              string `yaml:"state" json:"state" mapstructure:"state"`
	Country            string `yaml:"country" json:"country" mapstructure:"country"`
	Organization       string `yaml:"organization" json:"organization" mapstructure:"organization"`
	OrganizationalUnit string `yaml:"organizational_unit" json:"organizational_unit" mapstructure:"organizational_unit"`
	EmailAddress       string `yaml:"email_address" json:"email_address" mapstructure:"email_address"`
	SerialNumber       string `yaml:"serial_number" json:"serial_number" mapstructure:"serial_number"`

	// Set when the name was read from the wire and carried attributes this
	// type has no field for. They are kept in the raw encoding.
	CustomOIDs bool `yaml:"-" json:"-" mapstructure:"-"`

	raw    []byte
	parsed nameFields
}

type nameFields struct {
	commonName, locality, state, country, organization, organizationalUnit, emailAddress, serialNumber string
}

func (dn *DistinguishedName) fields() nameFields {
	return nameFields{
		commonName:         dn.CommonName,
		locality:           dn.Locality,
		state:              dn.State,
		country:            dn.Country,
		organization:       dn.Organization,
		organizationalUnit: dn.OrganizationalUnit,
		emailAddress:       dn.EmailAddress,
		serialNumber:       dn.SerialNumber,
	}
}

func (dn *DistinguishedName) Validate(errs *validation.Errors) {
	if strings.TrimSpace(dn.CommonName) == "" {
		errs.Add("common_name", "is required")
	}
}

// ToRDNSequence returns the name with attributes in the order serialNumber,
// C, ST, L, O, OU, CN, emailAddress. Blank attributes are omitted.
func (dn *DistinguishedName) ToRDNSequence() (pkix.RDNSequence, error) {
	if err := validation.Check(dn); err != nil {
		return nil, err
	}
	return dn.rdnSequence()
}

func (dn *DistinguishedName) rdnSequence() (pkix.RDNSequence, error) {
	if dn.unchanged() {
		var rdns pkix.RDNSequence
		if _, err := asn1.Unmarshal(dn.raw, &rdns); err != nil {
			return nil, err
		}
		return rdns, nil
	}
	values := []string{
		dn.SerialNumber,
		dn.Country,
		dn.State,
		dn.Locality,
		dn.Organization,
		dn.OrganizationalUnit,
		dn.CommonName,
		dn.EmailAddress,
	}
	rdns := make(pkix.RDNSequence, 0, len(values))
	for i, value := range values {
		if value == "" {
			continue
		}
		var v any = value
		if nameKeys[i].oid.Equal(oidEmailAddress) {
			v = asn1.RawValue{Tag: asn1.TagIA5String, Bytes: []byte(value)}
		}
		rdns = append(rdns, pkix.RelativeDistinguishedNameSET{
			{Type: nameKeys[i].oid, Value: v},
		})
	}
	return rdns, nil
}

// ToX509Name returns the name for use in x509 templates. Attributes are
// carried in ExtraNames so their order is preserved on marshal.
func (dn *DistinguishedName) ToX509Name() (pkix.Name, error) {
	rdns, err := dn.ToRDNSequence()
	if err != nil {
		return pkix.Name{}, err
	}
	var name pkix.Name
	name.FillFromRDNSequence(&rdns)
	name.ExtraNames = make([]pkix.AttributeTypeAndValue, 0, len(rdns))
	for _, rdn := range rdns {
		name.ExtraNames = append(name.ExtraNames, rdn...)
	}
	return name, nil
}

// ToDER returns the DER encoded name. A name read from the wire that has
// not been modified returns its original encoding.
func (dn *DistinguishedName) ToDER() ([]byte, error) {
	if err := validation.Check(dn); err != nil {
		return nil, err
	}
	if dn.unchanged() {
		return append([]byte(nil), dn.raw...), nil
	}
	rdns, err := dn.ToRDNSequence()
	if err != nil {
		return nil, err
	}
	return asn1.Marshal(rdns)
}

func (dn *DistinguishedName) unchanged() bool {
	return dn.raw != nil && dn.fields() == dn.parsed
}

// Equal compares the DER encoding of both names.
func (dn *DistinguishedName) Equal(other *DistinguishedName) bool {
	if dn == nil || other == nil {
		return dn == other
	}
	a, err := dn.ToDER()
	if err != nil {
		return false
	}
	b, err := other.ToDER()
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// String returns the slash delimited form, /C=US/O=Example/CN=Root.
// Attributes without a short name are written as dotted OIDs.
func (dn *DistinguishedName) String() string {
	rdns, err := dn.rdnSequence()
	if err != nil {
		return ""
	}
	var sb strings.Builder
	for _, rdn := range rdns {
		for _, atv := range rdn {
			key := atv.Type.String()
			for _, known := range nameKeys {
				if known.oid.Equal(atv.Type) {
					key = known.key
					break
				}
			}
			sb.WriteString("/")
			sb.WriteString(key)
			sb.WriteString("=")
			sb.WriteString(strings.ReplaceAll(attributeString(atv.Value), "/", `\/`))
		}
	}
	return sb.String()
}

// ParseName parses the slash delimited form written by String. A slash
// inside a value is escaped as \/.
func ParseName(subject string) (*DistinguishedName, error) {
	if !strings.HasPrefix(subject, "/") {
		return nil, fmt.Errorf("%w: %q must start with /", ErrInvalidName, subject)
	}
	dn := &DistinguishedName{}
	for _, part := range splitEscaped(subject[1:]) {
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidName, part)
		}
		if !dn.set(strings.TrimSpace(key), value) {
			return nil, fmt.Errorf("%w: unknown attribute %q", ErrInvalidName, key)
		}
	}
	return dn, nil
}

func (dn *DistinguishedName) set(key, value string) bool {
	switch strings.ToLower(key) {
	case "cn", "commonname":
		dn.CommonName = value
	case "l", "locality":
		dn.Locality = value
	case "st", "state":
		dn.State = value
	case "c", "country":
		dn.Country = value
	case "o", "organization":
		dn.Organization = value
	case "ou", "organizationalunit":
		dn.OrganizationalUnit = value
	case "emailaddress", "email":
		dn.EmailAddress = value
	case "serialnumber":
		dn.SerialNumber = value
	default:
		return false
	}
	return true
}

func splitEscaped(s string) []string {
	var (
		parts   []string
		current strings.Builder
	)
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\' && i+1 < len(s) && s[i+1] == '/':
			current.WriteByte('/')
			i++
		case s[i] == '/':
			parts = append(parts, current.String())
			current.Reset()
		default:
			current.WriteByte(s[i])
		}
	}
	return append(parts, current.String())
}

// NameFromWire builds a DistinguishedName from a pkix.Name, a
// pkix.RDNSequence or a DER encoded name. Any other value fails with
// ErrType.
func NameFromWire(name any) (*DistinguishedName, error) {
	switch n := name.(type) {
	case []byte:
		return NameFromRawDER(n)
	case pkix.RDNSequence:
		der, err := asn1.Marshal(n)
		if err != nil {
			return nil, err
		}
		return NameFromRawDER(der)
	case pkix.Name:
		der, err := asn1.Marshal(n.ToRDNSequence())
		if err != nil {
			return nil, err
		}
		return NameFromRawDER(der)
	case *pkix.Name:
		if n == nil {
			return nil, fmt.Errorf("%w: nil name", ErrType)
		}
		return NameFromWire(*n)
	}
	return nil, fmt.Errorf("%w: %T is not a wire name", ErrType, name)
}

// NameFromRawDER decodes a DER name. The encoding is retained and reused by
// ToDER until a field changes.
func NameFromRawDER(der []byte) (*DistinguishedName, error) {
	var rdns pkix.RDNSequence
	rest, err := asn1.Unmarshal(der, &rdns)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidName, err)
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("%w: trailing data", ErrInvalidName)
	}
	dn := &DistinguishedName{}
	for _, rdn := range rdns {
		for _, atv := range rdn {
			value := attributeString(atv.Value)
			switch {
			case atv.Type.Equal(oidCommonName):
				setOnce(&dn.CommonName, value)
			case atv.Type.Equal(oidLocality):
				setOnce(&dn.Locality, value)
			case atv.Type.Equal(oidState):
				setOnce(&dn.State, value)
			case atv.Type.Equal(oidCountry):
				setOnce(&dn.Country, value)
			case atv.Type.Equal(oidOrganization):
				setOnce(&dn.Organization, value)
			case atv.Type.Equal(oidOrganizationalUnit):
				setOnce(&dn.OrganizationalUnit, value)
			case atv.Type.Equal(oidEmailAddress):
				setOnce(&dn.EmailAddress, value)
			case atv.Type.Equal(oidSerialNumber):
				setOnce(&dn.SerialNumber, value)
			default:
				dn.CustomOIDs = true
			}
		}
	}
	dn.raw = append([]byte(nil), der...)
	dn.parsed = dn.fields()
	return dn, nil
}

// Clone returns a copy that shares no state with dn.
func (dn *DistinguishedName) Clone() *DistinguishedName {
	clone := *dn
	if dn.raw != nil {
		clone.raw = append([]byte(nil), dn.raw...)
	}
	return &clone
}

func setOnce(dst *string, value string) {
	if *dst == "" {
		*dst = value
	}
}

func attributeString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case asn1.RawValue:
		return string(v.Bytes)
	}
	return fmt.Sprint(value)
}
