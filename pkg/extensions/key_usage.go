package extensions

import (
	"encoding/asn1"
	"fmt"
	"strconv"
	"strings"

	"github.com/jeremyhahn/go-certificate-authority/pkg/validation"
)

var (
	keyUsageBits = []string{
		"digitalSignature",
		"nonRepudiation",
		"keyEncipherment",
		"dataEncipherment",
		"keyAgreement",
		"keyCertSign",
		"cRLSign",
		"encipherOnly",
		"decipherOnly",
	}

	extKeyUsageOIDs = []struct {
		name string
		oid  asn1.ObjectIdentifier
	}{
		{"serverAuth", asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 1}},
		{"clientAuth", asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 2}},
		{"codeSigning", asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 3}},
		{"emailProtection", asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 4}},
		{"ipsecEndSystem", asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 5}},
		{"ipsecTunnel", asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 6}},
		{"ipsecUser", asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 7}},
		{"timeStamping", asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 8}},
		{"OCSPSigning", asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 9}},
		{"ipsecIKE", asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 3, 17}},
		{"anyExtendedKeyUsage", asn1.ObjectIdentifier{2, 5, 29, 37, 0}},
		{"msCodeInd", asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 311, 2, 1, 21}},
		{"msCodeCom", asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 311, 2, 1, 22}},
		{"msCTLSign", asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 311, 10, 3, 1}},
		{"msEFS", asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 311, 10, 3, 4}},
		{"nsSGC", asn1.ObjectIdentifier{2, 16, 840, 1, 113730, 4, 1}},
	}
)

// KeyUsage restricts what the certified key may be used for.
// RFC 5280 4.2.1.3.
type KeyUsage struct {
	Critical bool
	Usage    []string
}

func NewKeyUsage() *KeyUsage {
	return &KeyUsage{Usage: []string{"digitalSignature", "nonRepudiation"}}
}

func (ku *KeyUsage) ID() string {
	return IDKeyUsage
}

func (ku *KeyUsage) IsCritical() bool {
	return ku.Critical
}

func (ku *KeyUsage) Validate(errs *validation.Errors) {
	for _, usage := range ku.Usage {
		if keyUsageBit(usage) < 0 {
			errs.Addf("usage", "contains an unknown key usage %q", usage)
		}
	}
}

func (ku *KeyUsage) String() string {
	return strings.Join(ku.Usage, ",")
}

func (ku *KeyUsage) Equal(other Extension) bool {
	o, ok := other.(*KeyUsage)
	return ok && ku.Critical == o.Critical && equalStrings(ku.Usage, o.Usage)
}

func (ku *KeyUsage) Clone() Extension {
	return &KeyUsage{Critical: ku.Critical, Usage: cloneStrings(ku.Usage)}
}

// Encodes the usages as a DER named bit list: trailing zero bits are not
// encoded.
func (ku *KeyUsage) marshal(ctx *Context) ([]byte, error) {
	var bytes [2]byte
	highest := -1
	for _, usage := range ku.Usage {
		bit := keyUsageBit(usage)
		if bit < 0 {
			return nil, fmt.Errorf("%w: key usage %q", ErrInvalidValue, usage)
		}
		bytes[bit/8] |= 0x80 >> uint(bit%8)
		if bit > highest {
			highest = bit
		}
	}
	if highest < 0 {
		return nil, fmt.Errorf("%w: no key usages", ErrInvalidValue)
	}
	length := highest/8 + 1
	return asn1.Marshal(asn1.BitString{Bytes: bytes[:length], BitLength: highest + 1})
}

func ParseKeyUsage(value string, critical bool) (*KeyUsage, error) {
	ku := &KeyUsage{Critical: critical, Usage: []string{}}
	for _, usage := range splitList(value) {
		if keyUsageBit(usage) < 0 {
			return nil, fmt.Errorf("%w: key usage %q", ErrInvalidValue, usage)
		}
		ku.Usage = append(ku.Usage, usage)
	}
	return ku, nil
}

func describeKeyUsage(der []byte) (string, error) {
	var bits asn1.BitString
	if err := unmarshalStrict(der, &bits, ""); err != nil {
		return "", err
	}
	usages := []string{}
	for i := 0; i < bits.BitLength; i++ {
		if bits.At(i) == 0 {
			continue
		}
		if i >= len(keyUsageBits) {
			return "", ErrUnsupported
		}
		usages = append(usages, keyUsageBits[i])
	}
	return strings.Join(usages, ", "), nil
}

func keyUsageBit(name string) int {
	for i, known := range keyUsageBits {
		if strings.EqualFold(known, strings.TrimSpace(name)) {
			return i
		}
	}
	return -1
}

// ExtendedKeyUsage lists the purposes the certified key may be used for, by
// short name or dotted object identifier. RFC 5280 4.2.1.12.
type ExtendedKeyUsage struct {
	Critical bool
	Usage    []string
}

func NewExtendedKeyUsage() *ExtendedKeyUsage {
	return &ExtendedKeyUsage{Usage: []string{"serverAuth"}}
}

func (eku *ExtendedKeyUsage) ID() string {
	return IDExtendedKeyUsage
}

func (eku *ExtendedKeyUsage) IsCritical() bool {
	return eku.Critical
}

func (eku *ExtendedKeyUsage) Validate(errs *validation.Errors) {
	for _, usage := range eku.Usage {
		if _, err := extKeyUsageOID(usage); err != nil {
			errs.Addf("usage", "contains an unknown extended key usage %q", usage)
		}
	}
}

func (eku *ExtendedKeyUsage) String() string {
	return strings.Join(eku.Usage, ",")
}

func (eku *ExtendedKeyUsage) Equal(other Extension) bool {
	o, ok := other.(*ExtendedKeyUsage)
	return ok && eku.Critical == o.Critical && equalStrings(eku.Usage, o.Usage)
}

func (eku *ExtendedKeyUsage) Clone() Extension {
	return &ExtendedKeyUsage{Critical: eku.Critical, Usage: cloneStrings(eku.Usage)}
}

func (eku *ExtendedKeyUsage) marshal(ctx *Context) ([]byte, error) {
	if len(eku.Usage) == 0 {
		return nil, fmt.Errorf("%w: no extended key usages", ErrInvalidValue)
	}
	oids := make([]asn1.ObjectIdentifier, len(eku.Usage))
	for i, usage := range eku.Usage {
		oid, err := extKeyUsageOID(usage)
		if err != nil {
			return nil, err
		}
		oids[i] = oid
	}
	return asn1.Marshal(oids)
}

func ParseExtendedKeyUsage(value string, critical bool) (*ExtendedKeyUsage, error) {
	eku := &ExtendedKeyUsage{Critical: critical, Usage: []string{}}
	for _, usage := range splitList(value) {
		if _, err := extKeyUsageOID(usage); err != nil {
			return nil, err
		}
		eku.Usage = append(eku.Usage, usage)
	}
	return eku, nil
}

func describeExtendedKeyUsage(der []byte) (string, error) {
	var oids []asn1.ObjectIdentifier
	if err := unmarshalStrict(der, &oids, ""); err != nil {
		return "", err
	}
	usages := make([]string, len(oids))
	for i, oid := range oids {
		usages[i] = oid.String()
		for _, known := range extKeyUsageOIDs {
			if known.oid.Equal(oid) {
				usages[i] = known.name
				break
			}
		}
	}
	return strings.Join(usages, ", "), nil
}

func extKeyUsageOID(usage string) (asn1.ObjectIdentifier, error) {
	usage = strings.TrimSpace(usage)
	for _, known := range extKeyUsageOIDs {
		if strings.EqualFold(known.name, usage) {
			return known.oid, nil
		}
	}
	oid, err := parseOID(usage)
	if err != nil {
		return nil, fmt.Errorf("%w: extended key usage %q", ErrInvalidValue, usage)
	}
	return oid, nil
}

func parseOID(dotted string) (asn1.ObjectIdentifier, error) {
	parts := strings.Split(dotted, ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("%w: object identifier %q", ErrInvalidValue, dotted)
	}
	oid := make(asn1.ObjectIdentifier, len(parts))
	for i, part := range parts {
		arc, err := strconv.Atoi(part)
		if err != nil || arc < 0 {
			return nil, fmt.Errorf("%w: object identifier %q", ErrInvalidValue, dotted)
		}
		oid[i] = arc
	}
	if oid[0] > 2 || (oid[0] < 2 && oid[1] >= 40) {
		return nil, fmt.Errorf("%w: object identifier %q", ErrInvalidValue, dotted)
	}
	return oid, nil
}
