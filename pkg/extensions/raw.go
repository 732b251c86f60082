package extensions

import (
	"bytes"
	"encoding/asn1"
	"fmt"

	"github.com/jeremyhahn/go-certificate-authority/pkg/validation"
)

// Raw is one of the supported extensions carried as its DER value, written
// "DER:<hex>" in the extension grammar. Imported extensions whose content
// the typed form can not express, such as several distribution points or
// policies, are kept this way and re-encoded byte for byte.
type Raw struct {
	Identifier string
	Critical   bool
	Value      []byte
}

func NewRaw(id string, critical bool, value []byte) *Raw {
	return &Raw{
		Identifier: id,
		Critical:   critical,
		Value:      append([]byte{}, value...),
	}
}

func (r *Raw) ID() string {
	return r.Identifier
}

func (r *Raw) IsCritical() bool {
	return r.Critical
}

func (r *Raw) Validate(errs *validation.Errors) {
	if len(r.Value) == 0 {
		errs.Add("value", "can't be blank")
		return
	}
	var value asn1.RawValue
	if rest, err := asn1.Unmarshal(r.Value, &value); err != nil || len(rest) > 0 {
		errs.Add("value", "must be a single DER value")
	}
}

func (r *Raw) String() string {
	if len(r.Value) == 0 {
		return ""
	}
	return "DER:" + colonHex(r.Value)
}

func (r *Raw) Equal(other Extension) bool {
	o, ok := other.(*Raw)
	return ok && r.Identifier == o.Identifier &&
		r.Critical == o.Critical &&
		bytes.Equal(r.Value, o.Value)
}

func (r *Raw) Clone() Extension {
	return NewRaw(r.Identifier, r.Critical, r.Value)
}

func (r *Raw) marshal(ctx *Context) ([]byte, error) {
	if len(r.Value) == 0 {
		return nil, fmt.Errorf("%w: empty DER value", ErrInvalidValue)
	}
	return append([]byte{}, r.Value...), nil
}

// ParseRaw parses "DER:<hex>", with or without colons between the bytes.
func ParseRaw(id, value string, critical bool) (*Raw, error) {
	if _, err := OID(id); err != nil {
		return nil, err
	}
	encoded, ok := cutPrefixFold(value, "DER:")
	if !ok {
		return nil, fmt.Errorf("%w: %s %q", ErrInvalidValue, id, value)
	}
	der, err := parseHex(encoded)
	if err != nil {
		return nil, err
	}
	if len(der) == 0 {
		return nil, fmt.Errorf("%w: %s has an empty DER value", ErrInvalidValue, id)
	}
	return &Raw{Identifier: id, Critical: critical, Value: der}, nil
}

func isRawValue(value string) bool {
	_, ok := cutPrefixFold(value, "DER:")
	return ok
}
