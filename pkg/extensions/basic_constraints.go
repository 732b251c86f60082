package extensions

import (
	"encoding/asn1"
	"fmt"
	"strconv"
	"strings"

	"github.com/jeremyhahn/go-certificate-authority/pkg/validation"
)

// BasicConstraints marks whether a certificate may sign other certificates,
// with an optional path length constraint. RFC 5280 4.2.1.9.
type BasicConstraints struct {
	Critical bool
	CA       bool
	PathLen  *int
}

type basicConstraints struct {
	IsCA       bool `asn1:"optional"`
	MaxPathLen int  `asn1:"optional,default:-1"`
}

func NewBasicConstraints() *BasicConstraints {
	return &BasicConstraints{}
}

func (bc *BasicConstraints) ID() string {
	return IDBasicConstraints
}

func (bc *BasicConstraints) IsCritical() bool {
	return bc.Critical
}

func (bc *BasicConstraints) IsCA() bool {
	return bc.CA
}

// SetPathLen sets the path length constraint.
func (bc *BasicConstraints) SetPathLen(pathLen int) error {
	if pathLen < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPathLen, pathLen)
	}
	bc.PathLen = &pathLen
	return nil
}

func (bc *BasicConstraints) Validate(errs *validation.Errors) {
	if bc.PathLen == nil {
		return
	}
	if *bc.PathLen < 0 {
		errs.Add("path_len", "must be a non-negative integer")
	}
	if !bc.CA {
		errs.Add("path_len", "requires CA to be true")
	}
}

func (bc *BasicConstraints) String() string {
	result := fmt.Sprintf("CA:%t", bc.CA)
	if bc.PathLen != nil {
		result += fmt.Sprintf(",pathlen:%d", *bc.PathLen)
	}
	return result
}

func (bc *BasicConstraints) Equal(other Extension) bool {
	o, ok := other.(*BasicConstraints)
	if !ok {
		return false
	}
	if bc.Critical != o.Critical || bc.CA != o.CA {
		return false
	}
	if bc.PathLen == nil || o.PathLen == nil {
		return bc.PathLen == nil && o.PathLen == nil
	}
	return *bc.PathLen == *o.PathLen
}

func (bc *BasicConstraints) Clone() Extension {
	clone := *bc
	if bc.PathLen != nil {
		pathLen := *bc.PathLen
		clone.PathLen = &pathLen
	}
	return &clone
}

func (bc *BasicConstraints) marshal(ctx *Context) ([]byte, error) {
	value := basicConstraints{IsCA: bc.CA, MaxPathLen: -1}
	if bc.PathLen != nil {
		value.MaxPathLen = *bc.PathLen
	}
	return asn1.Marshal(value)
}

// ParseBasicConstraints parses "CA:<bool>[,pathlen:<n>]".
func ParseBasicConstraints(value string, critical bool) (*BasicConstraints, error) {
	bc := &BasicConstraints{Critical: critical}
	seenCA := false
	for _, part := range splitList(value) {
		key, val, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("%w: basicConstraints %q", ErrInvalidValue, part)
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "ca":
			ca, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(val)))
			if err != nil {
				return nil, fmt.Errorf("%w: basicConstraints CA %q", ErrInvalidValue, val)
			}
			bc.CA = ca
			seenCA = true
		case "pathlen":
			pathLen, err := strconv.Atoi(strings.TrimSpace(val))
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrInvalidPathLen, val)
			}
			if err := bc.SetPathLen(pathLen); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: basicConstraints %q", ErrInvalidValue, part)
		}
	}
	if !seenCA {
		return nil, fmt.Errorf("%w: basicConstraints requires CA", ErrInvalidValue)
	}
	return bc, nil
}

func describeBasicConstraints(der []byte) (string, error) {
	value := basicConstraints{MaxPathLen: -1}
	if err := unmarshalStrict(der, &value, ""); err != nil {
		return "", err
	}
	bc := &BasicConstraints{CA: value.IsCA}
	if value.MaxPathLen >= 0 {
		pathLen := value.MaxPathLen
		bc.PathLen = &pathLen
	}
	return bc.String(), nil
}
