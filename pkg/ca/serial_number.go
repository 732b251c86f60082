package ca

import (
	"crypto/rand"
	"crypto/x509"
	"math/big"
	"time"

	"github.com/jeremyhahn/go-certificate-authority/pkg/validation"
)

// Revocable is an entry that can be listed on a revocation list: a bare
// serial number or a signed certificate.
type Revocable interface {
	IsRevoked() bool
	RevocationEntry() (x509.RevocationListEntry, error)
}

// SerialNumber identifies a certificate within its issuer.
type SerialNumber struct {
	Number    *big.Int
	RevokedAt time.Time
}

// NewSerialNumber returns a random positive 128-bit serial number.
func NewSerialNumber() (*SerialNumber, error) {
	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	for {
		number, err := rand.Int(rand.Reader, serialNumberLimit)
		if err != nil {
			return nil, err
		}
		if number.Sign() > 0 {
			return &SerialNumber{Number: number}, nil
		}
	}
}

// SerialNumberOf wraps an existing serial number.
func SerialNumberOf(number *big.Int) *SerialNumber {
	if number == nil {
		return &SerialNumber{}
	}
	return &SerialNumber{Number: new(big.Int).Set(number)}
}

func (sn *SerialNumber) Validate(errs *validation.Errors) {
	if sn.Number == nil {
		errs.Add("number", "is required")
		return
	}
	if sn.Number.Sign() <= 0 {
		errs.Add("number", "must be greater than zero")
	}
}

func (sn *SerialNumber) IsRevoked() bool {
	return !sn.RevokedAt.IsZero()
}

func (sn *SerialNumber) Revoke(at time.Time) {
	sn.RevokedAt = at
}

func (sn *SerialNumber) RevocationEntry() (x509.RevocationListEntry, error) {
	if !sn.IsRevoked() {
		return x509.RevocationListEntry{}, ErrNotRevoked
	}
	if err := validation.Check(sn); err != nil {
		return x509.RevocationListEntry{}, err
	}
	return x509.RevocationListEntry{
		SerialNumber:   new(big.Int).Set(sn.Number),
		RevocationTime: sn.RevokedAt,
	}, nil
}

func (sn *SerialNumber) String() string {
	if sn.Number == nil {
		return ""
	}
	return sn.Number.Text(16)
}

func (sn *SerialNumber) Clone() *SerialNumber {
	clone := SerialNumberOf(sn.Number)
	clone.RevokedAt = sn.RevokedAt
	return clone
}
