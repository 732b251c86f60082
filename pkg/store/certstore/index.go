package certstore

import (
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/jeremyhahn/go-certificate-authority/pkg/ca"
)

// IndexEntry is one issued certificate in the certificate authority's
// database.
type IndexEntry struct {
	Serial    string    `yaml:"serial" json:"serial"`
	Subject   string    `yaml:"subject" json:"subject"`
	NotAfter  time.Time `yaml:"not_after" json:"not_after"`
	RevokedAt time.Time `yaml:"revoked_at" json:"revoked_at"`
}

func (e *IndexEntry) IsRevoked() bool {
	return !e.RevokedAt.IsZero()
}

// SerialNumber returns the entry as a serial number carrying its
// revocation time.
func (e *IndexEntry) SerialNumber() (*ca.SerialNumber, error) {
	number, err := ParseSerial(e.Serial)
	if err != nil {
		return nil, err
	}
	serial := ca.SerialNumberOf(number)
	serial.RevokedAt = e.RevokedAt
	return serial, nil
}

// Index is the persisted list of issued certificates and the number of
// the last signed revocation list.
type Index struct {
	CRLNumber string        `yaml:"crl_number" json:"crl_number"`
	Entries   []*IndexEntry `yaml:"entries" json:"entries"`
}

func (idx *Index) find(serial string) *IndexEntry {
	for _, entry := range idx.Entries {
		if entry.Serial == serial {
			return entry
		}
	}
	return nil
}

func (idx *Index) remove(entry *IndexEntry) {
	for i, e := range idx.Entries {
		if e == entry {
			idx.Entries = append(idx.Entries[:i], idx.Entries[i+1:]...)
			return
		}
	}
}

func (idx *Index) crlNumber() *big.Int {
	number, ok := new(big.Int).SetString(idx.CRLNumber, 16)
	if !ok {
		return big.NewInt(0)
	}
	return number
}

func (idx *Index) sort() {
	sort.Slice(idx.Entries, func(i, j int) bool {
		a, _ := new(big.Int).SetString(idx.Entries[i].Serial, 16)
		b, _ := new(big.Int).SetString(idx.Entries[j].Serial, 16)
		if a == nil || b == nil {
			return idx.Entries[i].Serial < idx.Entries[j].Serial
		}
		return a.Cmp(b) < 0
	})
}

// ParseSerial parses a hex serial number, with or without colons or a 0x
// prefix.
func ParseSerial(serial string) (*big.Int, error) {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(serial), ":", ""))
	normalized = strings.TrimPrefix(normalized, "0x")
	number, ok := new(big.Int).SetString(normalized, 16)
	if !ok || number.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSerialNumber, serial)
	}
	return number, nil
}
