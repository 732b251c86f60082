package extensions

import (
	"encoding/asn1"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jeremyhahn/go-certificate-authority/pkg/validation"
)

const (
	IDBasicConstraints       = "basicConstraints"
	IDCRLDistributionPoints  = "crlDistributionPoints"
	IDSubjectKeyIdentifier   = "subjectKeyIdentifier"
	IDAuthorityKeyIdentifier = "authorityKeyIdentifier"
	IDAuthorityInfoAccess    = "authorityInfoAccess"
	IDKeyUsage               = "keyUsage"
	IDExtendedKeyUsage       = "extendedKeyUsage"
	IDSubjectAltName         = "subjectAltName"
	IDCertificatePolicies    = "certificatePolicies"
)

var (
	ErrType             = errors.New("extensions: wrong value type")
	ErrInvalidValue     = errors.New("extensions: invalid extension value")
	ErrUnknownExtension = errors.New("extensions: unknown extension")
	ErrUnsupported      = errors.New("extensions: unsupported extension content")
	ErrMissingContext   = errors.New("extensions: extension requires issuer or subject context")
	ErrInvalidPathLen   = errors.New("extensions: path_len must be a non-negative integer")

	oidByID = map[string]asn1.ObjectIdentifier{
		IDBasicConstraints:       {2, 5, 29, 19},
		IDCRLDistributionPoints:  {2, 5, 29, 31},
		IDSubjectKeyIdentifier:   {2, 5, 29, 14},
		IDAuthorityKeyIdentifier: {2, 5, 29, 35},
		IDAuthorityInfoAccess:    {1, 3, 6, 1, 5, 5, 7, 1, 1},
		IDKeyUsage:               {2, 5, 29, 15},
		IDExtendedKeyUsage:       {2, 5, 29, 37},
		IDSubjectAltName:         {2, 5, 29, 17},
		IDCertificatePolicies:    {2, 5, 29, 32},
	}

	listSeparator = regexp.MustCompile(`,\s*`)
)

// Extension is one of the nine X.509v3 extensions this package models. Each
// value serializes to the extension-value grammar understood by Create, and
// the matching Parse function reverses it.
type Extension interface {
	validation.Validator

	// The extension identifier, ex: subjectAltName
	ID() string

	IsCritical() bool

	// Serializes the extension to its value grammar. An empty string means
	// the extension has nothing to say and must be left out of a certificate.
	String() string

	Equal(other Extension) bool

	Clone() Extension

	marshal(ctx *Context) ([]byte, error)
}

// Sections holds named configuration sections referenced from an extension
// value with the "@name" syntax.
type Sections map[string]map[string]string

// Implemented by extensions whose value references configuration sections.
type Sectioned interface {
	ConfigSections() Sections
}

// OID returns the object identifier for an extension identifier.
func OID(id string) (asn1.ObjectIdentifier, error) {
	oid, ok := oidByID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownExtension, id)
	}
	return oid, nil
}

// IDForOID returns the extension identifier for an object identifier.
func IDForOID(oid asn1.ObjectIdentifier) (string, bool) {
	for id, known := range oidByID {
		if known.Equal(oid) {
			return id, true
		}
	}
	return "", false
}

// IDs returns every supported extension identifier in signing order.
func IDs() []string {
	ids := make([]string, 0, len(oidByID))
	for id := range oidByID {
		ids = append(ids, id)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids
}

// New returns the default instance of an extension.
func New(id string) (Extension, error) {
	switch id {
	case IDBasicConstraints:
		return NewBasicConstraints(), nil
	case IDCRLDistributionPoints:
		return NewCRLDistributionPoints(), nil
	case IDSubjectKeyIdentifier:
		return NewSubjectKeyIdentifier(), nil
	case IDAuthorityKeyIdentifier:
		return NewAuthorityKeyIdentifier(), nil
	case IDAuthorityInfoAccess:
		return NewAuthorityInfoAccess(), nil
	case IDKeyUsage:
		return NewKeyUsage(), nil
	case IDExtendedKeyUsage:
		return NewExtendedKeyUsage(), nil
	case IDSubjectAltName:
		return NewSubjectAlternativeName(), nil
	case IDCertificatePolicies:
		return NewCertificatePolicies(), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownExtension, id)
}

// Parse reconstructs a typed extension from its value grammar. A
// "DER:<hex>" value of any supported extension parses to a Raw extension.
func Parse(id, value string, critical bool, sections Sections) (Extension, error) {
	if isRawValue(value) {
		return ParseRaw(id, value, critical)
	}
	switch id {
	case IDBasicConstraints:
		return ParseBasicConstraints(value, critical)
	case IDCRLDistributionPoints:
		return ParseCRLDistributionPoints(value, critical)
	case IDSubjectKeyIdentifier:
		return ParseSubjectKeyIdentifier(value, critical)
	case IDAuthorityKeyIdentifier:
		return ParseAuthorityKeyIdentifier(value, critical)
	case IDAuthorityInfoAccess:
		return ParseAuthorityInfoAccess(value, critical)
	case IDKeyUsage:
		return ParseKeyUsage(value, critical)
	case IDExtendedKeyUsage:
		return ParseExtendedKeyUsage(value, critical)
	case IDSubjectAltName:
		return ParseSubjectAlternativeName(value, critical)
	case IDCertificatePolicies:
		return ParseCertificatePolicies(value, critical, sections)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownExtension, id)
}

// Set maps extension identifiers to extensions.
type Set map[string]Extension

// Defaults returns a set holding the default instance of all nine extensions.
func Defaults() Set {
	set := make(Set, len(oidByID))
	for _, id := range IDs() {
		ext, _ := New(id)
		set[id] = ext
	}
	return set
}

func (s Set) Get(id string) Extension {
	return s[id]
}

func (s Set) Put(ext Extension) {
	s[ext.ID()] = ext
}

func (s Set) Clone() Set {
	clone := make(Set, len(s))
	for id, ext := range s {
		clone[id] = ext.Clone()
	}
	return clone
}

// Sorted returns the extensions in descending identifier order, the order
// in which they must be added to a certificate: subjectKeyIdentifier has to
// exist before authorityKeyIdentifier can reference it.
func (s Set) Sorted() []Extension {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	sorted := make([]Extension, len(ids))
	for i, id := range ids {
		sorted[i] = s[id]
	}
	return sorted
}

func (s Set) Validate(errs *validation.Errors) {
	for _, ext := range s.Sorted() {
		validation.Nested(errs, ext.ID(), ext)
	}
}

func (s Set) BasicConstraints() *BasicConstraints {
	ext, _ := s[IDBasicConstraints].(*BasicConstraints)
	return ext
}

func (s Set) CRLDistributionPoints() *CRLDistributionPoints {
	ext, _ := s[IDCRLDistributionPoints].(*CRLDistributionPoints)
	return ext
}

func (s Set) SubjectKeyIdentifier() *SubjectKeyIdentifier {
	ext, _ := s[IDSubjectKeyIdentifier].(*SubjectKeyIdentifier)
	return ext
}

func (s Set) AuthorityKeyIdentifier() *AuthorityKeyIdentifier {
	ext, _ := s[IDAuthorityKeyIdentifier].(*AuthorityKeyIdentifier)
	return ext
}

func (s Set) AuthorityInfoAccess() *AuthorityInfoAccess {
	ext, _ := s[IDAuthorityInfoAccess].(*AuthorityInfoAccess)
	return ext
}

func (s Set) KeyUsage() *KeyUsage {
	ext, _ := s[IDKeyUsage].(*KeyUsage)
	return ext
}

func (s Set) ExtendedKeyUsage() *ExtendedKeyUsage {
	ext, _ := s[IDExtendedKeyUsage].(*ExtendedKeyUsage)
	return ext
}

func (s Set) SubjectAlternativeName() *SubjectAlternativeName {
	ext, _ := s[IDSubjectAltName].(*SubjectAlternativeName)
	return ext
}

func (s Set) CertificatePolicies() *CertificatePolicies {
	ext, _ := s[IDCertificatePolicies].(*CertificatePolicies)
	return ext
}

func splitList(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return listSeparator.Split(value, -1)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string{}, s...)
}
