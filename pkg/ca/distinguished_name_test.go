package ca

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"testing"

	"github.com/jeremyhahn/go-certificate-authority/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistinguishedNameString(t *testing.T) {

	dn := &DistinguishedName{
		CommonName:         "example.com",
		Organization:       "Example/Org",
		OrganizationalUnit: "Engineering",
		Country:            "US",
		State:              "Texas",
		Locality:           "Austin",
		EmailAddress:       "admin@example.com",
	}
	subject := dn.String()
	assert.Equal(t,
		`/C=US/ST=Texas/L=Austin/O=Example\/Org/OU=Engineering/CN=example.com/emailAddress=admin@example.com`,
		subject)

	parsed, err := ParseName(subject)
	require.NoError(t, err)
	assert.Equal(t, dn.Organization, parsed.Organization)
	assert.True(t, dn.Equal(parsed))

	_, err = ParseName("CN=missing slash")
	assert.True(t, errors.Is(err, ErrInvalidName))
	_, err = ParseName("/XX=unknown")
	assert.True(t, errors.Is(err, ErrInvalidName))
}

func TestDistinguishedNameValidate(t *testing.T) {

	dn := &DistinguishedName{}
	errs := validation.ErrorsOf(dn)
	assert.Equal(t, 1, errs.Len())
	assert.True(t, errs.On("common_name"))

	_, err := dn.ToRDNSequence()
	assert.True(t, errors.Is(err, validation.ErrValidation))

	dn.CommonName = "valid"
	assert.True(t, validation.Valid(dn))
}

func TestNameFromWire(t *testing.T) {

	name := pkix.Name{
		CommonName:   "wire.example.com",
		Organization: []string{"Wire Org"},
		Country:      []string{"DE"},
	}
	dn, err := NameFromWire(name)
	require.NoError(t, err)
	assert.Equal(t, "wire.example.com", dn.CommonName)
	assert.Equal(t, "Wire Org", dn.Organization)
	assert.Equal(t, "DE", dn.Country)
	assert.False(t, dn.CustomOIDs)

	der, err := asn1.Marshal(name.ToRDNSequence())
	require.NoError(t, err)
	encoded, err := dn.ToDER()
	require.NoError(t, err)
	assert.Equal(t, der, encoded)

	_, err = NameFromWire(42)
	assert.True(t, errors.Is(err, ErrType))
}

func TestNameFromWireCustomOID(t *testing.T) {

	name := pkix.Name{
		CommonName: "custom",
		ExtraNames: []pkix.AttributeTypeAndValue{
			{Type: asn1.ObjectIdentifier{1, 2, 3, 4}, Value: "extra"},
		},
	}
	dn, err := NameFromWire(&name)
	require.NoError(t, err)
	assert.True(t, dn.CustomOIDs)

	// The unmodeled attribute survives until a field changes
	der, err := dn.ToDER()
	require.NoError(t, err)
	assert.Equal(t, dn.raw, der)

	dn.CommonName = "changed"
	changed, err := dn.ToDER()
	require.NoError(t, err)
	assert.NotEqual(t, der, changed)
}

func TestToX509Name(t *testing.T) {

	dn := &DistinguishedName{CommonName: "x509", Organization: "Org", SerialNumber: "1234"}
	name, err := dn.ToX509Name()
	require.NoError(t, err)
	assert.Equal(t, "x509", name.CommonName)
	assert.Equal(t, []string{"Org"}, name.Organization)
	assert.Equal(t, "1234", name.SerialNumber)
}
