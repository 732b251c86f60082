package ca

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/jeremyhahn/go-certificate-authority/pkg/keystore"
	"github.com/jeremyhahn/go-certificate-authority/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeProfile(t *testing.T) {

	profile, err := DecodeProfile(map[string]any{
		"digest": "SHA512",
		"extensions": map[string]any{
			"basicConstraints": map[string]any{
				"ca":       true,
				"path_len": 1,
				"critical": true,
			},
			"keyUsage": map[string]any{
				"usage": []string{"digitalSignature", "keyEncipherment"},
			},
			"certificatePolicies": map[string]any{
				"policy_identifier": "1.3.5.8",
				"explicit_text":     "Explicit Text",
				"notice_numbers":    "1,2,3",
			},
		},
	}, true, nil)
	require.NoError(t, err)

	assert.Equal(t, "SHA512", profile.digest())
	bc := profile.Extensions.BasicConstraints
	require.NotNil(t, bc)
	assert.True(t, *bc.CA)
	assert.Equal(t, 1, *bc.PathLen)
	assert.True(t, *bc.Critical)
	assert.Equal(t, []string{"digitalSignature", "keyEncipherment"}, profile.Extensions.KeyUsage.Usage)
	assert.Equal(t, []int{1, 2, 3}, profile.Extensions.CertificatePolicies.NoticeNumbers)
	assert.Equal(t, "Explicit Text", *profile.Extensions.CertificatePolicies.ExplicitText)
	assert.Nil(t, profile.Extensions.SubjectAltName)
}

func TestDecodeProfileDefaults(t *testing.T) {

	profile, err := DecodeProfile(nil, true, nil)
	require.NoError(t, err)
	assert.Equal(t, keystore.DefaultDigest, profile.digest())

	var nilProfile *SigningProfile
	assert.Equal(t, keystore.DefaultDigest, nilProfile.digest())
	assert.Nil(t, nilProfile.overrides())
}

func TestDecodeProfileTypeErrors(t *testing.T) {

	cases := []map[string]any{
		{"extensions": map[string]any{"basicConstraints": map[string]any{"path_len": "1"}}},
		{"extensions": map[string]any{"basicConstraints": map[string]any{"path_len": 1.5}}},
		{"extensions": map[string]any{"basicConstraints": map[string]any{"ca": "yes"}}},
		{"extensions": map[string]any{"subjectAltName": map[string]any{"dns_names": 7}}},
		{"extensions": map[string]any{"certificatePolicies": map[string]any{"notice_numbers": "1,x"}}},
	}
	for _, input := range cases {
		_, err := DecodeProfile(input, false, nil)
		assert.True(t, errors.Is(err, ErrType), "%v", input)
	}

	// Whole numbers read as floats are accepted
	profile, err := DecodeProfile(map[string]any{
		"extensions": map[string]any{"basicConstraints": map[string]any{"ca": true, "path_len": 2.0}},
	}, true, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, *profile.Extensions.BasicConstraints.PathLen)
}

func TestDecodeProfileUnknownKeys(t *testing.T) {

	input := map[string]any{
		"digest": "SHA256",
		"bogus":  true,
		"extensions": map[string]any{
			"subjectAltName": map[string]any{"dns_names": []string{"a.example.com"}, "typo": 1},
		},
	}

	_, err := DecodeProfile(input, true, nil)
	assert.True(t, errors.Is(err, ErrUnknownProfileKey))

	var buf bytes.Buffer
	logger := logging.NewWriterLogger(slog.LevelDebug, &buf)
	profile, err := DecodeProfile(input, false, logger)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.example.com"}, profile.Extensions.SubjectAltName.DNSNames)
	assert.Contains(t, buf.String(), "ignoring unknown signing profile key")
	assert.Contains(t, buf.String(), "bogus")
}

func TestDecodeProfileDigest(t *testing.T) {

	_, err := DecodeProfile(map[string]any{"digest": "MD5"}, false, nil)
	assert.True(t, errors.Is(err, keystore.ErrInvalidHashFunction))

	_, err = DecodeProfile(map[string]any{"digest": "sha1"}, false, nil)
	assert.True(t, errors.Is(err, keystore.ErrInvalidHashFunction))
}

func TestLoadProfileYAML(t *testing.T) {

	profile, err := LoadProfileYAML([]byte(`
digest: SHA384
extensions:
  basicConstraints:
    ca: true
    path_len: 0
  subjectAltName:
    dns_names: [leaf.example.com]
    emails: [copy]
`), true, nil)
	require.NoError(t, err)
	assert.Equal(t, "SHA384", profile.Digest)
	assert.Equal(t, 0, *profile.Extensions.BasicConstraints.PathLen)
	assert.Equal(t, []string{"copy"}, profile.Extensions.SubjectAltName.Emails)

	_, err = LoadProfileYAML([]byte("digest: [unterminated"), false, nil)
	assert.Error(t, err)
}
