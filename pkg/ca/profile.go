package ca

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/jeremyhahn/go-certificate-authority/pkg/extensions"
	"github.com/jeremyhahn/go-certificate-authority/pkg/keystore"
	"github.com/jeremyhahn/go-certificate-authority/pkg/logging"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v2"
)

// SigningProfile overrides the digest and extension values used when a
// certificate or revocation list is signed.
//
//	digest: SHA256
//	extensions:
//	  basicConstraints:
//	    ca: true
//	    path_len: 0
//	  subjectAltName:
//	    dns_names: [leaf.example.com]
//	    emails: [copy]
type SigningProfile struct {
	Digest     string               `mapstructure:"digest" yaml:"digest,omitempty" json:"digest,omitempty"`
	Extensions extensions.Overrides `mapstructure:"extensions" yaml:"extensions,omitempty" json:"extensions,omitempty"`
}

var (
	intSliceType = reflect.TypeOf([]int{})
)

func (p *SigningProfile) digest() string {
	if p == nil || p.Digest == "" {
		return keystore.DefaultDigest
	}
	return p.Digest
}

func (p *SigningProfile) overrides() *extensions.Overrides {
	if p == nil {
		return nil
	}
	return &p.Extensions
}

// DecodeProfile decodes a signing profile from a generic map, as read from
// JSON, YAML or viper. Values of the wrong type fail with ErrType. Keys that
// match no profile field are logged and ignored, or rejected with
// ErrUnknownProfileKey when strict is set.
func DecodeProfile(input any, strict bool, logger *logging.Logger) (*SigningProfile, error) {

	if logger == nil {
		logger = logging.DiscardLogger()
	}

	profile := &SigningProfile{}
	if input == nil {
		return profile, nil
	}

	var metadata mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.DecodeHookFuncType(fractionalIntHook),
			mapstructure.DecodeHookFuncType(noticeNumbersHook),
		),
		Metadata: &metadata,
		Result:   profile,
		TagName:  "mapstructure",
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(input); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrType, err)
	}

	if len(metadata.Unused) > 0 {
		unused := append([]string(nil), metadata.Unused...)
		sort.Strings(unused)
		if strict {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProfileKey, strings.Join(unused, ", "))
		}
		for _, key := range unused {
			logger.Warn("ignoring unknown signing profile key", "key", key)
		}
	}

	if profile.Digest != "" {
		if _, err := keystore.ParseHash(profile.Digest); err != nil {
			return nil, err
		}
	}
	return profile, nil
}

// LoadProfileYAML decodes a YAML signing profile document.
func LoadProfileYAML(data []byte, strict bool, logger *logging.Logger) (*SigningProfile, error) {
	var input map[string]interface{}
	if err := yaml.Unmarshal(data, &input); err != nil {
		return nil, err
	}
	return DecodeProfile(input, strict, logger)
}

// Integers must not silently lose a fractional part.
func fractionalIntHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.Int {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Float32, reflect.Float64:
		f := reflect.ValueOf(data).Float()
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("%w: %v is not an integer", ErrType, data)
		}
	}
	return data, nil
}

// Accepts notice numbers in the "1,2,3" form used by the extension grammar.
func noticeNumbersHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != intSliceType {
		return data, nil
	}
	numbers, err := extensions.ParseNoticeNumbers(reflect.ValueOf(data).String())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrType, err)
	}
	return numbers, nil
}
