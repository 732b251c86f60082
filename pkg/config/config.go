package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jeremyhahn/go-certificate-authority/pkg/ca"
	"github.com/jeremyhahn/go-certificate-authority/pkg/keystore"
	"github.com/jeremyhahn/go-certificate-authority/pkg/keystore/pkcs11"
	"github.com/jeremyhahn/go-certificate-authority/pkg/logging"
	"github.com/jeremyhahn/go-certificate-authority/pkg/validation"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "CA"

	DefaultValidity = 365
	DefaultLogLevel = "info"
)

var (
	ErrUnknownProfile = errors.New("config: unknown signing profile")
)

// Config is the certificate authority configuration file.
//
//	key_size: 2048
//	digest: SHA256
//	validity: 365
//	crl_next_update: 4h
//	ocsp_next_update: 30s
//	profiles:
//	  server:
//	    extensions:
//	      extendedKeyUsage:
//	        usage: [serverAuth]
type Config struct {
	Home           string                    `yaml:"home" json:"home" mapstructure:"home"`
	LogLevel       string                    `yaml:"log_level" json:"log_level" mapstructure:"log_level"`
	LogFile        string                    `yaml:"log_file" json:"log_file" mapstructure:"log_file"`
	KeySize        int                       `yaml:"key_size" json:"key_size" mapstructure:"key_size"`
	Digest         string                    `yaml:"digest" json:"digest" mapstructure:"digest"`
	Validity       int                       `yaml:"validity" json:"validity" mapstructure:"validity"`
	CRLNextUpdate  time.Duration             `yaml:"crl_next_update" json:"crl_next_update" mapstructure:"crl_next_update"`
	OCSPNextUpdate time.Duration             `yaml:"ocsp_next_update" json:"ocsp_next_update" mapstructure:"ocsp_next_update"`
	StrictProfiles bool                      `yaml:"strict_profiles" json:"strict_profiles" mapstructure:"strict_profiles"`
	Profiles       map[string]map[string]any `yaml:"profiles" json:"profiles" mapstructure:"profiles"`
	PKCS11         *pkcs11.Config            `yaml:"pkcs11" json:"pkcs11" mapstructure:"pkcs11"`
}

// SetDefaults registers the default of every setting with v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("home", "ca-data")
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("key_size", keystore.DefaultKeySize)
	v.SetDefault("digest", keystore.DefaultDigest)
	v.SetDefault("validity", DefaultValidity)
	v.SetDefault("crl_next_update", ca.DefaultCRLNextUpdate)
	v.SetDefault("ocsp_next_update", ca.DefaultOCSPNextUpdate)
	v.SetDefault("strict_profiles", false)
}

// Load reads the YAML configuration file at path from fs. An empty path
// loads the defaults. Environment variables prefixed with CA_ override the
// file, ex: CA_KEY_SIZE=4096.
func Load(fs afero.Fs, path string) (*Config, error) {
	v := viper.New()
	v.SetFs(fs)
	return LoadViper(v, path)
}

// LoadViper is Load for a caller supplied viper instance, ex: one with
// command line flags bound to it.
func LoadViper(v *viper.Viper, path string) (*Config, error) {

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, err
	}
	if err := validation.Check(config); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate(errs *validation.Errors) {
	if c.KeySize < 1024 {
		errs.Add("key_size", "must be at least 1024")
	}
	if _, err := keystore.ParseHash(c.Digest); err != nil {
		errs.Addf("digest", "is not supported: %s", c.Digest)
	}
	if c.Validity <= 0 {
		errs.Add("validity", "must be greater than zero")
	}
	if c.CRLNextUpdate < 0 {
		errs.Add("crl_next_update", "must be greater than or equal to zero")
	}
	if c.OCSPNextUpdate < 0 {
		errs.Add("ocsp_next_update", "must be greater than or equal to zero")
	}
}

// ValidityPeriod returns the configured validity as a duration.
func (c *Config) ValidityPeriod() time.Duration {
	return time.Duration(c.Validity) * 24 * time.Hour
}

// Profile decodes the named signing profile. An empty name returns a
// profile carrying only the configured digest.
func (c *Config) Profile(name string, logger *logging.Logger) (*ca.SigningProfile, error) {
	if name == "" {
		return &ca.SigningProfile{Digest: c.Digest}, nil
	}
	input, ok := c.Profiles[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProfile, name)
	}
	profile, err := ca.DecodeProfile(input, c.StrictProfiles, logger)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", name, err)
	}
	if profile.Digest == "" {
		profile.Digest = c.Digest
	}
	return profile, nil
}

// HasPKCS11 reports whether a hardware token is configured.
func (c *Config) HasPKCS11() bool {
	return c.PKCS11 != nil && c.PKCS11.Library != ""
}
