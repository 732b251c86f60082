package pkcs11

import "encoding/hex"

// Config locates a key pair on a PKCS #11 token. Either KeyLabel or KeyID
// identifies the key pair; when both are set, both must match.
type Config struct {
	Library    string `yaml:"library" json:"library" mapstructure:"library"`
	TokenLabel string `yaml:"token_label" json:"token_label" mapstructure:"token_label"`
	Slot       *int   `yaml:"slot" json:"slot" mapstructure:"slot"`
	KeyLabel   string `yaml:"key_label" json:"key_label" mapstructure:"key_label"`
	KeyID      string `yaml:"key_id" json:"key_id" mapstructure:"key_id"`
	Pin        string `yaml:"pin" json:"-" mapstructure:"pin"`
}

// Hex decoded key id, falling back to the raw bytes when KeyID is not hex.
func (c Config) keyID() []byte {
	if c.KeyID == "" {
		return nil
	}
	if id, err := hex.DecodeString(c.KeyID); err == nil {
		return id
	}
	return []byte(c.KeyID)
}

func (c Config) keyLabel() []byte {
	if c.KeyLabel == "" {
		return nil
	}
	return []byte(c.KeyLabel)
}
