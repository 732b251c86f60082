package pkcs11

import (
	"crypto"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ThalesIgnite/crypto11"
	"github.com/awnumar/memguard"
	"github.com/jeremyhahn/go-certificate-authority/pkg/keystore"
	"github.com/jeremyhahn/go-certificate-authority/pkg/logging"
	"github.com/jeremyhahn/go-certificate-authority/pkg/validation"

	libpkcs11 "github.com/miekg/pkcs11"
)

var (
	ErrModuleLoad    = errors.New("keystore/pkcs11: unable to load PKCS #11 module")
	ErrKeyNotFound   = errors.New("keystore/pkcs11: key pair not found on token")
	ErrTokenNotFound = errors.New("keystore/pkcs11: token not found")
	ErrNotConfigured = errors.New("keystore/pkcs11: library and token label required")
	ErrAlreadyClosed = errors.New("keystore/pkcs11: key material closed")
)

// KeyMaterial is a key pair that lives on a PKCS #11 token. The private key
// never leaves the token; PrivateKey returns a signer that asks the token to
// sign. The token context is opened on first successful use and reused
// until SetConfig or Close.
type KeyMaterial struct {
	logger *logging.Logger
	config Config
	pin    *memguard.Enclave

	mu     sync.Mutex
	closed bool
	ctx    *crypto11.Context
	signer crypto11.Signer
}

// NewKeyMaterial stores the PIN in an encrypted enclave and wipes it from
// the config. No token access happens until a key is requested, so the
// config may be incomplete and supplied later with SetConfig.
func NewKeyMaterial(logger *logging.Logger, config Config) *KeyMaterial {
	if logger == nil {
		logger = logging.DiscardLogger()
	}
	km := &KeyMaterial{logger: logger}
	km.setConfig(config)
	return km
}

// SetConfig replaces the token configuration. An open token context is
// released and the next key access initializes against the new config.
func (km *KeyMaterial) SetConfig(config Config) error {
	km.mu.Lock()
	defer km.mu.Unlock()
	if km.closed {
		return ErrAlreadyClosed
	}
	if err := km.release(); err != nil {
		km.logger.MaybeError(err)
	}
	km.setConfig(config)
	return nil
}

func (km *KeyMaterial) setConfig(config Config) {
	km.config = config
	km.pin = nil
	if config.Pin != "" {
		km.pin = memguard.NewEnclave([]byte(config.Pin))
	}
	km.config.Pin = ""
}

func (km *KeyMaterial) IsInHardware() bool {
	return true
}

func (km *KeyMaterial) IsInMemory() bool {
	return false
}

// GenerateKey is not supported; keys are provisioned on the token with
// vendor tooling.
func (km *KeyMaterial) GenerateKey(bits int) error {
	return fmt.Errorf("%w: key generation in hardware", keystore.ErrUnsupported)
}

func (km *KeyMaterial) Validate(errs *validation.Errors) {
	if km.config.Library == "" {
		errs.Add("library", "is required")
	}
	if km.config.TokenLabel == "" {
		errs.Add("token_label", "is required")
	}
	if km.config.KeyLabel == "" && km.config.KeyID == "" {
		errs.Add("key_label", "or key_id is required")
	}
}

func (km *KeyMaterial) PublicKey() (crypto.PublicKey, error) {
	signer, err := km.load()
	if err != nil {
		return nil, err
	}
	return signer.Public(), nil
}

// PrivateKey returns a signer backed by the token. Concurrent Sign calls
// are serialized.
func (km *KeyMaterial) PrivateKey() (crypto.Signer, error) {
	signer, err := km.load()
	if err != nil {
		return nil, err
	}
	return &tokenSigner{mu: &km.mu, signer: signer}, nil
}

// Close releases the token context. The key material can not be used
// afterwards.
func (km *KeyMaterial) Close() error {
	km.mu.Lock()
	defer km.mu.Unlock()
	km.closed = true
	return km.release()
}

func (km *KeyMaterial) release() error {
	km.signer = nil
	if km.ctx == nil {
		return nil
	}
	err := km.ctx.Close()
	km.ctx = nil
	return err
}

// Returns the token signer, initializing the token context on every access
// until one succeeds.
func (km *KeyMaterial) load() (crypto11.Signer, error) {
	km.mu.Lock()
	defer km.mu.Unlock()

	if km.closed {
		return nil, fmt.Errorf("%w: %w", keystore.ErrKeyAccess, ErrAlreadyClosed)
	}
	if km.signer == nil {
		if err := km.initialize(); err != nil {
			return nil, fmt.Errorf("%w: %w", keystore.ErrKeyAccess, err)
		}
	}
	return km.signer, nil
}

// Opens the crypto11 context and looks up the key pair.
func (km *KeyMaterial) initialize() error {

	if km.config.Library == "" || km.config.TokenLabel == "" {
		km.logger.Debug("pkcs11: library or token label not configured, skipping token initialization")
		return ErrNotConfigured
	}

	if err := km.inspect(); err != nil {
		km.logger.Error(err)
		return err
	}

	pin, err := km.openPin()
	if err != nil {
		return err
	}

	ctx, err := crypto11.Configure(&crypto11.Config{
		Path:       km.config.Library,
		TokenLabel: km.config.TokenLabel,
		Pin:        pin,
	})
	if err != nil {
		km.logger.Error(err)
		return err
	}

	signer, err := ctx.FindKeyPair(km.config.keyID(), km.config.keyLabel())
	if err != nil {
		ctx.Close()
		km.logger.Error(err)
		return err
	}
	if signer == nil {
		ctx.Close()
		return fmt.Errorf("%w: label=%q id=%q",
			ErrKeyNotFound, km.config.KeyLabel, km.config.KeyID)
	}

	km.ctx = ctx
	km.signer = signer
	return nil
}

func (km *KeyMaterial) openPin() (string, error) {
	if km.pin == nil {
		return "", nil
	}
	buf, err := km.pin.Open()
	if err != nil {
		return "", err
	}
	defer buf.Destroy()
	return string(buf.Bytes()), nil
}

// Loads the module with the low level PKCS #11 API to log the vendor
// library info and confirm the token is present before handing the
// library over to crypto11.
func (km *KeyMaterial) inspect() error {

	lib := libpkcs11.New(km.config.Library)
	if lib == nil {
		return fmt.Errorf("%w: %s", ErrModuleLoad, km.config.Library)
	}
	defer lib.Destroy()

	if err := lib.Initialize(); err != nil {
		return err
	}
	defer lib.Finalize()

	info, err := lib.GetInfo()
	if err != nil {
		return err
	}
	km.logger.Debugf("pkcs11: Manufacturer: %s", info.ManufacturerID)
	km.logger.Debugf("pkcs11: Description: %s", info.LibraryDescription)
	km.logger.Debugf("pkcs11: Version: %d.%d",
		info.LibraryVersion.Major, info.LibraryVersion.Minor)
	km.logger.Debugf("pkcs11: Cryptoki: %d.%d",
		info.CryptokiVersion.Major, info.CryptokiVersion.Minor)

	slots, err := lib.GetSlotList(true)
	if err != nil {
		return err
	}
	for _, slot := range slots {
		if km.config.Slot != nil && uint(*km.config.Slot) != slot {
			continue
		}
		token, err := lib.GetTokenInfo(slot)
		if err != nil {
			return err
		}
		km.logger.Debugf("pkcs11: slot %d: token %q", slot, token.Label)
		if token.Label == km.config.TokenLabel {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrTokenNotFound, km.config.TokenLabel)
}

type tokenSigner struct {
	mu     *sync.Mutex
	signer crypto.Signer
}

func (s *tokenSigner) Public() crypto.PublicKey {
	return s.signer.Public()
}

func (s *tokenSigner) Sign(rand io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signer.Sign(rand, digest, opts)
}
