package pkcs11

import (
	"crypto"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"os"
	"testing"

	"github.com/jeremyhahn/go-certificate-authority/pkg/keystore"
	"github.com/jeremyhahn/go-certificate-authority/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requires a SoftHSM token with a key pair labeled SOFTHSM2_KEY_LABEL
// (default "ca").
func softHSMConfig(t *testing.T) Config {
	module := os.Getenv("SOFTHSM2_MODULE")
	label := os.Getenv("SOFTHSM2_TOKEN_LABEL")
	pin := os.Getenv("SOFTHSM2_PIN")
	if module == "" || label == "" || pin == "" {
		t.Skip("SOFTHSM2_MODULE, SOFTHSM2_TOKEN_LABEL and SOFTHSM2_PIN not set")
	}
	keyLabel := os.Getenv("SOFTHSM2_KEY_LABEL")
	if keyLabel == "" {
		keyLabel = "ca"
	}
	return Config{
		Library:    module,
		TokenLabel: label,
		KeyLabel:   keyLabel,
		Pin:        pin,
	}
}

func TestUnconfigured(t *testing.T) {

	km := NewKeyMaterial(nil, Config{})
	assert.True(t, km.IsInHardware())
	assert.False(t, km.IsInMemory())

	errs := validation.ErrorsOf(km)
	assert.Equal(t, 3, errs.Len())
	assert.True(t, errs.On("library"))
	assert.True(t, errs.On("token_label"))
	assert.True(t, errs.On("key_label"))

	_, err := km.PrivateKey()
	assert.True(t, errors.Is(err, keystore.ErrKeyAccess))

	_, err = km.PublicKey()
	assert.True(t, errors.Is(err, keystore.ErrKeyAccess))
	assert.False(t, keystore.HasPrivateKey(km))

	err = km.GenerateKey(2048)
	assert.True(t, errors.Is(err, keystore.ErrUnsupported))

	assert.NoError(t, km.Close())
}

func TestPinWipedFromConfig(t *testing.T) {
	km := NewKeyMaterial(nil, Config{Pin: "1234"})
	assert.Empty(t, km.config.Pin)
	pin, err := km.openPin()
	require.NoError(t, err)
	assert.Equal(t, "1234", pin)

	// the enclave can be opened again after the first buffer is destroyed
	pin, err = km.openPin()
	require.NoError(t, err)
	assert.Equal(t, "1234", pin)

	require.NoError(t, km.SetConfig(Config{Pin: "5678"}))
	assert.Empty(t, km.config.Pin)
	pin, err = km.openPin()
	require.NoError(t, err)
	assert.Equal(t, "5678", pin)

	require.NoError(t, km.SetConfig(Config{}))
	pin, err = km.openPin()
	require.NoError(t, err)
	assert.Empty(t, pin)
}

func TestDeferredConfig(t *testing.T) {

	km := NewKeyMaterial(nil, Config{})

	_, err := km.PrivateKey()
	assert.True(t, errors.Is(err, keystore.ErrKeyAccess))
	assert.True(t, errors.Is(err, ErrNotConfigured))

	// configured after construction, the next access tries the token
	require.NoError(t, km.SetConfig(Config{
		Library:    "/nonexistent/libpkcs11.so",
		TokenLabel: "ca",
		KeyLabel:   "ca",
	}))
	_, err = km.PublicKey()
	assert.True(t, errors.Is(err, ErrModuleLoad))

	// failures are not cached
	require.NoError(t, km.SetConfig(Config{}))
	_, err = km.PublicKey()
	assert.True(t, errors.Is(err, ErrNotConfigured))

	require.NoError(t, km.Close())
	err = km.SetConfig(Config{Library: "/nonexistent/libpkcs11.so"})
	assert.True(t, errors.Is(err, ErrAlreadyClosed))
	_, err = km.PrivateKey()
	assert.True(t, errors.Is(err, ErrAlreadyClosed))
}

func TestKeyIDHex(t *testing.T) {
	assert.Equal(t, []byte{0x46}, Config{KeyID: "46"}.keyID())
	assert.Equal(t, []byte("ca-key"), Config{KeyID: "ca-key"}.keyID())
	assert.Nil(t, Config{}.keyID())
}

func TestMissingModule(t *testing.T) {

	km := NewKeyMaterial(nil, Config{
		Library:    "/nonexistent/libpkcs11.so",
		TokenLabel: "ca",
		KeyLabel:   "ca",
	})
	assert.True(t, validation.Valid(km))

	_, err := km.PrivateKey()
	assert.True(t, errors.Is(err, keystore.ErrKeyAccess))
	assert.True(t, errors.Is(err, ErrModuleLoad))
}

func TestSoftHSMSign(t *testing.T) {

	km := NewKeyMaterial(nil, softHSMConfig(t))
	defer km.Close()

	signer, err := km.PrivateKey()
	require.NoError(t, err)

	pub, err := km.PublicKey()
	require.NoError(t, err)
	assert.Equal(t, pub, signer.Public())

	digest := sha256.Sum256([]byte("some data"))
	sig, err := signer.Sign(rand.Reader, digest[:], crypto.SHA256)
	require.NoError(t, err)
	assert.NotEmpty(t, sig)

	require.NoError(t, km.Close())
	_, err = km.PrivateKey()
	assert.True(t, errors.Is(err, keystore.ErrKeyAccess))
}

func TestSoftHSMRetry(t *testing.T) {

	config := softHSMConfig(t)

	km := NewKeyMaterial(nil, Config{
		Library:    config.Library,
		TokenLabel: "missing-" + config.TokenLabel,
		KeyLabel:   config.KeyLabel,
		Pin:        config.Pin,
	})
	defer km.Close()

	_, err := km.PrivateKey()
	assert.True(t, errors.Is(err, ErrTokenNotFound))

	require.NoError(t, km.SetConfig(config))
	signer, err := km.PrivateKey()
	require.NoError(t, err)
	assert.NotNil(t, signer.Public())
}
