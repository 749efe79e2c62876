package keystore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSeed = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("scrypt is slow, skipping in -short mode")
	}

	encrypted, err := EncryptSeed(testSeed, "correct horse battery staple")
	require.NoError(t, err)
	assert.Equal(t, 3, encrypted.Version)
	assert.Equal(t, "scrypt", encrypted.Crypto.KDF)
	assert.NotContains(t, encrypted.Crypto.CipherText, "abandon")

	decrypted, err := DecryptSeed(encrypted, "correct horse battery staple")
	require.NoError(t, err)
	assert.Equal(t, testSeed, decrypted)
}

func TestDecryptWrongPassword(t *testing.T) {
	if testing.Short() {
		t.Skip("scrypt is slow, skipping in -short mode")
	}

	encrypted, err := EncryptSeed(testSeed, "right password")
	require.NoError(t, err)

	_, err = DecryptSeed(encrypted, "wrong password")
	assert.ErrorIs(t, err, ErrMACMismatch)
}

func TestSaveLoadFile(t *testing.T) {
	if testing.Short() {
		t.Skip("scrypt is slow, skipping in -short mode")
	}

	encrypted, err := EncryptSeed(testSeed, "pw")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "device.json")
	require.NoError(t, SaveToFile(encrypted, path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, encrypted.Id, loaded.Id)

	decrypted, err := DecryptSeed(loaded, "pw")
	require.NoError(t, err)
	assert.Equal(t, testSeed, decrypted)
}
