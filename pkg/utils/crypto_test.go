package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")

	encrypted, err := Encrypt([]byte("oauth-access-token"), key)
	require.NoError(t, err)
	assert.NotEqual(t, "oauth-access-token", encrypted)

	decrypted, err := Decrypt(encrypted, key)
	require.NoError(t, err)
	assert.Equal(t, "oauth-access-token", decrypted)
}

func TestEncryptProducesUniqueCiphertexts(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")

	first, err := Encrypt([]byte("token"), key)
	require.NoError(t, err)
	second, err := Encrypt([]byte("token"), key)
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "nonce must differ per call")
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	other := []byte("fedcba9876543210fedcba9876543210")

	encrypted, err := Encrypt([]byte("token"), key)
	require.NoError(t, err)

	_, err = Decrypt(encrypted, other)
	assert.Error(t, err)
}

func TestDecryptRejectsGarbage(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")

	_, err := Decrypt("not base64!!!", key)
	assert.Error(t, err)

	_, err = Decrypt("c2hvcnQ=", key)
	assert.Error(t, err)
}

func TestEncryptRejectsBadKeySize(t *testing.T) {
	_, err := Encrypt([]byte("token"), []byte("short"))
	assert.Error(t, err)
}
