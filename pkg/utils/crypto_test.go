package utils

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	secret := []byte("test-secret")

	cases := []string{
		"",
		"a",
		"plain access token",
		strings.Repeat("x", 4096),
		"unicode: héllo wörld 你好",
	}

	for _, plaintext := range cases {
		encrypted, err := Encrypt([]byte(plaintext), secret)
		require.NoError(t, err)

		decrypted, err := Decrypt(encrypted, secret)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	}
}

func TestEncryptFormat(t *testing.T) {
	encrypted, err := Encrypt([]byte("token"), []byte("secret"))
	require.NoError(t, err)

	// hex iv(16B) || tag(16B) || ciphertext
	raw, err := hex.DecodeString(encrypted)
	require.NoError(t, err)
	assert.Equal(t, 16+16+len("token"), len(raw))
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	secret := []byte("test-secret")
	encrypted, err := Encrypt([]byte("sensitive token"), secret)
	require.NoError(t, err)

	// Flip a byte inside the auth tag (hex chars 32..63).
	tampered := []byte(encrypted)
	if tampered[40] == 'a' {
		tampered[40] = 'b'
	} else {
		tampered[40] = 'a'
	}

	_, err = Decrypt(string(tampered), secret)
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestDecryptWrongKey(t *testing.T) {
	encrypted, err := Encrypt([]byte("token"), []byte("secret-a"))
	require.NoError(t, err)

	_, err = Decrypt(encrypted, []byte("secret-b"))
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestDecryptGarbage(t *testing.T) {
	for _, blob := range []string{"", "zzzz", "deadbeef", hex.EncodeToString(make([]byte, 16))} {
		_, err := Decrypt(blob, []byte("secret"))
		assert.Error(t, err, "blob %q", blob)
	}
}
