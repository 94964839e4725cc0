package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
)

// Tokens are stored as the hex concatenation iv(16B) || authTag(16B) ||
// ciphertext, AES-256-GCM, key = SHA-256(secret).
const (
	gcmNonceSize = 16
	gcmTagSize   = 16
)

var ErrInvalidCiphertext = errors.New("invalid ciphertext")

// DeriveKey hashes the configured secret down to the 32-byte AES-256 key.
func DeriveKey(secret []byte) []byte {
	key := sha256.Sum256(secret)
	return key[:]
}

func Encrypt(plaintext, secret []byte) (string, error) {
	block, err := aes.NewCipher(DeriveKey(secret))
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	aesGCM, err := cipher.NewGCMWithNonceSize(block, gcmNonceSize)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	nonce := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		slog.Info(err.Error())
		return "", err
	}

	// Seal returns ciphertext||tag; the stored layout wants the tag in
	// the middle, so split it back off.
	sealed := aesGCM.Seal(nil, nonce, plaintext, nil)
	ciphertext, tag := sealed[:len(sealed)-gcmTagSize], sealed[len(sealed)-gcmTagSize:]

	return hex.EncodeToString(nonce) + hex.EncodeToString(tag) + hex.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt. A bad tag or corrupt blob returns an error,
// never wrong plaintext.
func Decrypt(encryptedData string, secret []byte) (string, error) {
	data, err := hex.DecodeString(encryptedData)
	if err != nil {
		slog.Info(err.Error())
		return "", ErrInvalidCiphertext
	}
	if len(data) < gcmNonceSize+gcmTagSize {
		return "", ErrInvalidCiphertext
	}

	nonce := data[:gcmNonceSize]
	tag := data[gcmNonceSize : gcmNonceSize+gcmTagSize]
	ciphertext := data[gcmNonceSize+gcmTagSize:]

	block, err := aes.NewCipher(DeriveKey(secret))
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	aesGCM, err := cipher.NewGCMWithNonceSize(block, gcmNonceSize)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	plaintext, err := aesGCM.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		slog.Info(err.Error())
		return "", ErrInvalidCiphertext
	}

	return string(plaintext), nil
}
