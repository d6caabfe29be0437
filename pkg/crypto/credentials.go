// Package crypto seals connection profile secrets before they are written
// into project metadata files.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

var (
	// ErrInvalidKey is returned when the encryption key is empty.
	ErrInvalidKey = errors.New("encryption key must not be empty")
	// ErrDecryptFailed is returned when ciphertext cannot be opened, which
	// usually means it was sealed under a different key.
	ErrDecryptFailed = errors.New("decrypt failed: ciphertext invalid or wrong key")
)

// SecretCipher seals and opens credential strings with AES-256-GCM.
type SecretCipher struct {
	aead cipher.AEAD
}

// NewSecretCipher builds a cipher from a key string. A base64 value that
// decodes to exactly 32 bytes is used as the key directly; anything else is
// treated as a passphrase and hashed with SHA-256.
func NewSecretCipher(key string) (*SecretCipher, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(deriveKey(key))
	if err != nil {
		return nil, fmt.Errorf("new aes cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}

	return &SecretCipher{aead: aead}, nil
}

func deriveKey(input string) []byte {
	if decoded, err := base64.StdEncoding.DecodeString(input); err == nil && len(decoded) == 32 {
		return decoded
	}
	hash := sha256.Sum256([]byte(input))
	return hash[:]
}

// Encrypt seals plaintext as base64(nonce || ciphertext || tag). Empty
// strings pass through unencrypted.
func (c *SecretCipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt. Empty strings pass through.
func (c *SecretCipher) Decrypt(encrypted string) (string, error) {
	if encrypted == "" {
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return "", fmt.Errorf("%w: not base64", ErrDecryptFailed)
	}

	nonceSize := c.aead.NonceSize()
	if len(data) < nonceSize+c.aead.Overhead() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecryptFailed)
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", ErrDecryptFailed)
	}

	return string(plaintext), nil
}

// EncryptFields returns a copy of a connection config with the named string
// fields sealed. Fields that are absent or not strings are left untouched.
func (c *SecretCipher) EncryptFields(config map[string]any, fields ...string) (map[string]any, error) {
	return c.mapFields(config, fields, c.Encrypt)
}

// DecryptFields returns a copy of a connection config with the named string
// fields opened. Fields that are absent or not strings are left untouched.
func (c *SecretCipher) DecryptFields(config map[string]any, fields ...string) (map[string]any, error) {
	return c.mapFields(config, fields, c.Decrypt)
}

func (c *SecretCipher) mapFields(config map[string]any, fields []string, transform func(string) (string, error)) (map[string]any, error) {
	out := make(map[string]any, len(config))
	for k, v := range config {
		out[k] = v
	}

	for _, field := range fields {
		value, ok := out[field].(string)
		if !ok {
			continue
		}
		transformed, err := transform(value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field, err)
		}
		out[field] = transformed
	}

	return out, nil
}
