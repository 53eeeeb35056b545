// Package hipaa holds field-level protection for PHI stored in the database.
package hipaa

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// sealedPrefix marks values written by AESCipher. Values without it were
// stored before a key was configured and are returned unchanged by Open.
const sealedPrefix = "enc:v1:"

var ErrNoKey = errors.New("value is encrypted but no HIPAA_ENCRYPTION_KEY is configured")

// FieldCipher seals a single text column (signature images) at rest.
type FieldCipher interface {
	Seal(plaintext string) (string, error)
	Open(stored string) (string, error)
}

// NewFieldCipher returns an AES-256-GCM cipher for a 32-byte key, or a
// pass-through cipher when key is nil.
func NewFieldCipher(key []byte) (FieldCipher, error) {
	if key == nil {
		return PlainCipher{}, nil
	}
	return NewAESCipher(key)
}

// IsSealed reports whether stored was produced by AESCipher.Seal.
func IsSealed(stored string) bool {
	return strings.HasPrefix(stored, sealedPrefix)
}

type AESCipher struct {
	aead cipher.AEAD
}

func NewAESCipher(key []byte) (*AESCipher, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("field cipher: key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("field cipher: create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("field cipher: create GCM: %w", err)
	}
	return &AESCipher{aead: aead}, nil
}

// Seal encrypts with a random nonce and returns prefix + base64(nonce||ciphertext).
func (c *AESCipher) Seal(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("seal: generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *AESCipher) Open(stored string) (string, error) {
	if !IsSealed(stored) {
		return stored, nil
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("open: base64 decode: %w", err)
	}
	n := c.aead.NonceSize()
	if len(data) < n {
		return "", errors.New("open: ciphertext too short")
	}
	plain, err := c.aead.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	return string(plain), nil
}

// PlainCipher stores values as-is. Used in development when no key is set.
type PlainCipher struct{}

func (PlainCipher) Seal(plaintext string) (string, error) { return plaintext, nil }

func (PlainCipher) Open(stored string) (string, error) {
	if IsSealed(stored) {
		return "", ErrNoKey
	}
	return stored, nil
}
