// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// =============================================================================
// TOKEN SEALING (AES-256-GCM)
// =============================================================================

// The access token is sealed before it touches disk. The key material lives
// in a separate 0600 file next to the session, so a copied session.json alone
// does not leak a usable bearer token.

const (
	// sealedPrefix marks a sealed value (format: ENC:base64(nonce|ciphertext|tag))
	sealedPrefix = "ENC:"

	// nonceSize is the AES-GCM nonce size (12 bytes / 96 bits)
	nonceSize = 12

	// keySize is the AES-256 key size (32 bytes / 256 bits)
	keySize = 32

	// saltSize is the salt size for key derivation (32 bytes)
	saltSize = 32

	// pbkdf2Iterations follows the OWASP 2023 recommendation for
	// PBKDF2-SHA-256
	pbkdf2Iterations = 600000
)

var (
	// ErrInvalidSealed indicates the sealed token format is invalid.
	ErrInvalidSealed = errors.New("invalid sealed token format")
	// ErrUnsealFailed indicates unsealing failed (wrong key or tampered data).
	ErrUnsealFailed = errors.New("unseal failed: authentication tag mismatch")
)

// zeroBytes zeros sensitive byte slices after use.
func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// sealer encrypts and decrypts token values with a key loaded from, or
// created in, a key file.
type sealer struct {
	aead cipher.AEAD
}

// newSealer loads the key file at keyPath, creating it on first use.
// The file holds base64(salt|master); the AES key is derived with
// PBKDF2-SHA-256.
func newSealer(keyPath string) (*sealer, error) {
	raw, err := os.ReadFile(keyPath)
	if errors.Is(err, os.ErrNotExist) {
		raw, err = createKeyFile(keyPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session key: %w", err)
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil || len(decoded) != saltSize+keySize {
		return nil, fmt.Errorf("corrupt session key file %s", keyPath)
	}
	defer zeroBytes(decoded)

	salt := decoded[:saltSize]
	master := decoded[saltSize:]

	key := pbkdf2.Key(master, salt, pbkdf2Iterations, keySize, sha256.New)
	defer zeroBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &sealer{aead: aead}, nil
}

// createKeyFile generates fresh salt and master key material and writes it
// with owner-only permissions.
func createKeyFile(path string) ([]byte, error) {
	material := make([]byte, saltSize+keySize)
	if _, err := io.ReadFull(rand.Reader, material); err != nil {
		return nil, fmt.Errorf("failed to generate key material: %w", err)
	}

	encoded := []byte(base64.StdEncoding.EncodeToString(material))
	zeroBytes(material)

	if err := os.WriteFile(path, encoded, 0600); err != nil {
		return nil, fmt.Errorf("failed to write session key: %w", err)
	}
	return encoded, nil
}

// seal encrypts a token for storage. Empty tokens are stored as-is.
func (s *sealer) seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// unseal decrypts a stored token. Values without the sealed prefix are
// returned unchanged so plaintext sessions written before sealing was
// enabled still load.
func (s *sealer) unseal(value string) (string, error) {
	if value == "" || !strings.HasPrefix(value, sealedPrefix) {
		return value, nil
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return "", ErrInvalidSealed
	}
	if len(raw) < nonceSize+1 {
		return "", ErrInvalidSealed
	}

	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrUnsealFailed
	}
	return string(plaintext), nil
}

// isSealed reports whether a stored value carries the sealed prefix.
func isSealed(value string) bool {
	return strings.HasPrefix(value, sealedPrefix)
}
