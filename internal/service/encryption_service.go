package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"bank-cards/pkg/apperror"
)

// gcmNonceSize is the 96-bit nonce mandated for stored card numbers.
const gcmNonceSize = 12

// AESCardNumberCodec implements ports.CardNumberCodec using AES-256-GCM.
// Stored form: base64(nonce(12) || ciphertext || tag(16)).
type AESCardNumberCodec struct {
	aead cipher.AEAD
}

// NewAESCardNumberCodec creates a codec from a 64-character hex key (32 bytes decoded).
func NewAESCardNumberCodec(hexKey string) (*AESCardNumberCodec, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decoding AES key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("AES key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, gcmNonceSize)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return &AESCardNumberCodec{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random nonce.
// An empty plaintext is passed through untouched.
func (s *AESCardNumberCodec) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", apperror.ErrEncryptionFailure(fmt.Errorf("generating nonce: %w", err))
	}

	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt. Any malformed or tampered
// input yields a DecryptionError.
func (s *AESCardNumberCodec) Decrypt(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", apperror.ErrDecryption(fmt.Errorf("decoding ciphertext: %w", err))
	}
	if len(raw) < gcmNonceSize+s.aead.Overhead() {
		return "", apperror.ErrDecryption(errors.New("ciphertext too short"))
	}

	nonce, sealed := raw[:gcmNonceSize], raw[gcmNonceSize:]
	plaintext, err := s.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", apperror.ErrDecryption(fmt.Errorf("decrypting: %w", err))
	}

	return string(plaintext), nil
}
