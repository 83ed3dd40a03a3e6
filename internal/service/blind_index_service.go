package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// HMACBlindIndexer implements ports.BlindIndexer using HMAC-SHA256.
// The index lets exact card number lookups run without decrypting rows.
type HMACBlindIndexer struct {
	key []byte
}

// NewHMACBlindIndexer creates an indexer from a hex-encoded key of at least 16 bytes.
func NewHMACBlindIndexer(hexKey string) (*HMACBlindIndexer, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decoding index key: %w", err)
	}
	if len(key) < 16 {
		return nil, fmt.Errorf("index key must be at least 16 bytes, got %d", len(key))
	}
	return &HMACBlindIndexer{key: key}, nil
}

// Index returns the lowercase hex HMAC of number.
func (s *HMACBlindIndexer) Index(number string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(number))
	return hex.EncodeToString(mac.Sum(nil))
}

// Matches compares number against a stored index in constant time.
func (s *HMACBlindIndexer) Matches(number, index string) bool {
	return hmac.Equal([]byte(s.Index(number)), []byte(index))
}
