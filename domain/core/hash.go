package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// Short returns the first 12 hex characters, enough to tell runs apart in logs
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// ConfigHash fingerprints a cleaning configuration
type ConfigHash Hash

func (h ConfigHash) String() string { return Hash(h).String() }
func (h ConfigHash) Short() string  { return Hash(h).Short() }

// ComputeConfigHash hashes the canonical JSON encoding of v.
// Struct fields marshal in declaration order, so the result is stable for a given config.
func ComputeConfigHash(v interface{}) (ConfigHash, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode config for hashing: %w", err)
	}
	return ConfigHash(NewHash(data)), nil
}
