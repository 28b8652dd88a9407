package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// RandomBytes reads n bytes from the operating system CSPRNG.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to read %d random bytes: %w", n, err)
	}
	return b, nil
}

// EncodeKey returns the lowercase hex form of a DEK. For a KeySize key the result is
// HexKeyLength characters and is what gets handed to the firewall as its backup password.
func EncodeKey(key []byte) string {
	return hex.EncodeToString(key)
}

// Zero overwrites b with zeros. Safe to call with nil.
func Zero(b []byte) {
	clear(b)
}
