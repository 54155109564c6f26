// Package id generates the public identifiers for funding events. These
// are API-facing; database rows keep their own auto-increment keys.
package id

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID32 returns exactly 32 lowercase hex characters (no separators or
// prefixes), so an event id is visually distinct from a 0x-prefixed
// chain tx ref.
func NewID32() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
