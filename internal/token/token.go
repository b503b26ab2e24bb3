// Package token generates client request tokens for idempotent transactions.
package token

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// Random returns a fresh random token (a 36 character UUID).
func Random() string {
	return uuid.NewString()
}

// Derive returns a 32 character token derived from parts. The same parts in
// the same order always produce the same token, so a retried transaction with
// identical content is recognised by the store as a replay.
func Derive(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}
