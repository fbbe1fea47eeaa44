package common

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sha256Hex digests the input and returns lowercase hex. Used wherever a
// secret (refresh token) must be stored in a lookup-able but unreadable form.
func Sha256Hex(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}
