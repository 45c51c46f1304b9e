package auth

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/samber/oops"
)

// OpaqueTokenBytes is the entropy of verification and reset tokens (64 hex chars).
const OpaqueTokenBytes = 32

// RandomHex returns byteLength cryptographically random bytes, hex encoded.
func RandomHex(byteLength int) (string, error) {
	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", oops.Code("AUTH_RANDOM_FAILED").Wrap(err)
	}
	return hex.EncodeToString(buf), nil
}
