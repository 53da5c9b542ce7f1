package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// DefaultTokenBytes yields 43 characters of base64url, comfortably above
// the guessing threshold for an opaque session token.
const DefaultTokenBytes = 32

// GenerateToken returns a URL-safe session token built from n bytes of
// cryptographically secure randomness. n values below DefaultTokenBytes are
// raised to it so misconfiguration cannot weaken tokens.
func GenerateToken(n int) (string, error) {
	if n < DefaultTokenBytes {
		n = DefaultTokenBytes
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
