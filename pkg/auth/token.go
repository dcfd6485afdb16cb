package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// NewSessionToken returns an opaque 256-bit session token. Tokens are
// stored server-side, so they carry no claims and can be revoked.
func NewSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
