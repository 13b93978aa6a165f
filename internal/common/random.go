package common

import (
	"crypto/rand"
	"encoding/base64"
)

// MakeRandTokenString generates an opaque URL-safe token from size random
// bytes. Refresh tokens use size=32, giving 256 bits of entropy.
func MakeRandTokenString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
