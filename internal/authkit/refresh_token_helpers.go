package authkit

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// RefreshTokenDigest returns the value persisted in place of a refresh token.
func RefreshTokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// DigestsEqual compares two digests in constant time. Empty digests never match.
func DigestsEqual(stored string, candidate string) bool {
	if stored == "" || candidate == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1
}
