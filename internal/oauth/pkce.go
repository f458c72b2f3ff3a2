package oauth

import (
	"crypto/sha256"
	"encoding/base64"
)

// ChallengeS256 computes the S256 PKCE challenge for a code verifier:
// SHA-256 of the verifier, base64url-encoded without padding.
func ChallengeS256(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}
