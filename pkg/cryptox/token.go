package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// Fingerprint returns a deterministic SHA-256 digest of token, base64url
// encoded. Workflow tokens (password reset, email verification) are stored
// only as fingerprints so a leaked database row cannot be replayed.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// FingerprintMatches compares token against a stored fingerprint in constant
// time.
func FingerprintMatches(token, fingerprint string) bool {
	return subtle.ConstantTimeCompare([]byte(Fingerprint(token)), []byte(fingerprint)) == 1
}
