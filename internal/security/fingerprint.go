package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

const fingerprintLabel = "advisor/token-fingerprint/v1"

// FingerprintKey derives the key used by Fingerprint from the token signing
// secret, so the signing key itself never keys anything else.
func FingerprintKey(tokenSecret string) string {
	mac := hmac.New(sha256.New, []byte(tokenSecret))
	mac.Write([]byte(fingerprintLabel))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Fingerprint returns a short keyed digest of token for logs and audit
// events. The raw token must never leave the process any other way.
func Fingerprint(key string, token string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(token))
	sum := mac.Sum(nil)
	return base64.RawURLEncoding.EncodeToString(sum[:12])
}
