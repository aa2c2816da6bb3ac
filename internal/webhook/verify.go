// Package webhook validates and parses inbound GitHub webhook deliveries.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes the X-Hub-Signature-256 header value for a payload.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature matches the HMAC-SHA256 of
// payload under secret. An empty secret disables verification and always
// passes, for environments without a configured webhook secret.
func VerifySignature(payload []byte, signature, secret string) bool {
	if secret == "" {
		return true
	}
	expected := Sign(payload, secret)
	// hmac.Equal is constant time.
	return hmac.Equal([]byte(expected), []byte(signature))
}
