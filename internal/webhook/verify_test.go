package webhook

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignature_RoundTrip(t *testing.T) {
	payload := []byte(`{"action":"opened"}`)
	sig := Sign(payload, "s3cret")

	assert.True(t, strings.HasPrefix(sig, "sha256="))
	assert.True(t, VerifySignature(payload, sig, "s3cret"))
}

func TestVerifySignature_WrongSecret(t *testing.T) {
	payload := []byte(`{"action":"opened"}`)
	sig := Sign(payload, "s3cret")

	assert.False(t, VerifySignature(payload, sig, "other"))
}

func TestVerifySignature_TamperedPayload(t *testing.T) {
	sig := Sign([]byte("original"), "s3cret")

	assert.False(t, VerifySignature([]byte("tampered"), sig, "s3cret"))
}

func TestVerifySignature_EmptySecretAlwaysPasses(t *testing.T) {
	assert.True(t, VerifySignature([]byte("anything"), "garbage", ""))
	assert.True(t, VerifySignature([]byte("anything"), "", ""))
}

func TestVerifySignature_EmptySignatureFails(t *testing.T) {
	assert.False(t, VerifySignature([]byte("payload"), "", "s3cret"))
}
