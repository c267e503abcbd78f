package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// Signer computes payload signatures for outgoing webhooks. Receivers verify
// by recomputing the HMAC over the raw body with the shared secret.
type Signer interface {
	Sign(secret string, payload []byte) string
}

// TokenSource produces random identifiers and secrets. It exists so tests
// can substitute deterministic values.
type TokenSource interface {
	WebhookID() string
}

// HMACSigner is the production Signer: hex-encoded HMAC-SHA256.
type HMACSigner struct{}

func NewHMACSigner() HMACSigner {
	return HMACSigner{}
}

func (HMACSigner) Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a hex signature against the payload in constant time.
func VerifySignature(secret string, payload []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := mac.Sum(nil)
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, got)
}

// UUIDTokenSource is the production TokenSource.
type UUIDTokenSource struct{}

func NewUUIDTokenSource() UUIDTokenSource {
	return UUIDTokenSource{}
}

func (UUIDTokenSource) WebhookID() string {
	return uuid.NewString()
}
