package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// Webhook event types the reconciler acts on. Everything else is logged
// and ignored.
const (
	EventChargeSuccess = "charge.success"
	EventChargeFailed  = "charge.failed"
)

// WebhookEvent is the gateway-pushed notification envelope.
type WebhookEvent struct {
	Event string      `json:"event"`
	Data  WebhookData `json:"data"`
}

// WebhookData carries the transaction fields the reconciler consumes.
type WebhookData struct {
	ID          int64    `json:"id"`
	Reference   string   `json:"reference"`
	Status      string   `json:"status"`
	AmountMinor int64    `json:"amount"`
	Metadata    Metadata `json:"metadata"`
}

// ValidateSignature reports whether signature is the hex HMAC-SHA512 of
// payload keyed by secret. It never errors; any mismatch, including a
// malformed header, is false.
func ValidateSignature(payload []byte, signature, secret string) bool {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
