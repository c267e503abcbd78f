package webhook

// Envelope is the signed JSON object delivered to a receiver. The field
// order is fixed by this declaration; the serialized bytes are signed once
// and sent unmodified, so receivers can verify over the raw body.
type Envelope struct {
	EventType string         `json:"event_type"`
	UserID    string         `json:"user_id"`
	Timestamp string         `json:"timestamp"`
	WebhookID string         `json:"webhook_id"`
	Data      map[string]any `json:"data"`
}

// DeliveryReport is the per-subscription outcome returned to the caller of
// Dispatch.
type DeliveryReport struct {
	SubscriptionID   string `json:"subscription_id"`
	SubscriptionName string `json:"subscription_name"`
	Success          bool   `json:"success"`
	Status           int    `json:"status"`
}

// Delivery headers.
const (
	HeaderSignature = "X-Lovable-Signature"
	HeaderWebhookID = "X-Webhook-ID"
	HeaderEventType = "X-Event-Type"
)
