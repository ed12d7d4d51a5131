package dto

// WebhookResponse is the body returned to GitHub for accepted deliveries.
type WebhookResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	Repository string `json:"repository,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Event      string `json:"event,omitempty"`
	DeliveryID string `json:"delivery_id,omitempty"`
}

const (
	WebhookStatusSuccess   = "success"
	WebhookStatusSkipped   = "skipped"
	WebhookStatusOK        = "ok"
	WebhookStatusDuplicate = "duplicate"
)
