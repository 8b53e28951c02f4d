package domain

import "time"

// Webhook event types.
const (
	EventListingSold      = "listing.sold"
	EventListingPurchased = "listing.purchased"
	EventListingCancelled = "listing.cancelled"
)

// Webhook represents an account's subscription to an event notification.
type Webhook struct {
	WebhookID string
	Account   string
	Event     string
	URL       string
	CreatedAt time.Time
	UpdatedAt time.Time
}
