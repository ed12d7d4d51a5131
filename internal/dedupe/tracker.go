// Package dedupe tracks GitHub delivery IDs so redelivered webhooks can be
// acknowledged without posting a second comment. Tracking is off unless a
// window is configured.
package dedupe

import "context"

type DeliveryTracker interface {
	// Seen records deliveryID and reports whether it was already recorded
	// within the window. An empty ID is never considered seen.
	Seen(ctx context.Context, deliveryID string) (bool, error)
	// Forget removes deliveryID so a redelivery is processed again.
	Forget(ctx context.Context, deliveryID string) error
}

type noopTracker struct{}

// NewNoopTracker returns a tracker that never reports duplicates.
func NewNoopTracker() DeliveryTracker {
	return noopTracker{}
}

func (noopTracker) Seen(context.Context, string) (bool, error) {
	return false, nil
}

func (noopTracker) Forget(context.Context, string) error {
	return nil
}
