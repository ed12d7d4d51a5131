package dedupe

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultMaxTracked bounds the memory tracker when deliveries arrive faster
// than the window expires them.
const DefaultMaxTracked = 10_000

type memoryTracker struct {
	mu         sync.Mutex
	deliveries map[string]time.Time
	window     time.Duration
	maxTracked int
	clock      clockwork.Clock
}

func NewMemoryTracker(window time.Duration, maxTracked int, clock clockwork.Clock) DeliveryTracker {
	if maxTracked <= 0 {
		maxTracked = DefaultMaxTracked
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &memoryTracker{
		deliveries: make(map[string]time.Time),
		window:     window,
		maxTracked: maxTracked,
		clock:      clock,
	}
}

func (t *memoryTracker) Seen(_ context.Context, deliveryID string) (bool, error) {
	if deliveryID == "" {
		return false, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	if receivedAt, ok := t.deliveries[deliveryID]; ok && now.Sub(receivedAt) <= t.window {
		return true, nil
	}

	if len(t.deliveries) >= t.maxTracked {
		t.evict(now)
	}
	t.deliveries[deliveryID] = now
	return false, nil
}

func (t *memoryTracker) Forget(_ context.Context, deliveryID string) error {
	t.mu.Lock()
	delete(t.deliveries, deliveryID)
	t.mu.Unlock()
	return nil
}

// evict drops expired entries, then the oldest one if still at the bound.
func (t *memoryTracker) evict(now time.Time) {
	var (
		oldestID string
		oldestAt time.Time
	)
	for id, receivedAt := range t.deliveries {
		if now.Sub(receivedAt) > t.window {
			delete(t.deliveries, id)
			continue
		}
		if oldestID == "" || receivedAt.Before(oldestAt) {
			oldestID, oldestAt = id, receivedAt
		}
	}
	if len(t.deliveries) >= t.maxTracked && oldestID != "" {
		delete(t.deliveries, oldestID)
	}
}
