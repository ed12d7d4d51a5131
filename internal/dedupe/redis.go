package dedupe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultKeyPrefix = "issue-commenter:delivery:"

// RedisClient is the subset of redis.Cmdable the tracker needs.
type RedisClient interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisTracker struct {
	client RedisClient
	prefix string
	window time.Duration
	logger *slog.Logger
}

// NewRedisTracker shares delivery IDs across replicas with SET NX and a TTL
// equal to the window.
func NewRedisTracker(client RedisClient, window time.Duration, logger *slog.Logger) DeliveryTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisTracker{
		client: client,
		prefix: DefaultKeyPrefix,
		window: window,
		logger: logger,
	}
}

func (t *redisTracker) Seen(ctx context.Context, deliveryID string) (bool, error) {
	if deliveryID == "" {
		return false, nil
	}

	created, err := t.client.SetNX(ctx, t.prefix+deliveryID, time.Now().Unix(), t.window).Result()
	if err != nil {
		return false, fmt.Errorf("record delivery %s: %w", deliveryID, err)
	}
	if !created {
		t.logger.DebugContext(ctx, "delivery already recorded", "delivery_id", deliveryID)
	}
	return !created, nil
}

func (t *redisTracker) Forget(ctx context.Context, deliveryID string) error {
	if deliveryID == "" {
		return nil
	}
	if err := t.client.Del(ctx, t.prefix+deliveryID).Err(); err != nil {
		return fmt.Errorf("forget delivery %s: %w", deliveryID, err)
	}
	return nil
}
