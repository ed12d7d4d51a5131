package dedupe_test

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"github.com/Mohwit/github-app-issue-commenter/internal/dedupe"
)

type mockRedisClient struct {
	setNXFn func(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	delFn   func(ctx context.Context, keys ...string) *redis.IntCmd
}

func (m *mockRedisClient) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	return m.setNXFn(ctx, key, value, expiration)
}

func (m *mockRedisClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	if m.delFn != nil {
		return m.delFn(ctx, keys...)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

var _ = Describe("DeliveryTracker", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("noop", func() {
		It("never reports a duplicate", func() {
			t := dedupe.NewNoopTracker()
			for i := 0; i < 3; i++ {
				seen, err := t.Seen(ctx, "abc")
				Expect(err).NotTo(HaveOccurred())
				Expect(seen).To(BeFalse())
			}
		})
	})

	Describe("memory", func() {
		var (
			clock   *clockwork.FakeClock
			tracker dedupe.DeliveryTracker
		)

		BeforeEach(func() {
			clock = clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
			tracker = dedupe.NewMemoryTracker(time.Hour, 3, clock)
		})

		seen := func(id string) bool {
			s, err := tracker.Seen(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			return s
		}

		It("reports a repeated delivery within the window", func() {
			Expect(seen("a")).To(BeFalse())
			Expect(seen("a")).To(BeTrue())
			Expect(seen("b")).To(BeFalse())
		})

		It("forgets deliveries after the window", func() {
			Expect(seen("a")).To(BeFalse())
			clock.Advance(time.Hour + time.Second)
			Expect(seen("a")).To(BeFalse())
			Expect(seen("a")).To(BeTrue())
		})

		It("ignores empty delivery ids", func() {
			Expect(seen("")).To(BeFalse())
			Expect(seen("")).To(BeFalse())
		})

		It("processes a forgotten delivery again", func() {
			Expect(seen("a")).To(BeFalse())
			Expect(tracker.Forget(ctx, "a")).To(Succeed())
			Expect(seen("a")).To(BeFalse())
			Expect(seen("a")).To(BeTrue())
		})

		It("evicts the oldest delivery at the bound", func() {
			for _, id := range []string{"a", "b", "c"} {
				Expect(seen(id)).To(BeFalse())
				clock.Advance(time.Second)
			}
			Expect(seen("d")).To(BeFalse())

			Expect(seen("b")).To(BeTrue())
			Expect(seen("a")).To(BeFalse())
		})
	})

	Describe("redis", func() {
		It("records new deliveries with the window as ttl", func() {
			var gotKey string
			var gotTTL time.Duration
			client := &mockRedisClient{
				setNXFn: func(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
					gotKey, gotTTL = key, expiration
					return redis.NewBoolResult(true, nil)
				},
			}

			seen, err := dedupe.NewRedisTracker(client, 10*time.Minute, nil).Seen(ctx, "abc")
			Expect(err).NotTo(HaveOccurred())
			Expect(seen).To(BeFalse())
			Expect(gotKey).To(Equal(dedupe.DefaultKeyPrefix + "abc"))
			Expect(gotTTL).To(Equal(10 * time.Minute))
		})

		It("reports a duplicate when the key already exists", func() {
			client := &mockRedisClient{
				setNXFn: func(context.Context, string, any, time.Duration) *redis.BoolCmd {
					return redis.NewBoolResult(false, nil)
				},
			}

			seen, err := dedupe.NewRedisTracker(client, time.Minute, nil).Seen(ctx, "abc")
			Expect(err).NotTo(HaveOccurred())
			Expect(seen).To(BeTrue())
		})

		It("returns redis errors", func() {
			boom := errors.New("connection refused")
			client := &mockRedisClient{
				setNXFn: func(context.Context, string, any, time.Duration) *redis.BoolCmd {
					return redis.NewBoolResult(false, boom)
				},
			}

			_, err := dedupe.NewRedisTracker(client, time.Minute, nil).Seen(ctx, "abc")
			Expect(err).To(MatchError(boom))
		})

		It("deletes the key on forget", func() {
			var deleted []string
			client := &mockRedisClient{
				delFn: func(ctx context.Context, keys ...string) *redis.IntCmd {
					deleted = append(deleted, keys...)
					return redis.NewIntResult(1, nil)
				},
			}

			Expect(dedupe.NewRedisTracker(client, time.Minute, nil).Forget(ctx, "abc")).To(Succeed())
			Expect(deleted).To(Equal([]string{dedupe.DefaultKeyPrefix + "abc"}))
		})

		It("skips redis for empty delivery ids", func() {
			client := &mockRedisClient{
				setNXFn: func(context.Context, string, any, time.Duration) *redis.BoolCmd {
					Fail("redis should not be called")
					return nil
				},
			}

			seen, err := dedupe.NewRedisTracker(client, time.Minute, nil).Seen(ctx, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(seen).To(BeFalse())
		})
	})
})
