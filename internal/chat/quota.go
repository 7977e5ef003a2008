package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrQuotaExceeded is returned when an organization is over its query quota.
var ErrQuotaExceeded = errors.New("query quota exceeded")

// Quota caps chat completions per organization over a rolling window. A nil
// Quota allows everything, so wiring stays unconditional.
type Quota struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
}

// NewQuota creates a redis-backed quota store.
func NewQuota(rdb *redis.Client, limit int, window time.Duration) *Quota {
	return &Quota{rdb: rdb, limit: limit, window: window}
}

// Allow consumes one unit of the organization's quota. It returns
// ErrQuotaExceeded once the window budget is spent.
func (q *Quota) Allow(ctx context.Context, organizationID string) error {
	if q == nil || q.rdb == nil || q.limit <= 0 {
		return nil
	}

	key := fmt.Sprintf("chat:quota:%s", organizationID)
	count, err := q.rdb.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("increment quota counter: %w", err)
	}
	if count == 1 {
		// First hit in the window sets the expiry.
		if err := q.rdb.Expire(ctx, key, q.window).Err(); err != nil {
			return fmt.Errorf("set quota expiry: %w", err)
		}
	}
	if count > int64(q.limit) {
		return ErrQuotaExceeded
	}
	return nil
}

// Remaining reports how much of the window budget is left.
func (q *Quota) Remaining(ctx context.Context, organizationID string) (int, error) {
	if q == nil || q.rdb == nil || q.limit <= 0 {
		return 0, nil
	}

	key := fmt.Sprintf("chat:quota:%s", organizationID)
	count, err := q.rdb.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return q.limit, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read quota counter: %w", err)
	}

	remaining := q.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
