package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisQueueKey   = "marketplace:queue:jobs"
	redisDelayedKey = "marketplace:queue:delayed"
)

// RedisDriver is a durable queue driver backed by Redis.
// Immediate jobs use LPUSH/BRPOP on a list.
// Delayed jobs wait in a sorted set scored by Unix time and are promoted to
// the list by the next Pop once due.
type RedisDriver struct {
	rdb     *redis.Client
	timeout time.Duration
	now     func() time.Time
}

// NewRedisDriver creates a Redis-backed queue driver.
func NewRedisDriver(rdb *redis.Client) *RedisDriver {
	return &RedisDriver{rdb: rdb, timeout: time.Second, now: time.Now}
}

// Push adds a job payload to the immediate queue (LPUSH).
func (d *RedisDriver) Push(ctx context.Context, payload []byte) error {
	if err := d.rdb.LPush(ctx, redisQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("queue/redis: push: %w", err)
	}
	return nil
}

// Pop promotes due delayed jobs, then waits up to the poll timeout (BRPOP).
func (d *RedisDriver) Pop(ctx context.Context) ([]byte, error) {
	if err := d.promoteDue(ctx); err != nil {
		return nil, err
	}

	result, err := d.rdb.BRPop(ctx, d.timeout, redisQueueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // timeout, no jobs ready
		}
		return nil, fmt.Errorf("queue/redis: pop: %w", err)
	}
	if len(result) < 2 {
		return nil, nil
	}
	return []byte(result[1]), nil
}

// PushDelayed schedules a payload to become poppable after delay.
func (d *RedisDriver) PushDelayed(ctx context.Context, payload []byte, delay time.Duration) error {
	runAt := float64(d.now().Add(delay).Unix())
	if err := d.rdb.ZAdd(ctx, redisDelayedKey, redis.Z{
		Score:  runAt,
		Member: string(payload),
	}).Err(); err != nil {
		return fmt.Errorf("queue/redis: push delayed: %w", err)
	}
	return nil
}

// promoteDue moves delayed jobs whose time has come into the main list. Only
// the caller whose ZREM removes a member pushes it, so concurrent workers do
// not duplicate jobs.
func (d *RedisDriver) promoteDue(ctx context.Context) error {
	now := strconv.FormatInt(d.now().Unix(), 10)
	due, err := d.rdb.ZRangeByScore(ctx, redisDelayedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil {
		return fmt.Errorf("queue/redis: scan delayed: %w", err)
	}

	for _, job := range due {
		removed, err := d.rdb.ZRem(ctx, redisDelayedKey, job).Result()
		if err != nil {
			return fmt.Errorf("queue/redis: claim delayed: %w", err)
		}
		if removed == 0 {
			continue
		}
		if err := d.rdb.LPush(ctx, redisQueueKey, job).Err(); err != nil {
			return fmt.Errorf("queue/redis: promote: %w", err)
		}
	}
	return nil
}
