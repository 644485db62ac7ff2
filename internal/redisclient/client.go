package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/unlock.lua
var unlockScript string

type Client struct {
	rdb    *redis.Client
	unlock *redis.Script
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:    rdb,
		unlock: redis.NewScript(unlockScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// AcquireEntityLock takes a best-effort per-entity lock (e.g. "order:42").
// Returns a release token on success; empty token means the lock is held by
// someone else. The durable serialization guarantee stays with the database
// row locks; this lock only short-circuits concurrent requests earlier.
func (c *Client) AcquireEntityLock(ctx context.Context, entity string, ttl time.Duration) (string, error) {
	token := strconv.FormatInt(time.Now().UnixNano(), 36)
	ok, err := c.rdb.SetNX(ctx, "lock:"+entity, token, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

// ReleaseEntityLock releases a lock only if it still carries the caller's
// token, so an expired-and-retaken lock is never deleted from under its new
// holder.
func (c *Client) ReleaseEntityLock(ctx context.Context, entity, token string) error {
	_, err := c.unlock.Run(ctx, c.rdb, []string{"lock:" + entity}, token).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("unlock script failed: %w", err)
	}
	return nil
}

// SeenIdempotencyKey reports whether a restock idempotency key was recently
// applied. Fast path only; the durable duplicate check lives in the
// restock_receipts table.
func (c *Client) SeenIdempotencyKey(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Exists(ctx, "idempotency:"+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RememberIdempotencyKey records an applied restock idempotency key with a TTL.
func (c *Client) RememberIdempotencyKey(ctx context.Context, key string, ttl time.Duration) error {
	return c.rdb.Set(ctx, "idempotency:"+key, "1", ttl).Err()
}

// CacheStockLevel mirrors an inventory row for read-side consumers.
func (c *Client) CacheStockLevel(ctx context.Context, productID int64, quantity, threshold int) error {
	key := fmt.Sprintf("stock:%d", productID)

	pipe := c.rdb.Pipeline()
	pipe.HSet(ctx, key, "quantity", quantity)
	pipe.HSet(ctx, key, "threshold", threshold)

	_, err := pipe.Exec(ctx)
	return err
}

// GetCachedStockLevel retrieves a cached stock level. found is false when the
// product has not been cached yet.
func (c *Client) GetCachedStockLevel(ctx context.Context, productID int64) (quantity, threshold int, found bool, err error) {
	key := fmt.Sprintf("stock:%d", productID)

	result, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return 0, 0, false, err
	}
	if len(result) == 0 {
		return 0, 0, false, nil
	}

	quantity, _ = strconv.Atoi(result["quantity"])
	threshold, _ = strconv.Atoi(result["threshold"])
	return quantity, threshold, true, nil
}
