package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

// Client caches per-auction bid floors and remembers recently seen bid ids.
// Everything here is advisory: the entity store stays the source of truth
// and callers must work with a nil or unreachable cache.
type Client struct {
	rdb *redis.Client
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

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// GetFloor returns the cached floor for an auction, if any
func (c *Client) GetFloor(ctx context.Context, auctionID string) (decimal.Decimal, bool, error) {
	val, err := c.rdb.Get(ctx, floorKey(auctionID)).Result()
	if err == redis.Nil {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}

	floor, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("corrupt floor cache entry: %w", err)
	}
	return floor, true, nil
}

// SetFloor caches the current floor for an auction with a TTL
func (c *Client) SetFloor(ctx context.Context, auctionID string, floor decimal.Decimal, ttl time.Duration) error {
	return c.rdb.Set(ctx, floorKey(auctionID), floor.String(), ttl).Err()
}

// DropFloor evicts a cached floor, used when an auction closes
func (c *Client) DropFloor(ctx context.Context, auctionID string) error {
	return c.rdb.Del(ctx, floorKey(auctionID)).Err()
}

// SeenBid records a bid id and reports whether it was already seen.
// The ingestion worker uses this to drop replayed submissions.
func (c *Client) SeenBid(ctx context.Context, bidID string, ttl time.Duration) (bool, error) {
	set, err := c.rdb.SetNX(ctx, fmt.Sprintf("bid:seen:%s", bidID), "1", ttl).Result()
	if err != nil {
		return false, err
	}
	return !set, nil
}

func floorKey(auctionID string) string {
	return fmt.Sprintf("auction:floor:%s", auctionID)
}
