package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const rateKey = "rates:rub_usdt"

// RateCache caches the RUB/USDT exchange rate in Redis so every payment
// request submission does not hit the upstream rates API.
type RateCache struct {
	client *goredis.Client
}

// NewRateCache creates a new Redis-backed rate cache.
func NewRateCache(client *goredis.Client) *RateCache {
	return &RateCache{client: client}
}

// Get retrieves the cached rate. Returns decimal zero and false if the key
// does not exist or has expired.
func (c *RateCache) Get(ctx context.Context) (decimal.Decimal, bool, error) {
	val, err := c.client.Get(ctx, rateKey).Result()
	if err != nil {
		if err == goredis.Nil {
			return decimal.Decimal{}, false, nil
		}
		return decimal.Decimal{}, false, fmt.Errorf("redis rate get: %w", err)
	}

	rate, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Decimal{}, false, fmt.Errorf("redis rate parse: %w", err)
	}
	return rate, true, nil
}

// Set stores the rate with a TTL.
func (c *RateCache) Set(ctx context.Context, rate decimal.Decimal, ttl time.Duration) error {
	if err := c.client.Set(ctx, rateKey, rate.String(), ttl).Err(); err != nil {
		return fmt.Errorf("redis rate set: %w", err)
	}
	return nil
}
