// Package rates implements the RUB/USDT exchange rate source on top of the
// Central Bank of Russia daily quotes feed, with a Redis cache in front and
// a configured fallback when the feed is unreachable.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Cache is the slice of the Redis rate cache the source needs.
type Cache interface {
	Get(ctx context.Context) (decimal.Decimal, bool, error)
	Set(ctx context.Context, rate decimal.Decimal, ttl time.Duration) error
}

// cbrResponse mirrors the parts of the daily_json.js payload we read.
// USDT is treated as pegged to USD.
type cbrResponse struct {
	Valute struct {
		USD struct {
			Value float64 `json:"Value"`
		} `json:"USD"`
	} `json:"Valute"`
}

// Source implements ports.RateSource.
type Source struct {
	httpClient HTTPClient
	url        string
	cache      Cache
	cacheTTL   time.Duration
	fallback   decimal.Decimal
	log        zerolog.Logger
}

// NewSource creates a rate source. fallback is the rate used when both the
// cache and the upstream feed fail; it must be positive.
func NewSource(httpClient HTTPClient, url string, cache Cache, cacheTTL time.Duration, fallback decimal.Decimal, log zerolog.Logger) *Source {
	return &Source{
		httpClient: httpClient,
		url:        url,
		cache:      cache,
		cacheTTL:   cacheTTL,
		fallback:   fallback,
		log:        log,
	}
}

// CurrentRate returns the RUB per USDT rate: cache first, then the feed,
// then the configured fallback. A fetched rate is cached best-effort.
func (s *Source) CurrentRate(ctx context.Context) (decimal.Decimal, error) {
	if cached, ok, err := s.cache.Get(ctx); err != nil {
		s.log.Warn().Err(err).Msg("rate cache read failed, falling through to feed")
	} else if ok {
		return cached, nil
	}

	rate, err := s.fetch(ctx)
	if err != nil {
		s.log.Warn().Err(err).Str("fallback", s.fallback.String()).Msg("rate feed unavailable, using fallback rate")
		return s.fallback, nil
	}

	if err := s.cache.Set(ctx, rate, s.cacheTTL); err != nil {
		s.log.Warn().Err(err).Msg("rate cache write failed")
	}
	return rate, nil
}

func (s *Source) fetch(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("build rates request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, fmt.Errorf("rates feed returned status %d", resp.StatusCode)
	}

	var payload cbrResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Decimal{}, fmt.Errorf("decode rates payload: %w", err)
	}

	rate := decimal.NewFromFloat(payload.Valute.USD.Value)
	if !rate.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("rates feed returned non-positive rate %s", rate)
	}
	return rate, nil
}
