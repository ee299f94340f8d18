// Package cache provides a redis-backed read-through cache for competitive
// score breakdowns. Cache misses and redis failures are silent; the scorer
// recomputes from live data either way.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/KingOfTheAce2/KDP-category-ranker/internal/market"
	"github.com/KingOfTheAce2/KDP-category-ranker/internal/scoring"
)

// DefaultTTL keeps breakdowns for an hour; competitor samples drift slowly
// enough that a stale hour is acceptable.
const DefaultTTL = time.Hour

// Breakdowns caches scoring.Breakdown values in redis.
type Breakdowns struct {
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

// NewBreakdowns connects to redis and verifies the connection with a ping.
func NewBreakdowns(addr, password string, db int, ttl time.Duration, logger *slog.Logger) (*Breakdowns, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Breakdowns{client: client, logger: logger, ttl: ttl}, nil
}

func (c *Breakdowns) Close() error {
	return c.client.Close()
}

func (c *Breakdowns) Get(ctx context.Context, keyword string, m market.Market) (*scoring.Breakdown, bool) {
	payload, err := c.client.Get(ctx, breakdownKey(keyword, m)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("breakdown cache read failed", "keyword", keyword, "error", err)
		}
		return nil, false
	}

	var breakdown scoring.Breakdown
	if err := json.Unmarshal(payload, &breakdown); err != nil {
		c.logger.Warn("discarding corrupt cached breakdown", "keyword", keyword, "error", err)
		return nil, false
	}
	return &breakdown, true
}

func (c *Breakdowns) Set(ctx context.Context, keyword string, m market.Market, b *scoring.Breakdown) {
	payload, err := json.Marshal(b)
	if err != nil {
		c.logger.Warn("breakdown cache encode failed", "keyword", keyword, "error", err)
		return
	}
	if err := c.client.Set(ctx, breakdownKey(keyword, m), payload, c.ttl).Err(); err != nil {
		c.logger.Warn("breakdown cache write failed", "keyword", keyword, "error", err)
	}
}

func breakdownKey(keyword string, m market.Market) string {
	return fmt.Sprintf("kdprank:score:%s:%s", m.Code(), strings.ToLower(strings.TrimSpace(keyword)))
}
