package recommender

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/terra-clan/roadmap-engine/internal/models"
)

const cacheKeyPrefix = "roadmap:recommend:"

// Cached serves recommendations from Redis before calling the wrapped recommender.
// Cache failures never fail a request.
type Cached struct {
	next   Recommender
	client *redis.Client
	ttl    time.Duration
}

// NewCached wraps next with a Redis cache
func NewCached(next Recommender, client *redis.Client, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cached{next: next, client: client, ttl: ttl}
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, address, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        address,
		Password:    password,
		DB:          db,
		DialTimeout: 2 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// Recommend implements Recommender
func (c *Cached) Recommend(ctx context.Context, p models.Profile) (*Response, error) {
	key := CacheKey(p)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached Response
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			slog.Debug("recommendation cache hit", "key", key)
			return &cached, nil
		}
	case !errors.Is(err, redis.Nil):
		slog.Warn("recommendation cache read failed", "error", err)
	}

	resp, err := c.next.Recommend(ctx, p)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(resp); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			slog.Warn("recommendation cache write failed", "error", err)
		}
	}

	return resp, nil
}

// HealthCheck verifies Redis connectivity
func (c *Cached) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// CacheKey derives a stable key from the fields the service looks at.
// Skill order and case do not change the key.
func CacheKey(p models.Profile) string {
	skills := make([]string, 0, len(p.Skills))
	for _, s := range p.Skills {
		skills = append(skills, strings.ToLower(strings.TrimSpace(s)))
	}
	slices.Sort(skills)

	h := sha256.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(p.Education))))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(skills, "\x1f")))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(strings.TrimSpace(p.Interests))))

	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}
