package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vocalizeapp/vocalize/pkg/models"
)

// ErrMiss is returned when a key is absent from the cache
var ErrMiss = errors.New("cache miss")

// Cache provides read-through caching for job status and usage summaries
type Cache struct {
	client *redis.Client
}

// NewCache creates a new cache instance
func NewCache(host string, port int, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping checks cache connectivity
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Job cache operations

func jobKey(id string) string {
	return fmt.Sprintf("job:%s", id)
}

// SetJob caches a job record
func (c *Cache) SetJob(ctx context.Context, job *models.Job, ttl time.Duration) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	return c.client.Set(ctx, jobKey(job.ID), data, ttl).Err()
}

// GetJob retrieves a cached job record
func (c *Cache) GetJob(ctx context.Context, id string) (*models.Job, error) {
	data, err := c.client.Get(ctx, jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached job: %w", err)
	}

	var job models.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached job: %w", err)
	}

	return &job, nil
}

// InvalidateJob removes a job from the cache after a status transition
func (c *Cache) InvalidateJob(ctx context.Context, id string) error {
	return c.client.Del(ctx, jobKey(id)).Err()
}

// Usage summary cache operations

func usageKey(userID string) string {
	return fmt.Sprintf("usage:%s", userID)
}

// SetUsageSummary caches a user's usage summary
func (c *Cache) SetUsageSummary(ctx context.Context, summary *models.UsageSummary, ttl time.Duration) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal usage summary: %w", err)
	}

	return c.client.Set(ctx, usageKey(summary.UserID), data, ttl).Err()
}

// GetUsageSummary retrieves a cached usage summary
func (c *Cache) GetUsageSummary(ctx context.Context, userID string) (*models.UsageSummary, error) {
	data, err := c.client.Get(ctx, usageKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached usage summary: %w", err)
	}

	var summary models.UsageSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached usage summary: %w", err)
	}

	return &summary, nil
}

// InvalidateUsageSummary drops a cached summary after new usage is recorded
func (c *Cache) InvalidateUsageSummary(ctx context.Context, userID string) error {
	return c.client.Del(ctx, usageKey(userID)).Err()
}
