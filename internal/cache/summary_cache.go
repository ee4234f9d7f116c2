package cache

import (
	"context"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// SummaryCache fronts the persisted document summary so repeated summary
// requests skip the database.
type SummaryCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewSummaryCache(client *redisv9.Client, ttl time.Duration) *SummaryCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SummaryCache{client: client, ttl: ttl}
}

func (c *SummaryCache) Get(ctx context.Context, documentID string) (string, bool, error) {
	raw, err := c.client.Get(ctx, c.key(documentID)).Result()
	if err == redisv9.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get summary failed: %w", err)
	}
	return raw, true, nil
}

func (c *SummaryCache) Set(ctx context.Context, documentID, summary string) error {
	if err := c.client.Set(ctx, c.key(documentID), summary, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set summary failed: %w", err)
	}
	return nil
}

func (c *SummaryCache) Delete(ctx context.Context, documentID string) error {
	if err := c.client.Del(ctx, c.key(documentID)).Err(); err != nil {
		return fmt.Errorf("redis delete summary failed: %w", err)
	}
	return nil
}

func (c *SummaryCache) key(documentID string) string {
	return fmt.Sprintf("document:summary:%s", documentID)
}
