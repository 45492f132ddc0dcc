package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/carelens-ai/analytics/pkg/common/models"
	"github.com/redis/go-redis/v9"
)

// Cache keeps the most recent run's outputs hot in Redis for the report
// server's fast path.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func summaryKey(runID string) string {
	return fmt.Sprintf("analysis:%s:summary", runID)
}

func tableKey(runID, name string) string {
	return fmt.Sprintf("analysis:%s:table:%s", runID, name)
}

func (c *Cache) WriteSummary(ctx context.Context, runID string, stats models.SummaryStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, summaryKey(runID), data, c.ttl).Err(); err != nil {
		return err
	}
	return c.client.Set(ctx, "analysis:latest", runID, c.ttl).Err()
}

func (c *Cache) WriteTable(ctx context.Context, runID string, table models.AggregateTable) error {
	data, err := json.Marshal(table)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, tableKey(runID, table.Name), data, c.ttl).Err()
}

// GetSummary returns the cached summary JSON, or ok=false on a miss.
func (c *Cache) GetSummary(ctx context.Context, runID string) ([]byte, bool, error) {
	return c.get(ctx, summaryKey(runID))
}

func (c *Cache) GetTable(ctx context.Context, runID, name string) ([]byte, bool, error) {
	return c.get(ctx, tableKey(runID, name))
}

func (c *Cache) LatestRunID(ctx context.Context) (string, bool, error) {
	data, ok, err := c.get(ctx, "analysis:latest")
	return string(data), ok, err
}

func (c *Cache) get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}
