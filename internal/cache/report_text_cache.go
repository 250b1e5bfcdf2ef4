package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

type ReportTextCache struct {
	client redisv9.Cmdable
	ttl    time.Duration
}

func NewReportTextCache(client redisv9.Cmdable, ttl time.Duration) *ReportTextCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ReportTextCache{client: client, ttl: ttl}
}

func (c *ReportTextCache) GetReportText(ctx context.Context, reportID string) (string, bool, error) {
	text, err := c.client.Get(ctx, reportTextKey(reportID)).Result()
	if errors.Is(err, redisv9.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get report text failed: %w", err)
	}
	return text, true, nil
}

func (c *ReportTextCache) SetReportText(ctx context.Context, reportID, text string) error {
	if err := c.client.Set(ctx, reportTextKey(reportID), text, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set report text failed: %w", err)
	}
	return nil
}

func reportTextKey(reportID string) string {
	return "report:text:" + reportID
}
