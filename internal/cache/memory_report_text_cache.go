package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryReportTextCache keeps extracted report text in process. It stands in
// for ReportTextCache when Redis is not configured.
type MemoryReportTextCache struct {
	lru *expirable.LRU[string, string]
}

func NewMemoryReportTextCache(size int, ttl time.Duration) *MemoryReportTextCache {
	if size <= 0 {
		size = 32
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MemoryReportTextCache{lru: expirable.NewLRU[string, string](size, nil, ttl)}
}

func (c *MemoryReportTextCache) GetReportText(_ context.Context, reportID string) (string, bool, error) {
	text, ok := c.lru.Get(reportID)
	return text, ok, nil
}

func (c *MemoryReportTextCache) SetReportText(_ context.Context, reportID, text string) error {
	c.lru.Add(reportID, text)
	return nil
}
