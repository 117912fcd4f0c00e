package reporting

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nimasrn/pos-ledger/internal/model"
	"github.com/nimasrn/pos-ledger/pkg/logger"
	"github.com/nimasrn/pos-ledger/pkg/redis"
)

const versionKey = "report:version"

// Cache is a read-through store of built reports. Keys embed a version
// counter that every committed write bumps, so entries go stale all at once
// instead of being tracked per ticket. A nil *Cache is a valid, disabled cache.
type Cache struct {
	adapter redis.RedisAdapter
	ttl     time.Duration
}

func NewCache(adapter redis.RedisAdapter, ttl time.Duration) *Cache {
	if adapter == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{adapter: adapter, ttl: ttl}
}

// Invalidate bumps the version, orphaning every cached report.
func (c *Cache) Invalidate(ctx context.Context) error {
	if c == nil {
		return nil
	}
	_, err := c.adapter.Incr(ctx, versionKey)
	return err
}

// Get reads the report stored under key, a value returned by Key.
func (c *Cache) Get(ctx context.Context, key string) (*model.Report, bool, error) {
	if c == nil || key == "" {
		return nil, false, nil
	}
	raw, err := c.adapter.Get(ctx, key)
	if errors.Is(err, redis.NilError) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var report model.Report
	if err := json.Unmarshal(raw, &report); err != nil {
		logger.Warn("dropping undecodable cached report", "key", key, "error", err)
		return nil, false, nil
	}
	return &report, true, nil
}

func (c *Cache) Put(ctx context.Context, key string, report *model.Report) error {
	if c == nil || key == "" {
		return nil
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return c.adapter.Set(ctx, key, raw, c.ttl)
}

// Key resolves the cache key for req at the current version. A disabled
// cache returns an empty key.
func (c *Cache) Key(ctx context.Context, req model.ReportRequest) (string, error) {
	if c == nil {
		return "", nil
	}
	version := int64(0)
	raw, err := c.adapter.Get(ctx, versionKey)
	switch {
	case errors.Is(err, redis.NilError):
	case err != nil:
		return "", err
	default:
		version, err = strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return "", fmt.Errorf("report cache version %q: %w", raw, err)
		}
	}

	fingerprint, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	sum := sha1.Sum(fingerprint)
	return fmt.Sprintf("report:v%d:%s", version, hex.EncodeToString(sum[:])), nil
}
