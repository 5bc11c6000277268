package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"parcel-backend/internal/config"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Report cache keys are namespaced per company so invalidation after a
// transition never touches another tenant.
const (
	ReportKeyFmt     = "reports:%d:%s:%s"
	ReportPatternFmt = "reports:%d:*"
)

var client *redis.Client

// Init connects to Redis. On failure the client stays nil and every helper
// degrades to a no-op.
func Init(cfg *config.Config) error {
	c := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		c.Close()
		client = nil
		return err
	}
	client = c
	return nil
}

// SetClient installs an existing client. Passing nil disables caching.
func SetClient(c *redis.Client) {
	client = c
}

// Close releases the connection if one is open.
func Close() {
	if client != nil {
		client.Close()
		client = nil
	}
}

// ReportKey builds the cache key for one report query. params is hashed so
// arbitrary filter strings stay within key limits.
func ReportKey(companyID int64, report, params string) string {
	h := sha256.Sum256([]byte(params))
	return fmt.Sprintf(ReportKeyFmt, companyID, report, hex.EncodeToString(h[:])[:32])
}

// GetCached returns cached data for a key
func GetCached(ctx context.Context, key string) ([]byte, bool) {
	if client == nil {
		return nil, false
	}
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetCached stores data with a TTL
func SetCached(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if client == nil {
		return
	}
	if err := client.Set(ctx, key, data, ttl).Err(); err != nil {
		log.Printf("[Redis] Failed to cache %s: %v", key, err)
	}
}

// InvalidatePattern removes all keys matching a glob pattern
func InvalidatePattern(ctx context.Context, pattern string) {
	if client == nil {
		return
	}
	iter := client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidateKeys removes specific cache keys, e.g. an entry that no longer decodes.
func InvalidateKeys(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	client.Del(ctx, keys...)
}

// InvalidateReportCaches clears every cached report of a company.
// Called when: CreateBooking, any status transition, CreateVoucher,
// manifest edits and deletes
func InvalidateReportCaches(ctx context.Context, companyID int64) {
	InvalidatePattern(ctx, fmt.Sprintf(ReportPatternFmt, companyID))
}

// IsHealthy returns true if Redis connection is working
func IsHealthy() bool {
	if client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err() == nil
}

// Enabled reports whether a client is installed.
func Enabled() bool {
	return client != nil
}
