package matrix

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	redis "github.com/redis/go-redis/v9"

	"salesroute/internal/metrics"
	"salesroute/internal/obs"
)

const defaultCacheTTL = 24 * time.Hour

// RedisCache memoizes Next by coordinate list. Cache failures are logged and
// fall through to Next.
type RedisCache struct {
	rdb  *redis.Client
	Next Provider
	TTL  time.Duration
}

func NewRedisCache(rdb *redis.Client, next Provider, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &RedisCache{rdb: rdb, Next: next, TTL: ttl}
}

// NewRedisCacheFromEnv connects to REDIS_URL.
func NewRedisCacheFromEnv(next Provider, ttl time.Duration) (*RedisCache, error) {
	opt, err := redis.ParseURL(os.Getenv("REDIS_URL"))
	if err != nil {
		return nil, err
	}
	return NewRedisCache(redis.NewClient(opt), next, ttl), nil
}

func (c *RedisCache) Matrices(ctx context.Context, pts []Point) (*Matrices, error) {
	key := cacheKey(pts)
	b, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var m Matrices
		if jerr := json.Unmarshal(b, &m); jerr == nil && m.Check(len(pts)) == nil {
			metrics.MatrixCache.WithLabelValues("hit").Inc()
			return &m, nil
		}
		metrics.MatrixCache.WithLabelValues("error").Inc()
	case errors.Is(err, redis.Nil):
		metrics.MatrixCache.WithLabelValues("miss").Inc()
	default:
		metrics.MatrixCache.WithLabelValues("error").Inc()
		log.Printf("req_id=%s op=matrix.cache.get err=%v", obs.RequestID(ctx), err)
	}

	m, err := c.Next.Matrices(ctx, pts)
	if err != nil {
		return nil, err
	}
	// Estimates are cheap to recompute and should not shadow a later road answer.
	if m.Source != "estimate" {
		if payload, err := json.Marshal(m); err == nil {
			if err := c.rdb.Set(ctx, key, payload, c.TTL).Err(); err != nil {
				log.Printf("req_id=%s op=matrix.cache.set err=%v", obs.RequestID(ctx), err)
			}
		}
	}
	return m, nil
}

func (c *RedisCache) Ping(ctx context.Context) error { return c.rdb.Ping(ctx).Err() }

func cacheKey(pts []Point) string {
	h := sha256.New()
	for _, p := range pts {
		fmt.Fprintf(h, "%.6f,%.6f;", p.Lat, p.Lng)
	}
	return "matrix:" + hex.EncodeToString(h.Sum(nil))
}
