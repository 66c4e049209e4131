package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// StatsRecorder persists decision events.
type StatsRecorder interface {
	Record(ctx context.Context, ev Event) error
}

// Totals are cumulative decision counts.
type Totals struct {
	Allowed int64            `json:"allowed"`
	Denied  int64            `json:"denied"`
	ByRoute map[string]int64 `json:"by_route"`
}

// RedisStats keeps decision counters in Redis hashes: a cumulative total, a per-route
// breakdown and per-minute buckets that expire after ttl. Routes are registered
// templates, so the per-route hash has at most one field pair per route.
type RedisStats struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStats builds a recorder under prefix (default "ratelimit:stats").
func NewRedisStats(rdb *redis.Client, prefix string, ttl time.Duration) *RedisStats {
	prefix = strings.Trim(prefix, ":")
	if prefix == "" {
		prefix = "ratelimit:stats"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStats{rdb: rdb, prefix: prefix, ttl: ttl}
}

// Record implements StatsRecorder.
func (s *RedisStats) Record(ctx context.Context, ev Event) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := "denied"
	if ev.Allowed {
		field = "allowed"
	}

	bucketKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.totalKey(), field, 1)
	pipe.HIncrBy(ctx, bucketKey, field, 1)
	pipe.Expire(ctx, bucketKey, s.ttl)
	if ev.Route != "" {
		pipe.HIncrBy(ctx, s.routeKey(), strings.TrimSpace(ev.Method+" "+ev.Route)+":"+field, 1)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Totals reads the cumulative counters.
func (s *RedisStats) Totals(ctx context.Context) (Totals, error) {
	out := Totals{ByRoute: map[string]int64{}}

	total, err := s.rdb.HGetAll(ctx, s.totalKey()).Result()
	if err != nil {
		return out, err
	}
	out.Allowed = parseCount(total["allowed"])
	out.Denied = parseCount(total["denied"])

	routes, err := s.rdb.HGetAll(ctx, s.routeKey()).Result()
	if err != nil {
		return out, err
	}
	for field, val := range routes {
		out.ByRoute[field] = parseCount(val)
	}
	return out, nil
}

func (s *RedisStats) totalKey() string { return s.prefix + ":total" }
func (s *RedisStats) routeKey() string { return s.prefix + ":route" }

func parseCount(v string) int64 {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
