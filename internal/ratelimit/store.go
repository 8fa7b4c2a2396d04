package ratelimit

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultWindow is how long a counter lives after its first increment.
const DefaultWindow = time.Hour

// Well-known global counter keys shared by all instances.
const (
	HoneypotDetectionsKey = "honeypot:detections-last-hour"
	BlocksKey             = "ratelimit:blocks-last-hour"
)

// SessionKey scopes a counter to one browser session.
func SessionKey(sessionID string) string {
	return "ratelimit:session:" + sessionID
}

// IPKey scopes a counter to one client IP.
func IPKey(ip string) string {
	return "ratelimit:ip:" + ip
}

// Client is the subset of Redis commands the store uses.
// *redis.Client satisfies it.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// Store counts requests per key in a shared Redis so limits hold across
// process instances. All coordination lives in Redis; the store itself has
// no local state.
type Store struct {
	rdb Client
}

func NewStore(rdb Client) *Store {
	return &Store{rdb: rdb}
}

// Peek reports whether the current count for key has reached limit.
// It never mutates the counter. When Redis is unavailable it fails open
// (returns false) so a dependency outage never blocks legitimate traffic.
func (s *Store) Peek(ctx context.Context, key string, limit int) bool {
	count, err := s.rdb.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false
		}
		log.Printf("[KV ERROR] peek %s failed: %v", key, err)
		return false
	}
	return count >= int64(limit)
}

// Increment atomically bumps the counter for key, creating it at 1 if absent.
// The caller that observes 1 sets the expiry; under concurrent first
// increments EXPIRE may run more than once, which is harmless.
// Returns 0 on failure: callers must tolerate undercounting.
func (s *Store) Increment(ctx context.Context, key string, ttl time.Duration) int64 {
	count, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		log.Printf("[KV ERROR] increment %s failed: %v", key, err)
		return 0
	}
	if count == 1 {
		if err := s.rdb.Expire(ctx, key, ttl).Err(); err != nil {
			log.Printf("[KV ERROR] expire %s failed: %v", key, err)
		}
	}
	return count
}
