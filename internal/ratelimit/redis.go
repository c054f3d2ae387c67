package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const redisPrefix = "pakto:ratelimit:"

// incrementScript opens the window on the first request and returns the
// count with the window's remaining milliseconds.
var incrementScript = redis.NewScript(`
	local current = redis.call('INCR', KEYS[1])
	if current == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	return {current, redis.call('PTTL', KEYS[1])}
`)

// RedisStore implements Store on Redis or a compatible server (Dragonfly,
// Valkey, KeyDB).
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to url, in the form redis://[password@]host:port[/db].
func NewRedisStore(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	log.Debug().Str("addr", opts.Addr).Msg("Connected to Redis-compatible backend for rate limiting")

	return &RedisStore{client: client}, nil
}

// Increment implements Store.
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	values, err := incrementScript.Run(ctx, s.client, []string{redisPrefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to increment rate limit counter in Redis")
		return 0, time.Time{}, err
	}
	ttl := window
	if len(values) > 1 && values[1] > 0 {
		ttl = time.Duration(values[1]) * time.Millisecond
	}
	return values[0], time.Now().Add(ttl), nil
}

// Reset implements Store.
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, redisPrefix+key).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
