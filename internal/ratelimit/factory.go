package ratelimit

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/pakto/internal/config"
)

// NewStore creates the quota store selected by the npm configuration.
//
// Backend options:
// - "local": in-memory store (default)
// - "redis": Redis-compatible store shared between processes
func NewStore(cfg *config.NPMConfig) (Store, error) {
	switch cfg.LimitBackend {
	case "local", "":
		return NewMemoryStore(time.Minute), nil

	case "redis":
		if cfg.LimitRedisURL == "" {
			return nil, fmt.Errorf("limit_redis_url is required for redis rate limit backend")
		}
		log.Debug().Msg("Using Redis-compatible rate limit store")
		store, err := NewRedisStore(cfg.LimitRedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown rate limit backend: %s (valid options: local, redis)", cfg.LimitBackend)
	}
}
