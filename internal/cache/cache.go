// Package cache stores registry metadata and tarballs between runs.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/pakto/internal/config"
)

// Cache is the interface for cache backends.
// - Memory: process-local LRU with expiry
// - Disk: files under a directory, shared by runs on one machine
// - Redis / S3: shared between machines, e.g. CI runners
type Cache interface {
	// Get returns the value and true on a hit. Expired entries are misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the backend's TTL.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes one key.
	Delete(ctx context.Context, key string) error

	// Clear removes every key the backend owns.
	Clear(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// MetadataKey is the key of a package's registry document.
func MetadataKey(name string) string {
	return "metadata/" + name
}

// TarballKey is the key of one published version's tarball.
func TarballKey(name, version string) string {
	return "tarball/" + name + "@" + version
}

// hashKey maps a key to a name that is safe on every backend.
func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	kind, _, _ := strings.Cut(key, "/")
	return kind + "-" + hex.EncodeToString(sum[:])
}

// New creates the cache described by cfg. A disabled cache is a Nop.
func New(cfg *config.CacheConfig) (Cache, error) {
	if !cfg.Enabled {
		log.Debug().Msg("Cache disabled")
		return Nop{}, nil
	}

	switch cfg.Backend {
	case "memory":
		return NewMemory(cfg.MaxEntries, cfg.TTL), nil

	case "disk", "":
		return NewDisk(osFs(), cfg.Dir, cfg.TTL), nil

	case "redis":
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("redis_url is required for redis cache backend")
		}
		remote, err := NewRedis(cfg.RedisURL, cfg.TTL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return NewTiered(NewMemory(cfg.MaxEntries, cfg.TTL), remote), nil

	case "s3":
		remote, err := NewS3(context.Background(), S3Options{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			UseSSL:    cfg.S3.UseSSL,
			Prefix:    cfg.S3.Prefix,
			TTL:       cfg.TTL,
		})
		if err != nil {
			return nil, err
		}
		return NewTiered(NewMemory(cfg.MaxEntries, cfg.TTL), remote), nil

	default:
		return nil, fmt.Errorf("unknown cache backend: %s (valid options: memory, disk, redis, s3)", cfg.Backend)
	}
}

// expired reports whether an entry written at modTime is past ttl. A zero
// ttl never expires.
func expired(modTime time.Time, ttl time.Duration) bool {
	return ttl > 0 && time.Since(modTime) > ttl
}

// Nop caches nothing.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (Nop) Set(context.Context, string, []byte) error         { return nil }
func (Nop) Delete(context.Context, string) error              { return nil }
func (Nop) Clear(context.Context) error                       { return nil }
func (Nop) Close() error                                      { return nil }
