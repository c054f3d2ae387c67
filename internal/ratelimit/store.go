// Package ratelimit throttles registry requests per host.
package ratelimit

import (
	"context"
	"time"
)

// Store keeps fixed-window request counters. Backends:
// - Memory: one process (the default)
// - Redis: a quota shared by every process using the same server, e.g.
//   parallel CI jobs behind one registry token
type Store interface {
	// Increment adds one request to key's window, creating the window with
	// the given length if none is open. It returns the new count and when
	// the window closes.
	Increment(ctx context.Context, key string, window time.Duration) (int64, time.Time, error)

	// Reset closes key's window.
	Reset(ctx context.Context, key string) error

	// Close releases resources.
	Close() error
}

// Result contains the quota check result
type Result struct {
	// Allowed indicates whether the request fits in the window
	Allowed bool

	// Remaining is the number of requests left in the current window
	Remaining int64

	// ResetAt is when the window closes
	ResetAt time.Time

	// Limit is the maximum number of requests allowed in the window
	Limit int64
}

// Check counts one request against key and reports whether it is within
// limit.
func Check(ctx context.Context, store Store, key string, limit int64, window time.Duration) (*Result, error) {
	count, resetAt, err := store.Increment(ctx, key, window)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Allowed:   count <= limit,
		Remaining: limit - count,
		Limit:     limit,
		ResetAt:   resetAt,
	}
	if result.Remaining < 0 {
		result.Remaining = 0
	}

	return result, nil
}
