package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Options configures a Limiter.
type Options struct {
	// PerSecond is the steady request rate per host; 0 disables throttling.
	PerSecond float64
	Burst     int
	// Store, when set, additionally enforces PerSecond over one-second
	// windows across every process sharing it.
	Store Store
}

// Limiter hands out request slots per registry host.
type Limiter struct {
	opts Options

	mu    sync.Mutex
	hosts map[string]*rate.Limiter
}

// NewLimiter creates a limiter.
func NewLimiter(opts Options) *Limiter {
	if opts.Burst < 1 {
		opts.Burst = 1
	}
	return &Limiter{opts: opts, hosts: make(map[string]*rate.Limiter)}
}

func (l *Limiter) host(name string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.hosts[name]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(l.opts.PerSecond), l.opts.Burst)
		l.hosts[name] = lim
	}
	return lim
}

// Wait blocks until a request to host may be sent or ctx is done.
func (l *Limiter) Wait(ctx context.Context, host string) error {
	if l == nil || l.opts.PerSecond <= 0 {
		return nil
	}
	if err := l.host(host).Wait(ctx); err != nil {
		return err
	}
	if l.opts.Store == nil {
		return nil
	}

	limit := int64(l.opts.PerSecond)
	if limit < 1 {
		limit = 1
	}
	for {
		res, err := Check(ctx, l.opts.Store, host, limit, time.Second)
		if err != nil {
			// The shared quota is advisory; the local limiter already applied.
			log.Warn().Err(err).Str("host", host).Msg("Shared rate limit check failed")
			return nil
		}
		if res.Allowed {
			return nil
		}
		wait := time.Until(res.ResetAt)
		log.Debug().Str("host", host).Dur("wait", wait).Msg("Registry quota exhausted, waiting")
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
