package cache

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
)

// Tiered reads through a fast local cache in front of a shared one.
type Tiered struct {
	front Cache
	back  Cache
}

// NewTiered layers front over back.
func NewTiered(front, back Cache) *Tiered {
	return &Tiered{front: front, back: back}
}

// Get fills the front from the back on a front miss. Front errors are
// logged and treated as misses.
func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok, err := t.front.Get(ctx, key); err == nil && ok {
		return v, true, nil
	} else if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Front cache read failed")
	}

	v, ok, err := t.back.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	if err := t.front.Set(ctx, key, v); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Front cache fill failed")
	}
	return v, true, nil
}

func (t *Tiered) Set(ctx context.Context, key string, value []byte) error {
	return errors.Join(t.front.Set(ctx, key, value), t.back.Set(ctx, key, value))
}

func (t *Tiered) Delete(ctx context.Context, key string) error {
	return errors.Join(t.front.Delete(ctx, key), t.back.Delete(ctx, key))
}

func (t *Tiered) Clear(ctx context.Context) error {
	return errors.Join(t.front.Clear(ctx), t.back.Clear(ctx))
}

func (t *Tiered) Close() error {
	return errors.Join(t.front.Close(), t.back.Close())
}
