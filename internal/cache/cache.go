package cache

import (
	"context"
	"errors"

	"github.com/vk/dagflow/internal/ctxlog"
	"github.com/vk/dagflow/internal/fingerprint"
	"github.com/vk/dagflow/internal/resultstore"
	"golang.org/x/sync/singleflight"
)

// Cache fronts a Store and serializes executions that share a fingerprint.
type Cache struct {
	store  Store
	flight singleflight.Group
	// bypass skips lookups; results are still stored.
	bypass bool
}

// Option configures a Cache.
type Option func(*Cache)

// WithBypass makes every Do execute, ignoring existing entries.
func WithBypass(bypass bool) Option {
	return func(c *Cache) { c.bypass = bypass }
}

// New wraps store. A nil store gets a fresh MemoryStore.
func New(store Store, opts ...Option) *Cache {
	if store == nil {
		store = NewMemoryStore()
	}
	c := &Cache{store: store}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup returns the record stored under fp. Misses and corrupted entries
// both return nil; corruption is logged and never surfaces as an error.
func (c *Cache) Lookup(ctx context.Context, fp fingerprint.Fingerprint) (*resultstore.Record, error) {
	rec, err := c.store.Lookup(ctx, fp)
	if err != nil {
		if errors.Is(err, ErrCorruption) {
			ctxlog.FromContext(ctx).Warn("Ignoring corrupted cache entry.", "fingerprint", fp.Short(), "error", err)
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

// Store records a successful completion.
func (c *Cache) Store(ctx context.Context, rec *resultstore.Record) error {
	return c.store.Put(ctx, rec)
}

type flightResult struct {
	rec    *resultstore.Record
	cached bool
}

// Do returns the record for fp, running fn only when no usable entry exists
// and no other execution of fp is in flight. cached reports whether the
// returned record came from somewhere other than this call's fn. A
// successful fn result is stored before Do returns.
func (c *Cache) Do(ctx context.Context, fp fingerprint.Fingerprint, fn func() (*resultstore.Record, error)) (*resultstore.Record, bool, error) {
	return c.DoVerified(ctx, fp, nil, fn)
}

// DoVerified is Do with a check on stored entries. An entry for which verify
// returns an error is stale: fn runs and its record replaces the entry.
func (c *Cache) DoVerified(ctx context.Context, fp fingerprint.Fingerprint, verify func(*resultstore.Record) error, fn func() (*resultstore.Record, error)) (*resultstore.Record, bool, error) {
	logger := ctxlog.FromContext(ctx)

	for {
		executed := false
		v, err, _ := c.flight.Do(fp.String(), func() (any, error) {
			if !c.bypass {
				rec, err := c.Lookup(ctx, fp)
				if err != nil {
					logger.Warn("Cache lookup failed, treating as a miss.", "fingerprint", fp.Short(), "error", err)
				}
				if rec != nil && verify != nil {
					if err := verify(rec); err != nil {
						logger.Info("Cached result is stale, running again.", "fingerprint", fp.Short(), "reason", err)
						rec = nil
					}
				}
				if rec != nil {
					return flightResult{rec: rec, cached: true}, nil
				}
			}

			executed = true
			rec, err := fn()
			if err != nil {
				return nil, err
			}
			if err := c.Store(ctx, rec); err != nil {
				logger.Warn("Failed to store cache entry.", "fingerprint", fp.Short(), "error", err)
			}
			return flightResult{rec: rec}, nil
		})

		if err != nil {
			if executed {
				return nil, false, err
			}
			// Another caller's execution failed. Try again on our own
			// unless we were cancelled meanwhile.
			if ctx.Err() != nil {
				return nil, false, ctx.Err()
			}
			continue
		}

		res := v.(flightResult)
		return res.rec, res.cached || !executed, nil
	}
}
