package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/dagflow/internal/fingerprint"
	"github.com/vk/dagflow/internal/resultstore"
	"github.com/zclconf/go-cty/cty"
)

func record(fp fingerprint.Fingerprint, at time.Time, out string) *resultstore.Record {
	return &resultstore.Record{
		Node:        "n",
		Outputs:     map[string]cty.Value{"out": cty.StringVal(out)},
		Fingerprint: fp,
		CompletedAt: at,
	}
}

func TestMemoryStore_NewerOnly(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()

	rec, err := s.Lookup(ctx, "fp")
	require.NoError(t, err)
	assert.Nil(t, rec)

	require.NoError(t, s.Put(ctx, record("fp", now, "first")))
	require.NoError(t, s.Put(ctx, record("fp", now, "same time")))
	require.NoError(t, s.Put(ctx, record("fp", now.Add(-time.Second), "older")))

	rec, err = s.Lookup(ctx, "fp")
	require.NoError(t, err)
	assert.Equal(t, "first", rec.Outputs["out"].AsString())

	require.NoError(t, s.Put(ctx, record("fp", now.Add(time.Second), "newer")))
	rec, _ = s.Lookup(ctx, "fp")
	assert.Equal(t, "newer", rec.Outputs["out"].AsString())
	assert.Equal(t, 1, s.Len())
}

type corruptStore struct{ *MemoryStore }

func (c *corruptStore) Lookup(_ context.Context, fp fingerprint.Fingerprint) (*resultstore.Record, error) {
	return nil, &CorruptionError{Fingerprint: fp, Reason: "garbage"}
}

func TestCache_CorruptionIsAMiss(t *testing.T) {
	ctx := context.Background()
	c := New(&corruptStore{MemoryStore: NewMemoryStore()})

	rec, err := c.Lookup(ctx, "fp")
	require.NoError(t, err)
	assert.Nil(t, rec)

	calls := 0
	rec, cached, err := c.Do(ctx, "fp", func() (*resultstore.Record, error) {
		calls++
		return record("fp", time.Now(), "fresh"), nil
	})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "fresh", rec.Outputs["out"].AsString())
}

func TestCache_Do(t *testing.T) {
	ctx := context.Background()

	t.Run("miss executes and stores, hit replays", func(t *testing.T) {
		c := New(nil)
		calls := 0
		fn := func() (*resultstore.Record, error) {
			calls++
			return record("fp", time.Now(), "v"), nil
		}

		_, cached, err := c.Do(ctx, "fp", fn)
		require.NoError(t, err)
		assert.False(t, cached)

		rec, cached, err := c.Do(ctx, "fp", fn)
		require.NoError(t, err)
		assert.True(t, cached)
		assert.Equal(t, 1, calls)
		assert.Equal(t, "v", rec.Outputs["out"].AsString())
	})

	t.Run("bypass executes every time but still stores", func(t *testing.T) {
		store := NewMemoryStore()
		c := New(store, WithBypass(true))
		calls := 0
		fn := func() (*resultstore.Record, error) {
			calls++
			return record("fp", time.Now().Add(time.Duration(calls)*time.Second), "v"), nil
		}
		_, _, err := c.Do(ctx, "fp", fn)
		require.NoError(t, err)
		_, cached, err := c.Do(ctx, "fp", fn)
		require.NoError(t, err)
		assert.False(t, cached)
		assert.Equal(t, 2, calls)
		assert.Equal(t, 1, store.Len())
	})

	t.Run("stale entry runs again and is replaced", func(t *testing.T) {
		store := NewMemoryStore()
		c := New(store)
		start := time.Now()
		calls := 0
		fn := func() (*resultstore.Record, error) {
			calls++
			return record("fp", start.Add(time.Duration(calls)*time.Second), "v"), nil
		}
		stale := errors.New("mean.nii is gone")
		verify := func(rec *resultstore.Record) error {
			if rec.CompletedAt.Equal(start.Add(time.Second)) {
				return stale
			}
			return nil
		}

		_, _, err := c.DoVerified(ctx, "fp", verify, fn)
		require.NoError(t, err)
		_, cached, err := c.DoVerified(ctx, "fp", verify, fn)
		require.NoError(t, err)
		assert.False(t, cached)
		assert.Equal(t, 2, calls)

		rec, cached, err := c.DoVerified(ctx, "fp", verify, fn)
		require.NoError(t, err)
		assert.True(t, cached)
		assert.Equal(t, 2, calls)
		assert.Equal(t, start.Add(2*time.Second), rec.CompletedAt)
	})

	t.Run("failures are not stored", func(t *testing.T) {
		store := NewMemoryStore()
		c := New(store)
		boom := errors.New("boom")
		_, _, err := c.Do(ctx, "fp", func() (*resultstore.Record, error) { return nil, boom })
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 0, store.Len())
	})
}

// TestCache_AtMostOneExecution starts many callers on one fingerprint while
// the first execution is blocked, and checks the work ran once.
func TestCache_AtMostOneExecution(t *testing.T) {
	ctx := context.Background()
	c := New(nil)

	var calls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})
	fn := func() (*resultstore.Record, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return record("fp", time.Now(), "v"), nil
	}

	const callers = 20
	var wg sync.WaitGroup
	results := make([]*resultstore.Record, callers)
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			rec, _, err := c.Do(ctx, "fp", fn)
			assert.NoError(t, err)
			results[i] = rec
		}(i)
	}

	<-started
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, rec := range results {
		require.NotNil(t, rec)
		assert.Equal(t, "v", rec.Outputs["out"].AsString())
	}
}
