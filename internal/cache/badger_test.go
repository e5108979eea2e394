package cache

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/dagflow/internal/ctxlog"
	"github.com/vk/dagflow/internal/resultstore"
	"github.com/zclconf/go-cty/cty"
)

func setupTestBadger(t *testing.T, dir string) *BadgerStore {
	t.Helper()
	s, err := OpenBadger(dir, ctxlog.Discard())
	require.NoError(t, err)
	return s
}

func TestBadgerStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := setupTestBadger(t, "")
	defer s.Close()

	rec, err := s.Lookup(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, rec)

	in := &resultstore.Record{
		Node: "antsreg",
		Outputs: map[string]cty.Value{
			"forward_transforms": cty.ListVal([]cty.Value{cty.StringVal("0Affine.mat"), cty.StringVal("1Warp.nii.gz")}),
			"range":              cty.TupleVal([]cty.Value{cty.NumberIntVal(0), cty.NumberFloatVal(10.5)}),
		},
		Fingerprint: "abc123",
		CompletedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, s.Put(ctx, in))

	out, err := s.Lookup(ctx, "abc123")
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "antsreg", out.Node)
	assert.True(t, in.CompletedAt.Equal(out.CompletedAt))
	for name, v := range in.Outputs {
		assert.True(t, v.Equals(out.Outputs[name]).True(), "output %s", name)
	}
}

func TestBadgerStore_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s := setupTestBadger(t, dir)
	require.NoError(t, s.Put(ctx, record("fp", time.Now(), "kept")))
	require.NoError(t, s.Close())

	s = setupTestBadger(t, dir)
	defer s.Close()
	rec, err := s.Lookup(ctx, "fp")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "kept", rec.Outputs["out"].AsString())
}

func TestBadgerStore_NewerOnly(t *testing.T) {
	ctx := context.Background()
	s := setupTestBadger(t, "")
	defer s.Close()

	now := time.Now()
	require.NoError(t, s.Put(ctx, record("fp", now, "first")))
	require.NoError(t, s.Put(ctx, record("fp", now.Add(-time.Minute), "older")))
	rec, _ := s.Lookup(ctx, "fp")
	assert.Equal(t, "first", rec.Outputs["out"].AsString())

	require.NoError(t, s.Put(ctx, record("fp", now.Add(time.Minute), "newer")))
	rec, _ = s.Lookup(ctx, "fp")
	assert.Equal(t, "newer", rec.Outputs["out"].AsString())
}

func TestBadgerStore_Corruption(t *testing.T) {
	ctx := context.Background()
	s := setupTestBadger(t, "")
	defer s.Close()

	t.Run("undecodable entry", func(t *testing.T) {
		require.NoError(t, s.db.Update(func(txn *badger.Txn) error {
			return txn.Set(key("bad"), []byte("{not json"))
		}))
		_, err := s.Lookup(ctx, "bad")
		assert.ErrorIs(t, err, ErrCorruption)

		// The cache hides it.
		rec, err := New(s).Lookup(ctx, "bad")
		assert.NoError(t, err)
		assert.Nil(t, rec)

		// A fresh completion replaces it.
		require.NoError(t, s.Put(ctx, record("bad", time.Now(), "repaired")))
		rec, err = s.Lookup(ctx, "bad")
		require.NoError(t, err)
		assert.Equal(t, "repaired", rec.Outputs["out"].AsString())
	})

	t.Run("entry stored under the wrong key", func(t *testing.T) {
		data, err := encodeRecord(record("other", time.Now(), "v"))
		require.NoError(t, err)
		require.NoError(t, s.db.Update(func(txn *badger.Txn) error {
			return txn.Set(key("mismatch"), data)
		}))
		_, err = s.Lookup(ctx, "mismatch")
		var ce *CorruptionError
		require.ErrorAs(t, err, &ce)
		assert.Contains(t, ce.Reason, "does not match")
	})
}
