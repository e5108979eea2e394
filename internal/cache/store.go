package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/dagflow/internal/fingerprint"
	"github.com/vk/dagflow/internal/resultstore"
)

// ErrCorruption marks an unreadable or mismatched cache entry.
var ErrCorruption = errors.New("cache entry corrupted")

// CorruptionError describes one corrupted entry.
type CorruptionError struct {
	Fingerprint fingerprint.Fingerprint
	Reason      string
	Err         error
}

func (e *CorruptionError) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", ErrCorruption, e.Fingerprint.Short(), e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CorruptionError) Unwrap() error { return e.Err }

func (e *CorruptionError) Is(target error) bool { return target == ErrCorruption }

// Store is a fingerprint keyed record store.
type Store interface {
	// Lookup returns the record stored under fp, or nil if there is none.
	Lookup(ctx context.Context, fp fingerprint.Fingerprint) (*resultstore.Record, error)
	// Put stores rec under rec.Fingerprint. An existing entry is replaced
	// only by a record with a strictly newer completion time.
	Put(ctx context.Context, rec *resultstore.Record) error
}
