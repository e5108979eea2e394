// Package cache maps a node's fingerprint to the outputs it produced the last
// time it ran successfully.
//
// Two backends implement Store: MemoryStore, which lives for one process,
// and BadgerStore, which persists entries on disk so unchanged nodes are
// skipped across process runs. Cache wraps a Store and guarantees that at
// most one execution per fingerprint is in flight at any time.
//
// An entry that cannot be decoded, or that decodes to a different
// fingerprint than its key, is reported as a CorruptionError. Cache treats
// such an entry as a miss and never fails a run because of it.
package cache
