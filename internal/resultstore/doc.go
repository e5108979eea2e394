// Package resultstore holds the per-run execution state of every node: its
// current state, the outputs it produced and the error it failed with.
//
// # Concurrency Model
//
// The store is written by many executor workers at once and read by workers
// resolving downstream edges. Each node's entry is independent, so the store
// uses sync.Map rather than one lock over everything. State changes go
// through Transition, a compare-and-swap that also enforces the legal
// transition table of the task package.
//
// # Lifecycle
//
// A Store is created fresh for each run. Records are written once, when a
// node completes, and are read-only afterwards.
package resultstore
