package resultstore

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vk/dagflow/internal/fingerprint"
	"github.com/vk/dagflow/internal/task"
	"github.com/zclconf/go-cty/cty"
)

// ErrRecordExists is returned when a second record is written for a node.
var ErrRecordExists = errors.New("record already written")

// Record is the outcome of one completed node.
type Record struct {
	Node        string
	Outputs     map[string]cty.Value
	Fingerprint fingerprint.Fingerprint
	CompletedAt time.Time
	// FromCache is set when the outputs were replayed from the cache.
	FromCache bool
}

// Output returns a named output value.
func (r *Record) Output(slot string) (cty.Value, bool) {
	v, ok := r.Outputs[slot]
	return v, ok
}

// TransitionError reports an illegal or lost state change.
type TransitionError struct {
	Node     string
	From, To task.State
	Actual   task.State
}

func (e *TransitionError) Error() string {
	if !task.CanTransition(e.From, e.To) {
		return fmt.Sprintf("node %q: illegal transition %s -> %s", e.Node, e.From, e.To)
	}
	return fmt.Sprintf("node %q: cannot move %s -> %s, node is %s", e.Node, e.From, e.To, e.Actual)
}

// Store keeps states, records and errors in three independent sync.Maps
// keyed by node name.
type Store struct {
	states  sync.Map // node -> *atomic.Int32
	records sync.Map // node -> *Record
	errors  sync.Map // node -> error
}

// New creates a new, empty store.
func New() *Store {
	return &Store{}
}

func (s *Store) state(node string) *atomic.Int32 {
	v, _ := s.states.LoadOrStore(node, new(atomic.Int32))
	return v.(*atomic.Int32)
}

// State returns the node's current state. Unknown nodes are Pending.
func (s *Store) State(node string) task.State {
	v, ok := s.states.Load(node)
	if !ok {
		return task.Pending
	}
	return task.State(v.(*atomic.Int32).Load())
}

// Transition moves node from one state to another. It fails if the move is
// not legal or if the node is no longer in the from state.
func (s *Store) Transition(node string, from, to task.State) error {
	if !task.CanTransition(from, to) {
		return &TransitionError{Node: node, From: from, To: to, Actual: s.State(node)}
	}
	st := s.state(node)
	if !st.CompareAndSwap(int32(from), int32(to)) {
		return &TransitionError{Node: node, From: from, To: to, Actual: task.State(st.Load())}
	}
	return nil
}

// Put stores the completion record of a node. A record is written at most
// once per run.
func (s *Store) Put(rec *Record) error {
	if _, loaded := s.records.LoadOrStore(rec.Node, rec); loaded {
		return fmt.Errorf("node %q: %w", rec.Node, ErrRecordExists)
	}
	return nil
}

// Record returns the completion record of a node.
func (s *Store) Record(node string) (*Record, bool) {
	v, ok := s.records.Load(node)
	if !ok {
		return nil, false
	}
	return v.(*Record), true
}

// SetError records the failure error of a node.
func (s *Store) SetError(node string, err error) {
	s.errors.Store(node, err)
}

// Error returns the recorded failure of a node, or nil.
func (s *Store) Error(node string) error {
	v, ok := s.errors.Load(node)
	if !ok {
		return nil
	}
	return v.(error)
}

// Snapshot returns the state of every node the store has seen, sorted by
// name.
func (s *Store) Snapshot() []NodeState {
	var out []NodeState
	s.states.Range(func(k, v any) bool {
		out = append(out, NodeState{Node: k.(string), State: task.State(v.(*atomic.Int32).Load())})
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Node < out[j].Node })
	return out
}

// NodeState pairs a node with its state.
type NodeState struct {
	Node  string     `json:"node"`
	State task.State `json:"state"`
}

// Track registers nodes as Pending so they show up in snapshots before
// their first transition.
func (s *Store) Track(nodes ...string) {
	for _, n := range nodes {
		s.state(n)
	}
}
