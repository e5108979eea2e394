package dag

import (
	"sync"

	"github.com/vk/dagflow/internal/selector"
	"github.com/vk/dagflow/internal/task"
	"github.com/zclconf/go-cty/cty"
)

// Handle identifies a node registered with a Graph.
type Handle string

// Name returns the node name behind the handle.
func (h Handle) Name() string { return string(h) }

// Node is a vertex of the graph. Its descriptor is fixed at construction.
type Node struct {
	Name       string
	Descriptor *task.Descriptor
}

// Kind is shorthand for the descriptor's kind.
func (n *Node) Kind() task.Kind { return n.Descriptor.Kind }

// Edge carries FromSlot of node From into slot ToSlot of node To.
type Edge struct {
	From     string
	FromSlot string
	// Selector refines the produced value; nil means identity.
	Selector *selector.Selector
	To       string
	ToSlot   string
}

// Output is a requested output of the graph.
type Output struct {
	// Name is the exposed name returned to the caller.
	Name string
	Node string
	Slot string
}

type slotKey struct {
	node string
	slot string
}

// Graph is the pipeline DAG. All methods are safe for concurrent use, but a
// graph is normally built by one goroutine and then only read.
type Graph struct {
	mutex sync.RWMutex

	name  string
	nodes map[string]*Node
	// order keeps insertion order for deterministic iteration.
	order []string

	// inbound maps a destination slot to the single edge feeding it.
	inbound  map[slotKey]*Edge
	literals map[slotKey]cty.Value
	edges    []*Edge

	outputs   []Output
	validated bool
}
