package dag

import (
	"sort"

	"github.com/zclconf/go-cty/cty"
)

// Node returns the node with the given name.
func (g *Graph) Node(name string) (*Node, bool) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	n, ok := g.nodes[name]
	return n, ok
}

// Nodes returns every node in insertion order.
func (g *Graph) Nodes() []*Node {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	out := make([]*Node, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.nodes[name])
	}
	return out
}

// InboundEdge returns the edge feeding a node's input slot, if any.
func (g *Graph) InboundEdge(node, slot string) (*Edge, bool) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	e, ok := g.inbound[slotKey{node, slot}]
	return e, ok
}

// Literal returns the literal bound to a node's input slot, if any.
func (g *Graph) Literal(node, slot string) (cty.Value, bool) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	v, ok := g.literals[slotKey{node, slot}]
	return v, ok
}

// Edges returns every edge in the order they were connected.
func (g *Graph) Edges() []*Edge {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return append([]*Edge(nil), g.edges...)
}

// Outputs returns the requested outputs in the order they were marked.
func (g *Graph) Outputs() []Output {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return append([]Output(nil), g.outputs...)
}

// Dependencies returns the distinct, sorted names of the nodes id reads from.
func (g *Graph) Dependencies(id string) []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	set := make(map[string]struct{})
	for _, e := range g.edges {
		if e.To == id {
			set[e.From] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// Dependents returns the distinct, sorted names of the nodes reading from id.
func (g *Graph) Dependents(id string) []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	set := make(map[string]struct{})
	for _, e := range g.edges {
		if e.From == id {
			set[e.To] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// Ancestors returns the given nodes plus every node they transitively
// depend on.
func (g *Graph) Ancestors(names ...string) map[string]struct{} {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	deps := make(map[string][]string)
	for _, e := range g.edges {
		deps[e.To] = append(deps[e.To], e.From)
	}

	seen := make(map[string]struct{})
	stack := append([]string(nil), names...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[n]; ok {
			continue
		}
		if _, ok := g.nodes[n]; !ok {
			continue
		}
		seen[n] = struct{}{}
		stack = append(stack, deps[n]...)
	}
	return seen
}

// Validated reports whether Validate has succeeded since the last change.
func (g *Graph) Validated() bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.validated
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
