package dag

import "sort"

// Validate finalizes the graph. It fails with a CycleError if the edges form
// a cycle, and with a MissingBindingError if a slot that must carry a value
// has neither an edge nor a literal. Execution requires a validated graph.
func (g *Graph) Validate() error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	g.validated = false
	if err := g.detectCyclesLocked(); err != nil {
		return err
	}
	if missing := g.unboundLocked(); len(missing) > 0 {
		return &MissingBindingError{Slots: missing}
	}
	g.validated = true
	return nil
}

// detectCyclesLocked is a depth-first search with a recursion stack; the
// stack is the reported path once a back edge is found.
func (g *Graph) detectCyclesLocked() error {
	dependents := make(map[string][]string, len(g.nodes))
	for _, e := range g.edges {
		dependents[e.From] = append(dependents[e.From], e.To)
	}

	permanent := make(map[string]bool, len(g.nodes))
	onStack := make(map[string]int, len(g.nodes))
	var stack []string

	var visit func(id string) error
	visit = func(id string) error {
		if permanent[id] {
			return nil
		}
		if pos, ok := onStack[id]; ok {
			path := append(append([]string(nil), stack[pos:]...), id)
			return &CycleError{Path: path}
		}

		onStack[id] = len(stack)
		stack = append(stack, id)
		for _, next := range dependents[id] {
			if err := visit(next); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		delete(onStack, id)
		permanent[id] = true
		return nil
	}

	for _, id := range g.order {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}

// unboundLocked returns every slot that must be bound but is not, as
// "node.slot", sorted.
func (g *Graph) unboundLocked() []string {
	feeds := make(map[slotKey]bool)
	for _, e := range g.edges {
		feeds[slotKey{e.From, e.FromSlot}] = true
	}
	for _, o := range g.outputs {
		feeds[slotKey{o.Node, o.Slot}] = true
	}

	var missing []string
	for _, id := range g.order {
		n := g.nodes[id]
		for _, s := range n.Descriptor.Inputs {
			key := slotKey{id, s.Name}
			if _, ok := g.inbound[key]; ok {
				continue
			}
			if _, ok := g.literals[key]; ok {
				continue
			}
			needed := s.Required
			// Boundary fields are optional, but a field that is read by an
			// edge or exposed as an output must hold a value.
			if n.Kind().IsBoundary() && feeds[slotKey{id, s.Name}] {
				needed = true
			}
			if needed {
				missing = append(missing, id+"."+s.Name)
			}
		}
	}
	sort.Strings(missing)
	return missing
}

// Targets returns the nodes a run has to settle: the ancestors of the
// requested outputs, or every node when no output was requested.
func (g *Graph) Targets() map[string]struct{} {
	outputs := g.Outputs()
	if len(outputs) == 0 {
		all := make(map[string]struct{})
		for _, n := range g.Nodes() {
			all[n.Name] = struct{}{}
		}
		return all
	}
	names := make([]string, 0, len(outputs))
	for _, o := range outputs {
		names = append(names, o.Node)
	}
	return g.Ancestors(names...)
}
