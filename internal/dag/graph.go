package dag

import (
	"fmt"

	"github.com/vk/dagflow/internal/selector"
	"github.com/vk/dagflow/internal/task"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// New creates and returns an initialized, empty Graph.
func New(name string) *Graph {
	return &Graph{
		name:     name,
		nodes:    make(map[string]*Node),
		inbound:  make(map[slotKey]*Edge),
		literals: make(map[slotKey]cty.Value),
	}
}

// Name returns the graph's name.
func (g *Graph) Name() string { return g.name }

// AddNode registers a node under a unique name.
func (g *Graph) AddNode(name string, desc *task.Descriptor) (Handle, error) {
	if name == "" {
		return "", configErrorf("", "", "node name must not be empty")
	}
	if desc == nil {
		return "", configErrorf(name, "", "nil descriptor")
	}
	if err := desc.Validate(); err != nil {
		return "", configErrorf(name, "", "%v", err)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[name]; ok {
		return "", configErrorf(name, "", "a node with this name already exists")
	}
	g.nodes[name] = &Node{Name: name, Descriptor: desc}
	g.order = append(g.order, name)
	g.validated = false
	return Handle(name), nil
}

// Connect feeds outSlot of src into inSlot of dst. A nil selector is the
// identity.
func (g *Graph) Connect(src Handle, outSlot string, dst Handle, inSlot string, sel *selector.Selector) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	from, ok := g.nodes[src.Name()]
	if !ok {
		return configErrorf(src.Name(), "", "source node not found")
	}
	to, ok := g.nodes[dst.Name()]
	if !ok {
		return configErrorf(dst.Name(), "", "destination node not found")
	}
	if !from.Descriptor.HasOutput(outSlot) {
		return configErrorf(from.Name, outSlot, "output slot is not declared by %s", from.Descriptor.Identity())
	}
	if _, ok := to.Descriptor.Input(inSlot); !ok {
		return configErrorf(to.Name, inSlot, "input slot is not declared by %s", to.Descriptor.Identity())
	}
	if err := g.checkUnboundLocked(to.Name, inSlot); err != nil {
		return err
	}

	e := &Edge{From: from.Name, FromSlot: outSlot, Selector: sel, To: to.Name, ToSlot: inSlot}
	g.inbound[slotKey{to.Name, inSlot}] = e
	g.edges = append(g.edges, e)
	g.validated = false
	return nil
}

// BindLiteral binds a constant value to an input slot. The value is converted
// to the slot's declared type.
func (g *Graph) BindLiteral(h Handle, inSlot string, value cty.Value) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	n, ok := g.nodes[h.Name()]
	if !ok {
		return configErrorf(h.Name(), "", "node not found")
	}
	slot, ok := n.Descriptor.Input(inSlot)
	if !ok {
		return configErrorf(n.Name, inSlot, "input slot is not declared by %s", n.Descriptor.Identity())
	}
	if err := g.checkUnboundLocked(n.Name, inSlot); err != nil {
		return err
	}
	if !value.IsWhollyKnown() {
		return configErrorf(n.Name, inSlot, "literal value must be fully known")
	}
	converted, err := convertToSlot(value, slot)
	if err != nil {
		return configErrorf(n.Name, inSlot, "%v", err)
	}

	g.literals[slotKey{n.Name, inSlot}] = converted
	g.validated = false
	return nil
}

// MarkOutput requests outSlot of h as a result of the graph. Fields of an
// output boundary node are exposed by their own name, any other slot as
// "node.slot".
func (g *Graph) MarkOutput(h Handle, outSlot string) (string, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	n, ok := g.nodes[h.Name()]
	if !ok {
		return "", configErrorf(h.Name(), "", "node not found")
	}
	if !n.Descriptor.HasOutput(outSlot) {
		return "", configErrorf(n.Name, outSlot, "output slot is not declared by %s", n.Descriptor.Identity())
	}

	name := n.Name + "." + outSlot
	if n.Kind() == task.OutputBoundary {
		name = outSlot
	}
	for _, o := range g.outputs {
		if o.Name == name {
			return "", configErrorf(n.Name, outSlot, "output %q is already requested", name)
		}
	}
	g.outputs = append(g.outputs, Output{Name: name, Node: n.Name, Slot: outSlot})
	g.validated = false
	return name, nil
}

func (g *Graph) checkUnboundLocked(node, slot string) error {
	key := slotKey{node, slot}
	if e, ok := g.inbound[key]; ok {
		return configErrorf(node, slot, "slot is already bound by an edge from %s.%s", e.From, e.FromSlot)
	}
	if _, ok := g.literals[key]; ok {
		return configErrorf(node, slot, "slot is already bound to a literal")
	}
	return nil
}

// ConvertToSlot converts v to the slot's declared type. Slots typed as
// "any" accept every value unchanged.
func ConvertToSlot(v cty.Value, slot task.Slot) (cty.Value, error) {
	return convertToSlot(v, slot)
}

func convertToSlot(v cty.Value, slot task.Slot) (cty.Value, error) {
	if slot.Type == cty.NilType || slot.Type.Equals(cty.DynamicPseudoType) {
		return v, nil
	}
	out, err := convert.Convert(v, slot.Type)
	if err != nil {
		return cty.NilVal, fmt.Errorf("cannot use %s as %s: %w", v.Type().FriendlyName(), slot.Type.FriendlyName(), err)
	}
	return out, nil
}
