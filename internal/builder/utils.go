package builder

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// formatTraversal converts an hcl.Traversal to a human-readable string for logging.
func formatTraversal(t hcl.Traversal) string {
	var sb strings.Builder
	for i, part := range t {
		switch p := part.(type) {
		case hcl.TraverseRoot:
			sb.WriteString(p.Name)
		case hcl.TraverseAttr:
			sb.WriteRune('.')
			sb.WriteString(p.Name)
		case hcl.TraverseIndex:
			sb.WriteRune('[')
			switch p.Key.Type() {
			case cty.String:
				sb.WriteString(fmt.Sprintf("%q", p.Key.AsString()))
			case cty.Number:
				sb.WriteString(p.Key.AsBigFloat().Text('f', -1))
			default:
				sb.WriteString("...")
			}
			sb.WriteRune(']')
		default:
			if i > 0 {
				sb.WriteRune('.')
			}
			sb.WriteString("?")
		}
	}
	return sb.String()
}

// ref is a parsed reference to an output slot, or to a pipeline input.
type ref struct {
	Node  string
	Slot  string
	Index *int
}

// parseRef analyzes `node.<name>.<output>[i]` and `input.<name>[i]`.
func parseRef(t hcl.Traversal) (*ref, error) {
	var r ref
	var rest hcl.Traversal
	switch t.RootName() {
	case "node":
		if len(t) < 3 {
			return nil, fmt.Errorf("reference %q must name a node and one of its outputs", formatTraversal(t))
		}
		name, ok1 := t[1].(hcl.TraverseAttr)
		slot, ok2 := t[2].(hcl.TraverseAttr)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("malformed reference %q", formatTraversal(t))
		}
		r.Node, r.Slot, rest = name.Name, slot.Name, t[3:]
	case inputNode:
		if len(t) < 2 {
			return nil, fmt.Errorf("reference %q must name a pipeline input", formatTraversal(t))
		}
		field, ok := t[1].(hcl.TraverseAttr)
		if !ok {
			return nil, fmt.Errorf("malformed reference %q", formatTraversal(t))
		}
		r.Node, r.Slot, rest = inputNode, field.Name, t[2:]
	default:
		return nil, fmt.Errorf("unknown reference root %q in %q, expected 'node' or 'input'", t.RootName(), formatTraversal(t))
	}

	switch len(rest) {
	case 0:
		return &r, nil
	case 1:
		idx, ok := rest[0].(hcl.TraverseIndex)
		if ok && idx.Key.Type() == cty.Number && !idx.Key.IsNull() {
			bf := idx.Key.AsBigFloat()
			if bf.IsInt() {
				i64, _ := bf.Int64()
				i := int(i64)
				r.Index = &i
				return &r, nil
			}
		}
	}
	return nil, fmt.Errorf("reference %q may only be followed by a single numeric index", formatTraversal(t))
}
