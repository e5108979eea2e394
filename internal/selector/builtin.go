package selector

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// Identity passes the value through unchanged.
func Identity() *Selector {
	return New("identity", AnyShape, func(v cty.Value) (cty.Value, error) { return v, nil })
}

// Index selects the i-th element of a sequence. Negative indexes count from
// the end.
func Index(i int) *Selector {
	return New(fmt.Sprintf("index(%d)", i), SequenceShape, func(v cty.Value) (cty.Value, error) {
		n := v.LengthInt()
		at := i
		if at < 0 {
			at += n
		}
		if at < 0 || at >= n {
			return cty.NilVal, selectionf(fmt.Sprintf("index(%d)", i), "index out of range for sequence of length %d", n)
		}
		return v.Index(cty.NumberIntVal(int64(at))), nil
	})
}

// First selects element 0.
func First() *Selector { return rename(Index(0), "first") }

// Second selects element 1.
func Second() *Selector { return rename(Index(1), "second") }

// Last selects the final element.
func Last() *Selector { return rename(Index(-1), "last") }

// Contains selects the first string element that contains substr.
func Contains(substr string) *Selector {
	name := fmt.Sprintf("contains(%q)", substr)
	return New(name, SequenceShape, func(v cty.Value) (cty.Value, error) {
		for it := v.ElementIterator(); it.Next(); {
			_, el := it.Element()
			if el.IsNull() || !el.IsKnown() || el.Type() != cty.String {
				continue
			}
			if strings.Contains(el.AsString(), substr) {
				return el, nil
			}
		}
		return cty.NilVal, selectionf(name, "no element contains %q", substr)
	})
}

// ToList wraps a scalar into a one-element list and leaves sequences as
// they are.
func ToList() *Selector {
	return New("to_list", AnyShape, func(v cty.Value) (cty.Value, error) {
		if isSequence(v) {
			return v, nil
		}
		return cty.TupleVal([]cty.Value{v}), nil
	})
}

func rename(s *Selector, name string) *Selector {
	inner := s.fn
	return New(name, s.shape, func(v cty.Value) (cty.Value, error) {
		out, err := inner(v)
		if se, ok := err.(*SelectionError); ok {
			return cty.NilVal, &SelectionError{Selector: name, Reason: se.Reason}
		}
		return out, err
	})
}

// Lookup builds a built-in selector by name with its extra arguments, as
// written in a pipeline file: `second(x)`, `index(x, 2)`, `contains(x, "aseg")`.
func Lookup(name string, args []cty.Value) (*Selector, error) {
	switch name {
	case "identity", "first", "second", "last", "to_list":
		if len(args) != 0 {
			return nil, fmt.Errorf("selector %q takes no extra arguments, got %d", name, len(args))
		}
	case "index", "contains":
		if len(args) != 1 {
			return nil, fmt.Errorf("selector %q takes exactly one extra argument, got %d", name, len(args))
		}
	default:
		return nil, fmt.Errorf("unknown selector %q", name)
	}

	switch name {
	case "identity":
		return Identity(), nil
	case "first":
		return First(), nil
	case "second":
		return Second(), nil
	case "last":
		return Last(), nil
	case "to_list":
		return ToList(), nil
	case "index":
		if args[0].Type() != cty.Number || args[0].IsNull() {
			return nil, fmt.Errorf("selector index: argument must be a number")
		}
		bf := args[0].AsBigFloat()
		if !bf.IsInt() {
			return nil, fmt.Errorf("selector index: argument must be a whole number")
		}
		i, acc := bf.Int64()
		if acc != big.Exact {
			return nil, fmt.Errorf("selector index: argument out of range")
		}
		return Index(int(i)), nil
	default: // contains
		if args[0].Type() != cty.String || args[0].IsNull() {
			return nil, fmt.Errorf("selector contains: argument must be a string")
		}
		return Contains(args[0].AsString()), nil
	}
}

// IsBuiltin reports whether name is a selector understood by Lookup.
func IsBuiltin(name string) bool {
	switch name {
	case "identity", "first", "second", "last", "to_list", "index", "contains":
		return true
	}
	return false
}
