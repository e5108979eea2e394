// Package selector refines a producer's output value before it reaches a
// consumer's input slot, e.g. picking the second file of a generated list.
package selector

import (
	"errors"
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// ErrSelection marks every failure to resolve an edge's value.
var ErrSelection = errors.New("selection error")

// SelectionError reports that a selector could not produce a value.
type SelectionError struct {
	Selector string
	Reason   string
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("selector %q: %s", e.Selector, e.Reason)
}

// Is makes errors.Is(err, ErrSelection) match any SelectionError.
func (e *SelectionError) Is(target error) bool { return target == ErrSelection }

func selectionf(name, format string, args ...any) error {
	return &SelectionError{Selector: name, Reason: fmt.Sprintf(format, args...)}
}

// Shape is the kind of value a selector expects to receive.
type Shape int

const (
	AnyShape Shape = iota
	// SequenceShape accepts lists and tuples.
	SequenceShape
)

func (s Shape) String() string {
	if s == SequenceShape {
		return "sequence"
	}
	return "any"
}

// Func is the pure mapping a Selector applies.
type Func func(v cty.Value) (cty.Value, error)

// Selector is a named, pure refinement attached to an edge.
type Selector struct {
	name  string
	shape Shape
	fn    Func
}

// New returns a selector. Errors returned by fn that are not already
// SelectionErrors are wrapped into one.
func New(name string, shape Shape, fn Func) *Selector {
	return &Selector{name: name, shape: shape, fn: fn}
}

// Name is the selector's display name, including bound arguments.
func (s *Selector) Name() string {
	if s == nil {
		return "identity"
	}
	return s.name
}

// Shape reports the declared input shape.
func (s *Selector) Shape() Shape {
	if s == nil {
		return AnyShape
	}
	return s.shape
}

// Apply runs the selector over a produced value. A nil Selector is the
// identity.
func (s *Selector) Apply(v cty.Value) (cty.Value, error) {
	if s == nil {
		return v, nil
	}
	if !v.IsKnown() || v.IsNull() {
		return cty.NilVal, selectionf(s.name, "value is null")
	}
	if s.shape == SequenceShape && !isSequence(v) {
		return cty.NilVal, selectionf(s.name, "expected a sequence, got %s", v.Type().FriendlyName())
	}
	out, err := s.fn(v)
	if err != nil {
		var se *SelectionError
		if errors.As(err, &se) {
			return cty.NilVal, err
		}
		return cty.NilVal, selectionf(s.name, "%v", err)
	}
	return out, nil
}

func isSequence(v cty.Value) bool {
	ty := v.Type()
	return ty.IsListType() || ty.IsTupleType()
}
