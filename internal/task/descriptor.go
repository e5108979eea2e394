package task

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/zclconf/go-cty/cty"
)

// Slot declares one named input of a Descriptor.
type Slot struct {
	Name        string
	Type        cty.Type
	Required    bool
	Default     *cty.Value
	Description string
}

// Descriptor is the immutable specification of one unit of work.
type Descriptor struct {
	// Tool is the identity of the command or function being wrapped.
	Tool string
	// Version participates in the fingerprint, so bumping it invalidates
	// every cached result produced by this descriptor.
	Version string
	Kind    Kind
	// Params are fixed tool parameters that do not flow along edges.
	Params  map[string]cty.Value
	Inputs  []Slot
	Outputs []string
	// Timeout bounds a single invocation. Zero means no limit.
	Timeout time.Duration
	Invoker Invoker
}

// Input returns the declared slot with the given name.
func (d *Descriptor) Input(name string) (Slot, bool) {
	for _, s := range d.Inputs {
		if s.Name == name {
			return s, true
		}
	}
	return Slot{}, false
}

// HasOutput reports whether name is a declared output slot.
func (d *Descriptor) HasOutput(name string) bool {
	for _, o := range d.Outputs {
		if o == name {
			return true
		}
	}
	return false
}

// Identity is the tool@version tag shown in logs and reports.
func (d *Descriptor) Identity() string {
	if d.Version == "" {
		return d.Tool
	}
	return d.Tool + "@" + d.Version
}

// Validate checks that the descriptor is internally consistent.
func (d *Descriptor) Validate() error {
	if d.Tool == "" {
		return errors.New("descriptor has no tool identity")
	}
	if d.Invoker == nil {
		return fmt.Errorf("descriptor %q has no invoker", d.Tool)
	}
	seen := make(map[string]struct{}, len(d.Inputs))
	for _, s := range d.Inputs {
		if s.Name == "" {
			return fmt.Errorf("descriptor %q declares an unnamed input", d.Tool)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("descriptor %q declares input %q twice", d.Tool, s.Name)
		}
		seen[s.Name] = struct{}{}
		if s.Required && s.Default != nil {
			return fmt.Errorf("descriptor %q: input %q is required but has a default", d.Tool, s.Name)
		}
	}
	seen = make(map[string]struct{}, len(d.Outputs))
	for _, o := range d.Outputs {
		if o == "" {
			return fmt.Errorf("descriptor %q declares an unnamed output", d.Tool)
		}
		if _, dup := seen[o]; dup {
			return fmt.Errorf("descriptor %q declares output %q twice", d.Tool, o)
		}
		seen[o] = struct{}{}
	}
	return nil
}

// NewInputBoundary returns the descriptor of a node that exposes each field
// as both an optional input slot (the literal binding point) and an output.
func NewInputBoundary(fields ...string) *Descriptor {
	return newBoundary("input", InputBoundary, fields)
}

// NewOutputBoundary returns the descriptor of a node that collects each field
// from upstream and re-exposes it as an output.
func NewOutputBoundary(fields ...string) *Descriptor {
	return newBoundary("output", OutputBoundary, fields)
}

func newBoundary(tool string, kind Kind, fields []string) *Descriptor {
	sorted := append([]string(nil), fields...)
	sort.Strings(sorted)
	d := &Descriptor{
		Tool:    tool,
		Kind:    kind,
		Outputs: sorted,
		Invoker: Identity(),
	}
	for _, f := range sorted {
		d.Inputs = append(d.Inputs, Slot{Name: f, Type: cty.DynamicPseudoType})
	}
	return d
}
