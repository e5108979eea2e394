package dag

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration marks a malformed graph.
	ErrConfiguration = errors.New("configuration error")
	// ErrCycle marks a graph whose edges form a cycle.
	ErrCycle = errors.New("cycle detected")
	// ErrMissingBinding marks a required input slot with neither an edge nor
	// a literal. It is also a configuration error.
	ErrMissingBinding = errors.New("missing binding")
)

// ConfigurationError describes a construction-time mistake.
type ConfigurationError struct {
	Node string
	Slot string
	Msg  string
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.Node != "" && e.Slot != "":
		return fmt.Sprintf("%s: node %q slot %q: %s", ErrConfiguration, e.Node, e.Slot, e.Msg)
	case e.Node != "":
		return fmt.Sprintf("%s: node %q: %s", ErrConfiguration, e.Node, e.Msg)
	default:
		return fmt.Sprintf("%s: %s", ErrConfiguration, e.Msg)
	}
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

func configErrorf(node, slot, format string, args ...any) error {
	return &ConfigurationError{Node: node, Slot: slot, Msg: fmt.Sprintf(format, args...)}
}

// CycleError reports one cycle found during validation.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCycle, strings.Join(e.Path, " -> "))
}

func (e *CycleError) Is(target error) bool { return target == ErrCycle }

// MissingBindingError lists every unbound required slot, as "node.slot".
type MissingBindingError struct {
	Slots []string
}

func (e *MissingBindingError) Error() string {
	return fmt.Sprintf("%s: unbound required inputs: %s", ErrMissingBinding, strings.Join(e.Slots, ", "))
}

func (e *MissingBindingError) Is(target error) bool {
	return target == ErrMissingBinding || target == ErrConfiguration
}
