package executor

import (
	"fmt"
	"strings"
)

// NodeError attributes a failure to the node, and optionally the input
// slot, it happened at.
type NodeError struct {
	Node string
	Slot string
	Err  error
}

func (e *NodeError) Error() string {
	if e.Slot != "" {
		return fmt.Sprintf("node %q input %q: %v", e.Node, e.Slot, e.Err)
	}
	return fmt.Sprintf("node %q: %v", e.Node, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

// RunError is the aggregate failure report of a run: every failed node with
// its error, and every node skipped because of a failure or cancellation.
type RunError struct {
	// Failures are ordered by the time each node failed.
	Failures []*NodeError
	Skipped  []string
	// Cause is the context error when the run was canceled.
	Cause error
}

func (e *RunError) Error() string {
	var b strings.Builder
	switch {
	case e.Cause != nil && len(e.Failures) == 0:
		fmt.Fprintf(&b, "run canceled: %v", e.Cause)
	default:
		fmt.Fprintf(&b, "run failed: %d node(s) failed", len(e.Failures))
		if first := e.First(); first != nil {
			fmt.Fprintf(&b, ", first %q", first.Node)
		}
		if e.Cause != nil {
			fmt.Fprintf(&b, " and run canceled (%v)", e.Cause)
		}
	}
	if len(e.Skipped) > 0 {
		fmt.Fprintf(&b, ", %d skipped (%s)", len(e.Skipped), strings.Join(e.Skipped, ", "))
	}
	for _, f := range e.Failures {
		b.WriteString("\n  ")
		b.WriteString(f.Error())
	}
	return b.String()
}

// Unwrap exposes every node failure, plus the cancellation cause, to
// errors.Is and errors.As.
func (e *RunError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures)+1)
	for _, f := range e.Failures {
		errs = append(errs, f)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// First returns the earliest failure, or nil when no node failed.
func (e *RunError) First() *NodeError {
	if len(e.Failures) == 0 {
		return nil
	}
	return e.Failures[0]
}

// Failure returns the failure of the named node, if it failed.
func (e *RunError) Failure(node string) (*NodeError, bool) {
	for _, f := range e.Failures {
		if f.Node == node {
			return f, true
		}
	}
	return nil, false
}
