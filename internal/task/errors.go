package task

import (
	"errors"
	"fmt"
)

var (
	// ErrProcess marks failures reported by an external tool.
	ErrProcess = errors.New("process error")
	// ErrComputation marks failures of an in-process transform.
	ErrComputation = errors.New("computation error")
)

// ProcessError is returned when an external tool does not succeed.
type ProcessError struct {
	Tool string
	// ExitCode is the tool's exit indicator; -1 when the tool never produced one.
	ExitCode int
	// Diagnostic holds captured diagnostic text, typically the tail of stderr.
	Diagnostic string
	Err        error
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("tool %q exited with code %d", e.Tool, e.ExitCode)
	if e.Diagnostic != "" {
		msg += ": " + e.Diagnostic
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProcessError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrProcess) match any ProcessError.
func (e *ProcessError) Is(target error) bool { return target == ErrProcess }

// ComputationError is returned when a transform function is handed inputs it
// cannot compute over.
type ComputationError struct {
	Function string
	Reason   string
	Err      error
}

func (e *ComputationError) Error() string {
	msg := fmt.Sprintf("function %q: %s", e.Function, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ComputationError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrComputation) match any ComputationError.
func (e *ComputationError) Is(target error) bool { return target == ErrComputation }

// Computationf builds a ComputationError with a formatted reason.
func Computationf(function, format string, args ...any) *ComputationError {
	return &ComputationError{Function: function, Reason: fmt.Sprintf(format, args...)}
}
