package task

import "fmt"

// Kind classifies how a node's work is carried out.
type Kind int

const (
	// ExternalTask wraps a call to a tool outside the process.
	ExternalTask Kind = iota
	// TransformFunction is a pure, in-process computation over resolved inputs.
	TransformFunction
	// InputBoundary carries externally supplied literal values into the graph.
	InputBoundary
	// OutputBoundary gathers the values requested by the caller.
	OutputBoundary
)

func (k Kind) String() string {
	switch k {
	case ExternalTask:
		return "external"
	case TransformFunction:
		return "transform"
	case InputBoundary:
		return "input"
	case OutputBoundary:
		return "output"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// IsBoundary reports whether the kind is one of the two boundary kinds.
func (k Kind) IsBoundary() bool {
	return k == InputBoundary || k == OutputBoundary
}

// ParseKind converts the textual form produced by String back into a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "external", "":
		return ExternalTask, nil
	case "transform":
		return TransformFunction, nil
	case "input":
		return InputBoundary, nil
	case "output":
		return OutputBoundary, nil
	}
	return ExternalTask, fmt.Errorf("unknown node kind %q", s)
}
