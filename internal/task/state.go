package task

import "fmt"

// State is the runtime execution state of a node within one run.
type State int32

const (
	Pending State = iota
	Ready
	Running
	Cached
	Completed
	Failed
	Skipped
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Cached:
		return "cached"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON and logs.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name written by MarshalText.
func (s *State) UnmarshalText(b []byte) error {
	for st := Pending; st <= Skipped; st++ {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", b)
}

// IsTerminal reports whether no further transition can leave the state.
func (s State) IsTerminal() bool {
	switch s {
	case Completed, Failed, Skipped:
		return true
	default:
		return false
	}
}

// CanTransition reports whether from -> to is a legal move.
//
// Pending nodes may fail before becoming Ready when an incoming edge cannot be
// resolved. Cached is transient: it always continues to Completed.
func CanTransition(from, to State) bool {
	switch from {
	case Pending:
		return to == Ready || to == Failed || to == Skipped
	case Ready:
		return to == Running || to == Cached || to == Skipped
	case Running:
		return to == Completed || to == Failed || to == Skipped
	case Cached:
		return to == Completed
	default:
		return false
	}
}
