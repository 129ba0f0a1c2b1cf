package workflow

// State is a counting session lifecycle state
type State string

const (
	// StateActive means the cursor points at an item that accepts input
	StateActive State = "ACTIVE"
	// StateFinished means the area has been counted to the end or closed explicitly
	StateFinished State = "FINISHED"
)

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known lifecycle state
func (s State) IsValid() bool {
	switch s {
	case StateActive, StateFinished:
		return true
	}
	return false
}

// IsTerminal returns true for the state a session reaches when counting is done.
// Finished is terminal for counting but can still be reopened for corrections.
func (s State) IsTerminal() bool {
	return s == StateFinished
}
