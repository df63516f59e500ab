package domain

// SessionState is the lifecycle position of a daily planning session.
type SessionState int

const (
	StateDraft SessionState = iota
	StatePlanned
	StateAssigned
	StateInProgress
	StateCompleted
)

var stateNames = [...]string{"DRAFT", "PLANNED", "ASSIGNED", "IN_PROGRESS", "COMPLETED"}

func (s SessionState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}

// MarshalText encodes the state by name.
func (s SessionState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// CanTransition is the total transition table of the session state machine.
// PLANNED -> PLANNED is the idempotent re-plan.
func (s SessionState) CanTransition(to SessionState) bool {
	switch s {
	case StateDraft:
		return to == StatePlanned
	case StatePlanned:
		return to == StatePlanned || to == StateAssigned
	case StateAssigned:
		return to == StateInProgress
	case StateInProgress:
		return to == StateCompleted
	default:
		return false
	}
}

// UnmarshalText parses a state name as produced by MarshalText.
func (s *SessionState) UnmarshalText(b []byte) error {
	for i, n := range stateNames {
		if n == string(b) {
			*s = SessionState(i)
			return nil
		}
	}
	return Errorf(CodeInvalidArgument, "unknown session state %q", string(b))
}
