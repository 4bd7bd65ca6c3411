package filter

// State is the request lifecycle state.
type State int

const (
	// StateIdle is the state before request headers are processed.
	StateIdle State = iota

	// StateAwaitingAuthorization is the state while the authorization call
	// is in flight and the request is paused.
	StateAwaitingAuthorization

	// StateResumed is the terminal state of an authorized (or fail-open)
	// request.
	StateResumed

	// StateRejected is the terminal state of a denied or failed request.
	StateRejected
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingAuthorization:
		return "awaiting_authorization"
	case StateResumed:
		return "resumed"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state admits no further transitions.
func (s State) Terminal() bool {
	return s == StateResumed || s == StateRejected
}
