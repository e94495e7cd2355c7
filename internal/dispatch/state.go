package dispatch

// State is a step of the request state machine:
// Received → Planned → Selected → Dispatched → {Succeeded, Retrying, Failed}.
// Retrying leads back to Dispatched.
type State int

const (
	StateReceived State = iota
	StatePlanned
	StateSelected
	StateDispatched
	StateRetrying
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StatePlanned:
		return "planned"
	case StateSelected:
		return "selected"
	case StateDispatched:
		return "dispatched"
	case StateRetrying:
		return "retrying"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}
