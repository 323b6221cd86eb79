package protocol

// State is a step of a request's lifecycle on the transport side.
type State int

const (
	StateReceived State = iota
	StateValidating
	StateRejected
	StateAccepted
	StateExecuting
	StateCompleted
	StateFailed
	StateTimedOut
	StateDisconnected
)

var stateNames = [...]string{
	StateReceived:     "received",
	StateValidating:   "validating",
	StateRejected:     "rejected",
	StateAccepted:     "accepted",
	StateExecuting:    "executing",
	StateCompleted:    "completed",
	StateFailed:       "failed",
	StateTimedOut:     "timed_out",
	StateDisconnected: "disconnected",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition can follow s.
func (s State) Terminal() bool {
	switch s {
	case StateRejected, StateCompleted, StateFailed, StateTimedOut, StateDisconnected:
		return true
	}
	return false
}

// next lists the legal transitions.
var next = map[State][]State{
	StateReceived:   {StateValidating},
	StateValidating: {StateRejected, StateAccepted},
	StateAccepted:   {StateExecuting},
	StateExecuting:  {StateCompleted, StateFailed, StateTimedOut, StateDisconnected},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to State) bool {
	for _, s := range next[from] {
		if s == to {
			return true
		}
	}
	return false
}
