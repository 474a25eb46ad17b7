package mesh

import "robotmesh/internal/check"

// State is where a Controller is in its start → scan → connect cycle.
type State uint8

const (
	StateIdle State = iota
	StateStarted
	StateScanning
	StateConnecting
	StateConnected
	StateDisconnected
	// StateFailed is terminal. Construct a new Controller to recover.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarted:
		return "started"
	case StateScanning:
		return "scanning"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateFailed:
		return "failed"
	default:
		check.Assertf(false, "unknown mesh state: %d", s)
		return "unknown"
	}
}

// canTransition reports whether s → to is a legal edge.
func (s State) canTransition(to State) bool {
	switch s {
	case StateIdle:
		return to == StateStarted || to == StateFailed
	case StateStarted:
		return to == StateScanning || to == StateConnecting
	case StateScanning:
		return to == StateStarted
	case StateConnecting:
		return to == StateConnected || to == StateDisconnected
	case StateConnected:
		return to == StateDisconnected
	case StateDisconnected:
		return to == StateStarted
	}
	return false
}
