package cache

import "fmt"

// State is the connection state of a Client.
type State int

const (
	// StateDisconnected is the initial state and the state after Close.
	StateDisconnected State = iota

	// StateConnecting means a connection attempt is in progress.
	StateConnecting

	// StateReady means Redis serves operations.
	StateReady

	// StateReconnecting means the connection was lost and the backoff loop runs.
	StateReconnecting

	// StateFailedOver means the in-memory store serves operations.
	StateFailedOver
)

// String returns the state name used in logs and readiness output.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateReconnecting:
		return "reconnecting"
	case StateFailedOver:
		return "failed_over"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Mode is the backend currently serving operations.
type Mode string

const (
	// ModeNetworked routes operations to Redis.
	ModeNetworked Mode = "networked"

	// ModeFallback routes operations to the in-memory store.
	ModeFallback Mode = "fallback"
)

// Mode derives the active backend from the state.
func (s State) Mode() Mode {
	if s == StateFailedOver {
		return ModeFallback
	}
	return ModeNetworked
}
