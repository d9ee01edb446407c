package camview

// State is the lifecycle state of a renderer.
type State uint8

const (
	// StateUninitialized is the state before a successful Initialize.
	StateUninitialized State = iota

	// StateReady means GPU resources exist and the loop is idle.
	StateReady

	// StateRunning means the frame loop is active.
	StateRunning

	// StateStopped means the loop was stopped. Resources are kept and
	// Start may be called again.
	StateStopped

	// StateDestroyed is terminal.
	StateDestroyed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// initialized reports whether GPU or CPU resources exist.
func (s State) initialized() bool {
	return s == StateReady || s == StateRunning || s == StateStopped
}
