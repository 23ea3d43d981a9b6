package supervisor

// State is a Supervisor's lifecycle stage.
type State int

const (
	// Connecting is the state from construction until the TCP connect
	// succeeds or fails.
	Connecting State = iota
	// WritingDefaults is writing the configured default registers to the
	// controller and to every cell bank.
	WritingDefaults
	// ReadingState is the initial full read populating the mirror with
	// both mutable values and session-lifetime calibration constants.
	ReadingState
	// Connected is steady state: the mirror is populated and the
	// executor is serving commands and polling.
	Connected
	// ConnectionLost follows any protocol error during steady state. The
	// executor has exited; further command submissions yield
	// ErrCancelled.
	ConnectionLost
	// Shutdown follows an explicit Close.
	Shutdown
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case WritingDefaults:
		return "writing-defaults"
	case ReadingState:
		return "reading-state"
	case Connected:
		return "connected"
	case ConnectionLost:
		return "connection-lost"
	case Shutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}
