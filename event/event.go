// Package event defines the typed signals a Supervisor emits and the bus
// that carries them to whichever goroutine the caller uses as its UI
// scheduler.
package event

// Kind identifies which signal an Event carries.
type Kind int

const (
	// CellUpdated fires whenever a cell's mirror changed: a write started,
	// a write completed, or a poll folded in a fresh read. CellIndex names
	// which cell (1-indexed).
	CellUpdated Kind = iota
	// ControllerUpdated fires whenever the controller mirror changed.
	ControllerUpdated
	// Updated fires once at the end of a polling pass, after every
	// CellUpdated/ControllerUpdated event for that pass has been sent.
	Updated
	// ConnectionError fires when the session is torn down by a protocol
	// error; Message is a user-facing description. It is the last event the
	// Supervisor sends: a Supervisor does not reconnect.
	ConnectionError
)

func (k Kind) String() string {
	switch k {
	case CellUpdated:
		return "cell-updated"
	case ControllerUpdated:
		return "controller-updated"
	case Updated:
		return "updated"
	case ConnectionError:
		return "connection-error"
	default:
		return "unknown"
	}
}

// Event is one signal emitted by a Supervisor.
type Event struct {
	Kind Kind

	// CellIndex is set for CellUpdated, 1-indexed.
	CellIndex int

	// Message is set for ConnectionError.
	Message string
}

// Bus is a single-producer, multi-consumer-unsafe (by design: exactly one
// UI scheduler goroutine is expected to drain it) channel of Events. It
// exists as a named type so the Supervisor's public surface reads as
// "emits events" rather than "sends on chan Event", matching the intent of
// spec.md's named signals.
type Bus struct {
	c chan Event
}

// NewBus returns a Bus buffering up to capacity undelivered events before
// Send blocks. A generous buffer keeps the owning executor from stalling
// on a slow or momentarily absent UI consumer.
func NewBus(capacity int) *Bus {
	return &Bus{c: make(chan Event, capacity)}
}

// Send enqueues ev for delivery. It blocks if the bus's buffer is full.
func (b *Bus) Send(ev Event) {
	b.c <- ev
}

// Events returns the receive side of the bus, for a UI scheduler to range
// over.
func (b *Bus) Events() <-chan Event {
	return b.c
}

// Close closes the underlying channel. Callers must stop calling Send
// before calling Close.
func (b *Bus) Close() {
	close(b.c)
}
