package resource

// Handle is an opaque reference to a resource in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// EventType identifies a resource lifecycle notification.
type EventType uint8

const (
	EventCreated EventType = iota
	EventClosed
	EventFinalized
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventClosed:
		return "closed"
	case EventFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// Event represents a resource lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	TypeID uint32
	Type   EventType
}

// Observer receives notifications about resource lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) OnResourceEvent(e Event) { f(e) }

// Finalizer is optionally implemented by resource values that hold state
// outside the table. Finalize is called exactly once, when the slot is freed.
type Finalizer interface {
	Finalize()
}
