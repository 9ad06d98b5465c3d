package resource

import (
	"sync"
)

// Table maps handles to host-owned resource values and runs their
// finalizers when slots are freed.
type Table struct {
	slots     *slots
	observers []*subscription
	obsMu     sync.RWMutex
}

type subscription struct {
	observer Observer
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		slots: newSlots(),
	}
}

// Insert adds a value and returns its handle.
func (t *Table) Insert(typeID uint32, value any) (Handle, error) {
	handle, err := t.slots.create(typeID, value)
	if err != nil {
		return 0, err
	}

	t.Notify(Event{
		Type:   EventCreated,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})

	return handle, nil
}

// Get retrieves a value by handle.
func (t *Table) Get(handle Handle) (any, bool) {
	value, _, ok := t.slots.get(handle)
	return value, ok
}

// GetTyped retrieves a value only if it matches the expected type.
func (t *Table) GetTyped(handle Handle, typeID uint32) (any, bool) {
	value, actual, ok := t.slots.get(handle)
	if !ok || actual != typeID {
		return nil, false
	}
	return value, true
}

// TypeID returns the type ID of a live handle.
func (t *Table) TypeID(handle Handle) (uint32, bool) {
	_, typeID, ok := t.slots.get(handle)
	return typeID, ok
}

// Remove frees the slot, finalizes its value and returns (value, true).
// Returns (nil, false) for handles that are not live, including handles
// that were already removed.
func (t *Table) Remove(handle Handle) (any, bool) {
	value, typeID, ok := t.slots.free(handle)
	if !ok {
		return nil, false
	}

	if f, ok := value.(Finalizer); ok {
		f.Finalize()
	}

	t.Notify(Event{
		Type:   EventFinalized,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})

	return value, true
}

// Subscribe adds an observer for lifecycle events and returns a function
// that removes it again.
func (t *Table) Subscribe(o Observer) (unsubscribe func()) {
	sub := &subscription{observer: o}

	t.obsMu.Lock()
	t.observers = append(t.observers, sub)
	t.obsMu.Unlock()

	return func() {
		t.obsMu.Lock()
		defer t.obsMu.Unlock()
		for i, s := range t.observers {
			if s == sub {
				t.observers = append(t.observers[:i], t.observers[i+1:]...)
				return
			}
		}
	}
}

// Notify delivers an event to all observers. Resource owners use it to
// publish transitions the table does not see itself, such as EventClosed.
func (t *Table) Notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, s := range t.observers {
		s.observer.OnResourceEvent(e)
	}
}

// Len returns the number of live resources.
func (t *Table) Len() int {
	return t.slots.len()
}

// Each iterates over all live resources.
// fn must not insert or remove resources.
func (t *Table) Each(fn func(Handle, uint32, any) bool) {
	t.slots.each(fn)
}

// Collect finalizes every live resource and returns how many were freed.
func (t *Table) Collect() int {
	// Collect handles first to avoid holding the lock during Remove
	n := 0
	for _, h := range t.slots.live() {
		if _, ok := t.Remove(h); ok {
			n++
		}
	}
	return n
}

// Close collects all resources and stops accepting inserts.
func (t *Table) Close() error {
	t.slots.close()
	t.Collect()
	return nil
}
