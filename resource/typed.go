package resource

// Typed provides type-safe access to the resources of one type in a Table.
type Typed[T any] struct {
	table  *Table
	typeID uint32
}

// NewTyped wraps table for values of type T registered under typeID.
func NewTyped[T any](table *Table, typeID uint32) *Typed[T] {
	return &Typed[T]{table: table, typeID: typeID}
}

// Insert adds a value and returns its handle.
func (t *Typed[T]) Insert(value T) (Handle, error) {
	return t.table.Insert(t.typeID, value)
}

// Get retrieves a value by handle. Handles of other types report false.
func (t *Typed[T]) Get(handle Handle) (T, bool) {
	var zero T
	value, ok := t.table.GetTyped(handle, t.typeID)
	if !ok {
		return zero, false
	}
	v, ok := value.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// Remove frees and finalizes a resource of this type.
func (t *Typed[T]) Remove(handle Handle) (T, bool) {
	var zero T
	if _, ok := t.table.GetTyped(handle, t.typeID); !ok {
		return zero, false
	}
	value, ok := t.table.Remove(handle)
	if !ok {
		return zero, false
	}
	v, _ := value.(T)
	return v, true
}

// Len returns the number of live resources of this type.
func (t *Typed[T]) Len() int {
	n := 0
	t.Each(func(Handle, T) bool {
		n++
		return true
	})
	return n
}

// Each iterates over all live resources of this type.
// fn must not insert or remove resources.
func (t *Typed[T]) Each(fn func(Handle, T) bool) {
	t.table.Each(func(h Handle, typeID uint32, value any) bool {
		if typeID != t.typeID {
			return true
		}
		v, ok := value.(T)
		if !ok {
			return true
		}
		return fn(h, v)
	})
}

// Table returns the underlying table.
func (t *Typed[T]) Table() *Table {
	return t.table
}
