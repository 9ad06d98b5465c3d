package resource

import (
	"errors"
	"sync"
)

var ErrClosed = errors.New("resource table closed")

// slots is the in-memory slot store behind a Table.
// Freed slots are recycled through a free list.
type slots struct {
	entries  []slot
	freeList []Handle
	mu       sync.RWMutex
	closed   bool
}

type slot struct {
	value  any
	typeID uint32
	valid  bool
}

func newSlots() *slots {
	return &slots{
		entries:  make([]slot, 0, 16),
		freeList: make([]Handle, 0, 4),
	}
}

func (s *slots) create(typeID uint32, value any) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	e := slot{
		typeID: typeID,
		value:  value,
		valid:  true,
	}

	if len(s.freeList) > 0 {
		handle := s.freeList[len(s.freeList)-1]
		s.freeList = s.freeList[:len(s.freeList)-1]
		s.entries[handle-1] = e
		return handle, nil
	}

	s.entries = append(s.entries, e)
	return Handle(len(s.entries)), nil
}

func (s *slots) get(handle Handle) (any, uint32, bool) {
	if handle == 0 {
		return nil, 0, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := handle - 1
	if int(idx) >= len(s.entries) {
		return nil, 0, false
	}

	e := s.entries[idx]
	if !e.valid {
		return nil, 0, false
	}
	return e.value, e.typeID, true
}

// free invalidates the slot and hands its value back to the caller, who owns
// finalization from then on. A second free of the same handle reports false.
func (s *slots) free(handle Handle) (any, uint32, bool) {
	if handle == 0 {
		return nil, 0, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := handle - 1
	if int(idx) >= len(s.entries) {
		return nil, 0, false
	}

	e := &s.entries[idx]
	if !e.valid {
		return nil, 0, false
	}

	value, typeID := e.value, e.typeID
	e.valid = false
	e.value = nil
	e.typeID = 0
	s.freeList = append(s.freeList, handle)

	return value, typeID, true
}

// live returns the handles of all valid slots.
func (s *slots) live() []Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var handles []Handle
	for i, e := range s.entries {
		if e.valid {
			handles = append(handles, Handle(i+1))
		}
	}
	return handles
}

func (s *slots) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.entries {
		if e.valid {
			count++
		}
	}
	return count
}

func (s *slots) each(fn func(Handle, uint32, any) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i, e := range s.entries {
		if e.valid {
			if !fn(Handle(i+1), e.typeID, e.value) {
				break
			}
		}
	}
}

func (s *slots) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
