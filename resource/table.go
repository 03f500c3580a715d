package resource

import (
	"slices"
	"sync"
)

// Table maps handles to values. Handles increase monotonically and are
// never reused, so a stale handle cannot reach a newer value.
type Table[T any] struct {
	entries   map[Handle]T
	observers []*observerEntry
	next      Handle
	mu        sync.RWMutex
	obsMu     sync.RWMutex
	closed    bool
}

type observerEntry struct {
	o Observer
}

// NewTable creates an empty table.
func NewTable[T any]() *Table[T] {
	return &Table[T]{entries: make(map[Handle]T)}
}

// Insert adds a value and returns its handle.
func (t *Table[T]) Insert(value T) (Handle, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0, ErrClosed
	}
	if t.next == ^Handle(0) {
		t.mu.Unlock()
		return 0, ErrExhausted
	}
	t.next++
	h := t.next
	t.entries[h] = value
	t.mu.Unlock()

	t.notify(Event{Type: EventCreated, Handle: h, Value: value})
	return h, nil
}

// Get retrieves a value by handle.
func (t *Table[T]) Get(handle Handle) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.entries[handle]
	return v, ok
}

// Remove drops a handle and returns (value, true) if it was live.
func (t *Table[T]) Remove(handle Handle) (T, bool) {
	t.mu.Lock()
	v, ok := t.entries[handle]
	if ok {
		delete(t.entries, handle)
	}
	t.mu.Unlock()

	if ok {
		t.notify(Event{Type: EventDropped, Handle: handle, Value: v})
	}
	return v, ok
}

// Len returns the number of live handles.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Handles returns the live handles in ascending order.
func (t *Table[T]) Handles() []Handle {
	t.mu.RLock()
	handles := make([]Handle, 0, len(t.entries))
	for h := range t.entries {
		handles = append(handles, h)
	}
	t.mu.RUnlock()
	slices.Sort(handles)
	return handles
}

// Each calls fn for every live handle in ascending order until fn returns
// false. fn runs without the table lock held.
func (t *Table[T]) Each(fn func(Handle, T) bool) {
	for _, h := range t.Handles() {
		v, ok := t.Get(h)
		if !ok {
			continue
		}
		if !fn(h, v) {
			return
		}
	}
}

// Drain removes every live handle and returns the values in handle order.
func (t *Table[T]) Drain() []T {
	handles := t.Handles()
	out := make([]T, 0, len(handles))
	for _, h := range handles {
		if v, ok := t.Remove(h); ok {
			out = append(out, v)
		}
	}
	return out
}

// Close stops accepting inserts and drains the table.
func (t *Table[T]) Close() []T {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return t.Drain()
}

// Subscribe adds an observer for lifecycle events and returns a function
// that removes it.
func (t *Table[T]) Subscribe(o Observer) (unsubscribe func()) {
	entry := &observerEntry{o: o}
	t.obsMu.Lock()
	t.observers = append(t.observers, entry)
	t.obsMu.Unlock()

	return func() {
		t.obsMu.Lock()
		defer t.obsMu.Unlock()
		if i := slices.Index(t.observers, entry); i >= 0 {
			t.observers = slices.Delete(t.observers, i, i+1)
		}
	}
}

func (t *Table[T]) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, entry := range t.observers {
		entry.o.OnResourceEvent(e)
	}
}
