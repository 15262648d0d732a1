package registry

import (
	"fmt"
	"sync"
)

// Callback is a per-slot callback.
type Callback func(value []byte)

// RangeError reports a slot index outside the table.
type RangeError struct {
	Index int
	Size  int
}

// Error implements error.
func (e *RangeError) Error() string {
	return fmt.Sprintf("index %d out of range [0, %d)", e.Index, e.Size)
}

// Table is a fixed-size, bounds-checked table of callbacks indexed by
// pin or channel number.
type Table struct {
	lock  sync.RWMutex
	slots []Callback
}

// NewTable creates a Table with size slots.
func NewTable(size int) *Table {
	return &Table{slots: make([]Callback, size)}
}

// Size returns the number of slots.
func (t *Table) Size() int {
	return len(t.slots)
}

func (t *Table) check(index int) error {
	if index < 0 || index >= len(t.slots) {
		return &RangeError{Index: index, Size: len(t.slots)}
	}
	return nil
}

// Set installs cb at index, replacing any previous callback.
func (t *Table) Set(index int, cb Callback) error {
	if err := t.check(index); err != nil {
		return err
	}
	t.lock.Lock()
	t.slots[index] = cb
	t.lock.Unlock()
	return nil
}

// Clear removes the callback at index.
func (t *Table) Clear(index int) error {
	return t.Set(index, nil)
}

// ClearAll removes every callback.
func (t *Table) ClearAll() {
	t.lock.Lock()
	for n := range t.slots {
		t.slots[n] = nil
	}
	t.lock.Unlock()
}

// Get returns the callback at index.
func (t *Table) Get(index int) (Callback, error) {
	if err := t.check(index); err != nil {
		return nil, err
	}
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.slots[index], nil
}

// Invoke calls the callback at index if one is set. It reports whether a
// callback ran.
func (t *Table) Invoke(index int, value []byte) (bool, error) {
	cb, err := t.Get(index)
	if err != nil || cb == nil {
		return false, err
	}
	cb(value)
	return true, nil
}
