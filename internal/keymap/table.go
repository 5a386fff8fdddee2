package keymap

import (
	"errors"
	"fmt"
	"sync"
)

// ErrIndexOutOfRange is returned when a keymap index does not exist.
var ErrIndexOutOfRange = errors.New("keymap index out of range")

// Table is the live keymap table.
type Table struct {
	mu      sync.RWMutex
	entries []*Entry
	current int
}

// NewTable creates an empty keymap table.
func NewTable() *Table {
	return &Table{}
}

// Commit replaces the table contents. The committed count is len(entries).
// The current keymap is reset to the first one.
func (t *Table) Commit(entries []Entry) {
	stored := make([]*Entry, len(entries))
	for i := range entries {
		e := entries[i]
		e.Index = i
		stored[i] = &e
	}

	t.mu.Lock()
	t.entries = stored
	t.current = 0
	t.mu.Unlock()
}

// Count returns the committed keymap count.
func (t *Table) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Entry returns keymap i, or nil if out of range.
func (t *Table) Entry(i int) *Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i < 0 || i >= len(t.entries) {
		return nil
	}
	return t.entries[i]
}

// Entries returns all keymaps in index order.
func (t *Table) Entries() []*Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Current returns the active keymap, or nil when the table is empty.
func (t *Table) Current() *Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.entries) == 0 {
		return nil
	}
	return t.entries[t.current]
}

// CurrentIndex returns the active keymap index.
func (t *Table) CurrentIndex() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// SetCurrent makes keymap i the active one.
func (t *Table) SetCurrent(i int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.entries) {
		return fmt.Errorf("%w: %d (count %d)", ErrIndexOutOfRange, i, len(t.entries))
	}
	t.current = i
	return nil
}

// DefaultIndex returns the first keymap marked default, 0 when none is
// marked, or -1 when the table is empty.
func (t *Table) DefaultIndex() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.entries) == 0 {
		return -1
	}
	for _, e := range t.entries {
		if e.Default {
			return e.Index
		}
	}
	return 0
}

// FindByAbbreviation returns the index of the keymap with the given
// abbreviation, or -1.
func (t *Table) FindByAbbreviation(abbrev string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, e := range t.entries {
		if e.Abbreviation == abbrev {
			return e.Index
		}
	}
	return -1
}
