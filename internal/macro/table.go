package macro

import (
	"sync"
)

// Entry is a decoded macro.
// Entries are immutable once added to a table.
type Entry struct {
	// Index is the position of the macro in its table.
	Index int

	// Name is the full macro name.
	Name string

	// Looped macros restart when they reach the end of their body.
	Looped bool

	// Private macros are hidden from host-side listings.
	Private bool

	// Body is the encoded action list. It is opaque to this package.
	Body []byte

	// ActionCount is the number of actions encoded in Body.
	ActionCount int

	tokens []string
}

// Tokens returns the name tokens. The slice must not be modified.
func (e *Entry) Tokens() []string {
	return e.tokens
}

// Table is an indexed set of macros.
type Table struct {
	mu      sync.RWMutex
	entries []*Entry
}

// NewTable creates an empty macro table.
func NewTable() *Table {
	return &Table{}
}

// Add appends a macro and returns the stored entry.
// The index is assigned by the table and the body is copied.
func (t *Table) Add(e Entry) *Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	stored := &Entry{
		Index:       len(t.entries),
		Name:        e.Name,
		Looped:      e.Looped,
		Private:     e.Private,
		Body:        append([]byte(nil), e.Body...),
		ActionCount: e.ActionCount,
		tokens:      Tokenize(e.Name),
	}
	t.entries = append(t.entries, stored)
	return stored
}

// Replace makes t hold the entries of src.
// Entries are shared, not copied, since they are immutable.
func (t *Table) Replace(src *Table) {
	var entries []*Entry
	if src != nil {
		src.mu.RLock()
		entries = append(entries, src.entries...)
		src.mu.RUnlock()
	}

	t.mu.Lock()
	t.entries = entries
	t.mu.Unlock()
}

// Len returns the number of macros.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Entry returns the macro at index i, or nil if out of range.
func (t *Table) Entry(i int) *Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i < 0 || i >= len(t.entries) {
		return nil
	}
	return t.entries[i]
}

// Entries returns all macros in index order.
func (t *Table) Entries() []*Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Name returns the name of macro i, or "" if out of range.
func (t *Table) Name(i int) string {
	if e := t.Entry(i); e != nil {
		return e.Name
	}
	return ""
}

// FindIndexByName returns the first macro whose name equals name exactly.
func (t *Table) FindIndexByName(name string) Ref {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, e := range t.entries {
		if e.Name == name {
			return RefOf(e.Index)
		}
	}
	return NoRef
}

// Match returns, in table order, the indices of macros whose leading name
// tokens match pattern. Wildcard matches any token. Extra trailing tokens in
// a name are ignored.
func (t *Table) Match(pattern ...string) []int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []int
	for _, e := range t.entries {
		if matchTokens(e.tokens, pattern) {
			out = append(out, e.Index)
		}
	}
	return out
}
