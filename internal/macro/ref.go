package macro

import "strconv"

// Ref is an optional macro index.
// The zero value is NoRef.
type Ref struct {
	index int
	ok    bool
}

// NoRef refers to no macro.
var NoRef = Ref{}

// RefOf returns a reference to macro index i.
func RefOf(i int) Ref {
	return Ref{index: i, ok: true}
}

// Get returns the index and whether the reference is set.
func (r Ref) Get() (int, bool) {
	return r.index, r.ok
}

// IsNone reports whether the reference is empty.
func (r Ref) IsNone() bool {
	return !r.ok
}

// String returns the index or "none".
func (r Ref) String() string {
	if !r.ok {
		return "none"
	}
	return strconv.Itoa(r.index)
}
