package scheduler

import "strconv"

// Slot identifies a macro execution context of an Engine.
// The zero value is NoSlot.
type Slot struct {
	id int
	ok bool
}

// NoSlot means nothing is scheduled.
var NoSlot = Slot{}

// SlotOf returns the slot with the given id.
func SlotOf(id int) Slot {
	return Slot{id: id, ok: true}
}

// Get returns the slot id and whether s names a slot.
func (s Slot) Get() (int, bool) {
	return s.id, s.ok
}

// IsNone reports whether s is NoSlot.
func (s Slot) IsNone() bool {
	return !s.ok
}

func (s Slot) String() string {
	if !s.ok {
		return "none"
	}
	return strconv.Itoa(s.id)
}
