package script

import (
	"sync"

	"github.com/dshills/splitkb/internal/macro/player"
)

// DefaultTraceLimit is the number of events a Recorder keeps.
const DefaultTraceLimit = 4096

// Recorder collects macro engine events for kb.trace.
// Once full it drops the oldest events.
type Recorder struct {
	mu      sync.Mutex
	events  []player.Event
	limit   int
	dropped int
}

// NewRecorder creates a recorder holding up to DefaultTraceLimit events.
func NewRecorder() *Recorder {
	return &Recorder{limit: DefaultTraceLimit}
}

// Handle records e. It is a player.EventHandler.
func (r *Recorder) Handle(e player.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) >= r.limit {
		r.events = r.events[1:]
		r.dropped++
	}
	r.events = append(r.events, e)
}

// Drain returns the recorded events and clears the recorder.
func (r *Recorder) Drain() []player.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

// Dropped returns how many events were discarded because the recorder was
// full.
func (r *Recorder) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}
