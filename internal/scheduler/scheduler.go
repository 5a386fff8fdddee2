package scheduler

import (
	"io"
	"log/slog"

	"github.com/dshills/splitkb/internal/macro"
)

// Engine executes macros in slots.
type Engine interface {
	// StartMacro starts macro index in a free slot. It returns NoSlot when
	// every slot is busy.
	StartMacro(index int) Slot

	// QueueMacro schedules macro index to run after whatever occupies
	// behind has finished, and returns the slot that will run it.
	QueueMacro(index int, behind Slot) Slot

	// IsPlaying reports whether slot is still executing.
	IsPlaying(slot Slot) bool
}

// Stats counts what a Scheduler asked its engine to do.
type Stats struct {
	Started int
	Queued  int
	// Dropped counts starts the engine refused for lack of a slot.
	Dropped int
}

// Scheduler chains macros onto an Engine.
type Scheduler struct {
	engine Engine
	cursor Slot
	stats  Stats
	logger *slog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a scheduler over engine with an empty cursor.
func New(engine Engine, opts ...Option) *Scheduler {
	s := &Scheduler{
		engine: engine,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start starts the macro without looking at the cursor and stores the
// resulting slot. NoRef leaves everything unchanged.
func (s *Scheduler) Start(ref macro.Ref) Slot {
	index, ok := ref.Get()
	if !ok {
		return s.cursor
	}
	s.cursor = s.start(index)
	return s.cursor
}

// Chain queues the macro behind the cursor slot if that slot is still
// playing, and starts it otherwise. The resulting slot becomes the cursor.
// NoRef leaves everything unchanged.
func (s *Scheduler) Chain(ref macro.Ref) Slot {
	index, ok := ref.Get()
	if !ok {
		return s.cursor
	}

	if !s.cursor.IsNone() && s.engine.IsPlaying(s.cursor) {
		behind := s.cursor
		s.cursor = s.engine.QueueMacro(index, behind)
		s.stats.Queued++
		s.logger.Debug("Macro queued", "macro_index", index, "behind", behind.String(), "slot", s.cursor.String())
		return s.cursor
	}

	s.cursor = s.start(index)
	return s.cursor
}

func (s *Scheduler) start(index int) Slot {
	slot := s.engine.StartMacro(index)
	if slot.IsNone() {
		s.stats.Dropped++
		s.logger.Warn("No free macro slot", "macro_index", index)
		return slot
	}
	s.stats.Started++
	s.logger.Debug("Macro started", "macro_index", index, "slot", slot.String())
	return slot
}

// Reset clears the cursor.
func (s *Scheduler) Reset() {
	s.cursor = NoSlot
}

// Cursor returns the slot most recently started or queued into.
func (s *Scheduler) Cursor() Slot {
	return s.cursor
}

// Stats returns the counters accumulated since creation or ResetStats.
func (s *Scheduler) Stats() Stats {
	return s.stats
}

// ResetStats zeroes the counters.
func (s *Scheduler) ResetStats() {
	s.stats = Stats{}
}
