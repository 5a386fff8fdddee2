// Package player executes macros from a macro table in a fixed number of
// slots. It is the host model of the firmware's macro engine: each slot runs
// one macro at a time, one action per tick, and holds a queue of macros that
// start when the current one finishes.
package player

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/dshills/splitkb/internal/config/parser"
	"github.com/dshills/splitkb/internal/macro"
	"github.com/dshills/splitkb/internal/scheduler"
)

// DefaultSlots is the number of slots a Player has unless configured.
const DefaultSlots = 16

// EventType says what happened in a slot.
type EventType int

const (
	EventStarted EventType = iota
	EventQueued
	EventAction
	EventFinished
	EventStopped
)

func (t EventType) String() string {
	switch t {
	case EventStarted:
		return "started"
	case EventQueued:
		return "queued"
	case EventAction:
		return "action"
	case EventFinished:
		return "finished"
	case EventStopped:
		return "stopped"
	default:
		return fmt.Sprintf("event(%d)", int(t))
	}
}

// Event is reported to the EventHandler.
type Event struct {
	Type       EventType
	Slot       scheduler.Slot
	MacroIndex int
	MacroName  string
	// Action is set for EventAction.
	Action macro.Action
}

func (e Event) String() string {
	if e.Type == EventAction {
		return fmt.Sprintf("slot %s %s %q %s", e.Slot, e.Type, e.MacroName, e.Action.Type)
	}
	return fmt.Sprintf("slot %s %s %q", e.Slot, e.Type, e.MacroName)
}

// EventHandler is a callback function that observes slot activity.
type EventHandler func(event Event)

type program struct {
	index   int
	name    string
	looped  bool
	actions []macro.Action
	pc      int
	wait    uint16
}

type slot struct {
	current *program
	queue   []int
}

// Player runs macros. It implements scheduler.Engine.
type Player struct {
	mu      sync.Mutex
	macros  *macro.Table
	slots   []slot
	handler EventHandler
	logger  *slog.Logger
}

// Option configures a Player.
type Option func(*Player)

// WithSlots sets the number of slots.
func WithSlots(n int) Option {
	return func(p *Player) {
		if n > 0 {
			p.slots = make([]slot, n)
		}
	}
}

// WithEventHandler sets the event callback. The callback runs with the
// player locked and must not call back into the player.
func WithEventHandler(h EventHandler) Option {
	return func(p *Player) {
		p.handler = h
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Player) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPlayer creates a new player that uses the given table for macro lookup.
func NewPlayer(macros *macro.Table, opts ...Option) *Player {
	p := &Player{
		macros: macros,
		slots:  make([]slot, DefaultSlots),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ scheduler.Engine = (*Player)(nil)

// StartMacro starts macro index in the first free slot.
// Returns NoSlot if the macro does not exist or every slot is busy.
func (p *Player) StartMacro(index int) scheduler.Slot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.startLocked(index)
}

func (p *Player) startLocked(index int) scheduler.Slot {
	for i := range p.slots {
		if p.slots[i].current != nil {
			continue
		}
		prog := p.load(index)
		if prog == nil {
			return scheduler.NoSlot
		}
		p.slots[i].current = prog
		p.emit(Event{Type: EventStarted, Slot: scheduler.SlotOf(i), MacroIndex: index, MacroName: prog.name})
		return scheduler.SlotOf(i)
	}
	p.logger.Warn("All macro slots busy", "macro_index", index, "slots", len(p.slots))
	return scheduler.NoSlot
}

// QueueMacro appends macro index to the queue of behind and returns behind.
// If behind is not playing, the macro is started in a free slot instead.
func (p *Player) QueueMacro(index int, behind scheduler.Slot) scheduler.Slot {
	p.mu.Lock()
	defer p.mu.Unlock()

	id, ok := behind.Get()
	if !ok || id >= len(p.slots) || p.slots[id].current == nil {
		return p.startLocked(index)
	}
	if p.macros.Entry(index) == nil {
		p.logger.Warn("Queued macro does not exist", "macro_index", index)
		return scheduler.NoSlot
	}
	p.slots[id].queue = append(p.slots[id].queue, index)
	p.emit(Event{Type: EventQueued, Slot: behind, MacroIndex: index, MacroName: p.macros.Name(index)})
	return behind
}

// IsPlaying reports whether s is running a macro.
func (p *Player) IsPlaying(s scheduler.Slot) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	id, ok := s.Get()
	return ok && id < len(p.slots) && p.slots[id].current != nil
}

// Playing returns the busy slots in slot order.
func (p *Player) Playing() []scheduler.Slot {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []scheduler.Slot
	for i := range p.slots {
		if p.slots[i].current != nil {
			out = append(out, scheduler.SlotOf(i))
		}
	}
	return out
}

// Stop ends the macro in s and drops its queue.
func (p *Player) Stop(s scheduler.Slot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id, ok := s.Get()
	if !ok || id >= len(p.slots) || p.slots[id].current == nil {
		return
	}
	cur := p.slots[id].current
	p.slots[id] = slot{}
	p.emit(Event{Type: EventStopped, Slot: s, MacroIndex: cur.index, MacroName: cur.name})
}

// Reset stops every slot without reporting events.
func (p *Player) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.slots {
		p.slots[i] = slot{}
	}
}

// Tick advances every busy slot by one step.
func (p *Player) Tick() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.slots {
		if p.slots[i].current != nil {
			p.step(i)
		}
	}
}

// step executes at most one action. A delay action holds the slot for
// Delay further ticks.
func (p *Player) step(i int) {
	s := &p.slots[i]
	prog := s.current

	if prog.wait > 0 {
		prog.wait--
		if prog.wait > 0 {
			return
		}
	} else if prog.pc < len(prog.actions) {
		a := prog.actions[prog.pc]
		prog.pc++
		p.emit(Event{Type: EventAction, Slot: scheduler.SlotOf(i), MacroIndex: prog.index, MacroName: prog.name, Action: a})
		if a.Type == macro.ActionDelay && a.Delay > 0 {
			prog.wait = a.Delay
			return
		}
	}

	if prog.pc < len(prog.actions) {
		return
	}

	if prog.looped && len(prog.actions) > 0 {
		prog.pc = 0
		return
	}

	p.emit(Event{Type: EventFinished, Slot: scheduler.SlotOf(i), MacroIndex: prog.index, MacroName: prog.name})
	s.current = nil
	for len(s.queue) > 0 && s.current == nil {
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.current = p.load(next)
		if s.current != nil {
			p.emit(Event{Type: EventStarted, Slot: scheduler.SlotOf(i), MacroIndex: next, MacroName: s.current.name})
		}
	}
	if s.current == nil {
		s.queue = nil
	}
}

func (p *Player) load(index int) *program {
	e := p.macros.Entry(index)
	if e == nil {
		p.logger.Warn("Macro does not exist", "macro_index", index)
		return nil
	}
	actions, err := parser.DecodeActions(e.Body, e.ActionCount)
	if err != nil {
		p.logger.Warn("Macro body could not be decoded", "macro_index", index, "macro", e.Name, "error", err)
	}
	return &program{index: index, name: e.Name, looped: e.Looped, actions: actions}
}

func (p *Player) emit(e Event) {
	if p.handler != nil {
		p.handler(e)
	}
}
