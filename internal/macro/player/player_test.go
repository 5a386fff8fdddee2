package player

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/splitkb/internal/config/encoder"
	"github.com/dshills/splitkb/internal/macro"
	"github.com/dshills/splitkb/internal/scheduler"
)

func addMacro(t *testing.T, table *macro.Table, name string, looped bool, actions ...macro.Action) int {
	t.Helper()
	w := encoder.NewWriter()
	for _, a := range actions {
		require.NoError(t, w.WriteMacroAction(a))
	}
	e := table.Add(macro.Entry{Name: name, Looped: looped, Body: w.Bytes(), ActionCount: len(actions)})
	return e.Index
}

func text(s string) macro.Action {
	return macro.Action{Type: macro.ActionText, Text: s}
}

type recorder struct {
	events []Event
}

func (r *recorder) handle(e Event) {
	r.events = append(r.events, e)
}

func (r *recorder) summary() []string {
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type.String()+" "+e.MacroName)
	}
	return out
}

func TestPlayerRunsActions(t *testing.T) {
	table := macro.NewTable()
	idx := addMacro(t, table, "hello", false, text("a"), text("b"))
	rec := &recorder{}
	p := NewPlayer(table, WithEventHandler(rec.handle))

	slot := p.StartMacro(idx)
	require.Equal(t, scheduler.SlotOf(0), slot)
	assert.True(t, p.IsPlaying(slot))

	p.Tick()
	assert.True(t, p.IsPlaying(slot))
	p.Tick()
	assert.False(t, p.IsPlaying(slot))

	assert.Equal(t, []string{"started hello", "action hello", "action hello", "finished hello"}, rec.summary())
	assert.Equal(t, "b", rec.events[2].Action.Text)
}

func TestPlayerDelay(t *testing.T) {
	table := macro.NewTable()
	idx := addMacro(t, table, "wait", false, macro.Action{Type: macro.ActionDelay, Delay: 2}, text("x"))
	p := NewPlayer(table)

	slot := p.StartMacro(idx)
	for i := 0; i < 3; i++ {
		p.Tick()
		assert.True(t, p.IsPlaying(slot), "tick %d", i)
	}
	p.Tick()
	assert.False(t, p.IsPlaying(slot))
}

func TestPlayerQueue(t *testing.T) {
	table := macro.NewTable()
	a := addMacro(t, table, "A", false, text("a"))
	b := addMacro(t, table, "B", false, text("b"))
	rec := &recorder{}
	p := NewPlayer(table, WithEventHandler(rec.handle))

	slot := p.StartMacro(a)
	assert.Equal(t, slot, p.QueueMacro(b, slot))

	p.Tick()
	assert.True(t, p.IsPlaying(slot))
	p.Tick()
	assert.False(t, p.IsPlaying(slot))

	assert.Equal(t, []string{
		"started A",
		"queued B",
		"action A",
		"finished A",
		"started B",
		"action B",
		"finished B",
	}, rec.summary())
}

func TestQueueBehindIdleSlotStarts(t *testing.T) {
	table := macro.NewTable()
	a := addMacro(t, table, "A", false, text("a"))
	p := NewPlayer(table)

	slot := p.QueueMacro(a, scheduler.SlotOf(3))
	assert.Equal(t, scheduler.SlotOf(0), slot)
	assert.Equal(t, scheduler.SlotOf(1), p.QueueMacro(a, scheduler.NoSlot))
	assert.Equal(t, []scheduler.Slot{scheduler.SlotOf(0), scheduler.SlotOf(1)}, p.Playing())
}

func TestPlayerSlotsExhausted(t *testing.T) {
	table := macro.NewTable()
	a := addMacro(t, table, "A", false, text("a"))
	p := NewPlayer(table, WithSlots(1))

	assert.Equal(t, scheduler.SlotOf(0), p.StartMacro(a))
	assert.Equal(t, scheduler.NoSlot, p.StartMacro(a))
}

func TestPlayerUnknownMacro(t *testing.T) {
	p := NewPlayer(macro.NewTable())
	assert.Equal(t, scheduler.NoSlot, p.StartMacro(7))
	assert.Empty(t, p.Playing())
}

func TestLoopedMacroRunsUntilStopped(t *testing.T) {
	table := macro.NewTable()
	idx := addMacro(t, table, "loop", true, text("a"), text("b"))
	rec := &recorder{}
	p := NewPlayer(table, WithEventHandler(rec.handle))

	slot := p.StartMacro(idx)
	for i := 0; i < 10; i++ {
		p.Tick()
	}
	assert.True(t, p.IsPlaying(slot))

	p.Stop(slot)
	assert.False(t, p.IsPlaying(slot))
	assert.Equal(t, EventStopped, rec.events[len(rec.events)-1].Type)
}

func TestEmptyMacroFinishesOnFirstTick(t *testing.T) {
	table := macro.NewTable()
	idx := addMacro(t, table, "empty", false)
	p := NewPlayer(table)

	slot := p.StartMacro(idx)
	assert.True(t, p.IsPlaying(slot))
	p.Tick()
	assert.False(t, p.IsPlaying(slot))
}

func TestPlayerReset(t *testing.T) {
	table := macro.NewTable()
	idx := addMacro(t, table, "loop", true, text("a"))
	p := NewPlayer(table)

	p.StartMacro(idx)
	p.StartMacro(idx)
	p.Reset()
	assert.Empty(t, p.Playing())
}
