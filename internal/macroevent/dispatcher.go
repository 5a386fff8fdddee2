// Package macroevent runs the macros attached to keyboard events.
//
// A Dispatcher resolves the trigger macros for initialization, keymap
// changes and layer changes, and hands them to a scheduler so that macros
// fired by one event run one after another in resolution order.
//
// The scheduler cursor is carried from OnInit into the following
// OnKeymapChange calls, so keymap change macros wait for the init macro.
// OnLayerChange starts from an empty cursor and clears it when done.
package macroevent

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dshills/splitkb/internal/keymap"
	"github.com/dshills/splitkb/internal/macro"
	"github.com/dshills/splitkb/internal/scheduler"
	"github.com/dshills/splitkb/internal/trigger"
)

// ErrUnknownKeymap is returned for a keymap index outside the keymap table.
var ErrUnknownKeymap = errors.New("unknown keymap")

// Dispatcher owns the event entry points.
// It is not safe for concurrent use.
type Dispatcher struct {
	macros    *macro.Table
	keymaps   *keymap.Table
	scheduler *scheduler.Scheduler
	index     *trigger.Index
	logger    *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithIndex uses x as the layer trigger index instead of a private one.
func WithIndex(x *trigger.Index) Option {
	return func(d *Dispatcher) {
		if x != nil {
			d.index = x
		}
	}
}

// New creates a dispatcher reading macros and keymaps and scheduling on s.
func New(macros *macro.Table, keymaps *keymap.Table, s *scheduler.Scheduler, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		macros:    macros,
		keymaps:   keymaps,
		scheduler: s,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.index == nil {
		d.index = trigger.New(trigger.WithLogger(d.logger))
	}
	return d
}

// Scheduler returns the scheduler macros are chained on.
func (d *Dispatcher) Scheduler() *scheduler.Scheduler {
	return d.scheduler
}

// Index returns the layer trigger index.
func (d *Dispatcher) Index() *trigger.Index {
	return d.index
}

// OnInit starts the macro named exactly $onInit, if there is one.
func (d *Dispatcher) OnInit() {
	ref := d.macros.FindIndexByName(trigger.OnInit)
	if ref.IsNone() {
		return
	}
	slot := d.scheduler.Start(ref)
	d.logger.Info("Init macro started", "macro_index", ref.String(), "slot", slot.String())
}

// OnKeymapChange chains every "$onKeymapChange any" macro and then every
// "$onKeymapChange <abbrev>" macro of the keymap at keymapIndex, each group
// in table order.
func (d *Dispatcher) OnKeymapChange(keymapIndex int) error {
	km := d.keymaps.Entry(keymapIndex)
	if km == nil {
		return fmt.Errorf("%w: index %d of %d", ErrUnknownKeymap, keymapIndex, d.keymaps.Count())
	}

	matched := d.macros.Match(trigger.OnKeymapChange, trigger.Any)
	matched = append(matched, d.macros.Match(trigger.OnKeymapChange, km.Abbreviation)...)
	for _, i := range matched {
		d.scheduler.Chain(macro.RefOf(i))
	}

	if len(matched) > 0 {
		d.logger.Info("Keymap change macros dispatched",
			"keymap", km.Abbreviation,
			"macros", len(matched),
			"slot", d.scheduler.Cursor().String())
	}
	return nil
}

// OnLayerChange chains the any-layer, layer and keymap-layer macros for
// layer. The cursor is empty before and after.
func (d *Dispatcher) OnLayerChange(layer keymap.LayerID) {
	d.scheduler.Reset()
	for _, ref := range d.index.Lookup(layer).Refs() {
		d.scheduler.Chain(ref)
	}
	d.scheduler.Reset()
}

// RegisterLayerMacros rebuilds the layer trigger index for the current
// keymap. See trigger.Index.Rebuild for the error contract.
func (d *Dispatcher) RegisterLayerMacros() error {
	abbrev := ""
	if km := d.keymaps.Current(); km != nil {
		abbrev = km.Abbreviation
	}
	return d.index.Rebuild(d.macros, abbrev)
}
