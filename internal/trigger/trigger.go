// Package trigger indexes the layer change macros of the active keymap.
//
// Macros opt into events through reserved names:
//
//	$onInit
//	$onKeymapChange any|<abbrev>
//	$onLayerChange any|<layer>
//	$onKeymapLayerChange <abbrev> <layer>
//
// The index covers the two layer forms. It is rebuilt from scratch whenever
// the active keymap changes and is read by layer change dispatches.
package trigger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/dshills/splitkb/internal/keymap"
	"github.com/dshills/splitkb/internal/macro"
)

// Trigger keywords and the catch-all argument.
const (
	OnInit              = "$onInit"
	OnKeymapChange      = "$onKeymapChange"
	OnLayerChange       = "$onLayerChange"
	OnKeymapLayerChange = "$onKeymapLayerChange"
	Any                 = "any"
)

// Tables holds the resolved layer change macros.
// Tables is comparable.
type Tables struct {
	// Any fires on every layer change.
	Any macro.Ref
	// Layer fires when entering a layer, whatever the keymap.
	Layer [keymap.LayerCount]macro.Ref
	// KeymapLayer fires when entering a layer of the indexed keymap.
	KeymapLayer [keymap.LayerCount]macro.Ref
}

// Candidates are the macros to try, in order, for one layer change.
type Candidates struct {
	Any         macro.Ref
	Layer       macro.Ref
	KeymapLayer macro.Ref
}

// Refs returns the candidates in dispatch order.
func (c Candidates) Refs() [3]macro.Ref {
	return [3]macro.Ref{c.Any, c.Layer, c.KeymapLayer}
}

// Index maps layers to their change macros.
type Index struct {
	mu     sync.RWMutex
	tables Tables
	abbrev string
	logger *slog.Logger
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(x *Index) {
		if logger != nil {
			x.logger = logger
		}
	}
}

// New creates an empty index.
func New(opts ...Option) *Index {
	x := &Index{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Rebuild replaces the tables by scanning every macro once. abbrev is the
// abbreviation of the active keymap. When several macros claim the same
// entry the last one in table order wins.
//
// A layer trigger naming an unknown layer is skipped and reported. The
// tables are still rebuilt from the remaining macros; the returned error
// joins one error per skipped macro, each wrapping keymap.ErrUnknownLayerID.
// Layer names are checked even when the keymap does not match so the
// outcome does not depend on which keymap is active.
func (x *Index) Rebuild(macros *macro.Table, abbrev string) error {
	var t Tables
	var errs []error

	skip := func(e *macro.Entry, err error) {
		x.logger.Warn("Ignoring layer trigger", "macro_index", e.Index, "macro", e.Name, "error", err)
		errs = append(errs, fmt.Errorf("macro %d %q: %w", e.Index, e.Name, err))
	}

	for _, e := range macros.Entries() {
		tokens := e.Tokens()
		if len(tokens) == 0 {
			continue
		}

		switch tokens[0] {
		case OnLayerChange:
			arg := tokenAt(tokens, 1)
			if arg == Any {
				t.Any = macro.RefOf(e.Index)
				continue
			}
			layer, err := keymap.ParseLayerID(arg)
			if err != nil {
				skip(e, err)
				continue
			}
			t.Layer[layer] = macro.RefOf(e.Index)

		case OnKeymapLayerChange:
			layer, err := keymap.ParseLayerID(tokenAt(tokens, 2))
			if err != nil {
				skip(e, err)
				continue
			}
			if tokenAt(tokens, 1) == abbrev {
				t.KeymapLayer[layer] = macro.RefOf(e.Index)
			}
		}
	}

	x.mu.Lock()
	x.tables = t
	x.abbrev = abbrev
	x.mu.Unlock()

	x.logger.Debug("Layer triggers rebuilt", "keymap", abbrev, "macros", macros.Len(), "skipped", len(errs))
	return errors.Join(errs...)
}

func tokenAt(tokens []string, i int) string {
	if i < len(tokens) {
		return tokens[i]
	}
	return ""
}

// Lookup returns the candidates for entering layer.
// An invalid layer has no candidates.
func (x *Index) Lookup(layer keymap.LayerID) Candidates {
	if !layer.Valid() {
		return Candidates{}
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	return Candidates{
		Any:         x.tables.Any,
		Layer:       x.tables.Layer[layer],
		KeymapLayer: x.tables.KeymapLayer[layer],
	}
}

// Snapshot returns a copy of the tables.
func (x *Index) Snapshot() Tables {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.tables
}

// Abbreviation returns the keymap abbreviation of the last rebuild.
func (x *Index) Abbreviation() string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.abbrev
}
