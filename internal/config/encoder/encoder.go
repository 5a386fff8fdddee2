// Package encoder writes configuration streams in the format read by the
// parser. It is the host-side mirror of the buffer cursor and is used by the
// document compiler and by tests to build streams.
//
// The writers encode values as given. They do not check that enum values or
// cross references are valid, so invalid streams can be produced on purpose.
package encoder

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/dshills/splitkb/internal/config/buffer"
	"github.com/dshills/splitkb/internal/keymap"
	"github.com/dshills/splitkb/internal/macro"
	"github.com/dshills/splitkb/internal/module"
)

// ErrValueTooLarge is returned when a value does not fit its wire width.
var ErrValueTooLarge = errors.New("value too large for encoding")

// Writer accumulates an encoded stream.
type Writer struct {
	buf []byte
}

// NewWriter creates an empty writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the encoded stream.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written.
func (w *Writer) Len() int {
	return len(w.buf)
}

func (w *Writer) WriteUint8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) WriteUint16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *Writer) WriteInt16(v int16) {
	w.WriteUint16(uint16(v))
}

func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteUint8(1)
		return
	}
	w.WriteUint8(0)
}

// WriteBytes appends raw bytes.
func (w *Writer) WriteBytes(p []byte) {
	w.buf = append(w.buf, p...)
}

// WriteCompactLength writes n using one byte when n < 0xFF and the escaped
// three-byte form otherwise.
func (w *Writer) WriteCompactLength(n int) error {
	if n < 0 || n > math.MaxUint16 {
		return fmt.Errorf("%w: compact length %d", ErrValueTooLarge, n)
	}
	if n < buffer.CompactLengthEscape {
		w.WriteUint8(uint8(n))
		return nil
	}
	w.WriteUint8(buffer.CompactLengthEscape)
	w.WriteUint16(uint16(n))
	return nil
}

// WriteString writes a compact-length prefixed string.
func (w *Writer) WriteString(s string) error {
	if err := w.WriteCompactLength(len(s)); err != nil {
		return err
	}
	w.buf = append(w.buf, s...)
	return nil
}

func (w *Writer) writeIndex(what string, i int) error {
	if i < 0 || i > math.MaxUint8 {
		return fmt.Errorf("%w: %s index %d", ErrValueTooLarge, what, i)
	}
	w.WriteUint8(uint8(i))
	return nil
}

// WriteModuleConfig writes a fixed-width module record.
func (w *Writer) WriteModuleConfig(m module.Config) {
	w.WriteUint8(uint8(m.ID))
	w.WriteUint8(m.InitialPointerSpeed)
	w.WriteUint8(m.PointerAcceleration)
	w.WriteUint8(m.MaxPointerSpeed)
}

// Macro is the encodable form of a macro record.
type Macro struct {
	Name    string
	Looped  bool
	Private bool
	Actions []macro.Action
}

// WriteMacro writes a macro record.
func (w *Writer) WriteMacro(m Macro) error {
	w.WriteBool(m.Looped)
	w.WriteBool(m.Private)
	if err := w.WriteString(m.Name); err != nil {
		return fmt.Errorf("macro %q name: %w", m.Name, err)
	}
	if err := w.WriteCompactLength(len(m.Actions)); err != nil {
		return fmt.Errorf("macro %q action count: %w", m.Name, err)
	}
	for i, a := range m.Actions {
		if err := w.WriteMacroAction(a); err != nil {
			return fmt.Errorf("macro %q action %d: %w", m.Name, i, err)
		}
	}
	return nil
}

// WriteMacroAction writes one macro action.
func (w *Writer) WriteMacroAction(a macro.Action) error {
	w.WriteUint8(uint8(a.Type))
	switch a.Type {
	case macro.ActionKey:
		w.WriteUint8(uint8(a.Phase))
		w.WriteUint8(uint8(a.Keystroke))
		w.WriteUint16(a.Scancode)
		w.WriteUint8(uint8(a.Modifiers))
	case macro.ActionMouseButton:
		w.WriteUint8(uint8(a.Phase))
		w.WriteUint8(uint8(a.Buttons))
	case macro.ActionMoveMouse, macro.ActionScrollMouse:
		w.WriteInt16(a.X)
		w.WriteInt16(a.Y)
	case macro.ActionDelay:
		w.WriteUint16(a.Delay)
	case macro.ActionText, macro.ActionCommand:
		return w.WriteString(a.Text)
	}
	return nil
}

// WriteKeymap writes a keymap record.
func (w *Writer) WriteKeymap(km keymap.Entry) error {
	if err := w.WriteString(km.Abbreviation); err != nil {
		return fmt.Errorf("keymap %q abbreviation: %w", km.Abbreviation, err)
	}
	w.WriteBool(km.Default)
	if err := w.WriteString(km.Name); err != nil {
		return fmt.Errorf("keymap %q name: %w", km.Abbreviation, err)
	}
	if err := w.WriteString(km.Description); err != nil {
		return fmt.Errorf("keymap %q description: %w", km.Abbreviation, err)
	}
	if err := w.WriteCompactLength(len(km.Layers)); err != nil {
		return err
	}
	for _, layer := range km.Layers {
		w.WriteUint8(uint8(layer.ID))
		if err := w.WriteCompactLength(len(layer.Modules)); err != nil {
			return err
		}
		for _, mod := range layer.Modules {
			w.WriteUint8(mod.ID)
			if err := w.WriteCompactLength(len(mod.Keys)); err != nil {
				return err
			}
			for i, k := range mod.Keys {
				if err := w.WriteKeyAction(k); err != nil {
					return fmt.Errorf("keymap %q layer %s module %d key %d: %w",
						km.Abbreviation, layer.ID, mod.ID, i, err)
				}
			}
		}
	}
	return nil
}

// WriteKeyAction writes one key action.
func (w *Writer) WriteKeyAction(k keymap.KeyAction) error {
	w.WriteUint8(uint8(k.Type))
	switch k.Type {
	case keymap.KeyKeystroke:
		w.WriteUint8(uint8(k.Keystroke))
		w.WriteUint16(k.Scancode)
		w.WriteUint8(uint8(k.Modifiers))
	case keymap.KeyMouse:
		w.WriteUint8(k.MouseAction)
	case keymap.KeySwitchLayer:
		w.WriteUint8(uint8(k.Layer))
		w.WriteUint8(uint8(k.Mode))
	case keymap.KeySwitchKeymap:
		return w.writeIndex("keymap", k.Keymap)
	case keymap.KeyPlayMacro:
		return w.writeIndex("macro", k.Macro)
	}
	return nil
}

// Config is a complete encodable configuration.
type Config struct {
	Version uint16
	Modules []module.Config
	Macros  []Macro
	Keymaps []keymap.Entry
}

// Encode writes a full configuration stream.
func Encode(cfg Config) ([]byte, error) {
	w := NewWriter()
	w.WriteUint16(cfg.Version)

	if err := w.WriteCompactLength(len(cfg.Modules)); err != nil {
		return nil, fmt.Errorf("module count: %w", err)
	}
	for _, m := range cfg.Modules {
		w.WriteModuleConfig(m)
	}

	if err := w.WriteCompactLength(len(cfg.Macros)); err != nil {
		return nil, fmt.Errorf("macro count: %w", err)
	}
	for _, m := range cfg.Macros {
		if err := w.WriteMacro(m); err != nil {
			return nil, err
		}
	}

	if err := w.WriteCompactLength(len(cfg.Keymaps)); err != nil {
		return nil, fmt.Errorf("keymap count: %w", err)
	}
	for _, km := range cfg.Keymaps {
		if err := w.WriteKeymap(km); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}
