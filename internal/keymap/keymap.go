package keymap

import (
	"fmt"

	"github.com/dshills/splitkb/internal/key"
)

// MouseActionCount bounds the mouse action ids a key may carry.
const MouseActionCount = 20

// KeyActionType identifies the kind of a key action on the wire.
type KeyActionType uint8

const (
	KeyNone KeyActionType = iota
	KeyKeystroke
	KeyMouse
	KeySwitchLayer
	KeySwitchKeymap
	KeyPlayMacro

	keyActionTypeCount
)

var keyActionTypeNames = [...]string{
	KeyNone:         "none",
	KeyKeystroke:    "keystroke",
	KeyMouse:        "mouse",
	KeySwitchLayer:  "layer",
	KeySwitchKeymap: "keymap",
	KeyPlayMacro:    "macro",
}

// Valid reports whether t is a known key action type.
func (t KeyActionType) Valid() bool {
	return t < keyActionTypeCount
}

func (t KeyActionType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("key_action(%d)", uint8(t))
	}
	return keyActionTypeNames[t]
}

// ParseKeyActionType parses a key action type name. Empty means none.
func ParseKeyActionType(s string) (KeyActionType, error) {
	if s == "" {
		return KeyNone, nil
	}
	for i, name := range keyActionTypeNames {
		if name == s {
			return KeyActionType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown key action type %q", s)
}

// SwitchMode controls how a layer switch key behaves.
type SwitchMode uint8

const (
	SwitchToggle SwitchMode = iota
	SwitchHold
	SwitchHoldAndDoubleTapToggle

	switchModeCount
)

var switchModeNames = [...]string{
	SwitchToggle:                 "toggle",
	SwitchHold:                   "hold",
	SwitchHoldAndDoubleTapToggle: "hold_and_double_tap_toggle",
}

// Valid reports whether m is a known switch mode.
func (m SwitchMode) Valid() bool {
	return m < switchModeCount
}

func (m SwitchMode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("switch_mode(%d)", uint8(m))
	}
	return switchModeNames[m]
}

// ParseSwitchMode parses a switch mode name. Empty means hold.
func ParseSwitchMode(s string) (SwitchMode, error) {
	if s == "" {
		return SwitchHold, nil
	}
	for i, name := range switchModeNames {
		if name == s {
			return SwitchMode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown switch mode %q", s)
}

// KeyAction is what a key does when pressed.
// Only the fields relevant to Type are meaningful.
type KeyAction struct {
	Type        KeyActionType
	Keystroke   key.KeystrokeType
	Scancode    uint16
	Modifiers   key.Modifier
	MouseAction uint8
	Layer       LayerID
	Mode        SwitchMode
	Keymap      int
	Macro       int
}

// Module holds the key actions of one physical module on one layer.
type Module struct {
	ID   uint8
	Keys []KeyAction
}

// Layer is one layer of a keymap.
type Layer struct {
	ID      LayerID
	Modules []Module
}

// Entry is a decoded keymap.
type Entry struct {
	// Index is the position of the keymap in its table.
	Index int

	// Abbreviation is the short keymap name used by triggers.
	Abbreviation string

	// Default marks the keymap activated after a configuration is applied.
	Default bool

	Name        string
	Description string
	Layers      []Layer
}

// Layer returns the layer with the given id, or nil.
func (e *Entry) Layer(id LayerID) *Layer {
	for i := range e.Layers {
		if e.Layers[i].ID == id {
			return &e.Layers[i]
		}
	}
	return nil
}
