package macro

import (
	"errors"
	"fmt"

	"github.com/dshills/splitkb/internal/key"
)

// ErrUnknownAction is returned when an action type or phase name is not recognized.
var ErrUnknownAction = errors.New("unknown macro action")

// ActionType identifies the kind of a macro action on the wire.
type ActionType uint8

const (
	ActionKey ActionType = iota
	ActionMouseButton
	ActionMoveMouse
	ActionScrollMouse
	ActionDelay
	ActionText
	ActionCommand

	actionTypeCount
)

var actionTypeNames = [...]string{
	ActionKey:         "key",
	ActionMouseButton: "mouse_button",
	ActionMoveMouse:   "move_mouse",
	ActionScrollMouse: "scroll_mouse",
	ActionDelay:       "delay",
	ActionText:        "text",
	ActionCommand:     "command",
}

// Valid reports whether t is a known action type.
func (t ActionType) Valid() bool {
	return t < actionTypeCount
}

func (t ActionType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("action(%d)", uint8(t))
	}
	return actionTypeNames[t]
}

// ParseActionType parses an action type name.
func ParseActionType(s string) (ActionType, error) {
	for i, name := range actionTypeNames {
		if name == s {
			return ActionType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: type %q", ErrUnknownAction, s)
}

// Phase says whether a key or button action taps, presses or releases.
type Phase uint8

const (
	PhaseTap Phase = iota
	PhasePress
	PhaseRelease

	phaseCount
)

var phaseNames = [...]string{
	PhaseTap:     "tap",
	PhasePress:   "press",
	PhaseRelease: "release",
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	return p < phaseCount
}

func (p Phase) String() string {
	if !p.Valid() {
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
	return phaseNames[p]
}

// ParsePhase parses a phase name. Empty means tap.
func ParsePhase(s string) (Phase, error) {
	if s == "" {
		return PhaseTap, nil
	}
	for i, name := range phaseNames {
		if name == s {
			return Phase(i), nil
		}
	}
	return 0, fmt.Errorf("%w: phase %q", ErrUnknownAction, s)
}

// Action is the decoded form of one macro action.
// Only the fields relevant to Type are meaningful.
type Action struct {
	Type      ActionType
	Phase     Phase
	Keystroke key.KeystrokeType
	Scancode  uint16
	Modifiers key.Modifier
	Buttons   key.MouseButton
	X, Y      int16
	Delay     uint16
	Text      string
}
