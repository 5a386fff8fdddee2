package key

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownName is returned when a textual name does not match any value.
var ErrUnknownName = errors.New("unknown name")

// KeystrokeType selects the HID usage page of a scancode.
type KeystrokeType uint8

const (
	// KeystrokeBasic is the keyboard usage page.
	KeystrokeBasic KeystrokeType = iota

	// KeystrokeMedia is the consumer control usage page.
	KeystrokeMedia

	// KeystrokeSystem is the generic desktop system control page.
	KeystrokeSystem

	keystrokeTypeCount
)

var keystrokeTypeNames = [...]string{
	KeystrokeBasic:  "basic",
	KeystrokeMedia:  "media",
	KeystrokeSystem: "system",
}

// Valid reports whether t is a known keystroke type.
func (t KeystrokeType) Valid() bool {
	return t < keystrokeTypeCount
}

// String returns the lower-case name of the keystroke type.
func (t KeystrokeType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("keystroke(%d)", uint8(t))
	}
	return keystrokeTypeNames[t]
}

// ParseKeystrokeType parses a keystroke type name. Empty means basic.
func ParseKeystrokeType(s string) (KeystrokeType, error) {
	if s == "" {
		return KeystrokeBasic, nil
	}
	for i, name := range keystrokeTypeNames {
		if strings.EqualFold(name, s) {
			return KeystrokeType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: keystroke type %q", ErrUnknownName, s)
}

// MouseButton is a bit mask of mouse buttons.
type MouseButton uint8

const (
	MouseLeft MouseButton = 1 << iota
	MouseRight
	MouseMiddle
	Mouse4
	Mouse5
	Mouse6
	Mouse7
	Mouse8
)

var mouseButtonNames = map[string]MouseButton{
	"left":   MouseLeft,
	"right":  MouseRight,
	"middle": MouseMiddle,
	"4":      Mouse4,
	"5":      Mouse5,
	"6":      Mouse6,
	"7":      Mouse7,
	"8":      Mouse8,
}

// ParseMouseButtons parses a "+" separated list such as "left+right".
func ParseMouseButtons(s string) (MouseButton, error) {
	var mask MouseButton
	if s == "" {
		return mask, nil
	}
	for _, part := range strings.Split(s, "+") {
		b, ok := mouseButtonNames[strings.ToLower(strings.TrimSpace(part))]
		if !ok {
			return 0, fmt.Errorf("%w: mouse button %q", ErrUnknownName, part)
		}
		mask |= b
	}
	return mask, nil
}

var mouseButtonOrder = []struct {
	button MouseButton
	name   string
}{
	{MouseLeft, "left"},
	{MouseRight, "right"},
	{MouseMiddle, "middle"},
	{Mouse4, "4"},
	{Mouse5, "5"},
	{Mouse6, "6"},
	{Mouse7, "7"},
	{Mouse8, "8"},
}

// String returns a representation like "left+right".
func (b MouseButton) String() string {
	var parts []string
	for _, o := range mouseButtonOrder {
		if b&o.button != 0 {
			parts = append(parts, o.name)
		}
	}
	return strings.Join(parts, "+")
}
