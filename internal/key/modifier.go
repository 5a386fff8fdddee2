package key

import (
	"fmt"
	"strings"
)

// Modifier is the 8-bit HID modifier mask.
type Modifier uint8

const (
	// ModNone indicates no modifiers.
	ModNone Modifier = 0

	ModLeftCtrl Modifier = 1 << (iota - 1)
	ModLeftShift
	ModLeftAlt
	ModLeftGui
	ModRightCtrl
	ModRightShift
	ModRightAlt
	ModRightGui
)

// Has returns true if m contains every bit of mod.
func (m Modifier) Has(mod Modifier) bool {
	return m&mod == mod
}

// IsEmpty returns true if no modifiers are set.
func (m Modifier) IsEmpty() bool {
	return m == ModNone
}

var modifierOrder = []struct {
	mod  Modifier
	name string
}{
	{ModLeftCtrl, "lctrl"},
	{ModLeftShift, "lshift"},
	{ModLeftAlt, "lalt"},
	{ModLeftGui, "lgui"},
	{ModRightCtrl, "rctrl"},
	{ModRightShift, "rshift"},
	{ModRightAlt, "ralt"},
	{ModRightGui, "rgui"},
}

// modifierNameMap maps modifier names (lowercase) to Modifier values.
// Unprefixed names mean the left-hand key.
var modifierNameMap = map[string]Modifier{
	"ctrl":    ModLeftCtrl,
	"control": ModLeftCtrl,
	"shift":   ModLeftShift,
	"alt":     ModLeftAlt,
	"gui":     ModLeftGui,
	"super":   ModLeftGui,
	"lctrl":   ModLeftCtrl,
	"lshift":  ModLeftShift,
	"lalt":    ModLeftAlt,
	"lgui":    ModLeftGui,
	"rctrl":   ModRightCtrl,
	"rshift":  ModRightShift,
	"ralt":    ModRightAlt,
	"rgui":    ModRightGui,
}

// String returns a representation like "lctrl+lshift".
func (m Modifier) String() string {
	if m == ModNone {
		return ""
	}
	var parts []string
	for _, o := range modifierOrder {
		if m.Has(o.mod) {
			parts = append(parts, o.name)
		}
	}
	return strings.Join(parts, "+")
}

// ParseModifiers parses a "+" separated modifier list. Empty means ModNone.
func ParseModifiers(s string) (Modifier, error) {
	var m Modifier
	if strings.TrimSpace(s) == "" {
		return m, nil
	}
	for _, part := range strings.Split(s, "+") {
		mod, ok := modifierNameMap[strings.ToLower(strings.TrimSpace(part))]
		if !ok {
			return 0, fmt.Errorf("%w: modifier %q", ErrUnknownName, part)
		}
		m |= mod
	}
	return m, nil
}
