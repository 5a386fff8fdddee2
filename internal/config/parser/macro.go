package parser

import (
	"fmt"

	"github.com/dshills/splitkb/internal/config/buffer"
	"github.com/dshills/splitkb/internal/key"
	"github.com/dshills/splitkb/internal/macro"
)

func malformedMacrof(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedMacro, fmt.Sprintf(format, args...))
}

// parseMacro decodes one macro record and appends it to table.
func parseMacro(b *buffer.Buffer, table *macro.Table) error {
	looped, err := b.ReadBool()
	if err != nil {
		return fmt.Errorf("looped flag: %w", err)
	}
	private, err := b.ReadBool()
	if err != nil {
		return fmt.Errorf("private flag: %w", err)
	}
	name, err := b.ReadString()
	if err != nil {
		return fmt.Errorf("name: %w", err)
	}
	count, err := b.ReadCompactLength()
	if err != nil {
		return fmt.Errorf("macro %q action count: %w", name, err)
	}

	bodyStart := b.Offset()
	for i := 0; i < count; i++ {
		if _, err := parseMacroAction(b); err != nil {
			return fmt.Errorf("macro %q action %d: %w", name, i, err)
		}
	}

	table.Add(macro.Entry{
		Name:        name,
		Looped:      looped,
		Private:     private,
		Body:        b.Since(bodyStart),
		ActionCount: count,
	})
	return nil
}

// parseMacroAction validates and decodes one action.
func parseMacroAction(b *buffer.Buffer) (macro.Action, error) {
	t, err := b.ReadUint8()
	if err != nil {
		return macro.Action{}, err
	}
	a := macro.Action{Type: macro.ActionType(t)}

	switch a.Type {
	case macro.ActionKey:
		if a.Phase, err = readPhase(b); err != nil {
			return a, err
		}
		kt, err := b.ReadUint8()
		if err != nil {
			return a, err
		}
		a.Keystroke = key.KeystrokeType(kt)
		if !a.Keystroke.Valid() {
			return a, malformedMacrof("keystroke type %d", kt)
		}
		if a.Scancode, err = b.ReadUint16(); err != nil {
			return a, err
		}
		mods, err := b.ReadUint8()
		if err != nil {
			return a, err
		}
		a.Modifiers = key.Modifier(mods)

	case macro.ActionMouseButton:
		if a.Phase, err = readPhase(b); err != nil {
			return a, err
		}
		buttons, err := b.ReadUint8()
		if err != nil {
			return a, err
		}
		a.Buttons = key.MouseButton(buttons)

	case macro.ActionMoveMouse, macro.ActionScrollMouse:
		if a.X, err = b.ReadInt16(); err != nil {
			return a, err
		}
		if a.Y, err = b.ReadInt16(); err != nil {
			return a, err
		}

	case macro.ActionDelay:
		if a.Delay, err = b.ReadUint16(); err != nil {
			return a, err
		}

	case macro.ActionText, macro.ActionCommand:
		if a.Text, err = b.ReadString(); err != nil {
			return a, err
		}

	default:
		return a, malformedMacrof("action type %d", t)
	}
	return a, nil
}

func readPhase(b *buffer.Buffer) (macro.Phase, error) {
	v, err := b.ReadUint8()
	if err != nil {
		return 0, err
	}
	p := macro.Phase(v)
	if !p.Valid() {
		return 0, malformedMacrof("phase %d", v)
	}
	return p, nil
}

// DecodeActions decodes count actions from a macro body.
func DecodeActions(body []byte, count int) ([]macro.Action, error) {
	b := buffer.New(body)
	actions := make([]macro.Action, 0, count)
	for i := 0; i < count; i++ {
		a, err := parseMacroAction(b)
		if err != nil {
			return actions, fmt.Errorf("action %d: %w", i, err)
		}
		actions = append(actions, a)
	}
	return actions, nil
}
