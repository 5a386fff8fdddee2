package parser

import (
	"fmt"

	"github.com/dshills/splitkb/internal/config/buffer"
	"github.com/dshills/splitkb/internal/key"
	"github.com/dshills/splitkb/internal/keymap"
)

func malformedKeymapf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedKeymap, fmt.Sprintf(format, args...))
}

// keymapRefs carries what a keymap record needs to resolve references.
type keymapRefs struct {
	index       int
	keymapCount int
	macroCount  int
}

// parseKeymap decodes one keymap record.
func parseKeymap(b *buffer.Buffer, refs keymapRefs) (keymap.Entry, error) {
	km := keymap.Entry{Index: refs.index}
	var err error

	if km.Abbreviation, err = b.ReadString(); err != nil {
		return km, fmt.Errorf("abbreviation: %w", err)
	}
	if km.Default, err = b.ReadBool(); err != nil {
		return km, fmt.Errorf("keymap %q default flag: %w", km.Abbreviation, err)
	}
	if km.Name, err = b.ReadString(); err != nil {
		return km, fmt.Errorf("keymap %q name: %w", km.Abbreviation, err)
	}
	if km.Description, err = b.ReadString(); err != nil {
		return km, fmt.Errorf("keymap %q description: %w", km.Abbreviation, err)
	}

	layerCount, err := b.ReadCompactLength()
	if err != nil {
		return km, fmt.Errorf("keymap %q layer count: %w", km.Abbreviation, err)
	}
	var seen [keymap.LayerCount]bool
	km.Layers = make([]keymap.Layer, 0, layerCount)
	for i := 0; i < layerCount; i++ {
		layer, err := parseLayer(b, refs)
		if err != nil {
			return km, fmt.Errorf("keymap %q layer %d: %w", km.Abbreviation, i, err)
		}
		if seen[layer.ID] {
			return km, malformedKeymapf("keymap %q defines layer %s twice", km.Abbreviation, layer.ID)
		}
		seen[layer.ID] = true
		km.Layers = append(km.Layers, layer)
	}
	return km, nil
}

func parseLayer(b *buffer.Buffer, refs keymapRefs) (keymap.Layer, error) {
	id, err := b.ReadUint8()
	if err != nil {
		return keymap.Layer{}, err
	}
	layer := keymap.Layer{ID: keymap.LayerID(id)}
	if !layer.ID.Valid() {
		return layer, fmt.Errorf("%w: %w: id %d", ErrMalformedKeymap, keymap.ErrUnknownLayerID, id)
	}

	moduleCount, err := b.ReadCompactLength()
	if err != nil {
		return layer, err
	}
	layer.Modules = make([]keymap.Module, 0, moduleCount)
	for i := 0; i < moduleCount; i++ {
		moduleID, err := b.ReadUint8()
		if err != nil {
			return layer, err
		}
		keyCount, err := b.ReadCompactLength()
		if err != nil {
			return layer, err
		}
		mod := keymap.Module{ID: moduleID, Keys: make([]keymap.KeyAction, 0, keyCount)}
		for k := 0; k < keyCount; k++ {
			action, err := parseKeyAction(b, refs)
			if err != nil {
				return layer, fmt.Errorf("module %d key %d: %w", moduleID, k, err)
			}
			mod.Keys = append(mod.Keys, action)
		}
		layer.Modules = append(layer.Modules, mod)
	}
	return layer, nil
}

func parseKeyAction(b *buffer.Buffer, refs keymapRefs) (keymap.KeyAction, error) {
	t, err := b.ReadUint8()
	if err != nil {
		return keymap.KeyAction{}, err
	}
	a := keymap.KeyAction{Type: keymap.KeyActionType(t)}

	switch a.Type {
	case keymap.KeyNone:

	case keymap.KeyKeystroke:
		kt, err := b.ReadUint8()
		if err != nil {
			return a, err
		}
		a.Keystroke = key.KeystrokeType(kt)
		if !a.Keystroke.Valid() {
			return a, malformedKeymapf("keystroke type %d", kt)
		}
		if a.Scancode, err = b.ReadUint16(); err != nil {
			return a, err
		}
		mods, err := b.ReadUint8()
		if err != nil {
			return a, err
		}
		a.Modifiers = key.Modifier(mods)

	case keymap.KeyMouse:
		if a.MouseAction, err = b.ReadUint8(); err != nil {
			return a, err
		}
		if a.MouseAction >= keymap.MouseActionCount {
			return a, malformedKeymapf("mouse action %d", a.MouseAction)
		}

	case keymap.KeySwitchLayer:
		id, err := b.ReadUint8()
		if err != nil {
			return a, err
		}
		a.Layer = keymap.LayerID(id)
		if !a.Layer.Valid() {
			return a, fmt.Errorf("%w: %w: switch to layer %d", ErrMalformedKeymap, keymap.ErrUnknownLayerID, id)
		}
		mode, err := b.ReadUint8()
		if err != nil {
			return a, err
		}
		a.Mode = keymap.SwitchMode(mode)
		if !a.Mode.Valid() {
			return a, malformedKeymapf("switch mode %d", mode)
		}

	case keymap.KeySwitchKeymap:
		idx, err := b.ReadUint8()
		if err != nil {
			return a, err
		}
		a.Keymap = int(idx)
		if a.Keymap >= refs.keymapCount {
			return a, malformedKeymapf("keymap index %d out of range (count %d)", idx, refs.keymapCount)
		}

	case keymap.KeyPlayMacro:
		idx, err := b.ReadUint8()
		if err != nil {
			return a, err
		}
		a.Macro = int(idx)
		if a.Macro >= refs.macroCount {
			return a, malformedKeymapf("macro index %d out of range (count %d)", idx, refs.macroCount)
		}

	default:
		return a, malformedKeymapf("key action type %d", t)
	}
	return a, nil
}
