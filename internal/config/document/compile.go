package document

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/splitkb/internal/config/encoder"
	"github.com/dshills/splitkb/internal/key"
	"github.com/dshills/splitkb/internal/keymap"
	"github.com/dshills/splitkb/internal/macro"
	"github.com/dshills/splitkb/internal/module"
)

func invalidf(path, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidDocument, path, fmt.Sprintf(format, args...))
}

func wrapPath(path string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInvalidDocument, path, err)
}

// Encode compiles doc and encodes it.
func Encode(doc *Document) ([]byte, error) {
	cfg, err := doc.Compile()
	if err != nil {
		return nil, err
	}
	return encoder.Encode(cfg)
}

// Compile resolves names and references into an encodable configuration.
// Cross references are range checked by the parser, not here, except that
// a named reference must exist.
func (d *Document) Compile() (encoder.Config, error) {
	cfg := encoder.Config{Version: d.Version}

	for i, m := range d.Modules {
		path := fmt.Sprintf("modules[%d]", i)
		id, err := module.ParseID(m.ID)
		if err != nil {
			return cfg, wrapPath(path, err)
		}
		cfg.Modules = append(cfg.Modules, module.Config{
			ID:                  id,
			InitialPointerSpeed: m.InitialPointerSpeed,
			PointerAcceleration: m.PointerAcceleration,
			MaxPointerSpeed:     m.MaxPointerSpeed,
		})
	}

	for i, m := range d.Macros {
		path := fmt.Sprintf("macros[%d]", i)
		out := encoder.Macro{Name: m.Name, Looped: m.Looped, Private: m.Private}
		for j, a := range m.Actions {
			action, err := compileAction(a)
			if err != nil {
				return cfg, wrapPath(fmt.Sprintf("%s.actions[%d]", path, j), err)
			}
			out.Actions = append(out.Actions, action)
		}
		cfg.Macros = append(cfg.Macros, out)
	}

	for i, km := range d.Keymaps {
		path := fmt.Sprintf("keymaps[%d]", i)
		entry := keymap.Entry{
			Index:        i,
			Abbreviation: km.Abbreviation,
			Default:      km.Default,
			Name:         km.Name,
			Description:  km.Description,
		}
		for j, l := range km.Layers {
			layerPath := fmt.Sprintf("%s.layers[%d]", path, j)
			id, err := keymap.ParseLayerID(l.ID)
			if err != nil {
				return cfg, wrapPath(layerPath, err)
			}
			layer := keymap.Layer{ID: id}
			for mi, mod := range l.Modules {
				modPath := fmt.Sprintf("%s.modules[%d]", layerPath, mi)
				modID, err := module.ParseID(mod.ID)
				if err != nil {
					return cfg, wrapPath(modPath, err)
				}
				out := keymap.Module{ID: uint8(modID)}
				for n, k := range mod.Keys {
					action, err := d.compileKey(k)
					if err != nil {
						return cfg, wrapPath(fmt.Sprintf("%s.keys[%d]", modPath, n), err)
					}
					out.Keys = append(out.Keys, action)
				}
				layer.Modules = append(layer.Modules, out)
			}
			entry.Layers = append(entry.Layers, layer)
		}
		cfg.Keymaps = append(cfg.Keymaps, entry)
	}
	return cfg, nil
}

func compileAction(a Action) (macro.Action, error) {
	t, err := macro.ParseActionType(a.Type)
	if err != nil {
		return macro.Action{}, err
	}
	out := macro.Action{Type: t}

	switch t {
	case macro.ActionKey:
		if out.Phase, err = macro.ParsePhase(a.Phase); err != nil {
			return out, err
		}
		if out.Keystroke, err = key.ParseKeystrokeType(a.Keystroke); err != nil {
			return out, err
		}
		if out.Modifiers, err = key.ParseModifiers(a.Modifiers); err != nil {
			return out, err
		}
		out.Scancode = a.Scancode
	case macro.ActionMouseButton:
		if out.Phase, err = macro.ParsePhase(a.Phase); err != nil {
			return out, err
		}
		if out.Buttons, err = key.ParseMouseButtons(a.Buttons); err != nil {
			return out, err
		}
	case macro.ActionMoveMouse, macro.ActionScrollMouse:
		out.X, out.Y = a.X, a.Y
	case macro.ActionDelay:
		out.Delay = a.Delay
	case macro.ActionText, macro.ActionCommand:
		out.Text = a.Text
	}
	return out, nil
}

func (d *Document) compileKey(k Key) (keymap.KeyAction, error) {
	t, err := keymap.ParseKeyActionType(k.Type)
	if err != nil {
		return keymap.KeyAction{}, err
	}
	out := keymap.KeyAction{Type: t}

	switch t {
	case keymap.KeyKeystroke:
		if out.Keystroke, err = key.ParseKeystrokeType(k.Keystroke); err != nil {
			return out, err
		}
		if out.Modifiers, err = key.ParseModifiers(k.Modifiers); err != nil {
			return out, err
		}
		out.Scancode = k.Scancode
	case keymap.KeyMouse:
		out.MouseAction = k.Mouse
	case keymap.KeySwitchLayer:
		if out.Layer, err = keymap.ParseLayerID(k.Layer); err != nil {
			return out, err
		}
		if out.Mode, err = keymap.ParseSwitchMode(k.Mode); err != nil {
			return out, err
		}
	case keymap.KeySwitchKeymap:
		if out.Keymap, err = resolve(k.Keymap, len(d.Keymaps), func(i int) string { return d.Keymaps[i].Abbreviation }); err != nil {
			return out, fmt.Errorf("keymap: %w", err)
		}
	case keymap.KeyPlayMacro:
		if out.Macro, err = resolve(k.Macro, len(d.Macros), func(i int) string { return d.Macros[i].Name }); err != nil {
			return out, fmt.Errorf("macro: %w", err)
		}
	}
	return out, nil
}

// resolve finds ref among n names: the first exact match wins, then "#N".
func resolve(ref string, n int, name func(int) string) (int, error) {
	for i := 0; i < n; i++ {
		if name(i) == ref {
			return i, nil
		}
	}
	if num, ok := strings.CutPrefix(ref, "#"); ok {
		i, err := strconv.Atoi(num)
		if err == nil && i >= 0 {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unresolved reference %q", ref)
}

// reference returns the string that resolve maps back to index i.
func reference(i int, n int, name func(int) string) string {
	if s := name(i); s != "" && !strings.HasPrefix(s, "#") {
		first, err := resolve(s, n, name)
		if err == nil && first == i {
			return s
		}
	}
	return "#" + strconv.Itoa(i)
}
