package document

import (
	"strconv"

	"github.com/dshills/splitkb/internal/config/parser"
	"github.com/dshills/splitkb/internal/keymap"
	"github.com/dshills/splitkb/internal/macro"
	"github.com/dshills/splitkb/internal/module"
)

// FromConfig converts a decoded configuration back into a document.
// Encoding the result yields the same stream.
func FromConfig(cfg *parser.Config) (*Document, error) {
	doc := &Document{Version: cfg.Version}

	for _, m := range cfg.Modules {
		doc.Modules = append(doc.Modules, Module{
			ID:                  moduleName(m.ID),
			InitialPointerSpeed: m.InitialPointerSpeed,
			PointerAcceleration: m.PointerAcceleration,
			MaxPointerSpeed:     m.MaxPointerSpeed,
		})
	}

	for _, e := range cfg.Macros.Entries() {
		actions, err := parser.DecodeActions(e.Body, e.ActionCount)
		if err != nil {
			return nil, err
		}
		m := Macro{Name: e.Name, Looped: e.Looped, Private: e.Private}
		for _, a := range actions {
			m.Actions = append(m.Actions, fromAction(a))
		}
		doc.Macros = append(doc.Macros, m)
	}

	macroName := func(i int) string { return cfg.Macros.Name(i) }
	keymapName := func(i int) string { return cfg.Keymaps[i].Abbreviation }
	for _, km := range cfg.Keymaps {
		out := Keymap{
			Abbreviation: km.Abbreviation,
			Default:      km.Default,
			Name:         km.Name,
			Description:  km.Description,
		}
		for _, l := range km.Layers {
			layer := Layer{ID: l.ID.String()}
			for _, mod := range l.Modules {
				keys := KeyModule{ID: moduleName(module.ID(mod.ID))}
				for _, k := range mod.Keys {
					key := Key{Type: k.Type.String()}
					switch k.Type {
					case keymap.KeyKeystroke:
						key.Keystroke = k.Keystroke.String()
						key.Scancode = k.Scancode
						key.Modifiers = k.Modifiers.String()
					case keymap.KeyMouse:
						key.Mouse = k.MouseAction
					case keymap.KeySwitchLayer:
						key.Layer = k.Layer.String()
						key.Mode = k.Mode.String()
					case keymap.KeySwitchKeymap:
						key.Keymap = reference(k.Keymap, len(cfg.Keymaps), keymapName)
					case keymap.KeyPlayMacro:
						key.Macro = reference(k.Macro, cfg.Macros.Len(), macroName)
					}
					keys.Keys = append(keys.Keys, key)
				}
				layer.Modules = append(layer.Modules, keys)
			}
			out.Layers = append(out.Layers, layer)
		}
		doc.Keymaps = append(doc.Keymaps, out)
	}
	return doc, nil
}

func fromAction(a macro.Action) Action {
	out := Action{Type: a.Type.String()}
	switch a.Type {
	case macro.ActionKey:
		out.Phase = a.Phase.String()
		out.Keystroke = a.Keystroke.String()
		out.Scancode = a.Scancode
		out.Modifiers = a.Modifiers.String()
	case macro.ActionMouseButton:
		out.Phase = a.Phase.String()
		out.Buttons = a.Buttons.String()
	case macro.ActionMoveMouse, macro.ActionScrollMouse:
		out.X, out.Y = a.X, a.Y
	case macro.ActionDelay:
		out.Delay = a.Delay
	case macro.ActionText, macro.ActionCommand:
		out.Text = a.Text
	}
	return out
}

func moduleName(id module.ID) string {
	if id.Known() {
		return id.String()
	}
	return strconv.Itoa(int(id))
}
