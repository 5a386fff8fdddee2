package document

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/splitkb/internal/config/parser"
	"github.com/dshills/splitkb/internal/keymap"
	"github.com/dshills/splitkb/internal/macro"
)

const sampleYAML = `
version: 8
modules:
  - id: trackball_right
    initial_pointer_speed: 5
    pointer_acceleration: 3
    max_pointer_speed: 9
  - id: "12"
macros:
  - name: $onInit
    actions:
      - {type: key, phase: tap, keystroke: basic, scancode: 4, modifiers: lctrl+lshift}
      - {type: delay, delay: 20}
  - name: $onKeymapChange any
    looped: true
    private: true
    actions:
      - {type: mouse_button, phase: press, buttons: left+right}
      - {type: move_mouse, x: -3, y: 7}
      - {type: scroll_mouse, y: -1}
      - {type: text, text: hello}
      - {type: command, text: "setLedTxt 500 abc"}
  - name: $onKeymapChange any
keymaps:
  - abbreviation: QWR
    default: true
    name: QWERTY
    description: Plain layout
    layers:
      - id: base
        modules:
          - id: right_half
            keys:
              - {type: keystroke, keystroke: media, scancode: 233}
              - {type: none}
              - {type: layer, layer: fn, mode: toggle}
              - {type: keymap, keymap: DVO}
              - {type: macro, macro: $onInit}
              - {type: macro, macro: "#2"}
              - {type: mouse, mouse: 3}
      - id: fn
  - abbreviation: DVO
    name: Dvorak
`

const sampleTOML = `
version = 8

[[modules]]
id = "trackball_right"
initial_pointer_speed = 5
pointer_acceleration = 3
max_pointer_speed = 9

[[macros]]
name = "$onInit"

  [[macros.actions]]
  type = "text"
  text = "hi"

[[keymaps]]
abbreviation = "QWR"
default = true

  [[keymaps.layers]]
  id = "base"

    [[keymaps.layers.modules]]
    id = "left_half"

      [[keymaps.layers.modules.keys]]
      type = "keystroke"
      scancode = 4
      modifiers = "lalt"

      [[keymaps.layers.modules.keys]]
      type = "macro"
      macro = "$onInit"
`

func decodeYAML(t *testing.T, src string) *Document {
	t.Helper()
	doc, err := Decode([]byte(src), FormatYAML)
	require.NoError(t, err)
	return doc
}

func TestEncodeParses(t *testing.T) {
	data, err := Encode(decodeYAML(t, sampleYAML))
	require.NoError(t, err)

	cfg, err := parser.ParseConfig(data)
	require.NoError(t, err)
	assert.Equal(t, uint16(8), cfg.Version)
	assert.Len(t, cfg.Modules, 2)
	assert.Equal(t, 3, cfg.Macros.Len())
	require.Len(t, cfg.Keymaps, 2)

	keys := cfg.Keymaps[0].Layers[0].Modules[0].Keys
	require.Len(t, keys, 7)
	assert.Equal(t, keymap.KeySwitchKeymap, keys[3].Type)
	assert.Equal(t, 1, keys[3].Keymap)
	assert.Equal(t, 0, keys[4].Macro)
	assert.Equal(t, 2, keys[5].Macro)

	looped := cfg.Macros.Entry(1)
	assert.True(t, looped.Looped)
	actions, err := parser.DecodeActions(looped.Body, looped.ActionCount)
	require.NoError(t, err)
	assert.Equal(t, macro.ActionCommand, actions[4].Type)
	assert.Equal(t, "setLedTxt 500 abc", actions[4].Text)
}

func TestFromConfigRoundTrip(t *testing.T) {
	doc := decodeYAML(t, sampleYAML)
	data, err := Encode(doc)
	require.NoError(t, err)

	cfg, err := parser.ParseConfig(data)
	require.NoError(t, err)
	back, err := FromConfig(cfg)
	require.NoError(t, err)

	again, err := Encode(back)
	require.NoError(t, err)
	assert.Equal(t, data, again)

	// Duplicate macro names fall back to index references.
	assert.Equal(t, "$onInit", back.Keymaps[0].Layers[0].Modules[0].Keys[4].Macro)
	assert.Equal(t, "#2", back.Keymaps[0].Layers[0].Modules[0].Keys[5].Macro)
	assert.Equal(t, "12", back.Modules[1].ID)
}

func TestMarshalRoundTrip(t *testing.T) {
	doc := decodeYAML(t, sampleYAML)

	for _, format := range []Format{FormatYAML, FormatTOML} {
		out, err := Marshal(doc, format)
		require.NoError(t, err)
		back, err := Decode(out, format)
		require.NoError(t, err)
		assert.Equal(t, doc, back)
	}
}

func TestDecodeTOML(t *testing.T) {
	doc, err := Decode([]byte(sampleTOML), FormatTOML)
	require.NoError(t, err)

	data, err := Encode(doc)
	require.NoError(t, err)
	cfg, err := parser.ParseConfig(data)
	require.NoError(t, err)

	require.Len(t, cfg.Keymaps, 1)
	keys := cfg.Keymaps[0].Layers[0].Modules[0].Keys
	require.Len(t, keys, 2)
	assert.Equal(t, uint16(4), keys[0].Scancode)
	assert.Equal(t, keymap.KeyPlayMacro, keys[1].Type)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		path string
	}{
		{
			name: "unknown module",
			src:  "modules: [{id: wheel}]",
			path: "modules[0]",
		},
		{
			name: "unknown action",
			src:  "macros: [{name: m, actions: [{type: jump}]}]",
			path: "macros[0].actions[0]",
		},
		{
			name: "bad modifier",
			src:  "macros: [{name: m, actions: [{type: key, modifiers: hyper}]}]",
			path: "macros[0].actions[0]",
		},
		{
			name: "unknown layer",
			src:  "keymaps: [{abbreviation: A, layers: [{id: nav}]}]",
			path: "keymaps[0].layers[0]",
		},
		{
			name: "unresolved macro",
			src:  "keymaps: [{abbreviation: A, layers: [{id: base, modules: [{id: right_half, keys: [{type: macro, macro: nope}]}]}]}]",
			path: "keymaps[0].layers[0].modules[0].keys[0]",
		},
		{
			name: "unknown key type",
			src:  "keymaps: [{abbreviation: A, layers: [{id: base, modules: [{id: right_half, keys: [{type: wave}]}]}]}]",
			path: "keymaps[0].layers[0].modules[0].keys[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(decodeYAML(t, tt.src))
			require.ErrorIs(t, err, ErrInvalidDocument)
			assert.Contains(t, err.Error(), tt.path+":")
		})
	}
}

func TestIndexReferenceIsRangeCheckedByParser(t *testing.T) {
	doc := decodeYAML(t, "keymaps: [{abbreviation: A, layers: [{id: base, modules: [{id: right_half, keys: [{type: keymap, keymap: \"#4\"}]}]}]}]")
	data, err := Encode(doc)
	require.NoError(t, err)

	_, err = parser.ParseConfig(data)
	assert.ErrorIs(t, err, parser.ErrMalformedKeymap)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kb.yml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, doc.Macros, 3)

	_, err = Load(filepath.Join(dir, "kb.json"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.True(t, IsDocument("a.toml"))
	assert.False(t, IsDocument("a.bin"))
}
