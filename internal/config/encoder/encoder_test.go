package encoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/splitkb/internal/config/buffer"
	"github.com/dshills/splitkb/internal/key"
	"github.com/dshills/splitkb/internal/keymap"
	"github.com/dshills/splitkb/internal/macro"
	"github.com/dshills/splitkb/internal/module"
)

func TestWriteCompactLength(t *testing.T) {
	tests := []struct {
		n    int
		want []byte
	}{
		{0, []byte{0x00}},
		{254, []byte{0xfe}},
		{255, []byte{0xff, 0xff, 0x00}},
		{0x1234, []byte{0xff, 0x34, 0x12}},
	}

	for _, tt := range tests {
		w := NewWriter()
		require.NoError(t, w.WriteCompactLength(tt.n))
		assert.Equal(t, tt.want, w.Bytes(), "n=%d", tt.n)

		n, err := buffer.New(w.Bytes()).ReadCompactLength()
		require.NoError(t, err)
		assert.Equal(t, tt.n, n)
	}

	w := NewWriter()
	assert.ErrorIs(t, w.WriteCompactLength(70000), ErrValueTooLarge)
	assert.ErrorIs(t, w.WriteCompactLength(-1), ErrValueTooLarge)
	assert.Equal(t, 0, w.Len())
}

func TestWriteString(t *testing.T) {
	w := NewWriter()
	require.NoError(t, w.WriteString("QWR"))
	assert.Equal(t, []byte{3, 'Q', 'W', 'R'}, w.Bytes())
}

func TestEncodeEmptyConfig(t *testing.T) {
	data, err := Encode(Config{Version: 1})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x00, 0x00, 0x00, 0x00}, data)
}

func TestEncodeLayout(t *testing.T) {
	data, err := Encode(Config{
		Version: 0x0102,
		Modules: []module.Config{{ID: module.TrackballRight, InitialPointerSpeed: 1, PointerAcceleration: 2, MaxPointerSpeed: 3}},
		Macros: []Macro{{
			Name: "m",
			Actions: []macro.Action{
				{Type: macro.ActionKey, Phase: macro.PhasePress, Scancode: 4, Modifiers: key.ModLeftShift},
				{Type: macro.ActionDelay, Delay: 300},
			},
		}},
		Keymaps: []keymap.Entry{{
			Abbreviation: "QWR",
			Default:      true,
			Layers: []keymap.Layer{{
				ID: keymap.LayerFn,
				Modules: []keymap.Module{{ID: 0, Keys: []keymap.KeyAction{
					{Type: keymap.KeyPlayMacro, Macro: 0},
					{Type: keymap.KeyNone},
				}}},
			}},
		}},
	})
	require.NoError(t, err)

	want := []byte{
		0x02, 0x01, // version
		0x01, 3, 1, 2, 3, // modules
		0x01,                  // macro count
		0, 0, 1, 'm', 2, // flags, name, action count
		0, 1, 0, 4, 0, 0x02, // key press
		4, 0x2c, 0x01, // delay 300
		0x01,                // keymap count
		3, 'Q', 'W', 'R', 1, // abbreviation, default
		0, 0, // name, description
		1, uint8(keymap.LayerFn), 1, // layer count, id, module count
		0, 2, // module id, key count
		5, 0, // play macro 0
		0, // none
	}
	assert.Equal(t, want, data)
}

func TestWriteKeyActionIndexRange(t *testing.T) {
	w := NewWriter()
	err := w.WriteKeyAction(keymap.KeyAction{Type: keymap.KeySwitchKeymap, Keymap: 256})
	assert.ErrorIs(t, err, ErrValueTooLarge)
}
