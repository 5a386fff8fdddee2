package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/splitkb/internal/config/encoder"
	"github.com/dshills/splitkb/internal/config/parser"
	"github.com/dshills/splitkb/internal/keymap"
	"github.com/dshills/splitkb/internal/macro"
	"github.com/dshills/splitkb/internal/macro/player"
	"github.com/dshills/splitkb/internal/module"
	"github.com/dshills/splitkb/internal/scheduler"
)

func named(name string, actions ...macro.Action) encoder.Macro {
	if len(actions) == 0 {
		actions = []macro.Action{{Type: macro.ActionText, Text: name}}
	}
	return encoder.Macro{Name: name, Actions: actions}
}

func testConfig() encoder.Config {
	return encoder.Config{
		Version: DataModelVersion,
		Modules: []module.Config{{ID: module.KeyClusterLeft, InitialPointerSpeed: 1}},
		Macros: []encoder.Macro{
			named("$onInit", macro.Action{Type: macro.ActionDelay, Delay: 3}),
			named("$onKeymapChange any"),
			named("$onKeymapChange DVO"),
			named("$onLayerChange fn"),
			named("$onKeymapLayerChange QWR fn"),
		},
		Keymaps: []keymap.Entry{
			{Abbreviation: "QWR", Name: "QWERTY"},
			{Abbreviation: "DVO", Name: "Dvorak", Default: true},
		},
	}
}

func encode(t *testing.T, cfg encoder.Config) []byte {
	t.Helper()
	data, err := encoder.Encode(cfg)
	require.NoError(t, err)
	return data
}

type recorder struct {
	events []player.Event
}

func (r *recorder) handle(e player.Event) {
	if e.Type != player.EventAction {
		r.events = append(r.events, e)
	}
}

func (r *recorder) names(typ player.EventType) []string {
	var out []string
	for _, e := range r.events {
		if e.Type == typ {
			out = append(out, e.MacroName)
		}
	}
	return out
}

func TestWriteUserConfigBounds(t *testing.T) {
	d := New(WithUserConfigSize(100), WithMaxChunk(8))

	require.NoError(t, d.WriteUserConfig(0, make([]byte, 8)))
	require.NoError(t, d.WriteUserConfig(92, make([]byte, 8)))
	assert.Equal(t, 100, d.Staged())

	assert.ErrorIs(t, d.WriteUserConfig(0, make([]byte, 9)), ErrLengthTooLarge)
	assert.ErrorIs(t, d.WriteUserConfig(93, make([]byte, 8)), ErrBufferOutOfBounds)
	assert.ErrorIs(t, d.Upload(make([]byte, 101)), ErrBufferOutOfBounds)
}

func TestUploadAndApply(t *testing.T) {
	data := encode(t, testConfig())
	rec := &recorder{}
	d := New(WithEventHandler(rec.handle))

	require.NoError(t, d.Upload(data))
	assert.Equal(t, len(data), d.Staged())
	require.NoError(t, d.ApplyConfig())

	assert.Equal(t, data, d.ValidatedConfig())
	assert.NotEmpty(t, d.ConfigID())
	assert.Equal(t, "DVO", d.CurrentKeymap().Abbreviation)
	assert.Equal(t, 5, d.Macros().Len())
	assert.Equal(t, []module.Config{{ID: module.KeyClusterLeft, InitialPointerSpeed: 1}}, d.Modules())
	assert.Equal(t, []string{"$onKeymapChange any"}, rec.names(player.EventStarted))
	assert.Equal(t, []string{"$onKeymapChange DVO"}, rec.names(player.EventQueued))
}

func TestApplyRejectsInvalidConfig(t *testing.T) {
	d := New()
	require.NoError(t, d.LoadValidated(encode(t, testConfig())))
	id := d.ConfigID()
	before := d.ValidatedConfig()

	bad := testConfig()
	bad.Keymaps[0].Layers = []keymap.Layer{{ID: 77}}
	require.NoError(t, d.Upload(encode(t, bad)))

	err := d.ApplyConfig()
	require.Error(t, err)
	assert.Equal(t, parser.KindMalformedKeymap, parser.KindOf(err))
	assert.ErrorIs(t, err, keymap.ErrUnknownLayerID)

	assert.Equal(t, id, d.ConfigID())
	assert.Equal(t, before, d.ValidatedConfig())
	assert.Equal(t, 5, d.Macros().Len())
	assert.Equal(t, 2, d.Keymaps().Count())
}

func TestApplyTruncatedConfig(t *testing.T) {
	data := encode(t, testConfig())
	d := New()
	require.NoError(t, d.Upload(data[:len(data)-3]))

	err := d.ApplyConfig()
	assert.Equal(t, parser.KindBufferUnderrun, parser.KindOf(err))
	assert.Empty(t, d.ConfigID())
	assert.Nil(t, d.CurrentKeymap())
}

func TestBootChainsKeymapMacrosBehindInit(t *testing.T) {
	rec := &recorder{}
	d := New(WithEventHandler(rec.handle))
	require.NoError(t, d.LoadValidated(encode(t, testConfig())))
	require.NoError(t, d.Boot())

	assert.Equal(t, []string{"$onInit"}, rec.names(player.EventStarted))
	assert.Equal(t, []string{"$onKeymapChange any", "$onKeymapChange DVO"}, rec.names(player.EventQueued))
	assert.Equal(t, scheduler.Stats{Started: 1, Queued: 2}, d.SchedulerStats())

	d.Tick(20)
	assert.Equal(t, []string{"$onInit", "$onKeymapChange any", "$onKeymapChange DVO"}, rec.names(player.EventFinished))
	assert.Empty(t, d.Playing())
}

func TestBootWithoutConfig(t *testing.T) {
	d := New()
	assert.ErrorIs(t, d.Boot(), ErrNoConfig)
	assert.ErrorIs(t, d.SwitchKeymap(0), ErrNoConfig)
	assert.ErrorIs(t, d.SwitchLayer(keymap.LayerFn), ErrNoConfig)
}

func TestSwitchKeymapAndLayer(t *testing.T) {
	rec := &recorder{}
	d := New(WithEventHandler(rec.handle))
	require.NoError(t, d.LoadValidated(encode(t, testConfig())))

	require.NoError(t, d.SwitchKeymapByAbbreviation("QWR"))
	assert.Equal(t, 0, d.Keymaps().CurrentIndex())
	assert.Equal(t, []string{"$onKeymapChange any"}, rec.names(player.EventStarted))

	rec.events = nil
	require.NoError(t, d.SwitchLayer(keymap.LayerFn))
	assert.Equal(t, keymap.LayerFn, d.ActiveLayer())
	assert.True(t, d.Cursor().IsNone())
	assert.Equal(t, []string{"$onLayerChange fn"}, rec.names(player.EventStarted))
	assert.Equal(t, []string{"$onKeymapLayerChange QWR fn"}, rec.names(player.EventQueued))

	assert.ErrorIs(t, d.SwitchKeymap(5), ErrInvalidKeymapIndex)
	assert.ErrorIs(t, d.SwitchKeymapByAbbreviation("XYZ"), ErrInvalidKeymapIndex)
	assert.ErrorIs(t, d.SwitchLayer(keymap.LayerCount), keymap.ErrUnknownLayerID)
}

func TestTriggerProblems(t *testing.T) {
	cfg := testConfig()
	cfg.Macros = append(cfg.Macros, named("$onLayerChange hyper"))
	d := New()
	require.NoError(t, d.LoadValidated(encode(t, cfg)))
	require.NoError(t, d.SwitchKeymap(0))

	assert.ErrorIs(t, d.TriggerProblems(), keymap.ErrUnknownLayerID)
}

func TestConfigWithoutKeymaps(t *testing.T) {
	d := New()
	require.NoError(t, d.Upload(encode(t, encoder.Config{Version: 1, Macros: []encoder.Macro{named("$onInit")}})))
	require.NoError(t, d.ApplyConfig())
	require.NoError(t, d.Boot())

	assert.Nil(t, d.CurrentKeymap())
	assert.Equal(t, scheduler.SlotOf(0), d.Cursor())
}

func TestReadUserConfig(t *testing.T) {
	data := encode(t, testConfig())
	d := New()
	require.NoError(t, d.LoadValidated(data))

	got, err := d.ReadUserConfig(0, 10)
	require.NoError(t, err)
	assert.Equal(t, data[:10], got)

	got, err = d.ReadUserConfig(uint16(len(data)), 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, got)

	_, err = d.ReadUserConfig(0, DefaultMaxChunk+1)
	assert.ErrorIs(t, err, ErrLengthTooLarge)
}

func TestProperty(t *testing.T) {
	d := New(WithUserConfigSize(1024))

	v, err := d.Property(PropertyUserConfigSize)
	require.NoError(t, err)
	assert.Equal(t, uint16(1024), v)

	v, err = d.Property(PropertyDataModelVersion)
	require.NoError(t, err)
	assert.Equal(t, DataModelVersion, v)

	_, err = d.Property(PropertyID(42))
	assert.ErrorIs(t, err, ErrUnknownProperty)
	assert.Equal(t, "11.1.0", d.Versions().Firmware.String())
}

func TestLoadValidatedRebuildsLayerTriggers(t *testing.T) {
	keymaps := []keymap.Entry{{Abbreviation: "QWR", Default: true}}
	first := encoder.Config{
		Version: DataModelVersion,
		Macros:  []encoder.Macro{named("other"), named("$onLayerChange fn")},
		Keymaps: keymaps,
	}
	second := encoder.Config{
		Version: DataModelVersion,
		Macros:  []encoder.Macro{named("unrelated A"), named("unrelated B")},
		Keymaps: keymaps,
	}

	rec := &recorder{}
	d := New(WithEventHandler(rec.handle))
	require.NoError(t, d.LoadValidated(encode(t, first)))
	require.NoError(t, d.Boot())

	require.NoError(t, d.LoadValidated(encode(t, second)))
	rec.events = nil
	require.NoError(t, d.SwitchLayer(keymap.LayerFn))

	assert.Empty(t, rec.names(player.EventStarted))
	assert.Empty(t, rec.names(player.EventQueued))
	assert.Equal(t, macro.NoRef, d.dispatcher.Index().Lookup(keymap.LayerFn).Layer)
}

func TestReadUserConfigNegativeLength(t *testing.T) {
	d := New()
	require.NoError(t, d.LoadValidated(encode(t, testConfig())))

	_, err := d.ReadUserConfig(0, -1)
	assert.ErrorIs(t, err, ErrBufferOutOfBounds)
}

func TestUserConfigSizeIsClamped(t *testing.T) {
	d := New(WithUserConfigSize(70000))

	v, err := d.Property(PropertyUserConfigSize)
	require.NoError(t, err)
	assert.Equal(t, uint16(MaxUserConfigSize), v)

	assert.ErrorIs(t, d.Upload(make([]byte, 66000)), ErrBufferOutOfBounds)

	data := make([]byte, MaxUserConfigSize)
	for i := range data {
		data[i] = byte(i % 251)
	}
	require.NoError(t, d.Upload(data))
	assert.Equal(t, MaxUserConfigSize, d.Staged())
	assert.Equal(t, data, d.staging[:d.Staged()])
}
