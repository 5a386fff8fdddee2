package script

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dshills/splitkb/internal/blobfile"
	"github.com/dshills/splitkb/internal/config/encoder"
	"github.com/dshills/splitkb/internal/device"
	"github.com/dshills/splitkb/internal/keymap"
	"github.com/dshills/splitkb/internal/macro"
	"github.com/dshills/splitkb/internal/macro/player"
)

func testConfig() encoder.Config {
	text := func(name string) encoder.Macro {
		return encoder.Macro{Name: name, Actions: []macro.Action{{Type: macro.ActionText, Text: name}}}
	}
	return encoder.Config{
		Version: device.DataModelVersion,
		Macros: []encoder.Macro{
			{Name: "$onInit", Actions: []macro.Action{{Type: macro.ActionDelay, Delay: 3}}},
			text("$onKeymapChange any"),
			text("$onKeymapChange DVO"),
			text("$onLayerChange fn"),
		},
		Keymaps: []keymap.Entry{
			{Abbreviation: "QWR", Name: "QWERTY"},
			{Abbreviation: "DVO", Name: "Dvorak", Default: true},
		},
	}
}

func setup(t *testing.T, opts ...Option) (*Runner, *device.Device, string) {
	t.Helper()

	dir := t.TempDir()
	data, err := encoder.Encode(testConfig())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if err := blobfile.Write(filepath.Join(dir, "layout.bin.zst"), data); err != nil {
		t.Fatalf("blobfile.Write() error = %v", err)
	}

	rec := NewRecorder()
	dev := device.New(device.WithEventHandler(rec.Handle))
	opts = append([]Option{WithRecorder(rec), WithBaseDir(dir)}, opts...)
	return New(dev, opts...), dev, dir
}

func TestRunApplyBootAndSwitch(t *testing.T) {
	r, dev, _ := setup(t)

	err := r.RunString(context.Background(), "session", `
		local id = kb.apply("layout.bin.zst")
		assert(id ~= "", "empty config id")
		assert(id == kb.config_id())
		assert(kb.keymap() == "DVO", "default keymap")

		local started = kb.trace("started")
		assert(#started == 1, "started after apply: " .. #started)

		kb.tick(20)
		assert(kb.playing() == 0, "still playing")
		kb.trace()

		kb.boot()
		local queued = kb.trace("queued")
		assert(#queued == 2, "queued after boot: " .. #queued)
		assert(kb.cursor() == 0, "cursor after boot")

		assert(kb.layer("fn") == "fn")
		assert(kb.cursor() == nil, "cursor after layer change")
		assert(kb.keymap(0) == "QWR")
		assert(#kb.problems() == 0)
	`)
	if err != nil {
		t.Fatalf("RunString() error = %v", err)
	}

	if got := dev.CurrentKeymap().Abbreviation; got != "QWR" {
		t.Errorf("CurrentKeymap() = %q, want QWR", got)
	}
	if got := dev.ActiveLayer(); got != keymap.LayerFn {
		t.Errorf("ActiveLayer() = %s, want fn", got)
	}
}

func TestRunPreservesDeviceErrors(t *testing.T) {
	r, _, _ := setup(t)

	err := r.RunString(context.Background(), "bad-keymap", `
		kb.apply("layout.bin.zst")
		kb.keymap("NOPE")
	`)
	if !errors.Is(err, device.ErrInvalidKeymapIndex) {
		t.Fatalf("RunString() error = %v, want ErrInvalidKeymapIndex", err)
	}

	err = r.RunString(context.Background(), "bad-layer", `kb.layer("fn7")`)
	if !errors.Is(err, keymap.ErrUnknownLayerID) {
		t.Errorf("RunString() error = %v, want ErrUnknownLayerID", err)
	}
}

func TestRunErrorsCanBeCaught(t *testing.T) {
	r, _, _ := setup(t)

	err := r.RunString(context.Background(), "pcall", `
		local ok, err = pcall(kb.boot)
		assert(not ok, "boot without config succeeded")
		assert(string.find(tostring(err), "no configuration"), tostring(err))
	`)
	if err != nil {
		t.Fatalf("RunString() error = %v", err)
	}
}

func TestRunScriptError(t *testing.T) {
	r, _, _ := setup(t)

	err := r.RunString(context.Background(), "boom", `error("boom")`)
	if !errors.Is(err, ErrScript) {
		t.Errorf("RunString() error = %v, want ErrScript", err)
	}
}

func TestRunSandbox(t *testing.T) {
	r, _, _ := setup(t)

	err := r.RunString(context.Background(), "sandbox", `
		assert(io == nil, "io")
		assert(os == nil, "os")
		assert(debug == nil, "debug")
		assert(dofile == nil, "dofile")
		assert(loadfile == nil, "loadfile")
		assert(load == nil, "load")
		assert(require == nil, "require")
		assert(string.upper("a") == "A")
		assert(math.max(1, 2) == 2)
		assert(table.concat({"a", "b"}) == "ab")
	`)
	if err != nil {
		t.Fatalf("RunString() error = %v", err)
	}
}

func TestRunTimeout(t *testing.T) {
	r, _, _ := setup(t, WithTimeout(50*time.Millisecond))

	start := time.Now()
	err := r.RunString(context.Background(), "spin", `while true do end`)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("RunString() error = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout took %s", elapsed)
	}
}

func TestRunFileResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	data, err := encoder.Encode(testConfig())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if err := blobfile.Write(filepath.Join(dir, "layout.bin"), data); err != nil {
		t.Fatalf("blobfile.Write() error = %v", err)
	}
	path := filepath.Join(dir, "session.lua")
	if err := os.WriteFile(path, []byte(`kb.apply("layout.bin")`), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	dev := device.New()
	if err := New(dev).RunFile(context.Background(), path); err != nil {
		t.Fatalf("RunFile() error = %v", err)
	}
	if dev.ConfigID() == "" {
		t.Error("RunFile() did not apply the configuration")
	}
}

func TestRunAppliesDocument(t *testing.T) {
	dir := t.TempDir()
	doc := `
version: 8
macros:
  - name: $onKeymapChange any
    actions:
      - {type: text, text: hi}
keymaps:
  - abbreviation: QWR
    default: true
`
	if err := os.WriteFile(filepath.Join(dir, "layout.yaml"), []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	rec := NewRecorder()
	dev := device.New(device.WithEventHandler(rec.Handle))
	r := New(dev, WithRecorder(rec), WithBaseDir(dir))
	err := r.RunString(context.Background(), "doc", `
		kb.apply("layout.yaml")
		local lines = kb.trace("started")
		assert(#lines == 1, "started " .. #lines)
	`)
	if err != nil {
		t.Fatalf("RunString() error = %v", err)
	}
	if dev.Macros().Len() != 1 {
		t.Errorf("Macros().Len() = %d, want 1", dev.Macros().Len())
	}
}

func TestRecorderLimit(t *testing.T) {
	rec := NewRecorder()
	rec.limit = 2
	for i := 0; i < 5; i++ {
		rec.Handle(player.Event{Type: player.EventStarted, MacroIndex: i})
	}

	events := rec.Drain()
	if len(events) != 2 || events[0].MacroIndex != 3 || events[1].MacroIndex != 4 {
		t.Errorf("Drain() = %v, want the last two events", events)
	}
	if rec.Dropped() != 3 {
		t.Errorf("Dropped() = %d, want 3", rec.Dropped())
	}
	if len(rec.Drain()) != 0 {
		t.Error("Drain() did not clear the recorder")
	}
}
