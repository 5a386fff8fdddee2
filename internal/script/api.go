package script

import (
	"errors"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/splitkb/internal/blobfile"
	"github.com/dshills/splitkb/internal/config/document"
	"github.com/dshills/splitkb/internal/keymap"
)

const errorTypeName = "kb.error"

// kbModule implements the kb global.
type kbModule struct {
	runner  *Runner
	baseDir string
}

func (m *kbModule) install(L *lua.LState) {
	mt := L.NewTypeMetatable(errorTypeName)
	L.SetField(mt, "__tostring", L.NewFunction(errorToString))

	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"apply":     m.apply,
		"boot":      m.boot,
		"keymap":    m.keymap,
		"layer":     m.layer,
		"tick":      m.tick,
		"trace":     m.trace,
		"cursor":    m.cursor,
		"stats":     m.stats,
		"playing":   m.playing,
		"config_id": m.configID,
		"problems":  m.problems,
		"log":       m.log,
	})
	L.SetGlobal("kb", mod)
}

// raise throws err as a Lua error that keeps the Go error for the caller
// of Run.
func raise(L *lua.LState, err error) int {
	ud := L.NewUserData()
	ud.Value = err
	L.SetMetatable(ud, L.GetTypeMetatable(errorTypeName))
	L.Error(ud, 1)
	return 0
}

func errorToString(L *lua.LState) int {
	ud := L.CheckUserData(1)
	if err, ok := ud.Value.(error); ok {
		L.Push(lua.LString(err.Error()))
		return 1
	}
	L.Push(lua.LString("kb error"))
	return 1
}

// raisedError extracts the Go error thrown by raise, if any.
func raisedError(err error) error {
	var apiErr *lua.ApiError
	if !errors.As(err, &apiErr) {
		return nil
	}
	ud, ok := apiErr.Object.(*lua.LUserData)
	if !ok {
		return nil
	}
	goErr, _ := ud.Value.(error)
	return goErr
}

func (m *kbModule) resolve(path string) string {
	if filepath.IsAbs(path) || m.baseDir == "" {
		return path
	}
	return filepath.Join(m.baseDir, path)
}

func (m *kbModule) readConfig(path string) ([]byte, error) {
	path = m.resolve(path)
	if document.IsDocument(path) {
		doc, err := document.Load(path)
		if err != nil {
			return nil, err
		}
		return document.Encode(doc)
	}
	return blobfile.Read(path)
}

// kb.apply(path) uploads and applies a configuration file and returns the
// new configuration id.
func (m *kbModule) apply(L *lua.LState) int {
	path := L.CheckString(1)
	data, err := m.readConfig(path)
	if err != nil {
		return raise(L, err)
	}
	dev := m.runner.dev
	if err := dev.Upload(data); err != nil {
		return raise(L, err)
	}
	if err := dev.ApplyConfig(); err != nil {
		return raise(L, err)
	}
	m.runner.logger.Info("Configuration applied by script", "path", path, "config_id", dev.ConfigID())
	L.Push(lua.LString(dev.ConfigID()))
	return 1
}

// kb.boot() runs the boot sequence.
func (m *kbModule) boot(L *lua.LState) int {
	if err := m.runner.dev.Boot(); err != nil {
		return raise(L, err)
	}
	return 0
}

// kb.keymap([index|abbrev]) switches keymap and returns the current
// abbreviation.
func (m *kbModule) keymap(L *lua.LState) int {
	dev := m.runner.dev
	switch v := L.Get(1).(type) {
	case *lua.LNilType:
	case lua.LNumber:
		if err := dev.SwitchKeymap(int(v)); err != nil {
			return raise(L, err)
		}
	case lua.LString:
		if err := dev.SwitchKeymapByAbbreviation(string(v)); err != nil {
			return raise(L, err)
		}
	default:
		L.ArgError(1, "keymap index or abbreviation expected")
		return 0
	}

	if cur := dev.CurrentKeymap(); cur != nil {
		L.Push(lua.LString(cur.Abbreviation))
	} else {
		L.Push(lua.LNil)
	}
	return 1
}

// kb.layer([name]) switches layer and returns the active layer name.
func (m *kbModule) layer(L *lua.LState) int {
	dev := m.runner.dev
	if L.GetTop() >= 1 && L.Get(1) != lua.LNil {
		id, err := keymap.ParseLayerID(L.CheckString(1))
		if err != nil {
			return raise(L, err)
		}
		if err := dev.SwitchLayer(id); err != nil {
			return raise(L, err)
		}
	}
	L.Push(lua.LString(dev.ActiveLayer().String()))
	return 1
}

// kb.tick([n]) advances the macro engine.
func (m *kbModule) tick(L *lua.LState) int {
	n := L.OptInt(1, 1)
	if n < 0 {
		L.ArgError(1, "tick count must not be negative")
		return 0
	}
	m.runner.dev.Tick(n)
	return 0
}

// kb.trace([type]) returns and clears the recorded engine events, optionally
// keeping only one event type such as "started".
func (m *kbModule) trace(L *lua.LState) int {
	filter := L.OptString(1, "")
	out := L.NewTable()
	for _, e := range m.runner.recorder.Drain() {
		if filter != "" && e.Type.String() != filter {
			continue
		}
		out.Append(lua.LString(e.String()))
	}
	L.Push(out)
	return 1
}

// kb.cursor() returns the scheduler cursor slot, or nil.
func (m *kbModule) cursor(L *lua.LState) int {
	if id, ok := m.runner.dev.Cursor().Get(); ok {
		L.Push(lua.LNumber(id))
	} else {
		L.Push(lua.LNil)
	}
	return 1
}

// kb.stats() returns the scheduler counters.
func (m *kbModule) stats(L *lua.LState) int {
	s := m.runner.dev.SchedulerStats()
	t := L.NewTable()
	t.RawSetString("started", lua.LNumber(s.Started))
	t.RawSetString("queued", lua.LNumber(s.Queued))
	t.RawSetString("dropped", lua.LNumber(s.Dropped))
	L.Push(t)
	return 1
}

// kb.playing() returns the number of busy slots.
func (m *kbModule) playing(L *lua.LState) int {
	L.Push(lua.LNumber(len(m.runner.dev.Playing())))
	return 1
}

func (m *kbModule) configID(L *lua.LState) int {
	L.Push(lua.LString(m.runner.dev.ConfigID()))
	return 1
}

// kb.problems() lists layer triggers ignored by the last rebuild.
func (m *kbModule) problems(L *lua.LState) int {
	out := L.NewTable()
	if err := m.runner.dev.TriggerProblems(); err != nil {
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range joined.Unwrap() {
				out.Append(lua.LString(e.Error()))
			}
		} else {
			out.Append(lua.LString(err.Error()))
		}
	}
	L.Push(out)
	return 1
}

func (m *kbModule) log(L *lua.LState) int {
	m.runner.logger.Info(L.CheckString(1), "source", "script")
	return 0
}
