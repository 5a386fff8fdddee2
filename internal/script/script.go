// Package script runs Lua simulation scripts against a device.
//
// A script drives the device through the kb module:
//
//	kb.apply("layout.yaml")
//	kb.boot()
//	kb.tick(10)
//	for _, line in ipairs(kb.trace()) do kb.log(line) end
//
// Scripts run in a fresh sandboxed state. Only the base, table, string and
// math libraries are available, and each run is bounded by a timeout.
package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/splitkb/internal/device"
)

// DefaultTimeout bounds a single script run.
const DefaultTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when a script exceeds its timeout.
	ErrTimeout = errors.New("script timeout")

	// ErrScript wraps errors raised by Lua code itself.
	ErrScript = errors.New("script error")
)

// Runner executes scripts against a device.
type Runner struct {
	dev      *device.Device
	recorder *Recorder
	timeout  time.Duration
	baseDir  string
	logger   *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithRecorder makes kb.trace return the events seen by rec. The recorder
// must also be installed on the device with device.WithEventHandler.
func WithRecorder(rec *Recorder) Option {
	return func(r *Runner) {
		r.recorder = rec
	}
}

// WithTimeout sets the per-run timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithBaseDir sets the directory relative paths passed to kb.apply are
// resolved against. RunFile uses the script's own directory by default.
func WithBaseDir(dir string) Option {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithLogger sets the logger kb.log writes to.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a runner for dev.
func New(dev *device.Device, opts ...Option) *Runner {
	r := &Runner{
		dev:     dev,
		timeout: DefaultTimeout,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.recorder == nil {
		r.recorder = NewRecorder()
	}
	return r
}

// RunFile executes the script at path.
func (r *Runner) RunFile(ctx context.Context, path string) error {
	base := r.baseDir
	if base == "" {
		base = filepath.Dir(path)
	}
	return r.run(ctx, path, base, func(L *lua.LState) error {
		return L.DoFile(path)
	})
}

// RunString executes code. name identifies the chunk in errors.
func (r *Runner) RunString(ctx context.Context, name, code string) error {
	return r.run(ctx, name, r.baseDir, func(L *lua.LState) error {
		return L.DoString(code)
	})
}

func (r *Runner) run(ctx context.Context, name, base string, exec func(L *lua.LState) error) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	L := newState()
	defer L.Close()
	L.SetContext(ctx)

	api := &kbModule{runner: r, baseDir: base}
	api.install(L)

	start := time.Now()
	err := doWithRecovery(func() error { return exec(L) })
	if err == nil {
		r.logger.Debug("Script finished", "script", name, "duration", time.Since(start))
		return nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s after %s", ErrTimeout, name, r.timeout)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", name, ctxErr)
	}
	if goErr := raisedError(err); goErr != nil {
		return fmt.Errorf("%s: %w", name, goErr)
	}
	return fmt.Errorf("%w: %s: %w", ErrScript, name, err)
}

// newState creates a Lua state with only the safe libraries open.
func newState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}

func doWithRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}
