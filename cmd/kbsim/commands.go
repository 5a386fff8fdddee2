package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/splitkb/internal/blobfile"
	"github.com/dshills/splitkb/internal/config/document"
	"github.com/dshills/splitkb/internal/config/parser"
	"github.com/dshills/splitkb/internal/device"
	"github.com/dshills/splitkb/internal/macro/player"
	"github.com/dshills/splitkb/internal/script"
	"github.com/dshills/splitkb/internal/trigger"
	"github.com/dshills/splitkb/internal/watcher"
)

// tickInterval paces the macro engine in run mode.
const tickInterval = 10 * time.Millisecond

func newFlagSet(e *env, name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	fs.Usage = func() {
		fmt.Fprintf(e.stderr, "Usage: kbsim %s %s\n", name, usage)
		fs.PrintDefaults()
	}
	return fs
}

func parseArgs(fs *flag.FlagSet, args []string, lo, hi int) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() < lo || fs.NArg() > hi {
		fs.Usage()
		return errUsage
	}
	return nil
}

// readConfig loads a configuration blob, compiling layout documents.
func readConfig(path string) ([]byte, error) {
	if document.IsDocument(path) {
		doc, err := document.Load(path)
		if err != nil {
			return nil, err
		}
		return document.Encode(doc)
	}
	return blobfile.Read(path)
}

func cmdCompile(_ context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "compile", "<layout.yaml|layout.toml> <out.bin[.zst]>")
	if err := parseArgs(fs, args, 2, 2); err != nil {
		return err
	}
	in, out := fs.Arg(0), fs.Arg(1)

	doc, err := document.Load(in)
	if err != nil {
		return err
	}
	data, err := document.Encode(doc)
	if err != nil {
		return err
	}
	if len(data) > e.settings.Device.UserConfigSize {
		return fmt.Errorf("%w: %d bytes, device holds %d", device.ErrBufferOutOfBounds, len(data), e.settings.Device.UserConfigSize)
	}
	if err := blobfile.Write(out, data); err != nil {
		return err
	}
	e.logger.Info("Compiled layout", "input", in, "output", out, "bytes", len(data))
	return nil
}

func cmdValidate(_ context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "validate", "<layout or blob>")
	if err := parseArgs(fs, args, 1, 1); err != nil {
		return err
	}
	path := fs.Arg(0)

	data, err := readConfig(path)
	if err != nil {
		return err
	}
	cfg, err := parser.ParseConfig(data, parser.WithDryRun(true), parser.WithLogger(e.logger))
	if err != nil {
		var pe *parser.ParseError
		if errors.As(err, &pe) {
			fmt.Fprintf(e.stdout, "%s: invalid\n", path)
			fmt.Fprintf(e.stdout, "  kind:    %s\n", pe.Kind)
			fmt.Fprintf(e.stdout, "  section: %s\n", pe.Section)
			if pe.Index >= 0 {
				fmt.Fprintf(e.stdout, "  index:   %d\n", pe.Index)
			}
			fmt.Fprintf(e.stdout, "  offset:  %d\n", pe.Offset)
		}
		return err
	}

	fmt.Fprintf(e.stdout, "%s: ok\n", path)
	fmt.Fprintf(e.stdout, "  version: %d\n", cfg.Version)
	fmt.Fprintf(e.stdout, "  bytes:   %d\n", cfg.Size)
	fmt.Fprintf(e.stdout, "  modules: %d\n", len(cfg.Modules))
	fmt.Fprintf(e.stdout, "  macros:  %d\n", cfg.Macros.Len())
	fmt.Fprintf(e.stdout, "  keymaps: %d\n", len(cfg.Keymaps))
	if cfg.Size > e.settings.Device.UserConfigSize {
		fmt.Fprintf(e.stdout, "  warning: larger than the %d byte device buffer\n", e.settings.Device.UserConfigSize)
	}

	index := trigger.New(trigger.WithLogger(e.logger))
	for _, km := range cfg.Keymaps {
		if err := index.Rebuild(cfg.Macros, km.Abbreviation); err != nil {
			fmt.Fprintf(e.stdout, "  keymap %s: ignored layer triggers: %v\n", km.Abbreviation, err)
		}
	}
	return nil
}

func cmdInspect(_ context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "inspect", "[-format yaml|toml] <blob>")
	format := fs.String("format", "yaml", "Output format (yaml, toml)")
	if err := parseArgs(fs, args, 1, 1); err != nil {
		return err
	}

	f, err := document.FormatOf("out." + *format)
	if err != nil {
		return err
	}
	data, err := blobfile.Read(fs.Arg(0))
	if err != nil {
		return err
	}
	cfg, err := parser.ParseConfig(data, parser.WithLogger(e.logger))
	if err != nil {
		return err
	}
	doc, err := document.FromConfig(cfg)
	if err != nil {
		return err
	}
	out, err := document.Marshal(doc, f)
	if err != nil {
		return err
	}
	_, err = e.stdout.Write(out)
	return err
}

func cmdRun(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "run", "[-watch] [-ticks n] <layout or blob> [script.lua]")
	watch := fs.Bool("watch", e.settings.Watch.Enabled, "Re-apply the configuration when the file changes")
	ticks := fs.Int("ticks", 100, "Engine ticks to run after boot when no script is given")
	if err := parseArgs(fs, args, 1, 2); err != nil {
		return err
	}
	configPath := fs.Arg(0)

	rec := script.NewRecorder()
	dev := device.New(
		device.WithUserConfigSize(e.settings.Device.UserConfigSize),
		device.WithMaxChunk(e.settings.Device.MaxChunk),
		device.WithMacroSlots(e.settings.Device.MacroSlots),
		device.WithEventHandler(func(ev player.Event) {
			rec.Handle(ev)
			if ev.Type != player.EventAction {
				e.logger.Debug("Macro event", "event", ev.Type.String(), "slot", ev.Slot.String(), "macro", ev.MacroName)
			}
		}),
		device.WithLogger(e.logger))

	data, err := readConfig(configPath)
	if err != nil {
		return err
	}
	if err := dev.LoadValidated(data); err != nil {
		return err
	}
	if err := dev.Boot(); err != nil {
		return err
	}
	if problems := dev.TriggerProblems(); problems != nil {
		e.logger.Warn("Ignored layer triggers", "error", problems)
	}

	if fs.NArg() == 2 {
		runner := script.New(dev,
			script.WithRecorder(rec),
			script.WithTimeout(e.settings.Script.Timeout),
			script.WithLogger(e.logger))
		if err := runner.RunFile(ctx, fs.Arg(1)); err != nil {
			return err
		}
	} else {
		dev.Tick(*ticks)
		printTrace(e.stdout, rec)
	}

	if !*watch {
		return nil
	}
	return watchAndTick(ctx, e, dev, rec, configPath)
}

func printTrace(w io.Writer, rec *script.Recorder) {
	for _, ev := range rec.Drain() {
		fmt.Fprintln(w, ev.String())
	}
}

// watchAndTick re-applies configPath on change and keeps the engine running
// until ctx is done.
func watchAndTick(ctx context.Context, e *env, dev *device.Device, rec *script.Recorder, configPath string) error {
	reload := func(path string) {
		data, err := readConfig(path)
		if err == nil {
			err = dev.Upload(data)
		}
		if err == nil {
			err = dev.ApplyConfig()
		}
		if err != nil {
			e.logger.Error("Reload failed", "path", path, "kind", parser.KindOf(err).String(), "error", err)
			return
		}
		e.logger.Info("Reloaded configuration", "path", path, "config_id", dev.ConfigID())
	}

	w, err := watcher.New(configPath, reload,
		watcher.WithDebounce(e.settings.Watch.Debounce),
		watcher.WithLogger(e.logger))
	if err != nil {
		return err
	}
	e.logger.Info("Watching configuration", "path", w.Path())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(ctx)
	})
	g.Go(func() error {
		t := time.NewTicker(tickInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-t.C:
				dev.Tick(1)
				printTrace(e.stdout, rec)
			}
		}
	})
	return g.Wait()
}
