// Package main is the entry point for the kbsim keyboard configuration tool.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/dshills/splitkb/internal/settings"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// errUsage is returned for bad command lines. The usage text has already
// been printed.
var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// env carries what every command needs.
type env struct {
	settings *settings.Settings
	logger   *slog.Logger
	stdout   io.Writer
	stderr   io.Writer
}

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, e *env, args []string) error
}

var commands = []command{
	{"compile", "compile a YAML or TOML layout into a configuration blob", cmdCompile},
	{"validate", "dry-run parse a layout or blob and report problems", cmdValidate},
	{"inspect", "print a configuration blob as a YAML or TOML layout", cmdInspect},
	{"run", "apply a configuration to a simulated device and run a script", cmdRun},
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("kbsim", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		settingsPath string
		logLevel     string
		showVersion  bool
	)
	fs.StringVar(&settingsPath, "settings", "", "Path to a TOML or YAML settings file")
	fs.StringVar(&settingsPath, "s", "", "Path to a settings file (shorthand)")
	fs.StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	fs.BoolVar(&showVersion, "version", false, "Show version information")
	fs.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "kbsim - split keyboard configuration tool\n\n")
		fmt.Fprintf(stderr, "Usage: kbsim [options] <command> [arguments]\n\n")
		fmt.Fprintf(stderr, "Commands:\n")
		for _, c := range commands {
			fmt.Fprintf(stderr, "  %-10s %s\n", c.name, c.summary)
		}
		fmt.Fprintf(stderr, "\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  kbsim compile layout.yaml layout.bin.zst\n")
		fmt.Fprintf(stderr, "  kbsim validate layout.bin\n")
		fmt.Fprintf(stderr, "  kbsim run -watch layout.yaml session.lua\n")
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if showVersion {
		fmt.Fprintf(stdout, "kbsim %s\n", version)
		fmt.Fprintf(stdout, "Commit: %s\n", commit)
		fmt.Fprintf(stdout, "Built: %s\n", date)
		return 0
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	s, err := settings.Load(settings.OSFS{}, settingsPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to load settings: %v\n", err)
		return 1
	}
	if logLevel != "" {
		s.Logging.Level = logLevel
		if err := s.Validate(); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}

	e := &env{
		settings: s,
		logger:   newLogger(s.Logging, stderr),
		stdout:   stdout,
		stderr:   stderr,
	}

	name := fs.Arg(0)
	for _, c := range commands {
		if c.name != name {
			continue
		}
		if err := c.run(ctx, e, fs.Args()[1:]); err != nil {
			if errors.Is(err, errUsage) {
				return 2
			}
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	fmt.Fprintf(stderr, "Error: unknown command %q\n", name)
	fs.Usage()
	return 2
}

// newLogger builds the process logger. The auto format picks text for a
// terminal and JSON otherwise.
func newLogger(cfg settings.Logging, w io.Writer) *slog.Logger {
	level, err := cfg.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	format := cfg.Format
	if format == "auto" {
		format = "json"
		if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			format = "text"
		}
	}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
