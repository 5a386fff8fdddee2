// Package settings loads the simulator settings.
//
// Settings are layered: built-in defaults, then a TOML or YAML file, then
// KBSIM_ environment variables. Keys are snake_case and grouped in sections:
//
//	[device]
//	user_config_size = 32704
//	macro_slots = 16
//	max_chunk = 60
//
//	[logging]
//	level = "info"   # debug, info, warn, error
//	format = "auto"  # text, json, auto
//
//	[watch]
//	enabled = false
//	debounce = "100ms"
//
//	[script]
//	timeout = "5s"
//
// Durations are strings accepted by time.ParseDuration, or integers in
// milliseconds.
package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// Validation errors.
var (
	ErrUnknownSetting = errors.New("unknown setting")
	ErrInvalidValue   = errors.New("invalid setting value")
)

// Device holds the simulated device limits.
type Device struct {
	UserConfigSize int
	MacroSlots     int
	MaxChunk       int
}

// Logging selects the log level and output format.
type Logging struct {
	Level  string
	Format string
}

// Watch controls live re-apply of changed configuration files.
type Watch struct {
	Enabled  bool
	Debounce time.Duration
}

// Script controls simulation scripts.
type Script struct {
	Timeout time.Duration
}

// Settings is the complete simulator configuration.
type Settings struct {
	Device  Device
	Logging Logging
	Watch   Watch
	Script  Script
}

// Default returns the built-in settings.
func Default() *Settings {
	return &Settings{
		Device: Device{
			UserConfigSize: 32704,
			MacroSlots:     16,
			MaxChunk:       60,
		},
		Logging: Logging{
			Level:  "info",
			Format: "auto",
		},
		Watch: Watch{
			Debounce: 100 * time.Millisecond,
		},
		Script: Script{
			Timeout: 5 * time.Second,
		},
	}
}

var setters = map[string]func(s *Settings, v any) error{
	"device.user_config_size": func(s *Settings, v any) (err error) { s.Device.UserConfigSize, err = toInt(v); return },
	"device.macro_slots":      func(s *Settings, v any) (err error) { s.Device.MacroSlots, err = toInt(v); return },
	"device.max_chunk":        func(s *Settings, v any) (err error) { s.Device.MaxChunk, err = toInt(v); return },
	"logging.level":           func(s *Settings, v any) (err error) { s.Logging.Level, err = toString(v); return },
	"logging.format":          func(s *Settings, v any) (err error) { s.Logging.Format, err = toString(v); return },
	"watch.enabled":           func(s *Settings, v any) (err error) { s.Watch.Enabled, err = toBool(v); return },
	"watch.debounce":          func(s *Settings, v any) (err error) { s.Watch.Debounce, err = toDuration(v); return },
	"script.timeout":          func(s *Settings, v any) (err error) { s.Script.Timeout, err = toDuration(v); return },
}

// Load builds settings from defaults, the file at path (skipped when path
// is empty or the file does not exist) and the environment.
func Load(fsys FileSystem, path string) (*Settings, error) {
	merged := map[string]any{}
	if path != "" {
		m, err := NewFileLoader(fsys, path).Load()
		if err != nil {
			return nil, err
		}
		merged = DeepMerge(merged, m)
	}
	env, err := NewEnvLoader(EnvPrefix).Load()
	if err != nil {
		return nil, err
	}
	merged = DeepMerge(merged, env)

	s := Default()
	if err := s.Apply(merged); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Apply sets every value in m, a nested map keyed by section.
func (s *Settings) Apply(m map[string]any) error {
	flat := make(map[string]any)
	flatten("", m, flat)

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, k := range keys {
		set, ok := setters[k]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownSetting, k))
			continue
		}
		if err := set(s, flat[k]); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", k, err))
		}
	}
	return errors.Join(errs...)
}

// Validate checks ranges and enumerations.
func (s *Settings) Validate() error {
	var errs []error
	if s.Device.UserConfigSize <= 0 || s.Device.UserConfigSize > 0xFFFF {
		errs = append(errs, fmt.Errorf("%w: device.user_config_size %d", ErrInvalidValue, s.Device.UserConfigSize))
	}
	if s.Device.MacroSlots <= 0 {
		errs = append(errs, fmt.Errorf("%w: device.macro_slots %d", ErrInvalidValue, s.Device.MacroSlots))
	}
	if s.Device.MaxChunk <= 0 {
		errs = append(errs, fmt.Errorf("%w: device.max_chunk %d", ErrInvalidValue, s.Device.MaxChunk))
	}
	if _, err := s.Logging.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch s.Logging.Format {
	case "text", "json", "auto":
	default:
		errs = append(errs, fmt.Errorf("%w: logging.format %q", ErrInvalidValue, s.Logging.Format))
	}
	if s.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("%w: watch.debounce %s", ErrInvalidValue, s.Watch.Debounce))
	}
	if s.Script.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: script.timeout %s", ErrInvalidValue, s.Script.Timeout))
	}
	return errors.Join(errs...)
}

// SlogLevel converts the configured level.
func (l Logging) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("%w: logging.level %q", ErrInvalidValue, l.Level)
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n == float64(int(n)) {
			return int(n), nil
		}
	}
	return 0, fmt.Errorf("%w: want integer, got %v", ErrInvalidValue, v)
}

func toString(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("%w: want string, got %v", ErrInvalidValue, v)
}

func toBool(v any) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return false, fmt.Errorf("%w: want boolean, got %v", ErrInvalidValue, v)
}

func toDuration(v any) (time.Duration, error) {
	switch d := v.(type) {
	case time.Duration:
		return d, nil
	case string:
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
		return parsed, nil
	}
	ms, err := toInt(v)
	if err != nil {
		return 0, fmt.Errorf("%w: want duration, got %v", ErrInvalidValue, v)
	}
	return time.Duration(ms) * time.Millisecond, nil
}
