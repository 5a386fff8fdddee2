package settings

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix is the prefix of environment variables read by EnvLoader.
const EnvPrefix = "KBSIM_"

// EnvLoader loads settings from environment variables.
type EnvLoader struct {
	prefix  string            // Environment variable prefix (e.g., "KBSIM_")
	mapping map[string]string // Env var -> settings path
	environ func() []string
}

// NewEnvLoader creates a new environment variable loader.
// The prefix should include the trailing underscore.
func NewEnvLoader(prefix string) *EnvLoader {
	return &EnvLoader{
		prefix:  prefix,
		mapping: defaultEnvMapping(prefix),
		environ: os.Environ,
	}
}

func defaultEnvMapping(prefix string) map[string]string {
	return map[string]string{
		prefix + "LOG_LEVEL":        "logging.level",
		prefix + "LOG_FORMAT":       "logging.format",
		prefix + "USER_CONFIG_SIZE": "device.user_config_size",
		prefix + "MACRO_SLOTS":      "device.macro_slots",
		prefix + "MAX_CHUNK":        "device.max_chunk",
		prefix + "WATCH":            "watch.enabled",
		prefix + "WATCH_DEBOUNCE":   "watch.debounce",
		prefix + "SCRIPT_TIMEOUT":   "script.timeout",
	}
}

// Load reads environment variables and returns a settings map.
// Mapped variables use their mapping; other prefixed variables map
// KBSIM_SECTION_SOME_KEY to section.some_key.
func (l *EnvLoader) Load() (map[string]any, error) {
	m := make(map[string]any)
	for _, env := range l.environ() {
		name, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(name, l.prefix) {
			continue
		}
		path, mapped := l.mapping[name]
		if !mapped {
			path = l.envToPath(name)
			if path == "" {
				continue
			}
		}
		setByPath(m, path, parseValue(value))
	}
	return m, nil
}

// AddMapping adds a custom environment variable mapping.
func (l *EnvLoader) AddMapping(envVar, path string) {
	l.mapping[envVar] = path
}

// envToPath converts KBSIM_DEVICE_MACRO_SLOTS to device.macro_slots.
func (l *EnvLoader) envToPath(env string) string {
	section, key, ok := strings.Cut(strings.ToLower(strings.TrimPrefix(env, l.prefix)), "_")
	if !ok || section == "" || key == "" {
		return ""
	}
	return section + "." + key
}

// parseValue attempts to parse the string value into an appropriate type.
func parseValue(s string) any {
	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return s
}
