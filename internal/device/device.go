// Package device models the configuration side of the keyboard: chunked
// configuration upload, validate-then-commit apply, keymap and layer
// switching, and the macro engine that event macros run on.
//
// Every exported method takes the device lock, so a Device can be driven
// from several goroutines. Rebuilding the layer trigger index never runs
// concurrently with an event dispatch.
package device

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/splitkb/internal/config/parser"
	"github.com/dshills/splitkb/internal/keymap"
	"github.com/dshills/splitkb/internal/macro"
	"github.com/dshills/splitkb/internal/macro/player"
	"github.com/dshills/splitkb/internal/macroevent"
	"github.com/dshills/splitkb/internal/module"
	"github.com/dshills/splitkb/internal/scheduler"
)

// Defaults for the transfer buffers.
const (
	DefaultUserConfigSize = 32704
	DefaultMaxChunk       = 60
	HardwareConfigSize    = 64

	// MaxUserConfigSize is the largest buffer 16-bit offsets can address.
	MaxUserConfigSize = math.MaxUint16
)

// Device holds the live configuration state.
type Device struct {
	mu sync.Mutex

	userConfigSize int
	maxChunk       int
	macroSlots     int
	versions       Versions

	staging   []byte
	staged    int
	validated []byte
	configID  string
	modules   []module.Config

	macros     *macro.Table
	keymaps    *keymap.Table
	parser     *parser.Parser
	player     *player.Player
	scheduler  *scheduler.Scheduler
	dispatcher *macroevent.Dispatcher

	activeLayer keymap.LayerID
	triggerErr  error

	handler player.EventHandler
	logger  *slog.Logger
}

// Option configures a Device.
type Option func(*Device)

// WithUserConfigSize sets the size of the user configuration buffer.
// Sizes above MaxUserConfigSize are clamped.
func WithUserConfigSize(n int) Option {
	return func(d *Device) {
		if n > 0 {
			d.userConfigSize = min(n, MaxUserConfigSize)
		}
	}
}

// WithMaxChunk sets the largest accepted write chunk.
func WithMaxChunk(n int) Option {
	return func(d *Device) {
		if n > 0 {
			d.maxChunk = n
		}
	}
}

// WithMacroSlots sets the number of macro engine slots.
func WithMacroSlots(n int) Option {
	return func(d *Device) {
		if n > 0 {
			d.macroSlots = n
		}
	}
}

// WithVersions overrides the reported versions.
func WithVersions(v Versions) Option {
	return func(d *Device) {
		d.versions = v
	}
}

// WithEventHandler observes the macro engine.
func WithEventHandler(h player.EventHandler) Option {
	return func(d *Device) {
		d.handler = h
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Device) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New creates a device with no configuration.
func New(opts ...Option) *Device {
	d := &Device{
		userConfigSize: DefaultUserConfigSize,
		maxChunk:       DefaultMaxChunk,
		macroSlots:     player.DefaultSlots,
		versions:       DefaultVersions,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.staging = make([]byte, d.userConfigSize)
	d.macros = macro.NewTable()
	d.keymaps = keymap.NewTable()
	d.parser = parser.New(d.macros, d.keymaps, parser.WithLogger(d.logger))
	d.player = player.NewPlayer(d.macros,
		player.WithSlots(d.macroSlots),
		player.WithEventHandler(d.handler),
		player.WithLogger(d.logger))
	d.scheduler = scheduler.New(d.player, scheduler.WithLogger(d.logger))
	d.dispatcher = macroevent.New(d.macros, d.keymaps, d.scheduler, macroevent.WithLogger(d.logger))
	return d
}

// WriteUserConfig copies chunk into the staging buffer at offset.
func (d *Device) WriteUserConfig(offset uint16, chunk []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(chunk) > d.maxChunk {
		return fmt.Errorf("%w: %d bytes, max %d", ErrLengthTooLarge, len(chunk), d.maxChunk)
	}
	end := int(offset) + len(chunk)
	if end > d.userConfigSize {
		return fmt.Errorf("%w: offset %d length %d, size %d", ErrBufferOutOfBounds, offset, len(chunk), d.userConfigSize)
	}
	copy(d.staging[offset:], chunk)
	d.staged = max(d.staged, end)
	return nil
}

// Upload writes data to the staging buffer in chunks of the maximum size.
func (d *Device) Upload(data []byte) error {
	if len(data) > d.userConfigSize {
		return fmt.Errorf("%w: %d bytes, size %d", ErrBufferOutOfBounds, len(data), d.userConfigSize)
	}
	d.mu.Lock()
	chunk := d.maxChunk
	d.staged = 0
	d.mu.Unlock()

	for off := 0; off < len(data); off += chunk {
		end := min(off+chunk, len(data))
		if err := d.WriteUserConfig(uint16(off), data[off:end]); err != nil {
			return err
		}
	}
	return nil
}

// Staged returns the number of bytes written to the staging buffer.
func (d *Device) Staged() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.staged
}

// ApplyConfig validates the staged configuration and, if it is valid,
// makes it live and activates the default keymap. An invalid configuration
// leaves the live state untouched and returns a *parser.ParseError.
func (d *Device) ApplyConfig() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.commitLocked(d.staging[:d.staged]); err != nil {
		return err
	}
	return d.activateLocked(d.keymaps.DefaultIndex())
}

// LoadValidated makes data the live configuration without dispatching any
// event. Layer triggers are rebuilt for the first keymap. It is the boot
// path; call Boot afterwards.
func (d *Device) LoadValidated(data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(data) > d.userConfigSize {
		return fmt.Errorf("%w: %d bytes, size %d", ErrBufferOutOfBounds, len(data), d.userConfigSize)
	}
	return d.commitLocked(data)
}

func (d *Device) commitLocked(data []byte) error {
	d.parser.DryRun = true
	if _, err := d.parser.Parse(data); err != nil {
		d.logger.Warn("Configuration rejected", "bytes", len(data), "error", err)
		return err
	}

	validated := append([]byte(nil), data...)
	d.parser.DryRun = false
	cfg, err := d.parser.Parse(validated)
	if err != nil {
		return err
	}

	d.validated = validated
	d.modules = cfg.Modules
	d.configID = uuid.NewString()
	d.player.Reset()
	d.scheduler.Reset()
	d.activeLayer = keymap.LayerBase
	d.rebuildLocked()

	d.logger.Info("Configuration applied",
		"config_id", d.configID,
		"version", cfg.Version,
		"macros", d.macros.Len(),
		"keymaps", d.keymaps.Count(),
		"bytes", len(validated))
	return nil
}

// Boot runs the init macro and then activates the default keymap, so that
// keymap change macros are queued behind the init macro.
func (d *Device) Boot() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.validated == nil {
		return ErrNoConfig
	}
	d.dispatcher.OnInit()
	return d.activateLocked(d.keymaps.DefaultIndex())
}

// SwitchKeymap activates keymap index.
func (d *Device) SwitchKeymap(index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.validated == nil {
		return ErrNoConfig
	}
	return d.activateLocked(index)
}

// SwitchKeymapByAbbreviation activates the keymap with the given
// abbreviation.
func (d *Device) SwitchKeymapByAbbreviation(abbrev string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.validated == nil {
		return ErrNoConfig
	}
	index := d.keymaps.FindByAbbreviation(abbrev)
	if index < 0 {
		return fmt.Errorf("%w: %q", ErrInvalidKeymapIndex, abbrev)
	}
	return d.activateLocked(index)
}

// activateLocked makes keymap index current, rebuilds the layer triggers
// and dispatches the keymap change. A configuration without keymaps only
// rebuilds the triggers.
func (d *Device) activateLocked(index int) error {
	if d.keymaps.Count() == 0 {
		d.rebuildLocked()
		return nil
	}
	if err := d.keymaps.SetCurrent(index); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidKeymapIndex, err)
	}
	d.rebuildLocked()
	if err := d.dispatcher.OnKeymapChange(index); err != nil {
		return err
	}
	d.logger.Debug("Keymap activated", "keymap", d.keymaps.Current().Abbreviation, "index", index)
	return nil
}

func (d *Device) rebuildLocked() {
	d.triggerErr = d.dispatcher.RegisterLayerMacros()
	if d.triggerErr != nil {
		d.logger.Warn("Some layer triggers were ignored", "error", d.triggerErr)
	}
}

// SwitchLayer dispatches a change to layer.
func (d *Device) SwitchLayer(layer keymap.LayerID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.validated == nil {
		return ErrNoConfig
	}
	if !layer.Valid() {
		return fmt.Errorf("%w: %d", keymap.ErrUnknownLayerID, uint8(layer))
	}
	d.activeLayer = layer
	d.dispatcher.OnLayerChange(layer)
	return nil
}

// Tick advances the macro engine n times.
func (d *Device) Tick(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := 0; i < n; i++ {
		d.player.Tick()
	}
}

// ReadUserConfig returns up to length bytes of the validated configuration
// starting at offset.
func (d *Device) ReadUserConfig(offset uint16, length int) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if length < 0 {
		return nil, fmt.Errorf("%w: negative length %d", ErrBufferOutOfBounds, length)
	}
	if length > d.maxChunk {
		return nil, fmt.Errorf("%w: %d bytes, max %d", ErrLengthTooLarge, length, d.maxChunk)
	}
	if int(offset)+length > d.userConfigSize {
		return nil, fmt.Errorf("%w: offset %d length %d", ErrBufferOutOfBounds, offset, length)
	}
	out := make([]byte, length)
	if int(offset) < len(d.validated) {
		copy(out, d.validated[offset:])
	}
	return out, nil
}

// Property returns a device property.
func (d *Device) Property(id PropertyID) (uint16, error) {
	switch id {
	case PropertyUsbProtocolVersion:
		return d.versions.DeviceProtocol.Major, nil
	case PropertyBridgeProtocolVersion:
		return d.versions.ModuleProtocol.Major, nil
	case PropertyDataModelVersion:
		return d.versions.UserConfig.Major, nil
	case PropertyFirmwareVersion:
		return d.versions.Firmware.Major, nil
	case PropertyHardwareConfigSize:
		return HardwareConfigSize, nil
	case PropertyUserConfigSize:
		return uint16(d.userConfigSize), nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnknownProperty, uint8(id))
}

// Versions returns the reported versions.
func (d *Device) Versions() Versions {
	return d.versions
}

// ValidatedConfig returns a copy of the live configuration bytes.
func (d *Device) ValidatedConfig() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.validated...)
}

// ConfigID identifies the last applied configuration. It is empty until
// one is applied.
func (d *Device) ConfigID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.configID
}

// Modules returns the module configurations of the live configuration.
func (d *Device) Modules() []module.Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]module.Config(nil), d.modules...)
}

// CurrentKeymap returns the active keymap, or nil.
func (d *Device) CurrentKeymap() *keymap.Entry {
	return d.keymaps.Current()
}

// ActiveLayer returns the last layer switched to.
func (d *Device) ActiveLayer() keymap.LayerID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.activeLayer
}

// Macros returns the live macro table. Callers must not modify it.
func (d *Device) Macros() *macro.Table {
	return d.macros
}

// Keymaps returns the live keymap table. Callers must not modify it.
func (d *Device) Keymaps() *keymap.Table {
	return d.keymaps
}

// Cursor returns the scheduler cursor.
func (d *Device) Cursor() scheduler.Slot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scheduler.Cursor()
}

// SchedulerStats returns the scheduler counters.
func (d *Device) SchedulerStats() scheduler.Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scheduler.Stats()
}

// Playing returns the busy macro slots.
func (d *Device) Playing() []scheduler.Slot {
	return d.player.Playing()
}

// TriggerProblems returns the layer triggers ignored by the last keymap
// activation, or nil.
func (d *Device) TriggerProblems() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.triggerErr
}
