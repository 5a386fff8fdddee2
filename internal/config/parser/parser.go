package parser

import (
	"io"
	"log/slog"

	"github.com/dshills/splitkb/internal/config/buffer"
	"github.com/dshills/splitkb/internal/keymap"
	"github.com/dshills/splitkb/internal/macro"
	"github.com/dshills/splitkb/internal/module"
)

// Config is the decoded content of a stream.
type Config struct {
	// Version is the data model version. It is accepted unconditionally.
	Version uint16

	Modules []module.Config
	Macros  *macro.Table
	Keymaps []keymap.Entry

	// Size is the number of bytes consumed.
	Size int
}

// Parser decodes streams and commits them to live tables.
type Parser struct {
	// Macros receives the decoded macros on commit. May be nil.
	Macros *macro.Table

	// Keymaps receives the decoded keymaps on commit. May be nil.
	Keymaps *keymap.Table

	// DryRun suppresses the commit. Validation still runs in full.
	DryRun bool

	logger *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithDryRun sets the dry-run flag.
func WithDryRun(dryRun bool) Option {
	return func(p *Parser) {
		p.DryRun = dryRun
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a parser that commits into the given tables.
func New(macros *macro.Table, keymaps *keymap.Table, opts ...Option) *Parser {
	p := &Parser{
		Macros:  macros,
		Keymaps: keymaps,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseConfig decodes data without live tables. Nothing is committed.
func ParseConfig(data []byte, opts ...Option) (*Config, error) {
	return New(nil, nil, opts...).Parse(data)
}

// Parse decodes data. On success, and unless DryRun is set, the macro and
// keymap tables are replaced with the decoded ones. On failure nothing is
// committed and the returned error is a *ParseError.
func (p *Parser) Parse(data []byte) (*Config, error) {
	b := buffer.New(data)
	cfg := &Config{Macros: macro.NewTable()}

	version, err := b.ReadUint16()
	if err != nil {
		return nil, newParseError(SectionHeader, -1, b.Offset(), err)
	}
	cfg.Version = version

	moduleCount, err := b.ReadCompactLength()
	if err != nil {
		return nil, newParseError(SectionModule, -1, b.Offset(), err)
	}
	cfg.Modules = make([]module.Config, 0, moduleCount)
	for i := 0; i < moduleCount; i++ {
		m, err := parseModuleConfiguration(b)
		if err != nil {
			return nil, newParseError(SectionModule, i, b.Offset(), err)
		}
		cfg.Modules = append(cfg.Modules, m)
	}

	macroCount, err := b.ReadCompactLength()
	if err != nil {
		return nil, newParseError(SectionMacro, -1, b.Offset(), err)
	}
	for i := 0; i < macroCount; i++ {
		if err := parseMacro(b, cfg.Macros); err != nil {
			return nil, newParseError(SectionMacro, i, b.Offset(), err)
		}
	}

	keymapCount, err := b.ReadCompactLength()
	if err != nil {
		return nil, newParseError(SectionKeymap, -1, b.Offset(), err)
	}
	cfg.Keymaps = make([]keymap.Entry, 0, keymapCount)
	abbreviations := make(map[string]int, keymapCount)
	for i := 0; i < keymapCount; i++ {
		km, err := parseKeymap(b, keymapRefs{index: i, keymapCount: keymapCount, macroCount: macroCount})
		if err != nil {
			return nil, newParseError(SectionKeymap, i, b.Offset(), err)
		}
		p.checkAbbreviation(km, abbreviations)
		cfg.Keymaps = append(cfg.Keymaps, km)
	}
	cfg.Size = b.Offset()

	p.logger.Debug("Configuration decoded",
		"version", cfg.Version,
		"modules", len(cfg.Modules),
		"macros", cfg.Macros.Len(),
		"keymaps", len(cfg.Keymaps),
		"bytes", cfg.Size,
		"dry_run", p.DryRun)

	if !p.DryRun {
		p.commit(cfg)
	}
	return cfg, nil
}

// checkAbbreviation warns about abbreviations that triggers cannot address.
// Such keymaps are still accepted; lookups by abbreviation find the first
// keymap that uses it.
func (p *Parser) checkAbbreviation(km keymap.Entry, seen map[string]int) {
	if len(macro.Tokenize(km.Abbreviation)) != 1 || km.Abbreviation == macro.Wildcard {
		p.logger.Warn("Keymap abbreviation cannot be used in triggers",
			"keymap_index", km.Index, "abbreviation", km.Abbreviation)
	}
	if prev, dup := seen[km.Abbreviation]; dup {
		p.logger.Warn("Duplicate keymap abbreviation",
			"keymap_index", km.Index, "abbreviation", km.Abbreviation, "first_index", prev)
		return
	}
	seen[km.Abbreviation] = km.Index
}

func (p *Parser) commit(cfg *Config) {
	if p.Macros != nil {
		p.Macros.Replace(cfg.Macros)
	}
	if p.Keymaps != nil {
		p.Keymaps.Commit(cfg.Keymaps)
	}
}
