// Package document is the human-readable form of a keyboard configuration.
// A Document is written in YAML or TOML and compiled into the binary stream
// read by the parser:
//
//	version: 8
//	macros:
//	  - name: $onInit
//	    actions:
//	      - {type: text, text: hello}
//	keymaps:
//	  - abbreviation: QWR
//	    default: true
//	    layers:
//	      - id: base
//	        modules:
//	          - id: right_half
//	            keys:
//	              - {type: keystroke, scancode: 4}
//	              - {type: layer, layer: fn, mode: hold}
//	              - {type: macro, macro: $onInit}
//
// Keymap and macro references use the keymap abbreviation or macro name, or
// "#N" for an index.
package document

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Errors reported while decoding or compiling a document.
var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrInvalidDocument   = errors.New("invalid document")
)

// Document is a complete configuration.
type Document struct {
	Version uint16   `yaml:"version" toml:"version"`
	Modules []Module `yaml:"modules,omitempty" toml:"modules,omitempty"`
	Macros  []Macro  `yaml:"macros,omitempty" toml:"macros,omitempty"`
	Keymaps []Keymap `yaml:"keymaps,omitempty" toml:"keymaps,omitempty"`
}

// Module holds pointer settings for one module.
type Module struct {
	ID                  string `yaml:"id" toml:"id"`
	InitialPointerSpeed uint8  `yaml:"initial_pointer_speed" toml:"initial_pointer_speed"`
	PointerAcceleration uint8  `yaml:"pointer_acceleration" toml:"pointer_acceleration"`
	MaxPointerSpeed     uint8  `yaml:"max_pointer_speed" toml:"max_pointer_speed"`
}

// Macro is a named action list.
type Macro struct {
	Name    string   `yaml:"name" toml:"name"`
	Looped  bool     `yaml:"looped,omitempty" toml:"looped,omitempty"`
	Private bool     `yaml:"private,omitempty" toml:"private,omitempty"`
	Actions []Action `yaml:"actions,omitempty" toml:"actions,omitempty"`
}

// Action is one macro action. Only the fields used by Type are read.
type Action struct {
	Type      string `yaml:"type" toml:"type"`
	Phase     string `yaml:"phase,omitempty" toml:"phase,omitempty"`
	Keystroke string `yaml:"keystroke,omitempty" toml:"keystroke,omitempty"`
	Scancode  uint16 `yaml:"scancode,omitempty" toml:"scancode,omitempty"`
	Modifiers string `yaml:"modifiers,omitempty" toml:"modifiers,omitempty"`
	Buttons   string `yaml:"buttons,omitempty" toml:"buttons,omitempty"`
	X         int16  `yaml:"x,omitempty" toml:"x,omitempty"`
	Y         int16  `yaml:"y,omitempty" toml:"y,omitempty"`
	Delay     uint16 `yaml:"delay,omitempty" toml:"delay,omitempty"`
	Text      string `yaml:"text,omitempty" toml:"text,omitempty"`
}

// Keymap is a named set of layers.
type Keymap struct {
	Abbreviation string  `yaml:"abbreviation" toml:"abbreviation"`
	Default      bool    `yaml:"default,omitempty" toml:"default,omitempty"`
	Name         string  `yaml:"name,omitempty" toml:"name,omitempty"`
	Description  string  `yaml:"description,omitempty" toml:"description,omitempty"`
	Layers       []Layer `yaml:"layers,omitempty" toml:"layers,omitempty"`
}

// Layer maps the keys of each module for one layer.
type Layer struct {
	ID      string      `yaml:"id" toml:"id"`
	Modules []KeyModule `yaml:"modules,omitempty" toml:"modules,omitempty"`
}

// KeyModule lists the key actions of one module.
type KeyModule struct {
	ID   string `yaml:"id" toml:"id"`
	Keys []Key  `yaml:"keys,omitempty" toml:"keys,omitempty"`
}

// Key is one key action. Only the fields used by Type are read.
type Key struct {
	Type      string `yaml:"type,omitempty" toml:"type,omitempty"`
	Keystroke string `yaml:"keystroke,omitempty" toml:"keystroke,omitempty"`
	Scancode  uint16 `yaml:"scancode,omitempty" toml:"scancode,omitempty"`
	Modifiers string `yaml:"modifiers,omitempty" toml:"modifiers,omitempty"`
	Mouse     uint8  `yaml:"mouse,omitempty" toml:"mouse,omitempty"`
	Layer     string `yaml:"layer,omitempty" toml:"layer,omitempty"`
	Mode      string `yaml:"mode,omitempty" toml:"mode,omitempty"`
	Keymap    string `yaml:"keymap,omitempty" toml:"keymap,omitempty"`
	Macro     string `yaml:"macro,omitempty" toml:"macro,omitempty"`
}

// Format is a document syntax.
type Format int

const (
	FormatYAML Format = iota
	FormatTOML
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// IsDocument reports whether path has a document extension.
func IsDocument(path string) bool {
	_, err := FormatOf(path)
	return err == nil
}

// Decode parses data in the given format.
func Decode(data []byte, format Format) (*Document, error) {
	var doc Document
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
	case FormatTOML:
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFormat, format)
	}
	return &doc, nil
}

// Marshal renders doc in the given format.
func Marshal(doc *Document, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(doc)
	case FormatTOML:
		return toml.Marshal(doc)
	}
	return nil, fmt.Errorf("%w: %d", ErrUnsupportedFormat, format)
}

// Load reads and decodes the document at path.
func Load(path string) (*Document, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}
