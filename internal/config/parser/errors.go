package parser

import (
	"errors"
	"fmt"

	"github.com/dshills/splitkb/internal/config/buffer"
	"github.com/dshills/splitkb/internal/keymap"
)

// Sentinel errors reported by the sub-parsers.
var (
	// ErrMalformedMacro is returned for structural violations in a macro record.
	ErrMalformedMacro = errors.New("malformed macro")

	// ErrMalformedKeymap is returned for structural violations in a keymap record.
	ErrMalformedKeymap = errors.New("malformed keymap")

	// ErrMalformedModule is reserved for module records. The fixed-width
	// record cannot be malformed today.
	ErrMalformedModule = errors.New("malformed module configuration")
)

// Kind classifies a parse failure.
type Kind int

const (
	// KindSuccess is reported by KindOf for a nil error.
	KindSuccess Kind = iota
	KindBufferUnderrun
	KindMalformedModule
	KindMalformedMacro
	KindMalformedKeymap
	KindUnknownLayerID
	// KindOther covers errors that did not come from this package.
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindBufferUnderrun:
		return "buffer_underrun"
	case KindMalformedModule:
		return "malformed_module"
	case KindMalformedMacro:
		return "malformed_macro"
	case KindMalformedKeymap:
		return "malformed_keymap"
	case KindUnknownLayerID:
		return "unknown_layer_id"
	default:
		return "other"
	}
}

// Section names a top-level part of the stream.
type Section string

const (
	SectionHeader Section = "header"
	SectionModule Section = "module"
	SectionMacro  Section = "macro"
	SectionKeymap Section = "keymap"
)

// ParseError is the failure result of a parse.
type ParseError struct {
	Kind    Kind
	Section Section
	// Index is the record index within Section, or -1 for section counts.
	Index int
	// Offset is the cursor position when the failure was detected.
	Offset int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("parse config: %s %d at offset %d: %v", e.Section, e.Index, e.Offset, e.Err)
	}
	return fmt.Sprintf("parse config: %s at offset %d: %v", e.Section, e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels so that errors.Is works even when the
// underlying cause is a lower level error such as buffer.ErrInvalidBool.
func (e *ParseError) Is(target error) bool {
	switch target {
	case ErrMalformedMacro:
		return e.Kind == KindMalformedMacro
	case ErrMalformedKeymap:
		return e.Kind == KindMalformedKeymap
	case ErrMalformedModule:
		return e.Kind == KindMalformedModule
	}
	return false
}

// newParseError classifies err for the section it occurred in.
func newParseError(section Section, index, offset int, err error) *ParseError {
	kind := KindOther
	switch {
	case errors.Is(err, buffer.ErrBufferUnderrun):
		kind = KindBufferUnderrun
	case section == SectionMacro:
		kind = KindMalformedMacro
	case section == SectionKeymap:
		kind = KindMalformedKeymap
	case section == SectionModule:
		kind = KindMalformedModule
	}
	return &ParseError{Kind: kind, Section: section, Index: index, Offset: offset, Err: err}
}

// KindOf returns the kind of err.
func KindOf(err error) Kind {
	if err == nil {
		return KindSuccess
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	switch {
	case errors.Is(err, buffer.ErrBufferUnderrun):
		return KindBufferUnderrun
	case errors.Is(err, ErrMalformedMacro):
		return KindMalformedMacro
	case errors.Is(err, ErrMalformedKeymap):
		return KindMalformedKeymap
	case errors.Is(err, keymap.ErrUnknownLayerID):
		return KindUnknownLayerID
	}
	return KindOther
}
