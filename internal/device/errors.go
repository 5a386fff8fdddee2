package device

import "errors"

// Transfer and state errors.
var (
	// ErrLengthTooLarge is returned for a write chunk longer than the
	// configured maximum.
	ErrLengthTooLarge = errors.New("config chunk too large")

	// ErrBufferOutOfBounds is returned when a transfer would run past the
	// end of the user configuration buffer.
	ErrBufferOutOfBounds = errors.New("config buffer out of bounds")

	// ErrNoConfig is returned by operations that need an applied
	// configuration.
	ErrNoConfig = errors.New("no configuration applied")

	// ErrInvalidKeymapIndex is returned when switching to a keymap that does
	// not exist.
	ErrInvalidKeymapIndex = errors.New("invalid keymap")

	// ErrUnknownProperty is returned for an unknown property id.
	ErrUnknownProperty = errors.New("unknown property")
)
