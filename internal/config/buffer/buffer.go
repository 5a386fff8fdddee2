// Package buffer provides a bounds-tracked read cursor over a configuration blob.
//
// Every read advances the cursor. A read that would run past the declared
// length fails with ErrBufferUnderrun and leaves the offset unchanged.
package buffer

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// CompactLengthEscape marks a compact length whose value follows as a u16.
const CompactLengthEscape = 0xFF

// Sentinel errors for buffer reads.
var (
	// ErrBufferUnderrun is returned when a read would exceed the buffer length.
	ErrBufferUnderrun = errors.New("buffer underrun")

	// ErrInvalidBool is returned when a bool byte is neither 0 nor 1.
	ErrInvalidBool = errors.New("invalid bool value")
)

// Buffer is a read cursor over a fixed byte region.
type Buffer struct {
	data   []byte
	offset int
}

// New creates a cursor over data. The declared length is len(data).
func New(data []byte) *Buffer {
	return &Buffer{data: data}
}

// Offset returns the current read offset.
func (b *Buffer) Offset() int {
	return b.offset
}

// Len returns the declared buffer length.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Remaining returns the number of unread bytes.
func (b *Buffer) Remaining() int {
	return len(b.data) - b.offset
}

// take reserves n bytes and returns them without copying.
func (b *Buffer) take(n int) ([]byte, error) {
	if n < 0 || n > b.Remaining() {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d",
			ErrBufferUnderrun, n, b.offset, b.Remaining())
	}
	p := b.data[b.offset : b.offset+n]
	b.offset += n
	return p, nil
}

// ReadUint8 reads one byte.
func (b *Buffer) ReadUint8() (uint8, error) {
	p, err := b.take(1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

// ReadUint16 reads a little-endian u16.
func (b *Buffer) ReadUint16() (uint16, error) {
	p, err := b.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(p), nil
}

// ReadInt16 reads a little-endian two's complement i16.
func (b *Buffer) ReadInt16() (int16, error) {
	v, err := b.ReadUint16()
	return int16(v), err
}

// ReadBool reads a single 0/1 byte.
func (b *Buffer) ReadBool() (bool, error) {
	start := b.offset
	v, err := b.ReadUint8()
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: 0x%02x at offset %d", ErrInvalidBool, v, start)
	}
}

// ReadCompactLength reads a variable-width count.
// Values below 0xFF take one byte; otherwise the byte 0xFF is followed by a
// little-endian u16 holding the value.
func (b *Buffer) ReadCompactLength() (int, error) {
	start := b.offset
	v, err := b.ReadUint8()
	if err != nil {
		return 0, err
	}
	if v != CompactLengthEscape {
		return int(v), nil
	}
	wide, err := b.ReadUint16()
	if err != nil {
		b.offset = start
		return 0, err
	}
	return int(wide), nil
}

// ReadBytes returns the next n bytes. The returned slice aliases the buffer.
func (b *Buffer) ReadBytes(n int) ([]byte, error) {
	return b.take(n)
}

// ReadString reads a compact-length prefixed string.
func (b *Buffer) ReadString() (string, error) {
	start := b.offset
	n, err := b.ReadCompactLength()
	if err != nil {
		return "", err
	}
	p, err := b.take(n)
	if err != nil {
		b.offset = start
		return "", err
	}
	return string(p), nil
}

// Since returns the bytes consumed since offset start.
// The returned slice aliases the buffer.
func (b *Buffer) Since(start int) []byte {
	if start < 0 || start > b.offset {
		return nil
	}
	return b.data[start:b.offset]
}
