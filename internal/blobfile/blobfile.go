// Package blobfile reads and writes configuration blobs on disk. Files
// ending in .zst are zstd compressed; anything else is raw.
package blobfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// MaxSize bounds the decoded size of a blob.
const MaxSize = 1 << 20

// ErrTooLarge is returned for a blob larger than MaxSize.
var ErrTooLarge = errors.New("blob too large")

// IsCompressed reports whether path names a zstd blob.
func IsCompressed(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".zst")
}

// Read loads the blob at path.
func Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !IsCompressed(path) {
		if len(data) > MaxSize {
			return nil, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, path, len(data))
		}
		return data, nil
	}
	out, err := Decompress(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// Write stores data at path, compressing it when path ends in .zst.
func Write(path string, data []byte) error {
	if IsCompressed(path) {
		var err error
		if data, err = Compress(data); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// Compress returns data as a zstd frame.
func Compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

// Decompress decodes a zstd frame of at most MaxSize bytes.
func Decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxSize))
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	defer dec.Close()

	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		if errors.Is(err, zstd.ErrDecoderSizeExceeded) || errors.Is(err, zstd.ErrWindowSizeExceeded) {
			return nil, fmt.Errorf("%w: %w", ErrTooLarge, err)
		}
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	return out, nil
}
