// Package sfxtype defines shared types used across the sfxcache package and its
// internal packages. This avoids circular imports between sfxcache and
// internal/directory or internal/decode.
package sfxtype

import (
	"fmt"
	"strings"
)

// Compression identifies how effect files are stored in the backing store.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionZstd
	CompressionLZ4
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return "unknown"
	}
}

// Ext returns the file extension used for effects stored with c.
func (c Compression) Ext() string {
	switch c {
	case CompressionNone:
		return ".raw"
	case CompressionZstd:
		return ".zst"
	case CompressionLZ4:
		return ".lz4"
	default:
		return ""
	}
}

// Valid reports whether c is a known compression mode.
func (c Compression) Valid() bool {
	return c <= CompressionLZ4
}

// ParseCompression parses a compression name as written in configuration.
// The empty string selects zstd.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "zstd", "zst":
		return CompressionZstd, nil
	case "none", "raw":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedCompression, s)
	}
}
