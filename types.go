package sfxcache

import (
	"github.com/meigma/sfxcache/cache"
	"github.com/meigma/sfxcache/internal/sfxtype"
)

// Compression identifies how effects are stored in the backing store.
type Compression = sfxtype.Compression

// Compression constants.
const (
	CompressionNone = sfxtype.CompressionNone
	CompressionZstd = sfxtype.CompressionZstd
	CompressionLZ4  = sfxtype.CompressionLZ4
)

// ParseCompression parses a compression name: none, zstd or lz4.
var ParseCompression = sfxtype.ParseCompression

// Stats is a snapshot of the raw effect cache counters.
type Stats = cache.Stats

// Handle identifies an open effect stream.
type Handle int

// InvalidHandle is returned alongside errors from Open.
const InvalidHandle Handle = -1

const (
	// MinCacheSize is the smallest byte budget New rejects; budgets must exceed it.
	MinCacheSize int64 = 0x40000

	// MaxOpenHandles is the number of effects that can be open at once.
	MaxOpenHandles = 4

	// DefaultDebugLevel is used when no configuration sets one.
	DefaultDebugLevel = 1
)
