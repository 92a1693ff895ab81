package sfxcache

import (
	"io/fs"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/meigma/sfxcache/config"
)

// Option configures a Cache.
type Option func(*Cache)

// WithFS reads effects from fsys instead of the host file system.
// The effects path passed to New is then a path within fsys.
func WithFS(fsys fs.FS) Option {
	return func(c *Cache) {
		c.fsys = fsys
	}
}

// WithCompression sets how effects are stored (default: CompressionZstd).
func WithCompression(compression Compression) Option {
	return func(c *Cache) {
		c.compression = compression
	}
}

// WithConfig supplies configuration. The debug level is taken from
// sound.debug_sfxc when set; otherwise DefaultDebugLevel applies.
func WithConfig(cfg *config.Config) Option {
	return func(c *Cache) {
		c.cfg = cfg
	}
}

// WithLogger sets the logger. The debug level decides what is logged:
// 0 nothing, 1 warnings, 2 lifecycle events, 3 and above every handle.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithMetrics registers raw cache collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Cache) {
		c.registerer = reg
	}
}

// WithMaxCachedEffects caps how many unpinned effects stay cached.
func WithMaxCachedEffects(n int) Option {
	return func(c *Cache) {
		c.maxEntries = n
	}
}

// WithDecoderMaxMemory limits the memory a single zstd decoder may use.
// Use 0 for no limit.
func WithDecoderMaxMemory(n uint64) Option {
	return func(c *Cache) {
		c.decoderMaxMemory = n
	}
}
