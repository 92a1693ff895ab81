package sfxcache

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/meigma/sfxcache/cache"
	"github.com/meigma/sfxcache/config"
	"github.com/meigma/sfxcache/internal/decode"
	"github.com/meigma/sfxcache/internal/directory"
)

// Cache streams sound effects through handles backed by a raw byte cache.
//
// All methods are safe for concurrent use; calls are serialized.
type Cache struct {
	mu          sync.Mutex
	initialized bool

	effectsPath string
	fsys        fs.FS
	compression Compression
	debugLevel  int

	cfg              *config.Config
	logger           *slog.Logger
	registerer       prometheus.Registerer
	maxEntries       int
	decoderMaxMemory uint64

	pool    *decode.Pool
	dir     *directory.Directory
	handles *handleTable
	raw     *cache.Cache
}

// New initializes a cache holding at most cacheSize raw effect bytes, with
// effects catalogued under effectsPath.
//
// New fails with ErrBudgetTooSmall when cacheSize does not exceed
// MinCacheSize, and fails when the effects catalog cannot be built. On
// failure nothing is left allocated.
func New(cacheSize int64, effectsPath string, opts ...Option) (*Cache, error) {
	c := &Cache{
		compression: CompressionZstd,
		debugLevel:  DefaultDebugLevel,
	}
	for _, opt := range opts {
		opt(c)
	}
	if level, ok := c.cfg.DebugLevel(); ok {
		c.debugLevel = level
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}

	if cacheSize <= MinCacheSize {
		return nil, fmt.Errorf("%w: %d bytes, need more than %d", ErrBudgetTooSmall, cacheSize, MinCacheSize)
	}
	if !c.compression.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedCompression, c.compression)
	}

	root := effectsPath
	if c.fsys == nil {
		if effectsPath == "" {
			effectsPath = "."
		}
		c.fsys = os.DirFS(effectsPath)
		root = "."
	}
	c.effectsPath = effectsPath
	c.pool = decode.NewPool(c.decoderMaxMemory)

	dir, err := directory.Open(c.fsys, root, c.compression,
		directory.WithLogger(c.logger),
		directory.WithDebugLevel(c.debugLevel),
		directory.WithPool(c.pool),
	)
	if err != nil {
		return nil, fmt.Errorf("sfxcache: effects %q: %w", effectsPath, err)
	}
	c.dir = dir
	c.handles = newHandleTable()

	cacheOpts := []cache.Option{
		cache.WithMaxEntries(c.maxEntries),
		cache.WithLogger(c.logger),
	}
	if c.registerer != nil {
		cacheOpts = append(cacheOpts, cache.WithMetrics(c.registerer))
	}
	raw, err := cache.New(c.effectSize, c.effectLoad, c.effectFree, cacheSize, cacheOpts...)
	if err != nil {
		c.handles = nil
		_ = c.dir.Close()
		c.dir = nil
		return nil, fmt.Errorf("sfxcache: %w", err)
	}
	c.raw = raw
	c.initialized = true

	if c.debugLevel >= 2 {
		c.logger.Info("sound effect cache initialized",
			"path", effectsPath,
			"budget", cacheSize,
			"compression", c.compression,
			"effects", dir.Len(),
			"debug", c.debugLevel)
	}
	return c, nil
}

// Close shuts the cache down: open handles are closed, then the raw cache
// and the catalog are released. Close is idempotent.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return nil
	}

	var err error
	for i := range c.handles.slots {
		h := Handle(i)
		if !c.handles.slots[i].used {
			continue
		}
		if closeErr := c.closeHandle(h); closeErr != nil {
			err = multierr.Append(err, closeErr)
			c.handles.destroy(h)
		}
	}
	err = multierr.Append(err, c.raw.Close())
	err = multierr.Append(err, c.dir.Close())

	c.raw = nil
	c.dir = nil
	c.handles = nil
	c.effectsPath = ""
	c.initialized = false

	if err != nil && c.debugLevel >= 1 {
		c.logger.Warn("sound effect cache shut down with errors", "error", err)
	} else if c.debugLevel >= 2 {
		c.logger.Info("sound effect cache shut down")
	}
	return err
}

// IsInitialized reports whether the cache is open.
func (c *Cache) IsInitialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

// Flush evicts every cached effect that no handle holds open.
func (c *Cache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return
	}
	freed := c.raw.Flush()
	if c.debugLevel >= 2 {
		c.logger.Info("sound effect cache flushed", "freed", freed)
	}
}

// Names returns the catalogued effect names in tag order.
func (c *Cache) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return nil
	}
	return c.dir.Names()
}

// EffectSize returns the decoded length of the named effect from the
// catalog. The effect is not loaded.
func (c *Cache) EffectSize(name string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return 0, ErrClosed
	}
	tag, err := c.dir.Tag(name)
	if err != nil {
		return 0, err
	}
	return c.dir.DecodedSize(tag)
}

// Stats returns the raw cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return Stats{}
	}
	return c.raw.Stats()
}

// effectSize reports the raw size of tag for the raw cache.
func (c *Cache) effectSize(tag int) (int64, error) {
	return c.dir.RawSize(tag)
}

// effectLoad reads the raw bytes of tag from the backing store.
func (c *Cache) effectLoad(tag int) ([]byte, error) {
	if !c.dir.Valid(tag) {
		return nil, fmt.Errorf("%w: tag %d", ErrNotFound, tag)
	}
	path, err := c.dir.Path(tag)
	if err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(c.fsys, path)
	if err != nil {
		if c.debugLevel >= 1 {
			c.logger.Warn("effect load failed", "tag", tag, "path", path, "error", err)
		}
		return nil, err
	}
	if c.debugLevel >= 3 {
		c.logger.Debug("effect loaded", "tag", tag, "path", path, "size", len(data))
	}
	return data, nil
}

// effectFree runs when the raw cache drops an effect's bytes.
func (c *Cache) effectFree(tag int, data []byte) {
	if c.debugLevel >= 3 {
		c.logger.Debug("effect freed", "tag", tag, "size", len(data))
	}
}
