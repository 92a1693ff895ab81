// Package cache provides a byte-budgeted, pin-counted cache of byte buffers
// keyed by integer tag.
//
// Buffers are fetched on demand through a caller-supplied loader. A buffer is
// pinned while locked and cannot be evicted until every lock has been
// balanced by an unlock. Unpinned buffers stay resident until room is needed
// for a new buffer, evicted least recently unpinned first.
package cache

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultMaxEntries caps the number of resident unpinned buffers.
const DefaultMaxEntries = 1024

// Sentinel errors for cache operations.
var (
	// ErrTooLarge is returned when a single buffer exceeds the byte budget.
	ErrTooLarge = errors.New("cache: entry larger than cache")

	// ErrNoSpace is returned when pinned buffers leave no room for a load.
	ErrNoSpace = errors.New("cache: no evictable space")

	// ErrNotLocked is returned when unlocking an entry that holds no pin.
	ErrNotLocked = errors.New("cache: entry not locked")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("cache: closed")

	// ErrPinned is returned by Close when pinned buffers had to be dropped.
	ErrPinned = errors.New("cache: entries still pinned")
)

// SizeFunc reports the byte size a key will occupy once loaded.
type SizeFunc func(key int) (int64, error)

// LoadFunc fetches the bytes for key.
type LoadFunc func(key int) ([]byte, error)

// FreeFunc releases a buffer the cache no longer holds.
type FreeFunc func(key int, data []byte)

// Entry is a resident buffer. It is returned by Lock and passed back to Unlock.
type Entry struct {
	key   int
	data  []byte
	size  int64
	pins  int
	owner *Cache
}

// Key returns the entry's key.
func (e *Entry) Key() int { return e.key }

// Size returns the entry's size in bytes.
func (e *Entry) Size() int64 { return e.size }

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits       uint64
	Misses     uint64
	LoadErrors uint64
	Evictions  uint64
	Entries    int
	Pinned     int
	Bytes      int64
	MaxBytes   int64
}

// Cache is a pin-counted byte-buffer cache. It is safe for concurrent use;
// loader callbacks run with the cache lock held.
type Cache struct {
	mu sync.Mutex

	sizeOf SizeFunc
	load   LoadFunc
	free   FreeFunc

	maxBytes   int64
	maxEntries int
	bytes      int64
	pinned     int

	entries map[int]*Entry
	idle    *simplelru.LRU[int, *Entry] // unpinned entries, oldest first
	closed  bool
	stats   Stats

	registerer prometheus.Registerer
	metrics    *metrics
	logger     *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxEntries caps the number of resident unpinned buffers.
// Values <= 0 select DefaultMaxEntries.
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		c.maxEntries = n
	}
}

// WithMetrics registers cache collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Cache) {
		c.registerer = reg
	}
}

// WithLogger sets the logger for eviction and close events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// New creates a cache holding at most maxBytes bytes.
// free may be nil; size and load may not.
func New(size SizeFunc, load LoadFunc, free FreeFunc, maxBytes int64, opts ...Option) (*Cache, error) {
	if size == nil || load == nil {
		return nil, errors.New("cache: size and load functions are required")
	}
	if maxBytes <= 0 {
		return nil, errors.New("cache: max bytes must be > 0")
	}
	c := &Cache{
		sizeOf:   size,
		load:     load,
		free:     free,
		maxBytes: maxBytes,
		entries:  make(map[int]*Entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxEntries <= 0 {
		c.maxEntries = DefaultMaxEntries
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}

	idle, err := simplelru.NewLRU[int, *Entry](c.maxEntries, nil)
	if err != nil {
		return nil, err
	}
	c.idle = idle

	if c.registerer != nil {
		m, err := newMetrics(c.registerer)
		if err != nil {
			return nil, err
		}
		c.metrics = m
	}
	c.stats.MaxBytes = maxBytes
	return c, nil
}

// Lock pins the buffer for key, loading it on a miss, and returns the buffer
// with the entry to pass to Unlock. The returned bytes must not be modified.
func (c *Cache) Lock(key int) ([]byte, *Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, nil, ErrClosed
	}

	if e, ok := c.entries[key]; ok {
		c.pin(e)
		c.stats.Hits++
		c.metrics.hit()
		return e.data, e, nil
	}

	c.stats.Misses++
	c.metrics.miss()

	e, err := c.add(key)
	if err != nil {
		return nil, nil, err
	}
	return e.data, e, nil
}

// Unlock releases one pin on e. An entry whose last pin is released becomes
// evictable but stays resident.
func (c *Cache) Unlock(e *Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if e == nil || e.owner != c {
		return ErrNotLocked
	}
	if cur, ok := c.entries[e.key]; !ok || cur != e || e.pins <= 0 {
		return fmt.Errorf("%w: key %d", ErrNotLocked, e.key)
	}

	e.pins--
	if e.pins > 0 {
		return nil
	}
	c.pinned--
	c.metrics.setPinned(c.pinned)

	if c.idle.Len() >= c.maxEntries {
		if _, oldest, ok := c.idle.RemoveOldest(); ok {
			c.evict(oldest)
		}
	}
	c.idle.Add(e.key, e)
	return nil
}

// Flush evicts every unpinned buffer and returns the number of bytes freed.
func (c *Cache) Flush() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0
	}
	var freed int64
	for {
		_, e, ok := c.idle.RemoveOldest()
		if !ok {
			break
		}
		freed += e.size
		c.evict(e)
	}
	return freed
}

// Close frees every buffer, pinned or not. Close is idempotent.
// It returns ErrPinned if any buffer was still pinned.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	c.idle.Purge()
	pinned := 0
	for _, e := range c.entries {
		if e.pins > 0 {
			pinned++
		}
		c.release(e)
	}
	c.entries = nil
	c.bytes = 0
	c.pinned = 0
	c.metrics.setBytes(0)
	c.metrics.setPinned(0)
	c.unregister()

	if pinned > 0 {
		c.logger.Warn("cache closed with pinned entries", "pinned", pinned)
		return fmt.Errorf("%w: %d", ErrPinned, pinned)
	}
	return nil
}

// MaxBytes returns the configured byte budget.
func (c *Cache) MaxBytes() int64 {
	return c.maxBytes
}

// SizeBytes returns the number of resident bytes.
func (c *Cache) SizeBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytes
}

// Pins returns the pin count for key, or 0 if it is not resident.
func (c *Cache) Pins(key int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e.pins
	}
	return 0
}

// Contains reports whether key is resident.
func (c *Cache) Contains(key int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = len(c.entries)
	s.Pinned = c.pinned
	s.Bytes = c.bytes
	return s
}

func (c *Cache) pin(e *Entry) {
	if e.pins == 0 {
		c.idle.Remove(e.key)
		c.pinned++
		c.metrics.setPinned(c.pinned)
	}
	e.pins++
}

func (c *Cache) add(key int) (*Entry, error) {
	size, err := c.sizeOf(key)
	if err != nil {
		return nil, fmt.Errorf("size of %d: %w", key, err)
	}
	if size < 0 {
		return nil, fmt.Errorf("size of %d: negative size %d", key, size)
	}
	if size > c.maxBytes {
		return nil, fmt.Errorf("%w: key %d is %d bytes, cache is %d", ErrTooLarge, key, size, c.maxBytes)
	}
	if !c.makeRoom(size) {
		return nil, fmt.Errorf("%w: need %d bytes for key %d", ErrNoSpace, size, key)
	}

	data, err := c.load(key)
	if err != nil {
		c.stats.LoadErrors++
		c.metrics.loadError()
		return nil, fmt.Errorf("load %d: %w", key, err)
	}

	e := &Entry{
		key:   key,
		data:  data,
		size:  int64(len(data)),
		owner: c,
	}
	if e.size != size {
		c.logger.Warn("loaded size differs from reported size", "key", key, "reported", size, "loaded", e.size)
		if !c.makeRoom(e.size) {
			c.release(e)
			return nil, fmt.Errorf("%w: need %d bytes for key %d", ErrNoSpace, e.size, key)
		}
	}

	c.entries[key] = e
	c.bytes += e.size
	c.metrics.setBytes(c.bytes)
	c.pin(e)
	return e, nil
}

// makeRoom evicts unpinned entries, oldest first, until need bytes fit.
func (c *Cache) makeRoom(need int64) bool {
	for c.bytes+need > c.maxBytes {
		_, e, ok := c.idle.RemoveOldest()
		if !ok {
			return false
		}
		c.evict(e)
	}
	return true
}

// evict drops an entry that has already been removed from the idle list.
func (c *Cache) evict(e *Entry) {
	delete(c.entries, e.key)
	c.bytes -= e.size
	c.stats.Evictions++
	c.metrics.evict(c.bytes)
	c.logger.Debug("evicted", "key", e.key, "size", e.size)
	c.release(e)
}

func (c *Cache) release(e *Entry) {
	if c.free != nil && e.data != nil {
		c.free(e.key, e.data)
	}
	e.data = nil
	e.pins = 0
}
