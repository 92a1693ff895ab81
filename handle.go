package sfxcache

import (
	"fmt"
	"io"

	"go.uber.org/multierr"

	"github.com/meigma/sfxcache/cache"
)

// handle is one slot of the handle table.
type handle struct {
	used     bool
	entry    *cache.Entry
	tag      int
	dataSize int64 // decoded length
	fileSize int64 // raw length
	position int64 // decoded cursor
	data     []byte

	// dataPosition is the raw cursor of the decoder feed.
	dataPosition int64

	// Live decoder and the decoded offset it has reached.
	dec     io.Reader
	release func()
	decoded int64
}

// endDecoder releases the handle's decoder, if any.
func (s *handle) endDecoder() {
	if s.release != nil {
		s.release()
	}
	s.dec = nil
	s.release = nil
	s.decoded = 0
}

// handleTable is a fixed table of MaxOpenHandles slots.
type handleTable struct {
	slots [MaxOpenHandles]handle
	open  int
}

func newHandleTable() *handleTable {
	return &handleTable{}
}

// create claims the lowest free slot.
func (t *handleTable) create(tag int, data []byte, entry *cache.Entry, dataSize, fileSize int64) (Handle, error) {
	if t.open >= MaxOpenHandles {
		return InvalidHandle, ErrTooManyOpen
	}
	for i := range t.slots {
		if t.slots[i].used {
			continue
		}
		t.slots[i] = handle{
			used:     true,
			entry:    entry,
			tag:      tag,
			dataSize: dataSize,
			fileSize: fileSize,
			data:     data,
		}
		t.open++
		return Handle(i), nil
	}
	return InvalidHandle, ErrTooManyOpen
}

func (t *handleTable) destroy(h Handle) {
	if h < 0 || int(h) >= len(t.slots) || !t.slots[h].used {
		return
	}
	t.slots[h].endDecoder()
	t.slots[h] = handle{}
	t.open--
}

// legal returns the slot for h if h may be used. The caller holds c.mu.
func (c *Cache) legal(h Handle) (*handle, error) {
	if !c.initialized {
		return nil, ErrClosed
	}
	if h < 0 || int(h) >= len(c.handles.slots) {
		return nil, fmt.Errorf("%w: %d", ErrIllegalHandle, h)
	}
	s := &c.handles.slots[h]
	if !s.used || s.position > s.dataSize || !c.dir.Valid(s.tag) {
		return nil, fmt.Errorf("%w: %d", ErrIllegalHandle, h)
	}
	return s, nil
}

// Open opens the named effect and returns its handle.
func (c *Cache) Open(name string) (Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return InvalidHandle, ErrClosed
	}
	if c.handles.open >= MaxOpenHandles {
		return InvalidHandle, fmt.Errorf("open %q: %w", name, ErrTooManyOpen)
	}

	tag, err := c.dir.Tag(name)
	if err != nil {
		return InvalidHandle, fmt.Errorf("open %q: %w", name, err)
	}
	dataSize, err := c.dir.DecodedSize(tag)
	if err != nil {
		return InvalidHandle, fmt.Errorf("open %q: %w", name, err)
	}
	fileSize, err := c.dir.RawSize(tag)
	if err != nil {
		return InvalidHandle, fmt.Errorf("open %q: %w", name, err)
	}

	data, entry, err := c.raw.Lock(tag)
	if err != nil {
		return InvalidHandle, fmt.Errorf("open %q: %w", name, err)
	}

	h, err := c.handles.create(tag, data, entry, dataSize, fileSize)
	if err != nil {
		err = multierr.Append(fmt.Errorf("open %q: %w", name, err), c.raw.Unlock(entry))
		return InvalidHandle, err
	}

	if c.debugLevel >= 3 {
		c.logger.Debug("effect opened", "name", name, "tag", tag, "handle", h,
			"size", dataSize, "raw", fileSize)
	}
	return h, nil
}

// CloseHandle closes h and releases its pin on the cached effect. If the pin
// cannot be released the handle stays open and the error is returned.
func (c *Cache) CloseHandle(h Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeHandle(h)
}

func (c *Cache) closeHandle(h Handle) error {
	s, err := c.legal(h)
	if err != nil {
		return err
	}
	if err := c.raw.Unlock(s.entry); err != nil {
		if c.debugLevel >= 1 {
			c.logger.Warn("effect unlock failed", "handle", h, "tag", s.tag, "error", err)
		}
		return fmt.Errorf("close handle %d: %w", h, err)
	}
	c.handles.destroy(h)

	if c.debugLevel >= 3 {
		c.logger.Debug("effect closed", "handle", h)
	}
	return nil
}
