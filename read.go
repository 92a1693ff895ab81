package sfxcache

import (
	"fmt"
	"io"
)

// Read reads up to len(p) decoded bytes from h at its cursor and advances
// the cursor by the count returned. At end of stream Read returns 0 and a
// nil error. On error the cursor does not move.
func (c *Cache) Read(h Handle, p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.legal(h)
	if err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}
	remaining := s.dataSize - s.position
	if remaining <= 0 {
		return 0, nil
	}
	n := min(int64(len(p)), remaining)

	switch c.compression {
	case CompressionNone:
		if s.position+n > int64(len(s.data)) {
			return 0, fmt.Errorf("read handle %d: %w", h, io.ErrUnexpectedEOF)
		}
		copy(p[:n], s.data[s.position:s.position+n])
	case CompressionZstd, CompressionLZ4:
		if err := c.decode(h, s, p[:n]); err != nil {
			return 0, err
		}
	default:
		return 0, fmt.Errorf("read handle %d: %w: %d", h, ErrUnsupportedCompression, c.compression)
	}

	s.position += n
	return int(n), nil
}

// decode fills p with the decoded bytes at the handle's cursor.
//
// The handle's decoder is reused when it stopped exactly at the cursor.
// Otherwise a new decoder starts from the first raw byte and the bytes
// before the cursor are decoded and discarded.
func (c *Cache) decode(h Handle, s *handle, p []byte) error {
	if s.dec == nil || s.decoded != s.position {
		s.endDecoder()
		s.dataPosition = 0

		dec, release, err := c.pool.Get(c.compression, &rawReader{s: s})
		if err != nil {
			return fmt.Errorf("read handle %d: %w: %w", h, ErrDecompression, err)
		}
		s.dec = dec
		s.release = release

		if s.position > 0 {
			skipped, err := io.CopyN(io.Discard, dec, s.position)
			if err != nil || skipped != s.position {
				if err == nil || err == io.EOF {
					err = io.ErrUnexpectedEOF
				}
				s.endDecoder()
				return fmt.Errorf("read handle %d: %w: skipped %d of %d bytes: %w",
					h, ErrDecompression, skipped, s.position, err)
			}
		}
		s.decoded = s.position
		if c.debugLevel >= 3 {
			c.logger.Debug("effect decoder started", "handle", h, "position", s.position)
		}
	}

	n, err := io.ReadFull(s.dec, p)
	if err != nil {
		s.endDecoder()
		return fmt.Errorf("read handle %d: %w: decoded %d of %d bytes: %w",
			h, ErrDecompression, n, len(p), err)
	}
	s.decoded += int64(n)
	return nil
}

// rawReader feeds a decoder from a handle's cached raw bytes.
type rawReader struct {
	s *handle
}

// Read supplies up to len(p) raw bytes from the feed cursor. It returns
// io.EOF once the raw bytes are exhausted and never fails otherwise.
func (r *rawReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	end := min(r.s.fileSize, int64(len(r.s.data)))
	if r.s.dataPosition >= end {
		return 0, io.EOF
	}
	n := copy(p, r.s.data[r.s.dataPosition:end])
	r.s.dataPosition += int64(n)
	return n, nil
}

// Write always fails: effect streams are read-only.
func (c *Cache) Write(_ Handle, _ []byte) (int, error) {
	return 0, ErrReadOnly
}

// Seek moves h's cursor relative to whence (io.SeekStart, io.SeekCurrent or
// io.SeekEnd) and returns the new position. Positive offsets are clamped to
// the decoded length; seeking before byte 0 fails.
func (c *Cache) Seek(h Handle, offset int64, whence int) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.legal(h)
	if err != nil {
		return 0, err
	}

	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = s.position
	case io.SeekEnd:
		base = s.dataSize
	default:
		return 0, fmt.Errorf("seek handle %d: %w: %d", h, ErrInvalidWhence, whence)
	}

	var pos int64
	if offset >= 0 {
		pos = base + min(offset, s.dataSize-base)
	} else {
		if offset < -base {
			return 0, fmt.Errorf("seek handle %d: %w: %d from %d", h, ErrNegativeSeek, offset, base)
		}
		pos = base + offset
	}
	s.position = pos
	return pos, nil
}

// Tell returns h's cursor.
func (c *Cache) Tell(h Handle) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.legal(h)
	if err != nil {
		return 0, err
	}
	return s.position, nil
}

// FileSize returns the decoded length of h, or 0 if h is not open.
func (c *Cache) FileSize(h Handle) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.legal(h)
	if err != nil {
		return 0
	}
	return s.dataSize
}
