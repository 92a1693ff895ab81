// Package stream adapts cached sound effects to beep streamers so they can be
// fed to a mixer or speaker.
//
// Effects are stored as signed little-endian PCM; the beep.Format passed to
// Open describes the frame layout.
package stream

import (
	"errors"
	"fmt"
	"io"

	"github.com/gopxl/beep"

	"github.com/meigma/sfxcache"
)

var (
	// ErrFormat is returned for frame layouts the decoder cannot handle.
	ErrFormat = errors.New("stream: unsupported format")
	// ErrSeekRange is returned when seeking outside [0, Len()].
	ErrSeekRange = errors.New("stream: seek out of range")
)

// Streamer is a beep.StreamSeekCloser reading whole frames from an effect
// handle. A Streamer is not safe for concurrent use; the underlying cache is.
type Streamer struct {
	c      *sfxcache.Cache
	h      sfxcache.Handle
	format beep.Format
	width  int

	buf    []byte
	err    error
	closed bool
}

var _ beep.StreamSeekCloser = (*Streamer)(nil)

// Open opens the named effect on c and wraps it in a Streamer.
func Open(c *sfxcache.Cache, name string, format beep.Format) (*Streamer, error) {
	if format.NumChannels < 1 || format.NumChannels > 2 ||
		format.Precision < 1 || format.Precision > 3 {
		return nil, fmt.Errorf("%w: %d channels, %d bytes per sample",
			ErrFormat, format.NumChannels, format.Precision)
	}
	h, err := c.Open(name)
	if err != nil {
		return nil, err
	}
	return &Streamer{c: c, h: h, format: format, width: format.Width()}, nil
}

// Stream decodes up to len(samples) frames. It returns false once the effect
// is exhausted or a read fails; the failure is reported by Err.
func (s *Streamer) Stream(samples [][2]float64) (int, bool) {
	if s.closed || s.err != nil || len(samples) == 0 {
		return 0, false
	}

	want := len(samples) * s.width
	if cap(s.buf) < want {
		s.buf = make([]byte, want)
	}
	buf := s.buf[:want]

	filled := 0
	for filled < want {
		n, err := s.c.Read(s.h, buf[filled:])
		if err != nil {
			s.err = err
			break
		}
		if n == 0 {
			break
		}
		filled += n
	}

	frames := filled / s.width
	for i := range frames {
		samples[i], _ = s.format.DecodeSigned(buf[i*s.width:])
	}
	// A trailing partial frame is left unread.
	if rem := filled % s.width; rem != 0 && s.err == nil {
		if _, err := s.c.Seek(s.h, -int64(rem), io.SeekCurrent); err != nil {
			s.err = err
		}
	}
	return frames, frames > 0
}

// Err returns the first read error, if any.
func (s *Streamer) Err() error { return s.err }

// Len returns the effect length in frames.
func (s *Streamer) Len() int {
	return int(s.c.FileSize(s.h) / int64(s.width))
}

// Position returns the current frame.
func (s *Streamer) Position() int {
	pos, err := s.c.Tell(s.h)
	if err != nil {
		return 0
	}
	return int(pos / int64(s.width))
}

// Seek moves to frame p.
func (s *Streamer) Seek(p int) error {
	if s.closed {
		return sfxcache.ErrIllegalHandle
	}
	if p < 0 || p > s.Len() {
		return fmt.Errorf("%w: frame %d of %d", ErrSeekRange, p, s.Len())
	}
	_, err := s.c.Seek(s.h, int64(p)*int64(s.width), io.SeekStart)
	return err
}

// Close closes the effect handle.
func (s *Streamer) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.c.CloseHandle(s.h)
}
