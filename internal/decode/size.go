package decode

import (
	"bytes"
	"fmt"
	"math"

	"github.com/klauspost/compress/zstd"

	"github.com/meigma/sfxcache/internal/sfxtype"
	"github.com/meigma/sfxcache/internal/sizing"
)

// MaxDecodedSize bounds the decoded length of a single effect.
const MaxDecodedSize int64 = math.MaxInt32

const (
	blockHeaderSize = 3
	checksumSize    = 4
)

// DecodedSize returns the decoded length of raw stored with compression c.
//
// A zstd stream made of one single-block frame carrying a content size is
// answered from its header; anything else is decoded once and counted.
func (p *Pool) DecodedSize(c sfxtype.Compression, raw []byte) (int64, error) {
	switch c {
	case sfxtype.CompressionNone:
		return int64(len(raw)), nil
	case sfxtype.CompressionZstd:
		if size, ok, err := headerSize(raw); err != nil || ok {
			return size, err
		}
	case sfxtype.CompressionLZ4:
	default:
		return 0, fmt.Errorf("%w: %d", sfxtype.ErrUnsupportedCompression, c)
	}

	dec, release, err := p.Get(c, bytes.NewReader(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", sfxtype.ErrDecompression, err)
	}
	defer release()

	n, err := sizing.CountWithLimit(dec, MaxDecodedSize, sfxtype.ErrSizeOverflow)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", sfxtype.ErrDecompression, err)
	}
	return n, nil
}

// headerSize reports the content size announced by a zstd frame header when
// that frame is a single last block spanning all of raw.
func headerSize(raw []byte) (int64, bool, error) {
	var h zstd.Header
	if err := h.Decode(raw); err != nil || !h.HasFCS || h.Skippable {
		return 0, false, nil
	}
	if !h.FirstBlock.OK || !h.FirstBlock.Last {
		return 0, false, nil
	}
	frameLen := h.HeaderSize + blockHeaderSize + h.FirstBlock.CompressedSize
	if h.HasCheckSum {
		frameLen += checksumSize
	}
	if frameLen != len(raw) {
		return 0, false, nil
	}
	size, err := sizing.ToInt64(h.FrameContentSize, sfxtype.ErrSizeOverflow)
	if err != nil {
		return 0, false, err
	}
	if size > MaxDecodedSize {
		return 0, false, nil
	}
	return size, true, nil
}
