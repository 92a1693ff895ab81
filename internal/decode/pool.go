// Package decode supplies the stream decoders behind compressed sound effects.
//
// A decoder is begun over a raw-byte reader with [Pool.Get], driven with
// io.ReadFull on the returned reader, and ended by calling the release
// function. Decoders only decode forward from the first byte of the raw
// stream.
package decode

import (
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/meigma/sfxcache/internal/sfxtype"
)

// Pool manages reusable decoders to reduce allocation overhead.
type Pool struct {
	zstd             sync.Pool
	lz4              sync.Pool
	maxDecoderMemory uint64
}

// NewPool creates a new decoder pool.
// If maxMemory is 0, no memory limit is applied to zstd decoders.
func NewPool(maxMemory uint64) *Pool {
	return &Pool{maxDecoderMemory: maxMemory}
}

func noop() {}

// Get returns a decoder configured to read compressed bytes from r.
// The caller must call the returned release function when done.
// If an error is returned, no release function needs to be called.
func (p *Pool) Get(c sfxtype.Compression, r io.Reader) (io.Reader, func(), error) {
	switch c {
	case sfxtype.CompressionNone:
		return r, noop, nil
	case sfxtype.CompressionZstd:
		return p.getZstd(r)
	case sfxtype.CompressionLZ4:
		dec, release := p.getLZ4(r)
		return dec, release, nil
	default:
		return nil, nil, fmt.Errorf("%w: %d", sfxtype.ErrUnsupportedCompression, c)
	}
}

func (p *Pool) getZstd(r io.Reader) (io.Reader, func(), error) {
	if p == nil {
		// No pool available, create a one-off decoder
		dec, err := newZstd(0)
		if err != nil {
			return nil, nil, err
		}
		if err := dec.Reset(r); err != nil {
			dec.Close()
			return nil, nil, err
		}
		return dec, dec.Close, nil
	}

	dec, ok := p.zstd.Get().(*zstd.Decoder)
	if !ok {
		var err error
		if dec, err = newZstd(p.maxDecoderMemory); err != nil {
			return nil, nil, err
		}
	}

	// Reset reads the frame header, so a corrupt stream fails here.
	release := p.putZstd(dec)
	if err := dec.Reset(r); err != nil {
		release()
		return nil, nil, err
	}
	return dec, release, nil
}

func (p *Pool) putZstd(dec *zstd.Decoder) func() {
	return func() {
		_ = dec.Reset(nil) //nolint:errcheck // clearing state before pool return
		p.zstd.Put(dec)
	}
}

func (p *Pool) getLZ4(r io.Reader) (io.Reader, func()) {
	if p == nil {
		return lz4.NewReader(r), noop
	}
	dec, ok := p.lz4.Get().(*lz4.Reader)
	if !ok {
		dec = lz4.NewReader(r)
	} else {
		dec.Reset(r)
	}
	return dec, func() {
		dec.Reset(nil)
		p.lz4.Put(dec)
	}
}

// newZstd creates a synchronous zstd decoder with the given memory limit.
func newZstd(maxMemory uint64) (*zstd.Decoder, error) {
	opts := []zstd.DOption{zstd.WithDecoderConcurrency(1)}
	if maxMemory > 0 {
		opts = append(opts, zstd.WithDecoderMaxMemory(maxMemory))
	}
	return zstd.NewReader(nil, opts...)
}
