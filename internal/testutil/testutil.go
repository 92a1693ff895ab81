// Package testutil builds in-memory effect trees for tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"io"
	"io/fs"
	"math/rand" //nolint:gosec // deterministic fixtures
	"path"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/meigma/sfxcache/internal/sfxtype"
)

// PCM returns n bytes of deterministic, mildly compressible sample data.
func PCM(n int, seed int64) []byte {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic fixtures
	out := make([]byte, n)
	var v byte
	for i := range out {
		if rng.Intn(4) == 0 {
			v = byte(rng.Intn(256))
		}
		out[i] = v
	}
	return out
}

// Encode compresses data with c. Zstd output carries the frame content size.
func Encode(tb testing.TB, c sfxtype.Compression, data []byte) []byte {
	tb.Helper()

	switch c {
	case sfxtype.CompressionNone:
		return bytes.Clone(data)
	case sfxtype.CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			tb.Fatalf("zstd.NewWriter() error = %v", err)
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil)
	case sfxtype.CompressionLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			tb.Fatalf("lz4 Write() error = %v", err)
		}
		if err := w.Close(); err != nil {
			tb.Fatalf("lz4 Close() error = %v", err)
		}
		return buf.Bytes()
	default:
		tb.Fatalf("unsupported compression %v", c)
		return nil
	}
}

// EncodeStream compresses data with the zstd streaming writer, which omits
// the frame content size from the header.
func EncodeStream(tb testing.TB, data []byte) []byte {
	tb.Helper()

	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		tb.Fatalf("zstd.NewWriter() error = %v", err)
	}
	if _, err := enc.Write(data); err != nil {
		tb.Fatalf("zstd Write() error = %v", err)
	}
	if err := enc.Close(); err != nil {
		tb.Fatalf("zstd Close() error = %v", err)
	}
	return buf.Bytes()
}

// EncodeFrames compresses each part as its own zstd frame and concatenates
// the frames. Every frame carries its own content size.
func EncodeFrames(tb testing.TB, parts ...[]byte) []byte {
	tb.Helper()

	var out []byte
	for _, part := range parts {
		out = append(out, Encode(tb, sfxtype.CompressionZstd, part)...)
	}
	return out
}

// ShortFrame returns a single-block zstd frame holding data uncompressed
// whose header claims claimed bytes of content.
func ShortFrame(data []byte, claimed uint32) []byte {
	out := []byte{0x28, 0xb5, 0x2f, 0xfd}
	// Single segment, 4-byte content size, no checksum, no dictionary.
	out = append(out, 0xa0)
	out = binary.LittleEndian.AppendUint32(out, claimed)
	// Last raw block.
	bh := uint32(len(data))<<3 | 1
	out = append(out, byte(bh), byte(bh>>8), byte(bh>>16))
	return append(out, data...)
}

// BuildEffects returns a file system holding each effect under root, encoded
// with c and named with c's extension.
func BuildEffects(tb testing.TB, c sfxtype.Compression, root string, effects map[string][]byte) fstest.MapFS {
	tb.Helper()

	fsys := fstest.MapFS{}
	for name, data := range effects {
		fsys[path.Join(root, name+c.Ext())] = &fstest.MapFile{
			Data: Encode(tb, c, data),
			Mode: 0o644,
		}
	}
	return fsys
}

// CountingFS wraps a file system and counts file opens per name.
type CountingFS struct {
	FS fs.FS

	mu     sync.Mutex
	counts map[string]int
}

// NewCountingFS wraps fsys.
func NewCountingFS(fsys fs.FS) *CountingFS {
	return &CountingFS{FS: fsys, counts: make(map[string]int)}
}

// Open implements fs.FS.
func (c *CountingFS) Open(name string) (fs.File, error) {
	c.mu.Lock()
	c.counts[name]++
	c.mu.Unlock()
	return c.FS.Open(name)
}

// Opens returns how many times name was opened.
func (c *CountingFS) Opens(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[name]
}

// FailingFS fails every open of the named files and passes the rest through.
type FailingFS struct {
	FS   fs.FS
	Fail map[string]error
}

// Open implements fs.FS.
func (f *FailingFS) Open(name string) (fs.File, error) {
	if err, ok := f.Fail[name]; ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	return f.FS.Open(name)
}

// ReadAll drains r, failing the test on error.
func ReadAll(tb testing.TB, r io.Reader) []byte {
	tb.Helper()
	data, err := io.ReadAll(r)
	if err != nil {
		tb.Fatalf("ReadAll() error = %v", err)
	}
	return data
}
