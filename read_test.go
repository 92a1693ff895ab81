package sfxcache

import (
	"fmt"
	"io"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/sfxcache/internal/testutil"
)

var allCompressions = []Compression{CompressionNone, CompressionZstd, CompressionLZ4}

// readAll drains h in chunks of size chunk and checks the cursor grows by
// exactly the bytes returned.
func readAll(t *testing.T, c *Cache, h Handle, chunk int) []byte {
	t.Helper()

	var out []byte
	buf := make([]byte, chunk)
	for {
		before, err := c.Tell(h)
		require.NoError(t, err)
		n, err := c.Read(h, buf)
		require.NoError(t, err)
		after, err := c.Tell(h)
		require.NoError(t, err)
		require.Equal(t, before+int64(n), after)
		if n == 0 {
			return out
		}
		out = append(out, buf[:n]...)
	}
}

func TestReadChunks(t *testing.T) {
	t.Parallel()

	for _, comp := range allCompressions {
		t.Run(comp.String(), func(t *testing.T) {
			t.Parallel()

			effects := testEffects()
			c := newTestCache(t, comp, effects)

			for _, chunk := range []int{1, 7, 1000, 4096, 50000} {
				h, err := c.Open("explosion")
				require.NoError(t, err)
				got := readAll(t, c, h, chunk)
				assert.Equal(t, effects["explosion"], got, "chunk %d", chunk)

				pos, err := c.Tell(h)
				require.NoError(t, err)
				assert.Equal(t, c.FileSize(h), pos)
				require.NoError(t, c.CloseHandle(h))
			}
		})
	}
}

func TestReadAfterSeek(t *testing.T) {
	t.Parallel()

	for _, comp := range allCompressions {
		t.Run(comp.String(), func(t *testing.T) {
			t.Parallel()

			effects := testEffects()
			want := effects["ambient/wind"]
			c := newTestCache(t, comp, effects)

			h, err := c.Open("ambient/wind")
			require.NoError(t, err)

			for _, k := range []int64{0, 1, 511, 4096, 12345, 19999, 20000, 3, 0} {
				pos, err := c.Seek(h, k, io.SeekStart)
				require.NoError(t, err)
				require.Equal(t, k, pos)

				got := readAll(t, c, h, 3000)
				assert.Equal(t, want[k:], got, "from %d", k)
			}
		})
	}
}

func TestReadEmptyBuffer(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, CompressionZstd, testEffects())
	h, err := c.Open("laser")
	require.NoError(t, err)

	n, err := c.Read(h, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	pos, err := c.Tell(h)
	require.NoError(t, err)
	assert.Zero(t, pos)
}

func TestSeek(t *testing.T) {
	t.Parallel()

	const size = 4096

	tests := []struct {
		name    string
		start   int64
		offset  int64
		whence  int
		want    int64
		wantErr error
	}{
		{name: "start", offset: 100, whence: io.SeekStart, want: 100},
		{name: "start clamps", offset: 1 << 40, whence: io.SeekStart, want: size},
		{name: "start exact end", offset: size, whence: io.SeekStart, want: size},
		{name: "start negative", start: 50, offset: -1, whence: io.SeekStart, wantErr: ErrNegativeSeek},
		{name: "current forward", start: 100, offset: 50, whence: io.SeekCurrent, want: 150},
		{name: "current clamps", start: 100, offset: size, whence: io.SeekCurrent, want: size},
		{name: "current back", start: 100, offset: -100, whence: io.SeekCurrent, want: 0},
		{name: "current before start", start: 100, offset: -101, whence: io.SeekCurrent, wantErr: ErrNegativeSeek},
		{name: "end", offset: -96, whence: io.SeekEnd, want: size - 96},
		{name: "end clamps", start: 10, offset: 10, whence: io.SeekEnd, want: size},
		{name: "end to start", offset: -size, whence: io.SeekEnd, want: 0},
		{name: "end before start", start: 10, offset: -size - 1, whence: io.SeekEnd, wantErr: ErrNegativeSeek},
		{name: "bad whence", start: 10, offset: 0, whence: 7, wantErr: ErrInvalidWhence},
	}

	c := newTestCache(t, CompressionZstd, testEffects())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := c.Open("explosion")
			require.NoError(t, err)
			defer func() { require.NoError(t, c.CloseHandle(h)) }()

			_, err = c.Seek(h, tt.start, io.SeekStart)
			require.NoError(t, err)

			pos, err := c.Seek(h, tt.offset, tt.whence)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				cur, err := c.Tell(h)
				require.NoError(t, err)
				assert.Equal(t, tt.start, cur, "failed seek leaves the cursor")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, pos)
			cur, err := c.Tell(h)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cur)
		})
	}
}

func TestSequentialReadsReuseDecoder(t *testing.T) {
	t.Parallel()

	for _, comp := range []Compression{CompressionZstd, CompressionLZ4} {
		t.Run(comp.String(), func(t *testing.T) {
			t.Parallel()

			effects := testEffects()
			want := effects["laser"]
			c := newTestCache(t, comp, effects)

			h, err := c.Open("laser")
			require.NoError(t, err)
			s := &c.handles.slots[h]

			buf := make([]byte, 1000)
			_, err = c.Read(h, buf)
			require.NoError(t, err)
			require.NotNil(t, s.dec)
			first := s.dec
			assert.Equal(t, int64(1000), s.decoded)

			_, err = c.Read(h, buf)
			require.NoError(t, err)
			assert.True(t, first == s.dec, "decoder kept across sequential reads")
			assert.Equal(t, want[1000:2000], buf)

			// Moving the cursor restarts the decoder from the raw start.
			_, err = c.Seek(h, 500, io.SeekStart)
			require.NoError(t, err)
			_, err = c.Read(h, buf)
			require.NoError(t, err)
			assert.Equal(t, want[500:1500], buf)
			assert.Equal(t, int64(1500), s.decoded)

			require.NoError(t, c.CloseHandle(h))
			assert.Nil(t, c.handles.slots[h].dec, "closing releases the decoder")
		})
	}
}

func TestReadCorruptEffect(t *testing.T) {
	t.Parallel()

	effects := testEffects()
	fsys := testutil.BuildEffects(t, CompressionZstd, "sfx", effects)
	// The frame header announces more bytes than its block holds.
	fsys["sfx/explosion.zst"].Data = testutil.ShortFrame(testutil.PCM(100, 1), 4096)

	c := newTestCacheFS(t, fsys, CompressionZstd)
	h, err := c.Open("explosion")
	require.NoError(t, err)
	require.Equal(t, int64(4096), c.FileSize(h))

	buf := make([]byte, 4096)
	n, err := c.Read(h, buf)
	require.ErrorIs(t, err, ErrDecompression)
	assert.Zero(t, n)
	pos, err := c.Tell(h)
	require.NoError(t, err)
	assert.Zero(t, pos, "failed read leaves the cursor")
	assert.Nil(t, c.handles.slots[h].dec)

	// Reading past the corrupt region fails while skipping as well.
	_, err = c.Seek(h, 4000, io.SeekStart)
	require.NoError(t, err)
	_, err = c.Read(h, buf[:10])
	require.ErrorIs(t, err, ErrDecompression)
	pos, err = c.Tell(h)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), pos)

	require.NoError(t, c.CloseHandle(h))
	assert.Zero(t, c.Stats().Pinned)
}

func TestReadMultiFrameEffect(t *testing.T) {
	t.Parallel()

	data := testutil.PCM(4000, 9)
	fsys := testutil.BuildEffects(t, CompressionZstd, "sfx", testEffects())
	fsys["sfx/multi.zst"] = &fstest.MapFile{
		Data: testutil.EncodeFrames(t, data[:1000], data[1000:]),
		Mode: 0o644,
	}

	c := newTestCacheFS(t, fsys, CompressionZstd)
	h, err := c.Open("multi")
	require.NoError(t, err)
	assert.Equal(t, int64(4000), c.FileSize(h))

	assert.Equal(t, data, readAll(t, c, h, 1500))

	// Seeking into the second frame restarts across the frame boundary.
	_, err = c.Seek(h, 999, io.SeekStart)
	require.NoError(t, err)
	buf := make([]byte, 10)
	n, err := c.Read(h, buf)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, data[999:1009], buf)
}

func TestNewRejectsTruncatedMultiFrameEffect(t *testing.T) {
	t.Parallel()

	data := testutil.PCM(4000, 9)
	raw := testutil.EncodeFrames(t, data[:1000], data[1000:])
	fsys := fstest.MapFS{
		"sfx/multi.zst": &fstest.MapFile{Data: raw[:len(raw)-20], Mode: 0o644},
	}

	_, err := New(testBudget, "sfx", WithFS(fsys))
	assert.ErrorIs(t, err, ErrDecompression)
}

func TestReadUnsupportedMode(t *testing.T) {
	t.Parallel()

	c := newTestCache(t, CompressionZstd, testEffects())
	h, err := c.Open("explosion")
	require.NoError(t, err)

	c.mu.Lock()
	c.compression = Compression(42)
	c.mu.Unlock()

	_, err = c.Read(h, make([]byte, 10))
	require.ErrorIs(t, err, ErrUnsupportedCompression)
	pos, err := c.Tell(h)
	require.NoError(t, err)
	assert.Zero(t, pos)
}

func TestConcurrentHandles(t *testing.T) {
	t.Parallel()

	effects := testEffects()
	c := newTestCache(t, CompressionZstd, effects)
	names := []string{"explosion", "laser", "ambient/wind", "door/open"}

	var wg sync.WaitGroup
	errs := make(chan error, len(names))
	for _, name := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 5 {
				if err := readEffect(c, name, effects[name]); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Zero(t, c.Stats().Pinned)
}

func readEffect(c *Cache, name string, want []byte) error {
	h, err := c.Open(name)
	if err != nil {
		return err
	}
	var got []byte
	buf := make([]byte, 777)
	for {
		n, err := c.Read(h, buf)
		if err != nil {
			_ = c.CloseHandle(h)
			return err
		}
		if n == 0 {
			break
		}
		got = append(got, buf[:n]...)
	}
	if string(got) != string(want) {
		_ = c.CloseHandle(h)
		return fmt.Errorf("%s: read %d bytes, mismatched content", name, len(got))
	}
	return c.CloseHandle(h)
}
