// Package sfxcache streams sound effects out of a byte-budgeted cache.
//
// Effects are located through a catalog built once from an effects root (a
// directory walk, or an effects.yaml manifest), loaded on demand into a
// pin-counted raw byte cache, and read through integer handles with
// file-like semantics. Compressed effects are decoded transparently; the
// logical length and cursor of a handle always refer to decoded bytes.
//
// # Quick Start
//
//	c, err := sfxcache.New(300000, "sfx/")
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	h, err := c.Open("explosion")
//	if err != nil {
//	    return err
//	}
//	defer c.CloseHandle(h)
//
//	buf := make([]byte, c.FileSize(h))
//	n, err := c.Read(h, buf)
//
// [Cache.OpenFile] wraps a handle in an [io.ReadSeekCloser] for callers that
// prefer the standard interfaces.
//
// # Handles
//
// At most [MaxOpenHandles] effects can be open at once. Each open handle pins
// its effect's raw bytes in the cache; closing the handle releases the pin.
// Unpinned effects stay cached until room is needed or [Cache.Flush] is
// called.
//
// # Decoding
//
// Decoders only run forward from the start of an effect. A read at the
// position where the previous read ended continues the handle's decoder; any
// other read (after a seek) restarts decoding from byte zero and discards up
// to the cursor.
package sfxcache
