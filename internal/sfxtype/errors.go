package sfxtype

import "errors"

// Sentinel errors for sound-effect cache operations.
var (
	// ErrBudgetTooSmall is returned when the cache byte budget cannot hold a usable effect.
	ErrBudgetTooSmall = errors.New("sfxcache: cache size too small")

	// ErrClosed is returned when the cache has been shut down.
	ErrClosed = errors.New("sfxcache: cache is closed")

	// ErrTooManyOpen is returned when every handle slot is in use.
	ErrTooManyOpen = errors.New("sfxcache: too many open effects")

	// ErrNotFound is returned when an effect name or tag does not resolve.
	ErrNotFound = errors.New("sfxcache: effect not found")

	// ErrIllegalHandle is returned for closed, stale or out-of-range handles.
	ErrIllegalHandle = errors.New("sfxcache: illegal handle")

	// ErrDecompression is returned when the decoder produces fewer bytes than requested.
	ErrDecompression = errors.New("sfxcache: decompression failed")

	// ErrReadOnly is returned by every write.
	ErrReadOnly = errors.New("sfxcache: effect streams are read-only")

	// ErrInvalidWhence is returned for an unknown seek origin.
	ErrInvalidWhence = errors.New("sfxcache: invalid whence")

	// ErrNegativeSeek is returned when a seek would move before byte 0.
	ErrNegativeSeek = errors.New("sfxcache: negative position")

	// ErrUnsupportedCompression is returned for an unknown compression mode.
	ErrUnsupportedCompression = errors.New("sfxcache: unsupported compression")

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = errors.New("sfxcache: size overflow")
)
