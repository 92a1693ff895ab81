package sfxcache

import "github.com/meigma/sfxcache/internal/sfxtype"

// Errors re-exported from sfxtype.
var (
	// ErrBudgetTooSmall is returned by New when the cache size does not exceed MinCacheSize.
	ErrBudgetTooSmall = sfxtype.ErrBudgetTooSmall

	// ErrClosed is returned when the cache has been shut down.
	ErrClosed = sfxtype.ErrClosed

	// ErrTooManyOpen is returned when MaxOpenHandles effects are already open.
	ErrTooManyOpen = sfxtype.ErrTooManyOpen

	// ErrNotFound is returned when an effect name does not resolve.
	ErrNotFound = sfxtype.ErrNotFound

	// ErrIllegalHandle is returned for closed, stale or out-of-range handles.
	ErrIllegalHandle = sfxtype.ErrIllegalHandle

	// ErrDecompression is returned when an effect decodes short.
	ErrDecompression = sfxtype.ErrDecompression

	// ErrReadOnly is returned by every write.
	ErrReadOnly = sfxtype.ErrReadOnly

	// ErrInvalidWhence is returned for an unknown seek origin.
	ErrInvalidWhence = sfxtype.ErrInvalidWhence

	// ErrNegativeSeek is returned when a seek would move before byte 0.
	ErrNegativeSeek = sfxtype.ErrNegativeSeek

	// ErrUnsupportedCompression is returned for an unknown compression mode.
	ErrUnsupportedCompression = sfxtype.ErrUnsupportedCompression
)
