// Package sizing provides safe size arithmetic and conversions to prevent overflow.
package sizing

import (
	"io"
	"math"
)

// ToInt64 converts a uint64 to int64, returning overflowErr if it doesn't fit.
func ToInt64(size uint64, overflowErr error) (int64, error) {
	if size > uint64(math.MaxInt64) {
		return 0, overflowErr
	}
	return int64(size), nil
}

// CountWithLimit drains r and returns the number of bytes read.
// Returns overflowErr if more than maxSize bytes are available.
func CountWithLimit(r io.Reader, maxSize int64, overflowErr error) (int64, error) {
	if maxSize < 0 || maxSize == math.MaxInt64 {
		return 0, overflowErr
	}
	lr := &io.LimitedReader{R: r, N: maxSize + 1}
	n, err := io.Copy(io.Discard, lr)
	if err != nil {
		return 0, err
	}
	if n > maxSize {
		return 0, overflowErr
	}
	return n, nil
}
