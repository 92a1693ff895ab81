package sfxcache

import (
	"errors"
	"io"
	"io/fs"
)

// File is an open effect stream with the standard io interfaces.
type File struct {
	c      *Cache
	h      Handle
	name   string
	closed bool
}

// Interface compliance.
var (
	_ io.ReadSeekCloser = (*File)(nil)
	_ io.Writer         = (*File)(nil)
)

// OpenFile opens the named effect as a File.
func (c *Cache) OpenFile(name string) (*File, error) {
	h, err := c.Open(name)
	if err != nil {
		return nil, err
	}
	return &File{c: c, h: h, name: name}, nil
}

// Read implements io.Reader. It returns io.EOF at end of stream.
func (f *File) Read(p []byte) (int, error) {
	if f.closed {
		return 0, fs.ErrClosed
	}
	n, err := f.c.Read(f.h, p)
	if err != nil {
		return n, err
	}
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Seek implements io.Seeker.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return 0, fs.ErrClosed
	}
	return f.c.Seek(f.h, offset, whence)
}

// Write always fails with ErrReadOnly.
func (f *File) Write(p []byte) (int, error) {
	return f.c.Write(f.h, p)
}

// Close closes the underlying handle.
func (f *File) Close() error {
	if f.closed {
		return fs.ErrClosed
	}
	if err := f.c.CloseHandle(f.h); err != nil && !errors.Is(err, ErrClosed) {
		return err
	}
	f.closed = true
	return nil
}

// Size returns the decoded length, or 0 once closed.
func (f *File) Size() int64 {
	if f.closed {
		return 0
	}
	return f.c.FileSize(f.h)
}

// Handle returns the underlying handle.
func (f *File) Handle() Handle { return f.h }

// Name returns the name the file was opened with.
func (f *File) Name() string { return f.name }
