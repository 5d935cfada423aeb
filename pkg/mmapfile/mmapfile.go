// Package mmapfile provides a cross-platform memory-mapped backing file.
//
// A File maps a regular file MAP_SHARED into the process address space
// and hands out byte-slice windows into that mapping. Growing a File may
// relocate the mapping's base address (the kernel is free to place a
// larger mapping anywhere); callers must never retain a slice obtained
// from Slice across a call to Grow — reacquire it by offset afterwards.
package mmapfile

import "errors"

// ErrClosed is returned by operations on a File that has already been
// closed.
var ErrClosed = errors.New("mmapfile: file is closed")

// File is a memory-mapped regular file opened for read-write access.
// The zero value is not usable; construct one with Open.
type File struct {
	impl platformFile
	size int64
}

// Open opens path for read-write access, creating it if it does not
// already exist. A file smaller than initialSize bytes (including a
// newly created, empty one) is extended to initialSize; a file already
// at least that large keeps its size.
func Open(path string, initialSize int64) (*File, error) {
	impl, size, err := openPlatformFile(path, initialSize)
	if err != nil {
		return nil, err
	}
	return &File{impl: impl, size: size}, nil
}

// Size returns the current size of the mapping in bytes.
func (f *File) Size() int64 {
	return f.size
}

// Slice returns the byte window [offset, offset+length) of the mapping.
// It returns nil if the range falls outside the current mapping. The
// returned slice aliases the mapped memory directly: writes to it are
// writes to the file.
func (f *File) Slice(offset, length int64) []byte {
	if offset < 0 || length < 0 || offset+length > f.size {
		return nil
	}
	return f.impl.bytes()[offset : offset+length]
}

// Grow ensures the mapping is at least newSize bytes, extending the
// file and remapping it if necessary. The mapping's base address may
// move; every slice obtained from Slice before a call to Grow must be
// discarded and reacquired afterwards.
func (f *File) Grow(newSize int64) error {
	if newSize <= f.size {
		return nil
	}
	if err := f.impl.grow(newSize); err != nil {
		return err
	}
	f.size = newSize
	return nil
}

// Sync flushes the mapping to disk.
func (f *File) Sync() error {
	return f.impl.sync()
}

// Close unmaps the file and releases the underlying file descriptor.
// Close is safe to call more than once.
func (f *File) Close() error {
	return f.impl.close()
}
