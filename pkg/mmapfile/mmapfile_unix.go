//go:build unix || linux || darwin || freebsd || openbsd || netbsd

package mmapfile

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// platformFile holds the Unix-specific mmap state for a File.
type platformFile struct {
	f    *os.File
	data []byte
}

func openPlatformFile(path string, initialSize int64) (platformFile, int64, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return platformFile{}, 0, err
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return platformFile{}, 0, err
	}

	size := stat.Size()
	if initialSize > size {
		if err := f.Truncate(initialSize); err != nil {
			f.Close()
			return platformFile{}, 0, err
		}
		size = initialSize
	}

	data, err := syscall.Mmap(int(f.Fd()), 0, int(size),
		syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		f.Close()
		return platformFile{}, 0, err
	}

	return platformFile{f: f, data: data}, size, nil
}

func (p *platformFile) bytes() []byte {
	return p.data
}

func (p *platformFile) sync() error {
	if len(p.data) == 0 {
		return nil
	}
	return unix.Msync(p.data, unix.MS_SYNC)
}

// grow extends the backing file and remaps it. The kernel is free to
// relocate the mapping; p.data is updated in place.
func (p *platformFile) grow(newSize int64) error {
	// Flush the current mapping before unmapping it: with MAP_SHARED,
	// writes land in the kernel page cache but aren't guaranteed on
	// disk until a sync, and we're about to tear the mapping down.
	if len(p.data) > 0 {
		if err := unix.Msync(p.data, unix.MS_SYNC); err != nil {
			return err
		}
	}

	if err := syscall.Munmap(p.data); err != nil {
		return err
	}
	p.data = nil

	if err := p.f.Truncate(newSize); err != nil {
		return err
	}

	data, err := syscall.Mmap(int(p.f.Fd()), 0, int(newSize),
		syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		return err
	}

	p.data = data
	return nil
}

func (p *platformFile) close() error {
	var firstErr error

	if p.data != nil {
		if err := syscall.Munmap(p.data); err != nil && firstErr == nil {
			firstErr = err
		}
		p.data = nil
	}

	if p.f != nil {
		if err := p.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.f = nil
	}

	return firstErr
}
