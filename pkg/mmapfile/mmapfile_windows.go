//go:build windows

package mmapfile

import (
	"os"
	"reflect"
	"unsafe"

	"golang.org/x/sys/windows"
)

// platformFile holds the Windows-specific mapping state for a File.
type platformFile struct {
	f          *os.File
	mapHandle  windows.Handle
	data       []byte
	mappedSize int64
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

	p := platformFile{f: f}
	if err := p.mapView(size); err != nil {
		f.Close()
		return platformFile{}, 0, err
	}

	return p, size, nil
}

func (p *platformFile) mapView(size int64) error {
	mapHandle, err := windows.CreateFileMapping(
		windows.Handle(p.f.Fd()),
		nil,
		windows.PAGE_READWRITE,
		uint32(size>>32),
		uint32(size&0xFFFFFFFF),
		nil,
	)
	if err != nil {
		return err
	}

	addr, err := windows.MapViewOfFile(
		mapHandle,
		windows.FILE_MAP_READ|windows.FILE_MAP_WRITE,
		0, 0,
		uintptr(size),
	)
	if err != nil {
		windows.CloseHandle(mapHandle)
		return err
	}

	var data []byte
	header := (*reflect.SliceHeader)(unsafe.Pointer(&data))
	header.Data = addr
	header.Len = int(size)
	header.Cap = int(size)

	p.mapHandle = mapHandle
	p.data = data
	p.mappedSize = size
	return nil
}

func (p *platformFile) bytes() []byte {
	return p.data
}

func (p *platformFile) sync() error {
	if len(p.data) == 0 {
		return nil
	}
	return windows.FlushViewOfFile(uintptr(unsafe.Pointer(&p.data[0])), uintptr(len(p.data)))
}

func (p *platformFile) unmapView() error {
	if len(p.data) > 0 {
		if err := windows.FlushViewOfFile(uintptr(unsafe.Pointer(&p.data[0])), uintptr(len(p.data))); err != nil {
			return err
		}
		if err := windows.UnmapViewOfFile(uintptr(unsafe.Pointer(&p.data[0]))); err != nil {
			return err
		}
		p.data = nil
	}
	if p.mapHandle != 0 {
		if err := windows.CloseHandle(p.mapHandle); err != nil {
			return err
		}
		p.mapHandle = 0
	}
	return nil
}

func (p *platformFile) grow(newSize int64) error {
	if err := p.unmapView(); err != nil {
		return err
	}
	if err := p.f.Truncate(newSize); err != nil {
		return err
	}
	return p.mapView(newSize)
}

func (p *platformFile) close() error {
	var firstErr error

	if err := p.unmapView(); err != nil && firstErr == nil {
		firstErr = err
	}

	if p.f != nil {
		if err := p.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.f = nil
	}

	return firstErr
}
