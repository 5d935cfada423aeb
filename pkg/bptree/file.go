package bptree

import (
	"encoding/binary"
	"fmt"

	"bptreeidx/pkg/mmapfile"
)

// File header layout (32 bytes), occupying the first page-aligned
// region of offset 0. It is never treated as a node.
//
//	[0:8]   magic   — "INDEXIDX"
//	[8:16]  nnodes  uint64 (LE) — number of allocated data pages,
//	                              excluding the header page itself
//	[16:24] nkeys   uint64 (LE) — live (non-tombstoned) key count
//	[24:32] root    uint64 (LE) — byte offset of the root node
const (
	fileHeaderSize = 32
	fileMagic      = "INDEXIDX"

	// allocUnit is the number of PageSize slots a fresh file is created
	// with. Geometric growth (doubling the allocated slot count each time
	// it is exhausted) keeps the number of remaps logarithmic in the
	// file's final size.
	allocUnit = 1024
)

// file wraps an mmapfile.File with the fixed-size header and page
// allocation policy described above. It owns no tree logic; Index
// builds on top of it.
type file struct {
	mm *mmapfile.File
}

func createFile(path string) (*file, error) {
	mm, err := mmapfile.Open(path, int64(allocUnit)*PageSize)
	if err != nil {
		return nil, err
	}
	f := &file{mm: mm}
	hdr := f.mm.Slice(0, fileHeaderSize)
	copy(hdr[0:8], fileMagic)
	binary.LittleEndian.PutUint64(hdr[8:16], 0)
	binary.LittleEndian.PutUint64(hdr[16:24], 0)
	binary.LittleEndian.PutUint64(hdr[24:32], 0)
	return f, nil
}

func openFile(path string) (*file, error) {
	mm, err := mmapfile.Open(path, 0)
	if err != nil {
		return nil, err
	}
	f := &file{mm: mm}
	hdr := f.mm.Slice(0, fileHeaderSize)
	if hdr == nil || string(hdr[0:8]) != fileMagic {
		mm.Close()
		return nil, corruptOffset(0, "bad file magic")
	}
	needed := (1 + f.nnodes()) * PageSize
	if needed > uint64(f.mm.Size()) {
		mm.Close()
		return nil, corruptOffset(0, "file truncated: smaller than (1+nnodes)*pagesize")
	}
	return f, nil
}

func (f *file) header() []byte { return f.mm.Slice(0, fileHeaderSize) }

func (f *file) nnodes() uint64 { return binary.LittleEndian.Uint64(f.header()[8:16]) }
func (f *file) setNnodes(n uint64) {
	binary.LittleEndian.PutUint64(f.header()[8:16], n)
}

func (f *file) nkeys() uint64 { return binary.LittleEndian.Uint64(f.header()[16:24]) }
func (f *file) setNkeys(n uint64) {
	binary.LittleEndian.PutUint64(f.header()[16:24], n)
}

func (f *file) root() uint64 { return binary.LittleEndian.Uint64(f.header()[24:32]) }
func (f *file) setRoot(off uint64) {
	binary.LittleEndian.PutUint64(f.header()[24:32], off)
}

// page returns a view over the PageSize slot at byte offset off. off
// must be a multiple of PageSize and within the currently allocated
// region; the zero offset is reserved for the file header and is never
// a valid node offset.
func (f *file) page(off uint64) ([]byte, error) {
	if off == 0 || off%PageSize != 0 {
		return nil, corruptOffset(off, "offset not a valid page boundary")
	}
	p := f.mm.Slice(int64(off), PageSize)
	if p == nil {
		return nil, corruptOffset(off, "offset out of range")
	}
	return p, nil
}

// allocate reserves a fresh, zeroed page slot and returns its byte
// offset, growing the backing file geometrically if the currently
// allocated slots are exhausted. Any previously taken page() slice
// becomes invalid the instant Grow moves the mapping; callers must
// reacquire slices by offset afterward.
func (f *file) allocate() (uint64, error) {
	n := f.nnodes()
	off := (1 + n) * PageSize
	needed := (1 + n + 1) * PageSize
	if needed > uint64(f.mm.Size()) {
		grown := uint64(f.mm.Size())
		for grown < needed {
			grown *= 2
		}
		if err := f.mm.Grow(int64(grown)); err != nil {
			return 0, fmt.Errorf("bptree: growing index file: %w", err)
		}
	}
	f.setNnodes(n + 1)
	return off, nil
}

func (f *file) sync() error  { return f.mm.Sync() }
func (f *file) close() error { return f.mm.Close() }
