package bptree

import (
	"errors"
	"fmt"
)

var (
	// ErrBadKey is returned when a key's length falls outside [MinKeyLen,
	// MaxKeyLen].
	ErrBadKey = errors.New("bptree: key length out of range")

	// ErrNoSpace is returned internally by a node when an entry does not
	// fit on the page. It drives the tree to split and never escapes the
	// Index's public methods.
	ErrNoSpace = errors.New("bptree: node has no space")

	// ErrDepthExceeded is returned when a descent would require more
	// levels than MaxDepth.
	ErrDepthExceeded = errors.New("bptree: maximum tree depth exceeded")

	// ErrClosed is returned by operations on an Index that has already
	// been closed.
	ErrClosed = errors.New("bptree: index is closed")
)

// CorruptionError reports an invalid on-disk reference: an offset that
// is out of range, not page-aligned, or zero where a live child was
// required. The format has no checksum (spec non-goal: no cryptographic
// integrity), so this is the only shape corruption detection takes.
type CorruptionError struct {
	Offset uint64
	Reason string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("bptree: corrupt index at offset %d: %s", e.Offset, e.Reason)
}

func corruptOffset(off uint64, reason string) error {
	return &CorruptionError{Offset: off, Reason: reason}
}
