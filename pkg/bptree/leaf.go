package bptree

import "encoding/binary"

// Leaf body layout, following the 13-byte common header:
//
//	[13:21] prev  uint64 (LE) — previous leaf offset, 0 if none
//	[21:29] next  uint64 (LE) — next leaf offset, 0 if none
//	[29:]   entries, 12 bytes each:
//	          [0:2]  keyoff         uint16 (LE)
//	          [2:4]  keylen|deleted uint16 (LE) — low 15 bits keylen,
//	                                              high bit deleted
//	          [4:12] dataoff        uint64 (LE)
const (
	leafEntriesOffset = commonHeaderSize + 16
	leafEntrySize     = 12

	leafDeletedBit = uint16(1) << 15
	leafLenMask    = leafDeletedBit - 1
)

// LeafNode is a typed, zero-copy view over a 4 KiB page holding leaf
// entries: sorted (key, dataoff) pairs with a tombstone bit, linked to
// its sibling leaves for O(1) iteration.
type LeafNode struct {
	data []byte
}

// NewLeafNode initializes data (which must be PageSize bytes) as an
// empty leaf and returns a view over it.
func NewLeafNode(data []byte) *LeafNode {
	setNodeKind(data, kindLeaf)
	setNodeParent(data, 0)
	setNodeEntryCount(data, 0)
	setNodeNextoff(data, PageSize)
	l := &LeafNode{data: data}
	l.SetPrev(0)
	l.SetNext(0)
	return l
}

// LoadLeafNode wraps an already-initialized page as a leaf view.
func LoadLeafNode(data []byte) *LeafNode {
	return &LeafNode{data: data}
}

func (l *LeafNode) Parent() uint64          { return nodeParent(l.data) }
func (l *LeafNode) SetParent(off uint64)    { setNodeParent(l.data, off) }
func (l *LeafNode) EntryCount() int         { return nodeEntryCount(l.data) }
func (l *LeafNode) nextoff() int            { return nodeNextoff(l.data) }
func (l *LeafNode) setNextoff(off int)      { setNodeNextoff(l.data, off) }
func (l *LeafNode) setEntryCount(n int)     { setNodeEntryCount(l.data, n) }

func (l *LeafNode) Prev() uint64 {
	return binary.LittleEndian.Uint64(l.data[13:21])
}

func (l *LeafNode) SetPrev(off uint64) {
	binary.LittleEndian.PutUint64(l.data[13:21], off)
}

func (l *LeafNode) Next() uint64 {
	return binary.LittleEndian.Uint64(l.data[21:29])
}

func (l *LeafNode) SetNext(off uint64) {
	binary.LittleEndian.PutUint64(l.data[21:29], off)
}

func (l *LeafNode) entryOffset(i int) int {
	return leafEntriesOffset + i*leafEntrySize
}

func (l *LeafNode) keyoff(i int) int {
	return int(binary.LittleEndian.Uint16(l.data[l.entryOffset(i):]))
}

func (l *LeafNode) rawKeylen(i int) uint16 {
	return binary.LittleEndian.Uint16(l.data[l.entryOffset(i)+2:])
}

// KeyLen returns the length of the key at i, ignoring the tombstone bit.
func (l *LeafNode) KeyLen(i int) int {
	return int(l.rawKeylen(i) & leafLenMask)
}

// Deleted reports whether the entry at i is tombstoned.
func (l *LeafNode) Deleted(i int) bool {
	return l.rawKeylen(i)&leafDeletedBit != 0
}

// SetDeleted sets or clears the tombstone bit of the entry at i.
func (l *LeafNode) SetDeleted(i int, deleted bool) {
	off := l.entryOffset(i) + 2
	v := binary.LittleEndian.Uint16(l.data[off:]) & leafLenMask
	if deleted {
		v |= leafDeletedBit
	}
	binary.LittleEndian.PutUint16(l.data[off:], v)
}

// Key returns the key bytes at i. The returned slice aliases the page;
// it is only valid until the page is next mutated or the mapping is
// remapped.
func (l *LeafNode) Key(i int) []byte {
	off := l.keyoff(i)
	n := l.KeyLen(i)
	return l.data[off : off+n]
}

// DataOffset returns the data offset stored at i.
func (l *LeafNode) DataOffset(i int) uint64 {
	return binary.LittleEndian.Uint64(l.data[l.entryOffset(i)+4:])
}

// SetDataOffset overwrites the data offset stored at i.
func (l *LeafNode) SetDataOffset(i int, dataoff uint64) {
	binary.LittleEndian.PutUint64(l.data[l.entryOffset(i)+4:], dataoff)
}

// Available returns the number of free bytes between the entry array
// and the key area (I4).
func (l *LeafNode) Available() int {
	return l.nextoff() - (leafEntriesOffset + l.EntryCount()*leafEntrySize)
}

// Search performs a binary search for key, returning (true, pos) if an
// entry (possibly tombstoned) exactly matches it, or (false, pos) where
// pos is the sorted insertion index.
func (l *LeafNode) Search(key []byte, cmp Comparator) (bool, int) {
	return search(l.EntryCount(), key, cmp, l.Key)
}

// Add inserts or updates key. If key is already present (tombstoned or
// not), its dataoff is overwritten and the tombstone bit is cleared,
// consuming no extra space. Otherwise it is inserted at the sorted
// position if room permits.
func (l *LeafNode) Add(key []byte, dataoff uint64, cmp Comparator) error {
	if len(key) < MinKeyLen || len(key) > MaxKeyLen {
		return ErrBadKey
	}
	found, pos := l.Search(key, cmp)
	if found {
		l.SetDataOffset(pos, dataoff)
		l.SetDeleted(pos, false)
		return nil
	}
	return l.AddAt(key, dataoff, pos)
}

// AddAt inserts (key, dataoff) at the caller-supplied sorted position
// pos, used after an external Search. It does not check for an
// existing equal key.
func (l *LeafNode) AddAt(key []byte, dataoff uint64, pos int) error {
	need := leafEntrySize + len(key)
	if need > l.Available() {
		return ErrNoSpace
	}

	n := l.EntryCount()

	// Shift entry slots [pos, n) up by one to make room.
	for j := n; j > pos; j-- {
		copy(l.data[l.entryOffset(j):l.entryOffset(j)+leafEntrySize],
			l.data[l.entryOffset(j-1):l.entryOffset(j-1)+leafEntrySize])
	}

	newNextoff := l.nextoff() - len(key)
	copy(l.data[newNextoff:], key)
	l.setNextoff(newNextoff)

	off := l.entryOffset(pos)
	binary.LittleEndian.PutUint16(l.data[off:], uint16(newNextoff))
	binary.LittleEndian.PutUint16(l.data[off+2:], uint16(len(key)))
	binary.LittleEndian.PutUint64(l.data[off+4:], dataoff)

	l.setEntryCount(n + 1)
	return nil
}

// Erase marks the entry matching key as deleted, if present and not
// already tombstoned. It reports whether a live entry was found.
func (l *LeafNode) Erase(key []byte, cmp Comparator) bool {
	if len(key) < MinKeyLen || len(key) > MaxKeyLen {
		return false
	}
	found, pos := l.Search(key, cmp)
	if found && !l.Deleted(pos) {
		l.SetDeleted(pos, true)
		return true
	}
	return false
}

type leafEntryCopy struct {
	key     []byte
	dataoff uint64
	deleted bool
}

// Split partitions self's entries between self and right (an empty
// page of the same size), inserting the new (key, dataoff) wherever it
// sorts, and rewrites the leaf chain so right sits between self and
// self's old successor. Pre: self has no room for the new entry. Post:
// every key, including the new one, is preserved on one side or the
// other (leaves never drop a promoted key — only internal splits do).
//
// The caller is responsible for pointing the old successor's Prev at
// rightOff if self had a Next before the split.
//
// mid = ceil(nentries/2) over the pre-split count; entries sort as
// self[0:mid] + right[mid:]. This is the leaf half of the uniform
// "combined array, cut at mid" rule — see DESIGN.md for why this is
// equivalent to the two textual cases in the original implementation.
func (l *LeafNode) Split(selfOff, rightOff uint64, right *LeafNode, pos int, key []byte, dataoff uint64) {
	n := l.EntryCount()
	combined := make([]leafEntryCopy, 0, n+1)
	for i := 0; i < pos; i++ {
		combined = append(combined, leafEntryCopy{append([]byte(nil), l.Key(i)...), l.DataOffset(i), l.Deleted(i)})
	}
	combined = append(combined, leafEntryCopy{key, dataoff, false})
	for i := pos; i < n; i++ {
		combined = append(combined, leafEntryCopy{append([]byte(nil), l.Key(i)...), l.DataOffset(i), l.Deleted(i)})
	}

	mid := (n + 1) / 2

	parent := l.Parent()
	prev := l.Prev()
	oldNext := l.Next()

	rewrite := func(view *LeafNode, entries []leafEntryCopy) {
		setNodeKind(view.data, kindLeaf)
		view.SetParent(parent)
		view.setEntryCount(0)
		view.setNextoff(PageSize)
		off := PageSize
		for i, e := range entries {
			off -= len(e.key)
			copy(view.data[off:], e.key)
			eoff := view.entryOffset(i)
			binary.LittleEndian.PutUint16(view.data[eoff:], uint16(off))
			lv := uint16(len(e.key))
			if e.deleted {
				lv |= leafDeletedBit
			}
			binary.LittleEndian.PutUint16(view.data[eoff+2:], lv)
			binary.LittleEndian.PutUint64(view.data[eoff+4:], e.dataoff)
		}
		view.setNextoff(off)
		view.setEntryCount(len(entries))
	}

	rewrite(l, combined[:mid])
	rewrite(right, combined[mid:])

	l.SetPrev(prev)
	l.SetNext(rightOff)
	right.SetPrev(selfOff)
	right.SetNext(oldNext)
}
