package bptree

import "encoding/binary"

// Internal body layout, following the 13-byte common header:
//
//	[13:21] left  uint64 (LE) — child for keys < entries[0].key
//	[21:]   entries, 12 bytes each:
//	          [0:2]  keyoff uint16 (LE)
//	          [2:4]  keylen uint16 (LE) — no tombstone bit; internal
//	                                      entries are never deleted in
//	                                      place, only removed by a
//	                                      parent-side rewrite
//	          [4:12] child  uint64 (LE) — child for keys >= this entry's
//	                                      key and < the next entry's key
const (
	internalEntriesOffset = commonHeaderSize + 8
	internalEntrySize     = 12
)

// InternalNode is a typed view over a 4 KiB page holding routing
// entries: a leftmost child plus a sorted (separator key, right child)
// list, following the classic B+ tree convention that every key present
// in an internal node is a copy of some leaf key, never the payload
// itself.
type InternalNode struct {
	data []byte
}

// NewInternalNode initializes data as an empty internal node with the
// given sole child and returns a view over it.
func NewInternalNode(data []byte, left uint64) *InternalNode {
	setNodeKind(data, kindInternal)
	setNodeParent(data, 0)
	setNodeEntryCount(data, 0)
	setNodeNextoff(data, PageSize)
	n := &InternalNode{data: data}
	n.SetLeft(left)
	return n
}

// LoadInternalNode wraps an already-initialized page as an internal
// view.
func LoadInternalNode(data []byte) *InternalNode {
	return &InternalNode{data: data}
}

func (n *InternalNode) Parent() uint64       { return nodeParent(n.data) }
func (n *InternalNode) SetParent(off uint64) { setNodeParent(n.data, off) }
func (n *InternalNode) EntryCount() int      { return nodeEntryCount(n.data) }
func (n *InternalNode) nextoff() int         { return nodeNextoff(n.data) }
func (n *InternalNode) setNextoff(off int)   { setNodeNextoff(n.data, off) }
func (n *InternalNode) setEntryCount(c int)  { setNodeEntryCount(n.data, c) }

func (n *InternalNode) Left() uint64 {
	return binary.LittleEndian.Uint64(n.data[13:21])
}

func (n *InternalNode) SetLeft(child uint64) {
	binary.LittleEndian.PutUint64(n.data[13:21], child)
}

func (n *InternalNode) entryOffset(i int) int {
	return internalEntriesOffset + i*internalEntrySize
}

func (n *InternalNode) keyoff(i int) int {
	return int(binary.LittleEndian.Uint16(n.data[n.entryOffset(i):]))
}

func (n *InternalNode) KeyLen(i int) int {
	return int(binary.LittleEndian.Uint16(n.data[n.entryOffset(i)+2:]))
}

// Key returns the separator key stored at entry i. The returned slice
// aliases the page and is only valid until the next mutation or remap.
func (n *InternalNode) Key(i int) []byte {
	off := n.keyoff(i)
	l := n.KeyLen(i)
	return n.data[off : off+l]
}

// Child returns the child offset for entry i: the subtree holding keys
// in [Key(i), Key(i+1)) (or [Key(i), +inf) for the last entry).
func (n *InternalNode) Child(i int) uint64 {
	return binary.LittleEndian.Uint64(n.data[n.entryOffset(i)+4:])
}

// SetChild overwrites the child offset stored at entry i.
func (n *InternalNode) SetChild(i int, child uint64) {
	binary.LittleEndian.PutUint64(n.data[n.entryOffset(i)+4:], child)
}

// Available returns the number of free bytes between the entry array
// and the key area.
func (n *InternalNode) Available() int {
	return n.nextoff() - (internalEntriesOffset + n.EntryCount()*internalEntrySize)
}

// Search performs a binary search for key among the separator entries,
// returning (true, pos) on an exact separator match, or (false, pos)
// where pos is the sorted insertion index.
func (n *InternalNode) Search(key []byte, cmp Comparator) (bool, int) {
	return search(n.EntryCount(), key, cmp, n.Key)
}

// ChildFor returns the child offset to descend into for key: Left() if
// key sorts before every separator, otherwise Child(i-1) where i is the
// insertion position (an exact separator match descends via the
// separator's own Child, matching the half-open interval convention
// above).
func (n *InternalNode) ChildFor(key []byte, cmp Comparator) uint64 {
	found, pos := n.Search(key, cmp)
	if found {
		return n.Child(pos)
	}
	if pos == 0 {
		return n.Left()
	}
	return n.Child(pos - 1)
}

// Add inserts or updates separator key. If key already exists as a
// separator, its child is overwritten in place, consuming no extra
// space. Otherwise (key, child) is inserted at the sorted position if
// room permits.
func (n *InternalNode) Add(key []byte, child uint64, cmp Comparator) error {
	found, pos := n.Search(key, cmp)
	if found {
		n.SetChild(pos, child)
		return nil
	}
	return n.AddAt(key, child, pos)
}

// AddAt inserts separator (key, child) at the caller-supplied sorted
// position pos, used after an external Search. child is the right-hand
// subtree of the new separator.
func (n *InternalNode) AddAt(key []byte, child uint64, pos int) error {
	need := internalEntrySize + len(key)
	if need > n.Available() {
		return ErrNoSpace
	}

	c := n.EntryCount()
	for j := c; j > pos; j-- {
		copy(n.data[n.entryOffset(j):n.entryOffset(j)+internalEntrySize],
			n.data[n.entryOffset(j-1):n.entryOffset(j-1)+internalEntrySize])
	}

	newNextoff := n.nextoff() - len(key)
	copy(n.data[newNextoff:], key)
	n.setNextoff(newNextoff)

	off := n.entryOffset(pos)
	binary.LittleEndian.PutUint16(n.data[off:], uint16(newNextoff))
	binary.LittleEndian.PutUint16(n.data[off+2:], uint16(len(key)))
	binary.LittleEndian.PutUint64(n.data[off+4:], child)

	n.setEntryCount(c + 1)
	return nil
}

type internalEntryCopy struct {
	key   []byte
	child uint64
}

// Split partitions self's entries (plus its Left child) between self
// and right (an empty page of the same size), inserting the new
// (key, child) wherever it sorts, and promotes the middle separator to
// the parent. Pre: self has no room for the new entry.
//
// mid = floor(nentries/2) over the PRE-insert entry count (not the
// combined n+1); combined[mid] — found by inserting the new entry into
// its sorted position first — is removed from both children and
// returned as the promoted separator, with its child becoming right's
// Left. This is the internal half of the uniform "combined array, cut
// at mid" rule that replaces the three textual cases (A/B/C) in the
// original implementation — see DESIGN.md.
func (n *InternalNode) Split(selfOff, rightOff uint64, right *InternalNode, pos int, key []byte, child uint64) (promotedKey []byte, promotedChild uint64) {
	c := n.EntryCount()

	// Build the globally sorted (separator key, right child) list: self's
	// existing entries plus the new one at its sorted position. Left is
	// untouched here; it stays the left child of whichever entry ends up
	// first after the cut.
	type entry = internalEntryCopy
	combined := make([]entry, 0, c+1)
	for i := 0; i < pos; i++ {
		combined = append(combined, entry{append([]byte(nil), n.Key(i)...), n.Child(i)})
	}
	combined = append(combined, entry{key, child})
	for i := pos; i < c; i++ {
		combined = append(combined, entry{append([]byte(nil), n.Key(i)...), n.Child(i)})
	}
	leftmost := n.Left()

	mid := c / 2
	promoted := combined[mid]

	parent := n.Parent()

	rewrite := func(view *InternalNode, left uint64, entries []entry) {
		setNodeKind(view.data, kindInternal)
		view.SetParent(parent)
		view.setEntryCount(0)
		view.setNextoff(PageSize)
		view.SetLeft(left)
		off := PageSize
		for i, e := range entries {
			off -= len(e.key)
			copy(view.data[off:], e.key)
			eoff := view.entryOffset(i)
			binary.LittleEndian.PutUint16(view.data[eoff:], uint16(off))
			binary.LittleEndian.PutUint16(view.data[eoff+2:], uint16(len(e.key)))
			binary.LittleEndian.PutUint64(view.data[eoff+4:], e.child)
		}
		view.setNextoff(off)
		view.setEntryCount(len(entries))
	}

	rewrite(n, leftmost, combined[:mid])
	rewrite(right, promoted.child, combined[mid+1:])

	return promoted.key, rightOff
}
