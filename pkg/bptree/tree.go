package bptree

// Index is a persistent, ordered, disk-backed B+ tree mapping
// variable-length byte-string keys to fixed 64-bit data offsets. It is
// backed by a single mmap'd file of PageSize slots (pkg/mmapfile) and
// is not safe for concurrent use without external synchronization
// (spec §5: single-writer, reader-exclusive).
type Index struct {
	f      *file
	cmp    Comparator
	closed bool
}

// Create initializes a new, empty index file at path. cmp orders keys;
// pass Bytes for plain lexicographic order.
func Create(path string, cmp Comparator) (*Index, error) {
	f, err := createFile(path)
	if err != nil {
		return nil, err
	}
	return &Index{f: f, cmp: cmp}, nil
}

// OpenIndex opens an existing index file at path.
func OpenIndex(path string, cmp Comparator) (*Index, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	return &Index{f: f, cmp: cmp}, nil
}

// Close flushes and releases the backing mapping. The Index must not
// be used afterward.
func (idx *Index) Close() error {
	if idx.closed {
		return nil
	}
	idx.closed = true
	return idx.f.close()
}

// Sync flushes dirty pages to disk without closing the index.
func (idx *Index) Sync() error {
	if idx.closed {
		return ErrClosed
	}
	return idx.f.sync()
}

// Size returns the number of live (non-tombstoned) keys in the index.
func (idx *Index) Size() uint64 {
	return idx.f.nkeys()
}

func (idx *Index) setParentOf(childOff, parentOff uint64) error {
	page, err := idx.f.page(childOff)
	if err != nil {
		return err
	}
	setNodeParent(page, parentOff)
	return nil
}

// reparentChildren fixes up the Parent field of every child referenced
// by an internal node that just became the right half of a split: its
// children moved out from under their old parent offset and must now
// point at parentOff.
func (idx *Index) reparentChildren(node *InternalNode, parentOff uint64) error {
	if err := idx.setParentOf(node.Left(), parentOff); err != nil {
		return err
	}
	for i := 0; i < node.EntryCount(); i++ {
		if err := idx.setParentOf(node.Child(i), parentOff); err != nil {
			return err
		}
	}
	return nil
}

// descend walks from the root to the leaf that must hold key,
// recording, at each internal level visited, the node's own offset and
// the entry index it descended through (-1 for the implicit Left
// child). The recorded slot lets a caller that splits the leaf (or a
// propagated split) know where in that parent a new separator belongs:
// immediately after the entry it descended through.
func (idx *Index) descend(key []byte) (stack []descentFrame, leafOff uint64, err error) {
	stack = make([]descentFrame, 0, 8)
	off := idx.f.root()
	for depth := 0; ; depth++ {
		if depth >= MaxDepth {
			return nil, 0, ErrDepthExceeded
		}
		page, perr := idx.f.page(off)
		if perr != nil {
			return nil, 0, perr
		}
		if IsLeaf(page) {
			return stack, off, nil
		}
		node := LoadInternalNode(page)
		found, pos := node.Search(key, idx.cmp)
		var slot int
		var child uint64
		switch {
		case found:
			slot, child = pos, node.Child(pos)
		case pos == 0:
			slot, child = -1, node.Left()
		default:
			slot, child = pos-1, node.Child(pos-1)
		}
		stack = append(stack, descentFrame{off: off, slot: slot})
		off = child
	}
}

type descentFrame struct {
	off  uint64
	slot int
}

// Find looks up key and reports its stored data offset, if present and
// not tombstoned.
func (idx *Index) Find(key []byte) (uint64, bool, error) {
	if idx.closed {
		return 0, false, ErrClosed
	}
	if len(key) < MinKeyLen || len(key) > MaxKeyLen {
		return 0, false, ErrBadKey
	}
	if idx.f.root() == 0 {
		return 0, false, nil
	}
	_, leafOff, err := idx.descend(key)
	if err != nil {
		return 0, false, err
	}
	page, err := idx.f.page(leafOff)
	if err != nil {
		return 0, false, err
	}
	leaf := LoadLeafNode(page)
	found, pos := leaf.Search(key, idx.cmp)
	if !found || leaf.Deleted(pos) {
		return 0, false, nil
	}
	return leaf.DataOffset(pos), true, nil
}

// Erase tombstones key's entry if present and live. Erase never
// rebalances or compacts the tree (spec non-goal); a tombstoned entry
// keeps its slot and key bytes, and a later leaf split carries it over
// to whichever side it sorts into. Re-adding the key revives it.
//
// Following spec.md's documented idempotent-delete behavior, Erase
// reports (true, nil) even when key was never present or the tree is
// empty — only BadKey and I/O conditions surface as an error.
func (idx *Index) Erase(key []byte) (bool, error) {
	if idx.closed {
		return false, ErrClosed
	}
	if len(key) < MinKeyLen || len(key) > MaxKeyLen {
		return false, ErrBadKey
	}
	if idx.f.root() == 0 {
		return true, nil
	}
	_, leafOff, err := idx.descend(key)
	if err != nil {
		return false, err
	}
	page, err := idx.f.page(leafOff)
	if err != nil {
		return false, err
	}
	leaf := LoadLeafNode(page)
	if leaf.Erase(key, idx.cmp) {
		idx.f.setNkeys(idx.f.nkeys() - 1)
	}
	return true, nil
}

// Add inserts key with dataoff, or updates the stored offset if key is
// already present (including resurrecting a tombstoned entry).
func (idx *Index) Add(key []byte, dataoff uint64) error {
	if idx.closed {
		return ErrClosed
	}
	if len(key) < MinKeyLen || len(key) > MaxKeyLen {
		return ErrBadKey
	}

	f := idx.f

	if f.root() == 0 {
		off, err := f.allocate()
		if err != nil {
			return err
		}
		page, err := f.page(off)
		if err != nil {
			return err
		}
		leaf := NewLeafNode(page)
		if err := leaf.AddAt(key, dataoff, 0); err != nil {
			return err
		}
		f.setRoot(off)
		f.setNkeys(1)
		return nil
	}

	stack, leafOff, err := idx.descend(key)
	if err != nil {
		return err
	}

	leafPage, err := f.page(leafOff)
	if err != nil {
		return err
	}
	leaf := LoadLeafNode(leafPage)

	found, pos := leaf.Search(key, idx.cmp)
	if found {
		if leaf.Deleted(pos) {
			leaf.SetDeleted(pos, false)
			leaf.SetDataOffset(pos, dataoff)
			f.setNkeys(f.nkeys() + 1)
		} else {
			leaf.SetDataOffset(pos, dataoff)
		}
		return nil
	}

	if err := leaf.AddAt(key, dataoff, pos); err == nil {
		f.setNkeys(f.nkeys() + 1)
		return nil
	} else if err != ErrNoSpace {
		return err
	}

	// Leaf is full: split it, then propagate the new separator upward,
	// splitting ancestors in turn until one has room or the root itself
	// splits and needs a new parent.
	rightOff, err := f.allocate()
	if err != nil {
		return err
	}
	// allocate() may have grown (and remapped) the file; every earlier
	// page slice is now stale and must be reacquired by offset.
	leafPage, err = f.page(leafOff)
	if err != nil {
		return err
	}
	leaf = LoadLeafNode(leafPage)
	rightPage, err := f.page(rightOff)
	if err != nil {
		return err
	}
	right := LoadLeafNode(rightPage)

	oldNext := leaf.Next()
	leaf.Split(leafOff, rightOff, right, pos, key, dataoff)
	f.setNkeys(f.nkeys() + 1)

	if oldNext != 0 {
		nextPage, err := f.page(oldNext)
		if err != nil {
			return err
		}
		LoadLeafNode(nextPage).SetPrev(rightOff)
	}

	sepKey := append([]byte(nil), right.Key(0)...)
	sepChild := rightOff

	i := len(stack) - 1
	for i >= 0 {
		fr := stack[i]
		parentPage, err := f.page(fr.off)
		if err != nil {
			return err
		}
		parent := LoadInternalNode(parentPage)
		insertPos := fr.slot + 1

		if err := parent.AddAt(sepKey, sepChild, insertPos); err == nil {
			return nil
		} else if err != ErrNoSpace {
			return err
		}

		newRightOff, err := f.allocate()
		if err != nil {
			return err
		}
		parentPage, err = f.page(fr.off)
		if err != nil {
			return err
		}
		parent = LoadInternalNode(parentPage)
		newRightPage, err := f.page(newRightOff)
		if err != nil {
			return err
		}
		newRight := LoadInternalNode(newRightPage)

		promotedKey, promotedChild := parent.Split(fr.off, newRightOff, newRight, insertPos, sepKey, sepChild)
		if err := idx.reparentChildren(newRight, newRightOff); err != nil {
			return err
		}

		sepKey = append([]byte(nil), promotedKey...)
		sepChild = promotedChild
		i--
	}

	// Every ancestor split; the former root (still at leafOff's original
	// top-of-stack offset, or leafOff itself if the leaf had no parent)
	// needs a new parent.
	newRootLeft := leafOff
	if len(stack) > 0 {
		newRootLeft = stack[0].off
	}

	newRootOff, err := f.allocate()
	if err != nil {
		return err
	}
	newRootPage, err := f.page(newRootOff)
	if err != nil {
		return err
	}
	newRoot := NewInternalNode(newRootPage, newRootLeft)
	if err := newRoot.AddAt(sepKey, sepChild, 0); err != nil {
		return err
	}

	if err := idx.setParentOf(newRootLeft, newRootOff); err != nil {
		return err
	}
	if err := idx.setParentOf(sepChild, newRootOff); err != nil {
		return err
	}
	f.setRoot(newRootOff)
	return nil
}
