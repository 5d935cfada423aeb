package bptree

// Iterator walks live (non-tombstoned) entries in key order across the
// doubly-linked leaf chain, independent of tree depth (spec §4.1: O(1)
// per step, no re-descent from the root).
type Iterator struct {
	idx     *Index
	leafOff uint64 // 0 means exhausted / invalid
	pos     int
}

// Valid reports whether the iterator currently addresses a live entry.
func (it *Iterator) Valid() bool {
	return it != nil && it.leafOff != 0
}

// Key returns the key at the iterator's current position. The returned
// slice aliases the backing mapping and is only valid until the next
// mutation.
func (it *Iterator) Key() []byte {
	page, err := it.idx.f.page(it.leafOff)
	if err != nil {
		return nil
	}
	return LoadLeafNode(page).Key(it.pos)
}

// DataOffset returns the data offset at the iterator's current
// position.
func (it *Iterator) DataOffset() uint64 {
	page, err := it.idx.f.page(it.leafOff)
	if err != nil {
		return 0
	}
	return LoadLeafNode(page).DataOffset(it.pos)
}

// Next advances the iterator to the next live entry, crossing leaf
// boundaries as needed. It reports any I/O error; reaching the end is
// not an error — check Valid() afterward.
func (it *Iterator) Next() error {
	for it.leafOff != 0 {
		page, err := it.idx.f.page(it.leafOff)
		if err != nil {
			return err
		}
		leaf := LoadLeafNode(page)
		it.pos++
		for it.pos < leaf.EntryCount() {
			if !leaf.Deleted(it.pos) {
				return nil
			}
			it.pos++
		}
		it.leafOff = leaf.Next()
		it.pos = -1
	}
	return nil
}

// Previous moves the iterator to the preceding live entry, crossing
// leaf boundaries as needed.
func (it *Iterator) Previous() error {
	for it.leafOff != 0 {
		page, err := it.idx.f.page(it.leafOff)
		if err != nil {
			return err
		}
		leaf := LoadLeafNode(page)
		it.pos--
		for it.pos >= 0 {
			if !leaf.Deleted(it.pos) {
				return nil
			}
			it.pos--
		}
		prev := leaf.Prev()
		it.leafOff = prev
		if prev != 0 {
			prevPage, err := it.idx.f.page(prev)
			if err != nil {
				return err
			}
			it.pos = LoadLeafNode(prevPage).EntryCount()
		}
	}
	return nil
}

func (idx *Index) leftmostLeaf() (uint64, error) {
	off := idx.f.root()
	for off != 0 {
		page, err := idx.f.page(off)
		if err != nil {
			return 0, err
		}
		if IsLeaf(page) {
			return off, nil
		}
		off = LoadInternalNode(page).Left()
	}
	return 0, nil
}

func (idx *Index) rightmostLeaf() (uint64, error) {
	off := idx.f.root()
	for off != 0 {
		page, err := idx.f.page(off)
		if err != nil {
			return 0, err
		}
		if IsLeaf(page) {
			return off, nil
		}
		node := LoadInternalNode(page)
		n := node.EntryCount()
		if n == 0 {
			off = node.Left()
		} else {
			off = node.Child(n - 1)
		}
	}
	return 0, nil
}

// Begin returns an iterator positioned at the first live entry in key
// order, or an invalid iterator if the index is empty.
func (idx *Index) Begin() (*Iterator, error) {
	if idx.closed {
		return nil, ErrClosed
	}
	off, err := idx.leftmostLeaf()
	if err != nil {
		return nil, err
	}
	it := &Iterator{idx: idx, leafOff: off, pos: -1}
	if err := it.Next(); err != nil {
		return nil, err
	}
	return it, nil
}

// Last returns an iterator positioned at the last live entry in key
// order, or an invalid iterator if the index is empty.
func (idx *Index) Last() (*Iterator, error) {
	if idx.closed {
		return nil, ErrClosed
	}
	off, err := idx.rightmostLeaf()
	if err != nil {
		return nil, err
	}
	if off == 0 {
		return &Iterator{idx: idx}, nil
	}
	page, err := idx.f.page(off)
	if err != nil {
		return nil, err
	}
	it := &Iterator{idx: idx, leafOff: off, pos: LoadLeafNode(page).EntryCount()}
	if err := it.Previous(); err != nil {
		return nil, err
	}
	return it, nil
}

// FindIterator positions an iterator at key, if present and live.
func (idx *Index) FindIterator(key []byte) (*Iterator, error) {
	if idx.closed {
		return nil, ErrClosed
	}
	if len(key) < MinKeyLen || len(key) > MaxKeyLen {
		return nil, ErrBadKey
	}
	if idx.f.root() == 0 {
		return &Iterator{idx: idx}, nil
	}
	_, leafOff, err := idx.descend(key)
	if err != nil {
		return nil, err
	}
	page, err := idx.f.page(leafOff)
	if err != nil {
		return nil, err
	}
	leaf := LoadLeafNode(page)
	found, pos := leaf.Search(key, idx.cmp)
	if !found || leaf.Deleted(pos) {
		return &Iterator{idx: idx}, nil
	}
	return &Iterator{idx: idx, leafOff: leafOff, pos: pos}, nil
}
