package bptree

import (
	"fmt"
	"io"
)

// Dump writes a human-readable summary of the index to w: node and key
// counts, tree depth, and the live/tombstoned entry count of every
// leaf in chain order. It is a debugging aid, not part of the on-disk
// format or a performance-sensitive path.
//
// Supplements spec.md, which has no introspection operation; grounded
// on the original implementation's own index::print() (original_source
// index.cpp), which walks the tree printing per-leaf contents and a
// final node/key-count/depth summary.
func (idx *Index) Dump(w io.Writer) error {
	fmt.Fprintf(w, "nodes: %d\n", idx.f.nnodes())
	fmt.Fprintf(w, "keys:  %d\n", idx.f.nkeys())

	root := idx.f.root()
	if root == 0 {
		fmt.Fprintln(w, "(empty)")
		return nil
	}

	depth := 0
	off := root
	for {
		page, err := idx.f.page(off)
		if err != nil {
			return err
		}
		if IsLeaf(page) {
			break
		}
		depth++
		off = LoadInternalNode(page).Left()
	}
	fmt.Fprintf(w, "depth: %d\n", depth)

	leafOff, err := idx.leftmostLeaf()
	if err != nil {
		return err
	}
	var live, tombstoned uint64
	for leafOff != 0 {
		page, err := idx.f.page(leafOff)
		if err != nil {
			return err
		}
		leaf := LoadLeafNode(page)
		n := leaf.EntryCount()
		dead := 0
		for i := 0; i < n; i++ {
			if leaf.Deleted(i) {
				dead++
			}
		}
		live += uint64(n - dead)
		tombstoned += uint64(dead)
		fmt.Fprintf(w, "leaf@%d: %d entries (%d live, %d tombstoned)\n", leafOff, n, n-dead, dead)
		leafOff = leaf.Next()
	}
	fmt.Fprintf(w, "total: %d live, %d tombstoned\n", live, tombstoned)
	return nil
}
