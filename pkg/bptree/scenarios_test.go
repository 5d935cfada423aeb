package bptree

import (
	"fmt"
	"testing"
)

// treeDepth walks Left() repeatedly from root to the leaf, counting
// internal levels crossed. Used only to assert that a forced split
// grows the tree by exactly one level (S6).
func treeDepth(t *testing.T, idx *Index) int {
	t.Helper()
	depth := 0
	off := idx.f.root()
	for off != 0 {
		page, err := idx.f.page(off)
		if err != nil {
			t.Fatalf("page(%d) failed: %v", off, err)
		}
		if IsLeaf(page) {
			return depth
		}
		depth++
		off = LoadInternalNode(page).Left()
	}
	return depth
}

// S6: forced split chain. Fill a leaf to exactly capacity, insert one
// more key, and assert the root becomes internal with a single
// separator equal to the first key of the new right leaf, with the two
// leaves correctly linked. Then keep inserting until an internal split
// also occurs and assert depth grows by exactly one more level.
func TestScenarioForcedSplitChain(t *testing.T) {
	idx, _ := newTestIndex(t)
	defer idx.Close()

	const keylen = 20
	key := func(i int) []byte { return []byte(fmt.Sprintf("%0*d", keylen, i)) }

	// Fill the root leaf to capacity.
	f := 0
	for {
		if err := idx.Add(key(f), uint64(f)); err != nil {
			t.Fatalf("add(%d) failed: %v", f, err)
		}
		rootPage, err := idx.f.page(idx.f.root())
		if err != nil {
			t.Fatalf("page(root) failed: %v", err)
		}
		if !IsLeaf(rootPage) {
			t.Fatalf("root split earlier than expected, after %d inserts", f+1)
		}
		leaf := LoadLeafNode(rootPage)
		if leaf.Available() < leafEntrySize+keylen {
			break
		}
		f++
	}

	if treeDepth(t, idx) != 0 {
		t.Fatalf("expected a single leaf root before the forcing insert")
	}

	// One more insert must force the leaf to split.
	if err := idx.Add(key(f+1), uint64(f+1)); err != nil {
		t.Fatalf("forcing add failed: %v", err)
	}

	rootOff := idx.f.root()
	rootPage, err := idx.f.page(rootOff)
	if err != nil {
		t.Fatalf("page(root) failed: %v", err)
	}
	if IsLeaf(rootPage) {
		t.Fatal("expected root to become internal after the forcing insert")
	}
	root := LoadInternalNode(rootPage)
	if root.EntryCount() != 1 {
		t.Fatalf("expected exactly one separator in the new root, got %d", root.EntryCount())
	}

	leftOff, rightOff := root.Left(), root.Child(0)
	leftPage, err := idx.f.page(leftOff)
	if err != nil {
		t.Fatalf("page(left) failed: %v", err)
	}
	rightPage, err := idx.f.page(rightOff)
	if err != nil {
		t.Fatalf("page(right) failed: %v", err)
	}
	rightLeaf := LoadLeafNode(rightPage)

	if Bytes(root.Key(0), rightLeaf.Key(0)) != 0 {
		t.Fatalf("separator %q should equal the right leaf's first key %q", root.Key(0), rightLeaf.Key(0))
	}

	leftLeaf := LoadLeafNode(leftPage)
	if leftLeaf.Next() != rightOff {
		t.Errorf("left leaf's next should point at right, got %d want %d", leftLeaf.Next(), rightOff)
	}
	if rightLeaf.Prev() != leftOff {
		t.Errorf("right leaf's prev should point at left, got %d want %d", rightLeaf.Prev(), leftOff)
	}
	if treeDepth(t, idx) != 1 {
		t.Fatalf("expected depth 1 (one internal level) after the leaf split, got %d", treeDepth(t, idx))
	}

	// Keep inserting until the internal root itself splits, growing
	// depth by exactly one more level.
	depthBefore := treeDepth(t, idx)
	i := f + 2
	for treeDepth(t, idx) == depthBefore {
		if err := idx.Add(key(i), uint64(i)); err != nil {
			t.Fatalf("add(%d) failed: %v", i, err)
		}
		i++
		if i > f+1+200000 {
			t.Fatal("internal node never split after many inserts")
		}
	}
	if got := treeDepth(t, idx); got != depthBefore+1 {
		t.Fatalf("expected depth to grow by exactly one, got %d want %d", got, depthBefore+1)
	}

	seq := collectInOrder(t, idx)
	if len(seq) != i {
		t.Fatalf("expected %d live entries after the forced splits, got %d", i, len(seq))
	}
	for pos, pair := range seq {
		if int(pair[0]) != pos {
			t.Fatalf("out of order at position %d: key value %d", pos, pair[0])
		}
	}
}
