package bptree

import (
	"fmt"
	"testing"
)

func freshInternal(left uint64) *InternalNode {
	return NewInternalNode(make([]byte, PageSize), left)
}

func TestInternalAddAndSearch(t *testing.T) {
	n := freshInternal(100)
	if err := n.AddAt([]byte("m"), 200, 0); err != nil {
		t.Fatalf("add_at failed: %v", err)
	}
	if err := n.AddAt([]byte("t"), 300, 1); err != nil {
		t.Fatalf("add_at failed: %v", err)
	}

	if n.Left() != 100 {
		t.Fatalf("expected left=100, got %d", n.Left())
	}

	found, pos := n.Search([]byte("m"), Bytes)
	if !found || pos != 0 {
		t.Fatalf("search(m): found=%v pos=%d", found, pos)
	}

	cases := []struct {
		key  string
		want uint64
	}{
		{"a", 100},
		{"m", 200},
		{"n", 200},
		{"t", 300},
		{"z", 300},
	}
	for _, c := range cases {
		got := n.ChildFor([]byte(c.key), Bytes)
		if got != c.want {
			t.Errorf("ChildFor(%q): got %d, want %d", c.key, got, c.want)
		}
	}
}

func TestInternalAddOverwritesExistingSeparator(t *testing.T) {
	n := freshInternal(100)
	if err := n.Add([]byte("m"), 200, Bytes); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := n.Add([]byte("t"), 300, Bytes); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := n.Add([]byte("m"), 999, Bytes); err != nil {
		t.Fatalf("overwrite add failed: %v", err)
	}

	if n.EntryCount() != 2 {
		t.Fatalf("overwrite should not grow entry count, got %d", n.EntryCount())
	}
	if got := n.ChildFor([]byte("m"), Bytes); got != 999 {
		t.Errorf("expected child 999 after overwrite, got %d", got)
	}
	if got := n.ChildFor([]byte("t"), Bytes); got != 300 {
		t.Errorf("unrelated separator t should be untouched, got %d", got)
	}
}

func TestInternalFillsAndReportsNoSpace(t *testing.T) {
	n := freshInternal(1)
	i := 0
	for {
		key := []byte(fmt.Sprintf("k%06d", i))
		if err := n.AddAt(key, uint64(i+2), i); err != nil {
			if err == ErrNoSpace {
				break
			}
			t.Fatalf("unexpected error at i=%d: %v", i, err)
		}
		i++
		if i > 10000 {
			t.Fatal("internal node never reported ErrNoSpace")
		}
	}
	if i == 0 {
		t.Fatal("expected at least one entry to fit on a fresh page")
	}
}

func TestInternalSplitPromotesSeparator(t *testing.T) {
	n := freshInternal(1)
	count := 0
	for {
		key := []byte(fmt.Sprintf("%020d", count))
		if err := n.AddAt(key, uint64(count+2), count); err != nil {
			break
		}
		count++
	}

	newKey := []byte(fmt.Sprintf("%020d", count)) // sorts after everything present
	selfOff, rightOff := uint64(PageSize), uint64(2*PageSize)
	right := freshInternal(0)

	_, pos := n.Search(newKey, Bytes)
	promotedKey, promotedChild := n.Split(selfOff, rightOff, right, pos, newKey, uint64(count+2))

	if promotedChild != rightOff {
		t.Errorf("promoted child should be rightOff, got %d", promotedChild)
	}
	if len(promotedKey) == 0 {
		t.Fatal("promoted key should not be empty")
	}

	total := n.EntryCount() + right.EntryCount() + 1 // +1 for the promoted separator
	if total != count+1 {
		t.Fatalf("expected %d total separators (including promoted), got %d", count+1, total)
	}

	// Every remaining key in self must sort before the promoted key,
	// and every remaining key in right must sort after it (I2/I6).
	for i := 0; i < n.EntryCount(); i++ {
		if Bytes(n.Key(i), promotedKey) >= 0 {
			t.Errorf("self entry %d (%q) should sort before promoted key (%q)", i, n.Key(i), promotedKey)
		}
	}
	for i := 0; i < right.EntryCount(); i++ {
		if Bytes(right.Key(i), promotedKey) <= 0 {
			t.Errorf("right entry %d (%q) should sort after promoted key (%q)", i, right.Key(i), promotedKey)
		}
	}
}
