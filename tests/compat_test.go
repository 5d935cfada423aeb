// tests/compat_test.go
//
// Cross-engine correctness check: the same key workloads run against
// this index and against a real SQLite table with a primary-key
// index, then the resulting key sequences are diffed. SQLite's own
// B-tree is a independently-implemented oracle for "what should
// ascending and edge-deletion traversal look like."
package tests

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"bptreeidx/pkg/bptree"
)

func zeroPadKey(i int) string {
	return fmt.Sprintf("%020d", i)
}

func sqliteOrderedKeys(t *testing.T, db *sql.DB) []string {
	t.Helper()
	rows, err := db.Query("SELECT k FROM bench ORDER BY k ASC")
	if err != nil {
		t.Fatalf("sqlite select failed: %v", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			t.Fatalf("sqlite scan failed: %v", err)
		}
		keys = append(keys, k)
	}
	return keys
}

func indexOrderedKeys(t *testing.T, idx *bptree.Index) []string {
	t.Helper()
	it, err := idx.Begin()
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	var keys []string
	for it.Valid() {
		keys = append(keys, string(it.Key()))
		if err := it.Next(); err != nil {
			t.Fatalf("next failed: %v", err)
		}
	}
	return keys
}

func assertSameSequence(t *testing.T, label string, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: length mismatch, got %d want %d", label, len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%s: mismatch at %d: got %q want %q", label, i, got[i], want[i])
		}
	}
}

// TestCompatAscendingInsert mirrors spec.md S1 against SQLite.
func TestCompatAscendingInsert(t *testing.T) {
	dir := t.TempDir()

	sdb, err := sql.Open("sqlite3", filepath.Join(dir, "ref.db"))
	if err != nil {
		t.Fatalf("sqlite open failed: %v", err)
	}
	defer sdb.Close()
	if _, err := sdb.Exec("CREATE TABLE bench (k TEXT PRIMARY KEY, v INTEGER)"); err != nil {
		t.Fatalf("sqlite create table failed: %v", err)
	}

	idx, err := bptree.Create(filepath.Join(dir, "idx.db"), bptree.Bytes)
	if err != nil {
		t.Fatalf("index create failed: %v", err)
	}
	defer idx.Close()

	const n = 1000
	for i := 0; i < n; i++ {
		key := zeroPadKey(i)
		if _, err := sdb.Exec("INSERT INTO bench (k, v) VALUES (?, ?)", key, i); err != nil {
			t.Fatalf("sqlite insert failed: %v", err)
		}
		if err := idx.Add([]byte(key), uint64(i)); err != nil {
			t.Fatalf("index add failed: %v", err)
		}
	}

	assertSameSequence(t, "ascending", indexOrderedKeys(t, idx), sqliteOrderedKeys(t, sdb))
}

// TestCompatEdgeDeletions mirrors spec.md S3 against SQLite.
func TestCompatEdgeDeletions(t *testing.T) {
	dir := t.TempDir()

	sdb, err := sql.Open("sqlite3", filepath.Join(dir, "ref.db"))
	if err != nil {
		t.Fatalf("sqlite open failed: %v", err)
	}
	defer sdb.Close()
	if _, err := sdb.Exec("CREATE TABLE bench (k TEXT PRIMARY KEY, v INTEGER)"); err != nil {
		t.Fatalf("sqlite create table failed: %v", err)
	}

	idx, err := bptree.Create(filepath.Join(dir, "idx.db"), bptree.Bytes)
	if err != nil {
		t.Fatalf("index create failed: %v", err)
	}
	defer idx.Close()

	const n = 1000
	for i := 0; i < n; i++ {
		key := zeroPadKey(i)
		if _, err := sdb.Exec("INSERT INTO bench (k, v) VALUES (?, ?)", key, i); err != nil {
			t.Fatalf("sqlite insert failed: %v", err)
		}
		if err := idx.Add([]byte(key), uint64(i)); err != nil {
			t.Fatalf("index add failed: %v", err)
		}
	}

	for i := 0; i < 250; i++ {
		key := zeroPadKey(i)
		if _, err := sdb.Exec("DELETE FROM bench WHERE k = ?", key); err != nil {
			t.Fatalf("sqlite delete failed: %v", err)
		}
		if _, err := idx.Erase([]byte(key)); err != nil {
			t.Fatalf("index erase failed: %v", err)
		}
	}
	for i := 750; i < 1000; i++ {
		key := zeroPadKey(i)
		if _, err := sdb.Exec("DELETE FROM bench WHERE k = ?", key); err != nil {
			t.Fatalf("sqlite delete failed: %v", err)
		}
		if _, err := idx.Erase([]byte(key)); err != nil {
			t.Fatalf("index erase failed: %v", err)
		}
	}

	assertSameSequence(t, "edge-deletions", indexOrderedKeys(t, idx), sqliteOrderedKeys(t, sdb))

	if idx.Size() != 500 {
		t.Fatalf("expected size 500, got %d", idx.Size())
	}
}
