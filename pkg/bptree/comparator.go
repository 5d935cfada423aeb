package bptree

import "bytes"

// Comparator defines a total order over keys: negative if a < b, zero
// if a == b, positive if a > b. It must be deterministic, antisymmetric,
// transitive and reflexive over the key domain; the index treats equal
// keys as the same slot.
//
// This is the Go-idiomatic shape of the original's
// cmp(a, alen, b, blen) — a Go []byte slice already carries its own
// length, so there is no separate length parameter.
type Comparator func(a, b []byte) int

// Bytes is the default comparator: plain lexicographic byte-string
// order.
func Bytes(a, b []byte) int {
	return bytes.Compare(a, b)
}
