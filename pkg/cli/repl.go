// pkg/cli/repl.go
//
// Package cli provides an interactive shell over a bptree index file.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"bptreeidx/pkg/bptree"
)

// REPL reads commands from input and applies them to an open index,
// writing results to output and errors to errOutput.
type REPL struct {
	idx           *bptree.Index
	in            *bufio.Scanner
	output        io.Writer
	errOutput     io.Writer
	exitRequested bool
	cursor        *bptree.Iterator // set by first/last, advanced by next/prev
}

// NewREPL opens (or creates) the index at path and returns a REPL
// reading commands from input.
func NewREPL(path string, input io.Reader, output, errOutput io.Writer) (*REPL, error) {
	idx, err := bptree.OpenIndex(path, bptree.Bytes)
	if err != nil {
		idx, err = bptree.Create(path, bptree.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to open index: %w", err)
		}
	}
	return &REPL{idx: idx, in: bufio.NewScanner(input), output: output, errOutput: errOutput}, nil
}

// Close releases the underlying index.
func (r *REPL) Close() error {
	if r.idx != nil {
		return r.idx.Close()
	}
	return nil
}

// Run starts the command loop, reading and executing one command per
// line until EOF or .exit.
func (r *REPL) Run() {
	fmt.Fprintln(r.output, "idxtree")
	fmt.Fprintln(r.output, "Enter \".help\" for usage hints.")

	for !r.exitRequested && r.in.Scan() {
		line := strings.TrimSpace(r.in.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ".") {
			r.handleDotCommand(line)
			continue
		}
		if err := r.execute(line); err != nil {
			fmt.Fprintf(r.errOutput, "Error: %v\n", err)
		}
	}
}

// execute dispatches a single non-dot command line.
func (r *REPL) execute(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch strings.ToLower(fields[0]) {
	case "add":
		if len(fields) != 3 {
			return fmt.Errorf("usage: add <key> <dataoff>")
		}
		off, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid dataoff %q: %w", fields[2], err)
		}
		if err := r.idx.Add([]byte(fields[1]), off); err != nil {
			return err
		}
		fmt.Fprintln(r.output, "ok")

	case "find":
		if len(fields) != 2 {
			return fmt.Errorf("usage: find <key>")
		}
		off, ok, err := r.idx.Find([]byte(fields[1]))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(r.output, "(not found)")
			return nil
		}
		fmt.Fprintln(r.output, off)

	case "erase":
		if len(fields) != 2 {
			return fmt.Errorf("usage: erase <key>")
		}
		if _, err := r.idx.Erase([]byte(fields[1])); err != nil {
			return err
		}
		fmt.Fprintln(r.output, "ok")

	case "first":
		it, err := r.idx.Begin()
		if err != nil {
			return err
		}
		r.cursor = it
		r.printIterator(it)

	case "last":
		it, err := r.idx.Last()
		if err != nil {
			return err
		}
		r.cursor = it
		r.printIterator(it)

	case "next":
		if r.cursor == nil || !r.cursor.Valid() {
			return fmt.Errorf("no current position; run first or last first")
		}
		if err := r.cursor.Next(); err != nil {
			return err
		}
		r.printIterator(r.cursor)

	case "prev":
		if r.cursor == nil || !r.cursor.Valid() {
			return fmt.Errorf("no current position; run first or last first")
		}
		if err := r.cursor.Previous(); err != nil {
			return err
		}
		r.printIterator(r.cursor)

	case "size":
		fmt.Fprintln(r.output, r.idx.Size())

	default:
		return fmt.Errorf("unknown command: %s (try .help)", fields[0])
	}
	return nil
}

func (r *REPL) printIterator(it *bptree.Iterator) {
	if !it.Valid() {
		fmt.Fprintln(r.output, "(empty)")
		return
	}
	fmt.Fprintf(r.output, "%s\t%d\n", it.Key(), it.DataOffset())
}

func (r *REPL) handleDotCommand(line string) {
	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case ".exit", ".quit":
		r.exitRequested = true
	case ".help":
		fmt.Fprint(r.output, helpText)
	case ".stats":
		if err := r.idx.Dump(r.output); err != nil {
			fmt.Fprintf(r.errOutput, "Error: %v\n", err)
		}
	default:
		fmt.Fprintf(r.errOutput, "Unknown command: %s\n", fields[0])
		fmt.Fprintln(r.errOutput, "Use \".help\" for usage hints.")
	}
}

const helpText = `
add <key> <dataoff>   insert or overwrite key
find <key>            look up key
erase <key>           tombstone key
first                 seek to the first live (key, dataoff) pair
last                  seek to the last live (key, dataoff) pair
next                  advance from the current position (after first/last)
prev                  retreat from the current position (after first/last)
size                  print the live key count
.stats                dump node/key counts, depth, and per-leaf detail
.exit, .quit          exit this program
.help                 show this help message
`
