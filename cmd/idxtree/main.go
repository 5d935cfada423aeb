// cmd/idxtree/main.go
//
// idxtree is an interactive shell over a bptree index file.
//
// Usage:
//
//	idxtree <index-file>
//
// The file is created if it does not already exist. Use .help for the
// list of available commands.
package main

import (
	"fmt"
	"os"

	"bptreeidx/pkg/cli"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: idxtree <index-file>")
		os.Exit(1)
	}

	repl, err := cli.NewREPL(os.Args[1], os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening index: %v\n", err)
		os.Exit(1)
	}
	defer repl.Close()

	repl.Run()
}
