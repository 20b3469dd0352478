// cmd/piecedump/main.go
//
// piecedump - minimal harness for exercising a piecetable.Table.
//
// Usage:
//
//	piecedump <file>                 load file, dump it back out unchanged
//	piecedump <file> ins <pos> <text>    load file, insert text at pos, dump
//	piecedump <file> del <pos> <len>     load file, delete len bytes at pos, dump
//
// With "-" as the file argument, piecedump reads its initial content from
// stdin instead of memory-mapping a file. This carries no design content of
// its own; it exists to give the library a small external collaborator
// for exercising it end to end.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"slicetree/pkg/piecetable"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "piecedump: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: piecedump <file> [ins <pos> <text> | del <pos> <len>]")
	}

	table, err := openTable(args[0])
	if err != nil {
		return err
	}
	defer table.Close()

	if len(args) > 1 {
		if err := applyEdit(table, args[1:]); err != nil {
			return err
		}
	}

	return table.Dump(os.Stdout)
}

func openTable(path string) (*piecetable.Table, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return piecetable.NewFromBytes(data), nil
	}
	return piecetable.LoadFromFile(path)
}

func applyEdit(table *piecetable.Table, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: ins <pos> <text> | del <pos> <len>")
	}
	pos, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("bad position %q: %w", args[1], err)
	}

	switch args[0] {
	case "ins":
		return table.Insert(pos, []byte(args[2]))
	case "del":
		length, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("bad length %q: %w", args[2], err)
		}
		return table.Delete(pos, length)
	default:
		return fmt.Errorf("unknown operation %q", args[0])
	}
}
