package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"leafdb"
)

func main() {
	var (
		path     = flag.String("db", "leaf.db", "path of the db file")
		readOnly = flag.Bool("readonly", false, "open the db in read-only mode")
		noSync   = flag.Bool("nosync", false, "skip fsync after writing pages")
		timeout  = flag.Duration("timeout", 0, "how long to wait for the file lock")
		level    = flag.String("log-level", "warn", "log level")
		restore  = flag.String("restore", "", "restore the db file from a snapshot before starting")
	)
	flag.Parse()

	lvl, err := log.ParseLevel(*level)
	if err != nil {
		log.Fatalf("bad log level: %s", err)
	}
	log.SetLevel(lvl)

	options := &leafdb.Options{
		Timeout:  *timeout,
		ReadOnly: *readOnly,
		NoSync:   *noSync,
	}
	table, err := openTable(*path, *restore, options)
	if err != nil {
		log.Fatalf("open %s: %s", *path, err)
	}

	r := &repl{table: table, in: bufio.NewScanner(os.Stdin), out: os.Stdout}
	if err := r.run(); err != nil {
		log.Errorf("%s", err)
	}
	if err := table.Close(); err != nil {
		log.Fatalf("close %s: %s", *path, err)
	}
}

func openTable(path, snapshot string, options *leafdb.Options) (*leafdb.Table, error) {
	if snapshot == "" {
		return leafdb.Open(path, options)
	}
	f, err := os.Open(snapshot)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return leafdb.Restore(f, path, options)
}

type repl struct {
	table *leafdb.Table
	in    *bufio.Scanner
	out   io.Writer
}

func (r *repl) run() error {
	for {
		fmt.Fprint(r.out, "db > ")
		if !r.in.Scan() {
			return r.in.Err()
		}
		line := strings.TrimSpace(r.in.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ".") {
			exit, err := r.doMetaCommand(line)
			if err != nil {
				fmt.Fprintf(r.out, "Error: %s\n", err)
			}
			if exit {
				return nil
			}
			continue
		}

		statement, err := prepareStatement(line)
		if err != nil {
			fmt.Fprintln(r.out, prepareMessage(err, line))
			continue
		}

		err = r.execute(statement)
		switch leafdb.Result(err) {
		case leafdb.ExecuteSuccess:
			fmt.Fprintln(r.out, "Executed.")
		case leafdb.ExecuteTableFull:
			fmt.Fprintln(r.out, "Error: Table full.")
		case leafdb.ExecuteDuplicateKey:
			fmt.Fprintln(r.out, "Error: Duplicate key.")
		default:
			fmt.Fprintf(r.out, "Error: %s\n", err)
		}
	}
}

func prepareMessage(err error, line string) string {
	switch {
	case errors.Is(err, ErrNegativeID):
		return "ID must be positive."
	case errors.Is(err, ErrStringTooLong):
		return "String is too long."
	case errors.Is(err, ErrSyntax):
		return "Syntax error. Could not parse statement."
	case errors.Is(err, ErrUnrecognizedStatement):
		return fmt.Sprintf("Unrecognized keyword at start of '%s'", line)
	}
	return fmt.Sprintf("Error: %s", err)
}

func (r *repl) execute(statement *Statement) error {
	switch statement.Type {
	case StatementInsert:
		return r.table.Insert(statement.Row)
	case StatementSelect:
		if statement.HasID {
			row, err := r.table.Get(statement.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(r.out, row)
			return nil
		}
		return r.table.ScanAll(func(row *leafdb.Row) error {
			_, err := fmt.Fprintln(r.out, row)
			return err
		})
	}
	return errors.Errorf("unknown statement type %d", statement.Type)
}

func (r *repl) doMetaCommand(line string) (exit bool, err error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case ".exit":
		return true, nil
	case ".constants":
		fmt.Fprintln(r.out, "Constants:")
		fmt.Fprintf(r.out, "ROW_SIZE: %d\n", leafdb.RowSize)
		fmt.Fprintf(r.out, "COMMON_NODE_HEADER_SIZE: %d\n", leafdb.CommonNodeHeaderSize)
		fmt.Fprintf(r.out, "LEAF_NODE_HEADER_SIZE: %d\n", leafdb.LeafNodeHeaderSize)
		fmt.Fprintf(r.out, "LEAF_NODE_CELL_SIZE: %d\n", leafdb.LeafNodeCellSize)
		fmt.Fprintf(r.out, "LEAF_NODE_SPACE_FOR_CELLS: %d\n", leafdb.LeafNodeSpaceForCells)
		fmt.Fprintf(r.out, "LEAF_NODE_MAX_CELLS: %d\n", leafdb.LeafNodeMaxCells)
		return false, nil
	case ".btree":
		stats, err := r.table.Stats()
		if err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, "Tree:")
		fmt.Fprintf(r.out, "%s (size %d)\n", stats.NodeType, stats.Cells)
		for i, key := range stats.Keys {
			fmt.Fprintf(r.out, "  - %d : %d\n", i, key)
		}
		return false, nil
	case ".snapshot":
		return false, r.snapshot(fields[1:])
	}
	fmt.Fprintf(r.out, "Unrecognized command '%s'\n", line)
	return false, nil
}

func (r *repl) snapshot(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: .snapshot <file> [snappy|lz4|none]")
	}
	alg := leafdb.CompSnappy
	if len(args) == 2 {
		var err error
		if alg, err = leafdb.ParseCompressAlgorithm(args[1]); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(args[0], os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if err := r.table.Snapshot(f, alg); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Snapshot written to %s.\n", args[0])
	return nil
}
