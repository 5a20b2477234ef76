// Package leafdb is a single-table embedded record store: a file of
// fixed-size pages, a page cache, and a sorted index of rows keyed by id.
package leafdb

import (
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Options represents the options that can be set when opening a database.
type Options struct {
	// Timeout is the amount of time to wait to obtain a file lock.
	// When set to zero a locked file fails immediately with
	// ErrLockedByOther.
	Timeout time.Duration

	// Open database in read-only mode. Uses flock(..., LOCK_SH |LOCK_NB) to
	// grab a shared lock. The file must exist.
	ReadOnly bool

	// Setting the NoSync flag skips the fsync() after dirty pages are
	// written on Flush and Close.
	NoSync bool

	// Mode is the permission used when the file is created.
	Mode os.FileMode
}

var DefaultOptions = &Options{
	Timeout: 0,
	Mode:    0644,
}

// Table is the single table stored in a db file. Page 0 is the root, and
// only, leaf of its index.
type Table struct {
	path        string
	pager       *Pager
	rootPageNum uint32
	readOnly    bool
	opened      bool

	rwlock sync.Mutex // Serialises table operations.
	cursor *Cursor    // the live cursor, if any
}

// Stats describes the root node of a table.
type Stats struct {
	Pages    uint32
	Cells    uint32
	MaxCells uint32
	NodeType NodeType
	Keys     []uint32
}

// Open opens the table stored at path, creating the file unless the options
// ask for read-only mode.
func Open(path string, options *Options) (*Table, error) {
	if options == nil {
		options = DefaultOptions
	}
	opts := *options
	if opts.Mode == 0 {
		opts.Mode = DefaultOptions.Mode
	}

	pager, err := openPager(path, &opts)
	if err != nil {
		return nil, err
	}
	t := &Table{
		path:        path,
		pager:       pager,
		rootPageNum: 0,
		readOnly:    opts.ReadOnly,
		opened:      true,
	}

	page, err := pager.getPage(t.rootPageNum)
	if err != nil {
		_ = pager.close()
		return nil, err
	}
	root := leafNode(page)
	if pager.fileLength == 0 {
		// New database file. Initialize page 0 as leaf node.
		root.initialize()
		root.setRoot(true)
		pager.markDirty(t.rootPageNum)
	} else if err := root.validate(); err != nil {
		_ = pager.close()
		return nil, err
	}

	log.WithFields(log.Fields{
		"path":  path,
		"pages": pager.numPages,
		"cells": root.numCells(),
	}).Debug("table opened")
	return t, nil
}

// Close writes every modified page back to the file and closes it.
func (t *Table) Close() error {
	t.rwlock.Lock()
	defer t.rwlock.Unlock()
	if !t.opened {
		return nil
	}
	if t.cursor != nil {
		t.cursor.release()
	}

	flushErr := t.pager.flushAll()
	if err := t.pager.close(); err != nil {
		return err
	}
	t.opened = false
	log.WithField("path", t.path).Debug("table closed")
	return flushErr
}

// Flush writes every modified page back to the file without closing it.
func (t *Table) Flush() error {
	t.rwlock.Lock()
	defer t.rwlock.Unlock()
	if !t.opened {
		return ErrClosed
	}
	return t.pager.flushAll()
}

func (t *Table) Path() string { return t.path }

func (t *Table) rootLeaf() (leafNode, error) {
	if !t.opened {
		return nil, ErrClosed
	}
	page, err := t.pager.getPage(t.rootPageNum)
	if err != nil {
		return nil, err
	}
	return leafNode(page), nil
}

// Insert adds row keyed by its ID. It returns ErrTableFull when the root
// leaf is at capacity and ErrDuplicateKey when the ID is already stored;
// the table is unchanged in both cases.
func (t *Table) Insert(row *Row) error {
	t.rwlock.Lock()
	defer t.rwlock.Unlock()
	if !t.opened {
		return ErrClosed
	}
	if t.readOnly {
		return ErrReadOnly
	}
	if t.cursor != nil {
		return ErrCursorActive
	}

	root, err := t.rootLeaf()
	if err != nil {
		return errors.Wrap(err, "load root")
	}
	if root.numCells() >= LeafNodeMaxCells {
		return ErrTableFull
	}

	c, err := t.find(row.ID)
	if err != nil {
		return errors.Wrap(err, "find insert position")
	}
	defer c.release()
	if !c.endOfTable {
		return errors.Wrapf(ErrDuplicateKey, "id %d", row.ID)
	}

	node, err := c.node()
	if err != nil {
		return errors.Wrap(err, "load leaf")
	}
	if err := node.insert(c.cellNum, row.ID, row); err != nil {
		return errors.Wrapf(err, "insert id %d", row.ID)
	}
	t.pager.markDirty(c.pageNum)
	return nil
}

// ScanAll calls fn with every row in ascending key order. An error from fn
// stops the scan and is returned. fn runs without the table lock but while
// the scan cursor is live, so inserts and lookups made from it fail with
// ErrCursorActive.
func (t *Table) ScanAll(fn func(row *Row) error) error {
	t.rwlock.Lock()
	c, err := t.start()
	t.rwlock.Unlock()
	if err != nil {
		return err
	}
	defer c.Close()

	for {
		row, err := t.scanNext(c)
		if err != nil || row == nil {
			return err
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}

// scanNext decodes the row at c and advances it. It returns a nil row at
// the end of the table.
func (t *Table) scanNext(c *Cursor) (*Row, error) {
	t.rwlock.Lock()
	defer t.rwlock.Unlock()
	if !t.opened {
		return nil, ErrClosed
	}
	if c.endOfTable {
		return nil, nil
	}
	row, err := c.Row()
	if err != nil {
		return nil, err
	}
	if err := c.Advance(); err != nil {
		return nil, err
	}
	return row, nil
}

// SelectAll returns every row in ascending key order.
func (t *Table) SelectAll() ([]*Row, error) {
	var rows []*Row
	err := t.ScanAll(func(row *Row) error {
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Get returns the row with the given id, or ErrKeyNotFound.
func (t *Table) Get(id uint32) (*Row, error) {
	t.rwlock.Lock()
	defer t.rwlock.Unlock()

	c, err := t.find(id)
	if err != nil {
		return nil, err
	}
	defer c.release()
	if c.endOfTable {
		return nil, errors.Wrapf(ErrKeyNotFound, "id %d", id)
	}
	return c.Row()
}

func (t *Table) Stats() (Stats, error) {
	t.rwlock.Lock()
	defer t.rwlock.Unlock()

	root, err := t.rootLeaf()
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Pages:    t.pager.numPages,
		Cells:    root.numCells(),
		MaxCells: LeafNodeMaxCells,
		NodeType: root.nodeType(),
		Keys:     root.keys(),
	}, nil
}
