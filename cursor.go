package leafdb

import "github.com/pkg/errors"

// Cursor is a position in the index: a page, a cell within it, and whether
// it is past the last cell. Only one cursor may be open on a table; the
// table rejects inserts and scans until it is closed.
type Cursor struct {
	table      *Table
	pageNum    uint32
	cellNum    uint32
	endOfTable bool
	closed     bool
}

// Start positions a cursor at the first cell of the table.
func (t *Table) Start() (*Cursor, error) {
	t.rwlock.Lock()
	defer t.rwlock.Unlock()
	return t.start()
}

// End positions a cursor one past the last cell, the append point.
func (t *Table) End() (*Cursor, error) {
	t.rwlock.Lock()
	defer t.rwlock.Unlock()
	return t.end()
}

// Seek positions a cursor at key, or at the cell where key would be
// inserted. EndOfTable reports whether key was absent.
func (t *Table) Seek(key uint32) (*Cursor, error) {
	t.rwlock.Lock()
	defer t.rwlock.Unlock()
	return t.find(key)
}

func (t *Table) start() (*Cursor, error) {
	root, err := t.rootLeaf()
	if err != nil {
		return nil, err
	}
	c, err := t.acquireCursor()
	if err != nil {
		return nil, err
	}
	c.pageNum = t.rootPageNum
	c.cellNum = 0
	c.endOfTable = root.numCells() == 0
	return c, nil
}

func (t *Table) end() (*Cursor, error) {
	root, err := t.rootLeaf()
	if err != nil {
		return nil, err
	}
	c, err := t.acquireCursor()
	if err != nil {
		return nil, err
	}
	c.pageNum = t.rootPageNum
	c.cellNum = root.numCells()
	c.endOfTable = true
	return c, nil
}

func (t *Table) find(key uint32) (*Cursor, error) {
	root, err := t.rootLeaf()
	if err != nil {
		return nil, err
	}
	if root.nodeType() != NodeLeaf {
		return nil, errors.Wrap(ErrUnimplemented, "searching an internal node")
	}
	c, err := t.acquireCursor()
	if err != nil {
		return nil, err
	}
	cellNum, found := root.locate(key)
	c.pageNum = t.rootPageNum
	c.cellNum = cellNum
	c.endOfTable = !found
	return c, nil
}

func (t *Table) acquireCursor() (*Cursor, error) {
	if t.cursor != nil {
		return nil, ErrCursorActive
	}
	t.cursor = &Cursor{table: t}
	return t.cursor, nil
}

func (c *Cursor) node() (leafNode, error) {
	if c.closed {
		return nil, errors.New("cursor closed")
	}
	page, err := c.table.pager.getPage(c.pageNum)
	if err != nil {
		return nil, err
	}
	return leafNode(page), nil
}

// Value returns the encoded row at the cursor for rewriting in place. The
// slice aliases the cached page, which is marked dirty; use Row to read.
// Cells are added with Table.Insert, so a cursor past the last cell has no
// value.
func (c *Cursor) Value() ([]byte, error) {
	node, err := c.node()
	if err != nil {
		return nil, err
	}
	if c.cellNum >= node.numCells() {
		return nil, errors.Wrapf(ErrCellOutOfBounds, "cell %d, node has %d", c.cellNum, node.numCells())
	}
	c.table.pager.markDirty(c.pageNum)
	return node.value(c.cellNum), nil
}

func (c *Cursor) Key() (uint32, error) {
	node, err := c.node()
	if err != nil {
		return 0, err
	}
	if c.cellNum >= node.numCells() {
		return 0, errors.Wrapf(ErrCellOutOfBounds, "cell %d, node has %d", c.cellNum, node.numCells())
	}
	return node.key(c.cellNum), nil
}

// Row decodes the row at the cursor.
func (c *Cursor) Row() (*Row, error) {
	node, err := c.node()
	if err != nil {
		return nil, err
	}
	if c.cellNum >= node.numCells() {
		return nil, errors.Wrapf(ErrCellOutOfBounds, "cell %d, node has %d", c.cellNum, node.numCells())
	}
	row := &Row{}
	if err := row.Unmarshal(node.value(c.cellNum)); err != nil {
		return nil, err
	}
	return row, nil
}

func (c *Cursor) Advance() error {
	node, err := c.node()
	if err != nil {
		return err
	}
	c.cellNum++
	if c.cellNum >= node.numCells() {
		c.endOfTable = true
	}
	return nil
}

func (c *Cursor) EndOfTable() bool { return c.endOfTable }
func (c *Cursor) PageNum() uint32  { return c.pageNum }
func (c *Cursor) CellNum() uint32  { return c.cellNum }

// Close releases the cursor so the table accepts other operations.
func (c *Cursor) Close() {
	c.table.rwlock.Lock()
	defer c.table.rwlock.Unlock()
	c.release()
}

func (c *Cursor) release() {
	if c.closed {
		return
	}
	c.closed = true
	if c.table.cursor == c {
		c.table.cursor = nil
	}
}
