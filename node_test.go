package leafdb

import (
	"testing"

	"github.com/pkg/errors"
	assertion "github.com/stretchr/testify/assert"
)

func newLeaf() leafNode {
	node := leafNode(make([]byte, PageSize))
	node.initialize()
	return node
}

func TestLeafConstants(t *testing.T) {
	assert := assertion.New(t)
	assert.Equal(6, CommonNodeHeaderSize)
	assert.Equal(10, LeafNodeHeaderSize)
	assert.Equal(295, LeafNodeCellSize)
	assert.Equal(4086, LeafNodeSpaceForCells)
	assert.Equal(13, LeafNodeMaxCells)
}

func TestLeafHeader(t *testing.T) {
	assert := assertion.New(t)
	node := newLeaf()
	assert.Equal(NodeLeaf, node.nodeType())
	assert.False(node.isRoot())
	assert.Equal(uint32(0), node.numCells())

	node.setRoot(true)
	node.setParent(7)
	node.setNumCells(3)
	assert.True(node.isRoot())
	assert.Equal(uint32(7), node.parent())
	assert.Equal(uint32(3), node.numCells())
	assert.Equal([]byte{1, 1, 7, 0, 0, 0, 3, 0, 0, 0}, []byte(node[:LeafNodeHeaderSize]))
}

func TestLeafInsertKeepsOrder(t *testing.T) {
	assert := assertion.New(t)
	node := newLeaf()
	for _, id := range []uint32{30, 10, 20, 5, 40} {
		idx, found := node.locate(id)
		assert.False(found)
		assert.NoError(node.insert(idx, id, mustRow(t, id, "user", "mail")))
	}
	assert.Equal([]uint32{5, 10, 20, 30, 40}, node.keys())

	for i, id := range node.keys() {
		row := &Row{}
		assert.NoError(row.Unmarshal(node.value(uint32(i))))
		assert.Equal(id, row.ID)
	}
}

func TestLeafLocate(t *testing.T) {
	assert := assertion.New(t)
	node := newLeaf()
	idx, found := node.locate(1)
	assert.Equal(uint32(0), idx)
	assert.False(found)

	for i, id := range []uint32{2, 4, 6, 8} {
		assert.NoError(node.insert(uint32(i), id, mustRow(t, id, "u", "e")))
	}
	cases := []struct {
		key   uint32
		idx   uint32
		found bool
	}{
		{1, 0, false},
		{2, 0, true},
		{3, 1, false},
		{6, 2, true},
		{8, 3, true},
		{9, 4, false},
	}
	for _, c := range cases {
		idx, found := node.locate(c.key)
		assert.Equal(c.idx, idx, "key %d", c.key)
		assert.Equal(c.found, found, "key %d", c.key)
	}
}

func TestLeafLocateUnsignedOrder(t *testing.T) {
	assert := assertion.New(t)
	node := newLeaf()
	for _, id := range []uint32{1 << 31, 1<<32 - 1, 1, 0} {
		idx, found := node.locate(id)
		assert.False(found)
		assert.NoError(node.insert(idx, id, mustRow(t, id, "u", "e")))
	}
	assert.Equal([]uint32{0, 1, 1 << 31, 1<<32 - 1}, node.keys())
	for i, id := range node.keys() {
		idx, found := node.locate(id)
		assert.True(found, "key %d", id)
		assert.Equal(uint32(i), idx)
	}
	idx, found := node.locate(1<<31 - 1)
	assert.False(found)
	assert.Equal(uint32(2), idx)
}

func TestLeafInsertFull(t *testing.T) {
	assert := assertion.New(t)
	node := newLeaf()
	for i := uint32(0); i < LeafNodeMaxCells; i++ {
		assert.NoError(node.insert(i, i, mustRow(t, i, "u", "e")))
	}
	err := node.insert(0, 100, mustRow(t, 100, "u", "e"))
	assert.True(errors.Is(err, ErrNodeFull))
	assert.Equal(uint32(LeafNodeMaxCells), node.numCells())
}

func TestLeafInsertOutOfBounds(t *testing.T) {
	assert := assertion.New(t)
	node := newLeaf()
	err := node.insert(1, 1, mustRow(t, 1, "u", "e"))
	assert.True(errors.Is(err, ErrCellOutOfBounds))
	assert.Equal(uint32(0), node.numCells())
}

func TestLeafValidate(t *testing.T) {
	assert := assertion.New(t)
	node := newLeaf()
	assert.NoError(node.validate())

	node.setNumCells(LeafNodeMaxCells + 1)
	assert.True(errors.Is(node.validate(), ErrCorruptFile))

	node.setNumCells(0)
	node[0] = 9
	assert.True(errors.Is(node.validate(), ErrCorruptFile))
}

func TestUint32Comparator(t *testing.T) {
	assert := assertion.New(t)
	assert.Equal(-1, Uint32Comparator(1, 2))
	assert.Equal(0, Uint32Comparator(2, 2))
	assert.Equal(1, Uint32Comparator(1<<32-1, 0))
}
