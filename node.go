package leafdb

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

type NodeType uint8

const (
	NodeInternal NodeType = iota
	NodeLeaf
)

func (t NodeType) String() string {
	switch t {
	case NodeInternal:
		return "internal"
	case NodeLeaf:
		return "leaf"
	}
	return "unknown"
}

// Common node header layout.
const (
	nodeTypeSize         = 1
	nodeTypeOffset       = 0
	isRootSize           = 1
	isRootOffset         = nodeTypeOffset + nodeTypeSize
	parentPointerSize    = 4
	parentPointerOffset  = isRootOffset + isRootSize
	CommonNodeHeaderSize = nodeTypeSize + isRootSize + parentPointerSize
)

// Leaf node header layout.
const (
	leafNodeNumCellsSize   = 4
	leafNodeNumCellsOffset = CommonNodeHeaderSize
	LeafNodeHeaderSize     = CommonNodeHeaderSize + leafNodeNumCellsSize
)

// Leaf node body layout.
const (
	LeafNodeKeySize       = 4
	leafNodeKeyOffset     = 0
	LeafNodeValueSize     = RowSize
	leafNodeValueOffset   = leafNodeKeyOffset + LeafNodeKeySize
	LeafNodeCellSize      = LeafNodeKeySize + LeafNodeValueSize
	LeafNodeSpaceForCells = PageSize - LeafNodeHeaderSize

	// LeafNodeMaxCells = (4096 - 10) / 295 = 13
	LeafNodeMaxCells = LeafNodeSpaceForCells / LeafNodeCellSize
)

// leafNode is a view over one page interpreted as a leaf.
type leafNode []byte

func (n leafNode) nodeType() NodeType     { return NodeType(n[nodeTypeOffset]) }
func (n leafNode) setNodeType(t NodeType) { n[nodeTypeOffset] = byte(t) }

func (n leafNode) isRoot() bool { return n[isRootOffset] != 0 }

func (n leafNode) setRoot(root bool) {
	if root {
		n[isRootOffset] = 1
	} else {
		n[isRootOffset] = 0
	}
}

func (n leafNode) parent() uint32 {
	return binary.LittleEndian.Uint32(n[parentPointerOffset:])
}

func (n leafNode) setParent(pageNum uint32) {
	binary.LittleEndian.PutUint32(n[parentPointerOffset:], pageNum)
}

func (n leafNode) numCells() uint32 {
	return binary.LittleEndian.Uint32(n[leafNodeNumCellsOffset:])
}

func (n leafNode) setNumCells(num uint32) {
	binary.LittleEndian.PutUint32(n[leafNodeNumCellsOffset:], num)
}

func (n leafNode) initialize() {
	n.setNodeType(NodeLeaf)
	n.setRoot(false)
	n.setParent(0)
	n.setNumCells(0)
}

func (n leafNode) cell(cellNum uint32) []byte {
	offset := LeafNodeHeaderSize + cellNum*LeafNodeCellSize
	return n[offset : offset+LeafNodeCellSize]
}

func (n leafNode) key(cellNum uint32) uint32 {
	return binary.LittleEndian.Uint32(n.cell(cellNum)[leafNodeKeyOffset:])
}

func (n leafNode) setKey(cellNum uint32, key uint32) {
	binary.LittleEndian.PutUint32(n.cell(cellNum)[leafNodeKeyOffset:], key)
}

func (n leafNode) value(cellNum uint32) []byte {
	return n.cell(cellNum)[leafNodeValueOffset : leafNodeValueOffset+LeafNodeValueSize]
}

// locate binary searches the sorted cells. It returns the index of key when
// present, otherwise the first index whose key is greater.
func (n leafNode) locate(key uint32) (uint32, bool) {
	lo, hi := uint32(0), n.numCells()
	for lo != hi {
		mid := lo + (hi-lo)/2
		c := Uint32Comparator(key, n.key(mid))
		if c == 0 {
			return mid, true
		} else if c < 0 {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo, false
}

// insert places key and row at cellNum, shifting later cells right.
// There is no split: a full node is an error.
func (n leafNode) insert(cellNum uint32, key uint32, row *Row) error {
	num := n.numCells()
	if num >= LeafNodeMaxCells {
		return ErrNodeFull
	}
	if cellNum > num {
		return errors.Wrapf(ErrCellOutOfBounds, "insert at cell %d, node has %d", cellNum, num)
	}

	if cellNum < num {
		// Make room for new cell. copy handles the overlap.
		from := LeafNodeHeaderSize + cellNum*LeafNodeCellSize
		to := LeafNodeHeaderSize + num*LeafNodeCellSize
		copy(n[from+LeafNodeCellSize:to+LeafNodeCellSize], n[from:to])
	}

	n.setNumCells(num + 1)
	n.setKey(cellNum, key)
	row.MarshalTo(n.value(cellNum))
	return nil
}

func (n leafNode) keys() []uint32 {
	num := n.numCells()
	keys := make([]uint32, 0, num)
	for i := uint32(0); i < num; i++ {
		keys = append(keys, n.key(i))
	}
	return keys
}

// validate rejects a page that cannot be a node written by this package.
func (n leafNode) validate() error {
	switch n.nodeType() {
	case NodeLeaf:
		if num := n.numCells(); num > LeafNodeMaxCells {
			return errors.Wrapf(ErrCorruptFile, "leaf holds %d cells, max %d", num, LeafNodeMaxCells)
		}
		return nil
	case NodeInternal:
		return nil
	default:
		return errors.Wrapf(ErrCorruptFile, "unknown node type %d", n[nodeTypeOffset])
	}
}
