package orderbook

import (
	"github.com/pkg/errors"

	"levelbook/domain"
)

// PriceIndexType selects the PriceIndex implementation
type PriceIndexType int

const (
	// RedBlackTreeType gods red-black tree: O(log n) everywhere, O(1) best level.
	// Default.
	RedBlackTreeType PriceIndexType = iota

	// BTreeType google/btree B-tree: O(log n), better locality on deep books.
	BTreeType

	// HashMapListType hash map + doubly linked list: O(1) lookup and best level,
	// O(n) insert of a new price. Suited to shallow books.
	HashMapListType
)

func (t PriceIndexType) String() string {
	switch t {
	case BTreeType:
		return "btree"
	case HashMapListType:
		return "list"
	default:
		return "rbtree"
	}
}

// ParsePriceIndexType maps a config value to a PriceIndexType
func ParsePriceIndexType(s string) (PriceIndexType, error) {
	switch s {
	case "", "rbtree":
		return RedBlackTreeType, nil
	case "btree":
		return BTreeType, nil
	case "list":
		return HashMapListType, nil
	default:
		return RedBlackTreeType, errors.Errorf("unknown price index %q", s)
	}
}

// NewPriceIndex creates an empty price index for one side of the book
func NewPriceIndex(indexType PriceIndexType, side domain.Side) PriceIndex {
	switch indexType {
	case BTreeType:
		return NewBTreePriceTree(side)
	case HashMapListType:
		return NewHashMapListPriceTree(side)
	case RedBlackTreeType:
		fallthrough
	default:
		return NewRedBlackPriceTree(side)
	}
}
