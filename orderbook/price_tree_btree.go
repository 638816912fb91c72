package orderbook

import (
	"github.com/google/btree"

	"levelbook/domain"
)

// degree 32 keeps nodes within a couple of cache lines for pointer items
const btreeDegree = 32

// BTreePriceTree keeps levels in a B-tree ordered best first.
// Compared to the red-black tree it has better locality on deep books.
type BTreePriceTree struct {
	tree *btree.BTreeG[*PriceLevel]
}

// Ensure BTreePriceTree implements PriceIndex
var _ PriceIndex = (*BTreePriceTree)(nil)

func NewBTreePriceTree(side domain.Side) *BTreePriceTree {
	better := betterFunc(side)
	less := func(a, b *PriceLevel) bool {
		return better(a.Price, b.Price)
	}
	return &BTreePriceTree{
		tree: btree.NewG[*PriceLevel](btreeDegree, less),
	}
}

func (bt *BTreePriceTree) Get(price domain.Price) (*PriceLevel, bool) {
	return bt.tree.Get(&PriceLevel{Price: price})
}

func (bt *BTreePriceTree) GetOrCreate(price domain.Price) *PriceLevel {
	if level, found := bt.Get(price); found {
		return level
	}
	level := newPriceLevel(price)
	bt.tree.ReplaceOrInsert(level)
	return level
}

func (bt *BTreePriceTree) Delete(price domain.Price) {
	bt.tree.Delete(&PriceLevel{Price: price})
}

func (bt *BTreePriceTree) Best() *PriceLevel {
	level, found := bt.tree.Min()
	if !found {
		return nil
	}
	return level
}

func (bt *BTreePriceTree) Walk(fn func(*PriceLevel) bool) {
	bt.tree.Ascend(func(level *PriceLevel) bool {
		return fn(level)
	})
}

func (bt *BTreePriceTree) Len() int {
	return bt.tree.Len()
}
