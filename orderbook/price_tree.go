package orderbook

import (
	rbt "github.com/emirpasic/gods/v2/trees/redblacktree"

	"levelbook/domain"
)

// RedBlackPriceTree keeps levels in a red-black tree ordered best first.
//
// Performance:
//   - Get / GetOrCreate / Delete: O(log n)
//   - Best: O(1), the left-most node is cached on every structural change
type RedBlackPriceTree struct {
	tree *rbt.Tree[domain.Price, *PriceLevel]
	best *PriceLevel
}

// Ensure RedBlackPriceTree implements PriceIndex
var _ PriceIndex = (*RedBlackPriceTree)(nil)

// NewRedBlackPriceTree creates an empty tree for one side of the book
func NewRedBlackPriceTree(side domain.Side) *RedBlackPriceTree {
	var comparator func(a, b domain.Price) int
	if side == domain.SideBid {
		// bids: high to low
		comparator = func(a, b domain.Price) int {
			if a > b {
				return -1
			} else if a < b {
				return 1
			}
			return 0
		}
	} else {
		// asks: low to high
		comparator = func(a, b domain.Price) int {
			if a < b {
				return -1
			} else if a > b {
				return 1
			}
			return 0
		}
	}

	return &RedBlackPriceTree{
		tree: rbt.NewWith[domain.Price, *PriceLevel](comparator),
	}
}

func (pt *RedBlackPriceTree) Get(price domain.Price) (*PriceLevel, bool) {
	return pt.tree.Get(price)
}

func (pt *RedBlackPriceTree) GetOrCreate(price domain.Price) *PriceLevel {
	if level, found := pt.tree.Get(price); found {
		return level
	}
	level := newPriceLevel(price)
	pt.tree.Put(price, level)
	pt.updateBest()
	return level
}

func (pt *RedBlackPriceTree) Delete(price domain.Price) {
	if _, found := pt.tree.Get(price); !found {
		return
	}
	pt.tree.Remove(price)
	pt.updateBest()
}

func (pt *RedBlackPriceTree) Best() *PriceLevel {
	return pt.best
}

func (pt *RedBlackPriceTree) Walk(fn func(*PriceLevel) bool) {
	it := pt.tree.Iterator()
	for it.Next() {
		if !fn(it.Value()) {
			return
		}
	}
}

func (pt *RedBlackPriceTree) Len() int {
	return pt.tree.Size()
}

// updateBest re-reads the left-most node, which is the best level
func (pt *RedBlackPriceTree) updateBest() {
	node := pt.tree.Left()
	if node == nil {
		pt.best = nil
		return
	}
	pt.best = node.Value
}
