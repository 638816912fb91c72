package orderbook

import "levelbook/domain"

// HashMapListPriceTree keeps levels in a hash map plus a doubly linked list
// in best-first order, with a direct pointer to the best level.
//
// Performance:
//   - Best: O(1), direct pointer access
//   - Get / Delete: O(1)
//   - GetOrCreate of a new price: O(n) worst case, walks the list from the best
//     level, cheap when new levels land near the top of the book
//
// It suits books with a few dozen levels; use the tree indexes beyond that.
type HashMapListPriceTree struct {
	levels map[domain.Price]*PriceLevel
	best   *PriceLevel
	better func(a, b domain.Price) bool
}

// Ensure HashMapListPriceTree implements PriceIndex
var _ PriceIndex = (*HashMapListPriceTree)(nil)

// NewHashMapListPriceTree creates a new HashMap+List price index
func NewHashMapListPriceTree(side domain.Side) *HashMapListPriceTree {
	return &HashMapListPriceTree{
		levels: make(map[domain.Price]*PriceLevel),
		better: betterFunc(side),
	}
}

func (pt *HashMapListPriceTree) Get(price domain.Price) (*PriceLevel, bool) {
	level, ok := pt.levels[price]
	return level, ok
}

func (pt *HashMapListPriceTree) GetOrCreate(price domain.Price) *PriceLevel {
	if level, ok := pt.levels[price]; ok {
		return level
	}
	level := newPriceLevel(price)
	pt.levels[price] = level
	pt.insertPriceLevel(level)
	return level
}

func (pt *HashMapListPriceTree) Delete(price domain.Price) {
	level, ok := pt.levels[price]
	if !ok {
		return
	}
	delete(pt.levels, price)

	if level.prev != nil {
		level.prev.next = level.next
	} else {
		pt.best = level.next
	}
	if level.next != nil {
		level.next.prev = level.prev
	}
	level.next = nil
	level.prev = nil
}

func (pt *HashMapListPriceTree) Best() *PriceLevel {
	return pt.best
}

func (pt *HashMapListPriceTree) Walk(fn func(*PriceLevel) bool) {
	for current := pt.best; current != nil; current = current.next {
		if !fn(current) {
			return
		}
	}
}

func (pt *HashMapListPriceTree) Len() int {
	return len(pt.levels)
}

// insertPriceLevel links a new level into the list
func (pt *HashMapListPriceTree) insertPriceLevel(newLevel *PriceLevel) {
	if pt.best == nil {
		pt.best = newLevel
		return
	}

	if pt.better(newLevel.Price, pt.best.Price) {
		newLevel.next = pt.best
		pt.best.prev = newLevel
		pt.best = newLevel
		return
	}

	// find insertion point
	current := pt.best
	for current.next != nil {
		if pt.better(newLevel.Price, current.next.Price) {
			break
		}
		current = current.next
	}

	newLevel.next = current.next
	newLevel.prev = current
	if current.next != nil {
		current.next.prev = newLevel
	}
	current.next = newLevel
}
