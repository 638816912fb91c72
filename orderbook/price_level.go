package orderbook

import (
	"sort"

	"levelbook/domain"
)

// PriceLevel aggregates every resting order at one price on one side.
// A level only exists while OrderCount > 0.
type PriceLevel struct {
	Price      domain.Price
	TotalSize  domain.Size
	OrderCount int
	orders     map[domain.OrderID]struct{}

	// neighbours in best-first order, only maintained by the list index
	next *PriceLevel
	prev *PriceLevel
}

func newPriceLevel(price domain.Price) *PriceLevel {
	return &PriceLevel{
		Price:  price,
		orders: make(map[domain.OrderID]struct{}),
	}
}

func (l *PriceLevel) add(id domain.OrderID, size domain.Size) {
	l.orders[id] = struct{}{}
	l.TotalSize += size
	l.OrderCount++
}

func (l *PriceLevel) remove(id domain.OrderID, size domain.Size) {
	delete(l.orders, id)
	l.TotalSize -= size
	l.OrderCount--
}

func (l *PriceLevel) contains(id domain.OrderID) bool {
	_, ok := l.orders[id]
	return ok
}

// Level is a read-only copy of a PriceLevel.
type Level struct {
	Price      domain.Price
	TotalSize  domain.Size
	OrderCount int
	OrderIDs   []domain.OrderID // sorted
}

func (l *PriceLevel) snapshot() Level {
	ids := make([]domain.OrderID, 0, len(l.orders))
	for id := range l.orders {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return Level{
		Price:      l.Price,
		TotalSize:  l.TotalSize,
		OrderCount: l.OrderCount,
		OrderIDs:   ids,
	}
}

// SideStats aggregates every level on one side of the book.
type SideStats struct {
	TotalSize  domain.Size
	TotalCount int
}
