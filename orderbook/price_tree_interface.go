package orderbook

import "levelbook/domain"

// PriceIndex is an ordered map from price to level for one side of the book.
// Iteration order is best price first: descending for bids, ascending for asks.
type PriceIndex interface {
	// Get returns the level at price
	Get(price domain.Price) (*PriceLevel, bool)

	// GetOrCreate returns the level at price, inserting an empty one if absent
	GetOrCreate(price domain.Price) *PriceLevel

	// Delete removes the level at price, if any
	Delete(price domain.Price)

	// Best returns the best level, nil when the side is empty
	Best() *PriceLevel

	// Walk visits levels best first until fn returns false
	Walk(fn func(*PriceLevel) bool)

	// Len returns the number of levels
	Len() int
}

// betterFunc returns whether price a ranks ahead of price b on a side.
func betterFunc(side domain.Side) func(a, b domain.Price) bool {
	if side == domain.SideBid {
		return func(a, b domain.Price) bool { return a > b }
	}
	return func(a, b domain.Price) bool { return a < b }
}
