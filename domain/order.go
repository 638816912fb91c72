package domain

import "fmt"

// Side represents the book side an order rests on (Bid or Ask)
type Side int

const (
	SideBid Side = iota
	SideAsk
)

// String implements fmt.Stringer
func (s Side) String() string {
	switch s {
	case SideBid:
		return "bid"
	case SideAsk:
		return "ask"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}

// Valid reports whether s is one of the two book sides
func (s Side) Valid() bool {
	return s == SideBid || s == SideAsk
}

// Price is a fixed-point price expressed in ticks.
// Use ParsePrice / Price.Decimal to convert from and to decimal notation.
type Price int64

// Size is an order quantity in lots
type Size int64

// OrderID identifies an order uniquely across both sides of a book
type OrderID string

// Order is the book's record of a single resting order.
// Remaining is the only field that changes while the order rests.
type Order struct {
	ID        OrderID
	Side      Side
	Price     Price
	Remaining Size
}

// String implements fmt.Stringer
func (o Order) String() string {
	return fmt.Sprintf("%s %s %d@%d", o.ID, o.Side, o.Remaining, o.Price)
}
