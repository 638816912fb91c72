package orderbook

import "github.com/pkg/errors"

var (
	// ErrDuplicateOrderID signals an add for an id that is already resting.
	ErrDuplicateOrderID = errors.New("duplicate order id")
	// ErrInvalidArgument signals a negative price, a non-positive add or fill
	// size, a negative new size or an unknown side.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInconsistentState signals that the lookup and the price index disagree.
	ErrInconsistentState = errors.New("order book inconsistent")
)
