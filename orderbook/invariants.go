package orderbook

import (
	"github.com/pkg/errors"

	"levelbook/domain"
)

// CheckInvariants walks the whole book and verifies that the order lookup,
// the price levels and the side aggregates agree. It returns an error
// wrapping ErrInconsistentState describing the first violation found.
//
// It is O(orders + levels) and meant for tests, replays and periodic audits,
// not for the update path.
func (ob *OrderBook) CheckInvariants() error {
	seen := 0
	for _, side := range []domain.Side{domain.SideBid, domain.SideAsk} {
		n, err := ob.checkSide(side)
		if err != nil {
			return err
		}
		seen += n
	}
	if seen != len(ob.orders) {
		return errors.Wrapf(ErrInconsistentState,
			"%d orders in lookup, %d on levels", len(ob.orders), seen)
	}
	return nil
}

func (ob *OrderBook) checkSide(side domain.Side) (int, error) {
	index, stats := ob.sideOf(side)
	better := betterFunc(side)

	var (
		err        error
		prev       *PriceLevel
		levels     int
		totalSize  domain.Size
		totalCount int
	)
	index.Walk(func(level *PriceLevel) bool {
		levels++
		if prev != nil && !better(prev.Price, level.Price) {
			err = errors.Wrapf(ErrInconsistentState,
				"%s level %d out of order after %d", side, level.Price, prev.Price)
			return false
		}
		prev = level

		if level.OrderCount <= 0 {
			err = errors.Wrapf(ErrInconsistentState, "%s level %d is empty", side, level.Price)
			return false
		}
		if level.OrderCount != len(level.orders) {
			err = errors.Wrapf(ErrInconsistentState, "%s level %d counts %d orders, holds %d",
				side, level.Price, level.OrderCount, len(level.orders))
			return false
		}

		var size domain.Size
		for id := range level.orders {
			order, exists := ob.orders[id]
			if !exists {
				err = errors.Wrapf(ErrInconsistentState,
					"%s level %d holds unknown order %s", side, level.Price, id)
				return false
			}
			if order.Side != side || order.Price != level.Price {
				err = errors.Wrapf(ErrInconsistentState,
					"order %s rests on %s %d but records %s %d", id, side, level.Price, order.Side, order.Price)
				return false
			}
			if order.Remaining < 0 {
				err = errors.Wrapf(ErrInconsistentState, "order %s has negative size %d", id, order.Remaining)
				return false
			}
			size += order.Remaining
		}
		if size != level.TotalSize {
			err = errors.Wrapf(ErrInconsistentState, "%s level %d totals %d, orders sum to %d",
				side, level.Price, level.TotalSize, size)
			return false
		}

		totalSize += level.TotalSize
		totalCount += level.OrderCount
		return true
	})
	if err != nil {
		return 0, err
	}

	if levels != index.Len() {
		return 0, errors.Wrapf(ErrInconsistentState, "%s index reports %d levels, walked %d",
			side, index.Len(), levels)
	}
	if totalSize != stats.TotalSize || totalCount != stats.TotalCount {
		return 0, errors.Wrapf(ErrInconsistentState, "%s stats %d/%d, levels sum to %d/%d",
			side, stats.TotalSize, stats.TotalCount, totalSize, totalCount)
	}
	return totalCount, nil
}
