package domain

import (
	"math"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNegativePrice signals a price below zero.
	ErrNegativePrice = errors.New("negative price")
	// ErrPricePrecision signals a price with more decimals than the tick allows.
	ErrPricePrecision = errors.New("price precision exceeds tick size")
	// ErrPriceOverflow signals a price whose tick count does not fit in a Price.
	ErrPriceOverflow = errors.New("price out of range")
)

var maxTicks = decimal.NewFromInt(math.MaxInt64)

// ParsePrice converts a decimal string into ticks, where one tick is 10^-decimals.
// "101.25" with decimals=2 becomes Price(10125).
func ParsePrice(s string, decimals int32) (Price, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid price %q", s)
	}
	return PriceFromDecimal(d, decimals)
}

// PriceFromDecimal converts a decimal value into ticks.
func PriceFromDecimal(d decimal.Decimal, decimals int32) (Price, error) {
	if d.IsNegative() {
		return 0, errors.Wrapf(ErrNegativePrice, "price %s", d)
	}
	ticks := d.Shift(decimals)
	if !ticks.Equal(ticks.Truncate(0)) {
		return 0, errors.Wrapf(ErrPricePrecision, "price %s with %d decimals", d, decimals)
	}
	if ticks.GreaterThan(maxTicks) {
		return 0, errors.Wrapf(ErrPriceOverflow, "price %s with %d decimals", d, decimals)
	}
	return Price(ticks.IntPart()), nil
}

// Decimal returns the price in decimal notation.
func (p Price) Decimal(decimals int32) decimal.Decimal {
	return decimal.New(int64(p), -decimals)
}
