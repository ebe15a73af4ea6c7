package services

import (
	"math"

	"github.com/shopspring/decimal"
)

const (
	// DefaultTickSize is used when the market's tick size cannot be read.
	DefaultTickSize = 0.01
	// DefaultPrice is used when no usable price or midpoint is available.
	DefaultPrice = 0.5
	// MinOrderSize is the smallest quantity the relay submits.
	MinOrderSize = 5.0
)

/**
 * @description
 * RoundToTick snaps a price to the market's tick grid and clamps it inside the
 * tradable range.
 *
 * @param price The raw price. Non-finite input yields DefaultPrice.
 * @param tick The market tick size. Non-finite or non-positive input means DefaultTickSize.
 * @returns A multiple of tick (to 6 decimal places) in [tick, 1 - tick].
 *
 * @notes
 * - Ties round half away from zero.
 */
func RoundToTick(price, tick float64) float64 {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return DefaultPrice
	}
	if math.IsNaN(tick) || math.IsInf(tick, 0) || tick <= 0 {
		tick = DefaultTickSize
	}

	t := decimal.NewFromFloat(tick)
	rounded := decimal.NewFromFloat(price).Div(t).Round(0).Mul(t).Round(6)

	upper := decimal.NewFromInt(1).Sub(t)
	if rounded.GreaterThan(upper) {
		rounded = upper
	}
	if rounded.LessThan(t) {
		rounded = t
	}

	f, _ := rounded.Float64()
	return f
}
