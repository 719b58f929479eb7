package engine

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// SatoshiPerBTC is the number of satoshi in one bitcoin.
const SatoshiPerBTC = 100_000_000

const (
	// MinQuantity is the smallest tradable WC amount.
	MinQuantity = 0.01
	// MinDisplayPrice is the smallest placeable price in WC per satoshi.
	MinDisplayPrice = 1
)

// Persisted values are rounded to fixed precision so floating-point
// artifacts (trailing noise, scientific notation) never reach storage.
const (
	quantityPlaces = 8  // WC amounts
	valuePlaces    = 18 // BTC totals; internal prices sit around 1e-11
)

// ToDisplayPrice converts an internal BTC-per-WC price to the display unit,
// WC per satoshi, rounded to the nearest integer.
func ToDisplayPrice(internal float64) (float64, error) {
	if internal <= 0 || math.IsNaN(internal) || math.IsInf(internal, 0) {
		return 0, fmt.Errorf("%w: internal price %g", ErrInvalidPrice, internal)
	}
	return math.Round(1 / (internal * SatoshiPerBTC)), nil
}

// ToInternalPrice converts a WC-per-satoshi display price back to the
// internal BTC-per-WC storage unit. Exact inverse of ToDisplayPrice before
// rounding: ToDisplayPrice(ToInternalPrice(p)) == round(p) for all p > 0.
func ToInternalPrice(display float64) (float64, error) {
	if display <= 0 || math.IsNaN(display) || math.IsInf(display, 0) {
		return 0, fmt.Errorf("%w: display price %g", ErrInvalidPrice, display)
	}
	return (1 / display) / SatoshiPerBTC, nil
}

func roundQuantity(wc float64) decimal.Decimal {
	return decimal.NewFromFloat(wc).Round(quantityPlaces)
}

// normalizeQuantity snaps a requested WC amount to the persisted precision.
// Orders must enter the book already at 8 places; otherwise the remaining
// quantities computed at commit time can never equal the stored value and
// the order becomes unfillable.
func normalizeQuantity(wc float64) float64 {
	return roundQuantity(wc).InexactFloat64()
}

func roundValue(btc float64) decimal.Decimal {
	return decimal.NewFromFloat(btc).Round(valuePlaces)
}
