package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ParseSide normalizes a wire-format side string.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return SideBuy, nil
	case "sell":
		return SideSell, nil
	}
	return "", fmt.Errorf("%w: side must be \"buy\" or \"sell\"", ErrInvalidInput)
}

func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

type Status string

const (
	StatusOpen      Status = "open"
	StatusMatched   Status = "matched"
	StatusCancelled Status = "cancelled"
)

// Order is a resting or historical intent to trade WC against BTC.
// Quantity is the remaining WC amount and only ever shrinks while the order
// is open. UnitPrice is BTC per WC and is immutable once placed; repricing
// is cancel-and-replace only.
type Order struct {
	ID        string
	Owner     string
	Side      Side
	Quantity  float64
	UnitPrice float64
	Status    Status
	CreatedAt time.Time
}

// DisplayPrice is the order's price in WC per satoshi, rounded to the
// nearest whole unit. All book ordering and crossing comparisons happen
// in this unit.
func (o *Order) DisplayPrice() float64 {
	d, err := ToDisplayPrice(o.UnitPrice)
	if err != nil {
		return 0
	}
	return d
}

// Trade is an immutable record of one executed fill between two orders of
// opposite side and different owners.
type Trade struct {
	ID        string
	BuyerID   string
	SellerID  string
	AmountWC  decimal.Decimal
	TotalBTC  decimal.Decimal
	Status    string
	CreatedAt time.Time
}

// Fill pairs an aggressor quantity with one resting order for the duration
// of a single matching pass. Resting points at the fetched copy so callers
// can compute the post-fill remaining quantity.
type Fill struct {
	Resting *Order
	Amount  float64 // WC
	Price   float64 // internal BTC-per-WC price the fill executes at
	Value   float64 // Amount * Price, BTC
}
