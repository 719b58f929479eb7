package engine

import (
	"context"
	"fmt"
)

// MidPrice derives the reference price from the best bid and best ask of
// the given orders. Comparison happens in display units, where "better" is
// monotonic; the midpoint is then converted back to the internal unit.
// The second return is false when either side of the book is empty.
func MidPrice(orders []Order) (float64, bool) {
	book := newBookView(orders)

	bestBuy, ok := book.bestBuyDisplay()
	if !ok {
		return 0, false
	}
	bestSell, ok := book.bestSellDisplay()
	if !ok {
		return 0, false
	}

	internal, err := ToInternalPrice((bestBuy + bestSell) / 2)
	if err != nil {
		return 0, false
	}
	return internal, true
}

// CurrentPrice fetches the open book and returns the reference internal
// price, or ErrNoLiquidity when either side is empty.
func (e *Engine) CurrentPrice(ctx context.Context) (float64, error) {
	orders, err := e.store.OpenOrders(ctx, Filter{})
	if err != nil {
		return 0, fmt.Errorf("fetch open orders: %w", err)
	}
	price, ok := MidPrice(orders)
	if !ok {
		return 0, ErrNoLiquidity
	}
	return price, nil
}
