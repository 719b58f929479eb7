package engine

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
)

// MarketResult is the outcome of a fully-filled market order.
type MarketResult struct {
	Fills    []Fill
	TotalBTC float64 // counter-value across all fills
}

// ExecuteMarket fills a market order by walking the opposite side of the
// book, best price first. The decision is all-or-nothing: if the book
// cannot cover the requested quantity the operation fails with
// ErrInsufficientLiquidity and nothing is committed. Each accepted fill is
// then committed to storage independently.
func (e *Engine) ExecuteMarket(ctx context.Context, owner string, side Side, quantity float64) (*MarketResult, error) {
	if owner == "" {
		return nil, fmt.Errorf("%w: market order requires an owner", ErrUnauthenticated)
	}
	if side != SideBuy && side != SideSell {
		return nil, fmt.Errorf("%w: unknown side %q", ErrInvalidInput, string(side))
	}
	if quantity < MinQuantity || math.IsNaN(quantity) {
		return nil, fmt.Errorf("%w: quantity must be at least %.2f WC", ErrInvalidInput, MinQuantity)
	}
	quantity = normalizeQuantity(quantity)

	resting, err := e.store.OpenOrders(ctx, Filter{Side: side.Opposite()})
	if err != nil {
		return nil, fmt.Errorf("fetch open orders: %w", err)
	}
	if side == SideBuy {
		sortSellsBest(resting)
	} else {
		sortBuysBest(resting)
	}

	remaining := quantity
	totalBTC := 0.0
	fills := make([]Fill, 0, len(resting))
	for i := range resting {
		o := &resting[i]
		if o.Owner == owner {
			// self-trade prevention: skip but keep the order available
			// to other requesters
			continue
		}
		amt := math.Min(remaining, o.Quantity)
		fills = append(fills, Fill{
			Resting: o,
			Amount:  amt,
			Price:   o.UnitPrice,
			Value:   amt * o.UnitPrice,
		})
		remaining -= amt
		totalBTC += amt * o.UnitPrice
		if remaining <= 0 {
			break
		}
	}
	if remaining > 0 {
		return nil, ErrInsufficientLiquidity
	}

	// Validate the whole fill list before touching storage so a bad fill
	// cannot leave the order half-executed.
	for _, f := range fills {
		if roundValue(f.Value).IsZero() {
			return nil, fmt.Errorf("%w: fill value rounds to zero", ErrInvalidInput)
		}
	}

	for _, f := range fills {
		tf := TakerFill{
			RestingOrderID:   f.Resting.ID,
			TakerOwner:       owner,
			TakerSide:        side,
			Quantity:         roundQuantity(f.Amount),
			Value:            roundValue(f.Value),
			RestingRemaining: roundQuantity(f.Resting.Quantity - f.Amount),
		}
		if _, err := e.store.CommitTakerFill(ctx, tf); err != nil {
			return nil, fmt.Errorf("commit fill against order %s: %w", f.Resting.ID, err)
		}
	}

	e.log.Info("market order executed",
		zap.String("owner", owner),
		zap.String("side", string(side)),
		zap.Float64("quantity_wc", quantity),
		zap.Float64("total_btc", totalBTC),
		zap.Int("fills", len(fills)),
	)
	return &MarketResult{Fills: fills, TotalBTC: totalBTC}, nil
}
