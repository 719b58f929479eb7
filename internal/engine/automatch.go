package engine

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
)

// MatchReport summarizes one auto-match pass. Matched is true iff at least
// one fill was committed.
type MatchReport struct {
	Matched  bool
	Fills    int
	TotalWC  float64
	TotalBTC float64
}

// AvgDisplayPrice is the volume-weighted price of the pass in WC per
// satoshi, or 0 if nothing traded.
func (r MatchReport) AvgDisplayPrice() float64 {
	if r.TotalBTC <= 0 {
		return 0
	}
	return math.Round(r.TotalWC / (r.TotalBTC * SatoshiPerBTC))
}

// workingSet tracks per-order remaining quantities during one pass so the
// walk sees its own fills without mutating the fetched records.
type workingSet map[string]float64

func newWorkingSet(orders []Order) workingSet {
	ws := make(workingSet, len(orders))
	for _, o := range orders {
		ws[o.ID] = o.Quantity
	}
	return ws
}

// AutoMatch scans the whole open book for crossed limit orders and executes
// every possible match, walking multiple counter-orders per order. The pass
// is non-reentrant: if another pass holds the book token this call returns
// immediately with an empty report and no side effects.
//
// A commit that does not report unambiguous success fails the pass with
// ErrMatchExecutionFailed. Fills committed earlier in the pass stay
// committed; there is no compensating rollback. Re-invoking is safe because
// a fresh pass re-reads current state.
func (e *Engine) AutoMatch(ctx context.Context) (MatchReport, error) {
	if !e.matchMu.TryLock() {
		return MatchReport{}, nil
	}
	defer e.matchMu.Unlock()

	orders, err := e.store.OpenOrders(ctx, Filter{})
	if err != nil {
		return MatchReport{}, fmt.Errorf("fetch open orders: %w", err)
	}

	book := newBookView(orders)
	book.sortBestFirst()
	remaining := newWorkingSet(orders)

	var report MatchReport
	for bi := range book.buys {
		buy := &book.buys[bi]
		for si := range book.sells {
			sell := &book.sells[si]
			if remaining[buy.ID] <= 0 {
				break
			}
			if remaining[sell.ID] <= 0 {
				// consumed earlier in this pass
				continue
			}
			if sell.Owner == buy.Owner {
				continue
			}
			if buy.DisplayPrice() < sell.DisplayPrice() {
				// sells ascend: nothing further can cross this buy
				break
			}

			amt := math.Min(remaining[buy.ID], remaining[sell.ID])
			remaining[buy.ID] -= amt
			remaining[sell.ID] -= amt

			res, err := e.commitCrossed(ctx, buy, sell, amt, remaining[buy.ID])
			if err != nil {
				return report, fmt.Errorf("%w: buy %s / sell %s: %w",
					ErrMatchExecutionFailed, buy.ID, sell.ID, err)
			}

			report.Matched = true
			report.Fills++
			report.TotalWC += amt
			report.TotalBTC += amt * sell.UnitPrice
			e.log.Debug("auto-match fill committed",
				zap.String("trade_id", res.TradeID),
				zap.String("buy_order", buy.ID),
				zap.String("sell_order", sell.ID),
				zap.Float64("amount_wc", amt),
			)
		}
	}

	if report.Matched {
		e.log.Info("auto-match pass complete",
			zap.Int("fills", report.Fills),
			zap.Float64("total_wc", report.TotalWC),
			zap.Float64("total_btc", report.TotalBTC),
			zap.Float64("avg_wc_per_sat", report.AvgDisplayPrice()),
		)
	}
	return report, nil
}

// commitCrossed applies one crossed-pair fill. The sell order is re-read
// first and the committed remaining quantity recomputed from its current
// persisted value: another actor may have consumed part of it since the
// book fetch, and the store's compare-and-swap contract settles the race.
// The fill executes at the sell order's unit price.
func (e *Engine) commitCrossed(ctx context.Context, buy, sell *Order, amt, buyRemaining float64) (CommitResult, error) {
	fresh, err := e.store.GetOrder(ctx, sell.ID)
	if err != nil {
		return CommitResult{}, err
	}
	if fresh.Status != StatusOpen || fresh.Quantity < amt {
		return CommitResult{}, fmt.Errorf("%w: sell order %s has %.8f WC left",
			ErrStaleQuantity, sell.ID, fresh.Quantity)
	}

	value := roundValue(amt * sell.UnitPrice)
	if value.IsZero() {
		return CommitResult{}, fmt.Errorf("%w: fill value rounds to zero", ErrInvalidInput)
	}

	return e.store.CommitFill(ctx, FillCommit{
		BuyOrderID:    buy.ID,
		SellOrderID:   sell.ID,
		Quantity:      roundQuantity(amt),
		Value:         value,
		BuyRemaining:  roundQuantity(buyRemaining),
		SellRemaining: roundQuantity(fresh.Quantity - amt),
	})
}
