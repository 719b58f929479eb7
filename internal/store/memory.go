// Package store provides the storage collaborators the matching engine
// commits to: a Postgres implementation for production and an in-memory
// implementation with identical compare-and-swap semantics for tests and
// the demo binary.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jelloshooter848/webcash-bitcoin-exchange/internal/engine"
)

const tradeStatusComplete = "complete"

// Memory is an in-memory engine.Store. Every commit takes the store lock,
// so commits are atomic with respect to each other exactly like the
// single-transaction Postgres implementation.
type Memory struct {
	mu     sync.Mutex
	orders map[string]*engine.Order
	trades []engine.Trade
}

func NewMemory() *Memory {
	return &Memory{orders: make(map[string]*engine.Order)}
}

func (m *Memory) InsertOrder(ctx context.Context, o *engine.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.orders[o.ID]; exists {
		return fmt.Errorf("order %s already exists", o.ID)
	}
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *Memory) OpenOrders(ctx context.Context, f engine.Filter) ([]engine.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []engine.Order
	for _, o := range m.orders {
		if o.Status != engine.StatusOpen {
			continue
		}
		if f.Side != "" && o.Side != f.Side {
			continue
		}
		if f.Owner != "" && o.Owner != f.Owner {
			continue
		}
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) GetOrder(ctx context.Context, id string) (engine.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return engine.Order{}, engine.ErrOrderNotFound
	}
	return *o, nil
}

func (m *Memory) CommitFill(ctx context.Context, fc engine.FillCommit) (engine.CommitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !fc.Quantity.IsPositive() || !fc.Value.IsPositive() {
		return engine.CommitResult{}, fmt.Errorf("%w: fill must have positive amount and value", engine.ErrInvalidInput)
	}

	buy, err := m.openOrderLocked(fc.BuyOrderID)
	if err != nil {
		return engine.CommitResult{}, err
	}
	sell, err := m.openOrderLocked(fc.SellOrderID)
	if err != nil {
		return engine.CommitResult{}, err
	}
	if buy.Owner == sell.Owner {
		return engine.CommitResult{}, fmt.Errorf("%w: buyer and seller are the same party", engine.ErrInvalidInput)
	}

	if !quantityMatches(buy.Quantity, fc.BuyRemaining, fc.Quantity) {
		return engine.CommitResult{}, fmt.Errorf("%w: order %s", engine.ErrStaleQuantity, buy.ID)
	}
	if !quantityMatches(sell.Quantity, fc.SellRemaining, fc.Quantity) {
		return engine.CommitResult{}, fmt.Errorf("%w: order %s", engine.ErrStaleQuantity, sell.ID)
	}

	applyRemaining(buy, fc.BuyRemaining)
	applyRemaining(sell, fc.SellRemaining)
	trade := m.recordTradeLocked(buy.Owner, sell.Owner, fc.Quantity, fc.Value)

	return engine.CommitResult{TradeID: trade.ID, Buy: *buy, Sell: *sell}, nil
}

func (m *Memory) CommitTakerFill(ctx context.Context, tf engine.TakerFill) (engine.TakerCommitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !tf.Quantity.IsPositive() || !tf.Value.IsPositive() {
		return engine.TakerCommitResult{}, fmt.Errorf("%w: fill must have positive amount and value", engine.ErrInvalidInput)
	}

	resting, err := m.openOrderLocked(tf.RestingOrderID)
	if err != nil {
		return engine.TakerCommitResult{}, err
	}
	if resting.Owner == tf.TakerOwner {
		return engine.TakerCommitResult{}, fmt.Errorf("%w: buyer and seller are the same party", engine.ErrInvalidInput)
	}
	if !quantityMatches(resting.Quantity, tf.RestingRemaining, tf.Quantity) {
		return engine.TakerCommitResult{}, fmt.Errorf("%w: order %s", engine.ErrStaleQuantity, resting.ID)
	}

	applyRemaining(resting, tf.RestingRemaining)

	buyer, seller := tf.TakerOwner, resting.Owner
	if tf.TakerSide == engine.SideSell {
		buyer, seller = resting.Owner, tf.TakerOwner
	}
	trade := m.recordTradeLocked(buyer, seller, tf.Quantity, tf.Value)

	return engine.TakerCommitResult{TradeID: trade.ID, Resting: *resting}, nil
}

func (m *Memory) CancelOrder(ctx context.Context, id, owner string) (engine.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Owner != owner || o.Status != engine.StatusOpen {
		return engine.Order{}, engine.ErrOrderNotFound
	}
	o.Status = engine.StatusCancelled
	return *o, nil
}

func (m *Memory) RecentTrades(ctx context.Context, limit int) ([]engine.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]engine.Trade, 0, limit)
	for i := len(m.trades) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.trades[i])
	}
	return out, nil
}

func (m *Memory) openOrderLocked(id string) (*engine.Order, error) {
	o, ok := m.orders[id]
	if !ok || o.Status != engine.StatusOpen {
		return nil, fmt.Errorf("%w: %s", engine.ErrOrderNotFound, id)
	}
	return o, nil
}

func (m *Memory) recordTradeLocked(buyer, seller string, amount, total decimal.Decimal) engine.Trade {
	trade := engine.Trade{
		ID:        uuid.NewString(),
		BuyerID:   buyer,
		SellerID:  seller,
		AmountWC:  amount,
		TotalBTC:  total,
		Status:    tradeStatusComplete,
		CreatedAt: time.Now().UTC(),
	}
	m.trades = append(m.trades, trade)
	return trade
}

// quantityMatches is the compare-and-swap predicate, the same exact
// decimal equality the Postgres UPDATE expresses as amount_wc = $2 + $3.
func quantityMatches(stored float64, remaining, qty decimal.Decimal) bool {
	return decimal.NewFromFloat(stored).Equal(remaining.Add(qty))
}

// applyRemaining writes the post-fill quantity and closes the order when
// nothing is left: quantity 0 and status open may never coexist.
func applyRemaining(o *engine.Order, remaining decimal.Decimal) {
	if remaining.IsZero() {
		o.Quantity = 0
		o.Status = engine.StatusMatched
		return
	}
	o.Quantity = remaining.InexactFloat64()
}
