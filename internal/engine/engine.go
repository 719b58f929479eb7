package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Engine is the matching core for the WC/BTC book. It is logic over data
// fetched from and committed to the Store; it holds no book state of its
// own and re-reads current state at the start of every pass.
type Engine struct {
	store Store
	log   *zap.Logger

	// matchMu is the per-book auto-match token. A pass makes multiple
	// sequential store calls; overlapping passes could double-fill a
	// resting order, so a second pass must bail out instead of waiting.
	matchMu sync.Mutex
}

func New(store Store, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{store: store, log: log}
}

// OpenBook returns the current open orders, newest first, for display.
func (e *Engine) OpenBook(ctx context.Context) ([]Order, error) {
	orders, err := e.store.OpenOrders(ctx, Filter{})
	if err != nil {
		return nil, fmt.Errorf("fetch open orders: %w", err)
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}
