// Package refprice keeps the displayed reference price current. The price
// is re-derived from the open book after every state-changing action and
// pushed to notification subscribers.
package refprice

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/jelloshooter848/webcash-bitcoin-exchange/internal/engine"
	"github.com/jelloshooter848/webcash-bitcoin-exchange/internal/notify"
)

// Cache stores the latest reference price in memory.
type Cache struct {
	mu    sync.RWMutex
	price float64
	valid bool
}

func (c *Cache) Set(price float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.price = price
	c.valid = true
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.price = 0
	c.valid = false
}

func (c *Cache) Get() (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.price, c.valid
}

// Tracker recomputes the reference price via the engine's oracle and
// publishes the result.
type Tracker struct {
	eng   *engine.Engine
	cache Cache
	hub   *notify.Hub
	log   *zap.Logger
}

func NewTracker(eng *engine.Engine, hub *notify.Hub, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{eng: eng, hub: hub, log: log}
}

// Refresh recomputes the mid price from the current book, caches it, and
// broadcasts a price event. An empty side of the book clears the cache and
// announces the no-liquidity state.
func (t *Tracker) Refresh(ctx context.Context) {
	price, err := t.eng.CurrentPrice(ctx)
	switch {
	case errors.Is(err, engine.ErrNoLiquidity):
		t.cache.Clear()
		t.publish(notify.Event{Type: "price", Payload: map[string]any{"no_liquidity": true}})
	case err != nil:
		t.log.Warn("reference price refresh failed", zap.Error(err))
	default:
		t.cache.Set(price)
		display, convErr := engine.ToDisplayPrice(price)
		if convErr != nil {
			t.log.Warn("reference price conversion failed", zap.Error(convErr))
			return
		}
		t.publish(notify.Event{Type: "price", Payload: map[string]any{
			"price_btc":        price,
			"price_wc_per_sat": display,
		}})
	}
}

// Current returns the cached reference internal price, if any.
func (t *Tracker) Current() (float64, bool) {
	return t.cache.Get()
}

func (t *Tracker) publish(ev notify.Event) {
	if t.hub != nil {
		t.hub.Broadcast(ev)
	}
}
