package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jelloshooter848/webcash-bitcoin-exchange/internal/engine"
	"github.com/jelloshooter848/webcash-bitcoin-exchange/internal/store"
)

func newTestEngine(t *testing.T) (*engine.Engine, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	return engine.New(st, zap.NewNop()), st
}

// seedOrder inserts an open limit order directly into the store, bypassing
// the lifecycle path so placement does not trigger auto-matching.
func seedOrder(t *testing.T, st *store.Memory, owner string, side engine.Side, qty, display float64, at time.Time) engine.Order {
	t.Helper()
	unit, err := engine.ToInternalPrice(display)
	if err != nil {
		t.Fatalf("ToInternalPrice(%g): %v", display, err)
	}
	o := engine.Order{
		ID:        uuid.NewString(),
		Owner:     owner,
		Side:      side,
		Quantity:  qty,
		UnitPrice: unit,
		Status:    engine.StatusOpen,
		CreatedAt: at,
	}
	if err := st.InsertOrder(context.Background(), &o); err != nil {
		t.Fatalf("InsertOrder: %v", err)
	}
	return o
}

func getOrder(t *testing.T, st *store.Memory, id string) engine.Order {
	t.Helper()
	o, err := st.GetOrder(context.Background(), id)
	if err != nil {
		t.Fatalf("GetOrder(%s): %v", id, err)
	}
	return o
}

func allTrades(t *testing.T, st *store.Memory) []engine.Trade {
	t.Helper()
	trades, err := st.RecentTrades(context.Background(), 100)
	if err != nil {
		t.Fatalf("RecentTrades: %v", err)
	}
	return trades
}
