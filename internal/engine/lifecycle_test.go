package engine_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/jelloshooter848/webcash-bitcoin-exchange/internal/engine"
)

func TestPlaceLimitValidation(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		owner   string
		side    engine.Side
		qty     float64
		price   float64
		wantErr error
	}{
		{"no owner", "", engine.SideSell, 10, 600, engine.ErrUnauthenticated},
		{"unknown side", "alice", engine.Side("short"), 10, 600, engine.ErrInvalidInput},
		{"tiny quantity", "alice", engine.SideSell, 0.005, 600, engine.ErrInvalidInput},
		{"negative quantity", "alice", engine.SideSell, -1, 600, engine.ErrInvalidInput},
		{"price below one", "alice", engine.SideSell, 10, 0.5, engine.ErrInvalidInput},
		{"zero price", "alice", engine.SideSell, 10, 0, engine.ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := eng.PlaceLimit(ctx, tc.owner, tc.side, tc.qty, tc.price)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestPlaceLimitStoresConvertedPrice(t *testing.T) {
	eng, st := newTestEngine(t)

	placed, err := eng.PlaceLimit(context.Background(), "alice", engine.SideSell, 100, 600)
	if err != nil {
		t.Fatalf("PlaceLimit: %v", err)
	}

	o := getOrder(t, st, placed.OrderID)
	want, _ := engine.ToInternalPrice(600)
	if math.Abs(o.UnitPrice-want) > 1e-24 {
		t.Errorf("unit price: got %g, want %g", o.UnitPrice, want)
	}
	if o.DisplayPrice() != 600 {
		t.Errorf("display price: got %g, want 600", o.DisplayPrice())
	}
	if o.Status != engine.StatusOpen || o.Quantity != 100 {
		t.Errorf("order state: %s/%g", o.Status, o.Quantity)
	}
}

func TestPlaceLimitNormalizesQuantity(t *testing.T) {
	eng, st := newTestEngine(t)

	// 9 decimal places in, 8 out: storage precision is 8 places and an
	// order placed beyond it could never satisfy the commit-time
	// quantity check.
	placed, err := eng.PlaceLimit(context.Background(), "alice", engine.SideSell, 0.123456785, 600)
	if err != nil {
		t.Fatalf("PlaceLimit: %v", err)
	}
	if o := getOrder(t, st, placed.OrderID); o.Quantity != 0.12345679 {
		t.Errorf("stored quantity: got %.10f, want 0.12345679", o.Quantity)
	}
}

func TestPlaceLimitTriggersAutoMatch(t *testing.T) {
	eng, st := newTestEngine(t)
	ctx := context.Background()

	first, err := eng.PlaceLimit(ctx, "alice", engine.SideSell, 1000, 600)
	if err != nil {
		t.Fatalf("place sell: %v", err)
	}
	if first.Match.Matched {
		t.Error("lone sell matched against an empty book")
	}

	second, err := eng.PlaceLimit(ctx, "bob", engine.SideBuy, 500, 800)
	if err != nil {
		t.Fatalf("place buy: %v", err)
	}
	if !second.Match.Matched || second.Match.Fills != 1 {
		t.Fatalf("crossing placement: matched=%v fills=%d", second.Match.Matched, second.Match.Fills)
	}

	if o := getOrder(t, st, first.OrderID); o.Quantity != 500 {
		t.Errorf("resting sell after match: qty %g, want 500", o.Quantity)
	}
	if o := getOrder(t, st, second.OrderID); o.Status != engine.StatusMatched {
		t.Errorf("crossing buy: status %s, want matched", o.Status)
	}
}

func TestPlaceLimitRestsWhenNotCrossed(t *testing.T) {
	eng, st := newTestEngine(t)
	ctx := context.Background()

	if _, err := eng.PlaceLimit(ctx, "alice", engine.SideSell, 1000, 1000); err != nil {
		t.Fatalf("place sell: %v", err)
	}
	placed, err := eng.PlaceLimit(ctx, "bob", engine.SideBuy, 500, 800)
	if err != nil {
		t.Fatalf("place buy: %v", err)
	}
	if placed.Match.Matched {
		t.Error("uncrossed placement reported a match")
	}

	open, err := st.OpenOrders(ctx, engine.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 2 {
		t.Errorf("open orders: got %d, want 2", len(open))
	}
}

func TestCancelLifecycle(t *testing.T) {
	eng, st := newTestEngine(t)
	ctx := context.Background()

	placed, err := eng.PlaceLimit(ctx, "alice", engine.SideSell, 100, 600)
	if err != nil {
		t.Fatalf("PlaceLimit: %v", err)
	}

	// wrong owner is a miss, not an error
	if ok, err := eng.Cancel(ctx, placed.OrderID, "mallory"); err != nil || ok {
		t.Errorf("cancel by wrong owner: ok=%v err=%v", ok, err)
	}

	if ok, err := eng.Cancel(ctx, placed.OrderID, "alice"); err != nil || !ok {
		t.Fatalf("cancel by owner: ok=%v err=%v", ok, err)
	}
	if o := getOrder(t, st, placed.OrderID); o.Status != engine.StatusCancelled {
		t.Errorf("status after cancel: %s", o.Status)
	}

	// idempotent from the caller's perspective: a second cancel is a miss
	if ok, err := eng.Cancel(ctx, placed.OrderID, "alice"); err != nil || ok {
		t.Errorf("second cancel: ok=%v err=%v", ok, err)
	}

	if ok, err := eng.Cancel(ctx, "no-such-order", "alice"); err != nil || ok {
		t.Errorf("cancel missing order: ok=%v err=%v", ok, err)
	}

	if _, err := eng.Cancel(ctx, placed.OrderID, ""); !errors.Is(err, engine.ErrUnauthenticated) {
		t.Errorf("cancel without owner: want ErrUnauthenticated, got %v", err)
	}
}

func TestCancelledOrdersNeverMatch(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	sell, err := eng.PlaceLimit(ctx, "alice", engine.SideSell, 1000, 600)
	if err != nil {
		t.Fatal(err)
	}
	if ok, err := eng.Cancel(ctx, sell.OrderID, "alice"); err != nil || !ok {
		t.Fatalf("cancel: ok=%v err=%v", ok, err)
	}

	buy, err := eng.PlaceLimit(ctx, "bob", engine.SideBuy, 500, 800)
	if err != nil {
		t.Fatal(err)
	}
	if buy.Match.Matched {
		t.Error("buy matched against a cancelled sell")
	}
}

func TestCurrentPriceFollowsBook(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := eng.CurrentPrice(ctx); !errors.Is(err, engine.ErrNoLiquidity) {
		t.Errorf("empty book: want ErrNoLiquidity, got %v", err)
	}

	if _, err := eng.PlaceLimit(ctx, "alice", engine.SideSell, 100, 1000); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.CurrentPrice(ctx); !errors.Is(err, engine.ErrNoLiquidity) {
		t.Errorf("one-sided book: want ErrNoLiquidity, got %v", err)
	}

	if _, err := eng.PlaceLimit(ctx, "bob", engine.SideBuy, 100, 800); err != nil {
		t.Fatal(err)
	}
	price, err := eng.CurrentPrice(ctx)
	if err != nil {
		t.Fatalf("CurrentPrice: %v", err)
	}
	want, _ := engine.ToInternalPrice(900)
	if math.Abs(price-want) > 1e-20 {
		t.Errorf("price: got %g, want %g", price, want)
	}
}
