package engine

import (
	"math"
	"testing"
	"time"
)

func mkOrder(t *testing.T, owner string, side Side, qty, display float64) Order {
	t.Helper()
	unit, err := ToInternalPrice(display)
	if err != nil {
		t.Fatalf("ToInternalPrice(%g): %v", display, err)
	}
	return Order{
		ID:        owner + "-" + string(side),
		Owner:     owner,
		Side:      side,
		Quantity:  qty,
		UnitPrice: unit,
		Status:    StatusOpen,
		CreatedAt: time.Now(),
	}
}

func TestMidPriceUsesBestBidAndAsk(t *testing.T) {
	orders := []Order{
		mkOrder(t, "a", SideBuy, 10, 800),
		mkOrder(t, "b", SideBuy, 10, 700),
		mkOrder(t, "c", SideSell, 10, 1000),
		mkOrder(t, "d", SideSell, 10, 1200),
	}

	got, ok := MidPrice(orders)
	if !ok {
		t.Fatal("expected a price")
	}
	// best bid 800, best ask 1000 -> mid display 900
	want, err := ToInternalPrice(900)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-want) > 1e-20 {
		t.Errorf("mid price: got %g, want %g", got, want)
	}
}

func TestMidPriceNoLiquidity(t *testing.T) {
	if _, ok := MidPrice(nil); ok {
		t.Error("empty book: expected no price")
	}
	onlyBuys := []Order{mkOrder(t, "a", SideBuy, 10, 800)}
	if _, ok := MidPrice(onlyBuys); ok {
		t.Error("one-sided book: expected no price")
	}
	onlySells := []Order{mkOrder(t, "a", SideSell, 10, 800)}
	if _, ok := MidPrice(onlySells); ok {
		t.Error("one-sided book: expected no price")
	}
}

func TestMidPriceIgnoresClosedOrders(t *testing.T) {
	cancelled := mkOrder(t, "x", SideBuy, 10, 5000)
	cancelled.Status = StatusCancelled
	matched := mkOrder(t, "y", SideSell, 0, 10)
	matched.Status = StatusMatched

	orders := []Order{
		cancelled,
		matched,
		mkOrder(t, "a", SideBuy, 10, 700),
		mkOrder(t, "b", SideSell, 10, 900),
	}

	got, ok := MidPrice(orders)
	if !ok {
		t.Fatal("expected a price")
	}
	want, _ := ToInternalPrice(800)
	if math.Abs(got-want) > 1e-20 {
		t.Errorf("mid price: got %g, want %g", got, want)
	}
}
