package engine

import (
	"context"

	"github.com/shopspring/decimal"
)

// Filter narrows an open-order fetch. Zero values mean "no restriction".
// Results come back ordered by creation time, oldest first; price ordering
// is the engine's job because "better" is defined in display units.
type Filter struct {
	Side  Side
	Owner string
}

// FillCommit asks storage to apply one auto-match fill atomically: update
// both orders' quantity/state and insert one trade. The remaining-quantity
// fields are a compare-and-swap guard: the commit must succeed only if
// each order's persisted quantity still equals remaining + Quantity.
type FillCommit struct {
	BuyOrderID    string
	SellOrderID   string
	Quantity      decimal.Decimal // WC, rounded to 8 places
	Value         decimal.Decimal // BTC
	BuyRemaining  decimal.Decimal
	SellRemaining decimal.Decimal
}

// TakerFill is the market-order variant of FillCommit: one resting order
// consumed by a taker who has no persisted order of their own.
type TakerFill struct {
	RestingOrderID   string
	TakerOwner       string
	TakerSide        Side
	Quantity         decimal.Decimal
	Value            decimal.Decimal
	RestingRemaining decimal.Decimal
}

// CommitResult reports the post-commit state of both orders so callers
// never need a follow-up read to learn what the commit produced.
type CommitResult struct {
	TradeID string
	Buy     Order
	Sell    Order
}

type TakerCommitResult struct {
	TradeID string
	Resting Order
}

// Store is the external collaborator that owns orders and trades. The
// engine holds only transient copies of its data; durability and per-fill
// atomicity are the store's contract. A stale remaining quantity at commit
// time must surface as ErrStaleQuantity, and a cancel or lookup miss as
// ErrOrderNotFound.
type Store interface {
	InsertOrder(ctx context.Context, o *Order) error
	OpenOrders(ctx context.Context, f Filter) ([]Order, error)
	GetOrder(ctx context.Context, id string) (Order, error)
	CommitFill(ctx context.Context, fc FillCommit) (CommitResult, error)
	CommitTakerFill(ctx context.Context, tf TakerFill) (TakerCommitResult, error)
	CancelOrder(ctx context.Context, id, owner string) (Order, error)
	RecentTrades(ctx context.Context, limit int) ([]Trade, error)
}
