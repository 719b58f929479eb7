package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PlacedOrder reports a successful limit-order placement plus the result
// of the auto-match pass the placement triggered.
type PlacedOrder struct {
	OrderID string
	Match   MatchReport
}

// PlaceLimit validates and persists a new open limit order, then
// unconditionally triggers an auto-match pass: the new order may cross the
// book immediately. A failed pass does not undo the placement; the order
// is already resting and the next trigger will pick it up.
func (e *Engine) PlaceLimit(ctx context.Context, owner string, side Side, quantity, displayPrice float64) (*PlacedOrder, error) {
	if owner == "" {
		return nil, fmt.Errorf("%w: placing an order requires an owner", ErrUnauthenticated)
	}
	if side != SideBuy && side != SideSell {
		return nil, fmt.Errorf("%w: unknown side %q", ErrInvalidInput, string(side))
	}
	if quantity < MinQuantity || math.IsNaN(quantity) {
		return nil, fmt.Errorf("%w: quantity must be at least %.2f WC", ErrInvalidInput, MinQuantity)
	}
	quantity = normalizeQuantity(quantity)
	if displayPrice < MinDisplayPrice {
		return nil, fmt.Errorf("%w: price must be at least %d WC/sat", ErrInvalidInput, MinDisplayPrice)
	}
	unitPrice, err := ToInternalPrice(displayPrice)
	if err != nil {
		return nil, err
	}

	order := &Order{
		ID:        uuid.NewString(),
		Owner:     owner,
		Side:      side,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Status:    StatusOpen,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.store.InsertOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	e.log.Info("limit order placed",
		zap.String("order_id", order.ID),
		zap.String("owner", owner),
		zap.String("side", string(side)),
		zap.Float64("quantity_wc", quantity),
		zap.Float64("price_wc_per_sat", displayPrice),
	)

	report, err := e.AutoMatch(ctx)
	if err != nil {
		e.log.Warn("auto-match after placement failed",
			zap.String("order_id", order.ID), zap.Error(err))
	}
	return &PlacedOrder{OrderID: order.ID, Match: report}, nil
}

// Cancel transitions an open order to cancelled. It succeeds only when an
// open order with the given id and owner exists; a miss returns false with
// no error, so cancellation is idempotent from the caller's perspective.
func (e *Engine) Cancel(ctx context.Context, orderID, owner string) (bool, error) {
	if owner == "" {
		return false, fmt.Errorf("%w: cancelling an order requires an owner", ErrUnauthenticated)
	}
	_, err := e.store.CancelOrder(ctx, orderID, owner)
	if errors.Is(err, ErrOrderNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	e.log.Info("order cancelled", zap.String("order_id", orderID), zap.String("owner", owner))
	return true, nil
}
