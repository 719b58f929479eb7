package engine

import "errors"

// Every failure mode the matching core can surface. Callers branch with
// errors.Is; the wrapped message carries the human-readable detail.
var (
	// ErrInvalidInput marks a malformed quantity, price, or side.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthenticated marks an action attempted without an owner identity.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInsufficientLiquidity means a market order could not be fully
	// filled by the opposite side of the book. Nothing is committed.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity for full order")

	// ErrInvalidPrice marks a non-positive price in a unit conversion.
	ErrInvalidPrice = errors.New("invalid price")

	// ErrMatchExecutionFailed means a storage commit during an auto-match
	// pass did not report unambiguous success. Fills committed earlier in
	// the pass remain committed.
	ErrMatchExecutionFailed = errors.New("match execution failed")

	// ErrOrderNotFound means the target order is missing or not in a state
	// the operation accepts.
	ErrOrderNotFound = errors.New("order not found")

	// ErrNoLiquidity means one or both sides of the book are empty, so no
	// reference price exists.
	ErrNoLiquidity = errors.New("no liquidity")

	// ErrStaleQuantity is the storage conflict outcome: the remaining
	// quantity offered to a commit no longer matches the persisted value.
	ErrStaleQuantity = errors.New("stale remaining quantity")
)
