// Package orderbook implements the limit-order book and TWAP scheduler
// (C12): price-sorted resting orders per unordered token pair, a
// breadth-first synthetic path index over the pool graph, and a TWAP
// slicer that reuses the engine's Swap operation for settlement. Grounded
// on x/dex/keeper/pool.go's unordered-pair keying, generalized from a
// single AMM rate to an externally-supplied mark price crossed against
// resting limit orders (spec.md §4.12).
package orderbook

import (
	"time"

	"cosmossdk.io/math"

	"github.com/tidalswap/engine/pkg/natmath"
)

// Side is which direction of the pair an order trades.
type Side int

const (
	SideBuy  Side = iota // buying token0 with token1
	SideSell             // selling token0 for token1
)

// Status is an order's lifecycle stage.
type Status int

const (
	StatusPlaced Status = iota
	StatusExecuting
	StatusExecuted
	StatusFailed
	StatusExpired
	StatusCancelled
)

func (s Status) Terminal() bool {
	switch s {
	case StatusExecuted, StatusFailed, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// Order is a single resting limit order, per §4.12.
type Order struct {
	ID             uint64
	UserID         uint32
	Token0         uint32
	Token1         uint32
	Side           Side
	Price          natmath.Rational // token1 per token0
	Amount         math.Int         // remaining notional, in the token being sold
	ReceiveAddress string
	Status         Status
	ExpiryTs       *time.Time
	// ReuseEnginePayTx marks that the next execution attempt must reuse the
	// already-verified inbound transfer rather than asking for a new one,
	// per §4.12's Kong-side-failure retry rule.
	ReuseEnginePayTx bool
	PayTxRef         string

	PlacedTs time.Time
	Attempts int
}

// crosses reports whether mark (token1 per token0) satisfies this order:
// a Sell order executes when mark >= price (selling token0 for at least as
// much token1 as asked); a Buy order executes when mark <= price.
func (o Order) crosses(mark natmath.Rational) bool {
	cmp := mark.Cmp(o.Price)
	if o.Side == SideSell {
		return cmp >= 0
	}
	return cmp <= 0
}
