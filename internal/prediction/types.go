// Package prediction implements the prediction-market finalizer (C13): pool
// payout under standard or time-weighted modes, fee reservation, and a
// per-winner distribution that never lets one winner's failure block the
// rest. Grounded on resolution/finalize_market.rs (via
// original_source/_INDEX.md) for the exact fee-reservation order and
// time-weighting formula, expressed with the engine's existing payout
// dispatcher (internal/engine) rather than a parallel transfer path.
package prediction

import (
	"time"

	"cosmossdk.io/math"
)

// Bet is one winning wager on a resolved market.
type Bet struct {
	UserID         uint32
	Amount         math.Int
	PlacedTs       time.Time
	ReceiveAddress string
}

// Market is the minimal state the finalizer needs: the token the pool is
// denominated in, the total pool (all bets, winning and losing), the
// winning bets, and the market's creation time/duration (needed only for
// time-weighted mode).
type Market struct {
	TokenID         uint32
	TotalPool       math.Int
	WinningBets     []Bet
	CreatedTs       time.Time
	Duration        time.Duration
	MaxDistribution math.Int // zero means uncapped
}

// PayoutOutcome records what happened to one winner's distribution.
type PayoutOutcome struct {
	UserID      uint32
	Amount      math.Int
	TransferID  uint64
	ClaimID     uint64 // non-zero if the payout could not be sent directly
}
