// Package claims implements the claims subsystem (C10): a persistent retry
// store for failed outbound transfers with bounded attempts and a fixed
// backoff gap once a claim's attempt count reaches a threshold. Grounded on x/dex/keeper/flashloan.go's retry-with-backoff idiom
// and on kong_backend/src/stable_claim/claim_map.rs for the exact attempt
// thresholds.
package claims

import (
	"time"

	"cosmossdk.io/math"
)

// Status is the claim lifecycle of §3.
type Status string

const (
	StatusUnclaimed         Status = "Unclaimed"
	StatusClaiming          Status = "Claiming"
	StatusClaimed            Status = "Claimed"
	StatusUnclaimedOverride  Status = "UnclaimedOverride"
	StatusTooManyAttempts    Status = "TooManyAttempts"
	StatusClaimable          Status = "Claimable"
)

// Claim is the engine's system-of-record for "we owe this user this much in
// this token" (§3, §4.10).
type Claim struct {
	ID               uint64
	UserID           uint32
	TokenID          uint32
	Amount           math.Int
	ToAddress        string
	Status           Status
	AttemptRequestIDs []uint64
	TransferIDs      []uint64
	Ts               time.Time
	LastAttemptTs    time.Time
}

// IsPickable reports whether the claim scheduler is allowed to consider this
// claim in its current pass.
func (c Claim) IsPickable() bool {
	return c.Status == StatusUnclaimed || c.Status == StatusUnclaimedOverride
}

// Attempts returns how many prior attempts have been recorded.
func (c Claim) Attempts() int { return len(c.AttemptRequestIDs) }
