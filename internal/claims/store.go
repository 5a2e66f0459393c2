package claims

import (
	"sync"
	"time"

	"cosmossdk.io/errors"
	"cosmossdk.io/math"

	"github.com/tidalswap/engine/internal/obs"
	"github.com/tidalswap/engine/pkg/registry"
)

const ModuleName = "claims"

var (
	ErrNotFound         = errors.Register(ModuleName, 1, "claim not found")
	ErrNotPickable      = errors.Register(ModuleName, 2, "claim is not in a pickable status")
	ErrTooManyAttempts  = errors.Register(ModuleName, 3, "claim exceeded its attempt budget")
)

// Store is the keeper-equivalent for C10.
type Store struct {
	mu     sync.Mutex
	claims *registry.Registry[Claim]
	logger obs.Logger
}

func New(logger obs.Logger) *Store {
	return &Store{claims: registry.New[Claim](), logger: logger}
}

// Create records a new Unclaimed claim — the engine's declaration that a
// best-effort outbound transfer failed and the user is owed a payout.
func (s *Store) Create(userID, tokenID uint32, amount math.Int, toAddress string) uint64 {
	now := time.Now()
	id := s.claims.Insert(func(claimID uint64) Claim {
		return Claim{
			ID:        claimID,
			UserID:    userID,
			TokenID:   tokenID,
			Amount:    amount,
			ToAddress: toAddress,
			Status:    StatusUnclaimed,
			Ts:        now,
		}
	})
	s.logger.Info("claim created", "claim_id", id, "user_id", userID, "token_id", tokenID, "amount", amount.String())
	return id
}

// Get returns a claim by id.
func (s *Store) Get(id uint64) (Claim, error) {
	c, err := s.claims.Get(id)
	if err != nil {
		return Claim{}, ErrNotFound
	}
	return c, nil
}

// BeginAttempt re-reads the claim, verifies it is still pickable (guarding
// against a concurrent pass already processing it via the Claiming
// sentinel), applies the attempt-budget policy of §4.10, and if eligible
// transitions it to Claiming. Returns ErrNotPickable/ErrTooManyAttempts when
// the claim should be skipped this pass.
func (s *Store) BeginAttempt(id uint64, tokenRemoved bool, tooManyThreshold, tooManyThresholdRemoved, backoffThreshold int, backoffDuration time.Duration) (Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.claims.Get(id)
	if err != nil {
		return Claim{}, ErrNotFound
	}
	if !c.IsPickable() {
		return Claim{}, ErrNotPickable
	}

	// §4.10: "after 50 prior attempts" means a claim that has already
	// accumulated the threshold's worth of attempts is done, not one that
	// needs a 51st — so the boundary is inclusive of the threshold itself.
	limit := tooManyThreshold
	if tokenRemoved {
		limit = tooManyThresholdRemoved
	}
	if c.Attempts() >= limit {
		c.Status = StatusTooManyAttempts
		_ = s.claims.Update(id, c)
		return Claim{}, ErrTooManyAttempts
	}

	if c.Attempts() >= backoffThreshold {
		if time.Since(c.LastAttemptTs) < backoffDuration {
			return Claim{}, ErrNotPickable
		}
	}

	c.Status = StatusClaiming
	if err := s.claims.Update(id, c); err != nil {
		return Claim{}, err
	}
	return c, nil
}

// CompleteSuccess transitions a claim to Claimed after a successful attempt,
// recording the outbound transfer id.
func (s *Store) CompleteSuccess(id, requestID, transferID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.claims.Get(id)
	if err != nil {
		return ErrNotFound
	}
	c.AttemptRequestIDs = append(c.AttemptRequestIDs, requestID)
	c.TransferIDs = append(c.TransferIDs, transferID)
	c.LastAttemptTs = time.Now()
	c.Status = StatusClaimed
	return s.claims.Update(id, c)
}

// CompleteFailure records a failed attempt and reverts the claim to
// Unclaimed so a later pass can retry it.
func (s *Store) CompleteFailure(id, requestID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.claims.Get(id)
	if err != nil {
		return ErrNotFound
	}
	c.AttemptRequestIDs = append(c.AttemptRequestIDs, requestID)
	c.LastAttemptTs = time.Now()
	c.Status = StatusUnclaimed
	return s.claims.Update(id, c)
}

// Override forces a TooManyAttempts or Claimable claim back into
// UnclaimedOverride so an operator can force a retry pass.
func (s *Store) Override(id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.claims.Get(id)
	if err != nil {
		return ErrNotFound
	}
	c.Status = StatusUnclaimedOverride
	return s.claims.Update(id, c)
}

// PickablePass returns pickable claim ids in reverse-insertion order, the
// best-effort drainer order §9's open question discusses.
func (s *Store) PickablePass() []uint64 {
	var all []uint64
	s.claims.Iter(func(id uint64, c Claim) bool {
		if c.IsPickable() {
			all = append(all, id)
		}
		return true
	})
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	return all
}

// ForUser returns every claim belonging to userID.
func (s *Store) ForUser(userID uint32) []Claim {
	var out []Claim
	s.claims.Iter(func(_ uint64, c Claim) bool {
		if c.UserID == userID {
			out = append(out, c)
		}
		return true
	})
	return out
}

// PendingCount returns the number of claims currently pickable, for metrics.
func (s *Store) PendingCount() int {
	return len(s.PickablePass())
}
