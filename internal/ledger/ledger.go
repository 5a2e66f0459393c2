package ledger

import (
	"sync"
	"time"

	"cosmossdk.io/math"

	"github.com/tidalswap/engine/internal/obs"
	"github.com/tidalswap/engine/pkg/registry"
)

// dedupKey is the (token_id, tx_ref) composite the whole ledger is keyed on
// for replay protection — deliberately not tx_ref alone, since different
// tokens legitimately share reference spaces (SPEC_FULL.md §9 carries
// spec.md's rationale unchanged).
type dedupKey struct {
	tokenID uint32
	ref     string
}

// Ledger is the keeper-equivalent for C5.
type Ledger struct {
	mu        sync.Mutex
	transfers *registry.Registry[Transfer]
	byRef     map[dedupKey]uint64
	logger    obs.Logger
}

func New(logger obs.Logger) *Ledger {
	return &Ledger{
		transfers: registry.New[Transfer](),
		byRef:     make(map[dedupKey]uint64),
		logger:    logger,
	}
}

// Contains implements the replay-protection check of §4.5: has this
// (token_id, tx_ref) already been recorded?
func (l *Ledger) Contains(tokenID uint32, ref TxRef) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.byRef[dedupKey{tokenID, ref.key()}]
	return ok
}

// Insert appends a new transfer and updates the dedup index atomically. If
// the (token_id, tx_ref) is already present, returns ErrDuplicate and the
// existing transfer id without inserting a second row — this is the
// serializable-equivalent dedup guarantee of §5: whichever caller's Insert
// wins the race, the other observes ErrDuplicate.
func (l *Ledger) Insert(requestID uint64, isInbound bool, amount math.Int, tokenID uint32, ref TxRef, ts time.Time) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := dedupKey{tokenID, ref.key()}
	if existing, ok := l.byRef[key]; ok {
		return existing, ErrDuplicate
	}

	id := l.transfers.Insert(func(transferID uint64) Transfer {
		return Transfer{
			ID:        transferID,
			RequestID: requestID,
			IsInbound: isInbound,
			Amount:    amount,
			TokenID:   tokenID,
			TxRef:     ref,
			Ts:        ts,
		}
	})
	l.byRef[key] = id
	return id, nil
}

// Get returns a transfer by id.
func (l *Ledger) Get(id uint64) (Transfer, error) {
	return l.transfers.Get(id)
}

// ArchiveUpTo spills transfers with id <= cursor into the archive map.
func (l *Ledger) ArchiveUpTo(cursor uint64) int {
	return l.transfers.ArchiveUpTo(cursor)
}

// Counter returns the last assigned transfer id.
func (l *Ledger) Counter() uint64 { return l.transfers.Counter() }
