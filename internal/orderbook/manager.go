package orderbook

import (
	"context"
	"sync"
	"time"

	"cosmossdk.io/math"

	"github.com/tidalswap/engine/internal/claims"
	"github.com/tidalswap/engine/internal/engine"
	"github.com/tidalswap/engine/internal/obs"
	"github.com/tidalswap/engine/internal/pool"
	"github.com/tidalswap/engine/pkg/natmath"
)

// Manager owns the per-pair books and the synthetic path index, and drives
// matched orders through the engine's Swap operation (§4.12). It is the
// keeper-equivalent for C12, mirroring the pool registry's per-pair keying
// one layer up.
type Manager struct {
	mu      sync.Mutex
	books   map[[2]uint32]*Book
	paths   *PathIndex
	pools   *pool.Registry
	eng     *engine.Engine
	claims  *claims.Store
	logger  obs.Logger
	metrics *obs.Metrics
}

func NewManager(maxHops int, pools *pool.Registry, eng *engine.Engine, claimsSt *claims.Store, logger obs.Logger, metrics *obs.Metrics) *Manager {
	return &Manager{
		books:   make(map[[2]uint32]*Book),
		paths:   NewPathIndex(maxHops),
		pools:   pools,
		eng:     eng,
		claims:  claimsSt,
		logger:  logger,
		metrics: metrics,
	}
}

func (m *Manager) bookFor(token0, token1 uint32) *Book {
	key := pairKey(token0, token1)
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[key]
	if !ok {
		b = NewBook(token0, token1)
		m.books[key] = b
	}
	return b
}

// Place records a new resting order in the book for (token0, token1).
func (m *Manager) Place(o Order) uint64 {
	return m.bookFor(o.Token0, o.Token1).Place(o)
}

// Cancel cancels an order in the book for (token0, token1).
func (m *Manager) Cancel(token0, token1 uint32, orderID uint64) (Order, error) {
	return m.bookFor(token0, token1).Cancel(orderID)
}

// RebuildPaths recomputes the synthetic path index from the current pool
// graph; call after every AddPool/RemoveLiquidity-to-zero.
func (m *Manager) RebuildPaths() {
	m.paths.Rebuild(m.pools.All())
}

// markPrice returns the current AMM mark (token1 per token0) for a direct
// pool, or via the synthetic path index when no direct pool exists.
func (m *Manager) markPrice(token0, token1 uint32) (natmath.Rational, bool) {
	if p, err := m.pools.GetByTokens(token0, token1); err == nil {
		num := natmath.Add(p.Balance1, p.LPFee1)
		den := natmath.Add(p.Balance0, p.LPFee0)
		if p.TokenID0 != token0 {
			num, den = den, num
		}
		r, rerr := natmath.NewRational(num, den)
		if rerr != nil {
			return natmath.Rational{}, false
		}
		return r, true
	}
	if path, ok := m.paths.Lookup(token0, token1); ok && len(path.PoolIDs) > 0 {
		// The index is keyed by the unordered pair, so the stored path may
		// run from token1 to token0; walk it from token0.
		if path.Tokens[0] != token0 {
			rev := Path{}
			for i := len(path.PoolIDs) - 1; i >= 0; i-- {
				rev.PoolIDs = append(rev.PoolIDs, path.PoolIDs[i])
			}
			for i := len(path.Tokens) - 1; i >= 0; i-- {
				rev.Tokens = append(rev.Tokens, path.Tokens[i])
			}
			path = rev
		}
		unit := math.NewInt(1_000_000)
		out, err := Quote(m.pools, path, unit)
		if err != nil {
			return natmath.Rational{}, false
		}
		r, rerr := natmath.NewRational(out, unit)
		if rerr != nil {
			return natmath.Rational{}, false
		}
		return r, true
	}
	return natmath.Rational{}, false
}

// CheckPair pops and executes the best crossing order (if any) for one
// token pair, per §4.12's "engine pops the best order and drives it
// through C11.swap" rule. Call this whenever the pair's source-book price
// changes (after every pool-mutating operation on that pair).
func (m *Manager) CheckPair(ctx context.Context, token0, token1 uint32) {
	mark, ok := m.markPrice(token0, token1)
	if !ok {
		return
	}
	book := m.bookFor(token0, token1)
	best, crossed := book.BestCrossing(mark)
	if !crossed {
		return
	}
	book.MarkExecuting(best.ID)

	payToken, receiveToken := token0, token1
	if best.Side == SideBuy {
		payToken, receiveToken = token1, token0
	}

	// Orders rest against a prior host-chain approval: every execution
	// attempt pulls via delegated transfer-from rather than requiring a
	// fresh push transfer, so §4.12's "reuse the same inbound tx_id and
	// stop re-transferring" retry rule is the model's default behavior,
	// not a special case.
	args := engine.SwapArgs{
		UserID:         best.UserID,
		PayToken:       payToken,
		PayAmount:      best.Amount,
		PayTx:          engine.PayTx{Pull: true},
		ReceiveToken:   receiveToken,
		MinReceive:     math.ZeroInt(),
		ReceiveAddress: best.ReceiveAddress,
	}

	reply, err := m.eng.Swap(ctx, args)
	if err != nil || !reply.Ok {
		// Kong-side failure: reuse the same inbound tx on the next attempt
		// and stay in the book unless it has expired, per §4.12.
		book.MarkFailedOrRetry(best.ID, time.Now(), true, best.PayTxRef)
		if m.metrics != nil {
			m.metrics.OrdersTotal.WithLabelValues("failed").Inc()
		}
		return
	}
	book.MarkExecuted(best.ID)
	if m.metrics != nil {
		m.metrics.OrdersTotal.WithLabelValues("executed").Inc()
	}
}

// ExpireDue sweeps every book's due expirations and raises a refund claim
// for each, in the token the order pays. The scheduler calls it on a fixed
// period (OrderExpirySweepPeriod); it is not driven by a one-shot timer.
func (m *Manager) ExpireDue(now time.Time) {
	m.mu.Lock()
	books := make([]*Book, 0, len(m.books))
	for _, b := range m.books {
		books = append(books, b)
	}
	m.mu.Unlock()

	for _, b := range books {
		for _, o := range b.ExpireDue(now) {
			refundToken := o.Token1
			if o.Side == SideSell {
				refundToken = o.Token0
			}
			m.claims.Create(o.UserID, refundToken, o.Amount, o.ReceiveAddress)
		}
	}
}

// NextExpiry returns the earliest expiry across every book. The engine
// schedules no timer from it; expiry runs on the scheduler's periodic sweep.
func (m *Manager) NextExpiry() (time.Time, bool) {
	m.mu.Lock()
	books := make([]*Book, 0, len(m.books))
	for _, b := range m.books {
		books = append(books, b)
	}
	m.mu.Unlock()

	var best time.Time
	found := false
	for _, b := range books {
		if t, ok := b.EarliestExpiry(); ok {
			if !found || t.Before(best) {
				best = t
				found = true
			}
		}
	}
	return best, found
}
