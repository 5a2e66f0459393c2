package orderbook

import (
	"context"
	"sync"
	"time"

	"cosmossdk.io/math"

	"github.com/tidalswap/engine/internal/engine"
	"github.com/tidalswap/engine/internal/obs"
)

// TWAPStatus is a time-weighted order's lifecycle stage.
type TWAPStatus int

const (
	TWAPRunning TWAPStatus = iota
	TWAPCompleted
	TWAPFailed
	TWAPCancelled
)

// TWAPOrder splits a total notional into equal slices executed on a fixed
// period via C11.swap, per §4.12.
type TWAPOrder struct {
	ID             uint64
	UserID         uint32
	PayToken       uint32
	ReceiveToken   uint32
	ReceiveAddress string

	SliceAmount         math.Int
	SlicesTotal          int
	SlicesDone           int
	Period               time.Duration
	MaxSlippageBp        uint32
	MinPriceMet          bool // unset means no price cap configured
	ConsecutiveFailures  int
	Status               TWAPStatus
	NextRunTs            time.Time
	ReuseEnginePayTx     bool
}

// TWAPScheduler drives every active TWAPOrder's slices as they come due.
// Grounded on the same "reuse-tx-on-Kong-failure" retry model as the
// limit-order Manager (§4.12), sharing it rather than re-deriving it.
type TWAPScheduler struct {
	mu      sync.Mutex
	orders  map[uint64]*TWAPOrder
	nextID  uint64
	eng     *engine.Engine
	metrics *obs.Metrics
}

func NewTWAPScheduler(eng *engine.Engine, metrics *obs.Metrics) *TWAPScheduler {
	return &TWAPScheduler{orders: make(map[uint64]*TWAPOrder), eng: eng, metrics: metrics}
}

// Submit registers a new TWAP order and returns its id. total is divided
// into n equal slices by floor division; the remainder (total mod n) is
// not part of any slice and is never swapped.
func (s *TWAPScheduler) Submit(userID, payToken, receiveToken uint32, total math.Int, n int, period time.Duration, maxSlippageBp uint32, receiveAddress string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	slice := total.Quo(math.NewInt(int64(n)))
	s.orders[id] = &TWAPOrder{
		ID: id, UserID: userID, PayToken: payToken, ReceiveToken: receiveToken,
		ReceiveAddress: receiveAddress, SliceAmount: slice, SlicesTotal: n,
		Period: period, MaxSlippageBp: maxSlippageBp, Status: TWAPRunning,
		NextRunTs: time.Now(),
	}
	return id
}

// Cancel halts a running TWAP order.
func (s *TWAPScheduler) Cancel(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[id]; ok && o.Status == TWAPRunning {
		o.Status = TWAPCancelled
	}
}

// Get returns a copy of a TWAP order's current state.
func (s *TWAPScheduler) Get(id uint64) (TWAPOrder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return TWAPOrder{}, false
	}
	return *o, true
}

// priceCapMet reports whether the caller-supplied price check passed for
// this slice; when checkPrice is nil there is no cap and every slice runs.
func priceCapMet(checkPrice func(payToken, receiveToken uint32, maxSlippageBp uint32) bool, o *TWAPOrder) bool {
	if checkPrice == nil {
		return true
	}
	return checkPrice(o.PayToken, o.ReceiveToken, o.MaxSlippageBp)
}

// RunDue executes one slice for every running order whose NextRunTs has
// passed. checkPrice, if non-nil, gates execution on the configured price
// cap (§4.12: "skipped slices... do not count as failures").
func (s *TWAPScheduler) RunDue(ctx context.Context, now time.Time, checkPrice func(payToken, receiveToken uint32, maxSlippageBp uint32) bool) {
	s.mu.Lock()
	due := make([]*TWAPOrder, 0)
	for _, o := range s.orders {
		if o.Status == TWAPRunning && !now.Before(o.NextRunTs) {
			due = append(due, o)
		}
	}
	s.mu.Unlock()

	for _, o := range due {
		s.runOne(ctx, o, now, checkPrice)
	}
}

func (s *TWAPScheduler) runOne(ctx context.Context, o *TWAPOrder, now time.Time, checkPrice func(payToken, receiveToken uint32, maxSlippageBp uint32) bool) {
	s.mu.Lock()
	o.NextRunTs = now.Add(o.Period)
	s.mu.Unlock()

	if !priceCapMet(checkPrice, o) {
		return // skipped slice: does not count against the failure budget
	}

	args := engine.SwapArgs{
		UserID:         o.UserID,
		PayToken:       o.PayToken,
		PayAmount:      o.SliceAmount,
		PayTx:          engine.PayTx{Pull: true},
		ReceiveToken:   o.ReceiveToken,
		MinReceive:     math.ZeroInt(),
		MaxSlippageBp:  o.MaxSlippageBp,
		ReceiveAddress: o.ReceiveAddress,
	}

	reply, err := s.eng.Swap(ctx, args)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil || !reply.Ok {
		o.ConsecutiveFailures++
		if s.metrics != nil {
			s.metrics.TWAPSlices.WithLabelValues("failed").Inc()
		}
		if o.ConsecutiveFailures >= 5 {
			o.Status = TWAPFailed
		}
		return
	}
	o.ConsecutiveFailures = 0
	o.SlicesDone++
	if s.metrics != nil {
		s.metrics.TWAPSlices.WithLabelValues("success").Inc()
	}
	if o.SlicesDone >= o.SlicesTotal {
		o.Status = TWAPCompleted
	}
}
