package orderbook

import (
	"sort"
	"sync"
	"time"

	"cosmossdk.io/errors"

	"github.com/tidalswap/engine/pkg/natmath"
)

const ModuleName = "orderbook"

var (
	ErrOrderNotFound = errors.Register(ModuleName, 1, "order not found")
	ErrOrderTerminal = errors.Register(ModuleName, 2, "order already in a terminal state")
)

// Book holds the resting orders for one unordered token pair. Both sides
// are kept price-sorted so the best (highest-crossing) order is always at
// index 0; matching never consults a counter-order queue, only an
// externally supplied mark price (§4.12).
type Book struct {
	mu sync.Mutex

	token0, token1 uint32
	orders         map[uint64]*Order
	buys           []uint64 // sorted best-first: highest price first
	sells          []uint64 // sorted best-first: lowest price first
	nextID         uint64
}

func NewBook(token0, token1 uint32) *Book {
	return &Book{token0: token0, token1: token1, orders: make(map[uint64]*Order)}
}

// Place inserts a new resting order and returns its id.
func (b *Book) Place(o Order) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	o.ID = b.nextID
	o.Status = StatusPlaced
	o.PlacedTs = time.Now()
	b.orders[o.ID] = &o
	b.insertSorted(o.ID, o.Side)
	return o.ID
}

func (b *Book) insertSorted(id uint64, side Side) {
	list := &b.buys
	if side == SideSell {
		list = &b.sells
	}
	*list = append(*list, id)
	sort.Slice(*list, func(i, j int) bool {
		pi, pj := b.orders[(*list)[i]].Price, b.orders[(*list)[j]].Price
		cmp := pi.Cmp(pj)
		if side == SideBuy {
			return cmp > 0 // highest bid first
		}
		return cmp < 0 // lowest ask first
	})
}

func (b *Book) removeFromSide(id uint64, side Side) {
	list := &b.buys
	if side == SideSell {
		list = &b.sells
	}
	for i, oid := range *list {
		if oid == id {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}

// Cancel marks a non-terminal order Cancelled and removes it from the
// price-sorted side.
func (b *Book) Cancel(id uint64) (Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	if o.Status.Terminal() {
		return Order{}, ErrOrderTerminal
	}
	b.removeFromSide(id, o.Side)
	o.Status = StatusCancelled
	return *o, nil
}

// Get returns a copy of the order by id.
func (b *Book) Get(id uint64) (Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return *o, nil
}

// BestCrossing returns the best order that crosses the supplied mark price
// and is currently Placed, or false if none crosses. The order is NOT
// popped; callers must call MarkExecuting then either MarkExecuted or
// MarkFailedOrRetry.
func (b *Book) BestCrossing(mark natmath.Rational) (Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range b.sells {
		o := b.orders[id]
		if o.Status == StatusPlaced && o.crosses(mark) {
			return *o, true
		}
	}
	for _, id := range b.buys {
		o := b.orders[id]
		if o.Status == StatusPlaced && o.crosses(mark) {
			return *o, true
		}
	}
	return Order{}, false
}

func (b *Book) MarkExecuting(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if o, ok := b.orders[id]; ok {
		o.Status = StatusExecuting
		o.Attempts++
	}
}

// MarkExecuted finalizes a successful order and removes it from its side.
func (b *Book) MarkExecuted(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[id]
	if !ok {
		return
	}
	b.removeFromSide(id, o.Side)
	o.Status = StatusExecuted
}

// MarkFailedOrRetry un-executes an order back to Placed unless it has
// expired, per §4.12's "re-marked Placed unless expired" rule.
func (b *Book) MarkFailedOrRetry(id uint64, now time.Time, reuseEnginePayTx bool, payTxRef string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[id]
	if !ok {
		return
	}
	if o.ExpiryTs != nil && !now.Before(*o.ExpiryTs) {
		b.removeFromSide(id, o.Side)
		o.Status = StatusExpired
		return
	}
	o.Status = StatusPlaced
	o.ReuseEnginePayTx = reuseEnginePayTx
	o.PayTxRef = payTxRef
}

// EarliestExpiry returns the earliest expiry among Placed orders. No timer
// is scheduled from it; expiry runs on the scheduler's periodic sweep.
func (b *Book) EarliestExpiry() (time.Time, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var best time.Time
	found := false
	for _, o := range b.orders {
		if o.Status != StatusPlaced || o.ExpiryTs == nil {
			continue
		}
		if !found || o.ExpiryTs.Before(best) {
			best = *o.ExpiryTs
			found = true
		}
	}
	return best, found
}

// ExpireDue removes every Placed, non-executing order whose expiry has
// passed and returns them for refund via C10.
func (b *Book) ExpireDue(now time.Time) []Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	var expired []Order
	for id, o := range b.orders {
		if o.Status == StatusPlaced && o.ExpiryTs != nil && !now.Before(*o.ExpiryTs) {
			b.removeFromSide(id, o.Side)
			o.Status = StatusExpired
			expired = append(expired, *o)
		}
	}
	return expired
}
