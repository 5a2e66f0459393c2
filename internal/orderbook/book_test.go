package orderbook

import (
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/tidalswap/engine/pkg/natmath"
)

func rat(t *testing.T, num, den int64) natmath.Rational {
	t.Helper()
	r, err := natmath.NewRational(math.NewInt(num), math.NewInt(den))
	require.NoError(t, err)
	return r
}

func TestBook_PlaceSortsBestFirst(t *testing.T) {
	b := NewBook(1, 2)
	cheap := Order{UserID: 1, Side: SideSell, Price: rat(t, 1, 1), Amount: math.NewInt(10)}
	expensive := Order{UserID: 2, Side: SideSell, Price: rat(t, 2, 1), Amount: math.NewInt(10)}
	b.Place(expensive)
	b.Place(cheap)

	// best crossing at mark=2 should be the cheapest sell order (lowest ask first).
	best, ok := b.BestCrossing(rat(t, 2, 1))
	require.True(t, ok)
	require.Equal(t, uint32(1), best.UserID)
}

func TestBook_BestCrossing_NoneCrosses(t *testing.T) {
	b := NewBook(1, 2)
	b.Place(Order{UserID: 1, Side: SideSell, Price: rat(t, 5, 1), Amount: math.NewInt(10)})
	_, ok := b.BestCrossing(rat(t, 1, 1))
	require.False(t, ok)
}

func TestBook_CancelRemovesFromSide(t *testing.T) {
	b := NewBook(1, 2)
	id := b.Place(Order{UserID: 1, Side: SideBuy, Price: rat(t, 1, 1), Amount: math.NewInt(10)})
	o, err := b.Cancel(id)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, o.Status)

	_, ok := b.BestCrossing(rat(t, 1, 1))
	require.False(t, ok, "cancelled order must not cross")

	_, err = b.Cancel(id)
	require.ErrorIs(t, err, ErrOrderTerminal)
}

func TestBook_MarkFailedOrRetry_ExpiresPastDeadline(t *testing.T) {
	b := NewBook(1, 2)
	past := time.Now().Add(-time.Minute)
	id := b.Place(Order{UserID: 1, Side: SideBuy, Price: rat(t, 1, 1), Amount: math.NewInt(10), ExpiryTs: &past})
	b.MarkExecuting(id)
	b.MarkFailedOrRetry(id, time.Now(), true, "tx-1")

	o, err := b.Get(id)
	require.NoError(t, err)
	require.Equal(t, StatusExpired, o.Status)
}

func TestBook_MarkFailedOrRetry_RetriesWhenNotExpired(t *testing.T) {
	b := NewBook(1, 2)
	future := time.Now().Add(time.Hour)
	id := b.Place(Order{UserID: 1, Side: SideBuy, Price: rat(t, 1, 1), Amount: math.NewInt(10), ExpiryTs: &future})
	b.MarkExecuting(id)
	b.MarkFailedOrRetry(id, time.Now(), true, "tx-1")

	o, err := b.Get(id)
	require.NoError(t, err)
	require.Equal(t, StatusPlaced, o.Status)
	require.True(t, o.ReuseEnginePayTx)
	require.Equal(t, "tx-1", o.PayTxRef)
}

func TestBook_ExpireDue(t *testing.T) {
	b := NewBook(1, 2)
	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)
	b.Place(Order{UserID: 1, Side: SideBuy, Price: rat(t, 1, 1), Amount: math.NewInt(10), ExpiryTs: &past})
	b.Place(Order{UserID: 2, Side: SideBuy, Price: rat(t, 1, 1), Amount: math.NewInt(10), ExpiryTs: &future})

	expired := b.ExpireDue(time.Now())
	require.Len(t, expired, 1)
	require.Equal(t, uint32(1), expired[0].UserID)

	_, found := b.EarliestExpiry()
	require.True(t, found, "the non-expired order should remain")
}

func TestBook_MarkExecuted_RemovesFromSide(t *testing.T) {
	b := NewBook(1, 2)
	id := b.Place(Order{UserID: 1, Side: SideSell, Price: rat(t, 1, 1), Amount: math.NewInt(10)})
	b.MarkExecuting(id)
	b.MarkExecuted(id)

	_, ok := b.BestCrossing(rat(t, 100, 1))
	require.False(t, ok)
	o, err := b.Get(id)
	require.NoError(t, err)
	require.Equal(t, StatusExecuted, o.Status)
}
