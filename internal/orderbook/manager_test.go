package orderbook

import (
	"context"
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/tidalswap/engine/internal/claims"
	"github.com/tidalswap/engine/internal/config"
	"github.com/tidalswap/engine/internal/engine"
	"github.com/tidalswap/engine/internal/ledger"
	"github.com/tidalswap/engine/internal/obs"
	"github.com/tidalswap/engine/internal/pool"
	"github.com/tidalswap/engine/internal/request"
	"github.com/tidalswap/engine/internal/token"
)

type stubHostLedger struct{ n int }

func (s *stubHostLedger) FetchMetadata(ctx context.Context, canisterID string) (string, uint32, uint64, token.StdFlags, error) {
	s.n++
	return canisterID, 8, 10, token.StdFlags{}, nil
}

type stubHostTransferer struct{}

func (stubHostTransferer) Transfer(ctx context.Context, canisterID, from, to string, amount math.Int) (math.Int, error) {
	return math.NewInt(1), nil
}

func (stubHostTransferer) TransferFrom(ctx context.Context, canisterID, from, to string, amount math.Int) (math.Int, error) {
	return math.NewInt(1), nil
}

func newTestManager(t *testing.T) (*Manager, uint32, uint32) {
	t.Helper()
	logger := obs.NewNopLogger()
	metrics := obs.NewMetrics()

	tokens := token.New(&stubHostLedger{}, "relayer", logger)
	tok0, err := tokens.AddHostToken(context.Background(), "canister-0")
	require.NoError(t, err)
	tok1, err := tokens.AddHostToken(context.Background(), "canister-1")
	require.NoError(t, err)

	pools := pool.New(pool.QuoteTokens{HostQuoteTokenID: tok1.ID}, func(id uint32) (pool.TokenInfo, error) {
		tk, err := tokens.Get(id)
		if err != nil {
			return pool.TokenInfo{}, err
		}
		return pool.TokenInfo{Decimals: tk.Decimals, IsExt: false}, nil
	}, logger)

	p, err := pools.Create(tok0.ID, tok1.ID, 30, 0, 100)
	require.NoError(t, err)
	_, err = pools.InitialAddLiquidity(p.ID, 1, math.NewInt(1_000_000), math.NewInt(1_000_000), 8, 8)
	require.NoError(t, err)

	led := ledger.New(logger)
	requests := request.New(logger)
	claimsStore := claims.New(logger)

	eng := engine.New(engine.Deps{
		Cfg: config.Defaults(), Logger: logger, Metrics: metrics,
		Tokens: tokens, Pools: pools, Ledger: led, Requests: requests, Claims: claimsStore,
		HostXfer: stubHostTransferer{}, EnginePrincipal: "engine-principal",
	})

	mgr := NewManager(3, pools, eng, claimsStore, logger, metrics)
	mgr.RebuildPaths()
	return mgr, tok0.ID, tok1.ID
}

func TestManager_MarkPrice_DirectPool(t *testing.T) {
	mgr, tok0, tok1 := newTestManager(t)
	mark, ok := mgr.markPrice(tok0, tok1)
	require.True(t, ok)
	require.Equal(t, 0, mark.Cmp(mark), "sanity: a rational always equals itself")
}

func TestManager_CheckPair_ExecutesCrossingSellOrder(t *testing.T) {
	mgr, tok0, tok1 := newTestManager(t)
	mark, ok := mgr.markPrice(tok0, tok1)
	require.True(t, ok)

	// A sell order priced at or below the current mark crosses immediately.
	id := mgr.Place(Order{
		UserID: 7, Token0: tok0, Token1: tok1, Side: SideSell,
		Price: mark, Amount: math.NewInt(1_000), ReceiveAddress: "addr-7",
	})

	mgr.CheckPair(context.Background(), tok0, tok1)

	o, err := mgr.bookFor(tok0, tok1).Get(id)
	require.NoError(t, err)
	require.Equal(t, StatusExecuted, o.Status)
}

func TestManager_CheckPair_NoCrossingOrderIsNoop(t *testing.T) {
	mgr, tok0, tok1 := newTestManager(t)
	// A sell order priced far above the mark never crosses.
	id := mgr.Place(Order{
		UserID: 7, Token0: tok0, Token1: tok1, Side: SideSell,
		Price: rat(t, 1_000_000, 1), Amount: math.NewInt(1_000), ReceiveAddress: "addr-7",
	})

	mgr.CheckPair(context.Background(), tok0, tok1)

	o, err := mgr.bookFor(tok0, tok1).Get(id)
	require.NoError(t, err)
	require.Equal(t, StatusPlaced, o.Status)
}

func TestManager_ExpireDue_RaisesClaim(t *testing.T) {
	mgr, tok0, tok1 := newTestManager(t)
	past := time.Now().Add(-time.Minute)
	mgr.Place(Order{
		UserID: 9, Token0: tok0, Token1: tok1, Side: SideBuy,
		Price: rat(t, 1, 1), Amount: math.NewInt(500), ReceiveAddress: "addr-9", ExpiryTs: &past,
	})

	mgr.ExpireDue(time.Now())

	require.Len(t, mgr.claims.ForUser(9), 1)
}
