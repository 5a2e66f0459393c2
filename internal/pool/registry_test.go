package pool_test

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/tidalswap/engine/internal/obs"
	"github.com/tidalswap/engine/internal/pool"
)

func newTestRegistry(t *testing.T) *pool.Registry {
	t.Helper()
	lookup := func(id uint32) (pool.TokenInfo, error) {
		return pool.TokenInfo{Decimals: 8, IsExt: false}, nil
	}
	return pool.New(pool.QuoteTokens{HostQuoteTokenID: 1}, lookup, obs.NewNopLogger())
}

func TestCreate_RejectsSameToken(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Create(1, 1, 30, 0, 100)
	require.Error(t, err)
}

func TestCreate_RejectsWrongQuoteToken(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Create(2, 3, 30, 0, 100)
	require.Error(t, err)
}

func TestCreate_RejectsOperatorFeeAboveLPFee(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Create(2, 1, 10, 20, 100)
	require.Error(t, err)
}

func TestCreate_RejectsDuplicatePair(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Create(2, 1, 30, 0, 100)
	require.NoError(t, err)
	_, err = r.Create(2, 1, 30, 0, 100)
	require.Error(t, err)
	_, err = r.Create(1, 2, 30, 0, 101)
	require.Error(t, err, "pair is unordered")
}

func TestSwap_InvariantNeverDecreasesK(t *testing.T) {
	r := newTestRegistry(t)
	p, err := r.Create(2, 1, 30, 10, 100)
	require.NoError(t, err)

	_, err = r.InitialAddLiquidity(p.ID, 1, math.NewInt(1_000_000), math.NewInt(1_000_000), 8, 8)
	require.NoError(t, err)

	before, err := r.Get(p.ID)
	require.NoError(t, err)
	kBefore := before.K()

	res, err := r.Swap(p.ID, 2, 1, math.NewInt(10_000))
	require.NoError(t, err)
	require.True(t, res.AmountOut.IsPositive())
	require.True(t, res.KPost.GTE(kBefore))

	after, err := r.Get(p.ID)
	require.NoError(t, err)
	require.True(t, after.K().GTE(kBefore))
}

func TestSwap_RejectsZeroOrNegativeAmount(t *testing.T) {
	r := newTestRegistry(t)
	p, err := r.Create(2, 1, 30, 0, 100)
	require.NoError(t, err)
	_, err = r.InitialAddLiquidity(p.ID, 1, math.NewInt(1_000), math.NewInt(1_000), 8, 8)
	require.NoError(t, err)

	_, err = r.Swap(p.ID, 2, 1, math.ZeroInt())
	require.Error(t, err)
	_, err = r.Swap(p.ID, 2, 1, math.NewInt(-5))
	require.Error(t, err)
}

func TestQuoteSwap_MatchesSwapOutput(t *testing.T) {
	r := newTestRegistry(t)
	p, err := r.Create(2, 1, 30, 0, 100)
	require.NoError(t, err)
	_, err = r.InitialAddLiquidity(p.ID, 1, math.NewInt(500_000), math.NewInt(500_000), 8, 8)
	require.NoError(t, err)

	quoted, err := r.QuoteSwap(p.ID, 2, 1, math.NewInt(1_000))
	require.NoError(t, err)

	res, err := r.Swap(p.ID, 2, 1, math.NewInt(1_000))
	require.NoError(t, err)
	require.True(t, quoted.Equal(res.AmountOut))
}

func TestAddRemoveLiquidity_RoundTrips(t *testing.T) {
	r := newTestRegistry(t)
	p, err := r.Create(2, 1, 30, 0, 100)
	require.NoError(t, err)

	mint, err := r.InitialAddLiquidity(p.ID, 1, math.NewInt(1_000_000), math.NewInt(2_000_000), 8, 8)
	require.NoError(t, err)
	require.True(t, mint.IsPositive())
	require.True(t, r.LPBalance(1, p.LPTokenID).Equal(mint))

	amount1, mint2, err := r.AddLiquidity(p.ID, 2, math.NewInt(100_000), math.NewInt(300_000))
	require.NoError(t, err)
	require.True(t, amount1.IsPositive())
	require.True(t, mint2.IsPositive())

	total := r.TotalLPSupply(p.LPTokenID)
	require.NoError(t, r.BurnLP(1, p.LPTokenID, mint))
	res, err := r.RemoveLiquidity(p.ID, mint, total)
	require.NoError(t, err)
	require.True(t, res.Payout0.IsPositive())
	require.True(t, res.Payout1.IsPositive())
}

func TestCreate_EnforcesExtMinLPFee(t *testing.T) {
	extLookup := func(id uint32) (pool.TokenInfo, error) {
		return pool.TokenInfo{Decimals: 8, IsExt: true}, nil
	}
	r := pool.New(pool.QuoteTokens{HostQuoteTokenID: 1}, extLookup, obs.NewNopLogger())

	_, err := r.Create(2, 1, 50, 0, 100)
	require.Error(t, err, "50bps is below the 100bps Ext-chain floor")

	_, err = r.Create(2, 1, 100, 0, 100)
	require.NoError(t, err)
}

func TestAll_ReturnsEveryCreatedPool(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Create(2, 1, 30, 0, 100)
	require.NoError(t, err)
	_, err = r.Create(3, 1, 30, 0, 101)
	require.NoError(t, err)

	require.Len(t, r.All(), 2)
}
