package orderbook

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/tidalswap/engine/internal/obs"
	"github.com/tidalswap/engine/internal/pool"
)

func newPoolRegistry(t *testing.T) *pool.Registry {
	t.Helper()
	lookup := func(id uint32) (pool.TokenInfo, error) {
		return pool.TokenInfo{Decimals: 8, IsExt: false}, nil
	}
	return pool.New(pool.QuoteTokens{HostQuoteTokenID: 1}, lookup, obs.NewNopLogger())
}

func TestPathIndex_FindsDirectPair(t *testing.T) {
	r := newPoolRegistry(t)
	p, err := r.Create(2, 1, 30, 0, 100)
	require.NoError(t, err)
	_, err = r.InitialAddLiquidity(p.ID, 1, math.NewInt(1_000_000), math.NewInt(1_000_000), 8, 8)
	require.NoError(t, err)

	idx := NewPathIndex(3)
	idx.Rebuild(r.All())

	path, ok := idx.Lookup(1, 2)
	require.True(t, ok)
	require.Equal(t, []uint32{p.ID}, path.PoolIDs)
}

func TestPathIndex_FindsSyntheticTwoHopPath(t *testing.T) {
	r := newPoolRegistry(t)
	p1, err := r.Create(2, 1, 30, 0, 100) // token2 <-> token1 (quote)
	require.NoError(t, err)
	_, err = r.InitialAddLiquidity(p1.ID, 1, math.NewInt(1_000_000), math.NewInt(1_000_000), 8, 8)
	require.NoError(t, err)

	p2, err := r.Create(3, 1, 30, 0, 101) // token3 <-> token1 (quote)
	require.NoError(t, err)
	_, err = r.InitialAddLiquidity(p2.ID, 1, math.NewInt(1_000_000), math.NewInt(1_000_000), 8, 8)
	require.NoError(t, err)

	idx := NewPathIndex(3)
	idx.Rebuild(r.All())

	path, ok := idx.Lookup(2, 3)
	require.True(t, ok, "token2 and token3 share a quote token and should route through it")
	require.Len(t, path.PoolIDs, 2)
	require.Contains(t, path.Tokens, uint32(1), "the synthetic route must pass through the shared quote token")
}

func TestPathIndex_NoPathBeyondMaxHops(t *testing.T) {
	r := newPoolRegistry(t)
	_, err := r.Create(2, 1, 30, 0, 100) // token2 <-> token1
	require.NoError(t, err)
	_, err = r.Create(3, 1, 30, 0, 101) // token3 <-> token1
	require.NoError(t, err)

	idx := NewPathIndex(1)
	idx.Rebuild(r.All())
	_, ok := idx.Lookup(2, 3)
	require.False(t, ok, "token2 -> token3 needs two hops, beyond the one-hop limit")
}

func TestQuote_ComposesHops(t *testing.T) {
	r := newPoolRegistry(t)
	p1, err := r.Create(2, 1, 30, 0, 100)
	require.NoError(t, err)
	_, err = r.InitialAddLiquidity(p1.ID, 1, math.NewInt(1_000_000), math.NewInt(1_000_000), 8, 8)
	require.NoError(t, err)

	p2, err := r.Create(3, 1, 30, 0, 101)
	require.NoError(t, err)
	_, err = r.InitialAddLiquidity(p2.ID, 1, math.NewInt(1_000_000), math.NewInt(1_000_000), 8, 8)
	require.NoError(t, err)

	path := Path{PoolIDs: []uint32{p1.ID, p2.ID}, Tokens: []uint32{2, 1, 3}}
	out, err := Quote(r, path, math.NewInt(10_000))
	require.NoError(t, err)
	require.True(t, out.IsPositive())
}
