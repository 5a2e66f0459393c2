package token

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tidalswap/engine/internal/obs"
)

type fakeLedger struct {
	symbol   string
	decimals uint32
	fee      uint64
	std      StdFlags
	err      error
}

func (f fakeLedger) FetchMetadata(ctx context.Context, canisterID string) (string, uint32, uint64, StdFlags, error) {
	return f.symbol, f.decimals, f.fee, f.std, f.err
}

func newTestCatalogue(t *testing.T, ledger HostLedgerClient) *Catalogue {
	t.Helper()
	return New(ledger, "relayer-principal", obs.NewNopLogger())
}

func TestAddHostToken_InsertsAndIndexes(t *testing.T) {
	c := newTestCatalogue(t, fakeLedger{symbol: "ABC", decimals: 8, fee: 10, std: StdFlags{ICRC1: true}})

	tok, err := c.AddHostToken(context.Background(), "canister-1")
	require.NoError(t, err)
	require.Equal(t, KindHost, tok.Kind)
	require.Equal(t, "ABC", tok.Symbol)
	require.Equal(t, ChainHost, tok.Chain())

	byAddr, err := c.GetByAddress(tok.CanonicalAddress())
	require.NoError(t, err)
	require.Equal(t, tok.ID, byAddr.ID)

	bySym, err := c.GetBySymbol("ABC")
	require.NoError(t, err)
	require.Equal(t, tok.ID, bySym.ID)
}

func TestAddHostToken_SameCanisterReturnsExistingEntry(t *testing.T) {
	c := newTestCatalogue(t, fakeLedger{symbol: "ABC", decimals: 8})

	first, err := c.AddHostToken(context.Background(), "canister-1")
	require.NoError(t, err)
	second, err := c.AddHostToken(context.Background(), "canister-1")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
}

func TestAddHostToken_RejectsDuplicateSymbol(t *testing.T) {
	c := newTestCatalogue(t, fakeLedger{symbol: "ABC", decimals: 8})
	_, err := c.AddHostToken(context.Background(), "canister-1")
	require.NoError(t, err)

	_, err = c.AddHostToken(context.Background(), "canister-2")
	require.ErrorIs(t, err, ErrDuplicateSymbol)
}

func TestAddExtToken_RejectsUnauthorizedCaller(t *testing.T) {
	c := newTestCatalogue(t, fakeLedger{})
	_, err := c.AddExtToken("some-other-principal", "mint-1", "SOL", 9, 0, "program-1", false)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestAddExtToken_InsertsAndIndexes(t *testing.T) {
	c := newTestCatalogue(t, fakeLedger{})
	tok, err := c.AddExtToken("relayer-principal", "mint-1", "SOL", 9, 0, "program-1", false)
	require.NoError(t, err)
	require.Equal(t, KindExt, tok.Kind)
	require.Equal(t, ChainExt, tok.Chain())

	bySym, err := c.GetBySymbol("SOL")
	require.NoError(t, err)
	require.Equal(t, tok.ID, bySym.ID)
}

func TestAddExtToken_SameMintReturnsExistingEntry(t *testing.T) {
	c := newTestCatalogue(t, fakeLedger{})
	first, err := c.AddExtToken("relayer-principal", "mint-1", "SOL", 9, 0, "program-1", false)
	require.NoError(t, err)
	second, err := c.AddExtToken("relayer-principal", "mint-1", "SOL", 9, 0, "program-1", false)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
}

func TestAddLPToken_UsesFixedDecimals(t *testing.T) {
	c := newTestCatalogue(t, fakeLedger{})
	tok, err := c.AddLPToken(7, "ABC-XYZ")
	require.NoError(t, err)
	require.Equal(t, KindLP, tok.Kind)
	require.Equal(t, uint32(LPDecimals), tok.Decimals)
	require.Equal(t, uint32(7), tok.PairedPoolID)
	require.Equal(t, ChainHost, tok.Chain())
}

func TestGet_UnknownIDReturnsNotFound(t *testing.T) {
	c := newTestCatalogue(t, fakeLedger{})
	_, err := c.Get(999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRemove_SetsIsRemoved(t *testing.T) {
	c := newTestCatalogue(t, fakeLedger{symbol: "ABC", decimals: 8})
	tok, err := c.AddHostToken(context.Background(), "canister-1")
	require.NoError(t, err)

	require.NoError(t, c.Remove(tok.ID))

	got, err := c.Get(tok.ID)
	require.NoError(t, err)
	require.True(t, got.IsRemoved)
}

func TestAllRemoved_ReturnsOnlyRemovedTokens(t *testing.T) {
	c := newTestCatalogue(t, fakeLedger{symbol: "ABC", decimals: 8})
	tok1, err := c.AddHostToken(context.Background(), "canister-1")
	require.NoError(t, err)
	_, err = c.AddExtToken("relayer-principal", "mint-1", "SOL", 9, 0, "program-1", false)
	require.NoError(t, err)

	require.NoError(t, c.Remove(tok1.ID))

	removed := c.AllRemoved()
	require.Len(t, removed, 1)
	require.Equal(t, tok1.ID, removed[0].ID)
}

func TestDecimalsFor_ResolvesBothTokens(t *testing.T) {
	c := newTestCatalogue(t, fakeLedger{symbol: "ABC", decimals: 8})
	tok1, err := c.AddHostToken(context.Background(), "canister-1")
	require.NoError(t, err)
	tok2, err := c.AddExtToken("relayer-principal", "mint-1", "SOL", 9, 0, "program-1", false)
	require.NoError(t, err)

	d0, d1, err := c.DecimalsFor(tok1.ID, tok2.ID)
	require.NoError(t, err)
	require.Equal(t, uint32(8), d0)
	require.Equal(t, uint32(9), d1)
}

func TestGetChain_ParsesCanonicalAddress(t *testing.T) {
	c := newTestCatalogue(t, fakeLedger{symbol: "ABC", decimals: 8})
	tok, err := c.AddHostToken(context.Background(), "canister-1")
	require.NoError(t, err)

	chain, err := c.GetChain(tok.CanonicalAddress())
	require.NoError(t, err)
	require.Equal(t, ChainHost, chain)
}

func TestParseCanonicalAddress_RejectsUnknownChain(t *testing.T) {
	_, _, err := ParseCanonicalAddress("WEIRD.foo")
	require.ErrorIs(t, err, ErrUnknownChain)
}

func TestParseCanonicalAddress_RejectsMalformed(t *testing.T) {
	_, _, err := ParseCanonicalAddress("nodothere")
	require.ErrorIs(t, err, ErrMalformedAddress)
}
