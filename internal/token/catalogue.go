package token

import (
	"context"

	"github.com/tidalswap/engine/internal/obs"
	"github.com/tidalswap/engine/pkg/registry"
)

// HostLedgerClient resolves Host-chain token metadata (name/symbol/decimals/
// fee/std) the way the teacher resolves bank denom metadata, except here the
// collaborator is an external ICRC1/2/3 ledger canister, so the call can
// suspend (§5).
type HostLedgerClient interface {
	FetchMetadata(ctx context.Context, canisterID string) (symbol string, decimals uint32, fee uint64, std StdFlags, err error)
}

// Catalogue is the keeper-equivalent for C3: a registry of Token entities
// plus secondary indices by address and symbol.
type Catalogue struct {
	tokens          *registry.Registry[Token]
	byAddress       map[string]uint32
	bySymbol        map[string]uint32
	relayerPrincipal string
	ledger          HostLedgerClient
	logger          obs.Logger
}

// New constructs an empty Catalogue. relayerPrincipal is the only caller
// permitted to invoke AddExtToken.
func New(ledger HostLedgerClient, relayerPrincipal string, logger obs.Logger) *Catalogue {
	return &Catalogue{
		tokens:           registry.New[Token](),
		byAddress:        make(map[string]uint32),
		bySymbol:         make(map[string]uint32),
		relayerPrincipal: relayerPrincipal,
		ledger:           ledger,
		logger:           logger,
	}
}

// AddHostToken resolves metadata over the host ledger protocol and inserts a
// new Host token entry.
func (c *Catalogue) AddHostToken(ctx context.Context, canisterID string) (Token, error) {
	if existing, ok := c.byAddress[canonicalHost(canisterID)]; ok {
		tok, _ := c.tokens.Get(uint64(existing))
		return tok, nil
	}

	symbol, decimals, fee, std, err := c.ledger.FetchMetadata(ctx, canisterID)
	if err != nil {
		return Token{}, err
	}
	if _, ok := c.bySymbol[symbol]; ok {
		return Token{}, ErrDuplicateSymbol.Wrap(symbol)
	}

	var id uint64
	id = c.tokens.Insert(func(tokenID uint64) Token {
		return Token{
			ID:         uint32(tokenID),
			Kind:       KindHost,
			CanisterID: canisterID,
			StdFlags:   std,
			Symbol:     symbol,
			Decimals:   decimals,
			Fee:        fee,
		}
	})
	tok, _ := c.tokens.Get(id)
	c.byAddress[tok.CanonicalAddress()] = tok.ID
	c.bySymbol[symbol] = tok.ID
	c.logger.Info("host token added", "token_id", tok.ID, "canister_id", canisterID, "symbol", symbol)
	return tok, nil
}

// AddExtToken creates an Ext token entry from externally-fetched metadata.
// Privileged: only the configured relayer principal may call this, per
// spec.md §4.3 and §6.
func (c *Catalogue) AddExtToken(caller, mintAddress, symbol string, decimals uint32, fee uint64, programID string, isFungibleAccount bool) (Token, error) {
	if caller != c.relayerPrincipal {
		return Token{}, ErrUnauthorized
	}
	addr := canonicalExt(mintAddress)
	if existing, ok := c.byAddress[addr]; ok {
		tok, _ := c.tokens.Get(uint64(existing))
		return tok, nil
	}
	if _, ok := c.bySymbol[symbol]; ok {
		return Token{}, ErrDuplicateSymbol.Wrap(symbol)
	}

	id := c.tokens.Insert(func(tokenID uint64) Token {
		return Token{
			ID:                     uint32(tokenID),
			Kind:                   KindExt,
			MintAddress:            mintAddress,
			ProgramID:              programID,
			IsFungibleAccountToken: isFungibleAccount,
			Symbol:                 symbol,
			Decimals:               decimals,
			Fee:                    fee,
		}
	})
	tok, _ := c.tokens.Get(id)
	c.byAddress[tok.CanonicalAddress()] = tok.ID
	c.bySymbol[symbol] = tok.ID
	c.logger.Info("ext token added", "token_id", tok.ID, "mint", mintAddress, "symbol", symbol)
	return tok, nil
}

// AddLPToken creates the LP asset linked to a pool.
func (c *Catalogue) AddLPToken(poolID uint32, symbolPair string) (Token, error) {
	id := c.tokens.Insert(func(tokenID uint64) Token {
		return Token{
			ID:           uint32(tokenID),
			Kind:         KindLP,
			SymbolPair:   symbolPair,
			Symbol:       symbolPair,
			Decimals:     LPDecimals,
			PairedPoolID: poolID,
		}
	})
	tok, _ := c.tokens.Get(id)
	c.byAddress[tok.CanonicalAddress()] = tok.ID
	c.bySymbol[tok.Symbol] = tok.ID
	return tok, nil
}

// Get returns the token with the given id.
func (c *Catalogue) Get(id uint32) (Token, error) {
	tok, err := c.tokens.Get(uint64(id))
	if err != nil {
		return Token{}, ErrNotFound.Wrapf("token %d", id)
	}
	return tok, nil
}

// GetByAddress resolves a canonical "<CHAIN>.<ADDRESS>" string.
func (c *Catalogue) GetByAddress(addr string) (Token, error) {
	id, ok := c.byAddress[addr]
	if !ok {
		return Token{}, ErrNotFound.Wrap(addr)
	}
	return c.Get(id)
}

// GetBySymbol resolves a token by its registered symbol.
func (c *Catalogue) GetBySymbol(symbol string) (Token, error) {
	id, ok := c.bySymbol[symbol]
	if !ok {
		return Token{}, ErrNotFound.Wrap(symbol)
	}
	return c.Get(id)
}

// DecimalsFor resolves both tokens' decimals in one call, a convenience for
// callers (such as the engine's AddPool path) that need to normalize two
// amounts to a common precision.
func (c *Catalogue) DecimalsFor(id0, id1 uint32) (uint32, uint32, error) {
	t0, err := c.Get(id0)
	if err != nil {
		return 0, 0, err
	}
	t1, err := c.Get(id1)
	if err != nil {
		return 0, 0, err
	}
	return t0.Decimals, t1.Decimals, nil
}

// GetChain parses the chain component out of a canonical address.
func (c *Catalogue) GetChain(addr string) (Chain, error) {
	chain, _, err := ParseCanonicalAddress(addr)
	return chain, err
}

// Remove sets is_removed. Removed tokens reject new positions but still
// permit refunds, enforced by callers checking IsRemoved before minting/
// opening new exposure.
func (c *Catalogue) Remove(id uint32) error {
	tok, err := c.Get(id)
	if err != nil {
		return err
	}
	tok.IsRemoved = true
	return c.tokens.Update(uint64(id), tok)
}

// AllRemoved returns every token currently flagged removed, for the
// disabled-token scanner (C14).
func (c *Catalogue) AllRemoved() []Token {
	var out []Token
	c.tokens.Iter(func(_ uint64, t Token) bool {
		if t.IsRemoved {
			out = append(out, t)
		}
		return true
	})
	return out
}

func canonicalHost(canisterID string) string { return string(ChainHost) + "." + canisterID }
func canonicalExt(mint string) string         { return string(ChainExt) + "." + mint }
