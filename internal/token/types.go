// Package token implements the token catalogue (C3): tagged Host/Ext/LP
// token entities, address parsing, and removal flags. Grounded on
// x/dex/types/types.go's token-adjacent constants and on
// kong_backend/src/ic/address.rs for canonical address parsing.
package token

import (
	"fmt"
	"strings"

	"cosmossdk.io/errors"
)

const ModuleName = "token"

var (
	ErrUnknownChain     = errors.Register(ModuleName, 1, "unknown chain prefix")
	ErrMalformedAddress = errors.Register(ModuleName, 2, "malformed canonical address")
	ErrUnauthorized     = errors.Register(ModuleName, 3, "unauthorized caller")
	ErrNotFound         = errors.Register(ModuleName, 4, "token not found")
	ErrTokenRemoved     = errors.Register(ModuleName, 5, "token has been removed")
	ErrDuplicateSymbol  = errors.Register(ModuleName, 6, "token symbol already registered")
)

// Chain identifies which side of the bridge a token lives on.
type Chain string

const (
	ChainHost Chain = "HOST"
	ChainExt  Chain = "EXT"
)

// LPDecimals is the fixed decimal precision of every LP token, independent
// of the decimals of the pool's underlying tokens.
const LPDecimals = 8

// Kind is the closed tagged union of token variants. A bounded, compile-time
// known set — per SPEC_FULL.md/§9, this uses a tagged union with methods,
// not trait objects / interface dispatch.
type Kind int

const (
	KindHost Kind = iota
	KindExt
	KindLP
)

// StdFlags records which ICRC standards a Host token advertises.
type StdFlags struct {
	ICRC1 bool
	ICRC2 bool
	ICRC3 bool
}

// Token is the tagged variant entity of §3. Only the fields relevant to Kind
// are populated; callers must switch on Kind before reading variant fields.
type Token struct {
	ID        uint32
	Kind      Kind
	IsRemoved bool

	// Host fields
	CanisterID string
	StdFlags   StdFlags

	// Ext fields
	MintAddress            string
	ProgramID               string
	IsFungibleAccountToken bool

	// Shared scalar metadata (all kinds)
	Symbol   string
	Decimals uint32
	Fee      uint64

	// PlatformFeeBps is the prediction-market platform-fee rate (§4.13),
	// distinct from the flat per-transfer Fee above.
	PlatformFeeBps uint32

	// LP fields
	SymbolPair   string
	PairedPoolID uint32
}

// Chain returns which side of the bridge this token lives on. LP tokens are
// considered Host-side, since LP positions are tracked in the engine's own
// process.
func (t Token) Chain() Chain {
	switch t.Kind {
	case KindExt:
		return ChainExt
	default:
		return ChainHost
	}
}

// CanonicalAddress returns the "<CHAIN>.<ADDRESS>" form used in args and
// in-memory lookups.
func (t Token) CanonicalAddress() string {
	switch t.Kind {
	case KindHost:
		return fmt.Sprintf("%s.%s", ChainHost, t.CanisterID)
	case KindExt:
		return fmt.Sprintf("%s.%s", ChainExt, t.MintAddress)
	default:
		return fmt.Sprintf("%s.%s", ChainHost, t.SymbolPair)
	}
}

// ParseCanonicalAddress splits "<CHAIN>.<ADDRESS>" into its chain and
// address parts.
func ParseCanonicalAddress(addr string) (Chain, string, error) {
	parts := strings.SplitN(addr, ".", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", ErrMalformedAddress.Wrapf("%q", addr)
	}
	chain := Chain(strings.ToUpper(parts[0]))
	switch chain {
	case ChainHost, ChainExt:
		return chain, parts[1], nil
	default:
		return "", "", ErrUnknownChain.Wrapf("%q", parts[0])
	}
}
