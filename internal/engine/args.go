// Package engine implements the exchange transaction engine (C11), the
// central orchestration all four mutating operations share. Grounded on
// x/dex/keeper/swap.go and x/dex/keeper/pool.go's atomicity pattern
// (transfers before pool mutation, pool mutation as the point of no
// return), generalized to the cross-chain push/pull inbound model and
// Claim-based failure recovery spec.md §4.11 describes.
package engine

import (
	"cosmossdk.io/math"

	"github.com/tidalswap/engine/internal/hostchain"
)

// PayTx identifies how an inbound leg was paid, mirroring TxRef's kinds but
// at the argument layer: either the caller supplies a reference to an
// already-executed transfer (push model) or asks the engine to pull via a
// prior approval (host only).
type PayTx struct {
	HostBlock *math.Int // push, host chain
	ExtSig    *string   // push, ext chain
	Pull      bool      // pull, host chain only
}

// ExtAuth carries the Ed25519 proof required to authenticate an Ext-chain
// push-model inbound leg, per §4.8's inputs.
type ExtAuth struct {
	SignatureOverCanonicalMessage string
	CanonicalMessage              string
}

// SwapArgs is the argument set for the Swap operation (§4.11 point 5,
// Swap sub-case).
type SwapArgs struct {
	UserID        uint32
	PayToken      uint32
	PayAmount     math.Int
	PayTx         PayTx
	PayExtAuth    *ExtAuth
	ReceiveToken  uint32
	MinReceive    math.Int
	MaxSlippageBp uint32
	ReceiveAddress string
}

// AddLiquidityArgs is the argument set shared by AddLiquidity and the
// deposit leg of AddPool.
type AddLiquidityArgs struct {
	UserID        uint32
	Token0        uint32
	Amount0       math.Int
	PayTx0        PayTx
	PayExtAuth0   *ExtAuth
	Token1        uint32
	Amount1Max    math.Int
	PayTx1        PayTx
	PayExtAuth1   *ExtAuth
}

// RemoveLiquidityArgs is the argument set for RemoveLiquidity.
type RemoveLiquidityArgs struct {
	UserID        uint32
	PoolID        uint64
	LPAmount      math.Int
	Receive0Address string
	Receive1Address string
}

// AddPoolArgs is the argument set for AddPool: create() on C4 followed by
// the AddLiquidity deposit path (§4.11 point 5, AddPool sub-case).
type AddPoolArgs struct {
	AddLiquidityArgs
	LPFeeBps       uint32
	OperatorFeeBps uint32
}

// HostVerifierConfig and ExtVerifierConfig are resolved per-token
// configuration the engine needs to call §4.7/§4.8; the token catalogue
// supplies these from each Token's stored dialect/fungibility flags.
type HostVerifierConfig = hostchain.TokenInfo

type ExtVerifierInput struct {
	IsFungibleAccountToken bool
}
