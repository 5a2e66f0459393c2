// Package pool implements the pool registry and constant-product invariant
// (C4): reserve/fee accounting, swap/LP math. Grounded on
// x/dex/keeper/pool.go, x/dex/keeper/swap.go, and x/dex/keeper/liquidity.go,
// generalized from Cosmos bank denoms to the engine's Host/Ext/LP token_ids
// and from a single swap_fee_bps to the spec's lp_fee_bps/operator_fee_bps
// split.
package pool

import (
	"cosmossdk.io/math"

	"github.com/tidalswap/engine/pkg/natmath"
)

// Pool is the constant-product reserve pair of §3.
type Pool struct {
	ID uint32

	TokenID0 uint32
	TokenID1 uint32 // canonical quote side

	Balance0 math.Int
	Balance1 math.Int

	LPFee0 math.Int
	LPFee1 math.Int

	OperatorFee0 math.Int
	OperatorFee1 math.Int

	LPFeeBps       uint32
	OperatorFeeBps uint32

	LPTokenID uint32
	IsRemoved bool
}

// K returns the fee-inclusive invariant product k = (b0+f0)*(b1+f1), the
// quantity that must be monotonically non-decreasing across swaps (§3
// invariant 4, §8).
func (p Pool) K() math.Int {
	return natmath.Add(p.Balance0, p.LPFee0).Mul(natmath.Add(p.Balance1, p.LPFee1))
}

// Price returns (balance1+lp_fee1)/(balance0+lp_fee0) normalized to a common
// decimal precision — the zero-oracle price function of §4.4.
func (p Pool) Price(decimals0, decimals1 uint32) (math.LegacyDec, error) {
	num := natmath.Add(p.Balance1, p.LPFee1)
	den := natmath.Add(p.Balance0, p.LPFee0)
	r, err := natmath.NewRational(num, den)
	if err != nil {
		return math.LegacyDec{}, err
	}
	return r.ToDecimalAtPrecision(decimals1, decimals0), nil
}
