// Package natmath implements the exact-precision integer and rational
// arithmetic the engine uses on every money path. No operation here ever
// rounds except by explicit floor truncation; display-only rounding lives
// outside this package.
package natmath

import (
	"cosmossdk.io/math"
)

// Nat is an arbitrary-precision non-negative integer, backed by math.Int.
// The engine never constructs a negative Nat: Sub saturates to zero instead.
type Nat = math.Int

// Zero returns the additive identity.
func Zero() Nat { return math.ZeroInt() }

// NewFromUint64 builds a Nat from a uint64 amount.
func NewFromUint64(n uint64) Nat { return math.NewIntFromUint64(n) }

// Add returns a+b.
func Add(a, b Nat) Nat { return a.Add(b) }

// Sub returns a-b, saturating to zero on underflow. Pool reserve and fee
// accounting relies on this: a transient rounding mismatch must never panic
// or go negative.
func Sub(a, b Nat) Nat {
	if a.LT(b) {
		return Zero()
	}
	return a.Sub(b)
}

// Mul returns a*b.
func Mul(a, b Nat) Nat { return a.Mul(b) }

// Div returns floor(a/b). Callers must ensure b is non-zero.
func Div(a, b Nat) Nat { return a.Quo(b) }

// MulDiv returns floor(a*b/c), performed without intermediate overflow since
// math.Int is arbitrary precision.
func MulDiv(a, b, c Nat) Nat {
	return a.Mul(b).Quo(c)
}

// Sqrt returns the integer square root (floor) of n.
func Sqrt(n Nat) Nat {
	if n.IsNegative() {
		return Zero()
	}
	d, err := math.LegacyNewDecFromInt(n).ApproxSqrt()
	if err != nil {
		return Zero()
	}
	return d.TruncateInt()
}

// ToDecimalPrecision implements n * 10^(toDec-fromDec), integer-truncating
// the division when toDec < fromDec.
func ToDecimalPrecision(n Nat, fromDec, toDec uint32) Nat {
	if toDec >= fromDec {
		shift := toDec - fromDec
		return n.Mul(pow10(shift))
	}
	shift := fromDec - toDec
	return n.Quo(pow10(shift))
}

func pow10(exp uint32) Nat {
	result := math.NewInt(1)
	ten := math.NewInt(10)
	for i := uint32(0); i < exp; i++ {
		result = result.Mul(ten)
	}
	return result
}
