package natmath

import (
	"cosmossdk.io/errors"
	"cosmossdk.io/math"
)

// ErrZeroDenominator is returned by NewRational when den is zero.
var ErrZeroDenominator = errors.Register("natmath", 1, "zero denominator")

// Rational is a reduced fraction num/den, den always positive.
// Mirrors kong_lib's StorableRational: always stored in lowest terms so
// comparisons and multiplications never need to re-reduce.
type Rational struct {
	Num math.Int
	Den math.Int
}

// NewRational constructs a reduced Rational. Fails if den is zero.
func NewRational(num, den math.Int) (Rational, error) {
	if den.IsZero() {
		return Rational{}, ErrZeroDenominator
	}
	if den.IsNegative() {
		num, den = num.Neg(), den.Neg()
	}
	g := gcd(absInt(num), den)
	if g.IsZero() || g.Equal(math.NewInt(1)) {
		return Rational{Num: num, Den: den}, nil
	}
	return Rational{Num: num.Quo(g), Den: den.Quo(g)}, nil
}

// Reverse returns den/num. Fails if num is zero, since that would make the
// reversed denominator zero.
func (r Rational) Reverse() (Rational, error) {
	return NewRational(r.Den, r.Num)
}

// Mul returns r*o, reduced.
func (r Rational) Mul(o Rational) (Rational, error) {
	return NewRational(r.Num.Mul(o.Num), r.Den.Mul(o.Den))
}

// Cmp compares r and o without converting to float, by cross-multiplying.
// Returns -1, 0, or 1.
func (r Rational) Cmp(o Rational) int {
	left := r.Num.Mul(o.Den)
	right := o.Num.Mul(r.Den)
	switch {
	case left.LT(right):
		return -1
	case left.GT(right):
		return 1
	default:
		return 0
	}
}

// ToDecimalAtPrecision renders the rational as a LegacyDec after normalizing
// both sides to a common decimal precision — the only place this package
// permits anything other than floor truncation, since it is a display/price
// conversion, not a money-path computation.
func (r Rational) ToDecimalAtPrecision(numDecimals, denDecimals uint32) math.LegacyDec {
	num := ToDecimalPrecision(r.Num, numDecimals, denDecimals)
	if r.Den.IsZero() {
		return math.LegacyZeroDec()
	}
	return math.LegacyNewDecFromInt(num).Quo(math.LegacyNewDecFromInt(r.Den))
}

func gcd(a, b math.Int) math.Int {
	for !b.IsZero() {
		a, b = b, a.Mod(b)
	}
	return a
}

func absInt(n math.Int) math.Int {
	if n.IsNegative() {
		return n.Neg()
	}
	return n
}
