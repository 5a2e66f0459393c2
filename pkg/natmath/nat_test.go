package natmath

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"
)

func TestSub_SaturatesToZeroOnUnderflow(t *testing.T) {
	got := Sub(math.NewInt(3), math.NewInt(10))
	require.True(t, got.IsZero())
}

func TestSub_NormalCase(t *testing.T) {
	got := Sub(math.NewInt(10), math.NewInt(3))
	require.True(t, got.Equal(math.NewInt(7)))
}

func TestMulDiv_NoIntermediateOverflowForLargeValues(t *testing.T) {
	big := math.NewIntFromUint64(1 << 63)
	got := MulDiv(big, big, big)
	require.True(t, got.Equal(big))
}

func TestMulDiv_FloorsTowardZero(t *testing.T) {
	got := MulDiv(math.NewInt(7), math.NewInt(1), math.NewInt(2))
	require.True(t, got.Equal(math.NewInt(3)))
}

func TestSqrt_PerfectSquare(t *testing.T) {
	got := Sqrt(math.NewInt(144))
	require.True(t, got.Equal(math.NewInt(12)))
}

func TestSqrt_FloorsNonPerfectSquare(t *testing.T) {
	got := Sqrt(math.NewInt(10))
	require.True(t, got.Equal(math.NewInt(3)))
}

func TestSqrt_NegativeReturnsZero(t *testing.T) {
	got := Sqrt(math.NewInt(-5))
	require.True(t, got.IsZero())
}

func TestToDecimalPrecision_ScalesUp(t *testing.T) {
	got := ToDecimalPrecision(math.NewInt(1), 6, 9)
	require.True(t, got.Equal(math.NewInt(1000)))
}

func TestToDecimalPrecision_ScalesDownTruncates(t *testing.T) {
	got := ToDecimalPrecision(math.NewInt(1234), 9, 6)
	require.True(t, got.Equal(math.NewInt(1)))
}

func TestToDecimalPrecision_SamePrecisionIsIdentity(t *testing.T) {
	got := ToDecimalPrecision(math.NewInt(500), 8, 8)
	require.True(t, got.Equal(math.NewInt(500)))
}
