package field

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zkbtc/groth16script/internal/bnum"
)

// TestEcBoundDominatesExactFormula checks the closed form against the
// exact value log2(6*q*x) it stands in for, across a sweep of operand
// widths: the symbolic bound must never undershoot.
func TestEcBoundDominatesExactFormula(t *testing.T) {
	q := bnum.NewIntFromHex("1A0111EA397FE69A4B1BA7B6434BACD764774B84F38512BF6730D2A0F6B0F6241EABFFFEB153FFFFB9FEFFFFFFFFAAAB")
	qBits := q.BitLen()
	for _, extra := range []int{0, 1, 5, 64, 300} {
		x := bnum.NewInt(1)
		for i := 0; i < qBits+extra-1; i++ {
			x = x.Mul(bnum.TWO)
		}
		exact := bnum.NewInt(6).Mul(q).Mul(x).BitLen()
		bound := SizeAfter(OpKindEcDouble, x.BitLen(), qBits)
		require.GreaterOrEqual(t, bound, exact, "extra=%d", extra)
	}
}

func TestMillerBoundMatchesDocumentedFormula(t *testing.T) {
	// log2(13*3) + 2*size_f + log2(13*3) + log2(q), with ceil(log2(39)) = 6
	require.Equal(t, 6+2*100+6+381, SizeAfter(OpKindMillerStep, 100, 381))
}

func TestAddAndMulBounds(t *testing.T) {
	require.Equal(t, 101, SizeAfter(OpKindAdd, 100, 381))
	require.Equal(t, 200, SizeAfter(OpKindMul, 100, 381))
}

func TestNeedsReduction(t *testing.T) {
	require.True(t, NeedsReduction(OpKindMul, 300, 381, 500))
	require.False(t, NeedsReduction(OpKindMul, 200, 381, 500))
	require.True(t, NeedsReduction(OpKindEcDouble, 200, 381, 500))
}

func TestExactMulProductNeverExceedsBound(t *testing.T) {
	a := bnum.NewIntFromHex("FFFFFFFFFFFFFFFFFFFFFFFF")
	b := bnum.NewIntFromHex("FFFFFFFFFFFFFFFFFFFFFFFF")
	require.LessOrEqual(t, a.Mul(b).BitLen(), SizeAfter(OpKindMul, a.BitLen(), 96))
}
