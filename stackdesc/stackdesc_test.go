package stackdesc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFiniteFieldElementValidation(t *testing.T) {
	_, err := NewFiniteFieldElement(3, false, 0)
	require.Error(t, err)

	_, err = NewFiniteFieldElement(1, false, 4)
	require.Error(t, err)

	f, err := NewFiniteFieldElement(3, false, 2)
	require.NoError(t, err)
	require.Equal(t, 2, f.Bottom())
}

func TestEllipticCurvePointValidation(t *testing.T) {
	x := MustNewFiniteFieldElement(3, false, 2)
	y := MustNewFiniteFieldElement(1, false, 2)
	p, err := NewEllipticCurvePoint(x, y)
	require.NoError(t, err)
	require.Equal(t, 1, p.Top())

	// mismatched extension degrees
	_, err = NewEllipticCurvePoint(MustNewFiniteFieldElement(3, false, 2), MustNewFiniteFieldElement(0, false, 1))
	require.Error(t, err)

	// overlapping spans
	_, err = NewEllipticCurvePoint(MustNewFiniteFieldElement(2, false, 2), MustNewFiniteFieldElement(1, false, 2))
	require.Error(t, err)

	// y deeper than x is a layout error
	_, err = NewEllipticCurvePoint(MustNewFiniteFieldElement(1, false, 2), MustNewFiniteFieldElement(3, false, 2))
	require.Error(t, err)
}

func TestShiftAndNegate(t *testing.T) {
	n := NewNumber(4, false)
	require.Equal(t, 6, n.Shift(2).Position)
	require.True(t, n.SetNegate(true).Negate)

	f := MustNewFiniteFieldElement(5, false, 2)
	require.Equal(t, 7, f.Shift(2).Position)
	require.Equal(t, 6, f.Shift(2).Bottom())

	p := MustNewEllipticCurvePoint(
		MustNewFiniteFieldElement(3, false, 2),
		MustNewFiniteFieldElement(1, false, 2),
	)
	shifted := p.Shift(4)
	require.Equal(t, 7, shifted.X.Position)
	require.Equal(t, 5, shifted.Y.Position)
	require.True(t, p.SetNegate(true).Y.Negate)
}

func TestIsBeforeAndOverlap(t *testing.T) {
	deep := NewBaseElement(5)
	shallow := NewBaseElement(2)
	require.True(t, deep.IsBefore(shallow))
	require.False(t, shallow.IsBefore(deep))

	over, msg := MustNewFiniteFieldElement(3, false, 2).OverlapsOnTheRight(NewBaseElement(2))
	require.True(t, over)
	require.NotEmpty(t, msg)
}
