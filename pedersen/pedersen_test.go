package pedersen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zkbtc/groth16script/builder"
	"github.com/zkbtc/groth16script/ec"
	"github.com/zkbtc/groth16script/field"
	"github.com/zkbtc/groth16script/internal/bnum"
	"github.com/zkbtc/groth16script/script"
)

// toyScheme finds a curve and two independent-looking generators whose
// small multiples avoid degenerate gradients.
func toyScheme(t *testing.T) *Scheme {
	t.Helper()
	f := field.NewFq(bnum.NewInt(19))
	for _, b := range []int64{7, 1, 2, 3, 5, 6, 11} {
		c := ec.NewCurve(f, bnum.NewInt(0), bnum.NewInt(b))
		for x := int64(0); x < 19; x++ {
			for y := int64(1); y < 19; y++ {
				if (y*y)%19 != (x*x*x+b)%19 {
					continue
				}
				g := ec.Point{X: bnum.NewInt(x), Y: bnum.NewInt(y)}
				if !multiplesSafe(c, g, 12) {
					continue
				}
				h := c.Double(c.Double(g))
				return NewScheme(c, g, h, 8, 8)
			}
		}
	}
	t.Fatal("no toy Pedersen scheme found")
	return nil
}

func multiplesSafe(c *ec.Curve, p ec.Point, max int64) bool {
	acc := ec.Point{}
	for k := int64(1); k <= max; k++ {
		acc = c.Add(acc, p)
		if acc.IsInfinity() || acc.Y.Sign() == 0 {
			return false
		}
	}
	return true
}

func TestOpeningUnlocksItsCommitment(t *testing.T) {
	s := toyScheme(t)
	opening := Opening{M: 3, R: 2}
	unlock, commitment, err := opening.UnlockingScript(s)
	require.NoError(t, err)
	require.False(t, commitment.IsInfinity())

	scr := builder.PushNumber(19)
	scr.AddScript(unlock)
	scr.AddScript(s.LockingScript(commitment, s.msm().WitnessSlots()))
	rc := script.ExecScript(scr, script.NewStack(), nil)
	require.Equal(t, script.RcOK, rc, script.RcString[rc])
}

func TestWrongOpeningFails(t *testing.T) {
	s := toyScheme(t)
	opening := Opening{M: 3, R: 2}
	_, commitment, err := opening.UnlockingScript(s)
	require.NoError(t, err)

	other := Opening{M: 4, R: 2}
	otherUnlock, otherCommitment, err := other.UnlockingScript(s)
	require.NoError(t, err)
	require.NotZero(t, commitment.X.Cmp(otherCommitment.X))

	scr := builder.PushNumber(19)
	scr.AddScript(otherUnlock)
	scr.AddScript(s.LockingScript(commitment, s.msm().WitnessSlots()))
	rc := script.ExecScript(scr, script.NewStack(), nil)
	require.NotEqual(t, script.RcOK, rc)
}

func TestOpeningRejectsNegativeScalars(t *testing.T) {
	s := toyScheme(t)
	_, _, err := Opening{M: -1, R: 2}.UnlockingScript(s)
	require.Error(t, err)
}
