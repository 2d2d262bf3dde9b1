package scalarmul

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zkbtc/groth16script/builder"
	"github.com/zkbtc/groth16script/ec"
	"github.com/zkbtc/groth16script/field"
	"github.com/zkbtc/groth16script/internal/bnum"
	"github.com/zkbtc/groth16script/script"
)

func run(t *testing.T, scr *script.Script) (*script.Stack, *script.Stack) {
	t.Helper()
	scr.Add(script.NewStatement(script.OpTRUE))
	r := script.NewRuntime(scr, nil)
	rc := r.Run()
	require.Equal(t, script.RcOK, rc, script.RcString[rc])
	top, rc := r.Stack().Pop()
	require.Equal(t, script.RcOK, rc)
	require.Equal(t, int64(1), top.Int64())
	return r.Stack(), r.AltStack()
}

func mustFail(t *testing.T, scr *script.Script) {
	t.Helper()
	scr.Add(script.NewStatement(script.OpTRUE))
	rc := script.NewRuntime(scr, nil).Run()
	require.NotEqual(t, script.RcOK, rc)
}

func popPoint(t *testing.T, s *script.Stack) (int64, int64) {
	t.Helper()
	y, rc := s.Pop()
	require.Equal(t, script.RcOK, rc)
	x, rc := s.Pop()
	require.Equal(t, script.RcOK, rc)
	return x.Int64(), y.Int64()
}

// testCurve scans a few toy curves over F_19 for a base point whose
// multiples up to max stay clear of degenerate gradients.
func testCurve(t *testing.T, max int64) (*ec.Curve, ec.Point) {
	t.Helper()
	f := field.NewFq(bnum.NewInt(19))
	for _, b := range []int64{7, 1, 2, 3, 5, 6, 11} {
		c := ec.NewCurve(f, bnum.NewInt(0), bnum.NewInt(b))
		for x := int64(0); x < 19; x++ {
			for y := int64(1); y < 19; y++ {
				if (y*y)%19 != (x*x*x+b)%19 {
					continue
				}
				p := ec.Point{X: bnum.NewInt(x), Y: bnum.NewInt(y)}
				if multiplesOK(c, p, max) {
					return c, p
				}
			}
		}
	}
	t.Fatal("no toy curve point found")
	return nil, ec.Point{}
}

// multiplesOK reports whether every multiple 1P..maxP is finite with
// nonzero y, so every doubling/addition gradient in an unrolled trace
// exists.
func multiplesOK(c *ec.Curve, p ec.Point, max int64) bool {
	acc := ec.Point{}
	for k := int64(1); k <= 2*max; k++ {
		acc = c.Add(acc, p)
		if acc.IsInfinity() || acc.Y.Sign() == 0 {
			return false
		}
	}
	return true
}

func mulRef(c *ec.Curve, p ec.Point, k int64) ec.Point {
	acc := ec.Point{}
	for i := int64(0); i < k; i++ {
		acc = c.Add(acc, p)
	}
	return acc
}

func TestUnrolledAllScalars(t *testing.T) {
	const max = 8
	c, p := testCurve(t, max)
	u := NewUnrolled(c, max)

	for a := int64(0); a <= max; a++ {
		result, steps, zero := u.BuildWitness(a, p)
		scr := builder.PushNumber(19)
		scr.AddScript(u.UnlockingScript(a, p, steps, zero))
		scr.AddScript(u.LockingScript(2 + int(u.WitnessSlots())))
		stack, alt := run(t, scr)
		x, y := popPoint(t, stack)
		if a == 0 {
			require.True(t, result.IsInfinity())
			require.Zero(t, x)
			require.Zero(t, y)
		} else {
			want := mulRef(c, p, a)
			require.Equal(t, want.X.Int64(), x, "a=%d", a)
			require.Equal(t, want.Y.Int64(), y, "a=%d", a)
			require.Zero(t, result.X.Cmp(want.X))
		}
		require.Equal(t, 1, stack.Len(), "a=%d", a) // modulus only
		require.Zero(t, alt.Len())
	}
}

func TestUnrolledWrongGradientFails(t *testing.T) {
	const max = 8
	c, p := testCurve(t, max)
	u := NewUnrolled(c, max)

	_, steps, zero := u.BuildWitness(5, p)
	for i := range steps {
		if steps[i].Double {
			steps[i].DoubleGrad = c.Field.Eval(steps[i].DoubleGrad.Add(bnum.ONE))
			break
		}
	}
	scr := builder.PushNumber(19)
	scr.AddScript(u.UnlockingScript(5, p, steps, zero))
	scr.AddScript(u.LockingScript(2 + int(u.WitnessSlots())))
	mustFail(t, scr)
}

func TestUnrolledExtractableRecoversScalar(t *testing.T) {
	const max = 8
	c, p := testCurve(t, max)
	u := NewUnrolled(c, max)

	for _, a := range []int64{0, 1, 3, 5, 8} {
		_, steps, zero := u.BuildWitness(a, p)
		scr := builder.PushNumber(19)
		scr.AddScript(u.UnlockingScript(a, p, steps, zero))
		scr.AddScript(u.LockingScriptExtractable(2 + int(u.WitnessSlots())))
		_, alt := run(t, scr)
		require.Equal(t, 1, alt.Len(), "a=%d", a)
		v, rc := alt.Pop()
		require.Equal(t, script.RcOK, rc)
		require.Equal(t, a, v.Int64(), "a=%d", a)
	}
}

func TestMSMFixedBases(t *testing.T) {
	c, p := testCurve(t, 8)
	p2 := c.Double(p)
	bases := []ec.Point{p, p2}
	m := NewMSMFixedBases(c, []int64{8, 8})

	for _, scalars := range [][]int64{{3, 2}, {1, 1}, {0, 5}, {7, 0}, {0, 0}} {
		want, steps, zero, grads := m.BuildWitness(scalars, bases)
		scr := builder.PushNumber(19)
		scr.AddScript(m.UnlockingScript(scalars, steps, zero, grads))
		scr.AddScript(m.LockingScript(bases, m.WitnessSlots()))
		stack, _ := run(t, scr)
		x, y := popPoint(t, stack)
		if want.IsInfinity() {
			require.Zero(t, x, "scalars=%v", scalars)
			require.Zero(t, y)
		} else {
			require.Equal(t, want.X.Int64(), x, "scalars=%v", scalars)
			require.Equal(t, want.Y.Int64(), y, "scalars=%v", scalars)
		}
		require.Equal(t, 1, stack.Len())
	}
}

func TestMSMWitnessSlots(t *testing.T) {
	c, _ := testCurve(t, 8)
	m := NewMSMFixedBases(c, []int64{8, 8})
	// per term: 1 zero-marker + 4 slots per unrolled bit, plus one
	// summation gradient
	require.Equal(t, 2*(1+4*4)+1, m.WitnessSlots())
}

func TestUnrolledWitnessIsFixedWidth(t *testing.T) {
	c, p := testCurve(t, 8)
	u := NewUnrolled(c, 8)
	_, steps3, _ := u.BuildWitness(3, p)
	_, steps8, _ := u.BuildWitness(8, p)
	require.Len(t, steps3, 4)
	require.Len(t, steps8, 4)
	w3 := u.witnessOnlyUnlockingScript(false, steps3)
	w8 := u.witnessOnlyUnlockingScript(false, steps8)
	require.Equal(t, w3.Len(), w8.Len())
}
