package pairing

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fp"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/stretchr/testify/require"

	"github.com/zkbtc/groth16script/builder"
	"github.com/zkbtc/groth16script/curveparams"
	"github.com/zkbtc/groth16script/ec"
	"github.com/zkbtc/groth16script/field"
	"github.com/zkbtc/groth16script/internal/bnum"
	"github.com/zkbtc/groth16script/script"
	"github.com/zkbtc/groth16script/tower"
)

func runScript(t *testing.T, scr *script.Script) *script.Stack {
	t.Helper()
	scr.Add(script.NewStatement(script.OpTRUE))
	stack := script.NewStack()
	rc := script.ExecScript(scr, stack, nil)
	require.Equal(t, script.RcOK, rc, script.RcString[rc])
	top, rc := stack.Pop()
	require.Equal(t, script.RcOK, rc)
	require.Equal(t, int64(1), top.Int64())
	return stack
}

func mustFailScript(t *testing.T, scr *script.Script) {
	t.Helper()
	scr.Add(script.NewStatement(script.OpTRUE))
	rc := script.ExecScript(scr, script.NewStack(), nil)
	require.NotEqual(t, script.RcOK, rc)
}

func topLimbs(t *testing.T, s *script.Stack, n int) []int64 {
	t.Helper()
	out := make([]int64, n)
	for i := n - 1; i >= 0; i-- {
		v, rc := s.Pop()
		require.Equal(t, script.RcOK, rc)
		out[i] = v.Int64()
	}
	return out
}

func fq12TestLimbs(a tower.Fq12Elem) []int64 {
	ls := []*bnum.Int{
		a.C0.C0.C0, a.C0.C0.C1, a.C0.C1.C0, a.C0.C1.C1, a.C0.C2.C0, a.C0.C2.C1,
		a.C1.C0.C0, a.C1.C0.C1, a.C1.C1.C0, a.C1.C1.C1, a.C1.C2.C0, a.C1.C2.C1,
	}
	out := make([]int64, 12)
	for i, l := range ls {
		out[i] = l.Int64()
	}
	return out
}

// toySetup assembles a complete toy pairing compiler over F_19 together
// with base and twist points whose Miller trace and final-exponentiation
// witnesses are fully defined. Everything is found by scanning, with a
// recover guard around the off-chain inversion, so the test suite never
// depends on hand-picked constants being non-degenerate.
func toySetup(t *testing.T) (*Pairing, ec.Point, ec.TwistPoint) {
	t.Helper()
	q := bnum.NewInt(19)
	fq := field.NewFq(q)
	fq2 := tower.NewFq2(fq, fq.Eval(bnum.NewInt(-1)))

	xi := findNonCubeFq2(fq2)
	fq6 := tower.NewFq6(fq2, xi)
	fq12 := tower.NewFq12(fq6)

	params := &curveparams.CurveParams{
		Name:             "toy-pairing",
		Q:                q,
		R:                bnum.NewInt(5),
		A:                bnum.NewInt(0),
		B:                bnum.NewInt(7),
		MillerLoopLength: []int8{1, 0, 1},
		IsLoopNegative:   false,
		X:                bnum.NewInt(2),
	}

	for _, bBase := range []int64{7, 1, 2, 3, 5, 6, 11} {
		base := ec.NewCurve(fq, bnum.NewInt(0), bnum.NewInt(bBase))
		p, ok := findToyBase(base)
		if !ok {
			continue
		}
		for _, bt := range []int64{1, 2, 3, 5, 7} {
			for _, bt1 := range []int64{0, 1, 2, 4} {
				twistB := tower.Fq2Elem{C0: bnum.NewInt(bt), C1: bnum.NewInt(bt1)}
				twist := ec.NewTwistCurve(fq2, tower.Fq2Elem{C0: bnum.NewInt(0), C1: bnum.NewInt(0)}, twistB)
				pair := NewPairing(base, twist, fq2, fq12, params)
				if qpt, ok := findToyTwist(pair, p); ok {
					return pair, p, qpt
				}
			}
		}
	}
	t.Fatal("no workable toy pairing setup found")
	return nil, ec.Point{}, ec.TwistPoint{}
}

func findNonCubeFq2(f *tower.Fq2) tower.Fq2Elem {
	one := bnum.NewInt(1)
	for c0 := int64(0); c0 < 19; c0++ {
		for c1 := int64(0); c1 < 19; c1++ {
			cand := tower.Fq2Elem{C0: bnum.NewInt(c0), C1: bnum.NewInt(c1)}
			if c0 == 0 && c1 == 0 {
				continue
			}
			p := f.Pow(cand, bnum.NewInt(120))
			if !(p.C0.Cmp(one) == 0 && p.C1.Sign() == 0) {
				return cand
			}
		}
	}
	return tower.Fq2Elem{C0: bnum.NewInt(2), C1: bnum.NewInt(1)}
}

func findToyBase(c *ec.Curve) (ec.Point, bool) {
	for x := int64(0); x < 19; x++ {
		for y := int64(1); y < 19; y++ {
			if (y*y)%19 != (x*x*x+c.B.Int64())%19 {
				continue
			}
			return ec.Point{X: bnum.NewInt(x), Y: bnum.NewInt(y)}, true
		}
	}
	return ec.Point{}, false
}

// findToyTwist scans E'(Fq2) for a point whose full witness
// construction against the given base point (Miller trace gradients
// and the inverse of the Miller output) succeeds.
func findToyTwist(p *Pairing, base ec.Point) (ec.TwistPoint, bool) {
	f := p.Fq2
	for x0 := int64(0); x0 < 19; x0++ {
		for x1 := int64(0); x1 < 19; x1++ {
			x := tower.Fq2Elem{C0: bnum.NewInt(x0), C1: bnum.NewInt(x1)}
			rhs := f.Add(f.Mul(x, f.Mul(x, x)), p.Twist.B)
			for y0 := int64(0); y0 < 19; y0++ {
				for y1 := int64(0); y1 < 19; y1++ {
					if y0 == 0 && y1 == 0 {
						continue
					}
					y := tower.Fq2Elem{C0: bnum.NewInt(y0), C1: bnum.NewInt(y1)}
					diff := f.Sub(f.Mul(y, y), rhs)
					if diff.C0.Sign() != 0 || diff.C1.Sign() != 0 {
						continue
					}
					qpt := ec.TwistPoint{X: x, Y: y}
					if witnessBuilds(p, base, qpt) {
						return qpt, true
					}
				}
			}
		}
	}
	return ec.TwistPoint{}, false
}

// witnessBuilds reports whether the whole off-chain witness pipeline
// runs without hitting a non-invertible denominator.
func witnessBuilds(p *Pairing, base ec.Point, qpt ec.TwistPoint) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	f, _ := p.BuildWitness(base, qpt)
	inv := p.Tower.Inverse(f)
	prod := p.Tower.Mul(f, inv)
	one := one12()
	if !(prod.C0.C0.C0.Cmp(one.C0.C0.C0) == 0 && prod.C0.C0.C1.Sign() == 0 && prod.C1.C0.C0.Sign() == 0) {
		return false
	}
	// the final exponentiation witnesses must build as well
	easy := p.EasyExponentiationWitness(f)
	p.HardExponentiationWitness(easy)
	return true
}

func TestMillerLoopScriptMatchesOffChainTrace(t *testing.T) {
	pair, p, q := toySetup(t)
	f, steps := pair.BuildWitness(p, q)

	scr := builder.PushNumber(19)
	scr.AddScript(pair.MillerLoopUnlockingScript(p, q, steps))
	scr.AddScript(pair.MillerLoopLockingScript(millerLoopWitnessSize(pair.Params)))
	stack := runScript(t, scr)
	require.Equal(t, fq12TestLimbs(f), topLimbs(t, stack, 12))
	// the spent accumulator state (T, Q, P) and the modulus remain
	require.Equal(t, 11, stack.Len())
}

func TestSingleLockingScriptMatchesOffChainPairing(t *testing.T) {
	pair, p, q := toySetup(t)
	want := pair.Single(p, q)

	scr := builder.PushNumber(19)
	scr.AddScript(pair.SingleUnlockingScript(p, q))
	scr.AddScript(pair.SingleLockingScript(pair.SingleWitnessSize()))
	stack := runScript(t, scr)
	require.Equal(t, fq12TestLimbs(want), topLimbs(t, stack, 12))
	require.Equal(t, 1, stack.Len())
}

func TestWrongInverseMillerOutputFails(t *testing.T) {
	pair, p, q := toySetup(t)
	f, steps := pair.BuildWitness(p, q)
	invF := pair.BuildFinalExponentiationWitness(f)
	invF.InverseF.C0.C0.C0 = pair.Base.Field.Eval(invF.InverseF.C0.C0.C0.Add(bnum.ONE))

	scr := builder.PushNumber(19)
	scr.AddScript(PushFinalExponentiationWitness(invF))
	scr.AddScript(pair.MillerLoopUnlockingScript(p, q, steps))
	scr.AddScript(pair.SingleLockingScript(pair.SingleWitnessSize()))
	mustFailScript(t, scr)
}

func TestWrongMillerGradientFails(t *testing.T) {
	pair, p, q := toySetup(t)
	f, steps := pair.BuildWitness(p, q)
	steps[0].DoubleGrad = pair.Fq2.Add(steps[0].DoubleGrad, tower.Fq2Elem{C0: bnum.NewInt(1), C1: bnum.NewInt(0)})

	scr := builder.PushNumber(19)
	scr.AddScript(PushFinalExponentiationWitness(pair.BuildFinalExponentiationWitness(f)))
	scr.AddScript(pair.MillerLoopUnlockingScript(p, q, steps))
	scr.AddScript(pair.SingleLockingScript(pair.SingleWitnessSize()))
	mustFailScript(t, scr)
}

func TestTripleLockingScriptMatchesProduct(t *testing.T) {
	pair, p, q := toySetup(t)
	bases := [3]ec.Point{p, p, p}
	twists := [3]ec.TwistPoint{q, q, q}
	want := pair.Triple(bases, twists)

	scr := builder.PushNumber(19)
	scr.AddScript(pair.TripleUnlockingScript(bases, twists))
	scr.AddScript(pair.TripleLockingScript(3 * pair.SingleWitnessSize()))
	stack := runScript(t, scr)
	require.Equal(t, fq12TestLimbs(want), topLimbs(t, stack, 12))
	require.Equal(t, 1, stack.Len())
}

func TestBLS12381ParamsMatchGnark(t *testing.T) {
	params := curveparams.BLS12381()
	require.Equal(t, fp.Modulus().String(), params.Q.String())
	require.Equal(t, fr.Modulus().String(), params.R.String())
}

func TestBLS12381NafEncodesLoopExponent(t *testing.T) {
	params := curveparams.BLS12381()
	// |6x+2| for the negative BLS12-381 x
	want := bnum.NewInt(6).Mul(params.X).Sub(bnum.TWO)
	got := bnum.NewInt(0)
	for _, d := range params.MillerLoopLength {
		got = got.Mul(bnum.TWO).Add(bnum.NewInt(int64(d)))
	}
	require.Equal(t, want.String(), got.String())
}

func TestBLS12381HardExponentIsExact(t *testing.T) {
	params := curveparams.BLS12381()
	q2 := params.Q.Mul(params.Q)
	q4 := q2.Mul(q2)
	num := q4.Sub(q2).Add(bnum.ONE)
	require.Equal(t, 0, num.Mod(params.R).Sign(), "(q^4 - q^2 + 1) must be divisible by r")
	require.Equal(t, num.Div(params.R).String(), params.HardExponent().String())
}
