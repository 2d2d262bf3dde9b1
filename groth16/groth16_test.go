package groth16

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zkbtc/groth16script/builder"
	"github.com/zkbtc/groth16script/curveparams"
	"github.com/zkbtc/groth16script/ec"
	"github.com/zkbtc/groth16script/field"
	"github.com/zkbtc/groth16script/internal/bnum"
	"github.com/zkbtc/groth16script/pairing"
	"github.com/zkbtc/groth16script/script"
	"github.com/zkbtc/groth16script/tower"
)

// toyVerifier assembles a complete, self-consistent toy verifying key:
// curve, twist and witness points are found by scanning, and AlphaBeta
// is set to the product the three pairing evaluations actually yield
// for the chosen proof and public inputs, so that exactly that witness
// unlocks and any mutation fails.
func toyVerifier(t *testing.T) (*Verifier, Proof, []int64) {
	t.Helper()
	q := bnum.NewInt(19)
	fq := field.NewFq(q)
	fq2 := tower.NewFq2(fq, fq.Eval(bnum.NewInt(-1)))
	xi := findNonCube(fq2)
	fq6 := tower.NewFq6(fq2, xi)
	fq12 := tower.NewFq12(fq6)

	params := &curveparams.CurveParams{
		Name:             "toy-groth16",
		Q:                q,
		R:                bnum.NewInt(5),
		A:                bnum.NewInt(0),
		B:                bnum.NewInt(7),
		MillerLoopLength: []int8{1, 0, 1},
		IsLoopNegative:   false,
		X:                bnum.NewInt(2),
	}

	publicInputs := []int64{3}

	for _, bBase := range []int64{7, 1, 2, 3, 5, 6, 11} {
		base := ec.NewCurve(fq, bnum.NewInt(0), bnum.NewInt(bBase))
		p, ok := findSafeBase(base, 16)
		if !ok {
			continue
		}
		for _, bt := range []int64{1, 2, 3, 5, 7} {
			for _, bt1 := range []int64{0, 1, 2, 4} {
				twistB := tower.Fq2Elem{C0: bnum.NewInt(bt), C1: bnum.NewInt(bt1)}
				twist := ec.NewTwistCurve(fq2, tower.Fq2Elem{C0: bnum.NewInt(0), C1: bnum.NewInt(0)}, twistB)
				pair := pairing.NewPairing(base, twist, fq2, fq12, params)
				qpt, ok := findSafeTwist(pair, p)
				if !ok {
					continue
				}

				vk := VerifyingKey{
					GammaNeg: qpt,
					DeltaNeg: qpt,
					GammaABC: []ec.Point{p, base.Double(p)},
				}
				proof := Proof{A: p, B: qpt, C: base.Double(p)}
				v, err := NewVerifier(pair, vk, []int64{8})
				require.NoError(t, err)

				w, ok := tryBuild(v, proof, publicInputs)
				if !ok {
					continue
				}
				// close the equation: alpha*beta := the product this
				// witness actually evaluates to
				tw := pair.Tower
				lhs := tw.Mul(tw.Mul(pair.Single(proof.A, proof.B), pair.Single(w.vkx, vk.GammaNeg)), pair.Single(proof.C, vk.DeltaNeg))
				v.VK.AlphaBeta = lhs
				return v, proof, publicInputs
			}
		}
	}
	t.Fatal("no workable toy Groth16 setup found")
	return nil, Proof{}, nil
}

func tryBuild(v *Verifier, proof Proof, inputs []int64) (w *Witness, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	w, err := v.BuildWitness(proof, inputs)
	if err != nil {
		return nil, false
	}
	return w, true
}

func findNonCube(f *tower.Fq2) tower.Fq2Elem {
	one := bnum.NewInt(1)
	for c0 := int64(0); c0 < 19; c0++ {
		for c1 := int64(0); c1 < 19; c1++ {
			if c0 == 0 && c1 == 0 {
				continue
			}
			cand := tower.Fq2Elem{C0: bnum.NewInt(c0), C1: bnum.NewInt(c1)}
			p := f.Pow(cand, bnum.NewInt(120))
			if !(p.C0.Cmp(one) == 0 && p.C1.Sign() == 0) {
				return cand
			}
		}
	}
	return tower.Fq2Elem{C0: bnum.NewInt(2), C1: bnum.NewInt(1)}
}

func findSafeBase(c *ec.Curve, maxMul int64) (ec.Point, bool) {
	for x := int64(0); x < 19; x++ {
		for y := int64(1); y < 19; y++ {
			if (y*y)%19 != (x*x*x+c.B.Int64())%19 {
				continue
			}
			p := ec.Point{X: bnum.NewInt(x), Y: bnum.NewInt(y)}
			acc := ec.Point{}
			ok := true
			for k := int64(1); k <= maxMul; k++ {
				acc = c.Add(acc, p)
				if acc.IsInfinity() || acc.Y.Sign() == 0 {
					ok = false
					break
				}
			}
			if ok {
				return p, true
			}
		}
	}
	return ec.Point{}, false
}

func findSafeTwist(p *pairing.Pairing, base ec.Point) (qpt ec.TwistPoint, found bool) {
	f := p.Fq2
	for x0 := int64(0); x0 < 19 && !found; x0++ {
		for x1 := int64(0); x1 < 19 && !found; x1++ {
			x := tower.Fq2Elem{C0: bnum.NewInt(x0), C1: bnum.NewInt(x1)}
			rhs := f.Add(f.Mul(x, f.Mul(x, x)), p.Twist.B)
			for y0 := int64(0); y0 < 19 && !found; y0++ {
				for y1 := int64(0); y1 < 19 && !found; y1++ {
					if y0 == 0 && y1 == 0 {
						continue
					}
					y := tower.Fq2Elem{C0: bnum.NewInt(y0), C1: bnum.NewInt(y1)}
					diff := f.Sub(f.Mul(y, y), rhs)
					if diff.C0.Sign() != 0 || diff.C1.Sign() != 0 {
						continue
					}
					cand := ec.TwistPoint{X: x, Y: y}
					if pairingBuilds(p, base, cand) {
						qpt, found = cand, true
					}
				}
			}
		}
	}
	return qpt, found
}

func pairingBuilds(p *pairing.Pairing, base ec.Point, qpt ec.TwistPoint) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	f, _ := p.BuildWitness(base, qpt)
	inv := p.Tower.Inverse(f)
	prod := p.Tower.Mul(f, inv)
	if prod.C0.C0.C0.Cmp(bnum.ONE) != 0 || prod.C0.C0.C1.Sign() != 0 || prod.C1.C0.C0.Sign() != 0 {
		return false
	}
	p.Single(base, qpt)
	return true
}

func (v *Verifier) testModulusPos() int {
	return v.MSMWitnessSlots() + 3*v.Pairing.SingleWitnessSize()
}

func execVerifier(t *testing.T, v *Verifier, w *Witness) int {
	t.Helper()
	scr := builder.PushNumber(19)
	scr.AddScript(v.UnlockingScript(w))
	scr.AddScript(v.LockingScript(v.testModulusPos()))
	return script.ExecScript(scr, script.NewStack(), nil)
}

func TestValidProofUnlocks(t *testing.T) {
	v, proof, inputs := toyVerifier(t)
	w, err := v.BuildWitness(proof, inputs)
	require.NoError(t, err)
	require.True(t, v.Accepts(w))
	require.Equal(t, script.RcOK, execVerifier(t, v, w))
}

func TestMutatedProofFails(t *testing.T) {
	v, proof, inputs := toyVerifier(t)
	bad := proof
	bad.A = v.Pairing.Base.Double(proof.A)
	w, ok := tryBuild(v, bad, inputs)
	if !ok {
		t.Skip("mutated proof hits a degenerate trace; mutation rejected earlier")
	}
	require.False(t, v.Accepts(w))
	require.NotEqual(t, script.RcOK, execVerifier(t, v, w))
}

func TestWrongPublicInputFails(t *testing.T) {
	v, proof, inputs := toyVerifier(t)
	require.Equal(t, []int64{3}, inputs)
	w, ok := tryBuild(v, proof, []int64{2})
	if !ok {
		t.Skip("alternate input hits a degenerate trace; rejected earlier")
	}
	require.False(t, v.Accepts(w))
	require.NotEqual(t, script.RcOK, execVerifier(t, v, w))
}

func TestTamperedWitnessGradientFails(t *testing.T) {
	v, proof, inputs := toyVerifier(t)
	w, err := v.BuildWitness(proof, inputs)
	require.NoError(t, err)
	// corrupt one MSM doubling gradient
	tampered := false
	for ti := range w.msmSteps {
		for si := range w.msmSteps[ti] {
			if w.msmSteps[ti][si].Double {
				g := w.msmSteps[ti][si].DoubleGrad
				w.msmSteps[ti][si].DoubleGrad = v.Pairing.Base.Field.Eval(g.Add(bnum.ONE))
				tampered = true
				break
			}
		}
		if tampered {
			break
		}
	}
	require.True(t, tampered)
	require.NotEqual(t, script.RcOK, execVerifier(t, v, w))
}

func TestVerifierArityValidation(t *testing.T) {
	v, _, _ := toyVerifier(t)
	_, err := NewVerifier(v.Pairing, v.VK, []int64{8, 8})
	require.Error(t, err)
	_, err = v.BuildWitness(Proof{}, []int64{1, 2})
	require.Error(t, err)
}
