// Package scalarmul compiles fixed-iteration ("unrolled") scalar
// multiplication for a point in E(Fq): double-and-add over a
// compile-time-bounded number of bits, driven at run time by a
// prover-supplied marker/gradient witness rather than by a loop (Bitcoin
// Script has none). Every possible bit pattern up to MaxMultiplier is
// covered by the same straight-line code; the witness tells each step
// whether to double, whether to add, and what gradient to trust.
package scalarmul

import (
	"math/bits"

	"github.com/zkbtc/groth16script/builder"
	"github.com/zkbtc/groth16script/ec"
	"github.com/zkbtc/groth16script/internal/bnum"
	"github.com/zkbtc/groth16script/script"
	"github.com/zkbtc/groth16script/stackdesc"
)

// Unrolled is a compiler for fixed-iteration scalar multiplication of a
// point in E(Fq).
type Unrolled struct {
	Curve         *ec.Curve
	MaxMultiplier int64 // upper bound on the scalar; determines the loop's fixed iteration count
}

// NewUnrolled creates an unrolled scalar-multiplication compiler.
func NewUnrolled(curve *ec.Curve, maxMultiplier int64) *Unrolled {
	return &Unrolled{Curve: curve, MaxMultiplier: maxMultiplier}
}

// bitLen is the fixed number of double-and-add steps the compiled
// script performs, regardless of the actual scalar's size.
func (u *Unrolled) bitLen() int {
	return bits.Len64(uint64(u.MaxMultiplier))
}

// WitnessSlots is the exact number of stack slots one unrolled
// multiplication's witness occupies: the marker-a-is-zero flag plus a
// fixed four slots per iteration. The width never depends on the
// scalar, which is what lets RefTx index into the witness region and
// lets the compiled loop know the modulus's depth at every iteration.
func (u *Unrolled) WitnessSlots() int {
	return 1 + 4*u.bitLen()
}

// WitnessStep is the prover-supplied block for one iteration: a
// doubling marker with its gradient and an addition marker with its
// gradient. Padding iterations (before the scalar's leading bit) carry
// zero markers and dummy zero gradients, so every block is exactly four
// stack slots wide.
type WitnessStep struct {
	Double     bool
	DoubleGrad *bnum.Int
	Add        bool
	AddGrad    *bnum.Int
}

// BuildWitness computes, off-chain, the full unrolled double-and-add
// trace for scalar*P, returning the final point, the fixed-width
// witness steps, and whether the scalar was zero (which the locking
// script's trailing marker collapses to the infinity sentinel).
func (u *Unrolled) BuildWitness(scalar int64, p ec.Point) (ec.Point, []WitnessStep, bool) {
	n := u.bitLen()
	steps := make([]WitnessStep, n)
	for i := range steps {
		steps[i] = WitnessStep{DoubleGrad: bnum.NewInt(0), AddGrad: bnum.NewInt(0)}
	}
	if scalar == 0 {
		return ec.Point{}, steps, true
	}
	t := p
	started := false
	for i := n - 1; i >= 0; i-- {
		bit := (scalar >> uint(i)) & 1
		if !started {
			if bit == 1 {
				started = true
			}
			continue
		}
		step := WitnessStep{Double: true, DoubleGrad: u.Curve.TangentGradient(t), AddGrad: bnum.NewInt(0)}
		t = u.Curve.Double(t)
		if bit == 1 {
			step.Add = true
			step.AddGrad = u.Curve.Gradient(t, p)
			t = u.Curve.Add(t, p)
		}
		steps[n-1-i] = step
	}
	return t, steps, false
}

// LockingScript emits the fixed double-and-add loop.
//
// Stack input (shallowest first): P.y P.x, then extraJunk slots this
// fragment must not touch, then the witness: per iteration (most
// significant first, shallowest first) outerMarker doubleGrad
// innerMarker addGrad, and below all blocks the marker-a-is-zero flag.
// Stack output: the witness, P and the junk-adjacent layout collapsed
// to y(a*P) x(a*P) on top (the junk slots untouched beneath them).
//
// Every iteration consumes exactly its four witness slots no matter
// which branches run, so the field modulus (at depth modulusPos on
// entry) sits at a compile-time-known depth throughout.
func (u *Unrolled) LockingScript(modulusPos int) *script.Script {
	return u.lockingScript(modulusPos, 0, false)
}

// LockingScriptAt is LockingScript for a term whose witness is
// separated from P by extraJunk untouched slots (the running MSM
// accumulator, for MSMFixedBases' later terms).
func (u *Unrolled) LockingScriptAt(modulusPos, extraJunk int) *script.Script {
	return u.lockingScript(modulusPos, extraJunk, false)
}

// LockingScriptExtractable is LockingScript plus an altstack
// accumulator reconstructing the scalar's unsigned value from the very
// markers that drive the loop (value = 2*value + addBit per doubling,
// seeded at 1 by the implicit leading bit). The accumulator is left on
// the altstack when the fragment ends; main-stack behaviour is
// otherwise identical, since the altstack bookkeeping is balanced
// within each branch.
func (u *Unrolled) LockingScriptExtractable(modulusPos int) *script.Script {
	return u.lockingScript(modulusPos, 0, true)
}

// LockingScriptExtractableAt is LockingScriptExtractable with an
// extraJunk offset, mirroring LockingScriptAt.
func (u *Unrolled) LockingScriptExtractableAt(modulusPos, extraJunk int) *script.Script {
	return u.lockingScript(modulusPos, extraJunk, true)
}

func (u *Unrolled) lockingScript(modulusPos, extraJunk int, extract bool) *script.Script {
	out := script.NewScript()
	op := func(opcode byte) { out.Add(script.NewStatement(opcode)) }
	n := u.bitLen()
	witnessDepth := 4 + extraJunk

	// T := P
	op(script.Op2DUP)
	mod := modulusPos + 2

	if extract {
		out.AddScript(builder.PushNumber(1))
		op(script.OpTOALTSTACK)
	}

	for i := 0; i < n; i++ {
		// Stack: T.y T.x P.y P.x [junk] outer doubleGrad inner addGrad ..
		out.AddScript(builder.Roll(witnessDepth, 1))
		op(script.OpIF)
		{
			if extract {
				op(script.OpFROMALTSTACK)
				op(script.OpDUP)
				op(script.OpADD)
				op(script.OpTOALTSTACK)
			}
			lambda := stackdesc.NewNumber(witnessDepth, false)
			t := stackdesc.MustNewEllipticCurvePoint(
				stackdesc.MustNewFiniteFieldElement(1, false, 1),
				stackdesc.MustNewFiniteFieldElement(0, false, 1),
			)
			out.AddScript(u.Curve.DoubleVerifyGradient(lambda, t, mod-1))

			out.AddScript(builder.Roll(witnessDepth, 1))
			op(script.OpIF)
			{
				if extract {
					op(script.OpFROMALTSTACK)
					op(script.Op1ADD)
					op(script.OpTOALTSTACK)
				}
				// addend := fresh copy of P, consumed by the addition
				out.AddScript(builder.Pick(3, 1))
				out.AddScript(builder.Pick(3, 1))
				lambdaAdd := stackdesc.NewNumber(witnessDepth+2, false)
				tNow := stackdesc.MustNewEllipticCurvePoint(
					stackdesc.MustNewFiniteFieldElement(3, false, 1),
					stackdesc.MustNewFiniteFieldElement(2, false, 1),
				)
				addend := stackdesc.MustNewEllipticCurvePoint(
					stackdesc.MustNewFiniteFieldElement(1, false, 1),
					stackdesc.MustNewFiniteFieldElement(0, false, 1),
				)
				out.AddScript(u.Curve.AddVerifyGradient(lambdaAdd, tNow, addend, mod-1))
			}
			op(script.OpELSE)
			{
				// unused dummy addGrad
				out.AddScript(builder.Roll(witnessDepth, 1))
				op(script.OpDROP)
			}
			op(script.OpENDIF)
		}
		op(script.OpELSE)
		{
			// padding iteration: discard the unused gradient and marker slots
			out.AddScript(builder.Roll(witnessDepth+2, 1))
			op(script.OpDROP)
			out.AddScript(builder.Roll(witnessDepth+1, 1))
			op(script.OpDROP)
			out.AddScript(builder.Roll(witnessDepth, 1))
			op(script.OpDROP)
		}
		op(script.OpENDIF)
		mod -= 4
	}

	// marker-a-is-zero: collapse to the infinity sentinel, or drop the
	// base point and leave T as the product.
	out.AddScript(builder.Roll(witnessDepth, 1))
	op(script.OpIF)
	{
		op(script.Op2DROP)
		op(script.Op2DROP)
		out.Add(script.NewDataStatement(ec.InfinitySentinel(1)))
		out.Add(script.NewDataStatement(ec.InfinitySentinel(1)))
		if extract {
			// the accumulator was seeded at 1 but no doubling ever ran
			op(script.OpFROMALTSTACK)
			op(script.OpDROP)
			op(script.OpFALSE)
			op(script.OpTOALTSTACK)
		}
	}
	op(script.OpELSE)
	{
		out.AddScript(builder.Roll(3, 2))
		op(script.Op2DROP)
	}
	op(script.OpENDIF)

	return out
}

// UnlockingScript pushes the exact witness bytes LockingScript consumes
// for one unrolled multiplication of scalar*P: the marker-a-is-zero
// flag deepest, then the witness blocks least significant step first
// (so the most significant step's outer marker ends up shallowest,
// directly below P), then the base point P itself. This is the
// unlocking-key mirror of LockingScript; the two must stay in lock-step
// or the locking script's gradient checks fail closed.
func (u *Unrolled) UnlockingScript(scalar int64, p ec.Point, steps []WitnessStep, aIsZero bool) *script.Script {
	out := u.witnessOnlyUnlockingScript(aIsZero, steps)
	out.Add(script.NewDataStatement(p.X.Bytes()))
	out.Add(script.NewDataStatement(p.Y.Bytes()))
	return out
}

// witnessOnlyUnlockingScript is UnlockingScript without the trailing
// base-point push, for callers (MSMFixedBases) whose base is a
// locking-script constant rather than witness data.
func (u *Unrolled) witnessOnlyUnlockingScript(aIsZero bool, steps []WitnessStep) *script.Script {
	out := script.NewScript()
	out.Add(script.NewStatement(boolOpcode(aIsZero)))
	for i := len(steps) - 1; i >= 0; i-- {
		st := steps[i]
		out.Add(script.NewDataStatement(st.AddGrad.Bytes()))
		out.Add(script.NewStatement(boolOpcode(st.Add)))
		out.Add(script.NewDataStatement(st.DoubleGrad.Bytes()))
		out.Add(script.NewStatement(boolOpcode(st.Double)))
	}
	return out
}

func boolOpcode(b bool) byte {
	if b {
		return script.OpTRUE
	}
	return script.OpFALSE
}

// PushNumberHelper is builder.PushNumber, re-exported so callers
// assembling witness scalars around an MSM witness do not need to
// import builder for a single push.
func PushNumberHelper(n int64) *script.Script {
	return builder.PushNumber(n)
}

// MSMFixedBases computes sum(a_i * B_i) for n scalars against n
// hard-coded base points B_i: n unrolled multiplications, each folded
// into the running accumulator by a gradient-verified addition as soon
// as it is produced. Only the scalars' witness blocks and the n-1
// summation gradients come from the unlocking script; the bases are
// baked into the locking script.
type MSMFixedBases struct {
	Curve          *ec.Curve
	MaxMultipliers []int64
}

// NewMSMFixedBases creates a fixed-base MSM compiler, one max-multiplier
// bound per term.
func NewMSMFixedBases(curve *ec.Curve, maxMultipliers []int64) *MSMFixedBases {
	return &MSMFixedBases{Curve: curve, MaxMultipliers: maxMultipliers}
}

// WitnessSlots is the combined stack width of a full MSM witness: every
// term's unrolled witness plus one summation gradient per term after
// the first.
func (m *MSMFixedBases) WitnessSlots() int {
	total := len(m.MaxMultipliers) - 1
	for _, bound := range m.MaxMultipliers {
		total += NewUnrolled(m.Curve, bound).WitnessSlots()
	}
	return total
}

// BuildWitness computes, off-chain, the full MSM trace: per-term
// unrolled double-and-add witnesses plus the n-1 summation gradients
// chaining the terms together, along with the final accumulated point.
// A summation whose branch never needs a gradient (either side the
// point at infinity, or exact cancellation) still gets a dummy zero
// entry, since the compiled script consumes one gradient slot per
// summation unconditionally.
func (m *MSMFixedBases) BuildWitness(scalars []int64, bases []ec.Point) (ec.Point, [][]WitnessStep, []bool, []*bnum.Int) {
	n := len(scalars)
	stepsPerTerm := make([][]WitnessStep, n)
	aIsZero := make([]bool, n)
	terms := make([]ec.Point, n)
	for i := 0; i < n; i++ {
		u := NewUnrolled(m.Curve, m.MaxMultipliers[i])
		terms[i], stepsPerTerm[i], aIsZero[i] = u.BuildWitness(scalars[i], bases[i])
	}
	acc := terms[0]
	sumGradients := make([]*bnum.Int, n-1)
	for i := 1; i < n; i++ {
		sumGradients[i-1] = bnum.NewInt(0)
		if acc.IsInfinity() {
			acc = terms[i]
			continue
		}
		if terms[i].IsInfinity() {
			continue
		}
		if acc.X.Cmp(terms[i].X) == 0 && m.Curve.Field.Eval(acc.Y.Add(terms[i].Y)).Sign() == 0 {
			acc = ec.Point{}
			continue
		}
		sumGradients[i-1] = m.Curve.Gradient(acc, terms[i])
		acc = m.Curve.Add(acc, terms[i])
	}
	return acc, stepsPerTerm, aIsZero, sumGradients
}

// UnlockingScript pushes the exact witness bytes the MSM locking script
// consumes. The locking script processes term 0 first, then folds each
// later term into the accumulator right after computing it, so the push
// order is the reverse of consumption: term n-1's summation gradient
// deepest, then its witness, down to term 0's witness shallowest.
func (m *MSMFixedBases) UnlockingScript(scalars []int64, stepsPerTerm [][]WitnessStep, aIsZero []bool, sumGradients []*bnum.Int) *script.Script {
	out := script.NewScript()
	for i := len(scalars) - 1; i >= 1; i-- {
		out.Add(script.NewDataStatement(sumGradients[i-1].Bytes()))
		u := NewUnrolled(m.Curve, m.MaxMultipliers[i])
		out.AddScript(u.witnessOnlyUnlockingScript(aIsZero[i], stepsPerTerm[i]))
	}
	u := NewUnrolled(m.Curve, m.MaxMultipliers[0])
	out.AddScript(u.witnessOnlyUnlockingScript(aIsZero[0], stepsPerTerm[0]))
	return out
}

// LockingScript emits the full MSM: each base point is pushed as a
// compile-time constant, its unrolled multiplication run, and (for
// every term after the first) the fresh term folded into the running
// accumulator with a gradient-verified addition that handles the
// infinity cases. The result's x and y are left on top.
func (m *MSMFixedBases) LockingScript(bases []ec.Point, modulusPos int) *script.Script {
	return m.lockingScript(bases, 0, modulusPos)
}

// LockingScriptExtractable is LockingScript, except the first
// numExtractable terms use the extractable unrolled variant, leaving
// their recovered unsigned scalars on the altstack (term 0's deepest).
func (m *MSMFixedBases) LockingScriptExtractable(bases []ec.Point, numExtractable int, modulusPos int) *script.Script {
	return m.lockingScript(bases, numExtractable, modulusPos)
}

func (m *MSMFixedBases) lockingScript(bases []ec.Point, numExtractable int, modulusPos int) *script.Script {
	out := script.NewScript()
	mod := modulusPos
	for i := range bases {
		u := NewUnrolled(m.Curve, m.MaxMultipliers[i])
		extra := 0
		if i > 0 {
			extra = 2 // the running accumulator sits between P and the witness
		}
		out.Add(script.NewDataStatement(bases[i].X.Bytes()))
		out.Add(script.NewDataStatement(bases[i].Y.Bytes()))
		mod += 2
		if i < numExtractable {
			out.AddScript(u.LockingScriptExtractableAt(mod, extra))
		} else {
			out.AddScript(u.LockingScriptAt(mod, extra))
		}
		// the term consumed its witness and the pushed base, and left a
		// two-slot point in their place: net, the modulus got shallower
		// by exactly the witness width
		mod -= u.WitnessSlots()

		if i > 0 {
			// Stack: term.y term.x acc.y acc.x sumGradient ..
			lambda := stackdesc.NewNumber(4, false)
			acc := stackdesc.MustNewEllipticCurvePoint(
				stackdesc.MustNewFiniteFieldElement(3, false, 1),
				stackdesc.MustNewFiniteFieldElement(2, false, 1),
			)
			term := stackdesc.MustNewEllipticCurvePoint(
				stackdesc.MustNewFiniteFieldElement(1, false, 1),
				stackdesc.MustNewFiniteFieldElement(0, false, 1),
			)
			out.AddScript(m.Curve.PointAdditionWithUnknownPoints(lambda, acc, term, mod))
			mod -= 3
		}
	}
	return out
}
