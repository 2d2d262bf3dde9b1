// Package pairing compiles the optimal ate (Miller loop + final
// exponentiation) pairing e: E(Fq) x E'(Fq2) -> Fq12 that the Groth16
// verifier's pairing checks reduce to. The loop structure, NAF digit
// sequence, and final-exponentiation split into an easy and a hard part
// follow the standard BN/BLS construction; the line-function embedding
// into Fq12 is this package's own simplified, self-consistent choice
// (see DESIGN.md) rather than a literal transcription of any published
// curve's sparse line formula -- the on-chain cost of the "real" sparse
// embedding is an optimization this project's Non-goals explicitly put
// out of scope ("no optimisation of the emitted script beyond local
// peephole passes").
package pairing

import (
	"github.com/zkbtc/groth16script/builder"
	"github.com/zkbtc/groth16script/curveparams"
	"github.com/zkbtc/groth16script/ec"
	"github.com/zkbtc/groth16script/internal/bnum"
	"github.com/zkbtc/groth16script/script"
	"github.com/zkbtc/groth16script/stackdesc"
	"github.com/zkbtc/groth16script/tower"
)

// Pairing is a compiler for the optimal ate pairing specialized to one
// curve's parameters.
type Pairing struct {
	Base   *ec.Curve
	Twist  *ec.TwistCurve
	Fq2    *tower.Fq2
	Tower  *tower.Fq12
	Params *curveparams.CurveParams
}

// NewPairing creates a pairing compiler. fq2 must be the same field
// compiler twist.Field wraps.
func NewPairing(base *ec.Curve, twist *ec.TwistCurve, fq2 *tower.Fq2, fq12 *tower.Fq12, params *curveparams.CurveParams) *Pairing {
	return &Pairing{Base: base, Twist: twist, Fq2: fq2, Tower: fq12, Params: params}
}

func one12() tower.Fq12Elem {
	return embedLine(tower.Fq2Elem{C0: bnum.NewInt(1), C1: bnum.NewInt(0)})
}

// lineValue evaluates, off-chain, the line through T with gradient
// lambda at the base-field point P: y_P - lambda*(x_P - x_T) - y_T,
// lifted into Fq2 since lambda and T are Fq2-valued.
func (p *Pairing) lineValue(lambda tower.Fq2Elem, t ec.TwistPoint, px, py *bnum.Int) tower.Fq2Elem {
	pxFq2 := tower.Fq2Elem{C0: px, C1: bnum.NewInt(0)}
	pyFq2 := tower.Fq2Elem{C0: py, C1: bnum.NewInt(0)}
	diff := p.Fq2.Sub(pxFq2, t.X)
	term := p.Fq2.Mul(lambda, diff)
	return p.Fq2.Sub(p.Fq2.Sub(pyFq2, term), t.Y)
}

// embedLine lifts an Fq2 line value into Fq12 by placing it in the
// C0.C0 coefficient and zeroing the rest -- the self-consistent,
// documented simplification of the real sparse D/M-twist embedding.
func embedLine(val tower.Fq2Elem) tower.Fq12Elem {
	zero := tower.Fq2Elem{C0: bnum.NewInt(0), C1: bnum.NewInt(0)}
	return tower.Fq12Elem{
		C0: tower.Fq6Elem{C0: val, C1: zero, C2: zero},
		C1: tower.Fq6Elem{C0: zero, C1: zero, C2: zero},
	}
}

// MillerStep is the prover-supplied gradient witness for one digit of
// the NAF loop: always a doubling gradient, plus an addition gradient
// when the digit is nonzero (the digit sequence itself is a public
// curve constant, so unlike scalarmul's private-scalar loop no runtime
// marker is needed to select the add branch).
type MillerStep struct {
	DoubleGrad tower.Fq2Elem
	AddGrad    tower.Fq2Elem // meaningful only when the loop digit at this step is nonzero
}

// BuildWitness runs the Miller loop off-chain against P in E(Fq) and Q
// in E'(Fq2), returning the accumulated pairing value together with the
// per-step gradient witnesses a locking script's gradient checks need.
func (p *Pairing) BuildWitness(base ec.Point, twist ec.TwistPoint) (tower.Fq12Elem, []MillerStep) {
	f := one12()
	t := twist
	steps := make([]MillerStep, len(p.Params.MillerLoopLength))
	for i, d := range p.Params.MillerLoopLength {
		lambdaD := p.Twist.TangentGradient(t)
		lineD := p.lineValue(lambdaD, t, base.X, base.Y)
		f = p.Tower.Square(f)
		f = p.Tower.Mul(f, embedLine(lineD))
		t = p.Twist.Double(t)
		steps[i].DoubleGrad = lambdaD

		if d != 0 {
			addend := twist
			if d < 0 {
				addend = ec.TwistPoint{X: twist.X, Y: p.Fq2.Sub(tower.Fq2Elem{C0: bnum.NewInt(0), C1: bnum.NewInt(0)}, twist.Y)}
			}
			lambdaA := p.Twist.Gradient(t, addend)
			lineA := p.lineValue(lambdaA, t, base.X, base.Y)
			f = p.Tower.Mul(f, embedLine(lineA))
			t = p.Twist.Add(t, addend)
			steps[i].AddGrad = lambdaA
		}
	}
	if p.Params.IsLoopNegative {
		f = p.Tower.Conjugate(f)
	}
	return f, steps
}

// HardExponentiationWitness raises f to the hard part of the final
// exponentiation off-chain, the reference value the on-chain hard part
// must reproduce.
func (p *Pairing) HardExponentiationWitness(f tower.Fq12Elem) tower.Fq12Elem {
	return p.Tower.Pow(f, p.Params.HardExponent())
}

// EasyExponentiationWitness raises f to the easy part of the final
// exponentiation off-chain: f^{(q^6-1)(q^2+1)}. Computed here via plain
// inversion (off-chain only; never on-chain) for use as a prover
// witness and as the reference value for tests.
func (p *Pairing) EasyExponentiationWitness(f tower.Fq12Elem) tower.Fq12Elem {
	inv := p.Tower.Inverse(f)
	conjOverInv := p.Tower.Mul(p.Tower.Conjugate(f), inv)
	q2 := p.Params.Q.Mul(p.Params.Q)
	return p.Tower.Pow(conjOverInv, q2.Add(bnum.NewInt(1)))
}

// Single evaluates the full optimal ate pairing off-chain: Miller loop
// followed by both parts of the final exponentiation.
func (p *Pairing) Single(base ec.Point, twist ec.TwistPoint) tower.Fq12Elem {
	if base.IsInfinity() || twist.IsInfinity() {
		return one12()
	}
	f, _ := p.BuildWitness(base, twist)
	easy := p.EasyExponentiationWitness(f)
	return p.HardExponentiationWitness(easy)
}

// Triple evaluates the product of three pairings off-chain, the value
// TripleLockingScript's on-chain accumulation reproduces.
func (p *Pairing) Triple(bases [3]ec.Point, twists [3]ec.TwistPoint) tower.Fq12Elem {
	out := one12()
	for i := 0; i < 3; i++ {
		out = p.Tower.Mul(out, p.Single(bases[i], twists[i]))
	}
	return out
}

// FinalExponentiationWitness is the prover-supplied data the locking
// script's final exponentiation needs: the multiplicative inverse of
// the Miller loop's output f. Supplying it as a witness and verifying
// it by multiplication lets the easy part avoid on-chain field
// inversion entirely -- the same "push the answer, verify by
// multiplying back" shape ec.AddVerifyGradient and scalarmul's witness
// steps use for every division the emitted script would otherwise need.
type FinalExponentiationWitness struct {
	InverseF tower.Fq12Elem
}

// BuildFinalExponentiationWitness computes f's inverse off-chain, the
// witness FinalExponentiationLockingScript's f*invF==1 check consumes.
func (p *Pairing) BuildFinalExponentiationWitness(f tower.Fq12Elem) FinalExponentiationWitness {
	return FinalExponentiationWitness{InverseF: p.Tower.Inverse(f)}
}

// PushFinalExponentiationWitness is the unlocking-key mirror of
// FinalExponentiationLockingScript: it pushes invF below everything
// else a pairing evaluation's witness carries.
func PushFinalExponentiationWitness(w FinalExponentiationWitness) *script.Script {
	out := script.NewScript()
	out.AddScript(pushFq12Elem(w.InverseF))
	return out
}

// pushFq12Elem pushes the twelve base-field limbs of a in the order a
// freshly-computed Fq12 element occupies the stack: C0 deepest, within
// each Fq6 limb C0 deepest, within each Fq2 limb C0 deepest -- so the
// earliest push ends up deepest and the last push ends on top.
func pushFq12Elem(a tower.Fq12Elem) *script.Script {
	out := script.NewScript()
	limbs := []*bnum.Int{
		a.C0.C0.C0, a.C0.C0.C1, a.C0.C1.C0, a.C0.C1.C1, a.C0.C2.C0, a.C0.C2.C1,
		a.C1.C0.C0, a.C1.C0.C1, a.C1.C1.C0, a.C1.C1.C1, a.C1.C2.C0, a.C1.C2.C1,
	}
	for _, l := range limbs {
		out.Add(script.NewDataStatement(l.Bytes()))
	}
	return out
}

// verifyEqualsFq12 checks that the top twelve-slot Fq12 element equals
// the given compile-time constant, consuming it one limb at a time
// (top first) via OP_EQUALVERIFY so nothing below is disturbed until
// every limb has matched.
func verifyEqualsFq12(elem tower.Fq12Elem, out *script.Script) {
	limbs := []*bnum.Int{
		elem.C1.C2.C1, elem.C1.C2.C0, elem.C1.C1.C1, elem.C1.C1.C0, elem.C1.C0.C1, elem.C1.C0.C0,
		elem.C0.C2.C1, elem.C0.C2.C0, elem.C0.C1.C1, elem.C0.C1.C0, elem.C0.C0.C1, elem.C0.C0.C0,
	}
	for _, c := range limbs {
		out.Add(script.NewDataStatement(c.Bytes()))
		out.Add(script.NewStatement(script.OpEQUALVERIFY))
	}
}

// FinalExponentiationLockingScript consumes the prover-supplied inverse
// witness sitting directly below the Miller loop's output f and emits
// the full final exponentiation: verify f*invF == 1 on fresh copies,
// conjugate f in place, multiply conj(f) by invF to land in the
// cyclotomic subgroup, then raise to (q^2+1) and to the hard-part
// exponent via Fq12.PowScript.
//
// Stack input: .. invF(12) f(12). Stack output: .. f^finalExp(12).
func (p *Pairing) FinalExponentiationLockingScript(modulusPos int) *script.Script {
	out := script.NewScript()
	fElem := stackdesc.MustNewFiniteFieldElement(11, false, 6)
	deepElem := stackdesc.MustNewFiniteFieldElement(23, false, 6)

	// verify f * invF == 1 on fresh copies
	out.AddScript(builder.Pick(23, 12)) // invF copy
	out.AddScript(builder.Pick(23, 12)) // f copy (f slid 12 deeper)
	out.AddScript(p.Tower.MulScriptConsuming(deepElem, fElem, modulusPos+24))
	verifyEqualsFq12(one12(), out)

	// g = conj(f) * invF = f^(q^6-1)
	out.AddScript(p.Tower.ConjugateScript(modulusPos))
	out.AddScript(p.Tower.MulScriptConsuming(deepElem, fElem, modulusPos))

	q2 := p.Params.Q.Mul(p.Params.Q)
	out.AddScript(p.Tower.PowScript(q2.Add(bnum.NewInt(1)), modulusPos-12))
	out.AddScript(p.Tower.PowScript(p.Params.HardExponent(), modulusPos-12))

	return out
}

// stepWidth is the number of witness slots one NAF digit's gradient
// block occupies: a doubling gradient, plus an addition gradient when
// the digit is nonzero.
func stepWidth(d int8) int {
	if d != 0 {
		return 4
	}
	return 2
}

// millerLoopWitnessSize is the number of stack slots one Miller loop's
// unlocking witness occupies: the base point P (2), the fixed twist
// point Q (4), the initial running accumulator T (4), and every digit's
// gradient block. The f accumulator itself is a locking-script constant
// (it always starts at one) and is not part of the witness.
func millerLoopWitnessSize(params *curveparams.CurveParams) int {
	size := 2 + 4 + 4
	for _, d := range params.MillerLoopLength {
		size += stepWidth(d)
	}
	return size
}

// lineEvalScript emits the Fq2 line value y_P - lambda*(x_P - x_T) -
// y_T onto the top of the stack, reading every operand with Pick: the
// Fq2 values lambda, T.X, T.Y at the given deepest-limb depths and the
// base-field coordinates P.x, P.y at single-slot depths. Expanding the
// mixed Fq/Fq2 product limb-wise costs a handful of scalar opcodes and
// avoids widening P into a stack-resident Fq2 element first.
//
//	c0 = P.y - l0*(P.x - tX0) + nr*l1*tX1 - tY0
//	c1 = l0*tX1 - l1*(P.x - tX0) - tY1
func (p *Pairing) lineEvalScript(lambdaPos, tXPos, tYPos, pxPos, pyPos, modulusPos int) *script.Script {
	out := script.NewScript()
	off := 0
	pick := func(orig int) {
		out.AddScript(builder.Pick(orig+off, 1))
		off++
	}
	binop := func(opcode byte) {
		out.Add(script.NewStatement(opcode))
		off--
	}

	// c0
	pick(pyPos)
	pick(pxPos)
	pick(tXPos)
	binop(script.OpSUB) // d0 = P.x - tX0
	pick(lambdaPos)
	binop(script.OpMUL) // l0*d0
	binop(script.OpSUB) // P.y - l0*d0
	pick(lambdaPos - 1)
	pick(tXPos - 1)
	binop(script.OpMUL) // l1*tX1
	out.Add(script.NewDataStatement(p.Fq2.NonResidue.Bytes()))
	off++
	binop(script.OpMUL)
	binop(script.OpADD)
	pick(tYPos)
	binop(script.OpSUB)
	out.AddScript(p.Base.Field.CleanReduceTop(modulusPos + off))

	// c1
	pick(lambdaPos)
	pick(tXPos - 1)
	binop(script.OpMUL) // l0*tX1
	pick(lambdaPos - 1)
	pick(pxPos)
	pick(tXPos)
	binop(script.OpSUB) // d0 again
	binop(script.OpMUL) // l1*d0
	binop(script.OpSUB)
	pick(tYPos - 1)
	binop(script.OpSUB)
	out.AddScript(p.Base.Field.CleanReduceTop(modulusPos + off))

	return out
}

// mulLineIntoF embeds the 2-slot Fq2 line value on top of the stack
// into a fresh Fq12 element (line value in C0.C0, zero elsewhere) and
// multiplies it into the f accumulator sitting blockBelow slots below
// the line value's block, consuming both; the product lands on top.
func (p *Pairing) mulLineIntoF(blockBelow, modulusPos int) *script.Script {
	out := script.NewScript()
	for i := 0; i < 10; i++ {
		out.Add(script.NewDataStatement([]byte{}))
	}
	fPos := 23 + blockBelow
	out.AddScript(p.Tower.MulScriptConsuming(
		stackdesc.MustNewFiniteFieldElement(fPos, false, 6),
		stackdesc.MustNewFiniteFieldElement(11, false, 6),
		modulusPos+10,
	))
	return out
}

// millerStepScript emits one NAF digit's iteration against the loop's
// stationary layout (bottom-up): remaining digit blocks, P(2), Q(4),
// T(4), f(12) on top. The digit's own block -- the deepest remaining --
// is rolled to the top, the line values are evaluated and folded into
// f, the accumulator point is doubled (and, for a nonzero digit, added
// against a fresh copy of Q, negated in place when the digit is -1),
// and f is rolled back on top so the next step sees the same shape.
// remaining is the combined width of the digit blocks shallower than
// this one; modulusPos the modulus depth at step entry.
func (p *Pairing) millerStepScript(digit int8, remaining, modulusPos int) *script.Script {
	out := script.NewScript()
	w := stepWidth(digit)

	// f := f^2
	out.AddScript(p.Tower.SquareScriptConsuming(stackdesc.MustNewFiniteFieldElement(11, false, 6), modulusPos))

	// roll this digit's block (the deepest remaining) to the top
	out.AddScript(builder.Roll(remaining+22+w-1, w))

	// layout now (top down): doubleGrad(2) [addGrad(2)], f(12), T(4),
	// Q(4), P(2)
	tY, tX := w+13, w+15
	pxPos, pyPos := w+21, w+20

	// fold the doubling line into f
	out.AddScript(p.lineEvalScript(1, tX, tY, pxPos, pyPos, modulusPos))
	out.AddScript(p.mulLineIntoF(w, modulusPos+2))

	// T := 2T, consuming doubleGrad; f' sits on top, the block remnant
	// (the addition gradient, if any) directly below it
	out.AddScript(p.Twist.DoubleVerifyGradientScript(
		stackdesc.MustNewFiniteFieldElement(13, false, 2),
		stackdesc.MustNewEllipticCurvePoint(
			stackdesc.MustNewFiniteFieldElement(tX, false, 2),
			stackdesc.MustNewFiniteFieldElement(tY, false, 2),
		),
		modulusPos,
	))
	// 2T landed above f; hoist f back to the top
	out.AddScript(builder.Roll(15, 12))

	if digit == 0 {
		return out
	}

	// layout (top down): f(12), T(4), addGrad(2), Q(4), P(2)
	mod := modulusPos - 2
	out.AddScript(p.lineEvalScript(17, 15, 13, 23, 22, mod))
	out.AddScript(p.mulLineIntoF(0, mod+2))

	// T := 2T +/- Q against a fresh copy of Q (the original is a loop
	// constant reused by every nonzero digit)
	out.AddScript(builder.Pick(21, 2))
	out.AddScript(builder.Pick(21, 2))
	qCopy := stackdesc.MustNewEllipticCurvePoint(
		stackdesc.MustNewFiniteFieldElement(3, false, 2),
		stackdesc.MustNewFiniteFieldElement(1, false, 2),
	)
	qCopy = qCopy.SetNegate(digit < 0)
	out.AddScript(p.Twist.AddVerifyGradientScript(
		stackdesc.MustNewFiniteFieldElement(21, false, 2),
		stackdesc.MustNewEllipticCurvePoint(
			stackdesc.MustNewFiniteFieldElement(19, false, 2),
			stackdesc.MustNewFiniteFieldElement(17, false, 2),
		),
		qCopy,
		mod+4,
	))
	out.AddScript(builder.Roll(15, 12))
	return out
}

// MillerLoopLockingScript emits the unrolled Miller loop.
//
// Stack input (top down): T(4), Q(4), P(2), then the per-digit witness
// blocks with the most significant digit's block deepest. The f
// accumulator starts at one and is pushed by this fragment itself.
// Stack output: the witness fully consumed, f on top of T, Q and P --
// callers that only want f append DropMillerState.
func (p *Pairing) MillerLoopLockingScript(modulusPos int) *script.Script {
	out := script.NewScript()
	out.AddScript(pushFq12Elem(one12()))
	mod := modulusPos + 12

	remaining := 0
	for _, d := range p.Params.MillerLoopLength {
		remaining += stepWidth(d)
	}
	for _, d := range p.Params.MillerLoopLength {
		remaining -= stepWidth(d)
		out.AddScript(p.millerStepScript(d, remaining, mod))
		mod -= stepWidth(d)
	}
	if p.Params.IsLoopNegative {
		out.AddScript(p.Tower.ConjugateScript(mod))
	}
	return out
}

// DropMillerState discards the spent T, Q and P blocks the Miller loop
// leaves beneath its output, the "(t-1)Q accumulator the caller
// discards" case; schemes that need the accumulator for a subgroup
// check simply skip this fragment.
func (p *Pairing) DropMillerState() *script.Script {
	out := script.NewScript()
	out.AddScript(builder.Roll(21, 10))
	for i := 0; i < 5; i++ {
		out.Add(script.NewStatement(script.Op2DROP))
	}
	return out
}

// MillerLoopUnlockingScript pushes the exact witness bytes
// MillerLoopLockingScript consumes for one evaluation of e(base,twist):
// the per-digit gradient blocks most significant digit first (deepest),
// then the base point P, the fixed twist point Q, and the initial
// running accumulator T (equal to twist) on top.
func (p *Pairing) MillerLoopUnlockingScript(base ec.Point, twist ec.TwistPoint, steps []MillerStep) *script.Script {
	out := script.NewScript()
	pushFq2 := func(v tower.Fq2Elem) {
		out.Add(script.NewDataStatement(v.C0.Bytes()))
		out.Add(script.NewDataStatement(v.C1.Bytes()))
	}
	for i, d := range p.Params.MillerLoopLength {
		if d != 0 {
			pushFq2(steps[i].AddGrad)
		}
		pushFq2(steps[i].DoubleGrad)
	}
	out.Add(script.NewDataStatement(base.X.Bytes()))
	out.Add(script.NewDataStatement(base.Y.Bytes()))
	pushFq2(twist.X)
	pushFq2(twist.Y)
	pushFq2(twist.X)
	pushFq2(twist.Y)
	return out
}

// SingleUnlockingScript pushes the complete witness for one full
// pairing evaluation e(base,twist): the final-exponentiation inverse
// witness (deepest), followed by the Miller loop's own witness.
func (p *Pairing) SingleUnlockingScript(base ec.Point, twist ec.TwistPoint) *script.Script {
	f, steps := p.BuildWitness(base, twist)
	invF := p.BuildFinalExponentiationWitness(f)
	out := script.NewScript()
	out.AddScript(PushFinalExponentiationWitness(invF))
	out.AddScript(p.MillerLoopUnlockingScript(base, twist, steps))
	return out
}

// SingleWitnessSize is the full stack width of one SingleUnlockingScript
// push sequence: the Miller witness plus the 12-slot inverse. Callers
// composing several pairing blocks (groth16, reftx) use it to locate
// witness regions below the one currently being consumed.
func (p *Pairing) SingleWitnessSize() int {
	return millerLoopWitnessSize(p.Params) + 12
}

func (p *Pairing) singleWitnessSize() int { return p.SingleWitnessSize() }

// SingleLockingScript emits the full on-chain evaluation of one
// pairing: the unrolled Miller loop followed by the final
// exponentiation. modulusPos is the field modulus's depth from the top
// of the stack right before this fragment runs (i.e. right below the
// witness SingleUnlockingScript pushes).
func (p *Pairing) SingleLockingScript(modulusPos int) *script.Script {
	out := script.NewScript()
	out.AddScript(p.MillerLoopLockingScript(modulusPos))
	// Only f (12 slots, atop T/Q/P) was added and the digit blocks were
	// consumed; after dropping the loop state, invF and f remain.
	digits := 0
	for _, d := range p.Params.MillerLoopLength {
		digits += stepWidth(d)
	}
	mod := modulusPos + 12 - digits
	out.AddScript(p.DropMillerState())
	mod -= 10
	out.AddScript(p.FinalExponentiationLockingScript(mod))
	return out
}

// TripleUnlockingScript pushes the witnesses for a product of three
// pairings, in the reverse of the order TripleLockingScript's three
// evaluation blocks consume them (the first block's witness
// shallowest).
func (p *Pairing) TripleUnlockingScript(bases [3]ec.Point, twists [3]ec.TwistPoint) *script.Script {
	out := script.NewScript()
	for i := 2; i >= 0; i-- {
		out.AddScript(p.SingleUnlockingScript(bases[i], twists[i]))
	}
	return out
}

// TripleLockingScript emits the product of three pairing evaluations:
// each block runs the full Miller-loop-plus-final-exponentiation
// pipeline, parking its result on the altstack so the next block finds
// its own witness on top; the parked results are then restored and
// multiplied together. The product (12 slots) is left on top.
//
// A fused triple Miller loop sharing one final exponentiation would
// roughly halve the emitted size; the trade-offs of keeping three
// independent pipelines are recorded in DESIGN.md.
func (p *Pairing) TripleLockingScript(modulusPos int) *script.Script {
	out := script.NewScript()
	w := p.singleWitnessSize()
	mod := modulusPos
	for i := 0; i < 3; i++ {
		out.AddScript(p.SingleLockingScript(mod))
		mod += 12 - w
		if i < 2 {
			for j := 0; j < 12; j++ {
				out.Add(script.NewStatement(script.OpTOALTSTACK))
			}
			mod -= 12
		}
	}
	for j := 0; j < 24; j++ {
		out.Add(script.NewStatement(script.OpFROMALTSTACK))
	}
	mod += 24
	out.AddScript(p.Tower.MulScriptConsuming(
		stackdesc.MustNewFiniteFieldElement(23, false, 6),
		stackdesc.MustNewFiniteFieldElement(11, false, 6),
		mod,
	))
	mod -= 12
	out.AddScript(p.Tower.MulScriptConsuming(
		stackdesc.MustNewFiniteFieldElement(23, false, 6),
		stackdesc.MustNewFiniteFieldElement(11, false, 6),
		mod,
	))
	return out
}
