// Package groth16 compiles the Groth16 pairing check
//
//	e(A,B) * e(vk_x,-gamma) * e(C,-delta) == e(alpha,beta)
//
// into a single locking script, wiring together scalarmul.MSMFixedBases
// (for the linear combination of public inputs against the verifying
// key, vk_x = gamma_abc[0] + sum(input_i * gamma_abc[i])) and three
// evaluations of pairing.Pairing.SingleLockingScript. The constant term
// gamma_abc[0] is folded into the same MSM machinery as just another
// fixed-base term with a hard-coded scalar of 1, rather than as special
// cased addition, so the whole left-hand accumulation is one
// scalarmul.MSMFixedBases call.
package groth16

import (
	"fmt"

	"github.com/zkbtc/groth16script/builder"
	"github.com/zkbtc/groth16script/ec"
	"github.com/zkbtc/groth16script/internal/bnum"
	"github.com/zkbtc/groth16script/pairing"
	"github.com/zkbtc/groth16script/scalarmul"
	"github.com/zkbtc/groth16script/script"
	"github.com/zkbtc/groth16script/stackdesc"
	"github.com/zkbtc/groth16script/tower"
)

// VerifyingKey is the public Groth16 verifying key, after the prover's
// circuit-specific alpha/beta pairing has been pre-computed off-chain
// into a single Fq12 constant (the right-hand side of the check never
// changes, so there is no reason to re-evaluate e(alpha,beta) on
// chain). GammaNeg and DeltaNeg are -gamma and -delta respectively, in
// the form the pairing check actually consumes them (folding the
// negation into the verifying key once, off-chain, instead of
// negating a witness point on every verification). GammaABC[0] is the
// constant term of the linear combination; GammaABC[1:] pair one for
// one with the circuit's public inputs.
type VerifyingKey struct {
	AlphaBeta tower.Fq12Elem
	GammaNeg  ec.TwistPoint
	DeltaNeg  ec.TwistPoint
	GammaABC  []ec.Point
}

// Proof is a Groth16 proof: A and C in E(Fq), B in E'(Fq2).
type Proof struct {
	A ec.Point
	B ec.TwistPoint
	C ec.Point
}

// Verifier compiles a Groth16 verification locking script for one fixed
// verifying key. MaxMultipliers bounds each public input's value
// (one entry per GammaABC[1:] element, in order); the constant term
// uses a fixed bound of 1 internally and needs no entry here.
type Verifier struct {
	Pairing        *pairing.Pairing
	VK             VerifyingKey
	MaxMultipliers []int64
}

// NewVerifier creates a Groth16 verifier compiler. len(maxMultipliers)
// must equal len(vk.GammaABC)-1.
func NewVerifier(p *pairing.Pairing, vk VerifyingKey, maxMultipliers []int64) (*Verifier, error) {
	if len(maxMultipliers) != len(vk.GammaABC)-1 {
		return nil, fmt.Errorf("groth16: %d max-multiplier bounds for %d public inputs", len(maxMultipliers), len(vk.GammaABC)-1)
	}
	return &Verifier{Pairing: p, VK: vk, MaxMultipliers: maxMultipliers}, nil
}

// msm builds the scalarmul.MSMFixedBases compiler and base list for
// vk_x = gamma_abc[0]*1 + sum(input_i * gamma_abc[i]), prepending the
// constant term as a fixed-scalar-1 term so no special casing is needed
// anywhere else.
func (v *Verifier) msm() (*scalarmul.MSMFixedBases, []ec.Point) {
	bases := append([]ec.Point{v.VK.GammaABC[0]}, v.VK.GammaABC[1:]...)
	bounds := append([]int64{1}, v.MaxMultipliers...)
	return scalarmul.NewMSMFixedBases(v.Pairing.Base, bounds), bases
}

// Witness is the full prover-supplied data a Groth16 verification needs:
// the proof itself, the public inputs it's being checked against, and
// every auxiliary witness (MSM gradients, Miller-loop gradients,
// final-exponentiation inverses) BuildWitness computes off-chain.
type Witness struct {
	Proof        Proof
	PublicInputs []int64

	msmSteps  [][]scalarmul.WitnessStep
	msmZero   []bool
	msmGrad   []*bnum.Int
	vkx       ec.Point
	abWitness pairingWitness
	vkWitness pairingWitness
	cdWitness pairingWitness
}

// pairingWitness bundles one SingleUnlockingScript-shaped witness: the
// Miller-loop steps and the final-exponentiation inverse.
type pairingWitness struct {
	f     tower.Fq12Elem
	steps []pairing.MillerStep
	invF  pairing.FinalExponentiationWitness
}

func (v *Verifier) buildPairingWitness(base ec.Point, twist ec.TwistPoint) pairingWitness {
	f, steps := v.Pairing.BuildWitness(base, twist)
	return pairingWitness{f: f, steps: steps, invF: v.Pairing.BuildFinalExponentiationWitness(f)}
}

// BuildWitness computes, off-chain, every auxiliary value the compiled
// locking script's gradient and equality checks need: the public-input
// MSM trace (vk_x and its witness steps), and the three pairing
// evaluations' Miller-loop and final-exponentiation witnesses.
func (v *Verifier) BuildWitness(proof Proof, publicInputs []int64) (*Witness, error) {
	if len(publicInputs) != len(v.MaxMultipliers) {
		return nil, fmt.Errorf("groth16: got %d public inputs, want %d", len(publicInputs), len(v.MaxMultipliers))
	}
	msm, bases := v.msm()
	scalars := append([]int64{1}, publicInputs...)
	vkx, steps, zero, grad := msm.BuildWitness(scalars, bases)

	w := &Witness{
		Proof:        proof,
		PublicInputs: publicInputs,
		msmSteps:     steps,
		msmZero:      zero,
		msmGrad:      grad,
		vkx:          vkx,
		abWitness:    v.buildPairingWitness(proof.A, proof.B),
		vkWitness:    v.buildPairingWitness(vkx, v.VK.GammaNeg),
		cdWitness:    v.buildPairingWitness(proof.C, v.VK.DeltaNeg),
	}
	return w, nil
}

// VkX returns the public-input linear combination the witness's MSM
// trace accumulates to, the base operand of the vk_x/gamma pairing
// block.
func (w *Witness) VkX() ec.Point { return w.vkx }

// Accepts reports, off-chain, whether the witness the prover assembled
// actually satisfies the pairing check -- the reference oracle
// LockingScript's on-chain arithmetic is built to reproduce.
func (v *Verifier) Accepts(w *Witness) bool {
	t := v.Pairing.Tower
	lhs := t.Mul(t.Mul(w.abWitness.final(v.Pairing), w.vkWitness.final(v.Pairing)), w.cdWitness.final(v.Pairing))
	return fq12Equal(lhs, v.VK.AlphaBeta)
}

func (pw pairingWitness) final(p *pairing.Pairing) tower.Fq12Elem {
	easy := p.EasyExponentiationWitness(pw.f)
	return p.HardExponentiationWitness(easy)
}

func fq12Equal(a, b tower.Fq12Elem) bool {
	as := []*bnum.Int{a.C0.C0.C0, a.C0.C0.C1, a.C0.C1.C0, a.C0.C1.C1, a.C0.C2.C0, a.C0.C2.C1,
		a.C1.C0.C0, a.C1.C0.C1, a.C1.C1.C0, a.C1.C1.C1, a.C1.C2.C0, a.C1.C2.C1}
	bs := []*bnum.Int{b.C0.C0.C0, b.C0.C0.C1, b.C0.C1.C0, b.C0.C1.C1, b.C0.C2.C0, b.C0.C2.C1,
		b.C1.C0.C0, b.C1.C0.C1, b.C1.C1.C0, b.C1.C1.C1, b.C1.C2.C0, b.C1.C2.C1}
	for i := range as {
		if as[i].Cmp(bs[i]) != 0 {
			return false
		}
	}
	return true
}

// UnlockingScript pushes the complete witness LockingScript consumes.
// The locking script runs, in order, the MSM, then the AB, vk_x/gamma
// and C/delta pairing blocks, so the pushes go in the reverse of that
// order: the C/delta block's witness deepest, then vk_x/gamma's, then
// AB's, then the MSM witness shallowest of all.
func (v *Verifier) UnlockingScript(w *Witness) *script.Script {
	out := script.NewScript()

	out.AddScript(v.pushPairingWitness(w.cdWitness, w.Proof.C, v.VK.DeltaNeg))
	out.AddScript(v.pushPairingWitness(w.vkWitness, w.vkx, v.VK.GammaNeg))
	out.AddScript(v.pushPairingWitness(w.abWitness, w.Proof.A, w.Proof.B))

	msm, _ := v.msm()
	scalars := append([]int64{1}, w.PublicInputs...)
	out.AddScript(msm.UnlockingScript(scalars, w.msmSteps, w.msmZero, w.msmGrad))

	return out
}

// pushPairingWitness pushes one pairing evaluation's full witness: the
// final-exponentiation inverse deepest, then the Miller-loop witness
// (gradient blocks, base point, twist point, initial accumulator) in
// exactly the shape pairing.SingleUnlockingScript lays out for a
// standalone evaluation.
func (v *Verifier) pushPairingWitness(pw pairingWitness, base ec.Point, twist ec.TwistPoint) *script.Script {
	out := script.NewScript()
	out.AddScript(pairing.PushFinalExponentiationWitness(pw.invF))
	out.AddScript(v.Pairing.MillerLoopUnlockingScript(base, twist, pw.steps))
	return out
}

// LockingScript compiles the full Groth16 verification: the field
// modulus check, the public-input MSM, the three pairing evaluations
// (checking the vk block's base point against the MSM's on-chain
// result and the gamma/delta blocks' twist operands against the
// hard-coded verifying-key constants), and a final coordinate-wise
// comparison of the accumulated product against alpha*beta, ending in
// OP_EQUAL on the last coordinate.
func (v *Verifier) LockingScript(modulusPos int) *script.Script {
	out := script.NewScript()
	out.AddScript(v.Pairing.Base.Field.VerifyModulus(modulusPos))

	msm, bases := v.msm()
	out.AddScript(msm.LockingScript(bases, modulusPos))
	out.AddScript(v.PairingStages(modulusPos - msm.WitnessSlots() + 2))
	return out
}

// MSMWitnessSlots is the stack width of the public-input MSM's witness,
// for callers substituting their own MSM stage (reftx) that still need
// to hand PairingStages the right modulus depth.
func (v *Verifier) MSMWitnessSlots() int {
	msm, _ := v.msm()
	return msm.WitnessSlots()
}

// PairingStages emits everything after the MSM: the vk_x base check,
// the three pairing evaluation blocks with their operand checks, and
// the final equality against alpha*beta. modulusPos is the modulus
// depth with the MSM's two-slot vk_x result on top of the three pairing
// witnesses. Split out so reftx can swap the MSM stage for its
// extractable variant without re-deriving the pairing composition.
func (v *Verifier) PairingStages(modulusPos int) *script.Script {
	out := script.NewScript()
	mod := modulusPos
	// Stack: vkx.x vkx.y on top of the AB witness

	out.AddScript(v.verifyVkBase())
	out.Add(script.NewStatement(script.Op2DROP))
	mod -= 2

	w := v.Pairing.SingleWitnessSize()

	// e(A, B): the only block whose twist operand is a free proof
	// element, so pin its initial accumulator to its own Q copy
	out.AddScript(verifyAccumulatorMatchesTwist())
	out.AddScript(v.Pairing.SingleLockingScript(mod))
	mod += 12 - w
	out.AddScript(toAlt(12))
	mod -= 12

	// e(vk_x, -gamma)
	out.AddScript(verifyTwistConstant(v.VK.GammaNeg))
	out.AddScript(v.Pairing.SingleLockingScript(mod))
	mod += 12 - w
	out.AddScript(toAlt(12))
	mod -= 12

	// e(C, -delta)
	out.AddScript(verifyTwistConstant(v.VK.DeltaNeg))
	out.AddScript(v.Pairing.SingleLockingScript(mod))
	mod += 12 - w

	out.AddScript(fromAlt(24))
	mod += 24

	out.AddScript(v.FinalEqualityCheck(mod))
	return out
}

// verifyVkBase compares the two base-point slots buried in the vk
// pairing block's witness against the vk_x the MSM just left on top of
// the stack, non-destructively.
//
// Stack (top down): vkx(2), AB witness, vk witness (T(4), Q(4), P(2),
// digit blocks, invF(12)), ..
func (v *Verifier) verifyVkBase() *script.Script {
	out := script.NewScript()
	baseY := 2 + v.Pairing.SingleWitnessSize() + 8
	baseX := baseY + 1

	out.AddScript(builder.Pick(baseX, 1))
	out.AddScript(builder.Pick(2, 1)) // vkx.x, one deeper than usual under the fresh pick
	out.Add(script.NewStatement(script.OpEQUALVERIFY))
	out.AddScript(builder.Pick(baseY, 1))
	out.AddScript(builder.Pick(1, 1)) // vkx.y
	out.Add(script.NewStatement(script.OpEQUALVERIFY))
	return out
}

// verifyTwistConstant checks the T and Q copies at the head of a
// pairing block's witness against a hard-coded verifying-key twist
// point, non-destructively: eight slots, eight constants.
func verifyTwistConstant(twist ec.TwistPoint) *script.Script {
	out := script.NewScript()
	limbs := []*bnum.Int{
		twist.Y.C1, twist.Y.C0, twist.X.C1, twist.X.C0, // T
		twist.Y.C1, twist.Y.C0, twist.X.C1, twist.X.C0, // Q
	}
	for i, c := range limbs {
		out.AddScript(builder.Pick(i, 1))
		out.Add(script.NewDataStatement(c.Bytes()))
		out.Add(script.NewStatement(script.OpEQUALVERIFY))
	}
	return out
}

// verifyAccumulatorMatchesTwist checks that a pairing block's initial
// accumulator T equals its twist operand Q slot for slot, for blocks
// whose twist operand is itself witness data (e(A,B)): a prover
// starting the loop anywhere other than Q would be evaluating some
// other function of the proof.
func verifyAccumulatorMatchesTwist() *script.Script {
	out := script.NewScript()
	for i := 0; i < 4; i++ {
		out.AddScript(builder.Pick(i, 1))
		out.AddScript(builder.Pick(i+5, 1))
		out.Add(script.NewStatement(script.OpEQUALVERIFY))
	}
	return out
}

func toAlt(n int) *script.Script {
	out := script.NewScript()
	for i := 0; i < n; i++ {
		out.Add(script.NewStatement(script.OpTOALTSTACK))
	}
	return out
}

func fromAlt(n int) *script.Script {
	out := script.NewScript()
	for i := 0; i < n; i++ {
		out.Add(script.NewStatement(script.OpFROMALTSTACK))
	}
	return out
}

// FinalEqualityCheck multiplies the three accumulated pairing results
// together and compares the product, limb by limb, against the
// precomputed e(alpha,beta) constant: eleven OP_EQUALVERIFYs and a
// final OP_EQUAL, so the overall locking script leaves a single truth
// value. Split out from LockingScript so reftx's variant composition
// reuses it unchanged.
func (v *Verifier) FinalEqualityCheck(modulusPos int) *script.Script {
	out := script.NewScript()
	deep := stackdesc.MustNewFiniteFieldElement(23, false, 6)
	top := stackdesc.MustNewFiniteFieldElement(11, false, 6)
	out.AddScript(v.Pairing.Tower.MulScriptConsuming(deep, top, modulusPos))
	out.AddScript(v.Pairing.Tower.MulScriptConsuming(deep, top, modulusPos-12))

	limbs := []*bnum.Int{
		v.VK.AlphaBeta.C1.C2.C1, v.VK.AlphaBeta.C1.C2.C0, v.VK.AlphaBeta.C1.C1.C1, v.VK.AlphaBeta.C1.C1.C0,
		v.VK.AlphaBeta.C1.C0.C1, v.VK.AlphaBeta.C1.C0.C0, v.VK.AlphaBeta.C0.C2.C1, v.VK.AlphaBeta.C0.C2.C0,
		v.VK.AlphaBeta.C0.C1.C1, v.VK.AlphaBeta.C0.C1.C0, v.VK.AlphaBeta.C0.C0.C1,
	}
	for _, c := range limbs {
		out.Add(script.NewDataStatement(c.Bytes()))
		out.Add(script.NewStatement(script.OpEQUALVERIFY))
	}
	out.Add(script.NewDataStatement(v.VK.AlphaBeta.C0.C0.C0.Bytes()))
	out.Add(script.NewStatement(script.OpEQUAL))
	return out
}
