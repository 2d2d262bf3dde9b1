// Package field compiles arithmetic over the prime field F_q that the
// pairing-friendly curve is defined over. Every operation takes the
// field modulus as a constant baked into the emitted script (verified
// once, at the bottom of the stack, via VerifyBottomConstant) and
// produces already-reduced results so that higher layers never need to
// reason about carries.
package field

import (
	"github.com/zkbtc/groth16script/builder"
	"github.com/zkbtc/groth16script/internal/bnum"
	"github.com/zkbtc/groth16script/script"
	"github.com/zkbtc/groth16script/stackdesc"
)

// Fq is a compiler for F_q arithmetic specialized to a fixed modulus.
type Fq struct {
	Modulus *bnum.Int
}

// NewFq creates a field compiler for the given modulus.
func NewFq(modulus *bnum.Int) *Fq {
	return &Fq{Modulus: modulus}
}

// Add emits addition of two field elements at the given stack
// positions, leaving the (mod-reduced) sum on top of the stack.
func (f *Fq) Add(x, y stackdesc.Number) *script.Script {
	out := builder.Pick(x.Position, 1)
	out.AddScript(builder.Pick(y.Position+1, 1))
	out.Add(script.NewStatement(script.OpADD))
	out.AddScript(f.CleanReduceTop(x.Position + 2))
	return out
}

// Sub emits subtraction (x - y) of two field elements, leaving the
// reduced difference on top of the stack.
func (f *Fq) Sub(x, y stackdesc.Number) *script.Script {
	out := builder.Pick(x.Position, 1)
	out.AddScript(builder.Pick(y.Position+1, 1))
	out.Add(script.NewStatement(script.OpSUB))
	out.AddScript(f.CleanReduceTop(x.Position + 2))
	return out
}

// Mul emits multiplication of two field elements, leaving the reduced
// product on top of the stack. The product of two elements each
// bounded by q can be up to 2*bitlen(q) bits wide; reduceTop brings it
// back under q in a single OP_MOD pass since Script's big-integer
// OP_MOD is exact regardless of operand width.
func (f *Fq) Mul(x, y stackdesc.Number) *script.Script {
	out := builder.Pick(x.Position, 1)
	out.AddScript(builder.Pick(y.Position+1, 1))
	out.Add(script.NewStatement(script.OpMUL))
	out.AddScript(f.CleanReduceTop(x.Position + 2))
	return out
}

// Negate emits negation of a field element, leaving q - x on top of
// the stack (0 maps to 0).
func (f *Fq) Negate(x stackdesc.Number) *script.Script {
	out := builder.Pick(x.Position, 1)
	out.Add(script.NewDataStatement(f.Modulus.Bytes()))
	out.Add(script.NewStatement(script.OpSWAP))
	out.Add(script.NewStatement(script.OpSUB))
	out.AddScript(f.CleanReduceTop(x.Position + 2))
	return out
}

// Square is Mul(x, x), named separately because the compiler emits a
// single Pick rather than two for this common case.
func (f *Fq) Square(x stackdesc.Number) *script.Script {
	out := builder.Pick(x.Position, 1)
	out.Add(script.NewStatement(script.OpDUP))
	out.Add(script.NewStatement(script.OpMUL))
	out.AddScript(f.CleanReduceTop(x.Position + 2))
	return out
}

// ReduceTop emits OP_MOD of the top stack element against the modulus
// sitting at the given depth (expressed in the stack as it stands right
// before this fragment runs), normalizing the result into [0, q). It
// leaves a spare copy of the modulus just below the reduced value, so
// that a chain of reductions (see builder.BatchedModulo) only pushes
// the modulus once per chain rather than once per element; the last
// reduction in a chain must be followed by OP_NIP to drop the spare.
func (f *Fq) ReduceTop(modulusDepth int) *script.Script {
	return f.reduceTop(modulusDepth)
}

// CleanReduceTop is ReduceTop for a single, non-batched reduction: it
// drops the spare modulus copy immediately, leaving the stack exactly
// as it was except for the reduced top element.
func (f *Fq) CleanReduceTop(modulusDepth int) *script.Script {
	out := f.reduceTop(modulusDepth)
	out.Add(script.NewStatement(script.OpNIP))
	return out
}

// reduceTop emits OP_MOD of the top stack element against the modulus
// sitting at the given depth, normalizing the result into [0, q).
func (f *Fq) reduceTop(modulusDepth int) *script.Script {
	out := builder.Pick(modulusDepth, 1)
	out.Add(script.NewStatement(script.OpTUCK))
	out.Add(script.NewStatement(script.OpMOD))
	out.Add(script.NewStatement(script.OpOVER))
	out.Add(script.NewStatement(script.OpADD))
	out.AddScript(builder.Pick(modulusDepth+1, 1))
	out.Add(script.NewStatement(script.OpMOD))
	return out
}

// VerifyModulus emits a fragment asserting that the constant sitting at
// the bottom of the stack equals the compiler's modulus, the standard
// opening fragment of a compiled locking script.
func (f *Fq) VerifyModulus(depth int) *script.Script {
	return builder.VerifyBottomConstant(depth, f.Modulus.Bytes())
}

// Eval computes a % f.Modulus using bnum directly; it is a reference
// oracle for tests and for unlocking-key builders that need to
// pre-compute a gradient or reduced witness value off-chain.
func (f *Fq) Eval(a *bnum.Int) *bnum.Int {
	return a.Mod(f.Modulus)
}

// Inverse returns the multiplicative inverse of a modulo the field,
// computed off-chain; scripts never invert on-chain, callers instead
// supply the inverse as a prover-furnished witness and verify it by
// multiplication (see ec.Curve.AddVerifyGradient's gradient check).
func (f *Fq) Inverse(a *bnum.Int) *bnum.Int {
	return a.ModInverse(f.Modulus)
}
