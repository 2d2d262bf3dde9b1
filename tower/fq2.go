// Package tower compiles arithmetic over the Fq2/Fq4/Fq6/Fq12 extension
// fields the pairing's Miller loop and final exponentiation operate on.
// Two non-isomorphic-in-representation towers to Fq12 are supported,
// matching the two families of pairing-friendly curves in use (a
// quadratic-over-cubic-over-quadratic tower for sextic twists, and a
// cubic-over-quadratic-over-quadratic tower for quartic twists); both
// describe the same field and are connected by RollIsomorphism, a fixed
// permutation of the twelve base-field coordinates.
package tower

import (
	"github.com/zkbtc/groth16script/builder"
	"github.com/zkbtc/groth16script/field"
	"github.com/zkbtc/groth16script/internal/bnum"
	"github.com/zkbtc/groth16script/script"
	"github.com/zkbtc/groth16script/stackdesc"
)

// Fq2Elem is a reference (off-chain) element of F_{q^2} = F_q[u]/(u^2 -
// nonResidue), used by tests and by unlocking-key builders to compute
// expected witnesses.
type Fq2Elem struct {
	C0, C1 *bnum.Int
}

// Fq2 is a compiler for F_{q^2} arithmetic.
type Fq2 struct {
	Base        *field.Fq
	NonResidue  *bnum.Int // the value u^2 reduces to
}

// NewFq2 creates an Fq2 compiler over the given base field with the
// given quadratic non-residue.
func NewFq2(base *field.Fq, nonResidue *bnum.Int) *Fq2 {
	return &Fq2{Base: base, NonResidue: nonResidue}
}

// Add evaluates component-wise addition off-chain.
func (f *Fq2) Add(a, b Fq2Elem) Fq2Elem {
	return Fq2Elem{
		C0: f.Base.Eval(a.C0.Add(b.C0)),
		C1: f.Base.Eval(a.C1.Add(b.C1)),
	}
}

// Sub evaluates component-wise subtraction off-chain.
func (f *Fq2) Sub(a, b Fq2Elem) Fq2Elem {
	return Fq2Elem{
		C0: f.Base.Eval(a.C0.Sub(b.C0)),
		C1: f.Base.Eval(a.C1.Sub(b.C1)),
	}
}

// Mul evaluates Karatsuba multiplication off-chain:
// (a0+a1 u)(b0+b1 u) = (a0 b0 + n a1 b1) + (a0 b1 + a1 b0) u
// computed with three base-field multiplications.
func (f *Fq2) Mul(a, b Fq2Elem) Fq2Elem {
	v0 := a.C0.Mul(b.C0)
	v1 := a.C1.Mul(b.C1)
	t := a.C0.Add(a.C1).Mul(b.C0.Add(b.C1))
	return Fq2Elem{
		C0: f.Base.Eval(v0.Add(v1.Mul(f.NonResidue))),
		C1: f.Base.Eval(t.Sub(v0).Sub(v1)),
	}
}

// Square evaluates squaring off-chain using the complex-squaring
// identity (fewer multiplications than a general Mul).
func (f *Fq2) Square(a Fq2Elem) Fq2Elem {
	c0c1 := a.C0.Mul(a.C1)
	t := a.C0.Add(a.C1).Mul(a.C0.Add(a.C1.Mul(f.NonResidue)))
	return Fq2Elem{
		C0: f.Base.Eval(t.Sub(c0c1).Sub(c0c1.Mul(f.NonResidue))),
		C1: f.Base.Eval(c0c1.Add(c0c1)),
	}
}

// Conjugate returns the Frobenius conjugate (c0 - c1 u).
func (f *Fq2) Conjugate(a Fq2Elem) Fq2Elem {
	return Fq2Elem{C0: a.C0, C1: f.Base.Eval(a.C1.Neg())}
}

// MulByNonResidue multiplies an Fq2 element by u, used when lifting an
// Fq2 coefficient into the next tower level.
func (f *Fq2) MulByNonResidue(a Fq2Elem) Fq2Elem {
	return Fq2Elem{
		C0: f.Base.Eval(a.C1.Mul(f.NonResidue)),
		C1: a.C0,
	}
}

// Inverse returns the multiplicative inverse of a, computed off-chain
// via the norm down to Fq (a0^2 - nonResidue*a1^2), the standard
// quadratic-extension inversion formula. Used only by test/witness
// code and the final exponentiation's easy part; scripts never invert
// on-chain.
func (f *Fq2) Inverse(a Fq2Elem) Fq2Elem {
	norm := f.Base.Eval(a.C0.Mul(a.C0).Sub(a.C1.Mul(a.C1).Mul(f.NonResidue)))
	normInv := f.Base.Inverse(norm)
	return Fq2Elem{
		C0: f.Base.Eval(a.C0.Mul(normInv)),
		C1: f.Base.Eval(a.C1.Neg().Mul(normInv)),
	}
}

// Pow raises a to the n-th power off-chain via square-and-multiply,
// used by the final exponentiation's Frobenius-free fallback.
func (f *Fq2) Pow(a Fq2Elem, n *bnum.Int) Fq2Elem {
	result := Fq2Elem{C0: bnum.NewInt(1), C1: bnum.NewInt(0)}
	base := a
	for i := 0; i < n.BitLen(); i++ {
		if n.Bit(i) == 1 {
			result = f.Mul(result, base)
		}
		base = f.Square(base)
	}
	return result
}

// offsetPicker emits Pick fragments against a fixed pre-operation stack
// layout while a script grows, tracking how many extra elements have
// accumulated on top since the fragment started.
type offsetPicker struct {
	out *script.Script
	off int
}

// pick copies the element that was at origDepth before this fragment
// began emitting any code.
func (p *offsetPicker) pick(origDepth int) {
	p.out.AddScript(builder.Pick(origDepth+p.off, 1))
	p.off++
}

// binop applies a two-operand, one-result opcode (OP_ADD/OP_SUB/OP_MUL)
// to the top two stack elements.
func (p *offsetPicker) binop(op byte) {
	p.out.Add(script.NewStatement(op))
	p.off--
}

// pushConst pushes a fixed constant (e.g. the quadratic non-residue).
func (p *offsetPicker) pushConst(v *bnum.Int) {
	p.out.Add(script.NewDataStatement(v.Bytes()))
	p.off++
}

// AddScript emits component-wise addition of two Fq2 elements, each
// occupying two consecutive stack slots (c0 deeper, c1 on top). Both
// operands are consumed; the reduced sum (c0,c1) is left on top.
//
// Operands are read with Pick rather than Roll: a and b sit apart with
// other, already-placed data between them (see blockStage.combine), so
// a bare Roll(b.Position,1) issued after an earlier Roll(a.Position,1)
// would target whatever slid into b's old depth rather than b itself.
// Picking both limbs first keeps every not-yet-read position's depth
// shift uniform (the same trick MulScript uses), and the trailing Rolls
// discard the now-redundant originals in one pass each.
func (f *Fq2) AddScript(a, b stackdesc.FiniteFieldElement, modulusPos int) *script.Script {
	return f.combineScript(a, b, modulusPos, script.OpADD)
}

// SubScript emits a - b, analogous to AddScript.
func (f *Fq2) SubScript(a, b stackdesc.FiniteFieldElement, modulusPos int) *script.Script {
	return f.combineScript(a, b, modulusPos, script.OpSUB)
}

// combineScript emits AddScript/SubScript's shared shape: op applied
// component-wise to a and b (c0 with c0, c1 with c1), consuming both
// operands.
func (f *Fq2) combineScript(a, b stackdesc.FiniteFieldElement, modulusPos int, op byte) *script.Script {
	out := script.NewScript()
	p := &offsetPicker{out: out}

	p.pick(a.Position)
	p.pick(b.Position)
	p.binop(op)
	out.AddScript(f.Base.CleanReduceTop(modulusPos + p.off))

	p.pick(a.Position - 1)
	p.pick(b.Position - 1)
	p.binop(op)
	out.AddScript(f.Base.CleanReduceTop(modulusPos + p.off))

	// Drop the originals, b (shallower) first; once b's two slots are
	// gone the two result slots exactly cancel them out, so a is back at
	// its entry depth.
	out.AddScript(builder.Roll(b.Position+p.off, 2))
	out.Add(script.NewStatement(script.Op2DROP))
	out.AddScript(builder.Roll(a.Position, 2))
	out.Add(script.NewStatement(script.Op2DROP))
	return out
}

// negateTop emits q-x for the single field element on top of the
// stack, with the modulus constant sitting at modulusPos.
func (f *Fq2) negateTop(modulusPos int) *script.Script {
	out := builder.Pick(modulusPos, 1)
	out.Add(script.NewStatement(script.OpSWAP))
	out.Add(script.NewStatement(script.OpSUB))
	out.AddScript(f.Base.CleanReduceTop(modulusPos))
	return out
}

// NegateScript emits negation of the Fq2 element occupying the top two
// stack slots (both limbs mapped x -> q-x), modulus at modulusPos. The
// stack height never changes, so both limbs see the modulus at the
// same depth.
func (f *Fq2) NegateScript(modulusPos int) *script.Script {
	out := f.negateTop(modulusPos)
	out.Add(script.NewStatement(script.OpSWAP))
	out.AddScript(f.negateTop(modulusPos))
	out.Add(script.NewStatement(script.OpSWAP))
	return out
}

// ConjugateScript emits the Frobenius conjugate (c0, -c1) of the Fq2
// element on top of the stack (c0 deeper, c1 on top), leaving c1
// negated in place.
func (f *Fq2) ConjugateScript(modulusPos int) *script.Script {
	return f.negateTop(modulusPos)
}

// SquareScript emits squaring of the Fq2 element occupying the two
// consecutive stack slots at a (c0 deeper at a.Position, c1 at
// a.Position-1) via the plain formula c0' = a0^2 + nonResidue*a1^2,
// c1' = 2*a0*a1. Operands are rolled (consumed); the reduced square is
// left on top, c0' deeper.
func (f *Fq2) SquareScript(a stackdesc.FiniteFieldElement, modulusPos int) *script.Script {
	out := script.NewScript()
	out.AddScript(builder.Roll(a.Position, 2))  // .. a0 a1 (a0 deeper)
	out.Add(script.NewStatement(script.Op2DUP)) // .. a0 a1 a0 a1
	out.Add(script.NewStatement(script.OpMUL))  // .. a0 a1 a0*a1
	out.Add(script.NewStatement(script.OpDUP))
	out.Add(script.NewStatement(script.OpADD)) // .. a0 a1 c1=2*a0*a1
	out.AddScript(f.Base.CleanReduceTop(modulusPos + 1))
	out.Add(script.NewStatement(script.OpROT)) // .. a1 c1 a0
	out.Add(script.NewStatement(script.OpDUP))
	out.Add(script.NewStatement(script.OpMUL)) // .. a1 c1 a0^2
	out.Add(script.NewStatement(script.OpROT)) // .. c1 a0^2 a1
	out.Add(script.NewStatement(script.OpDUP))
	out.Add(script.NewStatement(script.OpMUL)) // .. c1 a0^2 a1^2
	out.Add(script.NewDataStatement(f.NonResidue.Bytes()))
	out.Add(script.NewStatement(script.OpMUL)) // .. c1 a0^2 nr*a1^2
	out.Add(script.NewStatement(script.OpADD)) // .. c1 c0
	out.AddScript(f.Base.CleanReduceTop(modulusPos))
	out.Add(script.NewStatement(script.OpSWAP)) // .. c0 c1
	return out
}

// MulScriptConsuming wraps MulScript to also discard the two operand
// copies MulScript leaves behind (it reads them by Pick rather than
// Roll, since the off-chain Karatsuba formula reuses each limb more
// than once). Tower-level composition always wants the consuming form,
// so the Fq6/Fq12 compilers call this rather than MulScript directly.
func (f *Fq2) MulScriptConsuming(a, b stackdesc.FiniteFieldElement, modulusPos int) *script.Script {
	out := f.MulScript(a, b, modulusPos)
	out.AddScript(builder.Roll(b.Position+2, 2))
	out.Add(script.NewStatement(script.Op2DROP))
	out.AddScript(builder.Roll(a.Position, 2))
	out.Add(script.NewStatement(script.Op2DROP))
	return out
}

// FrobeniusScript emits the Frobenius endomorphism x -> x^(q^n) for the
// Fq2 element on top of the stack. For quadratic extensions this is the
// identity when n is even and conjugation when n is odd (q^2 = 1 in the
// exponent group acting on u), matching Fq2.Frobenius below.
func (f *Fq2) FrobeniusScript(n, modulusPos int) *script.Script {
	if n%2 == 0 {
		return script.NewScript()
	}
	return f.ConjugateScript(modulusPos)
}

// Frobenius evaluates the Frobenius endomorphism off-chain.
func (f *Fq2) Frobenius(a Fq2Elem, n int) Fq2Elem {
	if n%2 == 0 {
		return a
	}
	return f.Conjugate(a)
}

// MulByNonResidueScript multiplies the Fq2 element on top of the stack
// (c0 deeper, c1 on top) by u in place: (c0,c1) -> (nonResidue*c1, c0).
func (f *Fq2) MulByNonResidueScript(modulusPos int) *script.Script {
	out := script.NewScript()
	out.Add(script.NewDataStatement(f.NonResidue.Bytes()))
	out.Add(script.NewStatement(script.OpMUL)) // .. c0 nr*c1
	out.AddScript(f.Base.CleanReduceTop(modulusPos))
	out.Add(script.NewStatement(script.OpSWAP)) // .. nr*c1 c0 == new (c0', c1')
	return out
}

// MulScript emits Karatsuba Fq2 multiplication: a and b each occupy two
// consecutive stack slots (c0 deeper at Position, c1 shallower at
// Position-1), b strictly shallower than a. The fragment leaves the
// reduced product (c0, c1) on top of the stack. modulusPos is the depth
// of the field modulus constant before this fragment begins.
func (f *Fq2) MulScript(a, b stackdesc.FiniteFieldElement, modulusPos int) *script.Script {
	out := script.NewScript()
	p := &offsetPicker{out: out}

	// c0 = a0*b0 + nonResidue*a1*b1
	p.pick(a.Position)
	p.pick(b.Position)
	p.binop(script.OpMUL)
	p.pick(a.Position - 1)
	p.pick(b.Position - 1)
	p.binop(script.OpMUL)
	p.pushConst(f.NonResidue)
	p.binop(script.OpMUL)
	p.binop(script.OpADD)
	out.AddScript(f.Base.CleanReduceTop(modulusPos + p.off))

	// c1 = (a0+a1)*(b0+b1) - a0*b0 - a1*b1
	p.pick(a.Position)
	p.pick(a.Position - 1)
	p.binop(script.OpADD)
	p.pick(b.Position)
	p.pick(b.Position - 1)
	p.binop(script.OpADD)
	p.binop(script.OpMUL)
	p.pick(a.Position)
	p.pick(b.Position)
	p.binop(script.OpMUL)
	p.binop(script.OpSUB)
	p.pick(a.Position - 1)
	p.pick(b.Position - 1)
	p.binop(script.OpMUL)
	p.binop(script.OpSUB)
	out.AddScript(f.Base.CleanReduceTop(modulusPos + p.off))

	return out
}
