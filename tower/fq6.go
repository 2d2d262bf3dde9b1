package tower

//----------------------------------------------------------------------
// This file is part of Gospel.
// Copyright (C) 2011-2020 Bernd Fix
//
// Gospel is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License,
// or (at your option) any later version.
//
// SPDX-License-Identifier: AGPL3.0-or-later
//----------------------------------------------------------------------

import (
	"github.com/zkbtc/groth16script/builder"
	"github.com/zkbtc/groth16script/internal/bnum"
	"github.com/zkbtc/groth16script/script"
	"github.com/zkbtc/groth16script/stackdesc"
)

// Fq6Elem is a reference element of F_{q^6} = F_{q^2}[v]/(v^3 - xi), the
// cubic extension used by the sextic-twist tower (BLS12-family curves).
type Fq6Elem struct {
	C0, C1, C2 Fq2Elem
}

// Fq6 is a compiler for F_{q^6} arithmetic, built on top of an Fq2
// compiler and the cubic non-residue xi.
type Fq6 struct {
	Base *Fq2
	Xi   Fq2Elem
}

// NewFq6 creates an Fq6 compiler.
func NewFq6(base *Fq2, xi Fq2Elem) *Fq6 {
	return &Fq6{Base: base, Xi: xi}
}

// Add evaluates component-wise addition off-chain.
func (f *Fq6) Add(a, b Fq6Elem) Fq6Elem {
	return Fq6Elem{
		C0: f.Base.Add(a.C0, b.C0),
		C1: f.Base.Add(a.C1, b.C1),
		C2: f.Base.Add(a.C2, b.C2),
	}
}

// Sub evaluates component-wise subtraction off-chain.
func (f *Fq6) Sub(a, b Fq6Elem) Fq6Elem {
	return Fq6Elem{
		C0: f.Base.Sub(a.C0, b.C0),
		C1: f.Base.Sub(a.C1, b.C1),
		C2: f.Base.Sub(a.C2, b.C2),
	}
}

// Mul evaluates schoolbook multiplication off-chain, reducing the
// degree-4 terms that arise from (c0+c1 v+c2 v^2)(e0+e1 v+e2 v^2) using
// v^3 = xi.
func (f *Fq6) Mul(a, b Fq6Elem) Fq6Elem {
	v0 := f.Base.Mul(a.C0, b.C0)
	v1 := f.Base.Mul(a.C1, b.C1)
	v2 := f.Base.Mul(a.C2, b.C2)

	t0 := f.Base.Mul(f.Base.Add(a.C1, a.C2), f.Base.Add(b.C1, b.C2))
	c0 := f.Base.Add(v0, f.Base.Mul(f.Xi, f.Base.Sub(t0, f.Base.Add(v1, v2))))

	t1 := f.Base.Mul(f.Base.Add(a.C0, a.C1), f.Base.Add(b.C0, b.C1))
	c1 := f.Base.Add(f.Base.Sub(t1, f.Base.Add(v0, v1)), f.Base.Mul(f.Xi, v2))

	t2 := f.Base.Mul(f.Base.Add(a.C0, a.C2), f.Base.Add(b.C0, b.C2))
	c2 := f.Base.Add(f.Base.Sub(t2, f.Base.Add(v0, v2)), v1)

	return Fq6Elem{C0: c0, C1: c1, C2: c2}
}

// MulByNonResidue multiplies by v, the element that lifts an Fq6
// coefficient into the Fq12 tower: (c0,c1,c2) -> (xi*c2, c0, c1).
func (f *Fq6) MulByNonResidue(a Fq6Elem) Fq6Elem {
	return Fq6Elem{C0: f.Base.Mul(f.Xi, a.C2), C1: a.C0, C2: a.C1}
}

// Square evaluates squaring off-chain as a full Mul(a, a); no dedicated
// squaring formula is used.
func (f *Fq6) Square(a Fq6Elem) Fq6Elem {
	return f.Mul(a, a)
}

// Inverse returns the multiplicative inverse of a, computed off-chain
// via the standard cubic-extension adjugate formula: the three
// cofactors t0,t1,t2 double as the numerator of the inverse once
// divided by their Fq2 norm. Used only by test/witness code and the
// final exponentiation's easy part; scripts never invert on-chain.
func (f *Fq6) Inverse(a Fq6Elem) Fq6Elem {
	t0 := f.Base.Sub(f.Base.Square(a.C0), f.Base.Mul(f.Xi, f.Base.Mul(a.C1, a.C2)))
	t1 := f.Base.Sub(f.Base.Mul(f.Xi, f.Base.Square(a.C2)), f.Base.Mul(a.C0, a.C1))
	t2 := f.Base.Sub(f.Base.Square(a.C1), f.Base.Mul(a.C0, a.C2))
	norm := f.Base.Add(f.Base.Mul(a.C0, t0),
		f.Base.Mul(f.Xi, f.Base.Add(f.Base.Mul(a.C2, t1), f.Base.Mul(a.C1, t2))))
	normInv := f.Base.Inverse(norm)
	return Fq6Elem{
		C0: f.Base.Mul(t0, normInv),
		C1: f.Base.Mul(t1, normInv),
		C2: f.Base.Mul(t2, normInv),
	}
}

// Pow raises a to the n-th power off-chain via square-and-multiply.
func (f *Fq6) Pow(a Fq6Elem, n *bnum.Int) Fq6Elem {
	zero := Fq2Elem{C0: bnum.NewInt(0), C1: bnum.NewInt(0)}
	result := Fq6Elem{C0: Fq2Elem{C0: bnum.NewInt(1), C1: bnum.NewInt(0)}, C1: zero, C2: zero}
	base := a
	for i := 0; i < n.BitLen(); i++ {
		if n.Bit(i) == 1 {
			result = f.Mul(result, base)
		}
		base = f.Square(base)
	}
	return result
}

// frobeniusGamma returns gamma_{n,i} = xi^(i*(q^n - 1)/3), the constant
// the i-th Fq2 coefficient picks up under the q^n-power Frobenius map.
// Exact for any parameter set with q^n = 1 (mod 3), which every curve
// this tower is built for satisfies.
func (f *Fq6) frobeniusGamma(n, i int) Fq2Elem {
	q := f.Base.Base.Modulus
	e := q.Pow(n).Sub(bnum.NewInt(1)).Div(bnum.NewInt(3)).Mul(bnum.NewInt(int64(i)))
	return f.Base.Pow(f.Xi, e)
}

// Frobenius evaluates x -> x^(q^n) off-chain: the q^n power acts on
// each Fq2 coefficient (conjugation when n is odd), then coefficient i
// is multiplied by gamma_{n,i}.
func (f *Fq6) Frobenius(a Fq6Elem, n int) Fq6Elem {
	return Fq6Elem{
		C0: f.Base.Frobenius(a.C0, n),
		C1: f.Base.Mul(f.Base.Frobenius(a.C1, n), f.frobeniusGamma(n, 1)),
		C2: f.Base.Mul(f.Base.Frobenius(a.C2, n), f.frobeniusGamma(n, 2)),
	}
}

// frobeniusLimb emits one Fq2 limb's share of a Frobenius map over a
// block of nLimbs limbs sitting on top of the stack: roll the deepest
// limb up, conjugate it when n is odd, and multiply it by its gamma
// constant unless that constant is one. Cycling every limb through the
// top restores the original order.
func frobeniusLimb(f *Fq2, out *script.Script, nLimbs, n, modulusPos int, gamma Fq2Elem) {
	out.AddScript(builder.Roll(2*nLimbs-1, 2))
	if n%2 != 0 {
		out.AddScript(f.ConjugateScript(modulusPos))
	}
	if gamma.C0.Cmp(bnum.NewInt(1)) == 0 && gamma.C1.Sign() == 0 {
		return
	}
	out.Add(script.NewDataStatement(gamma.C0.Bytes()))
	out.Add(script.NewDataStatement(gamma.C1.Bytes()))
	out.AddScript(f.MulScriptConsuming(
		stackdesc.MustNewFiniteFieldElement(3, false, 2),
		stackdesc.MustNewFiniteFieldElement(1, false, 2),
		modulusPos+2,
	))
}

// FrobeniusScript emits x -> x^(q^n) for the Fq6 element occupying the
// top six stack slots, in place.
func (f *Fq6) FrobeniusScript(n, modulusPos int) *script.Script {
	out := script.NewScript()
	for i := 0; i < 3; i++ {
		frobeniusLimb(f.Base, out, 3, n, modulusPos, f.frobeniusGamma(n, i))
	}
	return out
}

// component depths (c0 deepest, c2 shallowest/top) of an Fq6 element
// whose C0.c0 limb sits at depth pos, before any fragment below runs.
func fq6Components(pos int) (c0, c1, c2 int) {
	return pos, pos - 2, pos - 4
}

// AddScript emits component-wise addition of two Fq6 elements, each
// occupying six consecutive stack slots (C0 deepest, C2 on top). Both
// operands are consumed; the reduced sum (C0,C1,C2) is left on top.
func (f *Fq6) AddScript(a, b stackdesc.FiniteFieldElement, modulusPos int) *script.Script {
	return f.combineScript(a, b, modulusPos, f.Base.AddScript)
}

// SubScript emits a - b, analogous to AddScript.
func (f *Fq6) SubScript(a, b stackdesc.FiniteFieldElement, modulusPos int) *script.Script {
	return f.combineScript(a, b, modulusPos, f.Base.SubScript)
}

// combineScript emits AddScript/SubScript's shared shape: fn applied
// Fq2-limb-wise to a and b. The three limb results land contiguously on
// top (C0 deepest); the six-slot originals are then rolled off and
// dropped, b (shallower) first so a's entry depth is restored by the
// time it is rolled.
func (f *Fq6) combineScript(a, b stackdesc.FiniteFieldElement, modulusPos int, fn func(a, b stackdesc.FiniteFieldElement, modulusPos int) *script.Script) *script.Script {
	s := newBlockStage(2, modulusPos)
	a0, a1, a2 := fq6Components(a.Position)
	b0, b1, b2 := fq6Components(b.Position)
	s.combine(a0, b0, fn)
	s.combine(a1, b1, fn)
	s.combine(a2, b2, fn)
	out := s.finish()
	out.AddScript(builder.Roll(b.Position+6, 6))
	out.Add(script.NewStatement(script.Op2DROP))
	out.Add(script.NewStatement(script.Op2DROP))
	out.Add(script.NewStatement(script.Op2DROP))
	out.AddScript(builder.Roll(a.Position, 6))
	out.Add(script.NewStatement(script.Op2DROP))
	out.Add(script.NewStatement(script.Op2DROP))
	out.Add(script.NewStatement(script.Op2DROP))
	return out
}

// mulConstXi multiplies the Fq2 sub-element originally at orig by the
// cubic non-residue Xi, a fixed Fq2 constant rather than a stack value.
func (f *Fq6) mulConstXi(s *blockStage, orig int) int {
	s.out.AddScript(builder.Pick(s.pos(orig), 2))
	s.off += 2
	s.out.Add(script.NewDataStatement(f.Xi.C0.Bytes()))
	s.off++
	s.out.Add(script.NewDataStatement(f.Xi.C1.Bytes()))
	s.off++
	a := stackdesc.MustNewFiniteFieldElement(3, false, 2)
	b := stackdesc.MustNewFiniteFieldElement(1, false, 2)
	s.out.AddScript(f.Base.MulScriptConsuming(a, b, s.modulusPos+s.off))
	s.off -= 2
	return s.label()
}

// MulScript emits schoolbook F_{q^6} multiplication: the nine pairwise
// Fq2 products a_i*b_j are each computed exactly once (no cross-term
// reuse, unlike the off-chain Karatsuba Mul), sidestepping the need to
// duplicate any intermediate before a second use.
//   c0 = a0b0 + xi(a1b2+a2b1)
//   c1 = a0b1+a1b0 + xi*a2b2
//   c2 = a0b2+a1b1+a2b0
func (f *Fq6) MulScript(a, b stackdesc.FiniteFieldElement, modulusPos int) *script.Script {
	s := newBlockStage(2, modulusPos)
	a0, a1, a2 := fq6Components(a.Position)
	b0, b1, b2 := fq6Components(b.Position)

	p00 := s.combine(a0, b0, f.Base.MulScriptConsuming)
	p12 := s.combine(a1, b2, f.Base.MulScriptConsuming)
	p21 := s.combine(a2, b1, f.Base.MulScriptConsuming)
	sum12 := s.combine(p12, p21, f.Base.AddScript)
	xiSum12 := f.mulConstXi(s, sum12)
	c0 := s.combine(p00, xiSum12, f.Base.AddScript)

	p01 := s.combine(a0, b1, f.Base.MulScriptConsuming)
	p10 := s.combine(a1, b0, f.Base.MulScriptConsuming)
	p22 := s.combine(a2, b2, f.Base.MulScriptConsuming)
	sum0110 := s.combine(p01, p10, f.Base.AddScript)
	xiP22 := f.mulConstXi(s, p22)
	c1 := s.combine(sum0110, xiP22, f.Base.AddScript)

	p02 := s.combine(a0, b2, f.Base.MulScriptConsuming)
	p11 := s.combine(a1, b1, f.Base.MulScriptConsuming)
	p20 := s.combine(a2, b0, f.Base.MulScriptConsuming)
	sum0211 := s.combine(p02, p11, f.Base.AddScript)
	c2 := s.combine(sum0211, p20, f.Base.AddScript)

	// The stage's stack also still carries every consumed-label
	// intermediate; extract the three result limbs and drop the rest.
	return s.finishResult(c0, c1, c2)
}

// SquareScript emits squaring via MulScript(a, a, ...); a is read twice
// (independent Picks), never consumed by the other read.
func (f *Fq6) SquareScript(a stackdesc.FiniteFieldElement, modulusPos int) *script.Script {
	return f.MulScript(a, a, modulusPos)
}

// MulScriptConsuming wraps MulScript to discard the two six-slot operand
// blocks it otherwise leaves in place (MulScript reads every limb by
// Pick, never Roll, since several cross-term formulas reuse a limb more
// than once). Used wherever Fq6 multiplication is itself a sub-step of
// an outer tower-level operation.
func (f *Fq6) MulScriptConsuming(a, b stackdesc.FiniteFieldElement, modulusPos int) *script.Script {
	out := f.MulScript(a, b, modulusPos)
	out.AddScript(builder.Roll(b.Position+6, 6))
	out.Add(script.NewStatement(script.Op2DROP))
	out.Add(script.NewStatement(script.Op2DROP))
	out.Add(script.NewStatement(script.Op2DROP))
	out.AddScript(builder.Roll(a.Position, 6))
	out.Add(script.NewStatement(script.Op2DROP))
	out.Add(script.NewStatement(script.Op2DROP))
	out.Add(script.NewStatement(script.Op2DROP))
	return out
}

// NegateScript negates the Fq6 element occupying the top six stack
// slots in place, each of the three Fq2 limbs mapped scalar-wise via
// x -> q-x.
func (f *Fq6) NegateScript(modulusPos int) *script.Script {
	return negateScalarBlock(f.Base.Base, 6, modulusPos)
}

// MulByNonResidueScript lifts an Fq6 element into the Fq12 tower:
// (C0,C1,C2) -> (xi*C2, C0, C1). The element occupies six consecutive
// stack slots, C2 on top (depths 0,1), then C1 (2,3), then C0 deepest
// (4,5). It is consumed; the new (C0',C1',C2') is left on top.
func (f *Fq6) MulByNonResidueScript(modulusPos int) *script.Script {
	out := script.NewScript()
	out.Add(script.NewDataStatement(f.Xi.C0.Bytes()))
	out.Add(script.NewDataStatement(f.Xi.C1.Bytes()))
	xiA := stackdesc.MustNewFiniteFieldElement(3, false, 2)
	xiB := stackdesc.MustNewFiniteFieldElement(1, false, 2)
	out.AddScript(f.Base.MulScriptConsuming(xiA, xiB, modulusPos+2))
	// .. C0 C1 xiC2 (xiC2 on top, C0/C1 untouched below at their original
	// depths since pushing+consuming Xi and C2 nets to zero growth).
	out.AddScript(builder.Roll(5, 4))
	return out
}

// flatten6 returns the stack descriptors of the six base-field limbs of
// an Fq6 element packed as (C0.c0, C0.c1, C1.c0, C1.c1, C2.c0, C2.c1),
// deepest first, given the position of the deepest limb. The layout is
// shared by the pairing package's sparse Fq12 multiplication, which only
// ever touches a handful of these limbs at a time.
func flatten6(position int) []stackdesc.Number {
	limbs := make([]stackdesc.Number, 6)
	for i := range limbs {
		limbs[i] = stackdesc.NewNumber(position-i, false)
	}
	return limbs
}
