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

// Fq12Elem is a reference element of F_{q^12} = F_{q^6}[w]/(w^2 - xi6),
// the quadratic-over-cubic-over-quadratic tower used by sextic-twist
// (BLS12-family) pairings.
type Fq12Elem struct {
	C0, C1 Fq6Elem
}

// Fq12 is a compiler for the quadratic-over-Fq6 tower.
type Fq12 struct {
	Base *Fq6
}

// NewFq12 creates an Fq12 compiler.
func NewFq12(base *Fq6) *Fq12 {
	return &Fq12{Base: base}
}

// Add evaluates component-wise addition off-chain.
func (f *Fq12) Add(a, b Fq12Elem) Fq12Elem {
	return Fq12Elem{C0: f.Base.Add(a.C0, b.C0), C1: f.Base.Add(a.C1, b.C1)}
}

// Sub evaluates component-wise subtraction off-chain.
func (f *Fq12) Sub(a, b Fq12Elem) Fq12Elem {
	return Fq12Elem{C0: f.Base.Sub(a.C0, b.C0), C1: f.Base.Sub(a.C1, b.C1)}
}

// Mul evaluates Karatsuba multiplication off-chain:
// (a0+a1 w)(b0+b1 w) = (a0 b0 + xi6 a1 b1) + (a0 b1 + a1 b0) w
// where xi6 acts via Fq6.MulByNonResidue.
func (f *Fq12) Mul(a, b Fq12Elem) Fq12Elem {
	v0 := f.Base.Mul(a.C0, b.C0)
	v1 := f.Base.Mul(a.C1, b.C1)
	t := f.Base.Mul(f.Base.Add(a.C0, a.C1), f.Base.Add(b.C0, b.C1))
	return Fq12Elem{
		C0: f.Base.Add(v0, f.Base.MulByNonResidue(v1)),
		C1: f.Base.Sub(t, f.Base.Add(v0, v1)),
	}
}

// Square evaluates squaring off-chain as a full Mul(a, a); no dedicated
// squaring identity is used.
func (f *Fq12) Square(a Fq12Elem) Fq12Elem {
	return f.Mul(a, a)
}

// Conjugate returns the Fq6-Frobenius conjugate (c0 - c1 w). For
// elements of the cyclotomic subgroup (norm 1, the subgroup the final
// exponentiation's easy part projects into) this equals the
// multiplicative inverse, which is why the hard part of the final
// exponentiation can replace every inversion with a conjugation.
func (f *Fq12) Conjugate(a Fq12Elem) Fq12Elem {
	zero := Fq2Elem{C0: bnum.NewInt(0), C1: bnum.NewInt(0)}
	return Fq12Elem{C0: a.C0, C1: f.Base.Sub(Fq6Elem{C0: zero, C1: zero, C2: zero}, a.C1)}
}

// Inverse returns the multiplicative inverse of a, computed off-chain
// via the standard quadratic-extension norm formula. Used only by
// test/witness code and the final exponentiation's easy part; scripts
// never invert on-chain.
func (f *Fq12) Inverse(a Fq12Elem) Fq12Elem {
	norm := f.Base.Sub(f.Base.Square(a.C0), f.Base.MulByNonResidue(f.Base.Square(a.C1)))
	normInv := f.Base.Inverse(norm)
	zero := Fq2Elem{C0: bnum.NewInt(0), C1: bnum.NewInt(0)}
	return Fq12Elem{
		C0: f.Base.Mul(a.C0, normInv),
		C1: f.Base.Mul(f.Base.Sub(Fq6Elem{C0: zero, C1: zero, C2: zero}, a.C1), normInv),
	}
}

// Pow raises a to the n-th power off-chain via square-and-multiply,
// the Frobenius-free fallback the final exponentiation's easy and hard
// parts both build on.
func (f *Fq12) Pow(a Fq12Elem, n *bnum.Int) Fq12Elem {
	zero := Fq2Elem{C0: bnum.NewInt(0), C1: bnum.NewInt(0)}
	result := Fq12Elem{
		C0: Fq6Elem{C0: Fq2Elem{C0: bnum.NewInt(1), C1: bnum.NewInt(0)}, C1: zero, C2: zero},
		C1: Fq6Elem{C0: zero, C1: zero, C2: zero},
	}
	base := a
	for i := 0; i < n.BitLen(); i++ {
		if n.Bit(i) == 1 {
			result = f.Mul(result, base)
		}
		base = f.Square(base)
	}
	return result
}

// frobeniusGammaW returns xi^((q^n - 1)/6), the extra constant the C1
// half of an Fq12 element picks up under the q^n Frobenius (w^(q^n) =
// gammaW * w for w^6 = xi).
func (f *Fq12) frobeniusGammaW(n int) Fq2Elem {
	q := f.Base.Base.Base.Modulus
	e := q.Pow(n).Sub(bnum.NewInt(1)).Div(bnum.NewInt(6))
	return f.Base.Base.Pow(f.Base.Xi, e)
}

// Frobenius evaluates x -> x^(q^n) off-chain.
func (f *Fq12) Frobenius(a Fq12Elem, n int) Fq12Elem {
	gw := f.frobeniusGammaW(n)
	c1 := f.Base.Frobenius(a.C1, n)
	return Fq12Elem{
		C0: f.Base.Frobenius(a.C0, n),
		C1: Fq6Elem{
			C0: f.Base.Base.Mul(c1.C0, gw),
			C1: f.Base.Base.Mul(c1.C1, gw),
			C2: f.Base.Base.Mul(c1.C2, gw),
		},
	}
}

// FrobeniusScript emits x -> x^(q^n) for the Fq12 element occupying the
// top twelve stack slots, in place: each of the six Fq2 limbs is
// conjugated (n odd) and multiplied by its combined gamma constant.
func (f *Fq12) FrobeniusScript(n, modulusPos int) *script.Script {
	out := script.NewScript()
	gw := f.frobeniusGammaW(n)
	for limb := 0; limb < 6; limb++ {
		gamma := f.Base.frobeniusGamma(n, limb%3)
		if limb >= 3 {
			gamma = f.Base.Base.Mul(gamma, gw)
		}
		frobeniusLimb(f.Base.Base, out, 6, n, modulusPos, gamma)
	}
	return out
}

// fq12Components returns the depths of an Fq12 element's two Fq6
// limbs (C0 deepest, C1 on top), given the depth of C0's deepest scalar.
func fq12Components(pos int) (c0, c1 int) {
	return pos, pos - 6
}

// AddScript emits component-wise addition of two Fq12 elements, each
// occupying twelve consecutive stack slots (C0 deepest, C1 on top).
// Both operands are consumed; the reduced sum (C0,C1) is left on top.
func (f *Fq12) AddScript(a, b stackdesc.FiniteFieldElement, modulusPos int) *script.Script {
	return f.combineScript(a, b, modulusPos, f.Base.AddScript)
}

// SubScript emits a - b, analogous to AddScript.
func (f *Fq12) SubScript(a, b stackdesc.FiniteFieldElement, modulusPos int) *script.Script {
	return f.combineScript(a, b, modulusPos, f.Base.SubScript)
}

// combineScript emits AddScript/SubScript's shared shape: fn applied
// Fq6-limb-wise to a and b, then the twelve-slot originals rolled off
// and dropped, b (shallower) first.
func (f *Fq12) combineScript(a, b stackdesc.FiniteFieldElement, modulusPos int, fn func(a, b stackdesc.FiniteFieldElement, modulusPos int) *script.Script) *script.Script {
	s := newBlockStage(6, modulusPos)
	a0, a1 := fq12Components(a.Position)
	b0, b1 := fq12Components(b.Position)
	s.combine(a0, b0, fn)
	s.combine(a1, b1, fn)
	out := s.finish()
	dropTwelve(out, b.Position+12)
	dropTwelve(out, a.Position)
	return out
}

// dropTwelve rolls the twelve-slot block whose deepest limb sits at
// depth pos to the top and drops it.
func dropTwelve(out *script.Script, pos int) {
	out.AddScript(builder.Roll(pos, 12))
	for i := 0; i < 6; i++ {
		out.Add(script.NewStatement(script.Op2DROP))
	}
}

func (f *Fq12) mulByXi6(s *blockStage, orig int) int {
	return s.combine1(orig, func(_ stackdesc.FiniteFieldElement, modulusPos int) *script.Script {
		return f.Base.MulByNonResidueScript(modulusPos)
	})
}

// MulScript emits dense F_{q^12} multiplication over the quadratic-
// over-Fq6 tower: the four pairwise Fq6 products a_i*b_j are each
// computed exactly once.
//   c0 = a0b0 + xi6*a1b1
//   c1 = a0b1 + a1b0
func (f *Fq12) MulScript(a, b stackdesc.FiniteFieldElement, modulusPos int) *script.Script {
	s := newBlockStage(6, modulusPos)
	a0, a1 := fq12Components(a.Position)
	b0, b1 := fq12Components(b.Position)

	p00 := s.combine(a0, b0, f.Base.MulScriptConsuming)
	p11 := s.combine(a1, b1, f.Base.MulScriptConsuming)
	xiP11 := f.mulByXi6(s, p11)
	c0 := s.combine(p00, xiP11, f.Base.AddScript)

	p01 := s.combine(a0, b1, f.Base.MulScriptConsuming)
	p10 := s.combine(a1, b0, f.Base.MulScriptConsuming)
	c1 := s.combine(p01, p10, f.Base.AddScript)

	return s.finishResult(c0, c1)
}

// MulScriptConsuming wraps MulScript to also discard the two operand
// blocks it reads by Pick, for tower-level composition that replaces
// its inputs outright (the Miller loop's f accumulation, PowScript's
// square-and-multiply chain).
func (f *Fq12) MulScriptConsuming(a, b stackdesc.FiniteFieldElement, modulusPos int) *script.Script {
	out := f.MulScript(a, b, modulusPos)
	dropTwelve(out, b.Position+12)
	dropTwelve(out, a.Position)
	return out
}

// SquareScript emits squaring via MulScript(a, a, ...).
func (f *Fq12) SquareScript(a stackdesc.FiniteFieldElement, modulusPos int) *script.Script {
	return f.MulScript(a, a, modulusPos)
}

// SquareScriptConsuming squares the element at a and discards the
// single original block, leaving only the square on top.
func (f *Fq12) SquareScriptConsuming(a stackdesc.FiniteFieldElement, modulusPos int) *script.Script {
	out := f.SquareScript(a, modulusPos)
	dropTwelve(out, a.Position+12)
	return out
}

// ConjugateScript negates C1 (the top six stack slots) in place,
// leaving C0 (the bottom six) untouched: the Fq6-Frobenius conjugate
// used by the final exponentiation's cyclotomic squaring chain.
func (f *Fq12) ConjugateScript(modulusPos int) *script.Script {
	return f.Base.NegateScript(modulusPos)
}

// PowScript raises the top twelve-slot Fq12 element to the fixed
// exponent n via square-and-multiply, unrolled entirely at compile
// time: n (the final exponentiation's easy and hard exponents, both
// curve constants rather than witness data) is known when the script
// is built, so every squaring and conditional multiply is baked
// straight into the opcode sequence, the same way scalarmul's digit
// sequence is unrolled per MaxMultiplier rather than looped.
//
// Stack input: .. x(12). Stack output: .. x^n(12).
func (f *Fq12) PowScript(n *bnum.Int, modulusPos int) *script.Script {
	out := script.NewScript()
	bitLen := n.BitLen()
	if bitLen == 0 {
		for i := 0; i < 6; i++ {
			out.Add(script.NewStatement(script.Op2DROP))
		}
		out.Add(script.NewDataStatement([]byte{1}))
		for i := 0; i < 11; i++ {
			out.Add(script.NewDataStatement([]byte{}))
		}
		return out
	}

	lastLowOne := -1
	for i := bitLen - 2; i >= 0; i-- {
		if n.Bit(i) == 1 {
			lastLowOne = i
		}
	}

	// result := x; the top bit of n is always 1, so the first
	// iteration's multiply is implicit. x itself stays twelve slots
	// below result for every later conditional multiply.
	out.AddScript(builder.Pick(11, 12))

	// mod is the modulus depth while x still sits below result; the
	// last multiply rolls x up and consumes it.
	mod := modulusPos + 12
	for i := bitLen - 2; i >= 0; i-- {
		out.AddScript(f.SquareScriptConsuming(stackdesc.MustNewFiniteFieldElement(11, false, 6), mod))
		if n.Bit(i) == 1 {
			if i == lastLowOne {
				out.AddScript(builder.Roll(23, 12))
				out.AddScript(f.MulScriptConsuming(stackdesc.MustNewFiniteFieldElement(23, false, 6), stackdesc.MustNewFiniteFieldElement(11, false, 6), mod))
				mod = modulusPos
			} else {
				out.AddScript(builder.Pick(23, 12))
				out.AddScript(f.MulScriptConsuming(stackdesc.MustNewFiniteFieldElement(23, false, 6), stackdesc.MustNewFiniteFieldElement(11, false, 6), mod+12))
			}
		}
	}

	if lastLowOne == -1 {
		// n is a power of two: x was never consumed by a multiply step.
		out.AddScript(builder.Roll(23, 12))
		for i := 0; i < 6; i++ {
			out.Add(script.NewStatement(script.Op2DROP))
		}
	}

	return out
}

// Fq4Elem is a reference element of F_{q^4} = F_{q^2}[s]/(s^2 - xi4),
// the quadratic extension underlying the alternate cubic-over-Fq4 tower
// to Fq12 (used by quartic-twist, BN-family pairings).
type Fq4Elem struct {
	C0, C1 Fq2Elem
}

// Fq4 is a compiler for F_{q^4} arithmetic.
type Fq4 struct {
	Base *Fq2
	Xi   Fq2Elem
}

// NewFq4 creates an Fq4 compiler over the given Fq2 base with the given
// quadratic non-residue xi4.
func NewFq4(base *Fq2, xi Fq2Elem) *Fq4 {
	return &Fq4{Base: base, Xi: xi}
}

// Add evaluates component-wise addition off-chain.
func (f *Fq4) Add(a, b Fq4Elem) Fq4Elem {
	return Fq4Elem{C0: f.Base.Add(a.C0, b.C0), C1: f.Base.Add(a.C1, b.C1)}
}

// Sub evaluates component-wise subtraction off-chain.
func (f *Fq4) Sub(a, b Fq4Elem) Fq4Elem {
	return Fq4Elem{C0: f.Base.Sub(a.C0, b.C0), C1: f.Base.Sub(a.C1, b.C1)}
}

// Mul evaluates Karatsuba multiplication off-chain:
// (a0+a1 s)(b0+b1 s) = (a0 b0 + xi4 a1 b1) + (a0 b1 + a1 b0) s
func (f *Fq4) Mul(a, b Fq4Elem) Fq4Elem {
	v0 := f.Base.Mul(a.C0, b.C0)
	v1 := f.Base.Mul(a.C1, b.C1)
	t := f.Base.Mul(f.Base.Add(a.C0, a.C1), f.Base.Add(b.C0, b.C1))
	return Fq4Elem{
		C0: f.Base.Add(v0, f.Base.Mul(f.Xi, v1)),
		C1: f.Base.Sub(t, f.Base.Add(v0, v1)),
	}
}

// MulByNonResidue multiplies by s, the element that lifts an Fq4
// coefficient into the Fq12Alt tower: (c0,c1) -> (xi4*c1, c0).
func (f *Fq4) MulByNonResidue(a Fq4Elem) Fq4Elem {
	return Fq4Elem{C0: f.Base.Mul(f.Xi, a.C1), C1: a.C0}
}

// Fq12Alt is a reference element of the alternate cubic-over-Fq4 tower
// F_{q^12} = F_{q^4}[t]/(t^3 - xi12), used by quartic-twist (BN-family)
// pairings. It represents the same field as Fq12Elem; RollIsomorphism
// converts between the two coordinate layouts.
type Fq12Alt struct {
	C0, C1, C2 Fq4Elem
}

// Fq12AltCompiler is a compiler for the cubic-over-Fq4 tower.
type Fq12AltCompiler struct {
	Base *Fq4
	Xi   Fq4Elem
}

// NewFq12Alt creates an Fq12AltCompiler over the given Fq4 base with the
// given cubic non-residue xi12.
func NewFq12Alt(base *Fq4, xi Fq4Elem) *Fq12AltCompiler {
	return &Fq12AltCompiler{Base: base, Xi: xi}
}

// Add evaluates component-wise addition off-chain.
func (f *Fq12AltCompiler) Add(a, b Fq12Alt) Fq12Alt {
	return Fq12Alt{
		C0: f.Base.Add(a.C0, b.C0),
		C1: f.Base.Add(a.C1, b.C1),
		C2: f.Base.Add(a.C2, b.C2),
	}
}

// Mul evaluates schoolbook multiplication off-chain, reducing the
// degree-4 terms that arise from (c0+c1 t+c2 t^2)(e0+e1 t+e2 t^2) using
// t^3 = xi12.
func (f *Fq12AltCompiler) Mul(a, b Fq12Alt) Fq12Alt {
	v0 := f.Base.Mul(a.C0, b.C0)
	v1 := f.Base.Mul(a.C1, b.C1)
	v2 := f.Base.Mul(a.C2, b.C2)

	t0 := f.Base.Mul(f.Base.Add(a.C1, a.C2), f.Base.Add(b.C1, b.C2))
	c0 := f.Base.Add(v0, f.Base.Mul(f.Xi, f.Base.Sub(t0, f.Base.Add(v1, v2))))

	t1 := f.Base.Mul(f.Base.Add(a.C0, a.C1), f.Base.Add(b.C0, b.C1))
	c1 := f.Base.Add(f.Base.Sub(t1, f.Base.Add(v0, v1)), f.Base.Mul(f.Xi, v2))

	t2 := f.Base.Mul(f.Base.Add(a.C0, a.C2), f.Base.Add(b.C0, b.C2))
	c2 := f.Base.Add(f.Base.Sub(t2, f.Base.Add(v0, v2)), v1)

	return Fq12Alt{C0: c0, C1: c1, C2: c2}
}

// RollIsomorphism carries an Fq12Elem (quadratic-over-cubic-over-
// quadratic layout: two Fq6 limbs, each three Fq2 limbs) into an
// Fq12Alt (cubic-over-quadratic-over-quadratic layout: three Fq4
// limbs, each two Fq2 limbs) representing the same twelve base-field
// coordinates. Both towers describe the same field F_{q^12}; a script
// picks whichever one the curve's twist degree makes cheaper and never
// mixes representations mid-script. The relabeling below follows the
// standard degree-12 isomorphism: flattening a's twelve Fq2
// coordinates as (C0.C0, C0.C1, C0.C2, C1.C0, C1.C1, C1.C2) and
// regrouping every third entry into one Fq4 limb.
func RollIsomorphism(a Fq12Elem) Fq12Alt {
	flat := [6]Fq2Elem{a.C0.C0, a.C0.C1, a.C0.C2, a.C1.C0, a.C1.C1, a.C1.C2}
	return Fq12Alt{
		C0: Fq4Elem{C0: flat[0], C1: flat[3]},
		C1: Fq4Elem{C0: flat[1], C1: flat[4]},
		C2: Fq4Elem{C0: flat[2], C1: flat[5]},
	}
}

// RollIsomorphismScript permutes a fresh Fq12Elem on top of the stack
// (twelve scalars, depths 11..0, the layout flattened as C0.C0, C0.C1,
// C0.C2, C1.C0, C1.C1, C1.C2 deepest-first) into the Fq12Alt layout
// RollIsomorphism describes off-chain: three Fq4 limbs, C0 deepest,
// each regrouping every third Fq2 entry. The twelve originals are
// consumed; the regrouped twelve are left on top.
func RollIsomorphismScript() *script.Script {
	s := newBlockStage(2, 0)
	// flat0, flat3, flat1, flat4, flat2, flat5, in that push order so
	// flat0 ends up deepest in the regrouped result. Each orig is the
	// depth of the limb pair's deeper (c0) scalar: flat limb i sits at
	// 11-2i.
	for _, orig := range []int{11, 5, 9, 3, 7, 1} {
		s.dup(orig)
	}
	s.out.AddScript(builder.Roll(s.off+11, 12))
	for i := 0; i < 6; i++ {
		s.out.Add(script.NewStatement(script.Op2DROP))
	}
	return s.out
}

// flatten12 returns the stack depths of the twelve base Fq limbs of an
// Fq12Elem, deepest first, given the position of the deepest limb. The
// pairing package's sparse multiplication and RollIsomorphismScript
// share this layout.
func flatten12(position int) []int {
	out := make([]int, 12)
	for i := range out {
		out[i] = position - i
	}
	return out
}
