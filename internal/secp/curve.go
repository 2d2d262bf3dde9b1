// Package secp implements the secp256k1 curve arithmetic and ECDSA engine
// needed by the RefTx PUSHTX construction, which synthesizes a canonical
// signature over the curve generator rather than signing an arbitrary
// message with a random key.
package secp

//----------------------------------------------------------------------
// This file is part of Gospel.
// Copyright (C) 2011-2020 Bernd Fix
//
// Gospel is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License,
// or (at your option) any later version.
//
// Gospel is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.
//
// SPDX-License-Identifier: AGPL3.0-or-later
//----------------------------------------------------------------------

import (
	"errors"
	"fmt"

	"github.com/zkbtc/groth16script/internal/bnum"
)

// Curve holds the domain parameters of secp256k1.
type Curve struct {
	P  *bnum.Int // base field prime
	Gx *bnum.Int
	Gy *bnum.Int
	N  *bnum.Int // subgroup order
	B  *bnum.Int // curve parameter, y^2 = x^3 + B
}

var c = &Curve{
	P:  bnum.NewIntFromHex("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEFFFFFC2F"),
	Gx: bnum.NewIntFromHex("79BE667EF9DCBBAC55A06295CE870B07029BFCDB2DCE28D959F2815B16F81798"),
	Gy: bnum.NewIntFromHex("483ADA7726A3C4655DA4FBFC0E1108A8FD17B448A68554199C47D08FFB10D4B8"),
	N:  bnum.NewIntFromHex("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEBAAEDCE6AF48A03BBFD25E8CD0364141"),
	B:  bnum.NewInt(7),
}

// GetCurve returns the secp256k1 domain parameters.
func GetCurve() *Curve { return c }

// HalfOrder is N/2, the boundary for the canonical low-S signature form
// required by the RefTx PUSHTX construction.
func HalfOrder() *bnum.Int {
	return c.N.Div(bnum.TWO)
}

// Inf is the point at infinity.
var Inf = NewPoint(bnum.ZERO, bnum.ZERO)

// Point is an affine point (x,y) on the curve.
type Point struct {
	x, y *bnum.Int
}

// NewPoint builds a point from its affine coordinates.
func NewPoint(x, y *bnum.Int) *Point {
	return &Point{x: x, y: y}
}

// X returns the x-coordinate.
func (p *Point) X() *bnum.Int { return p.x }

// Y returns the y-coordinate.
func (p *Point) Y() *bnum.Int { return p.y }

// GetBasePoint returns the curve generator G.
func GetBasePoint() *Point { return NewPoint(c.Gx, c.Gy) }

// Equals reports whether p and q are the same point.
func (p *Point) Equals(q *Point) bool {
	return p.x.Cmp(q.x) == 0 && p.y.Cmp(q.y) == 0
}

// IsInf reports whether p is the point at infinity.
func (p *Point) IsInf() bool {
	return p.x.Equals(bnum.ZERO) && p.y.Equals(bnum.ZERO)
}

// String renders a point for diagnostics.
func (p *Point) String() string {
	return fmt.Sprintf("(%v,%v)", p.x, p.y)
}

// Add adds two points on the curve.
func (p *Point) Add(q *Point) *Point {
	if p.Equals(q) {
		return p.Double()
	}
	if p.Equals(Inf) {
		return q
	}
	if q.Equals(Inf) {
		return p
	}
	return newJac(p.x, p.y, bnum.ONE).add(newJac(q.x, q.y, bnum.ONE)).conv()
}

// Double doubles a point on the curve.
func (p *Point) Double() *Point {
	if p.Equals(Inf) {
		return Inf
	}
	return newJac(p.x, p.y, bnum.ONE).double().conv()
}

// Mult multiplies p by scalar k.
func (p *Point) Mult(k *bnum.Int) *Point {
	return newJac(p.x, p.y, bnum.ONE).mult(k).conv()
}

// MultBase multiplies the base point by scalar k.
func MultBase(k *bnum.Int) *Point {
	return GetBasePoint().Mult(k)
}

// Solve solves the curve equation for x, returning the non-negative-parity
// root `+sqrt(x^3+B)`.
func Solve(x *bnum.Int) (*bnum.Int, error) {
	y2 := pAdd(pCub(x), c.B)
	return bnum.SqrtModP(y2, c.P)
}

// jacPoint is a point in Jacobian projective coordinates (X,Y,Z) with
// x = X/Z^2, y = Y/Z^3.
type jacPoint struct {
	x, y, z *bnum.Int
}

func newJac(x, y, z *bnum.Int) *jacPoint { return &jacPoint{x: x, y: y, z: z} }

var jacInf = newJac(bnum.ZERO, bnum.ZERO, bnum.ONE)

func (p *jacPoint) isInf() bool {
	return p.x.Equals(bnum.ZERO) && p.y.Equals(bnum.ZERO)
}

func (p *jacPoint) conv() *Point {
	if p.z.Equals(bnum.ZERO) {
		return NewPoint(bnum.ZERO, bnum.ZERO)
	}
	zi := pInv(p.z)
	return NewPoint(pMul(p.x, pSqr(zi)), pMul(p.y, pCub(zi)))
}

// add implements the generic addJac-2007-bl formulas.
func (p *jacPoint) add(q *jacPoint) *jacPoint {
	if p.isInf() {
		return q
	}
	if q.isInf() {
		return p
	}
	z1z1 := pSqr(p.z)
	z2z2 := pSqr(q.z)
	u1 := pMul(p.x, z2z2)
	u2 := pMul(q.x, z1z1)
	s1 := pMul(pMul(p.y, q.z), z2z2)
	s2 := pMul(pMul(q.y, p.z), z1z1)
	h := pSub(u2, u1)
	i := pSqr(pMul(bnum.TWO, h))
	j := pMul(h, i)
	r := pMul(bnum.TWO, pSub(s2, s1))
	v := pMul(u1, i)
	w := pAdd(p.z, q.z)
	x := pSub(pSub(pSqr(r), j), pMul(bnum.TWO, v))
	y := pSub(pMul(r, pSub(v, x)), pMul(bnum.TWO, pMul(s1, j)))
	z := pMul(pSub(pSub(pSqr(w), z1z1), z2z2), h)
	return newJac(x, y, z)
}

// double implements the dbl-2009-alnr formulas.
func (p *jacPoint) double() *jacPoint {
	if p.isInf() {
		return p
	}
	a := pSqr(p.x)
	b := pSqr(p.y)
	zz := pSqr(p.z)
	cc := pSqr(b)
	d := pMul(bnum.TWO, pSub(pSub(pSqr(p.x.Add(b)), a), cc))
	e := pMul(bnum.THREE, a)
	f := pSqr(e)
	x := pSub(f, pMul(bnum.TWO, d))
	y := pSub(pMul(e, pSub(d, x)), pMul(bnum.NewInt(8), cc))
	z := pSub(pSub(pSqr(pAdd(p.y, p.z)), b), zz)
	return newJac(x, y, z)
}

func (p *jacPoint) mult(k *bnum.Int) *jacPoint {
	if p.isInf() || k.Equals(bnum.ZERO) {
		return jacInf
	}
	r := jacInf
	for _, b := range k.Bytes() {
		for pos := 0; pos < 8; pos++ {
			r = r.double()
			if b&0x80 == 0x80 {
				r = p.add(r)
			}
			b <<= 1
		}
	}
	return r
}

func pMod(a *bnum.Int) *bnum.Int { return a.Mod(c.P) }
func pInv(a *bnum.Int) *bnum.Int { return a.ModInverse(c.P) }
func pMul(a, b *bnum.Int) *bnum.Int {
	return a.Mul(b).Mod(c.P)
}
func pSqr(a *bnum.Int) *bnum.Int { return pMul(a, a) }
func pCub(a *bnum.Int) *bnum.Int { return pMul(pSqr(a), a) }
func pSub(a, b *bnum.Int) *bnum.Int {
	x := a.Sub(b)
	if x.Sign() == -1 {
		x = x.Add(c.P)
	}
	return x
}
func pAdd(a, b *bnum.Int) *bnum.Int { return pMod(a.Add(b)) }

func nInv(a *bnum.Int) *bnum.Int { return a.ModInverse(c.N) }

// ErrInvalidSig reports a malformed or out-of-range ECDSA signature.
var ErrInvalidSig = errors.New("secp: invalid signature")
