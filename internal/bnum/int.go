// Package bnum provides an arbitrary-precision integer wrapper used
// throughout the compiler and its execution-time stack machine.
package bnum

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
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.
//
// SPDX-License-Identifier: AGPL3.0-or-later
//----------------------------------------------------------------------

import (
	"crypto/rand"
	"math/big"
)

var (
	// ZERO as number "0"
	ZERO = NewInt(0)
	// ONE as number "1"
	ONE = NewInt(1)
	// TWO as number "2"
	TWO = NewInt(2)
	// THREE as number "3"
	THREE = NewInt(3)
	// FOUR as number "4"
	FOUR = NewInt(4)
)

// Int is an integer of arbitrary size.
type Int struct {
	v *big.Int
}

// NewInt returns a new Int from an intrinsic int64.
func NewInt(v int64) *Int {
	return &Int{v: big.NewInt(v)}
}

// NewIntFromString converts a decimal string representation into an Int.
func NewIntFromString(s string) *Int {
	v := new(big.Int)
	if _, ok := v.SetString(s, 10); !ok {
		panic("bnum: invalid decimal string " + s)
	}
	return &Int{v: v}
}

// NewIntFromHex converts a hexadecimal string into an Int.
func NewIntFromHex(s string) *Int {
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("bnum: invalid hex string " + s)
	}
	return &Int{v: v}
}

// NewIntFromBytes converts a big-endian byte array into an unsigned Int.
func NewIntFromBytes(buf []byte) *Int {
	return &Int{v: new(big.Int).SetBytes(buf)}
}

// NewIntRnd creates a new random value in [0,j).
func NewIntRnd(j *Int) *Int {
	r, err := rand.Int(rand.Reader, j.v)
	if err != nil {
		panic(err)
	}
	return &Int{v: r}
}

// Bytes returns the big-endian, zero-stripped byte representation.
func (i *Int) Bytes() []byte {
	return i.v.Bytes()
}

// String converts an Int to its decimal string representation.
func (i *Int) String() string {
	return i.v.String()
}

// Add returns i+j.
func (i *Int) Add(j *Int) *Int {
	return &Int{v: new(big.Int).Add(i.v, j.v)}
}

// Sub returns i-j.
func (i *Int) Sub(j *Int) *Int {
	return &Int{v: new(big.Int).Sub(i.v, j.v)}
}

// Mul returns i*j.
func (i *Int) Mul(j *Int) *Int {
	return &Int{v: new(big.Int).Mul(i.v, j.v)}
}

// Div returns the Euclidean quotient i/j (big.Int.Div: the implied
// remainder is non-negative), not the truncated one.
func (i *Int) Div(j *Int) *Int {
	return &Int{v: new(big.Int).Div(i.v, j.v)}
}

// Mod returns the Euclidean remainder of i/j, always non-negative.
func (i *Int) Mod(j *Int) *Int {
	return &Int{v: new(big.Int).Mod(i.v, j.v)}
}

// Quo returns the truncated quotient i/j (rounds toward zero), the
// division OP_DIV implements.
func (i *Int) Quo(j *Int) *Int {
	return &Int{v: new(big.Int).Quo(i.v, j.v)}
}

// Rem returns the truncated remainder of i/j: the sign follows the
// dividend, matching Bitcoin Script's OP_MOD. The compiler's canonical
// reduction pattern (x mod q, add q, mod q again) relies on exactly
// this semantics to land in [0, q).
func (i *Int) Rem(j *Int) *Int {
	return &Int{v: new(big.Int).Rem(i.v, j.v)}
}

// ModSign returns the remainder of i/j mapped into (-j/2, j/2].
func (i *Int) ModSign(j *Int) *Int {
	k := i.Mod(j)
	if k.Mul(TWO).Cmp(j) > 0 {
		k = k.Sub(j)
	}
	return k
}

// BitLen returns the number of bits required to represent i.
func (i *Int) BitLen() int {
	return i.v.BitLen()
}

// Sign returns -1, 0 or 1.
func (i *Int) Sign() int {
	return i.v.Sign()
}

// ModInverse returns the multiplicative inverse of i in Z/jZ.
func (i *Int) ModInverse(j *Int) *Int {
	return &Int{v: new(big.Int).ModInverse(i.v, j.v)}
}

// Cmp compares i and j (-1, 0, 1).
func (i *Int) Cmp(j *Int) int {
	return i.v.Cmp(j.v)
}

// Equals reports whether i and j have the same value.
func (i *Int) Equals(j *Int) bool {
	if i == nil || j == nil {
		return i == j
	}
	return i.v.Cmp(j.v) == 0
}

// Pow raises i to the n-th power (n >= 0).
func (i *Int) Pow(n int) *Int {
	return &Int{v: new(big.Int).Exp(i.v, big.NewInt(int64(n)), nil)}
}

// ModPow returns i^n mod m.
func (i *Int) ModPow(n, m *Int) *Int {
	return &Int{v: new(big.Int).Exp(i.v, n.v, m.v)}
}

// Bit returns the value of the n-th bit of i (0 = least significant).
func (i *Int) Bit(n int) uint {
	return i.v.Bit(n)
}

// Abs returns the absolute value of i.
func (i *Int) Abs() *Int {
	return &Int{v: new(big.Int).Abs(i.v)}
}

// Neg returns -i.
func (i *Int) Neg() *Int {
	return &Int{v: new(big.Int).Neg(i.v)}
}

// Int64 returns the int64 value of i, truncating if it does not fit.
func (i *Int) Int64() int64 {
	return i.v.Int64()
}

// Legendre computes the Legendre symbol (i/p).
func (i *Int) Legendre(p *Int) int {
	if i.Mod(p).Equals(ZERO) {
		return 0
	}
	k := p.Sub(ONE).Div(TWO)
	if i.ModPow(k, p).Equals(ONE) {
		return 1
	}
	return -1
}
