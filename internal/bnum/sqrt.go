package bnum

//----------------------------------------------------------------------
// This file is part of Gospel.
// Copyright (C) 2011-2013 Bernd Fix   >Y<
//
// Gospel is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Gospel is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//----------------------------------------------------------------------

import "errors"

// SqrtModP computes a square root of the quadratic residue n mod p using
// the Tonelli-Shanks algorithm. Used by unlocking-key builders to recover
// a curve point's y-coordinate from a compressed representation, and by
// gradient witnesses that need a curve's defining equation solved for y.
func SqrtModP(n, p *Int) (*Int, error) {
	if n.Legendre(p) != 1 {
		return nil, errors.New("bnum: not a quadratic residue")
	}
	// factor out powers of two from p-1: p-1 = Q*2^S, Q odd
	s := 0
	q := p.Sub(ONE)
	for q.Bit(0) == 0 {
		s++
		q = q.Div(TWO)
	}
	if s == 1 {
		return n.ModPow(p.Add(ONE).Div(FOUR), p), nil
	}
	z := ONE
	for z.Legendre(p) != -1 {
		z = z.Add(ONE)
	}
	c := z.ModPow(q, p)
	r := n.ModPow(q.Add(ONE).Div(TWO), p)
	t := n.ModPow(q, p)
	m := s
	for {
		if t.Mod(p).Equals(ONE) {
			return r, nil
		}
		for i := 1; i < m; i++ {
			if t.ModPow(TWO.Pow(i), p).Equals(ONE) {
				b := c.ModPow(TWO.Pow(m-i-1), p)
				r = r.Mul(b).Mod(p)
				t = t.Mul(b.Pow(2)).Mod(p)
				c = b.ModPow(TWO, p)
				m = i
				break
			}
		}
	}
}
