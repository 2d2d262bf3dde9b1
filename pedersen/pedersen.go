// Package pedersen compiles opening scripts for the Pedersen commitment
// scheme Commit(m, r) = m*G + r*H: a locking script proving a claimed
// commitment point really is the fixed-base linear combination of a
// message and a blinding factor, without revealing either.
package pedersen

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
	"fmt"

	"github.com/zkbtc/groth16script/ec"
	"github.com/zkbtc/groth16script/scalarmul"
	"github.com/zkbtc/groth16script/script"
)

// Scheme is a Pedersen commitment instance over a fixed curve, with its
// two generators G (the message base) and H (the blinding base) baked
// in as locking-script constants, the same way groth16.VerifyingKey
// bakes in gamma_abc.
type Scheme struct {
	Curve *ec.Curve
	G, H  ec.Point
	MaxM  int64 // upper bound on the message scalar's value
	MaxR  int64 // upper bound on the blinding scalar's value
}

// NewScheme creates a Pedersen commitment compiler. maxM/maxR are the
// same kind of max-multiplier bound scalarmul.Unrolled uses: an upper
// bound on the scalar, not a hard requirement that it be exactly that
// wide.
func NewScheme(curve *ec.Curve, g, h ec.Point, maxM, maxR int64) *Scheme {
	return &Scheme{Curve: curve, G: g, H: h, MaxM: maxM, MaxR: maxR}
}

// msm builds the two-term fixed-base MSM compiler for m*G + r*H.
func (s *Scheme) msm() *scalarmul.MSMFixedBases {
	return scalarmul.NewMSMFixedBases(s.Curve, []int64{s.MaxM, s.MaxR})
}

// LockingScript compiles a script that verifies commitment == m*G + r*H
// for a witness-supplied (m, r) pair, per scalarmul.MSMFixedBases's
// unrolled-multiplications-then-gradient-verified-addition expansion
// with n=2.
//
// Stack in:  .. <MSM witness for m against G, then r against H, then
//
//	the one summation gradient>
//
// Stack out: [] (fails unless the witness opens commitment)
func (s *Scheme) LockingScript(commitment ec.Point, modulusPos int) *script.Script {
	out := script.NewScript()
	out.AddScript(s.Curve.Field.VerifyModulus(modulusPos))
	out.AddScript(s.msm().LockingScript([]ec.Point{s.G, s.H}, modulusPos))
	// Stack: .. x(mG+rH) y(mG+rH)
	out.Add(script.NewDataStatement(commitment.Y.Bytes()))
	out.Add(script.NewStatement(script.OpEQUALVERIFY))
	out.Add(script.NewDataStatement(commitment.X.Bytes()))
	out.Add(script.NewStatement(script.OpEQUAL))
	return out
}

// Opening holds an opening's witness data: the message and blinding
// scalar a prover knows, used to build the UnlockingScript a Scheme's
// LockingScript expects.
type Opening struct {
	M, R int64
}

// UnlockingScript computes the full MSM witness for o off-chain and
// compiles the corresponding push sequence, along with the commitment
// point the opening produces (for the caller to compare against what
// it intends to publish).
func (o Opening) UnlockingScript(s *Scheme) (*script.Script, ec.Point, error) {
	if o.M < 0 || o.R < 0 {
		return nil, ec.Point{}, fmt.Errorf("pedersen: m and r must be non-negative, got m=%d r=%d", o.M, o.R)
	}
	acc, stepsPerTerm, aIsZero, sumGradients := s.msm().BuildWitness([]int64{o.M, o.R}, []ec.Point{s.G, s.H})
	return s.msm().UnlockingScript([]int64{o.M, o.R}, stepsPerTerm, aIsZero, sumGradients), acc, nil
}
