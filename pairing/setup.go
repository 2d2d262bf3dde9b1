package pairing

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

	"github.com/zkbtc/groth16script/curveparams"
	"github.com/zkbtc/groth16script/ec"
	"github.com/zkbtc/groth16script/field"
	"github.com/zkbtc/groth16script/internal/bnum"
	"github.com/zkbtc/groth16script/tower"
)

// NewFromParams assembles a Pairing compiler -- base field, base curve,
// the Fq2/Fq6/Fq12 tower, and the twist curve -- entirely from a
// CurveParams value, so a caller (cmd/groth16c) needs no knowledge of
// how the tower is built up to compile a verifier for a named curve.
//
// The sextic twist is parameterized the standard way: Fq2 = Fq[u]/(u^2
// +1), Fq6 = Fq2[v]/(v^3 - xi) with xi read off CurveParams.TwistNonResidue
// (negated, per that field's documented convention), and the twist
// curve's B coefficient read off CurveParams.BTwist. Only sextic-twist
// parameter sets (len(TwistNonResidue) == len(BTwist) == 2) are
// supported; a quartic-twist CurveParams would need ec's Fq4-based
// twist curve instead, which this package does not build.
func NewFromParams(p *curveparams.CurveParams) (*Pairing, error) {
	if len(p.TwistNonResidue) != 2 || len(p.BTwist) != 2 {
		return nil, fmt.Errorf("pairing: %s is not a sextic-twist parameter set (need 2 Fq2 coordinates, got %d/%d)",
			p.Name, len(p.TwistNonResidue), len(p.BTwist))
	}

	baseField := field.NewFq(p.Q)
	baseCurve := ec.NewCurve(baseField, p.A, p.B)

	fq2 := tower.NewFq2(baseField, baseField.Eval(bnum.NewInt(-1)))

	xi := tower.Fq2Elem{
		C0: baseField.Eval(p.TwistNonResidue[0].Neg()),
		C1: baseField.Eval(p.TwistNonResidue[1].Neg()),
	}
	fq6 := tower.NewFq6(fq2, xi)
	fq12 := tower.NewFq12(fq6)

	twistB := tower.Fq2Elem{C0: p.BTwist[0], C1: p.BTwist[1]}
	twistA := tower.Fq2Elem{C0: p.A, C1: bnum.NewInt(0)}
	twistCurve := ec.NewTwistCurve(fq2, twistA, twistB)

	return NewPairing(baseCurve, twistCurve, fq2, fq12, p), nil
}
