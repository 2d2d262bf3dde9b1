package main

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
	"encoding/json"
	"fmt"

	"github.com/zkbtc/groth16script/ec"
	"github.com/zkbtc/groth16script/groth16"
	"github.com/zkbtc/groth16script/internal/bnum"
	"github.com/zkbtc/groth16script/tower"
)

// No ecosystem codec in the dependency set targets this shape, so the
// verifying key's JSON encoding is hand-rolled over stdlib
// encoding/json: every field element is a big-endian hex string, and
// the tower coordinates are nested the same way their Go types nest.

type hexFq2 struct {
	C0 string `json:"c0"`
	C1 string `json:"c1"`
}

type hexFq6 struct {
	C0 hexFq2 `json:"c0"`
	C1 hexFq2 `json:"c1"`
	C2 hexFq2 `json:"c2"`
}

type hexFq12 struct {
	C0 hexFq6 `json:"c0"`
	C1 hexFq6 `json:"c1"`
}

type hexPoint struct {
	X string `json:"x"`
	Y string `json:"y"`
}

type hexTwistPoint struct {
	X hexFq2 `json:"x"`
	Y hexFq2 `json:"y"`
}

// vkFile is the on-disk shape cmd/groth16c reads: a verifying key plus
// the per-public-input bit-width bounds groth16.NewVerifier needs.
type vkFile struct {
	Curve          string         `json:"curve"`
	AlphaBeta      hexFq12        `json:"alpha_beta"`
	GammaNeg       hexTwistPoint  `json:"gamma_neg"`
	DeltaNeg       hexTwistPoint  `json:"delta_neg"`
	GammaABC       []hexPoint     `json:"gamma_abc"`
	MaxMultipliers []int64        `json:"max_multipliers"`
}

func parseHex(s string) (*bnum.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("groth16c: empty hex field")
	}
	return bnum.NewIntFromHex(s), nil
}

func (h hexFq2) toFq2() (tower.Fq2Elem, error) {
	c0, err := parseHex(h.C0)
	if err != nil {
		return tower.Fq2Elem{}, err
	}
	c1, err := parseHex(h.C1)
	if err != nil {
		return tower.Fq2Elem{}, err
	}
	return tower.Fq2Elem{C0: c0, C1: c1}, nil
}

func (h hexFq6) toFq6() (tower.Fq6Elem, error) {
	c0, err := h.C0.toFq2()
	if err != nil {
		return tower.Fq6Elem{}, err
	}
	c1, err := h.C1.toFq2()
	if err != nil {
		return tower.Fq6Elem{}, err
	}
	c2, err := h.C2.toFq2()
	if err != nil {
		return tower.Fq6Elem{}, err
	}
	return tower.Fq6Elem{C0: c0, C1: c1, C2: c2}, nil
}

func (h hexFq12) toFq12() (tower.Fq12Elem, error) {
	c0, err := h.C0.toFq6()
	if err != nil {
		return tower.Fq12Elem{}, err
	}
	c1, err := h.C1.toFq6()
	if err != nil {
		return tower.Fq12Elem{}, err
	}
	return tower.Fq12Elem{C0: c0, C1: c1}, nil
}

func (h hexPoint) toPoint() (ec.Point, error) {
	x, err := parseHex(h.X)
	if err != nil {
		return ec.Point{}, err
	}
	y, err := parseHex(h.Y)
	if err != nil {
		return ec.Point{}, err
	}
	return ec.Point{X: x, Y: y}, nil
}

func (h hexTwistPoint) toTwistPoint() (ec.TwistPoint, error) {
	x, err := h.X.toFq2()
	if err != nil {
		return ec.TwistPoint{}, err
	}
	y, err := h.Y.toFq2()
	if err != nil {
		return ec.TwistPoint{}, err
	}
	return ec.TwistPoint{X: x, Y: y}, nil
}

// parseVerifyingKey decodes raw JSON into a groth16.VerifyingKey and its
// max-multiplier bounds.
func parseVerifyingKey(raw []byte) (groth16.VerifyingKey, []int64, string, error) {
	var f vkFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return groth16.VerifyingKey{}, nil, "", fmt.Errorf("groth16c: parsing verifying key: %w", err)
	}

	alphaBeta, err := f.AlphaBeta.toFq12()
	if err != nil {
		return groth16.VerifyingKey{}, nil, "", err
	}
	gammaNeg, err := f.GammaNeg.toTwistPoint()
	if err != nil {
		return groth16.VerifyingKey{}, nil, "", err
	}
	deltaNeg, err := f.DeltaNeg.toTwistPoint()
	if err != nil {
		return groth16.VerifyingKey{}, nil, "", err
	}
	if len(f.GammaABC) == 0 {
		return groth16.VerifyingKey{}, nil, "", fmt.Errorf("groth16c: gamma_abc must have at least one entry")
	}
	gammaABC := make([]ec.Point, len(f.GammaABC))
	for i, p := range f.GammaABC {
		pt, err := p.toPoint()
		if err != nil {
			return groth16.VerifyingKey{}, nil, "", fmt.Errorf("groth16c: gamma_abc[%d]: %w", i, err)
		}
		gammaABC[i] = pt
	}

	return groth16.VerifyingKey{
		AlphaBeta: alphaBeta,
		GammaNeg:  gammaNeg,
		DeltaNeg:  deltaNeg,
		GammaABC:  gammaABC,
	}, f.MaxMultipliers, f.Curve, nil
}
