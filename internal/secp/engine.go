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
// SPDX-License-Identifier: AGPL3.0-or-later
//----------------------------------------------------------------------

import (
	"encoding/asn1"
	"math/big"

	"github.com/zkbtc/groth16script/internal/bnum"
)

// Signature is an (r,s) ECDSA signature.
type Signature struct {
	R, S *bnum.Int
}

// Bytes returns the DER (ASN.1 SEQUENCE{INTEGER,INTEGER}) encoding of the
// signature, the format consumed by OP_CHECKSIG.
func (s *Signature) Bytes() ([]byte, error) {
	var t struct{ R, S *big.Int }
	t.R = new(big.Int).SetBytes(s.R.Bytes())
	t.S = new(big.Int).SetBytes(s.S.Bytes())
	return asn1.Marshal(t)
}

// SignatureFromASN1 decodes a DER-encoded ECDSA signature.
func SignatureFromASN1(b []byte) (*Signature, error) {
	var t struct{ R, S *big.Int }
	if _, err := asn1.Unmarshal(b, &t); err != nil {
		return nil, err
	}
	return &Signature{
		R: bnum.NewIntFromBytes(t.R.Bytes()),
		S: bnum.NewIntFromBytes(t.S.Bytes()),
	}, nil
}

// Canonicalize flips s to n-s whenever s exceeds the curve's half order,
// enforcing the low-S form that standard Bitcoin Script validation
// requires (BIP-62 / low-S policy).
func (s *Signature) Canonicalize() {
	if s.S.Cmp(HalfOrder()) > 0 {
		s.S = c.N.Sub(s.S)
	}
}

// Verify checks an ECDSA signature for hash under public key q.
func Verify(q *Point, hash []byte, sig *Signature) bool {
	if sig.R.Sign() == 0 || sig.S.Sign() == 0 {
		return false
	}
	if sig.R.Cmp(c.N) >= 0 || sig.S.Cmp(c.N) >= 0 {
		return false
	}
	e := convertHash(hash)
	w := nInv(sig.S)
	u1 := e.Mul(w).Mod(c.N)
	u2 := sig.R.Mul(w).Mod(c.N)
	p1 := MultBase(u1)
	p2 := q.Mult(u2)
	p3 := p1.Add(p2)
	return p3.x.Mod(c.N).Cmp(sig.R) == 0
}

func convertHash(hash []byte) *bnum.Int {
	maxSize := (c.N.BitLen() + 7) / 8
	if len(hash) > maxSize {
		hash = hash[:maxSize]
	}
	return bnum.NewIntFromBytes(hash)
}
