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
	"github.com/zkbtc/groth16script/field"
	"github.com/zkbtc/groth16script/script"
	"github.com/zkbtc/groth16script/stackdesc"
)

// blockStage emits a sequence of fixed-size-block operations (pairs of
// "size" consecutive stack slots standing for one sub-element: a base
// field scalar doubled into an Fq2, an Fq2 tripled into an Fq6, and so
// on) while tracking how far the stack has grown since the fragment
// began. Every combine call leaves exactly one new size-slot
// intermediate on top, so `off` only ever needs a single `+= size`
// adjustment per call; this is what lets every tower-level multiplier
// (Fq2, Fq6, Fq12) share one bookkeeping helper instead of hand-tracked
// offsets at each level.
type blockStage struct {
	out        *script.Script
	off        int
	size       int
	modulusPos int
}

func newBlockStage(size, modulusPos int) *blockStage {
	return &blockStage{out: script.NewScript(), size: size, modulusPos: modulusPos}
}

func (s *blockStage) pos(orig int) int { return orig + s.off }

// combine pushes fresh copies of the sub-elements originally sitting at
// depths origA and origB (A deeper than B), invokes fn (a two-operand
// field op expecting its operands freshly duplicated at the top, A
// below B), and records the one size-slot result fn leaves behind.
func (s *blockStage) combine(origA, origB int, fn func(a, b stackdesc.FiniteFieldElement, modulusPos int) *script.Script) int {
	s.out.AddScript(builder.Pick(s.pos(origA), s.size))
	s.off += s.size
	s.out.AddScript(builder.Pick(s.pos(origB), s.size))
	s.off += s.size
	a := stackdesc.MustNewFiniteFieldElement(2*s.size-1, false, s.size)
	b := stackdesc.MustNewFiniteFieldElement(s.size-1, false, s.size)
	s.out.AddScript(fn(a, b, s.modulusPos+s.off))
	s.off -= s.size
	return s.label()
}

// combine1 is combine's single-operand counterpart (square, negate,
// multiply-by-non-residue): fn must leave exactly one size-slot result
// for every size-slot input it rolls.
func (s *blockStage) combine1(orig int, fn func(a stackdesc.FiniteFieldElement, modulusPos int) *script.Script) int {
	s.out.AddScript(builder.Pick(s.pos(orig), s.size))
	s.off += s.size
	a := stackdesc.MustNewFiniteFieldElement(s.size-1, false, s.size)
	s.out.AddScript(fn(a, s.modulusPos+s.off))
	return s.label()
}

// label records the reference an intermediate result can be addressed
// by later in the same fragment: since every combine leaves its size-slot
// result at the current top, "orig" for that result is the depth of its
// deepest slot (size-1) minus off at the moment it was produced, so that
// pos(orig) = orig+off always recovers the live depth as later
// operations grow the stack further.
func (s *blockStage) label() int { return s.size - 1 - s.off }

// dup duplicates (non-destructively) the sub-element at origin orig,
// for values that must feed more than one later combine call; combine
// consumes (rolls) its operands, so anything used twice needs an extra
// copy made while it is still available.
func (s *blockStage) dup(orig int) int {
	s.out.AddScript(builder.Pick(s.pos(orig), s.size))
	s.off += s.size
	return s.label()
}

// finish returns the accumulated script; the caller is expected to have
// arranged for exactly one size-slot value (the final result) to remain
// on top once all combine/combine1 calls have run.
func (s *blockStage) finish() *script.Script { return s.out }

// finishResult extracts the labeled result blocks from among the
// stage's accumulated intermediates and leaves them -- and nothing else
// the stage produced -- on top of the stack, first label deepest. The
// blocks are copied to the altstack, every slot the stage grew the
// stack by is dropped, and the copies are restored; a round-trip
// through the altstack reverses twice, so the restored blocks come back
// in their original slot order.
func (s *blockStage) finishResult(labels ...int) *script.Script {
	for _, l := range labels {
		s.out.AddScript(builder.Pick(s.pos(l), s.size))
		s.off += s.size
	}
	total := s.size * len(labels)
	for i := 0; i < total; i++ {
		s.out.Add(script.NewStatement(script.OpTOALTSTACK))
	}
	s.off -= total
	for s.off >= 2 {
		s.out.Add(script.NewStatement(script.Op2DROP))
		s.off -= 2
	}
	if s.off == 1 {
		s.out.Add(script.NewStatement(script.OpDROP))
		s.off--
	}
	for i := 0; i < total; i++ {
		s.out.Add(script.NewStatement(script.OpFROMALTSTACK))
	}
	s.off = total
	return s.out
}

// fieldNegateTop negates the single base-field scalar on top of the
// stack (x -> q-x), the modulus constant sitting at modulusPos.
func fieldNegateTop(f *field.Fq, modulusPos int) *script.Script {
	out := builder.Pick(modulusPos, 1)
	out.Add(script.NewStatement(script.OpSWAP))
	out.Add(script.NewStatement(script.OpSUB))
	out.AddScript(f.CleanReduceTop(modulusPos))
	return out
}

// negateScalarBlock negates n consecutive base-field scalars on top of
// the stack in place, preserving their relative order: each pass rolls
// the deepest scalar of the n-wide window to the top and negates it,
// which after n passes has cycled every scalar through the top exactly
// once without disturbing the others' order.
func negateScalarBlock(f *field.Fq, n, modulusPos int) *script.Script {
	out := script.NewScript()
	for i := 0; i < n; i++ {
		out.AddScript(builder.Roll(n-1, 1))
		out.AddScript(fieldNegateTop(f, modulusPos))
	}
	return out
}
