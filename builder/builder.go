// Package builder provides the bottom compiler layer: small, composable
// Script fragments (pick, roll, numeric pushes, batched modular
// reduction, endianness reversal) that every higher layer assembles into
// larger locking and unlocking scripts.
package builder

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
	"github.com/zkbtc/groth16script/internal/bnum"
	"github.com/zkbtc/groth16script/script"
)

// patternKey identifies a (position, nElements) pair with a known
// shorthand opcode sequence, avoiding a PICK/ROLL-per-element expansion
// for the handful of shapes the stdlib opcodes cover directly.
type patternKey struct {
	position, nElements int
}

var patternsToPick = map[patternKey][]byte{
	{0, 1}: {script.OpDUP},
	{1, 1}: {script.OpOVER},
	{1, 2}: {script.Op2DUP},
	{3, 2}: {script.Op2OVER},
}

var patternsToRoll = map[patternKey][][]byte{
	{1, 1}: {{script.OpSWAP}},
	{2, 1}: {{script.OpROT}},
	{2, 2}: {{script.OpROT}, {script.OpROT}},
	{3, 2}: {{script.Op2SWAP}},
	{5, 2}: {{script.Op2ROT}},
}

// opRangeOpcode maps the small integers Script can push with a single
// opcode (OP_1NEGATE, OP_0..OP_16) instead of a length-prefixed push.
var opRangeOpcode = map[int]byte{
	-1: script.Op1NEGATE, 0: script.OpFALSE, 1: script.OpTRUE,
	2: script.Op2, 3: script.Op3, 4: script.Op4, 5: script.Op5,
	6: script.Op6, 7: script.Op7, 8: script.Op8, 9: script.Op9,
	10: script.Op10, 11: script.Op11, 12: script.Op12, 13: script.Op13,
	14: script.Op14, 15: script.Op15, 16: script.Op16,
}

func inOpRange(n int) bool { return n >= -1 && n <= 16 }

// PushNumber pushes a single small or large integer using the most
// compact encoding the stack machine offers.
func PushNumber(n int64) *script.Script {
	out := script.NewScript()
	if inOpRange(int(n)) {
		out.Add(script.NewStatement(opRangeOpcode[int(n)]))
		return out
	}
	if n < 0 {
		out.Add(script.NewDataStatement(bnum.NewInt(-n).Bytes()))
		out.Add(script.NewStatement(script.OpNEGATE))
		return out
	}
	out.Add(script.NewDataStatement(bnum.NewInt(n).Bytes()))
	return out
}

// NumsToScript pushes a list of integers in order, used to assemble the
// constant tail of a locking script (field modulus limbs, curve
// parameters, and so on).
func NumsToScript(nums []int64) *script.Script {
	out := script.NewScript()
	for _, n := range nums {
		out.AddScript(PushNumber(n))
	}
	return out
}

// Pick emits a script fragment that copies the n consecutive elements
// starting at the given stack position (0-indexed from the top) onto
// the top of the stack, preserving their original order.
func Pick(position, nElements int) *script.Script {
	out := script.NewScript()
	if op, ok := patternsToPick[patternKey{position, nElements}]; ok {
		out.Add(script.NewStatement(op[0]))
		return out
	}
	if inOpRange(position) {
		for i := 0; i < nElements; i++ {
			out.Add(script.NewStatement(opRangeOpcode[position]))
			out.Add(script.NewStatement(script.OpPICK))
		}
		return out
	}
	enc := bnum.NewInt(int64(position)).Bytes()
	for i := 0; i < nElements; i++ {
		out.Add(script.NewDataStatement(enc))
		out.Add(script.NewStatement(script.OpPICK))
	}
	return out
}

// Roll emits a script fragment that moves the n consecutive elements
// starting at the given stack position onto the top of the stack,
// preserving their original order and removing them from their source
// position.
func Roll(position, nElements int) *script.Script {
	out := script.NewScript()
	if ops, ok := patternsToRoll[patternKey{position, nElements}]; ok {
		for _, op := range ops {
			out.Add(script.NewStatement(op[0]))
		}
		return out
	}
	if inOpRange(position) {
		for i := 0; i < nElements; i++ {
			out.Add(script.NewStatement(opRangeOpcode[position]))
			out.Add(script.NewStatement(script.OpROLL))
		}
		return out
	}
	enc := bnum.NewInt(int64(position)).Bytes()
	for i := 0; i < nElements; i++ {
		out.Add(script.NewDataStatement(enc))
		out.Add(script.NewStatement(script.OpROLL))
	}
	return out
}

// VerifyBottomConstant emits a fragment asserting that the bottom-most
// stack element (typically the hard-coded field modulus or curve
// parameter baked into a locking script) equals the given value,
// without disturbing the rest of the stack.
func VerifyBottomConstant(depth int, value []byte) *script.Script {
	out := Pick(depth, 1)
	out.Add(script.NewDataStatement(value))
	out.Add(script.NewStatement(script.OpEQUALVERIFY))
	return out
}

// ReverseEndianness emits a fragment reversing the byte order of the
// top stack element. Script has no built-in byte-reversal opcode, so
// this drains the value into a growing accumulator (started empty via
// OP_FALSE) one trailing byte at a time: each of n rounds rolls the
// shrinking remainder back to the top, OP_SPLITs off its last byte at
// a compile-time-known offset, and OP_CATs that byte onto the end of
// the accumulator, so the accumulator ends up holding the bytes in
// reverse order once the remainder is empty; a final OP_SWAP/OP_DROP
// discards that empty remainder.
func ReverseEndianness(n int) *script.Script {
	out := script.NewScript()
	if n <= 1 {
		return out
	}
	out.Add(script.NewStatement(script.OpFALSE))
	for i := 0; i < n; i++ {
		pos := n - i - 1
		out.Add(script.NewStatement(script.OpSWAP))
		out.Add(script.NewDataStatement(bnum.NewInt(int64(pos)).Bytes()))
		out.Add(script.NewStatement(script.OpSPLIT))
		out.Add(script.NewStatement(script.OpROT))
		out.Add(script.NewStatement(script.OpSWAP))
		out.Add(script.NewStatement(script.OpCAT))
	}
	out.Add(script.NewStatement(script.OpSWAP))
	out.Add(script.NewStatement(script.OpDROP))
	return out
}

// BatchedModulo emits a fragment reducing the top nElements stack
// items modulo the field prime sitting at modulusDepth (measured with
// the nElements items counted), preserving their order. The items may
// carry sign information from prior unreduced arithmetic; the
// TUCK/MOD/OVER/ADD/MOD pattern maps any representative into the
// canonical range [0, q). Each round rolls the deepest item of the
// window to the top, reduces it, and discards the spare modulus copy,
// so after nElements rounds every item has cycled through the top
// exactly once and the stack height is unchanged.
func BatchedModulo(nElements, modulusDepth int) *script.Script {
	out := script.NewScript()
	for i := 0; i < nElements; i++ {
		if nElements > 1 {
			out.AddScript(Roll(nElements-1, 1))
		}
		out.AddScript(Pick(modulusDepth, 1))
		out.Add(script.NewStatement(script.OpTUCK))
		out.Add(script.NewStatement(script.OpMOD))
		out.Add(script.NewStatement(script.OpOVER))
		out.Add(script.NewStatement(script.OpADD))
		out.AddScript(Pick(modulusDepth+1, 1))
		out.Add(script.NewStatement(script.OpMOD))
		out.Add(script.NewStatement(script.OpNIP))
	}
	return out
}

// ReverseEndiannessBounded reverses the byte order of the top stack
// element whose length is only known to be at most maxLen: each of
// maxLen rounds tests the shrinking remainder with OP_SIZE and, while
// it is non-empty, splits off its leading byte and prepends it to the
// accumulator, so a shorter input simply burns its tail rounds as
// no-ops instead of failing an out-of-range OP_SPLIT.
func ReverseEndiannessBounded(maxLen int) *script.Script {
	out := script.NewScript()
	if maxLen <= 1 {
		return out
	}
	out.Add(script.NewStatement(script.OpFALSE))
	out.Add(script.NewStatement(script.OpSWAP))
	for i := 0; i < maxLen; i++ {
		out.Add(script.NewStatement(script.OpSIZE))
		out.Add(script.NewStatement(script.Op0NOTEQUAL))
		out.Add(script.NewStatement(script.OpIF))
		out.Add(script.NewStatement(script.OpTRUE))
		out.Add(script.NewStatement(script.OpSPLIT))
		out.Add(script.NewStatement(script.OpSWAP))
		out.Add(script.NewStatement(script.OpROT))
		out.Add(script.NewStatement(script.OpCAT))
		out.Add(script.NewStatement(script.OpSWAP))
		out.Add(script.NewStatement(script.OpENDIF))
	}
	out.Add(script.NewStatement(script.OpDROP))
	return out
}

// peepholeDrop lists adjacent opcode pairs that cancel outright.
var peepholeDrop = [][2]byte{
	{script.OpSWAP, script.OpSWAP},
	{script.OpTOALTSTACK, script.OpFROMALTSTACK},
	{script.OpFROMALTSTACK, script.OpTOALTSTACK},
	{script.OpFALSE, script.OpROLL},
}

// peepholeReplace lists adjacent opcode pairs with a one-opcode
// shorthand.
var peepholeReplace = map[[2]byte]byte{
	{script.OpFALSE, script.OpPICK}: script.OpDUP,
	{script.OpTRUE, script.OpPICK}:  script.OpOVER,
	{script.OpTRUE, script.OpROLL}:  script.OpSWAP,
	{script.Op2, script.OpROLL}:     script.OpROT,
}

// Peephole applies local rewrites to a compiled script until none
// apply: cancelling adjacent inverse pairs and folding small-constant
// PICK/ROLL into their dedicated opcodes. It never rewrites across a
// data push carrying a payload, so pushed literals are left exactly as
// emitted.
func Peephole(s *script.Script) *script.Script {
	stmts := s.Stmts
	for {
		changed := false
		out := make([]*script.Statement, 0, len(stmts))
		for i := 0; i < len(stmts); i++ {
			if i+1 < len(stmts) && stmts[i].Data == nil && stmts[i+1].Data == nil {
				pair := [2]byte{stmts[i].Opcode, stmts[i+1].Opcode}
				dropped := false
				for _, d := range peepholeDrop {
					if pair == d {
						dropped = true
						break
					}
				}
				if dropped {
					i++
					changed = true
					continue
				}
				if rep, ok := peepholeReplace[pair]; ok {
					out = append(out, script.NewStatement(rep))
					i++
					changed = true
					continue
				}
			}
			out = append(out, stmts[i])
		}
		stmts = out
		if !changed {
			break
		}
	}
	res := script.NewScript()
	res.Stmts = stmts
	return res
}
