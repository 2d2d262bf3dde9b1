// Package merkle compiles Merkle-path verification scripts: given a
// fixed root and depth, a locking script that recomputes the root from
// a leaf and its sibling path and checks it against the hard-coded
// value.
package merkle

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

	"github.com/zkbtc/groth16script/script"
)

// HashFunction is a sequence of hash opcodes applied in order, the way
// "OP_HASH160" expands to "OP_SHA256 OP_RIPEMD160" in everything but
// name: a tree can require more than one hash opcode per level.
type HashFunction []byte

// The hash opcodes a Merkle tree's HashFunction may be built from.
var (
	RIPEMD160 = HashFunction{script.OpRIPEMD160}
	SHA1      = HashFunction{script.OpSHA1}
	SHA256    = HashFunction{script.OpSHA256}
	HASH160   = HashFunction{script.OpHASH160}
	HASH256   = HashFunction{script.OpHASH256}
)

var validHashOps = map[byte]bool{
	script.OpRIPEMD160: true,
	script.OpSHA1:      true,
	script.OpSHA256:    true,
	script.OpHASH160:   true,
	script.OpHASH256:   true,
}

// Tree holds the public parameters of a Merkle-path verification
// script: the expected root, the hash function the tree was built
// with, and its depth.
type Tree struct {
	Root  []byte
	Hash  HashFunction
	Depth int
}

// NewTree validates its arguments and returns a Tree compiler.
func NewTree(root []byte, hash HashFunction, depth int) (*Tree, error) {
	if depth <= 0 {
		return nil, fmt.Errorf("merkle: depth must be positive, got %d", depth)
	}
	if len(hash) == 0 {
		return nil, fmt.Errorf("merkle: hash function must have at least one opcode")
	}
	for _, op := range hash {
		if !validHashOps[op] {
			return nil, fmt.Errorf("merkle: opcode %d is not a valid hash opcode", op)
		}
	}
	return &Tree{Root: root, Hash: hash, Depth: depth}, nil
}

func (t *Tree) addHash(out *script.Script) {
	for _, op := range t.Hash {
		out.Add(script.NewStatement(op))
	}
}

func (t *Tree) addFinalCheck(out *script.Script, equalVerify bool) {
	out.Add(script.NewDataStatement(t.Root))
	if equalVerify {
		out.Add(script.NewStatement(script.OpEQUALVERIFY))
	} else {
		out.Add(script.NewStatement(script.OpEQUAL))
	}
}

// LockingScriptBitFlag compiles a Merkle-path check that identifies
// each sibling's side with a bit flag rather than a second auxiliary
// push: at every level a 0/1 flag picks whether the running digest or
// its sibling goes on the left before the two are concatenated and
// re-hashed.
//
// Stack in:  aux_{depth-1} bit_{depth-1} .. aux_1 bit_1 d
// Stack out: [] if equalVerify and the path is valid (fails otherwise);
// else 1 if valid, 0 if not.
func (t *Tree) LockingScriptBitFlag(equalVerify bool) *script.Script {
	out := script.NewScript()
	t.addHash(out)
	for i := 0; i < t.Depth-1; i++ {
		out.Add(script.NewStatement(script.OpSWAP))
		out.Add(script.NewStatement(script.OpIF))
		out.Add(script.NewStatement(script.OpSWAP))
		out.Add(script.NewStatement(script.OpENDIF))
		out.Add(script.NewStatement(script.OpCAT))
		t.addHash(out)
	}
	t.addFinalCheck(out, equalVerify)
	return out
}

// LockingScriptTwoAux compiles a Merkle-path check that takes both
// concatenation orders as explicit witness pushes, one per side, so no
// branch is needed to pick which side the running digest belongs on.
//
// Stack in:  aux0_{depth-1} aux1_{depth-1} .. aux0_1 aux1_1 d
// Stack out: same convention as LockingScriptBitFlag.
func (t *Tree) LockingScriptTwoAux(equalVerify bool) *script.Script {
	out := script.NewScript()
	t.addHash(out)
	for i := 0; i < t.Depth-1; i++ {
		out.Add(script.NewStatement(script.OpSWAP))
		out.Add(script.NewStatement(script.OpCAT))
		out.Add(script.NewStatement(script.OpCAT))
		t.addHash(out)
	}
	t.addFinalCheck(out, equalVerify)
	return out
}

// Algorithm selects which of Tree's two locking-script shapes an
// UnlockingKey's path data targets.
type Algorithm int

const (
	AlgorithmBitFlag Algorithm = iota
	AlgorithmTwoAux
)

// UnlockingKey holds the witness data for one Merkle-path proof: the
// leaf and, depending on Algorithm, either a (sibling, side-bit) pair
// or a (left, right) pair per level.
type UnlockingKey struct {
	Algorithm Algorithm
	Data      []byte

	// AlgorithmBitFlag
	Aux []([]byte)
	Bit []bool

	// AlgorithmTwoAux
	AuxLeft  [][]byte
	AuxRight [][]byte
}

// UnlockingScript compiles the witness push sequence for k against
// tree, ordered shallowest level first to match the corresponding
// LockingScript*'s expected stack layout.
func (k *UnlockingKey) UnlockingScript(tree *Tree) (*script.Script, error) {
	out := script.NewScript()
	switch k.Algorithm {
	case AlgorithmBitFlag:
		if len(k.Aux) != tree.Depth-1 || len(k.Bit) != tree.Depth-1 {
			return nil, fmt.Errorf("merkle: need %d (aux,bit) pairs, got %d aux and %d bit", tree.Depth-1, len(k.Aux), len(k.Bit))
		}
		// Aux[0] is the leaf-adjacent level, consumed first, so it is
		// pushed last (shallowest pair).
		for i := len(k.Aux) - 1; i >= 0; i-- {
			out.Add(script.NewDataStatement(k.Aux[i]))
			if k.Bit[i] {
				out.Add(script.NewStatement(script.OpTRUE))
			} else {
				out.Add(script.NewStatement(script.OpFALSE))
			}
		}
	case AlgorithmTwoAux:
		if len(k.AuxLeft) != tree.Depth-1 || len(k.AuxLeft) != len(k.AuxRight) {
			return nil, fmt.Errorf("merkle: need %d (left,right) pairs, got %d left and %d right", tree.Depth-1, len(k.AuxLeft), len(k.AuxRight))
		}
		for i := len(k.AuxLeft) - 1; i >= 0; i-- {
			out.Add(script.NewDataStatement(k.AuxLeft[i]))
			out.Add(script.NewDataStatement(k.AuxRight[i]))
		}
	default:
		return nil, fmt.Errorf("merkle: unknown algorithm %d", k.Algorithm)
	}
	out.Add(script.NewDataStatement(k.Data))
	return out, nil
}
