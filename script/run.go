package script

//----------------------------------------------------------------------
// This file is part of Gospel.
// Copyright (C) 2011-2019 Bernd Fix
//
// Gospel is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SPDX-License-Identifier: AGPL3.0-or-later
//----------------------------------------------------------------------

import (
	"errors"

	"github.com/zkbtc/groth16script/internal/bnum"
	"github.com/zkbtc/groth16script/internal/secp"
)

// errInvalidPubkeyEncoding reports a public key byte string that matches
// neither the compressed nor uncompressed SEC1 encoding.
var errInvalidPubkeyEncoding = errors.New("script: invalid public key encoding")

// Result codes returned by script execution. Unlike most of Go, the
// interpreter deliberately avoids the error interface here: scripts are
// expected to fail routinely (that is their whole point), so a plain
// integer comparable to a small, fixed vocabulary is cheaper to reason
// about than wrapped errors at every opcode dispatch.
const (
	RcOK = iota
	RcFailed
	RcExceedsStack
	RcInvalidStackType
	RcInvalidOpcode
	RcDisabledOpcode
	RcVerifyFailed
	RcInvalidSignature
	RcInvalidPubkey
	RcScriptTooLarge
	RcOpLimitExceeded
	RcEqualVerifyFailed
	RcNumEqualVerifyFailed
	RcUnbalancedConditional
	RcPushSizeExceeded
	RcInvalidSplit
	RcInvalidAltstack
	RcLockTimeFailed
	RcPushTxFailed
)

// RcString maps result codes to human-readable diagnostics.
var RcString = map[int]string{
	RcOK:                    "ok",
	RcFailed:                "script evaluated to false",
	RcExceedsStack:          "operation exceeds stack bounds",
	RcInvalidStackType:      "invalid stack element type",
	RcInvalidOpcode:         "invalid opcode",
	RcDisabledOpcode:        "disabled opcode",
	RcVerifyFailed:          "OP_VERIFY failed",
	RcInvalidSignature:      "signature check failed",
	RcInvalidPubkey:         "invalid public key encoding",
	RcScriptTooLarge:        "script exceeds size limit",
	RcOpLimitExceeded:       "script exceeds opcode limit",
	RcEqualVerifyFailed:     "OP_EQUALVERIFY failed",
	RcNumEqualVerifyFailed:  "OP_NUMEQUALVERIFY failed",
	RcUnbalancedConditional: "unbalanced IF/ELSE/ENDIF",
	RcPushSizeExceeded:      "pushed element exceeds size limit",
	RcInvalidSplit:          "OP_SPLIT position out of range",
	RcInvalidAltstack:       "alt stack operation out of range",
	RcLockTimeFailed:        "locktime/sequence check failed",
	RcPushTxFailed:          "pushtx introspection failed",
}

// MaxScriptSize and MaxOpsPerScript mirror the post-Genesis consensus
// limits this compiler targets. Genesis removed the legacy 10,000-byte
// script size cap and the 201-opcode-per-script limit specifically so
// that large, straight-line on-chain computations like a Groth16
// verifier (tens of thousands of opcodes, unrolled with no loops) are
// possible at all; enforcing the pre-Genesis limits here would make
// every non-trivial script in this repository consensus-invalid by
// construction.
const (
	MaxScriptSize   = 1 << 30
	MaxOpsPerScript = 1 << 30
)

// SigChecker abstracts the transaction-introspection surface an executing
// script needs: a sighash to verify OP_CHECKSIG against, and the raw
// serialized spending transaction pushed onto the stack by PUSHTX-style
// constructions. Real wallet/transaction serialization is out of scope;
// callers that only need to compile and unit-test scripts can leave Tx
// nil and supply SigHash/RawTx directly.
type SigChecker interface {
	SigHash() []byte
	RawTx() []byte
	LockTime() uint32
	Sequence() uint32
}

// R is the state of a single script execution.
type R struct {
	script    *Script
	pos       int
	stack     *Stack
	altStack  *Stack
	tx        SigChecker
	ops       int
	condStack []bool
	// CbStep, when set, is invoked after every executed statement, so a
	// caller can inspect the stack after each step.
	CbStep func(r *R)
}

// NewRuntime creates a fresh runtime for executing scr against tx.
func NewRuntime(scr *Script, tx SigChecker) *R {
	return &R{
		script:   scr,
		stack:    NewStack(),
		altStack: NewStack(),
		tx:       tx,
	}
}

// Stack returns the main data stack.
func (r *R) Stack() *Stack { return r.stack }

// AltStack returns the alternate stack used by OP_TOALTSTACK/OP_FROMALTSTACK.
func (r *R) AltStack() *Stack { return r.altStack }

// fExec reports whether the current position is inside only taken
// conditional branches, i.e. whether statements should actually execute.
func (r *R) fExec() bool {
	for _, b := range r.condStack {
		if !b {
			return false
		}
	}
	return true
}

// pushCond and flipCond and popCond implement OP_IF/OP_ELSE/OP_ENDIF.
func (r *R) pushCond(b bool) { r.condStack = append(r.condStack, b) }
func (r *R) flipCond() int {
	n := len(r.condStack)
	if n == 0 {
		return RcUnbalancedConditional
	}
	r.condStack[n-1] = !r.condStack[n-1]
	return RcOK
}
func (r *R) popCond() int {
	n := len(r.condStack)
	if n == 0 {
		return RcUnbalancedConditional
	}
	r.condStack = r.condStack[:n-1]
	return RcOK
}

// ExecScript runs a locking script against a stack pre-populated by an
// unlocking script (or vice-versa, for independent validation of each
// half). It returns RcOK if the script terminates with a single
// non-zero, non-empty value on top of the stack.
func ExecScript(scr *Script, stack *Stack, tx SigChecker) int {
	if len(scr.Bytes()) > MaxScriptSize {
		return RcScriptTooLarge
	}
	r := &R{script: scr, stack: stack, altStack: NewStack(), tx: tx}
	for r.pos < len(scr.Stmts) {
		if rc := r.exec(); rc != RcOK {
			return rc
		}
		if r.CbStep != nil {
			r.CbStep(r)
		}
	}
	if len(r.condStack) != 0 {
		return RcUnbalancedConditional
	}
	top, rc := r.stack.Peek()
	if rc != RcOK {
		return RcFailed
	}
	if top.Sign() == 0 {
		return RcFailed
	}
	return RcOK
}

// Run executes the runtime's script to completion, the method form of
// ExecScript for callers that built an R via NewRuntime.
func (r *R) Run() int {
	for r.pos < len(r.script.Stmts) {
		if rc := r.exec(); rc != RcOK {
			return rc
		}
		if r.CbStep != nil {
			r.CbStep(r)
		}
	}
	if len(r.condStack) != 0 {
		return RcUnbalancedConditional
	}
	top, rc := r.stack.Peek()
	if rc != RcOK {
		return RcFailed
	}
	if top.Sign() == 0 {
		return RcFailed
	}
	return RcOK
}

func isFlowControl(v byte) bool {
	switch v {
	case OpIF, OpNOTIF, OpELSE, OpENDIF:
		return true
	default:
		return false
	}
}

func (r *R) exec() int {
	r.ops++
	if r.ops > MaxOpsPerScript {
		return RcOpLimitExceeded
	}
	stmt := r.script.Stmts[r.pos]
	r.pos++
	if stmt.IsPush() {
		if !r.fExec() {
			return RcOK
		}
		if stmt.Opcode == OpFALSE {
			return r.stack.Push([]byte{})
		}
		return r.stack.Push(stmt.Data)
	}
	if !r.fExec() && !isFlowControl(stmt.Opcode) {
		return RcOK
	}
	oc := GetOpcode(stmt.Opcode)
	if oc == nil {
		return RcInvalidOpcode
	}
	return oc.Exec(r)
}

// CheckSig verifies a single signature+pubkey pair against the runtime's
// transaction sighash.
func (r *R) CheckSig(sigBytes, pkBytes []byte) int {
	if len(sigBytes) == 0 || len(pkBytes) == 0 {
		return RcInvalidSignature
	}
	sig, err := secp.SignatureFromASN1(sigBytes[:len(sigBytes)-1]) // strip sighash-type byte
	if err != nil {
		return RcInvalidSignature
	}
	pk, err := decodePubkey(pkBytes)
	if err != nil {
		return RcInvalidPubkey
	}
	if r.tx == nil {
		return RcInvalidSignature
	}
	if !secp.Verify(pk, r.tx.SigHash(), sig) {
		return RcInvalidSignature
	}
	return RcOK
}

// CheckMultiSig verifies that at least the required number of signatures
// (in order) match distinct public keys from the supplied set.
func (r *R) CheckMultiSig(sigs, pks [][]byte) int {
	si := 0
	for pi := 0; pi < len(pks) && si < len(sigs); pi++ {
		pk, err := decodePubkey(pks[pi])
		if err != nil {
			continue
		}
		sig, err := secp.SignatureFromASN1(sigs[si][:len(sigs[si])-1])
		if err != nil {
			continue
		}
		if r.tx != nil && secp.Verify(pk, r.tx.SigHash(), sig) {
			si++
		}
	}
	if si != len(sigs) {
		return RcInvalidSignature
	}
	return RcOK
}

// decodePubkey parses an uncompressed (0x04) or compressed (0x02/0x03)
// SEC1 public key encoding into a curve point.
func decodePubkey(b []byte) (*secp.Point, error) {
	switch {
	case len(b) == 65 && b[0] == 0x04:
		x := bnum.NewIntFromBytes(b[1:33])
		y := bnum.NewIntFromBytes(b[33:65])
		return secp.NewPoint(x, y), nil
	case len(b) == 33 && (b[0] == 0x02 || b[0] == 0x03):
		x := bnum.NewIntFromBytes(b[1:33])
		y, err := secp.Solve(x)
		if err != nil {
			return nil, err
		}
		if (b[0] == 0x03) != (y.Bit(0) == 1) {
			y = secp.GetCurve().P.Sub(y)
		}
		return secp.NewPoint(x, y), nil
	default:
		return nil, errInvalidPubkeyEncoding
	}
}
