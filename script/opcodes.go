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
	"github.com/zkbtc/groth16script/internal/bchash"
	"github.com/zkbtc/groth16script/internal/bnum"
)

// Bitcoin script opcodes. Values and mnemonics follow the original
// Satoshi numbering, including the OP_CAT/OP_SPLIT/OP_MUL/shift family
// that a UTXO-based script compiler for elliptic-curve and pairing
// arithmetic depends on for byte-slicing and bit-level manipulation.
const (
	OpFALSE               = 0
	OpPUSHDATA1           = 76
	OpPUSHDATA2           = 77
	OpPUSHDATA4           = 78
	Op1NEGATE             = 79
	OpRESERVED            = 80
	OpTRUE                = 81
	Op2                   = 82
	Op3                   = 83
	Op4                   = 84
	Op5                   = 85
	Op6                   = 86
	Op7                   = 87
	Op8                   = 88
	Op9                   = 89
	Op10                  = 90
	Op11                  = 91
	Op12                  = 92
	Op13                  = 93
	Op14                  = 94
	Op15                  = 95
	Op16                  = 96
	OpNOP                 = 97
	OpVER                 = 98
	OpIF                  = 99
	OpNOTIF               = 100
	OpVERIF               = 101
	OpVERNOTIF            = 102
	OpELSE                = 103
	OpENDIF               = 104
	OpVERIFY              = 105
	OpRETURN              = 106
	OpTOALTSTACK          = 107
	OpFROMALTSTACK        = 108
	Op2DROP               = 109
	Op2DUP                = 110
	Op3DUP                = 111
	Op2OVER               = 112
	Op2ROT                = 113
	Op2SWAP               = 114
	OpIFDUP               = 115
	OpDEPTH               = 116
	OpDROP                = 117
	OpDUP                 = 118
	OpNIP                 = 119
	OpOVER                = 120
	OpPICK                = 121
	OpROLL                = 122
	OpROT                 = 123
	OpSWAP                = 124
	OpTUCK                = 125
	OpCAT                 = 126
	OpSPLIT               = 127
	OpNUM2BIN             = 128
	OpBIN2NUM             = 129
	OpSIZE                = 130
	OpINVERT              = 131
	OpAND                 = 132
	OpOR                  = 133
	OpXOR                 = 134
	OpEQUAL               = 135
	OpEQUALVERIFY         = 136
	OpRESERVED1           = 137
	OpRESERVED2           = 138
	Op1ADD                = 139
	Op1SUB                = 140
	Op2MUL                = 141
	Op2DIV                = 142
	OpNEGATE              = 143
	OpABS                 = 144
	OpNOT                 = 145
	Op0NOTEQUAL           = 146
	OpADD                 = 147
	OpSUB                 = 148
	OpMUL                 = 149
	OpDIV                 = 150
	OpMOD                 = 151
	OpLSHIFT              = 152
	OpRSHIFT              = 153
	OpBOOLAND             = 154
	OpBOOLOR              = 155
	OpNUMEQUAL            = 156
	OpNUMEQUALVERIFY      = 157
	OpNUMNOTEQUAL         = 158
	OpLESSTHAN            = 159
	OpGREATERTHAN         = 160
	OpLESSTHANOREQUAL     = 161
	OpGREATERTHANOREQUAL  = 162
	OpMIN                 = 163
	OpMAX                 = 164
	OpWITHIN              = 165
	OpRIPEMD160           = 166
	OpSHA1                = 167
	OpSHA256              = 168
	OpHASH160             = 169
	OpHASH256             = 170
	OpCODESEPARATOR       = 171
	OpCHECKSIG            = 172
	OpCHECKSIGVERIFY      = 173
	OpCHECKMULTISIG       = 174
	OpCHECKMULTISIGVERIFY = 175
	OpNOP1                = 176
	OpCHECKLOCKTIMEVERIFY = 177
	OpCHECKSEQUENCEVERIFY = 178
	OpNOP4                = 179
	OpNOP5                = 180
	OpNOP6                = 181
	OpNOP7                = 182
	OpNOP8                = 183
	OpNOP9                = 184
	OpNOP10               = 185
	OpINVALIDOPCODE       = 255
)

// OpCode describes a single Bitcoin script opcode: its mnemonic, its
// byte value, and the behaviour it has on a running script.
type OpCode struct {
	Name  string
	Value byte
	Exec  func(r *R) int
}

// popNum pops a value and returns it, or propagates the failing code.
func popNum(r *R) (*bnum.Int, int) {
	return r.stack.Pop()
}

// push1 pushes the boolean truth of a condition.
func push1(r *R, ok bool) int {
	return r.stack.Push(ok)
}

func binOp(f func(a, b *bnum.Int) *bnum.Int) func(r *R) int {
	return func(r *R) int {
		a, b, rc := popTwo(r)
		if rc != RcOK {
			return rc
		}
		return r.stack.Push(f(a, b))
	}
}

func popTwo(r *R) (a, b *bnum.Int, rc int) {
	b, rc = r.stack.Pop()
	if rc != RcOK {
		return
	}
	a, rc = r.stack.Pop()
	return
}

func unOp(f func(a *bnum.Int) *bnum.Int) func(r *R) int {
	return func(r *R) int {
		a, rc := popNum(r)
		if rc != RcOK {
			return rc
		}
		return r.stack.Push(f(a))
	}
}

func boolCmp(f func(a, b *bnum.Int) bool) func(r *R) int {
	return func(r *R) int {
		a, b, rc := popTwo(r)
		if rc != RcOK {
			return rc
		}
		return push1(r, f(a, b))
	}
}

func hashOp(f func([]byte) []byte) func(r *R) int {
	return func(r *R) int {
		v, rc := popNum(r)
		if rc != RcOK {
			return rc
		}
		return r.stack.Push(f(v.Bytes()))
	}
}

func pushSmallInt(n int64) func(r *R) int {
	return func(r *R) int {
		return r.stack.Push(bnum.NewInt(n))
	}
}

// OpCodes is the full opcode table, indexed by mnemonic and value.
var OpCodes = []*OpCode{
	{"OP_FALSE", OpFALSE, func(r *R) int { return r.stack.Push([]byte{}) }},
	{"OP_PUSHDATA1", OpPUSHDATA1, nil},
	{"OP_PUSHDATA2", OpPUSHDATA2, nil},
	{"OP_PUSHDATA4", OpPUSHDATA4, nil},
	{"OP_1NEGATE", Op1NEGATE, pushSmallInt(-1)},
	{"OP_RESERVED", OpRESERVED, func(r *R) int { return RcInvalidOpcode }},
	{"OP_TRUE", OpTRUE, pushSmallInt(1)},
	{"OP_2", Op2, pushSmallInt(2)},
	{"OP_3", Op3, pushSmallInt(3)},
	{"OP_4", Op4, pushSmallInt(4)},
	{"OP_5", Op5, pushSmallInt(5)},
	{"OP_6", Op6, pushSmallInt(6)},
	{"OP_7", Op7, pushSmallInt(7)},
	{"OP_8", Op8, pushSmallInt(8)},
	{"OP_9", Op9, pushSmallInt(9)},
	{"OP_10", Op10, pushSmallInt(10)},
	{"OP_11", Op11, pushSmallInt(11)},
	{"OP_12", Op12, pushSmallInt(12)},
	{"OP_13", Op13, pushSmallInt(13)},
	{"OP_14", Op14, pushSmallInt(14)},
	{"OP_15", Op15, pushSmallInt(15)},
	{"OP_16", Op16, pushSmallInt(16)},
	{"OP_NOP", OpNOP, func(r *R) int { return RcOK }},
	{"OP_VER", OpVER, func(r *R) int { return RcInvalidOpcode }},
	{"OP_IF", OpIF, execIf(false)},
	{"OP_NOTIF", OpNOTIF, execIf(true)},
	{"OP_VERIF", OpVERIF, func(r *R) int { return RcInvalidOpcode }},
	{"OP_VERNOTIF", OpVERNOTIF, func(r *R) int { return RcInvalidOpcode }},
	{"OP_ELSE", OpELSE, func(r *R) int { return r.flipCond() }},
	{"OP_ENDIF", OpENDIF, func(r *R) int { return r.popCond() }},
	{"OP_VERIFY", OpVERIFY, func(r *R) int {
		v, rc := popNum(r)
		if rc != RcOK {
			return rc
		}
		if v.Sign() == 0 {
			return RcVerifyFailed
		}
		return RcOK
	}},
	{"OP_RETURN", OpRETURN, func(r *R) int { return RcFailed }},
	{"OP_TOALTSTACK", OpTOALTSTACK, func(r *R) int {
		v, rc := r.stack.Pop()
		if rc != RcOK {
			return rc
		}
		return r.altStack.Push(v)
	}},
	{"OP_FROMALTSTACK", OpFROMALTSTACK, func(r *R) int {
		v, rc := r.altStack.Pop()
		if rc != RcOK {
			return RcInvalidAltstack
		}
		return r.stack.Push(v)
	}},
	{"OP_2DROP", Op2DROP, func(r *R) int {
		if _, rc := r.stack.Pop(); rc != RcOK {
			return rc
		}
		_, rc := r.stack.Pop()
		return rc
	}},
	{"OP_2DUP", Op2DUP, func(r *R) int { return r.stack.Dup(2) }},
	{"OP_3DUP", Op3DUP, func(r *R) int { return r.stack.Dup(3) }},
	{"OP_2OVER", Op2OVER, func(r *R) int {
		w, rc := r.stack.PeekAt(3)
		if rc != RcOK {
			return rc
		}
		x, rc := r.stack.PeekAt(2)
		if rc != RcOK {
			return rc
		}
		if rc := r.stack.Push(w); rc != RcOK {
			return rc
		}
		return r.stack.Push(x)
	}},
	{"OP_2ROT", Op2ROT, func(r *R) int {
		w, rc := r.stack.RemoveAt(5)
		if rc != RcOK {
			return rc
		}
		x, rc := r.stack.RemoveAt(4)
		if rc != RcOK {
			return rc
		}
		if rc := r.stack.Push(w); rc != RcOK {
			return rc
		}
		return r.stack.Push(x)
	}},
	{"OP_2SWAP", Op2SWAP, func(r *R) int {
		z, rc := r.stack.Pop()
		if rc != RcOK {
			return rc
		}
		y, rc := r.stack.Pop()
		if rc != RcOK {
			return rc
		}
		x, rc := r.stack.Pop()
		if rc != RcOK {
			return rc
		}
		w, rc := r.stack.Pop()
		if rc != RcOK {
			return rc
		}
		if rc := r.stack.Push(y); rc != RcOK {
			return rc
		}
		if rc := r.stack.Push(z); rc != RcOK {
			return rc
		}
		if rc := r.stack.Push(w); rc != RcOK {
			return rc
		}
		return r.stack.Push(x)
	}},
	{"OP_IFDUP", OpIFDUP, func(r *R) int {
		v, rc := r.stack.Peek()
		if rc != RcOK {
			return rc
		}
		if v.Sign() == 0 {
			return RcOK
		}
		return r.stack.Push(v)
	}},
	{"OP_DEPTH", OpDEPTH, func(r *R) int { return r.stack.Push(bnum.NewInt(int64(r.stack.Len()))) }},
	{"OP_DROP", OpDROP, func(r *R) int { _, rc := r.stack.Pop(); return rc }},
	{"OP_DUP", OpDUP, func(r *R) int { return r.stack.Dup(1) }},
	{"OP_NIP", OpNIP, func(r *R) int {
		_, rc := r.stack.RemoveAt(1)
		return rc
	}},
	{"OP_OVER", OpOVER, func(r *R) int {
		v, rc := r.stack.PeekAt(1)
		if rc != RcOK {
			return rc
		}
		return r.stack.Push(v)
	}},
	{"OP_PICK", OpPICK, func(r *R) int {
		n, rc := r.stack.Pop()
		if rc != RcOK {
			return rc
		}
		v, rc := r.stack.PeekAt(int(n.Int64()))
		if rc != RcOK {
			return rc
		}
		return r.stack.Push(v)
	}},
	{"OP_ROLL", OpROLL, func(r *R) int {
		n, rc := r.stack.Pop()
		if rc != RcOK {
			return rc
		}
		v, rc := r.stack.RemoveAt(int(n.Int64()))
		if rc != RcOK {
			return rc
		}
		return r.stack.Push(v)
	}},
	{"OP_ROT", OpROT, func(r *R) int {
		v, rc := r.stack.RemoveAt(2)
		if rc != RcOK {
			return rc
		}
		return r.stack.Push(v)
	}},
	{"OP_SWAP", OpSWAP, func(r *R) int {
		v, rc := r.stack.RemoveAt(1)
		if rc != RcOK {
			return rc
		}
		return r.stack.Push(v)
	}},
	{"OP_TUCK", OpTUCK, func(r *R) int {
		b, rc := r.stack.Pop()
		if rc != RcOK {
			return rc
		}
		a, rc := r.stack.Pop()
		if rc != RcOK {
			return rc
		}
		if rc := r.stack.Push(b); rc != RcOK {
			return rc
		}
		if rc := r.stack.Push(a); rc != RcOK {
			return rc
		}
		return r.stack.Push(b)
	}},
	{"OP_CAT", OpCAT, func(r *R) int {
		a, b, rc := popTwo(r)
		if rc != RcOK {
			return rc
		}
		return r.stack.Push(append(append([]byte{}, a.Bytes()...), b.Bytes()...))
	}},
	{"OP_SPLIT", OpSPLIT, func(r *R) int {
		n, rc := r.stack.Pop()
		if rc != RcOK {
			return rc
		}
		v, rc := r.stack.Pop()
		if rc != RcOK {
			return rc
		}
		buf := v.Bytes()
		pos := int(n.Int64())
		if pos < 0 || pos > len(buf) {
			return RcInvalidSplit
		}
		if rc := r.stack.Push(append([]byte{}, buf[:pos]...)); rc != RcOK {
			return rc
		}
		return r.stack.Push(append([]byte{}, buf[pos:]...))
	}},
	{"OP_NUM2BIN", OpNUM2BIN, func(r *R) int {
		size, rc := r.stack.Pop()
		if rc != RcOK {
			return rc
		}
		v, rc := r.stack.Pop()
		if rc != RcOK {
			return rc
		}
		n := int(size.Int64())
		buf := v.Bytes()
		if len(buf) > n {
			return RcPushSizeExceeded
		}
		out := make([]byte, n)
		copy(out[n-len(buf):], buf)
		return r.stack.Push(out)
	}},
	{"OP_BIN2NUM", OpBIN2NUM, unOp(func(a *bnum.Int) *bnum.Int { return a })},
	{"OP_SIZE", OpSIZE, func(r *R) int {
		v, rc := r.stack.Peek()
		if rc != RcOK {
			return rc
		}
		return r.stack.Push(bnum.NewInt(int64(len(v.Bytes()))))
	}},
	{"OP_INVERT", OpINVERT, func(r *R) int { return RcDisabledOpcode }},
	{"OP_AND", OpAND, func(r *R) int { return RcDisabledOpcode }},
	{"OP_OR", OpOR, func(r *R) int { return RcDisabledOpcode }},
	{"OP_XOR", OpXOR, func(r *R) int { return RcDisabledOpcode }},
	{"OP_EQUAL", OpEQUAL, boolCmp(func(a, b *bnum.Int) bool { return a.Cmp(b) == 0 })},
	{"OP_EQUALVERIFY", OpEQUALVERIFY, func(r *R) int {
		a, b, rc := popTwo(r)
		if rc != RcOK {
			return rc
		}
		if a.Cmp(b) != 0 {
			return RcEqualVerifyFailed
		}
		return RcOK
	}},
	{"OP_RESERVED1", OpRESERVED1, func(r *R) int { return RcInvalidOpcode }},
	{"OP_RESERVED2", OpRESERVED2, func(r *R) int { return RcInvalidOpcode }},
	{"OP_1ADD", Op1ADD, unOp(func(a *bnum.Int) *bnum.Int { return a.Add(bnum.ONE) })},
	{"OP_1SUB", Op1SUB, unOp(func(a *bnum.Int) *bnum.Int { return a.Sub(bnum.ONE) })},
	{"OP_2MUL", Op2MUL, func(r *R) int { return RcDisabledOpcode }},
	{"OP_2DIV", Op2DIV, func(r *R) int { return RcDisabledOpcode }},
	{"OP_NEGATE", OpNEGATE, unOp(func(a *bnum.Int) *bnum.Int { return a.Neg() })},
	{"OP_ABS", OpABS, unOp(func(a *bnum.Int) *bnum.Int { return a.Abs() })},
	{"OP_NOT", OpNOT, func(r *R) int {
		a, rc := popNum(r)
		if rc != RcOK {
			return rc
		}
		return push1(r, a.Sign() == 0)
	}},
	{"OP_0NOTEQUAL", Op0NOTEQUAL, func(r *R) int {
		a, rc := popNum(r)
		if rc != RcOK {
			return rc
		}
		return push1(r, a.Sign() != 0)
	}},
	{"OP_ADD", OpADD, binOp(func(a, b *bnum.Int) *bnum.Int { return a.Add(b) })},
	{"OP_SUB", OpSUB, binOp(func(a, b *bnum.Int) *bnum.Int { return a.Sub(b) })},
	{"OP_MUL", OpMUL, binOp(func(a, b *bnum.Int) *bnum.Int { return a.Mul(b) })},
	{"OP_DIV", OpDIV, binOp(func(a, b *bnum.Int) *bnum.Int { return a.Quo(b) })},
	{"OP_MOD", OpMOD, binOp(func(a, b *bnum.Int) *bnum.Int { return a.Rem(b) })},
	{"OP_LSHIFT", OpLSHIFT, func(r *R) int {
		n, rc := r.stack.Pop()
		if rc != RcOK {
			return rc
		}
		a, rc := r.stack.Pop()
		if rc != RcOK {
			return rc
		}
		return r.stack.Push(a.Mul(bnum.TWO.Pow(int(n.Int64()))))
	}},
	{"OP_RSHIFT", OpRSHIFT, func(r *R) int {
		n, rc := r.stack.Pop()
		if rc != RcOK {
			return rc
		}
		a, rc := r.stack.Pop()
		if rc != RcOK {
			return rc
		}
		return r.stack.Push(a.Div(bnum.TWO.Pow(int(n.Int64()))))
	}},
	{"OP_BOOLAND", OpBOOLAND, boolCmp(func(a, b *bnum.Int) bool { return a.Sign() != 0 && b.Sign() != 0 })},
	{"OP_BOOLOR", OpBOOLOR, boolCmp(func(a, b *bnum.Int) bool { return a.Sign() != 0 || b.Sign() != 0 })},
	{"OP_NUMEQUAL", OpNUMEQUAL, boolCmp(func(a, b *bnum.Int) bool { return a.Cmp(b) == 0 })},
	{"OP_NUMEQUALVERIFY", OpNUMEQUALVERIFY, func(r *R) int {
		a, b, rc := popTwo(r)
		if rc != RcOK {
			return rc
		}
		if a.Cmp(b) != 0 {
			return RcNumEqualVerifyFailed
		}
		return RcOK
	}},
	{"OP_NUMNOTEQUAL", OpNUMNOTEQUAL, boolCmp(func(a, b *bnum.Int) bool { return a.Cmp(b) != 0 })},
	{"OP_LESSTHAN", OpLESSTHAN, boolCmp(func(a, b *bnum.Int) bool { return a.Cmp(b) < 0 })},
	{"OP_GREATERTHAN", OpGREATERTHAN, boolCmp(func(a, b *bnum.Int) bool { return a.Cmp(b) > 0 })},
	{"OP_LESSTHANOREQUAL", OpLESSTHANOREQUAL, boolCmp(func(a, b *bnum.Int) bool { return a.Cmp(b) <= 0 })},
	{"OP_GREATERTHANOREQUAL", OpGREATERTHANOREQUAL, boolCmp(func(a, b *bnum.Int) bool { return a.Cmp(b) >= 0 })},
	{"OP_MIN", OpMIN, binOp(func(a, b *bnum.Int) *bnum.Int {
		if a.Cmp(b) < 0 {
			return a
		}
		return b
	})},
	{"OP_MAX", OpMAX, binOp(func(a, b *bnum.Int) *bnum.Int {
		if a.Cmp(b) > 0 {
			return a
		}
		return b
	})},
	{"OP_WITHIN", OpWITHIN, func(r *R) int {
		max, rc := r.stack.Pop()
		if rc != RcOK {
			return rc
		}
		min, rc := r.stack.Pop()
		if rc != RcOK {
			return rc
		}
		x, rc := r.stack.Pop()
		if rc != RcOK {
			return rc
		}
		return push1(r, x.Cmp(min) >= 0 && x.Cmp(max) < 0)
	}},
	{"OP_RIPEMD160", OpRIPEMD160, hashOp(bchash.RipeMD160)},
	{"OP_SHA1", OpSHA1, hashOp(bchash.Sha1)},
	{"OP_SHA256", OpSHA256, hashOp(bchash.Sha256)},
	{"OP_HASH160", OpHASH160, hashOp(bchash.Hash160)},
	{"OP_HASH256", OpHASH256, hashOp(bchash.Hash256)},
	{"OP_CODESEPARATOR", OpCODESEPARATOR, func(r *R) int { return RcOK }},
	{"OP_CHECKSIG", OpCHECKSIG, func(r *R) int {
		pk, rc := r.stack.Pop()
		if rc != RcOK {
			return rc
		}
		sig, rc := r.stack.Pop()
		if rc != RcOK {
			return rc
		}
		ok := r.CheckSig(sig.Bytes(), pk.Bytes()) == RcOK
		return push1(r, ok)
	}},
	{"OP_CHECKSIGVERIFY", OpCHECKSIGVERIFY, func(r *R) int {
		pk, rc := r.stack.Pop()
		if rc != RcOK {
			return rc
		}
		sig, rc := r.stack.Pop()
		if rc != RcOK {
			return rc
		}
		return r.CheckSig(sig.Bytes(), pk.Bytes())
	}},
	{"OP_CHECKMULTISIG", OpCHECKMULTISIG, execCheckMultiSig(false)},
	{"OP_CHECKMULTISIGVERIFY", OpCHECKMULTISIGVERIFY, execCheckMultiSig(true)},
	{"OP_NOP1", OpNOP1, func(r *R) int { return RcOK }},
	{"OP_CHECKLOCKTIMEVERIFY", OpCHECKLOCKTIMEVERIFY, func(r *R) int {
		v, rc := r.stack.Peek()
		if rc != RcOK {
			return rc
		}
		if r.tx == nil || uint32(v.Int64()) > r.tx.LockTime() {
			return RcLockTimeFailed
		}
		return RcOK
	}},
	{"OP_CHECKSEQUENCEVERIFY", OpCHECKSEQUENCEVERIFY, func(r *R) int {
		v, rc := r.stack.Peek()
		if rc != RcOK {
			return rc
		}
		if r.tx == nil || uint32(v.Int64()) > r.tx.Sequence() {
			return RcLockTimeFailed
		}
		return RcOK
	}},
	{"OP_NOP4", OpNOP4, func(r *R) int { return RcOK }},
	{"OP_NOP5", OpNOP5, func(r *R) int { return RcOK }},
	{"OP_NOP6", OpNOP6, func(r *R) int { return RcOK }},
	{"OP_NOP7", OpNOP7, func(r *R) int { return RcOK }},
	{"OP_NOP8", OpNOP8, func(r *R) int { return RcOK }},
	{"OP_NOP9", OpNOP9, func(r *R) int { return RcOK }},
	{"OP_NOP10", OpNOP10, func(r *R) int { return RcOK }},
	{"OP_INVALIDOPCODE", OpINVALIDOPCODE, func(r *R) int { return RcInvalidOpcode }},
}

// execIf implements OP_IF (invert=false) and OP_NOTIF (invert=true).
func execIf(invert bool) func(r *R) int {
	return func(r *R) int {
		if !r.fExec() {
			r.pushCond(false)
			return RcOK
		}
		v, rc := r.stack.Pop()
		if rc != RcOK {
			return rc
		}
		cond := v.Sign() != 0
		if invert {
			cond = !cond
		}
		r.pushCond(cond)
		return RcOK
	}
}

// execCheckMultiSig implements OP_CHECKMULTISIG and its VERIFY variant.
func execCheckMultiSig(verify bool) func(r *R) int {
	return func(r *R) int {
		nk, rc := r.stack.Pop()
		if rc != RcOK {
			return rc
		}
		n := int(nk.Int64())
		pks := make([][]byte, n)
		for i := n - 1; i >= 0; i-- {
			v, rc := r.stack.Pop()
			if rc != RcOK {
				return rc
			}
			pks[i] = v.Bytes()
		}
		ns, rc := r.stack.Pop()
		if rc != RcOK {
			return rc
		}
		m := int(ns.Int64())
		sigs := make([][]byte, m)
		for i := m - 1; i >= 0; i-- {
			v, rc := r.stack.Pop()
			if rc != RcOK {
				return rc
			}
			sigs[i] = v.Bytes()
		}
		// off-by-one historical bug: one extra item must be popped
		if _, rc := r.stack.Pop(); rc != RcOK {
			return rc
		}
		ok := r.CheckMultiSig(sigs, pks) == RcOK
		if verify {
			if !ok {
				return RcInvalidSignature
			}
			return RcOK
		}
		return push1(r, ok)
	}
}

var (
	opByValue = make(map[byte]*OpCode, len(OpCodes))
	opByName  = make(map[string]*OpCode, len(OpCodes))
)

func init() {
	for _, oc := range OpCodes {
		opByValue[oc.Value] = oc
		opByName[oc.Name] = oc
	}
}

// GetOpcode looks up an opcode by its byte value.
func GetOpcode(v byte) *OpCode {
	return opByValue[v]
}

// GetOpcodeByName looks up an opcode by its mnemonic.
func GetOpcodeByName(name string) *OpCode {
	return opByName[name]
}
