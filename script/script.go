package script

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
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/zkbtc/groth16script/internal/bnum"
)

// Statement is a single script statement: either an opcode with no
// operand, or a data push carrying its own length-prefix opcode.
type Statement struct {
	Opcode byte
	Data   []byte
}

// NewStatement creates a statement holding a bare opcode.
func NewStatement(op byte) *Statement {
	return &Statement{Opcode: op}
}

// NewDataStatement creates a data-push statement, choosing the minimal
// push opcode (direct push, OP_PUSHDATA1/2/4) for the payload length.
func NewDataStatement(data []byte) *Statement {
	var op byte
	ld := len(data)
	switch {
	case ld == 0:
		return &Statement{Opcode: OpFALSE}
	case ld < 76:
		op = byte(ld)
	case ld < 256:
		op = OpPUSHDATA1
	case ld < 65536:
		op = OpPUSHDATA2
	default:
		op = OpPUSHDATA4
	}
	return &Statement{Opcode: op, Data: data}
}

// IsPush reports whether the statement is a data-push statement.
func (s *Statement) IsPush() bool {
	return s.Opcode <= OpPUSHDATA4
}

// String renders a statement in Script source notation: "#N" for short
// numeric pushes, hex for longer data, or the opcode mnemonic.
func (s *Statement) String() string {
	if s.Data != nil {
		if len(s.Data) < 5 {
			return "#" + bnum.NewIntFromBytes(s.Data).String()
		}
		return hex.EncodeToString(s.Data)
	}
	if oc := GetOpcode(s.Opcode); oc != nil {
		return oc.Name
	}
	return fmt.Sprintf("0x%02x", s.Opcode)
}

// Script is an ordered sequence of statements.
type Script struct {
	Stmts []*Statement
}

// NewScript creates an empty script.
func NewScript() *Script {
	return &Script{Stmts: make([]*Statement, 0)}
}

// Add appends a statement to the script.
func (s *Script) Add(stmt *Statement) *Script {
	s.Stmts = append(s.Stmts, stmt)
	return s
}

// AddScript appends all statements of another script (splicing two
// compiled fragments together, as builders do when composing layers).
func (s *Script) AddScript(other *Script) *Script {
	s.Stmts = append(s.Stmts, other.Stmts...)
	return s
}

// Len returns the number of statements in the script.
func (s *Script) Len() int {
	return len(s.Stmts)
}

// Bytes returns the flat binary (consensus) representation of the script.
func (s *Script) Bytes() []byte {
	bin := make([]byte, 0)
	for _, stmt := range s.Stmts {
		bin = append(bin, stmt.Opcode)
		if stmt.Data != nil {
			ld := uint(len(stmt.Data))
			switch stmt.Opcode {
			case OpPUSHDATA1:
				bin = append(bin, byte(ld))
			case OpPUSHDATA2:
				var b [2]byte
				binary.LittleEndian.PutUint16(b[:], uint16(ld))
				bin = append(bin, b[:]...)
			case OpPUSHDATA4:
				var b [4]byte
				binary.LittleEndian.PutUint32(b[:], uint32(ld))
				bin = append(bin, b[:]...)
			}
			bin = append(bin, stmt.Data...)
		}
	}
	return bin
}

// GetTemplate returns the opcode-only skeleton of a script, used to
// recognize structurally equivalent scripts that differ only in pushed
// data (e.g. the same locking script compiled for two different curves).
func (s *Script) GetTemplate() []byte {
	tpl := make([]byte, 0, len(s.Stmts))
	for _, stmt := range s.Stmts {
		tpl = append(tpl, stmt.Opcode)
	}
	return tpl
}

// Decompile renders the script back into Script source notation.
func (s *Script) Decompile() string {
	parts := make([]string, 0, len(s.Stmts))
	for _, stmt := range s.Stmts {
		parts = append(parts, stmt.String())
	}
	return strings.Join(parts, " ")
}

// ParseBin dissects a binary script into its sequence of statements.
func ParseBin(code []byte) (*Script, int) {
	scr := NewScript()
	pos, length := 0, len(code)
	getData := func(s *Statement, lenBytes int) int {
		if pos+1+lenBytes > length {
			return RcScriptTooLarge
		}
		b := code[pos+1 : pos+1+lenBytes]
		var n int
		switch lenBytes {
		case 1:
			n = int(b[0])
		case 2:
			n = int(binary.LittleEndian.Uint16(b))
		case 4:
			n = int(binary.LittleEndian.Uint32(b))
		}
		start := pos + 1 + lenBytes
		if start+n > length {
			return RcScriptTooLarge
		}
		s.Data = make([]byte, n)
		copy(s.Data, code[start:start+n])
		pos = start + n
		return RcOK
	}
	for pos < length {
		op := code[pos]
		s := NewStatement(op)
		switch {
		case op > 0 && op < OpPUSHDATA1:
			n := int(op)
			if pos+1+n > length {
				return scr, RcScriptTooLarge
			}
			s.Data = make([]byte, n)
			copy(s.Data, code[pos+1:pos+1+n])
			pos += 1 + n
		case op == OpPUSHDATA1:
			if rc := getData(s, 1); rc != RcOK {
				return scr, rc
			}
		case op == OpPUSHDATA2:
			if rc := getData(s, 2); rc != RcOK {
				return scr, rc
			}
		case op == OpPUSHDATA4:
			if rc := getData(s, 4); rc != RcOK {
				return scr, rc
			}
		default:
			pos++
		}
		scr.Stmts = append(scr.Stmts, s)
	}
	return scr, RcOK
}

// Parse dissects a hex-encoded binary script into its statements.
func Parse(hexScript string) (*Script, int) {
	code, err := hex.DecodeString(hexScript)
	if err != nil {
		return nil, RcInvalidStackType
	}
	return ParseBin(code)
}

// Compile assembles a whitespace-separated Script source string (opcode
// mnemonics, "#N" numeric literals, or bare hex data) into a Script.
func Compile(src string) (*Script, error) {
	scr := NewScript()
	for _, tok := range strings.Fields(src) {
		switch {
		case strings.HasPrefix(tok, "OP_"):
			oc := GetOpcodeByName(tok)
			if oc == nil {
				return scr, fmt.Errorf("script: unknown opcode %q", tok)
			}
			scr.Add(NewStatement(oc.Value))
		case strings.HasPrefix(tok, "#"):
			v := bnum.NewIntFromString(tok[1:])
			scr.Add(NewDataStatement(v.Bytes()))
		default:
			b, err := hex.DecodeString(tok)
			if err != nil {
				return scr, fmt.Errorf("script: invalid data token %q: %w", tok, err)
			}
			scr.Add(NewDataStatement(b))
		}
	}
	return scr, nil
}
