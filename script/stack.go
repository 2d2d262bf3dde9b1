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
	"github.com/zkbtc/groth16script/internal/bnum"
)

// Stack represents the LIFO operand stack used while executing a script.
// Elements are kept as bnum.Int; byte strings and booleans are converted
// to and from that representation at the Push/Peek boundary, mirroring
// how Bitcoin Script's own minimally-encoded numbers work.
type Stack struct {
	d []*bnum.Int
}

// NewStack creates a new, empty stack.
func NewStack() *Stack {
	return &Stack{d: make([]*bnum.Int, 0)}
}

// Len returns the number of elements on the stack.
func (s *Stack) Len() int {
	return len(s.d)
}

// Values returns the raw stack content, bottom first.
func (s *Stack) Values() []*bnum.Int {
	return s.d
}

// Push pushes a value onto the stack. Accepted types: bool, int, []byte,
// *bnum.Int; any other type returns RcInvalidStackType.
func (s *Stack) Push(v interface{}) int {
	var i *bnum.Int
	switch x := v.(type) {
	case bool:
		if x {
			i = bnum.NewInt(1)
		} else {
			i = bnum.NewInt(0)
		}
	case int:
		i = bnum.NewInt(int64(x))
	case []byte:
		i = bnum.NewIntFromBytes(x)
	case *bnum.Int:
		i = x
	default:
		return RcInvalidStackType
	}
	s.d = append(s.d, i)
	return RcOK
}

// Peek returns the top element without removing it.
func (s *Stack) Peek() (*bnum.Int, int) {
	return s.PeekAt(0)
}

// PeekAt returns the element at depth i (0 = top) without removing it.
func (s *Stack) PeekAt(i int) (*bnum.Int, int) {
	n := len(s.d)
	if n < i+1 || i < 0 {
		return nil, RcExceedsStack
	}
	return s.d[n-1-i], RcOK
}

// Pop removes and returns the top element.
func (s *Stack) Pop() (*bnum.Int, int) {
	v, rc := s.Peek()
	if rc != RcOK {
		return nil, rc
	}
	s.d = s.d[:len(s.d)-1]
	return v, RcOK
}

// RemoveAt removes and returns the element at depth i (0 = top).
func (s *Stack) RemoveAt(i int) (*bnum.Int, int) {
	n := len(s.d)
	if n < i+1 || i < 0 {
		return nil, RcExceedsStack
	}
	idx := n - 1 - i
	v := s.d[idx]
	s.d = append(s.d[:idx], s.d[idx+1:]...)
	return v, RcOK
}

// Dup duplicates the top n elements, preserving order.
func (s *Stack) Dup(n int) int {
	for i := 0; i < n; i++ {
		v, rc := s.PeekAt(n - 1)
		if rc != RcOK {
			return rc
		}
		if rc := s.Push(v); rc != RcOK {
			return rc
		}
	}
	return RcOK
}

// Compare pops the top two elements and compares them as integers.
func (s *Stack) Compare() (a, b *bnum.Int, cmp int, rc int) {
	b, rc = s.Pop()
	if rc != RcOK {
		return
	}
	a, rc = s.Pop()
	if rc != RcOK {
		return
	}
	cmp = a.Cmp(b)
	return
}
