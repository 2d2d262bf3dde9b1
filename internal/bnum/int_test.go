package bnum

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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIntArithmetic(t *testing.T) {
	a := NewInt(17)
	b := NewInt(5)

	require.Equal(t, int64(22), a.Add(b).Int64())
	require.Equal(t, int64(12), a.Sub(b).Int64())
	require.Equal(t, int64(85), a.Mul(b).Int64())
	require.Equal(t, int64(3), a.Div(b).Int64())
	require.Equal(t, int64(2), a.Mod(b).Int64())
}

func TestIntModAlwaysNonNegative(t *testing.T) {
	a := NewInt(-1)
	m := NewInt(7)
	require.Equal(t, int64(6), a.Mod(m).Int64())
}

func TestIntBytesRoundTrip(t *testing.T) {
	want := []byte{0xde, 0xad, 0xbe, 0xef}
	v := NewIntFromBytes(want)
	require.Equal(t, want, v.Bytes())
}

func TestIntBytesStripsLeadingZeros(t *testing.T) {
	v := NewIntFromBytes([]byte{0x00, 0x00, 0x01})
	require.Equal(t, []byte{0x01}, v.Bytes())
}

func TestIntBitLen(t *testing.T) {
	require.Equal(t, 0, ZERO.BitLen())
	require.Equal(t, 1, ONE.BitLen())
	require.Equal(t, 32, NewInt(0xFFFFFFFF).BitLen())
	require.Equal(t, 33, NewInt(0x100000000).BitLen())
}

func TestIntEquals(t *testing.T) {
	require.True(t, NewInt(42).Equals(NewInt(42)))
	require.False(t, NewInt(42).Equals(NewInt(43)))
}

func TestIntModInverse(t *testing.T) {
	m := NewInt(11)
	a := NewInt(3)
	inv := a.ModInverse(m)
	require.Equal(t, int64(1), a.Mul(inv).Mod(m).Int64())
}

func TestIntFromHex(t *testing.T) {
	v := NewIntFromHex("ff")
	require.Equal(t, int64(255), v.Int64())
}
