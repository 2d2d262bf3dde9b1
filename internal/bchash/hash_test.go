package bchash

//----------------------------------------------------------------------
// This file is part of Gospel.
// Copyright (C) 2011-2019 Bernd Fix
//
// Gospel is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//----------------------------------------------------------------------

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSha256KnownVector(t *testing.T) {
	got := Sha256([]byte("abc"))
	require.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", hex.EncodeToString(got))
}

func TestSha1KnownVector(t *testing.T) {
	got := Sha1([]byte("abc"))
	require.Equal(t, "a9993e364706816aba3e25717850c26c9cd0d89d", hex.EncodeToString(got))
}

func TestHash160Length(t *testing.T) {
	got := Hash160([]byte("hello"))
	require.Len(t, got, 20)
}

func TestHash256Length(t *testing.T) {
	got := Hash256([]byte("hello"))
	require.Len(t, got, 32)
}

func TestHash256Deterministic(t *testing.T) {
	data := []byte("groth16script")
	require.Equal(t, Hash256(data), Hash256(data))
}

func TestHash256IsDoubleSha256(t *testing.T) {
	data := []byte("groth16script")
	h1 := Sha256(data)
	h2 := Sha256(h1)
	require.Equal(t, h2, Hash256(data))
}

func TestRipeMD160MatchesHash160(t *testing.T) {
	data := []byte("pedersen")
	require.Equal(t, RipeMD160(Sha256(data)), Hash160(data))
}
