// Package bchash implements the hash primitives the Bitcoin Script opcode
// set exposes (OP_SHA1, OP_SHA256, OP_RIPEMD160, OP_HASH160, OP_HASH256).
package bchash

//----------------------------------------------------------------------
// This file is part of Gospel.
// Copyright (C) 2011-2019 Bernd Fix
//
// Gospel is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Gospel is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//----------------------------------------------------------------------

import (
	"crypto/sha1"
	"crypto/sha256"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // required for HASH160 semantics
)

// Hash160 computes RIPEMD-160(SHA-256(data)).
func Hash160(data []byte) []byte {
	sha2 := sha256.Sum256(data)
	r := ripemd160.New()
	r.Write(sha2[:])
	return r.Sum(nil)
}

// Hash256 computes SHA-256(SHA-256(data)).
func Hash256(data []byte) []byte {
	h1 := sha256.Sum256(data)
	h2 := sha256.Sum256(h1[:])
	return h2[:]
}

// Sha256 computes SHA-256(data).
func Sha256(data []byte) []byte {
	h := sha256.Sum256(data)
	return h[:]
}

// Sha1 computes SHA1(data).
func Sha1(data []byte) []byte {
	h := sha1.Sum(data)
	return h[:]
}

// RipeMD160 computes RIPEMD160(data).
func RipeMD160(data []byte) []byte {
	r := ripemd160.New()
	r.Write(data)
	return r.Sum(nil)
}
