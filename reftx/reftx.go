// Package reftx compiles RefTx: a Groth16 verification locking script
// that additionally binds the spending transaction's own sighash into
// the circuit's public inputs, so the proof being checked is a proof
// about *this* transaction rather than an unrelated one. The binding is
// PUSHTX: a synthetic ECDSA signature over the secp256k1 generator whose
// s-value is an algebraic function of the sighash, checked with an
// ordinary OP_CHECKSIG against the generator's own public key -- nobody
// holds the generator's private key, but nobody needs to, since s is
// derived rather than signed.
package reftx

import (
	"fmt"

	"github.com/zkbtc/groth16script/builder"
	"github.com/zkbtc/groth16script/ec"
	"github.com/zkbtc/groth16script/groth16"
	"github.com/zkbtc/groth16script/internal/bchash"
	"github.com/zkbtc/groth16script/internal/bnum"
	"github.com/zkbtc/groth16script/internal/secp"
	"github.com/zkbtc/groth16script/scalarmul"
	"github.com/zkbtc/groth16script/script"
)

// SighashFlag is the one-byte SIGHASH type appended to a synthesized
// PUSHTX signature.
type SighashFlag byte

// Common SIGHASH flag values; ALL|FORKID is the standard BCH/BSV-style
// default this package assumes unless told otherwise.
const (
	SighashAll          SighashFlag = 0x01
	SighashNone         SighashFlag = 0x02
	SighashSingle       SighashFlag = 0x03
	SighashAnyoneCanPay SighashFlag = 0x80
	SighashForkID       SighashFlag = 0x40
)

// chunkBytes is the byte width RefTx splits the 32-byte sighash
// preimage digest into before feeding each chunk to the Groth16
// verifier as an ordinary unsigned public input. Public inputs in this
// package's Groth16 layer are plain int64 scalars, so chunkBytes must
// be small enough that every chunk's unsigned value fits in an int64:
// 4 bytes (max 2^32-1) comfortably does, leaving 8 chunks to cover the
// 32-byte digest.
const chunkBytes = 4

// numChunks is the number of sighash chunks RefTx's public-input
// encoding uses.
const numChunks = 32 / chunkBytes

// MaxChunkValue is the max-multiplier bound every sighash-chunk public
// input must be declared with: the largest value a chunk can take.
const MaxChunkValue = int64(1)<<(8*chunkBytes) - 1

// RefTx compiles a Groth16 verifier whose first numChunks public inputs
// are reserved for the spending transaction's own sighash preimage
// digest, recovered on-chain from the same MSM terms that fold them
// into the pairing check via the extractable unrolled-multiplication
// variant, then concatenated and handed to PushTxLockingScript.
//
// Verifier.VK.GammaABC[1:numChunks+1] must be the fixed bases for the
// numChunks sighash-chunk terms, in the order SighashChunks produces
// them (most-significant chunk first); GammaABC[numChunks+1:] are the
// circuit's ordinary public inputs. The chunk terms' MaxMultipliers
// entries must be MaxChunkValue so every chunk fits its term.
type RefTx struct {
	Verifier *groth16.Verifier
	Sighash  SighashFlag
}

// NewRefTx wraps an already-constructed Groth16 verifier. The caller is
// responsible for building v with the sighash-chunk terms prepended to
// its ordinary public inputs (see package doc), since only the circuit
// author knows which gamma_abc entries those are.
func NewRefTx(v *groth16.Verifier, sighash SighashFlag) *RefTx {
	return &RefTx{Verifier: v, Sighash: sighash}
}

// SighashChunks splits a 32-byte digest into numChunks unsigned
// big-endian integers, most-significant chunk first, the same order
// LockingScript's extraction re-concatenates them in.
func SighashChunks(digest []byte) ([]int64, error) {
	if len(digest) != 32 {
		return nil, fmt.Errorf("reftx: sighash digest must be 32 bytes, got %d", len(digest))
	}
	chunks := make([]int64, numChunks)
	for i := 0; i < numChunks; i++ {
		chunks[i] = bnum.NewIntFromBytes(digest[i*chunkBytes : (i+1)*chunkBytes]).Int64()
	}
	return chunks, nil
}

// LockingScript compiles the full RefTx output: the ordinary Groth16
// verification with its leading MSM terms instrumented to also recover
// the sighash chunks onto the altstack, then PUSHTX over their
// concatenation. modulusPos is the depth of the field modulus, exactly
// as groth16.Verifier.LockingScript expects.
func (r *RefTx) LockingScript(modulusPos int) *script.Script {
	out := script.NewScript()
	out.AddScript(r.groth16LockingScriptWithExtraction(modulusPos))
	out.Add(script.NewStatement(script.OpVERIFY))

	// Altstack, bottom to top: the constant term's accumulator (always
	// 1, never read), then chunk_0 (most significant) .. chunk_{N-1}.
	// Draining lands the constant on top of the main stack with chunk_0
	// directly beneath it; dropping the constant leaves chunk_0 .. on
	// top in most-significant-first order.
	for i := 0; i < numChunks+1; i++ {
		out.Add(script.NewStatement(script.OpFROMALTSTACK))
	}
	out.Add(script.NewStatement(script.OpDROP))

	// Fold left to right into chunk_0 || .. || chunk_{N-1}. A numeric
	// stack item only remembers its minimal encoding, so each step is
	// acc*2^(8*chunkBytes) + chunk_i rather than a byte concatenation.
	out.AddScript(builder.PushNumber(chunkBytes))
	out.Add(script.NewStatement(script.OpNUM2BIN))
	for i := 1; i < numChunks; i++ {
		out.AddScript(builder.PushNumber(int64(1) << (8 * chunkBytes)))
		out.Add(script.NewStatement(script.OpMUL))
		out.Add(script.NewStatement(script.OpADD))
	}

	out.AddScript(PushTxLockingScript(r.Sighash))
	return out
}

// groth16LockingScriptWithExtraction is groth16.Verifier.LockingScript
// with the MSM stage swapped for the extractable variant: the constant
// scalar-1 term and the numChunks sighash-chunk terms that follow it
// leave their recovered values on the altstack, and the pairing stages
// run unchanged via the Verifier's PairingStages seam.
func (r *RefTx) groth16LockingScriptWithExtraction(modulusPos int) *script.Script {
	v := r.Verifier
	out := script.NewScript()
	out.AddScript(v.Pairing.Base.Field.VerifyModulus(modulusPos))

	bases := append([]ec.Point{v.VK.GammaABC[0]}, v.VK.GammaABC[1:]...)
	bounds := append([]int64{1}, v.MaxMultipliers...)
	msm := scalarmul.NewMSMFixedBases(v.Pairing.Base, bounds)
	out.AddScript(msm.LockingScriptExtractable(bases, numChunks+1, modulusPos))

	out.AddScript(v.PairingStages(modulusPos - msm.WitnessSlots() + 2))
	return out
}

// PushTxLockingScript emits the PUSHTX construction: it synthesizes an
// ECDSA signature (Gx, s) over the secp256k1 generator whose message is
// the 32-byte sighash preimage digest on top of the stack,
//
//	s = (hash256(preimage) + Gx) mod N
//
// canonicalized to low-S, DER-encoded with a dynamically computed
// minimal integer encoding for s (including the sign-padding byte when
// s's top bit is set), and checked via OP_CHECKSIGVERIFY against the
// generator's own compressed public key. The signature verifies exactly
// when the interpreter's own sighash for the spending transaction
// equals hash256(preimage), i.e. when the preimage the prover committed
// into the proof's public inputs describes this very transaction.
//
// Stack in:  .. preimage(32 bytes)
// Stack out: .. (consumed; the script aborts unless the signature holds)
func PushTxLockingScript(flag SighashFlag) *script.Script {
	out := script.NewScript()
	op := func(opcode byte) { out.Add(script.NewStatement(opcode)) }
	c := secp.GetCurve()

	// s = (hash256(preimage) + Gx) mod N, low-S form
	op(script.OpHASH256)
	op(script.OpBIN2NUM)
	out.Add(script.NewDataStatement(c.Gx.Bytes()))
	op(script.OpADD)
	out.Add(script.NewDataStatement(c.N.Bytes()))
	op(script.OpMOD)
	op(script.OpDUP)
	out.Add(script.NewDataStatement(secp.HalfOrder().Bytes()))
	op(script.OpGREATERTHAN)
	op(script.OpIF)
	out.Add(script.NewDataStatement(c.N.Bytes()))
	op(script.OpSWAP)
	op(script.OpSUB)
	op(script.OpENDIF)

	// DER INTEGER prefix for s: 0x02 <len> [0x00], the pad byte folded
	// into the prefix constant so no stack item ever starts with a zero
	// byte (a numeric stack machine cannot hold one).
	op(script.OpSIZE)
	op(script.OpDUP)
	out.AddScript(builder.PushNumber(8))
	op(script.OpMUL)
	op(script.Op1SUB)
	op(script.OpTRUE)
	op(script.OpSWAP)
	op(script.OpLSHIFT)
	out.AddScript(builder.Pick(2, 1))
	op(script.OpSWAP)
	op(script.OpGREATERTHANOREQUAL)
	op(script.OpIF)
	out.AddScript(builder.PushNumber(256))
	op(script.OpMUL)
	out.AddScript(builder.PushNumber(131328)) // 0x02 0x01 0x00, shifted for the longer length
	op(script.OpADD)
	op(script.OpELSE)
	out.AddScript(builder.PushNumber(512)) // 0x02 0x00
	op(script.OpADD)
	op(script.OpENDIF)
	op(script.OpSWAP)
	op(script.OpCAT)

	// body = DER(Gx) || DER(s); Gx's top byte is below 0x80, so its
	// encoding is the fixed 34-byte constant
	rPart := append([]byte{0x02, 0x20}, padTo32(c.Gx.Bytes())...)
	out.Add(script.NewDataStatement(rPart))
	op(script.OpSWAP)
	op(script.OpCAT)

	// SEQUENCE header with the dynamic body length, then the sighash
	// flag byte
	op(script.OpSIZE)
	out.AddScript(builder.PushNumber(12288)) // 0x30 0x00
	op(script.OpADD)
	op(script.OpSWAP)
	op(script.OpCAT)
	out.Add(script.NewDataStatement([]byte{byte(flag)}))
	op(script.OpCAT)

	out.Add(script.NewDataStatement(compressedGeneratorPubkey()))
	op(script.OpCODESEPARATOR)
	op(script.OpCHECKSIGVERIFY)
	return out
}

// compressedGeneratorPubkey returns the 33-byte SEC1-compressed public
// key of the secp256k1 generator, the key PUSHTX's synthesized
// signature is checked against.
func compressedGeneratorPubkey() []byte {
	g := secp.GetBasePoint()
	prefix := byte(0x02)
	if g.Y().Bit(0) == 1 {
		prefix = 0x03
	}
	return append([]byte{prefix}, padTo32(g.X().Bytes())...)
}

func padTo32(b []byte) []byte {
	if len(b) >= 32 {
		return b
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

// BuildPushTxSignature computes, off-chain, the exact (r,s) pair
// PushTxLockingScript's on-chain arithmetic reproduces for a given
// preimage digest, for tests and for callers inspecting what the
// emitted script will accept.
func BuildPushTxSignature(preimage []byte) *secp.Signature {
	c := secp.GetCurve()
	h := bchash.Hash256(preimage)
	e := bnum.NewIntFromBytes(h)
	s := e.Add(c.Gx).Mod(c.N)
	sig := &secp.Signature{R: c.Gx, S: s}
	sig.Canonicalize()
	return sig
}
