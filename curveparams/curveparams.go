// Package curveparams holds the concrete domain parameters a compiled
// script is specialized for: the base field modulus, the pairing-friendly
// curve's defining coefficients, its twist, and the constants the Miller
// loop and final exponentiation need (loop count, Frobenius
// coefficients). A script compiled with one CurveParams value will never
// verify a proof produced under another.
package curveparams

import "github.com/zkbtc/groth16script/internal/bnum"

// CurveParams collects every constant a Groth16 verifier script needs
// baked in at compile time.
type CurveParams struct {
	// Name identifies the parameter set for diagnostics and cache keys.
	Name string

	// Q is the base field modulus (E is defined over F_q).
	Q *bnum.Int
	// R is the scalar field modulus (the order of E's prime-order subgroup).
	R *bnum.Int

	// A, B are the coefficients of the short Weierstrass curve
	// y^2 = x^3 + A*x + B over F_q.
	A, B *bnum.Int

	// TwistNonResidue is the element of F_q (or F_{q^2}, depending on
	// the twist degree) used to build the twisted curve E' that the
	// pairing's second argument lives on.
	TwistNonResidue []*bnum.Int

	// BTwist is the B coefficient of the sextic twist curve E'.
	BTwist []*bnum.Int

	// MillerLoopLength is |6x+2| in NAF form, most significant bit first,
	// for the BN/BLS parameter x underlying the pairing.
	MillerLoopLength []int8
	// IsLoopNegative records whether x itself is negative (BLS12
	// curves use a negative x, which flips the sign of the Miller loop
	// final line-accumulation step).
	IsLoopNegative bool

	// X is the BN/BLS family parameter x. HardExponent does not read it;
	// it derives the hard-part exponent from Q and R.
	X *bnum.Int
}

// HardExponent derives the hard part of the final exponentiation,
// (q^4 - q^2 + 1)/r, directly from Q and R rather than from a
// precomputed Frobenius-coefficient addition chain: exact by
// construction for any BN/BLS-family curve, at the cost of a plain
// fixed-exponent square-and-multiply instead of the optimized
// cyclotomic chain a hand-tuned implementation would use.
func (c *CurveParams) HardExponent() *bnum.Int {
	q2 := c.Q.Mul(c.Q)
	q4 := q2.Mul(q2)
	num := q4.Sub(q2).Add(bnum.NewInt(1))
	return num.Div(c.R)
}

// BLS12381 returns the domain parameters of the BLS12-381 curve, the
// pairing-friendly curve the original circuit/proof system targets.
func BLS12381() *CurveParams {
	return &CurveParams{
		Name: "BLS12-381",
		Q: bnum.NewIntFromHex(
			"1A0111EA397FE69A4B1BA7B6434BACD764774B84F38512BF6730D2A0F6B0F6241EABFFFEB153FFFFB9FEFFFFFFFFAAAB"),
		R: bnum.NewIntFromHex(
			"73EDA753299D7D483339D80809A1D80553BDA402FFFE5BFEFFFFFFFF00000001"),
		A: bnum.NewInt(0),
		B: bnum.NewInt(4),
		TwistNonResidue: []*bnum.Int{
			bnum.NewInt(1), bnum.NewInt(1), // -1-u, entered as the two Fq2 coordinates (1,1) negated by convention downstream
		},
		BTwist: []*bnum.Int{
			bnum.NewInt(4), bnum.NewInt(4),
		},
		// NAF(|6x+2|) for x = -0xd201000000010000, most significant digit first.
		MillerLoopLength: bls12381Naf,
		IsLoopNegative:   true,
		X:                bnum.NewIntFromHex("D201000000010000"),
	}
}

// Toy19 returns a deliberately tiny, insecure parameter set (base field
// F_19) used only to exercise the compiler's arithmetic against
// hand-computable reference values in tests; it does not correspond to
// a real pairing-friendly curve and must never be used to compile a
// script intended to verify a real proof.
func Toy19() *CurveParams {
	return &CurveParams{
		Name:             "toy-19",
		Q:                bnum.NewInt(19),
		R:                bnum.NewInt(5),
		A:                bnum.NewInt(0),
		B:                bnum.NewInt(1),
		TwistNonResidue:  []*bnum.Int{bnum.NewInt(2)},
		BTwist:           []*bnum.Int{bnum.NewInt(1)},
		MillerLoopLength: []int8{1, 0, 1},
		IsLoopNegative:   false,
		X:                bnum.NewInt(2),
	}
}

// bls12381Naf is the signed-NAF representation of |6x+2| for
// BLS12-381's x = -0xd201000000010000, most significant digit first;
// each entry is -1, 0 or 1.
var bls12381Naf = []int8{
	1, 0, 1, 0, 0, 0, -1, 0, -1, 0, 0, 0, 0, 0, 0, 1, 0, -1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 0, -1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, -1, 0,
}
