package ec

import (
	"github.com/zkbtc/groth16script/builder"
	"github.com/zkbtc/groth16script/internal/bnum"
	"github.com/zkbtc/groth16script/script"
	"github.com/zkbtc/groth16script/stackdesc"
	"github.com/zkbtc/groth16script/tower"
)

// TwistPoint is a reference affine point on the sextic twist E', defined
// over Fq2. Infinity is represented by a nil X.
type TwistPoint struct {
	X, Y tower.Fq2Elem
}

// IsInfinity reports whether p is the point at infinity.
func (p TwistPoint) IsInfinity() bool {
	return p.X.C0 == nil
}

// TwistCurve is a compiler for short Weierstrass arithmetic over Fq2:
// y^2 = x^3 + A*x + Btwist, the curve the pairing's second argument
// lives on.
type TwistCurve struct {
	Field *tower.Fq2
	A, B  tower.Fq2Elem
}

// NewTwistCurve creates a twist-curve compiler over the given Fq2 field.
func NewTwistCurve(f *tower.Fq2, a, b tower.Fq2Elem) *TwistCurve {
	return &TwistCurve{Field: f, A: a, B: b}
}

// Gradient computes the off-chain gradient of the line through P and Q,
// or the tangent at P when P == Q.
func (c *TwistCurve) Gradient(p, q TwistPoint) tower.Fq2Elem {
	if p.X.C0.Cmp(q.X.C0) == 0 && p.X.C1.Cmp(q.X.C1) == 0 &&
		p.Y.C0.Cmp(q.Y.C0) == 0 && p.Y.C1.Cmp(q.Y.C1) == 0 {
		return c.TangentGradient(p)
	}
	num := c.Field.Sub(q.Y, p.Y)
	den := c.Field.Sub(q.X, p.X)
	return c.Field.Mul(num, c.Field.Inverse(den))
}

// TangentGradient computes the off-chain gradient of the tangent at P.
func (c *TwistCurve) TangentGradient(p TwistPoint) tower.Fq2Elem {
	three := tower.Fq2Elem{C0: bnum.NewInt(3), C1: bnum.NewInt(0)}
	two := tower.Fq2Elem{C0: bnum.NewInt(2), C1: bnum.NewInt(0)}
	num := c.Field.Add(c.Field.Mul(three, c.Field.Mul(p.X, p.X)), c.A)
	den := c.Field.Mul(two, p.Y)
	return c.Field.Mul(num, c.Field.Inverse(den))
}

// Add evaluates P + Q off-chain.
func (c *TwistCurve) Add(p, q TwistPoint) TwistPoint {
	if p.IsInfinity() {
		return q
	}
	if q.IsInfinity() {
		return p
	}
	if p.X.C0.Cmp(q.X.C0) == 0 && p.X.C1.Cmp(q.X.C1) == 0 {
		sum := c.Field.Add(p.Y, q.Y)
		if sum.C0.Sign() == 0 && sum.C1.Sign() == 0 {
			return TwistPoint{}
		}
	}
	lambda := c.Gradient(p, q)
	x := c.Field.Sub(c.Field.Sub(c.Field.Mul(lambda, lambda), p.X), q.X)
	y := c.Field.Sub(c.Field.Mul(lambda, c.Field.Sub(p.X, x)), p.Y)
	return TwistPoint{X: x, Y: y}
}

// Double evaluates 2P off-chain.
func (c *TwistCurve) Double(p TwistPoint) TwistPoint {
	if p.IsInfinity() {
		return p
	}
	lambda := c.TangentGradient(p)
	x := c.Field.Sub(c.Field.Sub(c.Field.Mul(lambda, lambda), p.X), p.X)
	y := c.Field.Sub(c.Field.Mul(lambda, c.Field.Sub(p.X, x)), p.Y)
	return TwistPoint{X: x, Y: y}
}

// ffe2 is shorthand for an Fq2-valued (extension degree 2) stack
// descriptor at the given depth of its deepest limb.
func ffe2(position int) stackdesc.FiniteFieldElement {
	return stackdesc.MustNewFiniteFieldElement(position, false, 2)
}

// AddVerifyGradientScript computes P_ + Q_ on the twist curve given a
// prover-supplied Fq2 gradient, the Fq2 analogue of
// ec.Curve.AddVerifyGradient. Every operand is read non-destructively
// (via Pick) as many times as the line-addition formula needs it, and
// the five 2-slot originals (lambda, P.X, P.Y, Q.X, Q.Y) are rolled off
// and dropped only once, at the very end, once nothing further needs
// them -- the same "duplicate now, consume once at the close" shape
// tower.Fq6's blockStage uses to chain Fq2 sub-products.
//
// Stack input (shallowest first): .. lambda .. P .. Q
// Stack output: the five original 2-slot values consumed, x(P_+Q_) y(P_+Q_) on top.
func (c *TwistCurve) AddVerifyGradientScript(lambda stackdesc.FiniteFieldElement, p, q stackdesc.EllipticCurvePoint, modulusPos int) *script.Script {
	out := script.NewScript()
	f := c.Field
	L, PX, PY, QX, QY := lambda.Position, p.X.Position, p.Y.Position, q.X.Position, q.Y.Position
	off := 0

	pick := func(orig int) {
		out.AddScript(builder.Pick(orig+off, 2))
		off += 2
	}

	// xDiff = xP_ - xQ_
	pick(PX)
	pick(QX)
	out.AddScript(f.SubScript(ffe2(3), ffe2(1), modulusPos+off))
	off -= 2

	// lambdaXdiff = lambda * xDiff
	pick(L)
	out.AddScript(f.MulScriptConsuming(ffe2(3), ffe2(1), modulusPos+off))
	off -= 2

	// yDiff = yP_ - yQ_
	pick(PY)
	if p.Negate {
		out.AddScript(f.NegateScript(modulusPos + off))
	}
	pick(QY)
	if q.Negate {
		out.AddScript(f.NegateScript(modulusPos + off))
	}
	out.AddScript(f.SubScript(ffe2(3), ffe2(1), modulusPos+off))
	off -= 2

	// check = lambdaXdiff - yDiff, must reduce to Fq2 zero.
	out.AddScript(f.SubScript(ffe2(3), ffe2(1), modulusPos+off))
	off -= 2
	out.Add(script.NewStatement(script.OpFALSE))
	out.Add(script.NewStatement(script.OpEQUALVERIFY))
	out.Add(script.NewStatement(script.OpFALSE))
	out.Add(script.NewStatement(script.OpEQUALVERIFY))
	off -= 2

	// x = lambda^2 - xP - xQ
	pick(L)
	out.AddScript(f.SquareScript(ffe2(1), modulusPos+off))
	pick(PX)
	pick(QX)
	out.AddScript(f.AddScript(ffe2(3), ffe2(1), modulusPos+off))
	off -= 2
	out.AddScript(f.SubScript(ffe2(3), ffe2(1), modulusPos+off))
	off -= 2
	// x now sits at the top (depths 0,1); everything below is untouched.

	// y = lambda*(xP - x) - yP_
	pick(PX)
	out.AddScript(builder.Pick(3, 2)) // duplicate x, leaving the original in place for the final output
	off += 2
	out.AddScript(f.SubScript(ffe2(3), ffe2(1), modulusPos+off))
	off -= 2
	pick(L)
	out.AddScript(f.MulScriptConsuming(ffe2(3), ffe2(1), modulusPos+off))
	off -= 2
	pick(PY)
	if p.Negate {
		out.AddScript(f.NegateScript(modulusPos + off))
	}
	out.AddScript(f.SubScript(ffe2(3), ffe2(1), modulusPos+off))
	off -= 2

	// Stack now: y(0,1) x(2,3) {5 untouched originals below}. Drop the
	// originals, shallowest first so a drop never disturbs the depth of
	// an original still to come.
	for _, orig := range ascending(QY, QX, PY, PX, L) {
		out.AddScript(builder.Roll(orig+off, 2))
		out.Add(script.NewStatement(script.Op2DROP))
		off -= 2
	}

	return out
}

// ascending sorts block positions shallowest (smallest depth) first.
func ascending(positions ...int) []int {
	for i := 1; i < len(positions); i++ {
		for j := i; j > 0 && positions[j] < positions[j-1]; j-- {
			positions[j], positions[j-1] = positions[j-1], positions[j]
		}
	}
	return positions
}

// DoubleVerifyGradientScript computes 2P_ on the twist curve given a
// prover-supplied Fq2 tangent gradient, verifying
// lambda*2yP_ == 3xP^2 + A (A folded away when it is zero).
//
// Stack input: .. lambda .. P
// Stack output: the three original 2-slot values consumed, x(2P_) y(2P_) on top.
func (c *TwistCurve) DoubleVerifyGradientScript(lambda stackdesc.FiniteFieldElement, p stackdesc.EllipticCurvePoint, modulusPos int) *script.Script {
	out := script.NewScript()
	f := c.Field
	L, PX, PY := lambda.Position, p.X.Position, p.Y.Position
	off := 0

	pick := func(orig int) {
		out.AddScript(builder.Pick(orig+off, 2))
		off += 2
	}

	// threeXsq = 3*xP^2 (+A if nonzero)
	pick(PX)
	out.AddScript(f.SquareScript(ffe2(1), modulusPos+off))
	out.Add(script.NewDataStatement(bnum.NewInt(3).Bytes()))
	out.Add(script.NewDataStatement(bnum.NewInt(0).Bytes()))
	off += 2
	out.AddScript(f.MulScriptConsuming(ffe2(3), ffe2(1), modulusPos+off))
	off -= 2
	if c.A.C0.Sign() != 0 || c.A.C1.Sign() != 0 {
		out.Add(script.NewDataStatement(c.A.C0.Bytes()))
		out.Add(script.NewDataStatement(c.A.C1.Bytes()))
		off += 2
		out.AddScript(f.AddScript(ffe2(3), ffe2(1), modulusPos+off))
		off -= 2
	}

	// twoYP = 2*yP_
	pick(PY)
	if p.Negate {
		out.AddScript(f.NegateScript(modulusPos + off))
	}
	out.Add(script.NewDataStatement(bnum.NewInt(2).Bytes()))
	out.Add(script.NewDataStatement(bnum.NewInt(0).Bytes()))
	off += 2
	out.AddScript(f.MulScriptConsuming(ffe2(3), ffe2(1), modulusPos+off))
	off -= 2

	// check = lambda*twoYP - threeXsq, must reduce to Fq2 zero.
	pick(L)
	out.AddScript(f.MulScriptConsuming(ffe2(3), ffe2(1), modulusPos+off))
	off -= 2
	out.AddScript(f.SubScript(ffe2(3), ffe2(1), modulusPos+off))
	off -= 2
	out.Add(script.NewStatement(script.OpFALSE))
	out.Add(script.NewStatement(script.OpEQUALVERIFY))
	out.Add(script.NewStatement(script.OpFALSE))
	out.Add(script.NewStatement(script.OpEQUALVERIFY))
	off -= 2

	// x = lambda^2 - 2xP
	pick(L)
	out.AddScript(f.SquareScript(ffe2(1), modulusPos+off))
	pick(PX)
	out.AddScript(builder.Pick(1, 2))
	off += 2
	out.AddScript(f.AddScript(ffe2(3), ffe2(1), modulusPos+off))
	off -= 2
	out.AddScript(f.SubScript(ffe2(3), ffe2(1), modulusPos+off))
	off -= 2

	// y = lambda*(xP - x) - yP_
	pick(PX)
	out.AddScript(builder.Pick(3, 2))
	off += 2
	out.AddScript(f.SubScript(ffe2(3), ffe2(1), modulusPos+off))
	off -= 2
	pick(L)
	out.AddScript(f.MulScriptConsuming(ffe2(3), ffe2(1), modulusPos+off))
	off -= 2
	pick(PY)
	if p.Negate {
		out.AddScript(f.NegateScript(modulusPos + off))
	}
	out.AddScript(f.SubScript(ffe2(3), ffe2(1), modulusPos+off))
	off -= 2

	for _, orig := range ascending(PY, PX, L) {
		out.AddScript(builder.Roll(orig+off, 2))
		out.Add(script.NewStatement(script.Op2DROP))
		off -= 2
	}

	return out
}
