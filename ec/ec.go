// Package ec compiles elliptic-curve arithmetic over the base field Fq
// for the pairing-friendly curve (and, via the same primitives, over
// its sextic twist defined over Fq2). Every addition and doubling takes
// the line's gradient as a prover-supplied witness and verifies it
// algebraically rather than computing a field inverse on-chain, the
// same trade every Script-based elliptic-curve gadget makes since
// OP_DIV on a stack machine has no cheap way to fail closed on a
// non-invertible input.
package ec

import (
	"github.com/zkbtc/groth16script/builder"
	"github.com/zkbtc/groth16script/field"
	"github.com/zkbtc/groth16script/internal/bnum"
	"github.com/zkbtc/groth16script/script"
	"github.com/zkbtc/groth16script/stackdesc"
)

// Point is a reference (off-chain) affine point, used by tests and by
// unlocking-key builders to compute expected witnesses. Infinity is
// represented by a nil X.
type Point struct {
	X, Y *bnum.Int
}

// IsInfinity reports whether p is the point at infinity.
func (p Point) IsInfinity() bool {
	return p.X == nil
}

// Curve is a compiler for short Weierstrass curve arithmetic
// y^2 = x^3 + A*x + B over a fixed base field.
type Curve struct {
	Field *field.Fq
	A, B  *bnum.Int
}

// NewCurve creates a curve compiler over the given base field.
func NewCurve(f *field.Fq, a, b *bnum.Int) *Curve {
	return &Curve{Field: f, A: a, B: b}
}

// Gradient computes the off-chain gradient lambda of the line through
// P and Q (P != Q), or the tangent at P when P == Q, the witness every
// on-chain addition/doubling fragment expects to find already sitting
// on the stack.
func (c *Curve) Gradient(p, q Point) *bnum.Int {
	if p.X.Cmp(q.X) == 0 && p.Y.Cmp(q.Y) == 0 {
		return c.TangentGradient(p)
	}
	num := c.Field.Eval(q.Y.Sub(p.Y))
	den := c.Field.Eval(q.X.Sub(p.X))
	return c.Field.Eval(num.Mul(c.Field.Inverse(den)))
}

// TangentGradient computes the off-chain gradient of the tangent line
// at P, used for doubling.
func (c *Curve) TangentGradient(p Point) *bnum.Int {
	num := c.Field.Eval(p.X.Mul(p.X).Mul(bnum.NewInt(3)).Add(c.A))
	den := c.Field.Eval(p.Y.Mul(bnum.NewInt(2)))
	return c.Field.Eval(num.Mul(c.Field.Inverse(den)))
}

// Add evaluates P + Q off-chain, for use by tests and unlocking-key
// builders. Returns the point at infinity when P == -Q.
func (c *Curve) Add(p, q Point) Point {
	if p.IsInfinity() {
		return q
	}
	if q.IsInfinity() {
		return p
	}
	if p.X.Cmp(q.X) == 0 && c.Field.Eval(p.Y.Add(q.Y)).Sign() == 0 {
		return Point{}
	}
	lambda := c.Gradient(p, q)
	x := c.Field.Eval(lambda.Mul(lambda).Sub(p.X).Sub(q.X))
	y := c.Field.Eval(lambda.Mul(c.Field.Eval(p.X.Sub(x))).Sub(p.Y))
	return Point{X: x, Y: y}
}

// Double evaluates 2P off-chain.
func (c *Curve) Double(p Point) Point {
	if p.IsInfinity() {
		return p
	}
	lambda := c.TangentGradient(p)
	x := c.Field.Eval(lambda.Mul(lambda).Sub(p.X).Sub(p.X))
	y := c.Field.Eval(lambda.Mul(c.Field.Eval(p.X.Sub(x))).Sub(p.Y))
	return Point{X: x, Y: y}
}

// dropOriginals removes the listed single-slot originals once a
// fragment is done with them: positions are entry depths, extra the
// number of new items currently above the entry layout. Removing
// shallowest-first keeps the arithmetic simple -- each removal only
// shifts positions that were deeper than it.
func dropOriginals(out *script.Script, positions []int, extra int) {
	sorted := append([]int{}, positions...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	for i, pos := range sorted {
		out.AddScript(builder.Roll(pos+extra-i, 1))
		out.Add(script.NewStatement(script.OpDROP))
	}
}

// AddVerifyGradient emits a script that computes P_ + Q_ given a
// prover-supplied gradient, verifying that the gradient is genuinely
// the slope of the line through P_ and Q_ before trusting it.
// P_ = -P if p.Negate else P, and likewise for Q_.
//
// Stack input: lambda, P and Q at their descriptor positions, in any
// non-overlapping arrangement.
// Stack output: the five original slots consumed, x(P_+Q_) y(P_+Q_) on
// top (y shallowest).
//
// Every operand is read by Pick while the checks and result formulas
// run, and the originals are rolled off in one pass at the end;
// modulusPos is the depth of the field modulus at fragment entry.
func (c *Curve) AddVerifyGradient(lambda stackdesc.Number, p, q stackdesc.EllipticCurvePoint, modulusPos int) *script.Script {
	out := script.NewScript()
	off := 0
	pick := func(orig int) {
		out.AddScript(builder.Pick(orig+off, 1))
		off++
	}
	op := func(opcode byte) { out.Add(script.NewStatement(opcode)) }
	binop := func(opcode byte) {
		op(opcode)
		off--
	}
	negIf := func(cond bool) {
		if cond {
			op(script.OpNEGATE)
		}
	}

	// Verify lambda*(xP - xQ) == yP_ - yQ_ (coordinate negation only
	// ever touches y, so the x difference needs no sign folding).
	pick(lambda.Position)
	pick(p.X.Position)
	pick(q.X.Position)
	binop(script.OpSUB) // xP - xQ
	binop(script.OpMUL) // lambda*(xP - xQ)
	pick(p.Y.Position)
	negIf(p.Negate)
	pick(q.Y.Position)
	negIf(q.Negate)
	binop(script.OpSUB) // yP_ - yQ_
	binop(script.OpSUB) // must reduce to 0
	out.AddScript(c.Field.CleanReduceTop(modulusPos + off))
	op(script.OpFALSE)
	op(script.OpEQUALVERIFY)
	off--

	// x(P_+Q_) = lambda^2 - xP - xQ
	pick(lambda.Position)
	op(script.OpDUP)
	off++
	binop(script.OpMUL)
	pick(p.X.Position)
	binop(script.OpSUB)
	pick(q.X.Position)
	binop(script.OpSUB)
	out.AddScript(c.Field.CleanReduceTop(modulusPos + off))

	// y(P_+Q_) = lambda*(xP - x) - yP_
	pick(p.X.Position)
	out.AddScript(builder.Pick(1, 1)) // fresh copy of x
	off++
	binop(script.OpSUB) // xP - x
	pick(lambda.Position)
	binop(script.OpMUL)
	pick(p.Y.Position)
	negIf(p.Negate)
	binop(script.OpSUB)
	out.AddScript(c.Field.CleanReduceTop(modulusPos + off))

	dropOriginals(out, []int{lambda.Position, p.X.Position, p.Y.Position, q.X.Position, q.Y.Position}, off)
	return out
}

// DoubleVerifyGradient emits a script computing 2P_ given a
// prover-supplied tangent gradient, verifying
// lambda*2yP_ == 3xP^2 + A (folding CURVE_A == 0 away when applicable).
//
// Stack input: lambda and P at their descriptor positions.
// Stack output: the three original slots consumed, x(2P_) y(2P_) on top.
func (c *Curve) DoubleVerifyGradient(lambda stackdesc.Number, p stackdesc.EllipticCurvePoint, modulusPos int) *script.Script {
	out := script.NewScript()
	off := 0
	pick := func(orig int) {
		out.AddScript(builder.Pick(orig+off, 1))
		off++
	}
	op := func(opcode byte) { out.Add(script.NewStatement(opcode)) }
	binop := func(opcode byte) {
		op(opcode)
		off--
	}
	pushConst := func(v *bnum.Int) {
		out.Add(script.NewDataStatement(v.Bytes()))
		off++
	}
	negIf := func(cond bool) {
		if cond {
			op(script.OpNEGATE)
		}
	}

	// Verify 3xP^2 + A - lambda*2yP_ == 0.
	pick(p.X.Position)
	op(script.OpDUP)
	off++
	binop(script.OpMUL) // xP^2
	pushConst(bnum.NewInt(3))
	binop(script.OpMUL) // 3xP^2
	if c.A.Sign() != 0 {
		pushConst(c.A)
		binop(script.OpADD)
	}
	pick(p.Y.Position)
	negIf(p.Negate)
	pushConst(bnum.NewInt(2))
	binop(script.OpMUL) // 2yP_
	pick(lambda.Position)
	binop(script.OpMUL) // lambda*2yP_
	binop(script.OpSUB) // must reduce to 0
	out.AddScript(c.Field.CleanReduceTop(modulusPos + off))
	op(script.OpFALSE)
	op(script.OpEQUALVERIFY)
	off--

	// x(2P_) = lambda^2 - 2xP
	pick(lambda.Position)
	op(script.OpDUP)
	off++
	binop(script.OpMUL)
	pick(p.X.Position)
	pushConst(bnum.NewInt(2))
	binop(script.OpMUL)
	binop(script.OpSUB)
	out.AddScript(c.Field.CleanReduceTop(modulusPos + off))

	// y(2P_) = lambda*(xP - x) - yP_
	pick(p.X.Position)
	out.AddScript(builder.Pick(1, 1)) // fresh copy of x
	off++
	binop(script.OpSUB)
	pick(lambda.Position)
	binop(script.OpMUL)
	pick(p.Y.Position)
	negIf(p.Negate)
	binop(script.OpSUB)
	out.AddScript(c.Field.CleanReduceTop(modulusPos + off))

	dropOriginals(out, []int{lambda.Position, p.X.Position, p.Y.Position}, off)
	return out
}

// InfinitySentinel returns the all-zero byte literal a locking script
// compares a coordinate against to recognize the point at infinity (§3.4
// of the stack-element layout): not the numeric zero of a legitimate
// curve point, but a fixed-length all-zero string.
func InfinitySentinel(extensionDegree int) []byte {
	return make([]byte, extensionDegree)
}

// isInfinityCheck emits a fragment that leaves a boolean on top
// reporting whether the point p (its coordinates read non-destructively)
// equals the infinity sentinel. Every coordinate this compiler emits is
// kept in its canonical non-negative representative [0, q), so a point
// is infinity exactly when both its coordinates are the integer zero;
// testing x+y==0 therefore suffices without reconstructing the raw byte
// sentinel coordinate-by-coordinate.
func (c *Curve) isInfinityCheck(p stackdesc.EllipticCurvePoint) *script.Script {
	out := builder.Pick(p.X.Position, 1)
	out.AddScript(builder.Pick(p.Y.Position+1, 1))
	out.Add(script.NewStatement(script.OpADD))
	out.Add(script.NewStatement(script.OpNOT))
	return out
}

// PointAdditionWithUnknownPoints emits P_+Q_ when either operand may be
// the point at infinity, unlike AddVerifyGradient which assumes both
// operands are finite and distinct. lambda is only required to be a
// genuine gradient on the branch that actually needs one; the prover
// still supplies it unconditionally since the compiled script has no way
// to ask for a witness conditionally.
//
// The fragment is compiled for the canonical summation layout every
// caller in this repository uses: lambda at depth 4, P at (3,2), Q at
// (1,0). Every branch consumes those five slots and leaves the result's
// x and y on top, so the surrounding composition sees one uniform net
// effect regardless of which branch ran.
func (c *Curve) PointAdditionWithUnknownPoints(lambda stackdesc.Number, p, q stackdesc.EllipticCurvePoint, modulusPos int) *script.Script {
	out := script.NewScript()
	op := func(opcode byte) { out.Add(script.NewStatement(opcode)) }
	// negate the single field element on top of the stack, the modulus
	// sitting at depth d
	negateTop := func(d int) {
		out.AddScript(builder.Pick(d, 1))
		op(script.OpSWAP)
		op(script.OpSUB)
		out.AddScript(c.Field.CleanReduceTop(d))
	}

	out.AddScript(c.isInfinityCheck(p))
	op(script.OpIF)
	{
		// P_ is infinity: drop lambda and P; Q slides to the top and is
		// the result (negated in place when q.Negate asks for -Q).
		out.AddScript(builder.Roll(lambda.Position, 1))
		op(script.OpDROP)
		out.AddScript(builder.Roll(p.X.Position, 1))
		op(script.OpDROP)
		out.AddScript(builder.Roll(p.Y.Position, 1))
		op(script.OpDROP)
		if q.Negate {
			negateTop(modulusPos - 3)
		}
	}
	op(script.OpELSE)
	out.AddScript(c.isInfinityCheck(q))
	op(script.OpIF)
	{
		// Q_ is infinity: drop Q and lambda, leaving P_ on top.
		op(script.OpDROP)
		op(script.OpDROP)
		out.AddScript(builder.Roll(lambda.Position-2, 1))
		op(script.OpDROP)
		if p.Negate {
			negateTop(modulusPos - 3)
		}
	}
	op(script.OpELSE)
	{
		// Both finite: P_ == -Q_ iff xP == xQ and yP_ + yQ_ == 0.
		out.AddScript(builder.Pick(p.X.Position, 1))
		out.AddScript(builder.Pick(q.X.Position+1, 1))
		op(script.OpNUMEQUAL)
		out.AddScript(builder.Pick(p.Y.Position+1, 1))
		if p.Negate {
			op(script.OpNEGATE)
		}
		out.AddScript(builder.Pick(q.Y.Position+2, 1))
		if q.Negate {
			op(script.OpNEGATE)
		}
		op(script.OpADD)
		// the signed y sum is 0 mod q iff it is 0 or has magnitude
		// exactly q (the Negate flags make it a plain integer sum of
		// values in (-q, q))
		op(script.OpABS)
		op(script.OpDUP)
		op(script.OpNOT)
		op(script.OpSWAP)
		out.AddScript(builder.Pick(modulusPos+3, 1))
		op(script.OpNUMEQUAL)
		op(script.OpBOOLOR)
		op(script.OpBOOLAND)
		op(script.OpIF)
		{
			for i := 0; i < 5; i++ {
				op(script.OpDROP)
			}
			out.Add(script.NewDataStatement(InfinitySentinel(1)))
			out.Add(script.NewDataStatement(InfinitySentinel(1)))
		}
		op(script.OpELSE)
		out.AddScript(c.AddVerifyGradient(lambda, p, q, modulusPos))
		op(script.OpENDIF)
	}
	op(script.OpENDIF)
	op(script.OpENDIF)
	return out
}
