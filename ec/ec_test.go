package ec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zkbtc/groth16script/builder"
	"github.com/zkbtc/groth16script/field"
	"github.com/zkbtc/groth16script/internal/bnum"
	"github.com/zkbtc/groth16script/internal/secp"
	"github.com/zkbtc/groth16script/script"
	"github.com/zkbtc/groth16script/stackdesc"
)

func run(t *testing.T, scr *script.Script) *script.Stack {
	t.Helper()
	scr.Add(script.NewStatement(script.OpTRUE))
	stack := script.NewStack()
	rc := script.ExecScript(scr, stack, nil)
	require.Equal(t, script.RcOK, rc, script.RcString[rc])
	top, rc := stack.Pop()
	require.Equal(t, script.RcOK, rc)
	require.Equal(t, int64(1), top.Int64())
	return stack
}

func mustFail(t *testing.T, scr *script.Script) {
	t.Helper()
	scr.Add(script.NewStatement(script.OpTRUE))
	rc := script.ExecScript(scr, script.NewStack(), nil)
	require.NotEqual(t, script.RcOK, rc)
}

func popPoint(t *testing.T, s *script.Stack) (int64, int64) {
	t.Helper()
	y, rc := s.Pop()
	require.Equal(t, script.RcOK, rc)
	x, rc := s.Pop()
	require.Equal(t, script.RcOK, rc)
	return x.Int64(), y.Int64()
}

// toyCurve is a short Weierstrass curve over F_19 with enough points
// that a base point clear of degenerate gradient cases exists; tests
// scan for that point with findBasePoint.
func toyCurve() *Curve {
	return NewCurve(field.NewFq(bnum.NewInt(19)), bnum.NewInt(0), bnum.NewInt(7))
}

// curvePoints enumerates all affine points of c over its small field.
func curvePoints(c *Curve) []Point {
	q := c.Field.Modulus.Int64()
	var pts []Point
	for x := int64(0); x < q; x++ {
		for y := int64(0); y < q; y++ {
			lhs := (y * y) % q
			rhs := (x*x*x + c.A.Int64()*x + c.B.Int64()) % q
			if lhs == rhs {
				pts = append(pts, Point{X: bnum.NewInt(x), Y: bnum.NewInt(y)})
			}
		}
	}
	return pts
}

// findBasePoint returns a point P for which P, 2P, ..., maxMul*P are
// all finite with nonzero y, so every gradient in a test trace exists.
// If the default curve has no such point the scan widens over other B
// coefficients; the returned point always lies on *cp's (possibly
// replaced) curve.
func findBasePoint(t *testing.T, cp **Curve, maxMul int64) Point {
	t.Helper()
	for _, b := range []int64{(*cp).B.Int64(), 1, 2, 3, 5, 6, 11} {
		c := NewCurve((*cp).Field, (*cp).A, bnum.NewInt(b))
		for _, p := range curvePoints(c) {
			ok := true
			acc := Point{}
			for k := int64(1); k <= maxMul; k++ {
				acc = c.Add(acc, p)
				if acc.IsInfinity() || acc.Y.Sign() == 0 {
					ok = false
					break
				}
			}
			if ok {
				*cp = c
				return p
			}
		}
	}
	t.Fatal("no suitable base point on any toy curve")
	return Point{}
}

func TestOffChainGroupLaws(t *testing.T) {
	c := toyCurve()
	p := findBasePoint(t, &c, 6)
	q := c.Double(p)

	// commutativity and doubling consistency
	pq := c.Add(p, q)
	qp := c.Add(q, p)
	require.Zero(t, pq.X.Cmp(qp.X))
	require.Zero(t, pq.Y.Cmp(qp.Y))

	// P + (-P) = infinity
	negP := Point{X: p.X, Y: c.Field.Eval(p.Y.Neg())}
	require.True(t, c.Add(p, negP).IsInfinity())

	// infinity is the identity
	sum := c.Add(Point{}, p)
	require.Zero(t, sum.X.Cmp(p.X))
}

// addLayout pushes [q, lambda, xP, yP, xQ, yQ] matching the canonical
// summation layout the gradient fragments are compiled for.
func addLayout(lambda *bnum.Int, p, q Point) *script.Script {
	return builder.NumsToScript([]int64{19, lambda.Int64(), p.X.Int64(), p.Y.Int64(), q.X.Int64(), q.Y.Int64()})
}

func TestAddVerifyGradientComputesSum(t *testing.T) {
	c := toyCurve()
	p := findBasePoint(t, &c, 6)
	q := c.Double(p)
	lambda := c.Gradient(p, q)
	want := c.Add(p, q)

	scr := addLayout(lambda, p, q)
	scr.AddScript(c.AddVerifyGradient(
		stackdesc.NewNumber(4, false),
		pointDesc(3, 2), pointDesc(1, 0), 5))
	stack := run(t, scr)
	x, y := popPoint(t, stack)
	require.Equal(t, want.X.Int64(), x)
	require.Equal(t, want.Y.Int64(), y)
	require.Equal(t, 1, stack.Len()) // only the modulus remains
}

func TestAddVerifyGradientRejectsWrongGradient(t *testing.T) {
	c := toyCurve()
	p := findBasePoint(t, &c, 6)
	q := c.Double(p)
	lambda := c.Gradient(p, q).Add(bnum.ONE)

	scr := addLayout(c.Field.Eval(lambda), p, q)
	scr.AddScript(c.AddVerifyGradient(
		stackdesc.NewNumber(4, false),
		pointDesc(3, 2), pointDesc(1, 0), 5))
	mustFail(t, scr)
}

func TestDoubleVerifyGradientComputesDouble(t *testing.T) {
	c := toyCurve()
	p := findBasePoint(t, &c, 6)
	lambda := c.TangentGradient(p)
	want := c.Double(p)

	scr := builder.NumsToScript([]int64{19, lambda.Int64(), p.X.Int64(), p.Y.Int64()})
	scr.AddScript(c.DoubleVerifyGradient(stackdesc.NewNumber(2, false), pointDesc(1, 0), 3))
	stack := run(t, scr)
	x, y := popPoint(t, stack)
	require.Equal(t, want.X.Int64(), x)
	require.Equal(t, want.Y.Int64(), y)
}

func TestDoubleVerifyGradientNegatedOperand(t *testing.T) {
	c := toyCurve()
	p := findBasePoint(t, &c, 6)
	negP := Point{X: p.X, Y: c.Field.Eval(p.Y.Neg())}
	lambda := c.TangentGradient(negP)
	want := c.Double(negP)

	// the stack carries P; the descriptor's Negate flag makes the
	// fragment operate on -P
	scr := builder.NumsToScript([]int64{19, lambda.Int64(), p.X.Int64(), p.Y.Int64()})
	desc := pointDesc(1, 0).SetNegate(true)
	scr.AddScript(c.DoubleVerifyGradient(stackdesc.NewNumber(2, false), desc, 3))
	stack := run(t, scr)
	x, y := popPoint(t, stack)
	require.Equal(t, want.X.Int64(), x)
	require.Equal(t, want.Y.Int64(), y)
}

func TestSecp256k1GeneratorDoubling(t *testing.T) {
	sc := secp.GetCurve()
	c := NewCurve(field.NewFq(sc.P), bnum.NewInt(0), bnum.NewInt(7))
	g := Point{X: sc.Gx, Y: sc.Gy}
	lambda := c.TangentGradient(g)
	want := c.Double(g)

	scr := script.NewScript()
	scr.Add(script.NewDataStatement(sc.P.Bytes()))
	scr.Add(script.NewDataStatement(lambda.Bytes()))
	scr.Add(script.NewDataStatement(g.X.Bytes()))
	scr.Add(script.NewDataStatement(g.Y.Bytes()))
	scr.AddScript(c.DoubleVerifyGradient(stackdesc.NewNumber(2, false), pointDesc(1, 0), 3))
	stack := run(t, scr)
	y, rc := stack.Pop()
	require.Equal(t, script.RcOK, rc)
	x, rc := stack.Pop()
	require.Equal(t, script.RcOK, rc)
	require.Zero(t, want.X.Cmp(x))
	require.Zero(t, want.Y.Cmp(y))
	require.Equal(t, 1, stack.Len())
}

func TestPointAdditionWithUnknownPointsBothFinite(t *testing.T) {
	c := toyCurve()
	p := findBasePoint(t, &c, 6)
	q := c.Double(p)
	lambda := c.Gradient(p, q)
	want := c.Add(p, q)

	scr := addLayout(lambda, p, q)
	scr.AddScript(c.PointAdditionWithUnknownPoints(
		stackdesc.NewNumber(4, false), pointDesc(3, 2), pointDesc(1, 0), 5))
	stack := run(t, scr)
	x, y := popPoint(t, stack)
	require.Equal(t, want.X.Int64(), x)
	require.Equal(t, want.Y.Int64(), y)
}

func TestPointAdditionWithUnknownPointsInfinityCases(t *testing.T) {
	c := toyCurve()
	p := findBasePoint(t, &c, 6)

	// P + infinity = P (dummy gradient accepted)
	scr := builder.NumsToScript([]int64{19, 0, p.X.Int64(), p.Y.Int64(), 0, 0})
	scr.AddScript(c.PointAdditionWithUnknownPoints(
		stackdesc.NewNumber(4, false), pointDesc(3, 2), pointDesc(1, 0), 5))
	stack := run(t, scr)
	x, y := popPoint(t, stack)
	require.Equal(t, p.X.Int64(), x)
	require.Equal(t, p.Y.Int64(), y)

	// infinity + Q = Q
	scr = builder.NumsToScript([]int64{19, 0, 0, 0, p.X.Int64(), p.Y.Int64()})
	scr.AddScript(c.PointAdditionWithUnknownPoints(
		stackdesc.NewNumber(4, false), pointDesc(3, 2), pointDesc(1, 0), 5))
	stack = run(t, scr)
	x, y = popPoint(t, stack)
	require.Equal(t, p.X.Int64(), x)
	require.Equal(t, p.Y.Int64(), y)

	// P + (-P) = infinity sentinel
	negY := c.Field.Eval(p.Y.Neg())
	scr = builder.NumsToScript([]int64{19, 0, p.X.Int64(), p.Y.Int64(), p.X.Int64(), negY.Int64()})
	scr.AddScript(c.PointAdditionWithUnknownPoints(
		stackdesc.NewNumber(4, false), pointDesc(3, 2), pointDesc(1, 0), 5))
	stack = run(t, scr)
	x, y = popPoint(t, stack)
	require.Zero(t, x)
	require.Zero(t, y)
}

func TestInfinitySentinelShape(t *testing.T) {
	require.Equal(t, []byte{0}, InfinitySentinel(1))
	require.Equal(t, []byte{0, 0}, InfinitySentinel(2))
}

func pointDesc(xPos, yPos int) stackdesc.EllipticCurvePoint {
	return stackdesc.MustNewEllipticCurvePoint(
		stackdesc.MustNewFiniteFieldElement(xPos, false, 1),
		stackdesc.MustNewFiniteFieldElement(yPos, false, 1),
	)
}
