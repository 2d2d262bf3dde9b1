package builder

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zkbtc/groth16script/internal/bnum"
	"github.com/zkbtc/groth16script/script"
)

// run executes a script against an empty stack, appending OP_TRUE so
// fragments that legitimately end with a zero on top still report RcOK.
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

func values(s *script.Stack) []int64 {
	out := make([]int64, 0, s.Len())
	for _, v := range s.Values() {
		out = append(out, v.Int64())
	}
	return out
}

func TestPushNumberEncodings(t *testing.T) {
	scr := NumsToScript([]int64{-1, 0, 1, 16, 17, 255, 70000})
	stack := run(t, scr)
	require.Equal(t, []int64{-1, 0, 1, 16, 17, 255, 70000}, values(stack))
}

func TestPickCopiesPreservingOrder(t *testing.T) {
	scr := NumsToScript([]int64{10, 20, 30, 40})
	scr.AddScript(Pick(3, 2)) // copies 10, 20
	stack := run(t, scr)
	require.Equal(t, []int64{10, 20, 30, 40, 10, 20}, values(stack))
}

func TestPickShorthandMatchesGeneric(t *testing.T) {
	// {1,2} uses OP_2DUP; a deep pick goes through OP_PICK; both must
	// produce the same stack
	scr := NumsToScript([]int64{7, 8})
	scr.AddScript(Pick(1, 2))
	stack := run(t, scr)
	require.Equal(t, []int64{7, 8, 7, 8}, values(stack))
}

func TestRollMovesPreservingOrder(t *testing.T) {
	scr := NumsToScript([]int64{10, 20, 30, 40})
	scr.AddScript(Roll(3, 2)) // moves 10, 20 to the top
	stack := run(t, scr)
	require.Equal(t, []int64{30, 40, 10, 20}, values(stack))
}

func TestRollDeepSingle(t *testing.T) {
	scr := NumsToScript([]int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18})
	scr.AddScript(Roll(17, 1))
	stack := run(t, scr)
	require.Equal(t, int64(1), values(stack)[17])
}

func TestVerifyBottomConstant(t *testing.T) {
	q := bnum.NewInt(19)
	scr := NumsToScript([]int64{19, 5})
	scr.AddScript(VerifyBottomConstant(1, q.Bytes()))
	stack := run(t, scr)
	require.Equal(t, []int64{19, 5}, values(stack))

	bad := NumsToScript([]int64{18, 5})
	bad.AddScript(VerifyBottomConstant(1, q.Bytes()))
	bad.Add(script.NewStatement(script.OpTRUE))
	rc := script.ExecScript(bad, script.NewStack(), nil)
	require.Equal(t, script.RcEqualVerifyFailed, rc)
}

func TestBatchedModuloReducesWindowInOrder(t *testing.T) {
	// modulus 19 below three unreduced values, including a negative one
	scr := NumsToScript([]int64{19, 40, -3, 25})
	scr.AddScript(BatchedModulo(3, 3))
	stack := run(t, scr)
	require.Equal(t, []int64{19, 2, 16, 6}, values(stack))
}

func TestBatchedModuloSingle(t *testing.T) {
	scr := NumsToScript([]int64{19, -3})
	scr.AddScript(BatchedModulo(1, 1))
	stack := run(t, scr)
	require.Equal(t, []int64{19, 16}, values(stack))
}

func TestReverseEndianness(t *testing.T) {
	scr := script.NewScript()
	scr.Add(script.NewDataStatement([]byte{0x01, 0x02, 0x03}))
	scr.AddScript(ReverseEndianness(3))
	stack := run(t, scr)
	top, _ := stack.Pop()
	require.Equal(t, []byte{0x03, 0x02, 0x01}, top.Bytes())
}

func TestReverseEndiannessBoundedShorterInput(t *testing.T) {
	scr := script.NewScript()
	scr.Add(script.NewDataStatement([]byte{0x01, 0x02, 0x03}))
	scr.AddScript(ReverseEndiannessBounded(8))
	stack := run(t, scr)
	top, _ := stack.Pop()
	require.Equal(t, []byte{0x03, 0x02, 0x01}, top.Bytes())
}

func TestPeepholeCancelsInversePairs(t *testing.T) {
	scr := script.NewScript()
	scr.Add(script.NewStatement(script.OpSWAP))
	scr.Add(script.NewStatement(script.OpSWAP))
	scr.Add(script.NewStatement(script.OpTOALTSTACK))
	scr.Add(script.NewStatement(script.OpFROMALTSTACK))
	out := Peephole(scr)
	require.Zero(t, out.Len())
}

func TestPeepholeFoldsSmallPickRoll(t *testing.T) {
	scr := script.NewScript()
	scr.Add(script.NewStatement(script.OpTRUE))
	scr.Add(script.NewStatement(script.OpROLL))
	out := Peephole(scr)
	require.Equal(t, 1, out.Len())
	require.Equal(t, byte(script.OpSWAP), out.Stmts[0].Opcode)
}

func TestPeepholePreservesSemantics(t *testing.T) {
	scr := NumsToScript([]int64{10, 20, 30})
	scr.Add(script.NewStatement(script.OpSWAP))
	scr.Add(script.NewStatement(script.OpSWAP))
	scr.AddScript(Pick(2, 1))
	before := values(run(t, NumsToScript([]int64{10, 20, 30}).AddScript(Pick(2, 1))))
	after := values(run(t, Peephole(scr)))
	require.Equal(t, before, after)
}
