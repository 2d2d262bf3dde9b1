package script

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewDataStatementPushOpcodeSelection(t *testing.T) {
	require.Equal(t, byte(OpFALSE), NewDataStatement(nil).Opcode)
	require.Equal(t, byte(3), NewDataStatement([]byte{1, 2, 3}).Opcode)
	require.Equal(t, byte(OpPUSHDATA1), NewDataStatement(make([]byte, 76)).Opcode)
	require.Equal(t, byte(OpPUSHDATA2), NewDataStatement(make([]byte, 256)).Opcode)
	require.Equal(t, byte(OpPUSHDATA4), NewDataStatement(make([]byte, 65536)).Opcode)
}

func TestScriptBytesRoundTrip(t *testing.T) {
	scr := NewScript()
	scr.Add(NewDataStatement([]byte{0xde, 0xad, 0xbe, 0xef}))
	scr.Add(NewStatement(OpADD))
	scr.Add(NewDataStatement(make([]byte, 200)))

	parsed, rc := ParseBin(scr.Bytes())
	require.Equal(t, RcOK, rc)
	require.Equal(t, scr.Bytes(), parsed.Bytes())
	require.Len(t, parsed.Stmts, 3)
	require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, parsed.Stmts[0].Data)
	require.Equal(t, byte(OpADD), parsed.Stmts[1].Opcode)
}

func TestParseHexRoundTrip(t *testing.T) {
	scr := NewScript()
	scr.Add(NewStatement(OpDUP))
	scr.Add(NewStatement(OpEQUAL))

	hexScript := ""
	for _, b := range scr.Bytes() {
		hexScript += string("0123456789abcdef"[b>>4]) + string("0123456789abcdef"[b&0xf])
	}
	parsed, rc := Parse(hexScript)
	require.Equal(t, RcOK, rc)
	require.Equal(t, scr.Bytes(), parsed.Bytes())
}

func TestCompileOpcodesAndNumericLiterals(t *testing.T) {
	scr, err := Compile("OP_2 OP_3 OP_ADD")
	require.NoError(t, err)
	require.Len(t, scr.Stmts, 3)
	require.Equal(t, byte(Op2), scr.Stmts[0].Opcode)
	require.Equal(t, byte(Op3), scr.Stmts[1].Opcode)
	require.Equal(t, byte(OpADD), scr.Stmts[2].Opcode)

	scr2, err := Compile("#10")
	require.NoError(t, err)
	require.Equal(t, []byte{10}, scr2.Stmts[0].Data)
}

func TestCompileUnknownOpcodeErrors(t *testing.T) {
	_, err := Compile("OP_NOT_A_REAL_OPCODE")
	require.Error(t, err)
}

func TestCompileRejectsInvalidHexToken(t *testing.T) {
	_, err := Compile("zz")
	require.Error(t, err)
}

func TestGetTemplateIgnoresPushedData(t *testing.T) {
	a := NewScript()
	a.Add(NewDataStatement([]byte{1}))
	a.Add(NewStatement(OpADD))

	b := NewScript()
	b.Add(NewDataStatement([]byte{99}))
	b.Add(NewStatement(OpADD))

	require.Equal(t, a.GetTemplate(), b.GetTemplate())
}

func TestDecompileRendersShortPushesAsNumbers(t *testing.T) {
	scr := NewScript()
	scr.Add(NewDataStatement([]byte{5}))
	scr.Add(NewStatement(OpADD))
	require.Equal(t, "#5 OP_ADD", scr.Decompile())
}
