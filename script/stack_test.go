package script

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStackPushPeekPop(t *testing.T) {
	s := NewStack()
	require.Equal(t, RcOK, s.Push(true))
	require.Equal(t, RcOK, s.Push(7))
	require.Equal(t, RcOK, s.Push([]byte{0x2a}))

	top, rc := s.Peek()
	require.Equal(t, RcOK, rc)
	require.Equal(t, int64(42), top.Int64())
	require.Equal(t, 3, s.Len())

	popped, rc := s.Pop()
	require.Equal(t, RcOK, rc)
	require.Equal(t, int64(42), popped.Int64())
	require.Equal(t, 2, s.Len())
}

func TestStackPushRejectsUnsupportedType(t *testing.T) {
	s := NewStack()
	require.Equal(t, RcInvalidStackType, s.Push(3.14))
}

func TestStackPeekAtAndRemoveAt(t *testing.T) {
	s := NewStack()
	s.Push(1)
	s.Push(2)
	s.Push(3)

	v, rc := s.PeekAt(1)
	require.Equal(t, RcOK, rc)
	require.Equal(t, int64(2), v.Int64())

	removed, rc := s.RemoveAt(2)
	require.Equal(t, RcOK, rc)
	require.Equal(t, int64(1), removed.Int64())
	require.Len(t, s.Values(), 2)
	require.Equal(t, int64(2), s.Values()[0].Int64())
	require.Equal(t, int64(3), s.Values()[1].Int64())
}

func TestStackPeekAtOutOfRange(t *testing.T) {
	s := NewStack()
	s.Push(1)
	_, rc := s.PeekAt(5)
	require.Equal(t, RcExceedsStack, rc)
}

func TestStackDupPreservesOrder(t *testing.T) {
	s := NewStack()
	s.Push(1)
	s.Push(2)
	require.Equal(t, RcOK, s.Dup(2))
	require.Equal(t, 4, s.Len())
	got := make([]int64, 0, 4)
	for _, v := range s.Values() {
		got = append(got, v.Int64())
	}
	require.Equal(t, []int64{1, 2, 1, 2}, got)
}

func TestStackCompare(t *testing.T) {
	s := NewStack()
	s.Push(5)
	s.Push(9)
	a, b, cmp, rc := s.Compare()
	require.Equal(t, RcOK, rc)
	require.Equal(t, int64(5), a.Int64())
	require.Equal(t, int64(9), b.Int64())
	require.Equal(t, -1, cmp)
	require.Equal(t, 0, s.Len())
}
