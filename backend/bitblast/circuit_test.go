package bitblast

import (
	"testing"

	"github.com/netrixframework/smtkit/smt"
	"github.com/netrixframework/smtkit/smt/ops"
)

type bvCase struct {
	op  ops.Applicable
	ref func(a, b uint8) uint8
}

func sdiv8(a, b uint8) uint8 {
	if b == 0 {
		if int8(a) < 0 {
			return 1
		}
		return 0xff
	}
	return uint8(int8(a) / int8(b))
}

func srem8(a, b uint8) uint8 {
	if b == 0 {
		return a
	}
	return uint8(int8(a) % int8(b))
}

func smod8(a, b uint8) uint8 {
	if b == 0 {
		return a
	}
	r := int8(a) % int8(b)
	if r != 0 && (r < 0) != (int8(b) < 0) {
		r += int8(b)
	}
	return uint8(r)
}

var bvCases = []bvCase{
	{ops.BvAdd, func(a, b uint8) uint8 { return a + b }},
	{ops.BvSub, func(a, b uint8) uint8 { return a - b }},
	{ops.BvMul, func(a, b uint8) uint8 { return a * b }},
	{ops.BvAnd, func(a, b uint8) uint8 { return a & b }},
	{ops.BvNand, func(a, b uint8) uint8 { return ^(a & b) }},
	{ops.BvXnor, func(a, b uint8) uint8 { return ^(a ^ b) }},
	{ops.BvUdiv, func(a, b uint8) uint8 {
		if b == 0 {
			return 0xff
		}
		return a / b
	}},
	{ops.BvUrem, func(a, b uint8) uint8 {
		if b == 0 {
			return a
		}
		return a % b
	}},
	{ops.BvSdiv, sdiv8},
	{ops.BvSrem, srem8},
	{ops.BvSmod, smod8},
	{ops.BvShl, func(a, b uint8) uint8 { return a << b }},
	{ops.BvLshr, func(a, b uint8) uint8 { return a >> b }},
	{ops.BvAshr, func(a, b uint8) uint8 { return uint8(int8(a) >> b) }},
}

var operands = [][2]uint8{
	{0, 0}, {7, 3}, {200, 13}, {0x80, 0xff}, {0x85, 3}, {5, 0xfd},
	{0xf0, 0xf4}, {1, 8}, {0x81, 9}, {0xaa, 0}, {0x7f, 0x7f},
}

func TestBitVectorArithmetic(t *testing.T) {
	s := NewSession(DefaultOptions())
	bv8, _ := s.LookupSort(ops.BitVec(8))
	x, _ := s.DeclareConst("x", bv8)
	y, _ := s.DeclareConst("y", bv8)
	for _, pair := range operands {
		a, b := pair[0], pair[1]
		s.Push(1)
		av, _ := s.ConstFromInt(int64(a), bv8)
		bv, _ := s.ConstFromInt(int64(b), bv8)
		s.Assert(apply(t, s, ops.Eq, x, av))
		s.Assert(apply(t, s, ops.Eq, y, bv))
		results := make([]Term, len(bvCases))
		for i, c := range bvCases {
			results[i] = apply(t, s, c.op, x, y)
		}
		if r := s.CheckSat(); r != smt.Sat {
			t.Fatalf("bad: result %s", r)
		}
		for i, c := range bvCases {
			got := value(t, s, results[i])
			if want := c.ref(a, b); uint8(got) != want {
				t.Fatalf("bad: %s %d %d = %d, want %d", c.op.Fn(), a, b, got, want)
			}
		}
		s.Pop(1)
	}
}

func TestBitVectorComparisons(t *testing.T) {
	s := NewSession(DefaultOptions())
	bv8, _ := s.LookupSort(ops.BitVec(8))
	cmps := []struct {
		op  ops.Op
		ref func(a, b uint8) bool
	}{
		{ops.BvUlt, func(a, b uint8) bool { return a < b }},
		{ops.BvUle, func(a, b uint8) bool { return a <= b }},
		{ops.BvUgt, func(a, b uint8) bool { return a > b }},
		{ops.BvSlt, func(a, b uint8) bool { return int8(a) < int8(b) }},
		{ops.BvSge, func(a, b uint8) bool { return int8(a) >= int8(b) }},
	}
	for _, pair := range operands {
		a, b := pair[0], pair[1]
		av, _ := s.ConstFromInt(int64(a), bv8)
		bv, _ := s.ConstFromInt(int64(b), bv8)
		for _, c := range cmps {
			s.Push(1)
			s.Assert(apply(t, s, c.op, av, bv))
			want := smt.Unsat
			if c.ref(a, b) {
				want = smt.Sat
			}
			if r := s.CheckSat(); r != want {
				t.Fatalf("bad: %s %d %d is %s, want %s", c.op, a, b, r, want)
			}
			s.Pop(1)
		}
	}
}

func TestBitVectorStructure(t *testing.T) {
	s := NewSession(DefaultOptions())
	bv8, _ := s.LookupSort(ops.BitVec(8))
	x, _ := s.DeclareConst("x", bv8)
	c, _ := s.ConstFromInt(0xb4, bv8)
	s.Assert(apply(t, s, ops.Eq, x, c))
	cases := []struct {
		term Term
		want int64
	}{
		{apply(t, s, ops.Extract.With(7, 4), x), 0xb},
		{apply(t, s, ops.Concat, x, apply(t, s, ops.Extract.With(3, 0), x)), 0xb44},
		{apply(t, s, ops.ZeroExtend.With(4), x), 0xb4},
		{apply(t, s, ops.SignExtend.With(4), x), 0xfb4},
		{apply(t, s, ops.Repeat.With(2), x), 0xb4b4},
		{apply(t, s, ops.RotateLeft.With(4), x), 0x4b},
		{apply(t, s, ops.RotateRight.With(1), x), 0x5a},
		{apply(t, s, ops.BvNeg, x), 0x4c},
		{apply(t, s, ops.BvComp, x, c), 1},
	}
	if r := s.CheckSat(); r != smt.Sat {
		t.Fatalf("bad: result %s", r)
	}
	for _, tc := range cases {
		if got := value(t, s, tc.term); got != tc.want {
			t.Fatalf("bad: %s = %#x, want %#x", tc.term, got, tc.want)
		}
	}
}
