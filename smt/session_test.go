package smt

import (
	"errors"
	"fmt"
	"testing"

	"github.com/netrixframework/smtkit/smt/ops"
	"golang.org/x/exp/rand"
)

type fakeSession = Session[fakeSort, *fakeTerm, *fakeFun]

func newFakeSession(opts ...Option) (*fakeSession, *fakeBackend) {
	b := newFake()
	return NewSession[fakeSort, *fakeTerm, *fakeFun](b, opts...), b
}

func mustBool(t *testing.T, s *fakeSession, name string) *fakeTerm {
	t.Helper()
	boolS, err := s.LookupSort(ops.Bool)
	if err != nil {
		t.Fatalf("bad: lookup Bool: %s", err)
	}
	c, err := s.DeclareConst(name, boolS)
	if err != nil {
		t.Fatalf("bad: declare %s: %s", name, err)
	}
	return c
}

func TestLevelArithmetic(t *testing.T) {
	s, b := newFakeSession()
	if s.Level() != 0 {
		t.Fatalf("bad: initial level %d", s.Level())
	}
	if err := s.Push(3); err != nil {
		t.Fatalf("bad: %s", err)
	}
	if err := s.Pop(2); err != nil {
		t.Fatalf("bad: %s", err)
	}
	if s.Level() != 1 || b.depth != 1 {
		t.Fatalf("bad: level %d, backend depth %d", s.Level(), b.depth)
	}
	if err := s.Push(0); err != nil {
		t.Fatalf("bad: push 0: %s", err)
	}
	if err := s.Pop(0); err != nil {
		t.Fatalf("bad: pop 0: %s", err)
	}
	if s.Level() != 1 {
		t.Fatalf("bad: level %d after no-op push/pop", s.Level())
	}
}

// TestRandomScopes replays random push, pop, assert and check-sat steps
// against a plain stack of scopes.
func TestRandomScopes(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		rnd := rand.New(rand.NewSource(seed))
		s, b := newFakeSession()
		var pool []*fakeTerm
		for i := 0; i < 4; i++ {
			pool = append(pool, mustBool(t, s, fmt.Sprintf("p%d", i)))
		}
		stack := [][]*fakeTerm{nil}
		fresh := false

		for step := 0; step < 200; step++ {
			level := uint32(len(stack) - 1)
			switch rnd.Intn(4) {
			case 0:
				n := uint32(rnd.Intn(4))
				if err := s.Push(n); err != nil {
					t.Fatalf("bad: seed %d step %d: push %d: %s", seed, step, n, err)
				}
				for i := uint32(0); i < n; i++ {
					stack = append(stack, nil)
				}
				fresh = fresh && n == 0
			case 1:
				n := uint32(rnd.Intn(int(level) + 2))
				err := s.Pop(n)
				if n > level {
					if !IsAPI(err) {
						t.Fatalf("bad: seed %d step %d: pop %d at %d: %v", seed, step, n, level, err)
					}
					break
				}
				if err != nil {
					t.Fatalf("bad: seed %d step %d: pop %d: %s", seed, step, n, err)
				}
				stack = stack[:len(stack)-int(n)]
				fresh = fresh && n == 0
			case 2:
				p := pool[rnd.Intn(len(pool))]
				if err := s.Assert(p); err != nil {
					t.Fatalf("bad: seed %d step %d: assert: %s", seed, step, err)
				}
				stack[len(stack)-1] = append(stack[len(stack)-1], p)
				fresh = false
			case 3:
				if r := s.CheckSat(); r != Sat {
					t.Fatalf("bad: seed %d step %d: result %s", seed, step, r)
				}
				fresh = true
			}

			want := uint32(len(stack) - 1)
			if s.Level() != want || b.depth != want {
				t.Fatalf("bad: seed %d step %d: level %d, backend depth %d, want %d", seed, step, s.Level(), b.depth, want)
			}
			var live []*fakeTerm
			for _, sc := range stack {
				live = append(live, sc...)
			}
			got := s.Assertions()
			if len(got) != len(live) {
				t.Fatalf("bad: seed %d step %d: %d assertions, want %d", seed, step, len(got), len(live))
			}
			for i := range live {
				if got[i] != live[i] {
					t.Fatalf("bad: seed %d step %d: assertion %d is %s, want %s", seed, step, i, got[i].text, live[i].text)
				}
			}
			if _, err := s.GetValue(pool[0]); (err == nil) != fresh {
				t.Fatalf("bad: seed %d step %d: get-value with fresh model %v: %v", seed, step, fresh, err)
			}
		}
	}
}

func TestPopOverDepth(t *testing.T) {
	s, b := newFakeSession()
	p := mustBool(t, s, "p")
	s.Push(1)
	if err := s.Assert(p); err != nil {
		t.Fatalf("bad: %s", err)
	}
	err := s.Pop(2)
	if !IsAPI(err) {
		t.Fatalf("bad: expected APIError, got %v", err)
	}
	if !errors.Is(err, &Error{Kind: APIError, Op: "pop"}) {
		t.Fatalf("bad: error not attributed to pop: %s", err)
	}
	if s.Level() != 1 || b.depth != 1 {
		t.Fatalf("bad: failed pop mutated level to %d", s.Level())
	}
	if len(s.Assertions()) != 1 {
		t.Fatalf("bad: failed pop dropped assertions")
	}
}

func TestPopDiscardsScopeAssertions(t *testing.T) {
	s, _ := newFakeSession()
	p := mustBool(t, s, "p")
	q := mustBool(t, s, "q")
	s.Assert(p)
	s.Push(2)
	s.Assert(q)
	s.Assert(q)
	if n := len(s.Assertions()); n != 3 {
		t.Fatalf("bad: %d live assertions", n)
	}
	if err := s.Pop(2); err != nil {
		t.Fatalf("bad: %s", err)
	}
	live := s.Assertions()
	if len(live) != 1 || live[0] != p {
		t.Fatalf("bad: live assertions after pop: %v", live)
	}
}

func TestPushFailureKeepsLevel(t *testing.T) {
	s, b := newFakeSession()
	b.pushErr = errors.New("out of memory")
	err := s.Push(2)
	if !IsInternal(err) {
		t.Fatalf("bad: expected InternalError, got %v", err)
	}
	if s.Level() != 0 {
		t.Fatalf("bad: level %d after failed push", s.Level())
	}
}

func TestAssertRequiresBool(t *testing.T) {
	s, _ := newFakeSession()
	bv, _ := s.LookupSort(ops.BitVec(8))
	x, _ := s.DeclareConst("x", bv)
	if err := s.Assert(x); !IsAPI(err) {
		t.Fatalf("bad: expected APIError, got %v", err)
	}
	if len(s.Assertions()) != 0 {
		t.Fatalf("bad: rejected assertion was recorded")
	}
}

func TestGetValueGating(t *testing.T) {
	s, b := newFakeSession()
	p := mustBool(t, s, "p")

	if _, err := s.GetValue(p); !IsAPI(err) {
		t.Fatalf("bad: get-value before check-sat: %v", err)
	}

	b.next = Unsat
	s.Assert(p)
	if r := s.CheckSat(); r != Unsat {
		t.Fatalf("bad: result %s", r)
	}
	if _, err := s.GetValue(p); !IsAPI(err) {
		t.Fatalf("bad: get-value after unsat: %v", err)
	}

	b.next = Sat
	if r := s.CheckSat(); r != Sat {
		t.Fatalf("bad: result %s", r)
	}
	v, err := s.GetValue(p)
	if err != nil {
		t.Fatalf("bad: get-value after sat: %s", err)
	}
	if v.sort != p.sort {
		t.Fatalf("bad: value sort %v, want %v", v.sort, p.sort)
	}

	s.Push(1)
	if _, err := s.GetValue(p); !IsAPI(err) {
		t.Fatalf("bad: get-value after push: %v", err)
	}
}

func TestGetValueForeignTerm(t *testing.T) {
	a, _ := newFakeSession()
	b, _ := newFakeSession()
	ap := mustBool(t, a, "p")
	mustBool(t, b, "p")
	if b.CheckSat() != Sat {
		t.Fatalf("bad: expected sat")
	}
	_, err := b.GetValue(ap)
	if !IsAPI(err) {
		t.Fatalf("bad: foreign get-value: %v", err)
	}
	if e, ok := err.(*Error); !ok || e.Op != "get_value" {
		t.Fatalf("bad: error %#v", err)
	}
}

func TestGetValueModelsDisabled(t *testing.T) {
	s, _ := newFakeSession(WithModels(false))
	p := mustBool(t, s, "p")
	if s.CheckSat() != Sat {
		t.Fatalf("bad: expected sat")
	}
	if _, err := s.GetValue(p); !IsAPI(err) {
		t.Fatalf("bad: expected APIError, got %v", err)
	}
	if s.ProducesModels() {
		t.Fatalf("bad: models reported on")
	}
}

func TestCheckSatBackendFailure(t *testing.T) {
	s, b := newFakeSession()
	b.nextErr = errors.New("solver crashed")
	if r := s.CheckSat(); r != Unknown {
		t.Fatalf("bad: result %s", r)
	}
	if s.ReasonUnknown() != "solver crashed" {
		t.Fatalf("bad: reason %q", s.ReasonUnknown())
	}
	b.nextErr = nil
	b.next = Unknown
	s.CheckSat()
	if s.ReasonUnknown() != "incomplete" {
		t.Fatalf("bad: reason %q", s.ReasonUnknown())
	}
	st := s.Stats()
	if st.Checks != 2 || st.Unknown != 2 {
		t.Fatalf("bad: stats %+v", st)
	}
	if s.LastResult() != Unknown {
		t.Fatalf("bad: last result %s", s.LastResult())
	}
}

func TestLookupSort(t *testing.T) {
	s, _ := newFakeSession()
	cases := []struct {
		sort ops.Sort
		kind ErrorKind
	}{
		{ops.Bool, 0},
		{ops.Int, 0},
		{ops.BitVec(8), 0},
		{ops.Array, APIError},
		{ops.BitVec(0), APIError},
		{ops.BitVec(ops.MaxBitVecWidth), 0},
		{ops.BitVec(ops.MaxBitVecWidth + 1), APIError},
		{ops.Sort{Kind: ops.KindRecord}, APIError},
		{ops.Real, UnsupportedError},
	}
	for _, c := range cases {
		_, err := s.LookupSort(c.sort)
		if c.kind == 0 {
			if err != nil {
				t.Fatalf("bad: %s: %s", c.sort, err)
			}
			continue
		}
		if k, _ := KindOf(err); k != c.kind {
			t.Fatalf("bad: %s: got %v, want %s", c.sort, err, c.kind)
		}
	}
}

func TestApplySort(t *testing.T) {
	s, _ := newFakeSession()
	i, _ := s.LookupSort(ops.Int)
	bo, _ := s.LookupSort(ops.Bool)
	if _, err := s.ApplySort(ops.Array, i, bo); err != nil {
		t.Fatalf("bad: %s", err)
	}
	if _, err := s.ApplySort(ops.Int, i, bo); !IsAPI(err) {
		t.Fatalf("bad: expected APIError, got %v", err)
	}
}

func TestDeclareRecordSort(t *testing.T) {
	s, _ := newFakeSession()
	i, _ := s.LookupSort(ops.Int)

	if _, err := s.DeclareRecordSort("P", []string{"x", "y"}, []fakeSort{i}); !IsAPI(err) {
		t.Fatalf("bad: length mismatch accepted: %v", err)
	}
	if _, err := s.DeclareRecordSort("P", []string{"x", "x"}, []fakeSort{i, i}); !IsAPI(err) {
		t.Fatalf("bad: duplicate field accepted: %v", err)
	}
	p, err := s.DeclareRecordSort("P", []string{"x", "y"}, []fakeSort{i, i})
	if err != nil {
		t.Fatalf("bad: %s", err)
	}
	if !s.IsRecordSort(p) || s.IsRecordSort(i) {
		t.Fatalf("bad: IsRecordSort")
	}
	fields, sorts, ok := s.RecordFields(p)
	if !ok || len(fields) != 2 || fields[1] != "y" || sorts[0] != i {
		t.Fatalf("bad: record fields %v %v", fields, sorts)
	}
	if _, err := s.DeclareRecordSort("P", []string{"z"}, []fakeSort{i}); !IsAPI(err) {
		t.Fatalf("bad: redeclared record accepted: %v", err)
	}

	one, _ := s.ConstFromInt(1, i)
	if _, err := s.RecordConst(p, []*fakeTerm{one}); !IsAPI(err) {
		t.Fatalf("bad: short record literal accepted: %v", err)
	}
	if _, err := s.RecordConst(i, []*fakeTerm{one}); !IsAPI(err) {
		t.Fatalf("bad: record literal of Int accepted: %v", err)
	}
	if _, err := RecordConstRefs[fakeSort, *fakeTerm, *fakeFun](s, p, []**fakeTerm{&one, nil}); !IsAPI(err) {
		t.Fatalf("bad: nil reference accepted: %v", err)
	}
	if _, err := RecordConstRefs[fakeSort, *fakeTerm, *fakeFun](s, p, []**fakeTerm{&one, &one}); err != nil {
		t.Fatalf("bad: %s", err)
	}
}

func TestConstFromInt(t *testing.T) {
	s, _ := newFakeSession()
	i, _ := s.LookupSort(ops.Int)
	bv8, _ := s.LookupSort(ops.BitVec(8))
	bo, _ := s.LookupSort(ops.Bool)

	for _, v := range []int64{0, 5, -5, 1 << 40, -1 << 63} {
		c, err := s.ConstFromInt(v, i)
		if err != nil {
			t.Fatalf("bad: %d: %s", v, err)
		}
		if got, err := c.Int64(); err != nil || got != v {
			t.Fatalf("bad: %d round tripped to %d (%v)", v, got, err)
		}
	}
	if _, err := s.ConstFromInt(255, bv8); err != nil {
		t.Fatalf("bad: %s", err)
	}
	for _, v := range []int64{256, -1} {
		if _, err := s.ConstFromInt(v, bv8); !IsAPI(err) {
			t.Fatalf("bad: %d accepted for BitVec 8: %v", v, err)
		}
	}
	if _, err := s.ConstFromInt(1, bo); !IsAPI(err) {
		t.Fatalf("bad: Bool numeral accepted: %v", err)
	}
}

func TestConstFromString(t *testing.T) {
	s, _ := newFakeSession()
	i, _ := s.LookupSort(ops.Int)
	bv8, _ := s.LookupSort(ops.BitVec(8))
	for _, bad := range []string{"", "-", "1a", "1.5", "+3", " 1"} {
		if _, err := s.ConstFromString(bad, i); !IsAPI(err) {
			t.Fatalf("bad: %q accepted for Int: %v", bad, err)
		}
	}
	if _, err := s.ConstFromString("-3", bv8); !IsAPI(err) {
		t.Fatalf("bad: negative bitvector accepted: %v", err)
	}
	c, err := s.ConstFromString("-007", i)
	if err != nil {
		t.Fatalf("bad: %s", err)
	}
	if v, _ := c.Int64(); v != -7 {
		t.Fatalf("bad: -007 parsed as %d", v)
	}
}

func TestLookupConst(t *testing.T) {
	s, _ := newFakeSession()
	if _, err := s.LookupConst(ops.True); err != nil {
		t.Fatalf("bad: %s", err)
	}
	if _, err := s.LookupConst(ops.And); !IsAPI(err) {
		t.Fatalf("bad: and accepted as a constant: %v", err)
	}
	if _, err := s.LookupConst(ops.True.Field("x")); !IsAPI(err) {
		t.Fatalf("bad: malformed constant accepted: %v", err)
	}
}

func TestApplyFun(t *testing.T) {
	s, _ := newFakeSession()
	bv8, _ := s.LookupSort(ops.BitVec(8))
	x, _ := s.DeclareConst("x", bv8)
	y, _ := s.DeclareConst("y", bv8)

	sum, err := s.ApplyFun(Builtin[*fakeFun](ops.BvAdd), []*fakeTerm{x, y})
	if err != nil {
		t.Fatalf("bad: %s", err)
	}
	if sum.sort != bv8 {
		t.Fatalf("bad: bvadd sort %v", sum.sort)
	}
	if _, err := s.ApplyFun(Builtin[*fakeFun](ops.BvNot), []*fakeTerm{x, y}); !IsAPI(err) {
		t.Fatalf("bad: bvnot with two args accepted: %v", err)
	}
	if _, err := s.ApplyFun(Builtin[*fakeFun](ops.Extract), []*fakeTerm{x}); !IsAPI(err) {
		t.Fatalf("bad: extract without indices accepted: %v", err)
	}
	if _, err := s.ApplyFun(Builtin[*fakeFun](ops.Extract.With(3, 0)), []*fakeTerm{x}); err != nil {
		t.Fatalf("bad: %s", err)
	}
	tr, err := s.ApplyFun(Builtin[*fakeFun](ops.True), nil)
	if err != nil || tr.text != "true" {
		t.Fatalf("bad: true via apply: %v %v", tr, err)
	}

	f, _ := s.DeclareFun("f", []fakeSort{bv8}, bv8)
	uf := UF(f)
	if !uf.IsUF() || uf.String() != "f" {
		t.Fatalf("bad: UF variant %s", uf)
	}
	fx, err := ApplyFunRefs[fakeSort, *fakeTerm, *fakeFun](s, uf, []**fakeTerm{&x})
	if err != nil || fx.sort != bv8 {
		t.Fatalf("bad: f(x) %v %v", fx, err)
	}
}

func TestDeclarationsSurvivePop(t *testing.T) {
	s, _ := newFakeSession()
	s.Push(1)
	u, _ := s.DeclareSort("U")
	s.DeclareConst("a", u)
	s.Pop(1)
	if _, ok := s.SortNamed("U"); !ok {
		t.Fatalf("bad: sort U lost on pop")
	}
	if _, ok := s.ConstNamed("a"); !ok {
		t.Fatalf("bad: const a lost on pop")
	}
	if _, ok := s.FunNamed("a"); ok {
		t.Fatalf("bad: const found as a function")
	}
}

func TestClose(t *testing.T) {
	s, b := newFakeSession()
	if err := s.Close(); err != nil {
		t.Fatalf("bad: %s", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("bad: second close: %s", err)
	}
	if !b.closed {
		t.Fatalf("bad: backend not closed")
	}
	if err := s.Push(1); !IsAPI(err) {
		t.Fatalf("bad: push after close: %v", err)
	}
	if r := s.CheckSat(); r != Unknown {
		t.Fatalf("bad: check-sat after close %s", r)
	}
}
