package driver

import (
	"fmt"
	"io"

	"github.com/netrixframework/smtkit/smt"
	"github.com/netrixframework/smtkit/smt/ops"
)

// script wraps a session with helpers that stop at the first error
type script[S smt.Sort, T smt.Term, F smt.UninterpretedFunction] struct {
	s   *smt.Session[S, T, F]
	w   io.Writer
	err error
}

func (sc *script[S, T, F]) app(f smt.Function[F], args ...T) T {
	var zero T
	if sc.err != nil {
		return zero
	}
	t, err := sc.s.ApplyFun(f, args)
	sc.err = err
	return t
}

func (sc *script[S, T, F]) op(a ops.Applicable, args ...T) T {
	return sc.app(smt.Builtin[F](a), args...)
}

func (sc *script[S, T, F]) konst(name string, sort S) T {
	var zero T
	if sc.err != nil {
		return zero
	}
	t, err := sc.s.DeclareConst(name, sort)
	sc.err = err
	return t
}

func (sc *script[S, T, F]) num(v int64, sort S) T {
	var zero T
	if sc.err != nil {
		return zero
	}
	t, err := sc.s.ConstFromInt(v, sort)
	sc.err = err
	return t
}

func (sc *script[S, T, F]) assert(t T) {
	if sc.err == nil {
		sc.err = sc.s.Assert(t)
	}
}

// check runs check-sat and prints the result with the values of terms
func (sc *script[S, T, F]) check(title string, terms ...T) smt.CheckSatResult {
	if sc.err != nil {
		return smt.NotChecked
	}
	res := sc.s.CheckSat()
	fmt.Fprintf(sc.w, "%-28s %s", title, res)
	if res == smt.Unknown {
		fmt.Fprintf(sc.w, " (%s)", sc.s.ReasonUnknown())
	}
	if res == smt.Sat && sc.s.ProducesModels() {
		for _, t := range terms {
			name, _ := t.SMTLib()
			v, err := sc.s.GetValue(t)
			if err != nil {
				sc.err = err
				break
			}
			text, _ := v.SMTLib()
			fmt.Fprintf(sc.w, " %s=%s", name, text)
		}
	}
	fmt.Fprintln(sc.w)
	return res
}

// skip reports an unsupported step and clears the error
func (sc *script[S, T, F]) skip(title string) bool {
	if sc.err != nil && smt.IsUnsupported(sc.err) {
		fmt.Fprintf(sc.w, "%-28s skipped: %s\n", title, sc.err)
		sc.err = nil
		return true
	}
	return false
}

func demo[S smt.Sort, T smt.Term, F smt.UninterpretedFunction](s *smt.Session[S, T, F], w io.Writer) error {
	sc := &script[S, T, F]{s: s, w: w}

	boolean, err := s.LookupSort(ops.Bool)
	if err != nil {
		return err
	}
	p := sc.konst("p", boolean)
	q := sc.konst("q", boolean)
	sc.assert(sc.op(ops.Xor, p, q))
	sc.assert(sc.op(ops.Implies, p, q))
	sc.check("(xor p q), (=> p q)", p, q)

	// Int when the backend has it, 32 bit bitvectors otherwise
	num, err := s.LookupSort(ops.Int)
	plus, gt := ops.Plus, ops.Gt
	if smt.IsUnsupported(err) {
		fmt.Fprintf(w, "%-28s using (_ BitVec 32)\n", "Int unsupported")
		num, err = s.LookupSort(ops.BitVec(32))
		plus, gt = ops.BvAdd, ops.BvSgt
	}
	if err != nil {
		return err
	}
	x := sc.konst("x", num)
	y := sc.konst("y", num)
	sc.assert(sc.op(ops.Eq, sc.op(plus, x, y), sc.num(10, num)))
	sc.assert(sc.op(gt, x, y))
	sc.assert(sc.op(gt, y, sc.num(2, num)))
	sc.check("x+y=10, x>y, y>2", x, y)

	if sc.err == nil {
		sc.err = s.Push(1)
	}
	sc.assert(sc.op(ops.Eq, x, y))
	sc.check("push; x=y")
	if sc.err == nil {
		sc.err = s.Pop(1)
	}
	sc.check("pop", x, y)
	if sc.err != nil {
		return sc.err
	}

	u, err := s.DeclareSort("U")
	if err == nil {
		var f F
		f, err = s.DeclareFun("f", []S{u}, boolean)
		if err == nil {
			a := sc.konst("a", u)
			b := sc.konst("b", u)
			sc.assert(sc.op(ops.Distinct, sc.app(smt.UF(f), a), sc.app(smt.UF(f), b)))
			sc.check("(distinct (f a) (f b))", a, b)
			sc.assert(sc.op(ops.Eq, a, b))
			sc.check("... (= a b)")
		}
	}
	sc.err = firstErr(sc.err, err)
	if sc.skip("uninterpreted functions") || sc.err != nil {
		return sc.err
	}

	pt, err := s.DeclareRecordSort("Point", []string{"px", "py"}, []S{num, num})
	if err == nil {
		pnt := sc.konst("pt", pt)
		sc.assert(sc.op(ops.Eq, sc.op(ops.RecordSelect.Field("px"), pnt), x))
		sc.assert(sc.op(ops.Eq, sc.op(ops.RecordSelect.Field("py"), pnt), y))
		sc.check("record fields", pnt)
	}
	sc.err = firstErr(sc.err, err)
	sc.skip("records")
	return sc.err
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
