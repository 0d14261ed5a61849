//go:build z3

package z3

// #include <z3.h>
import "C"
import (
	"strings"

	"github.com/netrixframework/smtkit/internal/termtab"
	"github.com/netrixframework/smtkit/smt"
	"github.com/netrixframework/smtkit/smt/ops"
)

func ptr[T any](xs []T) *T {
	if len(xs) == 0 {
		return nil
	}
	return &xs[0]
}

// wire returns the unquoted SMT-LIB symbol of a rendered handle.
func wire(text string, err error) (string, error) {
	if err != nil {
		return "", err
	}
	return strings.Trim(text, "|"), nil
}

func (b *Backend) sort(s Sort) (C.Z3_sort, error) {
	if z, ok := b.sorts[s]; ok {
		return z, nil
	}
	c := b.ctx.raw
	var z C.Z3_sort
	switch s.Kind() {
	case ops.KindBool:
		z = C.Z3_mk_bool_sort(c)
	case ops.KindInt:
		z = C.Z3_mk_int_sort(c)
	case ops.KindReal:
		z = C.Z3_mk_real_sort(c)
	case ops.KindBitVec:
		z = C.Z3_mk_bv_sort(c, C.uint(s.Width()))
	case ops.KindArray:
		d, err := b.sort(s.Domain())
		if err != nil {
			return nil, err
		}
		r, err := b.sort(s.Range())
		if err != nil {
			return nil, err
		}
		z = C.Z3_mk_array_sort(c, d, r)
	case ops.KindUninterpreted:
		name, err := wire(s.SMTLib())
		if err != nil {
			return nil, err
		}
		z = C.Z3_mk_uninterpreted_sort(c, b.ctx.symbol(name))
	case ops.KindRecord:
		tup, err := b.tuple(s)
		if err != nil {
			return nil, err
		}
		z = C.Z3_get_range(c, tup.ctor)
	default:
		return nil, smt.Internalf("sort %s has no z3 counterpart", s.Kind())
	}
	if err := b.ctx.check("sort"); err != nil {
		return nil, err
	}
	b.sorts[s] = b.ctx.keepSort(z)
	return z, nil
}

// tuple declares a record sort as a Z3 tuple sort.
func (b *Backend) tuple(s Sort) (*tuple, error) {
	if tup, ok := b.tuples[s]; ok {
		return tup, nil
	}
	name, err := wire(s.SMTLib())
	if err != nil {
		return nil, err
	}
	fields := s.Fields()
	names := make([]C.Z3_symbol, len(fields))
	sorts := make([]C.Z3_sort, len(fields))
	for i, fs := range s.FieldSorts() {
		z, err := b.sort(fs)
		if err != nil {
			return nil, err
		}
		names[i] = b.ctx.symbol(name + "." + fields[i])
		sorts[i] = z
	}
	tup := &tuple{proj: make([]C.Z3_func_decl, len(fields))}
	C.Z3_mk_tuple_sort(b.ctx.raw, b.ctx.symbol(name), C.uint(len(fields)), ptr(names), ptr(sorts), &tup.ctor, ptr(tup.proj))
	if err := b.ctx.check("declare record " + name); err != nil {
		return nil, err
	}
	b.ctx.keepDecl(tup.ctor)
	for _, p := range tup.proj {
		b.ctx.keepDecl(p)
	}
	b.tuples[s] = tup
	return tup, nil
}

func (b *Backend) fun(f Func) (C.Z3_func_decl, error) {
	if d, ok := b.funcs[f]; ok {
		return d, nil
	}
	name, err := f.Name()
	if err != nil {
		return nil, err
	}
	domain := make([]C.Z3_sort, 0, len(f.Domain()))
	for _, s := range f.Domain() {
		z, err := b.sort(s)
		if err != nil {
			return nil, err
		}
		domain = append(domain, z)
	}
	rng, err := b.sort(f.Range())
	if err != nil {
		return nil, err
	}
	d := C.Z3_mk_func_decl(b.ctx.raw, b.ctx.symbol(name), C.uint(len(domain)), ptr(domain), rng)
	if err := b.ctx.check("declare-fun " + name); err != nil {
		return nil, err
	}
	b.funcs[f] = b.ctx.keepDecl(d)
	return d, nil
}

// ast translates t, caching every subterm.
func (b *Backend) ast(t Term) (C.Z3_ast, error) {
	if a, ok := b.asts[t]; ok {
		return a, nil
	}
	if _, err := b.tab.SortOf(t); err != nil {
		return nil, err
	}
	c := b.ctx.raw
	s, err := b.sort(t.Sort())
	if err != nil {
		return nil, err
	}
	args := make([]C.Z3_ast, 0, len(t.Args()))
	if k := t.Kind(); k == termtab.KindApp || k == termtab.KindUF || k == termtab.KindRecord {
		for _, arg := range t.Args() {
			a, err := b.ast(arg)
			if err != nil {
				return nil, err
			}
			args = append(args, a)
		}
	}

	var a C.Z3_ast
	switch t.Kind() {
	case termtab.KindConst:
		name, err := wire(t.SMTLib())
		if err != nil {
			return nil, err
		}
		a = b.ctx.keep(C.Z3_mk_const(c, b.ctx.symbol(name), s))
	case termtab.KindNumeral:
		a = b.ctx.numeral(t.Value().RatString(), s)
	case termtab.KindApp:
		a = b.builtin(t, args)
	case termtab.KindUF:
		d, err := b.fun(t.Func())
		if err != nil {
			return nil, err
		}
		a = b.ctx.keep(C.Z3_mk_app(c, d, C.uint(len(args)), ptr(args)))
	case termtab.KindRecord:
		tup, err := b.tuple(t.Sort())
		if err != nil {
			return nil, err
		}
		a = b.ctx.keep(C.Z3_mk_app(c, tup.ctor, C.uint(len(args)), ptr(args)))
	default:
		// Model values are cached when decoded; anything else is foreign.
		return nil, smt.APIErrorf("%s was not produced by this solver", t)
	}
	if err := b.ctx.check("translate " + t.String()); err != nil {
		return nil, err
	}
	if a == nil {
		return nil, smt.Internalf("z3 returned no term for %s", t)
	}
	b.asts[t] = a
	return a, nil
}

func (b *Backend) fold(args []C.Z3_ast, f func(x, y C.Z3_ast) C.Z3_ast) C.Z3_ast {
	out := args[0]
	for _, y := range args[1:] {
		out = b.ctx.keep(f(out, y))
	}
	return out
}

// chain expands a chainable relation into the conjunction of adjacent pairs.
func (b *Backend) chain(args []C.Z3_ast, f func(x, y C.Z3_ast) C.Z3_ast) C.Z3_ast {
	if len(args) == 2 {
		return b.ctx.keep(f(args[0], args[1]))
	}
	pairs := make([]C.Z3_ast, len(args)-1)
	for i := range pairs {
		pairs[i] = b.ctx.keep(f(args[i], args[i+1]))
	}
	return b.ctx.keep(C.Z3_mk_and(b.ctx.raw, C.uint(len(pairs)), ptr(pairs)))
}

func (b *Backend) builtin(t Term, args []C.Z3_ast) C.Z3_ast {
	c := b.ctx.raw
	fn := t.Fn()
	n, p := C.uint(len(args)), ptr(args)
	keep := b.ctx.keep
	switch fn.Op {
	case ops.True:
		return keep(C.Z3_mk_true(c))
	case ops.False:
		return keep(C.Z3_mk_false(c))
	case ops.Not:
		return keep(C.Z3_mk_not(c, args[0]))
	case ops.Implies:
		out := args[len(args)-1]
		for i := len(args) - 2; i >= 0; i-- {
			out = keep(C.Z3_mk_implies(c, args[i], out))
		}
		return out
	case ops.And:
		return keep(C.Z3_mk_and(c, n, p))
	case ops.Or:
		return keep(C.Z3_mk_or(c, n, p))
	case ops.Xor:
		return b.fold(args, func(x, y C.Z3_ast) C.Z3_ast { return C.Z3_mk_xor(c, x, y) })
	case ops.Eq:
		return b.chain(args, func(x, y C.Z3_ast) C.Z3_ast { return C.Z3_mk_eq(c, x, y) })
	case ops.Distinct:
		return keep(C.Z3_mk_distinct(c, n, p))
	case ops.Ite:
		return keep(C.Z3_mk_ite(c, args[0], args[1], args[2]))

	case ops.Uminus:
		return keep(C.Z3_mk_unary_minus(c, args[0]))
	case ops.Minus:
		return keep(C.Z3_mk_sub(c, n, p))
	case ops.Plus:
		return keep(C.Z3_mk_add(c, n, p))
	case ops.Times:
		return keep(C.Z3_mk_mul(c, n, p))
	case ops.Divide, ops.Div:
		return b.fold(args, func(x, y C.Z3_ast) C.Z3_ast { return C.Z3_mk_div(c, x, y) })
	case ops.Mod:
		return keep(C.Z3_mk_mod(c, args[0], args[1]))
	case ops.Rem:
		return keep(C.Z3_mk_rem(c, args[0], args[1]))
	case ops.Abs:
		zero := keep(C.Z3_mk_int(c, 0, C.Z3_get_sort(c, args[0])))
		nonneg := keep(C.Z3_mk_ge(c, args[0], zero))
		neg := keep(C.Z3_mk_unary_minus(c, args[0]))
		return keep(C.Z3_mk_ite(c, nonneg, args[0], neg))
	case ops.Le:
		return b.chain(args, func(x, y C.Z3_ast) C.Z3_ast { return C.Z3_mk_le(c, x, y) })
	case ops.Lt:
		return b.chain(args, func(x, y C.Z3_ast) C.Z3_ast { return C.Z3_mk_lt(c, x, y) })
	case ops.Ge:
		return b.chain(args, func(x, y C.Z3_ast) C.Z3_ast { return C.Z3_mk_ge(c, x, y) })
	case ops.Gt:
		return b.chain(args, func(x, y C.Z3_ast) C.Z3_ast { return C.Z3_mk_gt(c, x, y) })
	case ops.ToReal:
		return keep(C.Z3_mk_int2real(c, args[0]))
	case ops.ToInt:
		return keep(C.Z3_mk_real2int(c, args[0]))
	case ops.IsInt:
		return keep(C.Z3_mk_is_int(c, args[0]))

	case ops.Select:
		return keep(C.Z3_mk_select(c, args[0], args[1]))
	case ops.Store:
		return keep(C.Z3_mk_store(c, args[0], args[1], args[2]))

	case ops.BvNot:
		return keep(C.Z3_mk_bvnot(c, args[0]))
	case ops.BvAnd:
		return b.fold(args, func(x, y C.Z3_ast) C.Z3_ast { return C.Z3_mk_bvand(c, x, y) })
	case ops.BvOr:
		return b.fold(args, func(x, y C.Z3_ast) C.Z3_ast { return C.Z3_mk_bvor(c, x, y) })
	case ops.BvXor:
		return b.fold(args, func(x, y C.Z3_ast) C.Z3_ast { return C.Z3_mk_bvxor(c, x, y) })
	case ops.BvNand:
		return keep(C.Z3_mk_bvnand(c, args[0], args[1]))
	case ops.BvNor:
		return keep(C.Z3_mk_bvnor(c, args[0], args[1]))
	case ops.BvXnor:
		return keep(C.Z3_mk_bvxnor(c, args[0], args[1]))
	case ops.BvNeg:
		return keep(C.Z3_mk_bvneg(c, args[0]))
	case ops.BvAdd:
		return b.fold(args, func(x, y C.Z3_ast) C.Z3_ast { return C.Z3_mk_bvadd(c, x, y) })
	case ops.BvSub:
		return keep(C.Z3_mk_bvsub(c, args[0], args[1]))
	case ops.BvMul:
		return b.fold(args, func(x, y C.Z3_ast) C.Z3_ast { return C.Z3_mk_bvmul(c, x, y) })
	case ops.BvUdiv:
		return keep(C.Z3_mk_bvudiv(c, args[0], args[1]))
	case ops.BvUrem:
		return keep(C.Z3_mk_bvurem(c, args[0], args[1]))
	case ops.BvSdiv:
		return keep(C.Z3_mk_bvsdiv(c, args[0], args[1]))
	case ops.BvSrem:
		return keep(C.Z3_mk_bvsrem(c, args[0], args[1]))
	case ops.BvSmod:
		return keep(C.Z3_mk_bvsmod(c, args[0], args[1]))
	case ops.BvShl:
		return keep(C.Z3_mk_bvshl(c, args[0], args[1]))
	case ops.BvLshr:
		return keep(C.Z3_mk_bvlshr(c, args[0], args[1]))
	case ops.BvAshr:
		return keep(C.Z3_mk_bvashr(c, args[0], args[1]))
	case ops.BvUlt:
		return keep(C.Z3_mk_bvult(c, args[0], args[1]))
	case ops.BvUle:
		return keep(C.Z3_mk_bvule(c, args[0], args[1]))
	case ops.BvUgt:
		return keep(C.Z3_mk_bvugt(c, args[0], args[1]))
	case ops.BvUge:
		return keep(C.Z3_mk_bvuge(c, args[0], args[1]))
	case ops.BvSlt:
		return keep(C.Z3_mk_bvslt(c, args[0], args[1]))
	case ops.BvSle:
		return keep(C.Z3_mk_bvsle(c, args[0], args[1]))
	case ops.BvSgt:
		return keep(C.Z3_mk_bvsgt(c, args[0], args[1]))
	case ops.BvSge:
		return keep(C.Z3_mk_bvsge(c, args[0], args[1]))
	case ops.BvComp:
		bit := b.ctx.keepSort(C.Z3_mk_bv_sort(c, 1))
		eq := keep(C.Z3_mk_eq(c, args[0], args[1]))
		one := keep(C.Z3_mk_unsigned_int(c, 1, bit))
		zero := keep(C.Z3_mk_unsigned_int(c, 0, bit))
		return keep(C.Z3_mk_ite(c, eq, one, zero))
	case ops.Concat:
		return keep(C.Z3_mk_concat(c, args[0], args[1]))
	case ops.Extract:
		return keep(C.Z3_mk_extract(c, C.uint(fn.Indices[0]), C.uint(fn.Indices[1]), args[0]))
	case ops.ZeroExtend:
		return keep(C.Z3_mk_zero_ext(c, C.uint(fn.Indices[0]), args[0]))
	case ops.SignExtend:
		return keep(C.Z3_mk_sign_ext(c, C.uint(fn.Indices[0]), args[0]))
	case ops.Repeat:
		return keep(C.Z3_mk_repeat(c, C.uint(fn.Indices[0]), args[0]))
	case ops.RotateLeft:
		return keep(C.Z3_mk_rotate_left(c, C.uint(fn.Indices[0]), args[0]))
	case ops.RotateRight:
		return keep(C.Z3_mk_rotate_right(c, C.uint(fn.Indices[0]), args[0]))

	case ops.RecordSelect, ops.RecordUpdate:
		rec := t.Args()[0].Sort()
		tup, err := b.tuple(rec)
		if err != nil {
			return nil
		}
		i := rec.FieldIndex(fn.Field)
		if fn.Op == ops.RecordSelect {
			return keep(C.Z3_mk_app(c, tup.proj[i], 1, &args[0]))
		}
		fields := make([]C.Z3_ast, len(tup.proj))
		for j, proj := range tup.proj {
			if j == i {
				fields[j] = args[1]
				continue
			}
			fields[j] = keep(C.Z3_mk_app(c, proj, 1, &args[0]))
		}
		return keep(C.Z3_mk_app(c, tup.ctor, C.uint(len(fields)), ptr(fields)))
	}
	return nil
}
