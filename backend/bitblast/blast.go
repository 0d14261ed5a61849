package bitblast

import (
	"math/big"

	"github.com/go-air/gini/z"
	"github.com/netrixframework/smtkit/internal/termtab"
	"github.com/netrixframework/smtkit/smt"
	"github.com/netrixframework/smtkit/smt/ops"
)

func (b *Backend) width(s Sort) (int, error) {
	switch s.Kind() {
	case ops.KindBool:
		return 1, nil
	case ops.KindBitVec:
		return int(s.Width()), nil
	case ops.KindUninterpreted:
		return int(b.opts.UninterpretedWidth), nil
	case ops.KindRecord:
		total := 0
		for _, fs := range s.FieldSorts() {
			w, err := b.width(fs)
			if err != nil {
				return 0, err
			}
			total += w
		}
		return total, nil
	}
	return 0, smt.Unsupportedf("bitblast cannot encode sort %s", s.Kind())
}

// field returns the bit range of a record field.
func (b *Backend) field(rec Sort, name string) (lo, hi int, err error) {
	idx := rec.FieldIndex(name)
	for i, fs := range rec.FieldSorts() {
		w, err := b.width(fs)
		if err != nil {
			return 0, 0, err
		}
		if i == idx {
			return lo, lo + w, nil
		}
		lo += w
	}
	return 0, 0, smt.APIErrorf("record %s has no field %q", rec.Name(), name)
}

func (b *Backend) blast(t Term) (bits, error) {
	if b.closed {
		return nil, smt.APIErrorf("backend is closed")
	}
	if enc, ok := b.enc[t]; ok {
		return enc, nil
	}
	// Validates ownership before any accessor is used.
	if _, err := b.tab.SortOf(t); err != nil {
		return nil, err
	}
	w, err := b.width(t.Sort())
	if err != nil {
		return nil, err
	}
	var enc bits
	switch t.Kind() {
	case termtab.KindConst:
		enc = fresh(b.c, w)
	case termtab.KindNumeral:
		enc = constBits(b.c, t.Value().Num(), w)
	case termtab.KindElement:
		enc = constBits(b.c, new(big.Int).SetUint64(t.Element()), w)
	case termtab.KindRecord:
		for _, a := range t.Args() {
			ab, err := b.blast(a)
			if err != nil {
				return nil, err
			}
			enc = append(enc, ab...)
		}
	case termtab.KindUF:
		enc, err = b.blastUF(t, w)
	case termtab.KindApp:
		enc, err = b.blastApp(t)
	default:
		err = smt.Internalf("bitblast cannot encode %s", t)
	}
	if err != nil {
		return nil, err
	}
	b.enc[t] = enc
	return enc, nil
}

// blastUF gives an application fresh result bits and adds, for every earlier
// application of the same function, the constraint that equal arguments
// imply equal results.
func (b *Backend) blastUF(t Term, w int) (bits, error) {
	args := t.Args()
	encArgs := make([]bits, len(args))
	for i, a := range args {
		ab, err := b.blast(a)
		if err != nil {
			return nil, err
		}
		encArgs[i] = ab
	}
	res := fresh(b.c, w)
	f := t.Func().ID()
	for _, other := range b.apps[f] {
		oenc := b.enc[other]
		same := make([]z.Lit, len(args))
		for i, oa := range other.Args() {
			same[i] = eq(b.c, encArgs[i], b.enc[oa])
		}
		b.axioms = append(b.axioms, b.c.Implies(ands(b.c, same...), eq(b.c, res, oenc)))
	}
	b.apps[f] = append(b.apps[f], t)
	if b.model != nil {
		b.late = append(b.late, t)
	}
	return res, nil
}

func (b *Backend) blastApp(t Term) (bits, error) {
	fn := t.Fn()
	args := t.Args()
	in := make([]bits, len(args))
	for i, a := range args {
		ab, err := b.blast(a)
		if err != nil {
			return nil, err
		}
		in[i] = ab
	}
	c := b.c
	lits := func() []z.Lit {
		out := make([]z.Lit, len(in))
		for i, a := range in {
			out[i] = a[0]
		}
		return out
	}
	fold := func(f func(x, y bits) bits) bits {
		acc := in[0]
		for _, a := range in[1:] {
			acc = f(acc, a)
		}
		return acc
	}
	bitwise := func(g func(x, y z.Lit) z.Lit) func(x, y bits) bits {
		return func(x, y bits) bits { return zip(x, y, g) }
	}
	one := func(m z.Lit) bits { return bits{m} }

	switch fn.Op {
	case ops.True:
		return one(c.T), nil
	case ops.False:
		return one(c.F), nil
	case ops.Not:
		return one(in[0][0].Not()), nil
	case ops.And:
		return one(ands(c, lits()...)), nil
	case ops.Or:
		return one(ors(c, lits()...)), nil
	case ops.Xor:
		return fold(bitwise(c.Xor)), nil
	case ops.Implies:
		ms := lits()
		r := ms[len(ms)-1]
		for i := len(ms) - 2; i >= 0; i-- {
			r = c.Implies(ms[i], r)
		}
		return one(r), nil
	case ops.Eq:
		ms := make([]z.Lit, 0, len(in)-1)
		for i := 1; i < len(in); i++ {
			ms = append(ms, eq(c, in[i-1], in[i]))
		}
		return one(ands(c, ms...)), nil
	case ops.Distinct:
		var ms []z.Lit
		for i := range in {
			for j := i + 1; j < len(in); j++ {
				ms = append(ms, eq(c, in[i], in[j]).Not())
			}
		}
		return one(ands(c, ms...)), nil
	case ops.Ite:
		return ite(c, in[0][0], in[1], in[2]), nil

	case ops.BvNot:
		return not(in[0]), nil
	case ops.BvAnd:
		return fold(bitwise(c.And)), nil
	case ops.BvOr:
		return fold(bitwise(c.Or)), nil
	case ops.BvXor:
		return fold(bitwise(c.Xor)), nil
	case ops.BvNand:
		return not(zip(in[0], in[1], c.And)), nil
	case ops.BvNor:
		return not(zip(in[0], in[1], c.Or)), nil
	case ops.BvXnor:
		return not(zip(in[0], in[1], c.Xor)), nil
	case ops.BvNeg:
		return neg(c, in[0]), nil
	case ops.BvAdd:
		return fold(func(x, y bits) bits { return sum(c, x, y) }), nil
	case ops.BvSub:
		d, _ := sub(c, in[0], in[1])
		return d, nil
	case ops.BvMul:
		return fold(func(x, y bits) bits { return mul(c, x, y) }), nil
	case ops.BvUdiv:
		q, _ := udivrem(c, in[0], in[1])
		return q, nil
	case ops.BvUrem:
		_, r := udivrem(c, in[0], in[1])
		return r, nil
	case ops.BvSdiv:
		return sdiv(c, in[0], in[1]), nil
	case ops.BvSrem:
		return srem(c, in[0], in[1]), nil
	case ops.BvSmod:
		return smod(c, in[0], in[1]), nil
	case ops.BvShl:
		return shift(c, in[0], in[1], true, c.F), nil
	case ops.BvLshr:
		return shift(c, in[0], in[1], false, c.F), nil
	case ops.BvAshr:
		return shift(c, in[0], in[1], false, msb(in[0])), nil
	case ops.BvUlt:
		return one(ult(c, in[0], in[1])), nil
	case ops.BvUle:
		return one(ult(c, in[1], in[0]).Not()), nil
	case ops.BvUgt:
		return one(ult(c, in[1], in[0])), nil
	case ops.BvUge:
		return one(ult(c, in[0], in[1]).Not()), nil
	case ops.BvSlt:
		return one(slt(c, in[0], in[1])), nil
	case ops.BvSle:
		return one(slt(c, in[1], in[0]).Not()), nil
	case ops.BvSgt:
		return one(slt(c, in[1], in[0])), nil
	case ops.BvSge:
		return one(slt(c, in[0], in[1]).Not()), nil
	case ops.BvComp:
		return one(eq(c, in[0], in[1])), nil
	case ops.Concat:
		return append(append(bits{}, in[1]...), in[0]...), nil
	case ops.Extract:
		hi, lo := fn.Indices[0], fn.Indices[1]
		return append(bits{}, in[0][lo:hi+1]...), nil
	case ops.ZeroExtend:
		return append(append(bits{}, in[0]...), zeros(c, int(fn.Indices[0]))...), nil
	case ops.SignExtend:
		out := append(bits{}, in[0]...)
		for i := uint32(0); i < fn.Indices[0]; i++ {
			out = append(out, msb(in[0]))
		}
		return out, nil
	case ops.Repeat:
		var out bits
		for i := uint32(0); i < fn.Indices[0]; i++ {
			out = append(out, in[0]...)
		}
		return out, nil
	case ops.RotateLeft:
		return rotate(in[0], int(fn.Indices[0]), true), nil
	case ops.RotateRight:
		return rotate(in[0], int(fn.Indices[0]), false), nil

	case ops.RecordSelect:
		lo, hi, err := b.field(args[0].Sort(), fn.Field)
		if err != nil {
			return nil, err
		}
		return append(bits{}, in[0][lo:hi]...), nil
	case ops.RecordUpdate:
		lo, hi, err := b.field(args[0].Sort(), fn.Field)
		if err != nil {
			return nil, err
		}
		out := append(bits{}, in[0]...)
		copy(out[lo:hi], in[1])
		return out, nil
	}
	return nil, smt.Unsupportedf("bitblast does not support %s", fn)
}
