package bitblast

import (
	"math/big"

	"github.com/go-air/gini/z"
	"github.com/netrixframework/smtkit/smt"
	"github.com/netrixframework/smtkit/smt/ops"
)

// extendModel evaluates gates added since the last check. Applications of
// uninterpreted functions built after the check take the result of an
// earlier application with equal argument values, keeping the model
// functionally consistent.
func (b *Backend) extendModel() error {
	if len(b.model) == b.c.Len() && len(b.late) == 0 {
		return nil
	}
	vs := make([]bool, b.c.Len())
	copy(vs, b.model)
	b.model = vs
	b.c.Eval(b.model)

	for _, t := range b.late {
		res := b.enc[t]
		args := t.Args()
		for _, other := range b.apps[t.Func().ID()] {
			if other == t {
				break
			}
			match := true
			for i, oa := range other.Args() {
				if !b.sameValue(b.enc[args[i]], b.enc[oa]) {
					match = false
					break
				}
			}
			if !match {
				continue
			}
			for i, m := range b.enc[other] {
				b.set(res[i], b.eval(m))
			}
			b.c.Eval(b.model)
			break
		}
	}
	b.late = nil
	return nil
}

func (b *Backend) set(m z.Lit, v bool) {
	if !m.IsPos() {
		v = !v
	}
	b.model[m.Var()] = v
}

func (b *Backend) eval(m z.Lit) bool {
	v := b.model[m.Var()]
	if !m.IsPos() {
		return !v
	}
	return v
}

func (b *Backend) sameValue(x, y bits) bool {
	for i := range x {
		if b.eval(x[i]) != b.eval(y[i]) {
			return false
		}
	}
	return true
}

func toInt(vals []bool) *big.Int {
	v := new(big.Int)
	for i, bit := range vals {
		if bit {
			v.SetBit(v, i, 1)
		}
	}
	return v
}

func (b *Backend) decode(s Sort, vals []bool) (Term, error) {
	switch s.Kind() {
	case ops.KindBool:
		return b.tab.BoolLit(vals[0]), nil
	case ops.KindBitVec:
		return b.tab.BVLit(s.Width(), toInt(vals)), nil
	case ops.KindUninterpreted:
		return b.tab.Element(s, toInt(vals).Uint64())
	case ops.KindRecord:
		fields := s.FieldSorts()
		out := make([]Term, len(fields))
		lo := 0
		for i, fs := range fields {
			w, err := b.width(fs)
			if err != nil {
				return Term{}, err
			}
			v, err := b.decode(fs, vals[lo:lo+w])
			if err != nil {
				return Term{}, err
			}
			out[i] = v
			lo += w
		}
		return b.tab.RecordConst(s, out)
	}
	return Term{}, smt.Unsupportedf("bitblast cannot decode sort %s", s.Kind())
}
