package termtab

import (
	"fmt"

	"github.com/netrixframework/smtkit/smt"
	"github.com/netrixframework/smtkit/smt/ops"
)

// BuiltinConst returns true or false.
func (tab *Table) BuiltinConst(op ops.Op) (Term, error) {
	if !op.IsConst() {
		return Term{}, smt.APIErrorf("%s is not a built-in constant", op)
	}
	return tab.Apply(op.Fn(), nil)
}

// BoolLit returns the Bool literal for v.
func (tab *Table) BoolLit(v bool) Term {
	op := ops.False
	if v {
		op = ops.True
	}
	t, _ := tab.Apply(op.Fn(), nil)
	return t
}

// Apply builds a built-in application, inferring its sort. Ill-sorted
// applications are APIErrors.
func (tab *Table) Apply(fn ops.Fn, args []Term) (Term, error) {
	if err := fn.Validate(); err != nil {
		return Term{}, smt.APIErrorf("%s", err)
	}
	if err := fn.CheckArity(len(args)); err != nil {
		return Term{}, smt.APIErrorf("%s", err)
	}
	ids, err := tab.ownTerms(args)
	if err != nil {
		return Term{}, err
	}
	sort, err := tab.infer(fn, ids)
	if err != nil {
		return Term{}, err
	}
	fn.Indices = append([]uint32(nil), fn.Indices...)
	key := termKey("app "+appHead(fn), ids)
	return Term{tab, tab.internTerm(key, termEntry{kind: KindApp, sort: sort, fn: fn, args: ids})}, nil
}

func appHead(fn ops.Fn) string {
	return fmt.Sprintf("%d/%s/%v", fn.Op, fn.Field, fn.Indices)
}

// ApplyUF builds an uninterpreted application.
func (tab *Table) ApplyUF(f Func, args []Term) (Term, error) {
	fe, err := tab.fun(f)
	if err != nil {
		return Term{}, err
	}
	ids, err := tab.ownTerms(args)
	if err != nil {
		return Term{}, err
	}
	if len(ids) != len(fe.args) {
		return Term{}, smt.APIErrorf("%s takes %d arguments, got %d", fe.name, len(fe.args), len(ids))
	}
	for i, id := range ids {
		if got := tab.terms[id].sort; got != fe.args[i] {
			return Term{}, tab.mismatch(fe.name, i, got, fe.args[i])
		}
	}
	key := termKey(fmt.Sprintf("uf %d", f.id), ids)
	return Term{tab, tab.internTerm(key, termEntry{kind: KindUF, sort: fe.ret, fun: f.id, args: ids})}, nil
}

// RecordConst builds a record literal from its field values in order.
func (tab *Table) RecordConst(s Sort, fields []Term) (Term, error) {
	se, err := tab.sort(s)
	if err != nil {
		return Term{}, err
	}
	if se.kind != ops.KindRecord {
		return Term{}, smt.APIErrorf("%s is not a record sort", tab.sortString(s.id))
	}
	ids, err := tab.ownTerms(fields)
	if err != nil {
		return Term{}, err
	}
	if len(ids) != len(se.fields) {
		return Term{}, smt.APIErrorf("record %s has %d fields, got %d values", se.name, len(se.fields), len(ids))
	}
	for i, id := range ids {
		if got := tab.terms[id].sort; got != se.fieldSorts[i] {
			return Term{}, tab.mismatch("mk-"+se.name, i, got, se.fieldSorts[i])
		}
	}
	key := termKey(fmt.Sprintf("rec %d", s.id), ids)
	return Term{tab, tab.internTerm(key, termEntry{kind: KindRecord, sort: s.id, args: ids})}, nil
}

func (tab *Table) mismatch(head string, i int, got, want sortID) error {
	return smt.APIErrorf("%s: argument %d has sort %s, want %s", head, i, tab.sortString(got), tab.sortString(want))
}

func (tab *Table) infer(fn ops.Fn, args []termID) (sortID, error) {
	info := fn.Op.Info()
	head := fn.String()
	sorts := make([]sortID, len(args))
	for i, id := range args {
		sorts[i] = tab.terms[id].sort
	}
	kind := func(i int) ops.SortKind {
		return tab.sorts[sorts[i]].kind
	}
	same := func() error {
		for i := 1; i < len(sorts); i++ {
			if sorts[i] != sorts[0] {
				return tab.mismatch(head, i, sorts[i], sorts[0])
			}
		}
		return nil
	}
	all := func(want sortID) error {
		for i := range sorts {
			if sorts[i] != want {
				return tab.mismatch(head, i, sorts[i], want)
			}
		}
		return nil
	}
	expect := func(i int, k ops.SortKind) error {
		if kind(i) != k {
			return smt.APIErrorf("%s: argument %d has sort %s, want %s", head, i, tab.sortString(sorts[i]), k)
		}
		return nil
	}
	boolS := tab.boolSort()

	switch info.Shape {
	case ops.ShapeBoolConst:
		return boolS, nil
	case ops.ShapeBoolN:
		return boolS, all(boolS)
	case ops.ShapeEqN:
		return boolS, same()
	case ops.ShapeIte:
		if err := expect(0, ops.KindBool); err != nil {
			return 0, err
		}
		if sorts[1] != sorts[2] {
			return 0, tab.mismatch(head, 2, sorts[2], sorts[1])
		}
		return sorts[1], nil
	case ops.ShapeArithN, ops.ShapeArithCmp:
		if err := same(); err != nil {
			return 0, err
		}
		if k := kind(0); k != ops.KindInt && k != ops.KindReal {
			return 0, smt.APIErrorf("%s: arguments have sort %s, want Int or Real", head, tab.sortString(sorts[0]))
		}
		if info.Shape == ops.ShapeArithCmp {
			return boolS, nil
		}
		return sorts[0], nil
	case ops.ShapeIntN, ops.ShapeRealN, ops.ShapeIntToReal, ops.ShapeRealToInt, ops.ShapeRealPred:
		in, out := ops.KindInt, ops.KindInt
		switch info.Shape {
		case ops.ShapeRealN:
			in, out = ops.KindReal, ops.KindReal
		case ops.ShapeIntToReal:
			out = ops.KindReal
		case ops.ShapeRealToInt:
			in = ops.KindReal
		case ops.ShapeRealPred:
			in, out = ops.KindReal, ops.KindBool
		}
		for i := range sorts {
			if err := expect(i, in); err != nil {
				return 0, err
			}
		}
		res, _ := tab.BuiltinSort(ops.Sort{Kind: out})
		return res.id, nil
	case ops.ShapeSelect, ops.ShapeStore:
		if err := expect(0, ops.KindArray); err != nil {
			return 0, err
		}
		arr := tab.sorts[sorts[0]]
		if sorts[1] != arr.domain {
			return 0, tab.mismatch(head, 1, sorts[1], arr.domain)
		}
		if info.Shape == ops.ShapeSelect {
			return arr.rng, nil
		}
		if sorts[2] != arr.rng {
			return 0, tab.mismatch(head, 2, sorts[2], arr.rng)
		}
		return sorts[0], nil
	case ops.ShapeRecordSelect, ops.ShapeRecordUpdate:
		if err := expect(0, ops.KindRecord); err != nil {
			return 0, err
		}
		rec := tab.sorts[sorts[0]]
		idx := Sort{tab, sorts[0]}.FieldIndex(fn.Field)
		if idx < 0 {
			return 0, smt.APIErrorf("record %s has no field %q", rec.name, fn.Field)
		}
		if info.Shape == ops.ShapeRecordSelect {
			return rec.fieldSorts[idx], nil
		}
		if sorts[1] != rec.fieldSorts[idx] {
			return 0, tab.mismatch(head, 1, sorts[1], rec.fieldSorts[idx])
		}
		return sorts[0], nil
	}

	// Bitvector shapes.
	for i := range sorts {
		if err := expect(i, ops.KindBitVec); err != nil {
			return 0, err
		}
	}
	w := tab.sorts[sorts[0]].width
	switch info.Shape {
	case ops.ShapeBvN, ops.ShapeRotate:
		return sorts[0], same()
	case ops.ShapeBvCmp:
		return boolS, same()
	case ops.ShapeBvComp:
		return tab.bvSort(1), same()
	case ops.ShapeConcat:
		return tab.widthSort(head, uint64(w)+uint64(tab.sorts[sorts[1]].width))
	case ops.ShapeExtract:
		hi, lo := fn.Indices[0], fn.Indices[1]
		if hi >= w {
			return 0, smt.APIErrorf("%s: high index %d out of range for width %d", head, hi, w)
		}
		return tab.bvSort(hi - lo + 1), nil
	case ops.ShapeExtend:
		return tab.widthSort(head, uint64(w)+uint64(fn.Indices[0]))
	case ops.ShapeRepeat:
		return tab.widthSort(head, uint64(w)*uint64(fn.Indices[0]))
	}
	return 0, smt.Internalf("%s: no sort rule for shape %d", head, info.Shape)
}

func (tab *Table) widthSort(head string, w uint64) (sortID, error) {
	if w > ops.MaxBitVecWidth {
		return 0, smt.APIErrorf("%s: result width %d exceeds %d", head, w, ops.MaxBitVecWidth)
	}
	return tab.bvSort(uint32(w)), nil
}
