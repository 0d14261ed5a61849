package termtab

import (
	"math/big"
	"strconv"

	"github.com/netrixframework/smtkit/smt"
	"github.com/netrixframework/smtkit/smt/ops"
)

// Numeral builds an Int, Real or BitVec literal. Bitvector values are reduced
// modulo 2^width.
func (tab *Table) Numeral(n smt.Numeral, s Sort) (Term, error) {
	e, err := tab.sort(s)
	if err != nil {
		return Term{}, err
	}
	switch e.kind {
	case ops.KindInt:
		if !n.IsIntegral() {
			return Term{}, smt.APIErrorf("Int numeral %s has a fractional part", n)
		}
		return tab.numeral(s.id, new(big.Rat).SetInt(n.BigInt())), nil
	case ops.KindReal:
		return tab.numeral(s.id, n.Rat()), nil
	case ops.KindBitVec:
		if !n.IsIntegral() {
			return Term{}, smt.APIErrorf("bitvector numeral %s has a fractional part", n)
		}
		return tab.BVLit(e.width, n.BigInt()), nil
	}
	return Term{}, smt.APIErrorf("numerals are not defined for %s", tab.sortString(s.id))
}

func (tab *Table) numeral(s sortID, v *big.Rat) Term {
	key := "num " + tab.sortString(s) + " " + v.RatString()
	return Term{tab, tab.internTerm(key, termEntry{kind: KindNumeral, sort: s, value: v})}
}

// IntLit returns the Int literal v.
func (tab *Table) IntLit(v *big.Int) Term {
	s, _ := tab.BuiltinSort(ops.Int)
	return tab.numeral(s.id, new(big.Rat).SetInt(v))
}

// RealLit returns the Real literal v.
func (tab *Table) RealLit(v *big.Rat) Term {
	s, _ := tab.BuiltinSort(ops.Real)
	return tab.numeral(s.id, new(big.Rat).Set(v))
}

// BVLit returns the bitvector literal v mod 2^width.
func (tab *Table) BVLit(width uint32, v *big.Int) Term {
	mod := new(big.Int).Lsh(big.NewInt(1), uint(width))
	r := new(big.Int).Mod(v, mod)
	return tab.numeral(tab.bvSort(width), new(big.Rat).SetInt(r))
}

// Element returns the idx-th abstract element of an uninterpreted sort.
func (tab *Table) Element(s Sort, idx uint64) (Term, error) {
	e, err := tab.sort(s)
	if err != nil {
		return Term{}, err
	}
	if e.kind != ops.KindUninterpreted {
		return Term{}, smt.APIErrorf("%s is not an uninterpreted sort", tab.sortString(s.id))
	}
	key := "elem " + tab.sortString(s.id) + " " + strconv.FormatUint(idx, 10)
	return Term{tab, tab.internTerm(key, termEntry{kind: KindElement, sort: s.id, elem: idx})}, nil
}

// Opaque wraps SMT-LIB text as a model value of sort s.
func (tab *Table) Opaque(s Sort, text string) (Term, error) {
	if _, err := tab.sort(s); err != nil {
		return Term{}, err
	}
	key := "opaque " + tab.sortString(s.id) + " " + text
	return Term{tab, tab.internTerm(key, termEntry{kind: KindOpaque, sort: s.id, name: text})}, nil
}

// Int64 implements smt.Term.
func (t Term) Int64() (int64, error) {
	if t.tab == nil || int(t.id) >= len(t.tab.terms) {
		return 0, smt.Internalf("invalid term handle")
	}
	e := &t.tab.terms[t.id]
	if e.kind != KindNumeral {
		return 0, smt.APIErrorf("%s is not a numeral", t)
	}
	if !e.value.IsInt() {
		return 0, smt.APIErrorf("%s is not integral", t)
	}
	if n := e.value.Num(); n.IsInt64() {
		return n.Int64(), nil
	}
	return 0, smt.APIErrorf("%s does not fit in an int64", t)
}
