// Package termtab is the backend-owned store of sorts, terms and function
// symbols used by the in-process adapters.
//
// Every structural term is hash-consed, so two applications of the same
// symbol to the same arguments share one handle. Handles carry a pointer to
// their table and are plain comparable values.
package termtab

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/netrixframework/smtkit/smt"
	"github.com/netrixframework/smtkit/smt/ops"
)

type (
	sortID uint32
	termID uint32
	funcID uint32
)

// TermKind classifies table terms.
type TermKind uint8

const (
	// KindConst is a declared constant.
	KindConst TermKind = iota + 1
	// KindApp is a built-in application, including true and false.
	KindApp
	// KindUF is an uninterpreted function application.
	KindUF
	// KindRecord is a record literal.
	KindRecord
	// KindNumeral is an Int, Real or BitVec literal.
	KindNumeral
	// KindElement is an abstract element of an uninterpreted sort, only
	// produced as a model value.
	KindElement
	// KindOpaque is a model value kept as SMT-LIB text.
	KindOpaque
)

type sortEntry struct {
	kind       ops.SortKind
	width      uint32
	name, wire string
	domain     sortID
	rng        sortID
	fields     []string
	fieldSorts []sortID
}

type funcEntry struct {
	name, wire string
	args       []sortID
	ret        sortID
}

type termEntry struct {
	kind  TermKind
	sort  sortID
	fn    ops.Fn
	fun   funcID
	args  []termID
	name  string
	wire  string
	value *big.Rat
	elem  uint64
}

// Table stores everything one session declares or builds. It is not safe
// for concurrent use.
type Table struct {
	sorts []sortEntry
	funcs []funcEntry
	terms []termEntry

	sortKeys map[string]sortID
	termKeys map[string]termID
	wires    map[string]struct{}
}

// New returns an empty table.
func New() *Table {
	return &Table{
		sortKeys: make(map[string]sortID),
		termKeys: make(map[string]termID),
		wires:    make(map[string]struct{}),
	}
}

// Stats reports the table sizes.
func (tab *Table) Stats() (sorts, funcs, terms int) {
	return len(tab.sorts), len(tab.funcs), len(tab.terms)
}

// Sort is a table sort handle.
type Sort struct {
	tab *Table
	id  sortID
}

// Term is a table term handle.
type Term struct {
	tab *Table
	id  termID
}

// Func is a table function symbol handle.
type Func struct {
	tab *Table
	id  funcID
}

func (tab *Table) sort(s Sort) (*sortEntry, error) {
	if s.tab != tab || int(s.id) >= len(tab.sorts) {
		return nil, smt.APIErrorf("sort does not belong to this session")
	}
	return &tab.sorts[s.id], nil
}

func (tab *Table) term(t Term) (*termEntry, error) {
	if t.tab != tab || int(t.id) >= len(tab.terms) {
		return nil, smt.APIErrorf("term does not belong to this session")
	}
	return &tab.terms[t.id], nil
}

func (tab *Table) fun(f Func) (*funcEntry, error) {
	if f.tab != tab || int(f.id) >= len(tab.funcs) {
		return nil, smt.APIErrorf("function does not belong to this session")
	}
	return &tab.funcs[f.id], nil
}

func (tab *Table) ownTerms(ts []Term) ([]termID, error) {
	ids := make([]termID, len(ts))
	for i, t := range ts {
		if _, err := tab.term(t); err != nil {
			return nil, err
		}
		ids[i] = t.id
	}
	return ids, nil
}

func (tab *Table) ownSorts(ss []Sort) ([]sortID, error) {
	ids := make([]sortID, len(ss))
	for i, s := range ss {
		if _, err := tab.sort(s); err != nil {
			return nil, err
		}
		ids[i] = s.id
	}
	return ids, nil
}

func (tab *Table) internSort(key string, e sortEntry) sortID {
	if id, ok := tab.sortKeys[key]; ok {
		return id
	}
	id := sortID(len(tab.sorts))
	tab.sorts = append(tab.sorts, e)
	tab.sortKeys[key] = id
	return id
}

func (tab *Table) newSort(e sortEntry) sortID {
	id := sortID(len(tab.sorts))
	tab.sorts = append(tab.sorts, e)
	return id
}

func (tab *Table) internTerm(key string, e termEntry) termID {
	if id, ok := tab.termKeys[key]; ok {
		return id
	}
	id := tab.newTerm(e)
	tab.termKeys[key] = id
	return id
}

func (tab *Table) newTerm(e termEntry) termID {
	id := termID(len(tab.terms))
	tab.terms = append(tab.terms, e)
	return id
}

func (tab *Table) boolSort() sortID {
	return tab.internSort("Bool", sortEntry{kind: ops.KindBool})
}

func (tab *Table) bvSort(width uint32) sortID {
	return tab.internSort(fmt.Sprintf("bv%d", width), sortEntry{kind: ops.KindBitVec, width: width})
}

// BoolSort returns Bool.
func (tab *Table) BoolSort() Sort {
	return Sort{tab, tab.boolSort()}
}

// BitVecSort returns (_ BitVec width).
func (tab *Table) BitVecSort(width uint32) Sort {
	return Sort{tab, tab.bvSort(width)}
}

// BuiltinSort returns a nullary built-in sort.
func (tab *Table) BuiltinSort(b ops.Sort) (Sort, error) {
	switch b.Kind {
	case ops.KindBool:
		return tab.BoolSort(), nil
	case ops.KindInt:
		return Sort{tab, tab.internSort("Int", sortEntry{kind: ops.KindInt})}, nil
	case ops.KindReal:
		return Sort{tab, tab.internSort("Real", sortEntry{kind: ops.KindReal})}, nil
	case ops.KindBitVec:
		if b.Width == 0 {
			return Sort{}, smt.APIErrorf("bitvector width must be positive")
		}
		if b.Width > ops.MaxBitVecWidth {
			return Sort{}, smt.APIErrorf("bitvector width %d exceeds %d", b.Width, ops.MaxBitVecWidth)
		}
		return tab.BitVecSort(b.Width), nil
	}
	return Sort{}, smt.APIErrorf("%s is not a nullary built-in sort", b)
}

// ArraySort returns (Array domain rng).
func (tab *Table) ArraySort(domain, rng Sort) (Sort, error) {
	if _, err := tab.sort(domain); err != nil {
		return Sort{}, err
	}
	if _, err := tab.sort(rng); err != nil {
		return Sort{}, err
	}
	key := fmt.Sprintf("Array %d %d", domain.id, rng.id)
	return Sort{tab, tab.internSort(key, sortEntry{kind: ops.KindArray, domain: domain.id, rng: rng.id})}, nil
}

// DeclareSort creates a fresh uninterpreted sort.
func (tab *Table) DeclareSort(name string) Sort {
	return Sort{tab, tab.newSort(sortEntry{kind: ops.KindUninterpreted, name: name, wire: tab.claim(name)})}
}

// RecordSort creates a fresh record sort. Field names are assumed distinct.
func (tab *Table) RecordSort(name string, fields []string, sorts []Sort) (Sort, error) {
	if len(fields) != len(sorts) {
		return Sort{}, smt.APIErrorf("record %s has %d fields but %d sorts", name, len(fields), len(sorts))
	}
	ids, err := tab.ownSorts(sorts)
	if err != nil {
		return Sort{}, err
	}
	wire := tab.claimRecord(name, fields)
	return Sort{tab, tab.newSort(sortEntry{
		kind:       ops.KindRecord,
		name:       name,
		wire:       wire,
		fields:     append([]string(nil), fields...),
		fieldSorts: ids,
	})}, nil
}

// DeclareFun creates a fresh function symbol.
func (tab *Table) DeclareFun(name string, args []Sort, ret Sort) (Func, error) {
	ids, err := tab.ownSorts(args)
	if err != nil {
		return Func{}, err
	}
	if _, err := tab.sort(ret); err != nil {
		return Func{}, err
	}
	id := funcID(len(tab.funcs))
	tab.funcs = append(tab.funcs, funcEntry{name: name, wire: tab.claim(name), args: ids, ret: ret.id})
	return Func{tab, id}, nil
}

// DeclareConst creates a fresh constant.
func (tab *Table) DeclareConst(name string, s Sort) (Term, error) {
	if _, err := tab.sort(s); err != nil {
		return Term{}, err
	}
	return Term{tab, tab.newTerm(termEntry{kind: KindConst, sort: s.id, name: name, wire: tab.claim(name)})}, nil
}

// SortOf returns the sort of t.
func (tab *Table) SortOf(t Term) (Sort, error) {
	e, err := tab.term(t)
	if err != nil {
		return Sort{}, err
	}
	return Sort{tab, e.sort}, nil
}

// Describe classifies s.
func (tab *Table) Describe(s Sort) (ops.Sort, error) {
	e, err := tab.sort(s)
	if err != nil {
		return ops.Sort{}, err
	}
	return ops.Sort{Kind: e.kind, Width: e.width}, nil
}

// Kind returns the sort kind.
func (s Sort) Kind() ops.SortKind {
	if s.tab == nil {
		return 0
	}
	return s.tab.sorts[s.id].kind
}

// Width returns the bitvector width, 0 for other sorts.
func (s Sort) Width() uint32 {
	if s.tab == nil {
		return 0
	}
	return s.tab.sorts[s.id].width
}

// Name returns the declared name of an uninterpreted or record sort.
func (s Sort) Name() string {
	if s.tab == nil {
		return ""
	}
	return s.tab.sorts[s.id].name
}

// Domain and Range return the index and element sorts of an array sort.
func (s Sort) Domain() Sort {
	return Sort{s.tab, s.tab.sorts[s.id].domain}
}

// Range returns the element sort of an array sort.
func (s Sort) Range() Sort {
	return Sort{s.tab, s.tab.sorts[s.id].rng}
}

// Fields returns the field names of a record sort.
func (s Sort) Fields() []string {
	if s.tab == nil {
		return nil
	}
	return append([]string(nil), s.tab.sorts[s.id].fields...)
}

// FieldSorts returns the field sorts of a record sort.
func (s Sort) FieldSorts() []Sort {
	if s.tab == nil {
		return nil
	}
	e := &s.tab.sorts[s.id]
	out := make([]Sort, len(e.fieldSorts))
	for i, id := range e.fieldSorts {
		out[i] = Sort{s.tab, id}
	}
	return out
}

// FieldIndex returns the position of a record field, -1 if absent.
func (s Sort) FieldIndex(name string) int {
	if s.tab == nil {
		return -1
	}
	for i, f := range s.tab.sorts[s.id].fields {
		if f == name {
			return i
		}
	}
	return -1
}

// Kind returns the term kind.
func (t Term) Kind() TermKind {
	if t.tab == nil {
		return 0
	}
	return t.tab.terms[t.id].kind
}

// Sort returns the sort of t.
func (t Term) Sort() Sort {
	return Sort{t.tab, t.tab.terms[t.id].sort}
}

// Fn returns the symbol of a built-in application.
func (t Term) Fn() ops.Fn {
	return t.tab.terms[t.id].fn
}

// Func returns the symbol of an uninterpreted application.
func (t Term) Func() Func {
	return Func{t.tab, t.tab.terms[t.id].fun}
}

// Args returns the arguments of an application or record literal.
func (t Term) Args() []Term {
	e := &t.tab.terms[t.id]
	out := make([]Term, len(e.args))
	for i, id := range e.args {
		out[i] = Term{t.tab, id}
	}
	return out
}

// Value returns the value of a numeral.
func (t Term) Value() *big.Rat {
	v := t.tab.terms[t.id].value
	if v == nil {
		return nil
	}
	return new(big.Rat).Set(v)
}

// Element returns the index of an abstract element.
func (t Term) Element() uint64 {
	return t.tab.terms[t.id].elem
}

// ID is a dense index of t within its table.
func (t Term) ID() int {
	return int(t.id)
}

// Name implements smt.UninterpretedFunction.
func (f Func) Name() (string, error) {
	if f.tab == nil || int(f.id) >= len(f.tab.funcs) {
		return "", smt.Internalf("invalid function handle")
	}
	return f.tab.funcs[f.id].name, nil
}

// Domain returns the argument sorts of f.
func (f Func) Domain() []Sort {
	e := &f.tab.funcs[f.id]
	out := make([]Sort, len(e.args))
	for i, id := range e.args {
		out[i] = Sort{f.tab, id}
	}
	return out
}

// Range returns the result sort of f.
func (f Func) Range() Sort {
	return Sort{f.tab, f.tab.funcs[f.id].ret}
}

// ID is a dense index of f within its table.
func (f Func) ID() int {
	return int(f.id)
}

func termKey(prefix string, ids []termID) string {
	var sb strings.Builder
	sb.WriteString(prefix)
	for _, id := range ids {
		fmt.Fprintf(&sb, " %d", id)
	}
	return sb.String()
}
