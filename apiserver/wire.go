package apiserver

import (
	"strconv"

	"github.com/netrixframework/smtkit/smt"
	"github.com/netrixframework/smtkit/smt/ops"
)

// SortSpec names a sort in requests. Name is one of Bool, Int, Real, BitVec
// (with Width) and Array (with two Args), or a declared sort.
type SortSpec struct {
	Name  string     `json:"name"`
	Width uint32     `json:"width,omitempty"`
	Args  []SortSpec `json:"args,omitempty"`
}

// TermSpec is a term as a JSON expression tree. Exactly one of Const, Int,
// Op, Fun and Record is set.
//
//	{"const": "x"}
//	{"int": "-5", "sort": {"name": "Int"}}
//	{"op": "extract", "indices": [7, 0], "args": [...]}
//	{"op": "record-select", "field": "x", "args": [...]}
//	{"fun": "f", "args": [...]}
//	{"record": "Point", "args": [...]}
type TermSpec struct {
	Const   string     `json:"const,omitempty"`
	Int     string     `json:"int,omitempty"`
	Sort    *SortSpec  `json:"sort,omitempty"`
	Op      string     `json:"op,omitempty"`
	Indices []uint32   `json:"indices,omitempty"`
	Field   string     `json:"field,omitempty"`
	Fun     string     `json:"fun,omitempty"`
	Record  string     `json:"record,omitempty"`
	Args    []TermSpec `json:"args,omitempty"`
}

// OpEntry describes one operator of the taxonomy
type OpEntry struct {
	Name    string `json:"name"`
	Theory  string `json:"theory"`
	MinArgs int    `json:"min_args"`
	MaxArgs int    `json:"max_args"`
	Indices int    `json:"indices,omitempty"`
	Field   bool   `json:"field,omitempty"`
}

// DeclareSortRequest is the body of POST /sessions/:id/sorts
type DeclareSortRequest struct {
	Name string `json:"name" binding:"required"`
}

type FieldSpec struct {
	Name string   `json:"name"`
	Sort SortSpec `json:"sort"`
}

type DeclareRecordRequest struct {
	Name   string      `json:"name" binding:"required"`
	Fields []FieldSpec `json:"fields"`
}

type DeclareFunRequest struct {
	Name string     `json:"name" binding:"required"`
	Args []SortSpec `json:"args"`
	Ret  SortSpec   `json:"ret"`
}

type DeclareConstRequest struct {
	Name string   `json:"name" binding:"required"`
	Sort SortSpec `json:"sort"`
}

// TermRequest is the body of assert and value
type TermRequest struct {
	Term TermSpec `json:"term"`
}

// ScopeRequest is the body of push and pop
type ScopeRequest struct {
	N uint32 `json:"n"`
}

var builtinSorts = map[string]ops.Sort{
	"Bool": ops.Bool,
	"Int":  ops.Int,
	"Real": ops.Real,
}

func resolveSort[S smt.Sort, T smt.Term, F smt.UninterpretedFunction](s *smt.Session[S, T, F], spec SortSpec) (S, error) {
	var zero S
	if b, ok := builtinSorts[spec.Name]; ok {
		return s.LookupSort(b)
	}
	switch spec.Name {
	case "BitVec":
		return s.LookupSort(ops.BitVec(spec.Width))
	case "Array":
		if len(spec.Args) != 2 {
			return zero, smt.APIErrorf("Array takes 2 sort arguments, got %d", len(spec.Args))
		}
		d, err := resolveSort(s, spec.Args[0])
		if err != nil {
			return zero, err
		}
		r, err := resolveSort(s, spec.Args[1])
		if err != nil {
			return zero, err
		}
		return s.ApplySort(ops.Array, d, r)
	}
	if sort, ok := s.SortNamed(spec.Name); ok {
		return sort, nil
	}
	return zero, smt.APIErrorf("unknown sort %q", spec.Name)
}

func resolveSorts[S smt.Sort, T smt.Term, F smt.UninterpretedFunction](s *smt.Session[S, T, F], specs []SortSpec) ([]S, error) {
	out := make([]S, len(specs))
	for i, spec := range specs {
		sort, err := resolveSort(s, spec)
		if err != nil {
			return nil, err
		}
		out[i] = sort
	}
	return out, nil
}

func resolveTerm[S smt.Sort, T smt.Term, F smt.UninterpretedFunction](s *smt.Session[S, T, F], spec TermSpec) (T, error) {
	var zero T
	args := make([]T, len(spec.Args))
	for i, a := range spec.Args {
		t, err := resolveTerm(s, a)
		if err != nil {
			return zero, err
		}
		args[i] = t
	}
	switch {
	case spec.Const != "":
		if t, ok := s.ConstNamed(spec.Const); ok {
			return t, nil
		}
		if o, ok := ops.Lookup(spec.Const); ok && o.IsConst() {
			return s.LookupConst(o)
		}
		return zero, smt.APIErrorf("unknown constant %q", spec.Const)
	case spec.Int != "":
		if spec.Sort == nil {
			return zero, smt.APIErrorf("numeral %s has no sort", spec.Int)
		}
		sort, err := resolveSort(s, *spec.Sort)
		if err != nil {
			return zero, err
		}
		if v, err := strconv.ParseInt(spec.Int, 10, 64); err == nil {
			return s.ConstFromInt(v, sort)
		}
		return s.ConstFromString(spec.Int, sort)
	case spec.Op != "":
		o, ok := ops.Lookup(spec.Op)
		if !ok {
			return zero, smt.APIErrorf("unknown operator %q", spec.Op)
		}
		if o == ops.Minus && len(args) == 1 {
			o = ops.Uminus
		}
		fn := ops.Fn{Op: o, Field: spec.Field, Indices: spec.Indices}
		return s.ApplyFun(smt.Builtin[F](fn), args)
	case spec.Fun != "":
		f, ok := s.FunNamed(spec.Fun)
		if !ok {
			return zero, smt.APIErrorf("unknown function %q", spec.Fun)
		}
		return s.ApplyFun(smt.UF(f), args)
	case spec.Record != "":
		sort, ok := s.SortNamed(spec.Record)
		if !ok || !s.IsRecordSort(sort) {
			return zero, smt.APIErrorf("unknown record sort %q", spec.Record)
		}
		return s.RecordConst(sort, args)
	}
	return zero, smt.APIErrorf("empty term")
}

type renderable interface {
	SMTLib() (string, error)
}

func render(t renderable) string {
	text, err := t.SMTLib()
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return text
}
