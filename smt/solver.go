package smt

import "github.com/netrixframework/smtkit/smt/ops"

// Solver is the client-facing contract. It mirrors the SMT-LIB commands:
// declarations, term construction, the assertion stack, check-sat and
// get-value. *Session implements it for any Backend.
type Solver[S Sort, T Term, F UninterpretedFunction] interface {
	// GetSort returns the sort of t.
	GetSort(t T) (S, error)
	// DeclareSort declares a new uninterpreted sort. Only InternalError is possible.
	DeclareSort(name string) (S, error)
	// LookupSort returns a built-in sort. APIError if s is a sort constructor.
	LookupSort(s ops.Sort) (S, error)
	// ApplySort applies an arity 2 sort constructor. APIError otherwise.
	ApplySort(ctor ops.Sort, s1, s2 S) (S, error)
	// DeclareRecordSort declares a record with the given field names and sorts.
	// APIError on length mismatch, duplicate field names, or if a record of
	// the same name exists.
	DeclareRecordSort(name string, fields []string, sorts []S) (S, error)
	// IsRecordSort reports whether s is a record sort.
	IsRecordSort(s S) bool

	// DeclareFun declares an uninterpreted function. Only InternalError is possible.
	DeclareFun(name string, args []S, ret S) (F, error)

	// DeclareConst declares a constant. Only InternalError is possible.
	DeclareConst(name string, s S) (T, error)
	// LookupConst returns a built-in constant. APIError if f is not one.
	LookupConst(f ops.Applicable) (T, error)
	// ConstFromInt builds an Int, Real or BitVec constant. For bitvectors the
	// value must be non-negative and fit the width.
	ConstFromInt(value int64, s S) (T, error)
	// ConstFromString builds an Int, Real or BitVec constant from decimal
	// digits. Overflow of the bitvector width is not checked.
	ConstFromString(value string, s S) (T, error)
	// RecordConst builds a record literal from its field values in order.
	RecordConst(s S, fields []T) (T, error)
	// ApplyFun applies a built-in or uninterpreted function. UnsupportedError
	// if the backend lacks the built-in.
	ApplyFun(f Function[F], args []T) (T, error)

	// Level returns the number of open scopes.
	Level() uint32
	// Push opens n scopes.
	Push(n uint32) error
	// Pop closes n scopes, discarding their assertions. APIError if n > Level().
	Pop(n uint32) error
	// Assert adds a Bool term to the top scope.
	Assert(t T) error
	// CheckSat decides the live assertions. It never fails: anything short of
	// a decision is Unknown.
	CheckSat() CheckSatResult
	// GetValue returns the model value of t after a Sat CheckSat.
	GetValue(t T) (T, error)
}

// ApplyFunRefs is ApplyFun over term references.
func ApplyFunRefs[S Sort, T Term, F UninterpretedFunction](s Solver[S, T, F], f Function[F], args []*T) (T, error) {
	vals, err := deref("apply_fun", args)
	if err != nil {
		var zero T
		return zero, err
	}
	return s.ApplyFun(f, vals)
}

// RecordConstRefs is RecordConst over term references.
func RecordConstRefs[S Sort, T Term, F UninterpretedFunction](s Solver[S, T, F], sort S, fields []*T) (T, error) {
	vals, err := deref("record_const", fields)
	if err != nil {
		var zero T
		return zero, err
	}
	return s.RecordConst(sort, vals)
}

func deref[T any](op string, refs []*T) ([]T, error) {
	vals := make([]T, len(refs))
	for i, r := range refs {
		if r == nil {
			return nil, &Error{Kind: APIError, Op: op, Msg: "nil term reference"}
		}
		vals[i] = *r
	}
	return vals, nil
}

// Backend is implemented by engine adapters. Session enforces the contract's
// preconditions before delegating, so a Backend only has to report its own
// failures: UnsupportedError for missing theories, InternalError for engine
// faults, and APIError for argument sort mismatches it detects.
type Backend[S Sort, T Term, F UninterpretedFunction] interface {
	SortOf(t T) (S, error)
	// Describe classifies a sort. Width is set for bitvectors.
	Describe(s S) (ops.Sort, error)

	DeclareSort(name string) (S, error)
	// BuiltinSort is only called with nullary built-in sorts.
	BuiltinSort(s ops.Sort) (S, error)
	ArraySort(domain, rng S) (S, error)
	// RecordSort is only called with validated field lists.
	RecordSort(name string, fields []string, sorts []S) (S, error)
	DeclareFun(name string, args []S, ret S) (F, error)

	DeclareConst(name string, s S) (T, error)
	// BuiltinConst is only called with nullary constants of the taxonomy.
	BuiltinConst(op ops.Op) (T, error)
	// Numeral is only called with a validated literal for an Int, Real or
	// BitVec sort.
	Numeral(n Numeral, s S) (T, error)
	RecordConst(s S, fields []T) (T, error)
	// ApplyOp is only called with a validated symbol and argument count.
	ApplyOp(fn ops.Fn, args []T) (T, error)
	ApplyUF(f F, args []T) (T, error)

	Push(n uint32) error
	Pop(n uint32) error
	Assert(t T) error
	// CheckSat may fail. The session reports failures as Unknown.
	CheckSat() (CheckSatResult, error)
	// Value is only called after a Sat check with model production enabled.
	Value(t T) (T, error)
	// ReasonUnknown explains the last Unknown outcome, if the engine can.
	ReasonUnknown() string
	Close() error
}
