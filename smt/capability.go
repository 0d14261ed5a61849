package smt

import (
	"fmt"

	"github.com/netrixframework/smtkit/smt/ops"
)

// Sort is an opaque, backend-owned sort handle. Two handles are == iff the
// backend considers them the same sort, so sorts can key maps.
type Sort interface {
	comparable
	// SMTLib renders the sort in SMT-LIB syntax. Only InternalError is possible.
	SMTLib() (string, error)
}

// Term is an opaque, backend-owned term handle. Copying a Term clones it.
type Term interface {
	comparable
	// SMTLib renders the term in SMT-LIB syntax. Only InternalError is possible.
	SMTLib() (string, error)
	// Int64 returns the value of an integer, real or bitvector constant.
	// APIError if the term is not such a constant, is a non-integral real or
	// does not fit in an int64.
	Int64() (int64, error)
}

// UninterpretedFunction is a declared function symbol.
type UninterpretedFunction interface {
	comparable
	// Name returns the declared name. Only InternalError is possible.
	Name() (string, error)
}

// Function is either a built-in operator or an uninterpreted function. It is
// the single symbol type accepted by ApplyFun.
type Function[F UninterpretedFunction] struct {
	builtin ops.Fn
	uf      F
	isUF    bool
}

// Builtin wraps a taxonomy symbol, e.g. Builtin(ops.Gt) or
// Builtin(ops.Extract.With(7, 0)).
func Builtin[F UninterpretedFunction](a ops.Applicable) Function[F] {
	return Function[F]{builtin: a.Fn()}
}

// UF wraps an uninterpreted function.
func UF[F UninterpretedFunction](f F) Function[F] {
	return Function[F]{uf: f, isUF: true}
}

// IsUF reports which variant is set.
func (f Function[F]) IsUF() bool {
	return f.isUF
}

// Builtin returns the built-in variant. ok is false for uninterpreted functions.
func (f Function[F]) Builtin() (fn ops.Fn, ok bool) {
	return f.builtin, !f.isUF
}

// UF returns the uninterpreted variant. ok is false for built-ins.
func (f Function[F]) UF() (uf F, ok bool) {
	return f.uf, f.isUF
}

func (f Function[F]) String() string {
	if f.isUF {
		if name, err := f.uf.Name(); err == nil {
			return name
		}
		return "<uf>"
	}
	return f.builtin.String()
}

// CheckSatResult is the outcome of a satisfiability check.
type CheckSatResult uint8

const (
	// NotChecked is the session outcome before the first CheckSat. CheckSat
	// never returns it.
	NotChecked CheckSatResult = iota
	Sat
	Unsat
	Unknown
)

func (r CheckSatResult) String() string {
	switch r {
	case NotChecked:
		return "none"
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	case Unknown:
		return "unknown"
	}
	return fmt.Sprintf("CheckSatResult(%d)", uint8(r))
}
