// Package ops defines the closed taxonomy of built-in sorts and function
// symbols that every backend understands.
//
// The taxonomy is shared read-only data. Sort constructors and function
// symbols are drawn from the SMT-LIB Core, Ints, Reals, ArraysEx and
// FixedSizeBitVectors theories, extended with record select and update.
package ops

import "fmt"

// Version of the taxonomy. Bumped whenever an entry is added or its shape changes.
const Version = 1

// SortKind classifies sorts.
type SortKind uint8

const (
	KindBool SortKind = iota + 1
	KindInt
	KindReal
	KindBitVec
	KindArray
	// KindUninterpreted and KindRecord describe user declared sorts. They are
	// never valid arguments to LookupSort.
	KindUninterpreted
	KindRecord
)

func (k SortKind) String() string {
	switch k {
	case KindBool:
		return "Bool"
	case KindInt:
		return "Int"
	case KindReal:
		return "Real"
	case KindBitVec:
		return "BitVec"
	case KindArray:
		return "Array"
	case KindUninterpreted:
		return "Uninterpreted"
	case KindRecord:
		return "Record"
	default:
		return fmt.Sprintf("SortKind(%d)", uint8(k))
	}
}

// Sort is a built-in sort or sort constructor. Width is only meaningful for
// bitvectors.
type Sort struct {
	Kind  SortKind
	Width uint32
}

var (
	Bool  = Sort{Kind: KindBool}
	Int   = Sort{Kind: KindInt}
	Real  = Sort{Kind: KindReal}
	Array = Sort{Kind: KindArray}
)

// MaxBitVecWidth bounds the width of every bitvector sort, including the
// results of concat, extension and repeat.
const MaxBitVecWidth = 1 << 16

// BitVec returns the bitvector sort of the given width.
func BitVec(width uint32) Sort {
	return Sort{Kind: KindBitVec, Width: width}
}

// IsBuiltin is true for sorts and constructors of the taxonomy.
func (s Sort) IsBuiltin() bool {
	switch s.Kind {
	case KindBool, KindInt, KindReal, KindBitVec, KindArray:
		return true
	}
	return false
}

// IsConstructor is true for sort constructors that need arguments.
func (s Sort) IsConstructor() bool {
	return s.Arity() > 0
}

// Arity is the number of sort arguments a constructor takes, 0 for sorts.
func (s Sort) Arity() int {
	if s.Kind == KindArray {
		return 2
	}
	return 0
}

// IsNumeric is true for Int and Real.
func (s Sort) IsNumeric() bool {
	return s.Kind == KindInt || s.Kind == KindReal
}

// String renders the SMT-LIB name.
func (s Sort) String() string {
	if s.Kind == KindBitVec {
		return fmt.Sprintf("(_ BitVec %d)", s.Width)
	}
	return s.Kind.String()
}

// Sorts lists the built-in sorts and constructors. BitVec appears with width 0
// standing for the whole family.
func Sorts() []Sort {
	return []Sort{Bool, Int, Real, BitVec(0), Array}
}
