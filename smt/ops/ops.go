package ops

import (
	"errors"
	"fmt"
	"strings"
)

// Op is a built-in function symbol.
type Op uint8

const (
	invalidOp Op = iota

	// Core
	True
	False
	Not
	Implies
	And
	Or
	Xor
	Eq
	Distinct
	Ite

	// Ints and Reals
	Uminus
	Minus
	Plus
	Times
	Divide
	Div
	Mod
	Rem
	Abs
	Le
	Lt
	Ge
	Gt
	ToReal
	ToInt
	IsInt

	// ArraysEx
	Select
	Store

	// FixedSizeBitVectors
	BvNot
	BvAnd
	BvOr
	BvXor
	BvNand
	BvNor
	BvXnor
	BvNeg
	BvAdd
	BvSub
	BvMul
	BvUdiv
	BvUrem
	BvSdiv
	BvSrem
	BvSmod
	BvShl
	BvLshr
	BvAshr
	BvUlt
	BvUle
	BvUgt
	BvUge
	BvSlt
	BvSle
	BvSgt
	BvSge
	BvComp
	Concat
	Extract
	ZeroExtend
	SignExtend
	Repeat
	RotateLeft
	RotateRight

	// Records
	RecordSelect
	RecordUpdate

	numOps
)

// Applicable is anything that names a built-in function: an Op or a Fn.
type Applicable interface {
	Fn() Fn
}

// Fn is a fully parameterized built-in function symbol. Field is set for
// record select and update, Indices for indexed bitvector operators.
type Fn struct {
	Op      Op
	Field   string
	Indices []uint32
}

// Fn implements Applicable.
func (o Op) Fn() Fn {
	return Fn{Op: o}
}

// With returns the indexed form of o, e.g. Extract.With(7, 0).
func (o Op) With(indices ...uint32) Fn {
	return Fn{Op: o, Indices: append([]uint32(nil), indices...)}
}

// Field returns the record form of o, e.g. RecordSelect.Field("x").
func (o Op) Field(name string) Fn {
	return Fn{Op: o, Field: name}
}

// Valid is true for every op of the taxonomy.
func (o Op) Valid() bool {
	return o > invalidOp && o < numOps
}

// IsConst is true for nullary built-in constants.
func (o Op) IsConst() bool {
	return o == True || o == False
}

// Info returns the taxonomy entry of o. Unknown ops return the zero Info.
func (o Op) Info() Info {
	if !o.Valid() {
		return Info{}
	}
	return table[o]
}

func (o Op) String() string {
	if !o.Valid() {
		return fmt.Sprintf("Op(%d)", uint8(o))
	}
	return table[o].Name
}

// Fn implements Applicable.
func (f Fn) Fn() Fn {
	return f
}

// ErrMalformed is returned by Validate.
var ErrMalformed = errors.New("malformed function symbol")

// Validate checks that f names a known op and carries exactly the parameters
// the op needs.
func (f Fn) Validate() error {
	if !f.Op.Valid() {
		return fmt.Errorf("%w: unknown op %d", ErrMalformed, uint8(f.Op))
	}
	info := table[f.Op]
	if len(f.Indices) != info.Indices {
		return fmt.Errorf("%w: %s takes %d indices, got %d", ErrMalformed, info.Name, info.Indices, len(f.Indices))
	}
	if info.NeedsField && f.Field == "" {
		return fmt.Errorf("%w: %s needs a field name", ErrMalformed, info.Name)
	}
	if !info.NeedsField && f.Field != "" {
		return fmt.Errorf("%w: %s takes no field name", ErrMalformed, info.Name)
	}
	switch f.Op {
	case Extract:
		if f.Indices[0] < f.Indices[1] {
			return fmt.Errorf("%w: extract high index %d below low index %d", ErrMalformed, f.Indices[0], f.Indices[1])
		}
	case Repeat:
		if f.Indices[0] == 0 {
			return fmt.Errorf("%w: repeat count must be positive", ErrMalformed)
		}
	}
	return nil
}

// CheckArity validates an argument count against the taxonomy.
func (f Fn) CheckArity(n int) error {
	info := f.Op.Info()
	if n < info.MinArgs || (info.MaxArgs >= 0 && n > info.MaxArgs) {
		return fmt.Errorf("%w: %s applied to %d arguments", ErrMalformed, info.Name, n)
	}
	return nil
}

// String renders the SMT-LIB head of f: "bvadd", "(_ extract 7 0)". Record
// operators render with their field name since SMT-LIB has no syntax for them.
func (f Fn) String() string {
	info := f.Op.Info()
	if info.NeedsField {
		return info.Name + "." + f.Field
	}
	if len(f.Indices) == 0 {
		return f.Op.String()
	}
	var sb strings.Builder
	sb.WriteString("(_ ")
	sb.WriteString(info.Name)
	for _, i := range f.Indices {
		fmt.Fprintf(&sb, " %d", i)
	}
	sb.WriteString(")")
	return sb.String()
}

// All returns every op in declaration order.
func All() []Op {
	out := make([]Op, 0, numOps-1)
	for o := invalidOp + 1; o < numOps; o++ {
		out = append(out, o)
	}
	return out
}

// Lookup finds an op by its SMT-LIB name. Unary minus and binary minus share
// "-"; Lookup returns Minus for it.
func Lookup(name string) (Op, bool) {
	o, ok := byName[name]
	return o, ok
}

var byName = func() map[string]Op {
	m := make(map[string]Op, numOps)
	for o := invalidOp + 1; o < numOps; o++ {
		m[table[o].Name] = o
	}
	return m
}()
