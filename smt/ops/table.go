package ops

// Theory groups ops by the SMT-LIB theory they come from.
type Theory uint8

const (
	TheoryCore Theory = iota + 1
	TheoryArith
	TheoryArrays
	TheoryBitVectors
	TheoryRecords
)

func (t Theory) String() string {
	switch t {
	case TheoryCore:
		return "Core"
	case TheoryArith:
		return "Ints/Reals"
	case TheoryArrays:
		return "ArraysEx"
	case TheoryBitVectors:
		return "FixedSizeBitVectors"
	case TheoryRecords:
		return "Records"
	}
	return "unknown"
}

// Shape describes which argument sorts an op accepts and which sort it
// produces.
type Shape uint8

const (
	// ShapeBoolConst: () -> Bool
	ShapeBoolConst Shape = iota + 1
	// ShapeBoolN: Bool^n -> Bool
	ShapeBoolN
	// ShapeEqN: T^n -> Bool, all arguments of one sort
	ShapeEqN
	// ShapeIte: Bool T T -> T
	ShapeIte
	// ShapeArithN: N^n -> N, N is Int or Real
	ShapeArithN
	// ShapeIntN: Int^n -> Int
	ShapeIntN
	// ShapeRealN: Real^n -> Real
	ShapeRealN
	// ShapeArithCmp: N^n -> Bool
	ShapeArithCmp
	// ShapeIntToReal: Int -> Real
	ShapeIntToReal
	// ShapeRealToInt: Real -> Int
	ShapeRealToInt
	// ShapeRealPred: Real -> Bool
	ShapeRealPred
	// ShapeSelect: (Array D R) D -> R
	ShapeSelect
	// ShapeStore: (Array D R) D R -> (Array D R)
	ShapeStore
	// ShapeBvN: (_ BitVec w)^n -> (_ BitVec w)
	ShapeBvN
	// ShapeBvCmp: (_ BitVec w)^2 -> Bool
	ShapeBvCmp
	// ShapeBvComp: (_ BitVec w)^2 -> (_ BitVec 1)
	ShapeBvComp
	// ShapeConcat: (_ BitVec a) (_ BitVec b) -> (_ BitVec a+b)
	ShapeConcat
	// ShapeExtract: (_ BitVec w) -> (_ BitVec hi-lo+1)
	ShapeExtract
	// ShapeExtend: (_ BitVec w) -> (_ BitVec w+i)
	ShapeExtend
	// ShapeRepeat: (_ BitVec w) -> (_ BitVec w*i)
	ShapeRepeat
	// ShapeRotate: (_ BitVec w) -> (_ BitVec w)
	ShapeRotate
	// ShapeRecordSelect: R -> sort of field
	ShapeRecordSelect
	// ShapeRecordUpdate: R V -> R, V the sort of the field
	ShapeRecordUpdate
)

// Variadic marks ops without an upper argument bound.
const Variadic = -1

// Info is one taxonomy entry.
type Info struct {
	Name       string
	Theory     Theory
	MinArgs    int
	MaxArgs    int
	Indices    int
	NeedsField bool
	Shape      Shape
}

func core(name string, min, max int, shape Shape) Info {
	return Info{Name: name, Theory: TheoryCore, MinArgs: min, MaxArgs: max, Shape: shape}
}

func arith(name string, min, max int, shape Shape) Info {
	return Info{Name: name, Theory: TheoryArith, MinArgs: min, MaxArgs: max, Shape: shape}
}

func bv(name string, min, max int, shape Shape) Info {
	return Info{Name: name, Theory: TheoryBitVectors, MinArgs: min, MaxArgs: max, Shape: shape}
}

func bvIndexed(name string, indices int, shape Shape) Info {
	return Info{Name: name, Theory: TheoryBitVectors, MinArgs: 1, MaxArgs: 1, Indices: indices, Shape: shape}
}

var table = [numOps]Info{
	True:     core("true", 0, 0, ShapeBoolConst),
	False:    core("false", 0, 0, ShapeBoolConst),
	Not:      core("not", 1, 1, ShapeBoolN),
	Implies:  core("=>", 2, Variadic, ShapeBoolN),
	And:      core("and", 2, Variadic, ShapeBoolN),
	Or:       core("or", 2, Variadic, ShapeBoolN),
	Xor:      core("xor", 2, Variadic, ShapeBoolN),
	Eq:       core("=", 2, Variadic, ShapeEqN),
	Distinct: core("distinct", 2, Variadic, ShapeEqN),
	Ite:      core("ite", 3, 3, ShapeIte),

	Uminus: arith("-", 1, 1, ShapeArithN),
	Minus:  arith("-", 2, Variadic, ShapeArithN),
	Plus:   arith("+", 2, Variadic, ShapeArithN),
	Times:  arith("*", 2, Variadic, ShapeArithN),
	Divide: arith("/", 2, Variadic, ShapeRealN),
	Div:    arith("div", 2, Variadic, ShapeIntN),
	Mod:    arith("mod", 2, 2, ShapeIntN),
	Rem:    arith("rem", 2, 2, ShapeIntN),
	Abs:    arith("abs", 1, 1, ShapeIntN),
	Le:     arith("<=", 2, Variadic, ShapeArithCmp),
	Lt:     arith("<", 2, Variadic, ShapeArithCmp),
	Ge:     arith(">=", 2, Variadic, ShapeArithCmp),
	Gt:     arith(">", 2, Variadic, ShapeArithCmp),
	ToReal: arith("to_real", 1, 1, ShapeIntToReal),
	ToInt:  arith("to_int", 1, 1, ShapeRealToInt),
	IsInt:  arith("is_int", 1, 1, ShapeRealPred),

	Select: {Name: "select", Theory: TheoryArrays, MinArgs: 2, MaxArgs: 2, Shape: ShapeSelect},
	Store:  {Name: "store", Theory: TheoryArrays, MinArgs: 3, MaxArgs: 3, Shape: ShapeStore},

	BvNot:       bv("bvnot", 1, 1, ShapeBvN),
	BvAnd:       bv("bvand", 2, Variadic, ShapeBvN),
	BvOr:        bv("bvor", 2, Variadic, ShapeBvN),
	BvXor:       bv("bvxor", 2, Variadic, ShapeBvN),
	BvNand:      bv("bvnand", 2, 2, ShapeBvN),
	BvNor:       bv("bvnor", 2, 2, ShapeBvN),
	BvXnor:      bv("bvxnor", 2, 2, ShapeBvN),
	BvNeg:       bv("bvneg", 1, 1, ShapeBvN),
	BvAdd:       bv("bvadd", 2, Variadic, ShapeBvN),
	BvSub:       bv("bvsub", 2, 2, ShapeBvN),
	BvMul:       bv("bvmul", 2, Variadic, ShapeBvN),
	BvUdiv:      bv("bvudiv", 2, 2, ShapeBvN),
	BvUrem:      bv("bvurem", 2, 2, ShapeBvN),
	BvSdiv:      bv("bvsdiv", 2, 2, ShapeBvN),
	BvSrem:      bv("bvsrem", 2, 2, ShapeBvN),
	BvSmod:      bv("bvsmod", 2, 2, ShapeBvN),
	BvShl:       bv("bvshl", 2, 2, ShapeBvN),
	BvLshr:      bv("bvlshr", 2, 2, ShapeBvN),
	BvAshr:      bv("bvashr", 2, 2, ShapeBvN),
	BvUlt:       bv("bvult", 2, 2, ShapeBvCmp),
	BvUle:       bv("bvule", 2, 2, ShapeBvCmp),
	BvUgt:       bv("bvugt", 2, 2, ShapeBvCmp),
	BvUge:       bv("bvuge", 2, 2, ShapeBvCmp),
	BvSlt:       bv("bvslt", 2, 2, ShapeBvCmp),
	BvSle:       bv("bvsle", 2, 2, ShapeBvCmp),
	BvSgt:       bv("bvsgt", 2, 2, ShapeBvCmp),
	BvSge:       bv("bvsge", 2, 2, ShapeBvCmp),
	BvComp:      bv("bvcomp", 2, 2, ShapeBvComp),
	Concat:      bv("concat", 2, 2, ShapeConcat),
	Extract:     bvIndexed("extract", 2, ShapeExtract),
	ZeroExtend:  bvIndexed("zero_extend", 1, ShapeExtend),
	SignExtend:  bvIndexed("sign_extend", 1, ShapeExtend),
	Repeat:      bvIndexed("repeat", 1, ShapeRepeat),
	RotateLeft:  bvIndexed("rotate_left", 1, ShapeRotate),
	RotateRight: bvIndexed("rotate_right", 1, ShapeRotate),

	RecordSelect: {Name: "record-select", Theory: TheoryRecords, MinArgs: 1, MaxArgs: 1, NeedsField: true, Shape: ShapeRecordSelect},
	RecordUpdate: {Name: "record-update", Theory: TheoryRecords, MinArgs: 2, MaxArgs: 2, NeedsField: true, Shape: ShapeRecordUpdate},
}
