//go:build z3

package z3

// #include <z3.h>
import "C"
import (
	"math/big"
	"strconv"
	"strings"

	"github.com/netrixframework/smtkit/smt"
	"github.com/netrixframework/smtkit/smt/ops"
)

// decode converts a model value of sort s to a term. The Z3 AST of every
// decoded value is cached so the value can be used in later assertions.
func (b *Backend) decode(v C.Z3_ast, s Sort) (Term, error) {
	c := b.ctx.raw
	var (
		t   Term
		err error
	)
	switch s.Kind() {
	case ops.KindBool:
		switch C.Z3_get_bool_value(c, v) {
		case C.Z3_L_TRUE:
			t = b.tab.BoolLit(true)
		case C.Z3_L_FALSE:
			t = b.tab.BoolLit(false)
		default:
			return b.opaque(v, s)
		}
	case ops.KindInt, ops.KindReal, ops.KindBitVec:
		if !bool(C.Z3_is_numeral_ast(c, v)) {
			return b.opaque(v, s)
		}
		r, ok := new(big.Rat).SetString(C.GoString(C.Z3_get_numeral_string(c, v)))
		if !ok {
			return b.opaque(v, s)
		}
		switch s.Kind() {
		case ops.KindInt:
			t = b.tab.IntLit(r.Num())
		case ops.KindReal:
			t = b.tab.RealLit(r)
		default:
			t = b.tab.BVLit(s.Width(), r.Num())
		}
	case ops.KindRecord:
		if C.Z3_get_ast_kind(c, v) != C.Z3_APP_AST {
			return b.opaque(v, s)
		}
		app := C.Z3_to_app(c, v)
		fields := s.FieldSorts()
		if int(C.Z3_get_app_num_args(c, app)) != len(fields) {
			return b.opaque(v, s)
		}
		out := make([]Term, len(fields))
		for i, fs := range fields {
			arg := b.ctx.keep(C.Z3_get_app_arg(c, app, C.uint(i)))
			if out[i], err = b.decode(arg, fs); err != nil {
				return Term{}, err
			}
		}
		if t, err = b.tab.RecordConst(s, out); err != nil {
			return Term{}, err
		}
	case ops.KindUninterpreted:
		// Z3 names abstract elements U!val!n.
		text := b.ctx.String(v)
		i := strings.LastIndex(text, "!val!")
		if i < 0 {
			return b.opaque(v, s)
		}
		idx, perr := strconv.ParseUint(text[i+len("!val!"):], 10, 64)
		if perr != nil {
			return b.opaque(v, s)
		}
		if t, err = b.tab.Element(s, idx); err != nil {
			return Term{}, err
		}
	default:
		return b.opaque(v, s)
	}
	if err := b.ctx.check("decode value"); err != nil {
		return Term{}, err
	}
	if _, ok := b.asts[t]; !ok {
		b.asts[t] = v
	}
	return t, nil
}

func (b *Backend) opaque(v C.Z3_ast, s Sort) (Term, error) {
	t, err := b.tab.Opaque(s, b.ctx.String(v))
	if err != nil {
		return Term{}, smt.Internal(err, "building model value")
	}
	b.asts[t] = v
	return t, nil
}
