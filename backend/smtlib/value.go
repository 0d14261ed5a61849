package smtlib

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/netrixframework/smtkit/smt"
	"github.com/netrixframework/smtkit/smt/ops"
)

// toTerm converts a model value to a literal of sort s. Values that have no
// literal form in the table, such as array models or abstract elements, are
// kept as opaque text.
func (b *Backend) toTerm(v sexp, s Sort) (Term, error) {
	switch s.Kind() {
	case ops.KindBool:
		switch v.atom {
		case "true":
			return b.tab.BoolLit(true), nil
		case "false":
			return b.tab.BoolLit(false), nil
		}
	case ops.KindInt:
		if r, ok := parseRational(v); ok && r.IsInt() {
			return b.tab.IntLit(r.Num()), nil
		}
	case ops.KindReal:
		if r, ok := parseRational(v); ok {
			return b.tab.RealLit(r), nil
		}
	case ops.KindBitVec:
		if n, ok := parseBitVec(v); ok {
			return b.tab.BVLit(s.Width(), n), nil
		}
	case ops.KindRecord:
		fields := s.FieldSorts()
		if !v.isList && len(fields) == 0 {
			return b.tab.RecordConst(s, nil)
		}
		if v.head() == "" || len(v.list)-1 != len(fields) {
			break
		}
		out := make([]Term, len(fields))
		for i, fs := range fields {
			t, err := b.toTerm(v.list[i+1], fs)
			if err != nil {
				return Term{}, err
			}
			out[i] = t
		}
		return b.tab.RecordConst(s, out)
	}
	t, err := b.tab.Opaque(s, v.String())
	if err != nil {
		return Term{}, smt.Internal(err, "building model value")
	}
	return t, nil
}

// parseRational accepts numerals, decimals, (- x), (/ x y) and (to_real x)
// as printed by solvers.
func parseRational(v sexp) (*big.Rat, bool) {
	if !v.isList {
		if v.atom == "" || strings.ContainsAny(v.atom, "#|") {
			return nil, false
		}
		return new(big.Rat).SetString(v.atom)
	}
	switch v.head() {
	case "-":
		if len(v.list) != 2 {
			return nil, false
		}
		r, ok := parseRational(v.list[1])
		if !ok {
			return nil, false
		}
		return r.Neg(r), true
	case "/":
		if len(v.list) != 3 {
			return nil, false
		}
		n, ok1 := parseRational(v.list[1])
		d, ok2 := parseRational(v.list[2])
		if !ok1 || !ok2 || d.Sign() == 0 {
			return nil, false
		}
		return n.Quo(n, d), true
	case "to_real":
		if len(v.list) != 2 {
			return nil, false
		}
		return parseRational(v.list[1])
	}
	return nil, false
}

func parseBitVec(v sexp) (*big.Int, bool) {
	if !v.isList {
		switch {
		case strings.HasPrefix(v.atom, "#x"):
			return new(big.Int).SetString(v.atom[2:], 16)
		case strings.HasPrefix(v.atom, "#b"):
			return new(big.Int).SetString(v.atom[2:], 2)
		}
		return nil, false
	}
	// (_ bv13 8)
	if len(v.list) == 3 && v.head() == "_" && !v.list[1].isList && strings.HasPrefix(v.list[1].atom, "bv") {
		if _, err := strconv.ParseUint(v.list[2].atom, 10, 32); err != nil {
			return nil, false
		}
		return new(big.Int).SetString(v.list[1].atom[2:], 10)
	}
	return nil, false
}
