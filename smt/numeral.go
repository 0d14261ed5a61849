package smt

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/netrixframework/smtkit/smt/ops"
)

// Numeral is a validated decimal literal. Int holds the digits before the
// decimal point with leading zeros removed, Frac the digits after it.
type Numeral struct {
	Neg     bool
	Int     string
	Frac    string
	Decimal bool
}

// NumeralFromInt64 converts v.
func NumeralFromInt64(v int64) Numeral {
	if v < 0 {
		// FormatUint of the two's complement negation handles MinInt64.
		return Numeral{Neg: true, Int: strconv.FormatUint(uint64(-(v+1))+1, 10)}
	}
	return Numeral{Int: strconv.FormatInt(v, 10)}
}

// ParseNumeral validates s for a sort of the given kind. Only digits are
// accepted, plus one leading '-' for Int and Real and at most one '.' for
// Real.
func ParseNumeral(s string, kind ops.SortKind) (Numeral, error) {
	var n Numeral
	switch kind {
	case ops.KindInt, ops.KindReal, ops.KindBitVec:
	default:
		return n, APIErrorf("numerals are not defined for %s sorts", kind)
	}
	rest := s
	if strings.HasPrefix(rest, "-") {
		if kind == ops.KindBitVec {
			return n, APIErrorf("bitvector numeral %q may not be negative", s)
		}
		n.Neg = true
		rest = rest[1:]
	}
	intPart, frac, dot := strings.Cut(rest, ".")
	if dot {
		if kind != ops.KindReal {
			return n, APIErrorf("%s numeral %q may not contain a decimal point", kind, s)
		}
		n.Decimal = true
	}
	if intPart == "" && frac == "" {
		return n, APIErrorf("numeral %q has no digits", s)
	}
	if !allDigits(intPart) || !allDigits(frac) {
		return n, APIErrorf("numeral %q may only contain digits", s)
	}
	n.Int = strings.TrimLeft(intPart, "0")
	if n.Int == "" {
		n.Int = "0"
	}
	n.Frac = strings.TrimRight(frac, "0")
	if n.IsZero() {
		n.Neg = false
	}
	return n, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// IsZero reports whether the numeral denotes zero.
func (n Numeral) IsZero() bool {
	return n.Int == "0" && n.Frac == ""
}

// IsIntegral reports whether the numeral has no fractional digits.
func (n Numeral) IsIntegral() bool {
	return n.Frac == ""
}

// Rat returns the exact value.
func (n Numeral) Rat() *big.Rat {
	r, ok := new(big.Rat).SetString(n.String())
	if !ok {
		return new(big.Rat)
	}
	return r
}

// BigInt returns the integer part, with sign.
func (n Numeral) BigInt() *big.Int {
	v, ok := new(big.Int).SetString(n.Int, 10)
	if !ok {
		v = new(big.Int)
	}
	if n.Neg {
		v.Neg(v)
	}
	return v
}

// String renders the plain decimal form, e.g. "-12.5".
func (n Numeral) String() string {
	var sb strings.Builder
	if n.Neg {
		sb.WriteByte('-')
	}
	sb.WriteString(n.Int)
	if n.Frac != "" {
		sb.WriteByte('.')
		sb.WriteString(n.Frac)
	}
	return sb.String()
}
