package termtab

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/netrixframework/smtkit/smt"
	"github.com/netrixframework/smtkit/smt/ops"
)

var reserved = func() map[string]struct{} {
	m := map[string]struct{}{}
	for _, w := range []string{
		"_", "!", "as", "let", "exists", "forall", "match", "par",
		"NUMERAL", "DECIMAL", "STRING", "BINARY", "HEXADECIMAL",
		"Bool", "Int", "Real", "Array", "BitVec",
	} {
		m[w] = struct{}{}
	}
	for _, o := range ops.All() {
		m[o.Info().Name] = struct{}{}
	}
	return m
}()

// claim reserves a wire symbol for name, appending "!n" on collisions.
func (tab *Table) claim(name string) string {
	base := sanitize(name)
	wire := base
	for n := 1; ; n++ {
		if _, taken := tab.wires[wire]; !taken {
			if _, res := reserved[wire]; !res {
				break
			}
		}
		wire = fmt.Sprintf("%s!%d", base, n)
	}
	tab.wires[wire] = struct{}{}
	return quote(wire)
}

// claimRecord reserves the sort symbol of a record along with its
// constructor "mk-R" and accessors "R.f".
func (tab *Table) claimRecord(name string, fields []string) string {
	base := sanitize(name)
	wire := base
	symbols := func(w string) []string {
		out := []string{w, "mk-" + w}
		for _, f := range fields {
			out = append(out, w+"."+sanitize(f))
		}
		return out
	}
	for n := 1; ; n++ {
		free := true
		for _, sym := range symbols(wire) {
			_, taken := tab.wires[sym]
			_, res := reserved[sym]
			if taken || res {
				free = false
				break
			}
		}
		if free {
			break
		}
		wire = fmt.Sprintf("%s!%d", base, n)
	}
	for _, sym := range symbols(wire) {
		tab.wires[sym] = struct{}{}
	}
	return wire
}

func sanitize(name string) string {
	if name == "" {
		return "anon"
	}
	return strings.Map(func(r rune) rune {
		if r == '|' || r == '\\' {
			return '_'
		}
		return r
	}, name)
}

func simpleSymbolChar(r rune, first bool) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return !first
	}
	return strings.ContainsRune("~!@$%^&*_-+=<>.?/", r)
}

func quote(sym string) string {
	for i, r := range sym {
		if !simpleSymbolChar(r, i == 0) {
			return "|" + sym + "|"
		}
	}
	return sym
}

func recordSymbols(e *sortEntry) (ctor string, accessors []string) {
	ctor = quote("mk-" + e.wire)
	accessors = make([]string, len(e.fields))
	for i, f := range e.fields {
		accessors[i] = quote(e.wire + "." + sanitize(f))
	}
	return ctor, accessors
}

func (tab *Table) sortString(id sortID) string {
	e := &tab.sorts[id]
	switch e.kind {
	case ops.KindBitVec:
		return fmt.Sprintf("(_ BitVec %d)", e.width)
	case ops.KindArray:
		return fmt.Sprintf("(Array %s %s)", tab.sortString(e.domain), tab.sortString(e.rng))
	case ops.KindUninterpreted:
		return e.wire
	case ops.KindRecord:
		return quote(e.wire)
	}
	return e.kind.String()
}

// SMTLib implements smt.Sort.
func (s Sort) SMTLib() (string, error) {
	if s.tab == nil || int(s.id) >= len(s.tab.sorts) {
		return "", smt.Internalf("invalid sort handle")
	}
	return s.tab.sortString(s.id), nil
}

// SMTLib implements smt.Term.
func (t Term) SMTLib() (string, error) {
	if t.tab == nil || int(t.id) >= len(t.tab.terms) {
		return "", smt.Internalf("invalid term handle")
	}
	var sb strings.Builder
	t.tab.render(&sb, t.id)
	return sb.String(), nil
}

// String renders t, or a placeholder for invalid handles.
func (t Term) String() string {
	s, err := t.SMTLib()
	if err != nil {
		return "<invalid>"
	}
	return s
}

func (tab *Table) render(sb *strings.Builder, id termID) {
	e := &tab.terms[id]
	switch e.kind {
	case KindConst:
		sb.WriteString(e.wire)
	case KindOpaque:
		sb.WriteString(e.name)
	case KindNumeral:
		tab.renderNumeral(sb, e)
	case KindElement:
		fmt.Fprintf(sb, "%s!val!%d", strings.Trim(tab.sortString(e.sort), "|"), e.elem)
	case KindUF:
		tab.renderApp(sb, tab.funcs[e.fun].wire, e.args)
	case KindRecord:
		ctor, _ := recordSymbols(&tab.sorts[e.sort])
		tab.renderApp(sb, ctor, e.args)
	case KindApp:
		tab.renderBuiltin(sb, e)
	}
}

func (tab *Table) renderApp(sb *strings.Builder, head string, args []termID) {
	if len(args) == 0 {
		sb.WriteString(head)
		return
	}
	sb.WriteByte('(')
	sb.WriteString(head)
	for _, a := range args {
		sb.WriteByte(' ')
		tab.render(sb, a)
	}
	sb.WriteByte(')')
}

func (tab *Table) renderBuiltin(sb *strings.Builder, e *termEntry) {
	switch e.fn.Op {
	case ops.RecordSelect:
		rec := &tab.sorts[tab.terms[e.args[0]].sort]
		_, acc := recordSymbols(rec)
		tab.renderApp(sb, acc[Sort{tab, tab.terms[e.args[0]].sort}.FieldIndex(e.fn.Field)], e.args[:1])
	case ops.RecordUpdate:
		// Expanded to the constructor applied to every field, with the
		// updated field replaced.
		recID := tab.terms[e.args[0]].sort
		rec := &tab.sorts[recID]
		ctor, acc := recordSymbols(rec)
		idx := Sort{tab, recID}.FieldIndex(e.fn.Field)
		sb.WriteByte('(')
		sb.WriteString(ctor)
		for i := range rec.fields {
			sb.WriteByte(' ')
			if i == idx {
				tab.render(sb, e.args[1])
				continue
			}
			sb.WriteString("(" + acc[i] + " ")
			tab.render(sb, e.args[0])
			sb.WriteByte(')')
		}
		sb.WriteByte(')')
	default:
		tab.renderApp(sb, e.fn.String(), e.args)
	}
}

func (tab *Table) renderNumeral(sb *strings.Builder, e *termEntry) {
	s := &tab.sorts[e.sort]
	v := e.value
	switch s.kind {
	case ops.KindBitVec:
		sb.WriteString(bvLiteral(v.Num(), s.width))
	case ops.KindInt:
		if v.Sign() < 0 {
			fmt.Fprintf(sb, "(- %s)", new(big.Int).Neg(v.Num()))
			return
		}
		sb.WriteString(v.Num().String())
	case ops.KindReal:
		abs := new(big.Rat).Abs(v)
		lit := realLiteral(abs)
		if v.Sign() < 0 {
			fmt.Fprintf(sb, "(- %s)", lit)
			return
		}
		sb.WriteString(lit)
	}
}

func bvLiteral(v *big.Int, width uint32) string {
	if width%4 == 0 {
		digits := v.Text(16)
		return "#x" + strings.Repeat("0", int(width/4)-len(digits)) + digits
	}
	digits := v.Text(2)
	return "#b" + strings.Repeat("0", int(width)-len(digits)) + digits
}

// realLiteral renders a non-negative rational as a decimal when it has a
// finite expansion and as (/ n d) otherwise.
func realLiteral(r *big.Rat) string {
	if r.IsInt() {
		return r.Num().String() + ".0"
	}
	d := new(big.Int).Set(r.Denom())
	twos, fives := 0, 0
	two, five := big.NewInt(2), big.NewInt(5)
	m := new(big.Int)
	for {
		q, rem := new(big.Int).QuoRem(d, two, m)
		if rem.Sign() != 0 {
			break
		}
		d, twos = q, twos+1
	}
	for {
		q, rem := new(big.Int).QuoRem(d, five, m)
		if rem.Sign() != 0 {
			break
		}
		d, fives = q, fives+1
	}
	if d.Cmp(big.NewInt(1)) != 0 {
		return fmt.Sprintf("(/ %s %s)", r.Num(), r.Denom())
	}
	prec := twos
	if fives > prec {
		prec = fives
	}
	return r.FloatString(prec)
}

// DeclareSortCmd renders the declaration of an uninterpreted sort.
func (s Sort) DeclareSortCmd() string {
	return fmt.Sprintf("(declare-sort %s 0)", s.tab.sortString(s.id))
}

// DeclareDatatypeCmd renders the declaration of a record sort as a single
// constructor datatype.
func (s Sort) DeclareDatatypeCmd() string {
	e := &s.tab.sorts[s.id]
	ctor, acc := recordSymbols(e)
	var sb strings.Builder
	name := quote(e.wire)
	fmt.Fprintf(&sb, "(declare-datatypes ((%s 0)) (((%s", name, ctor)
	for i, fs := range e.fieldSorts {
		fmt.Fprintf(&sb, " (%s %s)", acc[i], s.tab.sortString(fs))
	}
	sb.WriteString("))))")
	return sb.String()
}

// DeclareFunCmd renders the declaration of f.
func (f Func) DeclareFunCmd() string {
	e := &f.tab.funcs[f.id]
	args := make([]string, len(e.args))
	for i, a := range e.args {
		args[i] = f.tab.sortString(a)
	}
	return fmt.Sprintf("(declare-fun %s (%s) %s)", e.wire, strings.Join(args, " "), f.tab.sortString(e.ret))
}

// DeclareConstCmd renders the declaration of a constant.
func (t Term) DeclareConstCmd() string {
	e := &t.tab.terms[t.id]
	return fmt.Sprintf("(declare-const %s %s)", e.wire, t.tab.sortString(e.sort))
}
