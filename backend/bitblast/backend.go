// Package bitblast is an in-process engine adapter deciding quantifier free
// bitvector problems with uninterpreted sorts, uninterpreted functions and
// records. Terms are compiled to an and-inverter circuit and decided by the
// gini SAT solver.
//
// Uninterpreted sorts are encoded as fixed width bitvectors. An unsat answer
// is only given when every uninterpreted term fits the encoding; a problem
// with more such terms than the width can tell apart is reported unknown.
// Int, Real and Array sorts are not supported.
package bitblast

import (
	"fmt"
	"time"

	"github.com/go-air/gini"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
	"github.com/netrixframework/smtkit/internal/termtab"
	"github.com/netrixframework/smtkit/log"
	"github.com/netrixframework/smtkit/smt"
	"github.com/netrixframework/smtkit/smt/ops"
)

// Sort, Term and Func are the handles of this backend.
type (
	Sort = termtab.Sort
	Term = termtab.Term
	Func = termtab.Func
)

// Session is a solver session over the bit-blaster.
type Session = smt.Session[Sort, Term, Func]

// Options configures a Backend.
type Options struct {
	// Timeout bounds each CheckSat. Zero means no bound.
	Timeout time.Duration
	// UninterpretedWidth is the number of bits per element of an
	// uninterpreted sort.
	UninterpretedWidth uint32
	Logger             *log.Logger
}

// DefaultOptions returns the options used by New when none are given.
func DefaultOptions() Options {
	return Options{UninterpretedWidth: 16, Logger: log.DefaultLogger}
}

// Backend implements smt.Backend.
type Backend struct {
	tab    *termtab.Table
	opts   Options
	logger *log.Logger

	c    *logic.C
	enc  map[Term]bits
	apps map[int][]Term
	// axioms hold functional consistency of uninterpreted applications. They
	// only constrain fresh result variables and so stay valid across scopes.
	axioms []z.Lit
	scopes [][]Term

	model  []bool
	late   []Term
	reason string
	closed bool
}

// New creates a backend.
func New(opts Options) *Backend {
	if opts.UninterpretedWidth == 0 {
		opts.UninterpretedWidth = DefaultOptions().UninterpretedWidth
	}
	if opts.Logger == nil {
		opts.Logger = log.DefaultLogger
	}
	return &Backend{
		tab:    termtab.New(),
		opts:   opts,
		logger: opts.Logger.With(log.LogParams{"backend": "bitblast"}),
		c:      logic.NewC(),
		enc:    make(map[Term]bits),
		apps:   make(map[int][]Term),
		scopes: [][]Term{nil},
	}
}

// NewSession returns a session over a fresh backend.
func NewSession(opts Options, sessionOpts ...smt.Option) *Session {
	if opts.Logger != nil {
		sessionOpts = append([]smt.Option{smt.WithLogger(opts.Logger)}, sessionOpts...)
	}
	return smt.NewSession[Sort, Term, Func](New(opts), sessionOpts...)
}

// SortOf implements smt.Backend.
func (b *Backend) SortOf(t Term) (Sort, error) {
	return b.tab.SortOf(t)
}

// Describe implements smt.Backend.
func (b *Backend) Describe(s Sort) (ops.Sort, error) {
	return b.tab.Describe(s)
}

// DeclareSort implements smt.Backend.
func (b *Backend) DeclareSort(name string) (Sort, error) {
	return b.tab.DeclareSort(name), nil
}

// BuiltinSort implements smt.Backend.
func (b *Backend) BuiltinSort(s ops.Sort) (Sort, error) {
	switch s.Kind {
	case ops.KindBool, ops.KindBitVec:
		return b.tab.BuiltinSort(s)
	}
	return Sort{}, smt.Unsupportedf("bitblast does not support %s", s)
}

// ArraySort implements smt.Backend.
func (b *Backend) ArraySort(domain, rng Sort) (Sort, error) {
	return Sort{}, smt.Unsupportedf("bitblast does not support arrays")
}

// RecordSort implements smt.Backend.
func (b *Backend) RecordSort(name string, fields []string, sorts []Sort) (Sort, error) {
	return b.tab.RecordSort(name, fields, sorts)
}

// DeclareFun implements smt.Backend.
func (b *Backend) DeclareFun(name string, args []Sort, ret Sort) (Func, error) {
	return b.tab.DeclareFun(name, args, ret)
}

// DeclareConst implements smt.Backend.
func (b *Backend) DeclareConst(name string, s Sort) (Term, error) {
	return b.tab.DeclareConst(name, s)
}

// BuiltinConst implements smt.Backend.
func (b *Backend) BuiltinConst(op ops.Op) (Term, error) {
	return b.tab.BuiltinConst(op)
}

// Numeral implements smt.Backend.
func (b *Backend) Numeral(n smt.Numeral, s Sort) (Term, error) {
	return b.tab.Numeral(n, s)
}

// RecordConst implements smt.Backend.
func (b *Backend) RecordConst(s Sort, fields []Term) (Term, error) {
	return b.tab.RecordConst(s, fields)
}

// ApplyOp implements smt.Backend.
func (b *Backend) ApplyOp(fn ops.Fn, args []Term) (Term, error) {
	switch th := fn.Op.Info().Theory; th {
	case ops.TheoryArith, ops.TheoryArrays:
		return Term{}, smt.Unsupportedf("bitblast does not support %s (%s)", fn, th)
	}
	return b.tab.Apply(fn, args)
}

// ApplyUF implements smt.Backend.
func (b *Backend) ApplyUF(f Func, args []Term) (Term, error) {
	return b.tab.ApplyUF(f, args)
}

// Push implements smt.Backend.
func (b *Backend) Push(n uint32) error {
	for i := uint32(0); i < n; i++ {
		b.scopes = append(b.scopes, nil)
	}
	b.model = nil
	return nil
}

// Pop implements smt.Backend.
func (b *Backend) Pop(n uint32) error {
	if int(n) >= len(b.scopes) {
		return smt.APIErrorf("cannot pop %d scopes at level %d", n, len(b.scopes)-1)
	}
	b.scopes = b.scopes[:len(b.scopes)-int(n)]
	b.model = nil
	return nil
}

// Assert implements smt.Backend.
func (b *Backend) Assert(t Term) error {
	enc, err := b.blast(t)
	if err != nil {
		return err
	}
	if len(enc) != 1 {
		return smt.APIErrorf("assertion %s is not Bool", t)
	}
	top := len(b.scopes) - 1
	b.scopes[top] = append(b.scopes[top], t)
	b.model = nil
	return nil
}

// CheckSat implements smt.Backend. The circuit is compiled into a fresh gini
// instance on every call.
func (b *Backend) CheckSat() (smt.CheckSatResult, error) {
	if b.closed {
		return smt.Unknown, smt.APIErrorf("backend is closed")
	}
	b.model = nil
	b.late = nil
	b.reason = ""

	var roots []z.Lit
	for _, sc := range b.scopes {
		for _, t := range sc {
			enc, err := b.blast(t)
			if err != nil {
				return smt.Unknown, err
			}
			roots = append(roots, enc[0])
		}
	}

	g := gini.New()
	b.c.ToCnf(g)
	for _, m := range append([]z.Lit{b.c.T}, append(b.axioms, roots...)...) {
		g.Add(m)
		g.Add(z.LitNull)
	}

	start := time.Now()
	var res int
	if b.opts.Timeout > 0 {
		res = g.GoSolve().Try(b.opts.Timeout)
	} else {
		res = g.Solve()
	}
	b.logger.With(log.LogParams{
		"nodes":      b.c.Len(),
		"assertions": len(roots),
		"axioms":     len(b.axioms),
		"result":     res,
		"duration":   time.Since(start).String(),
	}).Debug("Solved circuit")

	switch res {
	case 1:
		b.captureModel(g)
		return smt.Sat, nil
	case -1:
		if name, need, ok := b.overCapacity(); ok {
			b.reason = fmt.Sprintf("sort %s has %d terms, more than %d bit elements can distinguish", name, need, b.opts.UninterpretedWidth)
			return smt.Unknown, nil
		}
		return smt.Unsat, nil
	}
	b.reason = "timeout"
	return smt.Unknown, nil
}

// overCapacity counts the uninterpreted values the live assertions mention,
// one per term of an uninterpreted sort or per such field of a record. Unsat
// of the encoding carries over only while every count fits in 2^width.
func (b *Backend) overCapacity() (string, uint64, bool) {
	limit := uint64(1) << b.opts.UninterpretedWidth
	counts := make(map[string]uint64)
	seen := make(map[Term]bool)
	var walk func(t Term)
	walk = func(t Term) {
		if seen[t] {
			return
		}
		seen[t] = true
		countSort(t.Sort(), counts)
		for _, a := range t.Args() {
			walk(a)
		}
	}
	for _, sc := range b.scopes {
		for _, t := range sc {
			walk(t)
		}
	}
	for name, n := range counts {
		if n > limit {
			return name, n, true
		}
	}
	return "", 0, false
}

func countSort(s Sort, counts map[string]uint64) {
	switch s.Kind() {
	case ops.KindUninterpreted:
		counts[s.Name()]++
	case ops.KindRecord:
		for _, fs := range s.FieldSorts() {
			countSort(fs, counts)
		}
	}
}

func (b *Backend) captureModel(g *gini.Gini) {
	vs := make([]bool, b.c.Len())
	max := int(g.MaxVar())
	for v := 1; v < len(vs) && v <= max; v++ {
		vs[v] = g.Value(z.Var(v).Pos())
	}
	b.model = vs
}

// Value implements smt.Backend.
func (b *Backend) Value(t Term) (Term, error) {
	if b.model == nil {
		return Term{}, smt.APIErrorf("no model available")
	}
	enc, err := b.blast(t)
	if err != nil {
		return Term{}, err
	}
	if err := b.extendModel(); err != nil {
		return Term{}, err
	}
	vals := make([]bool, len(enc))
	for i, m := range enc {
		vals[i] = b.eval(m)
	}
	return b.decode(t.Sort(), vals)
}

// ReasonUnknown implements smt.Backend.
func (b *Backend) ReasonUnknown() string {
	return b.reason
}

// Close implements smt.Backend.
func (b *Backend) Close() error {
	b.closed = true
	b.model = nil
	b.enc = nil
	b.apps = nil
	b.c = nil
	return nil
}

// Table exposes the term table, e.g. for rendering.
func (b *Backend) Table() *termtab.Table {
	return b.tab
}

var _ smt.Backend[Sort, Term, Func] = (*Backend)(nil)
