//go:build z3

// Package z3 is an engine adapter over the Z3 C API. It is built only with
// the z3 build tag and links against libz3.
//
// Sorts and terms live in a termtab.Table like the other in-process adapters.
// They are translated to Z3 ASTs when first asserted or evaluated, and the
// translation is cached for the lifetime of the session.
package z3

// #include <z3.h>
import "C"
import (
	"time"

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

// Session is a solver session over Z3.
type Session = smt.Session[Sort, Term, Func]

// Options configures a Backend.
type Options struct {
	// Timeout bounds each check-sat. Zero means no bound.
	Timeout time.Duration
	Logger  *log.Logger
}

type tuple struct {
	ctor C.Z3_func_decl
	proj []C.Z3_func_decl
}

// Backend implements smt.Backend.
type Backend struct {
	tab    *termtab.Table
	opts   Options
	logger *log.Logger

	ctx    *context
	solver *solver
	model  *model

	sorts  map[Sort]C.Z3_sort
	tuples map[Sort]*tuple
	funcs  map[Func]C.Z3_func_decl
	asts   map[Term]C.Z3_ast

	reason string
	closed bool
}

// New creates a Z3 context and solver.
func New(opts Options) *Backend {
	if opts.Logger == nil {
		opts.Logger = log.DefaultLogger
	}
	ctx := newContext()
	return &Backend{
		tab:    termtab.New(),
		opts:   opts,
		logger: opts.Logger.With(log.LogParams{"backend": "z3"}),
		ctx:    ctx,
		solver: ctx.newSolver(opts.Timeout),
		sorts:  make(map[Sort]C.Z3_sort),
		tuples: make(map[Sort]*tuple),
		funcs:  make(map[Func]C.Z3_func_decl),
		asts:   make(map[Term]C.Z3_ast),
	}
}

// NewSession returns a session over a fresh backend.
func NewSession(opts Options, sessionOpts ...smt.Option) *Session {
	if opts.Logger != nil {
		sessionOpts = append([]smt.Option{smt.WithLogger(opts.Logger)}, sessionOpts...)
	}
	return smt.NewSession[Sort, Term, Func](New(opts), sessionOpts...)
}

func (b *Backend) usable() error {
	if b.closed {
		return smt.APIErrorf("backend is closed")
	}
	return nil
}

func (b *Backend) dropModel() {
	if b.model != nil {
		b.model.Close()
		b.model = nil
	}
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
	return b.tab.BuiltinSort(s)
}

// ArraySort implements smt.Backend.
func (b *Backend) ArraySort(domain, rng Sort) (Sort, error) {
	return b.tab.ArraySort(domain, rng)
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
	return b.tab.Apply(fn, args)
}

// ApplyUF implements smt.Backend.
func (b *Backend) ApplyUF(f Func, args []Term) (Term, error) {
	return b.tab.ApplyUF(f, args)
}

// Push implements smt.Backend.
func (b *Backend) Push(n uint32) error {
	if err := b.usable(); err != nil {
		return err
	}
	b.dropModel()
	b.solver.Push(n)
	return b.ctx.check("push")
}

// Pop implements smt.Backend.
func (b *Backend) Pop(n uint32) error {
	if err := b.usable(); err != nil {
		return err
	}
	b.dropModel()
	b.solver.Pop(n)
	return b.ctx.check("pop")
}

// Assert implements smt.Backend.
func (b *Backend) Assert(t Term) error {
	if err := b.usable(); err != nil {
		return err
	}
	a, err := b.ast(t)
	if err != nil {
		return err
	}
	b.dropModel()
	b.solver.Assert(a)
	return b.ctx.check("assert")
}

// CheckSat implements smt.Backend.
func (b *Backend) CheckSat() (smt.CheckSatResult, error) {
	if err := b.usable(); err != nil {
		return smt.Unknown, err
	}
	b.dropModel()
	b.reason = ""
	start := time.Now()
	r := b.solver.Check()
	if err := b.ctx.check("check-sat"); err != nil {
		return smt.Unknown, err
	}
	b.logger.With(log.LogParams{"result": r.String(), "duration": time.Since(start).String()}).Debug("Checked")
	switch r {
	case smt.Sat:
		b.model = b.solver.Model()
		if b.model == nil {
			return smt.Unknown, smt.Internalf("z3 reported sat without a model")
		}
	case smt.Unknown:
		b.reason = b.solver.ReasonUnknown()
	}
	return r, nil
}

// Value implements smt.Backend.
func (b *Backend) Value(t Term) (Term, error) {
	if err := b.usable(); err != nil {
		return Term{}, err
	}
	if b.model == nil {
		return Term{}, smt.APIErrorf("no model available")
	}
	a, err := b.ast(t)
	if err != nil {
		return Term{}, err
	}
	v := b.model.Eval(a)
	if err := b.ctx.check("get-value"); err != nil {
		return Term{}, err
	}
	if v == nil {
		return Term{}, smt.Internalf("z3 could not evaluate %s", t)
	}
	return b.decode(v, t.Sort())
}

// ReasonUnknown implements smt.Backend.
func (b *Backend) ReasonUnknown() string {
	return b.reason
}

// Close implements smt.Backend.
func (b *Backend) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.dropModel()
	b.solver.Close()
	b.ctx.Close()
	return nil
}

// Table exposes the term table.
func (b *Backend) Table() *termtab.Table {
	return b.tab
}

var _ smt.Backend[Sort, Term, Func] = (*Backend)(nil)
