// Package smtlib is an engine adapter that drives an external SMT-LIB 2
// solver, such as "z3 -in -smt2" or "cvc5 --incremental", over its standard
// input and output.
//
// Every command is answered, since the session enables :print-success.
// Declarations are made global so they survive pop, matching the contract.
package smtlib

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/netrixframework/smtkit/internal/termtab"
	"github.com/netrixframework/smtkit/log"
	"github.com/netrixframework/smtkit/smt"
	"github.com/netrixframework/smtkit/smt/ops"
	"github.com/pkg/errors"
)

// Sort, Term and Func are the handles of this backend.
type (
	Sort = termtab.Sort
	Term = termtab.Term
	Func = termtab.Func
)

// Session is a solver session over an external process.
type Session = smt.Session[Sort, Term, Func]

// Options configures a Backend.
type Options struct {
	// Command is the solver executable followed by its arguments.
	Command []string
	// Timeout is passed to the solver as the :timeout option in milliseconds.
	// Zero means no bound.
	Timeout time.Duration
	// Logic is sent with set-logic. Defaults to ALL.
	Logic  string
	Logger *log.Logger
}

// Backend implements smt.Backend.
type Backend struct {
	tab    *termtab.Table
	opts   Options
	logger *log.Logger

	w    *bufio.Writer
	rd   *reader
	conn io.Closer
	cmd  *exec.Cmd

	reason string
	broken error
	closed bool
}

// New starts the solver process and configures it.
func New(opts Options) (*Backend, error) {
	if len(opts.Command) == 0 {
		return nil, smt.APIErrorf("no solver command")
	}
	cmd := exec.Command(opts.Command[0], opts.Command[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, smt.Internal(err, "opening solver stdin")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, smt.Internal(err, "opening solver stdout")
	}
	if err := cmd.Start(); err != nil {
		return nil, smt.Internal(err, "starting "+opts.Command[0])
	}
	b, err := newBackend(stdout, stdin, opts)
	if err != nil {
		stdin.Close()
		cmd.Process.Kill()
		cmd.Wait()
		return nil, err
	}
	b.cmd = cmd
	b.logger.With(log.LogParams{"pid": cmd.Process.Pid, "command": strings.Join(opts.Command, " ")}).Debug("Started solver")
	return b, nil
}

// NewConn drives a solver that is already connected, e.g. over a socket.
func NewConn(conn io.ReadWriteCloser, opts Options) (*Backend, error) {
	return newBackend(conn, conn, opts)
}

func newBackend(r io.Reader, w io.WriteCloser, opts Options) (*Backend, error) {
	if opts.Logger == nil {
		opts.Logger = log.DefaultLogger
	}
	if opts.Logic == "" {
		opts.Logic = "ALL"
	}
	b := &Backend{
		tab:    termtab.New(),
		opts:   opts,
		logger: opts.Logger.With(log.LogParams{"backend": "smtlib"}),
		w:      bufio.NewWriter(w),
		rd:     newReader(r),
		conn:   w,
	}
	setup := []string{
		"(set-option :print-success true)",
		"(set-option :produce-models true)",
		"(set-option :global-declarations true)",
		fmt.Sprintf("(set-logic %s)", opts.Logic),
	}
	for _, c := range setup {
		if err := b.command(c); err != nil {
			return nil, err
		}
	}
	if opts.Timeout > 0 {
		// Not every solver knows :timeout.
		if err := b.command(fmt.Sprintf("(set-option :timeout %d)", opts.Timeout.Milliseconds())); err != nil && !smt.IsUnsupported(err) {
			return nil, err
		}
	}
	return b, nil
}

// NewSession starts a solver and returns a session over it.
func NewSession(opts Options, sessionOpts ...smt.Option) (*Session, error) {
	b, err := New(opts)
	if err != nil {
		return nil, err
	}
	if opts.Logger != nil {
		sessionOpts = append([]smt.Option{smt.WithLogger(opts.Logger)}, sessionOpts...)
	}
	return smt.NewSession[Sort, Term, Func](b, sessionOpts...), nil
}

func (b *Backend) send(c string) error {
	if b.broken != nil {
		return smt.Internal(b.broken, "solver connection is broken")
	}
	b.logger.With(log.LogParams{"command": c}).Debug("Sending command")
	if _, err := b.w.WriteString(c + "\n"); err != nil {
		b.broken = err
		return smt.Internal(err, "writing to solver")
	}
	if err := b.w.Flush(); err != nil {
		b.broken = err
		return smt.Internal(err, "writing to solver")
	}
	return nil
}

func (b *Backend) receive() (sexp, error) {
	resp, err := b.rd.read()
	if err != nil {
		b.broken = err
		return sexp{}, smt.Internal(err, "reading from solver")
	}
	if resp.head() == "error" {
		msg := resp.String()
		if len(resp.list) > 1 {
			msg = strings.Trim(resp.list[1].atom, `"`)
		}
		return sexp{}, smt.Internalf("solver error: %s", msg)
	}
	if resp.atom == "unsupported" {
		return sexp{}, smt.Unsupportedf("solver does not support this command")
	}
	return resp, nil
}

// command sends c and expects success.
func (b *Backend) command(c string) error {
	if err := b.send(c); err != nil {
		return err
	}
	resp, err := b.receive()
	if err != nil {
		return err
	}
	if resp.atom != "success" {
		return smt.Internalf("unexpected response to %s: %s", c, resp)
	}
	return nil
}

// query sends c and returns the response.
func (b *Backend) query(c string) (sexp, error) {
	if err := b.send(c); err != nil {
		return sexp{}, err
	}
	return b.receive()
}

func (b *Backend) render(t Term) (string, error) {
	s, err := t.SMTLib()
	if err != nil {
		return "", err
	}
	return s, nil
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
	s := b.tab.DeclareSort(name)
	if err := b.command(s.DeclareSortCmd()); err != nil {
		return Sort{}, err
	}
	return s, nil
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
	s, err := b.tab.RecordSort(name, fields, sorts)
	if err != nil {
		return Sort{}, err
	}
	if err := b.command(s.DeclareDatatypeCmd()); err != nil {
		return Sort{}, err
	}
	return s, nil
}

// DeclareFun implements smt.Backend.
func (b *Backend) DeclareFun(name string, args []Sort, ret Sort) (Func, error) {
	f, err := b.tab.DeclareFun(name, args, ret)
	if err != nil {
		return Func{}, err
	}
	if err := b.command(f.DeclareFunCmd()); err != nil {
		return Func{}, err
	}
	return f, nil
}

// DeclareConst implements smt.Backend.
func (b *Backend) DeclareConst(name string, s Sort) (Term, error) {
	t, err := b.tab.DeclareConst(name, s)
	if err != nil {
		return Term{}, err
	}
	if err := b.command(t.DeclareConstCmd()); err != nil {
		return Term{}, err
	}
	return t, nil
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
	return b.command(fmt.Sprintf("(push %d)", n))
}

// Pop implements smt.Backend.
func (b *Backend) Pop(n uint32) error {
	return b.command(fmt.Sprintf("(pop %d)", n))
}

// Assert implements smt.Backend.
func (b *Backend) Assert(t Term) error {
	text, err := b.render(t)
	if err != nil {
		return err
	}
	return b.command("(assert " + text + ")")
}

// CheckSat implements smt.Backend.
func (b *Backend) CheckSat() (smt.CheckSatResult, error) {
	b.reason = ""
	resp, err := b.query("(check-sat)")
	if err != nil {
		return smt.Unknown, err
	}
	switch resp.atom {
	case "sat":
		return smt.Sat, nil
	case "unsat":
		return smt.Unsat, nil
	case "unknown":
		b.reason = b.reasonUnknown()
		return smt.Unknown, nil
	}
	return smt.Unknown, smt.Internalf("unexpected check-sat response %s", resp)
}

func (b *Backend) reasonUnknown() string {
	resp, err := b.query("(get-info :reason-unknown)")
	if err != nil {
		return "unknown"
	}
	// (:reason-unknown incomplete)
	if resp.isList && len(resp.list) == 2 {
		return strings.Trim(resp.list[1].String(), `"|`)
	}
	return resp.String()
}

// Value implements smt.Backend.
func (b *Backend) Value(t Term) (Term, error) {
	if _, err := b.tab.SortOf(t); err != nil {
		return Term{}, err
	}
	text, err := b.render(t)
	if err != nil {
		return Term{}, err
	}
	resp, err := b.query("(get-value (" + text + "))")
	if err != nil {
		return Term{}, err
	}
	// ((term value))
	if !resp.isList || len(resp.list) != 1 || !resp.list[0].isList || len(resp.list[0].list) != 2 {
		return Term{}, smt.Internalf("malformed get-value response %s", resp)
	}
	return b.toTerm(resp.list[0].list[1], t.Sort())
}

// ReasonUnknown implements smt.Backend.
func (b *Backend) ReasonUnknown() string {
	return b.reason
}

// Close implements smt.Backend. The solver is asked to exit and, when it
// was started by New, waited for.
func (b *Backend) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	if b.broken == nil {
		b.send("(exit)")
	}
	err := b.conn.Close()
	if b.cmd != nil {
		if werr := b.cmd.Wait(); werr != nil && err == nil {
			var exit *exec.ExitError
			if !errors.As(werr, &exit) {
				err = werr
			}
		}
	}
	if err != nil {
		return smt.Internal(err, "closing solver")
	}
	return nil
}

// Table exposes the term table.
func (b *Backend) Table() *termtab.Table {
	return b.tab
}

var _ smt.Backend[Sort, Term, Func] = (*Backend)(nil)
