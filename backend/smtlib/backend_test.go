package smtlib

import (
	"bytes"
	"io"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/netrixframework/smtkit/smt"
	"github.com/netrixframework/smtkit/smt/ops"
)

// scripted answers commands synchronously, one response per line written.
type scripted struct {
	cmds    []string
	pending []byte
	out     bytes.Buffer
	closed  bool
	answers map[string]string
}

func newScripted(answers map[string]string) *scripted {
	return &scripted{answers: answers}
}

func (s *scripted) respond(cmd string) string {
	for prefix, answer := range s.answers {
		if strings.HasPrefix(cmd, prefix) {
			return answer
		}
	}
	if cmd == "(exit)" {
		return ""
	}
	return "success"
}

func (s *scripted) Write(p []byte) (int, error) {
	if s.closed {
		return 0, io.ErrClosedPipe
	}
	s.pending = append(s.pending, p...)
	for {
		i := bytes.IndexByte(s.pending, '\n')
		if i < 0 {
			break
		}
		cmd := string(s.pending[:i])
		s.pending = s.pending[i+1:]
		s.cmds = append(s.cmds, cmd)
		if r := s.respond(cmd); r != "" {
			s.out.WriteString(r + "\n")
		}
	}
	return len(p), nil
}

func (s *scripted) Read(p []byte) (int, error) {
	return s.out.Read(p)
}

func (s *scripted) Close() error {
	s.closed = true
	return nil
}

func (s *scripted) sent(cmd string) bool {
	for _, c := range s.cmds {
		if c == cmd {
			return true
		}
	}
	return false
}

func scriptedSession(t *testing.T, answers map[string]string) (*Session, *scripted) {
	t.Helper()
	conn := newScripted(answers)
	b, err := NewConn(conn, Options{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("bad: %s", err)
	}
	return smt.NewSession[Sort, Term, Func](b), conn
}

func apply(t *testing.T, s *Session, a ops.Applicable, args ...Term) Term {
	t.Helper()
	term, err := s.ApplyFun(smt.Builtin[Func](a), args)
	if err != nil {
		t.Fatalf("bad: %s: %s", a.Fn(), err)
	}
	return term
}

func TestScriptedSession(t *testing.T) {
	s, conn := scriptedSession(t, map[string]string{
		"(check-sat)": "sat",
		"(get-value":  "((x 7))",
	})
	for _, c := range []string{
		"(set-option :print-success true)",
		"(set-option :produce-models true)",
		"(set-option :global-declarations true)",
		"(set-logic ALL)",
		"(set-option :timeout 2000)",
	} {
		if !conn.sent(c) {
			t.Fatalf("bad: %s not sent", c)
		}
	}

	intS, _ := s.LookupSort(ops.Int)
	x, _ := s.DeclareConst("x", intS)
	zero, _ := s.ConstFromInt(0, intS)
	s.Push(1)
	if err := s.Assert(apply(t, s, ops.Gt, x, zero)); err != nil {
		t.Fatalf("bad: %s", err)
	}
	if r := s.CheckSat(); r != smt.Sat {
		t.Fatalf("bad: result %s", r)
	}
	v, err := s.GetValue(x)
	if err != nil {
		t.Fatalf("bad: %s", err)
	}
	if n, _ := v.Int64(); n != 7 {
		t.Fatalf("bad: x = %s", v)
	}
	s.Pop(1)
	for _, c := range []string{"(declare-const x Int)", "(push 1)", "(assert (> x 0))", "(get-value (x))", "(pop 1)"} {
		if !conn.sent(c) {
			t.Fatalf("bad: %s not sent, got %v", c, conn.cmds)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("bad: %s", err)
	}
	if !conn.sent("(exit)") || !conn.closed {
		t.Fatalf("bad: solver not shut down")
	}
}

func TestGetValueForeignTerm(t *testing.T) {
	answers := map[string]string{"(check-sat)": "sat", "(get-value": "((x 7))"}
	a, _ := scriptedSession(t, answers)
	b, conn := scriptedSession(t, answers)
	intA, _ := a.LookupSort(ops.Int)
	intB, _ := b.LookupSort(ops.Int)
	ax, _ := a.DeclareConst("x", intA)
	b.DeclareConst("x", intB)
	if r := b.CheckSat(); r != smt.Sat {
		t.Fatalf("bad: result %s", r)
	}
	if _, err := b.GetValue(ax); !smt.IsAPI(err) {
		t.Fatalf("bad: foreign get-value: %v", err)
	}
	for _, c := range conn.cmds {
		if strings.HasPrefix(c, "(get-value") {
			t.Fatalf("bad: %s sent for a foreign term", c)
		}
	}
	if _, err := b.Backend().Value(ax); !smt.IsAPI(err) {
		t.Fatalf("bad: backend value of foreign term: %v", err)
	}
}

func TestScriptedDeclarations(t *testing.T) {
	s, conn := scriptedSession(t, nil)
	intS, _ := s.LookupSort(ops.Int)
	u, _ := s.DeclareSort("U")
	s.DeclareRecordSort("Point", []string{"x", "y"}, []Sort{intS, intS})
	s.DeclareFun("f", []Sort{u, intS}, intS)
	for _, c := range []string{
		"(declare-sort U 0)",
		"(declare-datatypes ((Point 0)) (((mk-Point (Point.x Int) (Point.y Int)))))",
		"(declare-fun f (U Int) Int)",
	} {
		if !conn.sent(c) {
			t.Fatalf("bad: %s not sent, got %v", c, conn.cmds)
		}
	}
}

func TestScriptedUnknown(t *testing.T) {
	s, _ := scriptedSession(t, map[string]string{
		"(check-sat)":                "unknown",
		"(get-info :reason-unknown)": "(:reason-unknown \"timeout\")",
	})
	if r := s.CheckSat(); r != smt.Unknown {
		t.Fatalf("bad: result %s", r)
	}
	if s.ReasonUnknown() != "timeout" {
		t.Fatalf("bad: reason %q", s.ReasonUnknown())
	}
	boolS, _ := s.LookupSort(ops.Bool)
	p, _ := s.DeclareConst("p", boolS)
	if _, err := s.GetValue(p); !smt.IsAPI(err) {
		t.Fatalf("bad: get-value after unknown: %v", err)
	}
}

func TestScriptedErrors(t *testing.T) {
	s, _ := scriptedSession(t, map[string]string{
		"(assert":     `(error "line 3 column 10: invalid assertion")`,
		"(push":       "unsupported",
		"(check-sat)": "maybe",
	})
	boolS, _ := s.LookupSort(ops.Bool)
	p, _ := s.DeclareConst("p", boolS)
	err := s.Assert(p)
	if !smt.IsInternal(err) || !strings.Contains(err.Error(), "invalid assertion") {
		t.Fatalf("bad: %v", err)
	}
	if err := s.Push(1); !smt.IsUnsupported(err) {
		t.Fatalf("bad: %v", err)
	}
	if s.Level() != 0 {
		t.Fatalf("bad: level %d", s.Level())
	}
	if r := s.CheckSat(); r != smt.Unknown {
		t.Fatalf("bad: result %s", r)
	}
}

func TestTimeoutOptionUnsupported(t *testing.T) {
	conn := newScripted(map[string]string{"(set-option :timeout": "unsupported"})
	if _, err := NewConn(conn, Options{Timeout: time.Second}); err != nil {
		t.Fatalf("bad: %s", err)
	}
}

func TestBrokenConnection(t *testing.T) {
	conn := newScripted(nil)
	b, err := NewConn(conn, Options{})
	if err != nil {
		t.Fatalf("bad: %s", err)
	}
	conn.closed = true
	if err := b.Push(1); !smt.IsInternal(err) {
		t.Fatalf("bad: %v", err)
	}
	if err := b.Pop(1); !smt.IsInternal(err) {
		t.Fatalf("bad: broken connection reused: %v", err)
	}
}

func z3Session(t *testing.T) *Session {
	t.Helper()
	path, err := exec.LookPath("z3")
	if err != nil {
		t.Skip("z3 not installed")
	}
	s, err := NewSession(Options{Command: []string{path, "-in", "-smt2"}})
	if err != nil {
		t.Fatalf("bad: %s", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestZ3Arithmetic(t *testing.T) {
	s := z3Session(t)
	intS, _ := s.LookupSort(ops.Int)
	x, _ := s.DeclareConst("x", intS)
	y, _ := s.DeclareConst("y", intS)
	ten, _ := s.ConstFromInt(10, intS)
	three, _ := s.ConstFromInt(3, intS)
	s.Assert(apply(t, s, ops.Eq, apply(t, s, ops.Plus, x, y), ten))
	s.Assert(apply(t, s, ops.Eq, apply(t, s, ops.Minus, x, y), three))
	if r := s.CheckSat(); r != smt.Unsat {
		t.Fatalf("bad: result %s", r)
	}
}

func TestZ3ScopesAndModels(t *testing.T) {
	s := z3Session(t)
	intS, _ := s.LookupSort(ops.Int)
	s.Push(1)
	x, _ := s.DeclareConst("x", intS)
	s.Pop(1)
	neg, _ := s.ConstFromInt(-4, intS)
	s.Assert(apply(t, s, ops.Eq, x, neg))
	if r := s.CheckSat(); r != smt.Sat {
		t.Fatalf("bad: result %s", r)
	}
	v, err := s.GetValue(x)
	if err != nil {
		t.Fatalf("bad: %s", err)
	}
	if n, _ := v.Int64(); n != -4 {
		t.Fatalf("bad: x = %s", v)
	}

	s.Push(1)
	f, _ := s.LookupConst(ops.False)
	s.Assert(f)
	if r := s.CheckSat(); r != smt.Unsat {
		t.Fatalf("bad: result %s", r)
	}
	s.Pop(1)
	if r := s.CheckSat(); r != smt.Sat {
		t.Fatalf("bad: result %s after pop", r)
	}
}

func TestZ3Records(t *testing.T) {
	s := z3Session(t)
	intS, _ := s.LookupSort(ops.Int)
	pt, _ := s.DeclareRecordSort("Point", []string{"x", "y"}, []Sort{intS, intS})
	q, _ := s.DeclareConst("q", pt)
	one, _ := s.ConstFromInt(1, intS)
	two, _ := s.ConstFromInt(2, intS)
	p, _ := s.RecordConst(pt, []Term{one, two})
	s.Assert(apply(t, s, ops.Eq, q, apply(t, s, ops.RecordUpdate.Field("x"), p, two)))
	if r := s.CheckSat(); r != smt.Sat {
		t.Fatalf("bad: result %s", r)
	}
	v, err := s.GetValue(q)
	if err != nil {
		t.Fatalf("bad: %s", err)
	}
	if text, _ := v.SMTLib(); text != "(mk-Point 2 2)" {
		t.Fatalf("bad: q = %s", text)
	}
}
