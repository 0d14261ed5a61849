package smt

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/netrixframework/smtkit/smt/ops"
)

func TestErrorKinds(t *testing.T) {
	cases := []struct {
		err  error
		kind ErrorKind
	}{
		{APIErrorf("bad %d", 1), APIError},
		{Unsupportedf("no reals"), UnsupportedError},
		{Internalf("crash"), InternalError},
		{Internal(io.EOF, "read"), InternalError},
		{fmt.Errorf("wrapped: %w", APIErrorf("x")), APIError},
	}
	for _, c := range cases {
		k, ok := KindOf(c.err)
		if !ok || k != c.kind {
			t.Fatalf("bad: %v classified as %s", c.err, k)
		}
		if IsAPI(c.err) != (c.kind == APIError) ||
			IsUnsupported(c.err) != (c.kind == UnsupportedError) ||
			IsInternal(c.err) != (c.kind == InternalError) {
			t.Fatalf("bad: predicates disagree for %v", c.err)
		}
	}
	if _, ok := KindOf(io.EOF); ok {
		t.Fatalf("bad: plain error classified")
	}
}

func TestInternalUnwrap(t *testing.T) {
	err := Internal(io.EOF, "reading solver output")
	if !errors.Is(err, io.EOF) {
		t.Fatalf("bad: cause lost")
	}
	if err.Error() != "InternalError: reading solver output: EOF" {
		t.Fatalf("bad:\n%s", err.Error())
	}
}

func TestClassify(t *testing.T) {
	if Classify(nil, "x") != nil {
		t.Fatalf("bad: nil classified")
	}
	api := APIErrorf("x")
	if Classify(api, "y") != error(api) {
		t.Fatalf("bad: classified error rewrapped")
	}
	if !IsInternal(Classify(io.EOF, "y")) {
		t.Fatalf("bad: native error not internal")
	}
}

func TestWithOp(t *testing.T) {
	err := withOp(APIErrorf("too deep"), "pop")
	if err.Error() != "APIError in pop: too deep" {
		t.Fatalf("bad:\n%s", err.Error())
	}
	if !errors.Is(err, &Error{Kind: APIError, Op: "pop"}) {
		t.Fatalf("bad: op not matched")
	}
	if errors.Is(err, &Error{Kind: APIError, Op: "push"}) {
		t.Fatalf("bad: wrong op matched")
	}
	if !IsInternal(withOp(io.EOF, "check_sat")) {
		t.Fatalf("bad: native error not internal")
	}
}

func TestErrorKindString(t *testing.T) {
	if UnsupportedError.String() != "UnsupportedError" {
		t.Fatalf("bad: %s", UnsupportedError)
	}
	if ErrorKind(9).String() != "ErrorKind(9)" {
		t.Fatalf("bad: %s", ErrorKind(9))
	}
}

func TestCheckSatResultString(t *testing.T) {
	want := map[CheckSatResult]string{NotChecked: "none", Sat: "sat", Unsat: "unsat", Unknown: "unknown"}
	for r, s := range want {
		if r.String() != s {
			t.Fatalf("bad: %d renders %s", r, r)
		}
	}
}

func TestFunctionVariants(t *testing.T) {
	f := Builtin[*fakeFun](ops.Extract.With(7, 0))
	if f.IsUF() {
		t.Fatalf("bad: builtin reported as UF")
	}
	fn, ok := f.Builtin()
	if !ok || fn.Op != ops.Extract {
		t.Fatalf("bad: builtin lost")
	}
	if _, ok := f.UF(); ok {
		t.Fatalf("bad: builtin has a UF")
	}
	if f.String() != "(_ extract 7 0)" {
		t.Fatalf("bad:\n%s", f.String())
	}
}
