package smt

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/netrixframework/smtkit/smt/ops"
)

// fakeSort, fakeTerm and fakeFun are the handles of fakeBackend. The backend
// performs no reasoning; tests script the outcome of CheckSat.
type fakeSort struct {
	kind  ops.SortKind
	width uint32
	name  string
}

func (s fakeSort) SMTLib() (string, error) {
	if s.name != "" {
		return s.name, nil
	}
	return ops.Sort{Kind: s.kind, Width: s.width}.String(), nil
}

type fakeTerm struct {
	owner *fakeBackend
	sort  fakeSort
	text  string
	value *int64
}

func (t *fakeTerm) SMTLib() (string, error) {
	return t.text, nil
}

func (t *fakeTerm) Int64() (int64, error) {
	if t.value == nil {
		return 0, APIErrorf("%s is not a numeral", t.text)
	}
	return *t.value, nil
}

type fakeFun struct {
	name string
	ret  fakeSort
}

func (f *fakeFun) Name() (string, error) {
	return f.name, nil
}

type fakeBackend struct {
	depth    uint32
	asserted []*fakeTerm

	next    CheckSatResult
	nextErr error
	pushErr error
	closed  bool
}

func newFake() *fakeBackend {
	return &fakeBackend{next: Sat}
}

func (b *fakeBackend) SortOf(t *fakeTerm) (fakeSort, error) {
	if t.owner != nil && t.owner != b {
		return fakeSort{}, APIErrorf("term does not belong to this session")
	}
	return t.sort, nil
}

func (b *fakeBackend) Describe(s fakeSort) (ops.Sort, error) {
	return ops.Sort{Kind: s.kind, Width: s.width}, nil
}

func (b *fakeBackend) DeclareSort(name string) (fakeSort, error) {
	return fakeSort{kind: ops.KindUninterpreted, name: name}, nil
}

func (b *fakeBackend) BuiltinSort(s ops.Sort) (fakeSort, error) {
	if s.Kind == ops.KindReal {
		return fakeSort{}, Unsupportedf("reals")
	}
	return fakeSort{kind: s.Kind, width: s.Width}, nil
}

func (b *fakeBackend) ArraySort(d, r fakeSort) (fakeSort, error) {
	return fakeSort{kind: ops.KindArray, name: fmt.Sprintf("(Array %s %s)", d.name, r.name)}, nil
}

func (b *fakeBackend) RecordSort(name string, fields []string, sorts []fakeSort) (fakeSort, error) {
	return fakeSort{kind: ops.KindRecord, name: name}, nil
}

func (b *fakeBackend) DeclareFun(name string, args []fakeSort, ret fakeSort) (*fakeFun, error) {
	return &fakeFun{name: name, ret: ret}, nil
}

func (b *fakeBackend) DeclareConst(name string, s fakeSort) (*fakeTerm, error) {
	return &fakeTerm{owner: b, sort: s, text: name}, nil
}

func (b *fakeBackend) BuiltinConst(op ops.Op) (*fakeTerm, error) {
	return &fakeTerm{sort: fakeSort{kind: ops.KindBool}, text: op.String()}, nil
}

func (b *fakeBackend) Numeral(n Numeral, s fakeSort) (*fakeTerm, error) {
	t := &fakeTerm{sort: s, text: n.String()}
	if v, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		t.value = &v
	}
	return t, nil
}

func (b *fakeBackend) RecordConst(s fakeSort, fields []*fakeTerm) (*fakeTerm, error) {
	return &fakeTerm{sort: s, text: "mk-" + s.name}, nil
}

func (b *fakeBackend) ApplyOp(fn ops.Fn, args []*fakeTerm) (*fakeTerm, error) {
	sort := fakeSort{kind: ops.KindBool}
	if fn.Op.Info().Shape == ops.ShapeBvN && len(args) > 0 {
		sort = args[0].sort
	}
	return &fakeTerm{sort: sort, text: fn.String()}, nil
}

func (b *fakeBackend) ApplyUF(f *fakeFun, args []*fakeTerm) (*fakeTerm, error) {
	return &fakeTerm{sort: f.ret, text: f.name}, nil
}

func (b *fakeBackend) Push(n uint32) error {
	if b.pushErr != nil {
		return b.pushErr
	}
	b.depth += n
	return nil
}

func (b *fakeBackend) Pop(n uint32) error {
	b.depth -= n
	return nil
}

func (b *fakeBackend) Assert(t *fakeTerm) error {
	b.asserted = append(b.asserted, t)
	return nil
}

func (b *fakeBackend) CheckSat() (CheckSatResult, error) {
	return b.next, b.nextErr
}

func (b *fakeBackend) Value(t *fakeTerm) (*fakeTerm, error) {
	v := int64(42)
	return &fakeTerm{sort: t.sort, text: "42", value: &v}, nil
}

func (b *fakeBackend) ReasonUnknown() string {
	return "incomplete"
}

func (b *fakeBackend) Close() error {
	if b.closed {
		return errors.New("closed twice")
	}
	b.closed = true
	return nil
}

var _ Backend[fakeSort, *fakeTerm, *fakeFun] = (*fakeBackend)(nil)
var _ Solver[fakeSort, *fakeTerm, *fakeFun] = (*Session[fakeSort, *fakeTerm, *fakeFun])(nil)
