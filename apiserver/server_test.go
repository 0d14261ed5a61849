package apiserver

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/netrixframework/smtkit/backend/bitblast"
	"github.com/netrixframework/smtkit/config"
	"github.com/netrixframework/smtkit/context"
	"github.com/netrixframework/smtkit/internal/termtab"
	"github.com/netrixframework/smtkit/log"
	"github.com/netrixframework/smtkit/util"
)

func newTestServer(t *testing.T) (*APIServer[termtab.Sort, termtab.Term, termtab.Func], string) {
	ctx := context.NewRootContext(config.DefaultConfig(), log.NewNop())
	factory := func() (*bitblast.Session, error) {
		return bitblast.NewSession(bitblast.Options{UninterpretedWidth: 4}, ctx.SessionOptions()...), nil
	}
	srv := NewAPIServer[termtab.Sort, termtab.Term, termtab.Func](ctx, factory)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.sessions.RemoveAll()
	})
	return srv, ts.URL
}

func openSession(t *testing.T, url string) string {
	var resp struct {
		ID string `json:"id"`
	}
	if err := util.SendJSON(http.MethodPost, url+"/sessions", nil, &resp); err != nil {
		t.Fatalf("bad: create session: %s", err)
	}
	if resp.ID == "" {
		t.Fatalf("bad: empty session id")
	}
	return url + "/sessions/" + resp.ID
}

func statusCode(err error) int {
	var se *util.StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

func bv8(name string) TermSpec {
	return TermSpec{Const: name}
}

func lit8(v string) TermSpec {
	return TermSpec{Int: v, Sort: &SortSpec{Name: "BitVec", Width: 8}}
}

func TestSessionLifecycle(t *testing.T) {
	_, url := newTestServer(t)
	base := openSession(t, url)

	err := util.SendJSON(http.MethodPost, base+"/consts", DeclareConstRequest{
		Name: "x",
		Sort: SortSpec{Name: "BitVec", Width: 8},
	}, nil)
	if err != nil {
		t.Fatalf("bad: declare x: %s", err)
	}

	gt := TermSpec{Op: "bvugt", Args: []TermSpec{bv8("x"), lit8("5")}}
	lt := TermSpec{Op: "bvult", Args: []TermSpec{bv8("x"), lit8("7")}}
	for _, a := range []TermSpec{gt, lt} {
		if err := util.SendJSON(http.MethodPost, base+"/assert", TermRequest{Term: a}, nil); err != nil {
			t.Fatalf("bad: assert: %s", err)
		}
	}

	var check struct {
		Result string `json:"result"`
	}
	if err := util.SendJSON(http.MethodPost, base+"/check", nil, &check); err != nil {
		t.Fatalf("bad: check: %s", err)
	}
	if check.Result != "sat" {
		t.Fatalf("bad: result %q", check.Result)
	}

	var value struct {
		Value string `json:"value"`
	}
	if err := util.SendJSON(http.MethodPost, base+"/value", TermRequest{Term: bv8("x")}, &value); err != nil {
		t.Fatalf("bad: value: %s", err)
	}
	if value.Value != "#x06" {
		t.Fatalf("bad: x = %s", value.Value)
	}

	var info struct {
		Level      uint32   `json:"level"`
		Assertions []string `json:"assertions"`
		Last       string   `json:"last"`
	}
	if err := util.SendJSON(http.MethodGet, base, nil, &info); err != nil {
		t.Fatalf("bad: get: %s", err)
	}
	if info.Level != 0 || len(info.Assertions) != 2 || info.Last != "sat" {
		t.Fatalf("bad: info %+v", info)
	}

	if err := util.SendJSON(http.MethodDelete, base, nil, nil); err != nil {
		t.Fatalf("bad: delete: %s", err)
	}
	if code := statusCode(util.SendJSON(http.MethodGet, base, nil, nil)); code != http.StatusNotFound {
		t.Fatalf("bad: deleted session answered %d", code)
	}
}

func TestScopes(t *testing.T) {
	_, url := newTestServer(t)
	base := openSession(t, url)

	if err := util.SendJSON(http.MethodPost, base+"/push", ScopeRequest{N: 1}, nil); err != nil {
		t.Fatalf("bad: push: %s", err)
	}
	falsity := TermSpec{Const: "false"}
	if err := util.SendJSON(http.MethodPost, base+"/assert", TermRequest{Term: falsity}, nil); err != nil {
		t.Fatalf("bad: assert: %s", err)
	}
	var check struct {
		Result string `json:"result"`
	}
	if err := util.SendJSON(http.MethodPost, base+"/check", nil, &check); err != nil || check.Result != "unsat" {
		t.Fatalf("bad: check %q %v", check.Result, err)
	}
	var level struct {
		Level uint32 `json:"level"`
	}
	if err := util.SendJSON(http.MethodPost, base+"/pop", ScopeRequest{N: 1}, &level); err != nil || level.Level != 0 {
		t.Fatalf("bad: pop to %d %v", level.Level, err)
	}
	if err := util.SendJSON(http.MethodPost, base+"/check", nil, &check); err != nil || check.Result != "sat" {
		t.Fatalf("bad: check after pop %q %v", check.Result, err)
	}

	err := util.SendJSON(http.MethodPost, base+"/pop", ScopeRequest{N: 1}, nil)
	if code := statusCode(err); code != http.StatusBadRequest {
		t.Fatalf("bad: pop below the base scope answered %d", code)
	}
}

func TestErrorStatus(t *testing.T) {
	_, url := newTestServer(t)
	base := openSession(t, url)

	err := util.SendJSON(http.MethodPost, base+"/consts", DeclareConstRequest{
		Name: "n",
		Sort: SortSpec{Name: "Int"},
	}, nil)
	if code := statusCode(err); code != http.StatusNotImplemented {
		t.Fatalf("bad: Int on bitblast answered %d", code)
	}

	err = util.SendJSON(http.MethodPost, base+"/assert", TermRequest{Term: TermSpec{Const: "nope"}}, nil)
	if code := statusCode(err); code != http.StatusBadRequest {
		t.Fatalf("bad: unknown constant answered %d", code)
	}

	err = util.SendJSON(http.MethodPost, base+"/consts", map[string]int{"name": 3}, nil)
	if code := statusCode(err); code != http.StatusBadRequest {
		t.Fatalf("bad: malformed body answered %d", code)
	}

	err = util.SendJSON(http.MethodPost, base+"/consts", DeclareConstRequest{
		Name: "huge",
		Sort: SortSpec{Name: "BitVec", Width: 1 << 20},
	}, nil)
	if code := statusCode(err); code != http.StatusBadRequest {
		t.Fatalf("bad: oversized bitvector answered %d", code)
	}

	if err := util.SendJSON(http.MethodPost, base+"/consts", DeclareConstRequest{
		Name: "x",
		Sort: SortSpec{Name: "BitVec", Width: 8},
	}, nil); err != nil {
		t.Fatalf("bad: %s", err)
	}
	rep := TermSpec{Op: "repeat", Indices: []uint32{1 << 31}, Args: []TermSpec{bv8("x")}}
	err = util.SendJSON(http.MethodPost, base+"/assert", TermRequest{Term: TermSpec{Op: "=", Args: []TermSpec{rep, rep}}}, nil)
	if code := statusCode(err); code != http.StatusBadRequest {
		t.Fatalf("bad: wrapping repeat answered %d", code)
	}

	err = util.SendJSON(http.MethodPost, url+"/sessions/missing/check", nil, nil)
	if code := statusCode(err); code != http.StatusNotFound {
		t.Fatalf("bad: missing session answered %d", code)
	}
}

func TestDeclarationsOverHTTP(t *testing.T) {
	_, url := newTestServer(t)
	base := openSession(t, url)

	steps := []struct {
		path string
		body interface{}
	}{
		{"/sorts", DeclareSortRequest{Name: "U"}},
		{"/records", DeclareRecordRequest{Name: "Pair", Fields: []FieldSpec{
			{Name: "a", Sort: SortSpec{Name: "BitVec", Width: 8}},
			{Name: "b", Sort: SortSpec{Name: "Bool"}},
		}}},
		{"/funs", DeclareFunRequest{Name: "f", Args: []SortSpec{{Name: "U"}}, Ret: SortSpec{Name: "BitVec", Width: 8}}},
		{"/consts", DeclareConstRequest{Name: "u", Sort: SortSpec{Name: "U"}}},
		{"/consts", DeclareConstRequest{Name: "p", Sort: SortSpec{Name: "Pair"}}},
	}
	for _, s := range steps {
		if err := util.SendJSON(http.MethodPost, base+s.path, s.body, nil); err != nil {
			t.Fatalf("bad: %s: %s", s.path, err)
		}
	}

	fu := TermSpec{Fun: "f", Args: []TermSpec{{Const: "u"}}}
	pa := TermSpec{Op: "record-select", Field: "a", Args: []TermSpec{{Const: "p"}}}
	built := TermSpec{Record: "Pair", Args: []TermSpec{lit8("3"), {Const: "true"}}}
	asserts := []TermSpec{
		{Op: "=", Args: []TermSpec{fu, lit8("9")}},
		{Op: "=", Args: []TermSpec{pa, fu}},
		{Op: "not", Args: []TermSpec{{Op: "=", Args: []TermSpec{{Const: "p"}, built}}}},
	}
	for _, a := range asserts {
		if err := util.SendJSON(http.MethodPost, base+"/assert", TermRequest{Term: a}, nil); err != nil {
			t.Fatalf("bad: assert: %s", err)
		}
	}
	var check struct {
		Result string `json:"result"`
	}
	if err := util.SendJSON(http.MethodPost, base+"/check", nil, &check); err != nil || check.Result != "sat" {
		t.Fatalf("bad: check %q %v", check.Result, err)
	}
	var value struct {
		Value string `json:"value"`
	}
	if err := util.SendJSON(http.MethodPost, base+"/value", TermRequest{Term: pa}, &value); err != nil {
		t.Fatalf("bad: value: %s", err)
	}
	if value.Value != "#x09" {
		t.Fatalf("bad: (record-select a p) = %s", value.Value)
	}
}

func TestOpsListing(t *testing.T) {
	_, url := newTestServer(t)
	var resp struct {
		Version int       `json:"version"`
		Ops     []OpEntry `json:"ops"`
	}
	if err := util.SendJSON(http.MethodGet, url+"/ops", nil, &resp); err != nil {
		t.Fatalf("bad: ops: %s", err)
	}
	if resp.Version == 0 || len(resp.Ops) == 0 {
		t.Fatalf("bad: empty taxonomy")
	}
	found := false
	for _, o := range resp.Ops {
		if o.Name == "extract" {
			found = o.Indices == 2
		}
	}
	if !found {
		t.Fatalf("bad: extract missing or without indices")
	}
}
