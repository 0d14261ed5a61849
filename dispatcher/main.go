// Package dispatcher drives solver sessions hosted by a remote APIServer.
package dispatcher

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/netrixframework/smtkit/apiserver"
	"github.com/netrixframework/smtkit/context"
	"github.com/netrixframework/smtkit/log"
	"github.com/netrixframework/smtkit/smt"
	"github.com/netrixframework/smtkit/util"
)

var (
	// ErrSessionClosed is returned by every method of a closed Remote
	ErrSessionClosed = errors.New("remote session closed")
	// ErrBadResponse is returned when a response could not be understood
	ErrBadResponse = errors.New("bad response")

	kinds = map[string]smt.ErrorKind{
		smt.APIError.String():         smt.APIError,
		smt.UnsupportedError.String(): smt.UnsupportedError,
		smt.InternalError.String():    smt.InternalError,
	}
)

// Dispatcher sends solver commands to one APIServer over a keep-alive client
type Dispatcher struct {
	addr   string
	client *http.Client
	logger *log.Logger

	sessions map[string]*Remote
	lock     *sync.Mutex
}

// NewDispatcher instantiates a new instance of Dispatcher. addr is the
// server address with or without the http scheme.
func NewDispatcher(ctx *context.RootContext, addr string) *Dispatcher {
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}
	return &Dispatcher{
		addr: strings.TrimSuffix(addr, "/"),
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 2,
			},
		},
		logger:   ctx.Logger.With(log.LogParams{"service": "dispatcher", "addr": addr}),
		sessions: make(map[string]*Remote),
		lock:     new(sync.Mutex),
	}
}

// Open creates a session on the server
func (d *Dispatcher) Open() (*Remote, error) {
	var resp struct {
		ID string `json:"id"`
	}
	if err := d.send(http.MethodPost, "/sessions", nil, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, ErrBadResponse
	}
	r := &Remote{d: d, ID: resp.ID}
	d.lock.Lock()
	d.sessions[r.ID] = r
	d.lock.Unlock()
	d.logger.With(log.LogParams{"session": r.ID}).Debug("Opened remote session")
	return r, nil
}

// CloseAll closes every session opened through d, returning the first error
func (d *Dispatcher) CloseAll() error {
	d.lock.Lock()
	open := make([]*Remote, 0, len(d.sessions))
	for _, r := range d.sessions {
		open = append(open, r)
	}
	d.lock.Unlock()

	errCh := make(chan error, len(open))
	for _, r := range open {
		go func(r *Remote) {
			errCh <- r.Close()
		}(r)
	}
	var first error
	for range open {
		if err := <-errCh; err != nil && first == nil {
			first = err
		}
	}
	return first
}

// send performs one request. Error responses carrying a kind come back as
// *smt.Error of that kind.
func (d *Dispatcher) send(method, path string, body, out interface{}) error {
	err := util.SendJSONWith(d.client, method, d.addr+path, body, out)
	var se *util.StatusError
	if !errors.As(err, &se) {
		return err
	}
	var remote struct {
		Error string `json:"error"`
		Kind  string `json:"kind"`
	}
	if jerr := json.Unmarshal([]byte(se.Body), &remote); jerr != nil {
		return err
	}
	if kind, ok := kinds[remote.Kind]; ok {
		return &smt.Error{Kind: kind, Op: "remote", Msg: remote.Error}
	}
	return fmt.Errorf("%w: %d %s", ErrBadResponse, se.Code, remote.Error)
}

// Remote is one session on the server. Its methods mirror smt.Session with
// terms and sorts given as their JSON forms.
type Remote struct {
	d      *Dispatcher
	ID     string
	closed atomic.Bool
}

func (r *Remote) post(path string, body, out interface{}) error {
	if r.closed.Load() {
		return ErrSessionClosed
	}
	return r.d.send(http.MethodPost, "/sessions/"+r.ID+path, body, out)
}

// DeclareSort declares an uninterpreted sort
func (r *Remote) DeclareSort(name string) error {
	return r.post("/sorts", apiserver.DeclareSortRequest{Name: name}, nil)
}

// DeclareRecord declares a record sort
func (r *Remote) DeclareRecord(name string, fields []apiserver.FieldSpec) error {
	return r.post("/records", apiserver.DeclareRecordRequest{Name: name, Fields: fields}, nil)
}

// DeclareFun declares an uninterpreted function
func (r *Remote) DeclareFun(name string, args []apiserver.SortSpec, ret apiserver.SortSpec) error {
	return r.post("/funs", apiserver.DeclareFunRequest{Name: name, Args: args, Ret: ret}, nil)
}

// DeclareConst declares a constant
func (r *Remote) DeclareConst(name string, sort apiserver.SortSpec) error {
	return r.post("/consts", apiserver.DeclareConstRequest{Name: name, Sort: sort}, nil)
}

// Assert adds t to the current scope
func (r *Remote) Assert(t apiserver.TermSpec) error {
	return r.post("/assert", apiserver.TermRequest{Term: t}, nil)
}

// Push opens n scopes and returns the new level
func (r *Remote) Push(n uint32) (uint32, error) {
	var resp struct {
		Level uint32 `json:"level"`
	}
	err := r.post("/push", apiserver.ScopeRequest{N: n}, &resp)
	return resp.Level, err
}

// Pop closes n scopes and returns the new level
func (r *Remote) Pop(n uint32) (uint32, error) {
	var resp struct {
		Level uint32 `json:"level"`
	}
	err := r.post("/pop", apiserver.ScopeRequest{N: n}, &resp)
	return resp.Level, err
}

// CheckSat runs check-sat. The reason is only set for Unknown.
func (r *Remote) CheckSat() (smt.CheckSatResult, string, error) {
	var resp struct {
		Result string `json:"result"`
		Reason string `json:"reason"`
	}
	if err := r.post("/check", nil, &resp); err != nil {
		return smt.Unknown, "", err
	}
	switch resp.Result {
	case smt.Sat.String():
		return smt.Sat, "", nil
	case smt.Unsat.String():
		return smt.Unsat, "", nil
	case smt.Unknown.String():
		return smt.Unknown, resp.Reason, nil
	}
	return smt.Unknown, "", fmt.Errorf("%w: result %q", ErrBadResponse, resp.Result)
}

// Value returns the model value of t in SMT-LIB text
func (r *Remote) Value(t apiserver.TermSpec) (string, error) {
	var resp struct {
		Value string `json:"value"`
	}
	err := r.post("/value", apiserver.TermRequest{Term: t}, &resp)
	return resp.Value, err
}

// Close deletes the session on the server. Closing twice is a no-op.
func (r *Remote) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	r.d.lock.Lock()
	delete(r.d.sessions, r.ID)
	r.d.lock.Unlock()
	return r.d.send(http.MethodDelete, "/sessions/"+r.ID, nil, nil)
}
