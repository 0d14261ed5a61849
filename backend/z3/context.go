//go:build z3

package z3

/*
#cgo LDFLAGS: -lz3
#include <stdlib.h>
#include <z3.h>

static void smtkit_error_handler(Z3_context c, Z3_error_code e) {}

static void smtkit_set_error_handler(Z3_context c) {
	Z3_set_error_handler(c, smtkit_error_handler);
}

static int smtkit_model_eval(Z3_context c, Z3_model m, Z3_ast a, Z3_ast *out) {
	return Z3_model_eval(c, m, a, 1, out) ? 1 : 0;
}
*/
import "C"
import (
	"time"
	"unsafe"

	"github.com/netrixframework/smtkit/smt"
)

// context is a reference counted Z3 context. Errors are reported through
// error codes rather than aborting the process. Every AST the backend keeps
// holds a reference until the context is deleted.
type context struct {
	raw C.Z3_context
}

func newContext() *context {
	cfg := C.Z3_mk_config()
	k := C.CString("model")
	v := C.CString("true")
	C.Z3_set_param_value(cfg, k, v)
	C.free(unsafe.Pointer(k))
	C.free(unsafe.Pointer(v))

	raw := C.Z3_mk_context_rc(cfg)
	C.Z3_del_config(cfg)
	C.smtkit_set_error_handler(raw)
	return &context{raw: raw}
}

// Close frees the context and everything created in it.
func (c *context) Close() {
	if c.raw != nil {
		C.Z3_del_context(c.raw)
		c.raw = nil
	}
}

// check returns the pending error of the context, if any, and clears it.
func (c *context) check(what string) error {
	code := C.Z3_get_error_code(c.raw)
	if code == C.Z3_OK {
		return nil
	}
	msg := C.GoString(C.Z3_get_error_msg(c.raw, code))
	C.Z3_set_error(c.raw, C.Z3_OK)
	switch code {
	case C.Z3_SORT_ERROR, C.Z3_IOB, C.Z3_INVALID_ARG, C.Z3_INVALID_USAGE:
		return smt.APIErrorf("%s: %s", what, msg)
	}
	return smt.Internalf("%s: %s", what, msg)
}

func (c *context) symbol(name string) C.Z3_symbol {
	ns := C.CString(name)
	defer C.free(unsafe.Pointer(ns))
	return C.Z3_mk_string_symbol(c.raw, ns)
}

func (c *context) keep(a C.Z3_ast) C.Z3_ast {
	if a != nil {
		C.Z3_inc_ref(c.raw, a)
	}
	return a
}

func (c *context) keepSort(s C.Z3_sort) C.Z3_sort {
	if s != nil {
		C.Z3_inc_ref(c.raw, C.Z3_sort_to_ast(c.raw, s))
	}
	return s
}

func (c *context) keepDecl(d C.Z3_func_decl) C.Z3_func_decl {
	if d != nil {
		C.Z3_inc_ref(c.raw, C.Z3_func_decl_to_ast(c.raw, d))
	}
	return d
}

func (c *context) numeral(text string, s C.Z3_sort) C.Z3_ast {
	nt := C.CString(text)
	defer C.free(unsafe.Pointer(nt))
	return c.keep(C.Z3_mk_numeral(c.raw, nt, s))
}

func (c *context) String(a C.Z3_ast) string {
	return C.GoString(C.Z3_ast_to_string(c.raw, a))
}

// solver is a Z3 solver with its own reference.
type solver struct {
	ctx *context
	raw C.Z3_solver
}

func (c *context) newSolver(timeout time.Duration) *solver {
	raw := C.Z3_mk_solver(c.raw)
	C.Z3_solver_inc_ref(c.raw, raw)
	if timeout > 0 {
		p := C.Z3_mk_params(c.raw)
		C.Z3_params_inc_ref(c.raw, p)
		C.Z3_params_set_uint(c.raw, p, c.symbol("timeout"), C.uint(timeout.Milliseconds()))
		C.Z3_solver_set_params(c.raw, raw, p)
		C.Z3_params_dec_ref(c.raw, p)
	}
	return &solver{ctx: c, raw: raw}
}

func (s *solver) Close() {
	C.Z3_solver_dec_ref(s.ctx.raw, s.raw)
}

func (s *solver) Assert(a C.Z3_ast) {
	C.Z3_solver_assert(s.ctx.raw, s.raw, a)
}

func (s *solver) Push(n uint32) {
	for i := uint32(0); i < n; i++ {
		C.Z3_solver_push(s.ctx.raw, s.raw)
	}
}

func (s *solver) Pop(n uint32) {
	C.Z3_solver_pop(s.ctx.raw, s.raw, C.uint(n))
}

// Check maps Z3_solver_check onto CheckSatResult.
func (s *solver) Check() smt.CheckSatResult {
	switch C.Z3_solver_check(s.ctx.raw, s.raw) {
	case C.Z3_L_TRUE:
		return smt.Sat
	case C.Z3_L_FALSE:
		return smt.Unsat
	}
	return smt.Unknown
}

func (s *solver) ReasonUnknown() string {
	return C.GoString(C.Z3_solver_get_reason_unknown(s.ctx.raw, s.raw))
}

// Model returns the model of the last Check with a reference held.
func (s *solver) Model() *model {
	raw := C.Z3_solver_get_model(s.ctx.raw, s.raw)
	if raw == nil {
		return nil
	}
	C.Z3_model_inc_ref(s.ctx.raw, raw)
	return &model{ctx: s.ctx, raw: raw}
}

type model struct {
	ctx *context
	raw C.Z3_model
}

// Eval evaluates a with model completion. It returns nil if evaluation
// failed.
func (m *model) Eval(a C.Z3_ast) C.Z3_ast {
	var out C.Z3_ast
	if C.smtkit_model_eval(m.ctx.raw, m.raw, a, &out) == 0 {
		return nil
	}
	return m.ctx.keep(out)
}

func (m *model) Close() {
	C.Z3_model_dec_ref(m.ctx.raw, m.raw)
}
