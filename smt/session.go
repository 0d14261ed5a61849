package smt

import (
	"time"

	"github.com/netrixframework/smtkit/log"
	"github.com/netrixframework/smtkit/smt/ops"
)

// Option configures a Session.
type Option func(*sessionOptions)

type sessionOptions struct {
	logger *log.Logger
	models bool
}

// WithLogger sets the logger. Defaults to log.DefaultLogger.
func WithLogger(l *log.Logger) Option {
	return func(o *sessionOptions) {
		o.logger = l
	}
}

// WithModels toggles model production. Enabled by default.
func WithModels(on bool) Option {
	return func(o *sessionOptions) {
		o.models = on
	}
}

// Stats counts the checks a session ran.
type Stats struct {
	Checks    int
	Sat       int
	Unsat     int
	Unknown   int
	CheckTime time.Duration
}

type scope[T any] struct {
	assertions []T
}

type record[S any] struct {
	name   string
	fields []string
	sorts  []S
}

// Session is the solver state machine. It owns the assertion stack, gates
// model queries on the outcome of the last check and validates every
// documented precondition before handing the call to its Backend.
//
// A Session is not safe for concurrent use.
type Session[S Sort, T Term, F UninterpretedFunction] struct {
	backend Backend[S, T, F]
	logger  *log.Logger
	models  bool

	level  uint32
	scopes []scope[T]
	last   CheckSatResult
	// stale is set when the assertion stack changed after the last check.
	stale  bool
	reason string
	closed bool

	sorts       map[string]S
	records     map[S]*record[S]
	recordNames map[string]S
	funs        map[string]F
	consts      map[string]T

	stats Stats
}

// NewSession wraps a backend. The backend is owned by the session from now on.
func NewSession[S Sort, T Term, F UninterpretedFunction](b Backend[S, T, F], opts ...Option) *Session[S, T, F] {
	o := sessionOptions{logger: log.DefaultLogger, models: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.NewNop()
	}
	return &Session[S, T, F]{
		backend:     b,
		logger:      o.logger.With(log.LogParams{"component": "session"}),
		models:      o.models,
		scopes:      []scope[T]{{}},
		last:        NotChecked,
		sorts:       make(map[string]S),
		records:     make(map[S]*record[S]),
		recordNames: make(map[string]S),
		funs:        make(map[string]F),
		consts:      make(map[string]T),
	}
}

func (s *Session[S, T, F]) fail(op string, err error) error {
	err = withOp(err, op)
	s.logger.With(log.LogParams{"op": op, "error": err.Error()}).Debug("Operation failed")
	return err
}

func (s *Session[S, T, F]) usage(op, format string, args ...interface{}) error {
	e := APIErrorf(format, args...)
	e.Op = op
	return s.fail(op, e)
}

func (s *Session[S, T, F]) checkOpen(op string) error {
	if s.closed {
		return s.usage(op, "session is closed")
	}
	return nil
}

// GetSort implements Solver.
func (s *Session[S, T, F]) GetSort(t T) (S, error) {
	var zero S
	if err := s.checkOpen("get_sort"); err != nil {
		return zero, err
	}
	sort, err := s.backend.SortOf(t)
	if err != nil {
		return zero, s.fail("get_sort", err)
	}
	return sort, nil
}

// DeclareSort implements Solver.
func (s *Session[S, T, F]) DeclareSort(name string) (S, error) {
	var zero S
	if err := s.checkOpen("declare_sort"); err != nil {
		return zero, err
	}
	sort, err := s.backend.DeclareSort(name)
	if err != nil {
		return zero, s.fail("declare_sort", err)
	}
	s.sorts[name] = sort
	s.logger.With(log.LogParams{"op": "declare_sort", "name": name}).Debug("Declared sort")
	return sort, nil
}

// LookupSort implements Solver.
func (s *Session[S, T, F]) LookupSort(b ops.Sort) (S, error) {
	var zero S
	if err := s.checkOpen("lookup_sort"); err != nil {
		return zero, err
	}
	switch {
	case !b.IsBuiltin():
		return zero, s.usage("lookup_sort", "%s is not a built-in sort", b.Kind)
	case b.IsConstructor():
		return zero, s.usage("lookup_sort", "%s is a sort constructor of arity %d", b.Kind, b.Arity())
	case b.Kind == ops.KindBitVec && b.Width == 0:
		return zero, s.usage("lookup_sort", "bitvector width must be positive")
	case b.Kind == ops.KindBitVec && b.Width > ops.MaxBitVecWidth:
		return zero, s.usage("lookup_sort", "bitvector width %d exceeds %d", b.Width, ops.MaxBitVecWidth)
	}
	sort, err := s.backend.BuiltinSort(b)
	if err != nil {
		return zero, s.fail("lookup_sort", err)
	}
	return sort, nil
}

// ApplySort implements Solver.
func (s *Session[S, T, F]) ApplySort(ctor ops.Sort, s1, s2 S) (S, error) {
	var zero S
	if err := s.checkOpen("apply_sort"); err != nil {
		return zero, err
	}
	if !ctor.IsBuiltin() || ctor.Arity() != 2 {
		return zero, s.usage("apply_sort", "%s is not a sort constructor of arity 2", ctor)
	}
	sort, err := s.backend.ArraySort(s1, s2)
	if err != nil {
		return zero, s.fail("apply_sort", err)
	}
	return sort, nil
}

// DeclareRecordSort implements Solver.
func (s *Session[S, T, F]) DeclareRecordSort(name string, fields []string, sorts []S) (S, error) {
	var zero S
	if err := s.checkOpen("declare_record_sort"); err != nil {
		return zero, err
	}
	if len(fields) != len(sorts) {
		return zero, s.usage("declare_record_sort", "record %s has %d fields but %d sorts", name, len(fields), len(sorts))
	}
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f == "" {
			return zero, s.usage("declare_record_sort", "record %s has an empty field name", name)
		}
		if _, dup := seen[f]; dup {
			return zero, s.usage("declare_record_sort", "record %s declares field %q twice", name, f)
		}
		seen[f] = struct{}{}
	}
	if _, exists := s.recordNames[name]; exists {
		return zero, s.usage("declare_record_sort", "record sort %s is already declared", name)
	}
	sort, err := s.backend.RecordSort(name, fields, sorts)
	if err != nil {
		return zero, s.fail("declare_record_sort", err)
	}
	s.recordNames[name] = sort
	s.records[sort] = &record[S]{
		name:   name,
		fields: append([]string(nil), fields...),
		sorts:  append([]S(nil), sorts...),
	}
	s.logger.With(log.LogParams{"op": "declare_record_sort", "name": name, "fields": len(fields)}).Debug("Declared record sort")
	return sort, nil
}

// IsRecordSort implements Solver.
func (s *Session[S, T, F]) IsRecordSort(sort S) bool {
	_, ok := s.records[sort]
	return ok
}

// RecordFields returns the field names and sorts of a record sort.
func (s *Session[S, T, F]) RecordFields(sort S) ([]string, []S, bool) {
	r, ok := s.records[sort]
	if !ok {
		return nil, nil, false
	}
	return append([]string(nil), r.fields...), append([]S(nil), r.sorts...), true
}

// SortNamed returns the uninterpreted or record sort most recently declared
// under name.
func (s *Session[S, T, F]) SortNamed(name string) (S, bool) {
	if sort, ok := s.recordNames[name]; ok {
		return sort, true
	}
	sort, ok := s.sorts[name]
	return sort, ok
}

// FunNamed returns the function most recently declared under name.
func (s *Session[S, T, F]) FunNamed(name string) (F, bool) {
	f, ok := s.funs[name]
	return f, ok
}

// ConstNamed returns the constant most recently declared under name.
func (s *Session[S, T, F]) ConstNamed(name string) (T, bool) {
	t, ok := s.consts[name]
	return t, ok
}

// DeclareFun implements Solver.
func (s *Session[S, T, F]) DeclareFun(name string, args []S, ret S) (F, error) {
	var zero F
	if err := s.checkOpen("declare_fun"); err != nil {
		return zero, err
	}
	f, err := s.backend.DeclareFun(name, args, ret)
	if err != nil {
		return zero, s.fail("declare_fun", err)
	}
	s.funs[name] = f
	s.logger.With(log.LogParams{"op": "declare_fun", "name": name, "arity": len(args)}).Debug("Declared function")
	return f, nil
}

// DeclareConst implements Solver.
func (s *Session[S, T, F]) DeclareConst(name string, sort S) (T, error) {
	var zero T
	if err := s.checkOpen("declare_const"); err != nil {
		return zero, err
	}
	t, err := s.backend.DeclareConst(name, sort)
	if err != nil {
		return zero, s.fail("declare_const", err)
	}
	s.consts[name] = t
	return t, nil
}

// LookupConst implements Solver.
func (s *Session[S, T, F]) LookupConst(a ops.Applicable) (T, error) {
	var zero T
	if err := s.checkOpen("lookup_const"); err != nil {
		return zero, err
	}
	fn := a.Fn()
	if err := fn.Validate(); err != nil {
		return zero, s.usage("lookup_const", "%s", err)
	}
	if !fn.Op.IsConst() {
		return zero, s.usage("lookup_const", "%s is not a built-in constant", fn)
	}
	t, err := s.backend.BuiltinConst(fn.Op)
	if err != nil {
		return zero, s.fail("lookup_const", err)
	}
	return t, nil
}

// ConstFromInt implements Solver.
func (s *Session[S, T, F]) ConstFromInt(value int64, sort S) (T, error) {
	var zero T
	if err := s.checkOpen("const_from_int"); err != nil {
		return zero, err
	}
	d, err := s.backend.Describe(sort)
	if err != nil {
		return zero, s.fail("const_from_int", err)
	}
	switch d.Kind {
	case ops.KindInt, ops.KindReal:
	case ops.KindBitVec:
		if value < 0 {
			return zero, s.usage("const_from_int", "bitvector constant %d is negative", value)
		}
		if d.Width < 63 && value >= int64(1)<<d.Width {
			return zero, s.usage("const_from_int", "%d does not fit in %d bits", value, d.Width)
		}
	default:
		return zero, s.usage("const_from_int", "integer constants are not defined for %s sorts", d.Kind)
	}
	t, err := s.backend.Numeral(NumeralFromInt64(value), sort)
	if err != nil {
		return zero, s.fail("const_from_int", err)
	}
	return t, nil
}

// ConstFromString implements Solver.
func (s *Session[S, T, F]) ConstFromString(value string, sort S) (T, error) {
	var zero T
	if err := s.checkOpen("const_from_string"); err != nil {
		return zero, err
	}
	d, err := s.backend.Describe(sort)
	if err != nil {
		return zero, s.fail("const_from_string", err)
	}
	n, err := ParseNumeral(value, d.Kind)
	if err != nil {
		return zero, s.fail("const_from_string", err)
	}
	t, err := s.backend.Numeral(n, sort)
	if err != nil {
		return zero, s.fail("const_from_string", err)
	}
	return t, nil
}

// RecordConst implements Solver.
func (s *Session[S, T, F]) RecordConst(sort S, fields []T) (T, error) {
	var zero T
	if err := s.checkOpen("record_const"); err != nil {
		return zero, err
	}
	r, ok := s.records[sort]
	if !ok {
		return zero, s.usage("record_const", "sort is not a record sort")
	}
	if len(fields) != len(r.fields) {
		return zero, s.usage("record_const", "record %s has %d fields, got %d values", r.name, len(r.fields), len(fields))
	}
	t, err := s.backend.RecordConst(sort, fields)
	if err != nil {
		return zero, s.fail("record_const", err)
	}
	return t, nil
}

// ApplyFun implements Solver.
func (s *Session[S, T, F]) ApplyFun(f Function[F], args []T) (T, error) {
	var (
		zero T
		t    T
		err  error
	)
	if err := s.checkOpen("apply_fun"); err != nil {
		return zero, err
	}
	if uf, ok := f.UF(); ok {
		t, err = s.backend.ApplyUF(uf, args)
	} else {
		fn, _ := f.Builtin()
		if verr := fn.Validate(); verr != nil {
			return zero, s.usage("apply_fun", "%s", verr)
		}
		if aerr := fn.CheckArity(len(args)); aerr != nil {
			return zero, s.usage("apply_fun", "%s", aerr)
		}
		if fn.Op.IsConst() {
			t, err = s.backend.BuiltinConst(fn.Op)
		} else {
			t, err = s.backend.ApplyOp(fn, args)
		}
	}
	if err != nil {
		return zero, s.fail("apply_fun", err)
	}
	return t, nil
}

// Level implements Solver.
func (s *Session[S, T, F]) Level() uint32 {
	return s.level
}

// Push implements Solver.
func (s *Session[S, T, F]) Push(n uint32) error {
	if err := s.checkOpen("push"); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	if err := s.backend.Push(n); err != nil {
		return s.fail("push", Classify(err, "push failed"))
	}
	s.level += n
	for i := uint32(0); i < n; i++ {
		s.scopes = append(s.scopes, scope[T]{})
	}
	s.stale = true
	s.logger.With(log.LogParams{"op": "push", "n": n, "level": s.level}).Debug("Pushed scopes")
	return nil
}

// Pop implements Solver.
func (s *Session[S, T, F]) Pop(n uint32) error {
	if err := s.checkOpen("pop"); err != nil {
		return err
	}
	if n > s.level {
		return s.usage("pop", "cannot pop %d scopes at level %d", n, s.level)
	}
	if n == 0 {
		return nil
	}
	if err := s.backend.Pop(n); err != nil {
		return s.fail("pop", Classify(err, "pop failed"))
	}
	s.level -= n
	s.scopes = s.scopes[:len(s.scopes)-int(n)]
	s.stale = true
	s.logger.With(log.LogParams{"op": "pop", "n": n, "level": s.level}).Debug("Popped scopes")
	return nil
}

// Assert implements Solver.
func (s *Session[S, T, F]) Assert(t T) error {
	if err := s.checkOpen("assert"); err != nil {
		return err
	}
	sort, err := s.backend.SortOf(t)
	if err != nil {
		return s.fail("assert", err)
	}
	d, err := s.backend.Describe(sort)
	if err != nil {
		return s.fail("assert", err)
	}
	if d.Kind != ops.KindBool {
		return s.usage("assert", "assertion has sort %s, want Bool", d)
	}
	if err := s.backend.Assert(t); err != nil {
		return s.fail("assert", err)
	}
	top := &s.scopes[len(s.scopes)-1]
	top.assertions = append(top.assertions, t)
	s.stale = true
	return nil
}

// CheckSat implements Solver.
func (s *Session[S, T, F]) CheckSat() CheckSatResult {
	if s.closed {
		s.reason = "session is closed"
		return Unknown
	}
	start := time.Now()
	res, err := s.backend.CheckSat()
	elapsed := time.Since(start)
	s.reason = ""
	if err != nil {
		s.logger.With(log.LogParams{"op": "check_sat", "error": err.Error()}).Warn("Backend failed during check-sat, reporting unknown")
		s.reason = err.Error()
		res = Unknown
	}
	switch res {
	case Sat, Unsat, Unknown:
	default:
		res = Unknown
	}
	if res == Unknown && s.reason == "" {
		s.reason = s.backend.ReasonUnknown()
	}
	s.last = res
	s.stale = false
	s.stats.Checks++
	s.stats.CheckTime += elapsed
	switch res {
	case Sat:
		s.stats.Sat++
	case Unsat:
		s.stats.Unsat++
	default:
		s.stats.Unknown++
	}
	s.logger.With(log.LogParams{
		"op":       "check_sat",
		"result":   res.String(),
		"level":    s.level,
		"duration": elapsed.String(),
	}).Debug("Checked satisfiability")
	return res
}

// GetValue implements Solver. A model only answers while the assertion stack
// is the one it was found for: Push, Pop or Assert after a Sat check make
// GetValue fail with APIError until the next CheckSat.
func (s *Session[S, T, F]) GetValue(t T) (T, error) {
	var zero T
	if err := s.checkOpen("get_value"); err != nil {
		return zero, err
	}
	switch {
	case !s.models:
		return zero, s.usage("get_value", "model production is disabled")
	case s.last != Sat:
		return zero, s.usage("get_value", "no model available, last check-sat result is %s", s.last)
	case s.stale:
		return zero, s.usage("get_value", "assertion stack changed since the last check-sat")
	}
	if _, err := s.backend.SortOf(t); err != nil {
		return zero, s.fail("get_value", err)
	}
	v, err := s.backend.Value(t)
	if err != nil {
		return zero, s.fail("get_value", err)
	}
	return v, nil
}

// Assertions returns the live assertions, outermost scope first.
func (s *Session[S, T, F]) Assertions() []T {
	var out []T
	for _, sc := range s.scopes {
		out = append(out, sc.assertions...)
	}
	return out
}

// LastResult returns the outcome of the most recent CheckSat, NotChecked before the first.
func (s *Session[S, T, F]) LastResult() CheckSatResult {
	return s.last
}

// ReasonUnknown explains the last Unknown outcome.
func (s *Session[S, T, F]) ReasonUnknown() string {
	if s.last != Unknown {
		return ""
	}
	return s.reason
}

// ProducesModels reports whether GetValue is enabled.
func (s *Session[S, T, F]) ProducesModels() bool {
	return s.models
}

// Stats returns the check counters.
func (s *Session[S, T, F]) Stats() Stats {
	return s.stats
}

// Backend returns the adapter the session drives.
func (s *Session[S, T, F]) Backend() Backend[S, T, F] {
	return s.backend
}

// Close releases the backend. Further calls fail with APIError.
func (s *Session[S, T, F]) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.backend.Close(); err != nil {
		return s.fail("close", Classify(err, "close failed"))
	}
	s.logger.With(log.LogParams{"checks": s.stats.Checks}).Debug("Session closed")
	return nil
}
