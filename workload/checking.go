package workload

import (
	"github.com/netrixframework/smtkit/log"
	"github.com/netrixframework/smtkit/smt"
	"github.com/netrixframework/smtkit/smt/ops"
)

// clock builds timestamp arithmetic over Int, or over 32 bit signed
// bitvectors when the session does not support Int
type clock[S smt.Sort, T smt.Term, F smt.UninterpretedFunction] struct {
	s        *smt.Session[S, T, F]
	sort     S
	le, plus ops.Op
}

func newClock[S smt.Sort, T smt.Term, F smt.UninterpretedFunction](s *smt.Session[S, T, F]) (*clock[S, T, F], error) {
	sort, err := s.LookupSort(ops.Int)
	if err == nil {
		return &clock[S, T, F]{s: s, sort: sort, le: ops.Le, plus: ops.Plus}, nil
	}
	if !smt.IsUnsupported(err) {
		return nil, err
	}
	sort, err = s.LookupSort(ops.BitVec(32))
	if err != nil {
		return nil, err
	}
	return &clock[S, T, F]{s: s, sort: sort, le: ops.BvSle, plus: ops.BvAdd}, nil
}

func (c *clock[S, T, F]) lit(v int) (T, error) {
	return c.s.ConstFromInt(int64(v), c.sort)
}

func (c *clock[S, T, F]) apply(o ops.Op, args ...T) (T, error) {
	return c.s.ApplyFun(smt.Builtin[F](o), args)
}

// leq asserts a + k <= b, with a absent meaning zero
func (c *clock[S, T, F]) leq(a *T, k int, b T) error {
	lhs, err := c.lit(k)
	if err != nil {
		return err
	}
	if a != nil {
		if lhs, err = c.apply(c.plus, *a, lhs); err != nil {
			return err
		}
	}
	f, err := c.apply(c.le, lhs, b)
	if err != nil {
		return err
	}
	return c.s.Assert(f)
}

// leqRev asserts b <= a + k
func (c *clock[S, T, F]) leqRev(b T, a *T, k int) error {
	rhs, err := c.lit(k)
	if err != nil {
		return err
	}
	if a != nil {
		if rhs, err = c.apply(c.plus, *a, rhs); err != nil {
			return err
		}
	}
	f, err := c.apply(c.le, b, rhs)
	if err != nil {
		return err
	}
	return c.s.Assert(f)
}

// Checker holds a scenario encoded into a session
type Checker[S smt.Sort, T smt.Term, F smt.UninterpretedFunction] struct {
	s       *smt.Session[S, T, F]
	clock   *clock[S, T, F]
	sc      *Scenario
	symbols map[string]T
	Logger  *log.Logger
}

// Encode declares one timestamp per event and asserts the window of each
// event in the current scope of s
func Encode[S smt.Sort, T smt.Term, F smt.UninterpretedFunction](s *smt.Session[S, T, F], sc *Scenario, logger *log.Logger) (*Checker[S, T, F], error) {
	c, err := newClock(s)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.DefaultLogger
	}
	ch := &Checker[S, T, F]{
		s:       s,
		clock:   c,
		sc:      sc,
		symbols: make(map[string]T, len(sc.Events)),
		Logger:  logger,
	}
	for _, e := range sc.Events {
		sym, err := s.DeclareConst(e.Label, c.sort)
		if err != nil {
			return nil, err
		}
		ch.symbols[e.Label] = sym
	}
	for _, e := range sc.Events {
		sym := ch.symbols[e.Label]
		var after *T
		if e.After != "" {
			a, ok := ch.symbols[e.After]
			if !ok {
				return nil, smt.APIErrorf("event %s follows unknown event %s", e.Label, e.After)
			}
			after = &a
		}
		if err := c.leq(after, e.Min, sym); err != nil {
			return nil, err
		}
		if err := c.leqRev(sym, after, e.Max); err != nil {
			return nil, err
		}
	}
	return ch, nil
}

// Minimal returns the pending events that can happen no later than every
// other pending event. Each candidate is checked in its own scope so the
// session is left as Encode found it.
func (ch *Checker[S, T, F]) Minimal() ([]string, error) {
	var out []string
	for _, label := range ch.sc.Pending {
		ok, err := ch.canBeFirst(label)
		if err != nil {
			return nil, err
		}
		ch.Logger.With(log.LogParams{
			"event":   label,
			"minimal": ok,
		}).Debug("Checked if event is minimal")
		if ok {
			out = append(out, label)
		}
	}
	return out, nil
}

func (ch *Checker[S, T, F]) canBeFirst(label string) (bool, error) {
	if err := ch.s.Push(1); err != nil {
		return false, err
	}
	sym := ch.symbols[label]
	for _, other := range ch.sc.Pending {
		if other == label {
			continue
		}
		if err := ch.clock.leqRev(sym, ptr(ch.symbols[other]), 0); err != nil {
			ch.s.Pop(1)
			return false, err
		}
	}
	res := ch.s.CheckSat()
	if err := ch.s.Pop(1); err != nil {
		return false, err
	}
	if res == smt.Unknown {
		return false, smt.Internalf("checking %s: %s", label, ch.s.ReasonUnknown())
	}
	return res == smt.Sat, nil
}

// Schedule returns a model of the encoded scenario as label to timestamp
// text. It runs its own check.
func (ch *Checker[S, T, F]) Schedule() (map[string]string, error) {
	if res := ch.s.CheckSat(); res != smt.Sat {
		return nil, smt.APIErrorf("scenario is %s", res)
	}
	out := make(map[string]string, len(ch.symbols))
	for label, sym := range ch.symbols {
		v, err := ch.s.GetValue(sym)
		if err != nil {
			return nil, err
		}
		text, err := v.SMTLib()
		if err != nil {
			return nil, err
		}
		out[label] = text
	}
	return out, nil
}

func ptr[T any](v T) *T {
	return &v
}
