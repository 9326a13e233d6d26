package mock

import (
	"sync"

	"github.com/kbukum/testkit/errors"
	"github.com/kbukum/testkit/logger"
)

// Mode is a handle's behavior for calls that match no expectation.
type Mode int

const (
	// Strict fails unexpected calls immediately and reports them at Verify.
	Strict Mode = iota
	// Spy records unexpected calls and answers them with neutral values.
	Spy
)

func (m Mode) String() string {
	if m == Spy {
		return "spy"
	}
	return "strict"
}

// Call is one observed invocation.
type Call struct {
	Method string
	Args   []any
	// Matched is false when no expectation accepted the call.
	Matched bool
}

// Result is what a recorded call produces.
type Result struct {
	values []any
	err    error
}

// Err returns the configured error, or UNEXPECTED_CALL for a strict miss.
func (r Result) Err() error { return r.err }

// Len returns how many values were configured.
func (r Result) Len() int { return len(r.values) }

// Value returns the i-th configured value as T, or T's zero value when the
// value is missing, nil or of another type.
func Value[T any](r Result, i int) T {
	var zero T
	if i < 0 || i >= len(r.values) {
		return zero
	}
	v, ok := r.values[i].(T)
	if !ok {
		return zero
	}
	return v
}

// Handle is one substituted capability.
type Handle struct {
	capability string
	mode       Mode
	log        *logger.Logger

	mu           sync.Mutex
	expectations []*Expectation
	calls        []Call
}

func newHandle(capability string, mode Mode, log *logger.Logger) *Handle {
	return &Handle{capability: capability, mode: mode, log: log}
}

func (h *Handle) Capability() string { return h.capability }
func (h *Handle) Mode() Mode         { return h.mode }

// Expect declares a call to method with the given arguments. Plain values
// are compared with Eq; Matcher values are used as is. The expectation
// defaults to exactly one call.
func (h *Handle) Expect(method string, args ...any) *Expectation {
	ms := make([]Matcher, len(args))
	for i, a := range args {
		ms[i] = toMatcher(a)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	e := &Expectation{handle: h, method: method, args: ms, exact: exact(ms), min: 1, max: 1}
	h.expectations = append(h.expectations, e)
	return e
}

// Record registers a call and returns the matching expectation's response.
//
// Unsaturated expectations accepting the arguments are considered in
// declaration order, exact ones before wildcard ones. A call that only
// saturated expectations accept is unmatched: strict handles fail it,
// spies answer it with neutral values.
func (h *Handle) Record(method string, args ...any) Result {
	h.mu.Lock()
	defer h.mu.Unlock()

	var (
		wildcard  *Expectation
		saturated *Expectation
		chosen    *Expectation
	)
	for _, e := range h.expectations {
		if !e.matches(method, args) {
			continue
		}
		if e.saturated() {
			saturated = e
			continue
		}
		if e.exact {
			chosen = e
			break
		}
		if wildcard == nil {
			wildcard = e
		}
	}
	if chosen == nil {
		chosen = wildcard
	}

	if chosen != nil {
		chosen.calls++
		h.calls = append(h.calls, Call{Method: method, Args: args, Matched: true})
		return Result{values: chosen.values, err: chosen.err}
	}

	h.calls = append(h.calls, Call{Method: method, Args: args})
	fields := map[string]interface{}{
		logger.FieldCapability: h.capability,
		logger.FieldMethod:     method,
		"mode":                 h.mode.String(),
	}
	if saturated != nil {
		fields["constraint"] = saturated.constraint()
	}
	h.log.Debug("unmatched call", fields)

	if h.mode == Spy {
		return Result{}
	}
	err := errors.UnexpectedCall(h.capability, method, args)
	if saturated != nil {
		err = err.WithDetail("constraint", saturated.constraint())
	}
	return Result{err: err}
}

// Calls returns a copy of every observed call in order.
func (h *Handle) Calls() []Call {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Call(nil), h.calls...)
}

// CallsTo returns the observed calls of method.
func (h *Handle) CallsTo(method string) []Call {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []Call
	for _, c := range h.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Verify returns one MISSING_CALLS violation per expectation whose count
// constraint is unmet and, in strict mode, one UNEXPECTED_CALL violation per
// unmatched call. It returns nil when everything was discharged.
func (h *Handle) Verify() []error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var violations []error
	for _, e := range h.expectations {
		if !e.satisfied() {
			violations = append(violations,
				errors.MissingCalls(h.capability, e.String(), e.constraint(), e.calls))
		}
	}
	if h.mode == Strict {
		for _, c := range h.calls {
			if !c.Matched {
				violations = append(violations, errors.UnexpectedCall(h.capability, c.Method, c.Args))
			}
		}
	}
	return violations
}
