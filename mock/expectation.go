package mock

import (
	"fmt"
	"strings"
)

// unbounded marks a count constraint with no upper limit.
const unbounded = -1

// Expectation is one declared call. Configure it with the chained methods
// before the body runs; they are not safe to call concurrently with calls
// through the handle.
type Expectation struct {
	handle *Handle
	method string
	args   []Matcher
	exact  bool

	values []any
	err    error

	min, max int
	calls    int
}

// Returns sets the values the call produces.
func (e *Expectation) Returns(values ...any) *Expectation {
	e.handle.mu.Lock()
	defer e.handle.mu.Unlock()
	e.values = values
	return e
}

// Fails makes the call produce err.
func (e *Expectation) Fails(err error) *Expectation {
	e.handle.mu.Lock()
	defer e.handle.mu.Unlock()
	e.err = err
	return e
}

// Times requires exactly n calls.
func (e *Expectation) Times(n int) *Expectation { return e.count(n, n) }

// Once requires exactly one call. It is the default.
func (e *Expectation) Once() *Expectation { return e.count(1, 1) }

// AtLeast requires n or more calls.
func (e *Expectation) AtLeast(n int) *Expectation { return e.count(n, unbounded) }

// AnyTimes accepts any number of calls, including none.
func (e *Expectation) AnyTimes() *Expectation { return e.count(0, unbounded) }

func (e *Expectation) count(min, max int) *Expectation {
	e.handle.mu.Lock()
	defer e.handle.mu.Unlock()
	e.min, e.max = min, max
	return e
}

// Calls returns how many calls the expectation absorbed.
func (e *Expectation) Calls() int {
	e.handle.mu.Lock()
	defer e.handle.mu.Unlock()
	return e.calls
}

func (e *Expectation) matches(method string, args []any) bool {
	if e.method != method || len(e.args) != len(args) {
		return false
	}
	for i, m := range e.args {
		if !m.Matches(args[i]) {
			return false
		}
	}
	return true
}

// saturated reports whether another call would exceed the upper bound.
func (e *Expectation) saturated() bool {
	return e.max != unbounded && e.calls >= e.max
}

func (e *Expectation) satisfied() bool {
	return e.calls >= e.min && (e.max == unbounded || e.calls <= e.max)
}

func (e *Expectation) constraint() string {
	switch {
	case e.max == unbounded && e.min == 0:
		return "any number of calls"
	case e.max == unbounded:
		return fmt.Sprintf("at least %d %s", e.min, plural(e.min))
	default:
		return fmt.Sprintf("exactly %d %s", e.min, plural(e.min))
	}
}

func (e *Expectation) String() string {
	parts := make([]string, len(e.args))
	for i, m := range e.args {
		parts[i] = m.String()
	}
	return fmt.Sprintf("%s(%s)", e.method, strings.Join(parts, ", "))
}

func plural(n int) string {
	if n == 1 {
		return "call"
	}
	return "calls"
}
