package mock

import (
	"fmt"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

// Matcher decides whether one call argument is accepted. It has the same
// method set as gomock.Matcher, so gomock matchers can be used directly.
type Matcher interface {
	Matches(x any) bool
	String() string
}

var _ Matcher = gomock.Matcher(nil)

// Any matches every value.
func Any() Matcher { return gomock.Any() }

// Nil matches nil values, including typed nil pointers.
func Nil() Matcher { return gomock.Nil() }

// Not inverts m. Non-matcher values are compared with Eq.
func Not(m any) Matcher { return gomock.Not(toMatcher(m)) }

// Match wraps a gomock matcher.
func Match(m gomock.Matcher) Matcher { return m }

// Eq matches values equal to want by testify's ObjectsAreEqual, which
// treats []byte specially and otherwise uses reflect.DeepEqual.
func Eq(want any) Matcher { return eqMatcher{want: want} }

type eqMatcher struct{ want any }

func (m eqMatcher) Matches(x any) bool { return assert.ObjectsAreEqual(m.want, x) }
func (m eqMatcher) String() string     { return fmt.Sprintf("%#v", m.want) }

// Pred matches values accepted by fn. desc names the predicate in messages.
func Pred(desc string, fn func(x any) bool) Matcher { return predMatcher{desc: desc, fn: fn} }

type predMatcher struct {
	desc string
	fn   func(x any) bool
}

func (m predMatcher) Matches(x any) bool { return m.fn(x) }
func (m predMatcher) String() string     { return m.desc }

func toMatcher(v any) Matcher {
	if m, ok := v.(Matcher); ok {
		return m
	}
	return Eq(v)
}

// exact reports whether every matcher is an equality matcher.
func exact(ms []Matcher) bool {
	for _, m := range ms {
		if _, ok := m.(eqMatcher); !ok {
			return false
		}
	}
	return true
}
