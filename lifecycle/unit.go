package lifecycle

import (
	"github.com/kbukum/testkit/validation"
)

// Isolation is a unit's declared data dependency.
type Isolation int

const (
	// None runs against the read-only baseline (or no store at all).
	None Isolation = iota
	// Stateful runs against a private working view.
	Stateful
)

func (i Isolation) String() string {
	if i == Stateful {
		return "stateful"
	}
	return "none"
}

// Hook is a unit step. Returning an error carrying ASSERTION_FAILED, or
// failing env.T, marks the unit Failed; any other error or a panic marks it
// Errored.
type Hook func(env *Env) error

// Unit is one test unit. Units are values and are not modified by the engine.
type Unit struct {
	Name  string `validate:"required"`
	Suite string

	Setup    Hook
	Body     Hook `validate:"required"`
	Assert   Hook
	Teardown Hook

	Isolation Isolation
	// Skip, when set, reports the unit Skipped with this reason.
	Skip string
}

// ID returns "suite/name", or the name when the unit has no suite.
func (u Unit) ID() string {
	if u.Suite == "" {
		return u.Name
	}
	return u.Suite + "/" + u.Name
}

// Validate checks that the unit has a name and a body. Names may not contain
// "/", which separates the suite in ID.
func (u Unit) Validate() error {
	if err := validation.Validate(u); err != nil {
		return err
	}
	return validation.New().NoneOf("name", u.Name, "/").Validate()
}
