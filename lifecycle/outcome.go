package lifecycle

import (
	"fmt"
	"time"

	"github.com/kbukum/testkit/errors"
)

// Status classifies a unit execution.
type Status int

const (
	Passed Status = iota
	Failed
	Errored
	Skipped
)

var statusNames = map[Status]string{
	Passed:  "passed",
	Failed:  "failed",
	Errored: "errored",
	Skipped: "skipped",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalText renders the status name in reports.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Phase is a step of the execution state machine.
type Phase int

const (
	Idle Phase = iota
	Arranging
	Acting
	Asserting
	Verifying
	Done
)

var phaseNames = [...]string{"idle", "arranging", "acting", "asserting", "verifying", "done"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Outcome is the final classification of one execution.
type Outcome struct {
	Unit   string `json:"unit"`
	Suite  string `json:"suite,omitempty"`
	Status Status `json:"status"`
	// Reason is the failure message or error cause.
	Reason string `json:"reason,omitempty"`
	// Cause is the error that decided Status, if any.
	Cause error `json:"-"`
	// Violations are mock violations and teardown or release failures.
	Violations []error       `json:"-"`
	ViewID     string        `json:"view_id,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Ok reports whether the outcome is Passed or Skipped.
func (o Outcome) Ok() bool {
	return o.Status == Passed || o.Status == Skipped
}

// ViolationMessages renders Violations.
func (o Outcome) ViolationMessages() []string {
	msgs := make([]string, len(o.Violations))
	for i, v := range o.Violations {
		msgs[i] = v.Error()
	}
	return msgs
}

// ViolationCodes returns the error code of each violation.
func (o Outcome) ViolationCodes() []string {
	codes := make([]string, len(o.Violations))
	for i, v := range o.Violations {
		codes[i] = string(errors.CodeOf(v))
	}
	return codes
}
