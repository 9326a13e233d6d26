package runner

import (
	"fmt"
	"time"

	"github.com/kbukum/testkit/lifecycle"
)

// Exit codes of a run.
const (
	ExitOK       = 0
	ExitFailures = 1
	ExitFatal    = 2
)

// Report is the result of a run. Entries are in declaration order and only
// cover dispatched units.
type Report struct {
	RunID     string              `json:"run_id"`
	StartedAt time.Time           `json:"started_at"`
	Duration  time.Duration       `json:"duration"`
	Entries   []lifecycle.Outcome `json:"entries"`
	// Fatal is set when the run aborted before or around unit execution
	// (invalid config, component start, baseline build).
	Fatal error `json:"-"`
	// Canceled reports that dispatch stopped because the context was done.
	Canceled bool `json:"canceled,omitempty"`
	// Stopped reports that StopOnFailure halted dispatch.
	Stopped bool `json:"stopped,omitempty"`
}

// Summary counts outcomes by status.
type Summary struct {
	Passed, Failed, Errored, Skipped int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d passed, %d failed, %d errored, %d skipped", s.Passed, s.Failed, s.Errored, s.Skipped)
}

// Summary counts the entries.
func (r *Report) Summary() Summary {
	var s Summary
	for _, o := range r.Entries {
		switch o.Status {
		case lifecycle.Passed:
			s.Passed++
		case lifecycle.Failed:
			s.Failed++
		case lifecycle.Errored:
			s.Errored++
		case lifecycle.Skipped:
			s.Skipped++
		}
	}
	return s
}

// Entry returns the outcome of the unit with the given "suite/name" id.
func (r *Report) Entry(id string) (lifecycle.Outcome, bool) {
	for _, o := range r.Entries {
		if unitID(o.Suite, o.Unit) == id {
			return o, true
		}
	}
	return lifecycle.Outcome{}, false
}

// ExitCode is ExitFatal for an aborted run, ExitFailures when any unit
// failed or errored, and ExitOK otherwise.
func (r *Report) ExitCode() int {
	if r.Fatal != nil {
		return ExitFatal
	}
	s := r.Summary()
	if s.Failed > 0 || s.Errored > 0 {
		return ExitFailures
	}
	return ExitOK
}

func unitID(suite, name string) string {
	return lifecycle.Unit{Suite: suite, Name: name}.ID()
}
