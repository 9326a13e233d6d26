package testutil

import (
	"testing"

	"github.com/kbukum/testkit/lifecycle"
	"github.com/kbukum/testkit/runner"
)

// Run executes units with r and reports every outcome as a subtest of t
// named after the unit's "suite/name". A fatal run error fails t
// immediately. The report is returned for further inspection.
//
// Example:
//
//	func TestPosts(t *testing.T) {
//	    r := runner.New(runner.WithStore(store, migrations, seed))
//	    testutil.Run(t, r, postUnits, runner.Config{WorkerCount: 4})
//	}
func Run(t *testing.T, r *runner.Runner, units []lifecycle.Unit, cfg runner.Config) *runner.Report {
	t.Helper()

	report := r.Run(t.Context(), units, cfg)
	if report.Fatal != nil {
		t.Fatalf("run %s aborted: %v", report.RunID, report.Fatal)
	}
	for _, o := range report.Entries {
		t.Run(subtestName(o), func(t *testing.T) {
			Check(t, o)
		})
	}
	if report.Canceled {
		t.Errorf("run %s canceled after %d of %d units", report.RunID, len(report.Entries), len(units))
	}
	return report
}

// Check fails t unless o passed. Skipped outcomes skip t.
func Check(t testing.TB, o lifecycle.Outcome) {
	t.Helper()

	switch o.Status {
	case lifecycle.Passed:
		return
	case lifecycle.Skipped:
		t.Skip(o.Reason)
		return
	}

	t.Errorf("%s: %s", o.Status, o.Reason)
	for _, msg := range o.ViolationMessages() {
		if o.Cause != nil && msg == o.Cause.Error() {
			continue
		}
		t.Errorf("violation: %s", msg)
	}
}

func subtestName(o lifecycle.Outcome) string {
	if o.Suite == "" {
		return o.Unit
	}
	return o.Suite + "/" + o.Unit
}
