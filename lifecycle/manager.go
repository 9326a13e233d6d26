package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/testkit/errors"
	"github.com/kbukum/testkit/logger"
	"github.com/kbukum/testkit/mock"
	"github.com/kbukum/testkit/runctx"
	"github.com/kbukum/testkit/snapshot"
)

// Observer is told about every phase transition.
type Observer func(unit string, from, to Phase)

// Manager executes units.
type Manager struct {
	log      *logger.Logger
	observer Observer
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l *logger.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithObserver registers fn for phase transitions. fn runs on the worker
// executing the unit and must not block.
func WithObserver(fn Observer) Option {
	return func(m *Manager) { m.observer = fn }
}

// NewManager creates a Manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = logger.Get("lifecycle")
	}
	return m
}

// Resources are what the runner acquired for one execution. The manager
// owns View from here on and releases it before returning.
type Resources struct {
	Run      *runctx.Context
	Baseline snapshot.Baseline
	View     snapshot.View
}

// execution is the state of one unit run.
type execution struct {
	m     *Manager
	unit  Unit
	env   *Env
	log   *logger.Logger
	phase Phase
	out   Outcome
}

// Execute runs u and returns its finalized Outcome. ctx cancellation does
// not interrupt the unit; hooks see a context without cancellation.
func (m *Manager) Execute(ctx context.Context, u Unit, res Resources) Outcome {
	start := time.Now()
	ctx = context.WithoutCancel(ctx)

	rc := res.Run
	if rc == nil {
		rc = runctx.New(runctx.WithLogger(m.log))
	}
	log := rc.Logger().WithComponent("lifecycle").WithFields(map[string]interface{}{
		logger.FieldUnit:  u.Name,
		logger.FieldSuite: u.Suite,
	})

	x := &execution{
		m:    m,
		unit: u,
		log:  log,
		out:  Outcome{Unit: u.Name, Suite: u.Suite, Status: Passed},
		env: &Env{
			Ctx:      ctx,
			Run:      rc,
			Unit:     u,
			View:     res.View,
			Baseline: res.Baseline,
			Mocks:    mock.NewRegistry(mock.WithLogger(log.WithComponent("mock"))),
			Log:      log,
		},
	}
	if res.View != nil {
		x.out.ViewID = res.View.ID()
	}

	switch {
	case u.Skip != "":
		x.out.Status = Skipped
		x.out.Reason = u.Skip
	case u.Body == nil:
		x.errored(errors.InvalidInput("body", "unit "+u.ID()+" has no body"))
	default:
		x.run()
	}

	x.transition(Done)
	x.release(ctx, res.View)
	x.out.Duration = time.Since(start)

	log.Info("unit finished", map[string]interface{}{
		logger.FieldOutcome:  x.out.Status.String(),
		logger.FieldDuration: x.out.Duration.Milliseconds(),
		"violations":         len(x.out.Violations),
	})
	return x.out
}

func (x *execution) run() {
	u := x.unit

	x.transition(Arranging)
	setupOK := true
	if u.Setup != nil {
		if err := x.invoke(u.Setup); err != nil {
			setupOK = false
			x.errored(errors.SetupFailed(u.ID(), err))
		}
	}

	if setupOK {
		x.transition(Acting)
		if err := x.invoke(u.Body); err != nil {
			x.classify(err)
		} else {
			x.transition(Asserting)
			if u.Assert != nil {
				if err := x.invoke(u.Assert); err != nil {
					x.classify(err)
				}
			}
		}
	}

	x.transition(Verifying)
	if u.Teardown != nil {
		if err := x.invoke(u.Teardown); err != nil {
			x.violation(errors.TeardownFailed(u.ID(), err), Errored)
		}
	}
	for _, v := range x.env.Mocks.Verify() {
		x.violation(v, Failed)
	}
}

// invoke runs hook with a fresh T and returns its failure as an error: the
// hook's own error, ASSERTION_FAILED for a failed T, or UNHANDLED_FAILURE
// for a panic.
func (x *execution) invoke(hook Hook) (err error) {
	t := newT(x.unit.ID(), x.log)
	x.env.T = t

	done := make(chan struct{})
	go func() {
		defer close(done)
		returned := false
		defer func() {
			if returned {
				return
			}
			if r := recover(); r != nil {
				err = errors.Panicked(r)
			} else if !t.Failed() {
				err = errors.Unhandled(fmt.Errorf("hook exited without returning"))
			}
		}()
		err = hook(x.env)
		returned = true
	}()
	<-done

	if err != nil {
		if errors.Is(err, errors.ErrCodeAssertionFailed) || errors.Is(err, errors.ErrCodeUnhandled) {
			return err
		}
		if t.Failed() {
			return errors.Unhandled(err).WithDetail("assertions", t.Messages())
		}
		return err
	}
	if t.Failed() {
		return errors.AssertionFailed(t.reason())
	}
	return nil
}

// classify turns a body or assert hook failure into the outcome.
func (x *execution) classify(err error) {
	if errors.Is(err, errors.ErrCodeAssertionFailed) {
		x.out.Status = Failed
		x.out.Cause = err
		x.out.Reason = reasonOf(err)
		return
	}
	if !errors.IsAppError(err) {
		err = errors.Unhandled(err)
	}
	x.errored(err)
}

func (x *execution) errored(err error) {
	x.out.Status = Errored
	x.out.Cause = err
	x.out.Reason = err.Error()
}

// violation appends err and downgrades a passing outcome to status.
func (x *execution) violation(err error, status Status) {
	x.out.Violations = append(x.out.Violations, err)
	if x.out.Status == Passed {
		x.out.Status = status
		x.out.Cause = err
		x.out.Reason = err.Error()
	}
	x.log.Debug("violation", map[string]interface{}{logger.FieldError: err.Error()})
}

func (x *execution) release(ctx context.Context, v snapshot.View) {
	if v == nil {
		return
	}
	if err := v.Release(ctx); err != nil {
		x.violation(err, Errored)
	}
}

func (x *execution) transition(to Phase) {
	from := x.phase
	x.phase = to
	x.log.Debug("phase", map[string]interface{}{
		logger.FieldPhase: to.String(),
		"from":            from.String(),
	})
	if x.m.observer != nil {
		x.m.observer(x.unit.ID(), from, to)
	}
}

func reasonOf(err error) string {
	if appErr, ok := errors.AsAppError(err); ok && appErr.Code == errors.ErrCodeAssertionFailed {
		return appErr.Message
	}
	return err.Error()
}
