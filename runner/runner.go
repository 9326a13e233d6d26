package runner

import (
	"context"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/testkit/component"
	"github.com/kbukum/testkit/errors"
	"github.com/kbukum/testkit/lifecycle"
	"github.com/kbukum/testkit/logger"
	"github.com/kbukum/testkit/observability"
	"github.com/kbukum/testkit/runctx"
	"github.com/kbukum/testkit/snapshot"
)

// Runner executes units. A Runner with a store runs once: the store builds
// a single baseline and is stopped when the run ends.
type Runner struct {
	store    *snapshot.Store
	migrator snapshot.Migrator
	seeder   snapshot.Seeder

	components []component.Component
	services   map[string]any

	log      *logger.Logger
	tracer   trace.Tracer
	metrics  *observability.Metrics
	observer lifecycle.Observer
}

// Option configures a Runner.
type Option func(*Runner)

// WithStore gives the run a snapshot store. Its baseline is built with m and
// s before the first unit and closed after the last.
func WithStore(store *snapshot.Store, m snapshot.Migrator, s snapshot.Seeder) Option {
	return func(r *Runner) {
		r.store = store
		r.migrator = m
		r.seeder = s
	}
}

// WithComponents adds run-level components, started in order before the
// baseline is built and stopped in reverse order after the last unit.
func WithComponents(cs ...component.Component) Option {
	return func(r *Runner) { r.components = append(r.components, cs...) }
}

// WithService makes v available to hooks through runctx.Service.
func WithService(key string, v any) Option {
	return func(r *Runner) { r.services[key] = v }
}

// WithLogger sets the run logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// WithTracer sets the tracer for unit spans. The global provider is used
// otherwise.
func WithTracer(t trace.Tracer) Option {
	return func(r *Runner) { r.tracer = t }
}

// WithMetrics records unit and violation metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithTelemetry reports to the tracer and metrics of t.
func WithTelemetry(t *observability.Telemetry) Option {
	return func(r *Runner) {
		r.tracer = t.Tracer
		r.metrics = t.Metrics
	}
}

// WithObserver reports unit phase transitions.
func WithObserver(fn lifecycle.Observer) Option {
	return func(r *Runner) { r.observer = fn }
}

// New creates a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{services: make(map[string]any)}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Get("runner")
	}
	return r
}

// run is the state of one Run call.
type run struct {
	r        *Runner
	cfg      Config
	rc       *runctx.Context
	log      *logger.Logger
	manager  *lifecycle.Manager
	baseline snapshot.Baseline

	// slots queues stateful units when the store holds fewer views than
	// there are workers. nil means unbounded.
	slots chan struct{}
}

// Run executes units and returns the report. It never panics on unit
// failures; fatal errors are reported in Report.Fatal.
func (r *Runner) Run(ctx context.Context, units []lifecycle.Unit, cfg Config) *Report {
	rcOpts := []runctx.Option{runctx.WithLogger(r.log)}
	for k, v := range r.services {
		rcOpts = append(rcOpts, runctx.WithService(k, v))
	}
	rc := runctx.New(rcOpts...)
	log := rc.Logger().WithComponent("runner")

	report := &Report{RunID: rc.ID(), StartedAt: rc.StartedAt()}
	defer func() { report.Duration = time.Since(report.StartedAt) }()

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		report.Fatal = err
		log.Error("invalid run config", logger.ErrorFields("validate", err))
		return report
	}

	selected, err := filter(units, cfg.SuiteFilter)
	if err != nil {
		report.Fatal = err
		return report
	}

	components := component.NewRegistry(log.WithComponent("component"))
	if r.store != nil {
		if err := components.Register(r.store); err != nil {
			report.Fatal = errors.Internal(err)
			return report
		}
	}
	for _, c := range r.components {
		if err := components.Register(c); err != nil {
			report.Fatal = errors.InvalidInput("components", err.Error())
			return report
		}
	}
	defer func() {
		if err := components.StopAll(context.WithoutCancel(ctx)); err != nil {
			log.Error("stopping run components failed", logger.ErrorFields("stop", err))
		}
	}()
	if err := components.StartAll(ctx); err != nil {
		report.Fatal = err
		log.Error("starting run components failed", logger.ErrorFields("start", err))
		return report
	}

	x := &run{
		r:   r,
		cfg: cfg,
		rc:  rc,
		log: log,
		manager: lifecycle.NewManager(
			lifecycle.WithLogger(r.log),
			lifecycle.WithObserver(r.observer),
		),
	}

	if r.store != nil {
		b, err := r.store.CreateBaseline(ctx, rc, r.migrator, r.seeder)
		if err != nil {
			report.Fatal = err
			log.Error("baseline build failed, no unit will run", logger.ErrorFields("baseline", err))
			return report
		}
		x.baseline = b
		if n := r.store.Slots(); n > 0 && n < cfg.WorkerCount {
			x.slots = make(chan struct{}, n)
		}
	}

	log.Info("run started", map[string]interface{}{
		"units":   len(selected),
		"workers": cfg.WorkerCount,
	})
	results, d := x.schedule(ctx, selected)

	for _, o := range results {
		if o != nil {
			report.Entries = append(report.Entries, *o)
		}
	}
	report.Stopped = d.stopped
	report.Canceled = d.canceled

	log.Info("run finished", map[string]interface{}{
		"summary":   report.Summary().String(),
		"exit_code": report.ExitCode(),
	})
	return report
}

// filter returns the units whose "suite/name" matches pattern.
func filter(units []lifecycle.Unit, pattern string) ([]lifecycle.Unit, error) {
	if pattern == "" {
		return units, nil
	}
	var out []lifecycle.Unit
	for _, u := range units {
		ok, err := doublestar.Match(pattern, u.ID())
		if err != nil {
			return nil, errors.InvalidInput("suite_filter", err.Error())
		}
		if ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// dispatcher hands out unit indexes in declaration order.
type dispatcher struct {
	mu       sync.Mutex
	next     int
	total    int
	stopped  bool
	canceled bool
}

func (d *dispatcher) take(ctx context.Context) (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped || d.next >= d.total {
		return 0, false
	}
	if ctx.Err() != nil {
		d.canceled = true
		return 0, false
	}
	i := d.next
	d.next++
	return i, true
}

func (d *dispatcher) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
}

// schedule runs units on cfg.WorkerCount workers. results[i] is nil for
// units never dispatched.
func (x *run) schedule(ctx context.Context, units []lifecycle.Unit) ([]*lifecycle.Outcome, *dispatcher) {
	results := make([]*lifecycle.Outcome, len(units))
	d := &dispatcher{total: len(units)}

	workers := min(x.cfg.WorkerCount, len(units))
	var wg sync.WaitGroup
	for w := 1; w <= workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for {
				i, ok := d.take(ctx)
				if !ok {
					return
				}
				out := x.execute(ctx, worker, units[i])
				results[i] = &out
				if x.cfg.StopOnFailure && !out.Ok() {
					x.log.Info("stopping dispatch after failure", map[string]interface{}{
						logger.FieldUnit:    units[i].ID(),
						logger.FieldOutcome: out.Status.String(),
					})
					d.stop()
				}
			}
		}(w)
	}
	wg.Wait()
	return results, d
}

// execute acquires isolation for u and runs it.
func (x *run) execute(ctx context.Context, worker int, u lifecycle.Unit) lifecycle.Outcome {
	ctx = context.WithoutCancel(ctx)
	ctx, scope := observability.StartUnit(ctx, x.r.tracer, x.r.metrics, observability.UnitInfo{
		RunID:  x.rc.ID(),
		Unit:   u.Name,
		Suite:  u.Suite,
		Worker: worker,
	})

	out := x.prepareAndExecute(ctx, u)
	scope.End(ctx, out.Status.String(), out.ViolationCodes(), out.Cause)
	return out
}

func (x *run) prepareAndExecute(ctx context.Context, u lifecycle.Unit) lifecycle.Outcome {
	if err := u.Validate(); err != nil {
		return errored(u, err)
	}

	res := lifecycle.Resources{Run: x.rc, Baseline: x.baseline}
	if u.Skip == "" && u.Isolation == lifecycle.Stateful {
		if x.r.store == nil {
			return errored(u, errors.InvalidInput("isolation", "stateful unit "+u.ID()+" needs a snapshot store"))
		}
		if x.slots != nil {
			x.slots <- struct{}{}
			defer func() { <-x.slots }()
		}
		v, err := x.r.store.AcquireView(ctx, x.baseline)
		if err != nil {
			return errored(u, err)
		}
		res.View = v
	}
	return x.manager.Execute(ctx, u, res)
}

func errored(u lifecycle.Unit, err error) lifecycle.Outcome {
	return lifecycle.Outcome{
		Unit:   u.Name,
		Suite:  u.Suite,
		Status: lifecycle.Errored,
		Cause:  err,
		Reason: err.Error(),
	}
}
