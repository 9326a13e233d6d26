package snapshot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/testkit/component"
	"github.com/kbukum/testkit/errors"
	"github.com/kbukum/testkit/logger"
	"github.com/kbukum/testkit/observability"
	"github.com/kbukum/testkit/resilience"
	"github.com/kbukum/testkit/runctx"
)

// StoreConfig bounds view acquisition.
type StoreConfig struct {
	// MaxViews caps concurrently acquired views. 0 leaves only the backend's
	// own limit, if any.
	MaxViews int
	// ViewWait is how long AcquireView waits for a free slot. 0 means
	// DefaultViewWait; a negative value fails at once when all slots are taken.
	ViewWait time.Duration
}

// DefaultViewWait is the ViewWait used when none is configured.
const DefaultViewWait = 30 * time.Second

// Store is the run's snapshot store. It implements component.Component so
// the runner can start and stop it with the other run resources.
type Store struct {
	backend  Backend
	cfg      StoreConfig
	log      *logger.Logger
	metrics  *observability.Metrics
	bulkhead *resilience.Bulkhead

	mu       sync.Mutex
	baseline Baseline
	built    bool
	active   map[string]*lease
}

var _ component.Component = (*Store)(nil)

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *logger.Logger) StoreOption {
	return func(s *Store) { s.log = l }
}

// WithMetrics records view gauges on m.
func WithMetrics(m *observability.Metrics) StoreOption {
	return func(s *Store) { s.metrics = m }
}

// NewStore creates a store over backend.
func NewStore(backend Backend, cfg StoreConfig, opts ...StoreOption) *Store {
	s := &Store{
		backend: backend,
		cfg:     cfg,
		active:  make(map[string]*lease),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get("snapshot")
	}
	s.log = s.log.WithFields(logger.Fields("backend", backend.Name()))

	if s.cfg.ViewWait == 0 {
		s.cfg.ViewWait = DefaultViewWait
	}
	if slots := viewSlots(cfg.MaxViews, backend); slots > 0 {
		s.bulkhead = resilience.NewBulkhead(resilience.BulkheadConfig{
			Name:          "views:" + backend.Name(),
			MaxConcurrent: slots,
			MaxWait:       s.cfg.ViewWait,
		})
	}
	return s
}

// viewSlots combines the configured and backend limits; 0 means unbounded.
func viewSlots(configured int, backend Backend) int {
	slots := configured
	if l, ok := backend.(Limited); ok {
		if n := l.MaxViews(); n > 0 && (slots == 0 || n < slots) {
			slots = n
		}
	}
	return slots
}

// Name implements component.Component.
func (s *Store) Name() string { return "snapshot-store" }

// Start implements component.Component. The baseline is built separately by
// CreateBaseline because it needs the run's migrator and seeder.
func (s *Store) Start(ctx context.Context) error { return nil }

// Stop closes the baseline. Views still active at this point were leaked by
// their owner; they are released first and reported.
func (s *Store) Stop(ctx context.Context) error {
	s.mu.Lock()
	leaked := make([]*lease, 0, len(s.active))
	for _, l := range s.active {
		leaked = append(leaked, l)
	}
	baseline := s.baseline
	s.baseline = nil
	s.mu.Unlock()

	var errs []error
	for _, l := range leaked {
		s.log.Warn("releasing leaked view", logger.Fields(logger.FieldViewID, l.ID()))
		if err := l.Release(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if baseline != nil {
		if err := baseline.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close baseline %s: %w", baseline.ID(), err))
		} else {
			s.log.Debug("baseline closed", logger.Fields(logger.FieldBaselineID, baseline.ID()))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("stop snapshot store: %v", errs)
	}
	return nil
}

// Health implements component.Component.
func (s *Store) Health(ctx context.Context) component.Health {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := component.Health{Name: s.Name(), Status: component.StatusHealthy}
	switch {
	case s.built && s.baseline == nil:
		h.Status = component.StatusUnhealthy
		h.Message = "baseline closed"
	case s.baseline == nil:
		h.Status = component.StatusDegraded
		h.Message = "baseline not built"
	default:
		h.Message = fmt.Sprintf("%d active views", len(s.active))
	}
	return h
}

// Baseline returns the baseline, or nil before CreateBaseline succeeds.
func (s *Store) Baseline() Baseline {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseline
}

// CreateBaseline builds the baseline by running m then s exactly once.
// A failure is fatal for the run; calling it again returns ALREADY_EXISTS.
func (s *Store) CreateBaseline(ctx context.Context, rc *runctx.Context, m Migrator, sd Seeder) (Baseline, error) {
	s.mu.Lock()
	if s.built {
		s.mu.Unlock()
		return nil, errors.AlreadyExists("baseline")
	}
	s.built = true
	s.mu.Unlock()

	ctx, span := observability.StartSpan(ctx, observability.SpanBaseline)
	defer span.End()

	start := time.Now()
	b, err := s.backend.Build(ctx, rc, m, sd)
	if err != nil {
		if !errors.IsFatal(err) {
			err = errors.MigrationFailed(err)
		}
		span.RecordError(err)
		s.log.Error("baseline build failed", logger.ErrorFields("create_baseline", err))
		return nil, err
	}

	s.mu.Lock()
	s.baseline = b
	s.mu.Unlock()

	s.log.Info("baseline created", logger.Fields(
		logger.FieldBaselineID, b.ID(),
		"version", b.Version(),
		logger.FieldDuration, time.Since(start).Milliseconds(),
	))
	return b, nil
}

// AcquireView opens a working view on b. It blocks while the view pool is
// saturated, up to the configured wait.
func (s *Store) AcquireView(ctx context.Context, b Baseline) (View, error) {
	if b == nil {
		return nil, errors.ViewAcquire(fmt.Errorf("no baseline"))
	}

	if s.bulkhead != nil {
		if err := s.bulkhead.Acquire(ctx); err != nil {
			return nil, errors.ViewAcquire(err).WithDetail("slots", s.bulkhead.MaxConcurrent())
		}
	}

	v, err := s.backend.Acquire(ctx, b)
	if err != nil {
		if s.bulkhead != nil {
			s.bulkhead.Release()
		}
		if errors.Is(err, errors.ErrCodeViewAcquire) {
			return nil, err
		}
		return nil, errors.ViewAcquire(err)
	}

	l := &lease{store: s, view: v}
	s.mu.Lock()
	s.active[v.ID()] = l
	s.mu.Unlock()

	s.metrics.ViewAcquired(ctx, s.backend.Name())
	s.log.Debug("view acquired", logger.Fields(logger.FieldViewID, v.ID()))
	return l, nil
}

// Release reverts v. It is idempotent and safe after the owning execution
// errored. Views not acquired through this store are released directly.
func (s *Store) Release(ctx context.Context, v View) error {
	if v == nil {
		return nil
	}
	return v.Release(ctx)
}

// Slots returns how many views may be held at once; 0 means unbounded.
func (s *Store) Slots() int {
	if s.bulkhead == nil {
		return 0
	}
	return s.bulkhead.MaxConcurrent()
}

// ActiveViews returns the number of views acquired and not yet released.
func (s *Store) ActiveViews() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// lease is the View handed out by Store. It frees the pool slot exactly once.
type lease struct {
	store *Store
	view  View

	mu       sync.Mutex
	released bool
}

func (l *lease) ID() string { return l.view.ID() }

// Unwrap returns the backend view.
func (l *lease) Unwrap() View { return l.view }

// Release reverts the view on the first call and reports whether that
// succeeded. Later calls return nil.
func (l *lease) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return nil
	}
	l.released = true

	s := l.store
	err := l.view.Release(ctx)
	if err != nil {
		if !errors.Is(err, errors.ErrCodeViewRelease) {
			err = errors.ViewRelease(l.view.ID(), err)
		}
		s.log.Error("view release failed", logger.Fields(logger.FieldViewID, l.view.ID(), logger.FieldError, err.Error()))
	} else {
		s.log.Debug("view released", logger.Fields(logger.FieldViewID, l.view.ID()))
	}

	s.mu.Lock()
	delete(s.active, l.view.ID())
	s.mu.Unlock()
	if s.bulkhead != nil {
		s.bulkhead.Release()
	}
	s.metrics.ViewReleased(ctx, s.backend.Name())
	return err
}
