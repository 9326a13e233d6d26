package testutil_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"maps"
	"sync"
	"testing"

	"github.com/kbukum/testkit/component"
	"github.com/kbukum/testkit/errors"
	"github.com/kbukum/testkit/lifecycle"
	"github.com/kbukum/testkit/logger"
	"github.com/kbukum/testkit/runctx"
	"github.com/kbukum/testkit/runner"
	"github.com/kbukum/testkit/snapshot"
	"github.com/kbukum/testkit/testutil"
)

// fakeCache is an in-memory key/value service with captured state.
type fakeCache struct {
	name string

	mu         sync.Mutex
	data       map[string]string
	started    bool
	stopped    bool
	restoreErr error
}

func newFakeCache(name string) *fakeCache {
	return &fakeCache{name: name, data: make(map[string]string)}
}

func (c *fakeCache) Name() string { return c.name }

func (c *fakeCache) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started, c.stopped = true, false
	return nil
}

func (c *fakeCache) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started, c.stopped = false, true
	return nil
}

func (c *fakeCache) Health(ctx context.Context) component.Health {
	return component.Health{Name: c.name, Status: component.StatusHealthy}
}

func (c *fakeCache) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]string)
	return nil
}

func (c *fakeCache) Snapshot(ctx context.Context) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.data), nil
}

func (c *fakeCache) Restore(ctx context.Context, snapshot interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.restoreErr != nil {
		return c.restoreErr
	}
	state, ok := snapshot.(map[string]string)
	if !ok {
		return fmt.Errorf("unexpected snapshot type %T", snapshot)
	}
	c.data = maps.Clone(state)
	return nil
}

func (c *fakeCache) Set(k, v string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[k] = v
}

func (c *fakeCache) Get(k string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[k]
	return v, ok
}

func (c *fakeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

var seedGreeting = testutil.Seed(func(ctx context.Context, c *fakeCache) error {
	c.Set("greeting", "hello")
	return nil
})

func cacheRunner(cache *fakeCache, seed snapshot.Seeder) *runner.Runner {
	store := snapshot.NewStore(testutil.NewRestoreBackend(cache), snapshot.StoreConfig{},
		snapshot.WithLogger(logger.NewNop()))
	return runner.New(
		runner.WithLogger(logger.NewNop()),
		runner.WithComponents(cache),
		runner.WithStore(store, nil, seed),
	)
}

func TestRestoreBackendIsolatesUnits(t *testing.T) {
	cache := newFakeCache("cache")

	var units []lifecycle.Unit
	for i := 0; i < 4; i++ {
		key := fmt.Sprintf("k%d", i)
		units = append(units, lifecycle.Unit{
			Name:      "writes-" + key,
			Suite:     "cache",
			Isolation: lifecycle.Stateful,
			Body: func(env *lifecycle.Env) error {
				c, err := testutil.ComponentOf[*fakeCache](env.View)
				if err != nil {
					return err
				}
				if c.Len() != 1 {
					return errors.AssertionFailedf("expected only the seeded key, got %d keys", c.Len())
				}
				c.Set(key, "x")
				return nil
			},
		})
	}

	report := testutil.Run(t, cacheRunner(cache, seedGreeting), units, runner.Config{WorkerCount: 4})

	if got := report.Summary().Passed; got != 4 {
		t.Errorf("passed = %d, want 4", got)
	}
	if v, _ := cache.Get("greeting"); v != "hello" || cache.Len() != 1 {
		t.Errorf("cache not restored to baseline: %v", cache.data)
	}
	if !cache.stopped {
		t.Error("cache should be stopped after the run")
	}
}

func TestRestoreBackendReleaseFailure(t *testing.T) {
	cache := newFakeCache("cache")
	cache.restoreErr = stderrors.New("disk full")

	report := cacheRunner(cache, seedGreeting).Run(context.Background(), []lifecycle.Unit{{
		Name:      "writes",
		Isolation: lifecycle.Stateful,
		Body:      func(*lifecycle.Env) error { return nil },
	}}, runner.Config{})

	if len(report.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(report.Entries))
	}
	out := report.Entries[0]
	if out.Status != lifecycle.Errored {
		t.Errorf("status = %s, want errored", out.Status)
	}
	if !errors.Is(out.Cause, errors.ErrCodeViewRelease) {
		t.Errorf("cause = %v, want %s", out.Cause, errors.ErrCodeViewRelease)
	}
}

func TestRestoreBackendWrongComponentType(t *testing.T) {
	cache := newFakeCache("cache")
	seed := testutil.Seed(func(ctx context.Context, c *otherComponent) error { return nil })

	report := cacheRunner(cache, seed).Run(context.Background(), nil, runner.Config{})

	if !errors.Is(report.Fatal, errors.ErrCodeSeedFailed) {
		t.Errorf("fatal = %v, want %s", report.Fatal, errors.ErrCodeSeedFailed)
	}
	if report.ExitCode() != runner.ExitFatal {
		t.Errorf("exit code = %d, want %d", report.ExitCode(), runner.ExitFatal)
	}
}

type otherComponent struct{ *fakeCache }

func TestRestoreBackendDirect(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache("cache")
	cache.Set("stale", "x")
	backend := testutil.NewRestoreBackend(cache)

	rc := runctx.New(runctx.WithLogger(logger.NewNop()))
	base, err := backend.Build(ctx, rc, nil, seedGreeting)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if _, ok := cache.Get("stale"); ok {
		t.Error("Build() should reset the component first")
	}

	again := newFakeCache("again")
	other, err := testutil.NewRestoreBackend(again).Build(ctx, rc, nil, seedGreeting)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if base.Version() != other.Version() {
		t.Errorf("equal states should have equal versions: %s != %s", base.Version(), other.Version())
	}

	v, err := backend.Acquire(ctx, base)
	if err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}
	cache.Set("temp", "y")
	if err := v.Release(ctx); err != nil {
		t.Fatalf("Release() failed: %v", err)
	}
	if err := v.Release(ctx); err != nil {
		t.Errorf("second Release() = %v, want nil", err)
	}
	if _, ok := cache.Get("temp"); ok {
		t.Error("Release() should restore the baseline state")
	}
	if _, err := testutil.ComponentOf[*fakeCache](v); !errors.Is(err, errors.ErrCodeViewReleased) {
		t.Errorf("ComponentOf(released) = %v, want %s", err, errors.ErrCodeViewReleased)
	}

	if err := base.Close(ctx); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if _, err := backend.Acquire(ctx, base); !errors.Is(err, errors.ErrCodeViewAcquire) {
		t.Errorf("Acquire(closed) = %v, want %s", err, errors.ErrCodeViewAcquire)
	}
	if _, err := backend.Acquire(ctx, other); !errors.Is(err, errors.ErrCodeViewAcquire) {
		t.Errorf("Acquire(foreign) = %v, want %s", err, errors.ErrCodeViewAcquire)
	}
}

func TestComponentOfWithoutView(t *testing.T) {
	if _, err := testutil.ComponentOf[*fakeCache](nil); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("ComponentOf(nil) = %v, want %s", err, errors.ErrCodeInvalidInput)
	}
}

// recordingTB captures what Check reports.
type recordingTB struct {
	testing.TB
	errors []string
	skip   string
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Errorf(format string, args ...any) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func (r *recordingTB) Skip(args ...any) { r.skip = fmt.Sprint(args...) }

func TestCheck(t *testing.T) {
	violation := errors.MissingCalls("Notifier", "Notify(u1)", "exactly 1 call", 0)

	tests := []struct {
		name       string
		outcome    lifecycle.Outcome
		wantErrors int
		wantSkip   string
	}{
		{"passed", lifecycle.Outcome{Status: lifecycle.Passed}, 0, ""},
		{"skipped", lifecycle.Outcome{Status: lifecycle.Skipped, Reason: "flaky"}, 0, "flaky"},
		{"failed", lifecycle.Outcome{Status: lifecycle.Failed, Reason: "wrong owner"}, 1, ""},
		{
			name: "failed by violation",
			outcome: lifecycle.Outcome{
				Status: lifecycle.Failed, Reason: violation.Error(), Cause: violation,
				Violations: []error{violation},
			},
			wantErrors: 1,
		},
		{
			name: "errored with extra violations",
			outcome: lifecycle.Outcome{
				Status: lifecycle.Errored, Reason: "boom", Cause: stderrors.New("boom"),
				Violations: []error{violation},
			},
			wantErrors: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordingTB{}
			testutil.Check(rec, tt.outcome)
			if len(rec.errors) != tt.wantErrors {
				t.Errorf("errors = %v, want %d", rec.errors, tt.wantErrors)
			}
			if rec.skip != tt.wantSkip {
				t.Errorf("skip = %q, want %q", rec.skip, tt.wantSkip)
			}
		})
	}
}

func TestTHelper(t *testing.T) {
	cache := newFakeCache("cache")

	t.Run("start", func(t *testing.T) {
		h := testutil.T(t)
		h.Start(cache)
		if !cache.started {
			t.Error("component should be started")
		}
		cache.Set("a", "1")

		state := h.Snapshot(cache)
		cache.Set("b", "2")
		h.Restore(cache, state)
		if _, ok := cache.Get("b"); ok {
			t.Error("Restore() should drop b")
		}

		h.Isolate(cache)
		cache.Set("c", "3")
	})

	if !cache.stopped {
		t.Error("component should be stopped by cleanup")
	}
	if _, ok := cache.Get("c"); ok {
		t.Error("Isolate() should restore the state at cleanup")
	}
	if _, ok := cache.Get("a"); !ok {
		t.Error("state captured by Isolate() should be kept")
	}

	testutil.T(t).WithContext(context.Background()).Reset(cache)
	if cache.Len() != 0 {
		t.Errorf("Reset() left %d keys", cache.Len())
	}
}
