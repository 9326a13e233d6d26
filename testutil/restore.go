package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/kbukum/testkit/errors"
	"github.com/kbukum/testkit/logger"
	"github.com/kbukum/testkit/runctx"
	"github.com/kbukum/testkit/snapshot"
)

// RestoreBackendName identifies RestoreBackend handles.
const RestoreBackendName = "restore"

// RestoreBackend isolates units that share one TestComponent. The baseline
// is the component's snapshot after migration and seeding; releasing a view
// restores it. Views are exclusive since all of them mutate the same
// component.
//
// The component must already be started when the baseline is built, for
// example by passing it to runner.WithComponents.
type RestoreBackend struct {
	c   TestComponent
	log *logger.Logger
}

var (
	_ snapshot.Backend = (*RestoreBackend)(nil)
	_ snapshot.Limited = (*RestoreBackend)(nil)
)

// NewRestoreBackend creates a backend around c.
func NewRestoreBackend(c TestComponent) *RestoreBackend {
	return &RestoreBackend{c: c, log: logger.Get("testutil")}
}

func (b *RestoreBackend) Name() string { return RestoreBackendName }

// MaxViews is 1: the component holds a single live state.
func (b *RestoreBackend) MaxViews() int { return 1 }

// Build resets the component, applies m and s to it and captures the result.
func (b *RestoreBackend) Build(ctx context.Context, rc *runctx.Context, m snapshot.Migrator, s snapshot.Seeder) (snapshot.Baseline, error) {
	if err := b.c.Reset(ctx); err != nil {
		return nil, errors.MigrationFailed(fmt.Errorf("reset %s: %w", b.c.Name(), err))
	}
	if err := snapshot.Apply(ctx, rc, &componentHandle{c: b.c}, m, s); err != nil {
		return nil, err
	}
	state, err := b.c.Snapshot(ctx)
	if err != nil {
		return nil, errors.SeedFailed(fmt.Errorf("snapshot %s: %w", b.c.Name(), err))
	}

	base := &RestoreBaseline{
		id:      uuid.NewString(),
		version: stateVersion(state),
		state:   state,
		c:       b.c,
	}
	b.log.Debug("baseline captured", map[string]interface{}{
		logger.FieldBaselineID: base.id,
		"component":            b.c.Name(),
	})
	return base, nil
}

// Acquire hands out the component in its baseline state.
func (b *RestoreBackend) Acquire(ctx context.Context, bl snapshot.Baseline) (snapshot.View, error) {
	base, ok := bl.(*RestoreBaseline)
	if !ok {
		return nil, errors.ViewAcquire(fmt.Errorf("%T is not a %s baseline", bl, RestoreBackendName))
	}
	if base.isClosed() {
		return nil, errors.ViewAcquire(fmt.Errorf("baseline %s is closed", base.id))
	}
	return &RestoreView{id: uuid.NewString(), base: base}, nil
}

// stateVersion digests the JSON form of state. States that cannot be
// marshaled fall back to their Go syntax representation.
func stateVersion(state interface{}) string {
	data, err := json.Marshal(state)
	if err != nil {
		data = []byte(fmt.Sprintf("%#v", state))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

type componentHandle struct{ c TestComponent }

func (h *componentHandle) Backend() string { return RestoreBackendName }

// RestoreBaseline is the captured state of the component.
type RestoreBaseline struct {
	id      string
	version string
	state   interface{}
	c       TestComponent

	mu     sync.Mutex
	closed bool
}

func (b *RestoreBaseline) ID() string      { return b.id }
func (b *RestoreBaseline) Version() string { return b.version }

// Close forgets the baseline. The component itself is left running.
func (b *RestoreBaseline) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *RestoreBaseline) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// RestoreView is an exclusive lease on the component.
type RestoreView struct {
	id   string
	base *RestoreBaseline

	mu       sync.Mutex
	released bool
}

func (v *RestoreView) ID() string { return v.id }

// Release restores the baseline state. Later calls return nil.
func (v *RestoreView) Release(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.released {
		return nil
	}
	v.released = true
	if err := v.base.c.Restore(ctx, v.base.state); err != nil {
		return errors.ViewRelease(v.id, err)
	}
	return nil
}

// Migrate adapts fn to snapshot.Migrator for a RestoreBackend over a C.
func Migrate[C TestComponent](fn func(ctx context.Context, c C) error) snapshot.Migrator {
	return snapshot.MigratorFunc(func(ctx context.Context, rc *runctx.Context, h snapshot.Handle) error {
		c, err := componentOf[C](h)
		if err != nil {
			return err
		}
		return fn(ctx, c)
	})
}

// Seed adapts fn to snapshot.Seeder for a RestoreBackend over a C.
func Seed[C TestComponent](fn func(ctx context.Context, c C) error) snapshot.Seeder {
	return snapshot.SeederFunc(func(ctx context.Context, rc *runctx.Context, h snapshot.Handle) error {
		c, err := componentOf[C](h)
		if err != nil {
			return err
		}
		return fn(ctx, c)
	})
}

// ComponentOf returns the component leased by v.
func ComponentOf[C TestComponent](v snapshot.View) (C, error) {
	var zero C
	if v == nil {
		return zero, errors.InvalidInput("view", "unit has no working view; declare stateful isolation")
	}
	rv, ok := snapshot.Unwrap(v).(*RestoreView)
	if !ok {
		return zero, errors.InvalidInput("view", fmt.Sprintf("%T is not a %s view", snapshot.Unwrap(v), RestoreBackendName))
	}
	if rv.isReleased() {
		return zero, errors.ViewReleased(rv.id)
	}
	return cast[C](rv.base.c)
}

func (v *RestoreView) isReleased() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.released
}

func componentOf[C TestComponent](h snapshot.Handle) (C, error) {
	ch, ok := h.(*componentHandle)
	if !ok {
		var zero C
		return zero, errors.InvalidInput("handle", fmt.Sprintf("%T is not a %s handle", h, RestoreBackendName))
	}
	return cast[C](ch.c)
}

func cast[C TestComponent](tc TestComponent) (C, error) {
	c, ok := tc.(C)
	if !ok {
		var zero C
		return zero, errors.InvalidInput("component", fmt.Sprintf("%s is a %T", tc.Name(), tc))
	}
	return c, nil
}
