package memstore

import (
	"context"
	"fmt"

	"github.com/kbukum/testkit/errors"
	"github.com/kbukum/testkit/runctx"
	"github.com/kbukum/testkit/snapshot"
)

// BackendName identifies this backend in handles, logs and metrics.
const BackendName = "memory"

// Backend is the in-memory snapshot backend. Views are independent, so it
// imposes no view limit.
type Backend struct{}

var _ snapshot.Backend = (*Backend)(nil)

// New creates an in-memory backend.
func New() *Backend { return &Backend{} }

func (*Backend) Name() string { return BackendName }

// Build runs m and s against empty tables and freezes the result.
func (*Backend) Build(ctx context.Context, rc *runctx.Context, m snapshot.Migrator, s snapshot.Seeder) (snapshot.Baseline, error) {
	b := newBuilder()
	if err := snapshot.Apply(ctx, rc, b, m, s); err != nil {
		return nil, err
	}
	return freeze(b), nil
}

// Acquire allocates an empty overlay on b.
func (*Backend) Acquire(ctx context.Context, b snapshot.Baseline) (snapshot.View, error) {
	base, err := BaselineOf(b)
	if err != nil {
		return nil, errors.ViewAcquire(err)
	}
	return newView(base), nil
}

// Migrate adapts a schema function to snapshot.Migrator.
func Migrate(fn func(ctx context.Context, s Schema) error) snapshot.Migrator {
	return snapshot.MigratorFunc(func(ctx context.Context, rc *runctx.Context, h snapshot.Handle) error {
		s, ok := h.(Schema)
		if !ok {
			return handleMismatch(h)
		}
		return fn(ctx, s)
	})
}

// CreateTables returns a migrator that creates the named tables.
func CreateTables(names ...string) snapshot.Migrator {
	return Migrate(func(ctx context.Context, s Schema) error {
		for _, name := range names {
			if err := s.CreateTable(name); err != nil {
				return err
			}
		}
		return nil
	})
}

// Seed adapts a seeding function to snapshot.Seeder.
func Seed(fn func(ctx context.Context, rc *runctx.Context, w Writer) error) snapshot.Seeder {
	return snapshot.SeederFunc(func(ctx context.Context, rc *runctx.Context, h snapshot.Handle) error {
		w, ok := h.(Writer)
		if !ok {
			return handleMismatch(h)
		}
		return fn(ctx, rc, w)
	})
}

// ViewOf returns the memstore view behind v.
func ViewOf(v snapshot.View) (*View, error) {
	if v == nil {
		return nil, errors.InvalidInput("view", "unit has no working view; declare stateful isolation")
	}
	mv, ok := snapshot.Unwrap(v).(*View)
	if !ok {
		return nil, errors.InvalidInput("view", fmt.Sprintf("%T is not a %s view", snapshot.Unwrap(v), BackendName))
	}
	return mv, nil
}

// BaselineOf returns the memstore baseline behind b.
func BaselineOf(b snapshot.Baseline) (*Baseline, error) {
	mb, ok := b.(*Baseline)
	if !ok || mb == nil {
		return nil, errors.InvalidInput("baseline", fmt.Sprintf("%T is not a %s baseline", b, BackendName))
	}
	return mb, nil
}

func handleMismatch(h snapshot.Handle) error {
	got := "<nil>"
	if h != nil {
		got = h.Backend()
	}
	return errors.InvalidInput("handle", fmt.Sprintf("%s collaborator given a %s handle", BackendName, got))
}
