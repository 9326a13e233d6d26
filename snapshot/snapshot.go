package snapshot

import (
	"context"

	"github.com/kbukum/testkit/errors"
	"github.com/kbukum/testkit/runctx"
)

// Handle gives migrators and seeders write access to the baseline while it is
// being built. Backends hand out their own concrete type; typed adapters such
// as memstore.Migrate and sqlstore.AutoMigrate unwrap it.
type Handle interface {
	Backend() string
}

// Migrator applies the schema to a baseline under construction.
type Migrator interface {
	Migrate(ctx context.Context, rc *runctx.Context, h Handle) error
}

// MigratorFunc adapts a function to Migrator.
type MigratorFunc func(ctx context.Context, rc *runctx.Context, h Handle) error

func (f MigratorFunc) Migrate(ctx context.Context, rc *runctx.Context, h Handle) error {
	return f(ctx, rc, h)
}

// Seeder loads reference data into a migrated baseline.
type Seeder interface {
	Seed(ctx context.Context, rc *runctx.Context, h Handle) error
}

// SeederFunc adapts a function to Seeder.
type SeederFunc func(ctx context.Context, rc *runctx.Context, h Handle) error

func (f SeederFunc) Seed(ctx context.Context, rc *runctx.Context, h Handle) error {
	return f(ctx, rc, h)
}

// Baseline is the frozen, migrated and seeded dataset of a run.
type Baseline interface {
	ID() string
	// Version identifies the baseline content; equal versions mean equal data.
	Version() string
	// Close tears the baseline down at the end of the run.
	Close(ctx context.Context) error
}

// View is one execution's private, disposable window onto a Baseline.
type View interface {
	ID() string
	// Release reverts every mutation made through the view. Calling it more
	// than once returns nil.
	Release(ctx context.Context) error
}

// Backend is a pluggable reset strategy.
type Backend interface {
	Name() string
	// Build creates the baseline, running the migrator and then the seeder
	// against it exactly once. Use Apply to get the error classification.
	Build(ctx context.Context, rc *runctx.Context, m Migrator, s Seeder) (Baseline, error)
	// Acquire opens a new view on b in constant time relative to its size.
	Acquire(ctx context.Context, b Baseline) (View, error)
}

// Limited is implemented by backends that cannot hold more than MaxViews
// views at once (a single-writer database, an exclusively restored fixture).
type Limited interface {
	MaxViews() int
}

// Apply runs the migrator and then the seeder against h, classifying
// failures as MIGRATION_FAILED or SEED_FAILED. Either collaborator may be nil.
func Apply(ctx context.Context, rc *runctx.Context, h Handle, m Migrator, s Seeder) error {
	if m != nil {
		if err := m.Migrate(ctx, rc, h); err != nil {
			return errors.MigrationFailed(err)
		}
	}
	if s != nil {
		if err := s.Seed(ctx, rc, h); err != nil {
			return errors.SeedFailed(err)
		}
	}
	return nil
}

// Unwrap returns the backend view underneath any Store lease wrappers.
func Unwrap(v View) View {
	for {
		w, ok := v.(interface{ Unwrap() View })
		if !ok {
			return v
		}
		v = w.Unwrap()
	}
}
