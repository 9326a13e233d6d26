package sqlstore

import (
	"context"
	"fmt"
	"testing"

	"gorm.io/gorm"

	"github.com/kbukum/testkit/errors"
	"github.com/kbukum/testkit/runctx"
	"github.com/kbukum/testkit/snapshot"
)

// Fixture is a set of rows for one table.
type Fixture struct {
	Table string
	Rows  []map[string]interface{}
}

// Seed adapts a GORM seeding function to snapshot.Seeder.
func Seed(fn func(ctx context.Context, rc *runctx.Context, db *gorm.DB) error) snapshot.Seeder {
	return snapshot.SeederFunc(func(ctx context.Context, rc *runctx.Context, h snapshot.Handle) error {
		sh, err := handleOf(h)
		if err != nil {
			return err
		}
		return fn(ctx, rc, sh.DB())
	})
}

// SeedFixtures returns a seeder that loads fixtures in order.
func SeedFixtures(fixtures ...Fixture) snapshot.Seeder {
	return Seed(func(ctx context.Context, rc *runctx.Context, db *gorm.DB) error {
		for _, f := range fixtures {
			if err := LoadFixture(db, f.Table, f.Rows); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadFixture loads test data into a table.
// Data should be a slice of maps where each map represents a row.
func LoadFixture(db *gorm.DB, table string, data []map[string]interface{}) error {
	for _, row := range data {
		if err := db.Table(table).Create(row).Error; err != nil {
			return fmt.Errorf("failed to insert fixture row into %s: %w", table, err)
		}
	}
	return nil
}

// MustLoadFixture loads test data and fails the test on error.
func MustLoadFixture(t testing.TB, db *gorm.DB, table string, data []map[string]interface{}) {
	t.Helper()
	if err := LoadFixture(db, table, data); err != nil {
		t.Fatalf("LoadFixture failed: %v", err)
	}
}

// TableExists checks if a table exists in the database.
func TableExists(db *gorm.DB, table string) bool {
	return db.Migrator().HasTable(table)
}

// TableNames returns all non-system tables.
func TableNames(db *gorm.DB) ([]string, error) {
	var tables []string
	err := db.Raw("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name").
		Scan(&tables).Error
	return tables, err
}

// CountRows returns the number of rows in a table.
func CountRows(db *gorm.DB, table string) (int64, error) {
	var count int64
	err := db.Table(table).Count(&count).Error
	return count, err
}

// ViewOf returns the sqlite view behind v.
func ViewOf(v snapshot.View) (*View, error) {
	if v == nil {
		return nil, errors.InvalidInput("view", "unit has no working view; declare stateful isolation")
	}
	sv, ok := snapshot.Unwrap(v).(*View)
	if !ok {
		return nil, errors.InvalidInput("view", fmt.Sprintf("%T is not a %s view", snapshot.Unwrap(v), BackendName))
	}
	return sv, nil
}

// DB returns the transaction behind v, scoped to ctx.
func DB(ctx context.Context, v snapshot.View) (*gorm.DB, error) {
	sv, err := ViewOf(v)
	if err != nil {
		return nil, err
	}
	return sv.DB().WithContext(ctx), nil
}

// BaselineOf returns the sqlite baseline behind b.
func BaselineOf(b snapshot.Baseline) (*Baseline, error) {
	sb, ok := b.(*Baseline)
	if !ok || sb == nil {
		return nil, errors.InvalidInput("baseline", fmt.Sprintf("%T is not a %s baseline", b, BackendName))
	}
	return sb, nil
}
