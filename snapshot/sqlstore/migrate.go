package sqlstore

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"

	"github.com/kbukum/testkit/errors"
	"github.com/kbukum/testkit/logger"
	"github.com/kbukum/testkit/runctx"
	"github.com/kbukum/testkit/snapshot"
)

// Handle is the build-time handle sqlstore gives migrators and seeders.
type Handle interface {
	snapshot.Handle
	DB() *gorm.DB
}

// Migrate adapts a GORM function to snapshot.Migrator.
func Migrate(fn func(ctx context.Context, db *gorm.DB) error) snapshot.Migrator {
	return snapshot.MigratorFunc(func(ctx context.Context, rc *runctx.Context, h snapshot.Handle) error {
		sh, err := handleOf(h)
		if err != nil {
			return err
		}
		return fn(ctx, sh.DB())
	})
}

// AutoMigrate returns a migrator that runs GORM auto-migration for models.
func AutoMigrate(models ...interface{}) snapshot.Migrator {
	return Migrate(func(ctx context.Context, db *gorm.DB) error {
		return db.AutoMigrate(models...)
	})
}

// MigrateFS returns a migrator that applies the versioned golang-migrate files
// under dir in fsys (VERSION_name.up.sql).
func MigrateFS(fsys fs.FS, dir string) snapshot.Migrator {
	return Migrate(func(ctx context.Context, db *gorm.DB) error {
		m, err := newMigrator(db, fsys, dir)
		if err != nil {
			return err
		}
		if err := m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate up: %w", err)
		}
		return nil
	})
}

// newMigrator creates a golang-migrate instance backed by fsys.
// Callers must NOT call m.Close(): it would close the baseline's sql.DB.
func newMigrator(db *gorm.DB, fsys fs.FS, dir string) (*migrate.Migrate, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	driver, err := migratesqlite.WithInstance(sqlDB, &migratesqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("create database driver: %w", err)
	}

	source, err := iofs.New(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, BackendName, driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

// Migration describes a single GORM-based schema migration.
type Migration struct {
	ID          string
	Description string
	Up          func(*gorm.DB) error
}

// MigrationsTable records applied programmatic migrations. It is distinct from
// golang-migrate's schema_migrations so both can be used on one baseline.
const MigrationsTable = "testkit_migrations"

// Migrations returns a migrator that applies ms in order, each in its own
// transaction, skipping those already recorded in MigrationsTable.
func Migrations(ms ...Migration) snapshot.Migrator {
	return snapshot.MigratorFunc(func(ctx context.Context, rc *runctx.Context, h snapshot.Handle) error {
		sh, err := handleOf(h)
		if err != nil {
			return err
		}
		log := logger.Get("sqlstore")
		if rc != nil {
			log = rc.Logger().WithComponent("sqlstore")
		}
		return newMigrationRunner(sh.DB(), log, ms).run()
	})
}

type migrationRunner struct {
	db         *gorm.DB
	log        *logger.Logger
	migrations []Migration
}

func newMigrationRunner(db *gorm.DB, log *logger.Logger, ms []Migration) *migrationRunner {
	return &migrationRunner{db: db, log: log, migrations: ms}
}

func (mr *migrationRunner) run() error {
	if err := mr.createMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, migration := range mr.migrations {
		if migration.ID == "" || migration.Up == nil {
			return errors.InvalidInput("migration", "id and up are required")
		}
		applied, err := mr.isMigrationApplied(migration.ID)
		if err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}
		if applied {
			mr.log.Debug("Migration already applied", map[string]interface{}{
				"id": migration.ID,
			})
			continue
		}

		mr.log.Debug("Applying migration", map[string]interface{}{
			"id":          migration.ID,
			"description": migration.Description,
		})

		if err := mr.db.Transaction(func(tx *gorm.DB) error {
			if err := migration.Up(tx); err != nil {
				return err
			}
			return mr.recordMigration(tx, migration.ID)
		}); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.ID, err)
		}
	}

	return nil
}

func (mr *migrationRunner) createMigrationsTable() error {
	return mr.db.Exec(`
		CREATE TABLE IF NOT EXISTS ` + MigrationsTable + ` (
			id VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`).Error
}

func (mr *migrationRunner) isMigrationApplied(id string) (bool, error) {
	var count int64
	err := mr.db.Table(MigrationsTable).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (mr *migrationRunner) recordMigration(tx *gorm.DB, id string) error {
	return tx.Exec("INSERT INTO "+MigrationsTable+" (id) VALUES (?)", id).Error
}

func handleOf(h snapshot.Handle) (Handle, error) {
	sh, ok := h.(Handle)
	if !ok {
		got := "<nil>"
		if h != nil {
			got = h.Backend()
		}
		return nil, errors.InvalidInput("handle", fmt.Sprintf("%s collaborator given a %s handle", BackendName, got))
	}
	return sh, nil
}
