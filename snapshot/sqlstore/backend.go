package sqlstore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kbukum/testkit/errors"
	"github.com/kbukum/testkit/logger"
	"github.com/kbukum/testkit/runctx"
	"github.com/kbukum/testkit/snapshot"
)

// BackendName identifies this backend in handles, logs and metrics.
const BackendName = "sqlite"

// Backend builds sqlite baselines and hands out rollback-only transactions
// as views.
type Backend struct {
	cfg Config
	log *logger.Logger
}

var (
	_ snapshot.Backend = (*Backend)(nil)
	_ snapshot.Limited = (*Backend)(nil)
)

// New creates a sqlite backend. A nil log falls back to logger.Get("sqlstore").
func New(cfg Config, log *logger.Logger) *Backend {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Get("sqlstore")
	}
	return &Backend{cfg: cfg, log: log}
}

func (b *Backend) Name() string { return BackendName }

// MaxViews is 1: sqlite holds one write transaction at a time.
func (b *Backend) MaxViews() int { return 1 }

// Build creates a temporary database file, applies m and s to it and opens a
// second, read-only connection for baseline reads.
func (b *Backend) Build(ctx context.Context, rc *runctx.Context, m snapshot.Migrator, s snapshot.Seeder) (snapshot.Baseline, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, errors.MigrationFailed(err)
	}

	dir, err := os.MkdirTemp(b.cfg.Dir, "testkit-sqlstore-")
	if err != nil {
		return nil, errors.MigrationFailed(fmt.Errorf("create baseline dir: %w", err))
	}
	path := filepath.Join(dir, "baseline.db")

	writer, err := b.open(ctx, b.dsn(path, false))
	if err != nil {
		os.RemoveAll(dir)
		return nil, errors.MigrationFailed(err)
	}
	// One connection: a view's transaction must be the only writer.
	if sqlDB, err := writer.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	base := &Baseline{id: uuid.NewString(), dir: dir, writer: writer, log: b.log}
	if err := snapshot.Apply(ctx, rc, &handle{db: writer.WithContext(ctx)}, m, s); err != nil {
		base.Close(ctx)
		return nil, err
	}

	if base.version, err = digest(writer.WithContext(ctx)); err != nil {
		base.Close(ctx)
		return nil, errors.SeedFailed(fmt.Errorf("digest baseline: %w", err))
	}

	if base.reader, err = b.open(ctx, b.dsn(path, true)); err != nil {
		base.Close(ctx)
		return nil, errors.MigrationFailed(err)
	}

	b.log.Debug("sqlite baseline built", map[string]interface{}{
		logger.FieldBaselineID: base.id,
		"path":                 path,
	})
	return base, nil
}

// Acquire opens a transaction on the baseline file.
func (b *Backend) Acquire(ctx context.Context, bl snapshot.Baseline) (snapshot.View, error) {
	base, err := BaselineOf(bl)
	if err != nil {
		return nil, errors.ViewAcquire(err)
	}
	if base.isClosed() {
		return nil, errors.ViewAcquire(fmt.Errorf("baseline %s is closed", base.id))
	}

	// The transaction lives until Release, not until ctx is done.
	tx := base.writer.WithContext(context.WithoutCancel(ctx)).Begin()
	if tx.Error != nil {
		return nil, errors.ViewAcquire(tx.Error)
	}
	return &View{id: uuid.NewString(), tx: tx}, nil
}

func (b *Backend) dsn(path string, readOnly bool) string {
	if readOnly {
		return fmt.Sprintf("file:%s?mode=ro&_busy_timeout=%d&_foreign_keys=on", path, b.cfg.busyTimeoutMillis())
	}
	return fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_foreign_keys=on", path, b.cfg.busyTimeoutMillis())
}

func (b *Backend) open(ctx context.Context, dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: newGormLogger(b.log, b.cfg.slowThreshold(), parseLogLevel(b.cfg.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

// handle is the snapshot.Handle given to migrators and seeders during Build.
type handle struct {
	db *gorm.DB
}

func (h *handle) Backend() string { return BackendName }
func (h *handle) DB() *gorm.DB    { return h.db }

// Baseline is a built sqlite file. DB returns a read-only connection; writes
// through it fail.
type Baseline struct {
	id      string
	version string
	dir     string
	writer  *gorm.DB
	reader  *gorm.DB
	log     *logger.Logger

	mu     sync.Mutex
	closed bool
}

func (b *Baseline) ID() string      { return b.id }
func (b *Baseline) Version() string { return b.version }

// DB returns the read-only baseline connection.
func (b *Baseline) DB() *gorm.DB { return b.reader }

func (b *Baseline) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Close closes both connections and removes the database file.
func (b *Baseline) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	for _, db := range []*gorm.DB{b.reader, b.writer} {
		if db == nil {
			continue
		}
		if sqlDB, err := db.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	errs = append(errs, os.RemoveAll(b.dir))
	return stderrors.Join(errs...)
}

// View is a transaction on the baseline file.
type View struct {
	id string
	tx *gorm.DB

	mu       sync.Mutex
	released bool
}

func (v *View) ID() string { return v.id }

// DB returns the view's transaction. Do not commit it.
func (v *View) DB() *gorm.DB { return v.tx }

// Release rolls the transaction back. If the body committed it, the changes
// are already in the baseline and Release reports VIEW_RELEASE_FAILED.
func (v *View) Release(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.released {
		return nil
	}
	v.released = true

	err := v.tx.Rollback().Error
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, sql.ErrTxDone):
		return errors.ViewRelease(v.id, fmt.Errorf("transaction already finished, changes leaked into the baseline: %w", err))
	default:
		return errors.ViewRelease(v.id, err)
	}
}

// digest hashes the schema and every table's rows.
func digest(db *gorm.DB) (string, error) {
	var schema []struct {
		Type string
		Name string
		SQL  sql.NullString `gorm:"column:sql"`
	}
	if err := db.Raw("SELECT type, name, sql FROM sqlite_master WHERE name NOT LIKE 'sqlite_%' ORDER BY type, name").
		Scan(&schema).Error; err != nil {
		return "", err
	}

	h := sha256.New()
	enc := json.NewEncoder(h)
	for _, obj := range schema {
		if err := enc.Encode([]string{obj.Type, obj.Name, obj.SQL.String}); err != nil {
			return "", err
		}
		if obj.Type != "table" {
			continue
		}
		var rows []map[string]interface{}
		if err := db.Raw(fmt.Sprintf("SELECT * FROM %q", obj.Name)).Scan(&rows).Error; err != nil {
			return "", err
		}
		if err := enc.Encode(rows); err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
