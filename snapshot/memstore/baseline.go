package memstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/kbukum/testkit/errors"
)

// builder is the Schema handed to migrators and seeders while the baseline
// is under construction.
type builder struct {
	tables tableSet
}

func newBuilder() *builder { return &builder{tables: make(tableSet)} }

func (b *builder) Backend() string { return BackendName }

func (b *builder) CreateTable(name string) error {
	if name == "" {
		return errors.InvalidInput("table", "table name is empty")
	}
	if _, exists := b.tables[name]; exists {
		return errors.AlreadyExists("table " + name)
	}
	b.tables[name] = make(map[string]Record)
	return nil
}

func (b *builder) Get(table, key string) (Record, error) {
	t, err := b.tables.table(table)
	if err != nil {
		return nil, err
	}
	r, ok := t[key]
	if !ok {
		return nil, errors.NotFound(table, key)
	}
	return r.Clone(), nil
}

func (b *builder) List(table string) ([]Entry, error) {
	t, err := b.tables.table(table)
	if err != nil {
		return nil, err
	}
	return sortedEntries(t), nil
}

func (b *builder) Count(table string) (int, error) {
	t, err := b.tables.table(table)
	if err != nil {
		return 0, err
	}
	return len(t), nil
}

func (b *builder) Tables() []string { return b.tables.names() }

func (b *builder) Put(table, key string, r Record) error {
	t, err := b.tables.table(table)
	if err != nil {
		return err
	}
	t[key] = r.Clone()
	return nil
}

func (b *builder) Insert(table string, r Record) (string, error) {
	t, err := b.tables.table(table)
	if err != nil {
		return "", err
	}
	key, rec := prepareInsert(r)
	if _, exists := t[key]; exists {
		return "", errors.AlreadyExists(table + " " + key)
	}
	t[key] = rec
	return key, nil
}

func (b *builder) Delete(table, key string) error {
	t, err := b.tables.table(table)
	if err != nil {
		return err
	}
	if _, ok := t[key]; !ok {
		return errors.NotFound(table, key)
	}
	delete(t, key)
	return nil
}

// Baseline is the frozen dataset. Reads need no locking because nothing
// writes to it after Build returns; writes fail with BASELINE_READ_ONLY.
type Baseline struct {
	id      string
	version string
	tables  tableSet
}

var _ Writer = (*Baseline)(nil)

func freeze(b *builder) *Baseline {
	return &Baseline{
		id:      uuid.NewString(),
		version: digest(b.tables),
		tables:  b.tables,
	}
}

// digest hashes the table contents; json.Marshal orders map keys, so equal
// data gives equal digests. Tables holding values JSON cannot encode are
// hashed in their Go syntax form, which fmt also prints with sorted keys.
func digest(ts tableSet) string {
	data, err := json.Marshal(ts)
	if err != nil {
		data = []byte(fmt.Sprintf("%#v", ts))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (b *Baseline) ID() string      { return b.id }
func (b *Baseline) Version() string { return b.version }

// Close implements snapshot.Baseline. There is nothing to tear down.
func (b *Baseline) Close(ctx context.Context) error {
	return nil
}

func (b *Baseline) Get(table, key string) (Record, error) {
	t, err := b.tables.table(table)
	if err != nil {
		return nil, err
	}
	r, ok := t[key]
	if !ok {
		return nil, errors.NotFound(table, key)
	}
	return r.Clone(), nil
}

func (b *Baseline) List(table string) ([]Entry, error) {
	t, err := b.tables.table(table)
	if err != nil {
		return nil, err
	}
	return sortedEntries(t), nil
}

func (b *Baseline) Count(table string) (int, error) {
	t, err := b.tables.table(table)
	if err != nil {
		return 0, err
	}
	return len(t), nil
}

func (b *Baseline) Tables() []string { return b.tables.names() }

func (b *Baseline) Put(table, key string, r Record) error {
	return errors.ReadOnly("put")
}

func (b *Baseline) Insert(table string, r Record) (string, error) {
	return "", errors.ReadOnly("insert")
}

func (b *Baseline) Delete(table, key string) error {
	return errors.ReadOnly("delete")
}
