package memstore

import (
	"sort"

	"github.com/google/uuid"

	"github.com/kbukum/testkit/errors"
)

// KeyField is set on inserted records that carry no key of their own.
const KeyField = "id"

// Record is one row. Records are deep-copied on every read and write, so a
// record returned by a reader can be modified freely.
type Record map[string]any

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

// Entry is a keyed record returned by List.
type Entry struct {
	Key    string
	Record Record
}

// Reader is read access to tables.
type Reader interface {
	Get(table, key string) (Record, error)
	List(table string) ([]Entry, error)
	Count(table string) (int, error)
	Tables() []string
}

// Writer is read-write access to tables.
type Writer interface {
	Reader
	Put(table, key string, r Record) error
	Insert(table string, r Record) (string, error)
	Delete(table, key string) error
}

// Schema is the build-time handle: a Writer that can also create tables.
type Schema interface {
	Writer
	CreateTable(name string) error
}

type tableSet map[string]map[string]Record

func (ts tableSet) table(name string) (map[string]Record, error) {
	t, ok := ts[name]
	if !ok {
		return nil, errors.NotFound("table", name)
	}
	return t, nil
}

func (ts tableSet) names() []string {
	names := make([]string, 0, len(ts))
	for name := range ts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// prepareInsert copies r and assigns it a key.
func prepareInsert(r Record) (string, Record) {
	rec := r.Clone()
	if key, ok := rec[KeyField].(string); ok && key != "" {
		return key, rec
	}
	key := uuid.NewString()
	rec[KeyField] = key
	return key, rec
}

func sortedEntries(rows map[string]Record) []Entry {
	entries := make([]Entry, 0, len(rows))
	for k, r := range rows {
		entries = append(entries, Entry{Key: k, Record: r.Clone()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}
