package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/kbukum/testkit/errors"
)

// change is one overlay slot: a replacement record or a tombstone.
type change struct {
	rec     Record
	deleted bool
}

// View is a copy-on-write overlay on a Baseline.
type View struct {
	id   string
	base *Baseline

	mu       sync.RWMutex
	overlay  map[string]map[string]change
	released bool
}

var _ Writer = (*View)(nil)

func newView(base *Baseline) *View {
	return &View{
		id:      uuid.NewString(),
		base:    base,
		overlay: make(map[string]map[string]change),
	}
}

func (v *View) ID() string { return v.id }

// Release drops every change made through the view.
func (v *View) Release(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.overlay = nil
	v.released = true
	return nil
}

// Dirty reports how many records the view changed.
func (v *View) Dirty() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	n := 0
	for _, t := range v.overlay {
		n += len(t)
	}
	return n
}

func (v *View) check(table string) (map[string]Record, error) {
	if v.released {
		return nil, errors.ViewReleased(v.id)
	}
	return v.base.tables.table(table)
}

// lookup resolves key through the overlay first, then the baseline.
func (v *View) lookup(base map[string]Record, table, key string) (Record, bool) {
	if c, ok := v.overlay[table][key]; ok {
		if c.deleted {
			return nil, false
		}
		return c.rec, true
	}
	r, ok := base[key]
	return r, ok
}

func (v *View) set(table, key string, c change) {
	t, ok := v.overlay[table]
	if !ok {
		t = make(map[string]change)
		v.overlay[table] = t
	}
	t[key] = c
}

func (v *View) Get(table, key string) (Record, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	base, err := v.check(table)
	if err != nil {
		return nil, err
	}
	r, ok := v.lookup(base, table, key)
	if !ok {
		return nil, errors.NotFound(table, key)
	}
	return r.Clone(), nil
}

func (v *View) List(table string) ([]Entry, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	base, err := v.check(table)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(base))
	for key, r := range base {
		if _, changed := v.overlay[table][key]; !changed {
			entries = append(entries, Entry{Key: key, Record: r.Clone()})
		}
	}
	for key, c := range v.overlay[table] {
		if !c.deleted {
			entries = append(entries, Entry{Key: key, Record: c.rec.Clone()})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

func (v *View) Count(table string) (int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	base, err := v.check(table)
	if err != nil {
		return 0, err
	}
	n := len(base)
	for key, c := range v.overlay[table] {
		_, inBase := base[key]
		switch {
		case c.deleted && inBase:
			n--
		case !c.deleted && !inBase:
			n++
		}
	}
	return n, nil
}

func (v *View) Tables() []string {
	return v.base.Tables()
}

func (v *View) Put(table, key string, r Record) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, err := v.check(table); err != nil {
		return err
	}
	v.set(table, key, change{rec: r.Clone()})
	return nil
}

func (v *View) Insert(table string, r Record) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	base, err := v.check(table)
	if err != nil {
		return "", err
	}
	key, rec := prepareInsert(r)
	if _, exists := v.lookup(base, table, key); exists {
		return "", errors.AlreadyExists(table + " " + key)
	}
	v.set(table, key, change{rec: rec})
	return key, nil
}

func (v *View) Delete(table, key string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	base, err := v.check(table)
	if err != nil {
		return err
	}
	if _, exists := v.lookup(base, table, key); !exists {
		return errors.NotFound(table, key)
	}
	v.set(table, key, change{deleted: true})
	return nil
}
