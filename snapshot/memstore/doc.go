// Package memstore is an in-memory snapshot backend.
//
// The baseline is a set of named tables of records, frozen after migration
// and seeding. A view is a copy-on-write overlay: acquiring one allocates an
// empty overlay regardless of baseline size, reads fall through to the
// baseline, and writes land in the overlay only. Releasing a view drops the
// overlay.
//
//	migrate := memstore.Migrate(func(ctx context.Context, s memstore.Schema) error {
//	    return s.CreateTable("users")
//	})
//	seed := memstore.Seed(func(ctx context.Context, rc *runctx.Context, w memstore.Writer) error {
//	    _, err := w.Insert("users", memstore.Record{"name": "admin"})
//	    return err
//	})
package memstore
