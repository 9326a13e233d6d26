// Package sqlstore is a snapshot backend on sqlite through GORM.
//
// The baseline is a temporary database file built once per run. Each view
// is a transaction on that file which Release rolls back, so no change made
// through a view survives it. sqlite admits a single writer, so the backend
// reports MaxViews() == 1 and the snapshot.Store serializes stateful units.
// A runner with several workers queues its stateful units on that single
// view, so they never time out waiting for it. Code that calls AcquireView
// directly waits at most StoreConfig.ViewWait (30s by default) and then
// fails with VIEW_ACQUIRE_FAILED.
//
// Schemas can be applied with golang-migrate (MigrateFS), GORM auto-migration
// (AutoMigrate) or tracked programmatic steps (Migrations):
//
//	//go:embed migrations/*.sql
//	var migrations embed.FS
//
//	backend := sqlstore.New(sqlstore.Config{}, log)
//	store := snapshot.NewStore(backend, snapshot.StoreConfig{})
//	baseline, err := store.CreateBaseline(ctx, rc,
//	    sqlstore.MigrateFS(migrations, "migrations"),
//	    sqlstore.SeedFixtures(sqlstore.Fixture{Table: "users", Rows: users}))
//
// Inside a unit, sqlstore.DB(env.View) returns the view's transaction.
package sqlstore
