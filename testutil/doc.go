// Package testutil connects testkit to the go test tool and to stateful
// fake components.
//
// # Running units under go test
//
// Run executes a slice of units and reports each outcome as a subtest:
//
//	func TestPosts(t *testing.T) {
//	    store := snapshot.NewStore(memstore.New(), snapshot.StoreConfig{})
//	    r := runner.New(runner.WithStore(store, memstore.CreateTables("users", "posts"), seed))
//	    testutil.Run(t, r, units, runner.Config{WorkerCount: 4})
//	}
//
// # Components with captured state
//
// A TestComponent extends component.Component with Reset, Snapshot and
// Restore. RestoreBackend turns such a component into a snapshot backend:
// the baseline is its state after seeding and every released view restores
// it. Because all views share the one component, they are exclusive.
//
//	cache := newFakeCache()
//	store := snapshot.NewStore(testutil.NewRestoreBackend(cache), snapshot.StoreConfig{})
//	r := runner.New(
//	    runner.WithComponents(cache),
//	    runner.WithStore(store, nil, testutil.Seed(func(ctx context.Context, c *fakeCache) error {
//	        return c.Set("greeting", "hello")
//	    })),
//	)
//
// THelper offers the same Reset, Snapshot and Restore operations to plain
// tests, with cleanup registered on testing.T.
package testutil
