// Package runner schedules test units over a pool of workers.
//
// A run builds the baseline once, then each worker pulls the next unit,
// acquires a working view for stateful units, executes the unit through a
// lifecycle.Manager and records its Outcome. StopOnFailure halts dispatch
// after the first Failed or Errored outcome; units already running finish.
// Cancelling the run context also only halts dispatch.
//
//	r := runner.New(
//	    runner.WithStore(store, sqlstore.MigrateFS(migrations, "migrations"), seeder),
//	    runner.WithComponents(fakeMailer),
//	)
//	report := r.Run(ctx, units, runner.Config{WorkerCount: 4})
//	os.Exit(report.ExitCode())
package runner
