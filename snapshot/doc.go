// Package snapshot produces isolated, disposable working views of a shared
// baseline dataset.
//
// A Backend decides how isolation is achieved. The memstore backend keeps
// copy-on-write tables in memory; the sqlstore backend opens one rolled-back
// transaction per view. Both satisfy the same contract:
//
//   - the baseline is migrated and seeded exactly once and never changes;
//   - every mutation made through a view is invisible to other views and
//     disappears when the view is released;
//   - releasing a view twice is harmless.
//
// Store wraps a Backend with run bookkeeping: it builds the baseline once,
// bounds the number of live views and makes Release idempotent.
package snapshot
