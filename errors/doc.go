// Package errors provides the classified error type used across testkit.
//
// Every failure the engine observes is carried as an *AppError with a
// machine-readable ErrorCode. The code decides how a failure is classified:
// fatal run-level errors (migration and seed) abort the run, assertion
// failures mark a unit Failed, and everything else marks it Errored.
//
//	err := errors.SetupFailed("create_post", cause)
//	if errors.Is(err, errors.ErrCodeSetupFailed) { ... }
package errors
