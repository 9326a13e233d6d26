package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Run-level errors. These abort the run before any unit executes.
const (
	// ErrCodeMigrationFailed indicates the baseline schema could not be applied.
	ErrCodeMigrationFailed ErrorCode = "MIGRATION_FAILED"
	// ErrCodeSeedFailed indicates the baseline data could not be seeded.
	ErrCodeSeedFailed ErrorCode = "SEED_FAILED"
)

// Unit-level errors. These are contained to a single unit outcome.
const (
	// ErrCodeSetupFailed indicates a setup hook did not establish its preconditions.
	ErrCodeSetupFailed ErrorCode = "SETUP_FAILED"
	// ErrCodeAssertionFailed indicates a deliberate check in a test body failed.
	ErrCodeAssertionFailed ErrorCode = "ASSERTION_FAILED"
	// ErrCodeUnhandled indicates an unanticipated failure (error or panic) in a body.
	ErrCodeUnhandled ErrorCode = "UNHANDLED_FAILURE"
	// ErrCodeTeardownFailed indicates a teardown hook failed.
	ErrCodeTeardownFailed ErrorCode = "TEARDOWN_FAILED"
)

// Mock verification errors.
const (
	// ErrCodeUnexpectedCall indicates a strict mock received a call nobody declared.
	ErrCodeUnexpectedCall ErrorCode = "UNEXPECTED_CALL"
	// ErrCodeMissingCalls indicates an expectation's call-count constraint was not met.
	ErrCodeMissingCalls ErrorCode = "MISSING_CALLS"
)

// Storage errors.
const (
	// ErrCodeViewAcquire indicates a working view could not be acquired.
	ErrCodeViewAcquire ErrorCode = "VIEW_ACQUIRE_FAILED"
	// ErrCodeViewRelease indicates a working view could not be reverted cleanly.
	ErrCodeViewRelease ErrorCode = "VIEW_RELEASE_FAILED"
	// ErrCodeViewReleased indicates an operation on a view that was already released.
	ErrCodeViewReleased ErrorCode = "VIEW_RELEASED"
	// ErrCodeReadOnly indicates an attempted write through the frozen baseline.
	ErrCodeReadOnly ErrorCode = "BASELINE_READ_ONLY"
)

// General errors.
const (
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeAlreadyExists indicates the resource already exists.
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeCanceled indicates the run was canceled.
	ErrCodeCanceled ErrorCode = "CANCELED"
	// ErrCodeInternal indicates an engine defect.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var fatalCodes = map[ErrorCode]bool{
	ErrCodeMigrationFailed: true,
	ErrCodeSeedFailed:      true,
}

// IsFatalCode returns true if the error code aborts the whole run.
func IsFatalCode(code ErrorCode) bool {
	return fatalCodes[code]
}
