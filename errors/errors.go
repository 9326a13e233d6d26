package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// AppError is the unified testkit error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Fatal indicates the error aborts the run rather than a single unit.
	Fatal bool `json:"fatal"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic fatal detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Fatal:   IsFatalCode(code),
	}
}

// --- Run-level constructors ---

// MigrationFailed creates a fatal error for a failed schema migration.
func MigrationFailed(cause error) *AppError {
	return &AppError{
		Code: ErrCodeMigrationFailed, Message: "Baseline migration failed; no unit can run on an undefined schema.",
		Fatal: true, Cause: cause,
	}
}

// SeedFailed creates a fatal error for a failed baseline seed.
func SeedFailed(cause error) *AppError {
	return &AppError{
		Code: ErrCodeSeedFailed, Message: "Baseline seed failed.",
		Fatal: true, Cause: cause,
	}
}

// --- Unit-level constructors ---

// SetupFailed creates an error for a setup hook that failed.
func SetupFailed(unit string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeSetupFailed, Message: fmt.Sprintf("Setup of %s failed; body not executed.", unit),
		Details: map[string]any{"unit": unit}, Cause: cause,
	}
}

// AssertionFailed creates an error for a failed deliberate check.
// Hooks may return it directly to mark a unit Failed instead of Errored.
func AssertionFailed(reason string) *AppError {
	return &AppError{Code: ErrCodeAssertionFailed, Message: reason}
}

// AssertionFailedf is AssertionFailed with formatting.
func AssertionFailedf(format string, args ...any) *AppError {
	return AssertionFailed(fmt.Sprintf(format, args...))
}

// Unhandled creates an error for an unanticipated failure.
func Unhandled(cause error) *AppError {
	return &AppError{
		Code: ErrCodeUnhandled, Message: "Unhandled failure.", Cause: cause,
	}
}

// Panicked creates an unhandled error from a recovered panic value.
func Panicked(value any) *AppError {
	if err, ok := value.(error); ok {
		return (&AppError{Code: ErrCodeUnhandled, Message: "Panic."}).WithCause(err)
	}
	return &AppError{Code: ErrCodeUnhandled, Message: fmt.Sprintf("Panic: %v", value)}
}

// TeardownFailed creates an error for a failed teardown hook.
func TeardownFailed(unit string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeTeardownFailed, Message: fmt.Sprintf("Teardown of %s failed.", unit),
		Details: map[string]any{"unit": unit}, Cause: cause,
	}
}

// --- Mock constructors ---

// UnexpectedCall creates an error for a call a strict mock did not anticipate.
func UnexpectedCall(capability, method string, args []any) *AppError {
	return &AppError{
		Code:    ErrCodeUnexpectedCall,
		Message: fmt.Sprintf("Unexpected call %s.%s(%s).", capability, method, FormatArgs(args)),
		Details: map[string]any{"capability": capability, "method": method, "args": args},
	}
}

// MissingCalls creates an error for an expectation whose count constraint was not met.
func MissingCalls(capability, method, constraint string, got int) *AppError {
	return &AppError{
		Code:    ErrCodeMissingCalls,
		Message: fmt.Sprintf("%s.%s: expected %s, got %d.", capability, method, constraint, got),
		Details: map[string]any{"capability": capability, "method": method, "constraint": constraint, "got": got},
	}
}

// --- Storage constructors ---

// ViewAcquire creates an error for a view that could not be acquired.
func ViewAcquire(cause error) *AppError {
	return &AppError{Code: ErrCodeViewAcquire, Message: "Working view could not be acquired.", Cause: cause}
}

// ViewRelease creates an error for a view whose mutations could not be reverted.
func ViewRelease(viewID string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeViewRelease, Message: fmt.Sprintf("Working view %s could not be reverted.", viewID),
		Details: map[string]any{"view_id": viewID}, Cause: cause,
	}
}

// ViewReleased creates an error for use of a view after release.
func ViewReleased(viewID string) *AppError {
	return &AppError{
		Code: ErrCodeViewReleased, Message: fmt.Sprintf("Working view %s was already released.", viewID),
		Details: map[string]any{"view_id": viewID},
	}
}

// ReadOnly creates an error for an attempted write through the baseline.
func ReadOnly(operation string) *AppError {
	return &AppError{
		Code: ErrCodeReadOnly, Message: fmt.Sprintf("Baseline is read-only; %s must go through a working view.", operation),
		Details: map[string]any{"operation": operation},
	}
}

// --- General constructors ---

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		Details: details,
	}
}

// AlreadyExists creates a new AppError for a resource that already exists.
func AlreadyExists(resource string) *AppError {
	return &AppError{
		Code: ErrCodeAlreadyExists, Message: fmt.Sprintf("A %s with these details already exists.", resource),
		Details: map[string]any{"resource": resource},
	}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidInput, Message: message}
}

// Canceled creates a new AppError for a canceled run.
func Canceled(cause error) *AppError {
	return &AppError{Code: ErrCodeCanceled, Message: "Run canceled.", Cause: cause}
}

// Internal creates a new AppError for an engine defect.
func Internal(cause error) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: "An internal engine error occurred.", Cause: cause}
}

// --- Inspection helpers ---

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the outermost AppError in err's chain,
// or the empty code if there is none.
func CodeOf(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ""
}

// Is reports whether any AppError in err's chain carries code.
func Is(err error, code ErrorCode) bool {
	for err != nil {
		if appErr, ok := err.(*AppError); ok && appErr.Code == code {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// IsFatal reports whether err aborts the run.
func IsFatal(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Fatal
}

// FormatArgs renders call arguments for messages.
func FormatArgs(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprintf("%#v", a)
	}
	return strings.Join(parts, ", ")
}
