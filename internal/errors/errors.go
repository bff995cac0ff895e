// Package errors provides centralized error definitions and error handling utilities
// for the baton codebase. It defines domain-specific errors, semantic error types,
// error constructors with context wrapping, and error classification helpers.
//
// # Error Types
//
// The package provides two categories of errors:
//
// Domain-specific errors represent errors from specific subsystems:
//   - SessionError: errors related to session persistence and lifecycle
//   - StructureError: errors related to outline structure artifacts
//   - DaemonError: errors related to the warm daemon and its socket protocol
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - ValidationError: invalid input or state
//   - TimeoutError: operation timed out
//   - MismatchError: reported agent does not match the expected agent
//   - PersistError: session state could not be written after retries
//
// # Usage
//
// Creating errors:
//
//	// Domain-specific error
//	err := errors.NewSessionError("failed to load session", errors.ErrSessionNotFound)
//
//	// Semantic error
//	err := errors.NewNotFoundError("session", "a1b2c3")
//
//	// With context wrapping
//	err := errors.NewMismatchError("a1b2c3", "web-researcher", "source-curator")
//
// Checking errors:
//
//	// Check for specific sentinel errors
//	if errors.Is(err, errors.ErrSessionExpired) { ... }
//
//	// Check for error types
//	var mismatch *errors.MismatchError
//	if errors.As(err, &mismatch) { ... }
//
//	// Use classification helpers
//	if errors.IsRetryable(err) { ... }
//	kind := errors.KindOf(err)
//
// # Error Kinds
//
// Every error maps to a stable Kind string used in daemon responses and CLI
// JSON output, so callers can branch on category without parsing messages.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Kind is the stable category tag carried on the wire and in CLI error output.
type Kind string

// Error kinds, one per failure category surfaced to callers.
const (
	KindNotFound           Kind = "not_found"
	KindCorrupted          Kind = "corrupted"
	KindExpired            Kind = "expired"
	KindMismatch           Kind = "mismatch"
	KindPersistFailure     Kind = "persist_failure"
	KindStructureNotReady  Kind = "structure_not_ready"
	KindStructureNotLocked Kind = "structure_not_locked"
	KindValidation         Kind = "validation"
	KindTimeout            Kind = "timeout"
	KindDaemonUnavailable  Kind = "daemon_unavailable"
	KindInternal           Kind = "internal"
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Session-related sentinel errors
var (
	// ErrSessionNotFound indicates that a session could not be found.
	ErrSessionNotFound = New("session not found")
	// ErrSessionCorrupted indicates that persisted session data is unreadable
	// or fails validation.
	ErrSessionCorrupted = New("session data corrupted")
	// ErrSessionExpired indicates that a session's last activity is older than
	// the configured TTL.
	ErrSessionExpired = New("session expired")
	// ErrSessionTerminal indicates that a session has already completed or failed.
	ErrSessionTerminal = New("session is in a terminal state")
	// ErrAgentMismatch indicates that a reported agent key does not match the
	// agent the session expects next.
	ErrAgentMismatch = New("agent key mismatch")
	// ErrPersistFailure indicates that session state could not be written to
	// disk after exhausting retries.
	ErrPersistFailure = New("session persist failed")
)

// Structure-related sentinel errors
var (
	// ErrStructureNotReady indicates that no structure artifact exists yet.
	ErrStructureNotReady = New("structure not ready")
	// ErrStructureNotLocked indicates that a structure artifact exists but has
	// not been locked for expansion.
	ErrStructureNotLocked = New("structure not locked")
)

// Checkpoint-related sentinel errors
var (
	// ErrCheckpointNotFound indicates that a checkpoint could not be found.
	ErrCheckpointNotFound = New("checkpoint not found")
)

// Daemon-related sentinel errors
var (
	// ErrDaemonUnavailable indicates that the daemon is not reachable and
	// could not (or was not allowed to) be started.
	ErrDaemonUnavailable = New("daemon unavailable")
	// ErrDaemonNotRunning indicates that no daemon is listening on the socket.
	ErrDaemonNotRunning = New("daemon not running")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// BatonError is the base interface for all baton errors.
// It extends the standard error interface with additional methods for
// error handling and classification.
type BatonError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	// This is used by errors.Is() for error comparison.
	Is(target error) bool

	// Kind returns the stable category tag for this error.
	Kind() Kind

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	kind       Kind
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Kind returns the error's category tag.
func (e *baseError) Kind() Kind {
	if e.kind == "" {
		return KindInternal
	}
	return e.kind
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// SessionError represents errors related to session persistence and lifecycle.
//
// Example:
//
//	err := errors.NewSessionError("failed to load session", errors.ErrSessionNotFound)
//	err = err.WithSessionID("a1b2c3")
//	fmt.Println(err) // "session error [session=a1b2c3]: failed to load session: session not found"
type SessionError struct {
	baseError
	SessionID string
}

// NewSessionError creates a new SessionError.
func NewSessionError(message string, cause error) *SessionError {
	return &SessionError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithSessionID adds a session ID to the error context.
func (e *SessionError) WithSessionID(id string) *SessionError {
	e.SessionID = id
	return e
}

// WithSeverity sets the error severity.
func (e *SessionError) WithSeverity(s Severity) *SessionError {
	e.severity = s
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *SessionError) WithRetryable(r bool) *SessionError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *SessionError) Error() string {
	var parts []string
	if e.SessionID != "" {
		parts = append(parts, fmt.Sprintf("session=%s", e.SessionID))
	}

	prefix := "session error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("session error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *SessionError) Is(target error) bool {
	if _, ok := target.(*SessionError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// StructureError represents errors related to outline structure artifacts.
//
// Example:
//
//	err := errors.NewStructureError("cannot expand pipeline", errors.ErrStructureNotLocked)
//	err = err.WithSlug("quantum-error-correction")
type StructureError struct {
	baseError
	Slug string
}

// NewStructureError creates a new StructureError.
func NewStructureError(message string, cause error) *StructureError {
	return &StructureError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityWarning,
			retryable:  true, // the artifact may appear or lock later
			userFacing: true,
		},
	}
}

// WithSlug adds the structure slug to the error context.
func (e *StructureError) WithSlug(slug string) *StructureError {
	e.Slug = slug
	return e
}

// WithSeverity sets the error severity.
func (e *StructureError) WithSeverity(s Severity) *StructureError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *StructureError) Error() string {
	var parts []string
	if e.Slug != "" {
		parts = append(parts, fmt.Sprintf("slug=%s", e.Slug))
	}

	prefix := "structure error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("structure error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *StructureError) Is(target error) bool {
	if _, ok := target.(*StructureError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// DaemonError represents errors related to the warm daemon and its socket
// protocol.
//
// Example:
//
//	err := errors.NewDaemonError("call failed", errors.ErrDaemonUnavailable)
//	err = err.WithSocket("/tmp/baton.sock").WithMethod("next")
type DaemonError struct {
	baseError
	Socket string
	Method string
}

// NewDaemonError creates a new DaemonError.
func NewDaemonError(message string, cause error) *DaemonError {
	return &DaemonError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithSocket adds the socket path to the error context.
func (e *DaemonError) WithSocket(path string) *DaemonError {
	e.Socket = path
	return e
}

// WithMethod adds the protocol method name to the error context.
func (e *DaemonError) WithMethod(method string) *DaemonError {
	e.Method = method
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *DaemonError) WithRetryable(r bool) *DaemonError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *DaemonError) Error() string {
	var parts []string
	if e.Socket != "" {
		parts = append(parts, fmt.Sprintf("socket=%s", e.Socket))
	}
	if e.Method != "" {
		parts = append(parts, fmt.Sprintf("method=%s", e.Method))
	}

	prefix := "daemon error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("daemon error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *DaemonError) Is(target error) bool {
	if _, ok := target.(*DaemonError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("session", "a1b2c3")
//	fmt.Println(err) // "session 'a1b2c3' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			kind:       KindNotFound,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("section title cannot be empty")
//	err = err.WithField("sections[2].title").WithValue("")
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			kind:       KindValidation,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// TimeoutError represents an operation that timed out.
//
// Example:
//
//	err := errors.NewTimeoutError("waiting for daemon socket", 10*time.Second)
//	fmt.Println(err) // "timeout error: waiting for daemon socket (timeout: 10s)"
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:    operation,
			kind:       KindTimeout,
			severity:   SeverityWarning,
			retryable:  true, // Timeouts are generally retryable
			userFacing: true,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// WithRetryable sets whether the error is retryable (default true for timeouts).
func (e *TimeoutError) WithRetryable(r bool) *TimeoutError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if errors.Is(target, ErrTimeout) {
		return true
	}
	return e.baseError.Is(target)
}

// MismatchError reports that the agent key a caller completed or failed does
// not match the agent the session expects next. The session is not modified
// when this error is returned.
//
// Example:
//
//	err := errors.NewMismatchError("a1b2c3", "web-researcher", "source-curator")
//	fmt.Println(err) // "agent mismatch [session=a1b2c3]: expected 'web-researcher', received 'source-curator'"
type MismatchError struct {
	baseError
	SessionID string
	Expected  string
	Received  string
}

// NewMismatchError creates a new MismatchError.
func NewMismatchError(sessionID, expected, received string) *MismatchError {
	return &MismatchError{
		baseError: baseError{
			message:    "agent key mismatch",
			cause:      ErrAgentMismatch,
			kind:       KindMismatch,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		SessionID: sessionID,
		Expected:  expected,
		Received:  received,
	}
}

// Error returns the formatted error message.
func (e *MismatchError) Error() string {
	prefix := "agent mismatch"
	if e.SessionID != "" {
		prefix = fmt.Sprintf("agent mismatch [session=%s]", e.SessionID)
	}
	return fmt.Sprintf("%s: expected '%s', received '%s'", prefix, e.Expected, e.Received)
}

// Is checks if this error matches the target.
func (e *MismatchError) Is(target error) bool {
	if _, ok := target.(*MismatchError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// PersistError reports that session state could not be written to disk after
// exhausting retries. It carries the serialized in-memory state so callers can
// surface it or attempt recovery out of band.
//
// Example:
//
//	err := errors.NewPersistError("a1b2c3", 3, data, cause)
type PersistError struct {
	baseError
	SessionID string
	Attempts  int
	// State is the JSON-serialized session that failed to persist.
	State []byte
}

// NewPersistError creates a new PersistError.
func NewPersistError(sessionID string, attempts int, state []byte, cause error) *PersistError {
	return &PersistError{
		baseError: baseError{
			message:    fmt.Sprintf("failed to persist session after %d attempts", attempts),
			cause:      cause,
			kind:       KindPersistFailure,
			severity:   SeverityCritical,
			retryable:  true, // the underlying write may succeed later
			userFacing: true,
		},
		SessionID: sessionID,
		Attempts:  attempts,
		State:     state,
	}
}

// Error returns the formatted error message.
func (e *PersistError) Error() string {
	prefix := "persist failure"
	if e.SessionID != "" {
		prefix = fmt.Sprintf("persist failure [session=%s]", e.SessionID)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *PersistError) Is(target error) bool {
	if _, ok := target.(*PersistError); ok {
		return true
	}
	if errors.Is(target, ErrPersistFailure) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// KindOf maps any error to its stable category tag. Errors that carry no
// recognized category map to KindInternal.
//
// Example:
//
//	resp.Error = protocol.NewError(errors.KindOf(err), err.Error())
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}

	var mismatch *MismatchError
	var persist *PersistError
	var timeout *TimeoutError
	var validation *ValidationError
	var notFound *NotFoundError

	switch {
	case As(err, &mismatch) || Is(err, ErrAgentMismatch):
		return KindMismatch
	case As(err, &persist) || Is(err, ErrPersistFailure):
		return KindPersistFailure
	case As(err, &timeout) || Is(err, ErrTimeout):
		return KindTimeout
	case As(err, &notFound) || Is(err, ErrSessionNotFound) || Is(err, ErrCheckpointNotFound):
		return KindNotFound
	case Is(err, ErrSessionCorrupted):
		return KindCorrupted
	case Is(err, ErrSessionExpired):
		return KindExpired
	case Is(err, ErrStructureNotReady):
		return KindStructureNotReady
	case Is(err, ErrStructureNotLocked):
		return KindStructureNotLocked
	case As(err, &validation) || Is(err, ErrInvalidInput) || Is(err, ErrSessionTerminal):
		return KindValidation
	case Is(err, ErrDaemonUnavailable) || Is(err, ErrDaemonNotRunning):
		return KindDaemonUnavailable
	}

	var batonErr BatonError
	if As(err, &batonErr) {
		if k := batonErr.Kind(); k != "" {
			return k
		}
	}
	return KindInternal
}

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry. This checks for:
//   - Errors implementing BatonError with IsRetryable() returning true
//   - TimeoutError instances
//   - Errors wrapping ErrTimeout
//
// Example:
//
//	if errors.IsRetryable(err) {
//	    time.Sleep(backoff)
//	    return retry(operation)
//	}
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Check if error implements BatonError
	var batonErr BatonError
	if As(err, &batonErr) {
		return batonErr.IsRetryable()
	}

	// Check for known retryable sentinel errors
	if Is(err, ErrTimeout) {
		return true
	}

	return false
}

// IsUserFacing returns true if the error message is safe to display to end users.
//
// Example:
//
//	if errors.IsUserFacing(err) {
//	    printError(err.Error())
//	} else {
//	    printError("internal error")
//	    log.Error("internal error", "error", err)
//	}
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	// Check if error implements BatonError
	var batonErr BatonError
	if As(err, &batonErr) {
		return batonErr.IsUserFacing()
	}

	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement BatonError.
//
// Example:
//
//	switch errors.GetSeverity(err) {
//	case errors.SeverityCritical:
//	    log.Error("critical failure", "error", err)
//	case errors.SeverityWarning:
//	    log.Warn("warning", "error", err)
//	}
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	// Check if error implements BatonError
	var batonErr BatonError
	if As(err, &batonErr) {
		return batonErr.Severity()
	}

	// Default to Error severity for unknown errors
	return SeverityError
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to expand pipeline")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
//
// Example:
//
//	err := errors.Wrapf(baseErr, "failed to load session %s", sessionID)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
