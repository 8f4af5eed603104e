package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCode represents an auto-docx error code.
type ErrorCode string

const (
	ErrInvalidRequest        ErrorCode = "INVALID_REQUEST"         // exit 2
	ErrSourceNotFound        ErrorCode = "SOURCE_NOT_FOUND"        // exit 3
	ErrUnsupportedSourceType ErrorCode = "UNSUPPORTED_SOURCE_TYPE" // exit 4
	ErrInvalidNotebook       ErrorCode = "INVALID_NOTEBOOK"        // exit 4
	ErrEnvNotFound           ErrorCode = "ENV_NOT_FOUND"           // exit 5
	ErrInterpreterNotFound   ErrorCode = "INTERPRETER_NOT_FOUND"   // exit 5
	ErrExecutionTimeout      ErrorCode = "EXECUTION_TIMEOUT"       // recoverable
	ErrExecutionError        ErrorCode = "EXECUTION_ERROR"         // recoverable
	ErrWriteError            ErrorCode = "WRITE_ERROR"             // exit 6
	ErrConfigError           ErrorCode = "CONFIG_ERROR"            // recoverable, warns
	ErrCancelled             ErrorCode = "CANCELLED"               // exit 130
	ErrInternal              ErrorCode = "INTERNAL"                // exit 1
)

// DocxError represents a structured error with code, exit code, and details.
type DocxError struct {
	Code     ErrorCode
	ExitCode int
	Message  string
	Details  map[string]any
	Err      error // underlying cause, printed with --verbose
}

// Error implements the error interface.
func (e *DocxError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *DocxError) Unwrap() error {
	return e.Err
}

// NewInvalidRequest creates an argument error.
func NewInvalidRequest(msg string) *DocxError {
	return &DocxError{
		Code:     ErrInvalidRequest,
		ExitCode: 2,
		Message:  msg,
	}
}

// NewSourceNotFound creates an error for a missing script or notebook.
func NewSourceNotFound(path string) *DocxError {
	return &DocxError{
		Code:     ErrSourceNotFound,
		ExitCode: 3,
		Message:  fmt.Sprintf("file not found: %s", path),
		Details:  map[string]any{"path": path},
	}
}

// NewUnsupportedSourceType creates an error for a file that is neither .py nor .ipynb.
func NewUnsupportedSourceType(path, ext string) *DocxError {
	return &DocxError{
		Code:     ErrUnsupportedSourceType,
		ExitCode: 4,
		Message:  fmt.Sprintf("file must be a Python script (.py) or notebook (.ipynb): %s", path),
		Details:  map[string]any{"path": path, "extension": ext},
	}
}

// NewInvalidNotebook creates an error for a notebook that cannot be parsed.
func NewInvalidNotebook(path string, err error) *DocxError {
	msg := fmt.Sprintf("failed to parse notebook: %s", path)
	if err != nil {
		msg = fmt.Sprintf("failed to parse notebook %s: %v", path, err)
	}
	return &DocxError{
		Code:     ErrInvalidNotebook,
		ExitCode: 4,
		Message:  msg,
		Details:  map[string]any{"path": path},
		Err:      err,
	}
}

// NewEnvNotFound creates an error for an --env identifier that matches nothing.
func NewEnvNotFound(identifier string) *DocxError {
	return &DocxError{
		Code:     ErrEnvNotFound,
		ExitCode: 5,
		Message:  fmt.Sprintf("environment not found: %s", identifier),
		Details:  map[string]any{"identifier": identifier},
	}
}

// NewInterpreterNotFound creates an error when no Python interpreter can be started.
func NewInterpreterNotFound(python string, err error) *DocxError {
	msg := "no Python interpreter found on PATH (use --python or --env)"
	if python != "" {
		msg = fmt.Sprintf("cannot start Python interpreter: %s", python)
	}
	return &DocxError{
		Code:     ErrInterpreterNotFound,
		ExitCode: 5,
		Message:  msg,
		Details:  map[string]any{"python": python},
		Err:      err,
	}
}

// NewExecutionTimeout creates the failure recorded when a run exceeds its deadline.
func NewExecutionTimeout(timeout time.Duration) *DocxError {
	return &DocxError{
		Code:     ErrExecutionTimeout,
		ExitCode: 0,
		Message:  fmt.Sprintf("execution timed out after %ds", int(timeout.Seconds())),
		Details:  map[string]any{"timeout_seconds": int(timeout.Seconds())},
	}
}

// NewExecutionError creates the failure recorded for a non-zero exit.
func NewExecutionError(exitCode int) *DocxError {
	return &DocxError{
		Code:     ErrExecutionError,
		ExitCode: 0,
		Message:  fmt.Sprintf("process exited with status %d", exitCode),
		Details:  map[string]any{"exit_code": exitCode},
	}
}

// NewWriteError creates an error for an output document that cannot be written.
func NewWriteError(path string, err error) *DocxError {
	msg := fmt.Sprintf("cannot write document: %s", path)
	if err != nil {
		msg = fmt.Sprintf("cannot write document %s: %v", path, err)
	}
	return &DocxError{
		Code:     ErrWriteError,
		ExitCode: 6,
		Message:  msg,
		Details:  map[string]any{"path": path},
		Err:      err,
	}
}

// NewConfigError creates a warning-level error for an unreadable preference file.
func NewConfigError(path string, err error) *DocxError {
	msg := fmt.Sprintf("invalid preference file: %s", path)
	if err != nil {
		msg = fmt.Sprintf("invalid preference file %s: %v", path, err)
	}
	return &DocxError{
		Code:     ErrConfigError,
		ExitCode: 0,
		Message:  msg,
		Details:  map[string]any{"path": path},
		Err:      err,
	}
}

// NewCancelled creates an error for an interrupted operation.
func NewCancelled(operation string) *DocxError {
	return &DocxError{
		Code:     ErrCancelled,
		ExitCode: 130,
		Message:  fmt.Sprintf("%s cancelled", operation),
		Details:  map[string]any{"operation": operation},
	}
}

// NewInternal creates an error for unexpected internal failures.
func NewInternal(err error) *DocxError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &DocxError{
		Code:     ErrInternal,
		ExitCode: 1,
		Message:  msg,
		Err:      err,
	}
}

// Is checks if err wraps a DocxError with the given code.
func Is(err error, code ErrorCode) bool {
	var dErr *DocxError
	if stderrors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// ExitCode returns the process exit code for err.
// Errors that are not DocxErrors exit with 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var dErr *DocxError
	if stderrors.As(err, &dErr) {
		return dErr.ExitCode
	}
	return 1
}

// Format renders err for the console as "[CODE] message".
// Errors that are not DocxErrors are rendered with Error().
func Format(err error) string {
	var dErr *DocxError
	if stderrors.As(err, &dErr) {
		return fmt.Sprintf("[%s] %s", dErr.Code, dErr.Message)
	}
	return err.Error()
}
