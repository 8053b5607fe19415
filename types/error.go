package types

import "fmt"

// ErrorCode represents a unified error code across the engine.
type ErrorCode string

// Execution error codes. These appear in SkillResult.ErrorCode so callers
// can distinguish failure modes without parsing messages.
const (
	ErrTimeout             ErrorCode = "TIMEOUT"
	ErrExecutionError      ErrorCode = "EXECUTION_ERROR"
	ErrSubSkillError       ErrorCode = "SUB_SKILL_ERROR"
	ErrParallelExecution   ErrorCode = "PARALLEL_EXECUTION_ERROR"
	ErrSequentialExecution ErrorCode = "SEQUENTIAL_EXECUTION_ERROR"
	ErrNoResults           ErrorCode = "NO_RESULTS"
	ErrCancelled           ErrorCode = "CANCELLED"
)

// Registration and selection error codes. These surface early, at
// register/select time, never as per-request failures.
const (
	ErrInvalidMetadata   ErrorCode = "INVALID_METADATA"
	ErrInvalidConfig     ErrorCode = "INVALID_CONFIG"
	ErrSkillNotFound     ErrorCode = "SKILL_NOT_FOUND"
	ErrDependencyMissing ErrorCode = "DEPENDENCY_MISSING"
	ErrDependencyHeld    ErrorCode = "DEPENDENCY_HELD"
	ErrUnknownStrategy   ErrorCode = "UNKNOWN_STRATEGY"
	ErrSkillCannotHandle ErrorCode = "SKILL_CANNOT_HANDLE"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	SkillName string    `json:"skill_name,omitempty"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithSkill sets the skill name the error originated from.
func (e *Error) WithSkill(name string) *Error {
	e.SkillName = name
	return e
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}

// IsErrorCode reports whether err carries the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}
