package domain

import (
	"errors"
	"fmt"
)

// Category sentinels. Specific sentinels below wrap one of these so callers
// can match either the precise condition or its broad category.
var (
	ErrNotFound     = fmt.Errorf("not found")
	ErrDuplicate    = fmt.Errorf("duplicate")
	ErrLimitReached = fmt.Errorf("limit reached")
	ErrInvalidInput = fmt.Errorf("invalid input")
)

// Sentinel errors for the registry and orchestrator.
var (
	ErrCapacityExceeded  = fmt.Errorf("registry capacity reached: %w", ErrLimitReached)
	ErrAlreadyRegistered = fmt.Errorf("agent already registered: %w", ErrDuplicate)
	ErrAgentNotFound     = fmt.Errorf("agent %w", ErrNotFound)
	ErrInvalidTask       = fmt.Errorf("invalid task: %w", ErrInvalidInput)

	// ErrNoActiveTask is reported when completing a task for an agent that has
	// none. It wraps ErrInvalidTask so callers matching the broader kind keep working.
	ErrNoActiveTask = fmt.Errorf("no active task: %w", ErrInvalidTask)

	ErrInvalidProfile = fmt.Errorf("invalid agent profile: %w", ErrInvalidInput)
	ErrConfigLoad     = fmt.Errorf("failed to load configuration")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op        string // operation name (e.g., "Registry.Register")
	Err       error  // underlying sentinel or wrapped error
	Detail    string // human-readable detail
	SubSystem string // "registry", "orchestrator", ...; informational only
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// NewSubSystemError creates a DomainError tagged with the subsystem that raised it.
func NewSubSystemError(subsystem, op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail, SubSystem: subsystem}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ErrorCode is a machine-parseable error category for callers that
// pattern-match on outcomes rather than messages.
type ErrorCode string

const (
	CodeUnknown           ErrorCode = "UNKNOWN"
	CodeCapacityExceeded  ErrorCode = "CAPACITY_EXCEEDED"
	CodeAlreadyRegistered ErrorCode = "AGENT_ALREADY_REGISTERED"
	CodeAgentNotFound     ErrorCode = "AGENT_NOT_FOUND"
	CodeInvalidTask       ErrorCode = "INVALID_TASK"
	CodeNoActiveTask      ErrorCode = "NO_ACTIVE_TASK"
	CodeInvalidProfile    ErrorCode = "INVALID_PROFILE"
	CodeConfigLoad        ErrorCode = "CONFIG_LOAD"

	// Category codes, used when nothing more specific matches.
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeDuplicate    ErrorCode = "DUPLICATE"
	CodeLimitReached ErrorCode = "LIMIT_REACHED"
	CodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// errorCodes lists sentinels from most to least specific. ErrNoActiveTask
// must precede ErrInvalidTask because it wraps it.
var errorCodes = []struct {
	err  error
	code ErrorCode
}{
	{ErrNoActiveTask, CodeNoActiveTask},
	{ErrInvalidTask, CodeInvalidTask},
	{ErrInvalidProfile, CodeInvalidProfile},
	{ErrCapacityExceeded, CodeCapacityExceeded},
	{ErrAlreadyRegistered, CodeAlreadyRegistered},
	{ErrAgentNotFound, CodeAgentNotFound},
	{ErrConfigLoad, CodeConfigLoad},
	{ErrNotFound, CodeNotFound},
	{ErrDuplicate, CodeDuplicate},
	{ErrLimitReached, CodeLimitReached},
	{ErrInvalidInput, CodeInvalidInput},
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It walks the error chain with errors.Is, so DomainError and fmt.Errorf
// wrapping are both resolved. Returns CodeUnknown if no sentinel matches.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
func (e *DomainError) Code() ErrorCode {
	return ErrorCodeOf(e.Err)
}
