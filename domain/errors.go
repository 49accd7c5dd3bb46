package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInvalid      ErrorCode = "INVALID"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeInternal     ErrorCode = "INTERNAL"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain errors.
var (
	ErrUserNotFound         = NewError(ErrCodeNotFound, "user not found")
	ErrTaskNotFound         = NewError(ErrCodeNotFound, "task not found")
	ErrConversationNotFound = NewError(ErrCodeNotFound, "conversation not found")
	ErrUnauthorized         = NewError(ErrCodeUnauthorized, "unauthorized")
	ErrInvalidPayload       = NewError(ErrCodeInvalid, "invalid payload")
	ErrInvalidDeadline      = NewError(ErrCodeInvalid, "invalid deadline")
	ErrUnknownDepartment    = NewError(ErrCodeInvalid, "unknown department")
	ErrEmployeeUnavailable  = NewError(ErrCodeNotFound, "employee not found or inactive")

	// ErrAdminOnly is returned when an employee calls an administrator operation.
	ErrAdminOnly = NewError(ErrCodeForbidden, "admin only")
	// ErrAccessDisabled is returned for deactivated employees and unknown actors.
	ErrAccessDisabled = NewError(ErrCodeForbidden, "access disabled")
	// ErrNotTaskOwner is returned when an employee touches somebody else's task.
	ErrNotTaskOwner = NewError(ErrCodeForbidden, "task belongs to another employee")
	// ErrOwnerOnly is returned when the admin opens an owner-only step such as a comment or a file.
	ErrOwnerOnly = NewError(ErrCodeForbidden, "only the task owner may do this")
	// ErrRoleImmutable guards the admin row against employee upserts.
	ErrRoleImmutable = NewError(ErrCodeConflict, "role cannot be changed")
	// ErrStaleTask signals a compare-and-swap miss: the row no longer has the expected status.
	ErrStaleTask = NewError(ErrCodeConflict, "task status changed concurrently")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}
