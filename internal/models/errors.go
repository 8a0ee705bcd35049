package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced by services
type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindNotFound       ErrorKind = "not_found"
	KindConflict       ErrorKind = "conflict"
	KindRemote         ErrorKind = "remote"
	KindPermission     ErrorKind = "permission"
	KindPartialFailure ErrorKind = "partial_failure"
)

// Error codes for conditions callers handle specifically
const (
	CodeValidation              = "VALIDATION_FAILED"
	CodeInvalidJoinCode         = "INVALID_JOIN_CODE"
	CodeAlreadyMember           = "ALREADY_MEMBER"
	CodeCodeGenerationExhausted = "CODE_GENERATION_EXHAUSTED"
	CodePermissionDenied        = "PERMISSION_DENIED"
	CodeInvalidCredentials      = "INVALID_CREDENTIALS"
	CodeUploadInProgress        = "UPLOAD_IN_PROGRESS"
	CodeEmailTaken              = "EMAIL_TAKEN"
	CodeOrphanedObject          = "ORPHANED_OBJECT"
	CodeNotFound                = "NOT_FOUND"
	CodeRemote                  = "REMOTE_FAILURE"
)

// Error is the error type returned across service boundaries
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err. Errors that are not *Error are remote failures.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindRemote
}

// CodeOf returns the code of err, or CodeRemote for foreign errors
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeRemote
}

// NewValidationError reports a missing or malformed input
func NewValidationError(format string, args ...any) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    CodeValidation,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewNotFoundError reports a missing resource
func NewNotFoundError(resource, id string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

func NewInvalidJoinCodeError(code string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Code:    CodeInvalidJoinCode,
		Message: fmt.Sprintf("invalid join code: %s", code),
	}
}

func NewAlreadyMemberError(groupID string) *Error {
	return &Error{
		Kind:    KindConflict,
		Code:    CodeAlreadyMember,
		Message: fmt.Sprintf("already a member of group %s", groupID),
	}
}

func NewCodeGenerationExhaustedError(attempts int) *Error {
	return &Error{
		Kind:    KindConflict,
		Code:    CodeCodeGenerationExhausted,
		Message: fmt.Sprintf("failed to generate unique join code after %d attempts", attempts),
	}
}

func NewEmailTakenError() *Error {
	return &Error{
		Kind:    KindConflict,
		Code:    CodeEmailTaken,
		Message: "email is already registered",
	}
}

func NewUploadInProgressError() *Error {
	return &Error{
		Kind:    KindConflict,
		Code:    CodeUploadInProgress,
		Message: "an upload is already in progress",
	}
}

func NewPermissionDeniedError(message string) *Error {
	return &Error{
		Kind:    KindPermission,
		Code:    CodePermissionDenied,
		Message: message,
	}
}

func NewInvalidCredentialsError() *Error {
	return &Error{
		Kind:    KindPermission,
		Code:    CodeInvalidCredentials,
		Message: "invalid email or password",
	}
}

// NewRemoteError wraps a collaborator failure. The collaborator's message is kept as is.
func NewRemoteError(err error) *Error {
	return &Error{
		Kind:    KindRemote,
		Code:    CodeRemote,
		Message: err.Error(),
		Err:     err,
	}
}

// NewOrphanedObjectError reports stored bytes that could not be cleaned up
// after their metadata insert failed.
func NewOrphanedObjectError(storageKey string, err error) *Error {
	return &Error{
		Kind:    KindPartialFailure,
		Code:    CodeOrphanedObject,
		Message: fmt.Sprintf("object %s left without metadata: %v", storageKey, err),
		Err:     err,
	}
}

// AsRemote passes *Error values through and wraps anything else as a remote error
func AsRemote(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return NewRemoteError(err)
}
