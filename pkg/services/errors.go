// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"

	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/models"
)

// Sentinels matched with errors.Is by callers and the HTTP layer.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrTerminalState      = errors.New("submission is in a terminal state")
	ErrValidation         = errors.New("validation failed")
	ErrAlreadyInitialized = errors.New("checklist already initialized")
	ErrForbidden          = errors.New("forbidden")
)

// Kind is the stable identifier of an error class.
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindInvalidTransition  Kind = "invalid_transition"
	KindTerminalState      Kind = "terminal_state"
	KindValidation         Kind = "validation_error"
	KindAlreadyInitialized Kind = "already_initialized"
	KindForbidden          Kind = "forbidden"
	KindInternal           Kind = "internal_error"
)

// KindOf classifies err. Unknown errors are internal.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrTerminalState):
		return KindTerminalState
	case errors.Is(err, ErrInvalidTransition):
		return KindInvalidTransition
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrAlreadyInitialized):
		return KindAlreadyInitialized
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	default:
		return KindInternal
	}
}

// NotFoundError reports a missing submission, checklist item or delay.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// TransitionError reports an operation that is not allowed from the current status.
type TransitionError struct {
	SubmissionID string
	Operation    models.Operation
	Current      models.SubmissionStatus
}

func (e *TransitionError) Error() string {
	if e.Current.IsTerminal() {
		return fmt.Sprintf("cannot %s submission %s: status %s is terminal", e.Operation, e.SubmissionID, e.Current)
	}

	return fmt.Sprintf("cannot %s submission %s from status %s", e.Operation, e.SubmissionID, e.Current)
}

// Is matches ErrInvalidTransition always, and ErrTerminalState when the current status is terminal.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition || (target == ErrTerminalState && e.Current.IsTerminal())
}

// ValidationError reports bad input.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}

	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a new validation error with context.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: message, Err: err}
}

// AlreadyInitializedError reports a second checklist initialization.
type AlreadyInitializedError struct {
	SubmissionID string
}

func (e *AlreadyInitializedError) Error() string {
	return fmt.Sprintf("checklist of submission %s is already initialized", e.SubmissionID)
}

func (e *AlreadyInitializedError) Is(target error) bool {
	return target == ErrAlreadyInitialized
}

// AuthorizationError is returned by the default authorizer.
type AuthorizationError struct {
	ActorID   string
	Role      models.Role
	Operation string
	Reason    string
}

func (e *AuthorizationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("actor %s (%s) may not %s: %s", e.ActorID, e.Role, e.Operation, e.Reason)
	}

	return fmt.Sprintf("actor %s (%s) may not %s", e.ActorID, e.Role, e.Operation)
}

func (e *AuthorizationError) Is(target error) bool {
	return target == ErrForbidden
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsConflictError checks if an error should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrAlreadyInitialized)
}
