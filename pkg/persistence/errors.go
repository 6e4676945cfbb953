// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"

	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/models"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrSubmissionNotFound indicates a submission was not found by the given identifier.
	ErrSubmissionNotFound = errors.New("submission not found")

	// ErrSubmissionAlreadyExists indicates a submission with the same identifier already exists.
	ErrSubmissionAlreadyExists = errors.New("submission already exists")

	// ErrStatusConflict indicates the stored status no longer matches the expected one.
	ErrStatusConflict = errors.New("submission status changed concurrently")

	// ErrChecklistItemNotFound indicates a checklist item was not found.
	ErrChecklistItemNotFound = errors.New("checklist item not found")

	// ErrChecklistInitialized indicates the submission's checklist was already created.
	ErrChecklistInitialized = errors.New("checklist already initialized")

	// ErrDelayNotFound indicates a delay record was not found.
	ErrDelayNotFound = errors.New("delay not found")
)

// SubmissionError wraps submission-related errors with additional context.
type SubmissionError struct {
	Op           string // Operation being performed (e.g., "GetByID", "CompareAndSwap")
	SubmissionID string
	Err          error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("%s operation failed for submission %s: %v", e.Op, e.SubmissionID, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for submission errors.
func (e *SubmissionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewSubmissionError creates a new submission error with context.
func NewSubmissionError(op, submissionID string, err error) *SubmissionError {
	return &SubmissionError{
		Op:           op,
		SubmissionID: submissionID,
		Err:          err,
	}
}

// StatusConflictError reports the status found when a compare-and-swap lost.
type StatusConflictError struct {
	SubmissionID string
	Expected     []models.SubmissionStatus
	Current      models.SubmissionStatus
}

func (e *StatusConflictError) Error() string {
	return fmt.Sprintf("submission %s is %s, expected one of %v", e.SubmissionID, e.Current, e.Expected)
}

func (e *StatusConflictError) Is(target error) bool {
	return target == ErrStatusConflict
}

// ChecklistError wraps checklist-related errors with additional context.
type ChecklistError struct {
	Op           string
	SubmissionID string
	ItemID       string
	Err          error
}

func (e *ChecklistError) Error() string {
	if e.ItemID != "" {
		return fmt.Sprintf("%s operation failed for checklist item %s: %v", e.Op, e.ItemID, e.Err)
	}

	return fmt.Sprintf("%s operation failed for checklist of submission %s: %v", e.Op, e.SubmissionID, e.Err)
}

func (e *ChecklistError) Unwrap() error {
	return e.Err
}

func (e *ChecklistError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsSubmissionNotFound checks if an error indicates a submission was not found.
func IsSubmissionNotFound(err error) bool {
	return errors.Is(err, ErrSubmissionNotFound)
}

// IsStatusConflict checks if an error indicates a lost compare-and-swap.
func IsStatusConflict(err error) bool {
	return errors.Is(err, ErrStatusConflict)
}

// IsChecklistItemNotFound checks if an error indicates a checklist item was not found.
func IsChecklistItemNotFound(err error) bool {
	return errors.Is(err, ErrChecklistItemNotFound)
}
