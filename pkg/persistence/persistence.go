// Package persistence provides the storage abstraction for submissions and their sub-ledgers.
package persistence

import (
	"context"
	"time"

	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/models"
)

type Persistence interface {
	Submissions() SubmissionRepository
	Checklists() ChecklistRepository
	Delays() DelayRepository
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

// SubmissionRepository stores submissions and their status history.
type SubmissionRepository interface {
	// Create inserts a new submission together with its first history row.
	Create(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id string) (*models.Submission, error)

	// CompareAndSwap applies transition only if the stored status still equals
	// expected, and records a history row in the same transaction. A moved status
	// yields a *StatusConflictError carrying the current status.
	CompareAndSwap(
		ctx context.Context,
		id string,
		expected models.SubmissionStatus,
		transition models.Transition,
	) (*models.Submission, error)

	// UpdateFields applies patch while the submission is in an editable status.
	UpdateFields(ctx context.Context, id string, patch models.SubmissionPatch, at time.Time) (*models.Submission, error)

	History(ctx context.Context, id string) ([]*models.StatusChange, error)
	List(ctx context.Context, filter SubmissionFilter) ([]*models.Submission, error)
	Count(ctx context.Context, filter SubmissionFilter) (int, error)

	// CountByStatus counts submissions submitted in [from, to) grouped by status.
	CountByStatus(ctx context.Context, from, to time.Time) (map[models.SubmissionStatus]int, error)
}

// ChecklistRepository stores checklist items.
type ChecklistRepository interface {
	// Initialize bulk inserts items and records cadastroType as the applied
	// template. It fails with ErrChecklistInitialized when any item of the
	// submission exists; concurrent calls have a single winner.
	Initialize(ctx context.Context, submissionID, cadastroType string, items []*models.ChecklistItem, at time.Time) error

	// Append adds an item after the last position of the submission's checklist.
	Append(ctx context.Context, item *models.ChecklistItem) error
	GetItem(ctx context.Context, id string) (*models.ChecklistItem, error)
	UpdateItem(ctx context.Context, item *models.ChecklistItem) error
	DeleteItem(ctx context.Context, id string) error
	Items(ctx context.Context, submissionID string) ([]*models.ChecklistItem, error)
}

// DelayRepository stores the append-only delay log.
type DelayRepository interface {
	Create(ctx context.Context, delay *models.Delay) error
	MarkNotified(ctx context.Context, id string) error
	ListBySubmission(ctx context.Context, submissionID string) ([]*models.Delay, error)
}

// SubmissionFilter narrows listing and count queries. Zero values mean no restriction.
type SubmissionFilter struct {
	Statuses     []models.SubmissionStatus
	Priority     models.Priority
	OperatorID   string
	AnalystID    string
	CadastroType string

	// Search matches name, document number or plate, case-insensitively.
	Search string

	// SubmittedFrom is inclusive, SubmittedTo exclusive.
	SubmittedFrom *time.Time
	SubmittedTo   *time.Time

	// ParticipantID keeps submissions the actor created or is reviewing.
	ParticipantID string

	Offset int
	Limit  int
}
