package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/catalog"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/eventbus"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/events"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/models"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/otelhelper"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CreateSubmissionInput carries the business fields of a new submission.
type CreateSubmissionInput struct {
	CadastroType   string
	Priority       models.Priority
	Name           string
	DocumentNumber string
	Plate          string
	DocumentIDs    []string
	Fields         map[string]any
}

// Workflow is the submission state machine. Every status change is a
// compare-and-swap on the status read just before it.
type Workflow struct {
	options

	persistence persistence.Persistence
	catalog     *catalog.Catalog
	publisher   eventbus.EventPublisher
}

// NewWorkflow creates a new workflow engine. A nil publisher disables events.
func NewWorkflow(
	persistence persistence.Persistence,
	catalog *catalog.Catalog,
	publisher eventbus.EventPublisher,
	opts ...Option,
) *Workflow {
	return &Workflow{
		options:     newOptions("workflow", opts),
		persistence: persistence,
		catalog:     catalog,
		publisher:   publisher,
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

func (w *Workflow) Create(ctx context.Context, actor models.Actor, input CreateSubmissionInput) (*models.Submission, error) {
	ctx, span := w.startSpan(ctx, actor, models.OperationCreate, "")
	defer span.End()

	submission, err := w.create(ctx, actor, input)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(attribute.String(otelhelper.SubmissionIDKey, submission.ID))

	w.publish(ctx, events.NewSubmissionCreated(submission, submission.CreatedAt))

	return submission, nil
}

func (w *Workflow) create(ctx context.Context, actor models.Actor, input CreateSubmissionInput) (*models.Submission, error) {
	err := w.authorizer.Authorize(ctx, actor, ActionCreate)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, NewValidationError("name", "is required", nil)
	}

	documentNumber := strings.TrimSpace(input.DocumentNumber)
	if documentNumber == "" {
		return nil, NewValidationError("document_number", "is required", nil)
	}

	priority := input.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}

	if !priority.IsValid() {
		return nil, NewValidationError("priority", fmt.Sprintf("unknown priority %q", priority), nil)
	}

	err = w.validateFields(input.CadastroType, input.Fields)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate submission ID: %w", err)
	}

	now := w.clock()
	submission := &models.Submission{
		ID:           id.String(),
		Status:       models.StatusPending,
		Priority:     priority,
		CadastroType: input.CadastroType,
		OperatorID:   actor.ID,
		SubmittedAt:  now,
		SubmissionDetails: models.SubmissionDetails{
			Name:           name,
			DocumentNumber: documentNumber,
			Plate:          strings.TrimSpace(input.Plate),
			DocumentIDs:    append([]string{}, input.DocumentIDs...),
			Fields:         input.Fields,
		},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = w.persistence.Submissions().Create(ctx, submission)
	if err != nil {
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}

	w.logger.InfoContext(ctx, "submission created",
		"submission_id", submission.ID, "operator_id", actor.ID, "cadastro_type", submission.CadastroType)

	return submission, nil
}

// StartReview moves a pending submission to in_review and records the analyst.
func (w *Workflow) StartReview(ctx context.Context, actor models.Actor, id string) (*models.Submission, error) {
	return w.transition(ctx, actor, id, models.OperationStartReview, nil)
}

// Approve concludes the submission. A non-empty note is appended to the review note.
func (w *Workflow) Approve(ctx context.Context, actor models.Actor, id, note string) (*models.Submission, error) {
	return w.transition(ctx, actor, id, models.OperationApprove, func(t *models.Transition) error {
		t.Note = strings.TrimSpace(note)

		return nil
	})
}

// Reject concludes the submission with a mandatory reason.
func (w *Workflow) Reject(ctx context.Context, actor models.Actor, id, reason, category string) (*models.Submission, error) {
	return w.transition(ctx, actor, id, models.OperationReject, withOutcome(reason, category))
}

// Return sends the submission back to the operator for correction.
func (w *Workflow) Return(ctx context.Context, actor models.Actor, id, reason, category string) (*models.Submission, error) {
	return w.transition(ctx, actor, id, models.OperationReturn, withOutcome(reason, category))
}

// Resubmit puts a returned submission back in the queue. Only its operator, or
// an actor holding the resubmit-any capability, may do so.
func (w *Workflow) Resubmit(ctx context.Context, actor models.Actor, id string) (*models.Submission, error) {
	return w.transition(ctx, actor, id, models.OperationResubmit, nil)
}

func withOutcome(reason, category string) func(*models.Transition) error {
	return func(t *models.Transition) error {
		t.Reason = strings.TrimSpace(reason)
		if t.Reason == "" {
			return NewValidationError("reason", "is required", nil)
		}

		t.Category = strings.TrimSpace(category)

		return nil
	}
}

func (w *Workflow) transition(
	ctx context.Context,
	actor models.Actor,
	id string,
	op models.Operation,
	prepare func(*models.Transition) error,
) (*models.Submission, error) {
	ctx, span := w.startSpan(ctx, actor, op, id)
	defer span.End()

	previous, updated, err := w.swap(ctx, actor, id, op, prepare)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(attribute.String(otelhelper.SubmissionStatusKey, string(updated.Status)))

	w.logger.InfoContext(ctx, "submission transitioned",
		"submission_id", id, "operation", op, "from", previous, "to", updated.Status, "actor_id", actor.ID)

	w.publish(ctx, events.NewTransitionEvent(op, previous, updated, updated.UpdatedAt))

	return updated, nil
}

func (w *Workflow) swap(
	ctx context.Context,
	actor models.Actor,
	id string,
	op models.Operation,
	prepare func(*models.Transition) error,
) (models.SubmissionStatus, *models.Submission, error) {
	err := w.authorizer.Authorize(ctx, actor, operationActions[op])
	if err != nil {
		return "", nil, err
	}

	current, err := w.persistence.Submissions().GetByID(ctx, id)
	if err != nil {
		return "", nil, submissionError(id, err)
	}

	if !models.TransitionRules[op].Allows(current.Status) {
		return "", nil, &TransitionError{SubmissionID: id, Operation: op, Current: current.Status}
	}

	if op == models.OperationResubmit && current.OperatorID != actor.ID && !actor.Can(models.CapabilityResubmitAny) {
		return "", nil, &AuthorizationError{
			ActorID:   actor.ID,
			Role:      actor.Role,
			Operation: string(ActionResubmit),
			Reason:    "only the submitting operator may resubmit",
		}
	}

	transition, _ := models.NewTransition(op, actor.ID, w.clock())

	if prepare != nil {
		err := prepare(&transition)
		if err != nil {
			return "", nil, err
		}
	}

	updated, err := w.persistence.Submissions().CompareAndSwap(ctx, id, current.Status, transition)
	if err != nil {
		var conflict *persistence.StatusConflictError
		if errors.As(err, &conflict) {
			return "", nil, &TransitionError{SubmissionID: id, Operation: op, Current: conflict.Current}
		}

		return "", nil, submissionError(id, err)
	}

	return current.Status, updated, nil
}

// UpdateFields changes business fields while the submission is still editable.
func (w *Workflow) UpdateFields(
	ctx context.Context,
	actor models.Actor,
	id string,
	patch models.SubmissionPatch,
) (*models.Submission, error) {
	ctx, span := w.startSpan(ctx, actor, models.OperationUpdate, id)
	defer span.End()

	updated, err := w.updateFields(ctx, actor, id, patch)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	w.logger.InfoContext(ctx, "submission fields updated", "submission_id", id, "actor_id", actor.ID)

	w.publish(ctx, &events.SubmissionUpdated{
		BaseEvent:      events.NewBaseEvent(events.SubmissionUpdatedEvent, updated, updated.UpdatedAt),
		PreviousStatus: updated.Status,
	})

	return updated, nil
}

func (w *Workflow) updateFields(
	ctx context.Context,
	actor models.Actor,
	id string,
	patch models.SubmissionPatch,
) (*models.Submission, error) {
	err := w.authorizer.Authorize(ctx, actor, ActionUpdate)
	if err != nil {
		return nil, err
	}

	current, err := w.persistence.Submissions().GetByID(ctx, id)
	if err != nil {
		return nil, submissionError(id, err)
	}

	if !current.Status.IsEditable() {
		return nil, &TransitionError{SubmissionID: id, Operation: models.OperationUpdate, Current: current.Status}
	}

	if patch.IsEmpty() {
		return nil, NewValidationError("", "no fields to update", nil)
	}

	if patch.Priority != nil && !patch.Priority.IsValid() {
		return nil, NewValidationError("priority", fmt.Sprintf("unknown priority %q", *patch.Priority), nil)
	}

	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, NewValidationError("name", "cannot be blank", nil)
	}

	if patch.DocumentNumber != nil && strings.TrimSpace(*patch.DocumentNumber) == "" {
		return nil, NewValidationError("document_number", "cannot be blank", nil)
	}

	if patch.Fields != nil {
		merged := current.Clone()
		patch.ApplyTo(merged)

		err = w.validateFields(current.CadastroType, merged.Fields)
		if err != nil {
			return nil, err
		}
	}

	updated, err := w.persistence.Submissions().UpdateFields(ctx, id, patch, w.clock())
	if err != nil {
		var conflict *persistence.StatusConflictError
		if errors.As(err, &conflict) {
			return nil, &TransitionError{SubmissionID: id, Operation: models.OperationUpdate, Current: conflict.Current}
		}

		return nil, submissionError(id, err)
	}

	return updated, nil
}

func (w *Workflow) Get(ctx context.Context, id string) (*models.Submission, error) {
	submission, err := w.persistence.Submissions().GetByID(ctx, id)
	if err != nil {
		return nil, submissionError(id, err)
	}

	return submission, nil
}

// History returns the committed status changes of a submission, oldest first.
func (w *Workflow) History(ctx context.Context, id string) ([]*models.StatusChange, error) {
	_, err := w.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	history, err := w.persistence.Submissions().History(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	return history, nil
}

func (w *Workflow) validateFields(cadastroType string, fields map[string]any) error {
	if w.catalog == nil {
		return nil
	}

	err := w.catalog.ValidateFields(cadastroType, fields)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, catalog.ErrUnknownType):
		return NewValidationError("cadastro_type", err.Error(), err)
	case errors.Is(err, catalog.ErrInvalidFields):
		return NewValidationError("fields", err.Error(), err)
	default:
		return err
	}
}

// publish hands event to the bus once the store has committed. Failures are
// logged and never undo the committed change.
func (w *Workflow) publish(ctx context.Context, event events.Event) bool {
	return publish(ctx, w.publisher, w.logger, event)
}

//nolint:spancheck // span is ended by the caller
func (w *Workflow) startSpan(ctx context.Context, actor models.Actor, op models.Operation, id string) (context.Context, trace.Span) {
	return otelhelper.StartSpan(ctx, w.tracer, "workflow."+string(op),
		attribute.String(otelhelper.OperationKey, string(op)),
		attribute.String(otelhelper.SubmissionIDKey, id),
		attribute.String(otelhelper.ActorIDKey, actor.ID),
		attribute.String(otelhelper.ActorRoleKey, string(actor.Role)),
	)
}
