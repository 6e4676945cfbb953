package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/eventbus"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/events"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/models"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/otelhelper"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
)

// Delays is the append-only log of review delays. Entries never change
// submission status.
type Delays struct {
	options

	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
}

func NewDelays(persistence persistence.Persistence, publisher eventbus.EventPublisher, opts ...Option) *Delays {
	return &Delays{
		options:     newOptions("delays", opts),
		persistence: persistence,
		publisher:   publisher,
	}
}

// Add records a delay and notifies the submission owner. The entry is flagged
// as notified once the event reaches the bus.
func (d *Delays) Add(ctx context.Context, actor models.Actor, submissionID, reason string) (*models.Delay, error) {
	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "delays.add",
		attribute.String(otelhelper.SubmissionIDKey, submissionID),
		attribute.String(otelhelper.ActorIDKey, actor.ID),
	)
	defer span.End()

	err := d.authorizer.Authorize(ctx, actor, ActionAddDelay)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		err := NewValidationError("reason", "is required", nil)
		otelhelper.SetError(span, err)

		return nil, err
	}

	submission, err := d.persistence.Submissions().GetByID(ctx, submissionID)
	if err != nil {
		err = submissionError(submissionID, err)
		otelhelper.SetError(span, err)

		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate delay ID: %w", err)
	}

	delay := &models.Delay{
		ID:            id.String(),
		SubmissionID:  submissionID,
		Reason:        reason,
		CreatedBy:     actor.ID,
		CreatedByName: actor.DisplayName(),
		CreatedAt:     d.clock(),
	}

	err = d.persistence.Delays().Create(ctx, delay)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to record delay: %w", err)
	}

	d.logger.InfoContext(ctx, "delay recorded", "submission_id", submissionID, "delay_id", delay.ID, "actor_id", actor.ID)

	if !publish(ctx, d.publisher, d.logger, events.NewDelayAdded(submission, delay, delay.CreatedAt)) {
		return delay, nil
	}

	err = d.persistence.Delays().MarkNotified(context.WithoutCancel(ctx), delay.ID)
	if err != nil {
		d.logger.ErrorContext(ctx, "failed to flag delay as notified", "delay_id", delay.ID, "error", err)

		return delay, nil
	}

	delay.Notified = true

	return delay, nil
}

// List returns the delays of a submission, newest first.
func (d *Delays) List(ctx context.Context, submissionID string) ([]*models.Delay, error) {
	_, err := d.persistence.Submissions().GetByID(ctx, submissionID)
	if err != nil {
		return nil, submissionError(submissionID, err)
	}

	delays, err := d.persistence.Delays().ListBySubmission(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list delays: %w", err)
	}

	return delays, nil
}
