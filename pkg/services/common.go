package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/eventbus"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/events"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/persistence"
)

// submissionError translates store errors into the service taxonomy.
func submissionError(id string, err error) error {
	if persistence.IsSubmissionNotFound(err) {
		return &NotFoundError{Resource: "submission", ID: id}
	}

	return fmt.Errorf("failed to load submission %s: %w", id, err)
}

func itemError(id string, err error) error {
	if persistence.IsChecklistItemNotFound(err) {
		return &NotFoundError{Resource: "checklist item", ID: id}
	}

	return fmt.Errorf("failed to access checklist item %s: %w", id, err)
}

// publish reports whether the event was handed to the bus.
func publish(ctx context.Context, publisher eventbus.EventPublisher, logger *slog.Logger, event events.Event) bool {
	if publisher == nil {
		return false
	}

	header := event.Header()

	err := publisher.Publish(context.WithoutCancel(ctx), header.SubmissionID, event)
	if err != nil {
		logger.ErrorContext(ctx, "failed to publish event",
			"event_id", header.ID, "event_type", event.GetType(), "submission_id", header.SubmissionID, "error", err)

		return false
	}

	logger.DebugContext(ctx, "event published", "event_id", header.ID, "event_type", event.GetType())

	return true
}
