package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/catalog"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/models"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/otelhelper"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
)

// Checklist manages the review checklist of submissions. It does not depend
// on submission status.
type Checklist struct {
	options

	persistence persistence.Persistence
	catalog     *catalog.Catalog
}

func NewChecklist(persistence persistence.Persistence, catalog *catalog.Catalog, opts ...Option) *Checklist {
	return &Checklist{
		options:     newOptions("checklist", opts),
		persistence: persistence,
		catalog:     catalog,
	}
}

// Initialize creates the checklist from the template of cadastroType, falling
// back to the submission's type and then to the catalog default.
func (c *Checklist) Initialize(
	ctx context.Context,
	actor models.Actor,
	submissionID, cadastroType string,
) ([]*models.ChecklistItem, error) {
	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "checklist.initialize",
		attribute.String(otelhelper.SubmissionIDKey, submissionID),
		attribute.String(otelhelper.ActorIDKey, actor.ID),
	)
	defer span.End()

	items, err := c.initialize(ctx, actor, submissionID, cadastroType)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	c.logger.InfoContext(ctx, "checklist initialized", "submission_id", submissionID, "items", len(items))

	return items, nil
}

func (c *Checklist) initialize(
	ctx context.Context,
	actor models.Actor,
	submissionID, cadastroType string,
) ([]*models.ChecklistItem, error) {
	err := c.authorizer.Authorize(ctx, actor, ActionEditChecklist)
	if err != nil {
		return nil, err
	}

	submission, err := c.persistence.Submissions().GetByID(ctx, submissionID)
	if err != nil {
		return nil, submissionError(submissionID, err)
	}

	template, err := c.catalog.Resolve(strings.TrimSpace(cadastroType), submission.CadastroType)
	if err != nil {
		return nil, NewValidationError("cadastro_type", err.Error(), err)
	}

	now := c.clock()
	items := make([]*models.ChecklistItem, 0, len(template.Checklist))

	for i, entry := range template.Checklist {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate checklist item ID: %w", err)
		}

		items = append(items, &models.ChecklistItem{
			ID:           id.String(),
			SubmissionID: submissionID,
			Position:     i + 1,
			ItemName:     entry.Name,
			Mandatory:    entry.Mandatory,
			CreatedAt:    now,
		})
	}

	err = c.persistence.Checklists().Initialize(ctx, submissionID, template.Name, items, now)
	if err != nil {
		if errors.Is(err, persistence.ErrChecklistInitialized) {
			return nil, &AlreadyInitializedError{SubmissionID: submissionID}
		}

		return nil, fmt.Errorf("failed to initialize checklist: %w", err)
	}

	return items, nil
}

// AddItem appends an ad-hoc item after the last one.
func (c *Checklist) AddItem(
	ctx context.Context,
	actor models.Actor,
	submissionID, name, note string,
) (*models.ChecklistItem, error) {
	err := c.authorizer.Authorize(ctx, actor, ActionEditChecklist)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewValidationError("name", "is required", nil)
	}

	_, err = c.persistence.Submissions().GetByID(ctx, submissionID)
	if err != nil {
		return nil, submissionError(submissionID, err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate checklist item ID: %w", err)
	}

	item := &models.ChecklistItem{
		ID:           id.String(),
		SubmissionID: submissionID,
		ItemName:     name,
		CreatedAt:    c.clock(),
	}

	if note = strings.TrimSpace(note); note != "" {
		item.Note = &note
	}

	err = c.persistence.Checklists().Append(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("failed to add checklist item: %w", err)
	}

	c.logger.InfoContext(ctx, "checklist item added",
		"submission_id", submissionID, "item_id", item.ID, "position", item.Position)

	return item, nil
}

// Complete marks an item done by actor.
func (c *Checklist) Complete(ctx context.Context, actor models.Actor, itemID, note string) (*models.ChecklistItem, error) {
	return c.mark(ctx, actor, itemID, func(item *models.ChecklistItem) {
		item.Complete(actor.ID, c.clock(), strings.TrimSpace(note))
	})
}

// Uncomplete reverts an item to pending.
func (c *Checklist) Uncomplete(ctx context.Context, actor models.Actor, itemID string) (*models.ChecklistItem, error) {
	return c.mark(ctx, actor, itemID, func(item *models.ChecklistItem) {
		item.Uncomplete()
	})
}

func (c *Checklist) mark(
	ctx context.Context,
	actor models.Actor,
	itemID string,
	change func(*models.ChecklistItem),
) (*models.ChecklistItem, error) {
	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "checklist.mark",
		attribute.String(otelhelper.ChecklistItemIDKey, itemID),
		attribute.String(otelhelper.ActorIDKey, actor.ID),
	)
	defer span.End()

	err := c.authorizer.Authorize(ctx, actor, ActionCheckChecklist)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	item, err := c.persistence.Checklists().GetItem(ctx, itemID)
	if err != nil {
		err = itemError(itemID, err)
		otelhelper.SetError(span, err)

		return nil, err
	}

	change(item)

	err = c.persistence.Checklists().UpdateItem(ctx, item)
	if err != nil {
		err = itemError(itemID, err)
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(attribute.String(otelhelper.SubmissionIDKey, item.SubmissionID))

	c.logger.DebugContext(ctx, "checklist item updated",
		"item_id", itemID, "completed", item.Completed, "actor_id", actor.ID)

	return item, nil
}

// Remove deletes an item permanently.
func (c *Checklist) Remove(ctx context.Context, actor models.Actor, itemID string) error {
	err := c.authorizer.Authorize(ctx, actor, ActionEditChecklist)
	if err != nil {
		return err
	}

	err = c.persistence.Checklists().DeleteItem(ctx, itemID)
	if err != nil {
		return itemError(itemID, err)
	}

	c.logger.InfoContext(ctx, "checklist item removed", "item_id", itemID, "actor_id", actor.ID)

	return nil
}

// Items returns the checklist ordered by position.
func (c *Checklist) Items(ctx context.Context, submissionID string) ([]*models.ChecklistItem, error) {
	_, err := c.persistence.Submissions().GetByID(ctx, submissionID)
	if err != nil {
		return nil, submissionError(submissionID, err)
	}

	items, err := c.persistence.Checklists().Items(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load checklist: %w", err)
	}

	return items, nil
}

func (c *Checklist) Progress(ctx context.Context, submissionID string) (models.ChecklistProgress, error) {
	items, err := c.Items(ctx, submissionID)
	if err != nil {
		return models.ChecklistProgress{}, err
	}

	return models.ProgressOf(items), nil
}
