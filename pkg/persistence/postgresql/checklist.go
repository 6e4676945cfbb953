package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/models"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/persistence"
)

var checklistColumns = []string{
	"id",
	"submission_id",
	"position",
	"item_name",
	"mandatory",
	"completed",
	"completed_by",
	"completed_at",
	"note",
	"created_at",
}

// ChecklistRepository handles checklist-related database operations.
type ChecklistRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewChecklistRepository creates a new checklist repository.
func NewChecklistRepository(db *sql.DB, logger *slog.Logger) *ChecklistRepository {
	return &ChecklistRepository{db: db, logger: logger}
}

// Initialize locks the submission row so concurrent initializations run one
// after another; only a writer that finds no items inserts the template.
func (r *ChecklistRepository) Initialize(
	ctx context.Context,
	submissionID, cadastroType string,
	items []*models.ChecklistItem,
	at time.Time,
) (err error) {
	if _, err := uuid.Parse(submissionID); err != nil {
		return &persistence.SubmissionError{Op: "Initialize", SubmissionID: submissionID, Err: persistence.ErrSubmissionNotFound}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked string

	err = tx.QueryRowContext(ctx, "SELECT id FROM submissions WHERE id = $1 FOR UPDATE", submissionID).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &persistence.SubmissionError{Op: "Initialize", SubmissionID: submissionID, Err: persistence.ErrSubmissionNotFound}
		}

		return fmt.Errorf("failed to lock submission: %w", err)
	}

	var existing int

	err = tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM checklist_items WHERE submission_id = $1", submissionID).Scan(&existing)
	if err != nil {
		return fmt.Errorf("failed to count checklist items: %w", err)
	}

	if existing > 0 {
		return &persistence.ChecklistError{Op: "Initialize", SubmissionID: submissionID, Err: persistence.ErrChecklistInitialized}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO checklists (submission_id, cadastro_type, initialized_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (submission_id) DO UPDATE
		SET cadastro_type = EXCLUDED.cadastro_type, initialized_at = EXCLUDED.initialized_at`,
		submissionID, cadastroType, at,
	)
	if err != nil {
		return fmt.Errorf("failed to record checklist template: %w", err)
	}

	if len(items) > 0 {
		insert := psql.Insert("checklist_items").Columns(checklistColumns...)
		for _, item := range items {
			insert = insert.Values(itemValues(item)...)
		}

		query, args, err := insert.ToSql()
		if err != nil {
			return fmt.Errorf("failed to build checklist insert: %w", err)
		}

		_, err = tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to insert checklist items: %w", err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Append inserts item at the position after the current last one.
func (r *ChecklistRepository) Append(ctx context.Context, item *models.ChecklistItem) error {
	query := `
		INSERT INTO checklist_items (id, submission_id, position, item_name, mandatory, completed, completed_by, completed_at, note, created_at)
		SELECT $1, $2, COALESCE(MAX(position), 0) + 1, $3, $4, $5, $6, $7, $8, $9
		FROM checklist_items
		WHERE submission_id = $2
		RETURNING position
	`

	err := r.db.QueryRowContext(ctx, query,
		item.ID,
		item.SubmissionID,
		item.ItemName,
		item.Mandatory,
		item.Completed,
		item.CompletedBy,
		item.CompletedAt,
		item.Note,
		item.CreatedAt,
	).Scan(&item.Position)
	if err != nil {
		return fmt.Errorf("failed to append checklist item: %w", err)
	}

	return nil
}

func (r *ChecklistRepository) GetItem(ctx context.Context, id string) (*models.ChecklistItem, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, &persistence.ChecklistError{Op: "GetItem", ItemID: id, Err: persistence.ErrChecklistItemNotFound}
	}

	query, args, err := psql.Select(checklistColumns...).From("checklist_items").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	item, err := scanChecklistItem(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &persistence.ChecklistError{Op: "GetItem", ItemID: id, Err: persistence.ErrChecklistItemNotFound}
		}

		return nil, fmt.Errorf("failed to scan checklist item: %w", err)
	}

	return item, nil
}

// UpdateItem writes the completion state and note of item.
func (r *ChecklistRepository) UpdateItem(ctx context.Context, item *models.ChecklistItem) error {
	query, args, err := psql.Update("checklist_items").
		Set("completed", item.Completed).
		Set("completed_by", item.CompletedBy).
		Set("completed_at", item.CompletedAt).
		Set("note", item.Note).
		Where(sq.Eq{"id": item.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}

	return r.execOne(ctx, "UpdateItem", item.ID, query, args...)
}

func (r *ChecklistRepository) DeleteItem(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return &persistence.ChecklistError{Op: "DeleteItem", ItemID: id, Err: persistence.ErrChecklistItemNotFound}
	}

	return r.execOne(ctx, "DeleteItem", id, "DELETE FROM checklist_items WHERE id = $1", id)
}

func (r *ChecklistRepository) Items(ctx context.Context, submissionID string) ([]*models.ChecklistItem, error) {
	query, args, err := psql.Select(checklistColumns...).
		From("checklist_items").
		Where(sq.Eq{"submission_id": submissionID}).
		OrderBy("position", "created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query checklist items: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	items := make([]*models.ChecklistItem, 0)

	for rows.Next() {
		item, err := scanChecklistItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan checklist item: %w", err)
		}

		items = append(items, item)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating checklist items: %w", err)
	}

	return items, nil
}

func (r *ChecklistRepository) execOne(ctx context.Context, op, id, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s checklist item: %w", op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return &persistence.ChecklistError{Op: op, ItemID: id, Err: persistence.ErrChecklistItemNotFound}
	}

	return nil
}

func itemValues(item *models.ChecklistItem) []any {
	return []any{
		item.ID,
		item.SubmissionID,
		item.Position,
		item.ItemName,
		item.Mandatory,
		item.Completed,
		item.CompletedBy,
		item.CompletedAt,
		item.Note,
		item.CreatedAt,
	}
}

func scanChecklistItem(row rowScanner) (*models.ChecklistItem, error) {
	var item models.ChecklistItem

	err := row.Scan(
		&item.ID,
		&item.SubmissionID,
		&item.Position,
		&item.ItemName,
		&item.Mandatory,
		&item.Completed,
		&item.CompletedBy,
		&item.CompletedAt,
		&item.Note,
		&item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &item, nil
}
