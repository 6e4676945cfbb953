package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/models"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/persistence"
)

var submissionColumns = []string{
	"id",
	"status",
	"priority",
	"cadastro_type",
	"operator_id",
	"analyst_id",
	"submitted_at",
	"review_started_at",
	"concluded_at",
	"returned_at",
	"rejection_reason",
	"rejection_category",
	"review_note",
	"name",
	"document_number",
	"plate",
	"document_ids",
	"fields",
	"version",
	"created_at",
	"updated_at",
}

const priorityRank = "CASE priority WHEN 'urgent' THEN 2 WHEN 'high' THEN 1 ELSE 0 END DESC"

// SubmissionRepository handles submission-related database operations.
type SubmissionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSubmissionRepository creates a new submission repository.
func NewSubmissionRepository(db *sql.DB, logger *slog.Logger) *SubmissionRepository {
	return &SubmissionRepository{db: db, logger: logger}
}

// Create inserts a submission and its creation history row in one transaction.
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.Submission) (err error) {
	fieldsJSON, err := marshalFields(submission.Fields)
	if err != nil {
		return err
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

	query, args, err := psql.Insert("submissions").
		Columns(submissionColumns...).
		Values(
			submission.ID,
			submission.Status,
			submission.Priority,
			submission.CadastroType,
			submission.OperatorID,
			submission.AnalystID,
			submission.SubmittedAt,
			submission.ReviewStartedAt,
			submission.ConcludedAt,
			submission.ReturnedAt,
			submission.RejectionReason,
			submission.RejectionCategory,
			submission.ReviewNote,
			submission.Name,
			submission.DocumentNumber,
			submission.Plate,
			pq.Array(documentIDs(submission.DocumentIDs)),
			fieldsJSON,
			submission.Version,
			submission.CreatedAt,
			submission.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}

	_, err = tx.ExecContext(ctx, query, args...)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return persistence.NewSubmissionError("Create", submission.ID, persistence.ErrSubmissionAlreadyExists)
		}

		return fmt.Errorf("failed to insert submission: %w", err)
	}

	err = insertHistory(ctx, tx, &models.StatusChange{
		SubmissionID: submission.ID,
		Operation:    models.OperationCreate,
		ToStatus:     submission.Status,
		ActorID:      submission.OperatorID,
		CreatedAt:    submission.CreatedAt,
	})
	if err != nil {
		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *SubmissionRepository) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, persistence.NewSubmissionError("GetByID", id, persistence.ErrSubmissionNotFound)
	}

	query, args, err := psql.Select(submissionColumns...).From("submissions").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	submission, err := scanSubmission(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewSubmissionError("GetByID", id, persistence.ErrSubmissionNotFound)
		}

		return nil, fmt.Errorf("failed to scan submission: %w", err)
	}

	return submission, nil
}

// CompareAndSwap issues a single UPDATE guarded by the expected status.
func (r *SubmissionRepository) CompareAndSwap(
	ctx context.Context,
	id string,
	expected models.SubmissionStatus,
	transition models.Transition,
) (updated *models.Submission, err error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, persistence.NewSubmissionError("CompareAndSwap", id, persistence.ErrSubmissionNotFound)
	}

	query, args, err := transitionUpdate(id, expected, transition).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build transition update: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	updated, err = scanSubmission(tx.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.conflict(ctx, tx, id, []models.SubmissionStatus{expected})
		}

		return nil, fmt.Errorf("failed to apply transition: %w", err)
	}

	err = insertHistory(ctx, tx, &models.StatusChange{
		SubmissionID: id,
		Operation:    transition.Operation,
		FromStatus:   expected,
		ToStatus:     transition.To,
		ActorID:      transition.ActorID,
		Reason:       nullable(transition.Reason),
		CreatedAt:    transition.At,
	})
	if err != nil {
		return nil, err
	}

	err = tx.Commit()
	if err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return updated, nil
}

// UpdateFields locks the row, applies the patch and bumps the version.
func (r *SubmissionRepository) UpdateFields(
	ctx context.Context,
	id string,
	patch models.SubmissionPatch,
	at time.Time,
) (updated *models.Submission, err error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, persistence.NewSubmissionError("UpdateFields", id, persistence.ErrSubmissionNotFound)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query, args, err := psql.Select(submissionColumns...).
		From("submissions").
		Where(sq.Eq{"id": id}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	current, err := scanSubmission(tx.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewSubmissionError("UpdateFields", id, persistence.ErrSubmissionNotFound)
		}

		return nil, fmt.Errorf("failed to lock submission: %w", err)
	}

	if !current.Status.IsEditable() {
		return nil, &persistence.StatusConflictError{
			SubmissionID: id,
			Expected:     models.EditableStatuses,
			Current:      current.Status,
		}
	}

	patch.ApplyTo(current)

	fieldsJSON, err := marshalFields(current.Fields)
	if err != nil {
		return nil, err
	}

	query, args, err = psql.Update("submissions").
		Set("priority", current.Priority).
		Set("name", current.Name).
		Set("document_number", current.DocumentNumber).
		Set("plate", current.Plate).
		Set("document_ids", pq.Array(documentIDs(current.DocumentIDs))).
		Set("fields", fieldsJSON).
		Set("version", sq.Expr("version + 1")).
		Set("updated_at", at).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(submissionColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build update: %w", err)
	}

	updated, err = scanSubmission(tx.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to update submission fields: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return updated, nil
}

func (r *SubmissionRepository) History(ctx context.Context, id string) ([]*models.StatusChange, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, persistence.NewSubmissionError("History", id, persistence.ErrSubmissionNotFound)
	}

	query := `
		SELECT
			id
		  , submission_id
		  , operation
		  , COALESCE(from_status, '')
		  , to_status
		  , actor_id
		  , reason
		  , created_at
		FROM submission_status_history
		WHERE submission_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query status history: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	history := make([]*models.StatusChange, 0)

	for rows.Next() {
		var change models.StatusChange

		err := rows.Scan(
			&change.ID,
			&change.SubmissionID,
			&change.Operation,
			&change.FromStatus,
			&change.ToStatus,
			&change.ActorID,
			&change.Reason,
			&change.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan status change: %w", err)
		}

		history = append(history, &change)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating status history: %w", err)
	}

	return history, nil
}

func (r *SubmissionRepository) List(ctx context.Context, filter persistence.SubmissionFilter) ([]*models.Submission, error) {
	builder := applyFilter(psql.Select(submissionColumns...).From("submissions"), filter).
		OrderBy(priorityRank, "submitted_at DESC", "id")

	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}

	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	submissions := make([]*models.Submission, 0)

	for rows.Next() {
		submission, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}

		submissions = append(submissions, submission)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating submissions: %w", err)
	}

	return submissions, nil
}

func (r *SubmissionRepository) Count(ctx context.Context, filter persistence.SubmissionFilter) (int, error) {
	query, args, err := applyFilter(psql.Select("COUNT(*)").From("submissions"), filter).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int

	err = r.db.QueryRowContext(ctx, query, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}

	return total, nil
}

func (r *SubmissionRepository) CountByStatus(ctx context.Context, from, to time.Time) (map[models.SubmissionStatus]int, error) {
	query, args, err := psql.Select("status", "COUNT(*)").
		From("submissions").
		Where(sq.GtOrEq{"submitted_at": from}).
		Where(sq.Lt{"submitted_at": to}).
		GroupBy("status").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build count query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count submissions by status: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	counts := make(map[models.SubmissionStatus]int, len(models.Statuses))
	for _, status := range models.Statuses {
		counts[status] = 0
	}

	for rows.Next() {
		var (
			status models.SubmissionStatus
			count  int
		)

		err := rows.Scan(&status, &count)
		if err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}

		counts[status] = count
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating status counts: %w", err)
	}

	return counts, nil
}

// conflict re-reads the status after a compare-and-swap matched no row.
func (r *SubmissionRepository) conflict(ctx context.Context, tx *sql.Tx, id string, expected []models.SubmissionStatus) error {
	var current models.SubmissionStatus

	err := tx.QueryRowContext(ctx, "SELECT status FROM submissions WHERE id = $1", id).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.NewSubmissionError("CompareAndSwap", id, persistence.ErrSubmissionNotFound)
		}

		return fmt.Errorf("failed to read current status: %w", err)
	}

	r.logger.DebugContext(ctx, "compare-and-swap lost", "submission_id", id, "current", current, "expected", expected)

	return &persistence.StatusConflictError{SubmissionID: id, Expected: expected, Current: current}
}

func transitionUpdate(id string, expected models.SubmissionStatus, transition models.Transition) sq.UpdateBuilder {
	update := psql.Update("submissions").
		Set("status", transition.To).
		Set("updated_at", transition.At).
		Set("version", sq.Expr("version + 1"))

	if transition.Clears() {
		update = update.
			Set("analyst_id", nil).
			Set("review_started_at", nil).
			Set("concluded_at", nil).
			Set("returned_at", nil).
			Set("rejection_reason", nil).
			Set("rejection_category", nil).
			Set("submitted_at", transition.At)
	} else {
		if transition.SetsAnalyst() {
			update = update.Set("analyst_id", transition.ActorID)
		}

		if transition.StartsReview() {
			update = update.Set("review_started_at", sq.Expr("COALESCE(review_started_at, ?)", transition.At))
		}

		if transition.Concludes() {
			update = update.Set("concluded_at", transition.At)
		}

		if transition.Returns() {
			update = update.Set("returned_at", transition.At)
		}

		if transition.RecordsOutcome() {
			update = update.
				Set("rejection_reason", transition.Reason).
				Set("rejection_category", nullable(transition.Category))
		}

		if transition.Note != "" {
			update = update.Set("review_note", sq.Expr(
				"CASE WHEN COALESCE(review_note, '') = '' THEN ?::text ELSE review_note || chr(10) || ?::text END",
				transition.Note, transition.Note,
			))
		}
	}

	return update.
		Where(sq.Eq{"id": id, "status": expected}).
		Suffix("RETURNING " + strings.Join(submissionColumns, ", "))
}

func applyFilter(builder sq.SelectBuilder, filter persistence.SubmissionFilter) sq.SelectBuilder {
	if len(filter.Statuses) > 0 {
		builder = builder.Where(sq.Eq{"status": filter.Statuses})
	}

	if filter.Priority != "" {
		builder = builder.Where(sq.Eq{"priority": filter.Priority})
	}

	if filter.OperatorID != "" {
		builder = builder.Where(sq.Eq{"operator_id": filter.OperatorID})
	}

	if filter.AnalystID != "" {
		builder = builder.Where(sq.Eq{"analyst_id": filter.AnalystID})
	}

	if filter.CadastroType != "" {
		builder = builder.Where(sq.Eq{"cadastro_type": filter.CadastroType})
	}

	if filter.ParticipantID != "" {
		builder = builder.Where(sq.Or{
			sq.Eq{"operator_id": filter.ParticipantID},
			sq.Eq{"analyst_id": filter.ParticipantID},
		})
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + escapeLike(search) + "%"
		builder = builder.Where(sq.Or{
			sq.ILike{"name": pattern},
			sq.ILike{"document_number": pattern},
			sq.ILike{"plate": pattern},
		})
	}

	if filter.SubmittedFrom != nil {
		builder = builder.Where(sq.GtOrEq{"submitted_at": *filter.SubmittedFrom})
	}

	if filter.SubmittedTo != nil {
		builder = builder.Where(sq.Lt{"submitted_at": *filter.SubmittedTo})
	}

	return builder
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}

func insertHistory(ctx context.Context, tx *sql.Tx, change *models.StatusChange) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("failed to generate history ID: %w", err)
	}

	change.ID = id.String()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO submission_status_history (id, submission_id, operation, from_status, to_status, actor_id, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		change.ID,
		change.SubmissionID,
		change.Operation,
		nullable(string(change.FromStatus)),
		change.ToStatus,
		change.ActorID,
		change.Reason,
		change.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record status change: %w", err)
	}

	return nil
}

func scanSubmission(row rowScanner) (*models.Submission, error) {
	var (
		submission models.Submission
		fieldsJSON []byte
	)

	err := row.Scan(
		&submission.ID,
		&submission.Status,
		&submission.Priority,
		&submission.CadastroType,
		&submission.OperatorID,
		&submission.AnalystID,
		&submission.SubmittedAt,
		&submission.ReviewStartedAt,
		&submission.ConcludedAt,
		&submission.ReturnedAt,
		&submission.RejectionReason,
		&submission.RejectionCategory,
		&submission.ReviewNote,
		&submission.Name,
		&submission.DocumentNumber,
		&submission.Plate,
		pq.Array(&submission.DocumentIDs),
		&fieldsJSON,
		&submission.Version,
		&submission.CreatedAt,
		&submission.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(fieldsJSON) > 0 {
		err := json.Unmarshal(fieldsJSON, &submission.Fields)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal submission fields: %w", err)
		}
	}

	return &submission, nil
}

func marshalFields(fields map[string]any) ([]byte, error) {
	if len(fields) == 0 {
		return nil, nil
	}

	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal submission fields: %w", err)
	}

	return fieldsJSON, nil
}

func documentIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}

	return ids
}
