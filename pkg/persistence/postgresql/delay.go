package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/models"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/persistence"
)

// DelayRepository handles the append-only delay log.
type DelayRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewDelayRepository creates a new delay repository.
func NewDelayRepository(db *sql.DB, logger *slog.Logger) *DelayRepository {
	return &DelayRepository{db: db, logger: logger}
}

func (r *DelayRepository) Create(ctx context.Context, delay *models.Delay) error {
	query := `
		INSERT INTO delays (id, submission_id, reason, created_by, created_by_name, created_at, notified)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		delay.ID,
		delay.SubmissionID,
		delay.Reason,
		delay.CreatedBy,
		delay.CreatedByName,
		delay.CreatedAt,
		delay.Notified,
	)
	if err != nil {
		return fmt.Errorf("failed to insert delay: %w", err)
	}

	return nil
}

func (r *DelayRepository) MarkNotified(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "UPDATE delays SET notified = true WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to mark delay notified: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("delay %s: %w", id, persistence.ErrDelayNotFound)
	}

	return nil
}

// ListBySubmission returns the delays of a submission, newest first.
func (r *DelayRepository) ListBySubmission(ctx context.Context, submissionID string) ([]*models.Delay, error) {
	query := `
		SELECT
			id
		  , submission_id
		  , reason
		  , created_by
		  , created_by_name
		  , created_at
		  , notified
		FROM delays
		WHERE submission_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.QueryContext(ctx, query, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query delays: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	delays := make([]*models.Delay, 0)

	for rows.Next() {
		var delay models.Delay

		err := rows.Scan(
			&delay.ID,
			&delay.SubmissionID,
			&delay.Reason,
			&delay.CreatedBy,
			&delay.CreatedByName,
			&delay.CreatedAt,
			&delay.Notified,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delay: %w", err)
		}

		delays = append(delays, &delay)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating delays: %w", err)
	}

	return delays, nil
}
