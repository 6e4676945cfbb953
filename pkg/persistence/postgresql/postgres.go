// Package postgresql provides the PostgreSQL persistence implementation for submissions.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/persistence"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/persistence/sqlbase"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db             *sql.DB
	logger         *slog.Logger
	migrations     *sqlbase.MigrationManager
	submissionRepo *SubmissionRepository
	checklistRepo  *ChecklistRepository
	delayRepo      *DelayRepository
}

// NewPersistence creates a new PostgreSQL persistence layer and migrates the schema.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	postgres := newPersistence(database, logger)

	err = postgres.migrations.RunMigrations(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return postgres, nil
}

// NewPersistenceFromDB wraps an open connection without migrating it.
func NewPersistenceFromDB(database *sql.DB, logger *slog.Logger) *Persistence {
	return newPersistence(database, logger)
}

func newPersistence(database *sql.DB, logger *slog.Logger) *Persistence {
	return &Persistence{
		db:             database,
		logger:         logger,
		migrations:     sqlbase.NewMigrationManager(logger, database, migrations()),
		submissionRepo: NewSubmissionRepository(database, logger),
		checklistRepo:  NewChecklistRepository(database, logger),
		delayRepo:      NewDelayRepository(database, logger),
	}
}

func (p *Persistence) Submissions() persistence.SubmissionRepository {
	return p.submissionRepo
}

func (p *Persistence) Checklists() persistence.ChecklistRepository {
	return p.checklistRepo
}

func (p *Persistence) Delays() persistence.DelayRepository {
	return p.delayRepo
}

// SchemaVersion returns the highest applied migration.
func (p *Persistence) SchemaVersion(ctx context.Context) (int, error) {
	return p.migrations.CurrentVersion(ctx)
}

// Close closes the database connection.
func (p *Persistence) Close(ctx context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func closeRows(ctx context.Context, logger *slog.Logger, rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}

	return &value
}
