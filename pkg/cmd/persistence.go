package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/persistence"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/persistence/file"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/persistence/postgresql"
)

// ParsePersistenceProvider returns the store selected by databaseURL's scheme.
// URLs without a known scheme are treated as file store directories.
func ParsePersistenceProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	switch scheme {
	case "postgres", "postgresql":
		return "postgresql"
	default:
		return "file"
	}
}

// NewPersistence opens the store named by databaseURL. PostgreSQL stores are
// migrated on open.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch ParsePersistenceProvider(databaseURL) {
	case "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgresql persistence: %w", err)
		}

		return p, nil
	default:
		logger.WarnContext(ctx, "using file persistence, not suitable for multiple instances", "path", databaseURL)

		return file.NewPersistence(databaseURL), nil
	}
}
