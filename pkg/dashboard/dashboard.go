// Package dashboard publishes periodic submission counters to the management dashboard.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/models"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/notify"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/persistence"
)

const (
	StatsMessageType = "dashboard.stats"
	DefaultSchedule  = "@every 1m"
)

// Stats counts the submissions received on one local day.
type Stats struct {
	Date        string                          `json:"date"`
	Total       int                             `json:"total"`
	ByStatus    map[models.SubmissionStatus]int `json:"by_status"`
	GeneratedAt time.Time                       `json:"generated_at"`
}

type Broadcaster interface {
	Broadcast(room notify.Room, msg notify.Message) int
}

type Config struct {
	// Schedule is a standard cron expression or descriptor such as "@every 30s".
	Schedule string
	Location *time.Location
}

// Service computes Stats on demand and pushes them on a schedule.
type Service struct {
	persistence persistence.Persistence
	broadcaster Broadcaster
	logger      *slog.Logger
	schedule    string
	location    *time.Location
	now         func() time.Time
	cron        *cron.Cron
}

func NewService(p persistence.Persistence, broadcaster Broadcaster, logger *slog.Logger, config Config) (*Service, error) {
	schedule := config.Schedule
	if schedule == "" {
		schedule = DefaultSchedule
	}

	_, err := cron.ParseStandard(schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid stats schedule: %w", err)
	}

	location := config.Location
	if location == nil {
		location = time.UTC
	}

	return &Service{
		persistence: p,
		broadcaster: broadcaster,
		logger:      logger.With("schedule", schedule),
		schedule:    schedule,
		location:    location,
		now:         time.Now,
	}, nil
}

// Snapshot counts today's submissions by status.
func (s *Service) Snapshot(ctx context.Context) (*Stats, error) {
	now := s.now().In(s.location)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
	to := from.AddDate(0, 0, 1)

	counts, err := s.persistence.Submissions().CountByStatus(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to count submissions: %w", err)
	}

	stats := &Stats{
		Date:        from.Format(time.DateOnly),
		ByStatus:    make(map[models.SubmissionStatus]int, len(models.Statuses)),
		GeneratedAt: now.UTC(),
	}

	for _, status := range models.Statuses {
		stats.ByStatus[status] = counts[status]
		stats.Total += counts[status]
	}

	return stats, nil
}

// Publish broadcasts a fresh snapshot to the dashboard room.
func (s *Service) Publish(ctx context.Context) error {
	stats, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}

	delivered := s.broadcaster.Broadcast(notify.RoomDashboard, notify.Message{Type: StatsMessageType, Data: stats})

	s.logger.DebugContext(ctx, "dashboard stats published", "total", stats.Total, "subscribers", delivered)

	return nil
}

func (s *Service) Start(ctx context.Context) error {
	if s.cron != nil {
		return errors.New("dashboard scheduler already started")
	}

	cronLogger := cron.PrintfLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn))

	s.cron = cron.New(
		cron.WithLocation(s.location),
		cron.WithChain(
			cron.SkipIfStillRunning(cronLogger),
			cron.Recover(cronLogger),
		),
	)

	_, err := s.cron.AddFunc(s.schedule, func() {
		err := s.Publish(context.WithoutCancel(ctx))
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to publish dashboard stats", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule dashboard stats: %w", err)
	}

	s.cron.Start()
	s.logger.InfoContext(ctx, "dashboard scheduler started")

	return nil
}

// Stop waits for a running snapshot to finish.
func (s *Service) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}

	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
