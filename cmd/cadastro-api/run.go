package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/catalog"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/cmd"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/dashboard"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/log"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/notify"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/otelhelper"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/services"
)

type Config struct {
	Port            int
	DatabaseURL     string
	EventBus        string
	KafkaBrokers    string
	RedisURL        string
	CatalogPath     string
	Timezone        string
	StatsSchedule   string
	ShutdownTimeout time.Duration
	OTelEnabled     bool
	LogLevel        string
}

func run(ctx context.Context, config Config) error {
	log.Setup(config.LogLevel)

	logger := log.WithModule("api")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.InfoContext(ctx, "Initializing cadastro API", "event_bus", config.EventBus, "timezone", config.Timezone)

	location, err := time.LoadLocation(config.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", config.Timezone, err)
	}

	cat, err := catalog.Load(config.CatalogPath)
	if err != nil {
		return err
	}

	opts := []services.Option{}

	if config.OTelEnabled {
		tracer, shutdown, err := otelhelper.NewTracer(ctx, serviceName)
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}

		defer func() {
			err := shutdown(context.WithoutCancel(ctx))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
			}
		}()

		opts = append(opts, services.WithTracer(tracer))
	}

	persistence, err := cmd.NewPersistence(ctx, logger, config.DatabaseURL)
	if err != nil {
		return err
	}

	defer func() {
		err := persistence.Close(context.WithoutCancel(ctx))
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	eventBus, err := cmd.NewEventBus(ctx, logger, cmd.EventBusConfig{
		Provider:     config.EventBus,
		KafkaBrokers: config.KafkaBrokers,
		RedisURL:     config.RedisURL,
		ServiceName:  serviceName,
	})
	if err != nil {
		return err
	}

	defer func() {
		err := eventBus.Close()
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	hub := notify.NewHub(log.WithModule("notify"), notify.DefaultBufferSize)
	defer hub.Close()

	err = notify.NewDispatcher(hub, log.WithModule("dispatcher")).Start(ctx, eventBus)
	if err != nil {
		return fmt.Errorf("failed to subscribe to events: %w", err)
	}

	stats, err := dashboard.NewService(persistence, hub, log.WithModule("dashboard"), dashboard.Config{
		Schedule: config.StatsSchedule,
		Location: location,
	})
	if err != nil {
		return err
	}

	err = stats.Start(ctx)
	if err != nil {
		return err
	}

	defer func() {
		err := stats.Stop(context.WithoutCancel(ctx))
		if err != nil {
			logger.ErrorContext(ctx, "Failed to stop dashboard stats", "error", err)
		}
	}()

	api := NewAPI(ctx, logger, persistence, cat, eventBus, hub, stats, location, opts...)
	app := api.App()

	errs := make(chan error, 1)

	go func() {
		errs <- app.Listen(":" + strconv.Itoa(config.Port))
	}()

	select {
	case err := <-errs:
		if err != nil {
			return fmt.Errorf("failed to start API server: %w", err)
		}

		return nil
	case <-ctx.Done():
	}

	logger.InfoContext(ctx, "Shutting down cadastro API")

	err = app.ShutdownWithTimeout(config.ShutdownTimeout)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("failed to shutdown API server: %w", err)
	}

	return nil
}

func migrate(ctx context.Context, databaseURL, logLevel string) error {
	log.Setup(logLevel)

	logger := log.WithModule("migrate")

	if cmd.ParsePersistenceProvider(databaseURL) != "postgresql" {
		logger.InfoContext(ctx, "Nothing to migrate for file persistence")

		return nil
	}

	persistence, err := cmd.NewPersistence(ctx, logger, databaseURL)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "Database schema is up to date")

	return persistence.Close(ctx)
}
