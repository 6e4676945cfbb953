// Package main provides the cadastro submission API server.
package main

import (
	"context"
	"os"
	"time"

	_ "time/tzdata"

	"github.com/urfave/cli/v3"
)

const (
	defaultPort     = 9091
	defaultTimezone = "America/Sao_Paulo"
	serviceName     = "cadastro-api"
)

func databaseFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "database-url",
		Usage:    "Database connection URL (postgres://... or file://path)",
		Required: true,
		Sources:  cli.EnvVars("DATABASE_URL"),
	}
}

func logLevelFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "log-level",
		Usage:   "Log level (debug, info, warn, error)",
		Value:   "info",
		Sources: cli.EnvVars("LOG_LEVEL"),
	}
}

func main() {
	cmd := &cli.Command{
		Name:                  serviceName,
		Usage:                 "Review workflow for cadastro submissions",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			RunAPICommand(),
			MigrateCommand(),
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		os.Exit(1)
	}
}

// RunAPICommand serves the HTTP API and the notification stream.
func RunAPICommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Start the API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			databaseFlag(),
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka, redis)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma-separated Kafka brokers",
				Value:   "localhost:9092",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the redis event bus",
				Value:   "redis://localhost:6379/0",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "catalog",
				Usage:   "Path to a cadastro type catalog (JSON); the embedded one is used when empty",
				Sources: cli.EnvVars("CATALOG_PATH"),
			},
			&cli.StringFlag{
				Name:    "timezone",
				Usage:   "IANA time zone of the operation, used for daily windows",
				Value:   defaultTimezone,
				Sources: cli.EnvVars("TZ_NAME"),
			},
			&cli.StringFlag{
				Name:    "stats-schedule",
				Usage:   "Cron schedule of dashboard stats broadcasts",
				Value:   "@every 1m",
				Sources: cli.EnvVars("STATS_SCHEDULE"),
			},
			&cli.DurationFlag{
				Name:    "shutdown-timeout",
				Usage:   "Time allowed for in-flight requests on shutdown",
				Value:   10 * time.Second,
				Sources: cli.EnvVars("SHUTDOWN_TIMEOUT"),
			},
			&cli.BoolFlag{
				Name:    "otel-enabled",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			logLevelFlag(),
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			return run(ctx, Config{
				Port:            command.Int("port"),
				DatabaseURL:     command.String("database-url"),
				EventBus:        command.String("event-bus"),
				KafkaBrokers:    command.String("kafka-brokers"),
				RedisURL:        command.String("redis-url"),
				CatalogPath:     command.String("catalog"),
				Timezone:        command.String("timezone"),
				StatsSchedule:   command.String("stats-schedule"),
				ShutdownTimeout: command.Duration("shutdown-timeout"),
				OTelEnabled:     command.Bool("otel-enabled"),
				LogLevel:        command.String("log-level"),
			})
		},
	}
}

// MigrateCommand applies pending schema migrations and exits.
func MigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply database migrations",
		Flags: []cli.Flag{
			databaseFlag(),
			logLevelFlag(),
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			return migrate(ctx, command.String("database-url"), command.String("log-level"))
		},
	}
}
