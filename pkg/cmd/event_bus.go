// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/channels/gochannel"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/channels/kafka"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/channels/redis"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/eventbus"
)

var ErrUnsupportedEventBus = errors.New("unsupported event bus provider")

// EventBusConfig selects and configures the transport behind the event bus.
type EventBusConfig struct {
	Provider     string
	KafkaBrokers string
	RedisURL     string
	ServiceName  string

	// InstanceID tells replicas apart; a random one is used when empty.
	InstanceID string
}

// ConsumerGroup is the broker consumer group of this process. Each replica
// gets its own group so broker-backed events reach every replica's subscribers.
func (c EventBusConfig) ConsumerGroup() string {
	instanceID := c.InstanceID
	if instanceID == "" {
		instanceID = watermill.NewShortUUID()
	}

	return "cg-" + c.ServiceName + "-" + instanceID
}

// NewEventBus builds the watermill event bus for config.Provider: gochannel
// (in-process, the default), kafka or redis.
func NewEventBus(ctx context.Context, logger *slog.Logger, config EventBusConfig) (*eventbus.WatermillEventBus, error) {
	wlogger := watermill.NewSlogLogger(logger)

	switch config.Provider {
	case "", "gochannel":
		pub, sub, err := gochannel.CreateChannel(wlogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-process pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(logger, pub, sub), nil
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wlogger, kafka.ParseBrokers(config.KafkaBrokers), config.ConsumerGroup())
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(logger, pub, sub), nil
	case "redis":
		client, err := redis.NewClient(ctx, config.RedisURL)
		if err != nil {
			return nil, err
		}

		pub, sub, err := redis.CreateChannel(client, wlogger, redis.Config{
			URL:           config.RedisURL,
			ConsumerGroup: config.ConsumerGroup(),
		})
		if err != nil {
			_ = client.Close()

			return nil, fmt.Errorf("failed to create Redis pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(logger, pub, sub), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEventBus, config.Provider)
	}
}
