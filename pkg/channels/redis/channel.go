// Package redis provides the Redis Streams transport.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"
)

// Config selects the Redis server and the consumer group of this process.
// Every process needs its own group so each one sees every event. New groups
// start at the end of the stream.
type Config struct {
	URL           string
	ConsumerGroup string

	// MaxLen caps each stream; zero keeps every entry.
	MaxLen int64
}

// NewClient parses url and checks the server is reachable.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = client.Ping(pingCtx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}

	return client, nil
}

func CreateChannel(
	client redis.UniversalClient,
	logger watermill.LoggerAdapter,
	config Config,
) (*redisstream.Publisher, *redisstream.Subscriber, error) {
	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client:        client,
			Marshaller:    redisstream.DefaultMarshallerUnmarshaller{},
			DefaultMaxlen: config.MaxLen,
		},
		logger,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create redis publisher: %w", err)
	}

	subscriber, err := redisstream.NewSubscriber(
		redisstream.SubscriberConfig{
			Client:        client,
			Unmarshaller:  redisstream.DefaultMarshallerUnmarshaller{},
			ConsumerGroup: config.ConsumerGroup,
			OldestId:      "$",
		},
		logger,
	)
	if err != nil {
		_ = publisher.Close()

		return nil, nil, fmt.Errorf("failed to create redis subscriber: %w", err)
	}

	return publisher, subscriber, nil
}
