// Package kafka provides the Kafka transport. Messages are partitioned by
// submission id so one submission's events keep their order.
package kafka

import (
	"errors"
	"strings"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/events"
)

var ErrNoBrokers = errors.New("no kafka brokers configured")

// ParseBrokers splits a comma separated broker list, dropping blanks.
func ParseBrokers(list string) []string {
	var brokers []string

	for _, broker := range strings.Split(list, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}

	return brokers
}

// PartitionKey routes a message by its submission id.
func PartitionKey(_ string, msg *message.Message) (string, error) {
	return msg.Metadata.Get(events.EventMetadataKey), nil
}

// CreateChannel subscribes with consumerGroup, which must be unique per process
// for every process to receive every event.
func CreateChannel(logger watermill.LoggerAdapter, brokers []string, consumerGroup string) (*kafka.Publisher, *kafka.Subscriber, error) {
	if len(brokers) == 0 {
		return nil, nil, ErrNoBrokers
	}

	marshaler := kafka.NewWithPartitioningMarshaler(PartitionKey)

	saramaSubscriberConfig := kafka.DefaultSaramaSubscriberConfig()
	saramaSubscriberConfig.Consumer.Offsets.Initial = sarama.OffsetNewest

	subscriber, err := kafka.NewSubscriber(
		kafka.SubscriberConfig{
			Brokers:               brokers,
			Unmarshaler:           marshaler,
			OverwriteSaramaConfig: saramaSubscriberConfig,
			ConsumerGroup:         consumerGroup,
			OTELEnabled:           true,
		},
		logger,
	)
	if err != nil {
		return nil, nil, err
	}

	saramaPublisherConfig := sarama.NewConfig()
	saramaPublisherConfig.Producer.Return.Successes = true
	saramaPublisherConfig.Producer.Partitioner = sarama.NewHashPartitioner

	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:               brokers,
			Marshaler:             marshaler,
			OverwriteSaramaConfig: saramaPublisherConfig,
			OTELEnabled:           true,
		},
		logger,
	)
	if err != nil {
		_ = subscriber.Close()

		return nil, nil, err
	}

	return publisher, subscriber, nil
}
