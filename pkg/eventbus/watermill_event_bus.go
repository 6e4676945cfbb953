package eventbus

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/events"
)

type WatermillEventBus struct {
	publisher     message.Publisher
	subscriber    message.Subscriber
	logger        *slog.Logger
	mu            sync.RWMutex
	subscriptions map[events.EventType]EventHandler
}

func NewWatermillEventBus(logger *slog.Logger, pub message.Publisher, sub message.Subscriber) *WatermillEventBus {
	return &WatermillEventBus{
		publisher:     pub,
		subscriber:    sub,
		logger:        logger,
		subscriptions: make(map[events.EventType]EventHandler),
	}
}

func (eb *WatermillEventBus) GenerateID() string {
	return watermill.NewULID()
}

// Publish sends event on the shared topic. key is the submission id, used by
// partitioned transports to keep one submission's events in order.
func (eb *WatermillEventBus) Publish(ctx context.Context, key string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage("msg-"+eb.GenerateID(), payload)
	msg.Metadata.Set(events.EventMetadataKey, key)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))
	msg.SetContext(ctx)

	return eb.publisher.Publish(events.Topic, msg)
}

func (eb *WatermillEventBus) Subscribe(ctx context.Context) error {
	messages, err := eb.subscriber.Subscribe(ctx, events.Topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			eb.dispatch(ctx, msg)
		}
	}()

	return nil
}

func (eb *WatermillEventBus) dispatch(ctx context.Context, msg *message.Message) {
	eventType := events.EventType(msg.Metadata.Get(events.EventTypeMetadataKey))

	eb.mu.RLock()
	handler, exists := eb.subscriptions[eventType]
	eb.mu.RUnlock()

	if !exists {
		msg.Ack()

		return
	}

	event, known := events.New(eventType)
	if !known {
		eb.logger.WarnContext(ctx, "dropping message of unknown event type", "event_type", eventType, "message_id", msg.UUID)
		msg.Ack()

		return
	}

	err := json.Unmarshal(msg.Payload, event)
	if err != nil {
		eb.logger.ErrorContext(ctx, "dropping undecodable event", "event_type", eventType, "message_id", msg.UUID, "error", err)
		msg.Ack()

		return
	}

	err = handler(ctx, event)
	if err != nil {
		eb.logger.ErrorContext(ctx, "event handler failed", "event_type", eventType, "message_id", msg.UUID, "error", err)
		msg.Nack()

		return
	}

	msg.Ack()
}

func (eb *WatermillEventBus) Handle(eventType events.EventType, handler EventHandler) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscriptions[eventType] = handler

	return nil
}

func (eb *WatermillEventBus) Close() error {
	err := eb.publisher.Close()
	if err != nil {
		return err
	}

	return eb.subscriber.Close()
}
