// Package eventbus carries domain events between the services and the notification fan-out.
package eventbus

import (
	"context"

	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/events"
)

type Event interface {
	GetType() events.EventType
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

type EventHandler func(ctx context.Context, event events.Event) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
