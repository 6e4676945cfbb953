package notify

import (
	"context"
	"log/slog"

	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/eventbus"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/events"
)

// Dispatcher forwards bus events to the hub. Handlers never fail, so every
// message is acked and none is redelivered.
type Dispatcher struct {
	hub    *Hub
	logger *slog.Logger
}

func NewDispatcher(hub *Hub, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{hub: hub, logger: logger}
}

// Register installs a handler for every event type on bus.
func (d *Dispatcher) Register(bus eventbus.EventSubscriber) error {
	for _, eventType := range events.Types {
		err := bus.Handle(eventType, d.handle)
		if err != nil {
			return err
		}
	}

	return nil
}

// Start registers the handlers and begins consuming.
func (d *Dispatcher) Start(ctx context.Context, bus eventbus.EventSubscriber) error {
	err := d.Register(bus)
	if err != nil {
		return err
	}

	return bus.Subscribe(ctx)
}

func (d *Dispatcher) handle(ctx context.Context, event events.Event) error {
	delivered := d.hub.Deliver(event)

	d.logger.DebugContext(ctx, "event dispatched",
		"event_id", event.Header().ID, "event_type", event.GetType(), "subscribers", delivered)

	return nil
}
