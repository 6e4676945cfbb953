package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/eventbus"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/events"
)

// MockEventBus is a mock implementation of eventbus.EventBus interface.
type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, key string, event eventbus.Event) error {
	args := m.Called(ctx, key, event)

	return args.Error(0)
}

func (m *MockEventBus) Handle(eventType events.EventType, handler eventbus.EventHandler) error {
	args := m.Called(eventType, handler)

	return args.Error(0)
}

func (m *MockEventBus) Subscribe(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockEventBus) Close() error {
	args := m.Called()

	return args.Error(0)
}

func (m *MockEventBus) GenerateID() string {
	args := m.Called()

	return args.String(0)
}

// Published returns the events passed to Publish, in call order.
func (m *MockEventBus) Published() []events.Event {
	var published []events.Event

	for _, call := range m.Calls {
		if call.Method != "Publish" {
			continue
		}

		if event, ok := call.Arguments.Get(2).(events.Event); ok {
			published = append(published, event)
		}
	}

	return published
}
