package notify

import (
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/channels/gochannel"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/eventbus"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/events"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/mocks"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/models"
)

func TestDispatcher_RegistersEveryEventType(t *testing.T) {
	bus := &mocks.MockEventBus{}
	bus.On("Handle", mock.Anything, mock.Anything).Return(nil)

	dispatcher := NewDispatcher(NewHub(testLogger(), 0), testLogger())
	require.NoError(t, dispatcher.Register(bus))

	for _, eventType := range events.Types {
		bus.AssertCalled(t, "Handle", eventType, mock.Anything)
	}
}

func TestDispatcher_ForwardsBusEventsToHub(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(testLogger(), pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	hub := NewHub(testLogger(), 0)
	client := hub.Subscribe(OperatorRoom("op-1"))

	dispatcher := NewDispatcher(hub, testLogger())
	require.NoError(t, dispatcher.Start(t.Context(), bus))

	submission := testSubmission(2)
	submission.Status = models.StatusReturned
	event := events.NewTransitionEvent(models.OperationReturn, models.StatusPending, submission, time.Now())

	require.NoError(t, bus.Publish(t.Context(), submission.ID, event))

	select {
	case msg := <-client.Messages():
		assert.Equal(t, event.Header().ID, msg.ID)
		assert.Equal(t, string(events.SubmissionReturnedEvent), msg.Type)

		returned, ok := msg.Data.(*events.SubmissionReturned)
		require.True(t, ok)
		assert.Equal(t, models.StatusPending, returned.PreviousStatus)
		assert.Equal(t, models.StatusReturned, returned.Submission.Status)
	case <-time.After(5 * time.Second):
		t.Fatal("event was not forwarded")
	}
}
