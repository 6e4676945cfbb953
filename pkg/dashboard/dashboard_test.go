package dashboard

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/mocks"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/models"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/notify"
)

type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (b *recordingBroadcaster) Broadcast(room notify.Room, msg notify.Message) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if room == notify.RoomDashboard {
		b.messages = append(b.messages, msg)
	}

	return 1
}

func (b *recordingBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.messages)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewService_InvalidSchedule(t *testing.T) {
	_, err := NewService(mocks.NewMockPersistence(), &recordingBroadcaster{}, testLogger(), Config{Schedule: "every now and then"})
	assert.Error(t, err)
}

func TestService_Snapshot(t *testing.T) {
	brt := time.FixedZone("BRT", -3*60*60)
	store := mocks.NewMockPersistence()

	wantFrom := time.Date(2026, 3, 10, 0, 0, 0, 0, brt)
	store.SubmissionRepo.On("CountByStatus", mock.Anything,
		mock.MatchedBy(func(from time.Time) bool { return from.Equal(wantFrom) }),
		mock.MatchedBy(func(to time.Time) bool { return to.Equal(wantFrom.AddDate(0, 0, 1)) }),
	).Return(map[models.SubmissionStatus]int{
		models.StatusPending:  4,
		models.StatusApproved: 2,
	}, nil)

	service, err := NewService(store, &recordingBroadcaster{}, testLogger(), Config{Location: brt})
	require.NoError(t, err)

	service.now = func() time.Time { return time.Date(2026, 3, 11, 1, 0, 0, 0, time.UTC) }

	stats, err := service.Snapshot(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", stats.Date)
	assert.Equal(t, 6, stats.Total)
	assert.Equal(t, 0, stats.ByStatus[models.StatusRejected])
	assert.Len(t, stats.ByStatus, len(models.Statuses))

	store.SubmissionRepo.AssertExpectations(t)
}

func TestService_PublishFailure(t *testing.T) {
	store := mocks.NewMockPersistence()
	store.SubmissionRepo.On("CountByStatus", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("db down"))

	broadcaster := &recordingBroadcaster{}

	service, err := NewService(store, broadcaster, testLogger(), Config{})
	require.NoError(t, err)

	assert.Error(t, service.Publish(t.Context()))
	assert.Equal(t, 0, broadcaster.count())
}

func TestService_StartBroadcastsOnSchedule(t *testing.T) {
	store := mocks.NewMockPersistence()
	store.SubmissionRepo.On("CountByStatus", mock.Anything, mock.Anything, mock.Anything).
		Return(map[models.SubmissionStatus]int{models.StatusInReview: 1}, nil)

	broadcaster := &recordingBroadcaster{}

	service, err := NewService(store, broadcaster, testLogger(), Config{Schedule: "@every 1s"})
	require.NoError(t, err)

	require.NoError(t, service.Start(t.Context()))
	assert.Error(t, service.Start(t.Context()))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		_ = service.Stop(ctx)
	})

	assert.Eventually(t, func() bool { return broadcaster.count() > 0 }, 3*time.Second, 50*time.Millisecond)

	broadcaster.mu.Lock()
	msg := broadcaster.messages[0]
	broadcaster.mu.Unlock()

	assert.Equal(t, StatsMessageType, msg.Type)

	stats, ok := msg.Data.(*Stats)
	require.True(t, ok)
	assert.Equal(t, 1, stats.Total)
}

func TestService_LogsKeepCallerModule(t *testing.T) {
	store := mocks.NewMockPersistence()
	store.SubmissionRepo.On("CountByStatus", mock.Anything, mock.Anything, mock.Anything).
		Return(map[models.SubmissionStatus]int{models.StatusPending: 2}, nil)

	var buf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})).
		With("module", "dashboard")

	service, err := NewService(store, &recordingBroadcaster{}, logger, Config{})
	require.NoError(t, err)
	require.NoError(t, service.Publish(t.Context()))

	line := buf.String()
	assert.Contains(t, line, "dashboard stats published")
	assert.Equal(t, 1, strings.Count(line, "module="))
}
