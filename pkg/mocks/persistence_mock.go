package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/models"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/persistence"
)

// MockSubmissionRepository is a mock implementation of persistence.SubmissionRepository interface.
type MockSubmissionRepository struct {
	mock.Mock
}

func (m *MockSubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	args := m.Called(ctx, submission)

	return args.Error(0)
}

func (m *MockSubmissionRepository) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Submission), args.Error(1)
}

func (m *MockSubmissionRepository) CompareAndSwap(
	ctx context.Context,
	id string,
	expected models.SubmissionStatus,
	transition models.Transition,
) (*models.Submission, error) {
	args := m.Called(ctx, id, expected, transition)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Submission), args.Error(1)
}

func (m *MockSubmissionRepository) UpdateFields(
	ctx context.Context,
	id string,
	patch models.SubmissionPatch,
	at time.Time,
) (*models.Submission, error) {
	args := m.Called(ctx, id, patch, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Submission), args.Error(1)
}

func (m *MockSubmissionRepository) History(ctx context.Context, id string) ([]*models.StatusChange, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.StatusChange), args.Error(1)
}

func (m *MockSubmissionRepository) List(ctx context.Context, filter persistence.SubmissionFilter) ([]*models.Submission, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Submission), args.Error(1)
}

func (m *MockSubmissionRepository) Count(ctx context.Context, filter persistence.SubmissionFilter) (int, error) {
	args := m.Called(ctx, filter)

	return args.Int(0), args.Error(1)
}

func (m *MockSubmissionRepository) CountByStatus(
	ctx context.Context,
	from, to time.Time,
) (map[models.SubmissionStatus]int, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(map[models.SubmissionStatus]int), args.Error(1)
}

// MockPersistence is a mock implementation of persistence.Persistence interface.
// Checklists and Delays return nil unless the fields are set.
type MockPersistence struct {
	mock.Mock

	SubmissionRepo *MockSubmissionRepository
	ChecklistRepo  persistence.ChecklistRepository
	DelayRepo      persistence.DelayRepository
}

func NewMockPersistence() *MockPersistence {
	return &MockPersistence{SubmissionRepo: &MockSubmissionRepository{}}
}

func (m *MockPersistence) Submissions() persistence.SubmissionRepository {
	return m.SubmissionRepo
}

func (m *MockPersistence) Checklists() persistence.ChecklistRepository {
	return m.ChecklistRepo
}

func (m *MockPersistence) Delays() persistence.DelayRepository {
	return m.DelayRepo
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
