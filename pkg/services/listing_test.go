package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/mocks"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/models"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/persistence"
)

func TestTodayDefaultPolicy(t *testing.T) {
	saoPaulo := time.FixedZone("BRT", -3*60*60)

	// 01:30 UTC on the 11th is still the 10th in São Paulo.
	now := time.Date(2026, 3, 11, 1, 30, 0, 0, time.UTC)
	explicit := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		policy   TodayDefaultPolicy
		query    ListQuery
		wantFrom *time.Time
		wantTo   *time.Time
	}{
		{
			name:     "empty query gets the local day",
			policy:   TodayDefaultPolicy{Location: saoPaulo},
			wantFrom: ptr(time.Date(2026, 3, 10, 0, 0, 0, 0, saoPaulo)),
			wantTo:   ptr(time.Date(2026, 3, 11, 0, 0, 0, 0, saoPaulo)),
		},
		{
			name:     "nil location is UTC",
			wantFrom: ptr(time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)),
			wantTo:   ptr(time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)),
		},
		{
			name:   "free text bypasses the default",
			policy: TodayDefaultPolicy{Location: saoPaulo},
			query:  ListQuery{Search: "silva"},
		},
		{
			name:     "explicit range wins",
			policy:   TodayDefaultPolicy{Location: saoPaulo},
			query:    ListQuery{From: &explicit},
			wantFrom: &explicit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to := tt.policy.Apply(tt.query, now)

			if tt.wantFrom == nil {
				assert.Nil(t, from)
			} else {
				require.NotNil(t, from)
				assert.True(t, tt.wantFrom.Equal(*from), "from = %s", from)
			}

			if tt.wantTo == nil {
				assert.Nil(t, to)
			} else {
				require.NotNil(t, to)
				assert.True(t, tt.wantTo.Equal(*to), "to = %s", to)
			}
		})
	}
}

func TestListing_List(t *testing.T) {
	env := newTestEnv(t)
	listing := NewListing(env.persistence, TodayDefaultPolicy{Location: time.UTC}, WithClock(env.clock.Now))

	first := env.submit(t)
	second := env.submit(t)

	urgent := models.PriorityUrgent
	_, err := env.workflow.UpdateFields(t.Context(), operator, first.ID, models.SubmissionPatch{Priority: &urgent})
	require.NoError(t, err)

	_, err = env.workflow.StartReview(t.Context(), analyst, second.ID)
	require.NoError(t, err)

	_, err = env.workflow.Create(t.Context(), other, CreateSubmissionInput{Name: "Pedro Souza", DocumentNumber: "555"})
	require.NoError(t, err)

	tests := []struct {
		name      string
		actor     models.Actor
		query     ListQuery
		wantTotal int
		wantFirst string
	}{
		{name: "all of today, urgent first", actor: manager, wantTotal: 3, wantFirst: first.ID},
		{name: "by status", actor: manager, query: ListQuery{Statuses: []models.SubmissionStatus{models.StatusInReview}}, wantTotal: 1, wantFirst: second.ID},
		{name: "mine as operator", actor: operator, query: ListQuery{Scope: ScopeMine}, wantTotal: 2, wantFirst: first.ID},
		{name: "mine as analyst", actor: analyst, query: ListQuery{Scope: ScopeMine}, wantTotal: 1, wantFirst: second.ID},
		{name: "free text", actor: manager, query: ListQuery{Search: "SOUZA"}, wantTotal: 1},
		{name: "past window", actor: manager, query: ListQuery{
			From: ptr(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
			To:   ptr(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)),
		}, wantTotal: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := listing.List(t.Context(), tt.actor, tt.query)
			require.NoError(t, err)

			assert.Equal(t, tt.wantTotal, page.Total)
			assert.Len(t, page.Items, tt.wantTotal)
			assert.Equal(t, 1, page.Page)
			assert.Equal(t, DefaultPageSize, page.PageSize)

			if tt.wantFirst != "" {
				require.NotEmpty(t, page.Items)
				assert.Equal(t, tt.wantFirst, page.Items[0].ID)
			}
		})
	}
}

func TestListing_Paging(t *testing.T) {
	env := newTestEnv(t)
	listing := NewListing(env.persistence, nil, WithClock(env.clock.Now))

	for range 3 {
		env.submit(t)
	}

	page, err := listing.List(t.Context(), manager, ListQuery{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.Page)

	page, err = listing.List(t.Context(), manager, ListQuery{PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, page.PageSize)
}

func TestListing_InvalidQuery(t *testing.T) {
	listing := NewListing(mocks.NewMockPersistence(), nil)
	from := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	to := from.Add(-time.Hour)

	queries := map[string]ListQuery{
		"status":        {Statuses: []models.SubmissionStatus{"archived"}},
		"priority":      {Priority: "low"},
		"scope":         {Scope: "team"},
		"reverse range": {From: &from, To: &to},
	}

	for name, query := range queries {
		t.Run(name, func(t *testing.T) {
			_, err := listing.List(t.Context(), manager, query)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestListing_CountFailure(t *testing.T) {
	store := mocks.NewMockPersistence()
	store.SubmissionRepo.On("List", mock.Anything, mock.AnythingOfType("persistence.SubmissionFilter")).
		Return([]*models.Submission{}, nil)
	store.SubmissionRepo.On("Count", mock.Anything, mock.MatchedBy(func(f persistence.SubmissionFilter) bool {
		return f.Limit == DefaultPageSize && f.SubmittedFrom != nil
	})).Return(0, errors.New("connection reset"))

	listing := NewListing(store, nil)

	_, err := listing.List(t.Context(), manager, ListQuery{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to count submissions")
	assert.Equal(t, KindInternal, KindOf(err))

	store.SubmissionRepo.AssertExpectations(t)
}

func ptr[T any](v T) *T {
	return &v
}
