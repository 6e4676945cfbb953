package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/models"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/persistence"
)

func TestNewPersistence(t *testing.T) {
	p := NewPersistence("/tmp/test")
	fp := p.(*Persistence)
	assert.Equal(t, "/tmp/test", fp.store.root)

	p = NewPersistence("file:///tmp/test")
	fp = p.(*Persistence)
	assert.Equal(t, "/tmp/test", fp.store.root)
}

func TestPersistence_HealthCheck(t *testing.T) {
	assert.NoError(t, NewPersistence(t.TempDir()).HealthCheck(t.Context()))
	assert.Error(t, NewPersistence(t.TempDir()+"/missing").HealthCheck(t.Context()))
}

func testSubmission(id string, submittedAt time.Time) *models.Submission {
	return &models.Submission{
		ID:           id,
		Status:       models.StatusPending,
		Priority:     models.PriorityNormal,
		CadastroType: "motorista",
		OperatorID:   "operator-1",
		SubmittedAt:  submittedAt,
		SubmissionDetails: models.SubmissionDetails{
			Name:           "Carlos Silva",
			DocumentNumber: "52998224725",
			Plate:          "ABC1D23",
		},
		Version:   1,
		CreatedAt: submittedAt,
		UpdatedAt: submittedAt,
	}
}

func TestSubmissionRepository_CompareAndSwap(t *testing.T) {
	repo := NewPersistence(t.TempDir()).Submissions()
	ctx := t.Context()

	require.NoError(t, repo.Create(ctx, testSubmission("sub-1", time.Now())))
	assert.ErrorIs(t, repo.Create(ctx, testSubmission("sub-1", time.Now())), persistence.ErrSubmissionAlreadyExists)

	start, _ := models.NewTransition(models.OperationStartReview, "analyst-1", time.Now())

	updated, err := repo.CompareAndSwap(ctx, "sub-1", models.StatusPending, start)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInReview, updated.Status)
	assert.Equal(t, int64(2), updated.Version)

	_, err = repo.CompareAndSwap(ctx, "sub-1", models.StatusPending, start)
	require.ErrorIs(t, err, persistence.ErrStatusConflict)

	var conflict *persistence.StatusConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, models.StatusInReview, conflict.Current)

	_, err = repo.CompareAndSwap(ctx, "missing", models.StatusPending, start)
	assert.ErrorIs(t, err, persistence.ErrSubmissionNotFound)

	_, err = repo.GetByID(ctx, "../sub-1")
	assert.ErrorIs(t, err, persistence.ErrSubmissionNotFound)

	history, err := repo.History(ctx, "sub-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.OperationStartReview, history[1].Operation)
}

func TestSubmissionRepository_FailedHistoryLeavesSubmissionUntouched(t *testing.T) {
	root := t.TempDir()
	repo := NewPersistence(root).Submissions()
	ctx := t.Context()

	require.NoError(t, repo.Create(ctx, testSubmission("sub-1", time.Now())))

	historyPath := filepath.Join(root, historyDir, "sub-1.json")
	require.NoError(t, os.Remove(historyPath))
	require.NoError(t, os.Mkdir(historyPath, 0750))

	start, _ := models.NewTransition(models.OperationStartReview, "analyst-1", time.Now())

	_, err := repo.CompareAndSwap(ctx, "sub-1", models.StatusPending, start)
	require.Error(t, err)

	stored, err := repo.GetByID(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
	assert.Equal(t, int64(1), stored.Version)
	assert.Nil(t, stored.ReviewStartedAt)
}

func TestSubmissionRepository_ConcurrentSwapsHaveOneWinner(t *testing.T) {
	repo := NewPersistence(t.TempDir()).Submissions()
	ctx := t.Context()

	require.NoError(t, repo.Create(ctx, testSubmission("sub-1", time.Now())))

	const workers = 10

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			approve, _ := models.NewTransition(models.OperationApprove, "analyst-1", time.Now())

			_, err := repo.CompareAndSwap(ctx, "sub-1", models.StatusPending, approve)
			if err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, winners)
}

func TestSubmissionRepository_ListOrdersAndPages(t *testing.T) {
	repo := NewPersistence(t.TempDir()).Submissions()
	ctx := t.Context()
	now := time.Now()

	a := testSubmission("a", now.Add(-time.Minute))
	b := testSubmission("b", now.Add(-2*time.Minute))
	b.Priority = models.PriorityUrgent
	c := testSubmission("c", now)
	c.Plate = "XYZ9K88"

	for _, s := range []*models.Submission{a, b, c} {
		require.NoError(t, repo.Create(ctx, s))
	}

	all, err := repo.List(ctx, persistence.SubmissionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"b", "c", "a"}, []string{all[0].ID, all[1].ID, all[2].ID})

	page, err := repo.List(ctx, persistence.SubmissionFilter{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "c", page[0].ID)

	beyond, err := repo.List(ctx, persistence.SubmissionFilter{Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, beyond)

	found, err := repo.Count(ctx, persistence.SubmissionFilter{Search: "xyz9"})
	require.NoError(t, err)
	assert.Equal(t, 1, found)

	counts, err := repo.CountByStatus(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, counts[models.StatusPending])
}

func TestSubmissionRepository_UpdateFieldsRejectsTerminal(t *testing.T) {
	repo := NewPersistence(t.TempDir()).Submissions()
	ctx := t.Context()

	require.NoError(t, repo.Create(ctx, testSubmission("sub-1", time.Now())))

	plate := "QWE4R56"

	updated, err := repo.UpdateFields(ctx, "sub-1", models.SubmissionPatch{Plate: &plate}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, plate, updated.Plate)
	assert.Equal(t, int64(2), updated.Version)

	reject, _ := models.NewTransition(models.OperationReject, "analyst-1", time.Now())
	reject.Reason = "documento falso"

	_, err = repo.CompareAndSwap(ctx, "sub-1", models.StatusPending, reject)
	require.NoError(t, err)

	_, err = repo.UpdateFields(ctx, "sub-1", models.SubmissionPatch{Plate: &plate}, time.Now())
	assert.ErrorIs(t, err, persistence.ErrStatusConflict)
}

func TestChecklistRepository(t *testing.T) {
	repo := NewPersistence(t.TempDir()).Checklists()
	ctx := t.Context()
	now := time.Now()

	items := []*models.ChecklistItem{
		{ID: "i1", SubmissionID: "sub-1", Position: 1, ItemName: "CNH válida", Mandatory: true, CreatedAt: now},
		{ID: "i2", SubmissionID: "sub-1", Position: 2, ItemName: "CRLV", CreatedAt: now},
	}

	require.NoError(t, repo.Initialize(ctx, "sub-1", "motorista", items, now))
	assert.ErrorIs(t, repo.Initialize(ctx, "sub-1", "motorista", items, now), persistence.ErrChecklistInitialized)

	extra := &models.ChecklistItem{ID: "i3", SubmissionID: "sub-1", ItemName: "Foto", CreatedAt: now}
	require.NoError(t, repo.Append(ctx, extra))
	assert.Equal(t, 3, extra.Position)

	other := &models.ChecklistItem{ID: "o1", SubmissionID: "sub-2", ItemName: "Foto", CreatedAt: now}
	require.NoError(t, repo.Append(ctx, other))
	assert.Equal(t, 1, other.Position)
	assert.ErrorIs(t, repo.Initialize(ctx, "sub-2", "motorista", nil, now), persistence.ErrChecklistInitialized)

	listed, err := repo.Items(ctx, "sub-1")
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, []string{"i1", "i2", "i3"}, []string{listed[0].ID, listed[1].ID, listed[2].ID})

	require.NoError(t, repo.DeleteItem(ctx, "i2"))
	assert.ErrorIs(t, repo.DeleteItem(ctx, "i2"), persistence.ErrChecklistItemNotFound)

	_, err = repo.GetItem(ctx, "i2")
	assert.ErrorIs(t, err, persistence.ErrChecklistItemNotFound)
}

func TestChecklistRepository_InitializeAfterAllItemsRemoved(t *testing.T) {
	repo := NewPersistence(t.TempDir()).Checklists()
	ctx := t.Context()
	now := time.Now()

	require.NoError(t, repo.Initialize(ctx, "sub-1", "motorista", []*models.ChecklistItem{
		{ID: "i1", SubmissionID: "sub-1", Position: 1, ItemName: "CNH válida", CreatedAt: now},
		{ID: "i2", SubmissionID: "sub-1", Position: 2, ItemName: "CRLV", CreatedAt: now},
	}, now))

	require.NoError(t, repo.DeleteItem(ctx, "i1"))
	require.NoError(t, repo.DeleteItem(ctx, "i2"))

	require.NoError(t, repo.Initialize(ctx, "sub-1", "veiculo", []*models.ChecklistItem{
		{ID: "v1", SubmissionID: "sub-1", Position: 1, ItemName: "CRLV", CreatedAt: now},
	}, now))

	listed, err := repo.Items(ctx, "sub-1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "v1", listed[0].ID)
}

func TestDelayRepository(t *testing.T) {
	repo := NewPersistence(t.TempDir()).Delays()
	ctx := t.Context()
	now := time.Now()

	require.NoError(t, repo.Create(ctx, &models.Delay{ID: "d1", SubmissionID: "sub-1", Reason: "a", CreatedAt: now.Add(-time.Minute)}))
	require.NoError(t, repo.Create(ctx, &models.Delay{ID: "d2", SubmissionID: "sub-1", Reason: "b", CreatedAt: now}))
	require.NoError(t, repo.MarkNotified(ctx, "d1"))

	delays, err := repo.ListBySubmission(ctx, "sub-1")
	require.NoError(t, err)
	require.Len(t, delays, 2)
	assert.Equal(t, "d2", delays[0].ID)
	assert.True(t, delays[1].Notified)

	assert.ErrorIs(t, repo.MarkNotified(ctx, "nope"), persistence.ErrDelayNotFound)

	empty, err := repo.ListBySubmission(ctx, "sub-9")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
