package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/catalog"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/events"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/mocks"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/models"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/persistence/file"
)

func TestWorkflow_Create(t *testing.T) {
	env := newTestEnv(t)

	submission := env.submit(t)

	assert.NotEmpty(t, submission.ID)
	assert.Equal(t, models.StatusPending, submission.Status)
	assert.Equal(t, models.PriorityNormal, submission.Priority)
	assert.Equal(t, operator.ID, submission.OperatorID)
	assert.Equal(t, int64(1), submission.Version)
	assert.Nil(t, submission.AnalystID)
	requireWorkflowInvariants(t, submission)

	stored := env.stored(t, submission.ID)
	assert.Equal(t, submission.DocumentIDs, stored.DocumentIDs)

	assert.Equal(t, []events.EventType{events.SubmissionCreatedEvent}, env.publisher.Types())
}

func TestWorkflow_Create_Validation(t *testing.T) {
	tests := []struct {
		name  string
		input CreateSubmissionInput
		field string
	}{
		{
			name:  "missing name",
			input: CreateSubmissionInput{DocumentNumber: "1"},
			field: "name",
		},
		{
			name:  "blank document number",
			input: CreateSubmissionInput{Name: "x", DocumentNumber: "   "},
			field: "document_number",
		},
		{
			name:  "unknown priority",
			input: CreateSubmissionInput{Name: "x", DocumentNumber: "1", Priority: "whenever"},
			field: "priority",
		},
		{
			name:  "unknown cadastro type",
			input: CreateSubmissionInput{Name: "x", DocumentNumber: "1", CadastroType: "aeronave"},
			field: "cadastro_type",
		},
		{
			name: "fields outside schema",
			input: CreateSubmissionInput{
				Name: "x", DocumentNumber: "1", CadastroType: "veiculo",
				Fields: map[string]any{"axles": 1},
			},
			field: "fields",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			_, err := env.workflow.Create(t.Context(), operator, tt.input)
			require.Error(t, err)

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.field, validationErr.Field)
			assert.Equal(t, KindValidation, KindOf(err))
			assert.Empty(t, env.publisher.Types())
		})
	}
}

func TestWorkflow_HappyPath(t *testing.T) {
	env := newTestEnv(t)
	submission := env.submit(t)

	reviewing, err := env.workflow.StartReview(t.Context(), analyst, submission.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInReview, reviewing.Status)
	require.NotNil(t, reviewing.AnalystID)
	assert.Equal(t, analyst.ID, *reviewing.AnalystID)
	require.NotNil(t, reviewing.ReviewStartedAt)
	requireWorkflowInvariants(t, reviewing)

	approved, err := env.workflow.Approve(t.Context(), analyst, submission.ID, "looks good")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.Status)
	assert.NotNil(t, approved.ConcludedAt)
	assert.Nil(t, approved.RejectionReason)
	require.NotNil(t, approved.ReviewNote)
	assert.Equal(t, "looks good", *approved.ReviewNote)
	assert.Equal(t, int64(3), approved.Version)
	requireWorkflowInvariants(t, approved)

	assert.Equal(t, []events.EventType{
		events.SubmissionCreatedEvent,
		events.SubmissionUpdatedEvent,
		events.SubmissionUpdatedEvent,
	}, env.publisher.Types())

	history, err := env.workflow.History(t.Context(), submission.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, models.StatusApproved, history[2].ToStatus)
}

func TestWorkflow_CorrectionLoop(t *testing.T) {
	env := newTestEnv(t)
	submission := env.submit(t)

	returned, err := env.workflow.Return(t.Context(), analyst, submission.ID, "missing CNH", "missing_document")
	require.NoError(t, err)
	assert.Equal(t, models.StatusReturned, returned.Status)
	require.NotNil(t, returned.RejectionReason)
	assert.Equal(t, "missing CNH", *returned.RejectionReason)
	require.NotNil(t, returned.RejectionCategory)
	assert.Equal(t, "missing_document", *returned.RejectionCategory)
	assert.NotNil(t, returned.ReturnedAt)
	requireWorkflowInvariants(t, returned)

	resubmitted, err := env.workflow.Resubmit(t.Context(), operator, submission.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, resubmitted.Status)
	assert.Nil(t, resubmitted.AnalystID)
	assert.Nil(t, resubmitted.ReviewStartedAt)
	assert.Nil(t, resubmitted.ConcludedAt)
	assert.Nil(t, resubmitted.ReturnedAt)
	assert.Nil(t, resubmitted.RejectionReason)
	assert.Nil(t, resubmitted.RejectionCategory)
	assert.True(t, resubmitted.SubmittedAt.After(submission.SubmittedAt))
	requireWorkflowInvariants(t, resubmitted)

	assert.Equal(t, []events.EventType{
		events.SubmissionCreatedEvent,
		events.SubmissionReturnedEvent,
		events.SubmissionResubmittedEvent,
	}, env.publisher.Types())
}

func TestWorkflow_StartReviewTwice(t *testing.T) {
	env := newTestEnv(t)
	submission := env.submit(t)

	_, err := env.workflow.StartReview(t.Context(), analyst, submission.ID)
	require.NoError(t, err)

	_, err = env.workflow.StartReview(t.Context(), analyst, submission.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NotErrorIs(t, err, ErrTerminalState)
	assert.Equal(t, KindInvalidTransition, KindOf(err))

	var transitionErr *TransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, models.StatusInReview, transitionErr.Current)
	assert.Equal(t, models.OperationStartReview, transitionErr.Operation)
}

func TestWorkflow_TerminalImmutability(t *testing.T) {
	env := newTestEnv(t)
	submission := env.submit(t)

	_, err := env.workflow.Approve(t.Context(), analyst, submission.ID, "")
	require.NoError(t, err)

	before := env.stored(t, submission.ID)
	newName := "Outro Nome"

	attempts := map[string]func() error{
		"reject": func() error {
			_, err := env.workflow.Reject(t.Context(), analyst, submission.ID, "fraude", "")

			return err
		},
		"return": func() error {
			_, err := env.workflow.Return(t.Context(), analyst, submission.ID, "faltou doc", "")

			return err
		},
		"start review": func() error {
			_, err := env.workflow.StartReview(t.Context(), analyst, submission.ID)

			return err
		},
		"update fields": func() error {
			_, err := env.workflow.UpdateFields(t.Context(), operator, submission.ID, models.SubmissionPatch{Name: &newName})

			return err
		},
		"reject without reason": func() error {
			_, err := env.workflow.Reject(t.Context(), analyst, submission.ID, "", "")

			return err
		},
		"return without reason": func() error {
			_, err := env.workflow.Return(t.Context(), analyst, submission.ID, " ", "")

			return err
		},
		"empty update": func() error {
			_, err := env.workflow.UpdateFields(t.Context(), operator, submission.ID, models.SubmissionPatch{})

			return err
		},
	}

	for name, attempt := range attempts {
		t.Run(name, func(t *testing.T) {
			err := attempt()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrTerminalState)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, KindTerminalState, KindOf(err))
		})
	}

	assert.Equal(t, before, env.stored(t, submission.ID))
}

func TestWorkflow_FastTrackFillsReviewStart(t *testing.T) {
	ops := map[string]func(env *testEnv, id string) (*models.Submission, error){
		"approve": func(env *testEnv, id string) (*models.Submission, error) {
			return env.workflow.Approve(t.Context(), analyst, id, "")
		},
		"reject": func(env *testEnv, id string) (*models.Submission, error) {
			return env.workflow.Reject(t.Context(), analyst, id, "documento ilegível", "document_quality")
		},
		"return": func(env *testEnv, id string) (*models.Submission, error) {
			return env.workflow.Return(t.Context(), analyst, id, "foto borrada", "")
		},
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t)
			submission := env.submit(t)

			updated, err := op(env, submission.ID)
			require.NoError(t, err)
			assert.NotNil(t, updated.ReviewStartedAt)
			require.NotNil(t, updated.AnalystID)
			assert.Equal(t, analyst.ID, *updated.AnalystID)
			requireWorkflowInvariants(t, updated)
		})
	}
}

func TestWorkflow_RejectAndReturnRequireReason(t *testing.T) {
	env := newTestEnv(t)
	submission := env.submit(t)

	_, err := env.workflow.Reject(t.Context(), analyst, submission.ID, "  ", "fraud")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.workflow.Return(t.Context(), analyst, submission.ID, "", "")
	assert.ErrorIs(t, err, ErrValidation)

	assert.Equal(t, models.StatusPending, env.stored(t, submission.ID).Status)
}

func TestWorkflow_ConcurrentApprovals(t *testing.T) {
	env := newTestEnv(t)
	submission := env.submit(t)

	_, err := env.workflow.StartReview(t.Context(), analyst, submission.ID)
	require.NoError(t, err)

	const racers = 2

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []error
	)

	for range racers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := env.workflow.Approve(t.Context(), analyst, submission.ID, "ok")

			mu.Lock()
			results = append(results, err)
			mu.Unlock()
		}()
	}

	wg.Wait()

	var succeeded, conflicted int

	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrInvalidTransition):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicted)
	assert.Equal(t, models.StatusApproved, env.stored(t, submission.ID).Status)
}

func TestWorkflow_ResubmitOwnership(t *testing.T) {
	tests := []struct {
		name    string
		actor   models.Actor
		wantErr error
	}{
		{name: "owner", actor: operator},
		{name: "other operator", actor: other, wantErr: ErrForbidden},
		{name: "manager without capability", actor: manager, wantErr: ErrForbidden},
		{
			name: "manager with capability",
			actor: models.Actor{
				ID: "mg-2", Role: models.RoleManager,
				Capabilities: []models.Capability{models.CapabilityResubmitAny},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			submission := env.submit(t)

			_, err := env.workflow.Return(t.Context(), analyst, submission.ID, "faltou CNH", "")
			require.NoError(t, err)

			_, err = env.workflow.Resubmit(t.Context(), tt.actor, submission.ID)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, models.StatusReturned, env.stored(t, submission.ID).Status)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, models.StatusPending, env.stored(t, submission.ID).Status)
		})
	}
}

func TestWorkflow_AuthorizerDenies(t *testing.T) {
	env := newTestEnv(t)
	submission := env.submit(t)

	_, err := env.workflow.Approve(t.Context(), operator, submission.ID, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, KindForbidden, KindOf(err))

	denied := errors.New("gateway says no")
	workflow := NewWorkflow(env.persistence, catalog.Default(), nil,
		WithAuthorizer(AuthorizerFunc(func(_ context.Context, _ models.Actor, _ Action) error {
			return denied
		})))

	_, err = workflow.StartReview(t.Context(), analyst, submission.ID)
	assert.Same(t, denied, err)
	assert.Equal(t, models.StatusPending, env.stored(t, submission.ID).Status)
}

func TestWorkflow_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.workflow.StartReview(t.Context(), analyst, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.workflow.Get(t.Context(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.workflow.History(t.Context(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWorkflow_UpdateFields(t *testing.T) {
	env := newTestEnv(t)
	submission := env.submit(t)

	urgent := models.PriorityUrgent
	plate := "XYZ9K87"

	updated, err := env.workflow.UpdateFields(t.Context(), operator, submission.ID, models.SubmissionPatch{
		Priority: &urgent,
		Plate:    &plate,
		Fields:   map[string]any{"cnh_category": "E"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityUrgent, updated.Priority)
	assert.Equal(t, plate, updated.Plate)
	assert.Equal(t, models.StatusPending, updated.Status)
	assert.Greater(t, updated.Version, submission.Version)

	published := env.publisher.events[len(env.publisher.events)-1]
	updatedEvent, ok := published.(*events.SubmissionUpdated)
	require.True(t, ok)
	assert.Equal(t, updated.Status, updatedEvent.PreviousStatus)

	_, err = env.workflow.UpdateFields(t.Context(), operator, submission.ID, models.SubmissionPatch{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.workflow.UpdateFields(t.Context(), operator, submission.ID, models.SubmissionPatch{
		Fields: map[string]any{"cnh_category": "Z"},
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestWorkflow_PublishFailureDoesNotUndoCommit(t *testing.T) {
	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	persistence := file.NewPersistence(t.TempDir())
	workflow := NewWorkflow(persistence, catalog.Default(), bus)

	submission, err := workflow.Create(t.Context(), operator, CreateSubmissionInput{Name: "Maria", DocumentNumber: "987"})
	require.NoError(t, err)

	approved, err := workflow.Approve(t.Context(), analyst, submission.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.Status)

	stored, err := persistence.Submissions().GetByID(t.Context(), submission.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, stored.Status)

	bus.AssertNumberOfCalls(t, "Publish", 2)
	bus.AssertCalled(t, "Publish", mock.Anything, submission.ID, mock.Anything)
}

func TestWorkflow_EveryPathKeepsInvariants(t *testing.T) {
	env := newTestEnv(t)

	paths := [][]func(id string) (*models.Submission, error){
		{
			func(id string) (*models.Submission, error) { return env.workflow.StartReview(t.Context(), analyst, id) },
			func(id string) (*models.Submission, error) {
				return env.workflow.Reject(t.Context(), analyst, id, "inconsistente", "")
			},
		},
		{
			func(id string) (*models.Submission, error) { return env.workflow.StartReview(t.Context(), analyst, id) },
			func(id string) (*models.Submission, error) {
				return env.workflow.Return(t.Context(), analyst, id, "falta comprovante", "")
			},
			func(id string) (*models.Submission, error) { return env.workflow.Resubmit(t.Context(), operator, id) },
			func(id string) (*models.Submission, error) { return env.workflow.StartReview(t.Context(), analyst, id) },
			func(id string) (*models.Submission, error) { return env.workflow.Approve(t.Context(), analyst, id, "") },
		},
	}

	for _, path := range paths {
		submission := env.submit(t)

		for _, step := range path {
			updated, err := step(submission.ID)
			require.NoError(t, err)
			requireWorkflowInvariants(t, updated)
			requireWorkflowInvariants(t, env.stored(t, submission.ID))
		}
	}
}
