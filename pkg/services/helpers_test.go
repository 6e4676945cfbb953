package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/catalog"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/eventbus"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/events"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/models"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/persistence"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/persistence/file"
)

var (
	operator = models.Actor{ID: "op-1", Name: "Ana Operadora", Role: models.RoleOperator}
	other    = models.Actor{ID: "op-2", Name: "Bruno", Role: models.RoleOperator}
	analyst  = models.Actor{ID: "an-1", Name: "Carla Analista", Role: models.RoleAnalyst}
	manager  = models.Actor{ID: "mg-1", Name: "Davi", Role: models.RoleManager}
)

// stepClock returns a strictly increasing time on every call.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(time.Second)

	return c.now
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}

	p.events = append(p.events, event.(events.Event))

	return nil
}

func (p *recordingPublisher) Types() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()

	types := make([]events.EventType, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.GetType())
	}

	return types
}

type testEnv struct {
	persistence persistence.Persistence
	publisher   *recordingPublisher
	clock       *stepClock
	workflow    *Workflow
	checklist   *Checklist
	delays      *Delays
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		persistence: file.NewPersistence(t.TempDir()),
		publisher:   &recordingPublisher{},
		clock:       newStepClock(),
	}

	opts := []Option{WithClock(env.clock.Now)}
	env.workflow = NewWorkflow(env.persistence, catalog.Default(), env.publisher, opts...)
	env.checklist = NewChecklist(env.persistence, catalog.Default(), opts...)
	env.delays = NewDelays(env.persistence, env.publisher, opts...)

	return env
}

func (env *testEnv) submit(t *testing.T) *models.Submission {
	t.Helper()

	submission, err := env.workflow.Create(t.Context(), operator, CreateSubmissionInput{
		CadastroType:   "motorista",
		Name:           "João da Silva",
		DocumentNumber: "123.456.789-00",
		Plate:          "ABC1D23",
		DocumentIDs:    []string{"doc-cnh", "doc-cpf"},
	})
	require.NoError(t, err)

	return submission
}

func (env *testEnv) stored(t *testing.T, id string) *models.Submission {
	t.Helper()

	submission, err := env.persistence.Submissions().GetByID(t.Context(), id)
	require.NoError(t, err)

	return submission
}

// requireWorkflowInvariants checks the timestamp invariants that must hold in every state.
func requireWorkflowInvariants(t *testing.T, s *models.Submission) {
	t.Helper()

	require.Equal(t, s.Status.IsTerminal(), s.ConcludedAt != nil, "concluded_at vs status %s", s.Status)
	require.Equal(t, s.Status == models.StatusPending, s.ReviewStartedAt == nil, "review_started_at vs status %s", s.Status)
}
