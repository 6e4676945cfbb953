package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/models"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/persistence"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Scope string

const (
	ScopeAll  Scope = "all"
	ScopeMine Scope = "mine"
)

// ListQuery is the caller-facing filter set of a listing request.
type ListQuery struct {
	Statuses     []models.SubmissionStatus
	Priority     models.Priority
	OperatorID   string
	AnalystID    string
	CadastroType string
	Search       string
	From         *time.Time
	To           *time.Time
	Scope        Scope
	Page         int
	PageSize     int
}

// Page is one page of submissions plus the total matching the same filters.
type Page struct {
	Items    []*models.Submission `json:"items"`
	Total    int                  `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
}

// DateDefaultPolicy fills the submitted_at window of a query that has none.
type DateDefaultPolicy interface {
	Apply(query ListQuery, now time.Time) (from, to *time.Time)
}

// TodayDefaultPolicy keeps queue views small: without an explicit range and
// without free text, only submissions of the current day in Location are listed.
type TodayDefaultPolicy struct {
	Location *time.Location
}

func (p TodayDefaultPolicy) Apply(query ListQuery, now time.Time) (*time.Time, *time.Time) {
	if query.From != nil || query.To != nil || strings.TrimSpace(query.Search) != "" {
		return query.From, query.To
	}

	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}

	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)

	return &start, &end
}

// Listing is the read path used by queues and dashboards.
type Listing struct {
	options

	persistence persistence.Persistence
	policy      DateDefaultPolicy
}

// NewListing creates the listing service. A nil policy means today in UTC.
func NewListing(persistence persistence.Persistence, policy DateDefaultPolicy, opts ...Option) *Listing {
	if policy == nil {
		policy = TodayDefaultPolicy{Location: time.UTC}
	}

	return &Listing{
		options:     newOptions("listing", opts),
		persistence: persistence,
		policy:      policy,
	}
}

// List runs the page query and the count query concurrently with identical filters.
func (l *Listing) List(ctx context.Context, actor models.Actor, query ListQuery) (*Page, error) {
	filter, page, pageSize, err := l.filter(actor, query)
	if err != nil {
		return nil, err
	}

	result := &Page{Page: page, PageSize: pageSize, Items: []*models.Submission{}}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		items, err := l.persistence.Submissions().List(gctx, filter)
		if err != nil {
			return fmt.Errorf("failed to list submissions: %w", err)
		}

		if items != nil {
			result.Items = items
		}

		return nil
	})

	g.Go(func() error {
		total, err := l.persistence.Submissions().Count(gctx, filter)
		if err != nil {
			return fmt.Errorf("failed to count submissions: %w", err)
		}

		result.Total = total

		return nil
	})

	err = g.Wait()
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (l *Listing) filter(actor models.Actor, query ListQuery) (persistence.SubmissionFilter, int, int, error) {
	page := query.Page
	if page < 1 {
		page = 1
	}

	pageSize := query.PageSize
	switch {
	case pageSize <= 0:
		pageSize = DefaultPageSize
	case pageSize > MaxPageSize:
		pageSize = MaxPageSize
	}

	for _, status := range query.Statuses {
		if !status.IsValid() {
			return persistence.SubmissionFilter{}, 0, 0,
				NewValidationError("status", fmt.Sprintf("unknown status %q", status), nil)
		}
	}

	if query.Priority != "" && !query.Priority.IsValid() {
		return persistence.SubmissionFilter{}, 0, 0,
			NewValidationError("priority", fmt.Sprintf("unknown priority %q", query.Priority), nil)
	}

	if query.From != nil && query.To != nil && query.To.Before(*query.From) {
		return persistence.SubmissionFilter{}, 0, 0, NewValidationError("to", "must not be before from", nil)
	}

	filter := persistence.SubmissionFilter{
		Statuses:     query.Statuses,
		Priority:     query.Priority,
		OperatorID:   query.OperatorID,
		AnalystID:    query.AnalystID,
		CadastroType: query.CadastroType,
		Search:       strings.TrimSpace(query.Search),
		Offset:       (page - 1) * pageSize,
		Limit:        pageSize,
	}

	switch query.Scope {
	case "", ScopeAll:
	case ScopeMine:
		if actor.ID == "" {
			return persistence.SubmissionFilter{}, 0, 0, NewValidationError("scope", "mine requires an identified actor", nil)
		}

		filter.ParticipantID = actor.ID
	default:
		return persistence.SubmissionFilter{}, 0, 0,
			NewValidationError("scope", fmt.Sprintf("unknown scope %q", query.Scope), nil)
	}

	filter.SubmittedFrom, filter.SubmittedTo = l.policy.Apply(query, l.clock())

	return filter, page, pageSize, nil
}
