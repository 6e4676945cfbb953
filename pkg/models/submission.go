// Package models defines the core domain models for the cadastro submission workflow.
package models

import (
	"slices"
	"time"
)

// SubmissionStatus represents the lifecycle state of a submission.
type SubmissionStatus string

const (
	StatusPending  SubmissionStatus = "pending"   // Waiting for an analyst
	StatusInReview SubmissionStatus = "in_review" // Picked up by an analyst
	StatusApproved SubmissionStatus = "approved"  // Terminal
	StatusRejected SubmissionStatus = "rejected"  // Terminal
	StatusReturned SubmissionStatus = "returned"  // Sent back to the operator for correction
)

// Statuses lists every known status in lifecycle order.
var Statuses = []SubmissionStatus{
	StatusPending,
	StatusInReview,
	StatusApproved,
	StatusRejected,
	StatusReturned,
}

// EditableStatuses are the statuses in which business fields may change.
var EditableStatuses = []SubmissionStatus{StatusPending, StatusInReview, StatusReturned}

// IsValid reports whether s is a known status.
func (s SubmissionStatus) IsValid() bool {
	return slices.Contains(Statuses, s)
}

// IsTerminal reports whether no further transition is possible from s.
func (s SubmissionStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// IsEditable reports whether business fields may be changed in s.
func (s SubmissionStatus) IsEditable() bool {
	return slices.Contains(EditableStatuses, s)
}

// Priority affects queue ordering only.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// IsValid reports whether p is a known priority.
func (p Priority) IsValid() bool {
	return p == PriorityNormal || p == PriorityHigh || p == PriorityUrgent
}

// Rank orders priorities for the queue, higher first.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 2
	case PriorityHigh:
		return 1
	default:
		return 0
	}
}

// Submission is a registration packet moving through the review workflow.
type Submission struct {
	ID           string           `json:"id"`
	Status       SubmissionStatus `json:"status"`
	Priority     Priority         `json:"priority"`
	CadastroType string           `json:"cadastro_type"`

	OperatorID string  `json:"operator_id"`
	AnalystID  *string `json:"analyst_id"`

	SubmittedAt     time.Time  `json:"submitted_at"`
	ReviewStartedAt *time.Time `json:"review_started_at"`
	ConcludedAt     *time.Time `json:"concluded_at"`
	ReturnedAt      *time.Time `json:"returned_at"`

	RejectionReason   *string `json:"rejection_reason"`
	RejectionCategory *string `json:"rejection_category"`
	ReviewNote        *string `json:"review_note,omitempty"`

	SubmissionDetails

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SubmissionDetails holds the business fields. They are opaque to the workflow engine.
type SubmissionDetails struct {
	Name           string         `json:"name"`
	DocumentNumber string         `json:"document_number"`
	Plate          string         `json:"plate,omitempty"`
	DocumentIDs    []string       `json:"document_ids"`
	Fields         map[string]any `json:"fields,omitempty"`
}

// SubmissionPatch is a partial update of business fields. Nil members are left untouched.
type SubmissionPatch struct {
	Priority       *Priority      `json:"priority,omitempty"`
	Name           *string        `json:"name,omitempty"`
	DocumentNumber *string        `json:"document_number,omitempty"`
	Plate          *string        `json:"plate,omitempty"`
	DocumentIDs    []string       `json:"document_ids,omitempty"`
	Fields         map[string]any `json:"fields,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p SubmissionPatch) IsEmpty() bool {
	return p.Priority == nil && p.Name == nil && p.DocumentNumber == nil &&
		p.Plate == nil && p.DocumentIDs == nil && p.Fields == nil
}

// ApplyTo writes the patch onto s. Fields are merged key by key.
func (p SubmissionPatch) ApplyTo(s *Submission) {
	if p.Priority != nil {
		s.Priority = *p.Priority
	}

	if p.Name != nil {
		s.Name = *p.Name
	}

	if p.DocumentNumber != nil {
		s.DocumentNumber = *p.DocumentNumber
	}

	if p.Plate != nil {
		s.Plate = *p.Plate
	}

	if p.DocumentIDs != nil {
		s.DocumentIDs = slices.Clone(p.DocumentIDs)
	}

	if p.Fields != nil {
		if s.Fields == nil {
			s.Fields = make(map[string]any, len(p.Fields))
		}

		for k, v := range p.Fields {
			if v == nil {
				delete(s.Fields, k)

				continue
			}

			s.Fields[k] = v
		}
	}
}

// Clone returns a deep copy of the submission.
func (s *Submission) Clone() *Submission {
	if s == nil {
		return nil
	}

	c := *s
	c.AnalystID = clonePtr(s.AnalystID)
	c.ReviewStartedAt = clonePtr(s.ReviewStartedAt)
	c.ConcludedAt = clonePtr(s.ConcludedAt)
	c.ReturnedAt = clonePtr(s.ReturnedAt)
	c.RejectionReason = clonePtr(s.RejectionReason)
	c.RejectionCategory = clonePtr(s.RejectionCategory)
	c.ReviewNote = clonePtr(s.ReviewNote)
	c.DocumentIDs = slices.Clone(s.DocumentIDs)

	if s.Fields != nil {
		c.Fields = make(map[string]any, len(s.Fields))
		for k, v := range s.Fields {
			c.Fields[k] = v
		}
	}

	return &c
}

// Projection is the full read model sent to real-time clients.
func (s *Submission) Projection() SubmissionProjection {
	return SubmissionProjection(*s.Clone())
}

// SubmissionProjection is the fixed shape carried by every domain event.
// Clients replace their local copy wholesale when they receive one.
type SubmissionProjection Submission

// StatusChange is one row of a submission's status history.
type StatusChange struct {
	ID           string           `json:"id"`
	SubmissionID string           `json:"submission_id"`
	Operation    Operation        `json:"operation"`
	FromStatus   SubmissionStatus `json:"from_status"`
	ToStatus     SubmissionStatus `json:"to_status"`
	ActorID      string           `json:"actor_id"`
	Reason       *string          `json:"reason,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}

	v := *p

	return &v
}
