package models

import (
	"slices"
	"time"
)

// Operation names a workflow operation.
type Operation string

const (
	OperationCreate      Operation = "create"
	OperationStartReview Operation = "start_review"
	OperationApprove     Operation = "approve"
	OperationReject      Operation = "reject"
	OperationReturn      Operation = "return"
	OperationResubmit    Operation = "resubmit"
	OperationUpdate      Operation = "update"
)

// TransitionRule is the guard of a status-changing operation.
type TransitionRule struct {
	From []SubmissionStatus
	To   SubmissionStatus
}

// Allows reports whether the rule may fire from status.
func (r TransitionRule) Allows(status SubmissionStatus) bool {
	return slices.Contains(r.From, status)
}

// TransitionRules is the submission state machine.
var TransitionRules = map[Operation]TransitionRule{
	OperationStartReview: {From: []SubmissionStatus{StatusPending}, To: StatusInReview},
	OperationApprove:     {From: []SubmissionStatus{StatusPending, StatusInReview}, To: StatusApproved},
	OperationReject:      {From: []SubmissionStatus{StatusPending, StatusInReview}, To: StatusRejected},
	OperationReturn:      {From: []SubmissionStatus{StatusPending, StatusInReview}, To: StatusReturned},
	OperationResubmit:    {From: []SubmissionStatus{StatusReturned}, To: StatusPending},
}

// Transition is the complete set of field changes a workflow operation makes.
// The file store applies it with Apply; the SQL store translates it into SET clauses.
type Transition struct {
	Operation Operation
	To        SubmissionStatus
	ActorID   string
	At        time.Time
	Reason    string
	Category  string
	Note      string
}

// NewTransition builds the transition for op. ok is false for operations that
// do not change status.
func NewTransition(op Operation, actorID string, at time.Time) (Transition, bool) {
	rule, ok := TransitionRules[op]
	if !ok {
		return Transition{}, false
	}

	return Transition{Operation: op, To: rule.To, ActorID: actorID, At: at}, true
}

// SetsAnalyst reports whether the transition records the acting analyst.
func (t Transition) SetsAnalyst() bool {
	return t.Operation != OperationResubmit
}

// StartsReview reports whether review_started_at is filled (only when still empty).
func (t Transition) StartsReview() bool {
	return t.Operation != OperationResubmit
}

// Concludes reports whether concluded_at is set.
func (t Transition) Concludes() bool {
	return t.To.IsTerminal()
}

// Returns reports whether returned_at is set.
func (t Transition) Returns() bool {
	return t.Operation == OperationReturn
}

// RecordsOutcome reports whether rejection reason and category are written.
func (t Transition) RecordsOutcome() bool {
	return t.Operation == OperationReject || t.Operation == OperationReturn
}

// Clears reports whether the transition wipes the previous review pass.
func (t Transition) Clears() bool {
	return t.Operation == OperationResubmit
}

// Apply mutates s as the transition prescribes. Callers are responsible for the
// status guard.
func (t Transition) Apply(s *Submission) {
	at := t.At

	s.Status = t.To
	s.UpdatedAt = at
	s.Version++

	if t.Clears() {
		s.AnalystID = nil
		s.ReviewStartedAt = nil
		s.ConcludedAt = nil
		s.ReturnedAt = nil
		s.RejectionReason = nil
		s.RejectionCategory = nil
		s.SubmittedAt = at

		return
	}

	if t.SetsAnalyst() {
		actor := t.ActorID
		s.AnalystID = &actor
	}

	if t.StartsReview() && s.ReviewStartedAt == nil {
		s.ReviewStartedAt = &at
	}

	if t.Concludes() {
		s.ConcludedAt = &at
	}

	if t.Returns() {
		s.ReturnedAt = &at
	}

	if t.RecordsOutcome() {
		reason := t.Reason
		s.RejectionReason = &reason

		if t.Category != "" {
			category := t.Category
			s.RejectionCategory = &category
		} else {
			s.RejectionCategory = nil
		}
	}

	if t.Note != "" {
		s.ReviewNote = MergeNote(s.ReviewNote, t.Note)
	}
}

// MergeNote appends note to an existing review note.
func MergeNote(existing *string, note string) *string {
	if existing == nil || *existing == "" {
		return &note
	}

	merged := *existing + "\n" + note

	return &merged
}
