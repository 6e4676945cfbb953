// Package events defines the domain events emitted after a submission change commits.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/models"
)

type EventType string

// Topic carries every submission event.
const Topic = "cadastro.submissions"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	SubmissionCreatedEvent     EventType = "submission.created"
	SubmissionUpdatedEvent     EventType = "submission.updated"
	SubmissionReturnedEvent    EventType = "submission.returned"
	SubmissionResubmittedEvent EventType = "submission.resubmitted"
	DelayAddedEvent            EventType = "submission.delay_added"
)

// Types lists every event type a subscriber may receive.
var Types = []EventType{
	SubmissionCreatedEvent,
	SubmissionUpdatedEvent,
	SubmissionReturnedEvent,
	SubmissionResubmittedEvent,
	DelayAddedEvent,
}

// Audience is a logical group of real-time clients.
type Audience string

const (
	AudienceOwner     Audience = "submission-owner"
	AudienceQueue     Audience = "queue-viewers"
	AudienceDashboard Audience = "management-dashboard"
)

// SubmissionAudiences receive every status or field change.
var SubmissionAudiences = []Audience{AudienceOwner, AudienceQueue, AudienceDashboard}

// Event is implemented by every domain event variant.
type Event interface {
	GetType() EventType
	Header() BaseEvent
}

type BaseEvent struct {
	ID           string                      `json:"id"`
	Type         EventType                   `json:"kind"`
	SubmissionID string                      `json:"submission_id"`
	Timestamp    time.Time                   `json:"occurred_at"`
	Submission   models.SubmissionProjection `json:"submission"`
	Audiences    []Audience                  `json:"audiences"`
}

// Header returns the envelope fields shared by all variants.
func (b BaseEvent) Header() BaseEvent {
	return b
}

// Version of the submission the event was built from.
func (b BaseEvent) Version() int64 {
	return b.Submission.Version
}

// OperatorID is the owner of the submission the event refers to.
func (b BaseEvent) OperatorID() string {
	return b.Submission.OperatorID
}

type SubmissionCreated struct {
	BaseEvent
}

func (e SubmissionCreated) GetType() EventType {
	return SubmissionCreatedEvent
}

type SubmissionUpdated struct {
	BaseEvent

	PreviousStatus models.SubmissionStatus `json:"previous_status"`
}

func (e SubmissionUpdated) GetType() EventType {
	return SubmissionUpdatedEvent
}

type SubmissionReturned struct {
	BaseEvent

	PreviousStatus models.SubmissionStatus `json:"previous_status"`
}

func (e SubmissionReturned) GetType() EventType {
	return SubmissionReturnedEvent
}

type SubmissionResubmitted struct {
	BaseEvent

	PreviousStatus models.SubmissionStatus `json:"previous_status"`
}

func (e SubmissionResubmitted) GetType() EventType {
	return SubmissionResubmittedEvent
}

type DelayAdded struct {
	BaseEvent

	Delay models.Delay `json:"delay"`
}

func (e DelayAdded) GetType() EventType {
	return DelayAddedEvent
}

func NewBaseEvent(eventType EventType, submission *models.Submission, at time.Time, audiences ...Audience) BaseEvent {
	if len(audiences) == 0 {
		audiences = SubmissionAudiences
	}

	return BaseEvent{
		ID:           uuid.New().String(),
		Type:         eventType,
		SubmissionID: submission.ID,
		Timestamp:    at.UTC(),
		Submission:   submission.Projection(),
		Audiences:    append([]Audience(nil), audiences...),
	}
}

func NewSubmissionCreated(submission *models.Submission, at time.Time) *SubmissionCreated {
	return &SubmissionCreated{BaseEvent: NewBaseEvent(SubmissionCreatedEvent, submission, at)}
}

// NewTransitionEvent picks the variant for a committed status change.
func NewTransitionEvent(op models.Operation, previous models.SubmissionStatus, submission *models.Submission, at time.Time) Event {
	switch op {
	case models.OperationReturn:
		return &SubmissionReturned{
			BaseEvent:      NewBaseEvent(SubmissionReturnedEvent, submission, at),
			PreviousStatus: previous,
		}
	case models.OperationResubmit:
		return &SubmissionResubmitted{
			BaseEvent:      NewBaseEvent(SubmissionResubmittedEvent, submission, at),
			PreviousStatus: previous,
		}
	default:
		return &SubmissionUpdated{
			BaseEvent:      NewBaseEvent(SubmissionUpdatedEvent, submission, at),
			PreviousStatus: previous,
		}
	}
}

func NewDelayAdded(submission *models.Submission, delay *models.Delay, at time.Time) *DelayAdded {
	return &DelayAdded{
		BaseEvent: NewBaseEvent(DelayAddedEvent, submission, at, AudienceOwner),
		Delay:     *delay,
	}
}

// New returns an empty event of the given type, ready to be unmarshaled into.
func New(eventType EventType) (Event, bool) {
	switch eventType {
	case SubmissionCreatedEvent:
		return &SubmissionCreated{}, true
	case SubmissionUpdatedEvent:
		return &SubmissionUpdated{}, true
	case SubmissionReturnedEvent:
		return &SubmissionReturned{}, true
	case SubmissionResubmittedEvent:
		return &SubmissionResubmitted{}, true
	case DelayAddedEvent:
		return &DelayAdded{}, true
	default:
		return nil, false
	}
}
