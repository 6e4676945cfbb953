// Package web provides HTTP request and response types for the submission API.
package web

import (
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/models"
)

// CreateSubmissionRequest represents the request body for registering a new submission.
type CreateSubmissionRequest struct {
	CadastroType   string         `json:"cadastro_type"`
	Priority       string         `json:"priority"        validate:"omitempty,oneof=normal high urgent"`
	Name           string         `json:"name"            validate:"required"`
	DocumentNumber string         `json:"document_number" validate:"required"`
	Plate          string         `json:"plate"           validate:"omitempty,max=10"`
	DocumentIDs    []string       `json:"document_ids"    validate:"omitempty,dive,required"`
	Fields         map[string]any `json:"fields,omitempty"`
}

// UpdateSubmissionRequest represents a partial update of business fields.
type UpdateSubmissionRequest struct {
	Priority       *string        `json:"priority,omitempty"        validate:"omitempty,oneof=normal high urgent"`
	Name           *string        `json:"name,omitempty"            validate:"omitempty,min=1"`
	DocumentNumber *string        `json:"document_number,omitempty" validate:"omitempty,min=1"`
	Plate          *string        `json:"plate,omitempty"           validate:"omitempty,max=10"`
	DocumentIDs    []string       `json:"document_ids,omitempty"    validate:"omitempty,dive,required"`
	Fields         map[string]any `json:"fields,omitempty"`
}

func (r UpdateSubmissionRequest) patch() models.SubmissionPatch {
	patch := models.SubmissionPatch{
		Name:           r.Name,
		DocumentNumber: r.DocumentNumber,
		Plate:          r.Plate,
		DocumentIDs:    r.DocumentIDs,
		Fields:         r.Fields,
	}

	if r.Priority != nil {
		priority := models.Priority(*r.Priority)
		patch.Priority = &priority
	}

	return patch
}

type ApproveRequest struct {
	Note string `json:"note" validate:"max=2000"`
}

// OutcomeRequest is the body of reject and return. A missing reason is
// reported by the workflow after the status check.
type OutcomeRequest struct {
	Reason   string `json:"reason"   validate:"max=2000"`
	Category string `json:"category" validate:"max=100"`
}

type AddDelayRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

type InitializeChecklistRequest struct {
	CadastroType string `json:"cadastro_type"`
}

type AddChecklistItemRequest struct {
	Name string `json:"name" validate:"required,max=200"`
	Note string `json:"note" validate:"max=2000"`
}

type CompleteChecklistItemRequest struct {
	Note string `json:"note" validate:"max=2000"`
}

// ChecklistResponse bundles the items with their live progress.
type ChecklistResponse struct {
	Items    []*models.ChecklistItem  `json:"items"`
	Progress models.ChecklistProgress `json:"progress"`
}
