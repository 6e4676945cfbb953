package models

import (
	"math"
	"time"
)

// ChecklistItem is one review item of a submission.
type ChecklistItem struct {
	ID           string     `json:"id"`
	SubmissionID string     `json:"submission_id"`
	Position     int        `json:"position"`
	ItemName     string     `json:"item_name"`
	Mandatory    bool       `json:"mandatory"`
	Completed    bool       `json:"completed"`
	CompletedBy  *string    `json:"completed_by"`
	CompletedAt  *time.Time `json:"completed_at"`
	Note         *string    `json:"note"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Complete marks the item done by actorID.
func (i *ChecklistItem) Complete(actorID string, at time.Time, note string) {
	i.Completed = true
	i.CompletedBy = &actorID
	i.CompletedAt = &at

	if note != "" {
		i.Note = &note
	}
}

// Uncomplete clears completion state. The note is kept.
func (i *ChecklistItem) Uncomplete() {
	i.Completed = false
	i.CompletedBy = nil
	i.CompletedAt = nil
}

// ChecklistTemplateItem is an entry of a cadastro type's checklist template.
type ChecklistTemplateItem struct {
	Name      string `json:"name"`
	Mandatory bool   `json:"mandatory"`
}

// ChecklistProgress is computed on every read.
type ChecklistProgress struct {
	Total            int  `json:"total"`
	Completed        int  `json:"completed"`
	Pending          int  `json:"pending"`
	Percent          int  `json:"percent"`
	IsComplete       bool `json:"is_complete"`
	MandatoryPending int  `json:"mandatory_pending"`
}

// NewChecklistProgress derives progress from counts.
func NewChecklistProgress(total, completed, mandatoryPending int) ChecklistProgress {
	progress := ChecklistProgress{
		Total:            total,
		Completed:        completed,
		Pending:          total - completed,
		MandatoryPending: mandatoryPending,
		IsComplete:       total > 0 && completed == total,
	}

	if total > 0 {
		progress.Percent = int(math.Round(float64(completed) * 100 / float64(total)))
	}

	return progress
}

// ProgressOf computes progress over a set of items.
func ProgressOf(items []*ChecklistItem) ChecklistProgress {
	var completed, mandatoryPending int

	for _, item := range items {
		if item.Completed {
			completed++
		} else if item.Mandatory {
			mandatoryPending++
		}
	}

	return NewChecklistProgress(len(items), completed, mandatoryPending)
}
