package models

import "time"

// Delay explains why a review is taking longer. It never changes workflow state.
type Delay struct {
	ID            string    `json:"id"`
	SubmissionID  string    `json:"submission_id"`
	Reason        string    `json:"reason"`
	CreatedBy     string    `json:"created_by"`
	CreatedByName string    `json:"created_by_name"`
	CreatedAt     time.Time `json:"created_at"`
	Notified      bool      `json:"notified"`
}
