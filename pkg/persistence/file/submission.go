package file

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/models"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/persistence"
)

const (
	submissionsDir = "submissions"
	historyDir     = "history"
)

// SubmissionRepository handles submission-related file operations.
type SubmissionRepository struct {
	store *store
}

func (r *SubmissionRepository) Create(_ context.Context, submission *models.Submission) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var existing models.Submission

	err := r.store.read(submissionsDir, submission.ID, &existing)
	if err == nil {
		return persistence.NewSubmissionError("Create", submission.ID, persistence.ErrSubmissionAlreadyExists)
	}

	if !isNotExist(err) {
		return err
	}

	return r.writeWithHistory(submission, &models.StatusChange{
		SubmissionID: submission.ID,
		Operation:    models.OperationCreate,
		ToStatus:     submission.Status,
		ActorID:      submission.OperatorID,
		CreatedAt:    submission.CreatedAt,
	})
}

func (r *SubmissionRepository) GetByID(_ context.Context, id string) (*models.Submission, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.get("GetByID", id)
}

func (r *SubmissionRepository) CompareAndSwap(
	_ context.Context,
	id string,
	expected models.SubmissionStatus,
	transition models.Transition,
) (*models.Submission, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	submission, err := r.get("CompareAndSwap", id)
	if err != nil {
		return nil, err
	}

	if submission.Status != expected {
		return nil, &persistence.StatusConflictError{
			SubmissionID: id,
			Expected:     []models.SubmissionStatus{expected},
			Current:      submission.Status,
		}
	}

	transition.Apply(submission)

	var reason *string
	if transition.Reason != "" {
		reason = &transition.Reason
	}

	err = r.writeWithHistory(submission, &models.StatusChange{
		SubmissionID: id,
		Operation:    transition.Operation,
		FromStatus:   expected,
		ToStatus:     transition.To,
		ActorID:      transition.ActorID,
		Reason:       reason,
		CreatedAt:    transition.At,
	})
	if err != nil {
		return nil, err
	}

	return submission, nil
}

func (r *SubmissionRepository) UpdateFields(
	_ context.Context,
	id string,
	patch models.SubmissionPatch,
	at time.Time,
) (*models.Submission, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	submission, err := r.get("UpdateFields", id)
	if err != nil {
		return nil, err
	}

	if !submission.Status.IsEditable() {
		return nil, &persistence.StatusConflictError{
			SubmissionID: id,
			Expected:     models.EditableStatuses,
			Current:      submission.Status,
		}
	}

	patch.ApplyTo(submission)
	submission.Version++
	submission.UpdatedAt = at

	err = r.store.write(submissionsDir, id, submission)
	if err != nil {
		return nil, err
	}

	return submission, nil
}

func (r *SubmissionRepository) History(_ context.Context, id string) ([]*models.StatusChange, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	history := make([]*models.StatusChange, 0)

	err := r.store.read(historyDir, id, &history)
	if err != nil && !isNotExist(err) {
		return nil, err
	}

	return history, nil
}

func (r *SubmissionRepository) List(_ context.Context, filter persistence.SubmissionFilter) ([]*models.Submission, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	submissions, err := r.matching(filter)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(submissions, func(a, b *models.Submission) int {
		return cmp.Or(
			cmp.Compare(b.Priority.Rank(), a.Priority.Rank()),
			b.SubmittedAt.Compare(a.SubmittedAt),
			strings.Compare(a.ID, b.ID),
		)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(submissions) {
			return []*models.Submission{}, nil
		}

		submissions = submissions[filter.Offset:]
	}

	if filter.Limit > 0 && filter.Limit < len(submissions) {
		submissions = submissions[:filter.Limit]
	}

	return submissions, nil
}

func (r *SubmissionRepository) Count(_ context.Context, filter persistence.SubmissionFilter) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	submissions, err := r.matching(filter)
	if err != nil {
		return 0, err
	}

	return len(submissions), nil
}

func (r *SubmissionRepository) CountByStatus(_ context.Context, from, to time.Time) (map[models.SubmissionStatus]int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	submissions, err := r.matching(persistence.SubmissionFilter{SubmittedFrom: &from, SubmittedTo: &to})
	if err != nil {
		return nil, err
	}

	counts := make(map[models.SubmissionStatus]int, len(models.Statuses))
	for _, status := range models.Statuses {
		counts[status] = 0
	}

	for _, submission := range submissions {
		counts[submission.Status]++
	}

	return counts, nil
}

func (r *SubmissionRepository) get(op, id string) (*models.Submission, error) {
	var submission models.Submission

	err := r.store.read(submissionsDir, id, &submission)
	if err != nil {
		if isNotExist(err) {
			return nil, persistence.NewSubmissionError(op, id, persistence.ErrSubmissionNotFound)
		}

		return nil, err
	}

	return &submission, nil
}

func (r *SubmissionRepository) matching(filter persistence.SubmissionFilter) ([]*models.Submission, error) {
	ids, err := r.store.ids(submissionsDir)
	if err != nil {
		return nil, err
	}

	submissions := make([]*models.Submission, 0, len(ids))

	for _, id := range ids {
		submission, err := r.get("List", id)
		if err != nil {
			return nil, fmt.Errorf("failed to load submission %s: %w", id, err)
		}

		if matches(submission, filter) {
			submissions = append(submissions, submission)
		}
	}

	return submissions, nil
}

// writeWithHistory appends change to the history and then saves submission.
// The history is restored when the submission cannot be saved, so neither
// file changes alone.
func (r *SubmissionRepository) writeWithHistory(submission *models.Submission, change *models.StatusChange) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("failed to generate history ID: %w", err)
	}

	change.ID = id.String()

	history := make([]*models.StatusChange, 0, 1)

	err = r.store.read(historyDir, change.SubmissionID, &history)
	if err != nil && !isNotExist(err) {
		return err
	}

	previous := len(history)

	err = r.store.write(historyDir, change.SubmissionID, append(history, change))
	if err != nil {
		return err
	}

	err = r.store.write(submissionsDir, submission.ID, submission)
	if err != nil {
		if previous == 0 {
			return errors.Join(err, r.store.remove(historyDir, change.SubmissionID))
		}

		return errors.Join(err, r.store.write(historyDir, change.SubmissionID, history[:previous]))
	}

	return nil
}

func matches(s *models.Submission, filter persistence.SubmissionFilter) bool {
	if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, s.Status) {
		return false
	}

	if filter.Priority != "" && s.Priority != filter.Priority {
		return false
	}

	if filter.OperatorID != "" && s.OperatorID != filter.OperatorID {
		return false
	}

	if filter.AnalystID != "" && (s.AnalystID == nil || *s.AnalystID != filter.AnalystID) {
		return false
	}

	if filter.CadastroType != "" && s.CadastroType != filter.CadastroType {
		return false
	}

	if filter.ParticipantID != "" && s.OperatorID != filter.ParticipantID &&
		(s.AnalystID == nil || *s.AnalystID != filter.ParticipantID) {
		return false
	}

	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		if !strings.Contains(strings.ToLower(s.Name), search) &&
			!strings.Contains(strings.ToLower(s.DocumentNumber), search) &&
			!strings.Contains(strings.ToLower(s.Plate), search) {
			return false
		}
	}

	if filter.SubmittedFrom != nil && s.SubmittedAt.Before(*filter.SubmittedFrom) {
		return false
	}

	if filter.SubmittedTo != nil && !s.SubmittedAt.Before(*filter.SubmittedTo) {
		return false
	}

	return true
}
