package file

import (
	"context"
	"fmt"
	"slices"

	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/models"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/persistence"
)

const delaysDir = "delays"

// DelayRepository keeps one file per submission holding its delays in insertion order.
type DelayRepository struct {
	store *store
}

func (r *DelayRepository) Create(_ context.Context, delay *models.Delay) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	delays, err := r.load(delay.SubmissionID)
	if err != nil {
		return err
	}

	stored := *delay

	return r.store.write(delaysDir, delay.SubmissionID, append(delays, &stored))
}

func (r *DelayRepository) MarkNotified(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	submissionIDs, err := r.store.ids(delaysDir)
	if err != nil {
		return err
	}

	for _, submissionID := range submissionIDs {
		delays, err := r.load(submissionID)
		if err != nil {
			return err
		}

		for _, delay := range delays {
			if delay.ID == id {
				delay.Notified = true

				return r.store.write(delaysDir, submissionID, delays)
			}
		}
	}

	return fmt.Errorf("delay %s: %w", id, persistence.ErrDelayNotFound)
}

// ListBySubmission returns the delays of a submission, newest first.
func (r *DelayRepository) ListBySubmission(_ context.Context, submissionID string) ([]*models.Delay, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	delays, err := r.load(submissionID)
	if err != nil {
		return nil, err
	}

	slices.Reverse(delays)

	return delays, nil
}

func (r *DelayRepository) load(submissionID string) ([]*models.Delay, error) {
	delays := make([]*models.Delay, 0)

	err := r.store.read(delaysDir, submissionID, &delays)
	if err != nil && !isNotExist(err) {
		return nil, err
	}

	return delays, nil
}
