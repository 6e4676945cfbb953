package file

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/models"
	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/persistence"
)

const (
	checklistsDir     = "checklists"
	checklistItemsDir = "checklist_items"
)

// checklistTemplate records the template applied by the last initialization.
type checklistTemplate struct {
	SubmissionID  string    `json:"submission_id"`
	CadastroType  string    `json:"cadastro_type"`
	InitializedAt time.Time `json:"initialized_at"`
}

// ChecklistRepository handles checklist-related file operations.
type ChecklistRepository struct {
	store *store
}

func (r *ChecklistRepository) Initialize(
	_ context.Context,
	submissionID, cadastroType string,
	items []*models.ChecklistItem,
	at time.Time,
) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	existing, err := r.items(submissionID)
	if err != nil {
		return err
	}

	if len(existing) > 0 {
		return &persistence.ChecklistError{Op: "Initialize", SubmissionID: submissionID, Err: persistence.ErrChecklistInitialized}
	}

	err = r.store.write(checklistsDir, submissionID, checklistTemplate{
		SubmissionID:  submissionID,
		CadastroType:  cadastroType,
		InitializedAt: at,
	})
	if err != nil {
		return err
	}

	for _, item := range items {
		err := r.store.write(checklistItemsDir, item.ID, item)
		if err != nil {
			return fmt.Errorf("failed to save checklist item %s: %w", item.ID, err)
		}
	}

	return nil
}

func (r *ChecklistRepository) Append(_ context.Context, item *models.ChecklistItem) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	existing, err := r.items(item.SubmissionID)
	if err != nil {
		return err
	}

	item.Position = 1
	if len(existing) > 0 {
		item.Position = existing[len(existing)-1].Position + 1
	}

	return r.store.write(checklistItemsDir, item.ID, item)
}

func (r *ChecklistRepository) GetItem(_ context.Context, id string) (*models.ChecklistItem, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.get("GetItem", id)
}

func (r *ChecklistRepository) UpdateItem(_ context.Context, item *models.ChecklistItem) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, err := r.get("UpdateItem", item.ID); err != nil {
		return err
	}

	return r.store.write(checklistItemsDir, item.ID, item)
}

func (r *ChecklistRepository) DeleteItem(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, err := r.get("DeleteItem", id); err != nil {
		return err
	}

	return r.store.remove(checklistItemsDir, id)
}

func (r *ChecklistRepository) Items(_ context.Context, submissionID string) ([]*models.ChecklistItem, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.items(submissionID)
}

func (r *ChecklistRepository) get(op, id string) (*models.ChecklistItem, error) {
	var item models.ChecklistItem

	err := r.store.read(checklistItemsDir, id, &item)
	if err != nil {
		if isNotExist(err) {
			return nil, &persistence.ChecklistError{Op: op, ItemID: id, Err: persistence.ErrChecklistItemNotFound}
		}

		return nil, err
	}

	return &item, nil
}

// items returns the submission's items ordered by position.
func (r *ChecklistRepository) items(submissionID string) ([]*models.ChecklistItem, error) {
	ids, err := r.store.ids(checklistItemsDir)
	if err != nil {
		return nil, err
	}

	items := make([]*models.ChecklistItem, 0)

	for _, id := range ids {
		item, err := r.get("Items", id)
		if err != nil {
			return nil, err
		}

		if item.SubmissionID == submissionID {
			items = append(items, item)
		}
	}

	slices.SortFunc(items, func(a, b *models.ChecklistItem) int {
		return cmp.Or(cmp.Compare(a.Position, b.Position), a.CreatedAt.Compare(b.CreatedAt))
	})

	return items, nil
}
