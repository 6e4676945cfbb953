// Package file provides a file-based persistence implementation for development and tests.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
// A single mutex serializes writers so compare-and-swap is atomic within the process.
type Persistence struct {
	store          *store
	submissionRepo *SubmissionRepository
	checklistRepo  *ChecklistRepository
	delayRepo      *DelayRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) persistence.Persistence {
	s := &store{root: strings.Replace(root, "file://", "", 1)}

	return &Persistence{
		store:          s,
		submissionRepo: &SubmissionRepository{store: s},
		checklistRepo:  &ChecklistRepository{store: s},
		delayRepo:      &DelayRepository{store: s},
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.store.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) Submissions() persistence.SubmissionRepository {
	return fp.submissionRepo
}

func (fp *Persistence) Checklists() persistence.ChecklistRepository {
	return fp.checklistRepo
}

func (fp *Persistence) Delays() persistence.DelayRepository {
	return fp.delayRepo
}

type store struct {
	root string
	mu   sync.RWMutex
}

func (s *store) path(dir, id string) string {
	return filepath.Join(s.root, dir, id+".json")
}

// read decodes dir/id.json into v. Missing files report fs.ErrNotExist.
func (s *store) read(dir, id string, v any) error {
	if strings.ContainsAny(id, `/\`) || id == "" || id == "." || id == ".." {
		return fs.ErrNotExist
	}

	body, err := os.ReadFile(s.path(dir, id))
	if err != nil {
		return err
	}

	err = json.Unmarshal(body, v)
	if err != nil {
		return fmt.Errorf("failed to unmarshal %s/%s: %w", dir, id, err)
	}

	return nil
}

// write replaces dir/id.json through a temporary file and rename.
func (s *store) write(dir, id string, v any) error {
	err := os.MkdirAll(filepath.Join(s.root, dir), 0750)
	if err != nil {
		return fmt.Errorf("failed to create %s directory: %w", dir, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s/%s: %w", dir, id, err)
	}

	tmp, err := os.CreateTemp(filepath.Join(s.root, dir), id+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to write %s/%s: %w", dir, id, err)
	}

	return os.Rename(tmp.Name(), s.path(dir, id))
}

func (s *store) remove(dir, id string) error {
	return os.Remove(s.path(dir, id))
}

// ids lists the identifiers stored under dir.
func (s *store) ids(dir string) ([]string, error) {
	matches, err := fs.Glob(os.DirFS(filepath.Join(s.root, dir)), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s files: %w", dir, err)
	}

	ids := make([]string, 0, len(matches))
	for _, match := range matches {
		ids = append(ids, strings.TrimSuffix(match, ".json"))
	}

	return ids, nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
