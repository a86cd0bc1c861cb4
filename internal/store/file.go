package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/venturelab/compass/internal/pipeline"
)

// FileStore persists pipeline snapshots as JSON files, one per plan,
// under a workspace directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a file store rooted at dir
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(planID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.json", planID))
}

// Load implements Store.Load
func (s *FileStore) Load(ctx context.Context, planID string) (*pipeline.Pipeline, error) {
	data, err := os.ReadFile(s.path(planID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read plan file: %w", err)
	}

	var p pipeline.Pipeline
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal plan %s: %w", planID, err)
	}
	return &p, nil
}

// Save implements Store.Save
func (s *FileStore) Save(ctx context.Context, planID string, p *pipeline.Pipeline) error {
	if p == nil {
		return fmt.Errorf("pipeline is nil")
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create plan directory: %w", err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal plan %s: %w", planID, err)
	}

	// Write-then-rename so a crash mid-write never corrupts the
	// previous snapshot.
	tmp := s.path(planID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write plan file: %w", err)
	}
	if err := os.Rename(tmp, s.path(planID)); err != nil {
		return fmt.Errorf("rename plan file: %w", err)
	}
	return nil
}

// Delete implements Store.Delete
func (s *FileStore) Delete(ctx context.Context, planID string) error {
	if err := os.Remove(s.path(planID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete plan file: %w", err)
	}
	return nil
}

// List implements Store.List
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read plan directory: %w", err)
	}

	var planIDs []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		planIDs = append(planIDs, strings.TrimSuffix(entry.Name(), ".json"))
	}
	return planIDs, nil
}
