package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/venturelab/compass/internal/pipeline"
)

// MemoryStore is an ephemeral store for tests and dry runs. Snapshots
// are deep-copied through JSON so callers cannot alias stored state.
type MemoryStore struct {
	mu    sync.RWMutex
	plans map[string][]byte
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{plans: make(map[string][]byte)}
}

// Load implements Store.Load
func (s *MemoryStore) Load(ctx context.Context, planID string) (*pipeline.Pipeline, error) {
	s.mu.RLock()
	data, ok := s.plans[planID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	var p pipeline.Pipeline
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal plan %s: %w", planID, err)
	}
	return &p, nil
}

// Save implements Store.Save
func (s *MemoryStore) Save(ctx context.Context, planID string, p *pipeline.Pipeline) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal plan %s: %w", planID, err)
	}

	s.mu.Lock()
	s.plans[planID] = data
	s.mu.Unlock()
	return nil
}

// Delete implements Store.Delete
func (s *MemoryStore) Delete(ctx context.Context, planID string) error {
	s.mu.Lock()
	delete(s.plans, planID)
	s.mu.Unlock()
	return nil
}

// List implements Store.List
func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	planIDs := make([]string, 0, len(s.plans))
	for id := range s.plans {
		planIDs = append(planIDs, id)
	}
	sort.Strings(planIDs)
	return planIDs, nil
}
