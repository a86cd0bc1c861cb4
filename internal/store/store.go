// Package store persists whole pipeline snapshots keyed by plan ID.
// All implementations behave identically from the core's perspective:
// last write wins on the whole snapshot, no field-level merge.
package store

import (
	"context"
	"errors"

	"github.com/venturelab/compass/internal/pipeline"
)

// ErrNotFound is returned by Load when no snapshot exists for a plan ID
var ErrNotFound = errors.New("plan not found")

// Store is the storage provider interface. The core must behave the
// same against a local file store, an embedded database, or a remote
// service.
type Store interface {
	// Load returns the persisted pipeline, or ErrNotFound.
	Load(ctx context.Context, planID string) (*pipeline.Pipeline, error)

	// Save persists the whole snapshot, replacing any previous value.
	Save(ctx context.Context, planID string, p *pipeline.Pipeline) error

	// Delete removes a snapshot. Deleting a missing plan is not an error.
	Delete(ctx context.Context, planID string) error

	// List returns all persisted plan IDs.
	List(ctx context.Context) ([]string, error)
}

// LoadOrInit loads a plan and falls back to a fresh pipeline from the
// static template when the snapshot is missing or unreadable. A broken
// store never blocks the user at session start.
func LoadOrInit(ctx context.Context, s Store, planID, ideaName string) (*pipeline.Pipeline, bool, error) {
	p, err := s.Load(ctx, planID)
	if err == nil {
		return p, false, nil
	}

	// The fresh pipeline keeps the caller's plan ID. Workspace pointers
	// reference that ID; a generated one would orphan every save made
	// after recovery.
	fresh := pipeline.New(ideaName)
	fresh.ID = planID

	if !errors.Is(err, ErrNotFound) {
		// Corrupt or unreachable snapshot: surfaced so the caller can
		// warn, but the user is not blocked.
		return fresh, true, err
	}
	return fresh, true, nil
}
