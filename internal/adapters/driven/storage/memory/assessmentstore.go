// Package memory provides in-memory implementations of the storage
// ports, used for tests and single-run CLI invocations.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/reelrate-labs/reelrate-cli/internal/core/domain"
	"github.com/reelrate-labs/reelrate-cli/internal/core/ports/driven"
)

// Ensure AssessmentStore implements the interface.
var _ driven.AssessmentStore = (*AssessmentStore)(nil)

// AssessmentStore is an in-memory implementation of driven.AssessmentStore.
// Versions are append-only; the newest version of a scene is the last
// one saved.
type AssessmentStore struct {
	mu       sync.RWMutex
	byScene  map[string][]domain.SceneAssessment
	byScript map[string][]string // scriptID -> scene ids in save order
}

// NewAssessmentStore creates a new in-memory assessment store.
func NewAssessmentStore() *AssessmentStore {
	return &AssessmentStore{
		byScene:  make(map[string][]domain.SceneAssessment),
		byScript: make(map[string][]string),
	}
}

// Save appends a new assessment version.
func (s *AssessmentStore) Save(_ context.Context, a domain.SceneAssessment) error {
	if err := a.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.byScene[a.SceneID]) == 0 {
		s.byScript[a.ScriptID] = append(s.byScript[a.ScriptID], a.SceneID)
	}
	s.byScene[a.SceneID] = append(s.byScene[a.SceneID], a)
	return nil
}

// Latest returns the newest assessment version for a scene.
func (s *AssessmentStore) Latest(_ context.Context, sceneID string) (*domain.SceneAssessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.byScene[sceneID]
	if len(versions) == 0 {
		return nil, domain.ErrNotFound
	}
	latest := versions[len(versions)-1]
	return &latest, nil
}

// LatestSet returns the newest assessment version of every scene in a
// script, ordered by scene number.
func (s *AssessmentStore) LatestSet(_ context.Context, scriptID string) ([]domain.SceneAssessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sceneIDs := s.byScript[scriptID]
	out := make([]domain.SceneAssessment, 0, len(sceneIDs))
	for _, id := range sceneIDs {
		versions := s.byScene[id]
		if len(versions) == 0 {
			continue
		}
		out = append(out, versions[len(versions)-1])
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SceneNumber < out[j].SceneNumber
	})
	return out, nil
}

// History returns all versions for a scene, oldest first.
func (s *AssessmentStore) History(_ context.Context, sceneID string) ([]domain.SceneAssessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.byScene[sceneID]
	if len(versions) == 0 {
		return nil, domain.ErrNotFound
	}
	out := make([]domain.SceneAssessment, len(versions))
	copy(out, versions)
	return out, nil
}
