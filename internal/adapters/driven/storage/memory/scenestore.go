package memory

import (
	"context"
	"sync"

	"github.com/reelrate-labs/reelrate-cli/internal/core/domain"
	"github.com/reelrate-labs/reelrate-cli/internal/core/ports/driven"
)

// Ensure SceneStore implements the interface.
var _ driven.SceneStore = (*SceneStore)(nil)

// SceneStore is an in-memory implementation of driven.SceneStore.
type SceneStore struct {
	mu     sync.RWMutex
	scenes map[string]domain.Scene
}

// NewSceneStore creates a new in-memory scene store.
func NewSceneStore() *SceneStore {
	return &SceneStore{
		scenes: make(map[string]domain.Scene),
	}
}

// Save stores scenes for later lookup.
func (s *SceneStore) Save(_ context.Context, scenes []domain.Scene) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, scene := range scenes {
		s.scenes[scene.ID] = scene
	}
	return nil
}

// Get retrieves a scene by id.
func (s *SceneStore) Get(_ context.Context, id string) (*domain.Scene, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scene, ok := s.scenes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &scene, nil
}
