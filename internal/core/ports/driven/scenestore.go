package driven

import (
	"context"

	"github.com/reelrate-labs/reelrate-cli/internal/core/domain"
)

// SceneStore holds the scenes of analysed scripts. Scenes are produced
// by the external segmentation layer and are read-only here; the store
// exists so corrections can reach back to the original scene text.
type SceneStore interface {
	// Save stores scenes for later lookup.
	Save(ctx context.Context, scenes []domain.Scene) error

	// Get retrieves a scene by id.
	Get(ctx context.Context, id string) (*domain.Scene, error)
}
