package driven

import (
	"context"

	"github.com/reelrate-labs/reelrate-cli/internal/core/domain"
)

// AssessmentStore persists scene assessment versions. Versions are
// append-only; a correction saves a new version that supersedes the old
// one, it never mutates in place.
type AssessmentStore interface {
	// Save stores a new assessment version.
	Save(ctx context.Context, a domain.SceneAssessment) error

	// Latest returns the newest assessment version for a scene.
	Latest(ctx context.Context, sceneID string) (*domain.SceneAssessment, error)

	// LatestSet returns the newest assessment version of every scene in
	// a script, ordered by scene number.
	LatestSet(ctx context.Context, scriptID string) ([]domain.SceneAssessment, error)

	// History returns all versions for a scene, oldest first.
	History(ctx context.Context, sceneID string) ([]domain.SceneAssessment, error)
}

// HistorySink receives structured action records for the external
// history/persistence layer. Records are passed by value; the core never
// reaches into a shared log.
type HistorySink interface {
	// Record stores one action record.
	Record(ctx context.Context, rec domain.ActionRecord) error
}
