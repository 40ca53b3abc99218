package driving

import (
	"context"

	"github.com/reelrate-labs/reelrate-cli/internal/core/domain"
)

// FeedbackOutcome is returned by every feedback operation: the new
// assessment version plus the rating recomputed over the updated set.
// The rating is recomputed synchronously and never requires re-invoking
// the classifier.
type FeedbackOutcome struct {
	// Assessment is the superseding assessment version. For an
	// idempotent no-op it is the existing latest version.
	Assessment domain.SceneAssessment

	// Rating is the recomputed rating over the updated assessment set.
	Rating domain.RatingResult

	// NoOp is true when the operation changed nothing.
	NoOp bool
}

// FeedbackService applies user corrections to an assessment set.
type FeedbackService interface {
	// Ignore sets the category to none with provenance=user.
	Ignore(ctx context.Context, actor, sceneID string, category domain.Category) (*FeedbackOutcome, error)

	// Add inserts or overwrites a finding with provenance=user.
	Add(ctx context.Context, actor, sceneID string, category domain.Category, severity domain.Severity, comment string) (*FeedbackOutcome, error)

	// Edit overwrites the severity of a finding with provenance=user.
	Edit(ctx context.Context, actor, sceneID string, category domain.Category, severity domain.Severity) (*FeedbackOutcome, error)
}
