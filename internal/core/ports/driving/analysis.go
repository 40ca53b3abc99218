package driving

import (
	"context"

	"github.com/reelrate-labs/reelrate-cli/internal/core/domain"
)

// AnalysisOptions configures a script analysis run.
type AnalysisOptions struct {
	// Exhaustive forwards scenes to the classifier even when the rule
	// prescreen flagged nothing.
	Exhaustive bool

	// Workers bounds the scene worker pool. Zero means the default.
	Workers int

	// Target is an optional target rating; when set, the result carries
	// the ordinal delta between the final rating and the target.
	Target domain.AgeRating
}

// AnalysisResult is the full outcome of a script analysis.
type AnalysisResult struct {
	// Rating is the aggregated rating over the assessment set.
	Rating domain.RatingResult

	// Assessments is the per-scene assessment set, ordered by scene
	// number.
	Assessments []domain.SceneAssessment

	// CorpusVersion is the corpus version the analysis ran against.
	CorpusVersion domain.CorpusVersion

	// Partial is true when the run was cancelled before every scene
	// completed; Assessments then holds only the completed scenes.
	Partial bool
}

// AnalysisService runs the scene classification pipeline over a script.
type AnalysisService interface {
	// Analyze classifies every scene and aggregates the final rating.
	// Cancellation lets in-flight scenes finish and returns the
	// completed assessments as a partial result.
	Analyze(ctx context.Context, scenes []domain.Scene, opts AnalysisOptions) (*AnalysisResult, error)
}
