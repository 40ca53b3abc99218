package driven

import (
	"context"

	"github.com/reelrate-labs/reelrate-cli/internal/core/domain"
)

// ClassifyInput is the scene payload sent to a classifier model.
type ClassifyInput struct {
	// SceneText is the raw scene text. Never truncated.
	SceneText string

	// ContextBlock is the augmented retrieval context, possibly empty
	// when no passage cleared the similarity floor.
	ContextBlock string

	// Categories restricts classification to the given categories.
	// Empty means all categories.
	Categories []domain.Category
}

// ModelService produces raw structured classification output for a scene.
// Implementations render their own prompt and return the model's output
// verbatim; the classifier service owns schema parsing, retries and the
// fallback state machine.
//
// Implementations may include:
//   - OpenAI (chat completions with JSON output)
//   - Ollama (local models)
//   - A deterministic lexical classifier used as the fallback path
type ModelService interface {
	// Classify returns the model's raw structured output for the scene.
	// The output is expected to match the fixed per-category schema;
	// callers validate and handle malformed output.
	Classify(ctx context.Context, in ClassifyInput) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
