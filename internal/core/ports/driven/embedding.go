package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// The corpus and every retrieval query must be embedded with the same
// model and version; the retriever enforces this via ModelVersion.
//
// Implementations may include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Ollama (nomic-embed-text, all-minilm)
//   - Local models via inference servers
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	// This is more efficient than calling Embed in a loop for large batches.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 768, 1536).
	Dimensions() int

	// ModelVersion returns the model identifier including version, used
	// for the query/corpus consistency check. A mismatch between the
	// query model and the corpus model is an error, not a degrade.
	ModelVersion() string

	// Ping validates the service is reachable with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
