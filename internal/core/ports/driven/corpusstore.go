package driven

import (
	"context"

	"github.com/reelrate-labs/reelrate-cli/internal/core/domain"
)

// CorpusStore is the durable, queryable store of embedded reference
// passages with versioning.
//
// Concurrency contract: mutations (Upsert, Delete, Rollback) are
// serialized relative to each other (single writer); Search reads an
// immutable snapshot and never observes a half-applied mutation.
type CorpusStore interface {
	// Upsert embeds (or accepts pre-embedded) documents and adds them to
	// the active index. Near-duplicates above the dedup ceiling are
	// rejected and reported per document, not silently merged. Embedding
	// failure fails that document only; the batch continues.
	Upsert(ctx context.Context, docs []domain.CorpusDocument) ([]domain.UpsertResult, error)

	// Search returns up to topK documents with similarity >= floor,
	// ranked by similarity, ties broken by insertion order (earliest
	// first). The filter narrows the candidate set after ranking.
	Search(ctx context.Context, query []float32, topK int, floor float64, filter domain.CorpusFilter) ([]domain.ScoredDocument, error)

	// Delete removes documents from the active index. Assessments citing
	// a deleted document keep their stored excerpts.
	Delete(ctx context.Context, ids []string) error

	// Snapshot captures the current index state and returns its version.
	Snapshot(ctx context.Context) (domain.CorpusVersion, error)

	// Rollback atomically restores the index to a snapshot. Concurrent
	// readers never observe a partial index.
	Rollback(ctx context.Context, version domain.CorpusVersion) error

	// ActiveVersion returns the version tag of the active index.
	ActiveVersion(ctx context.Context) (domain.CorpusVersion, error)

	// EmbeddingModel returns the model version the corpus was embedded
	// with, empty while the corpus is empty.
	EmbeddingModel() string

	// Close releases resources.
	Close() error
}
