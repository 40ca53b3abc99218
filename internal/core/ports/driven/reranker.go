package driven

import (
	"context"

	"github.com/reelrate-labs/reelrate-cli/internal/core/domain"
)

// Reranker reorders retrieval candidates with a secondary scorer
// (e.g. a cross-encoder). This is an optional service - when nil,
// retrieval keeps the similarity ranking.
//
// Contract: a reranker may reorder the candidate set but never
// introduces documents outside it; the retriever enforces this.
type Reranker interface {
	// Rerank returns the candidates in a new order with updated scores.
	Rerank(ctx context.Context, query string, candidates []domain.ScoredDocument) ([]domain.ScoredDocument, error)
}
