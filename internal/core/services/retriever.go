package services

import (
	"context"
	"fmt"

	"github.com/reelrate-labs/reelrate-cli/internal/core/domain"
	"github.com/reelrate-labs/reelrate-cli/internal/core/ports/driven"
	"github.com/reelrate-labs/reelrate-cli/internal/logger"
)

// Default retrieval parameters.
const (
	DefaultTopK            = 4
	DefaultSimilarityFloor = 0.7
)

// RetrieverOptions configures a Retriever.
type RetrieverOptions struct {
	// TopK bounds the number of returned passages (default 4).
	TopK int

	// Floor is the minimum similarity for a returned passage (default 0.7).
	Floor float64
}

// Retriever turns a (scene text, category) query into a ranked list of
// corpus passages. The reranker is optional (can be nil); when present
// it may reorder the candidate set but never introduces documents
// outside it.
type Retriever struct {
	corpus   driven.CorpusStore
	embedder driven.EmbeddingService
	reranker driven.Reranker
	opts     RetrieverOptions
}

// NewRetriever creates a retriever over the given corpus and embedder.
func NewRetriever(corpus driven.CorpusStore, embedder driven.EmbeddingService, reranker driven.Reranker, opts RetrieverOptions) *Retriever {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.Floor <= 0 {
		opts.Floor = DefaultSimilarityFloor
	}
	return &Retriever{
		corpus:   corpus,
		embedder: embedder,
		reranker: reranker,
		opts:     opts,
	}
}

// Retrieve returns the ranked corpus passages grounding a scene for one
// category. An empty result means no passage cleared the floor; callers
// proceed with reduced-confidence classification rather than aborting.
func (r *Retriever) Retrieve(ctx context.Context, sceneText string, category domain.Category) ([]domain.ScoredDocument, error) {
	if r.corpus == nil {
		return nil, domain.ErrCorpusUnavailable
	}
	if r.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	// The corpus and the query must be embedded by the same model
	// version. A mismatch is an error, not a silent degrade.
	if corpusModel := r.corpus.EmbeddingModel(); corpusModel != "" && corpusModel != r.embedder.ModelVersion() {
		return nil, fmt.Errorf("corpus embedded with %q, query embedder is %q: %w",
			corpusModel, r.embedder.ModelVersion(), domain.ErrVersionMismatch)
	}

	q := domain.RetrievalQuery{
		Text:     sceneText,
		Category: category,
		TopK:     r.opts.TopK,
		Floor:    r.opts.Floor,
	}

	vector, err := r.embedder.Embed(ctx, q.Text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// The category filter narrows the candidate set inside the store
	// before the top-k cap; in-category passages above the floor are
	// never starved by out-of-category hits.
	filter := domain.CorpusFilter{Category: q.Category}
	hits, err := r.corpus.Search(ctx, vector, q.TopK, q.Floor, filter)
	if err != nil {
		return nil, fmt.Errorf("corpus search: %w", err)
	}
	logger.Debug("Retriever: %d passages for category %s (top_k=%d, floor=%.2f)",
		len(hits), q.Category, q.TopK, q.Floor)

	if len(hits) == 0 || r.reranker == nil {
		return hits, nil
	}

	reranked, err := r.reranker.Rerank(ctx, sceneText, hits)
	if err != nil {
		logger.Warn("Retriever: rerank failed: %v (keeping similarity order)", err)
		return hits, nil
	}
	return restrictToCandidates(hits, reranked), nil
}

// restrictToCandidates drops any reranker output that was not in the
// original candidate set, preserving the reranked order.
func restrictToCandidates(candidates, reranked []domain.ScoredDocument) []domain.ScoredDocument {
	allowed := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		allowed[c.Document.ID] = true
	}
	out := make([]domain.ScoredDocument, 0, len(reranked))
	for _, d := range reranked {
		if allowed[d.Document.ID] {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		// A reranker that returned nothing usable does not erase the
		// similarity ranking.
		return candidates
	}
	return out
}
