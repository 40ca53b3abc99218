package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/reelrate-labs/reelrate-cli/internal/core/domain"
	"github.com/reelrate-labs/reelrate-cli/internal/core/ports/driven"
	"github.com/reelrate-labs/reelrate-cli/internal/core/ports/driving"
	"github.com/reelrate-labs/reelrate-cli/internal/logger"
)

// DefaultChunkSize is the default number of characters per corpus chunk.
const DefaultChunkSize = 1000

// Ensure CorpusManager implements the interface.
var _ driving.CorpusService = (*CorpusManager)(nil)

// CorpusManager manages the reference corpus: it chunks long passages at
// sentence boundaries before upserting, and exposes snapshot/rollback.
type CorpusManager struct {
	store     driven.CorpusStore
	chunkSize int
}

// NewCorpusManager creates a corpus manager over the given store.
func NewCorpusManager(store driven.CorpusStore, chunkSize int) *CorpusManager {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &CorpusManager{store: store, chunkSize: chunkSize}
}

// Add chunks and upserts reference passages. Each chunk becomes its own
// CorpusDocument carrying the chunk index; dedup and per-document
// accept/reject reporting happen in the store.
func (m *CorpusManager) Add(ctx context.Context, docs []domain.CorpusDocument) ([]domain.UpsertResult, error) {
	if m.store == nil {
		return nil, domain.ErrCorpusUnavailable
	}

	var expanded []domain.CorpusDocument
	for _, doc := range docs {
		if doc.Content == "" {
			return nil, fmt.Errorf("document %s has no content: %w", doc.ID, domain.ErrInvalidInput)
		}
		if !doc.SourceType.IsValid() {
			return nil, fmt.Errorf("document %s source type %q: %w", doc.ID, doc.SourceType, domain.ErrInvalidInput)
		}
		expanded = append(expanded, m.chunk(doc)...)
	}

	logger.Debug("Corpus: upserting %d documents (%d after chunking)", len(docs), len(expanded))
	return m.store.Upsert(ctx, expanded)
}

// Snapshot captures the current corpus state.
func (m *CorpusManager) Snapshot(ctx context.Context) (domain.CorpusVersion, error) {
	if m.store == nil {
		return "", domain.ErrCorpusUnavailable
	}
	return m.store.Snapshot(ctx)
}

// Rollback restores a previous corpus state.
func (m *CorpusManager) Rollback(ctx context.Context, version domain.CorpusVersion) error {
	if m.store == nil {
		return domain.ErrCorpusUnavailable
	}
	return m.store.Rollback(ctx, version)
}

// chunk splits a long passage into sentence-aligned chunks of roughly
// chunkSize characters. Short passages pass through unchanged with
// ChunkIndex 0.
func (m *CorpusManager) chunk(doc domain.CorpusDocument) []domain.CorpusDocument {
	if len(doc.Content) <= m.chunkSize {
		doc.ChunkIndex = 0
		return []domain.CorpusDocument{doc}
	}

	sentences := splitSentences(doc.Content)
	var out []domain.CorpusDocument
	var current strings.Builder
	index := 0

	flush := func() {
		text := strings.TrimSpace(current.String())
		if text == "" {
			return
		}
		chunk := doc
		chunk.ID = uuid.NewString()
		chunk.Content = text
		chunk.ChunkIndex = index
		out = append(out, chunk)
		index++
		current.Reset()
	}

	for _, sentence := range sentences {
		if current.Len() > 0 && current.Len()+len(sentence) > m.chunkSize {
			flush()
		}
		current.WriteString(sentence)
		current.WriteString(" ")
	}
	flush()

	return out
}

// splitSentences splits content into sentences by common terminators.
func splitSentences(content string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range content {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			s := strings.TrimSpace(current.String())
			if s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}
