// Package memory provides the in-memory versioned vector index backing
// the corpus store. Each corpus version is an immutable arena; mutation
// builds a new arena and atomically swaps the active pointer, giving
// lock-free readers and well-defined rollback.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/reelrate-labs/reelrate-cli/internal/core/domain"
	"github.com/reelrate-labs/reelrate-cli/internal/core/ports/driven"
	"github.com/reelrate-labs/reelrate-cli/internal/logger"
)

// DefaultDedupCeiling is the cosine similarity above which an upserted
// document is rejected as a near-duplicate.
const DefaultDedupCeiling = 0.95

// Ensure Index implements the interface.
var _ driven.CorpusStore = (*Index)(nil)

// record is one embedded document inside an arena. The vector is stored
// normalised so similarity is a dot product.
type record struct {
	doc    domain.CorpusDocument
	vector []float32
	seq    uint64
}

// arena is an immutable index state. Arenas are never modified after
// publication; mutation copies into a new arena.
type arena struct {
	version domain.CorpusVersion
	records []record
	model   string
	dims    int
}

// Options configures the index.
type Options struct {
	// DedupCeiling is the near-duplicate rejection threshold
	// (default 0.95).
	DedupCeiling float64
}

// Index is the versioned in-memory corpus store. Mutations are
// serialized by a single writer lock; Search reads the active arena via
// an atomic pointer and never observes a half-applied mutation.
type Index struct {
	embedder driven.EmbeddingService
	ceiling  float64

	mu        sync.Mutex // serializes Upsert/Delete/Rollback/Snapshot
	active    atomic.Pointer[arena]
	snapshots map[domain.CorpusVersion]*arena
	seq       uint64
}

// New creates an empty index. embedder may be nil when all documents
// arrive pre-embedded.
func New(embedder driven.EmbeddingService, opts Options) *Index {
	if opts.DedupCeiling <= 0 || opts.DedupCeiling > 1 {
		opts.DedupCeiling = DefaultDedupCeiling
	}
	idx := &Index{
		embedder:  embedder,
		ceiling:   opts.DedupCeiling,
		snapshots: make(map[domain.CorpusVersion]*arena),
	}
	idx.active.Store(&arena{version: domain.CorpusVersion(uuid.NewString())})
	return idx
}

// Upsert embeds and adds documents. Near-duplicates above the ceiling
// are rejected and reported, not merged; an embedding failure fails that
// document only. The whole batch is applied as one atomic swap.
func (idx *Index) Upsert(ctx context.Context, docs []domain.CorpusDocument) ([]domain.UpsertResult, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	cur := idx.active.Load()
	next := &arena{
		version: domain.CorpusVersion(uuid.NewString()),
		model:   cur.model,
		dims:    cur.dims,
	}
	// Copy-on-write: appending must not disturb arenas shared with
	// snapshots or in-flight readers.
	next.records = make([]record, len(cur.records), len(cur.records)+len(docs))
	copy(next.records, cur.records)

	results := make([]domain.UpsertResult, 0, len(docs))
	for _, doc := range docs {
		res := idx.insert(ctx, next, doc)
		results = append(results, res)
	}

	idx.active.Store(next)
	return results, nil
}

func (idx *Index) insert(ctx context.Context, next *arena, doc domain.CorpusDocument) domain.UpsertResult {
	vector := doc.Embedding
	if len(vector) == 0 {
		if idx.embedder == nil {
			return domain.UpsertResult{DocumentID: doc.ID, Status: domain.UpsertFailed, Err: domain.ErrEmbeddingUnavailable}
		}
		embedded, err := idx.embedder.Embed(ctx, doc.Content)
		if err != nil {
			// Partial success: this document fails, the batch continues.
			return domain.UpsertResult{DocumentID: doc.ID, Status: domain.UpsertFailed, Err: err}
		}
		vector = embedded
		doc.Embedding = embedded
	}

	if next.dims == 0 {
		next.dims = len(vector)
		if idx.embedder != nil {
			next.model = idx.embedder.ModelVersion()
		}
	} else if len(vector) != next.dims {
		return domain.UpsertResult{
			DocumentID: doc.ID,
			Status:     domain.UpsertFailed,
			Err:        fmt.Errorf("vector has %d dimensions, index has %d: %w", len(vector), next.dims, domain.ErrInvalidInput),
		}
	}

	normalised := normalise(vector)
	for _, existing := range next.records {
		if sim := dot(normalised, existing.vector); sim >= idx.ceiling {
			logger.Debug("Corpus: rejected %s as near-duplicate of %s (%.3f >= %.3f)", doc.ID, existing.doc.ID, sim, idx.ceiling)
			return domain.UpsertResult{DocumentID: doc.ID, Status: domain.UpsertDuplicate, DuplicateOf: existing.doc.ID}
		}
	}

	idx.seq++
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	doc.Version = next.version
	next.records = append(next.records, record{doc: doc, vector: normalised, seq: idx.seq})
	return domain.UpsertResult{DocumentID: doc.ID, Status: domain.UpsertAccepted}
}

// Search ranks the active arena by cosine similarity, keeps hits at or
// above the floor that pass the metadata filter, and caps at topK with
// ties broken by insertion order (earliest first). The filter narrows
// the candidate set before the cap: an in-filter document above the
// floor is never starved by higher-ranked out-of-filter hits.
func (idx *Index) Search(_ context.Context, query []float32, topK int, floor float64, filter domain.CorpusFilter) ([]domain.ScoredDocument, error) {
	cur := idx.active.Load()
	if len(cur.records) == 0 {
		return nil, nil
	}
	if cur.dims != len(query) {
		return nil, fmt.Errorf("query has %d dimensions, index has %d: %w", len(query), cur.dims, domain.ErrVersionMismatch)
	}
	if topK <= 0 {
		return nil, nil
	}

	q := normalise(query)
	type scored struct {
		rec record
		sim float64
	}
	var hits []scored
	for _, rec := range cur.records {
		if !filter.Matches(rec.doc) {
			continue
		}
		sim := dot(q, rec.vector)
		if sim >= floor {
			hits = append(hits, scored{rec: rec, sim: sim})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].sim != hits[j].sim {
			return hits[i].sim > hits[j].sim
		}
		return hits[i].rec.seq < hits[j].rec.seq
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}

	out := make([]domain.ScoredDocument, 0, len(hits))
	for _, h := range hits {
		out = append(out, domain.ScoredDocument{Document: h.rec.doc, Similarity: h.sim})
	}
	return out, nil
}

// Delete removes documents from the active index. Historical citations
// are unaffected: they carry copied excerpts.
func (idx *Index) Delete(_ context.Context, ids []string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	cur := idx.active.Load()
	next := &arena{
		version: domain.CorpusVersion(uuid.NewString()),
		model:   cur.model,
		dims:    cur.dims,
	}
	next.records = make([]record, 0, len(cur.records))
	for _, rec := range cur.records {
		if !drop[rec.doc.ID] {
			next.records = append(next.records, rec)
		}
	}

	idx.active.Store(next)
	return nil
}

// Snapshot captures the active arena under its version id. The arena is
// immutable, so the capture is a pointer copy.
func (idx *Index) Snapshot(_ context.Context) (domain.CorpusVersion, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	cur := idx.active.Load()
	idx.snapshots[cur.version] = cur
	return cur.version, nil
}

// Rollback atomically restores a snapshot. Readers see either the old
// state or the restored one, never anything in between.
func (idx *Index) Rollback(_ context.Context, version domain.CorpusVersion) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	snap, ok := idx.snapshots[version]
	if !ok {
		return fmt.Errorf("version %s: %w", version, domain.ErrUnknownVersion)
	}
	idx.active.Store(snap)
	return nil
}

// ActiveVersion returns the version tag of the active arena.
func (idx *Index) ActiveVersion(_ context.Context) (domain.CorpusVersion, error) {
	return idx.active.Load().version, nil
}

// EmbeddingModel returns the model the corpus was embedded with, empty
// while the corpus is empty.
func (idx *Index) EmbeddingModel() string {
	return idx.active.Load().model
}

// Close releases resources.
func (idx *Index) Close() error {
	return nil
}

// Seed bulk-loads pre-embedded documents, bypassing dedup. Used when a
// persistent store rebuilds the index at startup; dimension mismatches
// mean the persisted index is corrupt.
func (idx *Index) Seed(docs []domain.CorpusDocument, model string, version domain.CorpusVersion) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if version == "" {
		version = domain.CorpusVersion(uuid.NewString())
	}
	next := &arena{version: version, model: model}
	next.records = make([]record, 0, len(docs))
	for _, doc := range docs {
		if len(doc.Embedding) == 0 {
			return fmt.Errorf("document %s has no embedding: %w", doc.ID, domain.ErrCorpusCorrupt)
		}
		if next.dims == 0 {
			next.dims = len(doc.Embedding)
		} else if len(doc.Embedding) != next.dims {
			return fmt.Errorf("document %s has %d dimensions, index has %d: %w", doc.ID, len(doc.Embedding), next.dims, domain.ErrCorpusCorrupt)
		}
		idx.seq++
		next.records = append(next.records, record{doc: doc, vector: normalise(doc.Embedding), seq: idx.seq})
	}

	idx.active.Store(next)
	return nil
}

// ActiveDocuments returns the documents of the active arena in insertion
// order. Used by persistent wrappers for snapshot bookkeeping.
func (idx *Index) ActiveDocuments() []domain.CorpusDocument {
	cur := idx.active.Load()
	out := make([]domain.CorpusDocument, 0, len(cur.records))
	for _, rec := range cur.records {
		out = append(out, rec.doc)
	}
	return out
}

func normalise(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
