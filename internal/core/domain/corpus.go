package domain

import "time"

// SourceType identifies where a corpus document came from.
type SourceType string

// Available source types.
const (
	// SourceLegal is a statutory or regulatory passage.
	SourceLegal SourceType = "legal"

	// SourceGuideline is a rating-board guideline passage.
	SourceGuideline SourceType = "guideline"

	// SourceExample is a curated labelled example.
	SourceExample SourceType = "example"

	// SourceUserFeedback is an example derived from a user correction.
	SourceUserFeedback SourceType = "user_feedback"
)

// IsValid returns true if the source type is recognised.
func (t SourceType) IsValid() bool {
	switch t {
	case SourceLegal, SourceGuideline, SourceExample, SourceUserFeedback:
		return true
	default:
		return false
	}
}

// CorpusVersion identifies an immutable snapshot of the corpus index.
type CorpusVersion string

// CorpusDocument is an embedded reference passage in the corpus.
type CorpusDocument struct {
	// ID is the unique identifier for the document.
	ID string

	// SourceType classifies the origin of the passage.
	SourceType SourceType

	// SourceLabel is the human-readable source (statute name, board, ...).
	SourceLabel string

	// Category tags the passage with a rating category, if applicable.
	Category Category

	// Severity tags the passage with a severity, if applicable.
	// Empty for passages that are not labelled examples.
	Severity Severity

	// Content is the raw passage text.
	Content string

	// ChunkIndex is the ordinal position when a long passage was split.
	ChunkIndex int

	// Embedding is the vector representation. May be empty on upsert;
	// the store embeds it then.
	Embedding []float32

	// CreatedAt is when the document was added to the corpus.
	CreatedAt time.Time

	// Version is the corpus version tag the document was added under.
	Version CorpusVersion
}

// UpsertStatus reports the per-document outcome of a corpus upsert.
type UpsertStatus string

// Available upsert statuses.
const (
	// UpsertAccepted means the document was added to the index.
	UpsertAccepted UpsertStatus = "accepted"

	// UpsertDuplicate means the document was rejected as a near-duplicate
	// of an existing vector above the dedup ceiling.
	UpsertDuplicate UpsertStatus = "duplicate"

	// UpsertFailed means embedding generation failed for this document.
	// Other documents in the same batch are unaffected.
	UpsertFailed UpsertStatus = "failed"
)

// UpsertResult is the per-document report returned by Upsert.
type UpsertResult struct {
	// DocumentID is the document the result refers to.
	DocumentID string

	// Status is the outcome for this document.
	Status UpsertStatus

	// DuplicateOf names the existing document when Status is duplicate.
	DuplicateOf string

	// Err carries the embedding error when Status is failed.
	Err error
}

// ScoredDocument pairs a corpus document with its similarity to a query.
type ScoredDocument struct {
	// Document is the matched corpus document.
	Document CorpusDocument

	// Similarity is the cosine similarity to the query vector (0-1).
	Similarity float64
}

// CorpusFilter narrows search results by metadata. Filters narrow the
// similarity-ranked candidate set; they never replace similarity ranking.
type CorpusFilter struct {
	// SourceTypes restricts to the given source types when non-empty.
	SourceTypes []SourceType

	// Category restricts to passages tagged with the category when set.
	Category Category

	// Severity restricts to passages tagged with the severity when set.
	Severity Severity
}

// Matches returns true if the document passes the filter.
func (f CorpusFilter) Matches(doc CorpusDocument) bool {
	if len(f.SourceTypes) > 0 {
		ok := false
		for _, t := range f.SourceTypes {
			if doc.SourceType == t {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.Category != "" && doc.Category != f.Category {
		return false
	}
	if f.Severity != "" && doc.Severity != f.Severity {
		return false
	}
	return true
}

// RetrievalQuery parameterises a corpus retrieval. Ephemeral; not
// persisted beyond logging.
type RetrievalQuery struct {
	// Text is the query text (typically the scene text).
	Text string

	// Category is the category context for the retrieval.
	Category Category

	// TopK bounds the number of returned passages.
	TopK int

	// Floor is the minimum similarity for a passage to be returned.
	Floor float64
}
