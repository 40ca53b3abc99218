package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input. Input errors
	// are rejected at the boundary and never reach the aggregator.
	ErrInvalidInput = errors.New("invalid input")

	// ErrModelUnavailable indicates no classifier model is reachable.
	// The fallback state machine degrades before surfacing this.
	ErrModelUnavailable = errors.New("model service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured or not reachable.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrCorpusUnavailable indicates the corpus store is not configured.
	ErrCorpusUnavailable = errors.New("corpus store unavailable")

	// ErrVersionMismatch indicates the query embedding model does not
	// match the model the corpus was embedded with. Fatal for the
	// operation; never a silent degrade.
	ErrVersionMismatch = errors.New("embedding model version mismatch")

	// ErrCorpusCorrupt indicates the persisted index failed to load.
	// Fatal: startup must block rather than serve an empty index.
	ErrCorpusCorrupt = errors.New("corpus index corrupt")

	// ErrDuplicateDocument indicates an upsert was rejected because the
	// document is a near-duplicate of an existing vector.
	ErrDuplicateDocument = errors.New("near-duplicate document rejected")

	// ErrBudgetExceeded indicates the scene text alone exceeds the
	// context token budget. Surfaced to the caller, never silently
	// clipped.
	ErrBudgetExceeded = errors.New("scene text exceeds context budget")

	// ErrUnclassified indicates a scene failed classification on both
	// the primary and fallback paths.
	ErrUnclassified = errors.New("scene unclassified")

	// ErrUnknownVersion indicates a rollback target that does not exist.
	ErrUnknownVersion = errors.New("unknown corpus version")

	// ErrMalformedOutput indicates the model returned output that does
	// not match the expected schema.
	ErrMalformedOutput = errors.New("malformed model output")
)
