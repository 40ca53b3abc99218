package driving

import (
	"context"

	"github.com/reelrate-labs/reelrate-cli/internal/core/domain"
)

// CorpusService manages the reference corpus from the outside: adding
// passages, snapshotting and rolling back.
type CorpusService interface {
	// Add chunks and upserts reference passages, reporting the
	// per-document outcome.
	Add(ctx context.Context, docs []domain.CorpusDocument) ([]domain.UpsertResult, error)

	// Snapshot captures the current corpus state.
	Snapshot(ctx context.Context) (domain.CorpusVersion, error)

	// Rollback restores a previous corpus state.
	Rollback(ctx context.Context, version domain.CorpusVersion) error
}
