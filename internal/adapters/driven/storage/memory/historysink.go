package memory

import (
	"context"
	"sync"

	"github.com/reelrate-labs/reelrate-cli/internal/core/domain"
	"github.com/reelrate-labs/reelrate-cli/internal/core/ports/driven"
)

// Ensure HistorySink implements the interface.
var _ driven.HistorySink = (*HistorySink)(nil)

// HistorySink is an in-memory implementation of driven.HistorySink.
// Records are kept in arrival order.
type HistorySink struct {
	mu      sync.RWMutex
	records []domain.ActionRecord
}

// NewHistorySink creates a new in-memory history sink.
func NewHistorySink() *HistorySink {
	return &HistorySink{}
}

// Record stores one action record.
func (s *HistorySink) Record(_ context.Context, rec domain.ActionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// Records returns a copy of all recorded actions in arrival order.
func (s *HistorySink) Records() []domain.ActionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ActionRecord, len(s.records))
	copy(out, s.records)
	return out
}
