package services

import (
	"fmt"
	"strings"

	"github.com/reelrate-labs/reelrate-cli/internal/core/domain"
	"github.com/reelrate-labs/reelrate-cli/internal/logger"
)

// DefaultContextBudget is the default token budget for a context block.
const DefaultContextBudget = 2048

// ContextAugmentor assembles the bounded context block handed to the
// classifier: retrieved passages (source, excerpt, similarity) followed
// by the scene text.
//
// Truncation policy: when the assembled block exceeds the budget, whole
// passages are dropped lowest-similarity first. The scene text is never
// truncated and a passage excerpt is never cut mid-sentence - the whole
// passage goes instead.
type ContextAugmentor struct {
	// Budget is the token budget for the assembled block. Tokens are
	// approximated as whitespace-separated words.
	Budget int
}

// NewContextAugmentor creates an augmentor with the given budget.
// A non-positive budget falls back to DefaultContextBudget.
func NewContextAugmentor(budget int) *ContextAugmentor {
	if budget <= 0 {
		budget = DefaultContextBudget
	}
	return &ContextAugmentor{Budget: budget}
}

// Build renders the context block for one scene. It returns the block,
// the passages that survived the budget, and ErrBudgetExceeded when the
// scene text alone does not fit - that condition is surfaced, never
// silently clipped.
func (a *ContextAugmentor) Build(scene domain.Scene, passages []domain.ScoredDocument) (string, []domain.ScoredDocument, error) {
	sceneBlock := "SCENE:\n" + scene.Text
	sceneTokens := tokenCount(sceneBlock)
	if sceneTokens > a.Budget {
		logger.Warn("Augmentor: scene %s alone exceeds budget (%d > %d tokens)", scene.ID, sceneTokens, a.Budget)
		return "", nil, fmt.Errorf("scene %s: %w", scene.ID, domain.ErrBudgetExceeded)
	}

	// Passages arrive ranked by similarity; keep a prefix that fits by
	// dropping from the low-similarity end.
	kept := make([]domain.ScoredDocument, len(passages))
	copy(kept, passages)
	for len(kept) > 0 {
		block := render(kept, sceneBlock)
		if tokenCount(block) <= a.Budget {
			return block, kept, nil
		}
		dropped := kept[len(kept)-1]
		kept = kept[:len(kept)-1]
		logger.Debug("Augmentor: dropped passage %s (similarity %.2f) to fit budget", dropped.Document.ID, dropped.Similarity)
	}

	return sceneBlock, nil, nil
}

func render(passages []domain.ScoredDocument, sceneBlock string) string {
	var b strings.Builder
	b.WriteString("REFERENCE PASSAGES:\n")
	for i, p := range passages {
		fmt.Fprintf(&b, "[%d] %s (%s, similarity %.2f)\n%s\n\n",
			i+1, p.Document.ID, p.Document.SourceLabel, p.Similarity, p.Document.Content)
	}
	b.WriteString(sceneBlock)
	return b.String()
}

// tokenCount approximates the token count as whitespace-separated words.
// The budget is a bound, not a correctness parameter, so the
// approximation only has to be stable.
func tokenCount(s string) int {
	return len(strings.Fields(s))
}
