package driven

import "github.com/reelrate-labs/reelrate-cli/internal/core/domain"

// RuleSetStore provides the prescreen term sets. Implementations may
// load rule sets from files, embed defaults, or watch for edits.
type RuleSetStore interface {
	// Current returns the active rule set. Prescreen output is
	// deterministic for a fixed rule set version.
	Current() domain.RuleSet

	// Reload forces a fresh load from the backing source.
	Reload() error
}
