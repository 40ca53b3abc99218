package domain

// RuleSet holds the per-category term lists for the rule prescreen.
// Terms are matched case-insensitively; a term wrapped in slashes
// ("/dead body|corpse/") is treated as a regular expression.
type RuleSet struct {
	// Version identifies the rule set; prescreen output is deterministic
	// for a fixed version.
	Version string

	// Terms maps each category to its trigger terms.
	Terms map[Category][]string
}

// PrescreenFlag is the per-category outcome of the rule prescreen.
type PrescreenFlag struct {
	// Flagged is true when at least one term matched.
	Flagged bool

	// MatchedTerms lists the terms that matched, in rule-set order.
	MatchedTerms []string

	// Confidence is a coarse signal strength in [0,1].
	Confidence float64
}

// PrescreenResult is the full prescreen outcome for one scene.
type PrescreenResult struct {
	// SceneID is the scanned scene.
	SceneID string

	// RuleSetVersion is the rule set the scan used.
	RuleSetVersion string

	// Flags maps each category to its flag. Unmatched categories are
	// present with Flagged=false and Confidence=0.
	Flags map[Category]PrescreenFlag
}

// AnyFlagged returns true when at least one category was flagged.
func (r PrescreenResult) AnyFlagged() bool {
	for _, f := range r.Flags {
		if f.Flagged {
			return true
		}
	}
	return false
}

// FlaggedCategories returns the flagged categories in canonical order.
func (r PrescreenResult) FlaggedCategories() []Category {
	var out []Category
	for _, c := range Categories {
		if r.Flags[c].Flagged {
			out = append(out, c)
		}
	}
	return out
}
