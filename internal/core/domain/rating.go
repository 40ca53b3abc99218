package domain

// RatingRule identifies the hierarchy rule that decided a rating.
type RatingRule string

// Decisive rules, in evaluation order.
const (
	// RuleSevere fires when any category is severe anywhere.
	RuleSevere RatingRule = "severe_anywhere"

	// RuleCriticalModerate fires when a critical category is moderate.
	RuleCriticalModerate RatingRule = "critical_moderate"

	// RuleMildFrequency fires when mild issues occur in more scenes than
	// the configured fraction of the script.
	RuleMildFrequency RatingRule = "mild_frequency"

	// RuleAnySignal fires when any category is above none anywhere.
	RuleAnySignal RatingRule = "any_signal"

	// RuleClean is the default when no rule fires.
	RuleClean RatingRule = "clean"
)

// RatingPolicy carries the configurable parameters of the aggregation
// hierarchy. Defaults were deliberately left as configuration: the
// production values for the frequency threshold and the dedup ceiling
// were never consistently documented.
type RatingPolicy struct {
	// CriticalCategories is the subset whose moderate findings force 16+.
	CriticalCategories []Category

	// MildFrequencyThreshold is the fraction of scenes with mild issues
	// above which the script rates 12+.
	MildFrequencyThreshold float64

	// ConservativeUnclassified treats unclassified findings as worst-case
	// for every hierarchy step. Overridable, on by default.
	ConservativeUnclassified bool
}

// DefaultRatingPolicy returns the documented default policy.
func DefaultRatingPolicy() RatingPolicy {
	return RatingPolicy{
		CriticalCategories:       []Category{CategoryViolence, CategorySexualContent},
		MildFrequencyThreshold:   0.20,
		ConservativeUnclassified: true,
	}
}

// IsCritical returns true if the category is in the critical subset.
func (p RatingPolicy) IsCritical(c Category) bool {
	for _, crit := range p.CriticalCategories {
		if crit == c {
			return true
		}
	}
	return false
}

// ProblemScene references a scene that contributed to the decisive rule.
type ProblemScene struct {
	// SceneID is the contributing scene.
	SceneID string

	// SceneNumber is its ordinal number; problem scenes are sorted by it.
	SceneNumber int

	// AssessmentID is the assessment version the contribution came from.
	AssessmentID string

	// Category is the contributing category.
	Category Category

	// Severity is the contributing severity.
	Severity Severity
}

// RatingResult is the final derived rating for a script. It is never
// persisted independently of the assessment set it was computed from and
// must be recomputable byte-for-byte from that set.
type RatingResult struct {
	// Final is the aggregated age rating.
	Final AgeRating

	// Rule is the hierarchy rule that decided the rating.
	Rule RatingRule

	// ProblemScenes lists contributing scenes, ordered by scene number.
	ProblemScenes []ProblemScene

	// Reasons explains the rating in free text, one entry per
	// contributing signal, in deterministic order.
	Reasons []string

	// Unclassified lists scene ids that carried unclassified findings,
	// ordered by scene number.
	Unclassified []string

	// TargetDelta is the ordinal distance to a user-supplied target
	// rating: final ordinal minus target ordinal. Nil when no target
	// was supplied.
	TargetDelta *int
}
