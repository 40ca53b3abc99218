package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelrate-labs/reelrate-cli/internal/core/domain"
)

// makeAssessment builds an assessment for scene number n with the given
// severities; categories not named carry none.
func makeAssessment(n int, severities map[domain.Category]domain.Severity) domain.SceneAssessment {
	findings := make(map[domain.Category]domain.Finding, len(domain.Categories))
	for _, cat := range domain.Categories {
		findings[cat] = domain.Finding{Severity: domain.SeverityNone, Provenance: domain.ProvenanceModel}
	}
	for cat, sev := range severities {
		findings[cat] = domain.Finding{Severity: sev, Provenance: domain.ProvenanceModel}
	}
	return domain.SceneAssessment{
		ID:          fmt.Sprintf("assessment-%d", n),
		SceneID:     fmt.Sprintf("scene-%d", n),
		ScriptID:    "script-1",
		SceneNumber: n,
		Findings:    findings,
	}
}

func cleanScenes(count int) []domain.SceneAssessment {
	out := make([]domain.SceneAssessment, 0, count)
	for i := 1; i <= count; i++ {
		out = append(out, makeAssessment(i, nil))
	}
	return out
}

func TestAggregate_CleanScript(t *testing.T) {
	result := Aggregate(cleanScenes(5), domain.DefaultRatingPolicy(), "")

	assert.Equal(t, domain.Rating0, result.Final)
	assert.Equal(t, domain.RuleClean, result.Rule)
	assert.Empty(t, result.ProblemScenes)
	assert.Empty(t, result.Unclassified)
}

func TestAggregate_SevereAnywhereIs18(t *testing.T) {
	set := cleanScenes(9)
	set = append(set, makeAssessment(10, map[domain.Category]domain.Severity{
		domain.CategoryViolence: domain.SeveritySevere,
	}))

	result := Aggregate(set, domain.DefaultRatingPolicy(), "")

	assert.Equal(t, domain.Rating18, result.Final)
	assert.Equal(t, domain.RuleSevere, result.Rule)
	require.Len(t, result.ProblemScenes, 1)
	assert.Equal(t, 10, result.ProblemScenes[0].SceneNumber)
	assert.Equal(t, domain.CategoryViolence, result.ProblemScenes[0].Category)
}

func TestAggregate_CriticalModerateIs16(t *testing.T) {
	set := cleanScenes(4)
	set = append(set, makeAssessment(5, map[domain.Category]domain.Severity{
		domain.CategorySexualContent: domain.SeverityModerate,
	}))

	result := Aggregate(set, domain.DefaultRatingPolicy(), "")

	assert.Equal(t, domain.Rating16, result.Final)
	assert.Equal(t, domain.RuleCriticalModerate, result.Rule)
}

func TestAggregate_NonCriticalModerateIsNot16(t *testing.T) {
	set := cleanScenes(4)
	set = append(set, makeAssessment(5, map[domain.Category]domain.Severity{
		domain.CategoryLanguage: domain.SeverityModerate,
	}))

	result := Aggregate(set, domain.DefaultRatingPolicy(), "")

	// Language is not critical: moderate only counts as a signal.
	assert.Equal(t, domain.Rating6, result.Final)
	assert.Equal(t, domain.RuleAnySignal, result.Rule)
}

func TestAggregate_MildFrequencyIs12(t *testing.T) {
	// 3 of 10 scenes mild = 30% > 20% threshold.
	set := cleanScenes(7)
	for n := 8; n <= 10; n++ {
		set = append(set, makeAssessment(n, map[domain.Category]domain.Severity{
			domain.CategoryLanguage: domain.SeverityMild,
		}))
	}

	result := Aggregate(set, domain.DefaultRatingPolicy(), "")

	assert.Equal(t, domain.Rating12, result.Final)
	assert.Equal(t, domain.RuleMildFrequency, result.Rule)
	assert.Len(t, result.ProblemScenes, 3)
}

func TestAggregate_MildBelowThresholdIs6(t *testing.T) {
	// 2 of 10 scenes mild = 20%, not above the threshold.
	set := cleanScenes(8)
	for n := 9; n <= 10; n++ {
		set = append(set, makeAssessment(n, map[domain.Category]domain.Severity{
			domain.CategoryLanguage: domain.SeverityMild,
		}))
	}

	result := Aggregate(set, domain.DefaultRatingPolicy(), "")

	assert.Equal(t, domain.Rating6, result.Final)
	assert.Equal(t, domain.RuleAnySignal, result.Rule)
}

func TestAggregate_ConservativeUnclassifiedRatesWorstCase(t *testing.T) {
	set := cleanScenes(4)
	set = append(set, makeAssessment(5, map[domain.Category]domain.Severity{
		domain.CategoryViolence: domain.SeverityUnclassified,
	}))

	result := Aggregate(set, domain.DefaultRatingPolicy(), "")

	assert.Equal(t, domain.Rating18, result.Final)
	assert.Equal(t, domain.RuleSevere, result.Rule)
	assert.Equal(t, []string{"scene-5"}, result.Unclassified)
	require.Len(t, result.Reasons, 1)
	assert.Contains(t, result.Reasons[0], "unclassified")
}

func TestAggregate_UnclassifiedExcludedWhenPolicyOverridden(t *testing.T) {
	policy := domain.DefaultRatingPolicy()
	policy.ConservativeUnclassified = false

	set := cleanScenes(4)
	set = append(set, makeAssessment(5, map[domain.Category]domain.Severity{
		domain.CategoryViolence: domain.SeverityUnclassified,
	}))

	result := Aggregate(set, policy, "")

	assert.Equal(t, domain.Rating0, result.Final)
	// Still reported, just not rated on.
	assert.Equal(t, []string{"scene-5"}, result.Unclassified)
}

func TestAggregate_ProblemScenesSortedBySceneNumber(t *testing.T) {
	// Deliberately shuffled completion order.
	set := []domain.SceneAssessment{
		makeAssessment(7, map[domain.Category]domain.Severity{domain.CategoryViolence: domain.SeveritySevere}),
		makeAssessment(2, map[domain.Category]domain.Severity{domain.CategoryLanguage: domain.SeveritySevere}),
		makeAssessment(5, map[domain.Category]domain.Severity{domain.CategoryViolence: domain.SeveritySevere}),
	}

	result := Aggregate(set, domain.DefaultRatingPolicy(), "")

	require.Len(t, result.ProblemScenes, 3)
	assert.Equal(t, 2, result.ProblemScenes[0].SceneNumber)
	assert.Equal(t, 5, result.ProblemScenes[1].SceneNumber)
	assert.Equal(t, 7, result.ProblemScenes[2].SceneNumber)
}

func TestAggregate_DeterministicAcrossInputOrder(t *testing.T) {
	forward := []domain.SceneAssessment{
		makeAssessment(1, map[domain.Category]domain.Severity{domain.CategoryLanguage: domain.SeverityMild}),
		makeAssessment(2, map[domain.Category]domain.Severity{domain.CategoryViolence: domain.SeverityModerate}),
		makeAssessment(3, nil),
	}
	reversed := []domain.SceneAssessment{forward[2], forward[1], forward[0]}

	a := Aggregate(forward, domain.DefaultRatingPolicy(), "")
	b := Aggregate(reversed, domain.DefaultRatingPolicy(), "")

	assert.Equal(t, a, b)
}

func TestAggregate_TargetDelta(t *testing.T) {
	set := cleanScenes(1)
	set = append(set, makeAssessment(2, map[domain.Category]domain.Severity{
		domain.CategoryViolence: domain.SeveritySevere,
	}))

	result := Aggregate(set, domain.DefaultRatingPolicy(), domain.Rating12)

	require.NotNil(t, result.TargetDelta)
	// 18+ is two bands above 12+.
	assert.Equal(t, 2, *result.TargetDelta)
}

func TestAggregate_NoTargetNoDelta(t *testing.T) {
	result := Aggregate(cleanScenes(2), domain.DefaultRatingPolicy(), "")
	assert.Nil(t, result.TargetDelta)
}

func TestAggregate_EmptySetIsClean(t *testing.T) {
	result := Aggregate(nil, domain.DefaultRatingPolicy(), "")

	assert.Equal(t, domain.Rating0, result.Final)
	assert.Equal(t, domain.RuleClean, result.Rule)
}

// Severe in one scene dominates however many milds exist elsewhere.
func TestAggregate_HierarchyStopsAtFirstRule(t *testing.T) {
	set := []domain.SceneAssessment{
		makeAssessment(1, map[domain.Category]domain.Severity{domain.CategoryLanguage: domain.SeverityMild}),
		makeAssessment(2, map[domain.Category]domain.Severity{domain.CategoryLanguage: domain.SeverityMild}),
		makeAssessment(3, map[domain.Category]domain.Severity{domain.CategoryViolence: domain.SeveritySevere}),
	}

	result := Aggregate(set, domain.DefaultRatingPolicy(), "")

	assert.Equal(t, domain.Rating18, result.Final)
	assert.Equal(t, domain.RuleSevere, result.Rule)
	// Only the decisive rule's contributors are reported.
	require.Len(t, result.ProblemScenes, 1)
	assert.Equal(t, 3, result.ProblemScenes[0].SceneNumber)
}
