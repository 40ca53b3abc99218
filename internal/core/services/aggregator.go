package services

import (
	"fmt"
	"sort"

	"github.com/reelrate-labs/reelrate-cli/internal/core/domain"
)

// Aggregate derives the final age rating from an assessment set. It is a
// pure function: identical input by value always yields a byte-identical
// RatingResult. No I/O, no randomness, no wall-clock dependence.
//
// The hierarchy is evaluated in this exact order, stopping at the first
// rule that fires:
//
//  1. any category severe anywhere            -> 18+
//  2. any critical category moderate          -> 16+
//  3. mild issues in > threshold of scenes    -> 12+
//  4. any category above none anywhere        -> 6+
//  5. otherwise                               -> 0+
//
// Under the conservative policy an unclassified finding counts as the
// worst case (severe) and fires rule 1. With the policy overridden,
// unclassified findings are excluded from every rule but still reported
// in the Unclassified list.
//
// target is the optional user-supplied target rating; pass the empty
// string for none. Only the TargetDelta field depends on it.
func Aggregate(assessments []domain.SceneAssessment, policy domain.RatingPolicy, target domain.AgeRating) domain.RatingResult {
	// Work on a sorted copy so the output is independent of input order
	// and of scene completion order.
	set := make([]domain.SceneAssessment, len(assessments))
	copy(set, assessments)
	sort.Slice(set, func(i, j int) bool { return set[i].SceneNumber < set[j].SceneNumber })

	result := domain.RatingResult{
		Final:        domain.Rating0,
		Rule:         domain.RuleClean,
		Unclassified: unclassifiedScenes(set),
	}

	if scenes := severeContributors(set, policy); len(scenes) > 0 {
		result.Final = domain.Rating18
		result.Rule = domain.RuleSevere
		result.ProblemScenes = scenes
	} else if scenes := criticalModerateContributors(set, policy); len(scenes) > 0 {
		result.Final = domain.Rating16
		result.Rule = domain.RuleCriticalModerate
		result.ProblemScenes = scenes
	} else if scenes := mildFrequencyContributors(set, policy); len(scenes) > 0 {
		result.Final = domain.Rating12
		result.Rule = domain.RuleMildFrequency
		result.ProblemScenes = scenes
	} else if scenes := anySignalContributors(set); len(scenes) > 0 {
		result.Final = domain.Rating6
		result.Rule = domain.RuleAnySignal
		result.ProblemScenes = scenes
	}

	result.Reasons = reasons(result.ProblemScenes)

	if target != "" && target.IsValid() {
		delta := result.Final.Ordinal() - target.Ordinal()
		result.TargetDelta = &delta
	}

	return result
}

// severeContributors collects findings that fire rule 1: severe
// anywhere, plus unclassified findings under the conservative policy.
func severeContributors(set []domain.SceneAssessment, policy domain.RatingPolicy) []domain.ProblemScene {
	var out []domain.ProblemScene
	for _, a := range set {
		for _, cat := range domain.Categories {
			f := a.FindingFor(cat)
			switch {
			case f.Severity == domain.SeveritySevere:
				out = append(out, problem(a, cat, f.Severity))
			case f.Severity == domain.SeverityUnclassified && policy.ConservativeUnclassified:
				out = append(out, problem(a, cat, f.Severity))
			}
		}
	}
	return out
}

// criticalModerateContributors collects findings that fire rule 2:
// a critical category at moderate.
func criticalModerateContributors(set []domain.SceneAssessment, policy domain.RatingPolicy) []domain.ProblemScene {
	var out []domain.ProblemScene
	for _, a := range set {
		for _, cat := range domain.Categories {
			if !policy.IsCritical(cat) {
				continue
			}
			if a.FindingFor(cat).Severity == domain.SeverityModerate {
				out = append(out, problem(a, cat, domain.SeverityModerate))
			}
		}
	}
	return out
}

// mildFrequencyContributors fires rule 3 when the fraction of scenes
// carrying at least one mild finding exceeds the threshold.
func mildFrequencyContributors(set []domain.SceneAssessment, policy domain.RatingPolicy) []domain.ProblemScene {
	if len(set) == 0 {
		return nil
	}
	var out []domain.ProblemScene
	mildScenes := 0
	for _, a := range set {
		counted := false
		for _, cat := range domain.Categories {
			if a.FindingFor(cat).Severity == domain.SeverityMild {
				out = append(out, problem(a, cat, domain.SeverityMild))
				counted = true
			}
		}
		if counted {
			mildScenes++
		}
	}
	if float64(mildScenes)/float64(len(set)) > policy.MildFrequencyThreshold {
		return out
	}
	return nil
}

// anySignalContributors fires rule 4 on any finding above none.
func anySignalContributors(set []domain.SceneAssessment) []domain.ProblemScene {
	var out []domain.ProblemScene
	for _, a := range set {
		for _, cat := range domain.Categories {
			f := a.FindingFor(cat)
			if f.Severity != domain.SeverityUnclassified && f.Severity.Ordinal() > domain.SeverityNone.Ordinal() {
				out = append(out, problem(a, cat, f.Severity))
			}
		}
	}
	return out
}

func problem(a domain.SceneAssessment, cat domain.Category, sev domain.Severity) domain.ProblemScene {
	return domain.ProblemScene{
		SceneID:      a.SceneID,
		SceneNumber:  a.SceneNumber,
		AssessmentID: a.ID,
		Category:     cat,
		Severity:     sev,
	}
}

func unclassifiedScenes(set []domain.SceneAssessment) []string {
	var out []string
	for _, a := range set {
		for _, cat := range domain.Categories {
			if a.FindingFor(cat).Severity == domain.SeverityUnclassified {
				out = append(out, a.SceneID)
				break
			}
		}
	}
	return out
}

func reasons(scenes []domain.ProblemScene) []string {
	var out []string
	for _, ps := range scenes {
		if ps.Severity == domain.SeverityUnclassified {
			out = append(out, fmt.Sprintf("scene %d: %s unclassified (treated as worst case)", ps.SceneNumber, ps.Category))
			continue
		}
		out = append(out, fmt.Sprintf("scene %d: %s %s", ps.SceneNumber, ps.Category, ps.Severity))
	}
	return out
}
