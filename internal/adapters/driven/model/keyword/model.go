// Package keyword provides a deterministic lexical classifier used as
// the fallback model path. It never calls out to a network service, so
// it is always available; its findings are coarse but grounded in the
// same term lists the rule prescreen uses.
package keyword

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/reelrate-labs/reelrate-cli/internal/core/domain"
	"github.com/reelrate-labs/reelrate-cli/internal/core/ports/driven"
)

// Ensure ModelService implements the interface.
var _ driven.ModelService = (*ModelService)(nil)

// Severity thresholds on distinct matched terms per category.
const (
	moderateMatchCount = 2
	severeMatchCount   = 4
)

// ModelService classifies scenes by term matching against the active
// rule set. Output is deterministic for a fixed rule-set version and
// rendered in the same JSON schema the remote models produce.
type ModelService struct {
	rules driven.RuleSetStore

	mu       sync.Mutex
	compiled map[string]map[domain.Category][]matcher // keyed by rule-set version
}

type matcher struct {
	term string
	re   *regexp.Regexp // nil for plain substring terms
}

// output mirrors the fixed classification schema.
type output struct {
	Categories []outputFinding `json:"categories"`
}

type outputFinding struct {
	Category   string   `json:"category"`
	Severity   string   `json:"severity"`
	Rationale  string   `json:"rationale"`
	Confidence float64  `json:"confidence"`
	Citations  []string `json:"citations"`
}

// NewModelService creates a keyword classifier over the given rule store.
func NewModelService(rules driven.RuleSetStore) *ModelService {
	return &ModelService{
		rules:    rules,
		compiled: make(map[string]map[domain.Category][]matcher),
	}
}

// Classify scans the scene text against the active term lists and
// renders findings in the fixed JSON schema. The context block is
// ignored: lexical matching needs no retrieval grounding, and the
// caller already scales confidence when retrieval came back empty.
func (s *ModelService) Classify(_ context.Context, in driven.ClassifyInput) (string, error) {
	ruleSet := s.rules.Current()
	matchers, err := s.matchers(ruleSet)
	if err != nil {
		return "", err
	}

	cats := in.Categories
	if len(cats) == 0 {
		cats = domain.Categories
	}
	text := strings.ToLower(in.SceneText)

	out := output{Categories: make([]outputFinding, 0, len(cats))}
	for _, cat := range cats {
		var matched []string
		for _, m := range matchers[cat] {
			if m.matches(text) {
				matched = append(matched, m.term)
			}
		}
		out.Categories = append(out.Categories, finding(cat, matched, ruleSet.Version))
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("marshal output: %w", err)
	}
	return string(raw), nil
}

func (m matcher) matches(lowerText string) bool {
	if m.re != nil {
		return m.re.MatchString(lowerText)
	}
	return strings.Contains(lowerText, strings.ToLower(m.term))
}

// finding grades matched terms into a severity. The scale is coarse on
// purpose: one match is mild, a few are moderate, many are severe.
func finding(cat domain.Category, matched []string, version string) outputFinding {
	f := outputFinding{
		Category:  string(cat),
		Severity:  string(domain.SeverityNone),
		Citations: []string{},
	}
	if len(matched) == 0 {
		return f
	}

	switch {
	case len(matched) >= severeMatchCount:
		f.Severity = string(domain.SeveritySevere)
	case len(matched) >= moderateMatchCount:
		f.Severity = string(domain.SeverityModerate)
	default:
		f.Severity = string(domain.SeverityMild)
	}

	f.Confidence = 0.4 + 0.1*float64(len(matched))
	if f.Confidence > 0.8 {
		// Lexical matching can never be as confident as model inference.
		f.Confidence = 0.8
	}
	f.Rationale = fmt.Sprintf("matched terms %s (rule set %s)", strings.Join(matched, ", "), version)
	return f
}

// matchers returns compiled matchers for the rule set, caching per
// version. Terms wrapped in slashes compile as regular expressions;
// invalid patterns fail the whole rule set rather than silently
// degrading coverage.
func (s *ModelService) matchers(ruleSet domain.RuleSet) (map[domain.Category][]matcher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.compiled[ruleSet.Version]; ok {
		return cached, nil
	}

	compiled := make(map[domain.Category][]matcher, len(ruleSet.Terms))
	for cat, terms := range ruleSet.Terms {
		for _, term := range terms {
			m := matcher{term: term}
			if strings.HasPrefix(term, "/") && strings.HasSuffix(term, "/") && len(term) > 2 {
				re, err := regexp.Compile("(?i)" + term[1:len(term)-1])
				if err != nil {
					return nil, fmt.Errorf("rule set %s: term %q: %w", ruleSet.Version, term, err)
				}
				m.re = re
			}
			compiled[cat] = append(compiled[cat], m)
		}
	}

	s.compiled = map[string]map[domain.Category][]matcher{ruleSet.Version: compiled}
	return compiled, nil
}

// ModelName returns the name of the model being used.
func (s *ModelService) ModelName() string {
	return "keyword"
}

// Ping always succeeds: the keyword classifier has no remote dependency.
func (s *ModelService) Ping(_ context.Context) error {
	return nil
}

// Close releases resources.
func (s *ModelService) Close() error {
	return nil
}
