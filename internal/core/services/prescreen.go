package services

import (
	"regexp"
	"strings"
	"sync"

	"github.com/reelrate-labs/reelrate-cli/internal/core/domain"
	"github.com/reelrate-labs/reelrate-cli/internal/core/ports/driven"
	"github.com/reelrate-labs/reelrate-cli/internal/logger"
)

// Prescreen confidence shape: one match is a weak signal, every further
// distinct term raises it until the cap.
const (
	prescreenBaseConfidence = 0.5
	prescreenStepConfidence = 0.15
)

// RulePrescreen performs the cheap lexical scan that gates the expensive
// retrieval/classification path. It is a pure function of (rule set,
// scene text): no I/O, never errors on malformed input.
type RulePrescreen struct {
	rules driven.RuleSetStore

	// Compiled patterns are cached per rule-set version.
	mu       sync.Mutex
	compiled map[string]map[domain.Category][]compiledTerm
}

type compiledTerm struct {
	raw     string
	pattern *regexp.Regexp // nil for plain substring terms
	lowered string
}

// NewRulePrescreen creates a prescreen over the given rule set store.
func NewRulePrescreen(rules driven.RuleSetStore) *RulePrescreen {
	return &RulePrescreen{
		rules:    rules,
		compiled: make(map[string]map[domain.Category][]compiledTerm),
	}
}

// Scan scans one scene against the active rule set. Every category is
// present in the result; unmatched categories carry Flagged=false and
// Confidence=0.
func (p *RulePrescreen) Scan(scene domain.Scene) domain.PrescreenResult {
	rs := p.rules.Current()
	terms := p.compile(rs)

	text := strings.ToLower(scene.Text)
	result := domain.PrescreenResult{
		SceneID:        scene.ID,
		RuleSetVersion: rs.Version,
		Flags:          make(map[domain.Category]domain.PrescreenFlag, len(domain.Categories)),
	}

	for _, cat := range domain.Categories {
		var matched []string
		for _, term := range terms[cat] {
			if term.matches(text) {
				matched = append(matched, term.raw)
			}
		}
		flag := domain.PrescreenFlag{}
		if len(matched) > 0 {
			flag.Flagged = true
			flag.MatchedTerms = matched
			flag.Confidence = prescreenConfidence(len(matched))
		}
		result.Flags[cat] = flag
	}

	if result.AnyFlagged() {
		logger.Debug("Prescreen: scene %s flagged %v", scene.ID, result.FlaggedCategories())
	}
	return result
}

func (t compiledTerm) matches(loweredText string) bool {
	if t.pattern != nil {
		return t.pattern.MatchString(loweredText)
	}
	return strings.Contains(loweredText, t.lowered)
}

func prescreenConfidence(matches int) float64 {
	c := prescreenBaseConfidence + prescreenStepConfidence*float64(matches-1)
	if c > 1.0 {
		c = 1.0
	}
	return c
}

// compile builds (and caches) the matchers for a rule-set version.
// Terms wrapped in slashes are treated as regular expressions; a term
// that fails to compile is kept as a plain substring so a bad rule file
// never breaks the scan.
func (p *RulePrescreen) compile(rs domain.RuleSet) map[domain.Category][]compiledTerm {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cached, ok := p.compiled[rs.Version]; ok {
		return cached
	}

	out := make(map[domain.Category][]compiledTerm, len(rs.Terms))
	for cat, list := range rs.Terms {
		for _, raw := range list {
			term := compiledTerm{raw: raw, lowered: strings.ToLower(raw)}
			if len(raw) > 2 && strings.HasPrefix(raw, "/") && strings.HasSuffix(raw, "/") {
				expr := raw[1 : len(raw)-1]
				re, err := regexp.Compile("(?i)" + expr)
				if err != nil {
					logger.Warn("Prescreen: invalid rule pattern %q: %v (using substring match)", raw, err)
					term.lowered = strings.ToLower(expr)
				} else {
					term.pattern = re
				}
			}
			out[cat] = append(out[cat], term)
		}
	}

	p.compiled[rs.Version] = out
	return out
}
