package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/reelrate-labs/reelrate-cli/internal/core/domain"
	"github.com/reelrate-labs/reelrate-cli/internal/core/ports/driven"
	"github.com/reelrate-labs/reelrate-cli/internal/logger"
)

// DefaultModelTimeout bounds a single model call. A timeout is treated
// identically to "primary unavailable" in the fallback state machine,
// never as a silent success with empty output.
const DefaultModelTimeout = 120 * time.Second

// noGroundingScale is applied to classifier confidence when retrieval
// produced no passages: the finding lacks legal grounding.
const noGroundingScale = 0.6

// ScenePayload is one classification work item: a scene with its
// augmented context.
type ScenePayload struct {
	Scene        domain.Scene
	ContextBlock string
	Passages     []domain.ScoredDocument

	// Categories restricts classification; empty means all.
	Categories []domain.Category
}

// Classifier runs model inference over scene payloads and parses the
// fixed per-category schema into assessments.
//
// Fallback state machine: primary available -> primary; primary error,
// timeout or malformed output (after one bounded retry) -> fallback;
// both unavailable -> the scene fails with the unclassified sentinel,
// never a guess.
type Classifier struct {
	primary  driven.ModelService
	fallback driven.ModelService
	timeout  time.Duration
}

// NewClassifier creates a classifier. fallback may be nil, in which case
// a primary failure marks the scene unclassified directly.
func NewClassifier(primary, fallback driven.ModelService, timeout time.Duration) *Classifier {
	if timeout <= 0 {
		timeout = DefaultModelTimeout
	}
	return &Classifier{primary: primary, fallback: fallback, timeout: timeout}
}

// modelOutput is the fixed schema the model must produce.
type modelOutput struct {
	Categories []modelFinding `json:"categories"`
}

type modelFinding struct {
	Category   string   `json:"category"`
	Severity   string   `json:"severity"`
	Rationale  string   `json:"rationale"`
	Confidence float64  `json:"confidence"`
	Citations  []string `json:"citations"`
}

// ClassifyBatch classifies a batch of payloads. Batch size is a
// throughput tunable, not a correctness parameter: each scene is
// classified independently, so per-scene output is identical regardless
// of batch composition.
func (c *Classifier) ClassifyBatch(ctx context.Context, batch []ScenePayload) []domain.SceneAssessment {
	out := make([]domain.SceneAssessment, 0, len(batch))
	for _, payload := range batch {
		out = append(out, c.ClassifyScene(ctx, payload))
	}
	return out
}

// ClassifyScene classifies one scene. It always returns an assessment:
// when both model paths fail, the requested categories carry the
// unclassified sentinel with the failure reason.
func (c *Classifier) ClassifyScene(ctx context.Context, payload ScenePayload) domain.SceneAssessment {
	cats := payload.Categories
	if len(cats) == 0 {
		cats = domain.Categories
	}

	in := driven.ClassifyInput{
		SceneText:    payload.Scene.Text,
		ContextBlock: payload.ContextBlock,
		Categories:   cats,
	}

	if c.primary != nil {
		findings, err := c.invoke(ctx, c.primary, in)
		if err == nil {
			return c.assessment(payload, cats, findings)
		}
		logger.Warn("Classifier: primary %s failed for scene %s: %v (falling back)",
			c.primary.ModelName(), payload.Scene.ID, err)
	}

	if c.fallback != nil {
		findings, err := c.invoke(ctx, c.fallback, in)
		if err == nil {
			return c.assessment(payload, cats, findings)
		}
		logger.Warn("Classifier: fallback %s failed for scene %s: %v",
			c.fallback.ModelName(), payload.Scene.ID, err)
	}

	// Both paths exhausted: mark unclassified, do not guess.
	return unclassifiedAssessment(payload, cats)
}

// invoke calls one model with the timeout applied and parses its output.
// Malformed output triggers one bounded retry before the call is treated
// as failed.
func (c *Classifier) invoke(ctx context.Context, model driven.ModelService, in driven.ClassifyInput) (map[domain.Category]modelFinding, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		raw, err := model.Classify(callCtx, in)
		cancel()
		if err != nil {
			// Timeouts and transport errors route to the fallback; a
			// retry here would only be re-asking an unavailable service.
			return nil, err
		}

		findings, err := parseModelOutput(raw, in.Categories)
		if err == nil {
			return findings, nil
		}
		lastErr = err
		logger.Debug("Classifier: malformed output from %s (attempt %d): %v", model.ModelName(), attempt+1, err)
	}
	return nil, lastErr
}

// parseModelOutput validates the fixed schema and keeps only requested,
// recognised categories.
func parseModelOutput(raw string, requested []domain.Category) (map[domain.Category]modelFinding, error) {
	raw = strings.TrimSpace(raw)
	// Models occasionally wrap JSON in a code fence; strip it before
	// declaring the output malformed.
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var out modelOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedOutput, err)
	}
	if len(out.Categories) == 0 {
		return nil, fmt.Errorf("%w: no categories", domain.ErrMalformedOutput)
	}

	wanted := make(map[domain.Category]bool, len(requested))
	for _, c := range requested {
		wanted[c] = true
	}

	findings := make(map[domain.Category]modelFinding)
	for _, f := range out.Categories {
		cat := domain.Category(f.Category)
		sev := domain.Severity(f.Severity)
		if !cat.IsValid() || !wanted[cat] {
			continue
		}
		if !sev.IsValid() || sev == domain.SeverityUnclassified {
			return nil, fmt.Errorf("%w: severity %q for %s", domain.ErrMalformedOutput, f.Severity, f.Category)
		}
		findings[cat] = f
	}
	if len(findings) == 0 {
		return nil, fmt.Errorf("%w: no usable categories", domain.ErrMalformedOutput)
	}
	return findings, nil
}

// assessment converts parsed findings into a SceneAssessment with
// provenance=model. Requested categories the model stayed silent on are
// recorded as explicit none.
func (c *Classifier) assessment(payload ScenePayload, cats []domain.Category, findings map[domain.Category]modelFinding) domain.SceneAssessment {
	a := newAssessment(payload.Scene)
	for _, cat := range cats {
		f, ok := findings[cat]
		if !ok {
			a.Findings[cat] = domain.Finding{Severity: domain.SeverityNone, Provenance: domain.ProvenanceModel}
			continue
		}
		confidence := clamp01(f.Confidence)
		if len(payload.Passages) == 0 {
			confidence *= noGroundingScale
		}
		a.Findings[cat] = domain.Finding{
			Severity:   domain.Severity(f.Severity),
			Rationale:  f.Rationale,
			Confidence: confidence,
			Provenance: domain.ProvenanceModel,
			Citations:  resolveCitations(f.Citations, payload.Passages),
		}
	}
	return a
}

func unclassifiedAssessment(payload ScenePayload, cats []domain.Category) domain.SceneAssessment {
	a := newAssessment(payload.Scene)
	reason := domain.ErrUnclassified.Error()
	for _, cat := range cats {
		a.Findings[cat] = domain.Finding{
			Severity:      domain.SeverityUnclassified,
			Provenance:    domain.ProvenanceModel,
			FailureReason: reason,
		}
	}
	return a
}

func newAssessment(scene domain.Scene) domain.SceneAssessment {
	return domain.SceneAssessment{
		ID:          uuid.NewString(),
		SceneID:     scene.ID,
		ScriptID:    scene.ScriptID,
		SceneNumber: scene.Number,
		Findings:    make(map[domain.Category]domain.Finding),
		CreatedAt:   time.Now().UTC(),
	}
}

// resolveCitations maps cited document ids onto the retrieved passages.
// Citations are copies: excerpt, similarity and rank are captured now so
// the assessment stays interpretable after corpus changes.
func resolveCitations(ids []string, passages []domain.ScoredDocument) []domain.Citation {
	var out []domain.Citation
	for _, id := range ids {
		for rank, p := range passages {
			if p.Document.ID == id {
				out = append(out, domain.Citation{
					DocumentID:  p.Document.ID,
					SourceLabel: p.Document.SourceLabel,
					Excerpt:     p.Document.Content,
					Similarity:  p.Similarity,
					Rank:        rank + 1,
				})
				break
			}
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// PingModels validates classifier connectivity at pipeline construction.
// The primary being down is tolerated when a fallback exists.
func (c *Classifier) PingModels(ctx context.Context) error {
	var primaryErr error
	if c.primary != nil {
		primaryErr = c.primary.Ping(ctx)
	}
	if primaryErr == nil && c.primary != nil {
		return nil
	}
	if c.fallback != nil {
		if err := c.fallback.Ping(ctx); err == nil {
			return nil
		}
	}
	if primaryErr != nil {
		return fmt.Errorf("%w: %v", domain.ErrModelUnavailable, primaryErr)
	}
	return errors.New("no classifier model configured")
}
