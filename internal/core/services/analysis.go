package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/reelrate-labs/reelrate-cli/internal/core/domain"
	"github.com/reelrate-labs/reelrate-cli/internal/core/ports/driven"
	"github.com/reelrate-labs/reelrate-cli/internal/core/ports/driving"
	"github.com/reelrate-labs/reelrate-cli/internal/logger"
)

// DefaultWorkers bounds the scene worker pool.
const DefaultWorkers = 4

// Ensure AnalysisPipeline implements the interface.
var _ driving.AnalysisService = (*AnalysisPipeline)(nil)

// AnalysisPipeline runs the full scene classification pipeline over a
// script: rule prescreen, retrieval, context augmentation, model
// classification with fallback, and rating aggregation.
//
// Scenes are independent until aggregation joins them, so they are
// processed by a bounded worker pool. Scene outputs may complete out of
// order; the aggregator sorts before returning, making the final output
// independent of completion order.
type AnalysisPipeline struct {
	prescreen   *RulePrescreen
	retriever   *Retriever
	augmentor   *ContextAugmentor
	classifier  *Classifier
	assessments driven.AssessmentStore
	scenes      driven.SceneStore
	corpus      driven.CorpusStore
	policy      domain.RatingPolicy
	workers     int
}

// NewAnalysisPipeline wires the pipeline stages together.
func NewAnalysisPipeline(
	prescreen *RulePrescreen,
	retriever *Retriever,
	augmentor *ContextAugmentor,
	classifier *Classifier,
	assessments driven.AssessmentStore,
	scenes driven.SceneStore,
	corpus driven.CorpusStore,
	policy domain.RatingPolicy,
	workers int,
) *AnalysisPipeline {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &AnalysisPipeline{
		prescreen:   prescreen,
		retriever:   retriever,
		augmentor:   augmentor,
		classifier:  classifier,
		assessments: assessments,
		scenes:      scenes,
		corpus:      corpus,
		policy:      policy,
		workers:     workers,
	}
}

// Analyze classifies every scene and aggregates the final rating.
//
// Cancellation: no new scene starts after ctx is done, but in-flight
// scenes are allowed to finish so corpus writes are never left half
// applied. Completed assessments are retained and returned as a partial
// result rather than discarded. Consistency errors (embedding version
// mismatch, corrupt corpus) abort the whole analysis.
func (p *AnalysisPipeline) Analyze(ctx context.Context, scenes []domain.Scene, opts driving.AnalysisOptions) (*driving.AnalysisResult, error) {
	logger.Section("Script Analysis")

	// Input errors are rejected at the boundary; they never reach the
	// aggregator.
	for _, s := range scenes {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("scene %d (%s): %w", s.Number, s.ID, err)
		}
	}
	if len(scenes) == 0 {
		return nil, fmt.Errorf("no scenes: %w", domain.ErrInvalidInput)
	}

	if p.scenes != nil {
		if err := p.scenes.Save(ctx, scenes); err != nil {
			return nil, fmt.Errorf("store scenes: %w", err)
		}
	}

	var corpusVersion domain.CorpusVersion
	if p.corpus != nil {
		v, err := p.corpus.ActiveVersion(ctx)
		if err != nil {
			return nil, fmt.Errorf("corpus version: %w", err)
		}
		corpusVersion = v
	}

	workers := p.workers
	if opts.Workers > 0 {
		workers = opts.Workers
	}
	logger.Info("Analyzing %d scenes with %d workers (exhaustive=%t)", len(scenes), workers, opts.Exhaustive)

	// Connectivity is checked up front but never aborts the run: scenes
	// that cannot be classified degrade to unclassified, and the
	// conservative policy handles them at aggregation.
	if p.classifier != nil {
		if err := p.classifier.PingModels(ctx); err != nil {
			logger.Warn("Model connectivity: %v (affected scenes will be unclassified)", err)
		}
	}

	// In-flight scenes keep running after cancellation; the model
	// timeout still bounds them.
	workCtx := context.WithoutCancel(ctx)

	var (
		mu        sync.Mutex
		completed []domain.SceneAssessment
		fatal     error
	)
	jobs := make(chan domain.Scene)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for scene := range jobs {
				mu.Lock()
				stop := fatal != nil
				mu.Unlock()
				if stop {
					continue
				}
				a, err := p.processScene(workCtx, scene, opts)
				mu.Lock()
				if err != nil {
					if fatal == nil {
						fatal = err
					}
				} else {
					completed = append(completed, a)
				}
				mu.Unlock()
			}
		}()
	}

	cancelled := false
feed:
	for _, scene := range scenes {
		select {
		case <-ctx.Done():
			cancelled = true
			break feed
		case jobs <- scene:
		}
	}
	close(jobs)
	wg.Wait()

	if fatal != nil {
		return nil, fatal
	}

	sort.Slice(completed, func(i, j int) bool { return completed[i].SceneNumber < completed[j].SceneNumber })

	if p.assessments != nil {
		for _, a := range completed {
			if err := p.assessments.Save(workCtx, a); err != nil {
				return nil, fmt.Errorf("save assessment for scene %s: %w", a.SceneID, err)
			}
		}
	}

	rating := Aggregate(completed, p.policy, opts.Target)
	partial := cancelled || len(completed) < len(scenes)
	if partial {
		logger.Warn("Analysis cancelled: %d of %d scenes completed", len(completed), len(scenes))
	}
	logger.Info("Final rating: %s (%s), %d problem scenes", rating.Final, rating.Rule, len(rating.ProblemScenes))

	return &driving.AnalysisResult{
		Rating:        rating,
		Assessments:   completed,
		CorpusVersion: corpusVersion,
		Partial:       partial,
	}, nil
}

// processScene runs one scene through prescreen, retrieval, augmentation
// and classification. It only returns an error for pipeline-fatal
// conditions; scene-local failures produce an unclassified assessment.
func (p *AnalysisPipeline) processScene(ctx context.Context, scene domain.Scene, opts driving.AnalysisOptions) (domain.SceneAssessment, error) {
	pre := p.prescreen.Scan(scene)

	// Cost gating: the expensive retrieval/classification path only runs
	// for scenes with a plausible signal, unless exhaustive analysis was
	// requested.
	if !pre.AnyFlagged() && !opts.Exhaustive {
		a := newAssessment(scene)
		for _, cat := range domain.Categories {
			a.Findings[cat] = domain.Finding{Severity: domain.SeverityNone, Provenance: domain.ProvenanceRule}
		}
		return a, nil
	}

	cats := pre.FlaggedCategories()
	if opts.Exhaustive {
		cats = domain.Categories
	}

	passages, err := p.retrieve(ctx, scene, cats)
	if err != nil {
		// Consistency errors abort the analysis; they are never
		// degraded around.
		return domain.SceneAssessment{}, err
	}

	block, kept, err := p.augmentor.Build(scene, passages)
	if err != nil {
		// Scene text alone over budget: structured rejection, the scene
		// is unclassified and the rest of the script proceeds.
		logger.Warn("Scene %s: %v", scene.ID, err)
		a := unclassifiedAssessment(ScenePayload{Scene: scene}, cats)
		for cat, f := range a.Findings {
			f.FailureReason = domain.ErrBudgetExceeded.Error()
			a.Findings[cat] = f
		}
		return a, nil
	}

	payload := ScenePayload{
		Scene:        scene,
		ContextBlock: block,
		Passages:     kept,
		Categories:   cats,
	}
	return p.classifier.ClassifyScene(ctx, payload), nil
}

// retrieve gathers grounding passages for every flagged category.
// Retrieval is retried once per category; a second failure degrades to
// classification without grounding. Empty retrieval is not an error.
func (p *AnalysisPipeline) retrieve(ctx context.Context, scene domain.Scene, cats []domain.Category) ([]domain.ScoredDocument, error) {
	if p.retriever == nil {
		return nil, nil
	}

	var all []domain.ScoredDocument
	seen := make(map[string]bool)
	for _, cat := range cats {
		hits, err := p.retriever.Retrieve(ctx, scene.Text, cat)
		if err != nil {
			if errors.Is(err, domain.ErrVersionMismatch) || errors.Is(err, domain.ErrCorpusCorrupt) {
				return nil, err
			}
			// One bounded retry for resource errors.
			hits, err = p.retriever.Retrieve(ctx, scene.Text, cat)
			if err != nil {
				if errors.Is(err, domain.ErrVersionMismatch) || errors.Is(err, domain.ErrCorpusCorrupt) {
					return nil, err
				}
				logger.Warn("Scene %s: retrieval failed for %s: %v (classifying without grounding)", scene.ID, cat, err)
				continue
			}
		}
		for _, h := range hits {
			if !seen[h.Document.ID] {
				seen[h.Document.ID] = true
				all = append(all, h)
			}
		}
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Similarity > all[j].Similarity })
	return all, nil
}
