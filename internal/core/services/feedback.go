package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reelrate-labs/reelrate-cli/internal/core/domain"
	"github.com/reelrate-labs/reelrate-cli/internal/core/ports/driven"
	"github.com/reelrate-labs/reelrate-cli/internal/core/ports/driving"
	"github.com/reelrate-labs/reelrate-cli/internal/logger"
)

// corpusUpdateTimeout bounds the asynchronous corpus learning call.
const corpusUpdateTimeout = 30 * time.Second

// Ensure FeedbackIncorporator implements the interface.
var _ driving.FeedbackService = (*FeedbackIncorporator)(nil)

// FeedbackIncorporator applies user corrections to an existing
// assessment set. Every operation produces a superseding assessment
// version (never a mutation), emits a structured action record for the
// external history layer, recomputes the rating synchronously without
// re-invoking the classifier, and requests a best-effort asynchronous
// corpus update when the correction implies a new labelled example.
type FeedbackIncorporator struct {
	assessments driven.AssessmentStore
	scenes      driven.SceneStore
	history     driven.HistorySink
	corpus      driven.CorpusStore
	policy      domain.RatingPolicy

	wg sync.WaitGroup
}

// NewFeedbackIncorporator creates a feedback incorporator. corpus may be
// nil, in which case corpus learning is disabled; rating corrections are
// unaffected.
func NewFeedbackIncorporator(
	assessments driven.AssessmentStore,
	scenes driven.SceneStore,
	history driven.HistorySink,
	corpus driven.CorpusStore,
	policy domain.RatingPolicy,
) *FeedbackIncorporator {
	return &FeedbackIncorporator{
		assessments: assessments,
		scenes:      scenes,
		history:     history,
		corpus:      corpus,
		policy:      policy,
	}
}

// Ignore sets the category to none with provenance=user. Calling it
// twice in a row is a no-op transition the second time.
func (f *FeedbackIncorporator) Ignore(ctx context.Context, actor, sceneID string, category domain.Category) (*driving.FeedbackOutcome, error) {
	return f.apply(ctx, domain.FeedbackIgnore, actor, sceneID, category, domain.SeverityNone, "")
}

// Add inserts or overwrites a finding with provenance=user.
func (f *FeedbackIncorporator) Add(ctx context.Context, actor, sceneID string, category domain.Category, severity domain.Severity, comment string) (*driving.FeedbackOutcome, error) {
	return f.apply(ctx, domain.FeedbackAdd, actor, sceneID, category, severity, comment)
}

// Edit overwrites the severity of a finding with provenance=user.
func (f *FeedbackIncorporator) Edit(ctx context.Context, actor, sceneID string, category domain.Category, severity domain.Severity) (*driving.FeedbackOutcome, error) {
	return f.apply(ctx, domain.FeedbackEdit, actor, sceneID, category, severity, "")
}

// Wait blocks until pending asynchronous corpus updates finish.
// Used on shutdown and in tests.
func (f *FeedbackIncorporator) Wait() {
	f.wg.Wait()
}

func (f *FeedbackIncorporator) apply(
	ctx context.Context,
	kind domain.FeedbackKind,
	actor, sceneID string,
	category domain.Category,
	severity domain.Severity,
	comment string,
) (*driving.FeedbackOutcome, error) {
	if !category.IsValid() || severity.Ordinal() < 0 {
		return nil, domain.ErrInvalidInput
	}

	latest, err := f.assessments.Latest(ctx, sceneID)
	if err != nil {
		return nil, fmt.Errorf("load assessment for scene %s: %w", sceneID, err)
	}

	previous := latest.FindingFor(category)
	record := domain.ActionRecord{
		ID:               uuid.NewString(),
		Kind:             kind,
		Actor:            actor,
		SceneID:          sceneID,
		Category:         category,
		PreviousSeverity: previous.Severity,
		NewSeverity:      severity,
		Comment:          comment,
		SupersededID:     latest.ID,
		OccurredAt:       time.Now().UTC(),
	}

	// Idempotence: re-applying the same user correction produces no new
	// version. The rating is still recomputed and returned.
	if previous.Severity == severity && previous.Provenance == domain.ProvenanceUser {
		record.AssessmentID = latest.ID
		f.emit(ctx, record)
		rating, err := f.recompute(ctx, latest.ScriptID)
		if err != nil {
			return nil, err
		}
		return &driving.FeedbackOutcome{Assessment: *latest, Rating: *rating, NoOp: true}, nil
	}

	next := supersede(*latest, category, severity, comment)
	if err := f.assessments.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("save assessment version: %w", err)
	}
	record.AssessmentID = next.ID
	f.emit(ctx, record)

	// The rating recomputation completes before any corpus learning is
	// even scheduled: corpus updates are best-effort and must never
	// affect rating correctness.
	rating, err := f.recompute(ctx, next.ScriptID)
	if err != nil {
		return nil, err
	}

	f.scheduleCorpusUpdate(sceneID, category, severity)

	return &driving.FeedbackOutcome{Assessment: next, Rating: *rating}, nil
}

// supersede builds the new assessment version replacing the latest one.
func supersede(latest domain.SceneAssessment, category domain.Category, severity domain.Severity, comment string) domain.SceneAssessment {
	findings := make(map[domain.Category]domain.Finding, len(latest.Findings)+1)
	for c, finding := range latest.Findings {
		findings[c] = finding
	}
	findings[category] = domain.Finding{
		Severity:   severity,
		Rationale:  comment,
		Confidence: 1.0,
		Provenance: domain.ProvenanceUser,
	}
	return domain.SceneAssessment{
		ID:           uuid.NewString(),
		SceneID:      latest.SceneID,
		ScriptID:     latest.ScriptID,
		SceneNumber:  latest.SceneNumber,
		SupersedesID: latest.ID,
		Findings:     findings,
		CreatedAt:    time.Now().UTC(),
	}
}

func (f *FeedbackIncorporator) recompute(ctx context.Context, scriptID string) (*domain.RatingResult, error) {
	set, err := f.assessments.LatestSet(ctx, scriptID)
	if err != nil {
		return nil, fmt.Errorf("load assessment set: %w", err)
	}
	rating := Aggregate(set, f.policy, "")
	return &rating, nil
}

func (f *FeedbackIncorporator) emit(ctx context.Context, rec domain.ActionRecord) {
	if f.history == nil {
		return
	}
	if err := f.history.Record(ctx, rec); err != nil {
		logger.Warn("Feedback: action record %s not delivered: %v", rec.ID, err)
	}
}

// scheduleCorpusUpdate turns a correction into a labelled example for
// the corpus: an ignore is a negative example, an add or edit a positive
// one. The update runs asynchronously and is subject to the store's
// dedup ceiling; failure is logged and never propagated.
func (f *FeedbackIncorporator) scheduleCorpusUpdate(sceneID string, category domain.Category, severity domain.Severity) {
	if f.corpus == nil || f.scenes == nil {
		return
	}
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), corpusUpdateTimeout)
		defer cancel()

		scene, err := f.scenes.Get(ctx, sceneID)
		if err != nil {
			logger.Warn("Feedback: corpus update skipped, scene %s: %v", sceneID, err)
			return
		}

		doc := domain.CorpusDocument{
			ID:          uuid.NewString(),
			SourceType:  domain.SourceUserFeedback,
			SourceLabel: "user feedback",
			Category:    category,
			Severity:    severity,
			Content:     scene.Text,
			CreatedAt:   time.Now().UTC(),
		}
		results, err := f.corpus.Upsert(ctx, []domain.CorpusDocument{doc})
		if err != nil {
			logger.Warn("Feedback: corpus update failed for scene %s: %v", sceneID, err)
			return
		}
		for _, r := range results {
			if r.Status != domain.UpsertAccepted {
				logger.Debug("Feedback: corpus example %s not added: %s", r.DocumentID, r.Status)
			}
		}
	}()
}
