package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memstorage "github.com/reelrate-labs/reelrate-cli/internal/adapters/driven/storage/memory"
	"github.com/reelrate-labs/reelrate-cli/internal/core/domain"
)

// recordingCorpus captures upserted documents for assertions.
type recordingCorpus struct {
	fakeCorpus

	mu   sync.Mutex
	docs []domain.CorpusDocument
	fail bool
}

func (r *recordingCorpus) Upsert(_ context.Context, docs []domain.CorpusDocument) ([]domain.UpsertResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return nil, errors.New("corpus down")
	}
	r.docs = append(r.docs, docs...)
	out := make([]domain.UpsertResult, len(docs))
	for i, d := range docs {
		out[i] = domain.UpsertResult{DocumentID: d.ID, Status: domain.UpsertAccepted}
	}
	return out, nil
}

func (r *recordingCorpus) upserted() []domain.CorpusDocument {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.CorpusDocument, len(r.docs))
	copy(out, r.docs)
	return out
}

type feedbackFixture struct {
	assessments *memstorage.AssessmentStore
	scenes      *memstorage.SceneStore
	history     *memstorage.HistorySink
	corpus      *recordingCorpus
	svc         *FeedbackIncorporator
}

func newFeedbackFixture(t *testing.T, initial ...domain.SceneAssessment) *feedbackFixture {
	t.Helper()
	fx := &feedbackFixture{
		assessments: memstorage.NewAssessmentStore(),
		scenes:      memstorage.NewSceneStore(),
		history:     memstorage.NewHistorySink(),
		corpus:      &recordingCorpus{},
	}
	ctx := context.Background()
	for _, a := range initial {
		require.NoError(t, fx.assessments.Save(ctx, a))
		require.NoError(t, fx.scenes.Save(ctx, []domain.Scene{{
			ID: a.SceneID, ScriptID: a.ScriptID, Number: a.SceneNumber, Text: "scene text",
		}}))
	}
	fx.svc = NewFeedbackIncorporator(fx.assessments, fx.scenes, fx.history, fx.corpus, domain.DefaultRatingPolicy())
	return fx
}

func TestFeedback_AddSupersedesAndRecomputes(t *testing.T) {
	fx := newFeedbackFixture(t, makeAssessment(1, nil))

	outcome, err := fx.svc.Add(context.Background(), "reviewer", "scene-1", domain.CategoryViolence, domain.SeveritySevere, "missed stabbing")

	require.NoError(t, err)
	assert.False(t, outcome.NoOp)
	assert.Equal(t, "assessment-1", outcome.Assessment.SupersedesID)
	f := outcome.Assessment.FindingFor(domain.CategoryViolence)
	assert.Equal(t, domain.SeveritySevere, f.Severity)
	assert.Equal(t, domain.ProvenanceUser, f.Provenance)
	assert.Equal(t, "missed stabbing", f.Rationale)
	assert.Equal(t, domain.Rating18, outcome.Rating.Final)

	history, err := fx.assessments.History(context.Background(), "scene-1")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestFeedback_IgnoreClearsFinding(t *testing.T) {
	fx := newFeedbackFixture(t, makeAssessment(1, map[domain.Category]domain.Severity{
		domain.CategoryViolence: domain.SeveritySevere,
	}))

	outcome, err := fx.svc.Ignore(context.Background(), "reviewer", "scene-1", domain.CategoryViolence)

	require.NoError(t, err)
	assert.Equal(t, domain.SeverityNone, outcome.Assessment.FindingFor(domain.CategoryViolence).Severity)
	assert.Equal(t, domain.Rating0, outcome.Rating.Final)
	assert.Empty(t, outcome.Rating.ProblemScenes)
}

func TestFeedback_SecondIdenticalCorrectionIsNoOp(t *testing.T) {
	fx := newFeedbackFixture(t, makeAssessment(1, nil))
	ctx := context.Background()

	first, err := fx.svc.Edit(ctx, "reviewer", "scene-1", domain.CategoryViolence, domain.SeverityMild)
	require.NoError(t, err)
	require.False(t, first.NoOp)

	second, err := fx.svc.Edit(ctx, "reviewer", "scene-1", domain.CategoryViolence, domain.SeverityMild)
	require.NoError(t, err)
	assert.True(t, second.NoOp)
	assert.Equal(t, first.Assessment.ID, second.Assessment.ID)
	// The rating is still recomputed and returned on the no-op path.
	assert.Equal(t, first.Rating.Final, second.Rating.Final)

	history, err := fx.assessments.History(ctx, "scene-1")
	require.NoError(t, err)
	assert.Len(t, history, 2) // initial + one correction, not two
}

func TestFeedback_EmitsActionRecord(t *testing.T) {
	fx := newFeedbackFixture(t, makeAssessment(1, map[domain.Category]domain.Severity{
		domain.CategoryLanguage: domain.SeverityMild,
	}))

	outcome, err := fx.svc.Edit(context.Background(), "reviewer", "scene-1", domain.CategoryLanguage, domain.SeverityModerate)
	require.NoError(t, err)

	records := fx.history.Records()
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, domain.FeedbackEdit, rec.Kind)
	assert.Equal(t, "reviewer", rec.Actor)
	assert.Equal(t, "scene-1", rec.SceneID)
	assert.Equal(t, domain.SeverityMild, rec.PreviousSeverity)
	assert.Equal(t, domain.SeverityModerate, rec.NewSeverity)
	assert.Equal(t, "assessment-1", rec.SupersededID)
	assert.Equal(t, outcome.Assessment.ID, rec.AssessmentID)
}

func TestFeedback_SchedulesCorpusLearning(t *testing.T) {
	fx := newFeedbackFixture(t, makeAssessment(1, nil))

	_, err := fx.svc.Add(context.Background(), "reviewer", "scene-1", domain.CategoryViolence, domain.SeverityModerate, "")
	require.NoError(t, err)
	fx.svc.Wait()

	docs := fx.corpus.upserted()
	require.Len(t, docs, 1)
	assert.Equal(t, domain.SourceUserFeedback, docs[0].SourceType)
	assert.Equal(t, domain.CategoryViolence, docs[0].Category)
	assert.Equal(t, domain.SeverityModerate, docs[0].Severity)
	assert.Equal(t, "scene text", docs[0].Content)
}

func TestFeedback_CorpusFailureDoesNotAffectOutcome(t *testing.T) {
	fx := newFeedbackFixture(t, makeAssessment(1, nil))
	fx.corpus.fail = true

	outcome, err := fx.svc.Add(context.Background(), "reviewer", "scene-1", domain.CategoryViolence, domain.SeverityMild, "")
	require.NoError(t, err)
	fx.svc.Wait()

	assert.False(t, outcome.NoOp)
	assert.Empty(t, fx.corpus.upserted())
}

func TestFeedback_UnknownSceneFails(t *testing.T) {
	fx := newFeedbackFixture(t)

	_, err := fx.svc.Ignore(context.Background(), "reviewer", "missing", domain.CategoryViolence)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFeedback_InvalidInputRejected(t *testing.T) {
	fx := newFeedbackFixture(t, makeAssessment(1, nil))

	_, err := fx.svc.Add(context.Background(), "reviewer", "scene-1", "not_a_category", domain.SeverityMild, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = fx.svc.Add(context.Background(), "reviewer", "scene-1", domain.CategoryViolence, domain.SeverityUnclassified, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// Ten scenes, nine clean, scene 10 violence=severe: the script rates
// 18+ with scene 10 as the sole problem scene; ignoring that finding
// drops the recomputed rating to a clean 0+.
func TestFeedback_SevereFinalSceneThenIgnored(t *testing.T) {
	initial := cleanScenes(9)
	initial = append(initial, makeAssessment(10, map[domain.Category]domain.Severity{
		domain.CategoryViolence: domain.SeveritySevere,
	}))
	fx := newFeedbackFixture(t, initial...)
	ctx := context.Background()

	before := Aggregate(initial, domain.DefaultRatingPolicy(), "")
	require.Equal(t, domain.Rating18, before.Final)
	require.Equal(t, domain.RuleSevere, before.Rule)
	require.Len(t, before.ProblemScenes, 1)
	require.Equal(t, 10, before.ProblemScenes[0].SceneNumber)
	require.Empty(t, before.Unclassified)

	outcome, err := fx.svc.Ignore(ctx, "reviewer", "scene-10", domain.CategoryViolence)
	require.NoError(t, err)

	assert.False(t, outcome.NoOp)
	assert.Equal(t, domain.Rating0, outcome.Rating.Final)
	assert.Equal(t, domain.RuleClean, outcome.Rating.Rule)
	assert.Empty(t, outcome.Rating.ProblemScenes)

	// The stored set recomputes to the same rating.
	latest, err := fx.assessments.LatestSet(ctx, "script-1")
	require.NoError(t, err)
	require.Len(t, latest, 10)
	assert.Equal(t, domain.Rating0, Aggregate(latest, domain.DefaultRatingPolicy(), "").Final)
}

// A severe finding drives 18+; ignoring it drops the script to 0+ with
// no residual problem scenes.
func TestFeedback_IgnoreSevereDropsRating(t *testing.T) {
	initial := []domain.SceneAssessment{
		makeAssessment(1, nil),
		makeAssessment(2, nil),
		makeAssessment(3, map[domain.Category]domain.Severity{domain.CategoryViolence: domain.SeveritySevere}),
	}
	fx := newFeedbackFixture(t, initial...)

	before := Aggregate(initial, domain.DefaultRatingPolicy(), "")
	require.Equal(t, domain.Rating18, before.Final)

	outcome, err := fx.svc.Ignore(context.Background(), "reviewer", "scene-3", domain.CategoryViolence)
	require.NoError(t, err)

	assert.Equal(t, domain.Rating0, outcome.Rating.Final)
	assert.Equal(t, domain.RuleClean, outcome.Rating.Rule)
	assert.Empty(t, outcome.Rating.ProblemScenes)
}
