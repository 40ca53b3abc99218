package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelrate-labs/reelrate-cli/internal/core/domain"
)

func assessment(sceneID string, number int, severity domain.Severity) domain.SceneAssessment {
	return domain.SceneAssessment{
		ID:          fmt.Sprintf("%s-v-%s", sceneID, severity),
		SceneID:     sceneID,
		ScriptID:    "script-1",
		SceneNumber: number,
		Findings: map[domain.Category]domain.Finding{
			domain.CategoryViolence: {Severity: severity, Provenance: domain.ProvenanceModel},
		},
	}
}

func TestAssessmentStore_SaveAndLatest(t *testing.T) {
	store := NewAssessmentStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, assessment("s1", 1, domain.SeverityMild)))

	got, err := store.Latest(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.SeverityMild, got.FindingFor(domain.CategoryViolence).Severity)
}

func TestAssessmentStore_LatestIsNewestVersion(t *testing.T) {
	store := NewAssessmentStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, assessment("s1", 1, domain.SeverityMild)))
	require.NoError(t, store.Save(ctx, assessment("s1", 1, domain.SeveritySevere)))

	got, err := store.Latest(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.SeveritySevere, got.FindingFor(domain.CategoryViolence).Severity)
}

func TestAssessmentStore_LatestMissingScene(t *testing.T) {
	store := NewAssessmentStore()

	_, err := store.Latest(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAssessmentStore_SaveRejectsInvalid(t *testing.T) {
	store := NewAssessmentStore()

	err := store.Save(context.Background(), domain.SceneAssessment{SceneID: "s1"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAssessmentStore_LatestSetOrderedBySceneNumber(t *testing.T) {
	store := NewAssessmentStore()
	ctx := context.Background()

	// Saved out of scene order on purpose.
	require.NoError(t, store.Save(ctx, assessment("s3", 3, domain.SeverityNone)))
	require.NoError(t, store.Save(ctx, assessment("s1", 1, domain.SeverityNone)))
	require.NoError(t, store.Save(ctx, assessment("s2", 2, domain.SeverityNone)))

	set, err := store.LatestSet(ctx, "script-1")
	require.NoError(t, err)
	require.Len(t, set, 3)
	for i, a := range set {
		assert.Equal(t, i+1, a.SceneNumber)
	}
}

func TestAssessmentStore_LatestSetTakesNewestPerScene(t *testing.T) {
	store := NewAssessmentStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, assessment("s1", 1, domain.SeverityMild)))
	require.NoError(t, store.Save(ctx, assessment("s1", 1, domain.SeveritySevere)))

	set, err := store.LatestSet(ctx, "script-1")
	require.NoError(t, err)
	require.Len(t, set, 1)
	assert.Equal(t, domain.SeveritySevere, set[0].FindingFor(domain.CategoryViolence).Severity)
}

func TestAssessmentStore_LatestSetUnknownScript(t *testing.T) {
	store := NewAssessmentStore()

	set, err := store.LatestSet(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, set)
}

func TestAssessmentStore_HistoryOldestFirst(t *testing.T) {
	store := NewAssessmentStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, assessment("s1", 1, domain.SeverityMild)))
	require.NoError(t, store.Save(ctx, assessment("s1", 1, domain.SeverityModerate)))
	require.NoError(t, store.Save(ctx, assessment("s1", 1, domain.SeveritySevere)))

	history, err := store.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, domain.SeverityMild, history[0].FindingFor(domain.CategoryViolence).Severity)
	assert.Equal(t, domain.SeveritySevere, history[2].FindingFor(domain.CategoryViolence).Severity)

	_, err = store.History(ctx, "unknown")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
