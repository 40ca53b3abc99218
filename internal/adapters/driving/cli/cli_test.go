package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelrate-labs/reelrate-cli/internal/core/domain"
	"github.com/reelrate-labs/reelrate-cli/internal/core/ports/driving"
)

// fakeAnalysisService records the call and returns a canned result.
type fakeAnalysisService struct {
	gotScenes []domain.Scene
	gotOpts   driving.AnalysisOptions
	result    *driving.AnalysisResult
	err       error
}

func (f *fakeAnalysisService) Analyze(_ context.Context, scenes []domain.Scene, opts driving.AnalysisOptions) (*driving.AnalysisResult, error) {
	f.gotScenes = scenes
	f.gotOpts = opts
	return f.result, f.err
}

type fakeFeedbackService struct {
	gotKind     domain.FeedbackKind
	gotActor    string
	gotSceneID  string
	gotCategory domain.Category
	gotSeverity domain.Severity
	gotComment  string
	outcome     *driving.FeedbackOutcome
	err         error
}

func (f *fakeFeedbackService) Ignore(_ context.Context, actor, sceneID string, category domain.Category) (*driving.FeedbackOutcome, error) {
	f.gotKind, f.gotActor, f.gotSceneID, f.gotCategory = domain.FeedbackIgnore, actor, sceneID, category
	return f.outcome, f.err
}

func (f *fakeFeedbackService) Add(_ context.Context, actor, sceneID string, category domain.Category, severity domain.Severity, comment string) (*driving.FeedbackOutcome, error) {
	f.gotKind, f.gotActor, f.gotSceneID, f.gotCategory = domain.FeedbackAdd, actor, sceneID, category
	f.gotSeverity, f.gotComment = severity, comment
	return f.outcome, f.err
}

func (f *fakeFeedbackService) Edit(_ context.Context, actor, sceneID string, category domain.Category, severity domain.Severity) (*driving.FeedbackOutcome, error) {
	f.gotKind, f.gotActor, f.gotSceneID, f.gotCategory = domain.FeedbackEdit, actor, sceneID, category
	f.gotSeverity = severity
	return f.outcome, f.err
}

type fakeCorpusService struct {
	gotDocs     []domain.CorpusDocument
	gotRollback domain.CorpusVersion
	results     []domain.UpsertResult
	version     domain.CorpusVersion
	err         error
}

func (f *fakeCorpusService) Add(_ context.Context, docs []domain.CorpusDocument) ([]domain.UpsertResult, error) {
	f.gotDocs = docs
	return f.results, f.err
}

func (f *fakeCorpusService) Snapshot(_ context.Context) (domain.CorpusVersion, error) {
	return f.version, f.err
}

func (f *fakeCorpusService) Rollback(_ context.Context, version domain.CorpusVersion) error {
	f.gotRollback = version
	return f.err
}

// executeCommand runs the command tree against fakes and captures output.
// Flag variables are package-level, so they are reset before every run.
func executeCommand(t *testing.T, services Services, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	SetServices(services)
	t.Cleanup(func() { SetServices(Services{}) })

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags() {
	verboseFlag = false
	analyzeWorkers = 0
	analyzeExhaustive = false
	analyzeTarget = ""
	analyzeJSON = false
	feedbackActor = "cli"
	feedbackSeverity = ""
	feedbackComment = ""
	feedbackJSON = false
	corpusSourceType = string(domain.SourceGuideline)
	corpusLabel = ""
	corpusCategory = ""
	corpusSeverity = ""
}

func writeSceneFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenes.json")
	content := `{
		"script_id": "script-1",
		"scenes": [
			{"id": "s1", "number": 1, "heading": "INT. BAR - NIGHT", "text": "A fight breaks out."},
			{"id": "s2", "number": 2, "text": "A quiet drive home."}
		]
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func analysisResult() *driving.AnalysisResult {
	return &driving.AnalysisResult{
		Rating: domain.RatingResult{
			Final: domain.Rating16,
			Rule:  domain.RuleCriticalModerate,
			ProblemScenes: []domain.ProblemScene{
				{SceneID: "s1", SceneNumber: 1, Category: domain.CategoryViolence, Severity: domain.SeverityModerate},
			},
			Reasons: []string{"violence is moderate in scene 1"},
		},
		Assessments:   []domain.SceneAssessment{{ID: "a1", SceneID: "s1", SceneNumber: 1}},
		CorpusVersion: "v1",
	}
}

func TestVersionCommand(t *testing.T) {
	SetVersion("1.2.3")

	out, err := executeCommand(t, Services{}, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "reelrate version 1.2.3")
}

func TestAnalyze_ServiceNotConfigured(t *testing.T) {
	_, err := executeCommand(t, Services{}, "analyze", writeSceneFile(t))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestAnalyze_TextOutput(t *testing.T) {
	svc := &fakeAnalysisService{result: analysisResult()}

	out, err := executeCommand(t, Services{Analysis: svc}, "analyze", writeSceneFile(t))

	require.NoError(t, err)
	assert.Contains(t, out, "Rating: 16+ (critical_moderate)")
	assert.Contains(t, out, "Corpus version: v1")
	assert.Contains(t, out, "Problem scenes:")
	assert.Contains(t, out, "[1] violence: moderate")

	require.Len(t, svc.gotScenes, 2)
	assert.Equal(t, "script-1", svc.gotScenes[0].ScriptID)
	assert.Equal(t, "INT. BAR - NIGHT", svc.gotScenes[0].Heading)
}

func TestAnalyze_JSONOutput(t *testing.T) {
	svc := &fakeAnalysisService{result: analysisResult()}

	out, err := executeCommand(t, Services{Analysis: svc}, "analyze", writeSceneFile(t), "--json")

	require.NoError(t, err)
	var parsed driving.AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.Equal(t, domain.Rating16, parsed.Rating.Final)
}

func TestAnalyze_FlagsForwarded(t *testing.T) {
	svc := &fakeAnalysisService{result: analysisResult()}

	_, err := executeCommand(t, Services{Analysis: svc}, "analyze", writeSceneFile(t),
		"--workers", "4", "--exhaustive", "--target", "12+")

	require.NoError(t, err)
	assert.Equal(t, 4, svc.gotOpts.Workers)
	assert.True(t, svc.gotOpts.Exhaustive)
	assert.Equal(t, domain.Rating12, svc.gotOpts.Target)
}

func TestAnalyze_InvalidTarget(t *testing.T) {
	svc := &fakeAnalysisService{result: analysisResult()}

	_, err := executeCommand(t, Services{Analysis: svc}, "analyze", writeSceneFile(t), "--target", "21+")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid target rating")
}

func TestAnalyze_MissingFile(t *testing.T) {
	svc := &fakeAnalysisService{result: analysisResult()}

	_, err := executeCommand(t, Services{Analysis: svc}, "analyze", "does-not-exist.json")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "read scenes file")
}

func TestAnalyze_EmptySceneFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenes.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"script_id":"x","scenes":[]}`), 0600))

	_, err := executeCommand(t, Services{Analysis: &fakeAnalysisService{}}, "analyze", path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no scenes")
}

func TestAnalyze_PartialWarning(t *testing.T) {
	result := analysisResult()
	result.Partial = true
	svc := &fakeAnalysisService{result: result}

	out, err := executeCommand(t, Services{Analysis: svc}, "analyze", writeSceneFile(t))

	require.NoError(t, err)
	assert.Contains(t, out, "WARNING")
}

func feedbackOutcome() *driving.FeedbackOutcome {
	return &driving.FeedbackOutcome{
		Assessment: domain.SceneAssessment{ID: "a2", SceneID: "s1", SceneNumber: 1},
		Rating:     domain.RatingResult{Final: domain.Rating6, Rule: domain.RuleAnySignal},
	}
}

func TestFeedback_Ignore(t *testing.T) {
	svc := &fakeFeedbackService{outcome: feedbackOutcome()}

	out, err := executeCommand(t, Services{Feedback: svc},
		"feedback", "ignore", "s1", "violence", "--actor", "reviewer-7")

	require.NoError(t, err)
	assert.Equal(t, domain.FeedbackIgnore, svc.gotKind)
	assert.Equal(t, "reviewer-7", svc.gotActor)
	assert.Equal(t, "s1", svc.gotSceneID)
	assert.Equal(t, domain.CategoryViolence, svc.gotCategory)
	assert.Contains(t, out, "Rating: 6+ (any_signal)")
}

func TestFeedback_AddRequiresSeverity(t *testing.T) {
	svc := &fakeFeedbackService{outcome: feedbackOutcome()}

	_, err := executeCommand(t, Services{Feedback: svc}, "feedback", "add", "s1", "violence")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--severity is required")
}

func TestFeedback_AddForwardsSeverityAndComment(t *testing.T) {
	svc := &fakeFeedbackService{outcome: feedbackOutcome()}

	_, err := executeCommand(t, Services{Feedback: svc},
		"feedback", "add", "s1", "language", "--severity", "mild", "--comment", "missed profanity")

	require.NoError(t, err)
	assert.Equal(t, domain.FeedbackAdd, svc.gotKind)
	assert.Equal(t, domain.SeverityMild, svc.gotSeverity)
	assert.Equal(t, "missed profanity", svc.gotComment)
}

func TestFeedback_EditRejectsUnclassifiedSeverity(t *testing.T) {
	svc := &fakeFeedbackService{outcome: feedbackOutcome()}

	_, err := executeCommand(t, Services{Feedback: svc},
		"feedback", "edit", "s1", "violence", "--severity", "unclassified")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid severity")
}

func TestFeedback_UnknownCategory(t *testing.T) {
	svc := &fakeFeedbackService{outcome: feedbackOutcome()}

	_, err := executeCommand(t, Services{Feedback: svc}, "feedback", "ignore", "s1", "romance")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown category")
}

func TestFeedback_NoOpMessage(t *testing.T) {
	outcome := feedbackOutcome()
	outcome.NoOp = true
	svc := &fakeFeedbackService{outcome: outcome}

	out, err := executeCommand(t, Services{Feedback: svc}, "feedback", "ignore", "s1", "violence")

	require.NoError(t, err)
	assert.Contains(t, out, "No change")
}

func TestCorpusAdd_ReportsOutcome(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guideline.txt")
	require.NoError(t, os.WriteFile(path, []byte("Graphic violence warrants 18+."), 0600))
	svc := &fakeCorpusService{results: []domain.UpsertResult{
		{DocumentID: "c1", Status: domain.UpsertAccepted},
		{DocumentID: "c2", Status: domain.UpsertDuplicate, DuplicateOf: "old-doc"},
	}}

	out, err := executeCommand(t, Services{Corpus: svc},
		"corpus", "add", path, "--source-type", "legal", "--label", "statute 12")

	require.NoError(t, err)
	require.Len(t, svc.gotDocs, 1)
	assert.Equal(t, domain.SourceLegal, svc.gotDocs[0].SourceType)
	assert.Equal(t, "statute 12", svc.gotDocs[0].SourceLabel)
	assert.Equal(t, "Graphic violence warrants 18+.", svc.gotDocs[0].Content)
	assert.Contains(t, out, "Added 1 chunk(s), 1 duplicate(s) rejected, 0 failed.")
	assert.Contains(t, out, "old-doc")
}

func TestCorpusAdd_InvalidSourceType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("text"), 0600))

	_, err := executeCommand(t, Services{Corpus: &fakeCorpusService{}},
		"corpus", "add", path, "--source-type", "blog")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid source type")
}

func TestCorpusSnapshot(t *testing.T) {
	svc := &fakeCorpusService{version: "v7"}

	out, err := executeCommand(t, Services{Corpus: svc}, "corpus", "snapshot")

	require.NoError(t, err)
	assert.Contains(t, out, "Snapshot captured: v7")
}

func TestCorpusRollback(t *testing.T) {
	svc := &fakeCorpusService{}

	out, err := executeCommand(t, Services{Corpus: svc}, "corpus", "rollback", "v7")

	require.NoError(t, err)
	assert.Equal(t, domain.CorpusVersion("v7"), svc.gotRollback)
	assert.Contains(t, out, "Corpus restored to v7")
}

func TestCorpusRollback_UnknownVersion(t *testing.T) {
	svc := &fakeCorpusService{err: domain.ErrUnknownVersion}

	_, err := executeCommand(t, Services{Corpus: svc}, "corpus", "rollback", "v99")

	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown corpus version "v99"`)
}

func TestCorpus_ServiceNotConfigured(t *testing.T) {
	_, err := executeCommand(t, Services{}, "corpus", "snapshot")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestFeedback_ServiceNotConfigured(t *testing.T) {
	_, err := executeCommand(t, Services{}, "feedback", "ignore", "s1", "violence")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestCommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"analyze", "feedback", "corpus", "version"} {
		assert.True(t, names[want], "command %s not registered", want)
	}
}
