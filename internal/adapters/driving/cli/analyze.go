package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reelrate-labs/reelrate-cli/internal/core/domain"
	"github.com/reelrate-labs/reelrate-cli/internal/core/ports/driving"
)

var (
	analyzeWorkers    int
	analyzeExhaustive bool
	analyzeTarget     string
	analyzeJSON       bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [scenes-file]",
	Short: "Classify a script's scenes and compute its age rating",
	Long: `Runs the full rating pipeline over a segmented script: rule prescreen,
corpus retrieval, model classification and deterministic rating
aggregation.

The scenes file is JSON produced by the segmentation step:

  {"script_id": "...", "scenes": [{"id": "...", "number": 1, "text": "..."}]}`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().IntVar(&analyzeWorkers, "workers", 0, "scene worker pool size (0 = default)")
	analyzeCmd.Flags().BoolVar(&analyzeExhaustive, "exhaustive", false, "classify every scene, even unflagged ones")
	analyzeCmd.Flags().StringVar(&analyzeTarget, "target", "", "target rating (0+, 6+, 12+, 16+, 18+)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "output the result as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

// sceneFile is the segmentation output format accepted by analyze.
type sceneFile struct {
	ScriptID string `json:"script_id"`
	Scenes   []struct {
		ID      string `json:"id"`
		Number  int    `json:"number"`
		Heading string `json:"heading"`
		Text    string `json:"text"`
	} `json:"scenes"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if analysisService == nil {
		return errors.New("analysis service not configured")
	}

	scenes, err := loadScenes(args[0])
	if err != nil {
		return err
	}

	opts := driving.AnalysisOptions{
		Exhaustive: analyzeExhaustive,
		Workers:    analyzeWorkers,
	}
	if analyzeTarget != "" {
		target := domain.AgeRating(analyzeTarget)
		if !target.IsValid() {
			return fmt.Errorf("invalid target rating %q", analyzeTarget)
		}
		opts.Target = target
	}

	result, err := analysisService.Analyze(cmd.Context(), scenes, opts)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if analyzeJSON {
		return outputAnalysisJSON(cmd, result)
	}
	return outputAnalysisText(cmd, result)
}

func loadScenes(path string) ([]domain.Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenes file: %w", err)
	}

	var parsed sceneFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse scenes file: %w", err)
	}
	if len(parsed.Scenes) == 0 {
		return nil, errors.New("scenes file contains no scenes")
	}

	scenes := make([]domain.Scene, 0, len(parsed.Scenes))
	for _, s := range parsed.Scenes {
		scene := domain.Scene{
			ID:       s.ID,
			ScriptID: parsed.ScriptID,
			Number:   s.Number,
			Heading:  s.Heading,
			Text:     s.Text,
		}
		if err := scene.Validate(); err != nil {
			return nil, fmt.Errorf("scene %d (%s): %w", s.Number, s.ID, err)
		}
		scenes = append(scenes, scene)
	}
	return scenes, nil
}

func outputAnalysisJSON(cmd *cobra.Command, result *driving.AnalysisResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputAnalysisText(cmd *cobra.Command, result *driving.AnalysisResult) error {
	if result.Partial {
		cmd.Println("WARNING: analysis was cancelled; the result covers completed scenes only.")
		cmd.Println()
	}

	cmd.Printf("Rating: %s (%s)\n", result.Rating.Final, result.Rating.Rule)
	if result.Rating.TargetDelta != nil {
		cmd.Printf("Target delta: %+d\n", *result.Rating.TargetDelta)
	}
	cmd.Printf("Corpus version: %s\n", result.CorpusVersion)
	cmd.Printf("Scenes assessed: %d\n", len(result.Assessments))

	if len(result.Rating.Unclassified) > 0 {
		cmd.Printf("Unclassified scenes: %v\n", result.Rating.Unclassified)
	}

	if len(result.Rating.ProblemScenes) > 0 {
		cmd.Println()
		cmd.Println("Problem scenes:")
		for _, ps := range result.Rating.ProblemScenes {
			cmd.Printf("  [%d] %s: %s\n", ps.SceneNumber, ps.Category, ps.Severity)
		}
	}

	if len(result.Rating.Reasons) > 0 {
		cmd.Println()
		cmd.Println("Reasons:")
		for _, r := range result.Rating.Reasons {
			cmd.Printf("  - %s\n", r)
		}
	}
	return nil
}
