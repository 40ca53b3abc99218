package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reelrate-labs/reelrate-cli/internal/core/domain"
	"github.com/reelrate-labs/reelrate-cli/internal/core/ports/driving"
)

var (
	feedbackActor    string
	feedbackSeverity string
	feedbackComment  string
	feedbackJSON     bool
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Apply user corrections to scene assessments",
	Long: `Corrects a scene assessment and recomputes the script rating.
Each correction produces a new assessment version; earlier versions are
kept for audit.`,
}

var feedbackIgnoreCmd = &cobra.Command{
	Use:   "ignore [scene-id] [category]",
	Short: "Clear a category finding to none",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFeedback(cmd, domain.FeedbackIgnore, args)
	},
}

var feedbackAddCmd = &cobra.Command{
	Use:   "add [scene-id] [category]",
	Short: "Add a finding the classifier missed",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFeedback(cmd, domain.FeedbackAdd, args)
	},
}

var feedbackEditCmd = &cobra.Command{
	Use:   "edit [scene-id] [category]",
	Short: "Change the severity of a finding",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFeedback(cmd, domain.FeedbackEdit, args)
	},
}

func init() {
	feedbackCmd.PersistentFlags().StringVar(&feedbackActor, "actor", "cli", "who is making the correction")
	feedbackCmd.PersistentFlags().BoolVar(&feedbackJSON, "json", false, "output the result as JSON")
	feedbackAddCmd.Flags().StringVar(&feedbackSeverity, "severity", "", "severity to record (mild, moderate, severe)")
	feedbackAddCmd.Flags().StringVar(&feedbackComment, "comment", "", "optional comment explaining the correction")
	feedbackEditCmd.Flags().StringVar(&feedbackSeverity, "severity", "", "severity to record (none, mild, moderate, severe)")

	feedbackCmd.AddCommand(feedbackIgnoreCmd)
	feedbackCmd.AddCommand(feedbackAddCmd)
	feedbackCmd.AddCommand(feedbackEditCmd)
	rootCmd.AddCommand(feedbackCmd)
}

func runFeedback(cmd *cobra.Command, kind domain.FeedbackKind, args []string) error {
	if feedbackService == nil {
		return errors.New("feedback service not configured")
	}

	sceneID := args[0]
	category := domain.Category(args[1])
	if !category.IsValid() {
		return fmt.Errorf("unknown category %q", args[1])
	}

	ctx := cmd.Context()
	var outcome *driving.FeedbackOutcome
	var err error

	switch kind {
	case domain.FeedbackIgnore:
		outcome, err = feedbackService.Ignore(ctx, feedbackActor, sceneID, category)
	case domain.FeedbackAdd:
		severity, sevErr := parseSeverity(feedbackSeverity)
		if sevErr != nil {
			return sevErr
		}
		outcome, err = feedbackService.Add(ctx, feedbackActor, sceneID, category, severity, feedbackComment)
	case domain.FeedbackEdit:
		severity, sevErr := parseSeverity(feedbackSeverity)
		if sevErr != nil {
			return sevErr
		}
		outcome, err = feedbackService.Edit(ctx, feedbackActor, sceneID, category, severity)
	default:
		return fmt.Errorf("unknown feedback kind %q", kind)
	}
	if err != nil {
		return fmt.Errorf("feedback failed: %w", err)
	}

	if feedbackJSON {
		data, err := json.MarshalIndent(outcome, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal outcome: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if outcome.NoOp {
		cmd.Println("No change: the finding already matches the correction.")
	} else {
		cmd.Printf("Recorded %s for scene %s (%s); new assessment version %s\n",
			kind, sceneID, category, outcome.Assessment.ID)
	}
	cmd.Printf("Rating: %s (%s)\n", outcome.Rating.Final, outcome.Rating.Rule)
	return nil
}

func parseSeverity(raw string) (domain.Severity, error) {
	if raw == "" {
		return "", errors.New("--severity is required")
	}
	severity := domain.Severity(raw)
	if !severity.IsValid() || severity == domain.SeverityUnclassified {
		return "", fmt.Errorf("invalid severity %q", raw)
	}
	return severity, nil
}
