package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/reelrate-labs/reelrate-cli/internal/core/domain"
)

var (
	corpusSourceType string
	corpusLabel      string
	corpusCategory   string
	corpusSeverity   string
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Manage the reference corpus",
	Long: `Manages the versioned reference corpus the classifier retrieves from:
rating guidelines, legal texts and precedent scene examples.`,
}

var corpusAddCmd = &cobra.Command{
	Use:   "add [file]",
	Short: "Add a reference document to the corpus",
	Long: `Adds a reference document. Long documents are chunked at sentence
boundaries; near-duplicate chunks are rejected and reported.`,
	Args: cobra.ExactArgs(1),
	RunE: runCorpusAdd,
}

var corpusSnapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Capture the current corpus version",
	Args:  cobra.NoArgs,
	RunE:  runCorpusSnapshot,
}

var corpusRollbackCmd = &cobra.Command{
	Use:   "rollback [version]",
	Short: "Restore a previously captured corpus version",
	Args:  cobra.ExactArgs(1),
	RunE:  runCorpusRollback,
}

func init() {
	corpusAddCmd.Flags().StringVar(&corpusSourceType, "source-type", string(domain.SourceGuideline),
		"document source type (legal, guideline, example, user_feedback)")
	corpusAddCmd.Flags().StringVar(&corpusLabel, "label", "", "human-readable source label")
	corpusAddCmd.Flags().StringVar(&corpusCategory, "category", "", "rating category the passage is tagged with")
	corpusAddCmd.Flags().StringVar(&corpusSeverity, "severity", "", "severity tag for labelled examples")

	corpusCmd.AddCommand(corpusAddCmd)
	corpusCmd.AddCommand(corpusSnapshotCmd)
	corpusCmd.AddCommand(corpusRollbackCmd)
	rootCmd.AddCommand(corpusCmd)
}

func runCorpusAdd(cmd *cobra.Command, args []string) error {
	if corpusService == nil {
		return errors.New("corpus service not configured")
	}

	sourceType := domain.SourceType(corpusSourceType)
	if !sourceType.IsValid() {
		return fmt.Errorf("invalid source type %q", corpusSourceType)
	}

	content, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}

	doc := domain.CorpusDocument{
		ID:          uuid.NewString(),
		SourceType:  sourceType,
		SourceLabel: corpusLabel,
		Content:     string(content),
	}
	if doc.SourceLabel == "" {
		doc.SourceLabel = args[0]
	}
	if corpusCategory != "" {
		cat := domain.Category(corpusCategory)
		if !cat.IsValid() {
			return fmt.Errorf("unknown category %q", corpusCategory)
		}
		doc.Category = cat
	}
	if corpusSeverity != "" {
		sev := domain.Severity(corpusSeverity)
		if !sev.IsValid() || sev == domain.SeverityUnclassified {
			return fmt.Errorf("invalid severity %q", corpusSeverity)
		}
		doc.Severity = sev
	}

	results, err := corpusService.Add(cmd.Context(), []domain.CorpusDocument{doc})
	if err != nil {
		return fmt.Errorf("corpus add failed: %w", err)
	}

	var accepted, duplicates, failed int
	for _, r := range results {
		switch r.Status {
		case domain.UpsertAccepted:
			accepted++
		case domain.UpsertDuplicate:
			duplicates++
			cmd.Printf("  duplicate: chunk %s matches existing document %s\n", r.DocumentID, r.DuplicateOf)
		case domain.UpsertFailed:
			failed++
			cmd.Printf("  failed: chunk %s: %v\n", r.DocumentID, r.Err)
		}
	}
	cmd.Printf("Added %d chunk(s), %d duplicate(s) rejected, %d failed.\n", accepted, duplicates, failed)
	return nil
}

func runCorpusSnapshot(cmd *cobra.Command, _ []string) error {
	if corpusService == nil {
		return errors.New("corpus service not configured")
	}

	version, err := corpusService.Snapshot(cmd.Context())
	if err != nil {
		return fmt.Errorf("snapshot failed: %w", err)
	}
	cmd.Printf("Snapshot captured: %s\n", version)
	return nil
}

func runCorpusRollback(cmd *cobra.Command, args []string) error {
	if corpusService == nil {
		return errors.New("corpus service not configured")
	}

	version := domain.CorpusVersion(args[0])
	if err := corpusService.Rollback(cmd.Context(), version); err != nil {
		if errors.Is(err, domain.ErrUnknownVersion) {
			return fmt.Errorf("unknown corpus version %q", args[0])
		}
		return fmt.Errorf("rollback failed: %w", err)
	}
	cmd.Printf("Corpus restored to %s\n", version)
	return nil
}
