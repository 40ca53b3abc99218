// Package cli provides the cobra command tree for the reelrate binary.
// Commands read package-level service variables injected at startup via
// SetServices, which keeps command wiring testable with fakes.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/reelrate-labs/reelrate-cli/internal/core/ports/driving"
	"github.com/reelrate-labs/reelrate-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services injected at startup.
var (
	analysisService driving.AnalysisService
	feedbackService driving.FeedbackService
	corpusService   driving.CorpusService
)

var verboseFlag bool

var rootCmd = &cobra.Command{
	Use:   "reelrate",
	Short: "Scene classification and age-rating aggregation for scripts",
	Long: `ReelRate classifies segmented script scenes against content categories
and aggregates the per-scene findings into a deterministic age rating.
Classification is grounded in a versioned reference corpus of rating
guidelines, legal texts and precedent examples.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose output")
}

// Services bundles the driving ports the commands depend on.
type Services struct {
	Analysis driving.AnalysisService
	Feedback driving.FeedbackService
	Corpus   driving.CorpusService
}

// SetServices injects the application services into the command tree.
// Must be called before Execute.
func SetServices(s Services) {
	analysisService = s.Analysis
	feedbackService = s.Feedback
	corpusService = s.Corpus
}

// SetVersion sets the version string printed by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
