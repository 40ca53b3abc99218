// Command reelrate is the scene classification and rating CLI.
package main

import (
	"fmt"
	"os"
	"time"

	fileconfig "github.com/reelrate-labs/reelrate-cli/internal/adapters/driven/config/file"
	"github.com/reelrate-labs/reelrate-cli/internal/adapters/driven/corpus/memory"
	sqlitecorpus "github.com/reelrate-labs/reelrate-cli/internal/adapters/driven/corpus/sqlite"
	ollamaembed "github.com/reelrate-labs/reelrate-cli/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/reelrate-labs/reelrate-cli/internal/adapters/driven/embedding/openai"
	"github.com/reelrate-labs/reelrate-cli/internal/adapters/driven/model/keyword"
	ollamamodel "github.com/reelrate-labs/reelrate-cli/internal/adapters/driven/model/ollama"
	openaimodel "github.com/reelrate-labs/reelrate-cli/internal/adapters/driven/model/openai"
	memstorage "github.com/reelrate-labs/reelrate-cli/internal/adapters/driven/storage/memory"
	"github.com/reelrate-labs/reelrate-cli/internal/adapters/driving/cli"
	"github.com/reelrate-labs/reelrate-cli/internal/core/domain"
	"github.com/reelrate-labs/reelrate-cli/internal/core/ports/driven"
	"github.com/reelrate-labs/reelrate-cli/internal/core/services"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := fileconfig.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	rules, err := fileconfig.NewRuleSetStore("", true)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	defer rules.Close()

	prompts, err := fileconfig.NewPromptStore("")
	if err != nil {
		return fmt.Errorf("load prompts: %w", err)
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}
	defer embedder.Close()

	corpus, err := sqlitecorpus.NewStore("", embedder, memory.Options{
		DedupCeiling: cfg.GetFloat(driven.ConfigKeyDedupCeiling),
	})
	if err != nil {
		return fmt.Errorf("open corpus: %w", err)
	}
	defer corpus.Close()

	primary, err := buildPrimaryModel(cfg, prompts)
	if err != nil {
		return err
	}
	if primary != nil {
		defer primary.Close()
	}

	var fallback driven.ModelService
	if cfg.GetString(driven.ConfigKeyModelFallback) != "none" {
		fallback = keyword.NewModelService(rules)
	}

	assessments := memstorage.NewAssessmentStore()
	scenes := memstorage.NewSceneStore()
	history := memstorage.NewHistorySink()

	policy := domain.DefaultRatingPolicy()

	prescreen := services.NewRulePrescreen(rules)
	retriever := services.NewRetriever(corpus, embedder, nil, services.RetrieverOptions{
		TopK:  cfg.GetInt(driven.ConfigKeyTopK),
		Floor: cfg.GetFloat(driven.ConfigKeySimilarityFloor),
	})
	augmentor := services.NewContextAugmentor(cfg.GetInt(driven.ConfigKeyContextBudget))
	classifier := services.NewClassifier(primary, fallback, 0)

	pipeline := services.NewAnalysisPipeline(
		prescreen, retriever, augmentor, classifier,
		assessments, scenes, corpus, policy,
		cfg.GetInt(driven.ConfigKeyWorkers),
	)
	feedback := services.NewFeedbackIncorporator(assessments, scenes, history, corpus, policy)
	defer feedback.Wait()
	manager := services.NewCorpusManager(corpus, 0)

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Analysis: pipeline,
		Feedback: feedback,
		Corpus:   manager,
	})
	return cli.Execute()
}

// buildEmbedder constructs the embedding service named by configuration.
// The default is a local Ollama instance so the pipeline works without
// any API key.
func buildEmbedder(cfg driven.ConfigStore) (driven.EmbeddingService, error) {
	switch provider := cfg.GetString(driven.ConfigKeyEmbeddingProvider); provider {
	case "openai":
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey: embeddingAPIKey(cfg),
			Model:  cfg.GetString(driven.ConfigKeyEmbeddingModel),
		})
	case "", "ollama":
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			Model: cfg.GetString(driven.ConfigKeyEmbeddingModel),
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", provider)
	}
}

// buildPrimaryModel constructs the primary classifier model named by
// configuration. Returns nil when no primary is configured; the keyword
// fallback then carries classification alone.
func buildPrimaryModel(cfg driven.ConfigStore, prompts driven.PromptStore) (driven.ModelService, error) {
	switch provider := cfg.GetString(driven.ConfigKeyModelProvider); provider {
	case "openai":
		svc, err := openaimodel.NewModelService(openaimodel.Config{
			APIKey:  modelAPIKey(cfg),
			Model:   cfg.GetString(driven.ConfigKeyModelName),
			Timeout: modelTimeout(cfg),
		})
		if err != nil {
			return nil, err
		}
		svc.SetPromptStore(prompts)
		return svc, nil
	case "", "ollama":
		svc := ollamamodel.NewModelService(ollamamodel.Config{
			Model:   cfg.GetString(driven.ConfigKeyModelName),
			Timeout: modelTimeout(cfg),
		})
		svc.SetPromptStore(prompts)
		return svc, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", provider)
	}
}

// API keys may come from the environment as well as the config file; the
// environment wins so keys stay out of dotfiles.
func embeddingAPIKey(cfg driven.ConfigStore) string {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key
	}
	return cfg.GetString(driven.ConfigKeyEmbeddingAPIKey)
}

func modelAPIKey(cfg driven.ConfigStore) string {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key
	}
	return cfg.GetString(driven.ConfigKeyModelAPIKey)
}

func modelTimeout(cfg driven.ConfigStore) time.Duration {
	if secs := cfg.GetInt("model.timeout_seconds"); secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
