// Package ollama provides a classifier model adapter using Ollama.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/reelrate-labs/reelrate-cli/internal/core/domain"
	"github.com/reelrate-labs/reelrate-cli/internal/core/ports/driven"
)

// Ensure ModelService implements the interface.
var _ driven.ModelService = (*ModelService)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2"
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the Ollama classifier model service.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the chat model to use (default: llama3.2).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// ModelService classifies scenes using a local Ollama model with JSON
// output mode.
type ModelService struct {
	client      *http.Client
	baseURL     string
	model       string
	promptStore driven.PromptStore
}

// generateRequest is the Ollama /api/generate request format.
type generateRequest struct {
	Model  string `json:"model"`
	System string `json:"system,omitempty"`
	Prompt string `json:"prompt"`
	Format string `json:"format,omitempty"`
	Stream bool   `json:"stream"`
}

// generateResponse is the Ollama /api/generate response format.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewModelService creates a new Ollama classifier model service.
func NewModelService(cfg Config) *ModelService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &ModelService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
	}
}

// Classify sends the scene with its context block to the model and
// returns the raw JSON output. Schema validation is the caller's job.
func (s *ModelService) Classify(ctx context.Context, in driven.ClassifyInput) (string, error) {
	system := s.loadPrompt(driven.PromptClassifySystem, defaultSystemPrompt)
	sceneTemplate := s.loadPrompt(driven.PromptClassifyScene, defaultScenePrompt)

	cats := in.Categories
	if len(cats) == 0 {
		cats = domain.Categories
	}
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c)
	}

	reqBody := generateRequest{
		Model:  s.model,
		System: system,
		Prompt: fmt.Sprintf(sceneTemplate, strings.Join(names, ", "), in.ContextBlock, in.SceneText),
		Format: "json",
		Stream: false,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/api/generate",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("ollama error (status %d): failed to read response", resp.StatusCode)
		}
		return "", fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(body))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	return genResp.Response, nil
}

// defaultSystemPrompt is the fallback prompt when no PromptStore is configured.
const defaultSystemPrompt = `You are a film-rating content analyst. You classify screenplay scenes
against content categories, grounded in the reference passages provided.
Respond with a single JSON object of the form:
{"categories":[{"category":"...","severity":"none|mild|moderate|severe","rationale":"...","confidence":0.0,"citations":["doc-id"]}]}
Include every requested category. Cite reference passage ids that support
each finding; leave citations empty when no passage applies. Do not
include any text outside the JSON object.`

// defaultScenePrompt is the fallback prompt when no PromptStore is configured.
const defaultScenePrompt = `Categories to assess: %s

Reference passages:
%s

Scene:
%s`

// loadPrompt loads a prompt from the store, falling back to the default if unavailable.
func (s *ModelService) loadPrompt(name, fallback string) string {
	if s.promptStore == nil {
		return fallback
	}
	prompt, err := s.promptStore.Load(name)
	if err != nil {
		return fallback
	}
	return prompt
}

// ModelName returns the name of the model being used.
func (s *ModelService) ModelName() string {
	return s.model
}

// SetPromptStore sets the prompt store for loading customisable prompts.
// If not set, the service uses hardcoded default prompts.
func (s *ModelService) SetPromptStore(store driven.PromptStore) {
	s.promptStore = store
}

// Ping validates the service is reachable by checking the /api/tags endpoint.
// This is a lightweight check that validates connectivity without running inference.
func (s *ModelService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: failed to create ping request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama: API returned status %d", resp.StatusCode)
	}
	return nil
}

// Close releases resources.
func (s *ModelService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
