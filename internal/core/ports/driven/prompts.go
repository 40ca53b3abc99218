package driven

// PromptStore provides access to model prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptClassifySystem frames the classification task. It has no
	// format placeholders.
	PromptClassifySystem = "classify_system"

	// PromptClassifyScene is the per-scene user prompt. The template
	// expects %s (context block) and %s (scene text) placeholders.
	PromptClassifyScene = "classify_scene"
)
