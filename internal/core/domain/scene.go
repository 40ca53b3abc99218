package domain

// Scene is a segmented unit of a script. Scenes are produced by the
// upstream segmentation layer and are immutable once segmented.
type Scene struct {
	// ID is the unique identifier for the scene.
	ID string

	// ScriptID links to the script this scene belongs to.
	ScriptID string

	// Number is the ordinal scene number within the script (1-based).
	Number int

	// Heading is the scene heading or slugline, if any.
	Heading string

	// Text is the raw scene text.
	Text string

	// PageStart and PageEnd bound the scene in the source document.
	PageStart int
	PageEnd   int
}

// Validate rejects malformed scenes at the pipeline boundary.
func (s Scene) Validate() error {
	if s.ID == "" {
		return ErrInvalidInput
	}
	if s.Number <= 0 {
		return ErrInvalidInput
	}
	if s.Text == "" {
		return ErrInvalidInput
	}
	return nil
}
