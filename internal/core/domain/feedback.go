package domain

import "time"

// FeedbackKind identifies a user correction operation.
type FeedbackKind string

// Available feedback kinds.
const (
	// FeedbackIgnore clears a category to none.
	FeedbackIgnore FeedbackKind = "ignore"

	// FeedbackAdd inserts or overwrites a finding.
	FeedbackAdd FeedbackKind = "add"

	// FeedbackEdit changes the severity of an existing finding.
	FeedbackEdit FeedbackKind = "edit"
)

// IsValid returns true if the feedback kind is recognised.
func (k FeedbackKind) IsValid() bool {
	switch k {
	case FeedbackIgnore, FeedbackAdd, FeedbackEdit:
		return true
	default:
		return false
	}
}

// ActionRecord is the structured audit record emitted for every feedback
// operation. The core emits it by value to the external history layer; it
// never reaches into a shared log.
type ActionRecord struct {
	// ID is the unique identifier for the record.
	ID string

	// Kind is the feedback operation performed.
	Kind FeedbackKind

	// Actor identifies who performed the correction.
	Actor string

	// SceneID and Category locate the corrected finding.
	SceneID  string
	Category Category

	// PreviousSeverity and NewSeverity record the transition.
	PreviousSeverity Severity
	NewSeverity      Severity

	// Comment is the optional user comment.
	Comment string

	// AssessmentID is the superseding assessment version produced by the
	// operation. Equal to SupersededID when the operation was a no-op.
	AssessmentID string

	// SupersededID is the assessment version that was replaced.
	SupersededID string

	// OccurredAt is when the operation was performed.
	OccurredAt time.Time
}
