package domain

import "time"

// Provenance records where an assessment value came from.
type Provenance string

// Available provenances.
const (
	// ProvenanceRule means the value came from the rule prescreen.
	ProvenanceRule Provenance = "rule"

	// ProvenanceModel means the value came from a classifier model.
	ProvenanceModel Provenance = "model"

	// ProvenanceUser means the value came from a human correction.
	ProvenanceUser Provenance = "user"
)

// IsValid returns true if the provenance is recognised.
func (p Provenance) IsValid() bool {
	switch p {
	case ProvenanceRule, ProvenanceModel, ProvenanceUser:
		return true
	default:
		return false
	}
}

// Citation points from an assessment to the corpus passage that grounded
// it. Citations are copies: the excerpt is stored with the assessment so
// it stays interpretable after the corpus document is deleted.
type Citation struct {
	// DocumentID is the corpus document that was cited.
	DocumentID string

	// SourceLabel is the human-readable source of the document.
	SourceLabel string

	// Excerpt is the cited passage text, copied at classification time.
	Excerpt string

	// Similarity is the retrieval similarity score at citation time.
	Similarity float64

	// Rank is the retrieval rank at citation time (1-based).
	Rank int
}

// Finding is the per-category outcome within a scene assessment.
type Finding struct {
	// Severity is the assessed severity, or SeverityUnclassified when
	// classification failed for this category.
	Severity Severity

	// Rationale explains the severity in free text.
	Rationale string

	// Confidence is the classifier confidence in [0,1].
	Confidence float64

	// Provenance records who produced this finding.
	Provenance Provenance

	// Citations ground the finding in the corpus. May be empty when no
	// passage cleared the similarity floor.
	Citations []Citation

	// FailureReason is set only when Severity is SeverityUnclassified.
	FailureReason string
}

// SceneAssessment is one versioned classification of a scene. Corrections
// supersede rather than mutate: each correction produces a new assessment
// with SupersedesID pointing at the version it replaces, preserving the
// audit history.
type SceneAssessment struct {
	// ID is the unique identifier of this assessment version.
	ID string

	// SceneID links to the assessed scene.
	SceneID string

	// ScriptID links to the script the scene belongs to.
	ScriptID string

	// SceneNumber is the ordinal scene number, carried for aggregation.
	SceneNumber int

	// SupersedesID references the assessment this version replaces.
	// Empty for the first version.
	SupersedesID string

	// Findings maps each assessed category to its finding. Categories
	// without evidence are either absent or explicitly SeverityNone.
	Findings map[Category]Finding

	// CreatedAt is when this version was produced.
	CreatedAt time.Time
}

// FindingFor returns the finding for a category, defaulting to an
// explicit none with rule provenance when the category was not assessed.
func (a SceneAssessment) FindingFor(c Category) Finding {
	if f, ok := a.Findings[c]; ok {
		return f
	}
	return Finding{Severity: SeverityNone, Provenance: ProvenanceRule}
}

// MaxSeverity returns the highest severity across categories, together
// with whether any category is unclassified. SeverityUnclassified does
// not participate in the maximum.
func (a SceneAssessment) MaxSeverity() (Severity, bool) {
	max := SeverityNone
	unclassified := false
	for _, c := range Categories {
		f := a.FindingFor(c)
		if f.Severity == SeverityUnclassified {
			unclassified = true
			continue
		}
		if f.Severity.Ordinal() > max.Ordinal() {
			max = f.Severity
		}
	}
	return max, unclassified
}

// Validate rejects malformed assessments at the boundary.
func (a SceneAssessment) Validate() error {
	if a.ID == "" || a.SceneID == "" || a.SceneNumber <= 0 {
		return ErrInvalidInput
	}
	for c, f := range a.Findings {
		if !c.IsValid() || !f.Severity.IsValid() || !f.Provenance.IsValid() {
			return ErrInvalidInput
		}
	}
	return nil
}
