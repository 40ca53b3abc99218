package domain

// Severity is the ordered content-intensity scale for a category.
// The ordering none < mild < moderate < severe is total; aggregation
// relies on it via Ordinal.
type Severity string

// Available severities.
const (
	// SeverityNone indicates no content signal for the category.
	SeverityNone Severity = "none"

	// SeverityMild indicates a light signal.
	SeverityMild Severity = "mild"

	// SeverityModerate indicates a clear signal.
	SeverityModerate Severity = "moderate"

	// SeveritySevere indicates the strongest signal.
	SeveritySevere Severity = "severe"

	// SeverityUnclassified marks a category that failed classification.
	// It is distinct from SeverityNone: aggregation treats it as the most
	// conservative available signal under the default policy.
	SeverityUnclassified Severity = "unclassified"
)

// Severities lists the ordered severities, lowest first.
// SeverityUnclassified is excluded; it sits outside the scale.
var Severities = []Severity{
	SeverityNone,
	SeverityMild,
	SeverityModerate,
	SeveritySevere,
}

// IsValid returns true if the severity is recognised.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityNone, SeverityMild, SeverityModerate, SeveritySevere, SeverityUnclassified:
		return true
	default:
		return false
	}
}

// Ordinal returns the position on the severity scale.
// SeverityUnclassified returns -1; callers decide how to treat it.
func (s Severity) Ordinal() int {
	switch s {
	case SeverityNone:
		return 0
	case SeverityMild:
		return 1
	case SeverityModerate:
		return 2
	case SeveritySevere:
		return 3
	default:
		return -1
	}
}

// AtLeast returns true if s is at or above other on the scale.
// SeverityUnclassified is never AtLeast anything; conservative handling
// happens in the aggregator, not here.
func (s Severity) AtLeast(other Severity) bool {
	if s == SeverityUnclassified || other == SeverityUnclassified {
		return false
	}
	return s.Ordinal() >= other.Ordinal()
}

// String returns the string representation.
func (s Severity) String() string {
	return string(s)
}

// AgeRating is the final regulatory rating, an ordinal scale of age bands.
type AgeRating string

// Available age ratings.
const (
	Rating0  AgeRating = "0+"
	Rating6  AgeRating = "6+"
	Rating12 AgeRating = "12+"
	Rating16 AgeRating = "16+"
	Rating18 AgeRating = "18+"
)

// AgeRatings lists the ratings in ascending order.
var AgeRatings = []AgeRating{Rating0, Rating6, Rating12, Rating16, Rating18}

// IsValid returns true if the rating is recognised.
func (r AgeRating) IsValid() bool {
	switch r {
	case Rating0, Rating6, Rating12, Rating16, Rating18:
		return true
	default:
		return false
	}
}

// Ordinal returns the position on the rating scale, or -1 if invalid.
func (r AgeRating) Ordinal() int {
	for i, rating := range AgeRatings {
		if rating == r {
			return i
		}
	}
	return -1
}

// String returns the string representation.
func (r AgeRating) String() string {
	return string(r)
}
