package domain

const unknownDescription = "Unknown"

// Category is a content-rating category. The set is closed; extending it
// requires a migration of stored assessments.
type Category string

// Available categories.
const (
	// CategoryViolence covers physical violence, injury and threat.
	CategoryViolence Category = "violence"

	// CategorySexualContent covers sexual or sexually suggestive content.
	CategorySexualContent Category = "sexual_content"

	// CategoryLanguage covers profanity and slurs.
	CategoryLanguage Category = "language"

	// CategoryAlcoholDrugs covers alcohol, tobacco and drug use.
	CategoryAlcoholDrugs Category = "alcohol_drugs"

	// CategoryDisturbingScenes covers horror, gore and distressing imagery.
	CategoryDisturbingScenes Category = "disturbing_scenes"
)

// Categories lists all categories in canonical order.
// Iteration over assessments must use this slice, never a map range,
// so that derived output is deterministic.
var Categories = []Category{
	CategoryViolence,
	CategorySexualContent,
	CategoryLanguage,
	CategoryAlcoholDrugs,
	CategoryDisturbingScenes,
}

// IsValid returns true if the category is recognised.
func (c Category) IsValid() bool {
	switch c {
	case CategoryViolence, CategorySexualContent, CategoryLanguage,
		CategoryAlcoholDrugs, CategoryDisturbingScenes:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (c Category) String() string {
	return string(c)
}

// Description returns a human-readable description of the category.
func (c Category) Description() string {
	switch c {
	case CategoryViolence:
		return "Violence"
	case CategorySexualContent:
		return "Sexual Content"
	case CategoryLanguage:
		return "Language"
	case CategoryAlcoholDrugs:
		return "Alcohol & Drugs"
	case CategoryDisturbingScenes:
		return "Disturbing Scenes"
	default:
		return unknownDescription
	}
}
