// Package safety implements the content-safety classifier that gates every
// user query before it reaches the AI backend. The classifier is a pure
// function over an immutable pattern table: no I/O, no external calls, and
// blocking is a normal return value, never an error.
package safety

// Category identifies one class of unsafe query. The set is closed and
// defined once at process start.
type Category string

const (
	CategoryFatwaAttempt    Category = "fatwa_attempt"
	CategoryHalalHaram      Category = "halal_haram"
	CategorySelfHarm        Category = "self_harm"
	CategoryAbuse           Category = "abuse"
	CategoryExtremism       Category = "extremism"
	CategoryHateSpeech      Category = "hate_speech"
	CategorySexualContent   Category = "sexual_content"
	CategoryLegalAdvice     Category = "legal_advice"
	CategoryMedicalAdvice   Category = "medical_advice"
	CategorySectarian       Category = "sectarian"
	CategoryPoliticalRuling Category = "political_ruling"
)

// CategoryOrder is the frozen evaluation order. Evaluation short-circuits on
// the first matching pattern, so this order decides which category is
// reported when a query could trigger several; life-safety categories come
// first. Reordering is a breaking change: it alters the category (and safe
// response) observed by callers for overlapping queries.
var CategoryOrder = []Category{
	CategorySelfHarm,
	CategoryExtremism,
	CategoryAbuse,
	CategoryHateSpeech,
	CategoryFatwaAttempt,
	CategoryHalalHaram,
	CategorySexualContent,
	CategorySectarian,
	CategoryPoliticalRuling,
	CategoryLegalAdvice,
	CategoryMedicalAdvice,
}

// Valid reports whether c is a recognized safety category.
func (c Category) Valid() bool {
	switch c {
	case CategoryFatwaAttempt, CategoryHalalHaram, CategorySelfHarm,
		CategoryAbuse, CategoryExtremism, CategoryHateSpeech,
		CategorySexualContent, CategoryLegalAdvice, CategoryMedicalAdvice,
		CategorySectarian, CategoryPoliticalRuling:
		return true
	}
	return false
}
