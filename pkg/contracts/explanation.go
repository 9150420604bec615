package contracts

import (
	"github.com/authentic-hadith/truthserum/pkg/safety"
	"github.com/authentic-hadith/truthserum/pkg/verification"
)

// Citation links an AI-generated explanation to one source hadith.
// HadithHash is a copy of the source's content hash at citation time: proof
// that the source was verified when it was cited.
type Citation struct {
	HadithID   string `json:"hadith_id"`
	HadithHash string `json:"hadith_hash"`
	Excerpt    string `json:"excerpt"`
	Relevance  string `json:"relevance"`
}

// AIExplanation is generated content. It is invalid without at least one
// citation; the enforcement layer rejects citation-less explanations before
// they reach a caller.
type AIExplanation struct {
	ID              string     `json:"id"`
	ExplanationText string     `json:"explanation_text"`
	ExplanationHash string     `json:"explanation_hash"`
	Citations       []Citation `json:"citations"`
	// CitationCoverage is the approximate fraction of the explanation text
	// backed by citation excerpts, in [0, 1].
	CitationCoverage float64 `json:"citation_coverage"`

	Verification verification.Primitive `json:"verification"`
	// SafetyCheck snapshots the classifier result that allowed generation.
	SafetyCheck safety.Result `json:"safety_check"`
}
