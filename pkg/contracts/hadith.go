// Package contracts defines the shared content entity types that flow
// between the data layer, the verification engine, and the enforcement
// rules.
package contracts

import (
	"strings"

	"github.com/authentic-hadith/truthserum/pkg/verification"
)

// Hadith is a verified narration record. The canonical fields (arabic text,
// collection, number, narrator chain) are immutable after import; everything
// else is metadata and stays outside the content hash.
type Hadith struct {
	ID            string   `json:"id"`
	Collection    string   `json:"collection"`
	HadithNumber  int      `json:"hadith_number"`
	ArabicText    string   `json:"arabic_text"`
	Translation   string   `json:"translation,omitempty"`
	NarratorChain string   `json:"narrator_chain"`
	Grade         string   `json:"grade,omitempty"`
	Topics        []string `json:"topics,omitempty"`

	Verification verification.Primitive `json:"verification"`
}

// CanonicalFields returns the immutable projection used for content hashing.
func (h Hadith) CanonicalFields() map[string]any {
	return map[string]any{
		"arabic_text":    strings.TrimSpace(h.ArabicText),
		"collection":     h.Collection,
		"hadith_number":  h.HadithNumber,
		"narrator_chain": h.NarratorChain,
	}
}
