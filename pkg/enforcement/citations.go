package enforcement

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/authentic-hadith/truthserum/pkg/contracts"
	"github.com/authentic-hadith/truthserum/pkg/verification"
)

// coverageWarnThreshold is the advisory citation coverage floor. Coverage
// below it logs a warning but does not reject the explanation; the hard
// requirement is at least one verifiable citation.
const coverageWarnThreshold = 0.8

// EnforceAICitations gates AI-generated explanations. An explanation with
// zero citations is rejected outright; each citation must carry the content
// hash of a verified source. Low coverage is advisory only.
func (e *Enforcer) EnforceAICitations(expl *contracts.AIExplanation) error {
	if expl == nil {
		return fmt.Errorf("%w: nil explanation", ErrValidation)
	}
	if len(expl.Citations) == 0 {
		return fmt.Errorf("%w: explanation %s cites no sources", ErrNoCitation, expl.ID)
	}
	for i, c := range expl.Citations {
		if c.HadithID == "" || c.HadithHash == "" {
			return fmt.Errorf("%w: citation %d of explanation %s is not verifiable", ErrNoCitation, i, expl.ID)
		}
	}
	if expl.CitationCoverage < coverageWarnThreshold {
		e.logger.Warn("explanation citation coverage below threshold",
			"explanation_id", expl.ID,
			"coverage", expl.CitationCoverage,
			"threshold", coverageWarnThreshold,
		)
	}
	return nil
}

// ExtractCitations scans generated text for references to the given sources
// and builds citations bound to each source's current content hash. Only
// sources the text actually references are cited. The match is a heuristic
// over common reference shapes ("Sahih Bukhari 5027", "Hadith #1234",
// "Muslim 2564"); it errs toward missing a citation, never inventing one.
func ExtractCitations(text string, sources []*contracts.Hadith) ([]contracts.Citation, error) {
	citations := []contracts.Citation{}
	for _, h := range sources {
		if h == nil {
			continue
		}
		re, err := referencePattern(h.Collection, h.HadithNumber)
		if err != nil {
			return nil, fmt.Errorf("enforcement: citation pattern for %s %d: %w", h.Collection, h.HadithNumber, err)
		}
		loc := re.FindString(text)
		if loc == "" {
			continue
		}
		// Bind the citation to the hash recorded at verification time;
		// recompute only for sources that never went through verification.
		hash := h.Verification.ContentHash
		if hash == "" {
			var err error
			hash, err = verification.EntityHash(h)
			if err != nil {
				return nil, err
			}
		}
		citations = append(citations, contracts.Citation{
			HadithID:   h.ID,
			HadithHash: hash,
			Excerpt:    loc,
			Relevance:  "primary",
		})
	}
	return citations, nil
}

func referencePattern(collection string, number int) (*regexp.Regexp, error) {
	col := regexp.QuoteMeta(strings.TrimSpace(collection))
	// Either "<collection> ... <number>" within a short window, or the
	// generic "hadith #<number>" form.
	expr := fmt.Sprintf(`(?i)(%s\D{0,40}#?%d\b|hadith\D{0,10}#?%d\b)`, col, number, number)
	return regexp.Compile(expr)
}

// CitationCoverage estimates the fraction of explanation words also present
// in citation excerpts, capped at 1. A crude overlap measure, but it only
// feeds the advisory warning, never a rejection.
func CitationCoverage(text string, citations []contracts.Citation) float64 {
	words := tokenize(text)
	if len(words) == 0 {
		return 0
	}
	cited := map[string]bool{}
	for _, c := range citations {
		for _, w := range tokenize(c.Excerpt) {
			cited[w] = true
		}
	}
	covered := 0
	for _, w := range words {
		if cited[w] {
			covered++
		}
	}
	cov := float64(covered) / float64(len(words))
	if cov > 1 {
		cov = 1
	}
	return cov
}

func tokenize(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, `.,;:!?"'()[]#`)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
