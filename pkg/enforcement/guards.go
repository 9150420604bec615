package enforcement

import (
	"fmt"
	"strings"
	"time"

	"github.com/authentic-hadith/truthserum/pkg/safety"
)

// DefaultFreshnessMaxAge bounds how old a derived value may be before it is
// flagged stale.
const DefaultFreshnessMaxAge = 24 * time.Hour

// CountResult is a derived numeric answer. Raw integers never cross the
// gate; counts always travel with their source and verification time so
// staleness is visible to the caller.
type CountResult struct {
	Count      int       `json:"count"`
	Source     string    `json:"source"`
	VerifiedAt time.Time `json:"verified_at"`
}

// NewCountResult stamps a freshly computed count.
func NewCountResult(count int) CountResult {
	return CountResult{
		Count:      count,
		Source:     "database",
		VerifiedAt: time.Now().UTC(),
	}
}

// ValidateCountResult rejects malformed count results before they are
// served or persisted.
func ValidateCountResult(c CountResult) error {
	if c.Count < 0 {
		return fmt.Errorf("%w: count is negative", ErrValidation)
	}
	if c.Source == "" {
		return fmt.Errorf("%w: count result has no source", ErrValidation)
	}
	if c.VerifiedAt.IsZero() {
		return fmt.Errorf("%w: count result has no verification time", ErrValidation)
	}
	return nil
}

// Freshness reports how old a derived value is relative to a maximum age.
type Freshness struct {
	Fresh bool          `json:"fresh"`
	Age   time.Duration `json:"age"`
}

// CheckFreshness compares a verification time against maxAge. A
// non-positive maxAge falls back to DefaultFreshnessMaxAge. Stale values
// are flagged, not rejected; the caller decides whether to recompute.
func CheckFreshness(verifiedAt time.Time, maxAge time.Duration) Freshness {
	if maxAge <= 0 {
		maxAge = DefaultFreshnessMaxAge
	}
	age := time.Since(verifiedAt)
	return Freshness{Fresh: age <= maxAge, Age: age}
}

// ValidateSafetyDecision checks the structural invariants of a logged
// safety decision before it is persisted. A blocked decision must name at
// least one matched pattern; confidence stays in [0, 1]. All violations are
// collected before reporting, so a malformed decision surfaces every
// problem in one wrapped error.
func ValidateSafetyDecision(d *safety.Decision) error {
	if d == nil {
		return fmt.Errorf("%w: nil decision", ErrValidation)
	}
	var violations []string
	if d.Query == "" && d.Verdict != safety.VerdictBlocked {
		violations = append(violations, "empty query must be blocked")
	}
	if d.QueryHash == "" {
		violations = append(violations, "decision has no query hash")
	}
	if d.TotalPatternsChecked < 1 {
		violations = append(violations, "decision checked no patterns")
	}
	switch d.Verdict {
	case safety.VerdictAllowed:
		if len(d.PatternsMatched) != 0 {
			violations = append(violations, "allowed decision lists matched patterns")
		}
	case safety.VerdictBlocked:
		if len(d.PatternsMatched) == 0 {
			violations = append(violations, "blocked decision lists no matched pattern")
		}
	default:
		violations = append(violations, fmt.Sprintf("unknown verdict %q", d.Verdict))
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		violations = append(violations, fmt.Sprintf("confidence %v out of range", d.Confidence))
	}
	switch d.ReviewOutcome {
	case safety.ReviewOutcomeNone, safety.ReviewOutcomeCorrect, safety.ReviewOutcomeIncorrect:
	default:
		violations = append(violations, fmt.Sprintf("unknown review outcome %q", d.ReviewOutcome))
	}
	if len(violations) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(violations, "; "))
	}
	return nil
}
