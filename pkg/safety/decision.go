package safety

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/authentic-hadith/truthserum/pkg/canonicalize"
)

// Verdict is the recorded outcome of a classifier evaluation.
type Verdict string

const (
	VerdictAllowed Verdict = "allowed"
	VerdictBlocked Verdict = "blocked"
)

// ReviewOutcome is set by a later human-review step.
type ReviewOutcome string

const (
	ReviewOutcomeNone      ReviewOutcome = ""
	ReviewOutcomeCorrect   ReviewOutcome = "correct"
	ReviewOutcomeIncorrect ReviewOutcome = "incorrect"
)

// PatternMatch records one rule that triggered a decision.
type PatternMatch struct {
	Category Category `json:"category"`
	Pattern  string   `json:"pattern"`
}

// Decision is the persisted audit record of one classifier evaluation. It is
// written once per logged evaluation and mutated only by a later human
// review that sets ReviewedByHuman and ReviewOutcome.
type Decision struct {
	ID                   string         `json:"id"`
	Query                string         `json:"query"`
	QueryHash            string         `json:"query_hash"`
	Verdict              Verdict        `json:"decision"`
	Confidence           float64        `json:"confidence"`
	PatternsMatched      []PatternMatch `json:"patterns_matched"`
	TotalPatternsChecked int            `json:"total_patterns_checked"`
	FalsePositiveFlagged bool           `json:"false_positive_flagged"`
	ReviewedByHuman      bool           `json:"reviewed_by_human"`
	ReviewOutcome        ReviewOutcome  `json:"review_outcome,omitempty"`
	UserID               string         `json:"user_id,omitempty"`
	SessionID            string         `json:"session_id,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
}

// DecisionStore persists safety decisions. Implementations are supplied by
// the caller; the classifier itself performs no I/O.
type DecisionStore interface {
	StoreDecision(ctx context.Context, d *Decision) (id string, err error)
}

// LoggedResult extends Result with the identifier of the persisted decision.
type LoggedResult struct {
	Result
	DecisionID string `json:"decision_id"`
}

// EvaluateAndLog evaluates the query, then persists a Decision through the
// injected store. A store failure propagates to the caller; the evaluation
// result itself is unaffected by logging.
func (e *Engine) EvaluateAndLog(ctx context.Context, store DecisionStore, query, userID, sessionID string) (LoggedResult, error) {
	if store == nil {
		return LoggedResult{}, fmt.Errorf("safety: decision store is required")
	}

	result := e.Evaluate(query)

	var matched []PatternMatch
	confidence := 0.9
	if !result.Allowed {
		matched = []PatternMatch{{Category: result.Category, Pattern: result.Pattern}}
		confidence = 0.95
	}

	decision := &Decision{
		ID:                   uuid.New().String(),
		Query:                query,
		QueryHash:            canonicalize.TextHash(query),
		Verdict:              verdictOf(result),
		Confidence:           confidence,
		PatternsMatched:      matched,
		TotalPatternsChecked: e.totalPatterns,
		UserID:               userID,
		SessionID:            sessionID,
		CreatedAt:            time.Now().UTC(),
	}

	id, err := store.StoreDecision(ctx, decision)
	if err != nil {
		return LoggedResult{}, fmt.Errorf("safety: store decision: %w", err)
	}

	return LoggedResult{Result: result, DecisionID: id}, nil
}

func verdictOf(r Result) Verdict {
	if r.Allowed {
		return VerdictAllowed
	}
	return VerdictBlocked
}
