package safety

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDecisionStore struct {
	decisions []*Decision
	err       error
}

func (s *fakeDecisionStore) StoreDecision(_ context.Context, d *Decision) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.decisions = append(s.decisions, d)
	return d.ID, nil
}

func TestEvaluateAndLog_BlockedDecision(t *testing.T) {
	e := newTestEngine(t)
	store := &fakeDecisionStore{}

	logged, err := e.EvaluateAndLog(context.Background(), store, "Is music halal?", "user-1", "sess-1")
	require.NoError(t, err)

	assert.False(t, logged.Allowed)
	assert.NotEmpty(t, logged.DecisionID)

	require.Len(t, store.decisions, 1)
	d := store.decisions[0]
	assert.Equal(t, logged.DecisionID, d.ID)
	assert.Equal(t, VerdictBlocked, d.Verdict)
	assert.Equal(t, "Is music halal?", d.Query)
	assert.NotEmpty(t, d.QueryHash)
	assert.Equal(t, e.TotalPatterns(), d.TotalPatternsChecked)
	require.Len(t, d.PatternsMatched, 1)
	assert.Equal(t, CategoryHalalHaram, d.PatternsMatched[0].Category)
	assert.Equal(t, 0.95, d.Confidence)
	assert.False(t, d.ReviewedByHuman)
}

func TestEvaluateAndLog_AllowedDecision(t *testing.T) {
	e := newTestEngine(t)
	store := &fakeDecisionStore{}

	logged, err := e.EvaluateAndLog(context.Background(), store, "Who narrated this hadith?", "", "")
	require.NoError(t, err)

	assert.True(t, logged.Allowed)
	require.Len(t, store.decisions, 1)
	d := store.decisions[0]
	assert.Equal(t, VerdictAllowed, d.Verdict)
	assert.Empty(t, d.PatternsMatched)
	assert.Equal(t, 0.9, d.Confidence)
}

func TestEvaluateAndLog_StoreFailurePropagates(t *testing.T) {
	e := newTestEngine(t)
	store := &fakeDecisionStore{err: errors.New("disk full")}

	_, err := e.EvaluateAndLog(context.Background(), store, "any query", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestEvaluateAndLog_RequiresStore(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.EvaluateAndLog(context.Background(), nil, "any query", "", "")
	require.Error(t, err)
}

func TestCalculateEffectiveness(t *testing.T) {
	decisions := []*Decision{
		{Verdict: VerdictBlocked, ReviewedByHuman: true, ReviewOutcome: ReviewOutcomeCorrect},
		{Verdict: VerdictBlocked, ReviewedByHuman: true, ReviewOutcome: ReviewOutcomeCorrect},
		{Verdict: VerdictBlocked, ReviewedByHuman: true, ReviewOutcome: ReviewOutcomeCorrect},
		{Verdict: VerdictBlocked, ReviewedByHuman: true, ReviewOutcome: ReviewOutcomeIncorrect},
		{Verdict: VerdictAllowed, ReviewedByHuman: true, ReviewOutcome: ReviewOutcomeIncorrect},
		{Verdict: VerdictAllowed, ReviewedByHuman: false}, // unreviewed, ignored
	}

	eff := CalculateEffectiveness(decisions)
	assert.Equal(t, 5, eff.TotalReviewed)
	assert.InDelta(t, 0.75, eff.Precision, 1e-9) // 3 TP / (3 TP + 1 FP)
	assert.InDelta(t, 0.75, eff.Recall, 1e-9)    // 3 TP / (3 TP + 1 FN)
	assert.InDelta(t, 0.75, eff.F1Score, 1e-9)
}

func TestCalculateEffectiveness_Empty(t *testing.T) {
	eff := CalculateEffectiveness(nil)
	assert.Zero(t, eff.Precision)
	assert.Zero(t, eff.Recall)
	assert.Zero(t, eff.F1Score)
	assert.Zero(t, eff.TotalReviewed)
}
