package gate

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authentic-hadith/truthserum/pkg/contracts"
	"github.com/authentic-hadith/truthserum/pkg/enforcement"
	"github.com/authentic-hadith/truthserum/pkg/receipts"
	"github.com/authentic-hadith/truthserum/pkg/safety"
	"github.com/authentic-hadith/truthserum/pkg/store"
	"github.com/authentic-hadith/truthserum/pkg/verification"
)

type testGate struct {
	gate      *Gate
	signer    *verification.Signer
	svc       *receipts.Service
	auditLog  *store.MemoryAuditLog
	safetyLog *store.MemorySafetyLog
}

func newTestGate(t *testing.T) *testGate {
	t.Helper()

	engine, err := safety.NewEngine()
	require.NoError(t, err)

	signer := verification.NewSigner("test-secret")
	svc, err := receipts.NewService(signer)
	require.NoError(t, err)

	auditLog := store.NewMemoryAuditLog()
	safetyLog := store.NewMemorySafetyLog()

	g, err := New(Options{
		Engine:    engine,
		Enforcer:  enforcement.NewEnforcer(signer, nil),
		Receipts:  svc,
		AuditLog:  auditLog,
		SafetyLog: safetyLog,
	})
	require.NoError(t, err)

	return &testGate{gate: g, signer: signer, svc: svc, auditLog: auditLog, safetyLog: safetyLog}
}

func (tg *testGate) hadith(t *testing.T, id string, number int) *contracts.Hadith {
	t.Helper()
	h := &contracts.Hadith{
		ID:            id,
		Collection:    "Sahih Bukhari",
		HadithNumber:  number,
		ArabicText:    "sample arabic text " + id,
		NarratorChain: "Abu Huraira",
	}
	prim, err := tg.signer.NewEntityVerification(h, "src-1", "source-hash", verification.MethodSourceImport)
	require.NoError(t, err)
	h.Verification = prim
	return h
}

func TestGate_SearchFlow(t *testing.T) {
	tg := newTestGate(t)
	ctx := context.Background()

	req, err := tg.gate.NewRequest(ctx, receipts.OpHadithSearch)
	require.NoError(t, err)

	batch := []*contracts.Hadith{tg.hadith(t, "h1", 1), tg.hadith(t, "h2", 2)}
	result, err := req.VerifyHadithBatch(ctx, batch)
	require.NoError(t, err)
	require.Len(t, result.Verified, 2)

	receipt, err := req.EmitReceipt(ctx,
		map[string]any{"query": "intention"},
		map[string]any{"ids": []string{"h1", "h2"}},
	)
	require.NoError(t, err)

	assert.Equal(t, receipts.OpHadithSearch, receipt.Operation)
	assert.Equal(t, req.ID, receipt.RequestID)
	assert.Equal(t, []string{"h1", "h2"}, receipt.Outputs.EntityIDs)
	assert.True(t, receipt.Verification.AllVerified)
	assert.Equal(t, receipts.ConfidenceVerified, receipt.Attestation.Confidence)
	assert.True(t, tg.svc.VerifyReceiptSignature(receipt))

	stored, err := tg.auditLog.ReceiptByID(ctx, receipt.ReceiptID)
	require.NoError(t, err)
	assert.Equal(t, receipt.ReceiptID, stored.ReceiptID)
}

func TestGate_PartialBatchDowngradesConfidence(t *testing.T) {
	tg := newTestGate(t)
	ctx := context.Background()

	req, err := tg.gate.NewRequest(ctx, receipts.OpHadithBatchVerification)
	require.NoError(t, err)

	batch := make([]*contracts.Hadith, 10)
	for i := range batch {
		batch[i] = tg.hadith(t, fmt.Sprintf("h%d", i), i+1)
	}
	batch[4].ArabicText = "corrupted"

	result, err := req.VerifyHadithBatch(ctx, batch)
	require.NoError(t, err)
	assert.Len(t, result.Verified, 9)
	assert.Len(t, result.Failures, 1)

	ids := make([]string, 0, 10)
	for _, h := range batch {
		ids = append(ids, h.ID)
	}
	receipt, err := req.EmitReceipt(ctx,
		map[string]any{"hadith_ids": ids},
		map[string]any{"verified": 9},
	)
	require.NoError(t, err)

	assert.False(t, receipt.Verification.AllVerified)
	assert.Equal(t, 9, receipt.Verification.VerifiedCount)
	assert.Equal(t, 1, receipt.Verification.UnverifiedCount)
	assert.Len(t, receipt.Verification.Failures, 1)
	assert.Equal(t, receipts.ConfidenceMedium, receipt.Attestation.Confidence)
}

func TestGate_GenerationRequiresSafetyClearance(t *testing.T) {
	tg := newTestGate(t)
	ctx := context.Background()

	req, err := tg.gate.NewRequest(ctx, receipts.OpAIExplanation)
	require.NoError(t, err)

	// Downstream stages are sealed until the classifier allows the query.
	_, err = req.VerifyHadith(ctx, tg.hadith(t, "h1", 1))
	require.ErrorIs(t, err, ErrSafetyNotCleared)

	expl := &contracts.AIExplanation{
		ID: "e1",
		Citations: []contracts.Citation{
			{HadithID: "h1", HadithHash: "hash", Excerpt: "Sahih Bukhari 1"},
		},
		CitationCoverage: 0.9,
	}
	require.ErrorIs(t, req.EnforceCitations(ctx, expl), ErrSafetyNotCleared)

	result, err := req.EvaluateSafety(ctx, "What does this hadith teach about patience?", "u1", "s1")
	require.NoError(t, err)
	require.True(t, result.Allowed)
	assert.NotEmpty(t, result.DecisionID)

	_, err = req.VerifyHadith(ctx, tg.hadith(t, "h1", 1))
	require.NoError(t, err)
	require.NoError(t, req.EnforceCitations(ctx, expl))

	receipt, err := req.EmitReceipt(ctx,
		map[string]any{"hadith_id": "h1", "question": "What does this hadith teach about patience?"},
		map[string]any{"explanation_id": "e1"},
	)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"h1", "e1"}, receipt.Outputs.EntityIDs)
}

func TestGate_BlockedQueryStaysSealed(t *testing.T) {
	tg := newTestGate(t)
	ctx := context.Background()

	req, err := tg.gate.NewRequest(ctx, receipts.OpAIExplanation)
	require.NoError(t, err)

	result, err := req.EvaluateSafety(ctx, "Is music halal?", "u1", "s1")
	require.NoError(t, err)
	require.False(t, result.Allowed)
	assert.Equal(t, safety.CategoryHalalHaram, result.Category)
	assert.NotEmpty(t, result.SafeResponse)

	// The block is a normal return, but downstream work stays refused.
	_, err = req.VerifyHadith(ctx, tg.hadith(t, "h1", 1))
	require.ErrorIs(t, err, ErrSafetyNotCleared)

	// The decision was persisted for audit.
	pending, err := tg.safetyLog.DecisionsPendingReview(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, safety.VerdictBlocked, pending[0].Verdict)
}

func TestGate_ReadDoesNotNeedSafety(t *testing.T) {
	tg := newTestGate(t)
	ctx := context.Background()

	req, err := tg.gate.NewRequest(ctx, receipts.OpHadithRead)
	require.NoError(t, err)

	_, err = req.VerifyHadith(ctx, tg.hadith(t, "h1", 1))
	require.NoError(t, err)

	receipt, err := req.EmitReceipt(ctx, map[string]any{"id": "h1"}, map[string]any{"id": "h1"})
	require.NoError(t, err)
	assert.Equal(t, receipts.ConfidenceVerified, receipt.Attestation.Confidence)
}

func TestGate_InvalidOperation(t *testing.T) {
	tg := newTestGate(t)
	_, err := tg.gate.NewRequest(context.Background(), receipts.OperationType("billing_sync"))
	require.Error(t, err)
}

func TestGate_ReceiptParamsValidated(t *testing.T) {
	tg := newTestGate(t)
	ctx := context.Background()

	req, err := tg.gate.NewRequest(ctx, receipts.OpHadithRead)
	require.NoError(t, err)

	// hadith_read params require an id.
	_, err = req.EmitReceipt(ctx, map[string]any{}, map[string]any{})
	require.Error(t, err)
}

func TestGate_MissingDependencies(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}
