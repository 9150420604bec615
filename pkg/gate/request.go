package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/authentic-hadith/truthserum/pkg/contracts"
	"github.com/authentic-hadith/truthserum/pkg/enforcement"
	"github.com/authentic-hadith/truthserum/pkg/receipts"
	"github.com/authentic-hadith/truthserum/pkg/safety"
)

// Request tracks one operation through the pipeline: its id, what was
// verified, and what failed. Not safe for concurrent use; a Request belongs
// to a single inbound call.
type Request struct {
	gate      *Gate
	ID        string
	Operation receipts.OperationType
	startedAt time.Time

	cleared    bool
	verified   int
	unverified int
	failures   []string
	entityIDs  []string
}

// NewRequest begins a request for the given operation.
func (g *Gate) NewRequest(ctx context.Context, op receipts.OperationType) (*Request, error) {
	if !op.Valid() {
		return nil, fmt.Errorf("gate: unknown operation %q", op)
	}
	g.requestCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", string(op))))
	return &Request{
		gate:      g,
		ID:        uuid.New().String(),
		Operation: op,
		startedAt: time.Now(),
		cleared:   !needsSafetyClearance(op),
	}, nil
}

// EvaluateSafety classifies the query and persists the decision. An allow
// clears the request for downstream stages; a block leaves it sealed and
// the caller must return the safe response instead of proceeding.
func (r *Request) EvaluateSafety(ctx context.Context, query, userID, sessionID string) (safety.LoggedResult, error) {
	ctx, span := r.gate.tracer.Start(ctx, "gate.evaluate_safety",
		trace.WithAttributes(attribute.String("request_id", r.ID)))
	defer span.End()

	result, err := r.gate.engine.EvaluateAndLog(ctx, r.gate.safetyLog, query, userID, sessionID)
	if err != nil {
		r.gate.errorCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", "safety")))
		return safety.LoggedResult{}, err
	}

	if result.Allowed {
		r.cleared = true
	} else {
		r.gate.blockedCounter.Add(ctx, 1,
			metric.WithAttributes(attribute.String("category", string(result.Category))))
		r.gate.logger.Info("query blocked",
			"request_id", r.ID,
			"category", result.Category,
			"decision_id", result.DecisionID,
		)
	}
	span.SetAttributes(
		attribute.Bool("allowed", result.Allowed),
		attribute.String("decision_id", result.DecisionID),
	)
	return result, nil
}

// VerifyHadith gates one fetched hadith and tallies the outcome.
func (r *Request) VerifyHadith(ctx context.Context, h *contracts.Hadith) (*contracts.Hadith, error) {
	ctx, span := r.gate.tracer.Start(ctx, "gate.verify_hadith",
		trace.WithAttributes(attribute.String("request_id", r.ID)))
	defer span.End()

	if !r.cleared {
		return nil, ErrSafetyNotCleared
	}

	verified, err := r.gate.enforcer.EnforceHadithVerification(h)
	if err != nil {
		r.unverified++
		r.failures = append(r.failures, err.Error())
		r.gate.errorCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", "verify")))
		return nil, err
	}
	r.verified++
	r.entityIDs = append(r.entityIDs, verified.ID)
	return verified, nil
}

// VerifyHadithBatch gates a fetched batch, tolerating partial failure.
func (r *Request) VerifyHadithBatch(ctx context.Context, batch []*contracts.Hadith) (enforcement.BatchResult, error) {
	ctx, span := r.gate.tracer.Start(ctx, "gate.verify_hadith_batch",
		trace.WithAttributes(
			attribute.String("request_id", r.ID),
			attribute.Int("batch_size", len(batch)),
		))
	defer span.End()

	if !r.cleared {
		return enforcement.BatchResult{}, ErrSafetyNotCleared
	}

	result := r.gate.enforcer.EnforceHadithBatch(batch)
	r.verified += len(result.Verified)
	r.unverified += len(result.Failures)
	for _, h := range result.Verified {
		r.entityIDs = append(r.entityIDs, h.ID)
	}
	for _, f := range result.Failures {
		r.failures = append(r.failures, f.Error)
	}
	if len(result.Failures) > 0 {
		r.gate.errorCounter.Add(ctx, int64(len(result.Failures)),
			metric.WithAttributes(attribute.String("stage", "verify_batch")))
	}
	span.SetAttributes(attribute.Int("verified", len(result.Verified)))
	return result, nil
}

// EnforceCitations gates generated content before it is persisted or
// returned.
func (r *Request) EnforceCitations(ctx context.Context, expl *contracts.AIExplanation) error {
	ctx, span := r.gate.tracer.Start(ctx, "gate.enforce_citations",
		trace.WithAttributes(attribute.String("request_id", r.ID)))
	defer span.End()

	if !r.cleared {
		return ErrSafetyNotCleared
	}

	if err := r.gate.enforcer.EnforceAICitations(expl); err != nil {
		r.gate.errorCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", "citations")))
		return err
	}
	r.verified++
	r.entityIDs = append(r.entityIDs, expl.ID)
	return nil
}

// EmitReceipt signs a receipt over the request's tallies and appends it to
// the audit log. The receipt is the request's proof metadata; an append
// failure propagates so the caller fails visibly rather than serving
// unreceipted content.
func (r *Request) EmitReceipt(ctx context.Context, params map[string]any, outputs any) (*receipts.ProofReceipt, error) {
	ctx, span := r.gate.tracer.Start(ctx, "gate.emit_receipt",
		trace.WithAttributes(
			attribute.String("request_id", r.ID),
			attribute.String("operation", string(r.Operation)),
		))
	defer span.End()

	duration := time.Since(r.startedAt)
	receipt, err := r.gate.receipts.CreateProofReceipt(receipts.Params{
		Operation:       r.Operation,
		RequestID:       r.ID,
		InputParams:     params,
		Outputs:         outputs,
		EntityIDs:       r.entityIDs,
		VerifiedCount:   r.verified,
		UnverifiedCount: r.unverified,
		Failures:        r.failures,
		Duration:        duration,
	})
	if err != nil {
		r.gate.errorCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", "receipt")))
		return nil, err
	}

	if _, err := r.gate.auditLog.AppendReceipt(ctx, receipt); err != nil {
		r.gate.errorCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", "receipt_append")))
		return nil, fmt.Errorf("gate: append receipt: %w", err)
	}

	r.gate.durationMillis.Record(ctx, float64(duration.Milliseconds()),
		metric.WithAttributes(attribute.String("operation", string(r.Operation))))
	r.gate.logger.Info("receipt emitted",
		"request_id", r.ID,
		"receipt_id", receipt.ReceiptID,
		"operation", r.Operation,
		"confidence", receipt.Attestation.Confidence,
	)
	return receipt, nil
}
