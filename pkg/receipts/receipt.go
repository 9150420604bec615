// Package receipts produces signed, immutable audit records of
// truth-bearing operations. A receipt binds an operation's inputs and
// outputs to verification counts and a confidence tier; its HMAC signature
// makes post-hoc tampering detectable on every later read.
package receipts

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/authentic-hadith/truthserum/pkg/canonicalize"
)

// OperationType is the closed set of operations that emit receipts.
type OperationType string

const (
	OpHadithRead              OperationType = "hadith_read"
	OpHadithSearch            OperationType = "hadith_search"
	OpHadithImport            OperationType = "hadith_import"
	OpHadithVerification      OperationType = "hadith_verification"
	OpHadithBatchVerification OperationType = "hadith_batch_verification"
	OpAIExplanation           OperationType = "ai_explanation"
	OpAIVerification          OperationType = "ai_verification"
	OpCountQuery              OperationType = "count_query"
	OpSafetyEvaluation        OperationType = "safety_evaluation"
)

// Valid reports whether op is a recognized operation type.
func (op OperationType) Valid() bool {
	switch op {
	case OpHadithRead, OpHadithSearch, OpHadithImport, OpHadithVerification,
		OpHadithBatchVerification, OpAIExplanation, OpAIVerification,
		OpCountQuery, OpSafetyEvaluation:
		return true
	}
	return false
}

// ConfidenceLevel summarizes the verified-vs-unverified ratio of an
// operation's outputs.
type ConfidenceLevel string

const (
	ConfidenceVerified   ConfidenceLevel = "verified"
	ConfidenceHigh       ConfidenceLevel = "high"
	ConfidenceMedium     ConfidenceLevel = "medium"
	ConfidenceLow        ConfidenceLevel = "low"
	ConfidenceUnverified ConfidenceLevel = "unverified"
)

// Inputs records what the operation was asked to do.
type Inputs struct {
	Hash   string         `json:"hash"`
	Params map[string]any `json:"params,omitempty"`
}

// Outputs records what the operation produced.
type Outputs struct {
	Hash      string   `json:"hash"`
	Count     int      `json:"count"`
	EntityIDs []string `json:"entity_ids"`
}

// Verification summarizes the per-entity verification outcomes.
type Verification struct {
	AllVerified     bool     `json:"all_verified"`
	VerifiedCount   int      `json:"verified_count"`
	UnverifiedCount int      `json:"unverified_count"`
	Failures        []string `json:"failures,omitempty"`
}

// Attestation carries the receipt's signature and derived confidence tier.
type Attestation struct {
	Signature  string          `json:"signature"`
	Confidence ConfidenceLevel `json:"confidence"`
}

// ProofReceipt is the immutable audit record of one operation. It is
// created once, appended to the audit log, and never mutated.
type ProofReceipt struct {
	ReceiptID    string        `json:"receipt_id"`
	Operation    OperationType `json:"operation"`
	RequestID    string        `json:"request_id"`
	Timestamp    string        `json:"timestamp"`
	DurationMs   int64         `json:"duration_ms"`
	Inputs       Inputs        `json:"inputs"`
	Outputs      Outputs       `json:"outputs"`
	Verification Verification  `json:"verification"`
	Attestation  Attestation   `json:"attestation"`
}

// Params describes one completed operation to CreateProofReceipt.
type Params struct {
	Operation OperationType
	RequestID string
	// InputParams are the operation's parameters; they are hashed and,
	// after schema validation, embedded in the receipt verbatim.
	InputParams map[string]any
	// Outputs is the raw result object whose hash the receipt attests to.
	Outputs   any
	EntityIDs []string
	// Count overrides the output count when it differs from the number of
	// entity ids (aggregate queries). Zero means len(EntityIDs).
	Count           int
	VerifiedCount   int
	UnverifiedCount int
	Failures        []string
	Duration        time.Duration
}

// ErrTamperedReceipt is returned when a receipt is missing from the store
// or its signature fails to verify. The two cases are deliberately
// indistinguishable: a deleted record and an altered record are the same
// violation.
var ErrTamperedReceipt = errors.New("tampered receipt")

// ErrReceiptNotFound is the store-level sentinel for an unknown receipt id.
// Store implementations return it; retrieval translates it into
// ErrTamperedReceipt before the caller ever sees it.
var ErrReceiptNotFound = errors.New("receipt not found")

// CreateProofReceipt builds and signs a receipt for one completed
// operation. Pure computation; persistence happens through an injected
// store at the call site.
func (s *Service) CreateProofReceipt(p Params) (*ProofReceipt, error) {
	if !p.Operation.Valid() {
		return nil, fmt.Errorf("receipts: unknown operation %q", p.Operation)
	}
	if err := s.validatePayload(p.Operation, p.InputParams); err != nil {
		return nil, err
	}

	inputsHash, err := canonicalize.ContentHash(p.InputParams)
	if err != nil {
		return nil, fmt.Errorf("receipts: hash inputs: %w", err)
	}
	outputsHash, err := canonicalize.ContentHash(p.Outputs)
	if err != nil {
		return nil, fmt.Errorf("receipts: hash outputs: %w", err)
	}

	count := p.Count
	if count == 0 {
		count = len(p.EntityIDs)
	}
	entityIDs := p.EntityIDs
	if entityIDs == nil {
		entityIDs = []string{}
	}

	receiptID := uuid.New().String()
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	r := &ProofReceipt{
		ReceiptID:  receiptID,
		Operation:  p.Operation,
		RequestID:  p.RequestID,
		Timestamp:  timestamp,
		DurationMs: p.Duration.Milliseconds(),
		Inputs:     Inputs{Hash: inputsHash, Params: p.InputParams},
		Outputs:    Outputs{Hash: outputsHash, Count: count, EntityIDs: entityIDs},
		Verification: Verification{
			AllVerified:     p.UnverifiedCount == 0,
			VerifiedCount:   p.VerifiedCount,
			UnverifiedCount: p.UnverifiedCount,
			Failures:        p.Failures,
		},
		Attestation: Attestation{
			Confidence: deriveConfidence(p.VerifiedCount, p.UnverifiedCount),
		},
	}
	r.Attestation.Signature = s.signer.Sign(r.ReceiptID, r.Inputs.Hash, r.Outputs.Hash, r.Timestamp)
	return r, nil
}

// deriveConfidence buckets the verified ratio into a tier. An operation
// with no entities at all has nothing unverified and counts as verified.
func deriveConfidence(verified, unverified int) ConfidenceLevel {
	total := verified + unverified
	if total == 0 {
		return ConfidenceVerified
	}
	ratio := float64(verified) / float64(total)
	switch {
	case ratio == 1:
		return ConfidenceVerified
	case ratio >= 0.95:
		return ConfidenceHigh
	case ratio >= 0.80:
		return ConfidenceMedium
	case ratio > 0:
		return ConfidenceLow
	}
	return ConfidenceUnverified
}

// VerifyReceiptSignature recomputes the receipt signature and compares it
// in constant time.
func (s *Service) VerifyReceiptSignature(r *ProofReceipt) bool {
	if r == nil {
		return false
	}
	return s.signer.Verify(r.Attestation.Signature, r.ReceiptID, r.Inputs.Hash, r.Outputs.Hash, r.Timestamp)
}
