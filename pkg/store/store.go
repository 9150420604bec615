// Package store supplies the persistence implementations injected into the
// safety classifier and the receipt service: an in-memory pair for tests
// and embedding, a SQLite pair for single-node deployments, and a Postgres
// pair for shared deployments. The audit log is append-only in every
// implementation.
package store

import (
	"context"
	"errors"

	"github.com/authentic-hadith/truthserum/pkg/receipts"
	"github.com/authentic-hadith/truthserum/pkg/safety"
)

// ErrNotFound is returned for an unknown safety decision id. Receipt
// lookups use receipts.ErrReceiptNotFound so the receipt service can
// translate absence into a tampering signal.
var ErrNotFound = errors.New("store: not found")

// SafetyDecisionStore persists classifier decisions and supports the
// human-review workflow that feeds effectiveness metrics.
type SafetyDecisionStore interface {
	safety.DecisionStore

	DecisionByID(ctx context.Context, id string) (*safety.Decision, error)
	// DecisionsPendingReview lists unreviewed decisions oldest-first, up to
	// limit.
	DecisionsPendingReview(ctx context.Context, limit int) ([]*safety.Decision, error)
	// RecordReview marks a decision human-reviewed with the given outcome.
	// Returns ErrNotFound for an unknown id.
	RecordReview(ctx context.Context, id string, outcome safety.ReviewOutcome) error
	// ReviewedDecisions returns every decision a human has reviewed, the
	// input to safety.CalculateEffectiveness.
	ReviewedDecisions(ctx context.Context) ([]*safety.Decision, error)
}

// AuditStats summarizes the receipt log.
type AuditStats struct {
	TotalReceipts   int                            `json:"total_receipts"`
	ByOperation     map[receipts.OperationType]int `json:"by_operation"`
	OldestTimestamp string                         `json:"oldest_timestamp,omitempty"`
	NewestTimestamp string                         `json:"newest_timestamp,omitempty"`
}

var (
	_ receipts.AuditLogStore = (*MemoryAuditLog)(nil)
	_ receipts.AuditLogStore = (*SQLiteAuditLog)(nil)
	_ receipts.AuditLogStore = (*PostgresAuditLog)(nil)

	_ SafetyDecisionStore = (*MemorySafetyLog)(nil)
	_ SafetyDecisionStore = (*SQLiteSafetyLog)(nil)
	_ SafetyDecisionStore = (*PostgresSafetyLog)(nil)
)
