package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/authentic-hadith/truthserum/pkg/receipts"
	"github.com/authentic-hadith/truthserum/pkg/safety"

	_ "github.com/lib/pq"
)

// PostgresSchema is the DDL for the shared deployment. Schema management
// is the operator's job; the stores assume these tables exist.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS proof_receipts (
	receipt_id TEXT PRIMARY KEY,
	operation TEXT NOT NULL,
	request_id TEXT,
	timestamp TEXT NOT NULL,
	receipt JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS receipt_entities (
	receipt_id TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	PRIMARY KEY (receipt_id, entity_id)
);
CREATE TABLE IF NOT EXISTS safety_decisions (
	id TEXT PRIMARY KEY,
	query TEXT NOT NULL,
	query_hash TEXT NOT NULL,
	decision TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	patterns_matched JSONB,
	total_patterns_checked INTEGER NOT NULL,
	false_positive_flagged BOOLEAN NOT NULL DEFAULT FALSE,
	reviewed_by_human BOOLEAN NOT NULL DEFAULT FALSE,
	review_outcome TEXT NOT NULL DEFAULT '',
	user_id TEXT,
	session_id TEXT,
	created_at TEXT NOT NULL
);`

// PostgresAuditLog persists proof receipts in Postgres.
type PostgresAuditLog struct {
	db *sql.DB
}

func NewPostgresAuditLog(db *sql.DB) *PostgresAuditLog {
	return &PostgresAuditLog{db: db}
}

func (s *PostgresAuditLog) AppendReceipt(ctx context.Context, r *receipts.ProofReceipt) (string, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to encode receipt: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO proof_receipts (receipt_id, operation, request_id, timestamp, receipt) VALUES ($1, $2, $3, $4, $5)`,
		r.ReceiptID, string(r.Operation), r.RequestID, r.Timestamp, string(raw),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert receipt: %w", err)
	}
	for _, entityID := range r.Outputs.EntityIDs {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO receipt_entities (receipt_id, entity_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			r.ReceiptID, entityID,
		)
		if err != nil {
			return "", fmt.Errorf("failed to index receipt entity: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit receipt: %w", err)
	}
	return r.ReceiptID, nil
}

func (s *PostgresAuditLog) ReceiptByID(ctx context.Context, id string) (*receipts.ProofReceipt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT receipt FROM proof_receipts WHERE receipt_id = $1`, id)
	var raw string
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return nil, receipts.ErrReceiptNotFound
		}
		return nil, fmt.Errorf("failed to fetch receipt: %w", err)
	}
	return decodeReceipt(raw)
}

func (s *PostgresAuditLog) ReceiptsByOperation(ctx context.Context, op receipts.OperationType) ([]*receipts.ProofReceipt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT receipt FROM proof_receipts WHERE operation = $1 ORDER BY timestamp`, string(op))
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	return collectReceipts(rows)
}

func (s *PostgresAuditLog) ReceiptsForEntity(ctx context.Context, entityID string) ([]*receipts.ProofReceipt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pr.receipt FROM proof_receipts pr
		JOIN receipt_entities re ON re.receipt_id = pr.receipt_id
		WHERE re.entity_id = $1
		ORDER BY pr.timestamp`, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts for entity: %w", err)
	}
	return collectReceipts(rows)
}

func (s *PostgresAuditLog) AuditStats(ctx context.Context) (AuditStats, error) {
	stats := AuditStats{ByOperation: map[receipts.OperationType]int{}}

	rows, err := s.db.QueryContext(ctx,
		`SELECT operation, COUNT(*) FROM proof_receipts GROUP BY operation`)
	if err != nil {
		return stats, fmt.Errorf("failed to aggregate receipts: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var op string
		var n int
		if err := rows.Scan(&op, &n); err != nil {
			return stats, err
		}
		stats.ByOperation[receipts.OperationType(op)] = n
		stats.TotalReceipts += n
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	if stats.TotalReceipts > 0 {
		row := s.db.QueryRowContext(ctx, `SELECT MIN(timestamp), MAX(timestamp) FROM proof_receipts`)
		if err := row.Scan(&stats.OldestTimestamp, &stats.NewestTimestamp); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// PostgresSafetyLog persists safety decisions in Postgres.
type PostgresSafetyLog struct {
	db *sql.DB
}

func NewPostgresSafetyLog(db *sql.DB) *PostgresSafetyLog {
	return &PostgresSafetyLog{db: db}
}

func (s *PostgresSafetyLog) StoreDecision(ctx context.Context, d *safety.Decision) (string, error) {
	patterns, _ := json.Marshal(d.PatternsMatched)
	createdAt := d.CreatedAt.UTC().Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO safety_decisions (`+decisionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		d.ID, d.Query, d.QueryHash, string(d.Verdict), d.Confidence, string(patterns),
		d.TotalPatternsChecked, d.FalsePositiveFlagged, d.ReviewedByHuman, string(d.ReviewOutcome),
		d.UserID, d.SessionID, createdAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert safety decision: %w", err)
	}
	return d.ID, nil
}

func (s *PostgresSafetyLog) DecisionByID(ctx context.Context, id string) (*safety.Decision, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+decisionColumns+` FROM safety_decisions WHERE id = $1`, id)
	d, err := scanDecision(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return d, err
}

func (s *PostgresSafetyLog) DecisionsPendingReview(ctx context.Context, limit int) ([]*safety.Decision, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+decisionColumns+` FROM safety_decisions
		 WHERE reviewed_by_human = FALSE ORDER BY created_at LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending decisions: %w", err)
	}
	return collectDecisions(rows)
}

func (s *PostgresSafetyLog) RecordReview(ctx context.Context, id string, outcome safety.ReviewOutcome) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE safety_decisions
		 SET reviewed_by_human = TRUE,
		     review_outcome = $1,
		     false_positive_flagged = (decision = 'blocked' AND $1 = 'incorrect')
		 WHERE id = $2`,
		string(outcome), id)
	if err != nil {
		return fmt.Errorf("failed to record review: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresSafetyLog) ReviewedDecisions(ctx context.Context) ([]*safety.Decision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+decisionColumns+` FROM safety_decisions
		 WHERE reviewed_by_human = TRUE ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviewed decisions: %w", err)
	}
	return collectDecisions(rows)
}
