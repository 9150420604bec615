package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/authentic-hadith/truthserum/pkg/receipts"
	"github.com/authentic-hadith/truthserum/pkg/safety"

	_ "modernc.org/sqlite"
)

// SQLiteAuditLog persists proof receipts in SQLite. The full receipt is
// stored as JSON alongside the columns used for lookups; a join table maps
// output entity ids to receipts.
type SQLiteAuditLog struct {
	db *sql.DB
}

func NewSQLiteAuditLog(db *sql.DB) (*SQLiteAuditLog, error) {
	s := &SQLiteAuditLog{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteAuditLog) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS proof_receipts (
		receipt_id TEXT PRIMARY KEY,
		operation TEXT NOT NULL,
		request_id TEXT,
		timestamp TEXT NOT NULL,
		receipt JSON NOT NULL
	);
	CREATE TABLE IF NOT EXISTS receipt_entities (
		receipt_id TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		PRIMARY KEY (receipt_id, entity_id)
	);
	CREATE INDEX IF NOT EXISTS idx_proof_receipts_operation ON proof_receipts(operation);
	CREATE INDEX IF NOT EXISTS idx_receipt_entities_entity ON receipt_entities(entity_id);`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

func (s *SQLiteAuditLog) AppendReceipt(ctx context.Context, r *receipts.ProofReceipt) (string, error) {
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
		`INSERT INTO proof_receipts (receipt_id, operation, request_id, timestamp, receipt) VALUES (?, ?, ?, ?, ?)`,
		r.ReceiptID, string(r.Operation), r.RequestID, r.Timestamp, string(raw),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert receipt: %w", err)
	}
	for _, entityID := range r.Outputs.EntityIDs {
		_, err = tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO receipt_entities (receipt_id, entity_id) VALUES (?, ?)`,
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

func (s *SQLiteAuditLog) ReceiptByID(ctx context.Context, id string) (*receipts.ProofReceipt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT receipt FROM proof_receipts WHERE receipt_id = ?`, id)
	var raw string
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return nil, receipts.ErrReceiptNotFound
		}
		return nil, fmt.Errorf("failed to fetch receipt: %w", err)
	}
	return decodeReceipt(raw)
}

func (s *SQLiteAuditLog) ReceiptsByOperation(ctx context.Context, op receipts.OperationType) ([]*receipts.ProofReceipt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT receipt FROM proof_receipts WHERE operation = ? ORDER BY timestamp`, string(op))
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	return collectReceipts(rows)
}

func (s *SQLiteAuditLog) ReceiptsForEntity(ctx context.Context, entityID string) ([]*receipts.ProofReceipt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pr.receipt FROM proof_receipts pr
		JOIN receipt_entities re ON re.receipt_id = pr.receipt_id
		WHERE re.entity_id = ?
		ORDER BY pr.timestamp`, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts for entity: %w", err)
	}
	return collectReceipts(rows)
}

func (s *SQLiteAuditLog) AuditStats(ctx context.Context) (AuditStats, error) {
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

func decodeReceipt(raw string) (*receipts.ProofReceipt, error) {
	var r receipts.ProofReceipt
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("failed to decode stored receipt: %w", err)
	}
	return &r, nil
}

func collectReceipts(rows *sql.Rows) ([]*receipts.ProofReceipt, error) {
	defer func() { _ = rows.Close() }()
	var out []*receipts.ProofReceipt
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		r, err := decodeReceipt(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SQLiteSafetyLog persists safety decisions in SQLite.
type SQLiteSafetyLog struct {
	db *sql.DB
}

func NewSQLiteSafetyLog(db *sql.DB) (*SQLiteSafetyLog, error) {
	s := &SQLiteSafetyLog{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteSafetyLog) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS safety_decisions (
		id TEXT PRIMARY KEY,
		query TEXT NOT NULL,
		query_hash TEXT NOT NULL,
		decision TEXT NOT NULL,
		confidence REAL NOT NULL,
		patterns_matched JSON,
		total_patterns_checked INTEGER NOT NULL,
		false_positive_flagged INTEGER NOT NULL DEFAULT 0,
		reviewed_by_human INTEGER NOT NULL DEFAULT 0,
		review_outcome TEXT NOT NULL DEFAULT '',
		user_id TEXT,
		session_id TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_safety_decisions_review ON safety_decisions(reviewed_by_human);`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

const decisionColumns = `id, query, query_hash, decision, confidence, patterns_matched,
	total_patterns_checked, false_positive_flagged, reviewed_by_human, review_outcome,
	user_id, session_id, created_at`

func (s *SQLiteSafetyLog) StoreDecision(ctx context.Context, d *safety.Decision) (string, error) {
	patterns, _ := json.Marshal(d.PatternsMatched)
	createdAt := d.CreatedAt.UTC().Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO safety_decisions (`+decisionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Query, d.QueryHash, string(d.Verdict), d.Confidence, string(patterns),
		d.TotalPatternsChecked, d.FalsePositiveFlagged, d.ReviewedByHuman, string(d.ReviewOutcome),
		d.UserID, d.SessionID, createdAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert safety decision: %w", err)
	}
	return d.ID, nil
}

func (s *SQLiteSafetyLog) DecisionByID(ctx context.Context, id string) (*safety.Decision, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+decisionColumns+` FROM safety_decisions WHERE id = ?`, id)
	d, err := scanDecision(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return d, err
}

func (s *SQLiteSafetyLog) DecisionsPendingReview(ctx context.Context, limit int) ([]*safety.Decision, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+decisionColumns+` FROM safety_decisions
		 WHERE reviewed_by_human = 0 ORDER BY created_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending decisions: %w", err)
	}
	return collectDecisions(rows)
}

func (s *SQLiteSafetyLog) RecordReview(ctx context.Context, id string, outcome safety.ReviewOutcome) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE safety_decisions
		 SET reviewed_by_human = 1,
		     review_outcome = ?,
		     false_positive_flagged = (decision = 'blocked' AND ? = 'incorrect')
		 WHERE id = ?`,
		string(outcome), string(outcome), id)
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

func (s *SQLiteSafetyLog) ReviewedDecisions(ctx context.Context) ([]*safety.Decision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+decisionColumns+` FROM safety_decisions
		 WHERE reviewed_by_human = 1 ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviewed decisions: %w", err)
	}
	return collectDecisions(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDecision(row rowScanner) (*safety.Decision, error) {
	var d safety.Decision
	var verdict, outcome, patterns, createdAt string
	var userID, sessionID sql.NullString

	err := row.Scan(&d.ID, &d.Query, &d.QueryHash, &verdict, &d.Confidence, &patterns,
		&d.TotalPatternsChecked, &d.FalsePositiveFlagged, &d.ReviewedByHuman, &outcome,
		&userID, &sessionID, &createdAt)
	if err != nil {
		return nil, err
	}

	d.Verdict = safety.Verdict(verdict)
	d.ReviewOutcome = safety.ReviewOutcome(outcome)
	d.UserID = userID.String
	d.SessionID = sessionID.String
	if patterns != "" && patterns != "null" {
		if err := json.Unmarshal([]byte(patterns), &d.PatternsMatched); err != nil {
			return nil, fmt.Errorf("failed to decode matched patterns: %w", err)
		}
	}
	d.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse decision timestamp: %w", err)
	}
	return &d, nil
}

func collectDecisions(rows *sql.Rows) ([]*safety.Decision, error) {
	defer func() { _ = rows.Close() }()
	var out []*safety.Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
