package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/authentic-hadith/truthserum/pkg/receipts"
	"github.com/authentic-hadith/truthserum/pkg/safety"
)

// MemoryAuditLog is an in-memory receipts.AuditLogStore. Safe for
// concurrent use.
type MemoryAuditLog struct {
	mu    sync.RWMutex
	byID  map[string]*receipts.ProofReceipt
	order []string
}

func NewMemoryAuditLog() *MemoryAuditLog {
	return &MemoryAuditLog{byID: map[string]*receipts.ProofReceipt{}}
}

func (m *MemoryAuditLog) AppendReceipt(_ context.Context, r *receipts.ProofReceipt) (string, error) {
	if r == nil || r.ReceiptID == "" {
		return "", fmt.Errorf("store: receipt without id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byID[r.ReceiptID]; exists {
		return "", fmt.Errorf("store: receipt %s already appended", r.ReceiptID)
	}
	cp := *r
	m.byID[r.ReceiptID] = &cp
	m.order = append(m.order, r.ReceiptID)
	return r.ReceiptID, nil
}

func (m *MemoryAuditLog) ReceiptByID(_ context.Context, id string) (*receipts.ProofReceipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.byID[id]
	if !ok {
		return nil, receipts.ErrReceiptNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *MemoryAuditLog) ReceiptsByOperation(_ context.Context, op receipts.OperationType) ([]*receipts.ProofReceipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*receipts.ProofReceipt
	for _, id := range m.order {
		if r := m.byID[id]; r.Operation == op {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryAuditLog) ReceiptsForEntity(_ context.Context, entityID string) ([]*receipts.ProofReceipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*receipts.ProofReceipt
	for _, id := range m.order {
		r := m.byID[id]
		for _, e := range r.Outputs.EntityIDs {
			if e == entityID {
				cp := *r
				out = append(out, &cp)
				break
			}
		}
	}
	return out, nil
}

// AuditStats summarizes the log contents.
func (m *MemoryAuditLog) AuditStats(_ context.Context) (AuditStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := AuditStats{ByOperation: map[receipts.OperationType]int{}}
	for _, id := range m.order {
		r := m.byID[id]
		stats.TotalReceipts++
		stats.ByOperation[r.Operation]++
		if stats.OldestTimestamp == "" || r.Timestamp < stats.OldestTimestamp {
			stats.OldestTimestamp = r.Timestamp
		}
		if r.Timestamp > stats.NewestTimestamp {
			stats.NewestTimestamp = r.Timestamp
		}
	}
	return stats, nil
}

// MemorySafetyLog is an in-memory SafetyDecisionStore.
type MemorySafetyLog struct {
	mu    sync.RWMutex
	byID  map[string]*safety.Decision
	order []string
}

func NewMemorySafetyLog() *MemorySafetyLog {
	return &MemorySafetyLog{byID: map[string]*safety.Decision{}}
}

func (m *MemorySafetyLog) StoreDecision(_ context.Context, d *safety.Decision) (string, error) {
	if d == nil || d.ID == "" {
		return "", fmt.Errorf("store: decision without id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	if _, exists := m.byID[d.ID]; !exists {
		m.order = append(m.order, d.ID)
	}
	m.byID[d.ID] = &cp
	return d.ID, nil
}

func (m *MemorySafetyLog) DecisionByID(_ context.Context, id string) (*safety.Decision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *MemorySafetyLog) DecisionsPendingReview(_ context.Context, limit int) ([]*safety.Decision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*safety.Decision
	for _, id := range m.order {
		if limit > 0 && len(out) >= limit {
			break
		}
		if d := m.byID[id]; !d.ReviewedByHuman {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemorySafetyLog) RecordReview(_ context.Context, id string, outcome safety.ReviewOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	d.ReviewedByHuman = true
	d.ReviewOutcome = outcome
	d.FalsePositiveFlagged = d.Verdict == safety.VerdictBlocked && outcome == safety.ReviewOutcomeIncorrect
	return nil
}

func (m *MemorySafetyLog) ReviewedDecisions(_ context.Context) ([]*safety.Decision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*safety.Decision
	for _, id := range m.order {
		if d := m.byID[id]; d.ReviewedByHuman {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}
