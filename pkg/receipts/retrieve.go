package receipts

import (
	"context"
	"errors"
	"fmt"
)

// AuditLogStore is the injected persistence boundary for receipts. The
// package performs no I/O of its own; implementations live in pkg/store
// and in test fakes.
type AuditLogStore interface {
	// AppendReceipt persists a receipt and returns its log id. The log is
	// append-only; implementations never update or delete entries.
	AppendReceipt(ctx context.Context, r *ProofReceipt) (id string, err error)
	// ReceiptByID returns ErrReceiptNotFound for an unknown id.
	ReceiptByID(ctx context.Context, id string) (*ProofReceipt, error)
	ReceiptsByOperation(ctx context.Context, op OperationType) ([]*ProofReceipt, error)
	ReceiptsForEntity(ctx context.Context, entityID string) ([]*ProofReceipt, error)
}

// RetrieveAndVerifyReceipt fetches a receipt and checks its signature. A
// missing entry and an invalid signature both surface as
// ErrTamperedReceipt; store transport failures propagate unchanged.
func (s *Service) RetrieveAndVerifyReceipt(ctx context.Context, store AuditLogStore, id string) (*ProofReceipt, error) {
	r, err := store.ReceiptByID(ctx, id)
	if errors.Is(err, ErrReceiptNotFound) {
		return nil, fmt.Errorf("%w: receipt %s", ErrTamperedReceipt, id)
	}
	if err != nil {
		return nil, fmt.Errorf("receipts: fetch receipt %s: %w", id, err)
	}
	if !s.VerifyReceiptSignature(r) {
		return nil, fmt.Errorf("%w: receipt %s", ErrTamperedReceipt, id)
	}
	return r, nil
}

// ReceiptsByOperation returns the operation's receipts with every signature
// re-verified. Receipts that fail verification are dropped, not returned:
// a compromised store must not be able to serve altered history.
func (s *Service) ReceiptsByOperation(ctx context.Context, store AuditLogStore, op OperationType) ([]*ProofReceipt, error) {
	rs, err := store.ReceiptsByOperation(ctx, op)
	if err != nil {
		return nil, fmt.Errorf("receipts: list by operation %s: %w", op, err)
	}
	return s.keepVerified(rs), nil
}

// ReceiptsForEntity returns every verified receipt whose outputs reference
// the entity.
func (s *Service) ReceiptsForEntity(ctx context.Context, store AuditLogStore, entityID string) ([]*ProofReceipt, error) {
	rs, err := store.ReceiptsForEntity(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("receipts: list for entity %s: %w", entityID, err)
	}
	return s.keepVerified(rs), nil
}

func (s *Service) keepVerified(rs []*ProofReceipt) []*ProofReceipt {
	out := make([]*ProofReceipt, 0, len(rs))
	for _, r := range rs {
		if s.VerifyReceiptSignature(r) {
			out = append(out, r)
		}
	}
	return out
}
