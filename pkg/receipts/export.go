package receipts

import (
	"encoding/json"
	"fmt"
)

// Export serializes a receipt for handing to a caller as proof metadata.
func Export(r *ProofReceipt) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("receipts: export nil receipt")
	}
	raw, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("receipts: export receipt %s: %w", r.ReceiptID, err)
	}
	return raw, nil
}

// Parse decodes an exported receipt and checks its structural shape. The
// signature is NOT verified here; parse, then hand to
// VerifyReceiptSignature.
func Parse(raw []byte) (*ProofReceipt, error) {
	var r ProofReceipt
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("receipts: parse receipt: %w", err)
	}
	if r.ReceiptID == "" {
		return nil, fmt.Errorf("receipts: parsed receipt has no id")
	}
	if !r.Operation.Valid() {
		return nil, fmt.Errorf("receipts: parsed receipt has unknown operation %q", r.Operation)
	}
	if r.Timestamp == "" || r.Attestation.Signature == "" {
		return nil, fmt.Errorf("receipts: parsed receipt %s is incomplete", r.ReceiptID)
	}
	return &r, nil
}
