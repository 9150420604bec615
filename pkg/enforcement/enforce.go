// Package enforcement implements the hard gates between stored content and
// callers. Nothing is served unverified: every read path re-verifies the
// entity's canonical hash and signature, AI output must cite verified
// sources, and derived values carry freshness metadata.
package enforcement

import (
	"fmt"
	"log/slog"

	"github.com/authentic-hadith/truthserum/pkg/contracts"
	"github.com/authentic-hadith/truthserum/pkg/verification"
)

// Enforcer applies the verification gates using a shared signer.
type Enforcer struct {
	signer *verification.Signer
	logger *slog.Logger
}

// NewEnforcer builds an Enforcer. A nil logger falls back to slog.Default.
func NewEnforcer(signer *verification.Signer, logger *slog.Logger) *Enforcer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enforcer{signer: signer, logger: logger}
}

// EnforceHadithVerification re-verifies a hadith before it may be served.
// It returns the same hadith on success so read paths can gate inline.
// A zero-valued primitive fails as unverified, a hash mismatch as an
// integrity violation; both are terminal for the read.
func (e *Enforcer) EnforceHadithVerification(h *contracts.Hadith) (*contracts.Hadith, error) {
	if h == nil {
		return nil, fmt.Errorf("%w: nil hadith", ErrValidation)
	}
	if h.Verification.ContentHash == "" || h.Verification.Signature == "" {
		return nil, fmt.Errorf("%w: hadith %s has no verification primitive", ErrUnverifiedContent, h.ID)
	}

	check := e.signer.VerifyEntity(h, h.Verification)
	if check.Valid {
		return h, nil
	}

	e.logger.Warn("hadith failed verification",
		"hadith_id", h.ID,
		"collection", h.Collection,
		"errors", check.Errors,
	)
	if check.HashMismatch {
		return nil, fmt.Errorf("%w: hadith %s content does not match verified hash", ErrIntegrityViolation, h.ID)
	}
	return nil, fmt.Errorf("%w: hadith %s: %v", ErrUnverifiedContent, h.ID, check.Errors)
}

// BatchFailure records one failed element of a batch by position.
type BatchFailure struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// BatchResult partitions a batch into the elements that verified and the
// ones that did not. Order within Verified follows input order.
type BatchResult struct {
	Verified []*contracts.Hadith `json:"verified"`
	Failures []BatchFailure      `json:"failures"`
}

// EnforceHadithBatch verifies every element independently. One corrupted
// record never blocks its neighbours; the caller decides whether a partial
// result is acceptable.
func (e *Enforcer) EnforceHadithBatch(batch []*contracts.Hadith) BatchResult {
	result := BatchResult{
		Verified: make([]*contracts.Hadith, 0, len(batch)),
		Failures: []BatchFailure{},
	}
	for i, h := range batch {
		verified, err := e.EnforceHadithVerification(h)
		if err != nil {
			result.Failures = append(result.Failures, BatchFailure{Index: i, Error: err.Error()})
			continue
		}
		result.Verified = append(result.Verified, verified)
	}
	return result
}
