package verification

import (
	"fmt"
	"time"

	"github.com/authentic-hadith/truthserum/pkg/canonicalize"
)

// Method describes how a piece of content was verified. The set is closed.
type Method string

const (
	MethodSourceImport    Method = "source_import"
	MethodScholarReviewed Method = "scholar_reviewed"
	MethodCrossReferenced Method = "cross_referenced"
	MethodSystemGenerated Method = "system_generated"
	MethodUserContributed Method = "user_contributed"
)

// Valid reports whether m is a recognized verification method.
func (m Method) Valid() bool {
	switch m {
	case MethodSourceImport, MethodScholarReviewed, MethodCrossReferenced,
		MethodSystemGenerated, MethodUserContributed:
		return true
	}
	return false
}

// Primitive is the verification bundle attached to a content entity. It is
// never mutated in place: content changes produce a new version chained to
// the prior one through PreviousHash.
type Primitive struct {
	ContentHash    string `json:"content_hash"`
	ContentVersion int    `json:"content_version"`
	// SourceID and SourceHash point at the originating record, establishing
	// provenance. PreviousHash is a weak back-reference (a lookup key into
	// version history), never an owning pointer.
	SourceID     string `json:"source_id"`
	SourceHash   string `json:"source_hash"`
	SourcePage   int    `json:"source_page,omitempty"`
	Method       Method `json:"verification_method"`
	VerifiedAt   string `json:"verified_at"`
	VerifiedBy   string `json:"verified_by"`
	Signature    string `json:"verification_signature"`
	PreviousHash string `json:"previous_hash,omitempty"`
}

// CheckResult accumulates every integrity violation found, so a caller sees
// all of them at once rather than the first.
type CheckResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
	// HashMismatch distinguishes corrupted content from a bad signature or
	// unknown method, so enforcement can classify the failure.
	HashMismatch bool `json:"hash_mismatch,omitempty"`
}

// NewPrimitive builds a fresh version-1 verification primitive with a valid
// signature over its own fields.
func (s *Signer) NewPrimitive(contentHash, sourceID, sourceHash string, method Method) Primitive {
	verifiedAt := time.Now().UTC().Format(time.RFC3339Nano)
	return Primitive{
		ContentHash:    contentHash,
		ContentVersion: 1,
		SourceID:       sourceID,
		SourceHash:     sourceHash,
		Method:         method,
		VerifiedAt:     verifiedAt,
		VerifiedBy:     verifiedBy(method),
		Signature:      s.SignContent(contentHash, sourceHash, verifiedAt),
	}
}

// UpdatePrimitive produces the next version after a content change. The old
// primitive is left untouched; the new one increments ContentVersion and
// records old.ContentHash as PreviousHash, extending the per-entity hash
// chain.
func (s *Signer) UpdatePrimitive(old Primitive, newContentHash string, method Method) Primitive {
	verifiedAt := time.Now().UTC().Format(time.RFC3339Nano)
	return Primitive{
		ContentHash:    newContentHash,
		ContentVersion: old.ContentVersion + 1,
		SourceID:       old.SourceID,
		SourceHash:     old.SourceHash,
		SourcePage:     old.SourcePage,
		Method:         method,
		VerifiedAt:     verifiedAt,
		VerifiedBy:     verifiedBy(method),
		Signature:      s.SignContent(newContentHash, old.SourceHash, verifiedAt),
		PreviousHash:   old.ContentHash,
	}
}

// VerifyContentIntegrity reports whether content matches its claimed hash.
func VerifyContentIntegrity(content any, claimedHash string) (bool, error) {
	computed, err := canonicalize.ContentHash(content)
	if err != nil {
		return false, fmt.Errorf("verification: hash content: %w", err)
	}
	return computed == claimedHash, nil
}

// VerifyPrimitive runs the three independent integrity checks: recomputed
// content hash, signature, and method recognition. Failures accumulate into
// CheckResult.Errors rather than short-circuiting.
func (s *Signer) VerifyPrimitive(content any, p Primitive) CheckResult {
	var errs []string
	mismatch := false

	ok, err := VerifyContentIntegrity(content, p.ContentHash)
	if err != nil {
		errs = append(errs, fmt.Sprintf("content hash could not be computed: %v", err))
	} else if !ok {
		mismatch = true
		errs = append(errs, "content hash mismatch - content may be corrupted")
	}

	if !s.VerifyContentSignature(p.Signature, p.ContentHash, p.SourceHash, p.VerifiedAt) {
		errs = append(errs, "verification signature invalid - content may be tampered")
	}

	if !p.Method.Valid() {
		errs = append(errs, fmt.Sprintf("unknown verification method: %s", p.Method))
	}

	return CheckResult{Valid: len(errs) == 0, Errors: errs, HashMismatch: mismatch}
}

func verifiedBy(method Method) string {
	if method == MethodSystemGenerated {
		return "system"
	}
	return string(method) + ":manual"
}
