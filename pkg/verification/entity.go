package verification

import (
	"fmt"

	"github.com/authentic-hadith/truthserum/pkg/canonicalize"
)

// Canonical is implemented by entities whose hash is restricted to their
// immutable canonical fields. Mutable metadata, timestamps, and derived
// fields stay out of the projection, so unrelated edits never spuriously
// break verification.
type Canonical interface {
	CanonicalFields() map[string]any
}

// EntityHash computes the content hash of an entity's canonical projection.
func EntityHash(e Canonical) (string, error) {
	h, err := canonicalize.ContentHash(e.CanonicalFields())
	if err != nil {
		return "", fmt.Errorf("verification: hash entity: %w", err)
	}
	return h, nil
}

// NewEntityVerification hashes the entity's canonical fields and wraps the
// result in a fresh primitive. Used at import time.
func (s *Signer) NewEntityVerification(e Canonical, sourceID, sourceHash string, method Method) (Primitive, error) {
	contentHash, err := EntityHash(e)
	if err != nil {
		return Primitive{}, err
	}
	return s.NewPrimitive(contentHash, sourceID, sourceHash, method), nil
}

// VerifyEntity checks an entity's canonical projection against its attached
// primitive.
func (s *Signer) VerifyEntity(e Canonical, p Primitive) CheckResult {
	return s.VerifyPrimitive(e.CanonicalFields(), p)
}
