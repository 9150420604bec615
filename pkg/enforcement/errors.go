package enforcement

import "errors"

// Sentinel errors for the hard gates. Callers match them with errors.Is;
// wrapped errors carry the entity or citation detail.
var (
	// ErrUnverifiedContent is returned when content lacks a verification
	// primitive or its signature does not validate.
	ErrUnverifiedContent = errors.New("unverified content")

	// ErrIntegrityViolation is returned when content does not match the
	// hash recorded in its verification primitive.
	ErrIntegrityViolation = errors.New("integrity violation")

	// ErrNoCitation is returned when an AI explanation carries no
	// verifiable citation.
	ErrNoCitation = errors.New("no citation")

	// ErrValidation is returned when a value fails structural validation
	// before any verification check runs.
	ErrValidation = errors.New("validation failed")
)
