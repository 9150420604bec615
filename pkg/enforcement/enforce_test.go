package enforcement

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authentic-hadith/truthserum/pkg/contracts"
	"github.com/authentic-hadith/truthserum/pkg/verification"
)

func newTestEnforcer(t *testing.T) (*Enforcer, *verification.Signer) {
	t.Helper()
	signer := verification.NewSigner("test-secret")
	return NewEnforcer(signer, nil), signer
}

func verifiedHadith(t *testing.T, signer *verification.Signer, id string, number int) *contracts.Hadith {
	t.Helper()
	h := &contracts.Hadith{
		ID:            id,
		Collection:    "Sahih Bukhari",
		HadithNumber:  number,
		ArabicText:    "إنما الأعمال بالنيات",
		Translation:   "Actions are judged by intentions",
		NarratorChain: "Umar ibn al-Khattab",
		Grade:         "sahih",
	}
	prim, err := signer.NewEntityVerification(h, "src-bukhari", "source-hash-1", verification.MethodSourceImport)
	require.NoError(t, err)
	h.Verification = prim
	return h
}

func TestEnforceHadithVerification_Valid(t *testing.T) {
	enf, signer := newTestEnforcer(t)
	h := verifiedHadith(t, signer, "h1", 1)

	got, err := enf.EnforceHadithVerification(h)
	require.NoError(t, err)
	assert.Same(t, h, got)
}

func TestEnforceHadithVerification_MetadataEditsDoNotBreak(t *testing.T) {
	enf, signer := newTestEnforcer(t)
	h := verifiedHadith(t, signer, "h1", 1)

	h.Translation = "A revised translation"
	h.Grade = "hasan"
	h.Topics = []string{"intention"}

	_, err := enf.EnforceHadithVerification(h)
	require.NoError(t, err)
}

func TestEnforceHadithVerification_CanonicalMutation(t *testing.T) {
	enf, signer := newTestEnforcer(t)
	h := verifiedHadith(t, signer, "h1", 1)

	h.ArabicText = "tampered text"

	_, err := enf.EnforceHadithVerification(h)
	require.ErrorIs(t, err, ErrIntegrityViolation)
}

func TestEnforceHadithVerification_MissingPrimitive(t *testing.T) {
	enf, _ := newTestEnforcer(t)
	h := &contracts.Hadith{ID: "h1", Collection: "Sahih Muslim", HadithNumber: 7, ArabicText: "x", NarratorChain: "y"}

	_, err := enf.EnforceHadithVerification(h)
	require.ErrorIs(t, err, ErrUnverifiedContent)
}

func TestEnforceHadithVerification_TamperedSignature(t *testing.T) {
	enf, signer := newTestEnforcer(t)
	h := verifiedHadith(t, signer, "h1", 1)
	h.Verification.Signature = "deadbeef" + h.Verification.Signature[8:]

	_, err := enf.EnforceHadithVerification(h)
	require.ErrorIs(t, err, ErrUnverifiedContent)
}

func TestEnforceHadithVerification_Nil(t *testing.T) {
	enf, _ := newTestEnforcer(t)
	_, err := enf.EnforceHadithVerification(nil)
	require.ErrorIs(t, err, ErrValidation)
}

func TestEnforceHadithBatch_PartialFailure(t *testing.T) {
	enf, signer := newTestEnforcer(t)

	batch := make([]*contracts.Hadith, 5)
	for i := range batch {
		batch[i] = verifiedHadith(t, signer, fmt.Sprintf("h%d", i), 100+i)
	}
	batch[2].ArabicText = "corrupted"

	result := enf.EnforceHadithBatch(batch)

	require.Len(t, result.Verified, 4)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, 2, result.Failures[0].Index)
	assert.Contains(t, result.Failures[0].Error, "integrity violation")

	// Survivors keep input order.
	assert.Equal(t, "h0", result.Verified[0].ID)
	assert.Equal(t, "h1", result.Verified[1].ID)
	assert.Equal(t, "h3", result.Verified[2].ID)
	assert.Equal(t, "h4", result.Verified[3].ID)
}

func TestEnforceHadithBatch_Empty(t *testing.T) {
	enf, _ := newTestEnforcer(t)
	result := enf.EnforceHadithBatch(nil)
	assert.Empty(t, result.Verified)
	assert.Empty(t, result.Failures)
}
