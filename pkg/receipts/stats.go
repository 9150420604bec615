package receipts

// VerificationStats rolls up a set of receipts into aggregate counts and an
// average confidence tier.
type VerificationStats struct {
	Operations        int             `json:"operations"`
	TotalEntities     int             `json:"total_entities"`
	TotalVerified     int             `json:"total_verified"`
	TotalUnverified   int             `json:"total_unverified"`
	AverageConfidence ConfidenceLevel `json:"average_confidence"`
}

// Tier scores used for averaging. The re-bucket thresholds sit halfway
// between adjacent scores.
var confidenceScore = map[ConfidenceLevel]float64{
	ConfidenceVerified:   4,
	ConfidenceHigh:       3,
	ConfidenceMedium:     2,
	ConfidenceLow:        1,
	ConfidenceUnverified: 0,
}

// CalculateVerificationStats aggregates receipts. The average confidence is
// the mean tier score re-bucketed into the nearest tier.
func CalculateVerificationStats(rs []*ProofReceipt) VerificationStats {
	stats := VerificationStats{AverageConfidence: ConfidenceUnverified}
	if len(rs) == 0 {
		return stats
	}

	var scoreSum float64
	for _, r := range rs {
		stats.Operations++
		stats.TotalEntities += r.Outputs.Count
		stats.TotalVerified += r.Verification.VerifiedCount
		stats.TotalUnverified += r.Verification.UnverifiedCount
		scoreSum += confidenceScore[r.Attestation.Confidence]
	}

	avg := scoreSum / float64(stats.Operations)
	switch {
	case avg >= 3.5:
		stats.AverageConfidence = ConfidenceVerified
	case avg >= 2.5:
		stats.AverageConfidence = ConfidenceHigh
	case avg >= 1.5:
		stats.AverageConfidence = ConfidenceMedium
	case avg > 0:
		stats.AverageConfidence = ConfidenceLow
	}
	return stats
}
