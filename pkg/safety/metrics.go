package safety

// Effectiveness summarizes classifier precision and recall computed from
// human-reviewed decisions.
type Effectiveness struct {
	Precision     float64 `json:"precision"`
	Recall        float64 `json:"recall"`
	F1Score       float64 `json:"f1_score"`
	TotalReviewed int     `json:"total_reviewed"`
}

// CalculateEffectiveness derives precision, recall, and F1 from reviewed
// decisions. Unreviewed decisions are ignored. A blocked decision reviewed
// as correct is a true positive; blocked-but-incorrect is a false positive;
// allowed-but-incorrect is a false negative (a query that should have been
// blocked).
func CalculateEffectiveness(decisions []*Decision) Effectiveness {
	var truePositives, falsePositives, falseNegatives, reviewed int

	for _, d := range decisions {
		if d == nil || !d.ReviewedByHuman {
			continue
		}
		reviewed++
		switch {
		case d.Verdict == VerdictBlocked && d.ReviewOutcome == ReviewOutcomeCorrect:
			truePositives++
		case d.Verdict == VerdictBlocked && d.ReviewOutcome == ReviewOutcomeIncorrect:
			falsePositives++
		case d.Verdict == VerdictAllowed && d.ReviewOutcome == ReviewOutcomeIncorrect:
			falseNegatives++
		}
	}

	var eff Effectiveness
	eff.TotalReviewed = reviewed

	if truePositives+falsePositives > 0 {
		eff.Precision = float64(truePositives) / float64(truePositives+falsePositives)
	}
	if truePositives+falseNegatives > 0 {
		eff.Recall = float64(truePositives) / float64(truePositives+falseNegatives)
	}
	if eff.Precision+eff.Recall > 0 {
		eff.F1Score = 2 * eff.Precision * eff.Recall / (eff.Precision + eff.Recall)
	}
	return eff
}
