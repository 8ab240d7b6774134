package intel

import "math"

// Score combines both records into a threat score in [0, 100].
// Engine votes contribute up to 50 points, abuse confidence up to 50.
func Score(vt MalwareRecord, abuse AbuseRecord) float64 {
	score := 0.0
	if total := vt.TotalEngines(); total > 0 {
		score += ((float64(vt.Malicious)*1.0 + float64(vt.Suspicious)*0.5) / float64(total)) * 50
	}
	score += float64(abuse.AbuseConfidenceScore) * 0.5
	return math.Max(0, math.Min(score, 100))
}

// VerdictFor maps a score onto a verdict.
func VerdictFor(score float64) Verdict {
	switch {
	case score >= 75:
		return Critical
	case score >= 50:
		return High
	case score >= 25:
		return Medium
	case score >= 10:
		return Low
	default:
		return Clean
	}
}
