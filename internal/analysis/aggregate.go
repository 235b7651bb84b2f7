package analysis

import (
	"math"

	"contract-backend/internal/documents"
)

// Severity weights used when an assessment carries no numeric sub-scores.
const (
	weightHigh   = 0.90
	weightMedium = 0.55
	weightLow    = 0.25
)

// Distribution counts assessments per recognized severity. Unknown
// severities are excluded here but still count toward total clauses.
type Distribution struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

// Summary is the aggregated risk of a document.
type Summary struct {
	OverallScore float64      `json:"overallScore"`
	Distribution Distribution `json:"distribution"`
}

// Aggregate combines per-assessment weights into a 0-100 score using a
// noisy-or: 100 * (1 - Π(1 - w)). Adding an assessment never lowers the
// score, and no single assessment can push it past 100. Empty input is 0.
func Aggregate(assessments []documents.RiskAssessment) Summary {
	survival := 1.0
	var dist Distribution

	for _, a := range assessments {
		survival *= 1 - assessmentWeight(a)

		switch documents.ParseSeverity(a.Severity) {
		case documents.SeverityLow:
			dist.Low++
		case documents.SeverityMedium:
			dist.Medium++
		case documents.SeverityHigh:
			dist.High++
		}
	}

	score := 100 * (1 - survival)
	// one decimal place is plenty for a display score
	score = math.Round(score*10) / 10

	return Summary{
		OverallScore: score,
		Distribution: dist,
	}
}

// assessmentWeight prefers numeric sub-scores over the severity label:
// overall/10 first, then impact*likelihood/100, then the severity weight.
// Unknown severities weigh as low rather than being skipped.
func assessmentWeight(a documents.RiskAssessment) float64 {
	if a.OverallScore != nil {
		return clampWeight(*a.OverallScore / 10)
	}
	if a.ImpactScore != nil && a.LikelihoodScore != nil {
		return clampWeight(*a.ImpactScore * *a.LikelihoodScore / 100)
	}
	switch documents.ParseSeverity(a.Severity) {
	case documents.SeverityHigh:
		return weightHigh
	case documents.SeverityMedium:
		return weightMedium
	default:
		return weightLow
	}
}

func clampWeight(w float64) float64 {
	if math.IsNaN(w) || w < 0 {
		return 0
	}
	if w > 1 {
		return 1
	}
	return w
}
