package validation

import (
	"math"

	domainval "github.com/payables-ai/invoice-triage/internal/domain/validation"
)

// Weighting of the two confidence signals. Extraction quality dominates:
// a clean validation pass over garbage data means nothing, but the rule
// pass-rate still carries independent signal.
const (
	extractionWeight = 0.7
	ruleWeight       = 0.3
)

// Score combines extraction confidence with the rule pass-rate into a
// single validation confidence in [0,1], rounded to 3 decimal places.
// Skipped rules do not count toward the pass-rate. With zero rules run
// the score is 0.0.
func Score(results []domainval.RuleExecutionResult, extractionConfidence float64) float64 {
	total := 0
	passed := 0
	for _, r := range results {
		if r.Skipped {
			continue
		}
		total++
		if r.Passed {
			passed++
		}
	}
	if total == 0 {
		return 0.0
	}

	overall := extractionConfidence
	if overall < 0 {
		overall = 0
	}
	if overall > 1 {
		overall = 1
	}

	score := extractionWeight*overall + ruleWeight*(float64(passed)/float64(total))
	return math.Round(score*1000) / 1000
}
