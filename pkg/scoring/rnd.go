package scoring

import (
	"strings"

	"github.com/Mindburn-Labs/rudder/pkg/contracts"
)

// Research-model thresholds and weights.
const (
	rndExecuteThreshold = 0.60

	weightFeasibility = 0.35
	weightAlignment   = 0.35
	weightComplexity  = 0.15
	weightCost        = 0.15

	priorityHighBonus  = 0.10
	priorityLowPenalty = 0.05
)

// Keyword heuristics over the normalized idea text. Matching is plain
// substring containment.
var (
	feasibilityTerms = []string{"sqs", "lambda", "api", "queue"}
	alignmentTerms   = []string{"agent", "distributed", "orchestration"}
	complexityTerms  = []string{"ai", "ml", "blockchain", "crypto"}
)

func evaluateRND(idea contracts.Idea) *contracts.EvaluationResult {
	text := strings.ToLower(idea.Description)

	feasibility := pick(text, feasibilityTerms, 0.9, 0.6)
	alignment := pick(text, alignmentTerms, 0.95, 0.7)
	complexityRisk := pick(text, complexityTerms, 0.7, 0.3)
	resourceCost := 0.3
	if strings.Contains(text, "distributed") {
		resourceCost = 0.6
	}

	weighted := feasibility*weightFeasibility +
		alignment*weightAlignment -
		complexityRisk*weightComplexity -
		resourceCost*weightCost

	switch idea.PriorityTier() {
	case "high":
		weighted += priorityHighBonus
	case "low":
		weighted -= priorityLowPenalty
	}

	weighted = clamp01(weighted)

	decision := contracts.DecisionReject
	if weighted >= rndExecuteThreshold {
		decision = contracts.DecisionExecute
	}

	return &contracts.EvaluationResult{
		FinalDecision:   decision,
		ConfidenceScore: round3(weighted),
		Scoring: map[string]float64{
			contracts.ScoreFeasibility:    feasibility,
			contracts.ScoreAlignment:      alignment,
			contracts.ScoreComplexityRisk: complexityRisk,
			contracts.ScoreResourceCost:   resourceCost,
		},
		EvaluationModel: ModelRND,
	}
}

func pick(text string, terms []string, hit, miss float64) float64 {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return hit
		}
	}
	return miss
}
