package scoring

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Mindburn-Labs/rudder/pkg/contracts"
)

// Ops-model thresholds and weights.
const (
	opsExecuteThreshold = 0.50
	opsRiskWeight       = 0.30
)

// severityBonus maps a severity tier to its score bonus. Unknown or
// missing tiers get the lowest bonus.
func severityBonus(tier string) float64 {
	switch tier {
	case "high":
		return 0.40
	case "medium":
		return 0.20
	default:
		return 0.05
	}
}

// ScoringInputError reports an ops-model numeric field that could not
// be used. Silently defaulting here would mask upstream data-quality
// bugs, so the error carries the offending field and raw value.
type ScoringInputError struct {
	Field string
	Value any
}

func (e *ScoringInputError) Error() string {
	return fmt.Sprintf("scoring input %s: unusable value %v (%T)", e.Field, e.Value, e.Value)
}

func evaluateOps(idea contracts.Idea) (*contracts.EvaluationResult, error) {
	confidence, err := numericField("confidence", idea.Confidence)
	if err != nil {
		return nil, err
	}
	risk, err := numericField("operational_risk", idea.OperationalRisk)
	if err != nil {
		return nil, err
	}

	bonus := severityBonus(idea.SeverityTier())
	score := clamp01(confidence + bonus - opsRiskWeight*risk)

	decision := contracts.DecisionReject
	if score >= opsExecuteThreshold {
		decision = contracts.DecisionExecute
	}

	return &contracts.EvaluationResult{
		FinalDecision:   decision,
		ConfidenceScore: round3(score),
		Scoring: map[string]float64{
			contracts.ScoreBaseConfidence:  confidence,
			contracts.ScoreSeverityBonus:   bonus,
			contracts.ScoreOperationalRisk: risk,
		},
		EvaluationModel: ModelOps,
	}, nil
}

// numericField coerces the externally supplied value to a float64.
// JSON numbers arrive as float64 or json.Number depending on the
// decoder; numeric strings are accepted because upstream producers
// serialize them that way. Anything else, including a missing value,
// fails loudly.
func numericField(name string, v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, &ScoringInputError{Field: name, Value: v}
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, &ScoringInputError{Field: name, Value: v}
		}
		return f, nil
	default:
		return 0, &ScoringInputError{Field: name, Value: v}
	}
}
