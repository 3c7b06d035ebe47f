package contracts

import "time"

// EvaluationResult is the deterministic output of one scoring model run.
// Identical input always yields an identical result.
type EvaluationResult struct {
	FinalDecision   Decision           `json:"final_decision"`
	ConfidenceScore float64            `json:"confidence_score"`
	Scoring         map[string]float64 `json:"scoring"`
	EvaluationModel string             `json:"evaluation_model"`
}

// Scoring breakdown keys shared between the scoring and policy engines.
const (
	ScoreFeasibility     = "feasibility"
	ScoreAlignment       = "alignment"
	ScoreComplexityRisk  = "complexity_risk"
	ScoreResourceCost    = "resource_cost"
	ScoreBaseConfidence  = "base_confidence"
	ScoreSeverityBonus   = "severity_bonus"
	ScoreOperationalRisk = "operational_risk"
)

// EvaluationRecord is the persisted form of an evaluation, written once
// per task and never rewritten. Fingerprint is propagated from the idea
// so the suppression index can treat recent evaluations as "pending".
type EvaluationRecord struct {
	EvalID      string    `json:"eval_id"`
	TaskID      string    `json:"task_id"`
	TraceID     string    `json:"trace_id"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	EvaluatedAt time.Time `json:"evaluated_at"`
	EvaluatedBy string    `json:"evaluated_by"`

	EvaluationResult

	SchemaVersion string `json:"schema_version,omitempty"`
}
