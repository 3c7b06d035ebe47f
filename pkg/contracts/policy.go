package contracts

import "time"

// PolicyVersion tags every policy decision with the rule generation
// that produced it.
const PolicyVersion = "v1_deterministic"

// PolicyDecision is the autonomy ruling derived from an evaluation.
// Recomputing it from the same evaluation must yield the same mode;
// only the timestamp varies.
type PolicyDecision struct {
	PolicyMode         PolicyMode        `json:"policy_mode"`
	PolicyTimestamp    time.Time         `json:"policy_timestamp"`
	PolicyReasoning    []string          `json:"policy_reasoning"`
	PolicyVersion      string            `json:"policy_version"`
	EvaluationSnapshot *EvaluationRecord `json:"evaluation_snapshot,omitempty"`
}
