// Package policy is the deterministic gate between evaluation and
// execution. It decides how much autonomy a task gets and leaves an
// auditable reasoning trail for every branch taken.
package policy

import (
	"time"

	"github.com/Mindburn-Labs/rudder/pkg/contracts"
)

// Default thresholds for auto-execution eligibility.
const (
	DefaultAutoExecuteThreshold = 0.85
	DefaultMaxComplexityRisk    = 0.4
	DefaultMaxResourceCost      = 0.4
)

// Config carries the static thresholds. They are configuration, not
// derived state: the engine never adapts them.
type Config struct {
	AutoExecuteThreshold float64
	MaxComplexityRisk    float64
	MaxResourceCost      float64
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		AutoExecuteThreshold: DefaultAutoExecuteThreshold,
		MaxComplexityRisk:    DefaultMaxComplexityRisk,
		MaxResourceCost:      DefaultMaxResourceCost,
	}
}

// Engine derives policy decisions from evaluation records. Decisions
// are repeatable: identical evaluations always produce the same mode
// and reasoning; only the timestamp varies.
type Engine struct {
	cfg   Config
	rules *RuleSet
	clock func() time.Time
}

// NewEngine builds an engine. rules may be nil when no rule file is
// configured.
func NewEngine(cfg Config, rules *RuleSet) *Engine {
	return &Engine{cfg: cfg, rules: rules, clock: time.Now}
}

// WithClock overrides the timestamp source for tests.
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	e.clock = clock
	return e
}

// Decide maps an evaluation to an autonomy mode. An engine REJECT is a
// hard veto no threshold combination can override. Rules from the rule
// file can only demote a would-be AUTO_EXECUTE to REQUIRE_HITL, never
// upgrade autonomy.
func (e *Engine) Decide(eval *contracts.EvaluationRecord, env *contracts.TaskEnvelope) *contracts.PolicyDecision {
	var reasoning []string

	if eval.FinalDecision == contracts.DecisionReject {
		reasoning = append(reasoning, "Evaluation engine rejected idea.")
		return e.result(contracts.ModeReject, reasoning, eval)
	}

	confidence := eval.ConfidenceScore
	// Missing dimensions default pessimistically so an incomplete
	// breakdown fails toward human review.
	complexityRisk := breakdownOr(eval.Scoring, contracts.ScoreComplexityRisk, 1.0)
	resourceCost := breakdownOr(eval.Scoring, contracts.ScoreResourceCost, 1.0)

	mode := contracts.ModeRequireHITL
	if confidence >= e.cfg.AutoExecuteThreshold &&
		complexityRisk <= e.cfg.MaxComplexityRisk &&
		resourceCost <= e.cfg.MaxResourceCost {
		mode = contracts.ModeAutoExecute
		reasoning = append(reasoning, "Meets confidence and risk thresholds.")
	} else {
		reasoning = append(reasoning, "Does not meet auto execution thresholds.")
	}

	if mode == contracts.ModeAutoExecute && e.rules != nil {
		if hits := e.rules.Demotions(e.ruleVars(eval, env)); len(hits) > 0 {
			mode = contracts.ModeRequireHITL
			reasoning = append(reasoning, hits...)
		}
	}

	return e.result(mode, reasoning, eval)
}

func (e *Engine) result(mode contracts.PolicyMode, reasoning []string, eval *contracts.EvaluationRecord) *contracts.PolicyDecision {
	return &contracts.PolicyDecision{
		PolicyMode:         mode,
		PolicyTimestamp:    e.clock().UTC(),
		PolicyReasoning:    reasoning,
		PolicyVersion:      contracts.PolicyVersion,
		EvaluationSnapshot: eval,
	}
}

func (e *Engine) ruleVars(eval *contracts.EvaluationRecord, env *contracts.TaskEnvelope) map[string]any {
	severity := ""
	taskType := ""
	if env != nil {
		severity = env.Payload.SeverityTier()
		taskType = env.TaskType
	}
	return map[string]any{
		"confidence":      eval.ConfidenceScore,
		"complexity_risk": breakdownOr(eval.Scoring, contracts.ScoreComplexityRisk, 1.0),
		"resource_cost":   breakdownOr(eval.Scoring, contracts.ScoreResourceCost, 1.0),
		"feasibility":     breakdownOr(eval.Scoring, contracts.ScoreFeasibility, 0.0),
		"alignment":       breakdownOr(eval.Scoring, contracts.ScoreAlignment, 0.0),
		"severity":        severity,
		"task_type":       taskType,
	}
}

func breakdownOr(scoring map[string]float64, key string, fallback float64) float64 {
	if v, ok := scoring[key]; ok {
		return v
	}
	return fallback
}
