package policy

import (
	"reflect"
	"testing"
	"time"

	"github.com/Mindburn-Labs/rudder/pkg/contracts"
)

func testClock() func() time.Time {
	return func() time.Time {
		return time.Date(2026, 8, 21, 12, 0, 0, 0, time.UTC)
	}
}

func evalRecord(decision contracts.Decision, confidence, complexityRisk, resourceCost float64) *contracts.EvaluationRecord {
	return &contracts.EvaluationRecord{
		EvalID:  "eval-1",
		TaskID:  "task-1",
		TraceID: "trace-1",
		EvaluationResult: contracts.EvaluationResult{
			FinalDecision:   decision,
			ConfidenceScore: confidence,
			Scoring: map[string]float64{
				contracts.ScoreFeasibility:    0.9,
				contracts.ScoreAlignment:      0.95,
				contracts.ScoreComplexityRisk: complexityRisk,
				contracts.ScoreResourceCost:   resourceCost,
			},
			EvaluationModel: "deterministic_v2",
		},
	}
}

func TestHardVetoOverridesEverything(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil).WithClock(testClock())

	// Perfect scores cannot rescue an engine rejection.
	d := e.Decide(evalRecord(contracts.DecisionReject, 1.0, 0.0, 0.0), nil)

	if d.PolicyMode != contracts.ModeReject {
		t.Fatalf("mode = %s, want REJECT", d.PolicyMode)
	}
	if len(d.PolicyReasoning) != 1 || d.PolicyReasoning[0] != "Evaluation engine rejected idea." {
		t.Fatalf("unexpected reasoning: %v", d.PolicyReasoning)
	}
}

func TestAutoExecuteThresholds(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil).WithClock(testClock())

	d := e.Decide(evalRecord(contracts.DecisionExecute, 0.90, 0.2, 0.1), nil)
	if d.PolicyMode != contracts.ModeAutoExecute {
		t.Fatalf("mode = %s, want AUTO_EXECUTE", d.PolicyMode)
	}
	if d.PolicyReasoning[len(d.PolicyReasoning)-1] != "Meets confidence and risk thresholds." {
		t.Fatalf("unexpected reasoning: %v", d.PolicyReasoning)
	}

	d = e.Decide(evalRecord(contracts.DecisionExecute, 0.70, 0.2, 0.1), nil)
	if d.PolicyMode != contracts.ModeRequireHITL {
		t.Fatalf("mode = %s, want REQUIRE_HITL", d.PolicyMode)
	}
	if d.PolicyReasoning[len(d.PolicyReasoning)-1] != "Does not meet auto execution thresholds." {
		t.Fatalf("unexpected reasoning: %v", d.PolicyReasoning)
	}
}

func TestRiskAndCostGates(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil).WithClock(testClock())

	cases := []struct {
		name           string
		complexityRisk float64
		resourceCost   float64
		want           contracts.PolicyMode
	}{
		{"both at limit", 0.4, 0.4, contracts.ModeAutoExecute},
		{"complexity above limit", 0.41, 0.1, contracts.ModeRequireHITL},
		{"cost above limit", 0.1, 0.41, contracts.ModeRequireHITL},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := e.Decide(evalRecord(contracts.DecisionExecute, 0.95, tc.complexityRisk, tc.resourceCost), nil)
			if d.PolicyMode != tc.want {
				t.Fatalf("mode = %s, want %s", d.PolicyMode, tc.want)
			}
		})
	}
}

func TestMissingBreakdownFailsTowardReview(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil).WithClock(testClock())

	rec := &contracts.EvaluationRecord{
		EvaluationResult: contracts.EvaluationResult{
			FinalDecision:   contracts.DecisionExecute,
			ConfidenceScore: 0.99,
		},
	}
	d := e.Decide(rec, nil)
	if d.PolicyMode != contracts.ModeRequireHITL {
		t.Fatalf("missing breakdown must default pessimistically, got %s", d.PolicyMode)
	}
}

func TestDecideIsRepeatable(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil).WithClock(testClock())
	rec := evalRecord(contracts.DecisionExecute, 0.9, 0.2, 0.1)

	first := e.Decide(rec, nil)
	second := e.Decide(rec, nil)

	if first.PolicyMode != second.PolicyMode {
		t.Fatalf("mode changed across identical inputs: %s vs %s", first.PolicyMode, second.PolicyMode)
	}
	if !reflect.DeepEqual(first.PolicyReasoning, second.PolicyReasoning) {
		t.Fatalf("reasoning changed across identical inputs: %v vs %v", first.PolicyReasoning, second.PolicyReasoning)
	}
}

func TestDecisionMetadata(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil).WithClock(testClock())
	rec := evalRecord(contracts.DecisionExecute, 0.9, 0.2, 0.1)

	d := e.Decide(rec, nil)
	if d.PolicyVersion != contracts.PolicyVersion {
		t.Fatalf("policy version = %q", d.PolicyVersion)
	}
	if !d.PolicyTimestamp.Equal(testClock()()) {
		t.Fatalf("timestamp not taken from clock: %v", d.PolicyTimestamp)
	}
	if d.EvaluationSnapshot != rec {
		t.Fatal("decision must carry the evaluation snapshot it was computed from")
	}
}
