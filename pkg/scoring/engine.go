// Package scoring implements the deterministic evaluation models. Both
// models are pure functions of the task payload: no clock, no I/O, no
// randomness, so identical input always produces an identical result.
package scoring

import (
	"fmt"
	"math"

	"github.com/Mindburn-Labs/rudder/pkg/contracts"
)

// Model tags recorded on every evaluation result.
const (
	ModelRND = "deterministic_v2"
	ModelOps = "ops_heuristic_v1"
)

// Mode override values accepted from configuration.
const (
	ModeAuto = ""
	ModeRND  = "rnd"
	ModeOps  = "ops"
)

// ErrUnknownMode rejects scoring-mode overrides outside the closed set.
var ErrUnknownMode = fmt.Errorf("unknown scoring mode override")

// Config selects how the engine routes payloads to models.
type Config struct {
	// ModeOverride forces every task through one model. Empty routes by
	// task type: LOG_SUGGESTION to the ops model, everything else to
	// the research model.
	ModeOverride string
}

// Engine scores task envelopes.
type Engine struct {
	override string
}

// New validates the override up front so a typo in configuration fails
// at startup, not per message.
func New(cfg Config) (*Engine, error) {
	switch cfg.ModeOverride {
	case ModeAuto, ModeRND, ModeOps:
		return &Engine{override: cfg.ModeOverride}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMode, cfg.ModeOverride)
}

// Evaluate runs the selected model over the envelope payload.
func (e *Engine) Evaluate(env *contracts.TaskEnvelope) (*contracts.EvaluationResult, error) {
	switch e.modelFor(env.TaskType) {
	case ModelOps:
		return evaluateOps(env.Payload)
	default:
		return evaluateRND(env.Payload), nil
	}
}

func (e *Engine) modelFor(taskType string) string {
	switch e.override {
	case ModeRND:
		return ModelRND
	case ModeOps:
		return ModelOps
	}
	if taskType == contracts.TaskTypeLogSuggestion {
		return ModelOps
	}
	return ModelRND
}

func clamp01(v float64) float64 {
	return math.Max(0.0, math.Min(1.0, v))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
