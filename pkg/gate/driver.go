// Package gate is the single enforcement point between an approval
// decision and a side effect: nothing executes without a traceable,
// explicit APPROVE on file, and nothing executes twice.
package gate

import (
	"context"

	"github.com/Mindburn-Labs/rudder/pkg/contracts"
)

// Driver performs the approved action and returns a human-readable
// note for the execution record. A driver error means the action may
// not have happened; the caller must not acknowledge the task.
type Driver interface {
	Name() string
	Run(ctx context.Context, decision *contracts.ApprovalDecision) (string, error)
}

// SimDriver is the default driver: it "executes" by reporting success.
// Used for drills and local runs where the pipeline itself is the
// thing under test.
type SimDriver struct{}

func (SimDriver) Name() string { return "sim" }

func (SimDriver) Run(ctx context.Context, decision *contracts.ApprovalDecision) (string, error) {
	return "Simulated execution complete (HITL approved).", nil
}
