package contracts

import "fmt"

// Decision is the evaluation engine's verdict on a single idea.
type Decision string

const (
	DecisionExecute Decision = "EXECUTE"
	DecisionReject  Decision = "REJECT"
)

// ParseDecision rejects anything outside the closed set.
func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionExecute, DecisionReject:
		return Decision(s), nil
	}
	return "", fmt.Errorf("unknown evaluation decision %q", s)
}

// PolicyMode is the autonomy level the policy engine assigns to a task.
type PolicyMode string

const (
	ModeAutoExecute PolicyMode = "AUTO_EXECUTE"
	ModeRequireHITL PolicyMode = "REQUIRE_HITL"
	ModeReject      PolicyMode = "REJECT"
)

// ParsePolicyMode rejects anything outside the closed set.
func ParsePolicyMode(s string) (PolicyMode, error) {
	switch PolicyMode(s) {
	case ModeAutoExecute, ModeRequireHITL, ModeReject:
		return PolicyMode(s), nil
	}
	return "", fmt.Errorf("unknown policy mode %q", s)
}

// Verdict is an approval decision. The execution gate compares it with
// strict equality: anything that is not VerdictApprove, including an
// empty or unrecognized value, counts as "no approval".
type Verdict string

const (
	VerdictApprove Verdict = "APPROVE"
	VerdictReject  Verdict = "REJECT"
)

// ParseVerdict rejects anything outside the closed set.
func ParseVerdict(s string) (Verdict, error) {
	switch Verdict(s) {
	case VerdictApprove, VerdictReject:
		return Verdict(s), nil
	}
	return "", fmt.Errorf("unknown approval verdict %q", s)
}

// ExecutionStatus is the terminal state of an execution attempt.
type ExecutionStatus string

const (
	StatusCompleted ExecutionStatus = "COMPLETED"
	StatusBlocked   ExecutionStatus = "BLOCKED"
)

// ApprovalState tracks a task through the gating stage.
type ApprovalState string

const (
	StatePendingHITL ApprovalState = "PENDING_HITL"
	StateApproved    ApprovalState = "APPROVED"
	StateRejected    ApprovalState = "REJECTED"
	StateExecuted    ApprovalState = "EXECUTED"
	StateBlocked     ApprovalState = "BLOCKED"
)

// Pipeline stage tags carried on queue messages.
const (
	StageEvaluation = "evaluation"
	StageHITL       = "hitl"
	StageRejected   = "rejected"
	StageExecution  = "execution"
)
