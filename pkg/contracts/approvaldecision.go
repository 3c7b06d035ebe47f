package contracts

import "time"

// Decider identities recorded on approval decisions. Synthetic
// approvals minted by the policy engine must stay distinguishable from
// human ones in every audit trail.
const (
	DecidedByPolicyEngine = "policy_engine"
	DecidedByConsole      = "hitl_console"
)

// ApprovalDecision is created exactly once per task, either by a human
// reviewer or synthetically by the policy engine when the mode is
// AUTO_EXECUTE. It is immutable once written; a second decision for the
// same task_id is a protocol violation.
type ApprovalDecision struct {
	TaskID    string    `json:"task_id"`
	TraceID   string    `json:"trace_id"`
	Decision  Verdict   `json:"decision"`
	DecidedBy string    `json:"decided_by"`
	DecidedAt time.Time `json:"decided_at"`

	// PacketHash is the canonical content hash of OriginalPacket at
	// decision time, binding the verdict to exactly what was reviewed.
	PacketHash string `json:"packet_hash,omitempty"`

	OriginalPacket *ReviewPacket `json:"original_packet,omitempty"`
}

// Synthetic reports whether the decision was minted without a human.
func (d ApprovalDecision) Synthetic() bool {
	return d.DecidedBy == DecidedByPolicyEngine
}
