package contracts

import "time"

// ExecutionRecord is the terminal artifact of the pipeline, at most one
// per task_id. Fingerprint is propagated from the original idea payload;
// it is recomputed only when the upstream records genuinely lost it.
type ExecutionRecord struct {
	ExecID      string          `json:"exec_id"`
	TaskID      string          `json:"task_id"`
	TraceID     string          `json:"trace_id"`
	Status      ExecutionStatus `json:"status"`
	Notes       string          `json:"notes,omitempty"`
	Fingerprint string          `json:"fingerprint,omitempty"`

	// ApprovedBy echoes decided_by from the approval that justified a
	// COMPLETED run. Empty on BLOCKED records.
	ApprovedBy string `json:"approved_by,omitempty"`

	Evaluation   *EvaluationRecord `json:"evaluation,omitempty"`
	OriginalIdea *Idea             `json:"original_idea,omitempty"`

	// ReceivedPacket preserves what actually arrived when the gate
	// blocked, so a blocked record never pretends to more context than
	// it had.
	ReceivedPacket *ApprovalDecision `json:"received_packet,omitempty"`

	ExecutedAt time.Time `json:"executed_at"`
	ExecutedBy string    `json:"executed_by"`

	SchemaVersion string `json:"schema_version,omitempty"`
}
