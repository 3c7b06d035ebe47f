package contracts

import "time"

// ReviewPacket is what the evaluation worker hands to the next stage:
// the original envelope plus the evaluation and policy artifacts that
// justify whatever happens to it. The same shape is archived for
// rejections and forwarded to the approval queue for human review.
type ReviewPacket struct {
	TaskID          string            `json:"task_id"`
	TraceID         string            `json:"trace_id"`
	Stage           string            `json:"stage"`
	Evaluation      *EvaluationRecord `json:"evaluation,omitempty"`
	Policy          *PolicyDecision   `json:"policy,omitempty"`
	OriginalPayload *TaskEnvelope     `json:"original_payload,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`

	// Reason is set when the packet records a failure instead of an
	// evaluation, e.g. a malformed envelope archived as a rejection.
	Reason string `json:"reason,omitempty"`

	// Raw preserves the undecodable message body when the envelope could
	// not be parsed, so the rejection record keeps the evidence.
	Raw string `json:"raw_body,omitempty"`
}
