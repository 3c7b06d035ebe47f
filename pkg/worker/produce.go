package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Mindburn-Labs/rudder/pkg/contracts"
	"github.com/Mindburn-Labs/rudder/pkg/fingerprint"
	"github.com/Mindburn-Labs/rudder/pkg/queue"
)

const produceAgent = "agent_creator"

// SubmitIdea wraps one R&D idea in a fresh envelope and enqueues it.
// The fingerprint is assigned here, at the pipeline entry point; every
// stage downstream propagates it instead of recomputing.
func SubmitIdea(ctx context.Context, q queue.Queue, idea contracts.Idea, now time.Time) (*contracts.TaskEnvelope, error) {
	fingerprint.Assign(&idea)
	env := contracts.NewTaskEnvelope(contracts.TaskTypeRND, produceAgent, idea, now)

	body, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	attrs := map[string]string{
		"trace_id":  env.TraceID,
		"task_id":   env.TaskID,
		"task_type": env.TaskType,
	}
	if err := q.Send(ctx, body, attrs); err != nil {
		return nil, fmt.Errorf("enqueue task %s: %w", env.TaskID, err)
	}
	return env, nil
}
