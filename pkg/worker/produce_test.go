package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Mindburn-Labs/rudder/pkg/contracts"
	"github.com/Mindburn-Labs/rudder/pkg/fingerprint"
	"github.com/Mindburn-Labs/rudder/pkg/queue"
)

func TestSubmitIdeaMintsEnvelope(t *testing.T) {
	q := queue.NewMemoryQueue(time.Minute)
	idea := strongIdea()

	env, err := SubmitIdea(context.Background(), q, idea, evalTime)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if env.TaskID == "" || env.TraceID == "" || env.TaskID == env.TraceID {
		t.Fatalf("bad identifiers: task=%q trace=%q", env.TaskID, env.TraceID)
	}
	if env.TaskType != contracts.TaskTypeRND {
		t.Fatalf("task_type = %q", env.TaskType)
	}
	if env.Agent != "agent_creator" {
		t.Fatalf("agent = %q", env.Agent)
	}
	want := fingerprint.Compute(idea.Title, idea.RecommendedAction, idea.Description)
	if env.Payload.Fingerprint != want {
		t.Fatal("fingerprint not assigned at submission")
	}

	msg := receiveOne(t, q)
	if err := contracts.ValidateEnvelopeJSON(msg.Body); err != nil {
		t.Fatalf("submitted envelope fails its own schema: %v", err)
	}
	var sent contracts.TaskEnvelope
	if err := json.Unmarshal(msg.Body, &sent); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if sent.TaskID != env.TaskID {
		t.Fatal("queued envelope does not match the returned one")
	}
	if msg.Attributes["task_type"] != contracts.TaskTypeRND {
		t.Fatalf("task_type attribute = %q", msg.Attributes["task_type"])
	}
	if msg.Attributes["task_id"] != env.TaskID || msg.Attributes["trace_id"] != env.TraceID {
		t.Fatal("message attributes do not match the envelope identifiers")
	}
}

func TestSubmitIdeaKeepsCarriedFingerprint(t *testing.T) {
	q := queue.NewMemoryQueue(time.Minute)
	idea := strongIdea()
	idea.Fingerprint = "carried-upstream"

	env, err := SubmitIdea(context.Background(), q, idea, evalTime)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if env.Payload.Fingerprint != "carried-upstream" {
		t.Fatalf("fingerprint = %q, want the carried value", env.Payload.Fingerprint)
	}
}
