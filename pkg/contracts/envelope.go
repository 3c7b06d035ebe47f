package contracts

import (
	"time"

	"github.com/google/uuid"
)

// Task types routed by the evaluation worker. The set is open: unknown
// types fall through to the research scoring model.
const (
	TaskTypeRND           = "RND_ANALYSIS"
	TaskTypeLogSuggestion = "LOG_SUGGESTION"
)

// TaskEnvelope wraps one idea with the identifiers that thread through
// every record derived from it. task_id and trace_id are generated once
// at ingestion and never regenerated downstream; a task_id is never
// reused for a different idea.
type TaskEnvelope struct {
	TaskID    string    `json:"task_id"`
	TraceID   string    `json:"trace_id"`
	TaskType  string    `json:"task_type"`
	Agent     string    `json:"agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Payload   Idea      `json:"payload"`
}

// NewTaskEnvelope mints fresh identifiers for an idea entering the
// pipeline. The caller is the only legitimate creation point for
// task_id and trace_id.
func NewTaskEnvelope(taskType, agent string, idea Idea, now time.Time) *TaskEnvelope {
	return &TaskEnvelope{
		TaskID:    uuid.NewString(),
		TraceID:   uuid.NewString(),
		TaskType:  taskType,
		Agent:     agent,
		CreatedAt: now.UTC(),
		Payload:   idea,
	}
}
