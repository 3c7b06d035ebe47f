// Package records persists pipeline records as JSON objects under a
// fixed, prefix-scoped key layout. The same layout is served by
// several backends: in-memory, filesystem, SQLite, Postgres, S3 and
// GCS.
package records

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no object exists at the key.
var ErrNotFound = errors.New("records: object not found")

// Key prefixes of the archive layout. Every record the pipeline
// writes lands under exactly one of these.
const (
	PrefixEvaluations    = "evaluations/"
	PrefixRejections     = "rejections/"
	PrefixExecutions     = "executions/"
	PrefixApprovals      = "hitl_approvals/"
	PrefixHITLRejections = "hitl_rejections/"
)

// EvaluationKey returns the key for a task's evaluation record.
func EvaluationKey(taskID string) string { return PrefixEvaluations + taskID + ".json" }

// RejectionKey returns the key for a task's rejection packet.
func RejectionKey(taskID string) string { return PrefixRejections + taskID + ".json" }

// ExecutionKey returns the key for a task's execution record.
func ExecutionKey(taskID string) string { return PrefixExecutions + taskID + ".json" }

// ApprovalKey returns the key for a task's approval decision.
func ApprovalKey(taskID string) string { return PrefixApprovals + taskID + ".json" }

// HITLRejectionKey returns the key for a task's human rejection.
func HITLRejectionKey(taskID string) string { return PrefixHITLRejections + taskID + ".json" }

// ObjectInfo describes a stored object without loading its body.
type ObjectInfo struct {
	Key          string
	LastModified time.Time
}

// Archive is the persistence contract shared by every pipeline stage.
// Implementations must be safe for concurrent use.
type Archive interface {
	// Put marshals v as indented JSON and stores it at key,
	// overwriting any previous object.
	Put(ctx context.Context, key string, v any) error
	// Get loads the object at key into out. Returns ErrNotFound
	// when the key does not exist.
	Get(ctx context.Context, key string, out any) error
	// List returns every object whose key starts with prefix,
	// ordered by key.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	// Delete removes the object at key. Deleting a missing key is
	// not an error.
	Delete(ctx context.Context, key string) error
}

func marshalRecord(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
