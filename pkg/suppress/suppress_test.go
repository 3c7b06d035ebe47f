package suppress

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Mindburn-Labs/rudder/pkg/contracts"
	"github.com/Mindburn-Labs/rudder/pkg/fingerprint"
	"github.com/Mindburn-Labs/rudder/pkg/records"
)

var buildTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testIdea(title string) *contracts.Idea {
	return &contracts.Idea{
		Title:             title,
		Description:       "Reduce queue backlog by batching sends",
		RecommendedAction: "Batch outgoing queue writes",
	}
}

func execRecord(idea *contracts.Idea, status contracts.ExecutionStatus, at time.Time) contracts.ExecutionRecord {
	return contracts.ExecutionRecord{
		ExecID:        "exec-" + idea.Title,
		TaskID:        "task-" + idea.Title,
		Status:        status,
		Fingerprint:   fingerprint.Of(idea),
		ExecutedAt:    at,
		ExecutedBy:    "exec_worker",
		SchemaVersion: contracts.SchemaVersion,
	}
}

func evalRecord(idea *contracts.Idea) contracts.EvaluationRecord {
	return contracts.EvaluationRecord{
		EvalID:      "eval-" + idea.Title,
		TaskID:      "task-" + idea.Title,
		Fingerprint: fingerprint.Of(idea),
		EvaluatedAt: buildTime,
		EvaluatedBy: "eval_worker",
		EvaluationResult: contracts.EvaluationResult{
			FinalDecision:   contracts.DecisionExecute,
			ConfidenceScore: 0.7,
		},
		SchemaVersion: contracts.SchemaVersion,
	}
}

func newBuilder(archive records.Archive) *Builder {
	cfg := Config{CompletedWindow: time.Hour, PendingWindow: 30 * time.Minute}
	return NewBuilder(archive, cfg).WithClock(func() time.Time { return buildTime })
}

func TestCompletedWindowBoundaries(t *testing.T) {
	ctx := context.Background()
	archive := records.NewMemoryArchive()

	inside := testIdea("inside")
	outside := testIdea("outside")
	blocked := testIdea("blocked")

	mustPut(t, archive, records.ExecutionKey("t1"),
		execRecord(inside, contracts.StatusCompleted, buildTime.Add(-10*time.Minute)))
	mustPut(t, archive, records.ExecutionKey("t2"),
		execRecord(outside, contracts.StatusCompleted, buildTime.Add(-2*time.Hour)))
	mustPut(t, archive, records.ExecutionKey("t3"),
		execRecord(blocked, contracts.StatusBlocked, buildTime.Add(-10*time.Minute)))

	ix := newBuilder(archive).Build(ctx)

	if dup, set := ix.IsDuplicate(inside); !dup || set != SetCompleted {
		t.Fatalf("IsDuplicate(inside) = %v, %q; want true, %q", dup, set, SetCompleted)
	}
	if dup, _ := ix.IsDuplicate(outside); dup {
		t.Fatal("execution outside the window must not suppress")
	}
	if dup, _ := ix.IsDuplicate(blocked); dup {
		t.Fatal("a BLOCKED execution must not suppress")
	}
}

func TestPendingWindowUsesObjectMtime(t *testing.T) {
	ctx := context.Background()

	current := buildTime
	archive := records.NewMemoryArchive().WithClock(func() time.Time { return current })

	stale := testIdea("stale")
	fresh := testIdea("fresh")

	current = buildTime.Add(-2 * time.Hour)
	mustPut(t, archive, records.EvaluationKey("t1"), evalRecord(stale))
	current = buildTime.Add(-5 * time.Minute)
	mustPut(t, archive, records.EvaluationKey("t2"), evalRecord(fresh))

	ix := newBuilder(archive).Build(ctx)

	if dup, set := ix.IsDuplicate(fresh); !dup || set != SetPending {
		t.Fatalf("IsDuplicate(fresh) = %v, %q; want true, %q", dup, set, SetPending)
	}
	if dup, _ := ix.IsDuplicate(stale); dup {
		t.Fatal("evaluation outside the pending window must not suppress")
	}
}

func TestMalformedRecordsAreSkipped(t *testing.T) {
	ctx := context.Background()
	archive := records.NewMemoryArchive()

	good := testIdea("good")
	mustPut(t, archive, records.ExecutionKey("good"),
		execRecord(good, contracts.StatusCompleted, buildTime.Add(-time.Minute)))
	mustPut(t, archive, records.ExecutionKey("bad"), "not an execution record")
	mustPut(t, archive, records.EvaluationKey("bad"), "not an evaluation record")

	ix := newBuilder(archive).Build(ctx)

	if dup, _ := ix.IsDuplicate(good); !dup {
		t.Fatal("a malformed sibling record must not poison the build")
	}
	completed, pending := ix.Sizes()
	if completed != 1 || pending != 0 {
		t.Fatalf("Sizes = %d, %d; want 1, 0", completed, pending)
	}
}

func TestIncompatibleSchemaIsSkipped(t *testing.T) {
	ctx := context.Background()
	archive := records.NewMemoryArchive()

	idea := testIdea("future")
	rec := execRecord(idea, contracts.StatusCompleted, buildTime.Add(-time.Minute))
	rec.SchemaVersion = "2.0.0"
	mustPut(t, archive, records.ExecutionKey("t1"), rec)

	ix := newBuilder(archive).Build(ctx)

	if dup, _ := ix.IsDuplicate(idea); dup {
		t.Fatal("a record from an incompatible schema major must not suppress")
	}
}

func TestStoreFailureYieldsEmptyIndex(t *testing.T) {
	ix := newBuilder(failingArchive{}).Build(context.Background())

	if dup, _ := ix.IsDuplicate(testIdea("anything")); dup {
		t.Fatal("an unreachable store must under-suppress, not block")
	}
	completed, pending := ix.Sizes()
	if completed != 0 || pending != 0 {
		t.Fatalf("Sizes = %d, %d; want 0, 0", completed, pending)
	}
}

func mustPut(t *testing.T, archive records.Archive, key string, v any) {
	t.Helper()
	if err := archive.Put(context.Background(), key, v); err != nil {
		t.Fatalf("Put %s: %v", key, err)
	}
}

type failingArchive struct{}

func (failingArchive) Put(context.Context, string, any) error { return errors.New("store down") }
func (failingArchive) Get(context.Context, string, any) error { return errors.New("store down") }
func (failingArchive) List(context.Context, string) ([]records.ObjectInfo, error) {
	return nil, errors.New("store down")
}
func (failingArchive) Delete(context.Context, string) error { return errors.New("store down") }
