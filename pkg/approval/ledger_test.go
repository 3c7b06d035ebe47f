package approval

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Mindburn-Labs/rudder/pkg/contracts"
	"github.com/Mindburn-Labs/rudder/pkg/records"
)

var decidedAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testPacket(taskID string) *contracts.ReviewPacket {
	return &contracts.ReviewPacket{
		TaskID:    taskID,
		TraceID:   "trace-" + taskID,
		Stage:     contracts.StageHITL,
		CreatedAt: decidedAt.Add(-time.Minute),
	}
}

func newLedger(archive records.Archive) *Ledger {
	return NewLedger(archive).WithClock(func() time.Time { return decidedAt })
}

func TestSingleDecisionPerTask(t *testing.T) {
	ctx := context.Background()
	archive := records.NewMemoryArchive()
	ledger := newLedger(archive)

	first, err := ledger.Decide(ctx, testPacket("t1"), contracts.VerdictApprove, "alice")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if first.DecidedBy != "alice" || first.Decision != contracts.VerdictApprove {
		t.Fatalf("decision = %+v", first)
	}
	if !first.DecidedAt.Equal(decidedAt) {
		t.Fatalf("DecidedAt = %v, want %v", first.DecidedAt, decidedAt)
	}
	if !strings.HasPrefix(first.PacketHash, "sha256:") {
		t.Fatalf("PacketHash = %q, want sha256-prefixed content hash", first.PacketHash)
	}

	var stored contracts.ApprovalDecision
	if err := archive.Get(ctx, records.ApprovalKey("t1"), &stored); err != nil {
		t.Fatalf("approval record not archived: %v", err)
	}

	second, err := ledger.Decide(ctx, testPacket("t1"), contracts.VerdictReject, "bob")
	if !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("second Decide = %v, want ErrAlreadyDecided", err)
	}
	if second == nil || second.DecidedBy != "alice" {
		t.Fatalf("second Decide must return the original decision, got %+v", second)
	}

	// The original record is untouched.
	if err := archive.Get(ctx, records.ApprovalKey("t1"), &stored); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.DecidedBy != "alice" || stored.Decision != contracts.VerdictApprove {
		t.Fatalf("original decision overwritten: %+v", stored)
	}
}

func TestRejectionArchivedSeparately(t *testing.T) {
	ctx := context.Background()
	archive := records.NewMemoryArchive()
	ledger := newLedger(archive)

	if _, err := ledger.Decide(ctx, testPacket("t2"), contracts.VerdictReject, "carol"); err != nil {
		t.Fatalf("Decide: %v", err)
	}

	var rejected contracts.ApprovalDecision
	if err := archive.Get(ctx, records.HITLRejectionKey("t2"), &rejected); err != nil {
		t.Fatalf("rejection record not archived: %v", err)
	}
	if err := archive.Get(ctx, records.ApprovalKey("t2"), &rejected); !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("rejection must not land under approvals, Get = %v", err)
	}

	// An approval after a rejection is still a second decision.
	if _, err := ledger.Decide(ctx, testPacket("t2"), contracts.VerdictApprove, "dave"); !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("Decide after rejection = %v, want ErrAlreadyDecided", err)
	}
}

func TestSyntheticApproval(t *testing.T) {
	ctx := context.Background()
	archive := records.NewMemoryArchive()
	ledger := newLedger(archive)

	dec, err := ledger.Synthetic(ctx, testPacket("t3"))
	if err != nil {
		t.Fatalf("Synthetic: %v", err)
	}
	if dec.DecidedBy != contracts.DecidedByPolicyEngine {
		t.Fatalf("DecidedBy = %s, want %s", dec.DecidedBy, contracts.DecidedByPolicyEngine)
	}
	if !dec.Synthetic() {
		t.Fatal("synthetic decision must report Synthetic() = true")
	}
	if dec.Decision != contracts.VerdictApprove {
		t.Fatalf("Decision = %s, want APPROVE", dec.Decision)
	}

	var stored contracts.ApprovalDecision
	if err := archive.Get(ctx, records.ApprovalKey("t3"), &stored); err != nil {
		t.Fatalf("synthetic approval not archived: %v", err)
	}
}

func TestDecideValidatesInput(t *testing.T) {
	ledger := newLedger(records.NewMemoryArchive())
	ctx := context.Background()

	if _, err := ledger.Decide(ctx, nil, contracts.VerdictApprove, "x"); err == nil {
		t.Fatal("Decide accepted a nil packet")
	}
	if _, err := ledger.Decide(ctx, testPacket(""), contracts.VerdictApprove, "x"); err == nil {
		t.Fatal("Decide accepted an empty task_id")
	}
	if _, err := ledger.Decide(ctx, testPacket("t4"), contracts.Verdict("MAYBE"), "x"); err == nil {
		t.Fatal("Decide accepted an unknown verdict")
	}
}

func TestStateOf(t *testing.T) {
	ctx := context.Background()
	archive := records.NewMemoryArchive()
	ledger := newLedger(archive)

	state, err := ledger.StateOf(ctx, "fresh")
	if err != nil || state != contracts.StatePendingHITL {
		t.Fatalf("StateOf(fresh) = %v, %v", state, err)
	}

	if _, err := ledger.Decide(ctx, testPacket("approved"), contracts.VerdictApprove, "alice"); err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if state, _ := ledger.StateOf(ctx, "approved"); state != contracts.StateApproved {
		t.Fatalf("StateOf(approved) = %v", state)
	}

	if _, err := ledger.Decide(ctx, testPacket("rejected"), contracts.VerdictReject, "alice"); err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if state, _ := ledger.StateOf(ctx, "rejected"); state != contracts.StateRejected {
		t.Fatalf("StateOf(rejected) = %v", state)
	}

	mustPutExec(t, archive, "done", contracts.StatusCompleted)
	if state, _ := ledger.StateOf(ctx, "done"); state != contracts.StateExecuted {
		t.Fatalf("StateOf(done) = %v", state)
	}

	mustPutExec(t, archive, "stopped", contracts.StatusBlocked)
	if state, _ := ledger.StateOf(ctx, "stopped"); state != contracts.StateBlocked {
		t.Fatalf("StateOf(stopped) = %v", state)
	}
}

func mustPutExec(t *testing.T, archive records.Archive, taskID string, status contracts.ExecutionStatus) {
	t.Helper()
	rec := contracts.ExecutionRecord{
		ExecID:     "exec-" + taskID,
		TaskID:     taskID,
		Status:     status,
		ExecutedAt: decidedAt,
		ExecutedBy: "exec_worker",
	}
	if err := archive.Put(context.Background(), records.ExecutionKey(taskID), rec); err != nil {
		t.Fatalf("Put execution record: %v", err)
	}
}
