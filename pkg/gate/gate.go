package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Mindburn-Labs/rudder/pkg/contracts"
	"github.com/Mindburn-Labs/rudder/pkg/fingerprint"
	"github.com/Mindburn-Labs/rudder/pkg/records"
)

// ErrAlreadyExecuted is returned when a terminal execution record is
// already on file for the task. At-least-once delivery means the same
// decision can arrive twice; the side effect must not run twice.
var ErrAlreadyExecuted = errors.New("gate: task already executed")

// ErrInvalidDecision marks a decision that can never execute (missing
// task_id). Callers should treat it as poison, not retry it.
var ErrInvalidDecision = errors.New("gate: decision with task_id required")

const executedBy = "exec_worker"

const blockedNotes = "Execution blocked. Missing explicit HITL approval."

// Gate checks the approval precondition, runs the driver, and writes
// the terminal execution record.
type Gate struct {
	archive records.Archive
	driver  Driver
	clock   func() time.Time
	logger  *slog.Logger
}

func New(archive records.Archive, driver Driver) *Gate {
	if driver == nil {
		driver = SimDriver{}
	}
	return &Gate{
		archive: archive,
		driver:  driver,
		clock:   time.Now,
		logger:  slog.Default().With("component", "gate"),
	}
}

// WithClock overrides the time source for tests.
func (g *Gate) WithClock(clock func() time.Time) *Gate {
	g.clock = clock
	return g
}

// Execute runs the gate for one approval decision. Redelivery of an
// already-settled task returns the prior record with
// ErrAlreadyExecuted instead of re-running the side effect.
func (g *Gate) Execute(ctx context.Context, decision *contracts.ApprovalDecision) (*contracts.ExecutionRecord, error) {
	if decision == nil || decision.TaskID == "" {
		return nil, ErrInvalidDecision
	}

	var prior contracts.ExecutionRecord
	err := g.archive.Get(ctx, records.ExecutionKey(decision.TaskID), &prior)
	switch {
	case err == nil:
		g.logger.Warn("refusing repeat execution",
			"task_id", decision.TaskID, "prior_status", prior.Status)
		return &prior, ErrAlreadyExecuted
	case !errors.Is(err, records.ErrNotFound):
		return nil, fmt.Errorf("check prior execution for %s: %w", decision.TaskID, err)
	}

	// Strict equality: anything that is not APPROVE, including an
	// empty or unknown verdict, counts as no approval.
	if decision.Decision != contracts.VerdictApprove {
		return g.block(ctx, decision)
	}
	return g.run(ctx, decision)
}

func (g *Gate) block(ctx context.Context, decision *contracts.ApprovalDecision) (*contracts.ExecutionRecord, error) {
	rec := g.newRecord(decision)
	rec.Status = contracts.StatusBlocked
	rec.Notes = blockedNotes
	rec.ReceivedPacket = decision

	if err := g.archive.Put(ctx, records.ExecutionKey(decision.TaskID), rec); err != nil {
		return nil, fmt.Errorf("persist blocked record for %s: %w", decision.TaskID, err)
	}
	g.logger.Warn("execution blocked",
		"task_id", decision.TaskID,
		"decision", decision.Decision,
		"decided_by", decision.DecidedBy)
	return rec, nil
}

func (g *Gate) run(ctx context.Context, decision *contracts.ApprovalDecision) (*contracts.ExecutionRecord, error) {
	notes, err := g.driver.Run(ctx, decision)
	if err != nil {
		// The action may be half done; surface the error so the
		// message is not acknowledged and the task retries.
		return nil, fmt.Errorf("driver %s: %w", g.driver.Name(), err)
	}

	rec := g.newRecord(decision)
	rec.Status = contracts.StatusCompleted
	rec.Notes = notes
	rec.ApprovedBy = decision.DecidedBy

	if err := g.archive.Put(ctx, records.ExecutionKey(decision.TaskID), rec); err != nil {
		return nil, fmt.Errorf("persist execution record for %s: %w", decision.TaskID, err)
	}
	g.logger.Info("execution complete",
		"task_id", decision.TaskID,
		"driver", g.driver.Name(),
		"approved_by", decision.DecidedBy)
	return rec, nil
}

// newRecord assembles the fields shared by COMPLETED and BLOCKED
// records. The fingerprint comes from the original idea payload and is
// recomputed only when genuinely absent; the evaluation snapshot is
// whatever survived the trip through the pipeline.
func (g *Gate) newRecord(decision *contracts.ApprovalDecision) *contracts.ExecutionRecord {
	rec := &contracts.ExecutionRecord{
		ExecID:        uuid.NewString(),
		TaskID:        decision.TaskID,
		TraceID:       decision.TraceID,
		ExecutedAt:    g.clock().UTC(),
		ExecutedBy:    executedBy,
		SchemaVersion: contracts.SchemaVersion,
	}
	if packet := decision.OriginalPacket; packet != nil {
		rec.Evaluation = packet.Evaluation
		if env := packet.OriginalPayload; env != nil {
			idea := env.Payload
			rec.OriginalIdea = &idea
			rec.Fingerprint = fingerprint.Of(&idea)
		}
	}
	if rec.Fingerprint == "" && rec.Evaluation != nil {
		rec.Fingerprint = rec.Evaluation.Fingerprint
	}
	return rec
}
