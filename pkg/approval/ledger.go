// Package approval keeps the append-only record of who approved or
// rejected each task. A task receives at most one decision; the ledger
// enforces that and refuses the second.
package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Mindburn-Labs/rudder/pkg/contracts"
	"github.com/Mindburn-Labs/rudder/pkg/records"
)

// ErrAlreadyDecided is returned when a task already has a decision on
// file. A second decision is a protocol violation and is reported, not
// silently overwritten.
var ErrAlreadyDecided = errors.New("approval: task already decided")

// Ledger archives approval decisions. Approvals and rejections land
// under separate prefixes so either can be audited on its own.
type Ledger struct {
	archive records.Archive
	clock   func() time.Time
	logger  *slog.Logger
}

func NewLedger(archive records.Archive) *Ledger {
	return &Ledger{
		archive: archive,
		clock:   time.Now,
		logger:  slog.Default().With("component", "approval"),
	}
}

// WithClock overrides the time source for tests.
func (l *Ledger) WithClock(clock func() time.Time) *Ledger {
	l.clock = clock
	return l
}

// Decide records verdict for the packet's task. If any decision
// already exists for the task_id, the existing decision is returned
// together with ErrAlreadyDecided.
func (l *Ledger) Decide(ctx context.Context, packet *contracts.ReviewPacket, verdict contracts.Verdict, decidedBy string) (*contracts.ApprovalDecision, error) {
	if packet == nil || packet.TaskID == "" {
		return nil, errors.New("approval: packet with task_id required")
	}
	if _, err := contracts.ParseVerdict(string(verdict)); err != nil {
		return nil, err
	}
	if decidedBy == "" {
		decidedBy = contracts.DecidedByConsole
	}

	existing, err := l.Lookup(ctx, packet.TaskID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		l.logger.Warn("refusing second decision for task",
			"task_id", packet.TaskID,
			"existing_decision", existing.Decision,
			"existing_decided_by", existing.DecidedBy,
			"attempted_decision", verdict,
			"attempted_by", decidedBy)
		return existing, ErrAlreadyDecided
	}

	hash, err := contracts.ContentHash(packet)
	if err != nil {
		return nil, fmt.Errorf("hash packet for %s: %w", packet.TaskID, err)
	}
	decision := &contracts.ApprovalDecision{
		TaskID:         packet.TaskID,
		TraceID:        packet.TraceID,
		Decision:       verdict,
		DecidedBy:      decidedBy,
		DecidedAt:      l.clock().UTC(),
		PacketHash:     hash,
		OriginalPacket: packet,
	}

	key := records.ApprovalKey(packet.TaskID)
	if verdict == contracts.VerdictReject {
		key = records.HITLRejectionKey(packet.TaskID)
	}
	if err := l.archive.Put(ctx, key, decision); err != nil {
		return nil, fmt.Errorf("persist decision for %s: %w", packet.TaskID, err)
	}
	return decision, nil
}

// Synthetic mints the automatic approval used for AUTO_EXECUTE tasks.
// It runs through the same single-decision check as a human verdict.
func (l *Ledger) Synthetic(ctx context.Context, packet *contracts.ReviewPacket) (*contracts.ApprovalDecision, error) {
	return l.Decide(ctx, packet, contracts.VerdictApprove, contracts.DecidedByPolicyEngine)
}

// Lookup returns the decision on file for taskID, or nil when the task
// is undecided.
func (l *Ledger) Lookup(ctx context.Context, taskID string) (*contracts.ApprovalDecision, error) {
	for _, key := range []string{records.ApprovalKey(taskID), records.HITLRejectionKey(taskID)} {
		var dec contracts.ApprovalDecision
		err := l.archive.Get(ctx, key, &dec)
		if err == nil {
			return &dec, nil
		}
		if !errors.Is(err, records.ErrNotFound) {
			return nil, fmt.Errorf("read decision for %s: %w", taskID, err)
		}
	}
	return nil, nil
}

// StateOf derives a task's position in the gating stage from the
// records on file. A task with no records is still pending.
func (l *Ledger) StateOf(ctx context.Context, taskID string) (contracts.ApprovalState, error) {
	var exec contracts.ExecutionRecord
	err := l.archive.Get(ctx, records.ExecutionKey(taskID), &exec)
	switch {
	case err == nil:
		if exec.Status == contracts.StatusCompleted {
			return contracts.StateExecuted, nil
		}
		return contracts.StateBlocked, nil
	case !errors.Is(err, records.ErrNotFound):
		return "", fmt.Errorf("read execution for %s: %w", taskID, err)
	}

	dec, err := l.Lookup(ctx, taskID)
	if err != nil {
		return "", err
	}
	if dec != nil {
		if dec.Decision == contracts.VerdictApprove {
			return contracts.StateApproved, nil
		}
		return contracts.StateRejected, nil
	}
	return contracts.StatePendingHITL, nil
}
