package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Mindburn-Labs/rudder/pkg/approval"
	"github.com/Mindburn-Labs/rudder/pkg/contracts"
	"github.com/Mindburn-Labs/rudder/pkg/queue"
)

const listBatch = 10

// Console is the human review surface over the HITL queue. Listing
// receives packets without deleting them, so anything not decided
// before the visibility timeout lapses simply reappears.
type Console struct {
	hitl   queue.Queue
	exec   queue.Queue
	ledger *approval.Ledger
	logger *slog.Logger
}

// PendingReview pairs a parsed review packet with the receipt needed
// to delete its queue message after a decision.
type PendingReview struct {
	Packet  *contracts.ReviewPacket
	Receipt string
}

// NewConsole builds the review console.
func NewConsole(hitl, exec queue.Queue, ledger *approval.Ledger) *Console {
	return &Console{
		hitl:   hitl,
		exec:   exec,
		ledger: ledger,
		logger: slog.Default().With("component", "hitl_console"),
	}
}

// List returns up to max packets currently awaiting review. Listed
// messages stay invisible to other consumers until the queue's
// visibility timeout lapses.
func (c *Console) List(ctx context.Context, max int, wait time.Duration) ([]PendingReview, error) {
	msgs, err := c.hitl.Receive(ctx, max, wait)
	if err != nil {
		return nil, fmt.Errorf("receive review packets: %w", err)
	}
	var pending []PendingReview
	for _, msg := range msgs {
		var packet contracts.ReviewPacket
		if err := json.Unmarshal(msg.Body, &packet); err != nil {
			c.logger.Warn("skipping unreadable review packet",
				"message_id", msg.ID, "error", err)
			continue
		}
		pending = append(pending, PendingReview{Packet: &packet, Receipt: msg.Receipt})
	}
	return pending, nil
}

// Decide records the operator's verdict for a pending task. Approvals
// are forwarded to the execution queue before the review message is
// deleted; if the forward fails the message stays pending and the
// ledger already holds the decision, so a retry resumes cleanly.
func (c *Console) Decide(ctx context.Context, taskID string, verdict contracts.Verdict, decidedBy string, wait time.Duration) (*contracts.ApprovalDecision, error) {
	pending, err := c.List(ctx, listBatch, wait)
	if err != nil {
		return nil, err
	}

	var match *PendingReview
	for i := range pending {
		if pending[i].Packet.TaskID == taskID {
			match = &pending[i]
			break
		}
	}
	if match == nil {
		return nil, fmt.Errorf("task %s is not pending review", taskID)
	}

	decision, err := c.ledger.Decide(ctx, match.Packet, verdict, decidedBy)
	switch {
	case errors.Is(err, approval.ErrAlreadyDecided):
		c.logger.Warn("task already decided, reusing existing decision",
			"task_id", taskID,
			"decision", decision.Decision,
			"decided_by", decision.DecidedBy)
	case err != nil:
		return nil, err
	}

	if decision.Decision == contracts.VerdictApprove {
		body, err := json.MarshalIndent(decision, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode approval for %s: %w", taskID, err)
		}
		attrs := map[string]string{
			"trace_id": decision.TraceID,
			"task_id":  decision.TaskID,
			"stage":    contracts.StageExecution,
			"hitl":     "approved",
		}
		if err := c.exec.Send(ctx, body, attrs); err != nil {
			return nil, fmt.Errorf("enqueue execution for %s: %w", taskID, err)
		}
	}

	if err := c.hitl.Delete(ctx, match.Receipt); err != nil {
		c.logger.Warn("failed to delete review message; it will redeliver",
			"task_id", taskID, "error", err)
	}
	c.logger.Info("review decision recorded",
		"task_id", taskID, "trace_id", decision.TraceID,
		"decision", decision.Decision, "decided_by", decision.DecidedBy)
	return decision, nil
}
