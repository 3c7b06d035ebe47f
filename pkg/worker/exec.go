package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/Mindburn-Labs/rudder/pkg/contracts"
	"github.com/Mindburn-Labs/rudder/pkg/gate"
	"github.com/Mindburn-Labs/rudder/pkg/observability"
	"github.com/Mindburn-Labs/rudder/pkg/queue"
)

// ExecOptions wires the execution worker. Queue and Gate are required.
type ExecOptions struct {
	Queue         queue.Queue
	Gate          *gate.Gate
	Observability *observability.Provider

	PollInterval time.Duration
	ReceiveWait  time.Duration
}

// Exec consumes approval decisions and hands each to the execution
// gate. The gate decides whether to run or block; this worker only
// classifies failures into "retry" and "never retry".
type Exec struct {
	queue  queue.Queue
	gate   *gate.Gate
	obs    *observability.Provider
	poll   time.Duration
	wait   time.Duration
	logger *slog.Logger
}

// NewExec builds the execution worker.
func NewExec(opts ExecOptions) *Exec {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.ReceiveWait <= 0 {
		opts.ReceiveWait = 10 * time.Second
	}
	if opts.Observability == nil {
		opts.Observability = observability.Disabled()
	}
	return &Exec{
		queue:  opts.Queue,
		gate:   opts.Gate,
		obs:    opts.Observability,
		poll:   opts.PollInterval,
		wait:   opts.ReceiveWait,
		logger: slog.Default().With("component", "exec_worker"),
	}
}

// Run polls the execution queue until ctx is cancelled.
func (w *Exec) Run(ctx context.Context) error {
	w.logger.Info("execution worker started", "poll_interval", w.poll)
	for {
		msgs, err := w.queue.Receive(ctx, 1, w.wait)
		if ctx.Err() != nil {
			w.logger.Info("execution worker stopped")
			return nil
		}
		if err != nil {
			w.logger.Error("receive failed", "error", err)
			if !sleepCtx(ctx, w.poll) {
				w.logger.Info("execution worker stopped")
				return nil
			}
			continue
		}
		if len(msgs) == 0 {
			if !sleepCtx(ctx, w.poll) {
				w.logger.Info("execution worker stopped")
				return nil
			}
			continue
		}
		for _, msg := range msgs {
			w.handle(ctx, msg)
		}
	}
}

// handle executes one approval decision. Decisions that can never be
// processed are dropped after logging; the execution gate has already
// made sure nothing runs without them, so there is no record to lose.
func (w *Exec) handle(ctx context.Context, msg queue.Message) {
	var decision contracts.ApprovalDecision
	if err := json.Unmarshal(msg.Body, &decision); err != nil {
		w.logger.Error("malformed approval decision dropped",
			"task_id", msg.Attributes["task_id"],
			"trace_id", msg.Attributes["trace_id"],
			"error", err)
		w.obs.RecordError(ctx, err)
		w.ack(ctx, msg)
		return
	}

	taskType := ""
	if decision.OriginalPacket != nil && decision.OriginalPacket.OriginalPayload != nil {
		taskType = decision.OriginalPacket.OriginalPayload.TaskType
	}
	ctx, done := w.obs.TrackOperation(ctx, "exec.task",
		observability.TaskOperation(decision.TaskID, decision.TraceID, taskType)...)

	rec, err := w.gate.Execute(ctx, &decision)
	switch {
	case errors.Is(err, gate.ErrAlreadyExecuted):
		done(nil)
		w.logger.Warn("repeat execution refused",
			"task_id", decision.TaskID, "trace_id", decision.TraceID,
			"prior_status", rec.Status)
		w.ack(ctx, msg)
	case errors.Is(err, gate.ErrInvalidDecision):
		done(err)
		w.logger.Error("unusable approval decision dropped",
			"task_id", decision.TaskID, "error", err)
		w.ack(ctx, msg)
	case err != nil:
		done(err)
		w.logger.Error("execution failed; leaving for redelivery",
			"task_id", decision.TaskID, "trace_id", decision.TraceID,
			"error", err)
	default:
		done(nil)
		if rec.Status == contracts.StatusBlocked {
			w.obs.RecordGateBlocked(ctx)
		}
		w.logger.Info("execution recorded",
			"task_id", decision.TaskID, "trace_id", decision.TraceID,
			"status", rec.Status, "exec_id", rec.ExecID)
		w.ack(ctx, msg)
	}
}

func (w *Exec) ack(ctx context.Context, msg queue.Message) {
	if err := w.queue.Delete(ctx, msg.Receipt); err != nil {
		w.logger.Warn("failed to delete message; it will redeliver",
			"receipt", msg.Receipt, "error", err)
	}
}
