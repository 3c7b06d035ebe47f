package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Mindburn-Labs/rudder/pkg/approval"
	"github.com/Mindburn-Labs/rudder/pkg/contracts"
	"github.com/Mindburn-Labs/rudder/pkg/fingerprint"
	"github.com/Mindburn-Labs/rudder/pkg/observability"
	"github.com/Mindburn-Labs/rudder/pkg/policy"
	"github.com/Mindburn-Labs/rudder/pkg/queue"
	"github.com/Mindburn-Labs/rudder/pkg/records"
	"github.com/Mindburn-Labs/rudder/pkg/scoring"
	"github.com/Mindburn-Labs/rudder/pkg/suppress"
)

const evaluatedBy = "eval_worker"

// EvalOptions wires the evaluation worker to its collaborators. Tasks,
// HITL, Exec, Archive, Scoring, Policy and Ledger are required; the
// rest default.
type EvalOptions struct {
	Tasks   queue.Queue
	HITL    queue.Queue
	Exec    queue.Queue
	Archive records.Archive

	Scoring *scoring.Engine
	Policy  *policy.Engine
	Ledger  *approval.Ledger

	Suppression   suppress.Config
	Observability *observability.Provider

	PollInterval time.Duration
	ReceiveWait  time.Duration
}

// Eval consumes task envelopes, suppresses duplicates, evaluates and
// routes each task to auto-execution, human review, or the rejection
// archive.
type Eval struct {
	tasks   queue.Queue
	hitl    queue.Queue
	exec    queue.Queue
	archive records.Archive

	scoring *scoring.Engine
	policy  *policy.Engine
	ledger  *approval.Ledger
	builder *suppress.Builder

	obs    *observability.Provider
	poll   time.Duration
	wait   time.Duration
	clock  func() time.Time
	logger *slog.Logger
}

// NewEval builds the evaluation worker.
func NewEval(opts EvalOptions) *Eval {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.ReceiveWait <= 0 {
		opts.ReceiveWait = 10 * time.Second
	}
	if opts.Observability == nil {
		opts.Observability = observability.Disabled()
	}
	return &Eval{
		tasks:   opts.Tasks,
		hitl:    opts.HITL,
		exec:    opts.Exec,
		archive: opts.Archive,
		scoring: opts.Scoring,
		policy:  opts.Policy,
		ledger:  opts.Ledger,
		builder: suppress.NewBuilder(opts.Archive, opts.Suppression),
		obs:     opts.Observability,
		poll:    opts.PollInterval,
		wait:    opts.ReceiveWait,
		clock:   time.Now,
		logger:  slog.Default().With("component", "eval_worker"),
	}
}

// WithClock overrides the time source for tests. The suppression
// builder shares it so window math stays consistent.
func (w *Eval) WithClock(clock func() time.Time) *Eval {
	w.clock = clock
	w.builder.WithClock(clock)
	return w
}

// Run polls the task queue until ctx is cancelled. Receive errors are
// logged and retried; they never stop the loop.
func (w *Eval) Run(ctx context.Context) error {
	w.logger.Info("evaluation worker started", "poll_interval", w.poll)
	for {
		msgs, err := w.tasks.Receive(ctx, 1, w.wait)
		if ctx.Err() != nil {
			w.logger.Info("evaluation worker stopped")
			return nil
		}
		if err != nil {
			w.logger.Error("receive failed", "error", err)
			if !sleepCtx(ctx, w.poll) {
				w.logger.Info("evaluation worker stopped")
				return nil
			}
			continue
		}
		if len(msgs) == 0 {
			if !sleepCtx(ctx, w.poll) {
				w.logger.Info("evaluation worker stopped")
				return nil
			}
			continue
		}

		// The suppression index is an immutable snapshot rebuilt per
		// batch; a task never suppresses siblings in its own batch.
		index := w.builder.Build(ctx)
		for _, msg := range msgs {
			w.handle(ctx, index, msg)
		}
	}
}

// handle validates and processes one message, deleting it only when
// processing finished. Envelopes that can never parse are archived as
// rejections and acknowledged; transient failures leave the message in
// flight for redelivery.
func (w *Eval) handle(ctx context.Context, index *suppress.Index, msg queue.Message) {
	if err := contracts.ValidateEnvelopeJSON(msg.Body); err != nil {
		w.rejectMalformed(ctx, msg, err)
		return
	}
	var env contracts.TaskEnvelope
	if err := json.Unmarshal(msg.Body, &env); err != nil {
		w.rejectMalformed(ctx, msg, err)
		return
	}

	ctx, done := w.obs.TrackOperation(ctx, "eval.task",
		observability.TaskOperation(env.TaskID, env.TraceID, env.TaskType)...)
	err := w.process(ctx, index, &env)
	done(err)
	if err != nil {
		w.logger.Error("task processing failed; leaving for redelivery",
			"task_id", env.TaskID, "trace_id", env.TraceID, "error", err)
		return
	}
	w.ack(ctx, msg)
}

// process runs one envelope through suppression, scoring, policy and
// routing. On redelivery of a task whose evaluation already persisted,
// the stored evaluation is reused so the run resumes at routing instead
// of suppressing itself.
func (w *Eval) process(ctx context.Context, index *suppress.Index, env *contracts.TaskEnvelope) error {
	var eval contracts.EvaluationRecord
	err := w.archive.Get(ctx, records.EvaluationKey(env.TaskID), &eval)
	switch {
	case err == nil:
		w.logger.Info("resuming task with existing evaluation",
			"task_id", env.TaskID, "trace_id", env.TraceID,
			"decision", eval.FinalDecision)

	case errors.Is(err, records.ErrNotFound):
		if dup, set := index.IsDuplicate(&env.Payload); dup {
			w.obs.RecordSuppressionHit(ctx, set)
			w.logger.Info("duplicate idea suppressed",
				"task_id", env.TaskID, "trace_id", env.TraceID,
				"suppression_set", set,
				"fingerprint", fingerprint.Of(&env.Payload))
			return nil
		}

		result, serr := w.scoring.Evaluate(env)
		if serr != nil {
			var inputErr *scoring.ScoringInputError
			if errors.As(serr, &inputErr) {
				w.logger.Error("task payload unusable for scoring",
					"task_id", env.TaskID, "trace_id", env.TraceID, "error", serr)
				return w.archiveRejection(ctx, env, nil, nil, serr.Error())
			}
			return fmt.Errorf("evaluate task %s: %w", env.TaskID, serr)
		}

		eval = contracts.EvaluationRecord{
			EvalID:           uuid.NewString(),
			TaskID:           env.TaskID,
			TraceID:          env.TraceID,
			Fingerprint:      fingerprint.Of(&env.Payload),
			EvaluatedAt:      w.clock().UTC(),
			EvaluatedBy:      evaluatedBy,
			EvaluationResult: *result,
			SchemaVersion:    contracts.SchemaVersion,
		}
		if err := w.archive.Put(ctx, records.EvaluationKey(env.TaskID), &eval); err != nil {
			return fmt.Errorf("persist evaluation for %s: %w", env.TaskID, err)
		}
		w.logger.Info("task evaluated",
			"task_id", env.TaskID, "trace_id", env.TraceID,
			"decision", eval.FinalDecision,
			"confidence", eval.ConfidenceScore,
			"model", eval.EvaluationModel)

	default:
		return fmt.Errorf("read evaluation for %s: %w", env.TaskID, err)
	}

	decision := w.policy.Decide(&eval, env)
	observability.AddSpanEvent(ctx, "policy.decided",
		observability.PolicyOperation(string(decision.PolicyMode), eval.ConfidenceScore)...)

	switch decision.PolicyMode {
	case contracts.ModeReject:
		if err := w.archiveRejection(ctx, env, &eval, decision, ""); err != nil {
			return err
		}
		w.logger.Info("task rejected",
			"task_id", env.TaskID, "trace_id", env.TraceID,
			"reasoning", decision.PolicyReasoning)
		return nil
	case contracts.ModeAutoExecute:
		return w.autoExecute(ctx, env, &eval, decision)
	default:
		return w.sendToHITL(ctx, env, &eval, decision)
	}
}

func (w *Eval) packet(stage string, env *contracts.TaskEnvelope, eval *contracts.EvaluationRecord, decision *contracts.PolicyDecision) *contracts.ReviewPacket {
	return &contracts.ReviewPacket{
		TaskID:          env.TaskID,
		TraceID:         env.TraceID,
		Stage:           stage,
		Evaluation:      eval,
		Policy:          decision,
		OriginalPayload: env,
		CreatedAt:       w.clock().UTC(),
	}
}

// autoExecute mints a synthetic approval and forwards it straight to
// the execution queue. On redelivery the ledger returns the decision
// already on file, which is forwarded again; the execution gate's
// idempotency check absorbs the duplicate.
func (w *Eval) autoExecute(ctx context.Context, env *contracts.TaskEnvelope, eval *contracts.EvaluationRecord, pol *contracts.PolicyDecision) error {
	packet := w.packet(contracts.StageExecution, env, eval, pol)
	decision, err := w.ledger.Synthetic(ctx, packet)
	switch {
	case errors.Is(err, approval.ErrAlreadyDecided):
		w.logger.Warn("approval already on file, forwarding existing decision",
			"task_id", env.TaskID, "decided_by", decision.DecidedBy)
	case err != nil:
		return fmt.Errorf("record synthetic approval for %s: %w", env.TaskID, err)
	}

	body, err := json.MarshalIndent(decision, "", "  ")
	if err != nil {
		return fmt.Errorf("encode approval for %s: %w", env.TaskID, err)
	}
	attrs := map[string]string{
		"trace_id": env.TraceID,
		"task_id":  env.TaskID,
		"stage":    contracts.StageExecution,
	}
	if err := w.exec.Send(ctx, body, attrs); err != nil {
		return fmt.Errorf("enqueue execution for %s: %w", env.TaskID, err)
	}
	w.logger.Info("task auto-approved for execution",
		"task_id", env.TaskID, "trace_id", env.TraceID,
		"confidence", eval.ConfidenceScore)
	return nil
}

func (w *Eval) sendToHITL(ctx context.Context, env *contracts.TaskEnvelope, eval *contracts.EvaluationRecord, pol *contracts.PolicyDecision) error {
	packet := w.packet(contracts.StageHITL, env, eval, pol)
	body, err := json.MarshalIndent(packet, "", "  ")
	if err != nil {
		return fmt.Errorf("encode review packet for %s: %w", env.TaskID, err)
	}
	attrs := map[string]string{
		"trace_id": env.TraceID,
		"task_id":  env.TaskID,
		"stage":    contracts.StageHITL,
	}
	if err := w.hitl.Send(ctx, body, attrs); err != nil {
		return fmt.Errorf("enqueue review for %s: %w", env.TaskID, err)
	}
	w.logger.Info("task sent for human review",
		"task_id", env.TaskID, "trace_id", env.TraceID,
		"confidence", eval.ConfidenceScore)
	return nil
}

// rejectMalformed archives a message that can never parse and then
// acknowledges it. If archiving fails the message is left in flight so
// nothing is dropped without a record.
func (w *Eval) rejectMalformed(ctx context.Context, msg queue.Message, cause error) {
	taskID := msg.Attributes["task_id"]
	if taskID == "" {
		taskID = msg.ID
	}
	traceID := msg.Attributes["trace_id"]

	w.logger.Error("malformed envelope rejected",
		"task_id", taskID, "trace_id", traceID, "error", cause)
	w.obs.RecordError(ctx, cause, observability.TaskOperation(taskID, traceID, "")...)

	packet := &contracts.ReviewPacket{
		TaskID:    taskID,
		TraceID:   traceID,
		Stage:     contracts.StageRejected,
		Reason:    cause.Error(),
		Raw:       string(msg.Body),
		CreatedAt: w.clock().UTC(),
	}
	if err := w.archive.Put(ctx, records.RejectionKey(taskID), packet); err != nil {
		w.logger.Error("failed to archive rejection; leaving message for redelivery",
			"task_id", taskID, "error", err)
		return
	}
	w.ack(ctx, msg)
}

func (w *Eval) archiveRejection(ctx context.Context, env *contracts.TaskEnvelope, eval *contracts.EvaluationRecord, pol *contracts.PolicyDecision, reason string) error {
	packet := w.packet(contracts.StageRejected, env, eval, pol)
	packet.Reason = reason
	if err := w.archive.Put(ctx, records.RejectionKey(env.TaskID), packet); err != nil {
		return fmt.Errorf("archive rejection for %s: %w", env.TaskID, err)
	}
	return nil
}

func (w *Eval) ack(ctx context.Context, msg queue.Message) {
	if err := w.tasks.Delete(ctx, msg.Receipt); err != nil {
		w.logger.Warn("failed to delete message; it will redeliver",
			"receipt", msg.Receipt, "error", err)
	}
}
