package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Pipeline semantic convention attributes.
var (
	AttrTaskID   = attribute.Key("rudder.task.id")
	AttrTraceID  = attribute.Key("rudder.trace.id")
	AttrTaskType = attribute.Key("rudder.task.type")
	AttrStage    = attribute.Key("rudder.stage")

	AttrDecision   = attribute.Key("rudder.decision")
	AttrPolicyMode = attribute.Key("rudder.policy.mode")
	AttrConfidence = attribute.Key("rudder.confidence")

	AttrExecStatus     = attribute.Key("rudder.execution.status")
	AttrSuppressionSet = attribute.Key("rudder.suppression.set")
	AttrQueue          = attribute.Key("rudder.queue")
)

// TaskOperation creates attributes for one task moving through a stage.
func TaskOperation(taskID, traceID, taskType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrTaskID.String(taskID),
		AttrTraceID.String(traceID),
		AttrTaskType.String(taskType),
	}
}

// PolicyOperation creates attributes for a policy decision.
func PolicyOperation(mode string, confidence float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrPolicyMode.String(mode),
		AttrConfidence.Float64(confidence),
	}
}

// GateOperation creates attributes for an execution gate outcome.
func GateOperation(taskID, status string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrTaskID.String(taskID),
		AttrExecStatus.String(status),
	}
}

// SpanFromContext extracts the span from context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddSpanEvent adds an event to the current span.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SetSpanStatus sets the span status based on error.
func SetSpanStatus(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if err != nil {
		span.RecordError(err)
	}
}
