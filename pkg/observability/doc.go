// Package observability provides OpenTelemetry tracing and metrics for
// the rudder pipeline workers.
//
// Initialize a provider at process startup:
//
//	obs, err := observability.New(ctx, observability.DefaultConfig())
//	defer obs.Shutdown(ctx)
//
// Wrap each unit of work:
//
//	ctx, done := obs.TrackOperation(ctx, "eval.task", observability.TaskOperation(taskID, traceID, taskType)...)
//	err := process(ctx)
//	done(err)
//
// Record pipeline events:
//
//	obs.RecordSuppressionHit(ctx, set)
//	obs.RecordGateBlocked(ctx)
//
// The provider is inert (no exporters, no-op tracer) unless
// OTEL_EXPORTER_OTLP_ENDPOINT is set; an unreachable collector is never
// fatal because OTLP gRPC connects lazily.
package observability
