package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestDefaultConfigDisabledWithoutEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	config := DefaultConfig()
	require.Equal(t, "rudder", config.ServiceName)
	require.Equal(t, 1.0, config.SampleRate)
	require.False(t, config.Enabled)
}

func TestDefaultConfigStripsScheme(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4317")

	config := DefaultConfig()
	require.True(t, config.Enabled)
	require.True(t, config.Insecure)
	require.Equal(t, "collector:4317", config.OTLPEndpoint)

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "https://collector:4317")
	config = DefaultConfig()
	require.True(t, config.Enabled)
	require.False(t, config.Insecure)
	require.Equal(t, "collector:4317", config.OTLPEndpoint)
}

func TestNewProviderDisabled(t *testing.T) {
	p, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, p)

	require.NotNil(t, p.Tracer())
	require.NotNil(t, p.Meter())
}

func TestTrackOperation(t *testing.T) {
	p, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)

	ctx := context.Background()
	newCtx, finish := p.TrackOperation(ctx, "eval.task", TaskOperation("t1", "tr1", "RND_ANALYSIS")...)
	require.NotNil(t, newCtx)

	time.Sleep(1 * time.Millisecond)
	finish(nil)
}

func TestTrackOperationWithError(t *testing.T) {
	p, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)

	_, finish := p.TrackOperation(context.Background(), "exec.task")
	finish(errors.New("driver failed"))
}

func TestRecordMetricsDisabled(t *testing.T) {
	p, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)

	ctx := context.Background()

	// None of these may panic on a disabled provider.
	p.RecordTask(ctx, attribute.String("stage", "eval"))
	p.RecordError(ctx, errors.New("boom"))
	p.RecordDuration(ctx, 100*time.Millisecond)
	p.RecordSuppressionHit(ctx, "completed")
	p.RecordGateBlocked(ctx)
}

func TestStartSpan(t *testing.T) {
	p, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)

	newCtx, span := p.StartSpan(context.Background(), "test.span")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}

func TestShutdownDisabled(t *testing.T) {
	p, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))
}

func TestTaskOperation(t *testing.T) {
	attrs := TaskOperation("task-123", "trace-456", "LOG_SUGGESTION")
	require.Len(t, attrs, 3)
	require.Equal(t, "rudder.task.id", string(attrs[0].Key))
	require.Equal(t, "task-123", attrs[0].Value.AsString())
	require.Equal(t, "LOG_SUGGESTION", attrs[2].Value.AsString())
}

func TestPolicyOperation(t *testing.T) {
	attrs := PolicyOperation("AUTO_EXECUTE", 0.91)
	require.Len(t, attrs, 2)
	require.Equal(t, "rudder.policy.mode", string(attrs[0].Key))
	require.Equal(t, 0.91, attrs[1].Value.AsFloat64())
}

func TestGateOperation(t *testing.T) {
	attrs := GateOperation("task-123", "BLOCKED")
	require.Len(t, attrs, 2)
	require.Equal(t, "rudder.execution.status", string(attrs[1].Key))
	require.Equal(t, "BLOCKED", attrs[1].Value.AsString())
}

func TestSpanFromContext(t *testing.T) {
	span := SpanFromContext(context.Background())
	require.NotNil(t, span) // no-op span if none
}

func TestAddSpanEvent(t *testing.T) {
	AddSpanEvent(context.Background(), "test.event", attribute.String("key", "value"))
}

func TestSetSpanStatus(t *testing.T) {
	SetSpanStatus(context.Background(), errors.New("test error"))
	SetSpanStatus(context.Background(), nil)
}
