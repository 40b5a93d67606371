package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

func TestContextFields_Empty(t *testing.T) {
	assert.Empty(t, ContextFields(context.Background()))
}

func TestContextFields_OTELTracing(t *testing.T) {
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithSpanProcessor(tracetest.NewSpanRecorder()),
	)
	ctx, span := provider.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	fields := ContextFields(ctx)

	assert.NotEmpty(t, fieldString(fields, "trace_id"))
	assert.NotEmpty(t, fieldString(fields, "span_id"))
	assert.True(t, hasField(fields, "trace_sampled"))
}

func TestContextFields_Flow(t *testing.T) {
	ctx := WithFlowID(context.Background(), "flow-1")
	ctx = WithRequestID(ctx, "req-9")

	fields := ContextFields(ctx)

	assert.Len(t, fields, 2)
	assert.Equal(t, "flow-1", fieldString(fields, "flow.id"))
	assert.Equal(t, "req-9", fieldString(fields, "request.id"))
}

func TestWithFlowID_EmptyClears(t *testing.T) {
	ctx := WithFlowID(context.Background(), "flow-1")
	ctx = WithFlowID(ctx, "")

	assert.Equal(t, "", FlowIDFromContext(ctx))
	assert.Empty(t, ContextFields(ctx))
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(WithLogger(context.Background(), nil)))
	assert.NotNil(t, FromContext(context.Background()))

	tl := NewTestLogger()
	ctx := WithLogger(context.Background(), tl.Logger)
	assert.Same(t, tl.Logger, FromContext(ctx))
}

func fieldString(fields []zap.Field, key string) string {
	for _, f := range fields {
		if f.Key == key {
			return f.String
		}
	}
	return ""
}

func hasField(fields []zap.Field, key string) bool {
	for _, f := range fields {
		if f.Key == key {
			return true
		}
	}
	return false
}
