package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ctxKey uint8

const (
	flowKey ctxKey = iota
	requestKey
	loggerKey
)

// ContextFields returns the correlation fields found on ctx: the active
// span, the execution context id (flow.id) and the host request id.
func ContextFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
		if sc.IsSampled() {
			fields = append(fields, zap.Bool("trace_sampled", true))
		}
	}
	if id := FlowIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("flow.id", id))
	}
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("request.id", id))
	}
	return fields
}

func stringValue(ctx context.Context, key ctxKey) string {
	s, _ := ctx.Value(key).(string)
	return s
}

// WithFlowID records the active execution context id. The tracker passes ""
// for unsampled flows, which hides any parent id.
func WithFlowID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, flowKey, id)
}

// FlowIDFromContext returns the execution context id, or "".
func FlowIDFromContext(ctx context.Context) string {
	return stringValue(ctx, flowKey)
}

// WithRequestID records the host's request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestKey, id)
}

// RequestIDFromContext returns the host's request id, or "".
func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestKey)
}

// WithLogger attaches l to ctx for handlers that only have the request.
func WithLogger(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger attached by WithLogger, or a nop logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok && l != nil {
		return l
	}
	return NewNop()
}
